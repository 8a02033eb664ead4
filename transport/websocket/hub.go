package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/inconshreveable/log15/v3"

	"github.com/wricardo/course-scheduler/schedule/document"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Outbound messages buffered per client before it is dropped.
	sendBuffer = 256
)

// Client is one WebSocket connection and its registry session
type Client struct {
	hub     *Hub
	handler *Handler
	conn    *websocket.Conn
	id      string

	send   chan []byte
	mu     sync.Mutex
	closed bool
}

func newClient(hub *Hub, id string) *Client {
	return &Client{
		hub:  hub,
		id:   id,
		send: make(chan []byte, sendBuffer),
	}
}

// ID returns the connection ID
func (c *Client) ID() string {
	return c.id
}

// enqueue queues data for the write pump. It reports false when the
// client cannot keep up.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub maintains the set of active clients and delivers schedule feeds
// to them. It implements session.Notifier.
type Hub struct {
	// Registered clients by connection ID
	clients map[string]*Client
	mu      sync.RWMutex

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	done chan struct{}
	once sync.Once
	log  log15.Logger
}

// HubOption configures a Hub
type HubOption func(*Hub)

// WithHubLogger sets the hub logger
func WithHubLogger(l log15.Logger) HubOption {
	return func(h *Hub) { h.log = l }
}

// NewHub creates a new WebSocket hub
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = log15.New("module", "websocket")
		h.log.SetHandler(log15.DiscardHandler())
	}
	return h
}

// Run starts the hub's event loop and blocks until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ctx.Done():
			return
		}
	}
}

// Count returns the number of registered clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ScheduleChanged pushes the shared schedule feed to a connection
func (h *Hub) ScheduleChanged(connectionID string, snap document.Snapshot) {
	h.sendTo(connectionID, &Message{
		Event:      EventScheduleUpdate,
		ScheduleID: snap.ID,
		Data:       snap,
	})
}

// PersonalViewChanged pushes the personal feed to a connection
func (h *Hub) PersonalViewChanged(connectionID string, view *document.PersonalView) {
	h.sendTo(connectionID, &Message{
		Event:      EventPersonalUpdate,
		ScheduleID: view.ScheduleID,
		Data:       view,
	})
}

// add queues a client for registration; false once the hub stopped
func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Debug("client registered", "conn", client.id, "total", total)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	current, ok := h.clients[client.id]
	if ok && current == client {
		delete(h.clients, client.id)
	}
	remaining := len(h.clients)
	h.mu.Unlock()

	if ok && current == client {
		client.close()
		h.log.Debug("client unregistered", "conn", client.id, "remaining", remaining)
	}
}

func (h *Hub) shutdown() {
	h.once.Do(func() {
		close(h.done)

		h.mu.Lock()
		clients := h.clients
		h.clients = make(map[string]*Client)
		h.mu.Unlock()

		for _, client := range clients {
			client.close()
		}
	})
}

func (h *Hub) sendTo(connectionID string, message *Message) {
	h.mu.RLock()
	client, ok := h.clients[connectionID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		h.log.Error("failed to marshal message", "event", message.Event, "err", err)
		return
	}

	if !client.enqueue(data) {
		// Slow consumer; closing the connection ends its read pump
		h.log.Warn("client send buffer full, dropping connection", "conn", connectionID)
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

// readPump pumps requests from the WebSocket connection to the handler
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.handler.disconnect(c)
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket error", "conn", c.id, "err", err)
			}
			break
		}

		reply := c.handler.handle(ctx, c.id, data)
		out, err := json.Marshal(reply)
		if err != nil {
			c.hub.log.Error("failed to marshal reply", "conn", c.id, "err", err)
			continue
		}
		if !c.enqueue(out) {
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
