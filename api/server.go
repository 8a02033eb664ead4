package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/inconshreveable/log15/v3"

	"github.com/wricardo/course-scheduler/schedule/service"
)

// Server represents the REST API server
type Server struct {
	service service.ScheduleService
	ws      http.Handler
	router  *mux.Router
	log     log15.Logger
	started time.Time
}

// Option configures the server
type Option func(*Server)

// WithWebSocket mounts the WebSocket handler at /ws
func WithWebSocket(h http.Handler) Option {
	return func(s *Server) { s.ws = h }
}

// WithLogger sets the server logger
func WithLogger(l log15.Logger) Option {
	return func(s *Server) { s.log = l }
}

// NewServer creates a new API server
func NewServer(svc service.ScheduleService, opts ...Option) *Server {
	s := &Server{
		service: svc,
		router:  mux.NewRouter(),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = log15.New("module", "api")
		s.log.SetHandler(log15.DiscardHandler())
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Catalog
	api.HandleFunc("/courses", s.handleSearchCourses).Methods("GET")
	api.HandleFunc("/catalogs", s.handleListCatalogs).Methods("GET")

	// Schedules
	api.HandleFunc("/schedules", s.handleListSchedules).Methods("GET")
	api.HandleFunc("/schedules/{id}", s.handleGetSchedule).Methods("GET")

	// Connected clients
	api.HandleFunc("/clients", s.handleListClients).Methods("GET")
	api.HandleFunc("/clients/{id}", s.handleGetClient).Methods("GET")

	if s.ws != nil {
		s.router.Handle("/ws", s.ws)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes err with the status matching its error code
func respondError(w http.ResponseWriter, err error) {
	code := service.ErrorCode(err)
	body := map[string]interface{}{
		"error": err.Error(),
		"code":  code,
	}
	if names := service.AvailableNames(err); names != nil {
		body["available_names"] = names
	}
	respondJSON(w, service.HTTPStatus(code), body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

// Catalog Handlers

func (s *Server) handleSearchCourses(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 0
	if limitStr := query.Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 0 {
			respondJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error": "limit must be a non-negative integer",
				"code":  service.CodeInvalidArgument,
			})
			return
		}
		limit = l
	}

	result, err := s.service.SearchCourses(r.Context(), query.Get("q"), limit)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleListCatalogs(w http.ResponseWriter, r *http.Request) {
	catalogs, err := s.service.ListCatalogs(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(catalogs),
		"catalogs": catalogs,
	})
}

// Schedule Handlers

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.service.ListSchedules(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(schedules),
		"schedules": schedules,
	})
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	scheduleID := mux.Vars(r)["id"]

	schedule, err := s.service.GetSchedule(r.Context(), scheduleID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, schedule)
}

// Client Handlers

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.service.ListClients(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(clients),
		"clients": clients,
	})
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	connectionID := mux.Vars(r)["id"]

	client, err := s.service.GetClient(r.Context(), connectionID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, client)
}
