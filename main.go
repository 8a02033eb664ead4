// Command course-scheduler starts the collaborative course scheduling server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags override values from the YAML config file and control debug logging
// and optional ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/inconshreveable/log15/v3"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/course-scheduler/api"
	"github.com/wricardo/course-scheduler/config"
	"github.com/wricardo/course-scheduler/schedule/catalog"
	"github.com/wricardo/course-scheduler/schedule/pool"
	"github.com/wricardo/course-scheduler/schedule/service"
	"github.com/wricardo/course-scheduler/schedule/session"
	"github.com/wricardo/course-scheduler/transport/mcp"
	"github.com/wricardo/course-scheduler/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Course Scheduler Server"
)

// app holds the wired services of one server process
type app struct {
	cfg      *config.Config
	log      log15.Logger
	catalog  *catalog.Manager
	pool     *pool.Pool
	hub      *websocket.Hub
	registry *session.Registry
	service  service.ScheduleService
	api      *api.Server
}

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "path to YAML configuration file",
			Sources: cli.EnvVars("SCHEDULER_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "host",
			Usage:   "HTTP server host",
			Sources: cli.EnvVars("HOST"),
		},
		&cli.IntFlag{
			Name:    "port",
			Usage:   "HTTP server port",
			Sources: cli.EnvVars("PORT"),
		},
		&cli.StringFlag{
			Name:    "catalog-dir",
			Usage:   "directory containing course catalog files",
			Sources: cli.EnvVars("CATALOG_DIR"),
		},
		&cli.StringFlag{
			Name:    "schedules-dir",
			Usage:   "directory where schedules are persisted",
			Sources: cli.EnvVars("SCHEDULES_DIR"),
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
		},
		&cli.BoolFlag{
			Name:    "ngrok",
			Usage:   "enable ngrok tunnel (server mode)",
			Sources: cli.EnvVars("NGROK_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "ngrok-auth",
			Usage:   "ngrok auth token",
			Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "ngrok-domain",
			Usage:   "custom ngrok domain (optional)",
			Sources: cli.EnvVars("NGROK_DOMAIN"),
		},
	}

	// Root flags are inherited by the subcommands.
	return &cli.Command{
		Name:    "course-scheduler",
		Usage:   AppName,
		Version: Version,
		Flags:   flags,
		Action:  runServer,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  runServer,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "run MCP stdio server, with an internal HTTP server if none is running",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Value:   "http://localhost:8080",
						Usage:   "external API server to reuse when reachable",
						Sources: cli.EnvVars("SCHEDULER_API_URL"),
					},
				},
				Action: runStdioMCP,
			},
		},
	}
}

// loadConfig reads the config file and applies flag overrides
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("host") {
		cfg.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Server.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("catalog-dir") {
		cfg.Catalog.Dir = cmd.String("catalog-dir")
	}
	if cmd.IsSet("schedules-dir") {
		cfg.Schedules.Dir = cmd.String("schedules-dir")
	}
	if cmd.Bool("debug") {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the root logger from the log section of the config
func newLogger(cfg config.LogConfig, w io.Writer) (log15.Logger, error) {
	lvl, err := log15.LvlFromString(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var format log15.Format
	switch cfg.Format {
	case "json":
		format = log15.JsonFormat()
	case "logfmt":
		format = log15.LogfmtFormat()
	default:
		format = log15.TerminalFormat()
	}

	logger := log15.New()
	logger.SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(w, format)))
	return logger, nil
}

// newApp wires catalog, pool, registry, service and transports.
// The hub is created but not started.
func newApp(cfg *config.Config, logger log15.Logger) (*app, error) {
	catalogManager, err := catalog.NewManager(cfg.Catalog.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog manager: %w", err)
	}

	persistence, err := pool.NewFilePersistence(cfg.Schedules.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule persistence: %w", err)
	}

	schedulePool := pool.New(catalogManager,
		pool.WithPersistence(persistence),
		pool.WithSeed(cfg.Schedules.SeedFilter, cfg.Schedules.SeedCount),
		pool.WithLogger(logger.New("module", "pool")),
	)

	hub := websocket.NewHub(websocket.WithHubLogger(logger.New("module", "hub")))

	registry := session.NewRegistry(schedulePool,
		session.WithNotifier(hub),
		session.WithCourses(catalogManager),
		session.WithLogger(logger.New("module", "session")),
	)

	svc := service.NewScheduleService(registry, schedulePool, catalogManager,
		service.WithLogger(logger.New("module", "service")),
	)

	wsHandler := websocket.NewHandler(hub, svc,
		websocket.WithAllowedOrigins(cfg.WebSocket.AllowedOrigins),
		websocket.WithLogger(logger.New("module", "websocket")),
	)

	apiServer := api.NewServer(svc,
		api.WithWebSocket(wsHandler),
		api.WithLogger(logger.New("module", "api")),
	)

	return &app{
		cfg:      cfg,
		log:      logger,
		catalog:  catalogManager,
		pool:     schedulePool,
		hub:      hub,
		registry: registry,
		service:  svc,
		api:      apiServer,
	}, nil
}

// routes mounts the API at the root and the MCP endpoint at /mcp
func (a *app) routes(mcpClient *mcp.Client) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", a.api)
	mux.Handle("/mcp", mcpClient)
	return mux
}

// evictionRoutine drops idle, unattached schedules from memory until ctx is done
func (a *app) evictionRoutine(ctx context.Context) {
	if a.cfg.Schedules.IdleTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(a.cfg.Schedules.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := a.pool.EvictIdle(a.cfg.Schedules.IdleTimeout); n > 0 {
				a.log.Info("evicted idle schedules", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// reloadCatalog drops cached catalog files so edits on disk are read on next use
func (a *app) reloadCatalog() {
	a.catalog.RefreshCache()
	a.log.Info("catalog cache cleared")
}

// shutdown detaches every client and flushes schedules to disk
func (a *app) shutdown() {
	a.registry.Close()
	if err := a.pool.SaveAll(); err != nil {
		a.log.Error("failed to save schedules", "err", err)
	}
}

func setup(cmd *cli.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}

	return newApp(cfg, logger)
}

// runServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runServer(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}

	addr := a.cfg.Addr()
	a.log.Info("starting", "app", AppName, "version", Version, "addr", addr)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.hub.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.evictionRoutine(ctx)
	}()

	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr), Version)
	handler := a.routes(mcpClient)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info("HTTP server listening", "addr", addr)
		a.log.Info("endpoints",
			"api", fmt.Sprintf("http://%s/api", addr),
			"ws", fmt.Sprintf("ws://%s/ws", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr),
		)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, a.log.New("module", "ngrok"), cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), handler)
		}()
	}

	// Wait for shutdown signal; SIGHUP reloads the catalog
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	var runErr error
wait:
	for {
		select {
		case <-hup:
			a.reloadCatalog()
		case sig := <-stop:
			a.log.Info("shutting down", "signal", sig)
			break wait
		case runErr = <-serverErr:
			a.log.Error("HTTP server failed", "err", runErr)
			break wait
		case <-ctx.Done():
			break wait
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.log.Error("HTTP server shutdown error", "err", err)
	}
	a.shutdown()
	cancel()

	wg.Wait()
	a.log.Info("server stopped")
	return runErr
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, logger log15.Logger, authToken, domain string, handler http.Handler) {
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Info("using custom ngrok domain", "domain", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "err", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", "err", err)
		}
	}()

	url := tun.URL()
	logger.Info("ngrok tunnel established", "url", url,
		"api", url+"/api", "ws", url+"/ws", "mcp", url+"/mcp")

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		logger.Error("ngrok server error", "err", err)
	}
	logger.Info("ngrok tunnel closed")
}

// runStdioMCP runs an MCP stdio server.
// It reuses the external API when reachable; otherwise it starts an internal
// HTTP API bound to a random loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// stdout carries the MCP protocol
	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}

	baseURL := cmd.String("api-url")
	if apiReachable(baseURL) {
		logger.Info("external API server found, using it for MCP", "url", baseURL)
	} else {
		logger.Info("no external API server found, starting internal HTTP server")

		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go a.hub.Run(ctx)
		defer a.shutdown()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		internal := &http.Server{Handler: a.api}
		go func() {
			if err := internal.Serve(listener); err != nil && err != http.ErrServerClosed {
				logger.Error("internal HTTP server error", "err", err)
			}
		}()
		defer internal.Close()

		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())
		logger.Info("internal HTTP server started", "url", baseURL)
	}

	logger.Info("MCP stdio server ready", "api", baseURL)
	return mcp.NewClient(baseURL, Version).ServeStdio()
}

// apiReachable reports whether an API server answers the health check at baseURL
func apiReachable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
