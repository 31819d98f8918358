// Package api exposes the streaming substrate's HTTP surface over Echo v5:
// chat/message creation, SSE event streaming, a JSON replay endpoint, and a
// health check, per §6.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riverrun/agentstream/pkg/agentgraph"
	"github.com/riverrun/agentstream/pkg/config"
	"github.com/riverrun/agentstream/pkg/database"
	"github.com/riverrun/agentstream/pkg/driver"
	"github.com/riverrun/agentstream/pkg/eventstore"
	"github.com/riverrun/agentstream/pkg/messagestore"
	"github.com/riverrun/agentstream/pkg/registry"
	"github.com/riverrun/agentstream/pkg/version"
	"github.com/riverrun/agentstream/pkg/watcher"
)

// Server is the HTTP API server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	cfg        *config.Config
	pool       *pgxpool.Pool
	messages   *messagestore.Store
	events     *eventstore.Store
	registry   *registry.Registry
	watcher    *watcher.Watcher
	driver     *driver.Driver
	log        *slog.Logger
}

// NewServer creates a new API server with Echo v5. graph and scope are
// passed to the single Driver the server builds here and reuses for every
// message; scope may be nil (disables tender-pinning enforcement).
func NewServer(
	cfg *config.Config,
	pool *pgxpool.Pool,
	messages *messagestore.Store,
	events *eventstore.Store,
	reg *registry.Registry,
	watch *watcher.Watcher,
	graph agentgraph.Graph,
	scope driver.ScopeChecker,
	log *slog.Logger,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	e := echo.New()

	s := &Server{
		echo:     e,
		cfg:      cfg,
		pool:     pool,
		messages: messages,
		events:   events,
		registry: reg,
		watcher:  watch,
		driver:   driver.New(events, messages, graph, scope, cfg.Driver, log),
		log:      log,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(s.cfg.HTTP.BodyLimitMB * 1024 * 1024))

	s.echo.GET("/health", s.healthHandler)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/chats", s.createChatHandler)
	v1.POST("/chats/:chat_id/messages", s.createMessageHandler)
	v1.GET("/chats/:chat_id/messages/:message_id/stream", s.streamHandler)
	v1.GET("/messages/:message_id/events", s.listEventsHandler)
}

// Start starts the HTTP server on the given address and blocks until the
// server stops, returning ListenAndServe's error.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener. Used
// by test infrastructure to serve on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// healthHandler handles GET /health.
func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	dbHealth, dbErr := database.Health(reqCtx, s.pool)

	resp := HealthResponse{
		Status:       "healthy",
		Version:      version.Full(),
		DBHost:       s.cfg.Stats().DBHost,
		WakeEnabled:  s.cfg.Stats().WakeEnabled,
		EventTTLDays: s.cfg.Stats().EventTTLDays,
		ActiveAgents: s.registry.ActiveCount(),
		Database:     dbHealth,
	}

	code := http.StatusOK
	if dbErr != nil {
		code = http.StatusServiceUnavailable
		resp.Status = "unhealthy"
		resp.Error = dbErr.Error()
	}
	return c.JSON(code, resp)
}
