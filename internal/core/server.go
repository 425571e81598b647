package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/amoylab/siogate/internal/common/config"
	"github.com/amoylab/siogate/internal/handshake"
	"github.com/amoylab/siogate/internal/session"
	"github.com/amoylab/siogate/internal/transport/websocket"
	"github.com/amoylab/siogate/pkg/metrics"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

type (
	// Server is the siogate HTTP front: it answers handshakes and hands
	// authorized sessions over to the transport adapters
	Server struct {
		logger *zap.Logger
		cfg    *config.GatewayConfig
		router *gin.Engine
		// httpServer is created on Start
		httpServer *http.Server

		negotiator *handshake.Negotiator
		authorizer *handshake.Authorizer
		// websocket is nil when the websocket transport is disabled
		websocket *websocket.Handler
		metrics   *metrics.Metrics
	}
)

// NewServer creates a new siogate server. m may be nil when metrics are disabled.
func NewServer(logger *zap.Logger, cfg *config.GatewayConfig, store session.Store, listener handshake.ConnectListener, m *metrics.Metrics) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("nil gateway config")
	}
	if cfg.Handshake.Path == "" {
		return nil, errors.New("handshake path must not be empty")
	}

	authorizer := handshake.NewAuthorizer(logger, store, listener, m)
	s := &Server{
		logger:     logger.Named("core.server"),
		cfg:        cfg,
		router:     gin.New(),
		negotiator: handshake.NewNegotiator(logger, &cfg.Handshake, store, m),
		authorizer: authorizer,
		metrics:    m,
	}
	if cfg.Websocket.Enabled {
		s.websocket = websocket.NewHandler(logger, cfg.Websocket, authorizer, m)
	}

	s.router.Use(s.recoveryMiddleware())
	s.router.Use(s.loggerMiddleware())
	if m != nil {
		m.TrackPath(cfg.Handshake.Path)
		s.router.Use(m.Middleware())
	}
	if cfg.Tracing.Enabled {
		s.router.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	// must stay the last global middleware so it sees every request
	s.router.Use(s.handshakeMiddleware())
	return s, nil
}

// RegisterRoutes registers the non-handshake routes
func (s *Server) RegisterRoutes() {
	s.router.GET("/health_check", s.handleHealthCheck)

	if s.metrics != nil {
		s.router.GET(s.cfg.Metrics.Path, gin.WrapH(s.metrics.Handler()))
	}

	if s.websocket != nil {
		route := s.WebsocketRoute()
		s.logger.Debug("registering websocket transport", zap.String("route", route))
		s.router.GET(route, s.websocket.Handle)
	}
}

// WebsocketRoute is the gin route of the websocket transport, nested under the
// handshake path
func (s *Server) WebsocketRoute() string {
	return path.Join(s.cfg.Handshake.Path, "websocket", ":"+websocket.SessionParam)
}

// Handler exposes the router, mainly for httptest
func (s *Server) Handler() http.Handler {
	return s.router
}

// Authorizer returns the lifecycle hooks shared with transport adapters
func (s *Server) Authorizer() *handshake.Authorizer {
	return s.authorizer
}

func (s *Server) handleHealthCheck(c *gin.Context) {
	stats, err := s.authorizer.Stats(c.Request.Context())
	if err != nil {
		s.logger.Warn("failed to read session stats", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "degraded",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"message":   "Health check passed.",
		"pending":   stats.Pending,
		"connected": stats.Connected,
	})
}

func (s *Server) Start() {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.router,
	}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("failed to start server", zap.Error(err))
		}
	}()
}

// Shutdown gracefully shuts down the server. Live websocket connections are
// asked to go away first so their sessions get released.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if _, ok := ctx.Deadline(); !ok && s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}

	if s.websocket != nil {
		s.websocket.CloseAll()
		// hijacked connections are not tracked by http.Server.Shutdown
		if !s.waitForConnections(ctx) {
			s.logger.Warn("websocket connections still open after shutdown timeout",
				zap.Int("count", s.websocket.ConnectionCount()))
		}
	}
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}
	return nil
}

// waitForConnections polls until no websocket is left or ctx is done
func (s *Server) waitForConnections(ctx context.Context) bool {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for s.websocket.ConnectionCount() > 0 {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
	return true
}
