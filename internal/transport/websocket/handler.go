// Package websocket is the websocket transport adapter. It upgrades requests
// for handshake-issued sessions and drives the session lifecycle hooks.
package websocket

import (
	"net/http"
	"sync"

	"github.com/amoylab/siogate/internal/common/cnst"
	"github.com/amoylab/siogate/internal/common/config"
	"github.com/amoylab/siogate/internal/handshake"
	"github.com/amoylab/siogate/internal/session"
	"github.com/amoylab/siogate/pkg/metrics"
	"github.com/amoylab/siogate/pkg/packet"
	"github.com/amoylab/siogate/pkg/trace"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SessionParam is the route parameter holding the session id
const SessionParam = "sid"

// Handler upgrades websocket requests and tracks live connections
type Handler struct {
	logger     *zap.Logger
	authorizer *handshake.Authorizer
	metrics    *metrics.Metrics
	upgrader   websocket.Upgrader

	mu      sync.RWMutex
	// a nil value marks an upgrade in progress
	clients map[session.ID]*client
}

// NewHandler creates a websocket Handler. m may be nil.
func NewHandler(logger *zap.Logger, cfg config.WebsocketConfig, a *handshake.Authorizer, m *metrics.Metrics) *Handler {
	return &Handler{
		logger:     logger.Named("transport.websocket"),
		authorizer: a,
		metrics:    m,
		clients:    make(map[session.ID]*client),
		upgrader: websocket.Upgrader{
			HandshakeTimeout: cfg.HandshakeTimeout,
			ReadBufferSize:   cfg.ReadBufferSize,
			WriteBufferSize:  cfg.WriteBufferSize,
			// cross-origin clients are expected, the handshake already echoed the origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handle serves GET <handshake path>websocket/:sid
func (h *Handler) Handle(c *gin.Context) {
	scope := trace.Tracer(cnst.TraceTransport).Start(c.Request.Context(), cnst.SpanWebsocketUpgrade)
	scope.WithAttrs(
		attribute.String(cnst.AttrTransportType, cnst.TransportWebsocket.String()),
		attribute.String(cnst.AttrClientAddr, c.Request.RemoteAddr),
	)
	ctx := scope.Ctx

	id, err := session.ParseID(c.Param(SessionParam))
	if err != nil || !h.authorizer.IsAuthorized(ctx, id) {
		h.logger.Debug("rejecting websocket for unknown session",
			zap.String("sid", c.Param(SessionParam)),
			zap.String("remote_addr", c.Request.RemoteAddr))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		scope.End()
		return
	}
	scope.WithAttrs(attribute.String(cnst.AttrSessionID, id.String()))

	// one live socket per session; a second one would be released by the first
	if !h.reserve(id) {
		h.logger.Debug("rejecting websocket for already connected session",
			zap.String("session_id", id.String()),
			zap.String("remote_addr", c.Request.RemoteAddr))
		c.JSON(http.StatusConflict, gin.H{"error": "session already connected"})
		scope.WithAttrs(attribute.String(cnst.AttrErrorReason, "already_connected")).End()
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.unreserve(id)
		h.logger.Error("failed to upgrade WebSocket connection", zap.Error(err))
		scope.Fail(err).End()
		return
	}
	scope.End()

	cl := newClient(id, conn, h.logger)
	h.attach(cl)
	h.metrics.WebsocketOpened()
	defer func() {
		cl.close()
		cl.wait()
		h.authorizer.OnDisconnect(ctx, cl)
		h.metrics.WebsocketClosed()
		h.remove(cl)
		h.logger.Info("WebSocket client disconnected", zap.String("session_id", id.String()))
	}()

	if err := h.authorizer.Connect(ctx, cl); err != nil {
		h.logger.Error("failed to connect session", zap.String("session_id", id.String()), zap.Error(err))
		return
	}
	h.logger.Info("WebSocket client connected",
		zap.String("session_id", id.String()),
		zap.String("remote_addr", c.Request.RemoteAddr))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket connection error", zap.String("session_id", id.String()), zap.Error(err))
			}
			return
		}
		p, err := packet.Decode(string(data))
		if err != nil {
			h.logger.Debug("dropping malformed frame", zap.String("session_id", id.String()), zap.Error(err))
			continue
		}
		if p.Type == packet.TypeDisconnect {
			return
		}
		// message routing happens above this layer
		h.logger.Debug("received frame",
			zap.String("session_id", id.String()),
			zap.Stringer("type", p.Type))
	}
}

// ConnectionCount returns the number of live websocket connections, including
// upgrades in progress
func (h *Handler) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll asks every peer to go away and closes the connections. The
// per-connection handlers then release their sessions.
func (h *Handler) CloseAll() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, cl := range h.clients {
		if cl != nil {
			clients = append(clients, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range clients {
		cl.goingAway()
		cl.close()
	}
}

// reserve claims id for an upgrade in progress. It fails when id already has
// a live or pending socket.
func (h *Handler) reserve(id session.ID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; ok {
		return false
	}
	h.clients[id] = nil
	return true
}

func (h *Handler) unreserve(id session.ID) {
	h.mu.Lock()
	if cl, ok := h.clients[id]; ok && cl == nil {
		delete(h.clients, id)
	}
	h.mu.Unlock()
}

func (h *Handler) attach(cl *client) {
	h.mu.Lock()
	h.clients[cl.id] = cl
	h.mu.Unlock()
}

func (h *Handler) remove(cl *client) {
	h.mu.Lock()
	if h.clients[cl.id] == cl {
		delete(h.clients, cl.id)
	}
	h.mu.Unlock()
}
