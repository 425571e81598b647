package core

import (
	"net/http"
	"time"

	"github.com/amoylab/siogate/internal/common/cnst"
	"github.com/amoylab/siogate/internal/handshake"
	"github.com/amoylab/siogate/pkg/trace"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// handshakeMiddleware answers GET requests whose path equals the handshake
// path exactly. Every other request continues down the chain untouched.
func (s *Server) handshakeMiddleware() gin.HandlerFunc {
	handshakePath := s.cfg.Handshake.Path
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || c.Request.URL.Path != handshakePath {
			c.Next()
			return
		}
		s.handleHandshake(c)
		c.Abort()
	}
}

func (s *Server) handleHandshake(c *gin.Context) {
	start := time.Now()
	scope := trace.Tracer(cnst.TraceCore).Start(c.Request.Context(), cnst.SpanHandshakeRequest)
	defer scope.End()
	scope.WithAttrs(
		attribute.String(cnst.AttrClientAddr, c.Request.RemoteAddr),
		attribute.String(cnst.AttrClientUserAgent, c.Request.UserAgent()),
	)

	cb, err := handshake.ParseCallback(c.Request.URL.RawQuery)
	if err != nil {
		s.logger.Debug("rejecting handshake with invalid callback index",
			zap.String("remote_addr", c.Request.RemoteAddr),
			zap.Error(err))
		scope.WithAttrs(
			attribute.String(cnst.AttrEncoding, string(handshake.EncodingJSONP)),
			attribute.String(cnst.AttrErrorReason, "invalid_callback"),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		s.metrics.HandshakeDone(string(handshake.EncodingJSONP), http.StatusBadRequest, start)
		return
	}
	encoding := handshake.EncodingRaw
	if cb != nil {
		encoding = handshake.EncodingJSONP
	}
	scope.WithAttrs(attribute.String(cnst.AttrEncoding, string(encoding)))

	id, payload, err := s.negotiator.Negotiate(scope.Ctx)
	if err != nil {
		s.logger.Error("failed to negotiate handshake",
			zap.String("remote_addr", c.Request.RemoteAddr),
			zap.Error(err))
		scope.WithAttrs(attribute.String(cnst.AttrErrorReason, "negotiate")).Fail(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		s.metrics.HandshakeDone(string(encoding), http.StatusInternalServerError, start)
		return
	}

	resp, err := handshake.Render(payload.String(), cb)
	if err != nil {
		// the issued session is left for the reaper
		s.logger.Error("failed to render handshake response",
			zap.String("session_id", id.String()),
			zap.Error(err))
		scope.WithAttrs(attribute.String(cnst.AttrErrorReason, "render")).Fail(err)
		c.Status(http.StatusInternalServerError)
		s.metrics.HandshakeDone(string(encoding), http.StatusInternalServerError, start)
		return
	}

	handshake.WriteHeaders(c.Writer.Header(), c.GetHeader("Origin"), resp)
	c.Data(http.StatusOK, resp.ContentType, resp.Body)
	s.metrics.HandshakeDone(string(resp.Encoding), http.StatusOK, start)

	s.logger.Debug("handshake completed",
		zap.String("session_id", id.String()),
		zap.String("encoding", string(resp.Encoding)),
		zap.String("remote_addr", c.Request.RemoteAddr))
}
