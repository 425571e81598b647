package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/amoylab/siogate/internal/common/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// routeOther labels requests that matched no registered route, keeping label
// cardinality bounded.
const routeOther = "other"

// Metrics holds the gateway collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry   *prometheus.Registry
	namespace  string
	httpReqCnt *prometheus.CounterVec
	httpDur    *prometheus.HistogramVec
	httpInfl   *prometheus.GaugeVec

	handshakeCnt *prometheus.CounterVec
	handshakeDur prometheus.Histogram
	sessionCnt   *prometheus.CounterVec
	wsConns      prometheus.Gauge

	mu      sync.RWMutex
	tracked map[string]struct{}
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	r := prometheus.NewRegistry()
	// Register standard process and Go collectors
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: buckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	handshakeCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "handshakes_total"}, []string{"encoding", "status"})
	handshakeDur := prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: ns, Name: "handshake_duration_seconds", Buckets: buckets})
	sessionCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "session_transitions_total"}, []string{"transition"})
	wsConns := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "websocket_connections"})
	r.MustRegister(handshakeCnt, handshakeDur, sessionCnt, wsConns)

	return &Metrics{
		registry:     r,
		namespace:    ns,
		httpReqCnt:   httpReqCnt,
		httpDur:      httpDur,
		httpInfl:     httpInfl,
		handshakeCnt: handshakeCnt,
		handshakeDur: handshakeDur,
		sessionCnt:   sessionCnt,
		wsConns:      wsConns,
		tracked:      make(map[string]struct{}),
	}
}

// Session transitions recorded by SessionTransition
const (
	TransitionIssued       = "issued"
	TransitionReaped       = "reaped"
	TransitionConnected    = "connected"
	TransitionDisconnected = "disconnected"
)

// HandshakeDone records one answered handshake
func (m *Metrics) HandshakeDone(encoding string, status int, since time.Time) {
	if m == nil {
		return
	}
	m.handshakeCnt.WithLabelValues(encoding, httpStatus(status)).Inc()
	m.handshakeDur.Observe(time.Since(since).Seconds())
}

// SessionTransition adds n to the counter of the given transition
func (m *Metrics) SessionTransition(transition string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionCnt.WithLabelValues(transition).Add(float64(n))
}

// WebsocketOpened and WebsocketClosed track live websocket connections
func (m *Metrics) WebsocketOpened() {
	if m != nil {
		m.wsConns.Inc()
	}
}

func (m *Metrics) WebsocketClosed() {
	if m != nil {
		m.wsConns.Dec()
	}
}

// TrackPath makes the middleware label requests for path with the path itself
// even though no gin route is registered for it.
func (m *Metrics) TrackPath(path string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.tracked[path] = struct{}{}
	m.mu.Unlock()
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := m.route(c)
		m.httpInfl.WithLabelValues(route).Inc()
		start := time.Now()
		c.Next()
		status := httpStatus(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpInfl.WithLabelValues(route).Dec()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) route(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	path := c.Request.URL.Path
	m.mu.RLock()
	_, ok := m.tracked[path]
	m.mu.RUnlock()
	if ok {
		return path
	}
	return routeOther
}

func httpStatus(code int) string { return strconv.Itoa(code) }
