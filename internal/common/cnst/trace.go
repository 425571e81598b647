package cnst

// Tracer names used across the services
const (
	// TraceCore is the tracer name for the HTTP server
	TraceCore = "siogate/core"
	// TraceHandshake is the tracer name for handshake negotiation
	TraceHandshake = "siogate/handshake"
	// TraceTransport is the tracer name for transport adapters
	TraceTransport = "siogate/transport"
)

// Common span names
const (
	SpanHandshakeRequest   = "sio.handshake.request"
	SpanHandshakeNegotiate = "sio.handshake.negotiate"
	SpanSessionReap        = "sio.session.reap"
	SpanSessionConnect     = "sio.session.connect"
	SpanWebsocketUpgrade   = "sio.websocket.upgrade"
)

// Common attribute keys
const (
	AttrSessionID       = "sio.session_id"
	AttrTransportType   = "transport.type"
	AttrEncoding        = "sio.handshake.encoding"
	AttrReapedCount     = "sio.session.reaped"
	AttrClientAddr      = "client.remote_addr"
	AttrClientUserAgent = "client.user_agent"
	AttrErrorReason     = "error.reason"
)
