package cnst

import "errors"

var (
	// ErrEncodePayload is returned when the handshake payload cannot be serialized
	ErrEncodePayload = errors.New("failed to encode handshake payload")
	// ErrInvalidCallbackIndex is returned when the jsonp query parameter is not an integer
	ErrInvalidCallbackIndex = errors.New("invalid jsonp callback index")
	// ErrInvalidSessionID is returned when a session id cannot be parsed
	ErrInvalidSessionID = errors.New("invalid session id")
	// ErrUnsupportedStore is returned when the configured session store type is unknown
	ErrUnsupportedStore = errors.New("unsupported session store type")
)
