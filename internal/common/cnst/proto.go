package cnst

type TransportType string

const (
	TransportWebsocket    TransportType = "websocket"
	TransportFlashSocket  TransportType = "flashsocket"
	TransportHTMLFile     TransportType = "htmlfile"
	TransportXHRPolling   TransportType = "xhr-polling"
	TransportJSONPPolling TransportType = "jsonp-polling"
)

// KnownTransports lists every transport name a client may be offered during handshake
var KnownTransports = []TransportType{
	TransportWebsocket,
	TransportFlashSocket,
	TransportHTMLFile,
	TransportXHRPolling,
	TransportJSONPPolling,
}

func (t TransportType) String() string {
	return string(t)
}

// IsKnownTransport reports whether name is one of KnownTransports
func IsKnownTransport(name string) bool {
	for _, t := range KnownTransports {
		if string(t) == name {
			return true
		}
	}
	return false
}

const (
	ContentTypePlain      = "text/plain; charset=UTF-8"
	ContentTypeJavascript = "application/javascript"
)
