package cnst

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransportType_String(t *testing.T) {
	assert.Equal(t, "websocket", TransportWebsocket.String())
	assert.Equal(t, "xhr-polling", TransportXHRPolling.String())
}

func TestIsKnownTransport(t *testing.T) {
	for _, tr := range KnownTransports {
		assert.True(t, IsKnownTransport(tr.String()), tr)
	}
	assert.False(t, IsKnownTransport("carrier-pigeon"))
	assert.False(t, IsKnownTransport(""))
}
