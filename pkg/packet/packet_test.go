package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlPackets(t *testing.T) {
	assert.Equal(t, "1::", Connect().Encode())
	assert.Equal(t, "0::", Disconnect().Encode())
	assert.Equal(t, "2::", Heartbeat().Encode())
}

func TestEncode_WithData(t *testing.T) {
	p := &Packet{Type: TypeMessage, ID: "1", Endpoint: "/chat", Data: "hello:world"}
	assert.Equal(t, "3:1:/chat:hello:world", p.Encode())
}

func TestDecode(t *testing.T) {
	p, err := Decode("3:1:/chat:hello:world")
	require.NoError(t, err)
	assert.Equal(t, &Packet{Type: TypeMessage, ID: "1", Endpoint: "/chat", Data: "hello:world"}, p)

	p, err = Decode("1::")
	require.NoError(t, err)
	assert.Equal(t, TypeConnect, p.Type)

	for _, bad := range []string{"", "1", "9::", "x::"} {
		_, err := Decode(bad)
		assert.Error(t, err, bad)
	}
}

func TestType_String(t *testing.T) {
	assert.Equal(t, "connect", TypeConnect.String())
	assert.Equal(t, "noop", TypeNoop.String())
	assert.Equal(t, "unknown(42)", Type(42).String())
}
