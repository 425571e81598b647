// Package handshake implements session negotiation for the socket.io 0.9
// handshake and the lifecycle hooks transports call once a session is opened.
package handshake

import (
	"strconv"
	"strings"
	"time"

	"github.com/amoylab/siogate/internal/session"
)

// AuthorizationTTL is how long an issued session may wait for its transport
// before a reap pass removes it.
const AuthorizationTTL = 60 * time.Second

// Payload is the negotiated handshake result
type Payload struct {
	SessionID        session.ID
	HeartbeatTimeout int // seconds, 0 disables heartbeats
	CloseTimeout     int // seconds
	Transports       []string
}

// String renders "<sid>:<heartbeat>:<close>:<transports>". A zero heartbeat
// renders as an empty field.
func (p *Payload) String() string {
	var sb strings.Builder
	sb.WriteString(p.SessionID.String())
	sb.WriteByte(':')
	if p.HeartbeatTimeout != 0 {
		sb.WriteString(strconv.Itoa(p.HeartbeatTimeout))
	}
	sb.WriteByte(':')
	sb.WriteString(strconv.Itoa(p.CloseTimeout))
	sb.WriteByte(':')
	sb.WriteString(strings.Join(p.Transports, ","))
	return sb.String()
}
