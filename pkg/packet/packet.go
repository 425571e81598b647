// Package packet encodes the text frames of the socket.io 0.9 wire protocol,
// "type:id:endpoint[:data]".
package packet

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is the numeric packet type that leads every frame
type Type int

const (
	TypeDisconnect Type = iota
	TypeConnect
	TypeHeartbeat
	TypeMessage
	TypeJSON
	TypeEvent
	TypeAck
	TypeError
	TypeNoop
)

var typeNames = [...]string{
	TypeDisconnect: "disconnect",
	TypeConnect:    "connect",
	TypeHeartbeat:  "heartbeat",
	TypeMessage:    "message",
	TypeJSON:       "json",
	TypeEvent:      "event",
	TypeAck:        "ack",
	TypeError:      "error",
	TypeNoop:       "noop",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
	return typeNames[t]
}

// Packet is a single protocol frame
type Packet struct {
	Type     Type
	ID       string
	Endpoint string
	Data     string
}

// Connect returns the control packet that confirms an established connection
func Connect() *Packet {
	return &Packet{Type: TypeConnect}
}

// Disconnect returns the control packet that closes the connection
func Disconnect() *Packet {
	return &Packet{Type: TypeDisconnect}
}

// Heartbeat returns a heartbeat packet
func Heartbeat() *Packet {
	return &Packet{Type: TypeHeartbeat}
}

// Encode renders the frame. The data segment is omitted when empty.
func (p *Packet) Encode() string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(int(p.Type)))
	sb.WriteByte(':')
	sb.WriteString(p.ID)
	sb.WriteByte(':')
	sb.WriteString(p.Endpoint)
	if p.Data != "" {
		sb.WriteByte(':')
		sb.WriteString(p.Data)
	}
	return sb.String()
}

// Decode parses a frame produced by Encode
func Decode(frame string) (*Packet, error) {
	parts := strings.SplitN(frame, ":", 4)
	if len(parts) < 3 {
		return nil, fmt.Errorf("malformed packet %q", frame)
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil || n < int(TypeDisconnect) || n > int(TypeNoop) {
		return nil, fmt.Errorf("unknown packet type %q", parts[0])
	}
	p := &Packet{Type: Type(n), ID: parts[1], Endpoint: parts[2]}
	if len(parts) == 4 {
		p.Data = parts[3]
	}
	return p, nil
}
