package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/amoylab/siogate/internal/session"
	"github.com/amoylab/siogate/pkg/packet"

	"github.com/eapache/queue"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	maxQueuedFrames = 256
	writeWait       = 10 * time.Second
)

var (
	// ErrClientClosed is returned by Send after the connection is closed
	ErrClientClosed = errors.New("websocket client closed")
	// ErrSendQueueFull is returned when the peer is not draining frames
	ErrSendQueueFull = errors.New("websocket send queue full")
)

// client is a handshake.Client over a websocket connection. Send only queues
// the frame; a single writer goroutine owns conn writes.
type client struct {
	id     session.ID
	conn   *websocket.Conn
	logger *zap.Logger

	mu     sync.Mutex
	frames *queue.Queue // of string
	closed bool

	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	writerWG  sync.WaitGroup
}

func newClient(id session.ID, conn *websocket.Conn, logger *zap.Logger) *client {
	c := &client{
		id:     id,
		conn:   conn,
		logger: logger.With(zap.String("session_id", id.String())),
		frames: queue.New(),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	c.writerWG.Add(1)
	go c.writeLoop()
	return c
}

func (c *client) SessionID() session.ID {
	return c.id
}

func (c *client) Send(_ context.Context, p *packet.Packet) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if c.frames.Length() >= maxQueuedFrames {
		c.mu.Unlock()
		return ErrSendQueueFull
	}
	c.frames.Add(p.Encode())
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

func (c *client) writeLoop() {
	defer c.writerWG.Done()
	for {
		select {
		case <-c.done:
			return
		case <-c.notify:
		}
		for {
			frame, ok := c.next()
			if !ok {
				break
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				c.logger.Debug("failed to write frame", zap.Error(err))
				c.close()
				return
			}
		}
	}
}

func (c *client) next() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.frames.Length() == 0 {
		return "", false
	}
	return c.frames.Remove().(string), true
}

// goingAway asks the peer to close. Safe to call concurrently with writes.
func (c *client) goingAway() {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
		_ = c.conn.Close()
	})
}

// wait blocks until the writer goroutine has exited
func (c *client) wait() {
	c.writerWG.Wait()
}
