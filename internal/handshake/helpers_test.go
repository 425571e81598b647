package handshake

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/amoylab/siogate/internal/session"
	"github.com/amoylab/siogate/pkg/packet"
)

var errBackend = errors.New("backend unavailable")

// failingStore fails every operation
type failingStore struct{}

func (failingStore) Issue(context.Context, session.ID) error { return errBackend }
func (failingStore) IsAuthorized(context.Context, session.ID) (bool, error) {
	return false, errBackend
}
func (failingStore) Promote(context.Context, session.ID) error { return errBackend }
func (failingStore) Release(context.Context, session.ID) (bool, error) {
	return false, errBackend
}
func (failingStore) ReapStale(context.Context, time.Duration) ([]session.ID, error) {
	return nil, errBackend
}
func (failingStore) Stats(context.Context) (session.Stats, error) { return session.Stats{}, errBackend }
func (failingStore) Close() error                                 { return nil }

// reapFailingStore wraps a working store but fails reaping
type reapFailingStore struct {
	session.Store
}

func (reapFailingStore) ReapStale(context.Context, time.Duration) ([]session.ID, error) {
	return nil, errBackend
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) SetMillis(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = time.UnixMilli(ms)
}

type fakeClient struct {
	id      session.ID
	sendErr error
	onSend  func()

	mu   sync.Mutex
	sent []string
}

func (c *fakeClient) SessionID() session.ID { return c.id }

func (c *fakeClient) Send(_ context.Context, p *packet.Packet) error {
	if c.onSend != nil {
		c.onSend()
	}
	c.mu.Lock()
	c.sent = append(c.sent, p.Encode())
	c.mu.Unlock()
	return c.sendErr
}

func (c *fakeClient) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}
