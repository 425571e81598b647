package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type state uint8

const (
	statePending state = iota + 1
	stateConnected
)

// record is immutable once stored; transitions replace the pointer
type record struct {
	state    state
	issuedAt time.Time
}

var connectedRecord = &record{state: stateConnected}

// MemoryStore implements Store with a single sync.Map keyed by ID. Every
// transition is a single-key Swap, LoadOrStore, CompareAndSwap or
// CompareAndDelete, so an id can never be observed in both states.
type MemoryStore struct {
	logger   *zap.Logger
	now      func() time.Time
	sessions sync.Map // ID -> *record
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory session store
func NewMemoryStore(logger *zap.Logger, opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{
		logger: logger.Named("session.store.memory"),
		now:    o.now,
	}
}

// Issue implements Store.Issue
func (s *MemoryStore) Issue(_ context.Context, id ID) error {
	rec := &record{state: statePending, issuedAt: s.now()}
	for {
		cur, loaded := s.sessions.LoadOrStore(id, rec)
		if !loaded {
			return nil
		}
		if cur.(*record).state == stateConnected {
			return nil
		}
		// refresh the timestamp of a still pending id
		if s.sessions.CompareAndSwap(id, cur, rec) {
			return nil
		}
	}
}

// IsAuthorized implements Store.IsAuthorized
func (s *MemoryStore) IsAuthorized(_ context.Context, id ID) (bool, error) {
	_, ok := s.sessions.Load(id)
	return ok, nil
}

// Promote implements Store.Promote
func (s *MemoryStore) Promote(_ context.Context, id ID) error {
	s.sessions.Store(id, connectedRecord)
	return nil
}

// Release implements Store.Release
func (s *MemoryStore) Release(_ context.Context, id ID) (bool, error) {
	for {
		cur, ok := s.sessions.Load(id)
		if !ok || cur.(*record).state != stateConnected {
			return false, nil
		}
		if s.sessions.CompareAndDelete(id, cur) {
			return true, nil
		}
	}
}

// ReapStale implements Store.ReapStale
func (s *MemoryStore) ReapStale(_ context.Context, maxAge time.Duration) ([]ID, error) {
	now := s.now()
	var evicted []ID
	s.sessions.Range(func(key, value any) bool {
		rec := value.(*record)
		if rec.state != statePending || now.Sub(rec.issuedAt) <= maxAge {
			return true
		}
		// a concurrent Promote swaps the pointer, which makes this a no-op
		if s.sessions.CompareAndDelete(key, value) {
			evicted = append(evicted, key.(ID))
		}
		return true
	})
	if len(evicted) > 0 {
		s.logger.Debug("reaped stale sessions", zap.Int("count", len(evicted)))
	}
	return evicted, nil
}

// Stats implements Store.Stats
func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	var st Stats
	s.sessions.Range(func(_, value any) bool {
		if value.(*record).state == stateConnected {
			st.Connected++
		} else {
			st.Pending++
		}
		return true
	})
	return st, nil
}

// Close implements Store.Close
func (s *MemoryStore) Close() error {
	return nil
}
