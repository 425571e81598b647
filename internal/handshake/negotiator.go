package handshake

import (
	"context"
	"fmt"

	"github.com/amoylab/siogate/internal/common/cnst"
	"github.com/amoylab/siogate/internal/common/config"
	"github.com/amoylab/siogate/internal/session"
	"github.com/amoylab/siogate/pkg/metrics"
	"github.com/amoylab/siogate/pkg/trace"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Negotiator mints sessions for incoming handshakes
type Negotiator struct {
	logger  *zap.Logger
	cfg     *config.HandshakeConfig
	store   session.Store
	metrics *metrics.Metrics
}

// NewNegotiator creates a Negotiator. m may be nil.
func NewNegotiator(logger *zap.Logger, cfg *config.HandshakeConfig, store session.Store, m *metrics.Metrics) *Negotiator {
	return &Negotiator{
		logger:  logger.Named("handshake.negotiator"),
		cfg:     cfg,
		store:   store,
		metrics: m,
	}
}

// Negotiate reaps stale pending sessions, issues a fresh one and returns the
// payload to advertise. Every call mints a new id.
func (n *Negotiator) Negotiate(ctx context.Context) (session.ID, *Payload, error) {
	scope := trace.Tracer(cnst.TraceHandshake).Start(ctx, cnst.SpanHandshakeNegotiate)
	defer scope.End()

	n.reap(scope.Ctx)

	id := session.NewID()
	if err := n.store.Issue(scope.Ctx, id); err != nil {
		scope.Fail(err)
		return session.ID{}, nil, fmt.Errorf("failed to issue session: %w", err)
	}
	n.metrics.SessionTransition(metrics.TransitionIssued, 1)
	scope.WithAttrs(attribute.String(cnst.AttrSessionID, id.String()))

	return id, &Payload{
		SessionID:        id,
		HeartbeatTimeout: n.cfg.HeartbeatTimeout,
		CloseTimeout:     n.cfg.CloseTimeout,
		Transports:       n.cfg.Transports,
	}, nil
}

// reap runs inline on every handshake. A failed pass is logged and the
// handshake continues.
func (n *Negotiator) reap(ctx context.Context) {
	scope := trace.Tracer(cnst.TraceHandshake).Start(ctx, cnst.SpanSessionReap)
	defer scope.End()

	evicted, err := n.store.ReapStale(scope.Ctx, AuthorizationTTL)
	if err != nil {
		scope.Fail(err)
		n.logger.Warn("failed to reap stale sessions", zap.Error(err))
	}
	scope.WithAttrs(attribute.Int(cnst.AttrReapedCount, len(evicted)))
	for _, id := range evicted {
		n.logger.Debug("authorized session expired", zap.String("session_id", id.String()))
	}
	n.metrics.SessionTransition(metrics.TransitionReaped, len(evicted))
}
