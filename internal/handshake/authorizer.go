package handshake

import (
	"context"
	"fmt"

	"github.com/amoylab/siogate/internal/common/cnst"
	"github.com/amoylab/siogate/internal/session"
	"github.com/amoylab/siogate/pkg/metrics"
	"github.com/amoylab/siogate/pkg/packet"
	"github.com/amoylab/siogate/pkg/trace"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Client is the transport-side view of an opened session
type Client interface {
	SessionID() session.ID
	Send(ctx context.Context, p *packet.Packet) error
}

// ConnectListener is notified once per successful Connect
type ConnectListener interface {
	OnConnect(ctx context.Context, client Client)
}

// ConnectListenerFunc adapts a function to ConnectListener
type ConnectListenerFunc func(ctx context.Context, client Client)

func (f ConnectListenerFunc) OnConnect(ctx context.Context, client Client) {
	f(ctx, client)
}

// Authorizer exposes the session lifecycle to transports.
//
// Transports call IsAuthorized before upgrading, Connect once the transport is
// open and OnDisconnect when it closes. Connect does not check authorization
// itself; callers are expected to have done so.
type Authorizer struct {
	logger   *zap.Logger
	store    session.Store
	listener ConnectListener
	metrics  *metrics.Metrics
}

// NewAuthorizer creates an Authorizer. listener and m may be nil.
func NewAuthorizer(logger *zap.Logger, store session.Store, listener ConnectListener, m *metrics.Metrics) *Authorizer {
	return &Authorizer{
		logger:   logger.Named("handshake.authorizer"),
		store:    store,
		listener: listener,
		metrics:  m,
	}
}

// IsAuthorized reports whether id is pending or connected. Store failures are
// logged and reported as not authorized.
func (a *Authorizer) IsAuthorized(ctx context.Context, id session.ID) bool {
	ok, err := a.store.IsAuthorized(ctx, id)
	if err != nil {
		a.logger.Error("failed to check session authorization",
			zap.String("session_id", id.String()),
			zap.Error(err))
		return false
	}
	return ok
}

// Connect promotes the client's session, sends the connect packet and then
// notifies the listener. The promotion happens before any I/O. A listener
// panic is recovered and logged.
func (a *Authorizer) Connect(ctx context.Context, client Client) error {
	id := client.SessionID()
	scope := trace.Tracer(cnst.TraceHandshake).Start(ctx, cnst.SpanSessionConnect)
	scope.WithAttrs(attribute.String(cnst.AttrSessionID, id.String()))
	defer scope.End()

	if err := a.store.Promote(scope.Ctx, id); err != nil {
		scope.Fail(err)
		return fmt.Errorf("failed to promote session %s: %w", id, err)
	}
	a.metrics.SessionTransition(metrics.TransitionConnected, 1)

	if err := client.Send(scope.Ctx, packet.Connect()); err != nil {
		a.logger.Warn("failed to send connect packet",
			zap.String("session_id", id.String()),
			zap.Error(err))
	}

	a.notify(scope.Ctx, client)
	return nil
}

// OnDisconnect releases the client's session. Calling it more than once is harmless.
func (a *Authorizer) OnDisconnect(ctx context.Context, client Client) {
	id := client.SessionID()
	released, err := a.store.Release(ctx, id)
	if err != nil {
		a.logger.Error("failed to release session",
			zap.String("session_id", id.String()),
			zap.Error(err))
		return
	}
	if !released {
		return
	}
	a.metrics.SessionTransition(metrics.TransitionDisconnected, 1)
	a.logger.Debug("session released", zap.String("session_id", id.String()))
}

// Stats reports registry sizes
func (a *Authorizer) Stats(ctx context.Context) (session.Stats, error) {
	return a.store.Stats(ctx)
}

func (a *Authorizer) notify(ctx context.Context, client Client) {
	if a.listener == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("connect listener panicked",
				zap.String("session_id", client.SessionID().String()),
				zap.Any("error", r))
		}
	}()
	a.listener.OnConnect(ctx, client)
}
