package session

import (
	"context"
	"fmt"

	"github.com/amoylab/siogate/internal/common/cnst"
	"github.com/amoylab/siogate/internal/common/config"

	"go.uber.org/zap"
)

// NewStore creates a new session store based on configuration
func NewStore(ctx context.Context, logger *zap.Logger, cfg *config.SessionConfig, opts ...Option) (Store, error) {
	logger.Info("Initializing session store", zap.String("type", cfg.Type))
	switch cfg.Type {
	case cnst.SessionStoreMemory, "":
		return NewMemoryStore(logger, opts...), nil
	case cnst.SessionStoreRedis:
		store, err := NewRedisStore(ctx, logger, cfg.Redis, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %s", cnst.ErrUnsupportedStore, cfg.Type)
	}
}
