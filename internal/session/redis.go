package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/amoylab/siogate/internal/common/cnst"
	"github.com/amoylab/siogate/internal/common/config"
	"github.com/amoylab/siogate/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const reapScanCount = 256

// KEYS[1] pending hash, KEYS[2] connected set. Both keys share a hash tag so
// the scripts also run in cluster mode.
var (
	issueScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[2], ARGV[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1
`)

	authorizedScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[2], ARGV[1]) == 1 then
  return 1
end
return redis.call('HEXISTS', KEYS[1], ARGV[1])
`)

	promoteScript = redis.NewScript(`
redis.call('HDEL', KEYS[1], ARGV[1])
redis.call('SADD', KEYS[2], ARGV[1])
return 1
`)

	// deletes the pending entry only if it still carries the scanned timestamp
	reapScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], ARGV[1]) == ARGV[2] then
  return redis.call('HDEL', KEYS[1], ARGV[1])
end
return 0
`)
)

// RedisStore implements Store on Redis so several gateway instances can share
// one registry. Pending ids live in a hash (id -> issuedAt unix millis) and
// connected ids in a set.
type RedisStore struct {
	logger       *zap.Logger
	client       redis.UniversalClient
	now          func() time.Time
	pendingKey   string
	connectedKey string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a new Redis-based session store
func NewRedisStore(ctx context.Context, logger *zap.Logger, cfg config.SessionRedisConfig, opts ...Option) (*RedisStore, error) {
	redisOptions := &redis.UniversalOptions{
		Addrs:    utils.SplitByMultipleDelimiters(cfg.Addr, ";", ","),
		Username: cfg.Username,
		Password: cfg.Password,
	}
	if cfg.ClusterType == cnst.RedisClusterTypeSentinel {
		redisOptions.MasterName = cfg.MasterName
	}
	if cfg.ClusterType != cnst.RedisClusterTypeCluster {
		// can not set db in cluster mode
		redisOptions.DB = cfg.DB
	}
	client := redis.NewUniversalClient(redisOptions)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisStore(logger, client, cfg.Prefix, opts...), nil
}

func newRedisStore(logger *zap.Logger, client redis.UniversalClient, prefix string, opts ...Option) *RedisStore {
	o := buildOptions(opts)
	tag := "{" + prefix + "}"
	return &RedisStore{
		logger:       logger.Named("session.store.redis"),
		client:       client,
		now:          o.now,
		pendingKey:   tag + ":pending",
		connectedKey: tag + ":connected",
	}
}

func (s *RedisStore) keys() []string {
	return []string{s.pendingKey, s.connectedKey}
}

// Issue implements Store.Issue
func (s *RedisStore) Issue(ctx context.Context, id ID) error {
	ts := strconv.FormatInt(s.now().UnixMilli(), 10)
	if err := issueScript.Run(ctx, s.client, s.keys(), id.String(), ts).Err(); err != nil {
		return fmt.Errorf("failed to issue session %s: %w", id, err)
	}
	return nil
}

// IsAuthorized implements Store.IsAuthorized
func (s *RedisStore) IsAuthorized(ctx context.Context, id ID) (bool, error) {
	n, err := authorizedScript.Run(ctx, s.client, s.keys(), id.String()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to check session %s: %w", id, err)
	}
	return n == 1, nil
}

// Promote implements Store.Promote
func (s *RedisStore) Promote(ctx context.Context, id ID) error {
	if err := promoteScript.Run(ctx, s.client, s.keys(), id.String()).Err(); err != nil {
		return fmt.Errorf("failed to promote session %s: %w", id, err)
	}
	return nil
}

// Release implements Store.Release
func (s *RedisStore) Release(ctx context.Context, id ID) (bool, error) {
	n, err := s.client.SRem(ctx, s.connectedKey, id.String()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to release session %s: %w", id, err)
	}
	return n > 0, nil
}

// ReapStale implements Store.ReapStale. The pending hash is walked with HSCAN
// and each stale entry is removed by a compare-and-delete script, so an id
// promoted or re-issued during the walk is not lost.
func (s *RedisStore) ReapStale(ctx context.Context, maxAge time.Duration) ([]ID, error) {
	now := s.now().UnixMilli()
	limit := maxAge.Milliseconds()

	var (
		evicted []ID
		cursor  uint64
	)
	for {
		kvs, next, err := s.client.HScan(ctx, s.pendingKey, cursor, "*", reapScanCount).Result()
		if err != nil {
			return evicted, fmt.Errorf("failed to scan pending sessions: %w", err)
		}
		for i := 0; i+1 < len(kvs); i += 2 {
			field, raw := kvs[i], kvs[i+1]
			issuedAt, err := strconv.ParseInt(raw, 10, 64)
			if err == nil && now-issuedAt <= limit {
				continue
			}
			n, err := reapScript.Run(ctx, s.client, s.keys(), field, raw).Int()
			if err != nil {
				return evicted, fmt.Errorf("failed to reap session %s: %w", field, err)
			}
			if n == 0 {
				continue
			}
			id, err := ParseID(field)
			if err != nil {
				s.logger.Warn("removed malformed pending session entry", zap.String("field", field))
				continue
			}
			evicted = append(evicted, id)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(evicted) > 0 {
		s.logger.Debug("reaped stale sessions", zap.Int("count", len(evicted)))
	}
	return evicted, nil
}

// Stats implements Store.Stats
func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	pipe := s.client.Pipeline()
	pending := pipe.HLen(ctx, s.pendingKey)
	connected := pipe.SCard(ctx, s.connectedKey)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Stats{}, fmt.Errorf("failed to read session stats: %w", err)
	}
	return Stats{Pending: int(pending.Val()), Connected: int(connected.Val())}, nil
}

// Close implements Store.Close
func (s *RedisStore) Close() error {
	return s.client.Close()
}
