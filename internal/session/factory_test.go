package session

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/amoylab/siogate/internal/common/cnst"
	"github.com/amoylab/siogate/internal/common/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	s, err := NewStore(ctx, zap.NewNop(), &config.SessionConfig{Type: cnst.SessionStoreMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	mr := miniredis.RunT(t)
	s, err = NewStore(ctx, zap.NewNop(), &config.SessionConfig{
		Type:  cnst.SessionStoreRedis,
		Redis: config.SessionRedisConfig{ClusterType: cnst.RedisClusterTypeSingle, Addr: mr.Addr(), Prefix: "f"},
	})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	_ = s.Close()

	_, err = NewStore(ctx, zap.NewNop(), &config.SessionConfig{Type: "etcd"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, cnst.ErrUnsupportedStore))
}

func TestNewStore_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	s, err := NewStore(context.Background(), zap.NewNop(), &config.SessionConfig{
		Type:  cnst.SessionStoreRedis,
		Redis: config.SessionRedisConfig{ClusterType: cnst.RedisClusterTypeSingle, Addr: addr, Prefix: "f"},
	})
	require.Error(t, err)
	assert.Nil(t, s)
}
