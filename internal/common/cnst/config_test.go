package cnst

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigConstants(t *testing.T) {
	assert.Equal(t, "siogate.yaml", SiogateYaml)
}

func TestRedisClusterTypeConstants(t *testing.T) {
	assert.Equal(t, "sentinel", RedisClusterTypeSentinel)
	assert.Equal(t, "cluster", RedisClusterTypeCluster)
	assert.Equal(t, "single", RedisClusterTypeSingle)
}

func TestSessionStoreConstants(t *testing.T) {
	assert.Equal(t, "memory", SessionStoreMemory)
	assert.Equal(t, "redis", SessionStoreRedis)
}
