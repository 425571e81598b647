package cnst

const (
	SiogateYaml = "siogate.yaml"
)

const (
	RedisClusterTypeSingle   = "single"
	RedisClusterTypeSentinel = "sentinel"
	RedisClusterTypeCluster  = "cluster"
)

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)
