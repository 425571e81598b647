package config

import (
	"os"
	"regexp"
	"time"

	"github.com/amoylab/siogate/internal/common/cnst"
	"github.com/amoylab/siogate/pkg/helper"
	"github.com/amoylab/siogate/pkg/trace"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort             = 5235
	defaultHandshakePath    = "/socket.io/1/"
	defaultCloseTimeout     = 60
	defaultRedisPrefix      = "siogate:session"
	defaultMetricsPath      = "/metrics"
	defaultMetricsNamespace = "siogate"
	defaultShutdownTimeout  = 5 * time.Second
)

type (
	// GatewayConfig represents the siogate server configuration
	GatewayConfig struct {
		Port            int             `yaml:"port"`
		PID             string          `yaml:"pid"`
		ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
		Logger          LoggerConfig    `yaml:"logger"`
		Handshake       HandshakeConfig `yaml:"handshake"`
		Session         SessionConfig   `yaml:"session"`
		Websocket       WebsocketConfig `yaml:"websocket"`
		Metrics         MetricsConfig   `yaml:"metrics"`
		Tracing         trace.Config    `yaml:"tracing"`
	}

	// HandshakeConfig holds the values advertised to clients during handshake
	HandshakeConfig struct {
		Path             string   `yaml:"path"`              // handshake endpoint, matched exactly
		HeartbeatTimeout int      `yaml:"heartbeat_timeout"` // seconds, 0 disables heartbeats
		CloseTimeout     int      `yaml:"close_timeout"`     // seconds
		Transports       []string `yaml:"transports"`        // offered in this order
	}

	// SessionConfig represents the session registry configuration
	SessionConfig struct {
		Type  string             `yaml:"type"`  // "memory" or "redis"
		Redis SessionRedisConfig `yaml:"redis"` // Redis configuration
	}

	// SessionRedisConfig represents the Redis configuration for the session registry
	SessionRedisConfig struct {
		ClusterType string `yaml:"cluster_type"` // single, sentinel, cluster
		Addr        string `yaml:"addr"`         // separated by ',' or ';' for sentinel and cluster
		MasterName  string `yaml:"master_name"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		DB          int    `yaml:"db"`
		Prefix      string `yaml:"prefix"`
	}

	// WebsocketConfig controls the websocket transport adapter
	WebsocketConfig struct {
		Enabled          bool          `yaml:"enabled"`
		HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
		ReadBufferSize   int           `yaml:"read_buffer_size"`
		WriteBufferSize  int           `yaml:"write_buffer_size"`
	}

	// MetricsConfig represents the prometheus metrics configuration
	MetricsConfig struct {
		Enabled   bool      `yaml:"enabled"`
		Path      string    `yaml:"path"`
		Namespace string    `yaml:"namespace"`
		Buckets   []float64 `yaml:"buckets"`
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
		TimeZone   string `yaml:"time_zone"`   // time zone for log timestamps, e.g., "UTC", default is local
		TimeFormat string `yaml:"time_format"` // time format for log timestamps, default is "2006-01-02 15:04:05"
	}
)

type Type interface {
	GatewayConfig
}

// LoadConfig loads configuration from a YAML file with environment variable support
func LoadConfig[T Type](filename string) (*T, string, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfgPath := helper.GetCfgPath(filename)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, cfgPath, err
	}

	// Resolve environment variables
	data = resolveEnv(data)
	var cfg T
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, cfgPath, err
	}

	if gwCfg, ok := any(&cfg).(*GatewayConfig); ok {
		SetGatewayDefaults(gwCfg)
	}

	return &cfg, cfgPath, nil
}

// SetGatewayDefaults fills zero values that have a sensible default.
// HeartbeatTimeout is left alone since 0 is meaningful.
func SetGatewayDefaults(cfg *GatewayConfig) {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.Handshake.Path == "" {
		cfg.Handshake.Path = defaultHandshakePath
	}
	if cfg.Handshake.CloseTimeout <= 0 {
		cfg.Handshake.CloseTimeout = defaultCloseTimeout
	}
	// nil means "not configured"; an explicit empty list is left for validation to reject
	if cfg.Handshake.Transports == nil {
		cfg.Handshake.Transports = []string{
			cnst.TransportXHRPolling.String(),
			cnst.TransportWebsocket.String(),
		}
	}
	if cfg.Session.Type == "" {
		cfg.Session.Type = cnst.SessionStoreMemory
	}
	if cfg.Session.Redis.ClusterType == "" {
		cfg.Session.Redis.ClusterType = cnst.RedisClusterTypeSingle
	}
	if cfg.Session.Redis.Prefix == "" {
		cfg.Session.Redis.Prefix = defaultRedisPrefix
	}
	if cfg.Websocket.HandshakeTimeout <= 0 {
		cfg.Websocket.HandshakeTimeout = 10 * time.Second
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = defaultMetricsNamespace
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = cnst.AppName
	}
}

// resolveEnv replaces environment variable placeholders in YAML content
func resolveEnv(content []byte) []byte {
	regex := regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

	return regex.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := regex.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
