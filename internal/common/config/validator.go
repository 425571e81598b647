package config

import (
	"fmt"
	"strings"

	"github.com/amoylab/siogate/internal/common/cnst"
)

// Location represents a configuration location
type Location struct {
	File string
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Message   string
	Locations []Location
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	sb.WriteString("\n\n")
	for _, loc := range e.Locations {
		sb.WriteString("--> ")
		sb.WriteString(loc.File)
		sb.WriteString("\n")
	}
	return sb.String()
}

// ValidateGatewayConfig checks a loaded gateway configuration. All problems are
// reported together in a single *ValidationError.
func ValidateGatewayConfig(cfg *GatewayConfig, file string) error {
	problems := validateGatewayConfig(cfg)
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{
		Message:   strings.Join(problems, "\n"),
		Locations: []Location{{File: file}},
	}
}

func validateGatewayConfig(cfg *GatewayConfig) []string {
	var problems []string

	if cfg.Port <= 0 || cfg.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d is out of range", cfg.Port))
	}

	hs := cfg.Handshake
	if !strings.HasPrefix(hs.Path, "/") {
		problems = append(problems, fmt.Sprintf("handshake path %q must start with '/'", hs.Path))
	}
	if hs.HeartbeatTimeout < 0 {
		problems = append(problems, "handshake heartbeat_timeout must not be negative")
	}
	if hs.CloseTimeout < 0 {
		problems = append(problems, "handshake close_timeout must not be negative")
	}
	if len(hs.Transports) == 0 {
		problems = append(problems, "handshake transports must not be empty")
	}
	seen := make(map[string]bool, len(hs.Transports))
	for _, t := range hs.Transports {
		if !cnst.IsKnownTransport(t) {
			problems = append(problems, fmt.Sprintf("unknown transport %q", t))
		}
		if seen[t] {
			problems = append(problems, fmt.Sprintf("duplicate transport %q", t))
		}
		seen[t] = true
	}

	switch cfg.Session.Type {
	case cnst.SessionStoreMemory:
	case cnst.SessionStoreRedis:
		if cfg.Session.Redis.Addr == "" {
			problems = append(problems, "session redis addr is required")
		}
		switch cfg.Session.Redis.ClusterType {
		case cnst.RedisClusterTypeSingle, cnst.RedisClusterTypeCluster:
		case cnst.RedisClusterTypeSentinel:
			if cfg.Session.Redis.MasterName == "" {
				problems = append(problems, "session redis master_name is required for sentinel")
			}
		default:
			problems = append(problems, fmt.Sprintf("unknown redis cluster_type %q", cfg.Session.Redis.ClusterType))
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported session store type %q", cfg.Session.Type))
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		problems = append(problems, fmt.Sprintf("metrics path %q must start with '/'", cfg.Metrics.Path))
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Path == hs.Path {
		problems = append(problems, "metrics path must differ from handshake path")
	}

	return problems
}
