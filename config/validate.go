package config

import (
	"fmt"
	"strings"
)

var knownModules = map[string]struct{}{
	"token": {}, "registry": {}, "trade": {}, "pricing": {}, "delivery": {}, "settlement": {},
}

// Validate rejects settings the daemon cannot start with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Backend) {
	case "", "leveldb", "bolt", "memory":
	default:
		return fmt.Errorf("storage: unknown backend %q", c.Storage.Backend)
	}
	if strings.TrimSpace(c.RPC.ListenAddress) == "" {
		return fmt.Errorf("rpc: ListenAddress must be set")
	}
	if c.RPC.MaxBodyBytes < 0 {
		return fmt.Errorf("rpc: MaxBodyBytes must not be negative")
	}
	if !c.Auth.AllowUnsigned && c.Auth.Secret() == "" {
		return fmt.Errorf("auth: no HMAC secret configured and AllowUnsigned is off")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit: values must not be negative")
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst == 0 {
		return fmt.Errorf("rate_limit: Burst must be positive when RequestsPerSecond is set")
	}
	if c.Engine.MaxDevicesPerUser < 0 {
		return fmt.Errorf("engine: MaxDevicesPerUser must not be negative")
	}
	if c.Engine.ScoringWorkers < 0 {
		return fmt.Errorf("engine: ScoringWorkers must not be negative")
	}
	for _, m := range c.Engine.PausedModules {
		if _, ok := knownModules[strings.ToLower(strings.TrimSpace(m))]; !ok {
			return fmt.Errorf("engine: unknown module %q in PausedModules", m)
		}
	}
	switch strings.ToLower(c.Indexer.Driver) {
	case "":
	case "sqlite", "postgres":
		if strings.TrimSpace(c.Indexer.DSN) == "" {
			return fmt.Errorf("indexer: DSN must be set for driver %q", c.Indexer.Driver)
		}
	default:
		return fmt.Errorf("indexer: unknown driver %q", c.Indexer.Driver)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: SampleRatio must be within [0,1]")
	}
	return nil
}
