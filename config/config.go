// Package config loads the daemon's TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	DataDir     string    `toml:"DataDir"`
	GenesisFile string    `toml:"GenesisFile"`
	Storage     Storage   `toml:"storage"`
	RPC         RPC       `toml:"rpc"`
	Auth        Auth      `toml:"auth"`
	RateLimit   RateLimit `toml:"rate_limit"`
	Engine      Engine    `toml:"engine"`
	Indexer     Indexer   `toml:"indexer"`
	Logging     Logging   `toml:"logging"`
	Telemetry   Telemetry `toml:"telemetry"`
}

// Storage selects the state backend: leveldb, bolt or memory.
type Storage struct {
	Backend string `toml:"Backend"`
}

type RPC struct {
	ListenAddress     string `toml:"ListenAddress"`
	ReadHeaderTimeout int    `toml:"ReadHeaderTimeout"` // seconds
	ReadTimeout       int    `toml:"ReadTimeout"`
	WriteTimeout      int    `toml:"WriteTimeout"`
	IdleTimeout       int    `toml:"IdleTimeout"`
	MaxBodyBytes      int64  `toml:"MaxBodyBytes"`
}

// Auth configures bearer-token verification. The token subject is the
// caller's bech32 account. The secret may be given inline or through an
// environment variable.
type Auth struct {
	Issuer     string `toml:"Issuer"`
	Audience   string `toml:"Audience"`
	HMACSecret string `toml:"HMACSecret"`
	SecretEnv  string `toml:"SecretEnv"`
	// AllowUnsigned accepts an X-Caller header instead of a token. Local
	// development only.
	AllowUnsigned bool `toml:"AllowUnsigned"`
}

type RateLimit struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst"`
}

type Engine struct {
	MaxDevicesPerUser int      `toml:"MaxDevicesPerUser"`
	ScoringWorkers    int      `toml:"ScoringWorkers"`
	PausedModules     []string `toml:"PausedModules"`
}

// Indexer mirrors committed receipts into SQL. Driver is sqlite or postgres;
// an empty driver disables the indexer.
type Indexer struct {
	Driver string `toml:"Driver"`
	DSN    string `toml:"DSN"`
}

type Logging struct {
	Level      string `toml:"Level"`
	Env        string `toml:"Env"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

type Telemetry struct {
	Endpoint    string  `toml:"Endpoint"`
	Insecure    bool    `toml:"Insecure"`
	Headers     string  `toml:"Headers"`
	Metrics     bool    `toml:"Metrics"`
	Traces      bool    `toml:"Traces"`
	SampleRatio float64 `toml:"SampleRatio"`
}

// Default returns the configuration written when no file exists.
func Default() *Config {
	return &Config{
		DataDir: "./gridledger-data",
		Storage: Storage{Backend: "leveldb"},
		RPC: RPC{
			ListenAddress:     "127.0.0.1:8080",
			ReadHeaderTimeout: 5,
			ReadTimeout:       15,
			WriteTimeout:      15,
			IdleTimeout:       60,
			MaxBodyBytes:      1 << 20,
		},
		Auth:      Auth{Issuer: "gridledger", SecretEnv: "GRIDLEDGER_JWT_SECRET"},
		RateLimit: RateLimit{RequestsPerSecond: 20, Burst: 40},
		Engine:    Engine{MaxDevicesPerUser: 10, ScoringWorkers: 4, PausedModules: []string{}},
		Indexer:   Indexer{Driver: "sqlite", DSN: "indexer.db"},
		Logging:   Logging{Level: "info", Env: "dev", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 28},
		Telemetry: Telemetry{SampleRatio: 1},
	}
}

// Load loads the configuration from the given path, writing the defaults
// there first when the file does not exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := persist(path, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	} else if err != nil {
		return nil, err
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if cfg.Engine.PausedModules == nil {
		cfg.Engine.PausedModules = []string{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Secret resolves the JWT signing secret.
func (a Auth) Secret() string {
	if strings.TrimSpace(a.HMACSecret) != "" {
		return a.HMACSecret
	}
	if a.SecretEnv != "" {
		return os.Getenv(a.SecretEnv)
	}
	return ""
}

// ResolvePath anchors a relative path under DataDir.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
