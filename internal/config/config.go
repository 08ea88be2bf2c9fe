package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Feed source names for IngestConfig.Source.
const (
	SourceNone = "none"
	SourceDir  = "dir"
	SourceRPC  = "rpc"
)

// Config represents the application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Pebble PebbleConfig `yaml:"pebble"`
	Ingest IngestConfig `yaml:"ingest"`
	Chain  ChainConfig  `yaml:"chain"`
	Node   NodeConfig   `yaml:"node"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig represents the HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// PebbleConfig represents the Pebble database configuration.
type PebbleConfig struct {
	Path string `yaml:"path"`
}

// IngestConfig selects and configures the block feed.
type IngestConfig struct {
	Source       string `yaml:"source"`        // "dir", "rpc", or "none"
	DataDir      string `yaml:"data_dir"`      // directory of blkNNNNN.dat files for "dir"
	StartHeight  int64  `yaml:"start_height"`  // first height to fetch for "rpc"
	PollInterval int    `yaml:"poll_interval"` // node polling interval in seconds
}

// ChainConfig configures the chain index.
type ChainConfig struct {
	// MaxReorgDepth bounds how many main-chain blocks one insert may
	// detach; 0 means unlimited.
	MaxReorgDepth int `yaml:"max_reorg_depth"`
}

// NodeConfig represents the connection to a bitcoind-compatible node.
type NodeConfig struct {
	Host       string `yaml:"host"`
	User       string `yaml:"user"`
	Pass       string `yaml:"pass"`
	Cert       string `yaml:"cert"`
	DisableTLS bool   `yaml:"disable_tls"`
}

// LogConfig represents the logging configuration.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Pebble: PebbleConfig{
			Path: "./data/pebble",
		},
		Ingest: IngestConfig{
			Source:       SourceDir,
			DataDir:      "./data/blocks",
			PollInterval: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	// Load from YAML file if it exists
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	cfg.loadEnv()

	return cfg, nil
}

func (c *Config) loadEnv() {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}

	if path := os.Getenv("PEBBLE_PATH"); path != "" {
		c.Pebble.Path = path
	}

	if source := os.Getenv("INGEST_SOURCE"); source != "" {
		c.Ingest.Source = source
	}
	if dir := os.Getenv("INGEST_DATA_DIR"); dir != "" {
		c.Ingest.DataDir = dir
	}
	if height := os.Getenv("INGEST_START_HEIGHT"); height != "" {
		if h, err := strconv.ParseInt(height, 10, 64); err == nil {
			c.Ingest.StartHeight = h
		}
	}
	if interval := os.Getenv("INGEST_POLL_INTERVAL"); interval != "" {
		if p, err := strconv.Atoi(interval); err == nil {
			c.Ingest.PollInterval = p
		}
	}

	if depth := os.Getenv("CHAIN_MAX_REORG_DEPTH"); depth != "" {
		if d, err := strconv.Atoi(depth); err == nil {
			c.Chain.MaxReorgDepth = d
		}
	}

	if host := os.Getenv("NODE_HOST"); host != "" {
		c.Node.Host = host
	}
	if user := os.Getenv("NODE_USER"); user != "" {
		c.Node.User = user
	}
	if pass := os.Getenv("NODE_PASS"); pass != "" {
		c.Node.Pass = pass
	}
	if cert := os.Getenv("NODE_CERT"); cert != "" {
		c.Node.Cert = cert
	}
	if disableTLS := os.Getenv("NODE_DISABLE_TLS"); disableTLS != "" {
		c.Node.DisableTLS = disableTLS == "true" || disableTLS == "1"
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}
