// Package config defines the YAML configuration shared by the kektorgraph
// commands. A single file describes the local shard engine, the collection
// catalog, the engines of the cluster and the traversal defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sanonone/kektorgraph/pkg/catalog"
	"github.com/sanonone/kektorgraph/pkg/shard"
)

// Config is the top-level structure of the configuration file.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Traversal TraversalConfig `yaml:"traversal"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the shard engine served by this process.
type ServerConfig struct {
	HTTPAddr  string `yaml:"http_addr"`
	AuthToken string `yaml:"auth_token"`
	// DataDir holds the edge log. Empty means memory only.
	DataDir  string `yaml:"data_dir"`
	Database string `yaml:"database"`
	EngineID string `yaml:"engine_id"`
}

type CatalogConfig struct {
	Collections []catalog.Collection `yaml:"collections"`
}

// EngineConfig points at one shard engine of the cluster.
type EngineConfig struct {
	ID    string `yaml:"id"`
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type ClusterConfig struct {
	Engines []EngineConfig `yaml:"engines"`
	Timeout string         `yaml:"timeout"` // e.g. "10s"
}

// TraversalConfig holds the defaults applied to every traversal step.
type TraversalConfig struct {
	ArenaChunkSize int             `yaml:"arena_chunk_size"`
	Relations      []string        `yaml:"relations"`
	Direction      shard.Direction `yaml:"direction"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr: ":9191",
			Database: "_system",
			EngineID: "local",
		},
		Cluster: ClusterConfig{Timeout: "10s"},
		Traversal: TraversalConfig{
			Direction: shard.Outbound,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the YAML file at path on top of Default. Environment variables
// referenced as $VAR or ${VAR} are expanded before parsing, and unknown
// fields are rejected. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read configuration file '%s': %w", path, err)
	}

	expandedData := os.ExpandEnv(string(data))

	decoder := yaml.NewDecoder(strings.NewReader(expandedData))
	decoder.KnownFields(true)

	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("YAML syntax error in '%s': %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration '%s': %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values that cannot be caught by the YAML decoder.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Database == "" {
		errs = append(errs, errors.New("server.database is required"))
	}
	if c.Server.EngineID == "" {
		errs = append(errs, errors.New("server.engine_id is required"))
	}

	if _, err := catalog.New(c.Catalog.Collections...); err != nil {
		errs = append(errs, fmt.Errorf("catalog: %w", err))
	}

	seen := make(map[string]bool, len(c.Cluster.Engines))
	for i, e := range c.Cluster.Engines {
		switch {
		case e.ID == "":
			errs = append(errs, fmt.Errorf("cluster.engines[%d]: id is required", i))
		case seen[e.ID]:
			errs = append(errs, fmt.Errorf("cluster.engines[%d]: duplicate id %q", i, e.ID))
		}
		seen[e.ID] = true
		if e.URL == "" {
			errs = append(errs, fmt.Errorf("cluster.engines[%d]: url is required", i))
		}
	}
	if _, err := c.Cluster.TimeoutDuration(); err != nil {
		errs = append(errs, err)
	}

	if c.Traversal.ArenaChunkSize < 0 {
		errs = append(errs, errors.New("traversal.arena_chunk_size must not be negative"))
	}
	if !c.Traversal.Direction.Valid() {
		errs = append(errs, fmt.Errorf("traversal.direction: unknown direction %q", c.Traversal.Direction))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// TimeoutDuration parses Timeout. Empty means no per-request timeout.
func (c ClusterConfig) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("cluster.timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("cluster.timeout must not be negative")
	}
	return d, nil
}

// SlogLevel maps Level to a slog.Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// NewCatalog builds the identity resolver described by the catalog section.
func (c *Config) NewCatalog() (*catalog.Catalog, error) {
	return catalog.New(c.Catalog.Collections...)
}
