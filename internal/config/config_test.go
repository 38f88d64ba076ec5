package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sanonone/kektorgraph/pkg/catalog"
	"github.com/sanonone/kektorgraph/pkg/shard"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kektorgraph.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("KG_TOKEN", "s3cret")

	path := writeConfig(t, `
server:
  http_addr: ":8529"
  database: social
  engine_id: dbs1
  auth_token: ${KG_TOKEN}
catalog:
  collections:
    - {id: 10, name: knows}
    - {id: 11, name: likes}
cluster:
  timeout: 2s
  engines:
    - {id: dbs1, url: "http://localhost:8529", token: $KG_TOKEN}
traversal:
  direction: inbound
  relations: [knows]
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.AuthToken != "s3cret" || cfg.Cluster.Engines[0].Token != "s3cret" {
		t.Errorf("tokens not expanded: %q, %q", cfg.Server.AuthToken, cfg.Cluster.Engines[0].Token)
	}
	if cfg.Traversal.Direction != shard.Inbound {
		t.Errorf("direction = %q", cfg.Traversal.Direction)
	}
	if d, _ := cfg.Cluster.TimeoutDuration(); d != 2*time.Second {
		t.Errorf("timeout = %v", d)
	}

	cat, err := cfg.NewCatalog()
	if err != nil {
		t.Fatal(err)
	}
	if name, ok := cat.Name(11); !ok || name != "likes" {
		t.Errorf("catalog name(11) = %q, %v", name, ok)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  database: social\n"))
	if err != nil {
		t.Fatal(err)
	}
	def := Default()
	if cfg.Server.HTTPAddr != def.Server.HTTPAddr || cfg.Server.EngineID != def.Server.EngineID {
		t.Errorf("defaults lost: %+v", cfg.Server)
	}
	if cfg.Server.Database != "social" {
		t.Errorf("database = %q", cfg.Server.Database)
	}

	if _, err := Load(""); err != nil {
		t.Errorf("Load(\"\") = %v", err)
	}
	if _, err := Load(writeConfig(t, "")); err != nil {
		t.Errorf("empty file: %v", err)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(writeConfig(t, "server:\n  databse: typo\n"))
	if err == nil || !strings.Contains(err.Error(), "databse") {
		t.Errorf("expected unknown field error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"no database":      func(c *Config) { c.Server.Database = "" },
		"no engine id":     func(c *Config) { c.Server.EngineID = "" },
		"duplicate engine": func(c *Config) { c.Cluster.Engines = []EngineConfig{{ID: "a", URL: "u"}, {ID: "a", URL: "u"}} },
		"engine url":       func(c *Config) { c.Cluster.Engines = []EngineConfig{{ID: "a"}} },
		"bad timeout":      func(c *Config) { c.Cluster.Timeout = "soon" },
		"negative chunk":   func(c *Config) { c.Traversal.ArenaChunkSize = -1 },
		"bad direction":    func(c *Config) { c.Traversal.Direction = "up" },
		"bad level":        func(c *Config) { c.Log.Level = "loud" },
		"bad format":       func(c *Config) { c.Log.Format = "xml" },
		"duplicate collection": func(c *Config) {
			c.Catalog.Collections = []catalog.Collection{{ID: 1, Name: "a"}, {ID: 1, Name: "b"}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	cfg := Default()
	cfg.Catalog.Collections = []catalog.Collection{{ID: 1, Name: "a"}, {ID: 1, Name: "b"}}
	if err := cfg.Validate(); !errors.Is(err, catalog.ErrDuplicateID) {
		t.Errorf("error = %v, want ErrDuplicateID", err)
	}
}
