package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("http addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Planner.CandidateLimit != 6 || cfg.Planner.ColorBands != "10,25" {
		t.Fatalf("planner defaults: %+v", cfg.Planner)
	}
	if cfg.Geo.HighwayKMPH != 50 || cfg.Geo.UrbanKMPH != 25 {
		t.Fatalf("geo defaults: %+v", cfg.Geo)
	}
	if cfg.Store.Path == "" {
		t.Fatal("store path default missing")
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
http:
  addr: ":9999"
planner:
  candidateLimit: 3
  colorBands: "5,20"
store:
  path: "/tmp/test.sqlite3"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":9999" {
		t.Fatalf("http addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Planner.CandidateLimit != 3 || cfg.Planner.ColorBands != "5,20" {
		t.Fatalf("planner: %+v", cfg.Planner)
	}
	if cfg.Store.Path != "/tmp/test.sqlite3" {
		t.Fatalf("store path = %q", cfg.Store.Path)
	}
	// Untouched sections still get their defaults.
	if cfg.Geo.CorridorKM != 5 {
		t.Fatalf("geo corridor default missing: %+v", cfg.Geo)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{"http":{"addr":":7777"}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":7777" {
		t.Fatalf("http addr = %q", cfg.HTTP.Addr)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
http:
  addr: ":9999"
`)
	t.Setenv("K_HTTP__ADDR", ":6666")
	t.Setenv("K_PLANNER__COLORBANDS", "5,20")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":6666" {
		t.Fatalf("env override lost: %q", cfg.HTTP.Addr)
	}
	if cfg.Planner.ColorBands != "5,20" {
		t.Fatalf("env override on unset section lost: %q", cfg.Planner.ColorBands)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := writeConfig(t, "config.toml", `addr = ":1"`)
	if _, err := Load(path); err == nil {
		t.Fatal("toml should be rejected")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file should fail")
	}
}
