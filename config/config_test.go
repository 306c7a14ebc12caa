package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
api:
  port: 9000
  host: "127.0.0.1"
database:
  url: "postgres://localhost:5432/galleryflow"
custody:
  base_url: "https://custody.example.com"
  api_key: "secret"
  timeout: 5s
chain:
  base_url: "https://indexer.example.com"
gallery:
  handle: "gallery"
  contract_ref: "0xabc"
log:
  level: "debug"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Addr() != "127.0.0.1:9000" {
		t.Errorf("API.Addr: got %q", cfg.API.Addr())
	}
	if cfg.Custody.Timeout != 5*time.Second {
		t.Errorf("Custody.Timeout: got %v", cfg.Custody.Timeout)
	}
	if cfg.Chain.Timeout != 10*time.Second {
		t.Errorf("Chain.Timeout default: got %v", cfg.Chain.Timeout)
	}
	if cfg.Gallery.Method != "transfer" {
		t.Errorf("Gallery.Method default: got %q", cfg.Gallery.Method)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level: got %q", cfg.Log.Level)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	path := writeConfig(t, `
api:
  port: 9000
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for missing database.url")
	}
}
