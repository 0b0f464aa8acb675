package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_WritesAndUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vcadmin.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config file not written: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.LogLevel != "info" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vcadmin.yaml")
	body := `
log_level: debug
queue_path: /var/lib/vcadmin/premod.json
http:
  addr: ":9090"
  shutdown_timeout: 10s
servers:
  main:
    host: voice.example.net
    port: 8767
    username: sysop
    password: hunter22
    nickname: Registrar
    premoderated: true
    read_timeout: 15s
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.HTTP.Addr != ":9090" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.HTTP.ShutdownTimeout != 10*time.Second {
		t.Fatalf("duration parse failed: %v", cfg.HTTP.ShutdownTimeout)
	}

	sc, err := cfg.Server("main")
	if err != nil {
		t.Fatalf("server lookup: %v", err)
	}
	if sc.Host != "voice.example.net" || sc.Port != 8767 || !sc.Premoderated {
		t.Fatalf("server block mismatch: %+v", sc)
	}
	if sc.ReadTimeout != 15*time.Second {
		t.Fatalf("server read_timeout = %v", sc.ReadTimeout)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vcadmin.yaml")
	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("VCADMIN_LOG_LEVEL", "warn")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("env override lost, log_level = %q", cfg.LogLevel)
	}
}

func TestServer_Unknown(t *testing.T) {
	cfg := Default()
	if _, err := cfg.Server("nope"); err == nil {
		t.Fatal("expected error for unknown server")
	}
}
