package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	tests := []struct {
		name string
		get  func(Config) any
		want any
	}{
		{
			name: "ServerName",
			get:  func(c Config) any { return c.ServerName },
			want: "ltsignal",
		},
		{
			name: "ListenAddr",
			get:  func(c Config) any { return c.ListenAddr },
			want: ":8080",
		},
		{
			name: "DatabasePath",
			get:  func(c Config) any { return c.DatabasePath },
			want: "ltsignal.db",
		},
		{
			name: "MaxMessageSize",
			get:  func(c Config) any { return c.MaxMessageSize },
			want: 65536,
		},
		{
			name: "SendBufferSize",
			get:  func(c Config) any { return c.SendBufferSize },
			want: 256,
		},
		{
			name: "UnknownPolicy",
			get:  func(c Config) any { return c.UnknownPolicy },
			want: UnknownDrop,
		},
		{
			name: "Log.Level",
			get:  func(c Config) any { return c.Log.Level },
			want: "info",
		},
	}

	cfg := DefaultConfig()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.get(cfg); got != tt.want {
				t.Errorf("DefaultConfig().%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ltsignal.yaml")
	data := []byte(`
listen_addr: ":9443"
unknown_policy: CLOSE
log:
  level: debug
  format: json
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":9443" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":9443")
	}
	if cfg.UnknownPolicy != UnknownClose {
		t.Errorf("UnknownPolicy = %q, want %q", cfg.UnknownPolicy, UnknownClose)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	// untouched keys keep their defaults
	if cfg.DatabasePath != "ltsignal.db" {
		t.Errorf("DatabasePath = %q, want default", cfg.DatabasePath)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LTSIGNAL_DATABASE_PATH", "/var/lib/ltsignal/ledger.db")
	t.Setenv("LTSIGNAL_MAX_MESSAGE_SIZE", "1024")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabasePath != "/var/lib/ltsignal/ledger.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.MaxMessageSize != 1024 {
		t.Errorf("MaxMessageSize = %d, want 1024", cfg.MaxMessageSize)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		path string
	}{
		{
			name: "invalid unknown policy",
			env:  map[string]string{"LTSIGNAL_UNKNOWN_POLICY": "ignore"},
		},
		{
			name: "invalid log level",
			env:  map[string]string{"LTSIGNAL_LOG_LEVEL": "loud"},
		},
		{
			name: "missing explicit file",
			path: "/nonexistent/ltsignal.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(tt.path); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}
