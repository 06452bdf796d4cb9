// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"
  shutdown_timeout: "30s"

database:
  path: "./test.db"

keys:
  read: "read-key-for-tests"
  admin: "admin-key-for-tests"

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
  path: "/metrics"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("expected http_addr 0.0.0.0:8080, got %s", cfg.Server.HTTPAddr)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("expected shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("expected database path ./test.db, got %s", cfg.Database.Path)
	}
	if cfg.Keys.Admin != "admin-key-for-tests" {
		t.Errorf("unexpected admin key %q", cfg.Keys.Admin)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected logging level debug, got %s", cfg.Logging.Level)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("unexpected metrics config: %+v", cfg.Metrics)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_ADMIN_KEY", "expanded-admin-key")

	configPath := writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
keys:
  admin: "${TEST_ADMIN_KEY}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Keys.Admin != "expanded-admin-key" {
		t.Errorf("expected expanded admin key, got %q", cfg.Keys.Admin)
	}
}

func TestLoad_DefaultShutdownTimeout(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
keys:
  admin: "admin-key-for-tests"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected default shutdown timeout 10s, got %v", cfg.Server.ShutdownTimeout)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing http addr",
			content: `
database:
  path: "./test.db"
keys:
  admin: "admin-key-for-tests"
`,
			wantErr: "server.http_addr",
		},
		{
			name: "missing database path",
			content: `
server:
  http_addr: ":8080"
keys:
  admin: "admin-key-for-tests"
`,
			wantErr: "database.path",
		},
		{
			name: "missing admin key",
			content: `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
`,
			wantErr: "keys.admin",
		},
		{
			name: "short admin key",
			content: `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
keys:
  admin: "short"
`,
			wantErr: "at least 16 characters",
		},
		{
			name: "read key equals admin key",
			content: `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
keys:
  read: "same-key-for-both-roles"
  admin: "same-key-for-both-roles"
`,
			wantErr: "must differ",
		},
		{
			name: "bad shutdown timeout",
			content: `
server:
  http_addr: ":8080"
  shutdown_timeout: "not-a-duration"
database:
  path: "./test.db"
keys:
  admin: "admin-key-for-tests"
`,
			wantErr: "shutdown_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, tt.content)
			_, err := Load(configPath)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
