package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validPostgres = `
server:
  host: 0.0.0.0
  port: 8080
database:
  driver: postgres
  host: localhost
  port: 5432
  name: repflow
  user: repflow
  password: secret
auth:
  api_key: test-key
`

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validPostgres))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Engine.DefaultRestSeconds != 90 {
		t.Errorf("default rest = %d, want 90", cfg.Engine.DefaultRestSeconds)
	}
}

func TestLoadSQLite(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  port: 8080
database:
  driver: sqlite
  path: /var/lib/repflow/repflow.db
auth:
  api_key: test-key
engine:
  default_rest_seconds: 120
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/var/lib/repflow/repflow.db" {
		t.Errorf("path = %q", cfg.Database.Path)
	}
	if cfg.Engine.DefaultRestSeconds != 120 {
		t.Errorf("default rest = %d, want 120", cfg.Engine.DefaultRestSeconds)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("REPFLOW_DB_PASSWORD", "env-secret")
	t.Setenv("REPFLOW_SERVER_PORT", "9090")
	t.Setenv("REPFLOW_ENGINE_DEFAULT_REST_SECONDS", "60")

	cfg, err := Load(writeConfig(t, validPostgres))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Password != "env-secret" {
		t.Errorf("password = %q, want env-secret", cfg.Database.Password)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Engine.DefaultRestSeconds != 60 {
		t.Errorf("default rest = %d, want 60", cfg.Engine.DefaultRestSeconds)
	}
}

func TestValidationMissingPort(t *testing.T) {
	_, err := Load(writeConfig(t, `
database:
  driver: sqlite
  path: /tmp/repflow.db
auth:
  api_key: k
`))
	if err == nil || !strings.Contains(err.Error(), "server.port") {
		t.Errorf("err = %v, want server.port error", err)
	}
}

func TestValidationMissingAPIKey(t *testing.T) {
	_, err := Load(writeConfig(t, `
server:
  port: 8080
database:
  driver: sqlite
  path: /tmp/repflow.db
`))
	if err == nil || !strings.Contains(err.Error(), "api_key") {
		t.Errorf("err = %v, want api_key error", err)
	}
}

func TestValidationBadDriver(t *testing.T) {
	_, err := Load(writeConfig(t, `
server:
  port: 8080
database:
  driver: mysql
auth:
  api_key: k
`))
	if err == nil || !strings.Contains(err.Error(), "driver") {
		t.Errorf("err = %v, want driver error", err)
	}
}

func TestValidationSQLiteNeedsPath(t *testing.T) {
	_, err := Load(writeConfig(t, `
server:
  port: 8080
database:
  driver: sqlite
auth:
  api_key: k
`))
	if err == nil || !strings.Contains(err.Error(), "database.path") {
		t.Errorf("err = %v, want database.path error", err)
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db.example.com", Port: 5432, Name: "repflow",
		User: "app", Password: "pw", SSLMode: "require",
	}
	want := "postgres://app:pw@db.example.com:5432/repflow?sslmode=require"
	if got := d.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}

func TestDSNDefaultSSLMode(t *testing.T) {
	d := DatabaseConfig{Host: "localhost", Port: 5432, Name: "repflow", User: "u", Password: "p"}
	if got := d.DSN(); !strings.HasSuffix(got, "sslmode=disable") {
		t.Errorf("DSN = %q, want sslmode=disable suffix", got)
	}
}
