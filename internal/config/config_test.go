package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "longrun.toml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadFullConfig(t *testing.T) {
	p := writeConfig(t, `
[server]
listen = ":9090"
base_path = "/ops"

[store]
type = "sqlite"
path = "/tmp/longrun.db"

[[history]]
dsn = "sqlite:///tmp/history.db"

[[history]]
dsn = "clickhouse://localhost:9000"
table = "op_events"

[metrics]
enabled = true

[log]
level = "debug"
dir = "/var/log/longrun"

[supervisor]
step_interval = "250ms"
poll_interval = "100ms"
stale_after = "5s"
reconcile_interval = "2s"
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Listen != ":9090" || cfg.Server.BasePath != "/ops" {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Store.Type != "sqlite" || cfg.Store.Path != "/tmp/longrun.db" {
		t.Fatalf("store = %+v", cfg.Store)
	}
	if len(cfg.History) != 2 {
		t.Fatalf("history = %+v", cfg.History)
	}
	if cfg.History[1].Table != "op_events" {
		t.Fatalf("history[1] = %+v", cfg.History[1])
	}
	if !cfg.Metrics.Enabled {
		t.Fatal("metrics should be enabled")
	}
	if cfg.Log.Level != "debug" || cfg.Log.Dir != "/var/log/longrun" {
		t.Fatalf("log = %+v", cfg.Log)
	}
	if cfg.Supervisor.StepInterval != 250*time.Millisecond {
		t.Fatalf("step_interval = %v", cfg.Supervisor.StepInterval)
	}
	if cfg.Supervisor.StaleAfter != 5*time.Second {
		t.Fatalf("stale_after = %v", cfg.Supervisor.StaleAfter)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	p := writeConfig(t, `
[store]
type = "memory"
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Listen != ":8080" || cfg.Server.BasePath != "/api" {
		t.Fatalf("server defaults = %+v", cfg.Server)
	}
	if cfg.Supervisor.StepInterval != time.Second {
		t.Fatalf("step_interval default = %v", cfg.Supervisor.StepInterval)
	}
	if cfg.Supervisor.PollInterval != 500*time.Millisecond {
		t.Fatalf("poll_interval default = %v", cfg.Supervisor.PollInterval)
	}
	if cfg.Supervisor.ReconcileInterval != 10*time.Second {
		t.Fatalf("reconcile_interval default = %v", cfg.Supervisor.ReconcileInterval)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/no/such/longrun.toml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
