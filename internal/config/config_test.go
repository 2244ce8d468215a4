package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/layout"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[layout]
strategy = "skyline"
columns = 6
edge = "skip"
spans = [{ columns = 2, rows = 1 }, { columns = 1, rows = 1 }]

[store]
backend = "postgres"

[store.postgres]
dsn = "postgres://localhost/memorywall?sslmode=disable"
migrate = true

[cache]
backend = "none"

[notify]
backend = "nats"

[notify.nats]
url = "nats://nats:4222"
reconnect_wait = "500ms"

[server]
listen = ":9000"
shutdown_timeout = "3s"
`)
	t.Setenv("MEMORYWALL_POSTGRES_DSN", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != "postgres" || !cfg.Store.Postgres.Migrate {
		t.Errorf("store = %+v", cfg.Store)
	}
	if got := cfg.Notify.NATS.ReconnectWait.Duration(); got != 500*time.Millisecond {
		t.Errorf("reconnect_wait = %v", got)
	}
	if cfg.Notify.NATS.ConnectionName != "memorywall" {
		t.Errorf("defaults should survive partial sections, got %q", cfg.Notify.NATS.ConnectionName)
	}
	if cfg.Server.ShutdownTimeout.Duration() != 3*time.Second || cfg.Server.Listen != ":9000" {
		t.Errorf("server = %+v", cfg.Server)
	}

	opts, err := cfg.PipelineOptions()
	if err != nil {
		t.Fatal(err)
	}
	want := []layout.Span{{Columns: 2, Rows: 1}, {Columns: 1, Rows: 1}}
	if diff := cmp.Diff(want, opts.Layout.Spans); diff != "" {
		t.Errorf("spans (-want +got):\n%s", diff)
	}
	if opts.Columns != 6 || opts.Layout.Edge != layout.EdgeSkip {
		t.Errorf("options = %+v", opts)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("absent default file should yield defaults: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("config differs from defaults:\n%s", diff)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("explicit missing file error = %v", err)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "[layout]\ncolumn = 3\n"},
		{"bad toml", "[layout\n"},
		{"bad duration", "[server]\nread_timeout = \"soon\"\n"},
		{"negative columns", "[layout]\ncolumns = -2\n"},
		{"unknown strategy", "[layout]\nstrategy = \"grid\"\n"},
		{"zero span", "[layout]\nspans = [{ columns = 0, rows = 1 }]\n"},
		{"unknown store", "[store]\nbackend = \"sqlite\"\n"},
		{"postgres without dsn", "[store]\nbackend = \"postgres\"\n"},
		{"supabase without key", "[store]\nbackend = \"supabase\"\n[store.supabase]\nurl = \"https://x.supabase.co\"\n"},
		{"realtime without supabase", "[notify]\nbackend = \"realtime\"\n"},
		{"redis without addr", "[cache]\nbackend = \"redis\"\n"},
		{"s3 without bucket", "[blob]\nbackend = \"s3\"\n[blob.s3]\nbucket = \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, env := range []string{"MEMORYWALL_POSTGRES_DSN", "MEMORYWALL_SUPABASE_KEY", "MEMORYWALL_SUPABASE_URL", "MEMORYWALL_REDIS_ADDR", "MEMORYWALL_STORE"} {
				t.Setenv(env, "")
			}
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("Load() should fail")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	env := map[string]string{
		"MEMORYWALL_STORE":        "supabase",
		"MEMORYWALL_SUPABASE_URL": "https://abc.supabase.co",
		"MEMORYWALL_SUPABASE_KEY": "anon",
		"MEMORYWALL_REDIS_ADDR":   "",
	}
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if cfg.Store.Backend != "supabase" || cfg.Store.Supabase.Key != "anon" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Cache.Redis.Addr != "" {
		t.Error("empty variables must not override")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1m30s")); err != nil {
		t.Fatal(err)
	}
	text, _ := d.MarshalText()
	if string(text) != "1m30s" {
		t.Errorf("MarshalText = %q", text)
	}
}
