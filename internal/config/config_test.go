package config

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"github.com/vango-dev/hookstore/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Render.MaxRerenders != DefaultMaxRerenders {
		t.Errorf("Render.MaxRerenders = %d, want %d", cfg.Render.MaxRerenders, DefaultMaxRerenders)
	}
	if cfg.Snapshot.Driver != DriverNone {
		t.Errorf("Snapshot.Driver = %q, want %q", cfg.Snapshot.Driver, DriverNone)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// Test loading non-existent config
	_, err := Load(tmpDir)
	if !stderrors.Is(err, errors.New("E141")) {
		t.Errorf("expected E141 for missing config, got %v", err)
	}

	configJSON := `{
  "logLevel": "debug",
  "server": { "port": 9090, "host": "0.0.0.0" },
  "snapshot": { "driver": "dir", "dir": "/var/lib/hookstore" },
  "counters": { "hits": 3 }
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Address() != "0.0.0.0:9090" {
		t.Errorf("Address() = %q", cfg.Address())
	}
	if cfg.Snapshot.Driver != DriverDir || cfg.Snapshot.Dir != "/var/lib/hookstore" {
		t.Errorf("unexpected snapshot config %+v", cfg.Snapshot)
	}
	if cfg.Snapshot.Prefix != "counters/" {
		t.Errorf("Snapshot.Prefix should keep default, got %q", cfg.Snapshot.Prefix)
	}
	if cfg.Counters["hits"] != 3 {
		t.Errorf("Counters[hits] = %d, want 3", cfg.Counters["hits"])
	}
	if level, _ := cfg.SlogLevel(); level != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want debug", level)
	}
	if cfg.Path() != filepath.Join(tmpDir, ConfigFileName) {
		t.Errorf("Path() = %q", cfg.Path())
	}
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configYAML := `logLevel: warn
server:
  port: 7000
effect:
  comparer: shallow
metrics:
  enabled: false
snapshot:
  driver: s3
  s3:
    bucket: my-bucket
    region: eu-west-1
`
	if err := os.WriteFile(filepath.Join(tmpDir, "hookstore.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != 7000 || cfg.Server.Host != DefaultHost {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be false")
	}
	if cfg.Snapshot.S3.Bucket != "my-bucket" || cfg.Snapshot.S3.Region != "eu-west-1" {
		t.Errorf("unexpected s3 config %+v", cfg.Snapshot.S3)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestLoadFile_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte("{invalid json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(path)
	if !stderrors.Is(err, errors.New("E120")) {
		t.Errorf("expected E120, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"hookstore.json", "hookstore.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			cfg := New()
			cfg.Server.Port = 4000
			cfg.Counters = map[string]int64{"a": 1}
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo error: %v", err)
			}

			loaded, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile error: %v", err)
			}
			if loaded.Server.Port != 4000 || loaded.Counters["a"] != 1 {
				t.Errorf("round trip lost values: %+v", loaded)
			}
		})
	}
}

func TestSaveWithoutPath(t *testing.T) {
	if err := New().Save(); err == nil {
		t.Error("expected error saving config without a path")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"max rerenders", func(c *Config) { c.Render.MaxRerenders = -1 }},
		{"comparer", func(c *Config) { c.Effect.Comparer = "deep" }},
		{"shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = "soon" }},
		{"driver", func(c *Config) { c.Snapshot.Driver = "ftp" }},
		{"s3 bucket", func(c *Config) { c.Snapshot.Driver = DriverS3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !stderrors.Is(err, errors.New("E122")) {
				t.Errorf("expected E122, got %v", err)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"HOOKSTORE_PORT":            "9999",
		"HOOKSTORE_LOG_LEVEL":       "error",
		"HOOKSTORE_METRICS":         "false",
		"HOOKSTORE_SNAPSHOT_DRIVER": "s3",
		"HOOKSTORE_S3_BUCKET":       "b",
		"HOOKSTORE_S3_PATH_STYLE":   "true",
	}
	cfg := New()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatalf("ApplyEnv error: %v", err)
	}

	if cfg.Server.Port != 9999 || cfg.LogLevel != "error" || cfg.Metrics.Enabled {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.Snapshot.Driver != DriverS3 || cfg.Snapshot.S3.Bucket != "b" || !cfg.Snapshot.S3.PathStyle {
		t.Errorf("snapshot env not applied: %+v", cfg.Snapshot)
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	cfg := New()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		if k == "HOOKSTORE_PORT" {
			return "eighty", true
		}
		return "", false
	})
	if !stderrors.Is(err, errors.New("E122")) {
		t.Errorf("expected E122, got %v", err)
	}
}

func TestApplyEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content, err := godotenv.Marshal(map[string]string{
		"HOOKSTORE_HOST":     "example.internal",
		"HOOKSTORE_COMPARER": "shallow",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := New()
	if err := cfg.ApplyEnvFile(path); err != nil {
		t.Fatalf("ApplyEnvFile error: %v", err)
	}
	if cfg.Server.Host != "example.internal" || cfg.Effect.Comparer != "shallow" {
		t.Errorf("env file not applied: %+v", cfg)
	}
}

func TestComparer(t *testing.T) {
	cfg := New()
	cfg.Effect.Comparer = "shallow"
	equal, err := cfg.Comparer().Equal([]any{1}, []any{1.0})
	if err != nil || !equal {
		t.Errorf("shallow comparer should treat 1 and 1.0 as equal, got %v %v", equal, err)
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(`{"logLevel":"info"}`), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { changes <- c }, nil)
	}()

	// Rewrite until the watcher is registered and reports the change.
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case cfg := <-changes:
			if cfg.LogLevel != "debug" {
				t.Errorf("reloaded LogLevel = %q, want debug", cfg.LogLevel)
			}
			cancel()
			if err := <-done; !stderrors.Is(err, context.Canceled) {
				t.Errorf("Watch returned %v, want context.Canceled", err)
			}
			return
		case <-ticker.C:
			if err := os.WriteFile(path, []byte(`{"logLevel":"debug"}`), 0644); err != nil {
				t.Fatal(err)
			}
		case <-ctx.Done():
			t.Fatal("timed out waiting for reload")
		}
	}
}

func TestErrorFormatting(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	var e *errors.Error
	if !stderrors.As(err, &e) || !strings.Contains(e.Detail, "nope.json") {
		t.Errorf("expected detail to name the file, got %v", err)
	}
}
