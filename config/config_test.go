package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "CLIPHIVE_STORE", "CLIPHIVE_LOG_LEVEL", "SUPABASE_URL", "SUPABASE_SERVICE_KEY", "REDIS_ADDR", "CLIPHIVE_WORKERS"} {
		t.Setenv(key, "")
	}
}

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.MaxUploadBytes() != 200<<20 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes())
	}
	if cfg.SessionIdle() != 30*time.Minute {
		t.Errorf("SessionIdle = %v", cfg.SessionIdle())
	}
}

func TestLoadTOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "cliphive.toml")
	content := `
[server]
port = "8080"

[logging]
level = "debug"

[redis]
addr = "localhost:6379"
ttl_hours = 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Logging.Level != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.CacheTTL() != 2*time.Hour {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL())
	}
	if cfg.Server.UploadDir != "uploads" {
		t.Errorf("UploadDir default lost: %q", cfg.Server.UploadDir)
	}
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("CLIPHIVE_WORKERS", "8")

	path := filepath.Join(t.TempDir(), "cliphive.yaml")
	content := "server:\n  port: \"8080\"\nworkers:\n  count: 2\n  queue: 10\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Port = %q, want env override", cfg.Server.Port)
	}
	if cfg.Workers.Count != 8 || cfg.Workers.Queue != 10 {
		t.Errorf("Workers = %+v", cfg.Workers)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		env     map[string]string
		want    string
	}{
		{name: "unknown extension", file: "c.ini", content: "x", want: "unsupported config format"},
		{name: "bad level", file: "c.toml", content: "[logging]\nlevel = \"loud\"\n", want: "invalid config"},
		{name: "postgrest without credentials", file: "c.toml", content: "[store]\nbackend = \"postgrest\"\n", want: "supabase url and service key"},
		{name: "bad int env", file: "c.toml", content: "", env: map[string]string{"CLIPHIVE_WORKERS": "many"}, want: "CLIPHIVE_WORKERS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestApplyEnvIgnoresBlank(t *testing.T) {
	cfg := Default()
	env := map[string]string{"PORT": "  ", "REDIS_ADDR": "cache:6379"}
	err := cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.Server.Port != "3000" || cfg.Redis.Addr != "cache:6379" {
		t.Errorf("cfg = %+v %+v", cfg.Server, cfg.Redis)
	}
}

func TestSupabaseFlags(t *testing.T) {
	s := Supabase{URL: "https://x.supabase.co", ServiceKey: "k", Bucket: "videos"}
	if !s.Enabled() || !s.MirrorUploads() {
		t.Errorf("expected enabled: %+v", s)
	}
	s.Bucket = ""
	if s.MirrorUploads() {
		t.Error("mirror without bucket")
	}
	if (Supabase{URL: "https://x.supabase.co"}).Enabled() {
		t.Error("enabled without key")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(Logging{Level: "warn", Format: "auto"}, &buf)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if _, ok := log.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("formatter = %T, want JSON for a non-terminal", log.Formatter)
	}
	log.Info("hidden")
	log.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("output = %q", buf.String())
	}

	if _, err := NewLogger(Logging{Level: "nope"}, &buf); err == nil {
		t.Error("expected level error")
	}
}
