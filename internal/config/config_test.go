package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eleven-am/goclip/internal/domain"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	d := Default()
	if cfg.Engine != d.Engine || cfg.Export != d.Export || cfg.Output != d.Output {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadYAMLKeepsUnsetDefaults(t *testing.T) {
	path := writeFile(t, "goclip.yaml", `
log:
  level: debug
engine:
  timeout: 90s
output:
  dir: /srv/clips
export:
  resolution: 4k
  aspect_ratio: "9:16"
merge_timeline: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Fatalf("unexpected log config %+v", cfg.Log)
	}
	if cfg.Engine.Timeout != 90*time.Second || cfg.Engine.Binary != "ffmpeg" {
		t.Fatalf("unexpected engine config %+v", cfg.Engine)
	}
	if cfg.Output.Dir != "/srv/clips" || cfg.Output.Prefix != "goclip" {
		t.Fatalf("unexpected output config %+v", cfg.Output)
	}
	if cfg.Export.Resolution != domain.Res4K || cfg.Export.AspectRatio != domain.Aspect9x16 || cfg.Export.Quality != 80 {
		t.Fatalf("unexpected export config %+v", cfg.Export)
	}
	if !cfg.MergeTimeline {
		t.Fatalf("merge_timeline should be set")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "goclip.yaml", "engine:\n  binary: /usr/bin/ffmpeg\n")
	t.Setenv("GOCLIP_FFMPEG", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("GOCLIP_EXPORT_QUALITY", "55")
	t.Setenv("GOCLIP_ENGINE_TIMEOUT", "2m")
	t.Setenv("GOCLIP_MERGE_TIMELINE", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.Binary != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("env should win over file, got %s", cfg.Engine.Binary)
	}
	if cfg.Export.Quality != 55 || cfg.Engine.Timeout != 2*time.Minute || !cfg.MergeTimeline {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestMalformedDurationFails(t *testing.T) {
	t.Setenv("GOCLIP_ENGINE_TIMEOUT", "soon")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected duration error")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"format":  func(c *Config) { c.Log.Format = "xml" },
		"prefix":  func(c *Config) { c.Output.Prefix = "a/b" },
		"quality": func(c *Config) { c.Export.Quality = 150 },
		"aspect":  func(c *Config) { c.Export.AspectRatio = "4:3" },
		"timeout": func(c *Config) { c.Engine.Timeout = -time.Second },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, ".env", "GOCLIP_TEST_ONLY_PREFIX=fromenv\n")
	t.Setenv("GOCLIP_TEST_ONLY_PREFIX", "")
	os.Unsetenv("GOCLIP_TEST_ONLY_PREFIX")

	if err := LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("GOCLIP_TEST_ONLY_PREFIX"); got != "fromenv" {
		t.Fatalf("expected value from .env, got %q", got)
	}
}
