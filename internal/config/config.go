package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/eleven-am/goclip/internal/domain"
	"github.com/eleven-am/goclip/internal/engine"
	"github.com/eleven-am/goclip/internal/export"
	"github.com/eleven-am/goclip/internal/ffmpeg"
	"github.com/eleven-am/goclip/internal/session"
)

const envPrefix = "GOCLIP_"

// Config is the runtime configuration for the goclip binary.
type Config struct {
	Log           LogConfig             `yaml:"log"`
	Engine        EngineConfig          `yaml:"engine"`
	Output        OutputConfig          `yaml:"output"`
	Export        domain.ExportSettings `yaml:"export"`
	Server        ServerConfig          `yaml:"server"`
	MergeTimeline bool                  `yaml:"merge_timeline"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// EngineConfig points at the ffmpeg binary and bounds each invocation.
type EngineConfig struct {
	Binary        string        `yaml:"binary"`
	Timeout       time.Duration `yaml:"timeout"`
	ExportTimeout time.Duration `yaml:"export_timeout"`
}

// OutputConfig decides where derived clips and exports are written.
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Engine: EngineConfig{
			Binary:        engine.DefaultBinary,
			Timeout:       session.DefaultTimeout,
			ExportTimeout: export.DefaultTimeout,
		},
		Output: OutputConfig{
			Dir:    filepath.Join(os.TempDir(), "goclip"),
			Prefix: ffmpeg.DefaultPrefix,
		},
		Export: domain.DefaultExportSettings(),
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// LoadEnv reads .env files into the process environment. Missing files are
// not an error.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the YAML configuration from path when it exists, applies
// GOCLIP_* environment overrides and validates the result. An empty path
// or a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		contents, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(contents, &cfg); err != nil {
				return Config{}, fmt.Errorf("unmarshal config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills fields the YAML left empty.
func (c *Config) ApplyDefaults() {
	d := Default()

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Engine.Binary == "" {
		c.Engine.Binary = d.Engine.Binary
	}
	if c.Engine.Timeout == 0 {
		c.Engine.Timeout = d.Engine.Timeout
	}
	if c.Engine.ExportTimeout == 0 {
		c.Engine.ExportTimeout = d.Engine.ExportTimeout
	}
	if c.Output.Dir == "" {
		c.Output.Dir = d.Output.Dir
	}
	if c.Output.Prefix == "" {
		c.Output.Prefix = d.Output.Prefix
	}
	if c.Export.Resolution == "" {
		c.Export.Resolution = d.Export.Resolution
	}
	if c.Export.AspectRatio == "" {
		c.Export.AspectRatio = d.Export.AspectRatio
	}
	if c.Export.Format == "" {
		c.Export.Format = d.Export.Format
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
}

func (c Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}
	if c.Engine.Timeout < 0 || c.Engine.ExportTimeout < 0 {
		return errors.New("engine timeouts must not be negative")
	}
	if strings.ContainsAny(c.Output.Prefix, `/\`) {
		return fmt.Errorf("output.prefix %q must not contain path separators", c.Output.Prefix)
	}
	if err := export.ValidateSettings(c.Export); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Log.Level = GetEnv(envPrefix+"LOG_LEVEL", c.Log.Level)
	c.Log.Format = GetEnv(envPrefix+"LOG_FORMAT", c.Log.Format)
	c.Engine.Binary = GetEnv(envPrefix+"FFMPEG", c.Engine.Binary)
	c.Output.Dir = GetEnv(envPrefix+"OUTPUT_DIR", c.Output.Dir)
	c.Output.Prefix = GetEnv(envPrefix+"PREFIX", c.Output.Prefix)
	c.Server.Addr = GetEnv(envPrefix+"ADDR", c.Server.Addr)
	c.Export.Resolution = domain.Resolution(GetEnv(envPrefix+"EXPORT_RESOLUTION", string(c.Export.Resolution)))
	c.Export.AspectRatio = domain.AspectRatio(GetEnv(envPrefix+"EXPORT_ASPECT_RATIO", string(c.Export.AspectRatio)))
	c.Export.Format = GetEnv(envPrefix+"EXPORT_FORMAT", c.Export.Format)
	c.Export.Quality = GetEnvInt(envPrefix+"EXPORT_QUALITY", c.Export.Quality)
	c.MergeTimeline = GetEnvBool(envPrefix+"MERGE_TIMELINE", c.MergeTimeline)

	var err error
	if c.Engine.Timeout, err = GetEnvDuration(envPrefix+"ENGINE_TIMEOUT", c.Engine.Timeout); err != nil {
		return err
	}
	if c.Engine.ExportTimeout, err = GetEnvDuration(envPrefix+"EXPORT_TIMEOUT", c.Engine.ExportTimeout); err != nil {
		return err
	}
	return nil
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

func GetEnvBool(key string, fallback bool) bool {
	if s := os.Getenv(key); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return fallback
}

// GetEnvDuration parses a Go duration ("90s", "10m"). Unlike the other
// helpers a malformed value is an error.
func GetEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
