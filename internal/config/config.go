// Package config loads the YAML file that describes a shell: where it is served
// from, where application modules and assets live, and which applications it declares.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aretw0/mosaic/pkg/adapters/process"
	"github.com/aretw0/mosaic/pkg/domain"
	"github.com/aretw0/mosaic/pkg/routes"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Load when a key is absent.
const (
	DefaultOrigin     = "http://localhost:8080/"
	DefaultModulesDir = "modules"
	DefaultAssetsDir  = "public"
	DefaultLogLevel   = "info"
)

// Application is one declared application.
type Application struct {
	Location   string      `yaml:"location"`
	ActiveWhen routes.Rule `yaml:"active_when"`
	// Reload is run by UpdateApplicationSourceCode between its hooks.
	Reload *process.Command `yaml:"reload,omitempty"`
}

// Redis enables the Redis snapshot store and distributed session locks.
type Redis struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// Sessions controls what reaches the snapshot store.
type Sessions struct {
	// MaskQuery lists patterns of query parameter names whose values are masked.
	MaskQuery []string `yaml:"mask_query"`
	// EncryptionKeyEnv names an environment variable holding a base64 AES-256 key.
	// Snapshots are sealed when it is set.
	EncryptionKeyEnv string `yaml:"encryption_key_env"`
}

// EncryptionKey reads and decodes the key named by EncryptionKeyEnv.
// It returns nil when no variable is configured.
func (s *Sessions) EncryptionKey() ([]byte, error) {
	if s == nil || s.EncryptionKeyEnv == "" {
		return nil, nil
	}
	raw := os.Getenv(s.EncryptionKeyEnv)
	if raw == "" {
		return nil, fmt.Errorf("environment variable %s is empty", s.EncryptionKeyEnv)
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s is not base64: %w", s.EncryptionKeyEnv, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s must decode to 32 bytes, got %d", s.EncryptionKeyEnv, len(key))
	}
	return key, nil
}

// Config is the shell configuration file.
type Config struct {
	Origin       string        `yaml:"origin"`
	ModulesDir   string        `yaml:"modules_dir"`
	AssetsDir    string        `yaml:"assets_dir"`
	LogLevel     string        `yaml:"log_level"`
	Applications []Application `yaml:"applications"`
	Redis        *Redis        `yaml:"redis,omitempty"`
	Sessions     *Sessions     `yaml:"sessions,omitempty"`
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, fills in defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Origin == "" {
		c.Origin = DefaultOrigin
	}
	if c.ModulesDir == "" {
		c.ModulesDir = DefaultModulesDir
	}
	if c.AssetsDir == "" {
		c.AssetsDir = DefaultAssetsDir
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate checks the origin, the log level and every application rule.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Origin)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("origin %q must be an absolute URL", c.Origin)
	}
	if _, err := c.Level(); err != nil {
		return err
	}

	var errs []error
	seen := make(map[string]bool)
	for i, app := range c.Applications {
		if app.Location == "" {
			errs = append(errs, fmt.Errorf("applications[%d]: %w", i, domain.ErrInvalidLocation))
			continue
		}
		if seen[app.Location] {
			errs = append(errs, fmt.Errorf("applications[%d]: %w: %s", i, domain.ErrDuplicateLocation, app.Location))
		}
		seen[app.Location] = true
		if _, err := routes.FromRule(app.ActiveWhen); err != nil {
			errs = append(errs, fmt.Errorf("applications[%d] (%s): %w", i, app.Location, err))
		}
		if app.Reload != nil && app.Reload.Command == "" {
			errs = append(errs, fmt.Errorf("applications[%d] (%s): reload needs a command", i, app.Location))
		}
	}
	return errors.Join(errs...)
}

// ReloadCommands returns the reload command of every application that has one.
func (c *Config) ReloadCommands() map[string]process.Command {
	out := make(map[string]process.Command)
	for _, app := range c.Applications {
		if app.Reload != nil {
			out[app.Location] = *app.Reload
		}
	}
	return out
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return level, nil
}
