// Package config builds the process configuration once at start-up. The
// resulting Config is passed explicitly to the adapters; nothing else reads
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// FileName is the optional per-project configuration file.
	FileName = ".devflow.yaml"

	DefaultPort = 3000
	DefaultHost = "0.0.0.0"
)

// Config holds the adapter-level settings.
type Config struct {
	// WorkDir is the directory holding .tasks.json.
	WorkDir string `mapstructure:"dir"`
	Port    int    `mapstructure:"port"`
	Host    string `mapstructure:"host"`
}

// DefaultConfig returns the default configuration rooted at the current
// directory.
func DefaultConfig() *Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return &Config{
		WorkDir: cwd,
		Port:    DefaultPort,
		Host:    DefaultHost,
	}
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load resolves configuration from, in increasing precedence: defaults, the
// working directory's .devflow.yaml, the WORK_DIR/PORT/HOST environment
// variables and the "dir"/"port"/"host" flags when present in flags.
func Load(flags *pflag.FlagSet) (*Config, error) {
	def := DefaultConfig()

	v := viper.New()
	v.SetDefault("dir", def.WorkDir)
	v.SetDefault("port", def.Port)
	v.SetDefault("host", def.Host)

	for key, env := range map[string]string{"dir": "WORK_DIR", "port": "PORT", "host": "HOST"} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
		if flags == nil {
			continue
		}
		if f := flags.Lookup(key); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind --%s: %w", key, err)
			}
		}
	}

	path := filepath.Join(v.GetString("dir"), FileName)
	if err := loadFile(v, path); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	return cfg, nil
}

func loadFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

// ResolveWorkDir makes WorkDir absolute. With create set, a missing
// directory is created; otherwise it must already exist and be a directory.
func (c *Config) ResolveWorkDir(create bool) error {
	abs, err := filepath.Abs(c.WorkDir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", c.WorkDir, err)
	}
	c.WorkDir = abs

	if create {
		if err := os.MkdirAll(abs, 0755); err != nil {
			return fmt.Errorf("failed to create working directory: %w", err)
		}
		return nil
	}

	info, err := os.Stat(abs)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("directory does not exist: %s", abs)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", abs)
	}
	return nil
}
