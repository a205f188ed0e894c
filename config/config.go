// Package config loads the YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	} `yaml:"http"`
	Log struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	Model struct {
		Path    string `yaml:"path"`
		Variant string `yaml:"variant"`
		// Alignment is off, warn or strict.
		Alignment string `yaml:"alignment"`
		// Labels overrides the artifact's class-code decode table.
		Labels    []string `yaml:"labels"`
		CacheSize int      `yaml:"cache_size"`
	} `yaml:"model"`
}

// Load reads path, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &config, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var config Config
	config.ApplyDefaults()
	return &config
}

func (c *Config) ApplyDefaults() {
	if c.Http.Port == 0 {
		c.Http.Port = 8080
	}
	if c.Http.Timeout == 0 {
		c.Http.Timeout = 30 * time.Second
	}
	if len(c.Http.AllowedOrigins) == 0 {
		c.Http.AllowedOrigins = []string{"*"}
	}
	if c.Http.MaxBodyBytes == 0 {
		c.Http.MaxBodyBytes = 64 << 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Model.Path == "" {
		c.Model.Path = "models/glaucoma_type.json"
	}
	if c.Model.Variant == "" {
		c.Model.Variant = "glaucoma_type"
	}
	if c.Model.Alignment == "" {
		c.Model.Alignment = "warn"
	}
}

func (c *Config) Validate() error {
	var err error
	if c.Http.Port < 1 || c.Http.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("http.port %d out of range", c.Http.Port))
	}
	if c.Http.Timeout < 0 {
		err = multierr.Append(err, errors.New("http.timeout must be positive"))
	}
	if c.Http.MaxBodyBytes < 0 {
		err = multierr.Append(err, errors.New("http.max_body_bytes must be positive"))
	}
	if _, perr := zapcore.ParseLevel(strings.TrimSpace(c.Log.Level)); perr != nil {
		err = multierr.Append(err, fmt.Errorf("log.level %q is not a zap level", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("log.format %q must be json or console", c.Log.Format))
	}
	switch c.Model.Alignment {
	case "off", "warn", "strict":
	default:
		err = multierr.Append(err, fmt.Errorf("model.alignment %q must be off, warn or strict", c.Model.Alignment))
	}
	if c.Model.CacheSize < 0 {
		err = multierr.Append(err, errors.New("model.cache_size must not be negative"))
	}
	for i, l := range c.Model.Labels {
		if strings.TrimSpace(l) == "" {
			err = multierr.Append(err, fmt.Errorf("model.labels[%d] is empty", i))
		}
	}
	return err
}
