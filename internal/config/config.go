// Package config provides configuration management for heredity.
//
// The config file holds model constants, engine tuning, and where pedigrees
// and reports are stored. Pedigrees themselves live in the database.
//
// Config file locations (priority order):
//  1. $HEREDITY_CONFIG
//  2. ./heredity.yaml
//  3. $XDG_CONFIG_HOME/heredity/config.yaml
//  4. ~/.config/heredity/config.yaml
//  5. /etc/heredity/config.yaml
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"heredity/internal/domain"
	"heredity/internal/model"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version:   1,
		Inference: InferenceConfig{Workers: 1},
		Database:  DatabaseConfig{Driver: "sqlite", Path: "./heredity.db"},
		Reports:   ReportsConfig{Driver: "none"},
		Server:    ServerConfig{Addr: ":3000"},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Version == 0 {
		c.Version = def.Version
	}
	if c.Inference.Workers == 0 {
		c.Inference.Workers = def.Inference.Workers
	}
	if c.Database.Driver == "" {
		c.Database.Driver = def.Database.Driver
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = def.Database.Path
	}
	if c.Reports.Driver == "" {
		c.Reports.Driver = def.Reports.Driver
	}
	if c.Reports.Driver == "fs" && c.Reports.Dir == "" {
		c.Reports.Dir = "./reports"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
}

// Validate checks driver names and model overrides
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	switch c.Reports.Driver {
	case "none", "fs", "memory":
	case "s3":
		if c.Reports.S3.Bucket == "" {
			return fmt.Errorf("reports.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown reports driver %q", c.Reports.Driver)
	}

	if c.Inference.Workers < 0 {
		return fmt.Errorf("inference.workers must not be negative")
	}

	if _, err := c.Model.Params(); err != nil {
		return fmt.Errorf("invalid model config: %w", err)
	}
	return nil
}

// Params builds model parameters from the standard set with any configured
// overrides applied.
func (m ModelConfig) Params() (model.Params, error) {
	p := model.DefaultParams()

	for g, prob := range m.Gene {
		if !domain.GeneCount(g).Valid() {
			return p, fmt.Errorf("%w: gene count %d", model.ErrInvalidParams, g)
		}
		p.GenePrior[g] = prob
	}
	for g, row := range m.Trait {
		if !domain.GeneCount(g).Valid() {
			return p, fmt.Errorf("%w: gene count %d", model.ErrInvalidParams, g)
		}
		for has, prob := range row {
			if has {
				p.Trait[g][1] = prob
			} else {
				p.Trait[g][0] = prob
			}
		}
	}
	if m.Mutation != nil {
		p.Mutation = *m.Mutation
	}

	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// InferenceTimeout returns the configured per-run limit, zero for none
func (c *Config) InferenceTimeout() time.Duration {
	if c.Inference.Timeout == nil {
		return 0
	}
	return c.Inference.Timeout.Duration()
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Database: %s, Reports: %s\n", c.Database.Driver, c.Reports.Driver)
	summary += fmt.Sprintf("Workers: %d, Max individuals: %d", c.Inference.Workers, c.Inference.MaxIndividuals)
	if timeout := c.InferenceTimeout(); timeout > 0 {
		summary += fmt.Sprintf(", Timeout: %s", timeout)
	}
	if m := c.Model; len(m.Gene) > 0 || len(m.Trait) > 0 || m.Mutation != nil {
		summary += "\nModel: custom parameters"
	}
	return summary
}
