package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version   int             `yaml:"version"`
	Model     ModelConfig     `yaml:"model"`
	Inference InferenceConfig `yaml:"inference"`
	Database  DatabaseConfig  `yaml:"database"`
	Reports   ReportsConfig   `yaml:"reports"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// ModelConfig overrides inheritance-model constants. Unset entries keep the
// standard values.
type ModelConfig struct {
	// Gene maps gene count to prior probability, e.g. {0: 0.96, 1: 0.03, 2: 0.01}
	Gene map[int]float64 `yaml:"gene,omitempty"`

	// Trait maps gene count to {true: p, false: q}
	Trait map[int]map[bool]float64 `yaml:"trait,omitempty"`

	Mutation *float64 `yaml:"mutation,omitempty"`
}

// InferenceConfig tunes the inference engine
type InferenceConfig struct {
	Workers        int       `yaml:"workers"`
	MaxIndividuals int       `yaml:"max_individuals"`
	Timeout        *Duration `yaml:"timeout,omitempty"` // nil = no limit
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Driver string `yaml:"driver"`        // sqlite, postgres
	Path   string `yaml:"path"`          // sqlite file or :memory:
	DSN    string `yaml:"dsn,omitempty"` // postgres connection string
}

// ReportsConfig selects where finished reports are archived
type ReportsConfig struct {
	Driver string   `yaml:"driver"` // none, fs, s3, memory
	Dir    string   `yaml:"dir,omitempty"`
	S3     S3Config `yaml:"s3,omitempty"`
}

// S3Config holds S3 (or S3-compatible) archive settings
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	UsePathStyle    bool   `yaml:"use_path_style,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
