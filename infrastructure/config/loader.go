package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where commands look for the configuration file
const DefaultPath = "config/config.yaml"

// Log formats
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Config represents the complete application configuration
type Config struct {
	FFmpeg  FFmpegConfig  `yaml:"ffmpeg"`
	Paths   PathsConfig   `yaml:"paths"`
	Preview PreviewConfig `yaml:"preview"`
	Log     LogConfig     `yaml:"log"`
}

// FFmpegConfig contains transcoding engine settings
type FFmpegConfig struct {
	Path          string        `yaml:"path"`
	WorkDirectory string        `yaml:"work_directory"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
}

// PathsConfig contains output directories
type PathsConfig struct {
	AudioDirectory string `yaml:"audio_directory"`
}

// PreviewConfig contains preview server settings
type PreviewConfig struct {
	Address string `yaml:"address"`
}

// LogConfig contains diagnostic logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields
func (c *Config) ApplyDefaults() {
	if c.FFmpeg.Path == "" {
		c.FFmpeg.Path = "ffmpeg"
	}
	if c.FFmpeg.ProbeTimeout <= 0 {
		c.FFmpeg.ProbeTimeout = 10 * time.Second
	}
	if c.Preview.Address == "" {
		c.Preview.Address = "127.0.0.1:0"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = LogFormatConsole
	}
}

// Validate checks values that defaults cannot repair
func (c *Config) Validate() error {
	switch c.Log.Format {
	case LogFormatConsole, LogFormatJSON:
	default:
		return fmt.Errorf("invalid log format %q (expected %s or %s)", c.Log.Format, LogFormatConsole, LogFormatJSON)
	}
	return nil
}

// Load reads and parses the configuration from the specified YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path, falling back to defaults when the file does not exist
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes the configuration to the specified YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
