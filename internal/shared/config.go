package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Permission request policies understood by [PermissionsConfig.OnRequest].
const (
	PolicyGrant  = "grant"
	PolicyDeny   = "deny"
	PolicyPrompt = "prompt"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Permissions PermissionsConfig `toml:"permissions"`
	Tasks       TasksConfig       `toml:"tasks"`
	Artwork     ArtworkConfig     `toml:"artwork"`
	Scanner     ScannerConfig     `toml:"scanner"`
	Logging     LoggingConfig     `toml:"logging"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// PermissionsConfig describes which storage permissions start out granted
// and how ungranted requests are answered.
type PermissionsConfig struct {
	Read      bool   `toml:"read"`
	Write     bool   `toml:"write"`
	OnRequest string `toml:"on_request"`
}

// TasksConfig sizes the background worker pool.
type TasksConfig struct {
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

// ArtworkConfig controls thumbnail support and the default thumbnail size.
type ArtworkConfig struct {
	Thumbnails    bool `toml:"thumbnails"`
	DefaultWidth  int  `toml:"default_width"`
	DefaultHeight int  `toml:"default_height"`
}

// ScannerConfig contains library scanning settings.
type ScannerConfig struct {
	Roots      []string `toml:"roots"`
	ArtworkDir string   `toml:"artwork_dir"`
	Workers    int      `toml:"workers"`
	RateLimit  float64  `toml:"rate_limit"` // files per second, 0 disables throttling
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate reports configuration values the rest of the application cannot work with.
func (c *Config) Validate() error {
	switch c.Permissions.OnRequest {
	case PolicyGrant, PolicyDeny, PolicyPrompt:
	default:
		return fmt.Errorf("%w: unknown permissions.on_request policy %q", ErrInvalidConfig, c.Permissions.OnRequest)
	}

	if c.Tasks.Workers <= 0 {
		return fmt.Errorf("%w: tasks.workers must be positive, got %d", ErrInvalidConfig, c.Tasks.Workers)
	}
	if c.Scanner.Workers <= 0 {
		return fmt.Errorf("%w: scanner.workers must be positive, got %d", ErrInvalidConfig, c.Scanner.Workers)
	}
	if c.Artwork.DefaultWidth <= 0 || c.Artwork.DefaultHeight <= 0 {
		return fmt.Errorf("%w: artwork default size must be positive", ErrInvalidConfig)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
