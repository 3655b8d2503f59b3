package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort    = 3500
	DefaultLogLevel    = "info"
	DefaultHubInterval = 5 * time.Second
	DefaultStorePath   = "BD.txt"
	DefaultMalformed   = "fail"
	DefaultTimeout     = 5 * time.Second
	DefaultImageDir    = "image"
	DefaultQRSize      = 256
	DefaultQRLevel     = "medium"
)

// Config holds the full server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Images ImagesConfig `yaml:"images"`
	QR     QRConfig     `yaml:"qr"`
}

// ServerConfig holds process-level settings.
type ServerConfig struct {
	// HTTPPort is the port the API, image files and WebSocket hub listen on.
	HTTPPort int `yaml:"http_port"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// HubInterval is how often the record list is pushed to WebSocket clients
	// when nothing changed in between.
	HubInterval time.Duration `yaml:"hub_interval"`
}

// StoreConfig configures the flat-file record store.
type StoreConfig struct {
	// Path is the record file. Its directory is created on first write.
	Path string `yaml:"path"`

	// Malformed is one of: fail | skip.
	Malformed string `yaml:"malformed"`

	// Timeout bounds a single load or upsert, including the wait for the
	// write lock. Zero disables the bound.
	Timeout time.Duration `yaml:"timeout"`
}

// ImagesConfig configures where generated QR images live.
type ImagesConfig struct {
	Dir string `yaml:"dir"`
}

// QRConfig controls QR image rendering.
type QRConfig struct {
	// Size is the PNG width and height in pixels.
	Size int `yaml:"size"`

	// Level is the error correction level: low | medium | high | highest.
	Level string `yaml:"level"`
}

// SlogLevel returns the configured log level. Unknown values fall back to
// info; validate rejects them at load time.
func (s ServerConfig) SlogLevel() slog.Level {
	switch s.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads and parses the config file at path.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:    DefaultHTTPPort,
			LogLevel:    DefaultLogLevel,
			HubInterval: DefaultHubInterval,
		},
		Store: StoreConfig{
			Path:      DefaultStorePath,
			Malformed: DefaultMalformed,
			Timeout:   DefaultTimeout,
		},
		Images: ImagesConfig{
			Dir: DefaultImageDir,
		},
		QR: QRConfig{
			Size:  DefaultQRSize,
			Level: DefaultQRLevel,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch cfg.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", cfg.Server.LogLevel)
	}
	if cfg.Server.HubInterval <= 0 {
		return fmt.Errorf("server.hub_interval must be positive")
	}
	if cfg.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	switch cfg.Store.Malformed {
	case "fail", "skip":
	default:
		return fmt.Errorf("store.malformed %q unknown: want fail|skip", cfg.Store.Malformed)
	}
	if cfg.Store.Timeout < 0 {
		return fmt.Errorf("store.timeout must not be negative")
	}
	if cfg.Images.Dir == "" {
		return fmt.Errorf("images.dir must not be empty")
	}
	if cfg.QR.Size < 21 || cfg.QR.Size > 4096 {
		return fmt.Errorf("qr.size %d is out of range [21, 4096]", cfg.QR.Size)
	}
	switch cfg.QR.Level {
	case "low", "medium", "high", "highest":
	default:
		return fmt.Errorf("qr.level %q unknown: want low|medium|high|highest", cfg.QR.Level)
	}
	return nil
}
