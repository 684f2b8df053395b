// Package config loads the ltsignal server configuration from defaults, an
// optional YAML file, a .env file and LTSIGNAL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Policies for inbound messages whose type ID is not in the registry.
const (
	UnknownDrop  = "drop"
	UnknownClose = "close"
)

// Config holds the server configuration.
type Config struct {
	ServerName     string `mapstructure:"server_name"`
	ListenAddr     string `mapstructure:"listen_addr"`
	DatabasePath   string `mapstructure:"database_path"`
	MaxMessageSize int    `mapstructure:"max_message_size"`
	SendBufferSize int    `mapstructure:"send_buffer_size"`
	// UnknownPolicy is UnknownDrop or UnknownClose.
	UnknownPolicy string    `mapstructure:"unknown_policy"`
	Log           LogConfig `mapstructure:"log"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs     []string       `mapstructure:"outputs"`
	Rotation    RotationConfig `mapstructure:"rotation"`
	Development bool           `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool `mapstructure:"enable"`
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ServerName:     "ltsignal",
		ListenAddr:     ":8080",
		DatabasePath:   "ltsignal.db",
		MaxMessageSize: 65536, // 64KB
		SendBufferSize: 256,
		UnknownPolicy:  UnknownDrop,
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stdout"},
			Rotation: RotationConfig{
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
	}
}

// Load reads configuration from path when non-empty, otherwise from
// ltsignal.yaml in the working directory or ./configs if present.
// Environment variables use the LTSIGNAL_ prefix with "." replaced by "_",
// e.g. LTSIGNAL_LOG_LEVEL=debug. A .env file in the working directory is
// loaded first and never overrides variables already set.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("LTSIGNAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("server_name", cfg.ServerName)
	v.SetDefault("listen_addr", cfg.ListenAddr)
	v.SetDefault("database_path", cfg.DatabasePath)
	v.SetDefault("max_message_size", cfg.MaxMessageSize)
	v.SetDefault("send_buffer_size", cfg.SendBufferSize)
	v.SetDefault("unknown_policy", cfg.UnknownPolicy)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)

	if path == "" {
		path = os.Getenv("LTSIGNAL_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ltsignal")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks value ranges and normalizes enumerations.
func (c *Config) Validate() error {
	c.UnknownPolicy = strings.ToLower(strings.TrimSpace(c.UnknownPolicy))
	switch c.UnknownPolicy {
	case UnknownDrop, UnknownClose:
	default:
		return fmt.Errorf("invalid unknown_policy: %q", c.UnknownPolicy)
	}

	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}

	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("invalid max_message_size: %d", c.MaxMessageSize)
	}
	if c.SendBufferSize <= 0 {
		return fmt.Errorf("invalid send_buffer_size: %d", c.SendBufferSize)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stdout"}
	}
	return nil
}
