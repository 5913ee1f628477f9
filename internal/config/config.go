// Package config handles configuration management for crewdeck.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the client.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Terminal TerminalConfig `mapstructure:"terminal"`
	Cache    CacheConfig    `mapstructure:"cache"`
	DeepLink DeepLinkConfig `mapstructure:"deep_link"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig points the client at the orchestration server.
type ServerConfig struct {
	URL            string        `mapstructure:"url"`   // http(s) base URL
	Token          string        `mapstructure:"token"` // bearer credential, also sent on stream URLs
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RefreshEvery   time.Duration `mapstructure:"refresh_every"` // session list poll interval
}

// RetryConfig is the shared reconnection policy for both stream clients.
type RetryConfig struct {
	// Delays is the ordered schedule of reconnect delays. Its length caps
	// the attempt count unless max_attempts is lower.
	Delays      []time.Duration `mapstructure:"delays"`
	MaxAttempts int             `mapstructure:"max_attempts"`
	// StabilityWindow is how long a connection must stay open before the
	// attempt counter resets.
	StabilityWindow time.Duration `mapstructure:"stability_window"`
}

// TerminalConfig holds terminal stream settings.
type TerminalConfig struct {
	ScrollbackLines int `mapstructure:"scrollback_lines"`
}

// CacheConfig holds the local transcript cache settings.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"` // empty = $TMPDIR/crewdeck/transcripts
}

// DeepLinkConfig holds the activate-handoff settings.
type DeepLinkConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	File    string `mapstructure:"file"` // empty = runtime dir default
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from files and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.crewdeck")
	}

	v.SetEnvPrefix("CREWDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := postProcess(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DefaultRetryDelays is the default reconnect schedule: capped doubling
// from 800ms up to ~13s across five attempts.
var DefaultRetryDelays = []time.Duration{
	800 * time.Millisecond,
	1600 * time.Millisecond,
	3200 * time.Millisecond,
	6400 * time.Millisecond,
	12800 * time.Millisecond,
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "http://127.0.0.1:8790")
	v.SetDefault("server.token", "")
	v.SetDefault("server.request_timeout", 15*time.Second)
	v.SetDefault("server.refresh_every", 5*time.Second)

	v.SetDefault("retry.delays", DefaultRetryDelays)
	v.SetDefault("retry.max_attempts", len(DefaultRetryDelays))
	v.SetDefault("retry.stability_window", 3*time.Second)

	v.SetDefault("terminal.scrollback_lines", 5000)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dir", "")

	v.SetDefault("deep_link.enabled", true)
	v.SetDefault("deep_link.file", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// postProcess fills derived values.
func postProcess(cfg *Config) error {
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = filepath.Join(os.TempDir(), "crewdeck", "transcripts")
	}
	if cfg.DeepLink.File == "" {
		cfg.DeepLink.File = filepath.Join(runtimeDir(), "crewdeck", "activate")
	}
	cfg.Server.URL = strings.TrimRight(cfg.Server.URL, "/")
	return nil
}

// runtimeDir returns XDG_RUNTIME_DIR or a temp fallback.
func runtimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}
