package config

import (
	"fmt"
	"net/url"
	"time"
)

// Validate checks configuration for invalid values.
func Validate(cfg *Config) error {
	u, err := url.Parse(cfg.Server.URL)
	if err != nil {
		return fmt.Errorf("invalid server.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid server.url scheme %q: must be http or https", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid server.url %q: missing host", cfg.Server.URL)
	}

	if len(cfg.Retry.Delays) == 0 {
		return fmt.Errorf("retry.delays must not be empty")
	}
	for i, d := range cfg.Retry.Delays {
		if d <= 0 {
			return fmt.Errorf("retry.delays[%d] must be positive, got %v", i, d)
		}
	}
	if cfg.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be positive, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.StabilityWindow < time.Second {
		return fmt.Errorf("retry.stability_window must be at least 1s, got %v", cfg.Retry.StabilityWindow)
	}

	if cfg.Server.RefreshEvery < time.Second {
		return fmt.Errorf("server.refresh_every must be at least 1s, got %v", cfg.Server.RefreshEvery)
	}
	if cfg.Terminal.ScrollbackLines < 0 {
		return fmt.Errorf("terminal.scrollback_lines must not be negative, got %d", cfg.Terminal.ScrollbackLines)
	}

	switch cfg.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q", cfg.Logging.Level)
	}

	return nil
}
