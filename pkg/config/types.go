package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent glance configuration stored as config.toml
// in the .glance/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int           `toml:"version"`
	Storage StorageConfig `toml:"storage"`
	Model   ModelConfig   `toml:"model"`
	Context ContextConfig `toml:"context"`
	Capture CaptureConfig `toml:"capture"`
	Overlay OverlayConfig `toml:"overlay"`
}

// StorageConfig holds embedded database settings.
type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// ModelConfig holds remote vision model settings.
type ModelConfig struct {
	Provider       string `toml:"provider,omitempty"`
	Name           string `toml:"name,omitempty"`
	BaseURL        string `toml:"base_url,omitempty"`
	TimeoutSeconds uint   `toml:"timeout_seconds,omitempty"`
}

// ContextConfig controls how much prior conversation is sent with each ask.
type ContextConfig struct {
	HistoryLimit  uint `toml:"history_limit,omitempty"`
	AnswerPreview uint `toml:"answer_preview,omitempty"`
}

// CaptureConfig holds screen capture settings.
type CaptureConfig struct {
	CacheTTLMS uint `toml:"cache_ttl_ms,omitempty"`
	Display    uint `toml:"display,omitempty"`
}

// OverlayConfig holds overlay TUI settings. AutoHideSeconds of 0 disables
// auto-hide entirely, so it is deliberately excluded from default merging.
type OverlayConfig struct {
	ToggleKey       string `toml:"toggle_key,omitempty"`
	AskKey          string `toml:"ask_key,omitempty"`
	AutoHideSeconds uint   `toml:"auto_hide_seconds"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"model.provider": {
		get: func(c *Config) string { return c.Model.Provider },
		set: func(c *Config, v string) error { c.Model.Provider = v; return nil },
	},
	"model.name": {
		get: func(c *Config) string { return c.Model.Name },
		set: func(c *Config, v string) error { c.Model.Name = v; return nil },
	},
	"model.base_url": {
		get: func(c *Config) string { return c.Model.BaseURL },
		set: func(c *Config, v string) error { c.Model.BaseURL = v; return nil },
	},
	"model.timeout_seconds": {
		get: func(c *Config) string { return formatUint(c.Model.TimeoutSeconds) },
		set: func(c *Config, v string) error {
			n, err := parseUint("model.timeout_seconds", v)
			if err != nil {
				return err
			}
			c.Model.TimeoutSeconds = n
			return nil
		},
	},
	"context.history_limit": {
		get: func(c *Config) string { return formatUint(c.Context.HistoryLimit) },
		set: func(c *Config, v string) error {
			n, err := parseUint("context.history_limit", v)
			if err != nil {
				return err
			}
			c.Context.HistoryLimit = n
			return nil
		},
	},
	"context.answer_preview": {
		get: func(c *Config) string { return formatUint(c.Context.AnswerPreview) },
		set: func(c *Config, v string) error {
			n, err := parseUint("context.answer_preview", v)
			if err != nil {
				return err
			}
			c.Context.AnswerPreview = n
			return nil
		},
	},
	"capture.cache_ttl_ms": {
		get: func(c *Config) string { return formatUint(c.Capture.CacheTTLMS) },
		set: func(c *Config, v string) error {
			n, err := parseUint("capture.cache_ttl_ms", v)
			if err != nil {
				return err
			}
			c.Capture.CacheTTLMS = n
			return nil
		},
	},
	"capture.display": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.Capture.Display), 10) },
		set: func(c *Config, v string) error {
			n, err := parseUint("capture.display", v)
			if err != nil {
				return err
			}
			c.Capture.Display = n
			return nil
		},
	},
	"overlay.toggle_key": {
		get: func(c *Config) string { return c.Overlay.ToggleKey },
		set: func(c *Config, v string) error { c.Overlay.ToggleKey = v; return nil },
	},
	"overlay.ask_key": {
		get: func(c *Config) string { return c.Overlay.AskKey },
		set: func(c *Config, v string) error { c.Overlay.AskKey = v; return nil },
	},
	"overlay.auto_hide_seconds": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.Overlay.AutoHideSeconds), 10) },
		set: func(c *Config, v string) error {
			n, err := parseUint("overlay.auto_hide_seconds", v)
			if err != nil {
				return err
			}
			c.Overlay.AutoHideSeconds = n
			return nil
		},
	},
}

func formatUint(n uint) string {
	if n == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(n), 10)
}

func parseUint(key, v string) (uint, error) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return uint(n), nil
}
