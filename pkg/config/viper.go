package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/glancelabs/glance/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the GLANCE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (GLANCE_MODEL_PROVIDER, GLANCE_STORAGE_SQLITE_PATH, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: GLANCE_MODEL_PROVIDER, GLANCE_OVERLAY_TOGGLE_KEY, etc.
	v.SetEnvPrefix("GLANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)

	// Model
	v.SetDefault("model.provider", d.Model.Provider)
	v.SetDefault("model.name", d.Model.Name)
	v.SetDefault("model.base_url", d.Model.BaseURL)
	v.SetDefault("model.timeout_seconds", d.Model.TimeoutSeconds)

	// Context
	v.SetDefault("context.history_limit", d.Context.HistoryLimit)
	v.SetDefault("context.answer_preview", d.Context.AnswerPreview)

	// Capture
	v.SetDefault("capture.cache_ttl_ms", d.Capture.CacheTTLMS)
	v.SetDefault("capture.display", d.Capture.Display)

	// Overlay
	v.SetDefault("overlay.toggle_key", d.Overlay.ToggleKey)
	v.SetDefault("overlay.ask_key", d.Overlay.AskKey)
	v.SetDefault("overlay.auto_hide_seconds", d.Overlay.AutoHideSeconds)
}
