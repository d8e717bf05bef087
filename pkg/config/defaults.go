package config

const (
	defaultProvider       = "openai"
	defaultModel          = "gpt-4o"
	defaultTimeoutSeconds = 120

	defaultHistoryLimit  = 10
	defaultAnswerPreview = 200

	defaultCaptureTTLMS = 1000

	defaultToggleKey       = "ctrl+g"
	defaultAskKey          = "ctrl+a"
	defaultAutoHideSeconds = 45
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Model: ModelConfig{
			Provider:       defaultProvider,
			Name:           defaultModel,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Context: ContextConfig{
			HistoryLimit:  defaultHistoryLimit,
			AnswerPreview: defaultAnswerPreview,
		},
		Capture: CaptureConfig{
			CacheTTLMS: defaultCaptureTTLMS,
		},
		Overlay: OverlayConfig{
			ToggleKey:       defaultToggleKey,
			AskKey:          defaultAskKey,
			AutoHideSeconds: defaultAutoHideSeconds,
		},
	}
}
