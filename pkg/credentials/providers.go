// Package credentials resolves API keys for vision providers. Keys come
// from explicit config, the store (written by glance auth), or provider
// environment variables, in that order.
package credentials

import (
	"sort"
	"strings"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// providerEnvVars maps provider names to their conventional environment
// variables. Ollama is absent: it authenticates nothing.
var providerEnvVars = map[string]string{
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderAnthropic: "ANTHROPIC_API_KEY",
}

// SupportedProviders returns the providers that take a stored API key,
// sorted for stable help text and completions.
func SupportedProviders() []string {
	providers := make([]string, 0, len(providerEnvVars))
	for p := range providerEnvVars {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	return providers
}

// IsSupportedProvider reports whether provider can have a key stored for it.
func IsSupportedProvider(provider string) bool {
	_, ok := providerEnvVars[strings.ToLower(strings.TrimSpace(provider))]
	return ok
}

// EnvVarForProvider returns the environment variable consulted for a
// provider, or "" when it has none.
func EnvVarForProvider(provider string) string {
	return providerEnvVars[strings.ToLower(strings.TrimSpace(provider))]
}

// KeyRequired reports whether the provider refuses calls without a key.
// An empty provider means the default (openai), which requires one.
func KeyRequired(provider string) bool {
	return strings.ToLower(strings.TrimSpace(provider)) != ProviderOllama
}

// Mask hides the middle of a key for display, keeping just enough of each
// end to recognize it.
func Mask(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
