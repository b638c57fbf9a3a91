package llm

import (
	"errors"
	"fmt"
	"os"

	"github.com/doha-kr/siteaudit/internal/config"
)

// ErrDisabled is returned when the configuration turns the LLM off.
var ErrDisabled = errors.New("llm provider is disabled")

// NewProvider creates the provider selected by cfg, reading its API key
// from the provider's environment variable. A positive RPM wraps it in a
// rate limiter.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	var p Provider
	switch cfg.Provider {
	case config.ProviderNone, "":
		return nil, ErrDisabled

	case config.ProviderOpenAI, config.ProviderOpenRouter:
		envVar := config.APIKeyEnvVar(cfg.Provider)
		apiKey := os.Getenv(envVar)
		if apiKey == "" {
			return nil, fmt.Errorf("%s environment variable is not set", envVar)
		}
		baseURL := cfg.BaseURL
		if baseURL == "" && cfg.Provider == config.ProviderOpenRouter {
			baseURL = openRouterURL
		}
		p = NewChatProvider(string(cfg.Provider), apiKey, baseURL, cfg.Model)

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Provider)
	}

	if cfg.RPM > 0 {
		p = NewRateLimitedProvider(p, cfg.RPM)
	}
	return p, nil
}
