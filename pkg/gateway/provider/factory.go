package provider

import (
	"momentum/pkg/config"
	"momentum/pkg/errs"
)

// FromConfig builds the configured backend. apiKey is the client-direct
// credential; it is required for every hosted provider and ignored for
// ollama. A missing key is a configuration error, which the dual-path
// resolver reports as "no secondary path available".
func FromConfig(cfg config.Config, apiKey string) (TextCompleter, error) {
	model := cfg.DefaultModel()

	switch cfg.Provider {
	case config.ProviderOllama:
		return NewOllamaClient(cfg.OllamaHost, model), nil
	case config.ProviderAnthropic:
		if apiKey == "" {
			return nil, errs.New(errs.KindConfig, "no provider API key configured")
		}
		return NewAnthropicClient(apiKey, model), nil
	case config.ProviderGoogle:
		if apiKey == "" {
			return nil, errs.New(errs.KindConfig, "no provider API key configured")
		}
		return NewGoogleClient(apiKey, model), nil
	case config.ProviderOpenRouter, "":
		if apiKey == "" {
			return nil, errs.New(errs.KindConfig, "no provider API key configured")
		}
		return NewOpenRouterClient(apiKey, model), nil
	default:
		return nil, errs.New(errs.KindConfig, "unknown provider "+cfg.Provider)
	}
}
