package llm

import (
	"context"
	"fmt"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

// New builds the client for provider. A missing API key yields Disabled so
// the engine still runs on its local fallbacks.
func New(ctx context.Context, provider, apiKey, model string) (Client, error) {
	if apiKey == "" {
		provider = ProviderNone
	}
	switch provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, apiKey, model)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey, model)
	case ProviderNone, "":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", provider)
	}
}
