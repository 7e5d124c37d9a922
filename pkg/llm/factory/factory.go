package factory

import (
	"ai-agenthub-be/pkg/llm"
	"ai-agenthub-be/pkg/llm/ollama"
	"ai-agenthub-be/pkg/llm/openai"
	"fmt"
)

func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return openai.NewOpenAIProvider(baseURL, apiKey, modelName), nil
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}

// NewFileStore returns the provider's file store when it has one.
// Ollama keeps no server-side files, so only openai qualifies.
func NewFileStore(providerType, baseURL, apiKey string) (llm.FileStore, error) {
	switch providerType {
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("openai file store requires an API key")
		}
		return openai.NewOpenAIProvider(baseURL, apiKey, ""), nil
	default:
		return nil, fmt.Errorf("provider %s has no file store", providerType)
	}
}
