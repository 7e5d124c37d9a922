package llm

import (
	"context"
	"io"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// StoredFile describes a file the provider accepted into its file store.
type StoredFile struct {
	ID       string
	Filename string
	Bytes    int64
}

// FileStore is implemented by providers that can hold uploaded files
// alongside the chat API. Ollama does not implement it.
type FileStore interface {
	// UploadFile streams content to the provider and returns its external id.
	UploadFile(ctx context.Context, filename string, content io.Reader) (*StoredFile, error)

	// DeleteFile removes a previously uploaded file by external id.
	DeleteFile(ctx context.Context, fileID string) error
}
