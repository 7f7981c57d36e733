package llm

import (
	"context"
	"errors"
)

var ErrUnknownModelType = errors.New("unknown model type")

// ModelType selects the backend adapter for a request.
type ModelType string

const (
	ModelTypeOllama ModelType = "ollama"
	ModelTypeOpenAI ModelType = "openai"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
	Images  []string // image URLs or data URLs, only for multimodal backends
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

func ApplyOptions(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

// Stream is a lazy, finite sequence of text fragments.
// Recv returns io.EOF once the backend has finished.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the full response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)

	// Stream sends a chat history and returns the response fragment by fragment
	Stream(ctx context.Context, history []Message, options ...Option) (Stream, error)
}

// ModelCatalog describes a backend and the models it serves.
type ModelCatalog struct {
	Type  ModelType `json:"type"`
	Desc  string    `json:"desc"`
	Names []string  `json:"names"`
}
