package factory

import (
	"ai-chatstream-be/pkg/llm"
	"ai-chatstream-be/pkg/llm/ollama"
	"ai-chatstream-be/pkg/llm/openai"
	"fmt"
	"sort"
	"sync"
)

// NewLLMProvider builds a single provider, used for the auxiliary models
// (rewrite, follow-up, image QA) that are fixed by configuration.
func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch llm.ModelType(providerType) {
	case llm.ModelTypeOllama:
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case llm.ModelTypeOpenAI:
		return openai.NewOpenAIProvider(apiKey, baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("%w: %s", llm.ErrUnknownModelType, providerType)
	}
}

// Builder creates a provider bound to one model name.
type Builder func(modelName string) llm.LLMProvider

type entry struct {
	desc  string
	names []string
	build Builder
}

// Registry is the runtime lookup table from model type to adapter.
type Registry struct {
	defaultType llm.ModelType

	mu      sync.Mutex
	entries map[llm.ModelType]entry
	cache   map[string]llm.LLMProvider
}

func NewRegistry(defaultType llm.ModelType) *Registry {
	return &Registry{
		defaultType: defaultType,
		entries:     make(map[llm.ModelType]entry),
		cache:       make(map[string]llm.LLMProvider),
	}
}

// Register adds a backend. The first name is the default model of the type.
func (r *Registry) Register(modelType llm.ModelType, desc string, names []string, build Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[modelType] = entry{desc: desc, names: names, build: build}
}

// Resolve returns the provider for a request, falling back to the default
// type and to the type's default model when either is empty.
func (r *Registry) Resolve(modelType, modelName string) (llm.LLMProvider, error) {
	t := llm.ModelType(modelType)
	if t == "" {
		t = r.defaultType
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", llm.ErrUnknownModelType, t)
	}
	if modelName == "" && len(e.names) > 0 {
		modelName = e.names[0]
	}

	key := string(t) + "/" + modelName
	if p, ok := r.cache[key]; ok {
		return p, nil
	}
	p := e.build(modelName)
	r.cache[key] = p
	return p, nil
}

// Models lists the registered backends sorted by type.
func (r *Registry) Models() []llm.ModelCatalog {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]llm.ModelCatalog, 0, len(r.entries))
	for t, e := range r.entries {
		names := make([]string, len(e.names))
		copy(names, e.names)
		out = append(out, llm.ModelCatalog{Type: t, Desc: e.desc, Names: names})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
