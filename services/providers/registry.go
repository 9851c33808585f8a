package providers

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/services"
	"github.com/noteapp/ai-broker/services/vault"
)

// Registry maps provider tags to adapters. Lookup is case-insensitive and an
// unknown tag is always an error, never a silent default: misrouting a
// request to the wrong provider would leak the payload to the wrong party.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register binds an adapter to its canonical tag plus any aliases
func (r *Registry) Register(adapter Adapter, aliases ...string) {
	r.adapters[strings.ToLower(adapter.Name())] = adapter
	for _, alias := range aliases {
		r.adapters[strings.ToLower(alias)] = adapter
	}
}

// Resolve returns the adapter for a provider tag
func (r *Registry) Resolve(provider string) (Adapter, error) {
	adapter, ok := r.adapters[strings.ToLower(strings.TrimSpace(provider))]
	if !ok {
		return nil, services.NewDomainError(services.ErrorTypeUnknownProvider,
			fmt.Sprintf("unknown provider: %s", provider), nil).
			WithDetail("provider", provider)
	}
	return adapter, nil
}

// Providers returns the registered tags, aliases included
func (r *Registry) Providers() []string {
	tags := make([]string, 0, len(r.adapters))
	for tag := range r.adapters {
		tags = append(tags, tag)
	}
	return tags
}

// NewDefaultRegistry wires every built-in adapter. Mistral, Sber and GigaChat
// expose OpenAI-compatible APIs and route to the OpenAI adapter; claude is an
// accepted alias for anthropic.
func NewDefaultRegistry(v *vault.Vault, client *http.Client, logger *zap.Logger) *Registry {
	registry := NewRegistry()
	registry.Register(NewOpenAI(v, client, logger), "mistral", "sber", "gigachat")
	registry.Register(NewAnthropic(v, client, logger), "claude")
	registry.Register(NewYandex(v, client, logger))
	registry.Register(NewWhisper(v, client, logger))
	registry.Register(NewPollinations(v, client, logger))
	return registry
}
