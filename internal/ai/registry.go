package ai

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ProviderFactory builds a provider for one backend. An empty model string
// selects whatever default the factory was configured with.
type ProviderFactory func(ctx context.Context, model string) (Provider, error)

// Registry resolves the configured gateway by name at request time. Names
// are matched case-insensitively; safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f ProviderFactory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Get builds a provider for name, handing model through to its factory.
func (r *Registry) Get(ctx context.Context, name string, model string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unknown ai provider: %s", name)
	}
	return f(ctx, model)
}
