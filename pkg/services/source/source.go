// Package source defines the boundary to external observation providers and
// the registry templates use to name them.
package source

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/fin-tools/macro-sync/pkg/models/domain"
)

// Source fetches the published observations of one series inside an
// inclusive date window. Implementations own their retry and rate-limit
// policy; callers only see errs.ErrSourceUnavailable or errs.ErrRateLimited
// once that policy is exhausted.
type Source interface {
	FetchSeries(ctx context.Context, seriesID string, rng domain.DateRange, order domain.SortOrder) ([]domain.Observation, error)
}

// Registry resolves provider names to sources.
type Registry interface {
	// Register adds a provider. Registering a duplicate name is an error.
	Register(provider string, src Source) error
	// Resolve returns the source registered under the provider name.
	Resolve(provider string) (Source, error)
	// ListProviders returns the registered provider names.
	ListProviders() []string
}

type registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewRegistry creates a registry preloaded with the given sources.
func NewRegistry(sources map[string]Source) Registry {
	r := &registry{sources: make(map[string]Source, len(sources))}
	for name, src := range sources {
		r.sources[name] = src
	}
	return r
}

func (r *registry) Register(provider string, src Source) error {
	if provider == "" {
		return fmt.Errorf("provider name cannot be empty")
	}
	if src == nil {
		return fmt.Errorf("source cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[provider]; exists {
		return fmt.Errorf("provider %q is already registered", provider)
	}
	r.sources[provider] = src
	return nil
}

func (r *registry) Resolve(provider string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.sources[provider]
	if !ok {
		return nil, fmt.Errorf("provider %q is not registered", provider)
	}
	return src, nil
}

func (r *registry) ListProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := maps.Keys(r.sources)
	sort.Strings(providers)
	return providers
}
