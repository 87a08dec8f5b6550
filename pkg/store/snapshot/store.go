// Package snapshot abstracts workbook storage. A Store moves whole workbook
// blobs; reading cells out of them is the workbook codec's job.
package snapshot

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/fin-tools/macro-sync/pkg/models/domain"
)

// Store fetches and saves workbook blobs for one storage provider.
// Implementations must make Save atomic: a failed write never leaves a
// partially written workbook behind.
type Store interface {
	Fetch(ctx context.Context, handle domain.StorageHandle) ([]byte, error)
	Save(ctx context.Context, handle domain.StorageHandle, data []byte) error
}

// Registry resolves storage providers by name.
type Registry interface {
	Register(provider string, store Store)
	Resolve(provider string) (Store, error)
	ListProviders() []string
}

type registry struct {
	mu     sync.RWMutex
	stores map[string]Store
}

// NewRegistry creates a registry pre-populated with the given stores.
func NewRegistry(stores map[string]Store) Registry {
	r := &registry{stores: make(map[string]Store, len(stores))}
	for provider, store := range stores {
		r.stores[provider] = store
	}
	return r
}

func (r *registry) Register(provider string, store Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[provider] = store
}

func (r *registry) Resolve(provider string) (Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	store, ok := r.stores[provider]
	if !ok {
		return nil, fmt.Errorf("unknown storage provider %q", provider)
	}
	return store, nil
}

func (r *registry) ListProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := maps.Keys(r.stores)
	sort.Strings(providers)
	return providers
}
