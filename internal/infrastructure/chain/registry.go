package chain

import (
	"sync"

	"github.com/copays/copayd/internal/core/ports"
)

type registry struct {
	adapters map[string]ports.ChainAdapter
	mtx      sync.RWMutex
}

// NewRegistry returns an empty registry of chain adapters. Adapters are
// registered at startup, one per supported coin.
func NewRegistry() *Registry {
	return &Registry{registry{adapters: map[string]ports.ChainAdapter{}}}
}

// Registry is the concrete coin-to-adapter map satisfying the registry
// contract of the engine.
type Registry struct {
	registry
}

// RegisterAdapter binds the adapter to the given coin, overwriting any
// previous binding.
func (r *Registry) RegisterAdapter(coin string, adapter ports.ChainAdapter) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.adapters[coin] = adapter
}

// Adapter returns the adapter registered for the given coin.
func (r *Registry) Adapter(coin string) (ports.ChainAdapter, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	adapter, ok := r.adapters[coin]
	if !ok {
		return nil, ports.ErrChainNotSupported
	}
	return adapter, nil
}
