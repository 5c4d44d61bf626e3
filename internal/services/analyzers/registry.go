// Package analyzers hosts the pluggable scoring implementations. Each
// use case owns its sector taxonomy, turns a job config into search
// queries, optionally crawls extra pages per site, and scores the
// accumulated text against curated keyword lists.
package analyzers

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rjdeboer/captare/internal/interfaces"
)

// ErrUnknownUseCase is returned when a job names an unregistered
// analyzer key.
var ErrUnknownUseCase = errors.New("unknown use case")

// Registry maps use-case keys to analyzers.
type Registry struct {
	mu        sync.RWMutex
	analyzers map[string]interfaces.Analyzer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{analyzers: make(map[string]interfaces.Analyzer)}
}

// Register adds an analyzer under its key, replacing any previous
// registration.
func (r *Registry) Register(a interfaces.Analyzer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyzers[a.Key()] = a
}

// Get returns the analyzer for key or ErrUnknownUseCase.
func (r *Registry) Get(key string) (interfaces.Analyzer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.analyzers[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUseCase, key)
	}
	return a, nil
}

// Keys returns the registered use-case keys, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.analyzers))
	for k := range r.analyzers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
