// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

// Package transform holds the per-dataset transformation routines and the
// registry that maps catalog names to them.
package transform

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dsfetch/dsfetch/pkg/dsfetch"
)

// Registry maps dataset names to transformation routines. The zero value is
// not usable; call NewRegistry or Default.
type Registry struct {
	mu sync.RWMutex
	m  map[string]dsfetch.Transformer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{m: make(map[string]dsfetch.Transformer)}
}

// Register adds t under name.
// Panics if name is empty, t is nil, or name is already registered.
func (r *Registry) Register(name string, t dsfetch.Transformer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" || t == nil {
		panic("transform: Register requires a name and a transformer")
	}
	if _, exists := r.m[name]; exists {
		panic(fmt.Sprintf("transform already registered: %s", name))
	}
	r.m[name] = t
}

// Lookup returns the routine registered under name.
func (r *Registry) Lookup(name string) (dsfetch.Transformer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.m[name]
	return t, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.m))
	for n := range r.m {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Default returns a registry with a routine for every catalog entry.
func Default() *Registry {
	r := NewRegistry()
	r.Register("abalone", Abalone{})
	r.Register("absenteeism", Absenteeism{})
	r.Register("bank", Bank{})
	r.Register("banknote", Banknote{})
	r.Register("defaultcc", DefaultCC{})
	r.Register("diabetes", Diabetes{})
	r.Register("epileptic", Epileptic{})
	r.Register("happiness", Happiness{})
	r.Register("seismic", Seismic{})
	r.Register("wbc", WBC{})
	return r
}
