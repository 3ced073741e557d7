// Package store keeps the named data-store collaborators a process can
// query. Callers build one Registry at startup and pass it down; there is
// no package-level instance.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"

	"research-corev1/internal/model"
	"research-corev1/internal/store/sqlite"
)

// ErrUnknownSource is returned for a data-store name that was never registered.
var ErrUnknownSource = errors.New("unknown data source")

// Registry maps data-store names to queriers.
type Registry struct {
	mu      sync.RWMutex
	def     string
	sources map[string]model.Querier
	stores  map[string]*sqlite.Querier
	closers []io.Closer
}

// Pinger is a store with a liveness round trip.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRegistry creates an empty registry whose default source is def.
func NewRegistry(def string) *Registry {
	return &Registry{def: def, sources: make(map[string]model.Querier), stores: make(map[string]*sqlite.Querier)}
}

// OpenSQLite opens one SQLite querier per name -> path entry.
func OpenSQLite(paths map[string]string, def string) (*Registry, error) {
	r := NewRegistry(def)
	for _, name := range sortedNames(paths) {
		q, err := sqlite.Open(paths[name])
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("source %s: %w", name, err)
		}
		r.Register(name, q)
		r.stores[name] = q
		r.closers = append(r.closers, q)
	}
	return r, nil
}

// Register adds or replaces a source.
func (r *Registry) Register(name string, q model.Querier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[name] = q
}

// Wrap replaces every registered querier with wrap(name, q). Used to
// layer caching and instrumentation over the raw stores.
func (r *Registry) Wrap(wrap func(name string, q model.Querier) model.Querier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, q := range r.sources {
		r.sources[name] = wrap(name, q)
	}
}

// Get returns the named source; "" selects the default.
func (r *Registry) Get(name string) (model.Querier, error) {
	if name == "" {
		name = r.def
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownSource)
	}
	return q, nil
}

// Pingers returns the opened stores by name, unwrapped, for health checks.
func (r *Registry) Pingers() map[string]Pinger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Pinger, len(r.stores))
	for n, q := range r.stores {
		out[n] = q
	}
	return out
}

// SQLite returns the unwrapped SQLite store opened for name; "" selects
// the default. Used to write into a local mirror.
func (r *Registry) SQLite(name string) (*sqlite.Querier, error) {
	if name == "" {
		name = r.def
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.stores[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownSource)
	}
	return q, nil
}

// Default returns the default source name.
func (r *Registry) Default() string { return r.def }

// Names lists registered sources in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for n := range r.sources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Close closes every store the registry opened itself.
func (r *Registry) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	if len(errs) > 0 {
		log.Printf("[store-registry] close: %v", errors.Join(errs...))
	}
	return errors.Join(errs...)
}

func sortedNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
