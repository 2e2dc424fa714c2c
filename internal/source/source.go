// Package source abstracts procurement-notice export providers.
//
// A provider fetches one day's export as a set of named tabular datasets.
// Downstream stages depend only on the Source interface, so additional
// providers (TED, bund.de) can be added without touching the importer.
package source

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// Dataset is one named table from a day's export.
type Dataset struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// Source is a single notice-export provider.
type Source interface {
	// Name returns the unique provider identifier (e.g., "oeffentlichevergabe").
	Name() string

	// Fetch downloads one day's export and parses it into named datasets.
	// An empty map with a nil error means "no data published for this day"
	// (weekends, holidays) and is not a failure.
	Fetch(ctx context.Context, day time.Time) (map[string]*Dataset, error)

	// ImportOrder returns dataset names in foreign-key dependency order.
	ImportOrder() []string
}

// Registry maps provider names to their implementations.
type Registry struct {
	sources map[string]Source
	order   []string // registration order for deterministic listing
}

// NewRegistry creates a registry populated with all providers.
func NewRegistry(opts ProviderOptions) *Registry {
	r := &Registry{sources: make(map[string]Source)}
	r.Register(NewOeffentlicheVergabe(opts))
	return r
}

// Register adds a provider to the registry.
func (r *Registry) Register(s Source) {
	name := s.Name()
	r.sources[name] = s
	r.order = append(r.order, name)
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Source, error) {
	s, ok := r.sources[name]
	if !ok {
		return nil, eris.Errorf("source: unknown provider %q (known: %v)", name, r.order)
	}
	return s, nil
}
