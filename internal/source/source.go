// Package source normalizes raw permit records from each upstream
// government dataset into the canonical Permit shape. One normalizer per
// source behind a common interface; each parser is independently testable
// and shares nothing with the others except the output type.
package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/permit-scout/internal/config"
	"github.com/sells-group/permit-scout/internal/fetcher"
	"github.com/sells-group/permit-scout/internal/model"
)

// Source fetches and normalizes one upstream permit dataset. Fetch
// returns fully classified Permit records; records missing the permit
// number are dropped during parsing since they cannot be reconciled.
type Source interface {
	// Name returns the unique identifier for this source.
	Name() string

	// Fetch pulls all pages matching the configured filters. fromDate
	// (YYYY-MM-DD, optional) restricts to records with status activity on
	// or after that date, for sources that support it.
	Fetch(ctx context.Context, f fetcher.Fetcher, cfg *config.Config, fromDate string) ([]model.Permit, error)
}

// Registry maps source names to their implementations.
type Registry struct {
	sources map[string]Source
	order   []string // insertion order for deterministic iteration
}

// NewRegistry creates a registry populated with all upstream sources.
func NewRegistry() *Registry {
	r := &Registry{sources: make(map[string]Source)}
	r.Register(&Permits{})
	r.Register(&Legacy{})
	r.Register(&Submitted{})
	return r
}

// Register adds a source to the registry.
func (r *Registry) Register(s Source) {
	name := s.Name()
	r.sources[name] = s
	r.order = append(r.order, name)
}

// Get returns a source by name.
func (r *Registry) Get(name string) (Source, error) {
	s, ok := r.sources[name]
	if !ok {
		return nil, eris.Errorf("source: unknown source %q (valid: %v)", name, r.order)
	}
	return s, nil
}

// All returns every source in registration order.
func (r *Registry) All() []Source {
	out := make([]Source, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.sources[name])
	}
	return out
}

// Names returns the registered source names in order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}
