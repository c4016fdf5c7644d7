// Package factor provides a catalog of the stock-pick, buy and sell factors
// the backtest service understands.
package factor

import (
	"sort"

	"moa/internal/domain"
)

// Registry holds a named collection of factor descriptions for lookup and
// enumeration.
type Registry struct {
	factors map[string]domain.FactorInfo
}

// NewRegistry creates an empty factor Registry.
func NewRegistry() *Registry {
	return &Registry{
		factors: make(map[string]domain.FactorInfo),
	}
}

// Register adds a factor to the registry, keyed by its Name. A later
// registration with the same name replaces the earlier one.
func (r *Registry) Register(f domain.FactorInfo) {
	r.factors[f.Name] = f
}

// Get retrieves a factor by name. The second return value indicates whether
// the factor was found.
func (r *Registry) Get(name string) (domain.FactorInfo, bool) {
	f, ok := r.factors[name]
	return f, ok
}

// List returns the factors of the given kind sorted by name. An empty kind
// lists every factor, grouped pick, buy, sell.
func (r *Registry) List(kind domain.FactorKind) []domain.FactorInfo {
	out := make([]domain.FactorInfo, 0, len(r.factors))
	for _, f := range r.factors {
		if kind == "" || f.Kind == kind {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return kindOrder(out[i].Kind) < kindOrder(out[j].Kind)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Names returns the sorted names of the factors of the given kind.
func (r *Registry) Names(kind domain.FactorKind) []string {
	list := r.List(kind)
	names := make([]string, len(list))
	for i, f := range list {
		names[i] = f.Name
	}
	return names
}

func kindOrder(k domain.FactorKind) int {
	for i, kk := range domain.FactorKinds {
		if kk == k {
			return i
		}
	}
	return len(domain.FactorKinds)
}
