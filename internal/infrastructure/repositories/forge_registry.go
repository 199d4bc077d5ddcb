package repositories

import (
	"fmt"

	"github.com/rios0rios0/gitu/internal/domain/entities"
	domainRepos "github.com/rios0rios0/gitu/internal/domain/repositories"
)

// ForgeFactory is a constructor function that creates an adapter bound
// to the given coordinate.
type ForgeFactory func(coord entities.Coordinate) (domainRepos.ForgeRepository, error)

// ForgeRegistry manages all registered forge adapter implementations.
type ForgeRegistry struct {
	factories map[entities.ForgeKind]ForgeFactory
}

// NewForgeRegistry creates an empty forge registry.
func NewForgeRegistry() *ForgeRegistry {
	return &ForgeRegistry{
		factories: make(map[entities.ForgeKind]ForgeFactory),
	}
}

// Register adds an adapter factory under the given kind.
func (r *ForgeRegistry) Register(kind entities.ForgeKind, factory ForgeFactory) {
	r.factories[kind] = factory
}

// Build returns a configured adapter for the given kind and coordinate.
func (r *ForgeRegistry) Build(
	kind entities.ForgeKind,
	coord entities.Coordinate,
) (domainRepos.ForgeRepository, error) {
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("unknown forge kind: %q", kind)
	}
	return factory(coord)
}

// Kinds returns the list of registered forge kinds.
func (r *ForgeRegistry) Kinds() []entities.ForgeKind {
	kinds := make([]entities.ForgeKind, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	return kinds
}
