package repositories

import (
	"context"

	"github.com/rios0rios0/gitu/internal/domain/entities"
	domainRepos "github.com/rios0rios0/gitu/internal/domain/repositories"
)

// ForgeProvider is the single entry point from a URL plus credentials to
// a ready adapter: parse, detect, build.
type ForgeProvider struct {
	detector *ForgeDetector
	registry *ForgeRegistry
}

// NewForgeProvider creates a provider over the given detector and
// registry.
func NewForgeProvider(detector *ForgeDetector, registry *ForgeRegistry) *ForgeProvider {
	return &ForgeProvider{detector: detector, registry: registry}
}

// FromURL builds an adapter for the repository or organization behind
// rawURL.
func (it *ForgeProvider) FromURL(
	ctx context.Context,
	rawURL string,
	creds entities.Credentials,
) (domainRepos.ForgeRepository, error) {
	coord, err := entities.ParseGitURL(rawURL)
	if err != nil {
		return nil, err
	}
	return it.FromCoordinate(ctx, coord.ApplyCredentials(creds))
}

// FromCoordinate builds an adapter for an already-parsed coordinate.
func (it *ForgeProvider) FromCoordinate(
	ctx context.Context,
	coord entities.Coordinate,
) (domainRepos.ForgeRepository, error) {
	kind, resolved, err := it.detector.Detect(ctx, coord)
	if err != nil {
		return nil, err
	}
	return it.registry.Build(kind, resolved)
}
