// Package gogs adapts the uniform forge surface onto Gogs instances.
// Gogs exposes the Gitea API shape, so the adapter is the Gitea one
// tagged with the gogs kind: webhook types and event headers differ,
// semantics do not.
package gogs

import (
	"github.com/rios0rios0/gitu/internal/domain/entities"
	domainRepos "github.com/rios0rios0/gitu/internal/domain/repositories"
	"github.com/rios0rios0/gitu/internal/infrastructure/repositories/gitea"
)

// NewForgeRepository creates an adapter for a Gogs host.
func NewForgeRepository(coord entities.Coordinate) (domainRepos.ForgeRepository, error) {
	return gitea.NewWithKind(coord, entities.ForgeGogs)
}
