//go:build unit

package repositories_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitu/internal/domain/entities"
	domainRepos "github.com/rios0rios0/gitu/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/gitu/internal/infrastructure/repositories"
	"github.com/rios0rios0/gitu/test/infrastructure/repositorydoubles"
)

func TestForgeRegistry(t *testing.T) {
	t.Parallel()

	t.Run("should register and build an adapter by kind", func(t *testing.T) {
		t.Parallel()

		// given
		reg := infraRepos.NewForgeRegistry()
		reg.Register(entities.ForgeGitea, func(coord entities.Coordinate) (domainRepos.ForgeRepository, error) {
			return &repositorydoubles.SpyForgeRepository{
				ForgeKind:  entities.ForgeGitea,
				Coordinate: coord,
			}, nil
		})

		// when
		forge, err := reg.Build(entities.ForgeGitea, entities.Coordinate{Host: "git.example.com"})

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.ForgeGitea, forge.Kind())
		assert.Equal(t, "git.example.com", forge.Config().Host)
	})

	t.Run("should return an error for an unknown kind", func(t *testing.T) {
		t.Parallel()

		// given
		reg := infraRepos.NewForgeRegistry()

		// when
		forge, err := reg.Build("sourcehut", entities.Coordinate{})

		// then
		require.Error(t, err)
		assert.Nil(t, forge)
		assert.Contains(t, err.Error(), "unknown forge kind")
	})

	t.Run("should carry every supported forge in the default registry", func(t *testing.T) {
		t.Parallel()

		// when
		reg := infraRepos.NewDefaultForgeRegistry()

		// then
		assert.ElementsMatch(t, entities.AllForgeKinds(), reg.Kinds())
	})
}
