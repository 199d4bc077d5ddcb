package repositories

import (
	"go.uber.org/dig"

	adoRepo "github.com/rios0rios0/gitu/internal/infrastructure/repositories/azuredevops"
	bbRepo "github.com/rios0rios0/gitu/internal/infrastructure/repositories/bitbucket"
	giteaRepo "github.com/rios0rios0/gitu/internal/infrastructure/repositories/gitea"
	ghRepo "github.com/rios0rios0/gitu/internal/infrastructure/repositories/github"
	glRepo "github.com/rios0rios0/gitu/internal/infrastructure/repositories/gitlab"
	gogsRepo "github.com/rios0rios0/gitu/internal/infrastructure/repositories/gogs"

	"github.com/rios0rios0/gitu/internal/domain/entities"
)

// NewDefaultForgeRegistry builds the registry with every supported forge
// adapter.
func NewDefaultForgeRegistry() *ForgeRegistry {
	reg := NewForgeRegistry()
	reg.Register(entities.ForgeGitHub, ghRepo.NewForgeRepository)
	reg.Register(entities.ForgeGHE, ghRepo.NewEnterpriseForgeRepository)
	reg.Register(entities.ForgeGitLab, glRepo.NewForgeRepository)
	reg.Register(entities.ForgeGitea, giteaRepo.NewForgeRepository)
	reg.Register(entities.ForgeGogs, gogsRepo.NewForgeRepository)
	reg.Register(entities.ForgeBitbucket, bbRepo.NewForgeRepository)
	reg.Register(entities.ForgeAzure, adoRepo.NewForgeRepository)
	return reg
}

// RegisterProviders registers all repository providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	if err := container.Provide(NewDefaultForgeRegistry); err != nil {
		return err
	}
	if err := container.Provide(NewForgeDetector); err != nil {
		return err
	}
	if err := container.Provide(NewForgeProvider); err != nil {
		return err
	}
	return nil
}
