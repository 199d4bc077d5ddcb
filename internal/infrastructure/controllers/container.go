package controllers

import (
	"go.uber.org/dig"

	"github.com/rios0rios0/gitu/internal/domain/entities"
)

// RegisterProviders registers all controller providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register controller constructors
	constructors := []any{
		NewForgeResolver,
		NewCreateController,
		NewDeleteController,
		NewExistsController,
		NewListController,
		NewCloneController,
		NewWebhookController,
		NewPullRequestController,
		NewControllers,
	}
	for _, constructor := range constructors {
		if err := container.Provide(constructor); err != nil {
			return err
		}
	}
	return nil
}

// NewControllers aggregates all controllers into a slice for the App.
func NewControllers(
	createController *CreateController,
	deleteController *DeleteController,
	existsController *ExistsController,
	listController *ListController,
	cloneController *CloneController,
	webhookController *WebhookController,
	pullRequestController *PullRequestController,
) *[]entities.Controller {
	return &[]entities.Controller{
		createController,
		deleteController,
		existsController,
		listController,
		cloneController,
		webhookController,
		pullRequestController,
	}
}
