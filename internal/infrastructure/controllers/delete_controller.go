package controllers

import (
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/gitu/internal/domain/entities"
)

// DeleteController handles the "delete" subcommand.
type DeleteController struct {
	resolver *ForgeResolver
}

// NewDeleteController creates a new DeleteController.
func NewDeleteController(resolver *ForgeResolver) *DeleteController {
	return &DeleteController{resolver: resolver}
}

// GetBind returns the Cobra command metadata for the delete controller.
func (it *DeleteController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "delete <url>",
		Short: "Delete a repository",
		Long:  "Delete the repository behind the given URL.",
	}
}

// Execute deletes the repository.
func (it *DeleteController) Execute(cmd *cobra.Command, args []string) {
	forge, err := it.resolver.Resolve(cmd, args)
	if err != nil {
		fail(err)
	}

	parent, err := forge.DeleteRepo(cmd.Context())
	if err != nil {
		fail(err)
	}

	logger.Infof("repository deleted on %s", parent.Kind())
	render(cmd, "deleted "+forge.Config().URL())
}
