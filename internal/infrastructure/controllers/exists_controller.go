package controllers

import (
	"github.com/spf13/cobra"

	"github.com/rios0rios0/gitu/internal/domain/entities"
)

// ExistsController handles the "exists" subcommand.
type ExistsController struct {
	resolver *ForgeResolver
}

// NewExistsController creates a new ExistsController.
func NewExistsController(resolver *ForgeResolver) *ExistsController {
	return &ExistsController{resolver: resolver}
}

// GetBind returns the Cobra command metadata for the exists controller.
func (it *ExistsController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "exists <url>",
		Short: "Check whether a repository exists",
		Long:  "Check whether the repository behind the given URL exists and is reachable.",
	}
}

// Execute reports repository existence; a missing repository is not an
// error, every other failure is.
func (it *ExistsController) Execute(cmd *cobra.Command, args []string) {
	forge, err := it.resolver.Resolve(cmd, args)
	if err != nil {
		fail(err)
	}

	_, err = forge.RepoInfo(cmd.Context())
	if entities.IsKind(err, entities.RepoNotFound) {
		render(cmd, "false")
		return
	}
	if err != nil {
		fail(err)
	}

	render(cmd, "true")
}
