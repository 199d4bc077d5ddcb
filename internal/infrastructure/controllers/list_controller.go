package controllers

import (
	"github.com/spf13/cobra"

	"github.com/rios0rios0/gitu/internal/domain/entities"
)

// ListController handles the "list" subcommand.
type ListController struct {
	resolver *ForgeResolver
}

// NewListController creates a new ListController.
func NewListController(resolver *ForgeResolver) *ListController {
	return &ListController{resolver: resolver}
}

// GetBind returns the Cobra command metadata for the list controller.
func (it *ListController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "list <url>",
		Short: "List repositories",
		Long:  "List the repositories of the organization or user behind the given URL.",
	}
}

// Execute lists the repositories.
func (it *ListController) Execute(cmd *cobra.Command, args []string) {
	forge, err := it.resolver.Resolve(cmd, args)
	if err != nil {
		fail(err)
	}

	urls, err := forge.ListRepos(cmd.Context())
	if err != nil {
		fail(err)
	}
	render(cmd, urls)
}
