package controllers

import (
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/gitu/internal/domain/entities"
)

// CreateController handles the "create" subcommand.
type CreateController struct {
	resolver *ForgeResolver
}

// NewCreateController creates a new CreateController.
func NewCreateController(resolver *ForgeResolver) *CreateController {
	return &CreateController{resolver: resolver}
}

// GetBind returns the Cobra command metadata for the create controller.
func (it *CreateController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "create <url> <name>",
		Short: "Create a repository",
		Long: `Create a repository under the organization or user of the given URL.
By default the repository is public and initialized with a first commit.`,
	}
}

// Execute creates the repository.
func (it *CreateController) Execute(cmd *cobra.Command, args []string) {
	forge, err := it.resolver.Resolve(cmd, args)
	if err != nil {
		fail(err)
	}

	name := requireArg(args, 1, "name")
	private, _ := cmd.Flags().GetBool("private")
	noInit, _ := cmd.Flags().GetBool("no-auto-init")

	opts := entities.NewCreateRepoOptions(name)
	opts.Private = private
	opts.AutoInit = !noInit

	created, err := forge.CreateRepo(cmd.Context(), opts)
	if err != nil {
		fail(err)
	}

	logger.Infof("repository created on %s", created.Kind())
	render(cmd, created.Config().URL())
}

// AddFlags adds the create-specific flags to the given Cobra command.
func (it *CreateController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("private", false, "Create the repository as private")
	cmd.Flags().Bool("no-auto-init", false, "Skip the initial commit")
}
