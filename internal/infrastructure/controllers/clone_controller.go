package controllers

import (
	"path/filepath"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/gitu/internal/domain/entities"
	domainRepos "github.com/rios0rios0/gitu/internal/domain/repositories"
)

// CloneController handles the "clone" subcommand.
type CloneController struct {
	resolver *ForgeResolver
}

// NewCloneController creates a new CloneController.
func NewCloneController(resolver *ForgeResolver) *CloneController {
	return &CloneController{resolver: resolver}
}

// GetBind returns the Cobra command metadata for the clone controller.
func (it *CloneController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "clone <url> [dir]",
		Short: "Clone a repository",
		Long: `Clone the repository behind the given URL with the resolved credentials
baked into the remote.`,
	}
}

// Execute clones the repository.
func (it *CloneController) Execute(cmd *cobra.Command, args []string) {
	forge, err := it.resolver.Resolve(cmd, args)
	if err != nil {
		fail(err)
	}

	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" && len(args) > 1 {
		dir = args[1]
	}
	if dir == "" {
		dir = forge.Config().Repo
	}

	ws, err := forge.Clone(cmd.Context(), domainRepos.CloneOptions{
		LocalDir: dir,
	})
	if err != nil {
		fail(err)
	}

	abs, _ := filepath.Abs(ws.Dir())
	logger.Infof("cloned %s", forge.Config().URL())
	render(cmd, abs)
}

// AddFlags adds the clone-specific flags to the given Cobra command.
func (it *CloneController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("dir", "", "Target directory (default: repository name)")
}
