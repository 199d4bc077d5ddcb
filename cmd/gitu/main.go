package main

import (
	"context"
	"os"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/gitu/config"
	"github.com/rios0rios0/gitu/internal"
)

// flagAdder lets a controller contribute its own flags.
type flagAdder interface {
	AddFlags(cmd *cobra.Command)
}

func buildRootCommand() *cobra.Command {
	//nolint:exhaustruct // Minimal Command initialization with required fields only
	cmd := &cobra.Command{
		Use:   "gitu",
		Short: "Uniform client for hosted Git forges",
		Long: `A CLI that talks to GitHub, GitHub Enterprise, GitLab, Gitea, Gogs,
Bitbucket and Azure DevOps through one surface: repositories, branches,
pull requests, webhooks, files, and local clones with automatic
rebase-and-resolve merging.

The forge behind a URL is deduced automatically, probing self-hosted
instances when the host is not a well-known one.`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			applyVerbosity(cmd)
		},
	}

	// Global persistent flags
	cmd.PersistentFlags().String("url", "", "Repository or organization URL (or set GIT_URL)")
	cmd.PersistentFlags().String("username", "", "Forge username (or set GIT_USERNAME)")
	cmd.PersistentFlags().String("token", "", "Auth token (or set GIT_TOKEN, or use ~/"+config.FileName+")")
	cmd.PersistentFlags().String("ca-cert", "", "Path to a CA bundle for self-hosted TLS (or set GIT_CA_CERT)")
	cmd.PersistentFlags().StringP("output", "o", "text", "Output format (text, json, yaml)")
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Only log errors")

	return cmd
}

// applyVerbosity orders the logging level from the flags and the
// VERBOSE_LOGGING environment variable.
func applyVerbosity(cmd *cobra.Command) {
	debug, _ := cmd.Flags().GetBool("debug")
	quiet, _ := cmd.Flags().GetBool("quiet")

	switch {
	case quiet:
		logger.SetLevel(logger.ErrorLevel)
	case debug || config.ReadEnvironment().VerboseLogging:
		logger.SetLevel(logger.DebugLevel)
	}
}

func addSubcommands(rootCmd *cobra.Command, app *internal.App) {
	for _, controller := range app.GetControllers() {
		bind := controller.GetBind()
		ctrl := controller // capture for closure
		//nolint:exhaustruct // Minimal Command initialization with required fields only
		subCmd := &cobra.Command{
			Use:   bind.Use,
			Short: bind.Short,
			Long:  bind.Long,
			Run: func(command *cobra.Command, arguments []string) {
				ctrl.Execute(command, arguments)
			},
		}

		// Add controller-specific flags
		if adder, ok := ctrl.(flagAdder); ok {
			adder.AddFlags(subCmd)
		}

		rootCmd.AddCommand(subCmd)
	}
}

func main() {
	//nolint:exhaustruct // Minimal TextFormatter initialization with required fields only
	logger.SetFormatter(&logger.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})

	app := injectApp()
	cobraRoot := buildRootCommand()
	addSubcommands(cobraRoot, app)

	if err := cobraRoot.ExecuteContext(context.Background()); err != nil {
		logger.Errorf("Error executing 'gitu': %s", err)
		os.Exit(1)
	}
}
