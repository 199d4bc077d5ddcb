package controllers

import (
	"fmt"
	"strconv"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/gitu/internal/domain/commands"
	"github.com/rios0rios0/gitu/internal/domain/entities"
	domainRepos "github.com/rios0rios0/gitu/internal/domain/repositories"
	"github.com/rios0rios0/gitu/internal/domain/resolvers"
)

// PullRequestController handles the "pullRequest" subcommand family.
type PullRequestController struct {
	resolver *ForgeResolver
	merge    commands.Merge
}

// NewPullRequestController creates a new PullRequestController.
func NewPullRequestController(resolver *ForgeResolver, merge commands.Merge) *PullRequestController {
	return &PullRequestController{resolver: resolver, merge: merge}
}

// GetBind returns the Cobra command metadata for the pull-request
// controller.
func (it *PullRequestController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "pullRequest {get|create|merge} <url> [number]",
		Short: "Work with pull requests",
		Long: `Read, open, or merge pull requests.

  gitu pullRequest get https://github.com/org/repo 42
  gitu pullRequest create "https://github.com/org/repo#feature:main" --title "Feature"
  gitu pullRequest merge https://github.com/org/repo 42 --resolve union`,
	}
}

// Execute dispatches the pull-request action.
func (it *PullRequestController) Execute(cmd *cobra.Command, args []string) {
	action := requireArg(args, 0, "action")
	forge, err := it.resolver.Resolve(cmd, args[1:])
	if err != nil {
		fail(err)
	}

	switch action {
	case "get":
		it.get(cmd, forge, args)
	case "create":
		it.create(cmd, forge)
	case "merge":
		it.mergeAction(cmd, forge, args)
	default:
		fail(fmt.Errorf("unknown pullRequest action %q (want get, create or merge)", action))
	}
}

func (it *PullRequestController) get(cmd *cobra.Command, forge domainRepos.ForgeRepository, args []string) {
	number := parseNumber(requireArg(args, 2, "number"))

	pr, err := forge.PullRequest(cmd.Context(), number)
	if err != nil {
		fail(err)
	}
	render(cmd, pr)
}

func (it *PullRequestController) create(cmd *cobra.Command, forge domainRepos.ForgeRepository) {
	coord := forge.Config()
	title, _ := cmd.Flags().GetString("title")
	body, _ := cmd.Flags().GetString("body")
	draft, _ := cmd.Flags().GetBool("draft")

	source := coord.Branch
	target := coord.TargetBranch
	if source == "" {
		fail(fmt.Errorf("the URL fragment must carry the source branch (#source:target)"))
	}
	if target == "" {
		var err error
		target, err = forge.DefaultBranch(cmd.Context())
		if err != nil {
			fail(err)
		}
	}
	if title == "" {
		title = fmt.Sprintf("Merge %s into %s", source, target)
	}

	pr, err := forge.CreatePullRequest(cmd.Context(), entities.CreatePullRequestOptions{
		Title:        title,
		Body:         body,
		SourceBranch: source,
		TargetBranch: target,
		Draft:        draft,
	})
	if err != nil {
		fail(err)
	}

	logger.Infof("created pull request #%d", pr.Number)
	render(cmd, pr)
}

func (it *PullRequestController) mergeAction(cmd *cobra.Command, forge domainRepos.ForgeRepository, args []string) {
	number := parseNumber(requireArg(args, 2, "number"))

	method, _ := cmd.Flags().GetString("method")
	deleteBranch, _ := cmd.Flags().GetBool("delete-branch")
	waitForBlocked, _ := cmd.Flags().GetString("wait-for-blocked")
	commitTitle, _ := cmd.Flags().GetString("commit-title")
	commitMessage, _ := cmd.Flags().GetString("commit-message")

	message, err := it.merge.Execute(cmd.Context(), forge, commands.MergeRequestOptions{
		MergeOptions: entities.MergeOptions{
			PullNumber:         number,
			Method:             entities.MergeMethod(method),
			CommitTitle:        commitTitle,
			CommitMessage:      commitMessage,
			DeleteSourceBranch: deleteBranch,
			WaitForBlocked:     waitForBlocked,
		},
		Resolver: it.conflictResolver(cmd),
	})
	if err != nil {
		fail(err)
	}

	logger.Infof("merged pull request #%d", number)
	render(cmd, message)
}

// conflictResolver picks the resolver requested with --resolve.
func (it *PullRequestController) conflictResolver(cmd *cobra.Command) domainRepos.Resolver {
	name, _ := cmd.Flags().GetString("resolve")
	switch name {
	case "union":
		return resolvers.Union()
	case "kustomize":
		resource, _ := cmd.Flags().GetString("kustomize-resource")
		return resolvers.Kustomize(resource)
	default:
		return resolvers.Default()
	}
}

// AddFlags adds the pull-request flags to the given Cobra command.
func (it *PullRequestController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "Pull request title")
	cmd.Flags().String("body", "", "Pull request description")
	cmd.Flags().Bool("draft", false, "Open the pull request as a draft")
	cmd.Flags().String("method", "merge", "Merge method (merge, squash, rebase)")
	cmd.Flags().Bool("delete-branch", false, "Delete the source branch after merging")
	cmd.Flags().String("wait-for-blocked", "", "How long to wait on a blocked pull request (e.g. 1h30m)")
	cmd.Flags().String("commit-title", "", "Merge commit title")
	cmd.Flags().String("commit-message", "", "Merge commit message")
	cmd.Flags().String("resolve", "", "Conflict resolver for automatic rebases (union, kustomize)")
	cmd.Flags().String("kustomize-resource", "", "Resource appended by the kustomize resolver")
}

func parseNumber(raw string) int {
	number, err := strconv.Atoi(raw)
	if err != nil {
		fail(fmt.Errorf("invalid pull request number %q", raw))
	}
	return number
}
