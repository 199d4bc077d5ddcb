package repositories

import (
	"context"

	"github.com/rios0rios0/gitu/internal/domain/entities"
)

// ForgeRepository is the uniform capability surface over a hosted Git
// forge. One instance is bound to a single coordinate; operations execute
// in call order and an instance is not safe for concurrent use.
//
// Every error returned by an implementation carries the
// entities.ErrorKind taxonomy.
type ForgeRepository interface {
	// Kind reports which forge backs this instance.
	Kind() entities.ForgeKind

	// Config returns a defensive copy of the bound coordinate.
	Config() entities.Coordinate

	// RepoInfo fetches the summary of the bound repository.
	RepoInfo(ctx context.Context) (*entities.RepoSummary, error)

	// ListRepos returns the canonical URLs of every repository in the
	// bound organization or user scope.
	ListRepos(ctx context.Context) ([]string, error)

	// CreateRepo creates a repository under the bound owner and returns
	// a sibling instance bound to it. With AutoInit an initial commit
	// exists on the default branch before the call returns.
	CreateRepo(ctx context.Context, opts entities.CreateRepoOptions) (ForgeRepository, error)

	// DeleteRepo deletes the bound repository and returns a sibling
	// instance bound to the parent organization scope.
	DeleteRepo(ctx context.Context) (ForgeRepository, error)

	// ListFiles enumerates the files on the configured branch.
	ListFiles(ctx context.Context) ([]entities.RepoFile, error)

	// FileContents downloads one file from the configured branch.
	FileContents(ctx context.Context, file entities.RepoFile) ([]byte, error)

	// DefaultBranch reports the repository's default branch name.
	DefaultBranch(ctx context.Context) (string, error)

	// Branches lists the repository branches.
	Branches(ctx context.Context) ([]entities.Branch, error)

	// DeleteBranch removes one branch.
	DeleteBranch(ctx context.Context, branch string) error

	// PullRequest reads the current state of one pull request.
	PullRequest(ctx context.Context, number int) (*entities.PullRequest, error)

	// CreatePullRequest opens a pull request. The returned number is
	// immediately usable with PullRequest, though mergeability may
	// still be checking.
	CreatePullRequest(ctx context.Context, opts entities.CreatePullRequestOptions) (*entities.PullRequest, error)

	// MergePullRequest attempts the merge once (under the HTTP retry
	// policy only) and returns the forge's merge message or id.
	MergePullRequest(ctx context.Context, opts entities.MergeOptions) (string, error)

	// UpdatePullRequestBranch refreshes the source branch from the
	// target. Semantics differ per forge; best-effort.
	UpdatePullRequestBranch(ctx context.Context, number int) error

	// Webhooks lists the hooks configured on the repository.
	Webhooks(ctx context.Context) ([]entities.Webhook, error)

	// CreateWebhook provisions a hook and returns its id.
	CreateWebhook(ctx context.Context, opts entities.CreateWebhookOptions) (string, error)

	// WebhookParams returns the header/value selectors CI templates use
	// to filter deliveries of the given event.
	WebhookParams(event entities.GitEvent) entities.WebhookParams

	// Clone makes a local clone of the bound repository with the
	// credentials baked into the remote URL.
	Clone(ctx context.Context, opts CloneOptions) (Workspace, error)
}

// CloneOptions holds the inputs for ForgeRepository.Clone.
type CloneOptions struct {
	LocalDir    string
	UserConfig  *entities.UserConfig
	ExtraConfig map[string]string
}
