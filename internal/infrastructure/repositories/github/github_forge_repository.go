// Package github adapts the uniform forge surface onto the GitHub REST
// API, for both github.com and GitHub Enterprise instances.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	gh "github.com/google/go-github/v66/github"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitu/internal/domain/entities"
	domainRepos "github.com/rios0rios0/gitu/internal/domain/repositories"
	"github.com/rios0rios0/gitu/internal/infrastructure/forge"
	"github.com/rios0rios0/gitu/internal/infrastructure/httpclient"
)

const perPage = 100

// GitHubForgeRepository implements repositories.ForgeRepository for
// GitHub and GitHub Enterprise.
type GitHubForgeRepository struct {
	forge.Base
	client *gh.Client
}

// NewForgeRepository creates an adapter for github.com.
func NewForgeRepository(coord entities.Coordinate) (domainRepos.ForgeRepository, error) {
	return newWithKind(coord, entities.ForgeGitHub)
}

// NewEnterpriseForgeRepository creates an adapter for a GitHub
// Enterprise host, routing through its /api/v3 endpoints.
func NewEnterpriseForgeRepository(coord entities.Coordinate) (domainRepos.ForgeRepository, error) {
	return newWithKind(coord, entities.ForgeGHE)
}

func newWithKind(coord entities.Coordinate, kind entities.ForgeKind) (domainRepos.ForgeRepository, error) {
	// Auth rides as a PAT bearer set by go-github; the kernel supplies
	// UA, CA bundle and the retry policy.
	kernel, err := httpclient.New(httpclient.Options{
		CACertPath: coord.CACertPath,
	})
	if err != nil {
		return nil, err
	}

	client := gh.NewClient(kernel).WithAuthToken(coord.Password)

	if kind == entities.ForgeGHE {
		baseURL := fmt.Sprintf("%s://%s/api/v3/", coord.Protocol, coord.Host)
		uploadURL := fmt.Sprintf("%s://%s/api/uploads/", coord.Protocol, coord.Host)
		client, err = client.WithEnterpriseURLs(baseURL, uploadURL)
		if err != nil {
			return nil, fmt.Errorf("failed to set enterprise URLs: %w", err)
		}
	}

	return &GitHubForgeRepository{
		Base:   forge.Base{ForgeKind: kind, Coordinate: coord},
		client: client,
	}, nil
}

func (it *GitHubForgeRepository) RepoInfo(ctx context.Context) (*entities.RepoSummary, error) {
	repo, _, err := it.client.Repositories.Get(ctx, it.Coordinate.Owner, it.Coordinate.Repo)
	if err != nil {
		return nil, it.classify(err, entities.RepoNotFound)
	}

	return &entities.RepoSummary{
		ID:            strconv.FormatInt(repo.GetID(), 10),
		Slug:          repo.GetFullName(),
		HTTPURL:       repo.GetHTMLURL(),
		Name:          repo.GetName(),
		Description:   repo.GetDescription(),
		Private:       repo.GetPrivate(),
		DefaultBranch: repo.GetDefaultBranch(),
	}, nil
}

func (it *GitHubForgeRepository) ListRepos(ctx context.Context) ([]string, error) {
	urls, err := it.listOrgRepos(ctx)
	if err == nil {
		return urls, nil
	}
	// Fall back to listing user repos if org listing fails.
	return it.listUserRepos(ctx)
}

func (it *GitHubForgeRepository) listOrgRepos(ctx context.Context) ([]string, error) {
	var urls []string
	opts := &gh.RepositoryListByOrgOptions{
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	for {
		repos, resp, err := it.client.Repositories.ListByOrg(ctx, it.Coordinate.Owner, opts)
		if err != nil {
			return nil, it.classify(err, entities.GroupNotFound)
		}
		for _, repo := range repos {
			urls = append(urls, repo.GetHTMLURL())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return urls, nil
}

func (it *GitHubForgeRepository) listUserRepos(ctx context.Context) ([]string, error) {
	var urls []string
	opts := &gh.RepositoryListByUserOptions{
		ListOptions: gh.ListOptions{PerPage: perPage},
		Type:        "owner",
	}

	for {
		repos, resp, err := it.client.Repositories.ListByUser(ctx, it.Coordinate.Owner, opts)
		if err != nil {
			return nil, it.classify(err, entities.GroupNotFound)
		}
		for _, repo := range repos {
			urls = append(urls, repo.GetHTMLURL())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return urls, nil
}

func (it *GitHubForgeRepository) CreateRepo(
	ctx context.Context,
	opts entities.CreateRepoOptions,
) (domainRepos.ForgeRepository, error) {
	spec := &gh.Repository{
		Name:     gh.String(opts.Name),
		Private:  gh.Bool(opts.Private),
		AutoInit: gh.Bool(opts.AutoInit),
	}

	// Creating under an organization first; GitHub answers 404 when the
	// owner is a plain user, in which case the repo goes under the
	// authenticated account.
	_, _, err := it.client.Repositories.Create(ctx, it.Coordinate.Owner, spec)
	if err != nil && responseStatus(err) == http.StatusNotFound {
		_, _, err = it.client.Repositories.Create(ctx, "", spec)
	}
	if err != nil {
		return nil, it.classify(err, entities.InsufficientPermissions)
	}

	logger.Infof("created repository %s/%s", it.Coordinate.Owner, opts.Name)
	return newWithKind(it.Coordinate.WithRepo(opts.Name), it.ForgeKind)
}

func (it *GitHubForgeRepository) DeleteRepo(ctx context.Context) (domainRepos.ForgeRepository, error) {
	_, err := it.client.Repositories.Delete(ctx, it.Coordinate.Owner, it.Coordinate.Repo)
	if err != nil {
		return nil, it.classify(err, entities.InsufficientPermissions)
	}

	logger.Infof("deleted repository %s/%s", it.Coordinate.Owner, it.Coordinate.Repo)
	return newWithKind(it.Coordinate.OrgScope(), it.ForgeKind)
}

func (it *GitHubForgeRepository) ListFiles(ctx context.Context) ([]entities.RepoFile, error) {
	branch, err := it.effectiveBranch(ctx)
	if err != nil {
		return nil, err
	}

	tree, _, err := it.client.Git.GetTree(
		ctx, it.Coordinate.Owner, it.Coordinate.Repo, branch, true,
	)
	if err != nil {
		return nil, it.classify(err, entities.RepoNotFound)
	}

	var files []entities.RepoFile
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		files = append(files, entities.RepoFile{
			Path: entry.GetPath(),
			URL:  entry.GetURL(),
		})
	}
	return files, nil
}

func (it *GitHubForgeRepository) FileContents(ctx context.Context, file entities.RepoFile) ([]byte, error) {
	branch, err := it.effectiveBranch(ctx)
	if err != nil {
		return nil, err
	}

	content, _, _, err := it.client.Repositories.GetContents(
		ctx, it.Coordinate.Owner, it.Coordinate.Repo, file.Path,
		&gh.RepositoryContentGetOptions{Ref: branch},
	)
	if err != nil {
		return nil, it.classify(err, entities.RepoNotFound)
	}
	if content == nil {
		return nil, it.Error(entities.Fatal, "path %q is a directory, not a file", file.Path)
	}

	text, err := content.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode file content: %w", err)
	}
	return []byte(text), nil
}

func (it *GitHubForgeRepository) DefaultBranch(ctx context.Context) (string, error) {
	info, err := it.RepoInfo(ctx)
	if err != nil {
		return "", err
	}
	return info.DefaultBranch, nil
}

func (it *GitHubForgeRepository) Branches(ctx context.Context) ([]entities.Branch, error) {
	var branches []entities.Branch
	opts := &gh.BranchListOptions{
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	for {
		page, resp, err := it.client.Repositories.ListBranches(
			ctx, it.Coordinate.Owner, it.Coordinate.Repo, opts,
		)
		if err != nil {
			return nil, it.classify(err, entities.RepoNotFound)
		}
		for _, branch := range page {
			branches = append(branches, entities.Branch{Name: branch.GetName()})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return branches, nil
}

func (it *GitHubForgeRepository) DeleteBranch(ctx context.Context, branch string) error {
	_, err := it.client.Git.DeleteRef(
		ctx, it.Coordinate.Owner, it.Coordinate.Repo, "heads/"+branch,
	)
	if err != nil {
		return it.classify(err, entities.RepoNotFound)
	}
	return nil
}

func (it *GitHubForgeRepository) PullRequest(ctx context.Context, number int) (*entities.PullRequest, error) {
	pr, _, err := it.client.PullRequests.Get(
		ctx, it.Coordinate.Owner, it.Coordinate.Repo, number,
	)
	if err != nil {
		return nil, it.classify(err, entities.RepoNotFound)
	}
	return mapPullRequest(pr), nil
}

func (it *GitHubForgeRepository) CreatePullRequest(
	ctx context.Context,
	opts entities.CreatePullRequestOptions,
) (*entities.PullRequest, error) {
	spec := &gh.NewPullRequest{
		Title: gh.String(opts.Title),
		Head:  gh.String(opts.SourceBranch),
		Base:  gh.String(opts.TargetBranch),
		Body:  gh.String(opts.Body),
		Draft: gh.Bool(opts.Draft),
	}

	pr, _, err := it.client.PullRequests.Create(
		ctx, it.Coordinate.Owner, it.Coordinate.Repo, spec,
	)
	if err != nil {
		if strings.Contains(err.Error(), "No commits between") {
			return nil, it.Wrap(
				entities.NoCommitsForPullRequest, err,
				"no commits between %s and %s", opts.TargetBranch, opts.SourceBranch,
			)
		}
		return nil, it.classify(err, entities.RepoNotFound)
	}

	logger.Infof("created pull request %s", pr.GetHTMLURL())
	return mapPullRequest(pr), nil
}

func (it *GitHubForgeRepository) MergePullRequest(
	ctx context.Context,
	opts entities.MergeOptions,
) (string, error) {
	result, _, err := it.client.PullRequests.Merge(
		ctx, it.Coordinate.Owner, it.Coordinate.Repo, opts.PullNumber,
		opts.CommitMessage,
		&gh.PullRequestOptions{
			CommitTitle: opts.CommitTitle,
			MergeMethod: string(opts.Method),
		},
	)
	if err != nil {
		return "", it.classifyMergeError(err, opts.PullNumber)
	}
	return result.GetMessage(), nil
}

func (it *GitHubForgeRepository) UpdatePullRequestBranch(ctx context.Context, number int) error {
	_, _, err := it.client.PullRequests.UpdateBranch(
		ctx, it.Coordinate.Owner, it.Coordinate.Repo, number, nil,
	)

	// 202 Accepted is how GitHub acknowledges the async update.
	var accepted *gh.AcceptedError
	if errors.As(err, &accepted) {
		return nil
	}
	if err != nil {
		return it.classify(err, entities.RepoNotFound)
	}
	return nil
}

func (it *GitHubForgeRepository) Webhooks(ctx context.Context) ([]entities.Webhook, error) {
	var hooks []entities.Webhook
	opts := &gh.ListOptions{PerPage: perPage}

	for {
		page, resp, err := it.client.Repositories.ListHooks(
			ctx, it.Coordinate.Owner, it.Coordinate.Repo, opts,
		)
		if err != nil {
			return nil, it.classify(err, entities.RepoNotFound)
		}
		for _, hook := range page {
			hooks = append(hooks, mapWebhook(hook))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return hooks, nil
}

func (it *GitHubForgeRepository) CreateWebhook(
	ctx context.Context,
	opts entities.CreateWebhookOptions,
) (string, error) {
	insecure := "0"
	if opts.InsecureSSL {
		insecure = "1"
	}

	events := make([]string, 0, len(opts.Events))
	for _, event := range opts.Events {
		events = append(events, string(event))
	}

	hook, _, err := it.client.Repositories.CreateHook(
		ctx, it.Coordinate.Owner, it.Coordinate.Repo,
		&gh.Hook{
			Active: gh.Bool(opts.Active),
			Events: events,
			Config: &gh.HookConfig{
				URL:         gh.String(opts.WebhookURL),
				ContentType: gh.String("json"),
				Secret:      gh.String(opts.Secret),
				InsecureSSL: gh.String(insecure),
			},
		},
	)
	if err != nil {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "Hook already exists"):
			return "", it.Wrap(
				entities.WebhookAlreadyExists, err,
				"webhook for %q already exists", opts.WebhookURL,
			)
		case responseStatus(err) == http.StatusUnprocessableEntity:
			return "", it.Wrap(
				entities.UnknownWebhook, err,
				"webhook for %q was rejected", opts.WebhookURL,
			)
		}
		return "", it.classify(err, entities.RepoNotFound)
	}

	return strconv.FormatInt(hook.GetID(), 10), nil
}

func (it *GitHubForgeRepository) WebhookParams(event entities.GitEvent) entities.WebhookParams {
	value := "push"
	if event == entities.EventPullRequest {
		value = "pull_request"
	}
	return entities.WebhookParams{
		EventHeader: "X-GitHub-Event",
		EventValue:  value,
	}
}

func (it *GitHubForgeRepository) Clone(
	ctx context.Context,
	opts domainRepos.CloneOptions,
) (domainRepos.Workspace, error) {
	cloneURL := fmt.Sprintf(
		"%s://%s/%s/%s.git",
		it.Coordinate.Protocol, it.Coordinate.Host,
		it.Coordinate.Owner, it.Coordinate.Repo,
	)
	return it.CloneWorkspace(ctx, cloneURL, opts)
}

// effectiveBranch is the configured branch, falling back to the
// repository default.
func (it *GitHubForgeRepository) effectiveBranch(ctx context.Context) (string, error) {
	if it.Coordinate.Branch != "" {
		return it.Coordinate.Branch, nil
	}
	return it.DefaultBranch(ctx)
}

// mapPullRequest normalizes a GitHub pull request: merged closed PRs are
// Completed, unmerged closed ones Abandoned, and open PRs derive from
// mergeable_state (dirty means content conflicts, blocked means policy).
func mapPullRequest(pr *gh.PullRequest) *entities.PullRequest {
	out := &entities.PullRequest{
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		SourceBranch: pr.GetHead().GetRef(),
		TargetBranch: pr.GetBase().GetRef(),
		MergeStatus:  pr.GetMergeableState(),
		WebURL:       pr.GetHTMLURL(),
	}

	if pr.GetState() != "open" {
		if pr.GetMerged() {
			out.Status = entities.PullRequestCompleted
		} else {
			out.Status = entities.PullRequestAbandoned
		}
		return out
	}

	switch pr.GetMergeableState() {
	case "dirty":
		out.Status = entities.PullRequestConflicts
		out.HasConflicts = true
	case "blocked":
		out.Status = entities.PullRequestBlocked
	default:
		out.Status = entities.PullRequestActive
	}
	return out
}

func mapWebhook(hook *gh.Hook) entities.Webhook {
	out := entities.Webhook{
		ID:     hook.GetID(),
		Name:   hook.GetName(),
		Active: hook.GetActive(),
		Events: hook.Events,
	}
	if cfg := hook.GetConfig(); cfg != nil {
		out.Config = entities.WebhookConfig{
			ContentType: cfg.GetContentType(),
			URL:         cfg.GetURL(),
			InsecureSSL: cfg.GetInsecureSSL() == "1",
		}
	}
	return out
}

// classifyMergeError maps a failed merge call onto the taxonomy: a 405
// naming a required review is a policy block, any other 405, a 409, or
// the 422 conflict text is a content conflict.
func (it *GitHubForgeRepository) classifyMergeError(err error, pullNumber int) error {
	status := responseStatus(err)
	msg := err.Error()

	switch {
	case status == http.StatusMethodNotAllowed &&
		strings.Contains(msg, "approving review is required"):
		return it.Wrap(
			entities.MergeBlockedForPullRequest, err,
			"pull request %d is blocked by review policy", pullNumber,
		).WithPullNumber(pullNumber)
	case status == http.StatusMethodNotAllowed,
		status == http.StatusConflict,
		status == http.StatusUnprocessableEntity &&
			strings.Contains(msg, "merge conflict between base and head"):
		return it.Wrap(
			entities.MergeConflict, err,
			"pull request %d cannot be merged", pullNumber,
		).WithPullNumber(pullNumber)
	}
	return it.classify(err, entities.RepoNotFound)
}

// classify maps generic go-github errors onto the taxonomy; notFoundKind
// is the kind a 404 means for the calling operation.
func (it *GitHubForgeRepository) classify(err error, notFoundKind entities.ErrorKind) error {
	status := responseStatus(err)
	msg := err.Error()

	switch {
	case strings.Contains(msg, "Must have admin rights"):
		return it.Wrap(entities.InsufficientPermissions, err, "operation rejected")
	case status == http.StatusUnauthorized,
		status == http.StatusForbidden &&
			(strings.Contains(msg, "Unauthorized") || strings.Contains(msg, "Bad credentials")):
		return it.Wrap(entities.BadCredentials, err, "authentication failed")
	case status == http.StatusNotFound:
		return it.Wrap(notFoundKind, err, "%s/%s not found", it.Coordinate.Owner, it.Coordinate.Repo)
	}
	return err
}

// responseStatus extracts the HTTP status from a go-github error, or 0.
func responseStatus(err error) int {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode
	}
	return 0
}
