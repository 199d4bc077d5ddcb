// Package gitlab adapts the uniform forge surface onto the GitLab API.
package gitlab

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/rios0rios0/gitu/internal/domain/entities"
	domainRepos "github.com/rios0rios0/gitu/internal/domain/repositories"
	"github.com/rios0rios0/gitu/internal/infrastructure/forge"
	"github.com/rios0rios0/gitu/internal/infrastructure/httpclient"
)

const (
	perPage     = 100
	treePerPage = 1000

	// merge_status while GitLab is still computing mergeability.
	mergeStatusChecking = "checking"
	mergeStatusCanMerge = "can_be_merged"
	mergeStatusNoMerge  = "cannot_be_merged"

	mergeabilityPollAttempts = 10
)

// GitLabForgeRepository implements repositories.ForgeRepository for
// GitLab, hosted or self-managed.
type GitLabForgeRepository struct {
	forge.Base
	client *gl.Client

	// sleep is an injection point for the mergeability poll in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewForgeRepository creates an adapter for the GitLab instance at the
// coordinate's host.
func NewForgeRepository(coord entities.Coordinate) (domainRepos.ForgeRepository, error) {
	kernel, err := httpclient.New(httpclient.Options{
		CACertPath: coord.CACertPath,
	})
	if err != nil {
		return nil, err
	}

	client, err := gl.NewClient(
		coord.Password,
		gl.WithBaseURL(fmt.Sprintf("%s://%s", coord.Protocol, coord.Host)),
		gl.WithHTTPClient(kernel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gitlab client: %w", err)
	}

	return &GitLabForgeRepository{
		Base:   forge.Base{ForgeKind: entities.ForgeGitLab, Coordinate: coord},
		client: client,
		sleep:  sleepContext,
	}, nil
}

// pid is the URL-encodable project identifier.
func (it *GitLabForgeRepository) pid() string {
	return it.Coordinate.Owner + "/" + it.Coordinate.Repo
}

func (it *GitLabForgeRepository) RepoInfo(ctx context.Context) (*entities.RepoSummary, error) {
	project, _, err := it.client.Projects.GetProject(
		it.pid(), &gl.GetProjectOptions{}, gl.WithContext(ctx),
	)
	if err != nil {
		return nil, it.classify(err, entities.RepoNotFound)
	}

	return &entities.RepoSummary{
		ID:            strconv.FormatInt(project.ID, 10),
		Slug:          project.PathWithNamespace,
		HTTPURL:       project.WebURL,
		Name:          project.Path,
		Description:   project.Description,
		Private:       project.Visibility == gl.PrivateVisibility,
		DefaultBranch: project.DefaultBranch,
	}, nil
}

func (it *GitLabForgeRepository) ListRepos(ctx context.Context) ([]string, error) {
	groups, _, err := it.client.Groups.ListGroups(
		&gl.ListGroupsOptions{Search: gl.Ptr(it.Coordinate.Owner)},
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, it.classify(err, entities.GroupNotFound)
	}
	if len(groups) == 0 {
		return nil, it.Error(
			entities.GroupNotFound, "no group matches %q", it.Coordinate.Owner,
		)
	}

	var urls []string
	opts := &gl.ListGroupProjectsOptions{
		ListOptions:      gl.ListOptions{PerPage: perPage},
		IncludeSubGroups: gl.Ptr(true),
	}
	for {
		projects, resp, err := it.client.Groups.ListGroupProjects(
			groups[0].ID, opts, gl.WithContext(ctx),
		)
		if err != nil {
			return nil, it.classify(err, entities.GroupNotFound)
		}
		for _, project := range projects {
			urls = append(urls, project.WebURL)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return urls, nil
}

func (it *GitLabForgeRepository) CreateRepo(
	ctx context.Context,
	opts entities.CreateRepoOptions,
) (domainRepos.ForgeRepository, error) {
	visibility := gl.PublicVisibility
	if opts.Private {
		visibility = gl.PrivateVisibility
	}

	project, _, err := it.client.Projects.CreateProject(
		&gl.CreateProjectOptions{
			Name:                 gl.Ptr(opts.Name),
			Visibility:           gl.Ptr(visibility),
			InitializeWithReadme: gl.Ptr(opts.AutoInit),
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, it.classify(err, entities.InsufficientPermissions)
	}

	logger.Infof("created project %s", project.PathWithNamespace)
	return NewForgeRepository(it.Coordinate.WithRepo(project.Path))
}

func (it *GitLabForgeRepository) DeleteRepo(ctx context.Context) (domainRepos.ForgeRepository, error) {
	_, err := it.client.Projects.DeleteProject(
		it.pid(), &gl.DeleteProjectOptions{}, gl.WithContext(ctx),
	)
	if err != nil {
		return nil, it.classify(err, entities.InsufficientPermissions)
	}

	logger.Infof("deleted project %s", it.pid())
	return NewForgeRepository(it.Coordinate.OrgScope())
}

func (it *GitLabForgeRepository) ListFiles(ctx context.Context) ([]entities.RepoFile, error) {
	branch, err := it.effectiveBranch(ctx)
	if err != nil {
		return nil, err
	}

	var files []entities.RepoFile
	opts := &gl.ListTreeOptions{
		ListOptions: gl.ListOptions{PerPage: treePerPage},
		Ref:         gl.Ptr(branch),
		Recursive:   gl.Ptr(true),
	}
	for {
		tree, resp, err := it.client.Repositories.ListTree(
			it.pid(), opts, gl.WithContext(ctx),
		)
		if err != nil {
			return nil, it.classify(err, entities.RepoNotFound)
		}
		for _, node := range tree {
			if node.Type != "blob" {
				continue
			}
			files = append(files, entities.RepoFile{Path: node.Path})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return files, nil
}

func (it *GitLabForgeRepository) FileContents(ctx context.Context, file entities.RepoFile) ([]byte, error) {
	branch, err := it.effectiveBranch(ctx)
	if err != nil {
		return nil, err
	}

	data, _, err := it.client.RepositoryFiles.GetRawFile(
		it.pid(), file.Path,
		&gl.GetRawFileOptions{Ref: gl.Ptr(branch)},
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, it.classify(err, entities.RepoNotFound)
	}
	return data, nil
}

func (it *GitLabForgeRepository) DefaultBranch(ctx context.Context) (string, error) {
	info, err := it.RepoInfo(ctx)
	if err != nil {
		return "", err
	}
	return info.DefaultBranch, nil
}

func (it *GitLabForgeRepository) Branches(ctx context.Context) ([]entities.Branch, error) {
	var branches []entities.Branch
	opts := &gl.ListBranchesOptions{
		ListOptions: gl.ListOptions{PerPage: perPage},
	}
	for {
		page, resp, err := it.client.Branches.ListBranches(
			it.pid(), opts, gl.WithContext(ctx),
		)
		if err != nil {
			return nil, it.classify(err, entities.RepoNotFound)
		}
		for _, branch := range page {
			branches = append(branches, entities.Branch{Name: branch.Name})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return branches, nil
}

func (it *GitLabForgeRepository) DeleteBranch(ctx context.Context, branch string) error {
	_, err := it.client.Branches.DeleteBranch(it.pid(), branch, gl.WithContext(ctx))
	if err != nil {
		return it.classify(err, entities.RepoNotFound)
	}
	return nil
}

func (it *GitLabForgeRepository) PullRequest(ctx context.Context, number int) (*entities.PullRequest, error) {
	mr, _, err := it.client.MergeRequests.GetMergeRequest(
		it.pid(), number, &gl.GetMergeRequestsOptions{}, gl.WithContext(ctx),
	)
	if err != nil {
		return nil, it.classify(err, entities.RepoNotFound)
	}
	return mapMergeRequest(mr), nil
}

func (it *GitLabForgeRepository) CreatePullRequest(
	ctx context.Context,
	opts entities.CreatePullRequestOptions,
) (*entities.PullRequest, error) {
	mr, _, err := it.client.MergeRequests.CreateMergeRequest(
		it.pid(),
		&gl.CreateMergeRequestOptions{
			Title:        gl.Ptr(opts.Title),
			Description:  gl.Ptr(opts.Body),
			SourceBranch: gl.Ptr(opts.SourceBranch),
			TargetBranch: gl.Ptr(opts.TargetBranch),
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		if strings.Contains(err.Error(), "no commits") ||
			strings.Contains(err.Error(), "No commits between") {
			return nil, it.Wrap(
				entities.NoCommitsForPullRequest, err,
				"no commits between %s and %s", opts.TargetBranch, opts.SourceBranch,
			)
		}
		return nil, it.classify(err, entities.RepoNotFound)
	}

	logger.Infof("created merge request %s", mr.WebURL)
	return mapMergeRequest(mr), nil
}

// MergePullRequest polls mergeability until GitLab finished checking,
// then accepts the merge request once.
func (it *GitLabForgeRepository) MergePullRequest(
	ctx context.Context,
	opts entities.MergeOptions,
) (string, error) {
	mergeStatus, err := it.waitForMergeability(ctx, opts.PullNumber)
	if err != nil {
		return "", err
	}
	if mergeStatus != mergeStatusCanMerge {
		return "", it.Error(
			entities.MergeConflict,
			"merge request %d is not mergeable (%s)", opts.PullNumber, mergeStatus,
		).WithPullNumber(opts.PullNumber)
	}

	accept := &gl.AcceptMergeRequestOptions{
		ShouldRemoveSourceBranch: gl.Ptr(opts.DeleteSourceBranch),
	}
	if opts.Method == entities.MergeMethodSquash {
		accept.Squash = gl.Ptr(true)
		if opts.CommitMessage != "" {
			accept.SquashCommitMessage = gl.Ptr(opts.CommitMessage)
		}
	} else if opts.CommitMessage != "" {
		accept.MergeCommitMessage = gl.Ptr(opts.CommitMessage)
	}

	mr, _, err := it.client.MergeRequests.AcceptMergeRequest(
		it.pid(), opts.PullNumber, accept, gl.WithContext(ctx),
	)
	if err != nil {
		return "", it.classifyMergeError(err, opts.PullNumber)
	}
	return mr.MergeCommitSHA, nil
}

// waitForMergeability polls merge_status until it leaves "checking".
func (it *GitLabForgeRepository) waitForMergeability(ctx context.Context, number int) (string, error) {
	for attempt := 0; attempt < mergeabilityPollAttempts; attempt++ {
		mr, _, err := it.client.MergeRequests.GetMergeRequest(
			it.pid(), number, &gl.GetMergeRequestsOptions{}, gl.WithContext(ctx),
		)
		if err != nil {
			return "", it.classify(err, entities.RepoNotFound)
		}
		if mr.MergeStatus != mergeStatusChecking {
			return mr.MergeStatus, nil
		}

		logger.Debugf("merge request %d still checking mergeability", number)
		if err := it.sleep(ctx, pollDelay()); err != nil {
			return "", err
		}
	}
	return "", it.Error(
		entities.Retryable,
		"merge request %d mergeability still checking after %d polls",
		number, mergeabilityPollAttempts,
	).WithPullNumber(number)
}

func (it *GitLabForgeRepository) UpdatePullRequestBranch(ctx context.Context, number int) error {
	_, err := it.client.MergeRequests.RebaseMergeRequest(
		it.pid(), number, nil, gl.WithContext(ctx),
	)
	if err != nil {
		return it.classify(err, entities.RepoNotFound)
	}
	return nil
}

func (it *GitLabForgeRepository) Webhooks(ctx context.Context) ([]entities.Webhook, error) {
	hooks, _, err := it.client.Projects.ListProjectHooks(
		it.pid(),
		&gl.ListProjectHooksOptions{PerPage: perPage},
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, it.classify(err, entities.RepoNotFound)
	}

	var out []entities.Webhook
	for _, hook := range hooks {
		var events []string
		if hook.PushEvents {
			events = append(events, string(entities.EventPush))
		}
		if hook.MergeRequestsEvents {
			events = append(events, string(entities.EventPullRequest))
		}
		out = append(out, entities.Webhook{
			ID:     int64(hook.ID),
			Name:   hook.URL,
			Active: true,
			Events: events,
			Config: entities.WebhookConfig{
				ContentType: "json",
				URL:         hook.URL,
				InsecureSSL: !hook.EnableSSLVerification,
			},
		})
	}
	return out, nil
}

func (it *GitLabForgeRepository) CreateWebhook(
	ctx context.Context,
	opts entities.CreateWebhookOptions,
) (string, error) {
	existing, err := it.Webhooks(ctx)
	if err == nil {
		for _, hook := range existing {
			if hook.Config.URL == opts.WebhookURL {
				return "", it.Error(
					entities.WebhookAlreadyExists,
					"webhook for %q already exists", opts.WebhookURL,
				)
			}
		}
	}

	spec := &gl.AddProjectHookOptions{
		URL:                   gl.Ptr(opts.WebhookURL),
		EnableSSLVerification: gl.Ptr(!opts.InsecureSSL),
	}
	if opts.Secret != "" {
		spec.Token = gl.Ptr(opts.Secret)
	}
	for _, event := range opts.Events {
		switch event {
		case entities.EventPush:
			spec.PushEvents = gl.Ptr(true)
		case entities.EventPullRequest:
			spec.MergeRequestsEvents = gl.Ptr(true)
		default:
			return "", it.Error(
				entities.UnknownWebhook, "unsupported event %q", event,
			)
		}
	}

	hook, _, err := it.client.Projects.AddProjectHook(
		it.pid(), spec, gl.WithContext(ctx),
	)
	if err != nil {
		return "", it.classify(err, entities.RepoNotFound)
	}
	return strconv.Itoa(hook.ID), nil
}

func (it *GitLabForgeRepository) WebhookParams(event entities.GitEvent) entities.WebhookParams {
	value := "Push Hook"
	if event == entities.EventPullRequest {
		value = "Merge Request Hook"
	}
	return entities.WebhookParams{
		EventHeader: "X-Gitlab-Event",
		EventValue:  value,
	}
}

func (it *GitLabForgeRepository) Clone(
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

func (it *GitLabForgeRepository) effectiveBranch(ctx context.Context) (string, error) {
	if it.Coordinate.Branch != "" {
		return it.Coordinate.Branch, nil
	}
	return it.DefaultBranch(ctx)
}

// mapMergeRequest normalizes a GitLab merge request: open MRs with
// cannot_be_merged carry conflicts; closed ones depend on merged_at.
func mapMergeRequest(mr *gl.MergeRequest) *entities.PullRequest {
	out := &entities.PullRequest{
		Number:       mr.IID,
		Title:        mr.Title,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		MergeStatus:  mr.MergeStatus,
		WebURL:       mr.WebURL,
	}

	switch mr.State {
	case "opened":
		if mr.MergeStatus == mergeStatusNoMerge {
			out.Status = entities.PullRequestConflicts
			out.HasConflicts = true
		} else {
			out.Status = entities.PullRequestActive
		}
	case "merged":
		out.Status = entities.PullRequestCompleted
	default:
		if mr.MergedAt != nil {
			out.Status = entities.PullRequestCompleted
		} else {
			out.Status = entities.PullRequestAbandoned
		}
	}
	return out
}

// classifyMergeError maps a failed accept call onto the taxonomy.
func (it *GitLabForgeRepository) classifyMergeError(err error, number int) error {
	status := errorStatus(err)
	switch status {
	case http.StatusMethodNotAllowed, http.StatusNotAcceptable, http.StatusConflict:
		return it.Wrap(
			entities.MergeConflict, err,
			"merge request %d cannot be merged", number,
		).WithPullNumber(number)
	case http.StatusUnauthorized:
		return it.Wrap(entities.BadCredentials, err, "authentication failed")
	}
	return err
}

func (it *GitLabForgeRepository) classify(err error, notFoundKind entities.ErrorKind) error {
	switch errorStatus(err) {
	case http.StatusUnauthorized:
		return it.Wrap(entities.BadCredentials, err, "authentication failed")
	case http.StatusForbidden:
		if strings.Contains(err.Error(), "Unauthorized") {
			return it.Wrap(entities.BadCredentials, err, "authentication failed")
		}
	case http.StatusNotFound:
		return it.Wrap(notFoundKind, err, "%s not found", it.pid())
	}
	return err
}

// errorStatus extracts the HTTP status from a client-go error, or 0.
func errorStatus(err error) int {
	var glErr *gl.ErrorResponse
	if errors.As(err, &glErr) && glErr.Response != nil {
		return glErr.Response.StatusCode
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// pollDelay is the randomized backoff between mergeability polls.
func pollDelay() time.Duration {
	return 5*time.Second + time.Duration(rand.Int64N(int64(5*time.Second)))
}
