// Package azuredevops adapts the uniform forge surface onto the Azure
// DevOps Services REST API.
package azuredevops

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitu/internal/domain/entities"
	domainRepos "github.com/rios0rios0/gitu/internal/domain/repositories"
	"github.com/rios0rios0/gitu/internal/infrastructure/forge"
	"github.com/rios0rios0/gitu/internal/infrastructure/httpclient"
)

const (
	apiVersion = "7.0"
	// Webhook subscriptions live behind an older api-version.
	hooksAPIVersion = "6.0"

	zeroObjectID = "0000000000000000000000000000000000000000"
)

// AzureForgeRepository implements repositories.ForgeRepository for Azure
// DevOps. File listing and download are not implemented; no caller has
// needed them yet and the adapter says so instead of guessing.
type AzureForgeRepository struct {
	forge.Base
	rest *httpclient.REST
}

// NewForgeRepository creates an adapter for dev.azure.com. The
// coordinate must carry the project for repository-level operations.
func NewForgeRepository(coord entities.Coordinate) (domainRepos.ForgeRepository, error) {
	kernel, err := httpclient.New(httpclient.Options{
		// Azure accepts a PAT as the basic-auth password with any
		// username.
		Username:   coord.Username,
		Token:      coord.Password,
		CACertPath: coord.CACertPath,
	})
	if err != nil {
		return nil, err
	}

	base := fmt.Sprintf("%s://%s/%s", coord.Protocol, coord.Host, coord.Owner)
	return &AzureForgeRepository{
		Base: forge.Base{ForgeKind: entities.ForgeAzure, Coordinate: coord},
		rest: httpclient.NewREST(base, kernel),
	}, nil
}

type projectPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type repoPayload struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	RemoteURL     string         `json:"remoteUrl"`
	WebURL        string         `json:"webUrl"`
	DefaultBranch string         `json:"defaultBranch"`
	Project       projectPayload `json:"project"`
}

type listPayload[T any] struct {
	Value []T `json:"value"`
	Count int `json:"count"`
}

type refPayload struct {
	Name     string `json:"name"`
	ObjectID string `json:"objectId"`
}

type commitRefPayload struct {
	CommitID string `json:"commitId"`
}

type prPayload struct {
	ID                    int              `json:"pullRequestId"`
	Title                 string           `json:"title"`
	Status                string           `json:"status"`
	MergeStatus           string           `json:"mergeStatus"`
	SourceRefName         string           `json:"sourceRefName"`
	TargetRefName         string           `json:"targetRefName"`
	LastMergeSourceCommit commitRefPayload `json:"lastMergeSourceCommit"`
}

type subscriptionPayload struct {
	ID             string            `json:"id"`
	EventType      string            `json:"eventType"`
	Status         string            `json:"status"`
	ConsumerInputs map[string]string `json:"consumerInputs"`
}

func (it *AzureForgeRepository) repoPath() string {
	return fmt.Sprintf(
		"/%s/_apis/git/repositories/%s",
		url.PathEscape(it.Coordinate.Project), url.PathEscape(it.Coordinate.Repo),
	)
}

func (it *AzureForgeRepository) RepoInfo(ctx context.Context) (*entities.RepoSummary, error) {
	var repo repoPayload
	path := it.repoPath() + "?api-version=" + apiVersion
	if err := it.rest.Do(ctx, http.MethodGet, path, nil, &repo); err != nil {
		return nil, it.classify(err, entities.RepoNotFound)
	}
	return mapRepo(repo), nil
}

func mapRepo(repo repoPayload) *entities.RepoSummary {
	return &entities.RepoSummary{
		ID:            repo.ID,
		Slug:          repo.Project.Name + "/" + repo.Name,
		HTTPURL:       repo.WebURL,
		Name:          repo.Name,
		DefaultBranch: strings.TrimPrefix(repo.DefaultBranch, "refs/heads/"),
	}
}

// ListRepos walks every repository the PAT can see: the bound project's
// when one is set, otherwise all projects via continuation-token
// pagination.
func (it *AzureForgeRepository) ListRepos(ctx context.Context) ([]string, error) {
	projects, err := it.projectNames(ctx)
	if err != nil {
		return nil, err
	}

	var urls []string
	for _, project := range projects {
		var page listPayload[repoPayload]
		path := fmt.Sprintf(
			"/%s/_apis/git/repositories?api-version=%s",
			url.PathEscape(project), apiVersion,
		)
		if err := it.rest.Do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, it.classify(err, entities.GroupNotFound)
		}
		for _, repo := range page.Value {
			urls = append(urls, repo.WebURL)
		}
	}
	return urls, nil
}

func (it *AzureForgeRepository) projectNames(ctx context.Context) ([]string, error) {
	if it.Coordinate.Project != "" {
		return []string{it.Coordinate.Project}, nil
	}

	var names []string
	continuation := ""
	for {
		path := "/_apis/projects?api-version=" + apiVersion
		if continuation != "" {
			path += "&continuationToken=" + url.QueryEscape(continuation)
		}

		data, headers, err := it.rest.DoRaw(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, it.classify(err, entities.GroupNotFound)
		}
		var page listPayload[projectPayload]
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("failed to decode projects response: %w", err)
		}
		for _, project := range page.Value {
			names = append(names, project.Name)
		}

		continuation = headers.Get("x-ms-continuationtoken")
		if continuation == "" {
			break
		}
	}
	return names, nil
}

func (it *AzureForgeRepository) CreateRepo(
	ctx context.Context,
	opts entities.CreateRepoOptions,
) (domainRepos.ForgeRepository, error) {
	var project projectPayload
	projectPath := fmt.Sprintf(
		"/_apis/projects/%s?api-version=%s",
		url.PathEscape(it.Coordinate.Project), apiVersion,
	)
	if err := it.rest.Do(ctx, http.MethodGet, projectPath, nil, &project); err != nil {
		return nil, it.classify(err, entities.GroupNotFound)
	}

	body := map[string]any{
		"name":    opts.Name,
		"project": map[string]string{"id": project.ID},
	}
	var created repoPayload
	path := fmt.Sprintf(
		"/%s/_apis/git/repositories?api-version=%s",
		url.PathEscape(it.Coordinate.Project), apiVersion,
	)
	if err := it.rest.Do(ctx, http.MethodPost, path, body, &created); err != nil {
		return nil, it.classify(err, entities.InsufficientPermissions)
	}
	logger.Infof("created repository %s/%s", it.Coordinate.Project, created.Name)

	sibling, err := NewForgeRepository(it.Coordinate.WithRepo(created.Name))
	if err != nil {
		return nil, err
	}

	// Azure repositories start empty; the initial commit is a README
	// pushed through the pushes endpoint.
	if opts.AutoInit {
		az := sibling.(*AzureForgeRepository)
		if err := az.pushInitialReadme(ctx, opts.Name); err != nil {
			return nil, err
		}
	}
	return sibling, nil
}

// pushInitialReadme creates the first commit on the default branch.
func (it *AzureForgeRepository) pushInitialReadme(ctx context.Context, name string) error {
	body := map[string]any{
		"refUpdates": []map[string]string{{
			"name":        "refs/heads/main",
			"oldObjectId": zeroObjectID,
		}},
		"commits": []map[string]any{{
			"comment": "Initial commit",
			"changes": []map[string]any{{
				"changeType": "add",
				"item":       map[string]string{"path": "/README.md"},
				"newContent": map[string]string{
					"content":     "# " + name + "\n",
					"contentType": "rawtext",
				},
			}},
		}},
	}

	path := it.repoPath() + "/pushes?api-version=" + apiVersion
	if err := it.rest.Do(ctx, http.MethodPost, path, body, nil); err != nil {
		return it.classify(err, entities.InsufficientPermissions)
	}
	return nil
}

func (it *AzureForgeRepository) DeleteRepo(ctx context.Context) (domainRepos.ForgeRepository, error) {
	// Deletion goes by repository id, not name.
	info, err := it.RepoInfo(ctx)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf(
		"/%s/_apis/git/repositories/%s?api-version=%s",
		url.PathEscape(it.Coordinate.Project), info.ID, apiVersion,
	)
	if err := it.rest.Do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return nil, it.classify(err, entities.InsufficientPermissions)
	}

	logger.Infof("deleted repository %s/%s", it.Coordinate.Project, it.Coordinate.Repo)
	return NewForgeRepository(it.Coordinate.OrgScope())
}

func (it *AzureForgeRepository) ListFiles(_ context.Context) ([]entities.RepoFile, error) {
	return nil, it.Error(entities.Fatal, "file listing is not implemented for Azure DevOps")
}

func (it *AzureForgeRepository) FileContents(_ context.Context, file entities.RepoFile) ([]byte, error) {
	return nil, it.Error(
		entities.Fatal, "file download (%q) is not implemented for Azure DevOps", file.Path,
	)
}

func (it *AzureForgeRepository) DefaultBranch(ctx context.Context) (string, error) {
	info, err := it.RepoInfo(ctx)
	if err != nil {
		return "", err
	}
	return info.DefaultBranch, nil
}

func (it *AzureForgeRepository) Branches(ctx context.Context) ([]entities.Branch, error) {
	var page listPayload[refPayload]
	path := it.repoPath() + "/refs?filter=heads/&api-version=" + apiVersion
	if err := it.rest.Do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, it.classify(err, entities.RepoNotFound)
	}

	branches := make([]entities.Branch, 0, len(page.Value))
	for _, ref := range page.Value {
		branches = append(branches, entities.Branch{
			Name: strings.TrimPrefix(ref.Name, "refs/heads/"),
		})
	}
	return branches, nil
}

func (it *AzureForgeRepository) DeleteBranch(ctx context.Context, branch string) error {
	current, err := it.branchObjectID(ctx, branch)
	if err != nil {
		return err
	}

	body := []map[string]string{{
		"name":        "refs/heads/" + branch,
		"oldObjectId": current,
		"newObjectId": zeroObjectID,
	}}
	path := it.repoPath() + "/refs?api-version=" + apiVersion
	if err := it.rest.Do(ctx, http.MethodPost, path, body, nil); err != nil {
		return it.classify(err, entities.RepoNotFound)
	}
	return nil
}

func (it *AzureForgeRepository) branchObjectID(ctx context.Context, branch string) (string, error) {
	var page listPayload[refPayload]
	path := fmt.Sprintf(
		"%s/refs?filter=heads/%s&api-version=%s",
		it.repoPath(), url.QueryEscape(branch), apiVersion,
	)
	if err := it.rest.Do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return "", it.classify(err, entities.RepoNotFound)
	}
	for _, ref := range page.Value {
		if ref.Name == "refs/heads/"+branch {
			return ref.ObjectID, nil
		}
	}
	return "", it.Error(entities.RepoNotFound, "branch %q not found", branch)
}

func (it *AzureForgeRepository) PullRequest(ctx context.Context, number int) (*entities.PullRequest, error) {
	pr, err := it.pullRequestRaw(ctx, number)
	if err != nil {
		return nil, err
	}
	return mapPullRequest(*pr), nil
}

func (it *AzureForgeRepository) pullRequestRaw(ctx context.Context, number int) (*prPayload, error) {
	var pr prPayload
	path := fmt.Sprintf("%s/pullrequests/%d?api-version=%s", it.repoPath(), number, apiVersion)
	if err := it.rest.Do(ctx, http.MethodGet, path, nil, &pr); err != nil {
		return nil, it.classify(err, entities.RepoNotFound)
	}
	return &pr, nil
}

func (it *AzureForgeRepository) CreatePullRequest(
	ctx context.Context,
	opts entities.CreatePullRequestOptions,
) (*entities.PullRequest, error) {
	body := map[string]any{
		"title":         opts.Title,
		"description":   opts.Body,
		"sourceRefName": "refs/heads/" + opts.SourceBranch,
		"targetRefName": "refs/heads/" + opts.TargetBranch,
		"isDraft":       opts.Draft,
	}

	var pr prPayload
	path := it.repoPath() + "/pullrequests?api-version=" + apiVersion
	if err := it.rest.Do(ctx, http.MethodPost, path, body, &pr); err != nil {
		if strings.Contains(httpclient.BodyOf(err), "has no commits") ||
			strings.Contains(httpclient.BodyOf(err), "No commits") {
			return nil, it.Wrap(
				entities.NoCommitsForPullRequest, err,
				"no commits between %s and %s", opts.TargetBranch, opts.SourceBranch,
			)
		}
		return nil, it.classify(err, entities.RepoNotFound)
	}

	logger.Infof("created pull request #%d", pr.ID)
	return mapPullRequest(pr), nil
}

// MergePullRequest completes the pull request and then checks the
// conflicts endpoint: Azure reports success asynchronously, so a
// non-empty conflict list after completion means the merge did not land.
func (it *AzureForgeRepository) MergePullRequest(
	ctx context.Context,
	opts entities.MergeOptions,
) (string, error) {
	pr, err := it.pullRequestRaw(ctx, opts.PullNumber)
	if err != nil {
		return "", err
	}

	body := map[string]any{
		"status":                "completed",
		"lastMergeSourceCommit": map[string]string{"commitId": pr.LastMergeSourceCommit.CommitID},
		"completionOptions": map[string]any{
			"mergeStrategy":      mergeStrategy(opts.Method),
			"deleteSourceBranch": opts.DeleteSourceBranch,
			"mergeCommitMessage": opts.CommitMessage,
		},
	}

	path := fmt.Sprintf(
		"%s/pullrequests/%d?api-version=%s",
		it.repoPath(), opts.PullNumber, apiVersion,
	)
	var updated prPayload
	if err := it.rest.Do(ctx, http.MethodPatch, path, body, &updated); err != nil {
		return "", it.classify(err, entities.RepoNotFound)
	}

	conflicted, err := it.hasConflicts(ctx, opts.PullNumber)
	if err != nil {
		return "", err
	}
	if conflicted {
		return "", it.Error(
			entities.MergeConflict,
			"pull request %d has merge conflicts", opts.PullNumber,
		).WithPullNumber(opts.PullNumber)
	}

	return fmt.Sprintf("completed pull request #%d", updated.ID), nil
}

// hasConflicts reads the conflicts endpoint for one pull request.
func (it *AzureForgeRepository) hasConflicts(ctx context.Context, number int) (bool, error) {
	var page listPayload[map[string]any]
	path := fmt.Sprintf(
		"%s/pullrequests/%d/conflicts?api-version=%s",
		it.repoPath(), number, apiVersion,
	)
	if err := it.rest.Do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return false, it.classify(err, entities.RepoNotFound)
	}
	return len(page.Value) > 0, nil
}

// mergeStrategy maps the forge-neutral method onto Azure's strategies:
// the plain merge maps to rebaseMerge for parity with the other forges'
// semi-linear default.
func mergeStrategy(method entities.MergeMethod) string {
	switch method {
	case entities.MergeMethodSquash:
		return "squash"
	case entities.MergeMethodRebase:
		return "rebase"
	default:
		return "rebaseMerge"
	}
}

func (it *AzureForgeRepository) UpdatePullRequestBranch(_ context.Context, number int) error {
	return it.Error(
		entities.Fatal,
		"azure devops does not support updating the source branch of pull request %d", number,
	)
}

func (it *AzureForgeRepository) Webhooks(ctx context.Context) ([]entities.Webhook, error) {
	var page listPayload[subscriptionPayload]
	path := "/_apis/hooks/subscriptions?api-version=" + hooksAPIVersion
	if err := it.rest.Do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, it.classify(err, entities.RepoNotFound)
	}

	var hooks []entities.Webhook
	for _, sub := range page.Value {
		hooks = append(hooks, entities.Webhook{
			Name:   sub.ID,
			Active: sub.Status == "enabled",
			Events: []string{sub.EventType},
			Config: entities.WebhookConfig{
				ContentType: "json",
				URL:         sub.ConsumerInputs["url"],
			},
		})
	}
	return hooks, nil
}

func (it *AzureForgeRepository) CreateWebhook(
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

	info, err := it.RepoInfo(ctx)
	if err != nil {
		return "", err
	}

	eventType := "git.push"
	if len(opts.Events) > 0 && opts.Events[0] == entities.EventPullRequest {
		eventType = "git.pullrequest.created"
	}

	body := map[string]any{
		"publisherId":      "tfs",
		"eventType":        eventType,
		"consumerId":       "webHooks",
		"consumerActionId": "httpRequest",
		"publisherInputs": map[string]string{
			"repository": info.ID,
		},
		"consumerInputs": map[string]string{
			"url": opts.WebhookURL,
		},
	}

	var created subscriptionPayload
	path := "/_apis/hooks/subscriptions?api-version=" + hooksAPIVersion
	if err := it.rest.Do(ctx, http.MethodPost, path, body, &created); err != nil {
		return "", it.Wrap(entities.UnknownWebhook, err, "subscription rejected")
	}
	return created.ID, nil
}

func (it *AzureForgeRepository) WebhookParams(event entities.GitEvent) entities.WebhookParams {
	// Azure carries the event in the delivery body, not a header; the
	// selector is the eventType value.
	value := "git.push"
	if event == entities.EventPullRequest {
		value = "git.pullrequest.created"
	}
	return entities.WebhookParams{EventHeader: "", EventValue: value}
}

func (it *AzureForgeRepository) Clone(
	ctx context.Context,
	opts domainRepos.CloneOptions,
) (domainRepos.Workspace, error) {
	cloneURL := fmt.Sprintf(
		"%s://%s/%s/%s/_git/%s",
		it.Coordinate.Protocol, it.Coordinate.Host,
		it.Coordinate.Owner, it.Coordinate.Project, it.Coordinate.Repo,
	)
	return it.CloneWorkspace(ctx, cloneURL, opts)
}

// mapPullRequest normalizes an Azure pull request from its status plus
// mergeStatus pair.
func mapPullRequest(pr prPayload) *entities.PullRequest {
	out := &entities.PullRequest{
		Number:       pr.ID,
		Title:        pr.Title,
		SourceBranch: strings.TrimPrefix(pr.SourceRefName, "refs/heads/"),
		TargetBranch: strings.TrimPrefix(pr.TargetRefName, "refs/heads/"),
		MergeStatus:  pr.MergeStatus,
	}

	switch pr.Status {
	case "active":
		switch pr.MergeStatus {
		case "rejectedByPolicy":
			out.Status = entities.PullRequestBlocked
		case "conflicts":
			out.Status = entities.PullRequestConflicts
			out.HasConflicts = true
		default:
			out.Status = entities.PullRequestActive
		}
	case "abandoned":
		out.Status = entities.PullRequestAbandoned
	case "completed":
		out.Status = entities.PullRequestCompleted
	default:
		out.Status = entities.PullRequestNotSet
	}
	return out
}

func (it *AzureForgeRepository) classify(err error, notFoundKind entities.ErrorKind) error {
	if kind, ok := forge.AuthKind(err); ok {
		return it.Wrap(kind, err, "request rejected")
	}
	if httpclient.StatusOf(err) == http.StatusNotFound {
		return it.Wrap(
			notFoundKind, err,
			"%s/%s not found", it.Coordinate.Project, it.Coordinate.Repo,
		)
	}
	return err
}
