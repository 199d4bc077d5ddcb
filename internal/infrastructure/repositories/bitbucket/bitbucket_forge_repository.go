// Package bitbucket adapts the uniform forge surface onto the Bitbucket
// Cloud 2.0 REST API.
package bitbucket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitu/internal/domain/entities"
	domainRepos "github.com/rios0rios0/gitu/internal/domain/repositories"
	"github.com/rios0rios0/gitu/internal/infrastructure/forge"
	"github.com/rios0rios0/gitu/internal/infrastructure/httpclient"
)

const (
	apiHost = "api.bitbucket.org"
	pageLen = 100

	// Bitbucket's merge refusal for conflicted pull requests.
	conflictMessage = "You can't merge until you resolve all merge conflicts."
)

// BitbucketForgeRepository implements repositories.ForgeRepository for
// Bitbucket Cloud.
type BitbucketForgeRepository struct {
	forge.Base
	rest   *httpclient.REST
	client *http.Client
}

// NewForgeRepository creates an adapter for bitbucket.org.
func NewForgeRepository(coord entities.Coordinate) (domainRepos.ForgeRepository, error) {
	kernel, err := httpclient.New(httpclient.Options{
		Username:   coord.Username,
		Token:      coord.Password,
		CACertPath: coord.CACertPath,
	})
	if err != nil {
		return nil, err
	}

	base := fmt.Sprintf("%s://%s/2.0", coord.Protocol, apiHost)
	return &BitbucketForgeRepository{
		Base:   forge.Base{ForgeKind: entities.ForgeBitbucket, Coordinate: coord},
		rest:   httpclient.NewREST(base, kernel),
		client: kernel,
	}, nil
}

type linkPayload struct {
	Href string `json:"href"`
}

type linksPayload struct {
	HTML linkPayload `json:"html"`
}

type branchNamePayload struct {
	Name string `json:"name"`
}

type repoPayload struct {
	UUID        string            `json:"uuid"`
	Slug        string            `json:"slug"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	IsPrivate   bool              `json:"is_private"`
	MainBranch  branchNamePayload `json:"mainbranch"`
	Links       linksPayload      `json:"links"`
}

type repoPagePayload struct {
	Values []repoPayload `json:"values"`
	Next   string        `json:"next"`
}

type srcEntryPayload struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

type srcPagePayload struct {
	Values []srcEntryPayload `json:"values"`
	Next   string            `json:"next"`
}

type refPayload struct {
	Name string `json:"name"`
}

type refPagePayload struct {
	Values []refPayload `json:"values"`
	Next   string       `json:"next"`
}

type prEndpointPayload struct {
	Branch branchNamePayload `json:"branch"`
}

type prPayload struct {
	ID          int               `json:"id"`
	Title       string            `json:"title"`
	State       string            `json:"state"`
	Source      prEndpointPayload `json:"source"`
	Destination prEndpointPayload `json:"destination"`
	Links       linksPayload      `json:"links"`
}

type hookPayload struct {
	UUID        string   `json:"uuid"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Active      bool     `json:"active"`
	Events      []string `json:"events"`
}

type hookPagePayload struct {
	Values []hookPayload `json:"values"`
	Next   string        `json:"next"`
}

func (it *BitbucketForgeRepository) repoPath() string {
	return fmt.Sprintf("/repositories/%s/%s", it.Coordinate.Owner, it.Coordinate.Repo)
}

func (it *BitbucketForgeRepository) RepoInfo(ctx context.Context) (*entities.RepoSummary, error) {
	var repo repoPayload
	if err := it.rest.Do(ctx, http.MethodGet, it.repoPath(), nil, &repo); err != nil {
		return nil, it.classify(err, entities.RepoNotFound)
	}

	return &entities.RepoSummary{
		ID:            repo.UUID,
		Slug:          repo.Slug,
		HTTPURL:       repo.Links.HTML.Href,
		Name:          repo.Name,
		Description:   repo.Description,
		Private:       repo.IsPrivate,
		DefaultBranch: repo.MainBranch.Name,
	}, nil
}

func (it *BitbucketForgeRepository) ListRepos(ctx context.Context) ([]string, error) {
	var urls []string
	path := fmt.Sprintf("/repositories/%s?pagelen=%d", it.Coordinate.Owner, pageLen)

	for path != "" {
		var page repoPagePayload
		if err := it.rest.Do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, it.classify(err, entities.GroupNotFound)
		}
		for _, repo := range page.Values {
			urls = append(urls, repo.Links.HTML.Href)
		}
		path = strings.TrimPrefix(page.Next, it.rest.BaseURL())
		if path == page.Next {
			// Absolute next URL on another base; stop rather than loop.
			break
		}
	}
	return urls, nil
}

func (it *BitbucketForgeRepository) CreateRepo(
	ctx context.Context,
	opts entities.CreateRepoOptions,
) (domainRepos.ForgeRepository, error) {
	body := map[string]any{
		"scm":        "git",
		"is_private": opts.Private,
	}

	path := fmt.Sprintf("/repositories/%s/%s", it.Coordinate.Owner, strings.ToLower(opts.Name))
	var created repoPayload
	if err := it.rest.Do(ctx, http.MethodPut, path, body, &created); err != nil {
		return nil, it.classify(err, entities.InsufficientPermissions)
	}
	logger.Infof("created repository %s/%s", it.Coordinate.Owner, created.Slug)

	sibling, err := NewForgeRepository(it.Coordinate.WithRepo(created.Slug))
	if err != nil {
		return nil, err
	}

	// Bitbucket does not init repositories; an initial commit comes
	// from writing a README through the src endpoint.
	if opts.AutoInit {
		bb := sibling.(*BitbucketForgeRepository)
		if err := bb.writeInitialReadme(ctx, opts.Name); err != nil {
			return nil, err
		}
	}
	return sibling, nil
}

// writeInitialReadme creates the first commit on the new repository.
func (it *BitbucketForgeRepository) writeInitialReadme(ctx context.Context, name string) error {
	form := url.Values{}
	form.Set("/README.md", "# "+name+"\n")
	form.Set("message", "Initial commit")

	endpoint := it.rest.BaseURL() + it.repoPath() + "/src"
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return fmt.Errorf("failed to build src request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := it.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to write initial README: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return it.Error(
			entities.Fatal, "initial README rejected with status %d", resp.StatusCode,
		)
	}
	return nil
}

func (it *BitbucketForgeRepository) DeleteRepo(ctx context.Context) (domainRepos.ForgeRepository, error) {
	if err := it.rest.Do(ctx, http.MethodDelete, it.repoPath(), nil, nil); err != nil {
		return nil, it.classify(err, entities.InsufficientPermissions)
	}

	logger.Infof("deleted repository %s/%s", it.Coordinate.Owner, it.Coordinate.Repo)
	return NewForgeRepository(it.Coordinate.OrgScope())
}

func (it *BitbucketForgeRepository) ListFiles(ctx context.Context) ([]entities.RepoFile, error) {
	branch, err := it.effectiveBranch(ctx)
	if err != nil {
		return nil, err
	}

	var files []entities.RepoFile
	path := fmt.Sprintf(
		"%s/src/%s/?pagelen=%d&max_depth=64&q=%s",
		it.repoPath(), url.PathEscape(branch), pageLen,
		url.QueryEscape(`type="commit_file"`),
	)

	for path != "" {
		var page srcPagePayload
		if err := it.rest.Do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, it.classify(err, entities.RepoNotFound)
		}
		for _, entry := range page.Values {
			files = append(files, entities.RepoFile{Path: entry.Path})
		}
		path = strings.TrimPrefix(page.Next, it.rest.BaseURL())
		if path == page.Next {
			break
		}
	}
	return files, nil
}

func (it *BitbucketForgeRepository) FileContents(ctx context.Context, file entities.RepoFile) ([]byte, error) {
	branch, err := it.effectiveBranch(ctx)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf(
		"%s/src/%s/%s",
		it.repoPath(), url.PathEscape(branch), file.Path,
	)
	data, _, err := it.rest.DoRaw(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, it.classify(err, entities.RepoNotFound)
	}
	return data, nil
}

func (it *BitbucketForgeRepository) DefaultBranch(ctx context.Context) (string, error) {
	info, err := it.RepoInfo(ctx)
	if err != nil {
		return "", err
	}
	return info.DefaultBranch, nil
}

func (it *BitbucketForgeRepository) Branches(ctx context.Context) ([]entities.Branch, error) {
	var branches []entities.Branch
	path := fmt.Sprintf("%s/refs/branches?pagelen=%d", it.repoPath(), pageLen)

	for path != "" {
		var page refPagePayload
		if err := it.rest.Do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, it.classify(err, entities.RepoNotFound)
		}
		for _, ref := range page.Values {
			branches = append(branches, entities.Branch{Name: ref.Name})
		}
		path = strings.TrimPrefix(page.Next, it.rest.BaseURL())
		if path == page.Next {
			break
		}
	}
	return branches, nil
}

func (it *BitbucketForgeRepository) DeleteBranch(ctx context.Context, branch string) error {
	path := it.repoPath() + "/refs/branches/" + url.PathEscape(branch)
	if err := it.rest.Do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return it.classify(err, entities.RepoNotFound)
	}
	return nil
}

func (it *BitbucketForgeRepository) PullRequest(ctx context.Context, number int) (*entities.PullRequest, error) {
	var pr prPayload
	path := fmt.Sprintf("%s/pullrequests/%d", it.repoPath(), number)
	if err := it.rest.Do(ctx, http.MethodGet, path, nil, &pr); err != nil {
		return nil, it.classify(err, entities.RepoNotFound)
	}
	return mapPullRequest(pr), nil
}

func (it *BitbucketForgeRepository) CreatePullRequest(
	ctx context.Context,
	opts entities.CreatePullRequestOptions,
) (*entities.PullRequest, error) {
	body := map[string]any{
		"title":       opts.Title,
		"description": opts.Body,
		"source": map[string]any{
			"branch": map[string]string{"name": opts.SourceBranch},
		},
		"destination": map[string]any{
			"branch": map[string]string{"name": opts.TargetBranch},
		},
	}

	var pr prPayload
	if err := it.rest.Do(ctx, http.MethodPost, it.repoPath()+"/pullrequests", body, &pr); err != nil {
		if strings.Contains(httpclient.BodyOf(err), "no commits") {
			return nil, it.Wrap(
				entities.NoCommitsForPullRequest, err,
				"no commits between %s and %s", opts.TargetBranch, opts.SourceBranch,
			)
		}
		return nil, it.classify(err, entities.RepoNotFound)
	}

	logger.Infof("created pull request %s", pr.Links.HTML.Href)
	return mapPullRequest(pr), nil
}

func (it *BitbucketForgeRepository) MergePullRequest(
	ctx context.Context,
	opts entities.MergeOptions,
) (string, error) {
	body := map[string]any{
		"merge_strategy":      mergeStrategy(opts.Method),
		"close_source_branch": opts.DeleteSourceBranch,
	}
	if opts.CommitMessage != "" {
		body["message"] = opts.CommitMessage
	}

	path := fmt.Sprintf("%s/pullrequests/%d/merge", it.repoPath(), opts.PullNumber)
	var pr prPayload
	if err := it.rest.Do(ctx, http.MethodPost, path, body, &pr); err != nil {
		if strings.Contains(httpclient.BodyOf(err), conflictMessage) {
			return "", it.Wrap(
				entities.MergeConflict, err,
				"pull request %d has unresolved conflicts", opts.PullNumber,
			).WithPullNumber(opts.PullNumber)
		}
		return "", it.classify(err, entities.RepoNotFound)
	}
	return fmt.Sprintf("merged pull request #%d", pr.ID), nil
}

// mergeStrategy maps the forge-neutral method onto Bitbucket's
// merge_strategy values.
func mergeStrategy(method entities.MergeMethod) string {
	switch method {
	case entities.MergeMethodSquash:
		return "squash"
	case entities.MergeMethodRebase:
		return "fast_forward"
	default:
		return "merge_commit"
	}
}

func (it *BitbucketForgeRepository) UpdatePullRequestBranch(_ context.Context, number int) error {
	return it.Error(
		entities.Fatal,
		"bitbucket does not support updating the source branch of pull request %d", number,
	)
}

func (it *BitbucketForgeRepository) Webhooks(ctx context.Context) ([]entities.Webhook, error) {
	var hooks []entities.Webhook
	path := fmt.Sprintf("%s/hooks?pagelen=%d", it.repoPath(), pageLen)

	for path != "" {
		var page hookPagePayload
		if err := it.rest.Do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, it.classify(err, entities.RepoNotFound)
		}
		for _, hook := range page.Values {
			hooks = append(hooks, entities.Webhook{
				Name:   hook.Description,
				Active: hook.Active,
				Events: hook.Events,
				Config: entities.WebhookConfig{
					ContentType: "json",
					URL:         hook.URL,
				},
			})
		}
		path = strings.TrimPrefix(page.Next, it.rest.BaseURL())
		if path == page.Next {
			break
		}
	}
	return hooks, nil
}

func (it *BitbucketForgeRepository) CreateWebhook(
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

	events := make([]string, 0, len(opts.Events))
	for _, event := range opts.Events {
		switch event {
		case entities.EventPush:
			events = append(events, "repo:push")
		case entities.EventPullRequest:
			events = append(events, "pullrequest:created")
		default:
			return "", it.Error(entities.UnknownWebhook, "unsupported event %q", event)
		}
	}

	body := map[string]any{
		"description": "gitu",
		"url":         opts.WebhookURL,
		"active":      opts.Active,
		"events":      events,
	}

	var created hookPayload
	if err := it.rest.Do(ctx, http.MethodPost, it.repoPath()+"/hooks", body, &created); err != nil {
		return "", it.classify(err, entities.RepoNotFound)
	}
	return created.UUID, nil
}

func (it *BitbucketForgeRepository) WebhookParams(event entities.GitEvent) entities.WebhookParams {
	value := "repo:push"
	if event == entities.EventPullRequest {
		value = "pullrequest:created"
	}
	return entities.WebhookParams{EventHeader: "X-Event-Key", EventValue: value}
}

func (it *BitbucketForgeRepository) Clone(
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

func (it *BitbucketForgeRepository) effectiveBranch(ctx context.Context) (string, error) {
	if it.Coordinate.Branch != "" {
		return it.Coordinate.Branch, nil
	}
	return it.DefaultBranch(ctx)
}

// mapPullRequest normalizes a Bitbucket pull request from its OPEN /
// MERGED / DECLINED / SUPERSEDED states.
func mapPullRequest(pr prPayload) *entities.PullRequest {
	out := &entities.PullRequest{
		Number:       pr.ID,
		Title:        pr.Title,
		SourceBranch: pr.Source.Branch.Name,
		TargetBranch: pr.Destination.Branch.Name,
		MergeStatus:  pr.State,
		WebURL:       pr.Links.HTML.Href,
	}

	switch pr.State {
	case "OPEN":
		out.Status = entities.PullRequestActive
	case "MERGED":
		out.Status = entities.PullRequestCompleted
	case "DECLINED", "SUPERSEDED":
		out.Status = entities.PullRequestAbandoned
	default:
		out.Status = entities.PullRequestNotSet
	}
	return out
}

func (it *BitbucketForgeRepository) classify(err error, notFoundKind entities.ErrorKind) error {
	if kind, ok := forge.AuthKind(err); ok {
		return it.Wrap(kind, err, "request rejected")
	}
	if httpclient.StatusOf(err) == http.StatusNotFound {
		return it.Wrap(
			notFoundKind, err,
			"%s/%s not found", it.Coordinate.Owner, it.Coordinate.Repo,
		)
	}
	return err
}
