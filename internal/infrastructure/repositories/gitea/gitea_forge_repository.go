// Package gitea adapts the uniform forge surface onto the Gitea REST
// API. Gogs exposes the same API shape, so the Gogs adapter is this one
// tagged with a different kind.
package gitea

import (
	"archive/zip"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/mod/semver"

	"github.com/rios0rios0/gitu/internal/domain/entities"
	domainRepos "github.com/rios0rios0/gitu/internal/domain/repositories"
	"github.com/rios0rios0/gitu/internal/infrastructure/forge"
	"github.com/rios0rios0/gitu/internal/infrastructure/httpclient"
)

const (
	pageLimit = 100

	// Gitea grew the merge "Do" strategies in 1.13; older servers only
	// take the default merge.
	minVersionForStrategies = "v1.13.0"
)

// GiteaForgeRepository implements repositories.ForgeRepository for Gitea
// and Gogs instances.
type GiteaForgeRepository struct {
	forge.Base
	rest *httpclient.REST
}

// NewForgeRepository creates an adapter for a Gitea host.
func NewForgeRepository(coord entities.Coordinate) (domainRepos.ForgeRepository, error) {
	return NewWithKind(coord, entities.ForgeGitea)
}

// NewWithKind creates the adapter tagged as the given kind; the Gogs
// package uses this with entities.ForgeGogs.
func NewWithKind(coord entities.Coordinate, kind entities.ForgeKind) (domainRepos.ForgeRepository, error) {
	kernel, err := httpclient.New(httpclient.Options{
		Username:   coord.Username,
		Token:      coord.Password,
		CACertPath: coord.CACertPath,
	})
	if err != nil {
		return nil, err
	}

	base := fmt.Sprintf("%s://%s/api/v1", coord.Protocol, coord.Host)
	return &GiteaForgeRepository{
		Base: forge.Base{ForgeKind: kind, Coordinate: coord},
		rest: httpclient.NewREST(base, kernel),
	}, nil
}

type repoPayload struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Description   string `json:"description"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch"`
	HTMLURL       string `json:"html_url"`
}

type branchPayload struct {
	Name string `json:"name"`
}

type prBranchPayload struct {
	Ref string `json:"ref"`
}

type prPayload struct {
	Number    int             `json:"number"`
	Title     string          `json:"title"`
	State     string          `json:"state"`
	Mergeable bool            `json:"mergeable"`
	Merged    bool            `json:"merged"`
	Head      prBranchPayload `json:"head"`
	Base      prBranchPayload `json:"base"`
	HTMLURL   string          `json:"html_url"`
}

type hookPayload struct {
	ID     int64             `json:"id"`
	Type   string            `json:"type"`
	Active bool              `json:"active"`
	Events []string          `json:"events"`
	Config map[string]string `json:"config"`
}

type contentsPayload struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type versionPayload struct {
	Version string `json:"version"`
}

func (it *GiteaForgeRepository) repoPath() string {
	return fmt.Sprintf("/repos/%s/%s", it.Coordinate.Owner, it.Coordinate.Repo)
}

func (it *GiteaForgeRepository) RepoInfo(ctx context.Context) (*entities.RepoSummary, error) {
	var repo repoPayload
	if err := it.rest.Do(ctx, http.MethodGet, it.repoPath(), nil, &repo); err != nil {
		return nil, it.classify(err, entities.RepoNotFound)
	}

	return &entities.RepoSummary{
		ID:            strconv.FormatInt(repo.ID, 10),
		Slug:          repo.FullName,
		HTTPURL:       repo.HTMLURL,
		Name:          repo.Name,
		Description:   repo.Description,
		Private:       repo.Private,
		DefaultBranch: repo.DefaultBranch,
	}, nil
}

func (it *GiteaForgeRepository) ListRepos(ctx context.Context) ([]string, error) {
	urls, err := it.listReposAt(ctx, "/orgs/"+it.Coordinate.Owner+"/repos")
	if err == nil {
		return urls, nil
	}
	// Fall back to listing user repos if org listing fails.
	return it.listReposAt(ctx, "/users/"+it.Coordinate.Owner+"/repos")
}

func (it *GiteaForgeRepository) listReposAt(ctx context.Context, path string) ([]string, error) {
	var urls []string
	for page := 1; ; page++ {
		var repos []repoPayload
		query := fmt.Sprintf("%s?limit=%d&page=%d", path, pageLimit, page)
		if err := it.rest.Do(ctx, http.MethodGet, query, nil, &repos); err != nil {
			return nil, it.classify(err, entities.GroupNotFound)
		}
		for _, repo := range repos {
			urls = append(urls, repo.HTMLURL)
		}
		if len(repos) < pageLimit {
			break
		}
	}
	return urls, nil
}

func (it *GiteaForgeRepository) CreateRepo(
	ctx context.Context,
	opts entities.CreateRepoOptions,
) (domainRepos.ForgeRepository, error) {
	body := map[string]any{
		"name":      opts.Name,
		"private":   opts.Private,
		"auto_init": opts.AutoInit,
	}

	var created repoPayload
	err := it.rest.Do(ctx, http.MethodPost, "/orgs/"+it.Coordinate.Owner+"/repos", body, &created)
	if httpclient.StatusOf(err) == http.StatusNotFound {
		// Owner is a plain user, not an organization.
		err = it.rest.Do(ctx, http.MethodPost, "/user/repos", body, &created)
	}
	if err != nil {
		return nil, it.classify(err, entities.InsufficientPermissions)
	}

	logger.Infof("created repository %s", created.FullName)
	return NewWithKind(it.Coordinate.WithRepo(created.Name), it.ForgeKind)
}

func (it *GiteaForgeRepository) DeleteRepo(ctx context.Context) (domainRepos.ForgeRepository, error) {
	if err := it.rest.Do(ctx, http.MethodDelete, it.repoPath(), nil, nil); err != nil {
		return nil, it.classify(err, entities.InsufficientPermissions)
	}

	logger.Infof("deleted repository %s/%s", it.Coordinate.Owner, it.Coordinate.Repo)
	return NewWithKind(it.Coordinate.OrgScope(), it.ForgeKind)
}

// ListFiles streams the branch archive into a temp zip and enumerates
// its entries; the API has no recursive tree endpoint on older servers.
func (it *GiteaForgeRepository) ListFiles(ctx context.Context) ([]entities.RepoFile, error) {
	branch, err := it.effectiveBranch(ctx)
	if err != nil {
		return nil, err
	}

	data, _, err := it.rest.DoRaw(
		ctx, http.MethodGet,
		fmt.Sprintf("%s/archive/%s.zip", it.repoPath(), url.PathEscape(branch)),
		nil,
	)
	if err != nil {
		return nil, it.classify(err, entities.RepoNotFound)
	}

	tmp, err := os.CreateTemp("", "gitu-archive-*.zip")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp archive: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("failed to write temp archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp archive: %w", err)
	}

	return enumerateArchive(tmp.Name())
}

// enumerateArchive lists the files in a branch archive, stripping the
// top-level "repo-branch/" directory the forge adds.
func enumerateArchive(path string) ([]entities.RepoFile, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer reader.Close() //nolint:errcheck

	var files []entities.RepoFile
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		name := entry.Name
		if idx := strings.Index(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		if name == "" {
			continue
		}
		files = append(files, entities.RepoFile{Path: name})
	}
	return files, nil
}

func (it *GiteaForgeRepository) FileContents(ctx context.Context, file entities.RepoFile) ([]byte, error) {
	branch, err := it.effectiveBranch(ctx)
	if err != nil {
		return nil, err
	}

	var contents contentsPayload
	path := fmt.Sprintf(
		"%s/contents/%s?ref=%s",
		it.repoPath(), escapePath(file.Path), url.QueryEscape(branch),
	)
	if err := it.rest.Do(ctx, http.MethodGet, path, nil, &contents); err != nil {
		return nil, it.classify(err, entities.RepoNotFound)
	}

	data, err := base64.StdEncoding.DecodeString(contents.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", file.Path, err)
	}
	return data, nil
}

func (it *GiteaForgeRepository) DefaultBranch(ctx context.Context) (string, error) {
	info, err := it.RepoInfo(ctx)
	if err != nil {
		return "", err
	}
	return info.DefaultBranch, nil
}

func (it *GiteaForgeRepository) Branches(ctx context.Context) ([]entities.Branch, error) {
	var payload []branchPayload
	if err := it.rest.Do(ctx, http.MethodGet, it.repoPath()+"/branches", nil, &payload); err != nil {
		return nil, it.classify(err, entities.RepoNotFound)
	}

	branches := make([]entities.Branch, 0, len(payload))
	for _, branch := range payload {
		branches = append(branches, entities.Branch{Name: branch.Name})
	}
	return branches, nil
}

func (it *GiteaForgeRepository) DeleteBranch(ctx context.Context, branch string) error {
	path := it.repoPath() + "/branches/" + url.PathEscape(branch)
	if err := it.rest.Do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return it.classify(err, entities.RepoNotFound)
	}
	return nil
}

func (it *GiteaForgeRepository) PullRequest(ctx context.Context, number int) (*entities.PullRequest, error) {
	var pr prPayload
	path := fmt.Sprintf("%s/pulls/%d", it.repoPath(), number)
	if err := it.rest.Do(ctx, http.MethodGet, path, nil, &pr); err != nil {
		return nil, it.classify(err, entities.RepoNotFound)
	}
	return mapPullRequest(pr), nil
}

func (it *GiteaForgeRepository) CreatePullRequest(
	ctx context.Context,
	opts entities.CreatePullRequestOptions,
) (*entities.PullRequest, error) {
	body := map[string]any{
		"title": opts.Title,
		"body":  opts.Body,
		"head":  opts.SourceBranch,
		"base":  opts.TargetBranch,
	}

	var pr prPayload
	if err := it.rest.Do(ctx, http.MethodPost, it.repoPath()+"/pulls", body, &pr); err != nil {
		if strings.Contains(httpclient.BodyOf(err), "no commits") ||
			strings.Contains(httpclient.BodyOf(err), "No commits") {
			return nil, it.Wrap(
				entities.NoCommitsForPullRequest, err,
				"no commits between %s and %s", opts.TargetBranch, opts.SourceBranch,
			)
		}
		return nil, it.classify(err, entities.RepoNotFound)
	}

	logger.Infof("created pull request %s", pr.HTMLURL)
	return mapPullRequest(pr), nil
}

func (it *GiteaForgeRepository) MergePullRequest(
	ctx context.Context,
	opts entities.MergeOptions,
) (string, error) {
	method := opts.Method
	if method == "" {
		method = entities.MergeMethodMerge
	}

	if it.ForgeKind == entities.ForgeGitea && method != entities.MergeMethodMerge {
		supported, err := it.supportsMergeStrategies(ctx)
		if err == nil && !supported {
			return "", it.Error(
				entities.Fatal,
				"server is older than %s and only supports the default merge",
				minVersionForStrategies,
			)
		}
	}

	body := map[string]any{"Do": string(method)}
	if opts.CommitTitle != "" {
		body["MergeTitleField"] = opts.CommitTitle
	}
	if opts.CommitMessage != "" {
		body["MergeMessageField"] = opts.CommitMessage
	}

	path := fmt.Sprintf("%s/pulls/%d/merge", it.repoPath(), opts.PullNumber)
	if err := it.rest.Do(ctx, http.MethodPost, path, body, nil); err != nil {
		return "", it.classifyMergeError(err, opts.PullNumber)
	}
	return fmt.Sprintf("merged pull request #%d", opts.PullNumber), nil
}

// supportsMergeStrategies gates the merge "Do" options on the server
// version.
func (it *GiteaForgeRepository) supportsMergeStrategies(ctx context.Context) (bool, error) {
	var version versionPayload
	if err := it.rest.Do(ctx, http.MethodGet, "/version", nil, &version); err != nil {
		return false, err
	}
	server := version.Version
	if !strings.HasPrefix(server, "v") {
		server = "v" + server
	}
	return semver.Compare(server, minVersionForStrategies) >= 0, nil
}

func (it *GiteaForgeRepository) UpdatePullRequestBranch(ctx context.Context, number int) error {
	path := fmt.Sprintf("%s/pulls/%d/update", it.repoPath(), number)
	if err := it.rest.Do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return it.classify(err, entities.RepoNotFound)
	}
	return nil
}

func (it *GiteaForgeRepository) Webhooks(ctx context.Context) ([]entities.Webhook, error) {
	var payload []hookPayload
	if err := it.rest.Do(ctx, http.MethodGet, it.repoPath()+"/hooks", nil, &payload); err != nil {
		return nil, it.classify(err, entities.RepoNotFound)
	}

	var hooks []entities.Webhook
	for _, hook := range payload {
		hooks = append(hooks, entities.Webhook{
			ID:     hook.ID,
			Name:   hook.Type,
			Active: hook.Active,
			Events: hook.Events,
			Config: entities.WebhookConfig{
				ContentType: hook.Config["content_type"],
				URL:         hook.Config["url"],
			},
		})
	}
	return hooks, nil
}

func (it *GiteaForgeRepository) CreateWebhook(
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
		case entities.EventPush, entities.EventPullRequest:
			events = append(events, string(event))
		default:
			return "", it.Error(entities.UnknownWebhook, "unsupported event %q", event)
		}
	}

	hookType := "gitea"
	if it.ForgeKind == entities.ForgeGogs {
		hookType = "gogs"
	}

	body := map[string]any{
		"type":   hookType,
		"active": opts.Active,
		"events": events,
		"config": map[string]string{
			"url":          opts.WebhookURL,
			"content_type": "json",
			"secret":       opts.Secret,
		},
	}

	var created hookPayload
	if err := it.rest.Do(ctx, http.MethodPost, it.repoPath()+"/hooks", body, &created); err != nil {
		return "", it.classify(err, entities.RepoNotFound)
	}
	return strconv.FormatInt(created.ID, 10), nil
}

func (it *GiteaForgeRepository) WebhookParams(event entities.GitEvent) entities.WebhookParams {
	header := "X-Gitea-Event"
	if it.ForgeKind == entities.ForgeGogs {
		header = "X-Gogs-Event"
	}
	value := "push"
	if event == entities.EventPullRequest {
		value = "pull_request"
	}
	return entities.WebhookParams{EventHeader: header, EventValue: value}
}

func (it *GiteaForgeRepository) Clone(
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

// escapePath escapes each path segment while keeping the separators.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

func (it *GiteaForgeRepository) effectiveBranch(ctx context.Context) (string, error) {
	if it.Coordinate.Branch != "" {
		return it.Coordinate.Branch, nil
	}
	return it.DefaultBranch(ctx)
}

// mapPullRequest normalizes a Gitea pull request: open PRs without
// mergeable=true carry conflicts; closed ones depend on merged.
func mapPullRequest(pr prPayload) *entities.PullRequest {
	out := &entities.PullRequest{
		Number:       pr.Number,
		Title:        pr.Title,
		SourceBranch: pr.Head.Ref,
		TargetBranch: pr.Base.Ref,
		WebURL:       pr.HTMLURL,
	}

	if pr.State == "open" {
		if pr.Mergeable {
			out.Status = entities.PullRequestActive
		} else {
			out.Status = entities.PullRequestConflicts
			out.HasConflicts = true
		}
		return out
	}

	if pr.Merged {
		out.Status = entities.PullRequestCompleted
	} else {
		out.Status = entities.PullRequestAbandoned
	}
	return out
}

// classifyMergeError recognizes the conflict shapes Gitea reports: a 405
// refusal, or a 500 whose body names a failed automatic merge.
func (it *GiteaForgeRepository) classifyMergeError(err error, number int) error {
	status := httpclient.StatusOf(err)
	body := httpclient.BodyOf(err)

	conflictBody := strings.Contains(body, "Automatic merge failed") &&
		strings.Contains(body, "fix conflicts")
	if status == http.StatusMethodNotAllowed ||
		status == http.StatusConflict ||
		(status == http.StatusInternalServerError && conflictBody) {
		return it.Wrap(
			entities.MergeConflict, err,
			"pull request %d cannot be merged", number,
		).WithPullNumber(number)
	}
	return it.classify(err, entities.RepoNotFound)
}

func (it *GiteaForgeRepository) classify(err error, notFoundKind entities.ErrorKind) error {
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
