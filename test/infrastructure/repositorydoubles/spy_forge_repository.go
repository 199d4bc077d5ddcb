//go:build integration || unit || test

// Package repositorydoubles provides test doubles (spies, stubs, dummies) for
// repository interfaces. These are hand-crafted implementations — no mock frameworks.
package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"os"

	"github.com/rios0rios0/gitu/internal/domain/entities"
	"github.com/rios0rios0/gitu/internal/domain/repositories"
)

// MergeOutcome scripts one MergePullRequest result.
type MergeOutcome struct {
	Message string
	Err     error
}

// SpyForgeRepository implements repositories.ForgeRepository as a
// configurable spy. Configure the response fields for the methods your
// test exercises, then inspect the call-tracking fields.
type SpyForgeRepository struct {
	ForgeKind  entities.ForgeKind
	Coordinate entities.Coordinate

	// --- RepoInfo ---
	Info    *entities.RepoSummary
	InfoErr error

	// --- ListRepos ---
	RepoURLs    []string
	ListRepoErr error

	// --- PullRequest: states consumed in order, last repeats ---
	PullRequestStates []*entities.PullRequest
	PullRequestErr    error
	PullRequestCalls  int

	// --- MergePullRequest: outcomes consumed in order, last repeats ---
	MergeOutcomes []MergeOutcome
	MergeCalls    int

	// --- Clone ---
	Workspace  repositories.Workspace
	CloneErr   error
	CloneCalls int
	ClonedDirs []string

	// --- DeleteBranch ---
	DeletedBranches []string
	DeleteBranchErr error

	// --- UpdatePullRequestBranch ---
	UpdatedBranches []int
}

func (s *SpyForgeRepository) Kind() entities.ForgeKind {
	if s.ForgeKind == entities.ForgeKindNotSet {
		return entities.ForgeGitHub
	}
	return s.ForgeKind
}

func (s *SpyForgeRepository) Config() entities.Coordinate {
	return s.Coordinate
}

func (s *SpyForgeRepository) RepoInfo(_ context.Context) (*entities.RepoSummary, error) {
	return s.Info, s.InfoErr
}

func (s *SpyForgeRepository) ListRepos(_ context.Context) ([]string, error) {
	return s.RepoURLs, s.ListRepoErr
}

func (s *SpyForgeRepository) CreateRepo(
	_ context.Context, _ entities.CreateRepoOptions,
) (repositories.ForgeRepository, error) {
	return s, nil
}

func (s *SpyForgeRepository) DeleteRepo(_ context.Context) (repositories.ForgeRepository, error) {
	return s, nil
}

func (s *SpyForgeRepository) ListFiles(_ context.Context) ([]entities.RepoFile, error) {
	return nil, nil
}

func (s *SpyForgeRepository) FileContents(_ context.Context, _ entities.RepoFile) ([]byte, error) {
	return nil, nil
}

func (s *SpyForgeRepository) DefaultBranch(_ context.Context) (string, error) {
	if s.Info != nil {
		return s.Info.DefaultBranch, nil
	}
	return "main", nil
}

func (s *SpyForgeRepository) Branches(_ context.Context) ([]entities.Branch, error) {
	return nil, nil
}

func (s *SpyForgeRepository) DeleteBranch(_ context.Context, branch string) error {
	s.DeletedBranches = append(s.DeletedBranches, branch)
	return s.DeleteBranchErr
}

func (s *SpyForgeRepository) PullRequest(_ context.Context, _ int) (*entities.PullRequest, error) {
	if s.PullRequestErr != nil {
		return nil, s.PullRequestErr
	}
	idx := s.PullRequestCalls
	s.PullRequestCalls++
	if idx >= len(s.PullRequestStates) {
		idx = len(s.PullRequestStates) - 1
	}
	if idx < 0 {
		return &entities.PullRequest{Status: entities.PullRequestNotSet}, nil
	}
	return s.PullRequestStates[idx], nil
}

func (s *SpyForgeRepository) CreatePullRequest(
	_ context.Context, opts entities.CreatePullRequestOptions,
) (*entities.PullRequest, error) {
	return &entities.PullRequest{
		Number:       1,
		Title:        opts.Title,
		SourceBranch: opts.SourceBranch,
		TargetBranch: opts.TargetBranch,
		Status:       entities.PullRequestActive,
	}, nil
}

func (s *SpyForgeRepository) MergePullRequest(
	_ context.Context, _ entities.MergeOptions,
) (string, error) {
	idx := s.MergeCalls
	s.MergeCalls++
	if idx >= len(s.MergeOutcomes) {
		idx = len(s.MergeOutcomes) - 1
	}
	if idx < 0 {
		return "", nil
	}
	outcome := s.MergeOutcomes[idx]
	return outcome.Message, outcome.Err
}

func (s *SpyForgeRepository) UpdatePullRequestBranch(_ context.Context, number int) error {
	s.UpdatedBranches = append(s.UpdatedBranches, number)
	return nil
}

func (s *SpyForgeRepository) Webhooks(_ context.Context) ([]entities.Webhook, error) {
	return nil, nil
}

func (s *SpyForgeRepository) CreateWebhook(
	_ context.Context, _ entities.CreateWebhookOptions,
) (string, error) {
	return "", nil
}

func (s *SpyForgeRepository) WebhookParams(_ entities.GitEvent) entities.WebhookParams {
	return entities.WebhookParams{}
}

// Clone records the requested directory, creates it so cleanup can be
// observed, and hands back the configured workspace.
func (s *SpyForgeRepository) Clone(
	_ context.Context, opts repositories.CloneOptions,
) (repositories.Workspace, error) {
	s.CloneCalls++
	s.ClonedDirs = append(s.ClonedDirs, opts.LocalDir)
	if s.CloneErr != nil {
		return nil, s.CloneErr
	}
	_ = os.MkdirAll(opts.LocalDir, 0o755)
	if ws, ok := s.Workspace.(*StubWorkspace); ok && ws.DirPath == "" {
		ws.DirPath = opts.LocalDir
	}
	return s.Workspace, nil
}
