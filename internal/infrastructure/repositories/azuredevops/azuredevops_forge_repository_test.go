//go:build unit

package azuredevops_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitu/internal/domain/entities"
	"github.com/rios0rios0/gitu/internal/infrastructure/repositories/azuredevops"
)

func azPR(status string, mergeStatus string) azuredevops.PRPayload {
	return azuredevops.PRPayload{
		ID:            42,
		Status:        status,
		MergeStatus:   mergeStatus,
		SourceRefName: "refs/heads/feature",
		TargetRefName: "refs/heads/main",
	}
}

func TestMapPullRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      string
		mergeStatus string
		want        entities.PullRequestStatus
	}{
		{"active and succeeded is active", "active", "succeeded", entities.PullRequestActive},
		{"active and queued is active", "active", "queued", entities.PullRequestActive},
		{"active and rejectedByPolicy is blocked", "active", "rejectedByPolicy", entities.PullRequestBlocked},
		{"active and conflicts has conflicts", "active", "conflicts", entities.PullRequestConflicts},
		{"abandoned is abandoned", "abandoned", "succeeded", entities.PullRequestAbandoned},
		{"completed is completed", "completed", "succeeded", entities.PullRequestCompleted},
		{"unknown is not set", "notSet", "", entities.PullRequestNotSet},
	}

	for _, tc := range tests {
		t.Run("should map "+tc.name, func(t *testing.T) {
			t.Parallel()

			// when
			pr := azuredevops.MapPullRequest(azPR(tc.status, tc.mergeStatus))

			// then
			assert.Equal(t, tc.want, pr.Status)
			assert.Equal(t, "feature", pr.SourceBranch)
			assert.Equal(t, "main", pr.TargetBranch)
		})
	}
}

func TestMergeStrategy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		method entities.MergeMethod
		want   string
	}{
		{entities.MergeMethodMerge, "rebaseMerge"},
		{entities.MergeMethodRebase, "rebase"},
		{entities.MergeMethodSquash, "squash"},
	}

	for _, tc := range tests {
		t.Run("should map "+string(tc.method), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, azuredevops.MergeStrategy(tc.method))
		})
	}
}

func TestNotImplementedFileOperations(t *testing.T) {
	t.Parallel()

	// given
	forge, err := azuredevops.NewForgeRepository(entities.Coordinate{
		Protocol: "https",
		Host:     "dev.azure.com",
		Owner:    "org",
		Project:  "proj",
		Repo:     "r",
		Password: "pat",
	})
	require.NoError(t, err)

	// when
	_, listErr := forge.ListFiles(t.Context())
	_, readErr := forge.FileContents(t.Context(), entities.RepoFile{Path: "README.md"})

	// then
	assert.True(t, entities.IsKind(listErr, entities.Fatal))
	assert.True(t, entities.IsKind(readErr, entities.Fatal))
}
