//go:build unit

package bitbucket_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rios0rios0/gitu/internal/domain/entities"
	"github.com/rios0rios0/gitu/internal/infrastructure/repositories/bitbucket"
)

func bbPR(state string) bitbucket.PRPayload {
	return bitbucket.PRPayload{
		ID:    42,
		State: state,
		Source: bitbucket.PREndpointPayload{
			Branch: bitbucket.BranchNamePayload{Name: "feature"},
		},
		Destination: bitbucket.PREndpointPayload{
			Branch: bitbucket.BranchNamePayload{Name: "main"},
		},
	}
}

func TestMapPullRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state string
		want  entities.PullRequestStatus
	}{
		{"OPEN", entities.PullRequestActive},
		{"MERGED", entities.PullRequestCompleted},
		{"DECLINED", entities.PullRequestAbandoned},
		{"SUPERSEDED", entities.PullRequestAbandoned},
		{"UNKNOWN", entities.PullRequestNotSet},
	}

	for _, tc := range tests {
		t.Run("should map "+tc.state, func(t *testing.T) {
			t.Parallel()

			// when
			pr := bitbucket.MapPullRequest(bbPR(tc.state))

			// then
			assert.Equal(t, tc.want, pr.Status)
			assert.Equal(t, 42, pr.Number)
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
		{entities.MergeMethodMerge, "merge_commit"},
		{entities.MergeMethodSquash, "squash"},
		{entities.MergeMethodRebase, "fast_forward"},
		{"", "merge_commit"},
	}

	for _, tc := range tests {
		t.Run("should map "+string(tc.method), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, bitbucket.MergeStrategy(tc.method))
		})
	}
}
