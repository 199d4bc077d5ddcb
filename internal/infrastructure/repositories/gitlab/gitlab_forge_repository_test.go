//go:build unit

package gitlab_test

import (
	"net/http"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/rios0rios0/gitu/internal/domain/entities"
	"github.com/rios0rios0/gitu/internal/infrastructure/repositories/gitlab"
)

func newAdapter(t *testing.T) *gitlab.GitLabForgeRepository {
	t.Helper()

	forge, err := gitlab.NewForgeRepository(entities.Coordinate{
		Protocol: "https",
		Host:     "gitlab.com",
		Owner:    "group",
		Repo:     "project",
		Password: "token",
	})
	require.NoError(t, err)
	return forge.(*gitlab.GitLabForgeRepository)
}

// glMR builds a merge request from its wire form, which shields the test
// from the client library's struct layout.
func glMR(t *testing.T, raw string) *gl.MergeRequest {
	t.Helper()

	var mr gl.MergeRequest
	require.NoError(t, json.Unmarshal([]byte(raw), &mr))
	return &mr
}

func TestMapMergeRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want entities.PullRequestStatus
	}{
		{
			"opened and mergeable is active",
			`{"iid":42,"state":"opened","merge_status":"can_be_merged"}`,
			entities.PullRequestActive,
		},
		{
			"opened and checking is active",
			`{"iid":42,"state":"opened","merge_status":"checking"}`,
			entities.PullRequestActive,
		},
		{
			"opened and cannot_be_merged has conflicts",
			`{"iid":42,"state":"opened","merge_status":"cannot_be_merged"}`,
			entities.PullRequestConflicts,
		},
		{
			"merged is completed",
			`{"iid":42,"state":"merged"}`,
			entities.PullRequestCompleted,
		},
		{
			"closed with merged_at is completed",
			`{"iid":42,"state":"closed","merged_at":"2024-03-01T10:00:00Z"}`,
			entities.PullRequestCompleted,
		},
		{
			"closed without merged_at is abandoned",
			`{"iid":42,"state":"closed"}`,
			entities.PullRequestAbandoned,
		},
	}

	for _, tc := range tests {
		t.Run("should map "+tc.name, func(t *testing.T) {
			t.Parallel()

			// when
			pr := gitlab.MapMergeRequest(glMR(t, tc.raw))

			// then
			assert.Equal(t, tc.want, pr.Status)
			assert.Equal(t, 42, pr.Number)
		})
	}
}

func TestClassifyMergeError(t *testing.T) {
	t.Parallel()

	adapter := newAdapter(t)

	t.Run("should treat a 405 refusal as a merge conflict", func(t *testing.T) {
		t.Parallel()

		// given
		err := &gl.ErrorResponse{
			Response: &http.Response{StatusCode: 405},
			Message:  "405 Method Not Allowed",
		}

		// when
		classified := adapter.ClassifyMergeError(err, 42)

		// then
		assert.True(t, entities.IsKind(classified, entities.MergeConflict))
	})

	t.Run("should treat a 406 refusal as a merge conflict", func(t *testing.T) {
		t.Parallel()

		err := &gl.ErrorResponse{
			Response: &http.Response{StatusCode: 406},
			Message:  "Branch cannot be merged",
		}

		assert.True(t, entities.IsKind(
			adapter.ClassifyMergeError(err, 42), entities.MergeConflict,
		))
	})

	t.Run("should map a 401 to BadCredentials", func(t *testing.T) {
		t.Parallel()

		err := &gl.ErrorResponse{
			Response: &http.Response{StatusCode: 401},
			Message:  "401 Unauthorized",
		}

		assert.True(t, entities.IsKind(
			adapter.ClassifyMergeError(err, 42), entities.BadCredentials,
		))
	})
}

func TestWebhookParams(t *testing.T) {
	t.Parallel()

	adapter := newAdapter(t)

	assert.Equal(t, entities.WebhookParams{
		EventHeader: "X-Gitlab-Event",
		EventValue:  "Merge Request Hook",
	}, adapter.WebhookParams(entities.EventPullRequest))

	assert.Equal(t, entities.WebhookParams{
		EventHeader: "X-Gitlab-Event",
		EventValue:  "Push Hook",
	}, adapter.WebhookParams(entities.EventPush))
}
