//go:build unit

package commands_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitu/internal/domain/commands"
	"github.com/rios0rios0/gitu/internal/domain/entities"
	"github.com/rios0rios0/gitu/internal/domain/repositories"
	"github.com/rios0rios0/gitu/test/domain/entitybuilders"
	"github.com/rios0rios0/gitu/test/infrastructure/repositorydoubles"
)

// spyRebase records rebase invocations without touching a workspace.
type spyRebase struct {
	calls []commands.RebaseOptions
	err   error
}

func (s *spyRebase) Execute(
	_ context.Context,
	_ repositories.ForgeRepository,
	opts commands.RebaseOptions,
) (bool, error) {
	s.calls = append(s.calls, opts)
	return s.err == nil, s.err
}

// instantMerge builds a MergeCommand whose sleeps only record durations.
func instantMerge(rebase commands.Rebase, slept *[]time.Duration) *commands.MergeCommand {
	merge := commands.NewMergeCommand(rebase)
	merge.SetSleep(func(_ context.Context, d time.Duration) error {
		if slept != nil {
			*slept = append(*slept, d)
		}
		return nil
	})
	merge.SetRetryDelay(func() time.Duration { return time.Millisecond })
	return merge
}

func TestMergeCommand(t *testing.T) {
	t.Parallel()

	t.Run("should merge an active pull request immediately", func(t *testing.T) {
		t.Parallel()

		// given
		rebase := &spyRebase{}
		forge := &repositorydoubles.SpyForgeRepository{
			PullRequestStates: []*entities.PullRequest{
				entitybuilders.NewPullRequestBuilder().BuildPullRequest(),
			},
			MergeOutcomes: []repositorydoubles.MergeOutcome{{Message: "merged"}},
		}

		// when
		message, err := instantMerge(rebase, nil).Execute(
			context.Background(), forge,
			commands.MergeRequestOptions{
				MergeOptions: entities.MergeOptions{PullNumber: 42},
			},
		)

		// then
		require.NoError(t, err)
		assert.Equal(t, "merged", message)
		assert.Empty(t, rebase.calls)
		assert.Equal(t, 1, forge.MergeCalls)
	})

	t.Run("should wait on a blocked pull request before merging", func(t *testing.T) {
		t.Parallel()

		// given: blocked once, then mergeable
		rebase := &spyRebase{}
		var slept []time.Duration
		forge := &repositorydoubles.SpyForgeRepository{
			PullRequestStates: []*entities.PullRequest{
				entitybuilders.NewPullRequestBuilder().
					WithStatus(entities.PullRequestBlocked).BuildPullRequest(),
				entitybuilders.NewPullRequestBuilder().BuildPullRequest(),
			},
			MergeOutcomes: []repositorydoubles.MergeOutcome{{Message: "merged"}},
		}

		// when
		message, err := instantMerge(rebase, &slept).Execute(
			context.Background(), forge,
			commands.MergeRequestOptions{
				MergeOptions: entities.MergeOptions{
					PullNumber:     42,
					WaitForBlocked: "10m",
				},
			},
		)

		// then
		require.NoError(t, err)
		assert.Equal(t, "merged", message)
		require.Len(t, slept, 1)
		assert.Equal(t, 5*time.Minute, slept[0])
		assert.Equal(t, 2, forge.PullRequestCalls)
	})

	t.Run("should abort when the blocked budget is exhausted", func(t *testing.T) {
		t.Parallel()

		// given: blocked forever, budget worth one wait
		rebase := &spyRebase{}
		forge := &repositorydoubles.SpyForgeRepository{
			PullRequestStates: []*entities.PullRequest{
				entitybuilders.NewPullRequestBuilder().
					WithStatus(entities.PullRequestBlocked).BuildPullRequest(),
			},
		}

		// when
		_, err := instantMerge(rebase, nil).Execute(
			context.Background(), forge,
			commands.MergeRequestOptions{
				MergeOptions: entities.MergeOptions{
					PullNumber:     42,
					WaitForBlocked: "5m",
				},
			},
		)

		// then
		require.Error(t, err)
		assert.True(t, entities.IsKind(err, entities.MergeBlockedForPullRequest))
	})

	t.Run("should rebase between a transient merge failure and the retry", func(t *testing.T) {
		t.Parallel()

		// given: the first merge attempt hits a moved base
		rebase := &spyRebase{}
		conflictErr := entities.NewForgeError(
			entities.MergeConflict, "Base branch was modified",
		)
		forge := &repositorydoubles.SpyForgeRepository{
			PullRequestStates: []*entities.PullRequest{
				entitybuilders.NewPullRequestBuilder().
					WithBranches("feature", "main").BuildPullRequest(),
			},
			MergeOutcomes: []repositorydoubles.MergeOutcome{
				{Err: conflictErr},
				{Message: "second attempt"},
			},
		}

		// when
		message, err := instantMerge(rebase, nil).Execute(
			context.Background(), forge,
			commands.MergeRequestOptions{
				MergeOptions: entities.MergeOptions{PullNumber: 42},
			},
		)

		// then
		require.NoError(t, err)
		assert.Equal(t, "second attempt", message)
		require.Len(t, rebase.calls, 1)
		assert.Equal(t, "feature", rebase.calls[0].SourceBranch)
		assert.Equal(t, "main", rebase.calls[0].TargetBranch)
		assert.Equal(t, 2, forge.MergeCalls)
	})

	t.Run("should rebase a conflicted pull request before merging", func(t *testing.T) {
		t.Parallel()

		// given
		rebase := &spyRebase{}
		forge := &repositorydoubles.SpyForgeRepository{
			PullRequestStates: []*entities.PullRequest{
				entitybuilders.NewPullRequestBuilder().
					WithStatus(entities.PullRequestConflicts).BuildPullRequest(),
				entitybuilders.NewPullRequestBuilder().BuildPullRequest(),
			},
			MergeOutcomes: []repositorydoubles.MergeOutcome{{Message: "merged"}},
		}

		// when
		_, err := instantMerge(rebase, nil).Execute(
			context.Background(), forge,
			commands.MergeRequestOptions{
				MergeOptions: entities.MergeOptions{PullNumber: 42},
			},
		)

		// then
		require.NoError(t, err)
		assert.Len(t, rebase.calls, 1)
	})

	t.Run("should surface unresolved-conflict failures from the rebase", func(t *testing.T) {
		t.Parallel()

		// given
		rebase := &spyRebase{
			err: entities.NewForgeError(entities.UnresolvedConflicts, "left behind"),
		}
		forge := &repositorydoubles.SpyForgeRepository{
			PullRequestStates: []*entities.PullRequest{
				entitybuilders.NewPullRequestBuilder().
					WithStatus(entities.PullRequestConflicts).BuildPullRequest(),
			},
		}

		// when
		_, err := instantMerge(rebase, nil).Execute(
			context.Background(), forge,
			commands.MergeRequestOptions{
				MergeOptions: entities.MergeOptions{PullNumber: 42},
			},
		)

		// then
		require.Error(t, err)
		assert.True(t, entities.IsKind(err, entities.UnresolvedConflicts))
		assert.Zero(t, forge.MergeCalls)
	})

	t.Run("should abort on non-transient merge errors", func(t *testing.T) {
		t.Parallel()

		// given
		rebase := &spyRebase{}
		fatal := entities.NewForgeError(entities.BadCredentials, "nope")
		forge := &repositorydoubles.SpyForgeRepository{
			PullRequestStates: []*entities.PullRequest{
				entitybuilders.NewPullRequestBuilder().BuildPullRequest(),
			},
			MergeOutcomes: []repositorydoubles.MergeOutcome{{Err: fatal}},
		}

		// when
		_, err := instantMerge(rebase, nil).Execute(
			context.Background(), forge,
			commands.MergeRequestOptions{
				MergeOptions: entities.MergeOptions{PullNumber: 42},
			},
		)

		// then
		require.Error(t, err)
		assert.True(t, entities.IsKind(err, entities.BadCredentials))
		assert.Empty(t, rebase.calls)
	})

	t.Run("should compose the caller's retry evaluator", func(t *testing.T) {
		t.Parallel()

		// given: an error only the caller recognizes as transient
		rebase := &spyRebase{}
		custom := entities.NewForgeError(entities.Fatal, "custom transient marker")
		forge := &repositorydoubles.SpyForgeRepository{
			PullRequestStates: []*entities.PullRequest{
				entitybuilders.NewPullRequestBuilder().BuildPullRequest(),
			},
			MergeOutcomes: []repositorydoubles.MergeOutcome{
				{Err: custom},
				{Message: "recovered"},
			},
		}

		// when
		message, err := instantMerge(rebase, nil).Execute(
			context.Background(), forge,
			commands.MergeRequestOptions{
				MergeOptions: entities.MergeOptions{PullNumber: 42},
				RetryEvaluator: func(err error) bool {
					return entities.KindOf(err) == entities.Fatal
				},
			},
		)

		// then
		require.NoError(t, err)
		assert.Equal(t, "recovered", message)
		assert.Len(t, rebase.calls, 1)
	})

	t.Run("should delete the source branch best-effort after merging", func(t *testing.T) {
		t.Parallel()

		// given
		rebase := &spyRebase{}
		forge := &repositorydoubles.SpyForgeRepository{
			PullRequestStates: []*entities.PullRequest{
				entitybuilders.NewPullRequestBuilder().
					WithBranches("feature", "main").BuildPullRequest(),
			},
			MergeOutcomes:   []repositorydoubles.MergeOutcome{{Message: "merged"}},
			DeleteBranchErr: entities.NewForgeError(entities.Fatal, "refused"),
		}

		// when
		message, err := instantMerge(rebase, nil).Execute(
			context.Background(), forge,
			commands.MergeRequestOptions{
				MergeOptions: entities.MergeOptions{
					PullNumber:         42,
					DeleteSourceBranch: true,
				},
			},
		)

		// then: the delete failure is swallowed
		require.NoError(t, err)
		assert.Equal(t, "merged", message)
		assert.Equal(t, []string{"feature"}, forge.DeletedBranches)
	})
}
