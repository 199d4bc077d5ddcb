//go:build unit

package commands_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitu/internal/domain/commands"
	"github.com/rios0rios0/gitu/internal/domain/entities"
	"github.com/rios0rios0/gitu/internal/domain/repositories"
	"github.com/rios0rios0/gitu/test/infrastructure/repositorydoubles"
)

func rebaseOptions(resolver repositories.Resolver) commands.RebaseOptions {
	return commands.RebaseOptions{
		SourceBranch: "feature",
		TargetBranch: "main",
		Resolver:     resolver,
	}
}

func newRebase(t *testing.T) (*commands.RebaseCommand, string) {
	t.Helper()
	root := t.TempDir()
	cmd := commands.NewRebaseCommand()
	cmd.SetWorkspaceRoot(root)
	return cmd, root
}

// workspaceDirs lists the rebase workspaces left under root.
func workspaceDirs(t *testing.T, root string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(root, "*", "rebase-*"))
	require.NoError(t, err)
	return matches
}

func TestRebaseCommand(t *testing.T) {
	t.Parallel()

	t.Run("should return false when the source already contains the target", func(t *testing.T) {
		t.Parallel()

		// given: clean tree, nothing ahead or behind
		cmd, root := newRebase(t)
		ws := &repositorydoubles.StubWorkspace{
			Statuses: []repositories.GitStatus{{}},
		}
		forge := &repositorydoubles.SpyForgeRepository{Workspace: ws}

		// when
		changed, err := cmd.Execute(context.Background(), forge, rebaseOptions(nil))

		// then
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, ws.Pushed)
		assert.Empty(t, workspaceDirs(t, root))
	})

	t.Run("should push with lease when the rebase changed the source", func(t *testing.T) {
		t.Parallel()

		// given: clean tree that is ahead of origin
		cmd, root := newRebase(t)
		ws := &repositorydoubles.StubWorkspace{
			Statuses: []repositories.GitStatus{
				{Ahead: 1},
			},
		}
		forge := &repositorydoubles.SpyForgeRepository{Workspace: ws}

		// when
		changed, err := cmd.Execute(context.Background(), forge, rebaseOptions(nil))

		// then
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, []string{"feature --force-with-lease"}, ws.Pushed)
		assert.Equal(t, []string{"feature origin/feature"}, ws.CheckedOut)
		assert.Equal(t, []string{"main"}, ws.Rebased)
		assert.Empty(t, workspaceDirs(t, root))
	})

	t.Run("should fail with UnresolvedConflicts when the resolver skips files", func(t *testing.T) {
		t.Parallel()

		// given: one conflict the default resolver leaves behind
		cmd, root := newRebase(t)
		ws := &repositorydoubles.StubWorkspace{
			Statuses: []repositories.GitStatus{
				{Conflicted: []string{"a.txt"}},
			},
		}
		forge := &repositorydoubles.SpyForgeRepository{Workspace: ws}

		// when
		changed, err := cmd.Execute(context.Background(), forge, rebaseOptions(nil))

		// then
		require.Error(t, err)
		assert.False(t, changed)
		assert.True(t, entities.IsKind(err, entities.UnresolvedConflicts))
		assert.Empty(t, workspaceDirs(t, root))
	})

	t.Run("should fail with ConflictResolutionFailed on resolver errors", func(t *testing.T) {
		t.Parallel()

		// given
		cmd, root := newRebase(t)
		ws := &repositorydoubles.StubWorkspace{
			Statuses: []repositories.GitStatus{
				{Conflicted: []string{"a.txt"}},
			},
		}
		forge := &repositorydoubles.SpyForgeRepository{Workspace: ws}
		resolver := func(
			_ context.Context, _ repositories.Workspace, conflicted []string,
		) (repositories.Resolution, error) {
			return repositories.Resolution{
				ConflictErrors: []repositories.ConflictError{
					{Path: conflicted[0], Err: errors.New("cannot mend")},
				},
			}, nil
		}

		// when
		_, err := cmd.Execute(context.Background(), forge, rebaseOptions(resolver))

		// then
		require.Error(t, err)
		assert.True(t, entities.IsKind(err, entities.ConflictResolutionFailed))
		assert.Empty(t, workspaceDirs(t, root))
	})

	t.Run("should commit each resolved file and push", func(t *testing.T) {
		t.Parallel()

		// given: conflicts on the first status, clean after resolution
		cmd, root := newRebase(t)
		ws := &repositorydoubles.StubWorkspace{
			Statuses: []repositories.GitStatus{
				{Conflicted: []string{"a.txt", "b.txt"}},
				{},
				{Ahead: 2},
			},
		}
		forge := &repositorydoubles.SpyForgeRepository{Workspace: ws}
		resolver := func(
			_ context.Context, _ repositories.Workspace, conflicted []string,
		) (repositories.Resolution, error) {
			return repositories.Resolution{ResolvedConflicts: conflicted}, nil
		}

		// when
		changed, err := cmd.Execute(context.Background(), forge, rebaseOptions(resolver))

		// then
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, []string{"a.txt", "b.txt"}, ws.AddedFiles)
		assert.Equal(t, []string{
			"Resolves conflict with a.txt",
			"Resolves conflict with b.txt",
		}, ws.Commits)
		assert.Equal(t, []string{"feature --force-with-lease"}, ws.Pushed)
	})

	t.Run("should skip a rebase step that resolved to no changes", func(t *testing.T) {
		t.Parallel()

		// given
		cmd, _ := newRebase(t)
		ws := &repositorydoubles.StubWorkspace{
			Statuses: []repositories.GitStatus{
				{Conflicted: []string{"a.txt"}},
				{},
				{Ahead: 1},
			},
			RebaseContinueOutputs: []string{
				"No changes - did you forget to use 'git add'?",
			},
		}
		forge := &repositorydoubles.SpyForgeRepository{Workspace: ws}
		resolver := func(
			_ context.Context, _ repositories.Workspace, conflicted []string,
		) (repositories.Resolution, error) {
			return repositories.Resolution{ResolvedConflicts: conflicted}, nil
		}

		// when
		_, err := cmd.Execute(context.Background(), forge, rebaseOptions(resolver))

		// then
		require.NoError(t, err)
		assert.Equal(t, 1, ws.Skipped)
	})

	t.Run("should remove the workspace even when the clone fails", func(t *testing.T) {
		t.Parallel()

		// given
		cmd, root := newRebase(t)
		forge := &repositorydoubles.SpyForgeRepository{
			CloneErr: entities.NewForgeError(entities.BadCredentials, "denied"),
		}

		// when
		_, err := cmd.Execute(context.Background(), forge, rebaseOptions(nil))

		// then
		require.Error(t, err)
		assert.Empty(t, workspaceDirs(t, root))
	})

	t.Run("should place the workspace under the source branch", func(t *testing.T) {
		t.Parallel()

		// given
		cmd, root := newRebase(t)
		ws := &repositorydoubles.StubWorkspace{
			Statuses: []repositories.GitStatus{{}},
		}
		forge := &repositorydoubles.SpyForgeRepository{Workspace: ws}

		// when
		_, err := cmd.Execute(context.Background(), forge, rebaseOptions(nil))

		// then
		require.NoError(t, err)
		require.Len(t, forge.ClonedDirs, 1)
		rel, relErr := filepath.Rel(root, forge.ClonedDirs[0])
		require.NoError(t, relErr)
		assert.Equal(t, "feature", filepath.Dir(rel))
		assert.Contains(t, filepath.Base(rel), "rebase-")
		_, statErr := os.Stat(forge.ClonedDirs[0])
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestRandomSuffix(t *testing.T) {
	t.Parallel()

	// when
	suffix := commands.RandomSuffix(5)

	// then
	assert.Len(t, suffix, 5)
	assert.Regexp(t, "^[a-z0-9]+$", suffix)
}
