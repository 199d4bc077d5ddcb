package commands

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitu/internal/domain/entities"
	"github.com/rios0rios0/gitu/internal/domain/repositories"
)

const (
	defaultWorkspaceRoot = "/tmp/repo"
	workspaceSuffixLen   = 5

	// Emitted by git when a resolution left nothing to commit for the
	// current rebase step.
	noChangesMarker = "No changes - did you forget to use 'git add'"
)

// Rebase is the interface for the branch-rebase operation.
type Rebase interface {
	Execute(
		ctx context.Context,
		forge repositories.ForgeRepository,
		opts RebaseOptions,
	) (bool, error)
}

// RebaseOptions holds runtime options for one rebase.
type RebaseOptions struct {
	SourceBranch string
	TargetBranch string
	// Resolver handles conflicted files; nil resolves nothing, so any
	// conflict aborts with UnresolvedConflicts.
	Resolver   repositories.Resolver
	UserConfig *entities.UserConfig
}

// RebaseCommand rebases a source branch onto a target in a throwaway
// local workspace, drives the conflict resolver, and force-pushes with
// lease when the source changed.
type RebaseCommand struct {
	workspaceRoot string
}

// NewRebaseCommand creates a new RebaseCommand.
func NewRebaseCommand() *RebaseCommand {
	return &RebaseCommand{workspaceRoot: defaultWorkspaceRoot}
}

// Execute runs the rebase. It returns true when the source branch was
// changed and pushed, false when the source already contained the
// target. The workspace directory is removed on every exit path.
func (it *RebaseCommand) Execute(
	ctx context.Context,
	forge repositories.ForgeRepository,
	opts RebaseOptions,
) (bool, error) {
	dir := filepath.Join(
		it.workspaceRoot,
		opts.SourceBranch,
		"rebase-"+randomSuffix(workspaceSuffixLen),
	)
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warnf("failed to remove workspace %q: %v", dir, err)
		}
	}()

	logger.Debugf(
		"rebasing %s onto %s in %s",
		opts.SourceBranch, opts.TargetBranch, dir,
	)

	ws, err := forge.Clone(ctx, repositories.CloneOptions{
		LocalDir:   dir,
		UserConfig: opts.UserConfig,
	})
	if err != nil {
		return false, err
	}

	if err := ws.CheckoutNew(ctx, opts.SourceBranch, "origin/"+opts.SourceBranch); err != nil {
		return false, err
	}

	// The rebase's own exit code is ignored; the status loop below
	// decides what actually happened.
	if _, err := ws.Rebase(ctx, opts.TargetBranch); err != nil {
		return false, err
	}

	if err := it.resolveLoop(ctx, ws, opts); err != nil {
		return false, err
	}

	status, err := ws.Status(ctx)
	if err != nil {
		return false, err
	}
	if status.Ahead == 0 && status.Behind == 0 {
		logger.Infof(
			"branch %s already contains %s, nothing to push",
			opts.SourceBranch, opts.TargetBranch,
		)
		return false, nil
	}

	if err := ws.Push(ctx, opts.SourceBranch, true); err != nil {
		return false, err
	}

	logger.Infof("pushed rebased branch %s", opts.SourceBranch)
	return true, nil
}

// resolveLoop drives the conflict/continue cycle until the working tree
// is clean.
func (it *RebaseCommand) resolveLoop(
	ctx context.Context,
	ws repositories.Workspace,
	opts RebaseOptions,
) error {
	resolver := opts.Resolver
	if resolver == nil {
		resolver = func(context.Context, repositories.Workspace, []string) (repositories.Resolution, error) {
			return repositories.Resolution{}, nil
		}
	}

	for {
		status, err := ws.Status(ctx)
		if err != nil {
			return err
		}
		if status.Clean() {
			return nil
		}

		if len(status.Conflicted) > 0 {
			if err := it.resolveConflicts(ctx, ws, resolver, status.Conflicted); err != nil {
				return err
			}
		}

		out, err := ws.RebaseContinue(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(out, noChangesMarker) {
			if err := ws.RebaseSkip(ctx); err != nil {
				return err
			}
		}
	}
}

// resolveConflicts invokes the resolver once and commits each resolved
// file, enforcing the resolver contract.
func (it *RebaseCommand) resolveConflicts(
	ctx context.Context,
	ws repositories.Workspace,
	resolver repositories.Resolver,
	conflicted []string,
) error {
	resolution, err := resolver(ctx, ws, conflicted)
	if err != nil {
		return entities.WrapForgeError(
			entities.ConflictResolutionFailed, err,
			"resolver failed on %d conflicted files", len(conflicted),
		)
	}

	if len(resolution.ConflictErrors) > 0 {
		first := resolution.ConflictErrors[0]
		return entities.WrapForgeError(
			entities.ConflictResolutionFailed, first.Err,
			"resolver reported %d errors, first on %q",
			len(resolution.ConflictErrors), first.Path,
		)
	}

	resolved := map[string]bool{}
	for _, file := range resolution.ResolvedConflicts {
		resolved[file] = true
	}
	var unresolved []string
	for _, file := range conflicted {
		if !resolved[file] {
			unresolved = append(unresolved, file)
		}
	}
	if len(unresolved) > 0 {
		return entities.NewForgeError(
			entities.UnresolvedConflicts,
			"conflicts left unresolved: %s", strings.Join(unresolved, ", "),
		)
	}

	for _, file := range resolution.ResolvedConflicts {
		if err := ws.Add(ctx, file); err != nil {
			return err
		}
		if err := ws.Commit(ctx, "Resolves conflict with "+file); err != nil {
			return err
		}
	}
	return nil
}

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// randomSuffix returns n random alphanumeric characters.
func randomSuffix(n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = suffixAlphabet[rand.IntN(len(suffixAlphabet))]
	}
	return string(out)
}
