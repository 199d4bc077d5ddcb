package resolvers

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitu/internal/domain/repositories"
)

// Union builds a resolver that union-merges every conflicted file: the
// common ancestor, ours and theirs are recovered from the index (stages
// 1/2/3) and combined with `git merge-file --union`, keeping both sides
// of each conflicting hunk.
func Union() repositories.Resolver {
	return func(ctx context.Context, ws repositories.Workspace, conflicted []string) (repositories.Resolution, error) {
		var resolution repositories.Resolution

		repo, err := gogit.PlainOpen(ws.Dir())
		if err != nil {
			return resolution, fmt.Errorf("failed to open workspace: %w", err)
		}

		idx, err := repo.Storer.Index()
		if err != nil {
			return resolution, fmt.Errorf("failed to read index: %w", err)
		}

		for _, file := range conflicted {
			if err := unionMergeFile(ctx, ws, repo, idx, file); err != nil {
				resolution.ConflictErrors = append(
					resolution.ConflictErrors,
					repositories.ConflictError{Path: file, Err: err},
				)
				continue
			}
			resolution.ResolvedConflicts = append(resolution.ResolvedConflicts, file)
		}

		return resolution, nil
	}
}

// unionMergeFile reconstructs the three stages of file, merges them and
// writes the result into the working tree.
func unionMergeFile(
	ctx context.Context,
	ws repositories.Workspace,
	repo *gogit.Repository,
	idx *index.Index,
	file string,
) error {
	// Git stage numbers: 1 = common ancestor, 2 = ours, 3 = theirs.
	stages := map[int]plumbing.Hash{}
	for _, entry := range idx.Entries {
		if entry.Name == file && int(entry.Stage) != 0 {
			stages[int(entry.Stage)] = entry.Hash
		}
	}

	common, err := stageTempFile(repo, stages[1])
	if err != nil {
		return err
	}
	defer os.Remove(common)

	ours, err := stageTempFile(repo, stages[2])
	if err != nil {
		return err
	}
	defer os.Remove(ours)

	theirs, err := stageTempFile(repo, stages[3])
	if err != nil {
		return err
	}
	defer os.Remove(theirs)

	merged, err := ws.Raw(ctx, "merge-file", "--union", "-p", ours, common, theirs)
	if err != nil {
		return fmt.Errorf("failed to union-merge %q: %w", file, err)
	}

	target := filepath.Join(ws.Dir(), file)
	if err := os.WriteFile(target, []byte(merged), 0o644); err != nil {
		return fmt.Errorf("failed to write merged %q: %w", file, err)
	}

	logger.Debugf("union-merged %s", file)
	return nil
}

// stageTempFile writes the blob at hash into a temp file and returns its
// path. A zero hash (missing stage, e.g. an add/add conflict) yields an
// empty file.
func stageTempFile(repo *gogit.Repository, hash plumbing.Hash) (string, error) {
	tmp, err := os.CreateTemp("", "gitu-union-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if hash.IsZero() {
		_ = tmp.Close()
		return tmp.Name(), nil
	}

	blob, err := repo.BlobObject(hash)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to read blob %s: %w", hash, err)
	}

	reader, err := blob.Reader()
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to open blob %s: %w", hash, err)
	}
	defer reader.Close() //nolint:errcheck

	if _, err := io.Copy(tmp, reader); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to copy blob %s: %w", hash, err)
	}

	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return tmp.Name(), nil
}
