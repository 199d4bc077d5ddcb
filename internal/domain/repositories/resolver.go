package repositories

import "context"

// ConflictError reports that a resolver failed on one file.
type ConflictError struct {
	Path string
	Err  error
}

// Resolution is the outcome of one resolver invocation over a set of
// conflicted files.
type Resolution struct {
	// ResolvedConflicts lists the files the resolver fixed in the
	// working tree. Each will be staged and committed by the caller.
	ResolvedConflicts []string
	// ConflictErrors aborts the rebase when non-empty.
	ConflictErrors []ConflictError
}

// Resolver converts a set of conflicted files in a workspace into a set
// of resolved files, possibly with per-file errors. Resolvers are plain
// function values; compose them by wrapping.
type Resolver func(ctx context.Context, ws Workspace, conflicted []string) (Resolution, error)
