package repositories

import "context"

// GitStatus is the parsed state of a workspace's working tree relative to
// its upstream.
type GitStatus struct {
	Conflicted []string
	Staged     []string
	Deleted    []string
	Untracked  []string
	Ahead      int
	Behind     int
}

// Clean reports whether the working tree has nothing conflicted, staged,
// deleted or untracked.
func (s GitStatus) Clean() bool {
	return len(s.Conflicted) == 0 &&
		len(s.Staged) == 0 &&
		len(s.Deleted) == 0 &&
		len(s.Untracked) == 0
}

// Workspace is a local clone used to perform branch surgery. It is
// exclusively owned by its creator and must be removed on every exit
// path.
type Workspace interface {
	// Dir is the filesystem location of the clone.
	Dir() string

	// CheckoutNew creates branch from startPoint and checks it out.
	CheckoutNew(ctx context.Context, branch string, startPoint string) error

	// Rebase rebases the current branch onto target. The combined
	// output is returned; a conflicting rebase is not an error here,
	// callers inspect Status instead.
	Rebase(ctx context.Context, target string) (string, error)

	// RebaseContinue resumes a conflicted rebase after resolutions were
	// committed. Output is returned for inspection.
	RebaseContinue(ctx context.Context) (string, error)

	// RebaseSkip skips the current rebase commit.
	RebaseSkip(ctx context.Context) error

	// Status reads the current working-tree state.
	Status(ctx context.Context) (*GitStatus, error)

	// Add stages one path.
	Add(ctx context.Context, path string) error

	// Commit records the staged changes.
	Commit(ctx context.Context, message string) error

	// Push pushes branch to origin, optionally with --force-with-lease.
	Push(ctx context.Context, branch string, forceWithLease bool) error

	// ConfigSet writes one local git config entry.
	ConfigSet(ctx context.Context, key string, value string) error

	// Raw runs an arbitrary git subcommand in the workspace and returns
	// its combined output.
	Raw(ctx context.Context, args ...string) (string, error)

	// Remove deletes the clone directory.
	Remove() error
}
