//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"strings"

	"github.com/rios0rios0/gitu/internal/domain/repositories"
)

// StubWorkspace implements repositories.Workspace with scripted
// responses and call recording.
type StubWorkspace struct {
	DirPath string

	// Statuses are consumed in order by Status; the last one repeats.
	Statuses    []repositories.GitStatus
	StatusCalls int

	// RebaseContinueOutputs are consumed in order; the last repeats.
	RebaseContinueOutputs []string
	rebaseContinueCalls   int

	CheckedOut  []string
	Rebased     []string
	Skipped     int
	AddedFiles  []string
	Commits     []string
	Pushed      []string
	ConfigsSet  map[string]string
	RawCommands []string
	RemovedDirs int

	// RawFunc optionally intercepts Raw calls.
	RawFunc func(args ...string) (string, error)
}

func (w *StubWorkspace) Dir() string {
	return w.DirPath
}

func (w *StubWorkspace) CheckoutNew(_ context.Context, branch string, startPoint string) error {
	w.CheckedOut = append(w.CheckedOut, branch+" "+startPoint)
	return nil
}

func (w *StubWorkspace) Rebase(_ context.Context, target string) (string, error) {
	w.Rebased = append(w.Rebased, target)
	return "", nil
}

func (w *StubWorkspace) RebaseContinue(_ context.Context) (string, error) {
	idx := w.rebaseContinueCalls
	w.rebaseContinueCalls++
	if idx >= len(w.RebaseContinueOutputs) {
		idx = len(w.RebaseContinueOutputs) - 1
	}
	if idx < 0 {
		return "", nil
	}
	return w.RebaseContinueOutputs[idx], nil
}

func (w *StubWorkspace) RebaseSkip(_ context.Context) error {
	w.Skipped++
	return nil
}

func (w *StubWorkspace) Status(_ context.Context) (*repositories.GitStatus, error) {
	idx := w.StatusCalls
	w.StatusCalls++
	if idx >= len(w.Statuses) {
		idx = len(w.Statuses) - 1
	}
	if idx < 0 {
		return &repositories.GitStatus{}, nil
	}
	status := w.Statuses[idx]
	return &status, nil
}

func (w *StubWorkspace) Add(_ context.Context, path string) error {
	w.AddedFiles = append(w.AddedFiles, path)
	return nil
}

func (w *StubWorkspace) Commit(_ context.Context, message string) error {
	w.Commits = append(w.Commits, message)
	return nil
}

func (w *StubWorkspace) Push(_ context.Context, branch string, forceWithLease bool) error {
	entry := branch
	if forceWithLease {
		entry += " --force-with-lease"
	}
	w.Pushed = append(w.Pushed, entry)
	return nil
}

func (w *StubWorkspace) ConfigSet(_ context.Context, key string, value string) error {
	if w.ConfigsSet == nil {
		w.ConfigsSet = map[string]string{}
	}
	w.ConfigsSet[key] = value
	return nil
}

func (w *StubWorkspace) Raw(_ context.Context, args ...string) (string, error) {
	w.RawCommands = append(w.RawCommands, strings.Join(args, " "))
	if w.RawFunc != nil {
		return w.RawFunc(args...)
	}
	return "", nil
}

func (w *StubWorkspace) Remove() error {
	w.RemovedDirs++
	return nil
}
