package commands

import (
	"context"
	"time"
)

// SetSleep replaces the orchestrator's sleep for testing.
func (it *MergeCommand) SetSleep(sleep func(ctx context.Context, d time.Duration) error) {
	it.sleep = sleep
}

// SetRetryDelay replaces the inter-attempt delay for testing.
func (it *MergeCommand) SetRetryDelay(delay func() time.Duration) {
	it.retryDelay = delay
}

// SetWorkspaceRoot redirects rebase workspaces for testing.
func (it *RebaseCommand) SetWorkspaceRoot(root string) {
	it.workspaceRoot = root
}

// RandomSuffix exports randomSuffix for testing.
var RandomSuffix = randomSuffix //nolint:gochecknoglobals // test export
