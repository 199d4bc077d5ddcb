package commands

import (
	"context"
	"math/rand/v2"
	"regexp"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitu/internal/domain/entities"
	"github.com/rios0rios0/gitu/internal/domain/repositories"
)

// blockedWaitStep is how long one wait on a policy-blocked pull request
// lasts before polling again.
const blockedWaitStep = 5 * time.Minute

// mergeTransientPattern matches forge error texts that mean "rebase and
// try again" rather than "give up": the base moved under the pull
// request or mergeability is still being computed.
var mergeTransientPattern = regexp.MustCompile(
	`(?i)(base branch was modified|pull request is not mergeable|merge conflict between base and head)`,
)

// Merge is the interface for the update-and-merge operation.
type Merge interface {
	Execute(
		ctx context.Context,
		forge repositories.ForgeRepository,
		opts MergeRequestOptions,
	) (string, error)
}

// MergeRequestOptions holds runtime options for one orchestrated merge.
type MergeRequestOptions struct {
	entities.MergeOptions

	// Resolver handles conflicted files during the automatic rebase.
	Resolver repositories.Resolver
	// RetryEvaluator is OR-composed with the built-in transient
	// detection; returning true forces another rebase-and-retry round.
	RetryEvaluator func(err error) bool
	UserConfig     *entities.UserConfig
}

// MergeCommand drives one pull request to completion: poll, rebase away
// conflicts, wait out policy blocks within the configured budget, and
// retry transient merge failures after refreshing the source branch.
type MergeCommand struct {
	rebase Rebase

	// sleep and retryDelay are injection points for tests.
	sleep      func(ctx context.Context, d time.Duration) error
	retryDelay func() time.Duration
}

// NewMergeCommand creates a new MergeCommand on top of the given rebase
// operation.
func NewMergeCommand(rebase Rebase) *MergeCommand {
	return &MergeCommand{
		rebase:     rebase,
		sleep:      sleepContext,
		retryDelay: mergeRetryDelay,
	}
}

// Execute runs the merge state machine and returns the forge's merge
// message on success.
func (it *MergeCommand) Execute(
	ctx context.Context,
	forge repositories.ForgeRepository,
	opts MergeRequestOptions,
) (string, error) {
	budget := entities.TimeTextToDuration(opts.WaitForBlocked)
	var waited time.Duration

	for {
		pr, err := forge.PullRequest(ctx, opts.PullNumber)
		if err != nil {
			return "", err
		}
		logger.Debugf(
			"pull request #%d: status=%s mergeStatus=%q",
			pr.Number, pr.Status, pr.MergeStatus,
		)

		switch pr.Status {
		case entities.PullRequestConflicts:
			if err := it.rebaseSource(ctx, forge, pr, opts); err != nil {
				return "", err
			}
			continue

		case entities.PullRequestBlocked:
			if waited < budget {
				logger.Infof(
					"pull request #%d is blocked, waiting %s (%s of %s used)",
					pr.Number, blockedWaitStep, waited, budget,
				)
				if err := it.sleep(ctx, blockedWaitStep); err != nil {
					return "", err
				}
				waited += blockedWaitStep
				continue
			}
			return "", entities.NewForgeError(
				entities.MergeBlockedForPullRequest,
				"pull request stayed blocked beyond the %s budget", budget,
			).WithForge(forge.Kind()).WithPullNumber(pr.Number)
		}

		message, mergeErr := forge.MergePullRequest(ctx, opts.MergeOptions)
		if mergeErr == nil {
			it.deleteSourceBranch(ctx, forge, pr, opts)
			return message, nil
		}

		if !it.shouldRetryMerge(mergeErr, opts) {
			return "", mergeErr
		}

		logger.Debugf(
			"merge attempt for #%d failed transiently: %v",
			pr.Number, mergeErr,
		)
		if err := it.rebaseSource(ctx, forge, pr, opts); err != nil {
			return "", err
		}
		if err := it.sleep(ctx, it.retryDelay()); err != nil {
			return "", err
		}
	}
}

// rebaseSource refreshes the pull request's source branch from its
// target through the rebase machine.
func (it *MergeCommand) rebaseSource(
	ctx context.Context,
	forge repositories.ForgeRepository,
	pr *entities.PullRequest,
	opts MergeRequestOptions,
) error {
	_, err := it.rebase.Execute(ctx, forge, RebaseOptions{
		SourceBranch: pr.SourceBranch,
		TargetBranch: pr.TargetBranch,
		Resolver:     opts.Resolver,
		UserConfig:   opts.UserConfig,
	})
	return err
}

// shouldRetryMerge decides whether a failed merge attempt warrants a
// rebase-and-retry round.
func (it *MergeCommand) shouldRetryMerge(err error, opts MergeRequestOptions) bool {
	switch entities.KindOf(err) {
	case entities.MergeConflict, entities.Retryable:
		return true
	}
	if mergeTransientPattern.MatchString(err.Error()) {
		return true
	}
	return opts.RetryEvaluator != nil && opts.RetryEvaluator(err)
}

// deleteSourceBranch removes the merged source branch when requested;
// failures are logged and swallowed.
func (it *MergeCommand) deleteSourceBranch(
	ctx context.Context,
	forge repositories.ForgeRepository,
	pr *entities.PullRequest,
	opts MergeRequestOptions,
) {
	if !opts.DeleteSourceBranch {
		return
	}
	if err := forge.DeleteBranch(ctx, pr.SourceBranch); err != nil {
		logger.Debugf(
			"failed to delete source branch %q: %v", pr.SourceBranch, err,
		)
	}
}

// sleepContext sleeps for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// mergeRetryDelay is the pause between a rebase and the next merge
// attempt.
func mergeRetryDelay() time.Duration {
	return time.Second + time.Duration(rand.Int64N(int64(5*time.Second)))
}
