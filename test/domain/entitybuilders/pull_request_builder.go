//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	testkit "github.com/rios0rios0/testkit/pkg/test"

	"github.com/rios0rios0/gitu/internal/domain/entities"
)

// PullRequestBuilder helps create test pull requests with a fluent interface.
type PullRequestBuilder struct {
	*testkit.BaseBuilder
	number int
	source string
	target string
	status entities.PullRequestStatus
}

// NewPullRequestBuilder creates a new pull request builder with sensible defaults.
func NewPullRequestBuilder() *PullRequestBuilder {
	return &PullRequestBuilder{
		BaseBuilder: testkit.NewBaseBuilder(),
		number:      42,
		source:      "feature",
		target:      "main",
		status:      entities.PullRequestActive,
	}
}

// WithNumber sets the pull request number.
func (b *PullRequestBuilder) WithNumber(number int) *PullRequestBuilder {
	b.number = number
	return b
}

// WithBranches sets the source and target branches.
func (b *PullRequestBuilder) WithBranches(source string, target string) *PullRequestBuilder {
	b.source = source
	b.target = target
	return b
}

// WithStatus sets the normalized status.
func (b *PullRequestBuilder) WithStatus(status entities.PullRequestStatus) *PullRequestBuilder {
	b.status = status
	return b
}

// Build creates the pull request (satisfies testkit.Builder interface).
func (b *PullRequestBuilder) Build() interface{} {
	return b.BuildPullRequest()
}

// BuildPullRequest creates the pull request with a concrete return type.
func (b *PullRequestBuilder) BuildPullRequest() *entities.PullRequest {
	return &entities.PullRequest{
		Number:       b.number,
		SourceBranch: b.source,
		TargetBranch: b.target,
		Status:       b.status,
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *PullRequestBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.number = 42
	b.source = "feature"
	b.target = "main"
	b.status = entities.PullRequestActive
	return b
}

// Clone creates a deep copy of the PullRequestBuilder.
func (b *PullRequestBuilder) Clone() testkit.Builder {
	return &PullRequestBuilder{
		BaseBuilder: b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		number:      b.number,
		source:      b.source,
		target:      b.target,
		status:      b.status,
	}
}
