package entities

import (
	"errors"
	"fmt"
)

// ErrorKind is the forge-independent error taxonomy. Every error that
// crosses the library boundary carries exactly one kind.
type ErrorKind string

const (
	InsufficientPermissions    ErrorKind = "insufficient_permissions"
	BadCredentials             ErrorKind = "bad_credentials"
	UserNotFound               ErrorKind = "user_not_found"
	InvalidGitUrl              ErrorKind = "invalid_git_url"
	RepoNotFound               ErrorKind = "repo_not_found"
	GroupNotFound              ErrorKind = "group_not_found"
	WebhookAlreadyExists       ErrorKind = "webhook_already_exists"
	UnknownWebhook             ErrorKind = "unknown_webhook"
	MergeConflict              ErrorKind = "merge_conflict"
	NoCommitsForPullRequest    ErrorKind = "no_commits_for_pull_request"
	MergeBlockedForPullRequest ErrorKind = "merge_blocked_for_pull_request"
	UnresolvedConflicts        ErrorKind = "unresolved_conflicts"
	ConflictResolutionFailed   ErrorKind = "conflict_resolution_failed"
	Retryable                  ErrorKind = "retryable"
	Fatal                      ErrorKind = "fatal"
)

// ForgeError is the structured error surfaced by every operation.
type ForgeError struct {
	Kind    ErrorKind
	Message string
	// Forge is the kind of the adapter that produced the error, when
	// known.
	Forge ForgeKind
	// PullNumber is set for pull-request-scoped kinds such as
	// MergeConflict.
	PullNumber int
	Cause      error
}

func (e *ForgeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Forge != ForgeKindNotSet {
		msg = fmt.Sprintf("%s [%s]", msg, e.Forge)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ForgeError) Unwrap() error {
	return e.Cause
}

// NewForgeError builds a ForgeError with a formatted message.
func NewForgeError(kind ErrorKind, format string, args ...any) *ForgeError {
	return &ForgeError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapForgeError builds a ForgeError wrapping cause.
func WrapForgeError(kind ErrorKind, cause error, format string, args ...any) *ForgeError {
	return &ForgeError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// WithForge tags the error with the forge that produced it.
func (e *ForgeError) WithForge(kind ForgeKind) *ForgeError {
	e.Forge = kind
	return e
}

// WithPullNumber tags the error with the affected pull request.
func (e *ForgeError) WithPullNumber(number int) *ForgeError {
	e.PullNumber = number
	return e
}

// KindOf extracts the taxonomy kind from err, or "" when err carries no
// ForgeError anywhere in its chain.
func KindOf(err error) ErrorKind {
	var fe *ForgeError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsKind reports whether err (or anything it wraps) is a ForgeError of
// the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
