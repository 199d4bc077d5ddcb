// Package forge carries what every forge adapter shares: the bound
// coordinate, error tagging, and workspace cloning.
package forge

import (
	"context"
	"strings"

	"github.com/rios0rios0/gitu/internal/domain/entities"
	domainRepos "github.com/rios0rios0/gitu/internal/domain/repositories"
	"github.com/rios0rios0/gitu/internal/infrastructure/git"
	"github.com/rios0rios0/gitu/internal/infrastructure/httpclient"
)

// Base is embedded by every adapter.
type Base struct {
	ForgeKind  entities.ForgeKind
	Coordinate entities.Coordinate
}

// Kind reports which forge backs this adapter.
func (b Base) Kind() entities.ForgeKind {
	return b.ForgeKind
}

// Config returns a defensive copy of the bound coordinate.
func (b Base) Config() entities.Coordinate {
	return b.Coordinate
}

// Error builds a tagged ForgeError.
func (b Base) Error(kind entities.ErrorKind, format string, args ...any) *entities.ForgeError {
	return entities.NewForgeError(kind, format, args...).WithForge(b.ForgeKind)
}

// Wrap builds a tagged ForgeError around cause.
func (b Base) Wrap(kind entities.ErrorKind, cause error, format string, args ...any) *entities.ForgeError {
	return entities.WrapForgeError(kind, cause, format, args...).WithForge(b.ForgeKind)
}

// CloneWorkspace clones cloneURL with the coordinate's credentials baked
// into the remote (percent-encoded) and the CA bundle propagated into
// http.sslCAInfo.
func (b Base) CloneWorkspace(
	ctx context.Context,
	cloneURL string,
	opts domainRepos.CloneOptions,
) (domainRepos.Workspace, error) {
	remote, err := git.WithCredentials(cloneURL, b.Coordinate.Username, b.Coordinate.Password)
	if err != nil {
		return nil, b.Wrap(entities.InvalidGitUrl, err, "bad clone URL %q", cloneURL)
	}

	return git.Clone(ctx, git.CloneSpec{
		RemoteURL:   remote,
		Dir:         opts.LocalDir,
		CACertPath:  b.Coordinate.CACertPath,
		UserConfig:  opts.UserConfig,
		ExtraConfig: opts.ExtraConfig,
	})
}

// AuthKind classifies authentication and permission failures common to
// all forges. The second return is false when err is no such failure.
func AuthKind(err error) (entities.ErrorKind, bool) {
	status := httpclient.StatusOf(err)
	body := httpclient.BodyOf(err)

	switch {
	case strings.Contains(body, "Must have admin rights"):
		return entities.InsufficientPermissions, true
	case status == 401:
		return entities.BadCredentials, true
	case status == 403 &&
		(strings.Contains(body, "Unauthorized") || strings.Contains(body, "Bad credentials")):
		return entities.BadCredentials, true
	}
	return "", false
}
