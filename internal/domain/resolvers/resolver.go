// Package resolvers ships the reference conflict resolvers used during
// automated rebases.
package resolvers

import (
	"context"

	"github.com/rios0rios0/gitu/internal/domain/repositories"
)

// Default resolves nothing: any conflict left in the workspace surfaces
// as UnresolvedConflicts.
func Default() repositories.Resolver {
	return func(_ context.Context, _ repositories.Workspace, _ []string) (repositories.Resolution, error) {
		return repositories.Resolution{}, nil
	}
}
