package resolvers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	yaml "github.com/goccy/go-yaml"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitu/internal/domain/repositories"
)

const kustomizationFile = "kustomization.yaml"

// Kustomize builds a resolver for kustomization.yaml conflicts: the file
// is restored to "ours" and resource is appended to its resources list,
// sorted and deduplicated. Files other than kustomization.yaml are left
// unresolved.
func Kustomize(resource string) repositories.Resolver {
	return func(ctx context.Context, ws repositories.Workspace, conflicted []string) (repositories.Resolution, error) {
		var resolution repositories.Resolution

		for _, file := range conflicted {
			if filepath.Base(file) != kustomizationFile {
				continue
			}

			if err := appendResource(ctx, ws, file, resource); err != nil {
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

// appendResource rewrites one kustomization.yaml with resource added to
// its resources list.
func appendResource(
	ctx context.Context,
	ws repositories.Workspace,
	file string,
	resource string,
) error {
	if _, err := ws.Raw(ctx, "checkout", "--ours", "--", file); err != nil {
		return fmt.Errorf("failed to restore ours for %q: %w", file, err)
	}

	path := filepath.Join(ws.Dir(), file)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", file, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse %q: %w", file, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	doc["resources"] = mergeResources(doc["resources"], resource)

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to render %q: %w", file, err)
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write %q: %w", file, err)
	}

	logger.Debugf("appended resource %q to %s", resource, file)
	return nil
}

// mergeResources appends resource to the existing list, deduplicated and
// sorted.
func mergeResources(existing any, resource string) []string {
	seen := map[string]bool{resource: true}
	resources := []string{resource}

	if list, ok := existing.([]any); ok {
		for _, item := range list {
			name, ok := item.(string)
			if !ok || seen[name] {
				continue
			}
			seen[name] = true
			resources = append(resources, name)
		}
	}

	sort.Strings(resources)
	return resources
}
