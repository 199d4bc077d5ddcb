// Package git is the local-git driver: a thin wrapper over the git
// binary plus go-git for repository introspection.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	logger "github.com/sirupsen/logrus"
)

// run executes git with the given arguments in dir and returns combined
// stdout+stderr. Pass an empty dir for the current working directory.
func run(ctx context.Context, dir string, args ...string) (string, error) {
	logger.Debugf("executing: git %s", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}

	out, err := cmd.CombinedOutput()
	logger.Debugf("git output: %s", string(out))

	if err != nil {
		return string(out), fmt.Errorf(
			"failed to run git %s: %w", strings.Join(args, " "), err,
		)
	}
	return string(out), nil
}
