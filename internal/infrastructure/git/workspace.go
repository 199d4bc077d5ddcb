package git

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"

	"github.com/rios0rios0/gitu/internal/domain/entities"
	"github.com/rios0rios0/gitu/internal/domain/repositories"
)

// CloneSpec describes one clone request.
type CloneSpec struct {
	// RemoteURL is the full clone URL, credentials already embedded.
	RemoteURL string
	Dir       string
	// CACertPath is written into http.sslCAInfo so subsequent fetches
	// and pushes verify against the same bundle as the HTTP kernel.
	CACertPath  string
	UserConfig  *entities.UserConfig
	ExtraConfig map[string]string
}

// Workspace is an exec-backed implementation of
// repositories.Workspace.
type Workspace struct {
	dir string
}

// Clone clones spec.RemoteURL into spec.Dir and applies the requested
// local configuration.
func Clone(ctx context.Context, spec CloneSpec) (*Workspace, error) {
	if err := os.MkdirAll(filepath.Dir(spec.Dir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace parent: %w", err)
	}

	if _, err := run(ctx, "", "clone", spec.RemoteURL, spec.Dir); err != nil {
		return nil, err
	}

	ws := &Workspace{dir: spec.Dir}

	if spec.UserConfig != nil {
		if err := ws.ConfigSet(ctx, "user.name", spec.UserConfig.Name); err != nil {
			return nil, err
		}
		if err := ws.ConfigSet(ctx, "user.email", spec.UserConfig.Email); err != nil {
			return nil, err
		}
	}

	if spec.CACertPath != "" {
		if err := ws.setSSLCAInfo(spec.CACertPath); err != nil {
			return nil, err
		}
	}

	for key, value := range spec.ExtraConfig {
		if err := ws.ConfigSet(ctx, key, value); err != nil {
			return nil, err
		}
	}

	return ws, nil
}

// WithCredentials embeds a percent-encoded username and password into
// rawURL.
func WithCredentials(rawURL string, username string, password string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse remote URL: %w", err)
	}

	switch {
	case username == "" && password == "":
		parsed.User = nil
	case password == "":
		parsed.User = url.User(username)
	default:
		parsed.User = url.UserPassword(username, password)
	}

	return parsed.String(), nil
}

func (w *Workspace) Dir() string {
	return w.dir
}

func (w *Workspace) CheckoutNew(ctx context.Context, branch string, startPoint string) error {
	_, err := run(ctx, w.dir, "checkout", "-b", branch, startPoint)
	return err
}

// Rebase rebases the current branch onto target. A conflicting rebase is
// reported through Status, not as an error; only the output is returned.
func (w *Workspace) Rebase(ctx context.Context, target string) (string, error) {
	out, err := run(ctx, w.dir, "rebase", target)
	if ctx.Err() != nil {
		return out, ctx.Err()
	}
	// The exit code is deliberately ignored: conflicts are expected.
	_ = err
	return out, nil
}

func (w *Workspace) RebaseContinue(ctx context.Context) (string, error) {
	out, err := run(ctx, w.dir, "rebase", "--continue")
	if ctx.Err() != nil {
		return out, ctx.Err()
	}
	_ = err
	return out, nil
}

func (w *Workspace) RebaseSkip(ctx context.Context) error {
	_, err := run(ctx, w.dir, "rebase", "--skip")
	return err
}

func (w *Workspace) Status(ctx context.Context) (*repositories.GitStatus, error) {
	out, err := run(ctx, w.dir, "status", "--porcelain=v2", "--branch")
	if err != nil {
		return nil, err
	}
	status := ParsePorcelainStatus(out)
	return &status, nil
}

func (w *Workspace) Add(ctx context.Context, path string) error {
	_, err := run(ctx, w.dir, "add", path)
	return err
}

func (w *Workspace) Commit(ctx context.Context, message string) error {
	_, err := run(ctx, w.dir, "commit", "-m", message)
	return err
}

func (w *Workspace) Push(ctx context.Context, branch string, forceWithLease bool) error {
	args := []string{"push", "origin", branch}
	if forceWithLease {
		args = append(args, "--force-with-lease")
	}
	_, err := run(ctx, w.dir, args...)
	return err
}

func (w *Workspace) ConfigSet(ctx context.Context, key string, value string) error {
	_, err := run(ctx, w.dir, "config", key, value)
	return err
}

func (w *Workspace) Raw(ctx context.Context, args ...string) (string, error) {
	return run(ctx, w.dir, args...)
}

func (w *Workspace) Remove() error {
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("failed to remove workspace %q: %w", w.dir, err)
	}
	return nil
}

// setSSLCAInfo writes http.sslCAInfo through go-git's config layer.
func (w *Workspace) setSSLCAInfo(caCertPath string) error {
	repo, err := gogit.PlainOpen(w.dir)
	if err != nil {
		return fmt.Errorf("failed to open workspace repository: %w", err)
	}

	cfg, err := repo.Config()
	if err != nil {
		return fmt.Errorf("failed to read workspace config: %w", err)
	}

	cfg.Raw.Section("http").SetOption("sslCAInfo", caCertPath)

	if err := repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("failed to write workspace config: %w", err)
	}
	return nil
}
