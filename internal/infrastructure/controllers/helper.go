package controllers

import (
	"fmt"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/gitu/config"
	"github.com/rios0rios0/gitu/internal/domain/entities"
	domainRepos "github.com/rios0rios0/gitu/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/gitu/internal/infrastructure/repositories"
)

// ForgeResolver turns CLI flags, environment variables and the
// credential file into a ready forge adapter. Precedence: explicit
// flags, then GIT_* environment, then ~/.gitu-config by host.
type ForgeResolver struct {
	provider *infraRepos.ForgeProvider
}

// NewForgeResolver creates a resolver over the given provider.
func NewForgeResolver(provider *infraRepos.ForgeProvider) *ForgeResolver {
	return &ForgeResolver{provider: provider}
}

// Resolve builds the adapter for the invocation. The repository URL
// comes, in this order, from the --url flag, the first positional
// argument, GIT_URL, or is composed from GIT_HOST and GIT_PROJECT.
func (it *ForgeResolver) Resolve(cmd *cobra.Command, args []string) (domainRepos.ForgeRepository, error) {
	env := config.ReadEnvironment()

	rawURL, _ := cmd.Flags().GetString("url")
	if rawURL == "" && len(args) > 0 {
		rawURL = args[0]
	}
	if rawURL == "" {
		rawURL = env.URL
	}
	if rawURL == "" && env.Host != "" {
		rawURL = "https://" + env.Host
		if env.Project != "" {
			rawURL += "/" + env.Project
		}
	}
	if rawURL == "" {
		return nil, entities.NewForgeError(
			entities.InvalidGitUrl,
			"no repository URL given; pass one, set --url, or export GIT_URL",
		)
	}

	coord, err := entities.ParseGitURL(rawURL)
	if err != nil {
		return nil, err
	}

	creds := it.credentials(cmd, env, coord.Host)
	return it.provider.FromCoordinate(cmd.Context(), coord.ApplyCredentials(creds))
}

// credentials resolves the credential chain for host.
func (it *ForgeResolver) credentials(
	cmd *cobra.Command,
	env config.Environment,
	host string,
) entities.Credentials {
	username, _ := cmd.Flags().GetString("username")
	token, _ := cmd.Flags().GetString("token")
	caCert, _ := cmd.Flags().GetString("ca-cert")

	if username == "" {
		username = env.Username
	}
	if token == "" {
		token = env.Token
	}
	if caCert == "" {
		caCert = env.CACertPath
	}

	if token == "" {
		if path, err := config.DefaultPath(); err == nil {
			if cfg, loadErr := config.Load(path); loadErr == nil {
				if cred, ok := cfg.Lookup(host); ok {
					logger.Debugf("using credentials for %s from %s", host, config.FileName)
					username = cred.Username
					token = cred.Token
				}
			}
		}
	}

	return entities.Credentials{
		Username:   username,
		Token:      token,
		CACertPath: caCert,
	}
}

// fail reports a surfaced error and terminates with exit code 1.
func fail(err error) {
	logger.Fatalf("Error: %v", err)
}

// requireArg returns args[idx] or terminates with a usage error.
func requireArg(args []string, idx int, name string) string {
	if len(args) <= idx {
		fail(fmt.Errorf("missing required argument %q", name))
	}
	return args[idx]
}
