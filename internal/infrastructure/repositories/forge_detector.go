package repositories

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitu/internal/domain/entities"
	"github.com/rios0rios0/gitu/internal/infrastructure/httpclient"
)

const (
	hostGitHub    = "github.com"
	hostBitbucket = "bitbucket.org"
	hostAzure     = "dev.azure.com"

	gheVersionHeader = "X-GitHub-Enterprise-Version"
)

var azureRepoPattern = regexp.MustCompile(`^([^/]+)/_git/(.+)$`)

// ForgeDetector deduces which forge implements a host: the well-known
// SaaS hosts map directly, everything else is probed through the HTTP
// kernel until an API signature answers.
type ForgeDetector struct {
	// newClient builds the probe client; swapped out in tests.
	newClient func(coord entities.Coordinate) (*http.Client, error)
}

// NewForgeDetector creates a detector probing with kernel clients.
func NewForgeDetector() *ForgeDetector {
	return &ForgeDetector{
		newClient: func(coord entities.Coordinate) (*http.Client, error) {
			return httpclient.New(httpclient.Options{
				Username:   coord.Username,
				Token:      coord.Password,
				CACertPath: coord.CACertPath,
			})
		},
	}
}

// Detect returns the forge kind for the coordinate, plus the coordinate
// itself possibly transformed (Azure splits repo into project and repo).
func (it *ForgeDetector) Detect(
	ctx context.Context,
	coord entities.Coordinate,
) (entities.ForgeKind, entities.Coordinate, error) {
	switch coord.Host {
	case hostGitHub:
		return entities.ForgeGitHub, coord, nil
	case hostBitbucket:
		return entities.ForgeBitbucket, coord, nil
	case hostAzure:
		return entities.ForgeAzure, applyAzureSplit(coord), nil
	}

	client, err := it.newClient(coord)
	if err != nil {
		return entities.ForgeKindNotSet, coord, err
	}

	base := fmt.Sprintf("%s://%s", coord.Protocol, coord.Host)

	// GitHub Enterprise answers /api/v3 with a version header even on
	// auth failures.
	if headers, _, _ := probe(ctx, client, base+"/api/v3"); headers != nil &&
		headers.Get(gheVersionHeader) != "" {
		logger.Debugf("%s identified as GitHub Enterprise", coord.Host)
		return entities.ForgeGHE, coord, nil
	}

	if _, body, ok := probe(ctx, client, base+"/api/v4/projects"); ok && isJSONValue(body) {
		logger.Debugf("%s identified as GitLab", coord.Host)
		return entities.ForgeGitLab, coord, nil
	}

	if _, body, ok := probe(ctx, client, base+"/api/v1/settings/api"); ok && len(body) > 0 {
		logger.Debugf("%s identified as Gitea", coord.Host)
		return entities.ForgeGitea, coord, nil
	}

	userProbe := fmt.Sprintf("%s/api/v1/users/%s", base, coord.Username)
	if _, body, ok := probe(ctx, client, userProbe); ok && len(body) > 0 {
		logger.Debugf("%s identified as Gogs", coord.Host)
		return entities.ForgeGogs, coord, nil
	}

	return entities.ForgeKindNotSet, coord,
		entities.NewForgeError(
			entities.InvalidGitUrl,
			"unable to identify Git host type for %q", coord.Host,
		)
}

// probe issues one GET; a transport failure or non-2xx status means
// "probe failed", never a surfaced error.
func probe(ctx context.Context, client *http.Client, probeURL string) (http.Header, []byte, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return nil, nil, false
	}

	resp, err := client.Do(req)
	if err != nil {
		logger.Debugf("probe %s failed: %v", probeURL, err)
		return nil, nil, false
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.Header, nil, false
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	return resp.Header, body, ok
}

// isJSONValue reports whether body holds a non-empty JSON object or
// array.
func isJSONValue(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return false
	}
	var value any
	return json.Unmarshal(body, &value) == nil
}

// applyAzureSplit turns an unsplit Azure coordinate (repo carrying
// "project/_git/repo" or just a project name) into project + repo form.
func applyAzureSplit(coord entities.Coordinate) entities.Coordinate {
	if coord.Project != "" || coord.Repo == "" {
		return coord
	}

	out := coord
	if m := azureRepoPattern.FindStringSubmatch(coord.Repo); m != nil {
		out.Project = m[1]
		out.Repo = strings.TrimSuffix(m[2], ".git")
	} else {
		out.Project = coord.Repo
		out.Repo = ""
	}
	return out
}
