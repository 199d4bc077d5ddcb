//go:build unit

package repositories_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitu/internal/domain/entities"
	infraRepos "github.com/rios0rios0/gitu/internal/infrastructure/repositories"
)

// probeServer fakes a self-hosted forge and records every probe path in
// order.
func probeServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, entities.Coordinate, *[]string) {
	t.Helper()

	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	parsed, err := url.Parse(server.URL)
	require.NoError(t, err)

	coord := entities.Coordinate{
		Protocol: "http",
		Host:     parsed.Host,
		Owner:    "owner",
		Repo:     "repo",
		Username: "bot",
		Password: "token",
	}
	return server, coord, &paths
}

func plainClientFactory(entities.Coordinate) (*http.Client, error) {
	return http.DefaultClient, nil
}

func TestForgeDetector(t *testing.T) {
	t.Parallel()

	t.Run("should dispatch well-known hosts without probing", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			host string
			want entities.ForgeKind
		}{
			{"github.com", entities.ForgeGitHub},
			{"bitbucket.org", entities.ForgeBitbucket},
			{"dev.azure.com", entities.ForgeAzure},
		}

		for _, tc := range tests {
			// given: a detector whose probe client must never be built
			detector := infraRepos.NewForgeDetector()
			detector.SetClientFactory(func(entities.Coordinate) (*http.Client, error) {
				t.Fatalf("host %s must not probe", tc.host)
				return nil, nil
			})

			// when
			kind, _, err := detector.Detect(context.Background(), entities.Coordinate{
				Protocol: "https", Host: tc.host, Owner: "org",
			})

			// then
			require.NoError(t, err)
			assert.Equal(t, tc.want, kind)
		}
	})

	t.Run("should split Azure coordinates", func(t *testing.T) {
		t.Parallel()

		// given
		detector := infraRepos.NewForgeDetector()
		coord := entities.Coordinate{
			Protocol: "https",
			Host:     "dev.azure.com",
			Owner:    "org",
			Repo:     "proj/_git/r",
		}

		// when
		kind, resolved, err := detector.Detect(context.Background(), coord)

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.ForgeAzure, kind)
		assert.Equal(t, "org", resolved.Owner)
		assert.Equal(t, "proj", resolved.Project)
		assert.Equal(t, "r", resolved.Repo)
	})

	t.Run("should probe unknown hosts in the documented order", func(t *testing.T) {
		t.Parallel()

		// given: a host that answers nothing useful
		_, coord, paths := probeServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		detector := infraRepos.NewForgeDetector()
		detector.SetClientFactory(plainClientFactory)

		// when
		kind, _, err := detector.Detect(context.Background(), coord)

		// then
		require.Error(t, err)
		assert.True(t, entities.IsKind(err, entities.InvalidGitUrl))
		assert.Equal(t, entities.ForgeKindNotSet, kind)
		assert.Equal(t, []string{
			"/api/v3",
			"/api/v4/projects",
			"/api/v1/settings/api",
			"/api/v1/users/bot",
		}, *paths)
	})

	t.Run("should identify GitHub Enterprise by the version header", func(t *testing.T) {
		t.Parallel()

		// given
		_, coord, paths := probeServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/v3" {
				w.Header().Set("X-GitHub-Enterprise-Version", "3.12.0")
			}
			w.WriteHeader(http.StatusUnauthorized)
		})
		detector := infraRepos.NewForgeDetector()
		detector.SetClientFactory(plainClientFactory)

		// when
		kind, _, err := detector.Detect(context.Background(), coord)

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.ForgeGHE, kind)
		assert.Equal(t, []string{"/api/v3"}, *paths)
	})

	t.Run("should identify GitLab by the projects probe", func(t *testing.T) {
		t.Parallel()

		// given
		_, coord, _ := probeServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/v4/projects" {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`[{"id":1}]`))
				return
			}
			w.WriteHeader(http.StatusNotFound)
		})
		detector := infraRepos.NewForgeDetector()
		detector.SetClientFactory(plainClientFactory)

		// when
		kind, _, err := detector.Detect(context.Background(), coord)

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.ForgeGitLab, kind)
	})

	t.Run("should identify Gitea by the settings probe", func(t *testing.T) {
		t.Parallel()

		// given
		_, coord, _ := probeServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/v1/settings/api" {
				_, _ = w.Write([]byte(`{"max_response_items":50}`))
				return
			}
			w.WriteHeader(http.StatusNotFound)
		})
		detector := infraRepos.NewForgeDetector()
		detector.SetClientFactory(plainClientFactory)

		// when
		kind, _, err := detector.Detect(context.Background(), coord)

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.ForgeGitea, kind)
	})

	t.Run("should identify Gogs by the user probe", func(t *testing.T) {
		t.Parallel()

		// given
		_, coord, _ := probeServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/v1/users/bot" {
				_, _ = w.Write([]byte(`{"login":"bot"}`))
				return
			}
			w.WriteHeader(http.StatusNotFound)
		})
		detector := infraRepos.NewForgeDetector()
		detector.SetClientFactory(plainClientFactory)

		// when
		kind, _, err := detector.Detect(context.Background(), coord)

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.ForgeGogs, kind)
	})
}

func TestApplyAzureSplit(t *testing.T) {
	t.Parallel()

	t.Run("should leave already-split coordinates alone", func(t *testing.T) {
		t.Parallel()

		coord := entities.Coordinate{Owner: "org", Project: "proj", Repo: "r"}

		assert.Equal(t, coord, infraRepos.ApplyAzureSplit(coord))
	})

	t.Run("should move a bare remainder into the project", func(t *testing.T) {
		t.Parallel()

		out := infraRepos.ApplyAzureSplit(entities.Coordinate{Owner: "org", Repo: "proj"})

		assert.Equal(t, "proj", out.Project)
		assert.Empty(t, out.Repo)
	})
}
