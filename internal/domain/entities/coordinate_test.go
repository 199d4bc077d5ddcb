//go:build unit

package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitu/internal/domain/entities"
)

func TestParseGitURL(t *testing.T) {
	t.Parallel()

	t.Run("should parse a plain https URL", func(t *testing.T) {
		t.Parallel()

		// given
		url := "https://host/owner/repo"

		// when
		coord, err := entities.ParseGitURL(url)

		// then
		require.NoError(t, err)
		assert.Equal(t, "https", coord.Protocol)
		assert.Equal(t, "host", coord.Host)
		assert.Equal(t, "owner", coord.Owner)
		assert.Equal(t, "repo", coord.Repo)
		assert.Equal(t, "https://host/owner/repo", coord.URL())
	})

	t.Run("should parse embedded credentials, .git suffix and branch", func(t *testing.T) {
		t.Parallel()

		// given
		url := "https://user:pw@host/owner/repo.git#feat"

		// when
		coord, err := entities.ParseGitURL(url)

		// then
		require.NoError(t, err)
		assert.Equal(t, "user", coord.Username)
		assert.Equal(t, "pw", coord.Password)
		assert.Equal(t, "repo", coord.Repo)
		assert.Equal(t, "feat", coord.Branch)
	})

	t.Run("should be a fixed point after the first parse/format pass", func(t *testing.T) {
		t.Parallel()

		// given
		first, err := entities.ParseGitURL("https://user:pw@host/owner/repo.git#feat")
		require.NoError(t, err)

		// when
		second, err := entities.ParseGitURL(first.URL())

		// then
		require.NoError(t, err)
		assert.Equal(t, first.URL(), second.URL())
		assert.Equal(t, first.Host, second.Host)
		assert.Equal(t, first.Owner, second.Owner)
		assert.Equal(t, first.Repo, second.Repo)
	})

	t.Run("should parse the source:target branch selector", func(t *testing.T) {
		t.Parallel()

		// given
		url := "https://host/owner/repo#feature:main"

		// when
		coord, err := entities.ParseGitURL(url)

		// then
		require.NoError(t, err)
		assert.Equal(t, "feature", coord.Branch)
		assert.Equal(t, "main", coord.TargetBranch)
	})

	t.Run("should coerce the git@ form to https", func(t *testing.T) {
		t.Parallel()

		// given
		url := "git@host:owner/repo.git"

		// when
		coord, err := entities.ParseGitURL(url)

		// then
		require.NoError(t, err)
		assert.Equal(t, "https", coord.Protocol)
		assert.Equal(t, "host", coord.Host)
		assert.Equal(t, "owner", coord.Owner)
		assert.Equal(t, "repo", coord.Repo)
	})

	t.Run("should split the Azure DevOps _git form", func(t *testing.T) {
		t.Parallel()

		// given
		url := "https://dev.azure.com/org/proj/_git/r"

		// when
		coord, err := entities.ParseGitURL(url)

		// then
		require.NoError(t, err)
		assert.Equal(t, "org", coord.Owner)
		assert.Equal(t, "proj", coord.Project)
		assert.Equal(t, "r", coord.Repo)
		assert.Equal(t, url, coord.URL())
	})

	t.Run("should treat an Azure remainder without _git as org scope", func(t *testing.T) {
		t.Parallel()

		// given
		url := "https://dev.azure.com/org/proj"

		// when
		coord, err := entities.ParseGitURL(url)

		// then
		require.NoError(t, err)
		assert.Equal(t, "proj", coord.Project)
		assert.Empty(t, coord.Repo)
		assert.True(t, coord.IsOrgScope())
	})

	t.Run("should parse an org-scope URL", func(t *testing.T) {
		t.Parallel()

		// given
		url := "http://host/owner"

		// when
		coord, err := entities.ParseGitURL(url)

		// then
		require.NoError(t, err)
		assert.Equal(t, "http", coord.Protocol)
		assert.Equal(t, "owner", coord.Owner)
		assert.True(t, coord.IsOrgScope())
	})

	t.Run("should reject anything matching neither shape", func(t *testing.T) {
		t.Parallel()

		for _, url := range []string{"", "not a url", "ftp://host/owner/repo", "host/owner"} {
			// when
			coord, err := entities.ParseGitURL(url)

			// then
			require.Error(t, err)
			assert.Nil(t, coord)
			assert.True(t, entities.IsKind(err, entities.InvalidGitUrl))
		}
	})
}

func TestCoordinate(t *testing.T) {
	t.Parallel()

	t.Run("should validate repo-level coordinates", func(t *testing.T) {
		t.Parallel()

		// given
		coord, err := entities.ParseGitURL("https://host/owner")
		require.NoError(t, err)

		// when
		validateErr := coord.ValidateForRepo()

		// then
		require.Error(t, validateErr)
		assert.True(t, entities.IsKind(validateErr, entities.InvalidGitUrl))
	})

	t.Run("should require the project for Azure coordinates", func(t *testing.T) {
		t.Parallel()

		// given
		coord := entities.Coordinate{
			Protocol: "https",
			Host:     "dev.azure.com",
			Owner:    "org",
			Repo:     "r",
		}

		// when
		err := coord.ValidateForRepo()

		// then
		require.Error(t, err)
	})

	t.Run("should derive siblings without touching the original", func(t *testing.T) {
		t.Parallel()

		// given
		coord, err := entities.ParseGitURL("https://user:pw@host/owner/repo")
		require.NoError(t, err)

		// when
		sibling := coord.WithRepo("other.git")
		org := coord.OrgScope()

		// then
		assert.Equal(t, "other", sibling.Repo)
		assert.Equal(t, "pw", sibling.Password)
		assert.Empty(t, org.Repo)
		assert.Equal(t, "repo", coord.Repo)
	})

	t.Run("should not override embedded credentials", func(t *testing.T) {
		t.Parallel()

		// given
		coord, err := entities.ParseGitURL("https://user:pw@host/owner/repo")
		require.NoError(t, err)

		// when
		merged := coord.ApplyCredentials(entities.Credentials{
			Username: "other", Token: "token", CACertPath: "/tmp/ca.pem",
		})

		// then
		assert.Equal(t, "user", merged.Username)
		assert.Equal(t, "pw", merged.Password)
		assert.Equal(t, "/tmp/ca.pem", merged.CACertPath)
	})
}
