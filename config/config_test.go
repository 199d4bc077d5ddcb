//go:build unit

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitu/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("should parse the credentials document", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeConfig(t, `
credentials:
  - host: git.example.com
    username: bot
    token: secret
  - host: gitlab.com
    username: other
    token: glpat
`)

		// when
		cfg, err := config.Load(path)

		// then
		require.NoError(t, err)
		require.Len(t, cfg.Credentials, 2)

		cred, ok := cfg.Lookup("git.example.com")
		assert.True(t, ok)
		assert.Equal(t, "bot", cred.Username)
		assert.Equal(t, "secret", cred.Token)

		_, ok = cfg.Lookup("unknown.example.com")
		assert.False(t, ok)
	})

	t.Run("should expand environment variables in tokens", func(t *testing.T) {
		// given
		t.Setenv("GITU_TEST_TOKEN", "expanded")
		path := writeConfig(t, `
credentials:
  - host: git.example.com
    username: bot
    token: ${GITU_TEST_TOKEN}
`)

		// when
		cfg, err := config.Load(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, "expanded", cfg.Credentials[0].Token)
	})

	t.Run("should read tokens from files", func(t *testing.T) {
		t.Parallel()

		// given
		tokenFile := filepath.Join(t.TempDir(), "token")
		require.NoError(t, os.WriteFile(tokenFile, []byte("from-file\n"), 0o600))
		path := writeConfig(t, "credentials:\n  - host: h\n    token: "+tokenFile+"\n")

		// when
		cfg, err := config.Load(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, "from-file", cfg.Credentials[0].Token)
	})

	t.Run("should treat a missing file as empty", func(t *testing.T) {
		t.Parallel()

		// when
		cfg, err := config.Load(filepath.Join(t.TempDir(), "absent"))

		// then
		require.NoError(t, err)
		assert.Empty(t, cfg.Credentials)
	})

	t.Run("should reject malformed YAML", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeConfig(t, "credentials: [unterminated")

		// when
		_, err := config.Load(path)

		// then
		require.Error(t, err)
	})
}

func TestReadEnvironment(t *testing.T) {
	// given
	t.Setenv("GIT_HOST", "git.example.com")
	t.Setenv("GIT_USERNAME", "bot")
	t.Setenv("GIT_TOKEN", "secret")
	t.Setenv("VERBOSE_LOGGING", "true")

	// when
	env := config.ReadEnvironment()

	// then
	assert.Equal(t, "git.example.com", env.Host)
	assert.Equal(t, "bot", env.Username)
	assert.Equal(t, "secret", env.Token)
	assert.True(t, env.VerboseLogging)
}
