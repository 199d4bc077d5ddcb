//go:build unit

package httpclient_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitu/internal/infrastructure/httpclient"
)

// writeCACert writes a self-signed certificate PEM and returns its path.
func writeCACert(t *testing.T) string {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "gitu-test-ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ca.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestNewTransport(t *testing.T) {
	t.Parallel()

	t.Run("should verify against the supplied bundle alone", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeCACert(t)

		// when
		transport, err := httpclient.NewTransport(path)

		// then
		require.NoError(t, err)
		require.NotNil(t, transport.TLSClientConfig)
		assert.NotNil(t, transport.TLSClientConfig.RootCAs)
	})

	t.Run("should leave TLS alone without a bundle", func(t *testing.T) {
		t.Parallel()

		transport, err := httpclient.NewTransport("")

		require.NoError(t, err)
		assert.Nil(t, transport.TLSClientConfig)
	})

	t.Run("should reject a missing bundle file", func(t *testing.T) {
		t.Parallel()

		_, err := httpclient.NewTransport(filepath.Join(t.TempDir(), "absent.pem"))

		require.Error(t, err)
	})

	t.Run("should reject a bundle without certificates", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "empty.pem")
		require.NoError(t, os.WriteFile(path, []byte("not a cert"), 0o600))

		_, err := httpclient.NewTransport(path)

		require.Error(t, err)
	})
}

func TestRESTHelper(t *testing.T) {
	t.Parallel()

	t.Run("should decode JSON responses", func(t *testing.T) {
		t.Parallel()

		// given
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/things/1", r.URL.Path)
			_, _ = w.Write([]byte(`{"name":"one"}`))
		}))
		t.Cleanup(server.Close)
		rest := httpclient.NewREST(server.URL, server.Client())

		// when
		var out struct {
			Name string `json:"name"`
		}
		err := rest.Do(t.Context(), http.MethodGet, "/things/1", nil, &out)

		// then
		require.NoError(t, err)
		assert.Equal(t, "one", out.Name)
	})

	t.Run("should surface non-2xx responses with status and body", func(t *testing.T) {
		t.Parallel()

		// given
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte("already exists"))
		}))
		t.Cleanup(server.Close)
		rest := httpclient.NewREST(server.URL, server.Client())

		// when
		err := rest.Do(t.Context(), http.MethodPost, "/things", map[string]string{"a": "b"}, nil)

		// then
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, httpclient.StatusOf(err))
		assert.Equal(t, "already exists", httpclient.BodyOf(err))
	})

	t.Run("should report zero status for unrelated errors", func(t *testing.T) {
		t.Parallel()

		assert.Zero(t, httpclient.StatusOf(os.ErrNotExist))
		assert.Empty(t, httpclient.BodyOf(os.ErrNotExist))
	})
}
