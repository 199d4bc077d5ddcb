// Package httpclient is the HTTP kernel every forge-bound request passes
// through: authentication, User-Agent, CA-bundle TLS override, and the
// cross-forge retry policy.
package httpclient

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"

	"github.com/hashicorp/go-retryablehttp"
	logger "github.com/sirupsen/logrus"
)

const (
	// DefaultUserAgent identifies gitu on every outbound request.
	DefaultUserAgent = "gitu"
	// DefaultMaxRetries bounds transport and rate-limit retries.
	DefaultMaxRetries = 10
)

// Options configures one kernel client. Zero values fall back to the
// documented defaults.
type Options struct {
	// Username and Token form the basic-auth pair. Username may be
	// empty for token-only forges.
	Username string
	Token    string
	// BearerAuth switches to an Authorization: Bearer header for
	// forges that demand a PAT bearer instead of basic auth.
	BearerAuth bool
	// CACertPath points at a PEM bundle replacing the system roots.
	CACertPath string
	UserAgent  string
	MaxRetries int
	// ExtraRetryPolicy is OR-composed with the default policy; the
	// first decision to retry wins.
	ExtraRetryPolicy retryablehttp.CheckRetry
}

// New builds a *http.Client whose transport applies auth, UA, CA bundle
// and the retry policy of Options.
func New(opts Options) (*http.Client, error) {
	transport, err := newTransport(opts.CACertPath)
	if err != nil {
		return nil, err
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Transport: transport}
	rc.RetryMax = opts.MaxRetries
	if rc.RetryMax == 0 {
		rc.RetryMax = DefaultMaxRetries
	}
	rc.Logger = retryLogger{}
	rc.CheckRetry = ComposeRetryPolicies(DefaultRetryPolicy, opts.ExtraRetryPolicy)
	rc.Backoff = RetryBackoff
	// Non-2xx responses surface to the adapters for classification.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	return &http.Client{
		Transport: &authTransport{
			next:      &retryablehttp.RoundTripper{Client: rc},
			username:  opts.Username,
			token:     opts.Token,
			bearer:    opts.BearerAuth,
			userAgent: ua,
		},
	}, nil
}

// newTransport clones the default transport and, when a CA bundle is
// configured, verifies TLS against that bundle alone.
func newTransport(caCertPath string) (*http.Transport, error) {
	base, _ := http.DefaultTransport.(*http.Transport)
	transport := base.Clone()

	if caCertPath == "" {
		return transport, nil
	}

	pem, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA bundle %q: %w", caCertPath, err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in CA bundle %q", caCertPath)
	}

	transport.TLSClientConfig = &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}
	return transport, nil
}

// authTransport injects credentials and the User-Agent on every request.
type authTransport struct {
	next      http.RoundTripper
	username  string
	token     string
	bearer    bool
	userAgent string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.Header.Set("User-Agent", t.userAgent)

	if t.token != "" {
		if t.bearer {
			out.Header.Set("Authorization", "Bearer "+t.token)
		} else {
			out.SetBasicAuth(t.username, t.token)
		}
	}

	return t.next.RoundTrip(out)
}

// retryLogger routes retryablehttp's leveled output to logrus.
type retryLogger struct{}

func (retryLogger) Error(msg string, kv ...any) { logger.Errorf("%s %v", msg, kv) }
func (retryLogger) Warn(msg string, kv ...any)  { logger.Warnf("%s %v", msg, kv) }
func (retryLogger) Info(msg string, kv ...any)  { logger.Debugf("%s %v", msg, kv) }
func (retryLogger) Debug(msg string, kv ...any) { logger.Debugf("%s %v", msg, kv) }
