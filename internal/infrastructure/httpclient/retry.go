package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"syscall"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	logger "github.com/sirupsen/logrus"
)

// retryableStatuses are the HTTP statuses treated as transient across
// every forge.
var retryableStatuses = map[int]bool{
	http.StatusMethodNotAllowed:      true, // 405
	http.StatusRequestTimeout:        true, // 408
	http.StatusRequestEntityTooLarge: true, // 413
	http.StatusTooManyRequests:       true, // 429
	http.StatusInternalServerError:   true, // 500
	http.StatusBadGateway:            true, // 502
	http.StatusServiceUnavailable:    true, // 503
	http.StatusGatewayTimeout:        true, // 504
	521:                              true, // Cloudflare: origin down
	522:                              true, // Cloudflare: connection timed out
	524:                              true, // Cloudflare: a timeout occurred
}

var secondaryRateLimitPattern = regexp.MustCompile(`(?i)secondary rate limit`)

// rate-limit body sniffing never reads more than this.
const maxPeekBytes = 64 * 1024

// DefaultRetryPolicy is the kernel's transport + rate-limit decision:
// connection errors and the transient status set retry; a 403 whose body
// names the secondary rate limit retries with the rate-limit backoff.
func DefaultRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		return isRetryableNetError(err), nil
	}
	if resp == nil {
		return false, nil
	}

	if resp.StatusCode == http.StatusForbidden {
		return isSecondaryRateLimit(resp), nil
	}

	return retryableStatuses[resp.StatusCode], nil
}

// ComposeRetryPolicies unions the given policies: the first decision to
// retry wins; nil entries are skipped.
func ComposeRetryPolicies(policies ...retryablehttp.CheckRetry) retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		var lastErr error
		for _, policy := range policies {
			if policy == nil {
				continue
			}
			retry, policyErr := policy(ctx, resp, err)
			if retry {
				return true, nil
			}
			if policyErr != nil {
				lastErr = policyErr
			}
		}
		return false, lastErr
	}
}

// RetryBackoff computes the wait before the next attempt: Retry-After
// wins when present, rate-limited 403s wait 30s plus up to 20s of jitter,
// everything else 5s plus up to 5s of jitter.
func RetryBackoff(_ time.Duration, _ time.Duration, attemptNum int, resp *http.Response) time.Duration {
	delay := transientDelay()

	if resp != nil {
		if after := retryAfterDelay(resp); after > 0 {
			delay = after
		} else if resp.StatusCode == http.StatusForbidden {
			// Only rate-limited 403s are ever retried.
			delay = rateLimitDelay()
		}
	}

	logger.Debugf("retrying in %s (attempt %d)", delay, attemptNum+1)
	return delay
}

func retryAfterDelay(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func transientDelay() time.Duration {
	return 5*time.Second + time.Duration(rand.Int64N(int64(5*time.Second)))
}

func rateLimitDelay() time.Duration {
	return 30*time.Second + time.Duration(rand.Int64N(int64(20*time.Second)))
}

// isSecondaryRateLimit sniffs the response body for the secondary
// rate-limit phrase, restoring the body for downstream readers.
func isSecondaryRateLimit(resp *http.Response) bool {
	if resp.Body == nil {
		return false
	}

	peeked, err := io.ReadAll(io.LimitReader(resp.Body, maxPeekBytes))
	if err != nil {
		return false
	}
	rest := resp.Body
	resp.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(peeked), rest), rest}

	return secondaryRateLimitPattern.Match(peeked)
}

// isRetryableNetError classifies connection-level failures that warrant
// another attempt.
func isRetryableNetError(err error) bool {
	for _, errno := range []syscall.Errno{
		syscall.ECONNRESET,
		syscall.ETIMEDOUT,
		syscall.EPIPE,
		syscall.ENETUNREACH,
		syscall.ECONNREFUSED,
		syscall.EADDRINUSE,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		// Covers both ENOTFOUND and EAI_AGAIN conditions.
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}
