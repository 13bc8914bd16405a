// Package transport provides http.RoundTripper wrappers for calls to upstream model providers.
package transport

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultMaxRetries = 3
	defaultMaxWait    = 30 * time.Second
)

// RateLimitedTransport retries requests answered with 429 Too Many Requests after the delay given by the retry-after
// header. Responses without a usable retry-after, or asking for longer than maxWait, are returned as-is.
type RateLimitedTransport struct {
	base       http.RoundTripper
	maxRetries int
	maxWait    time.Duration
}

// WithRateLimiting wraps base, or http.DefaultTransport if base is nil
func WithRateLimiting(base http.RoundTripper) *RateLimitedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RateLimitedTransport{base: base, maxRetries: defaultMaxRetries, maxWait: defaultMaxWait}
}

// MaxRetries sets how many times one request may be retried
func (t *RateLimitedTransport) MaxRetries(n int) *RateLimitedTransport {
	t.maxRetries = n
	return t
}

// MaxWait sets the longest retry-after delay that will be honored
func (t *RateLimitedTransport) MaxWait(d time.Duration) *RateLimitedTransport {
	t.maxWait = d
	return t
}

func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Preserve the original request body for retries
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		if err := req.Body.Close(); err != nil {
			return nil, fmt.Errorf("failed to close request body: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		resp, err := t.base.RoundTrip(req)
		if err != nil || resp.StatusCode != http.StatusTooManyRequests || attempt >= t.maxRetries {
			return resp, err
		}

		wait := retryAfter(resp.Header.Get("retry-after"))
		if wait <= 0 || wait > t.maxWait {
			return resp, nil
		}
		if err := resp.Body.Close(); err != nil {
			return nil, fmt.Errorf("failed to close response body: %w", err)
		}

		log.Warn().Dur("wait", wait).Str("host", req.URL.Host).Int("attempt", attempt+1).Msg("Rate limited by upstream, waiting")
		timer := time.NewTimer(wait)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
}

// retryAfter parses a retry-after value given either in seconds or as an HTTP date
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		return time.Until(at)
	}
	return 0
}

// HeaderTransport sets fixed headers on every outgoing request
type HeaderTransport struct {
	base    http.RoundTripper
	headers http.Header
}

// WithHeaders wraps base, or http.DefaultTransport if base is nil
func WithHeaders(base http.RoundTripper, headers map[string]string) *HeaderTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return &HeaderTransport{base: base, headers: h}
}

func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request
	req = req.Clone(req.Context())
	for k, vs := range t.headers {
		req.Header[k] = append([]string(nil), vs...)
	}
	return t.base.RoundTrip(req)
}
