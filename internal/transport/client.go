package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Client is the HTTP Transport: query-string signed GET with retry logic.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	debug      *zerolog.Logger
	now        func() time.Time
}

// APIError represents a non-2xx HTTP response.
type APIError struct {
	StatusCode int
	Body       string // first 512 bytes
	retryAfter string // internal: Retry-After header value for 429s
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures Client behavior.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit caps outgoing attempts to r per second with the given burst.
func WithRateLimit(r float64, burst int) Option {
	return func(c *Client) {
		if r <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// WithDebug writes a trace of every request and response to w. Signatures are redacted.
func WithDebug(w io.Writer) Option {
	return func(c *Client) {
		if w == nil {
			c.debug = nil
			return
		}
		l := zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    true,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Str("component", "transport").Logger()
		c.debug = &l
	}
}

// WithClock overrides the time source used for request timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

const maxRetries = 3

// Send signs req and GETs it from req.Endpoint, returning the response body.
// Retries on 429 (with Retry-After) and 5xx (with exponential backoff: 1s, 2s, 4s).
// Max 3 retries. Every returned error wraps ErrTransport; non-2xx responses carry *APIError.
func (c *Client) Send(ctx context.Context, req *Request) ([]byte, error) {
	base, err := baseURL(req.Endpoint)
	if err != nil {
		return nil, fail(err)
	}

	var lastErr *APIError
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			wait := backoffDelay(attempt, lastErr)
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, fail(ctx.Err())
			case <-t.C:
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fail(err)
			}
		}

		// The timestamp is part of the signature, so each attempt is signed afresh.
		q, err := Encode(req, c.now())
		if err != nil {
			return nil, fail(err)
		}
		u := *base
		u.RawQuery = q.Encode()

		body, apiErr, err := c.do(ctx, req, &u)
		if err != nil {
			return nil, fail(err)
		}
		if apiErr == nil {
			return body, nil
		}

		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
			lastErr = apiErr
			continue
		}
		return nil, fail(apiErr)
	}

	return nil, fail(lastErr)
}

func (c *Client) do(ctx context.Context, req *Request, u *url.URL) ([]byte, *APIError, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, nil, err
	}
	if c.debug != nil {
		c.debug.Debug().
			Str("request_id", req.ID).
			Str("action", req.Action.Remote).
			Str("url", redact(u)).
			Msg("request")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, nil, err
	}

	if c.debug != nil {
		c.debug.Debug().
			Str("request_id", req.ID).
			Int("status", resp.StatusCode).
			Int("bytes", len(body)).
			Dur("elapsed", time.Since(start)).
			Msg("response")
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil, nil
	}

	bodyStr := string(body)
	if len(bodyStr) > 512 {
		bodyStr = bodyStr[:512]
	}
	apiErr := &APIError{StatusCode: resp.StatusCode, Body: bodyStr}
	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.retryAfter = resp.Header.Get("Retry-After")
	}
	return nil, apiErr, nil
}

func fail(err error) error {
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

// baseURL parses an endpoint such as "api.scalr.net", defaulting to https.
func baseURL(endpoint string) (*url.URL, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("empty endpoint")
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("endpoint %q has no host", endpoint)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}

func redact(u *url.URL) string {
	q := u.Query()
	if q.Has("Signature") {
		q.Set("Signature", "REDACTED")
	}
	r := *u
	r.RawQuery = q.Encode()
	return r.String()
}

// backoffDelay returns the wait duration before a retry attempt.
func backoffDelay(attempt int, lastErr *APIError) time.Duration {
	if lastErr != nil && lastErr.StatusCode == http.StatusTooManyRequests && lastErr.retryAfter != "" {
		if secs, err := strconv.Atoi(lastErr.retryAfter); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	// Exponential backoff: 1s, 2s, 4s
	return time.Duration(1<<(attempt-1)) * time.Second
}
