package scalr

import (
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultEndpoint = "api.scalr.net"
	defaultVersion  = "2.0.0"
)

type options struct {
	endpoint    string
	credentials Credentials
	version     string
	timeout     time.Duration
	rateLimit   float64
	pageSize    int
	debug       io.Writer
	transport   Transport
	registerer  prometheus.Registerer
	patterns    []Pattern
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*options)

// WithEndpoint sets the API host, with or without scheme. Default: api.scalr.net.
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithCredentials sets the API key pair used to sign requests.
func WithCredentials(keyID, accessKey string) Option {
	return func(o *options) { o.credentials = Credentials{KeyID: keyID, AccessKey: accessKey} }
}

// WithVersion sets the API version sent with every request. Default: 2.0.0.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(perSecond float64) Option {
	return func(o *options) { o.rateLimit = perSecond }
}

// WithPageSize sets how many log records Collect requests per page.
// Default: 100.
func WithPageSize(n int) Option {
	return func(o *options) { o.pageSize = n }
}

// WithDebug writes a trace of every request and response to w, with the
// signature redacted.
func WithDebug(w io.Writer) Option {
	return func(o *options) { o.debug = w }
}

// WithTransport replaces the HTTP transport. Timeout, rate limit and debug
// options are ignored when set.
func WithTransport(t Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithRegisterer registers client metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithPatterns replaces the failure pattern registry. To extend the built-in
// registry, pass append(DefaultPatterns(), extra...).
func WithPatterns(patterns ...Pattern) Option {
	return func(o *options) { o.patterns = patterns }
}

// WithLogger sets the logger for dispatch diagnostics. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func defaultOptions() options {
	return options{
		endpoint: defaultEndpoint,
		version:  defaultVersion,
	}
}
