package scalr

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hejijunhao/scalr/internal/action"
	"github.com/hejijunhao/scalr/internal/collector"
	"github.com/hejijunhao/scalr/internal/dispatch"
	"github.com/hejijunhao/scalr/internal/failure"
	"github.com/hejijunhao/scalr/internal/metrics"
	"github.com/hejijunhao/scalr/internal/transport"
)

// Client calls Scalr API actions by name and diagnoses farm logs.
type Client struct {
	dispatcher *dispatch.Dispatcher
	collector  *collector.Collector
	classifier *failure.Classifier
}

// New creates a Client. Credentials are required unless a custom transport
// is supplied with WithTransport.
func New(opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.endpoint == "" {
		return nil, errors.New("scalr: endpoint is empty")
	}
	t := o.transport
	if t == nil {
		if o.credentials.KeyID == "" || o.credentials.AccessKey == "" {
			return nil, errors.New("scalr: credentials are required")
		}
		t = newHTTPTransport(o)
	}

	var m *metrics.Metrics
	if o.registerer != nil {
		var err error
		if m, err = newMetrics(o.registerer); err != nil {
			return nil, fmt.Errorf("scalr: %w", err)
		}
	}

	cls := failure.Default()
	if o.patterns != nil {
		cls = failure.New(o.patterns...)
	}

	dopts := []dispatch.Option{dispatch.WithMetrics(m)}
	if o.logger != nil {
		dopts = append(dopts, dispatch.WithLogger(o.logger))
	}
	d := dispatch.New(dispatch.Settings{
		Endpoint:    o.endpoint,
		Credentials: o.credentials,
		Version:     o.version,
	}, t, dopts...)
	col := collector.New(d,
		collector.WithClassifier(cls),
		collector.WithMetrics(m),
		collector.WithPageSize(o.pageSize),
	)

	return &Client{
		dispatcher: d,
		collector:  col,
		classifier: cls,
	}, nil
}

func newHTTPTransport(o options) *transport.Client {
	var topts []transport.Option
	if o.timeout > 0 {
		topts = append(topts, transport.WithTimeout(o.timeout))
	}
	if o.rateLimit > 0 {
		topts = append(topts, transport.WithRateLimit(o.rateLimit, 1))
	}
	if o.debug != nil {
		topts = append(topts, transport.WithDebug(o.debug))
	}
	return transport.New(topts...)
}

// newMetrics registers the collectors on reg. promauto panics on duplicate
// registration; that is reported as an error instead.
func newMetrics(reg prometheus.Registerer) (m *metrics.Metrics, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("register metrics: %v", r)
		}
	}()
	return metrics.New(reg), nil
}

// Call invokes the named action with positional arguments. Argument i is sent
// under the action's i-th declared input.
func (c *Client) Call(ctx context.Context, name string, args ...any) (*Response, error) {
	return c.dispatcher.Dispatch(ctx, action.Name(name), args...)
}

// Collect fetches every page of a farm's logs into one sink per listed
// server. Entries for other servers are dropped.
func (c *Client) Collect(ctx context.Context, farmID string, serverIDs ...string) (*Registry, error) {
	return c.collector.Collect(ctx, farmID, serverIDs...)
}

// Diagnose classifies the failed script runs in every sink of reg, owned by
// the sink's server ID.
func (c *Client) Diagnose(reg *Registry) []*Failure {
	return c.collector.Diagnose(reg)
}

// Classify classifies a single entry against the client's patterns.
func (c *Client) Classify(owner any, e LogEntry) *Failure {
	return c.classifier.Classify(owner, e)
}

// Deliver writes one report per failure to out, stopping at the first error.
func (c *Client) Deliver(ctx context.Context, failures []*Failure, out Output, verbosity Verbosity) error {
	return c.collector.Deliver(ctx, failures, out, verbosity)
}

// Actions returns every callable action name, sorted.
func Actions() []string {
	names := action.Names()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}
