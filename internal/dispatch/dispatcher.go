// Package dispatch maps symbolic action names onto signed remote calls and
// parses their responses.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hejijunhao/scalr/internal/action"
	"github.com/hejijunhao/scalr/internal/metrics"
	"github.com/hejijunhao/scalr/internal/transport"
)

const tracerName = "github.com/hejijunhao/scalr/internal/dispatch"

// Settings are the process-wide API settings stamped on every request.
type Settings struct {
	Endpoint    string
	Credentials transport.Credentials
	Version     string
}

// Dispatcher turns action calls into transport requests. It keeps no state
// between calls and is safe for concurrent use.
type Dispatcher struct {
	settings  Settings
	transport transport.Transport
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMetrics records dispatch counts and latency on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithTracerProvider sets the tracer provider. Default: the global otel provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(d *Dispatcher) { d.tracer = tp.Tracer(tracerName) }
}

// New creates a Dispatcher sending through t.
func New(settings Settings, t transport.Transport, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		settings:  settings,
		transport: t,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch invokes the named action with positional arguments.
//
// Names outside the catalog fail with ErrUnrecognizedAction before any request
// is built. Transport errors are returned unchanged. Payloads that do not
// parse fail with ErrMalformedResponse; service error envelopes with *RemoteError.
func (d *Dispatcher) Dispatch(ctx context.Context, name action.Name, args ...any) (*Response, error) {
	start := time.Now()

	desc, ok := action.Lookup(name)
	if !ok {
		d.metrics.ObserveRequest(metrics.UnrecognizedAction, metrics.OutcomeUnrecognized, time.Since(start))
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedAction, name)
	}

	req := &transport.Request{
		ID:          uuid.NewString(),
		Action:      desc,
		Endpoint:    d.settings.Endpoint,
		Credentials: d.settings.Credentials,
		Version:     d.settings.Version,
		Arguments:   slices.Clone(args),
	}

	ctx, span := d.tracer.Start(ctx, "scalr."+desc.Remote, trace.WithAttributes(
		attribute.String("scalr.action", string(desc.Name)),
		attribute.String("scalr.request_id", req.ID),
		attribute.Int("scalr.args", len(args)),
	))
	defer span.End()

	resp, outcome, err := d.roundTrip(ctx, req)
	d.metrics.ObserveRequest(string(name), outcome, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		d.logger.Debug("dispatch failed", "action", name, "request_id", req.ID, "outcome", outcome, "error", err)
		return nil, err
	}

	d.logger.Debug("dispatch ok", "action", name, "request_id", req.ID,
		"items", len(resp.items), "elapsed", time.Since(start))
	return resp, nil
}

func (d *Dispatcher) roundTrip(ctx context.Context, req *transport.Request) (*Response, string, error) {
	raw, err := d.transport.Send(ctx, req)
	if err != nil {
		return nil, metrics.OutcomeTransport, err
	}

	resp, err := parseResponse(req.Action, raw)
	if err != nil {
		var remote *RemoteError
		if errors.As(err, &remote) {
			return nil, metrics.OutcomeRemote, err
		}
		return nil, metrics.OutcomeMalformed, err
	}
	return resp, metrics.OutcomeOK, nil
}
