// Package collector gathers a farm's logs into per-server sinks and turns
// their failures into classified reports.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hejijunhao/scalr/internal/action"
	"github.com/hejijunhao/scalr/internal/dispatch"
	"github.com/hejijunhao/scalr/internal/failure"
	"github.com/hejijunhao/scalr/internal/metrics"
	"github.com/hejijunhao/scalr/internal/model"
	"github.com/hejijunhao/scalr/internal/output"
	"github.com/hejijunhao/scalr/internal/sink"
)

// Log actions fetched by Collect, in routing order.
const (
	SystemLogs action.Name = "logs_list"
	ScriptLogs action.Name = "scripting_logs_list"
)

// DefaultPageSize is the RecordsLimit sent with each log page request.
const DefaultPageSize = 100

// Dispatcher invokes catalog actions.
type Dispatcher interface {
	Dispatch(ctx context.Context, name action.Name, args ...any) (*dispatch.Response, error)
}

// Collector connects a dispatcher, a sink registry and a classifier.
type Collector struct {
	dispatcher Dispatcher
	classifier *failure.Classifier
	metrics    *metrics.Metrics
	pageSize   int
}

// Option configures a Collector.
type Option func(*Collector)

// WithClassifier sets the failure classifier. Default: failure.Default().
func WithClassifier(c *failure.Classifier) Option {
	return func(col *Collector) { col.classifier = c }
}

// WithMetrics records routing and failure category counts on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(col *Collector) { col.metrics = m }
}

// WithPageSize sets how many records each log page requests. Values below 1
// are ignored. Default: DefaultPageSize.
func WithPageSize(n int) Option {
	return func(col *Collector) {
		if n > 0 {
			col.pageSize = n
		}
	}
}

// New creates a Collector.
func New(d Dispatcher, opts ...Option) *Collector {
	c := &Collector{
		dispatcher: d,
		classifier: failure.Default(),
		pageSize:   DefaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect fetches every page of the farm's system and scripting logs
// concurrently and routes every entry into a registry holding one sink per
// server ID. Entries for other servers are dropped. System entries are routed
// before scripting entries, each in service order.
func (c *Collector) Collect(ctx context.Context, farmID string, serverIDs ...string) (*sink.Registry, error) {
	names := []action.Name{SystemLogs, ScriptLogs}
	results := make([][]model.LogEntry, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			entries, err := c.fetchAll(gctx, name, farmID)
			if err != nil {
				return fmt.Errorf("collector: %s: %w", name, err)
			}
			results[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reg := sink.ForIDs(serverIDs, sink.WithMetrics(c.metrics))
	for i, entries := range results {
		n := reg.RouteAll(entries)
		slog.Debug("logs routed", "farm", farmID, "action", names[i],
			"received", len(entries), "delivered", n)
	}
	return reg, nil
}

// fetchAll pages through a log action with StartFrom and RecordsLimit until
// TotalRecords entries have arrived. A response without TotalRecords is the
// only page. An empty page ends the listing even if TotalRecords is larger.
func (c *Collector) fetchAll(ctx context.Context, name action.Name, farmID string) ([]model.LogEntry, error) {
	var entries []model.LogEntry
	for start, pages := 0, 1; ; pages++ {
		resp, err := c.dispatcher.Dispatch(ctx, name, farmID, nil, start, c.pageSize)
		if err != nil {
			return nil, fmt.Errorf("page %d (start %d): %w", pages, start, err)
		}
		page := resp.Logs()
		entries = append(entries, page...)
		start += len(page)

		total, ok := totalRecords(resp)
		if !ok || len(page) == 0 || start >= total {
			slog.Debug("log listing fetched", "farm", farmID, "action", name,
				"pages", pages, "records", len(entries))
			return entries, nil
		}
	}
}

func totalRecords(resp *dispatch.Response) (int, bool) {
	v, ok := resp.Value("TotalRecords")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Diagnose classifies every sink's failures, owned by the sink's server ID,
// in registration order.
func (c *Collector) Diagnose(reg *sink.Registry) []*failure.Failure {
	var out []*failure.Failure
	for _, s := range reg.Sinks() {
		for _, item := range s.Failures() {
			f := c.classifier.Classify(s.ID(), item)
			for _, cat := range f.Categories() {
				c.metrics.ObserveFailure(cat.Name)
			}
			out = append(out, f)
		}
	}
	return out
}

// Deliver writes one report per failure to out.
func (c *Collector) Deliver(ctx context.Context, failures []*failure.Failure, out output.Output, verbosity output.Verbosity) error {
	for _, f := range failures {
		if err := out.Write(ctx, output.FormatReport(f, verbosity)); err != nil {
			return fmt.Errorf("collector output: %w", err)
		}
	}
	return nil
}
