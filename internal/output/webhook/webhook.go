package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hejijunhao/scalr/internal/output"
)

const (
	defaultBatchSize     = 50
	defaultFlushInterval = 5 * time.Second
	defaultTimeout       = 10 * time.Second
	defaultBackoff       = time.Second
	maxRetries           = 3

	// BatchIDHeader carries the batch identifier. It is fresh per batch and
	// repeated on every retry of that batch.
	BatchIDHeader = "X-Scalr-Batch-ID"
)

// Option configures a webhook Output.
type Option func(*Output)

// WithHeaders sets custom HTTP headers sent with every POST.
func WithHeaders(h map[string]string) Option {
	return func(o *Output) { o.headers = h }
}

// WithBatchSize sets the number of reports accumulated before a flush. Default: 50.
func WithBatchSize(n int) Option {
	return func(o *Output) { o.batchSize = n }
}

// WithFlushInterval sets the maximum time between flushes. Default: 5s.
func WithFlushInterval(d time.Duration) Option {
	return func(o *Output) { o.flushInterval = d }
}

// WithTimeout sets the HTTP client timeout. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(o *Output) { o.client.Timeout = d }
}

// WithBackoff sets the first retry delay; later retries double it. Default: 1s.
func WithBackoff(d time.Duration) Option {
	return func(o *Output) { o.backoff = d }
}

// WithOnError sets a callback invoked when a timer-triggered flush fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(o *Output) { o.errFunc = f }
}

// Output POSTs batched failure reports to an HTTP endpoint as a JSON array.
// Reports are flushed when batchSize is reached or flushInterval elapses.
// A batch is retried on connection errors, 429 and 5xx with exponential
// backoff, under the same BatchIDHeader value.
type Output struct {
	client        *http.Client
	url           string
	headers       map[string]string
	batchSize     int
	flushInterval time.Duration
	backoff       time.Duration
	errFunc       func(error)
	mu            sync.Mutex
	pending       []output.Report
	timer         *time.Timer
}

// New creates a webhook output targeting the given URL.
func New(url string, opts ...Option) *Output {
	o := &Output{
		client:        &http.Client{Timeout: defaultTimeout},
		url:           url,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		backoff:       defaultBackoff,
		errFunc:       func(err error) { slog.Warn("webhook flush error", "error", err) },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Write appends a report to the batch, flushing once batchSize is reached.
// The first report of a batch arms the flush timer.
func (o *Output) Write(ctx context.Context, r output.Report) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.pending = append(o.pending, r)

	if len(o.pending) >= o.batchSize {
		return o.flushLocked(ctx)
	}

	if len(o.pending) == 1 {
		o.timer = time.AfterFunc(o.flushInterval, func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			if err := o.flushLocked(context.Background()); err != nil {
				o.errFunc(err)
			}
		})
	}
	return nil
}

// Close flushes any remaining reports and stops the timer.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	return o.flushLocked(context.Background())
}

// flushLocked sends the pending reports as one batch. Caller must hold o.mu.
func (o *Output) flushLocked(ctx context.Context) error {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	if len(o.pending) == 0 {
		return nil
	}

	b, err := newBatch(o.pending)
	o.pending = nil
	if err != nil {
		return err
	}
	return o.deliver(ctx, b)
}

// batch is one delivery. Its ID and body are fixed across retries so the
// receiver sees the same payload under the same BatchIDHeader each time.
type batch struct {
	id   string
	size int
	body []byte
}

func newBatch(reports []output.Report) (*batch, error) {
	body, err := json.Marshal(reports)
	if err != nil {
		return nil, fmt.Errorf("webhook: marshal: %w", err)
	}
	return &batch{id: uuid.NewString(), size: len(reports), body: body}, nil
}

// deliver POSTs b until it is accepted, a non-retryable status comes back, or
// maxRetries retries have failed.
func (o *Output) deliver(ctx context.Context, b *batch) error {
	delay := o.backoff
	for attempt := 0; ; attempt++ {
		retryable, err := o.post(ctx, b)
		if err == nil {
			return nil
		}
		if !retryable || attempt == maxRetries {
			return fmt.Errorf("webhook: batch %s (%d reports): %w", b.id, b.size, err)
		}

		slog.Debug("webhook batch retry", "batch", b.id, "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("webhook: batch %s: %w", b.id, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// post makes one attempt. Connection errors, 429 and 5xx are retryable.
func (o *Output) post(ctx context.Context, b *batch) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(b.body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set(BatchIDHeader, b.id)

	resp, err := o.client.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, fmt.Errorf("HTTP %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
}
