package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hejijunhao/scalr/internal/output"
)

const (
	defaultBufferSize   = 256
	defaultDrainTimeout = 5 * time.Second
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("async output: closed")

// Option configures an Async wrapper.
type Option func(*Async)

// WithBufferSize sets the channel buffer capacity. Default: 256.
func WithBufferSize(n int) Option {
	return func(a *Async) { a.bufSize = n }
}

// WithDrainTimeout bounds how long Close waits for buffered reports.
func WithDrainTimeout(d time.Duration) Option {
	return func(a *Async) { a.drainTimeout = d }
}

// WithOnError sets the callback invoked when the inner output's Write fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// WithDropOnFull makes Write drop the report instead of blocking when the
// buffer is full.
func WithDropOnFull() Option {
	return func(a *Async) { a.dropOnFull = true }
}

// Async decouples report production from delivery via a buffered channel
// drained by a background goroutine. Inner write errors go to errFunc.
type Async struct {
	inner        output.Output
	ch           chan output.Report
	done         chan struct{}
	errFunc      func(error)
	bufSize      int
	drainTimeout time.Duration
	dropOnFull   bool

	mu     sync.RWMutex
	closed bool
}

// New wraps inner and starts the drain goroutine.
func New(inner output.Output, opts ...Option) *Async {
	a := &Async{
		inner:        inner,
		bufSize:      defaultBufferSize,
		drainTimeout: defaultDrainTimeout,
		errFunc:      func(err error) { slog.Warn("async output write error", "error", err) },
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ch = make(chan output.Report, a.bufSize)
	a.done = make(chan struct{})
	go a.drain()
	return a
}

// Write enqueues r. It blocks while the buffer is full unless WithDropOnFull
// is set, and gives up when ctx is done.
func (a *Async) Write(ctx context.Context, r output.Report) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	if a.dropOnFull {
		select {
		case a.ch <- r:
		default:
			slog.Warn("async output buffer full, dropping report", "server", r.Server, "script", r.Script)
		}
		return nil
	}
	select {
	case a.ch <- r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting reports, waits for the buffer to drain (bounded by
// the drain timeout), then closes the inner output. Safe to call twice.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()

	select {
	case <-a.done:
	case <-time.After(a.drainTimeout):
		slog.Warn("async output drain timed out", "pending", len(a.ch))
	}
	return a.inner.Close()
}

func (a *Async) drain() {
	defer close(a.done)
	for r := range a.ch {
		if err := a.inner.Write(context.Background(), r); err != nil {
			a.errFunc(err)
		}
	}
}
