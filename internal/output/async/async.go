package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/crimson-sun/repeatwatch/internal/logging"
	"github.com/crimson-sun/repeatwatch/internal/model"
	"github.com/crimson-sun/repeatwatch/internal/output"
)

const (
	defaultBufferSize   = 1024
	defaultDrainTimeout = 5 * time.Second
)

// ErrClosed is returned by Write after Close.
var ErrClosed = goerr.New("async output closed")

// Option configures an Async wrapper.
type Option func(*Async)

// WithBufferSize sets the channel buffer capacity. Default: 1024.
func WithBufferSize(n int) Option {
	return func(a *Async) { a.bufSize = n }
}

// WithOnError sets the callback invoked when the inner output's Write fails.
// Default: logs a warning.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// WithDropOnFull makes Write return immediately (dropping the record) when the
// buffer is full, instead of blocking.
func WithDropOnFull() Option {
	return func(a *Async) { a.dropOnFull = true }
}

// WithDrainTimeout bounds how long Close waits for buffered records.
func WithDrainTimeout(d time.Duration) Option {
	return func(a *Async) { a.drainTimeout = d }
}

// Async decouples record production from delivery via a buffered channel.
// A background goroutine drains the channel into the wrapped output; its
// errors go to errFunc rather than the caller.
type Async struct {
	inner        output.Output
	ch           chan model.Record
	done         chan struct{}
	errFunc      func(error)
	bufSize      int
	dropOnFull   bool
	drainTimeout time.Duration
	logger       *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// New wraps inner and starts the drain goroutine.
func New(inner output.Output, opts ...Option) *Async {
	a := &Async{
		inner:        inner,
		bufSize:      defaultBufferSize,
		drainTimeout: defaultDrainTimeout,
		logger:       logging.ForComponent("output.async"),
	}
	a.errFunc = func(err error) { a.logger.Warn("async output write error", "error", err) }
	for _, opt := range opts {
		opt(a)
	}
	a.ch = make(chan model.Record, a.bufSize)
	a.done = make(chan struct{})
	go a.drain()
	return a
}

// Write queues rec. It blocks while the buffer is full unless WithDropOnFull
// is set, in which case the record is dropped and nil returned.
func (a *Async) Write(_ context.Context, rec model.Record) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	if a.dropOnFull {
		select {
		case a.ch <- rec:
		default:
			a.logger.Warn("async output buffer full, dropping record",
				"id", rec.ID, "category", rec.Category)
		}
		return nil
	}
	a.ch <- rec
	return nil
}

// Close stops intake, waits for the drain (bounded by the drain timeout) and
// closes the inner output. Subsequent calls return nil.
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
		a.logger.Warn("async output drain timed out", "pending", len(a.ch))
	}
	return a.inner.Close()
}

func (a *Async) drain() {
	defer close(a.done)
	for rec := range a.ch {
		if err := a.inner.Write(context.Background(), rec); err != nil {
			a.errFunc(err)
		}
	}
}
