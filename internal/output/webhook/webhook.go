package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/crimson-sun/repeatwatch/internal/engine/compactor"
	"github.com/crimson-sun/repeatwatch/internal/logging"
	"github.com/crimson-sun/repeatwatch/internal/model"
	"github.com/crimson-sun/repeatwatch/internal/output"
)

const (
	defaultBatchSize     = 50
	defaultFlushInterval = 5 * time.Second
	defaultTimeout       = 10 * time.Second
	maxRetries           = 3
)

// Payload is the JSON body of every POST.
type Payload struct {
	SentAt  time.Time      `json:"sentAt"`
	Count   int            `json:"count"`
	Records []model.Record `json:"records"`
}

// Option configures a webhook Output.
type Option func(*Output)

// WithHeaders sets custom HTTP headers sent with every POST.
func WithHeaders(h map[string]string) Option {
	return func(o *Output) { o.headers = h }
}

// WithBatchSize sets the number of records accumulated before a flush. Default: 50.
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

// WithOnError sets a callback invoked when a timer-triggered flush fails.
func WithOnError(f func(error)) Option {
	return func(o *Output) { o.errFunc = f }
}

// WithRepeatsOnly forwards only records with IsRepeated set.
func WithRepeatsOnly() Option {
	return func(o *Output) { o.repeatsOnly = true }
}

// WithVerbosity sets record compaction. Default: Standard.
func WithVerbosity(v compactor.Verbosity) Option {
	return func(o *Output) { o.verbosity = v }
}

// WithBackoff replaces the delay before retry attempt n (1-based).
// Default: 1s, 2s, 4s.
func WithBackoff(f func(attempt int) time.Duration) Option {
	return func(o *Output) { o.backoff = f }
}

// Output POSTs batched records to an HTTP endpoint. Records accumulate until
// batchSize is reached or flushInterval elapses. 5xx responses are retried.
type Output struct {
	client        *http.Client
	url           string
	headers       map[string]string
	batchSize     int
	flushInterval time.Duration
	repeatsOnly   bool
	verbosity     compactor.Verbosity
	backoff       func(int) time.Duration
	errFunc       func(error)
	now           func() time.Time

	mu      sync.Mutex
	pending []model.Record
	timer   *time.Timer
}

// New creates a webhook output targeting url.
func New(url string, opts ...Option) *Output {
	logger := logging.ForComponent("output.webhook")
	o := &Output{
		client:        &http.Client{Timeout: defaultTimeout},
		url:           url,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		verbosity:     compactor.Standard,
		backoff:       func(n int) time.Duration { return time.Duration(1<<(n-1)) * time.Second },
		errFunc:       func(err error) { logger.Warn("webhook flush error", "error", err) },
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Write appends rec to the batch, flushing when batchSize is reached. The
// first record of a batch arms the flush timer.
func (o *Output) Write(ctx context.Context, rec model.Record) error {
	if o.repeatsOnly && !rec.IsRepeated {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	o.pending = append(o.pending, output.FormatRecord(rec, o.verbosity))

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

// Close flushes any remaining records and stops the timer.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	return o.flushLocked(context.Background())
}

// flushLocked sends the pending batch. Caller must hold o.mu.
func (o *Output) flushLocked(ctx context.Context) error {
	if len(o.pending) == 0 {
		return nil
	}
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}

	batch := o.pending
	o.pending = nil

	body, err := json.Marshal(Payload{SentAt: o.now().UTC(), Count: len(batch), Records: batch})
	if err != nil {
		return goerr.Wrap(err, "marshal webhook payload")
	}
	return o.postWithRetry(ctx, body)
}

func (o *Output) postWithRetry(ctx context.Context, body []byte) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(o.backoff(attempt)):
			case <-ctx.Done():
				return goerr.Wrap(ctx.Err(), "webhook retry cancelled", goerr.V("url", o.url))
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
		if err != nil {
			return goerr.Wrap(err, "build webhook request", goerr.V("url", o.url))
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range o.headers {
			req.Header.Set(k, v)
		}

		resp, err := o.client.Do(req)
		if err != nil {
			return goerr.Wrap(err, "post webhook", goerr.V("url", o.url))
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		lastErr = goerr.New("webhook rejected batch",
			goerr.V("url", o.url), goerr.V("status", resp.StatusCode), goerr.V("attempt", attempt+1))

		if resp.StatusCode < 500 {
			return lastErr
		}
	}
	return lastErr
}
