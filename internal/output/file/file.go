package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/crimson-sun/repeatwatch/internal/engine/compactor"
	"github.com/crimson-sun/repeatwatch/internal/model"
	"github.com/crimson-sun/repeatwatch/internal/output"
)

const (
	defaultBufSize = 64 * 1024
	maxRotated     = 10
)

// Option configures a file Output.
type Option func(*Output)

// WithMaxSize sets the file size (bytes) at which rotation triggers.
// 0 (default) disables rotation.
func WithMaxSize(bytes int64) Option {
	return func(o *Output) { o.maxSize = bytes }
}

// WithBufSize sets the bufio.Writer buffer size. Default: 64KB.
func WithBufSize(bytes int) Option {
	return func(o *Output) { o.bufSize = bytes }
}

// Output appends records as NDJSON to a file with buffered I/O and optional
// size-based rotation.
type Output struct {
	w         *bufio.Writer
	f         *os.File
	mu        sync.Mutex
	path      string
	verbosity compactor.Verbosity
	maxSize   int64
	written   int64
	bufSize   int
}

// New creates a file output that appends NDJSON to path.
func New(path string, verbosity compactor.Verbosity, opts ...Option) (*Output, error) {
	o := &Output{
		path:      path,
		verbosity: verbosity,
		bufSize:   defaultBufSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.openFile(); err != nil {
		return nil, err
	}
	return o, nil
}

// Write appends rec as one JSON line.
func (o *Output) Write(_ context.Context, rec model.Record) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	data, err := json.Marshal(output.FormatRecord(rec, o.verbosity))
	if err != nil {
		return goerr.Wrap(err, "marshal record", goerr.V("record", rec.ID))
	}
	data = append(data, '\n')

	if o.maxSize > 0 && o.written > 0 && o.written+int64(len(data)) > o.maxSize {
		if err := o.rotate(); err != nil {
			return goerr.Wrap(err, "rotate output file", goerr.V("path", o.path))
		}
	}

	n, err := o.w.Write(data)
	o.written += int64(n)
	if err != nil {
		return goerr.Wrap(err, "write output file", goerr.V("path", o.path))
	}
	return nil
}

// Flush pushes buffered lines to the file.
func (o *Output) Flush() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.w.Flush(); err != nil {
		return goerr.Wrap(err, "flush output file", goerr.V("path", o.path))
	}
	return nil
}

// Close flushes the buffer and closes the file.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.w.Flush(); err != nil {
		o.f.Close()
		return goerr.Wrap(err, "flush output file", goerr.V("path", o.path))
	}
	return o.f.Close()
}

func (o *Output) openFile() error {
	f, err := os.OpenFile(o.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return goerr.Wrap(err, "open output file", goerr.V("path", o.path))
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return goerr.Wrap(err, "stat output file", goerr.V("path", o.path))
	}
	o.f = f
	o.w = bufio.NewWriterSize(f, o.bufSize)
	o.written = info.Size()
	return nil
}

// rotate shifts {path}.N to {path}.N+1, moves the current file to {path}.1
// and opens a fresh file. At most maxRotated generations are kept.
func (o *Output) rotate() error {
	if err := o.w.Flush(); err != nil {
		return err
	}
	if err := o.f.Close(); err != nil {
		return err
	}
	for i := maxRotated - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", o.path, i), fmt.Sprintf("%s.%d", o.path, i+1))
	}
	if err := os.Rename(o.path, o.path+".1"); err != nil {
		return err
	}
	o.written = 0
	return o.openFile()
}
