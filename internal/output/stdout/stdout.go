package stdout

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/crimson-sun/repeatwatch/internal/engine/compactor"
	"github.com/crimson-sun/repeatwatch/internal/model"
	"github.com/crimson-sun/repeatwatch/internal/output"
)

// Output writes JSON-encoded records, one per line, to stdout.
type Output struct {
	mu        sync.Mutex
	enc       *json.Encoder
	verbosity compactor.Verbosity
}

// New creates a stdout Output with verbosity-aware compaction and optional
// pretty-printed JSON.
func New(verbosity compactor.Verbosity, pretty bool) *Output {
	return NewWriter(os.Stdout, verbosity, pretty)
}

// NewWriter is New over an arbitrary writer.
func NewWriter(w io.Writer, verbosity compactor.Verbosity, pretty bool) *Output {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc, verbosity: verbosity}
}

func (o *Output) Write(_ context.Context, rec model.Record) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.enc.Encode(output.FormatRecord(rec, o.verbosity)); err != nil {
		return goerr.Wrap(err, "stdout output", goerr.V("record", rec.ID))
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
