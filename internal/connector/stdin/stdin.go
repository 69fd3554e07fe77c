// Package stdin reads utterances line by line from standard input.
package stdin

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"

	"github.com/crimson-sun/repeatwatch/internal/connector"
	"github.com/crimson-sun/repeatwatch/internal/logging"
	"github.com/crimson-sun/repeatwatch/internal/model"
)

const maxLine = 1 << 20

func init() {
	connector.Register("stdin", func() connector.Connector { return New(os.Stdin) })
}

// Connector reads one utterance per line from r.
type Connector struct {
	r io.Reader
}

// New creates a Connector over r.
func New(r io.Reader) *Connector {
	return &Connector{r: r}
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	return sc
}

// Stream sends each non-blank line until EOF or ctx is cancelled.
func (c *Connector) Stream(ctx context.Context, _ connector.ConnectorConfig) (<-chan model.Utterance, error) {
	ch := make(chan model.Utterance, 16)
	go func() {
		defer close(ch)
		sc := newScanner(c.r)
		for sc.Scan() {
			u, ok := connector.ParseLine(sc.Text(), "stdin")
			if !ok {
				continue
			}
			select {
			case ch <- u:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			logging.ForComponent("connector.stdin").Warn("read stdin failed", "error", err)
		}
	}()
	return ch, nil
}

// Query reads every line up to EOF and applies params.
func (c *Connector) Query(ctx context.Context, _ connector.ConnectorConfig, params connector.QueryParams) ([]model.Utterance, error) {
	var out []model.Utterance
	sc := newScanner(c.r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if u, ok := connector.ParseLine(sc.Text(), "stdin"); ok {
			out = append(out, u)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, goerr.Wrap(err, "read stdin")
	}
	return params.Apply(out), nil
}
