// Package file reads utterances from a transcript file, optionally following
// lines appended to it.
package file

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/text/encoding"

	"github.com/crimson-sun/repeatwatch/internal/connector"
	"github.com/crimson-sun/repeatwatch/internal/logging"
	"github.com/crimson-sun/repeatwatch/internal/model"
)

const source = "file"

func init() {
	connector.Register("file", func() connector.Connector { return New() })
}

// Connector implements connector.Connector for transcript files.
type Connector struct {
	logger *slog.Logger
}

// New creates a file Connector.
func New() *Connector {
	return &Connector{logger: logging.ForComponent("connector.file")}
}

// Query reads the whole file and applies params.
func (c *Connector) Query(ctx context.Context, cfg connector.ConnectorConfig, params connector.QueryParams) ([]model.Utterance, error) {
	dec, err := Decoder(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(cfg.Path)
	if err != nil {
		return nil, goerr.Wrap(err, "read transcript", goerr.V("path", cfg.Path))
	}

	var out []model.Utterance
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if u, ok := c.parse(dec, line); ok {
			out = append(out, u)
		}
	}
	return params.Apply(out), nil
}

// Stream sends every line already in the file, then, with cfg.Follow, each
// line appended afterwards. Without Follow the channel closes at EOF.
func (c *Connector) Stream(ctx context.Context, cfg connector.ConnectorConfig) (<-chan model.Utterance, error) {
	dec, err := Decoder(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, goerr.Wrap(err, "open transcript", goerr.V("path", cfg.Path))
	}

	var w *fsnotify.Watcher
	if cfg.Follow {
		w, err = fsnotify.NewWatcher()
		if err != nil {
			f.Close()
			return nil, goerr.Wrap(err, "create file watcher")
		}
		if err := w.Add(cfg.Path); err != nil {
			w.Close()
			f.Close()
			return nil, goerr.Wrap(err, "watch transcript", goerr.V("path", cfg.Path))
		}
	}

	ch := make(chan model.Utterance, 64)
	go c.run(ctx, &tail{f: f, dec: dec}, w, ch)
	return ch, nil
}

func (c *Connector) run(ctx context.Context, t *tail, w *fsnotify.Watcher, ch chan<- model.Utterance) {
	defer close(ch)
	defer t.f.Close()

	if w == nil {
		if c.drain(ctx, t, ch) {
			c.emit(ctx, t.flush(), ch)
		}
		return
	}
	defer w.Close()

	if !c.drain(ctx, t, ch) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				c.logger.Info("transcript removed, stopping", "path", ev.Name)
				c.emit(ctx, t.flush(), ch)
				return
			}
			if ev.Has(fsnotify.Write) {
				if !c.drain(ctx, t, ch) {
					return
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			c.logger.Warn("file watcher error", "error", err)
		}
	}
}

// drain reads everything currently available and emits complete lines.
// It reports false when the stream should stop.
func (c *Connector) drain(ctx context.Context, t *tail, ch chan<- model.Utterance) bool {
	lines, err := t.read()
	if err != nil {
		c.logger.Warn("read transcript failed", "error", err)
		return false
	}
	for _, line := range lines {
		if !c.emit(ctx, line, ch) {
			return false
		}
	}
	return true
}

func (c *Connector) emit(ctx context.Context, line []byte, ch chan<- model.Utterance) bool {
	u, ok := c.parse(nil, line)
	if !ok {
		return true
	}
	select {
	case ch <- u:
		return true
	case <-ctx.Done():
		return false
	}
}

// parse decodes line when dec is set; tail lines arrive already decoded.
func (c *Connector) parse(dec *encoding.Decoder, line []byte) (model.Utterance, bool) {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	if dec != nil {
		decoded, err := dec.Bytes(line)
		if err != nil {
			c.logger.Warn("skipping undecodable line", "error", err)
			return model.Utterance{}, false
		}
		line = decoded
	}
	return connector.ParseLine(string(line), source)
}

// tail tracks a read position and the bytes of an unterminated last line.
type tail struct {
	f       *os.File
	dec     *encoding.Decoder
	pos     int64
	pending []byte
}

// read returns the complete, decoded lines appended since the last call.
// A file that shrank is re-read from the start.
func (t *tail) read() ([][]byte, error) {
	if info, err := t.f.Stat(); err == nil && info.Size() < t.pos {
		t.pos = 0
		t.pending = nil
	}
	if _, err := t.f.Seek(t.pos, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, 32*1024)
	var lines [][]byte
	for {
		n, err := t.f.Read(buf)
		if n > 0 {
			t.pos += int64(n)
			t.pending = append(t.pending, buf[:n]...)
			for {
				i := bytes.IndexByte(t.pending, '\n')
				if i < 0 {
					break
				}
				line, derr := t.decode(t.pending[:i])
				t.pending = t.pending[i+1:]
				if derr != nil {
					continue
				}
				lines = append(lines, line)
			}
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
	}
}

// flush returns the decoded unterminated last line, if any.
func (t *tail) flush() []byte {
	if len(t.pending) == 0 {
		return nil
	}
	line, err := t.decode(t.pending)
	t.pending = nil
	if err != nil {
		return nil
	}
	return line
}

// Newline never occurs inside a Shift_JIS or EUC-JP multibyte sequence, so
// lines can be split before decoding.
func (t *tail) decode(raw []byte) ([]byte, error) {
	raw = bytes.TrimSuffix(raw, []byte{'\r'})
	out, err := t.dec.Bytes(raw)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), out...), nil
}
