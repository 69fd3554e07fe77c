// Package file persists the record slot as a JSON file.
package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
)

// Backend stores one slot at <dir>/<slot>.json. Writes go to a temp file in
// the same directory and are renamed into place.
type Backend struct {
	path string
}

// New returns a Backend for slot under dir.
func New(dir, slot string) *Backend {
	return &Backend{path: filepath.Join(dir, slot+".json")}
}

// Path returns the slot file path.
func (b *Backend) Path() string { return b.path }

func (b *Backend) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "read slot file", goerr.V("path", b.path))
	}
	return data, nil
}

func (b *Backend) Save(_ context.Context, data []byte) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return goerr.Wrap(err, "create slot dir", goerr.V("dir", dir))
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return goerr.Wrap(err, "create temp slot file", goerr.V("dir", dir))
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return goerr.Wrap(err, "write temp slot file", goerr.V("path", tmpName))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return goerr.Wrap(err, "sync temp slot file", goerr.V("path", tmpName))
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "close temp slot file", goerr.V("path", tmpName))
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return goerr.Wrap(err, "rename slot file", goerr.V("path", b.path))
	}
	return nil
}

func (b *Backend) Clear(_ context.Context) error {
	if err := os.Remove(b.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return goerr.Wrap(err, "remove slot file", goerr.V("path", b.path))
	}
	return nil
}

func (b *Backend) Close() error { return nil }
