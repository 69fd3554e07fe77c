package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"

	"github.com/crimson-sun/repeatwatch/internal/config"
	"github.com/crimson-sun/repeatwatch/internal/engine"
	"github.com/crimson-sun/repeatwatch/internal/engine/classifier"
	"github.com/crimson-sun/repeatwatch/internal/engine/compactor"
	"github.com/crimson-sun/repeatwatch/internal/engine/scorer"
	"github.com/crimson-sun/repeatwatch/internal/engine/taxonomy"
	"github.com/crimson-sun/repeatwatch/internal/engine/tokenizer"
	"github.com/crimson-sun/repeatwatch/internal/output"
	"github.com/crimson-sun/repeatwatch/internal/output/async"
	"github.com/crimson-sun/repeatwatch/internal/output/file"
	"github.com/crimson-sun/repeatwatch/internal/output/multi"
	"github.com/crimson-sun/repeatwatch/internal/output/stdout"
	"github.com/crimson-sun/repeatwatch/internal/output/webhook"
	"github.com/crimson-sun/repeatwatch/internal/store"
	filestore "github.com/crimson-sun/repeatwatch/internal/store/file"
	"github.com/crimson-sun/repeatwatch/internal/store/sqlite"
)

func newScorer(cfg config.Config) (*scorer.Scorer, error) {
	tax, err := taxonomy.New(cfg.Scoring.Keywords)
	if err != nil {
		return nil, err
	}
	return scorer.New(tokenizer.New(tax, tokenizer.DefaultOptions()), cfg.ScorerConfig()), nil
}

// newEngine wires the scoring stack and the configured store, then loads the
// persisted history.
func newEngine(ctx context.Context, cfg config.Config) (*engine.Engine, error) {
	sc, err := newScorer(cfg)
	if err != nil {
		return nil, err
	}
	backend, err := openBackend(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	st := store.New(backend, store.WithRetention(cfg.Engine.Retention))
	eng := engine.New(classifier.New(sc, cfg.ClassifierRules()), st, cfg.EngineConfig())
	eng.Load(ctx)
	return eng, nil
}

func openBackend(ctx context.Context, sc config.StoreConfig) (store.Backend, error) {
	switch sc.Backend {
	case "memory":
		return store.NewMemoryBackend(), nil
	case "sqlite":
		path := sc.Path
		if path == "" {
			path = filepath.Join(dataDir(), "history.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, goerr.Wrap(err, "create store directory", goerr.V("path", path))
		}
		b, err := sqlite.Open(ctx, path, sc.Slot)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		dir := sc.Path
		if dir == "" {
			dir = dataDir()
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, goerr.Wrap(err, "create store directory", goerr.V("path", dir))
		}
		return filestore.New(dir, sc.Slot), nil
	}
}

// dataDir is the default location for persisted history.
func dataDir() string {
	if d, err := os.UserConfigDir(); err == nil {
		return filepath.Join(d, "repeatwatch")
	}
	return ".repeatwatch"
}

// newOutput builds the configured record sink. w receives stdout output.
// A webhook URL set alongside a stdout or file format adds a second sink.
func newOutput(cfg config.OutputConfig, w io.Writer) (output.Output, error) {
	v, err := compactor.ParseVerbosity(cfg.Verbosity)
	if err != nil {
		return nil, err
	}
	var primary output.Output
	switch cfg.Format {
	case "file":
		o, err := file.New(cfg.Path, v, file.WithMaxSize(cfg.MaxSize))
		if err != nil {
			return nil, err
		}
		primary = o
	case "webhook":
		return newWebhook(cfg, v), nil
	default:
		primary = stdout.NewWriter(w, v, cfg.Pretty)
	}
	if cfg.WebhookURL == "" {
		return primary, nil
	}
	return multi.New(primary, newWebhook(cfg, v)), nil
}

func newWebhook(cfg config.OutputConfig, v compactor.Verbosity) output.Output {
	opts := []webhook.Option{webhook.WithVerbosity(v)}
	if cfg.RepeatsOnly {
		opts = append(opts, webhook.WithRepeatsOnly())
	}
	return async.New(webhook.New(cfg.WebhookURL, opts...), async.WithDropOnFull())
}
