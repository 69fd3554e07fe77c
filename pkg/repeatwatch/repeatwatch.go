package repeatwatch

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"

	"github.com/crimson-sun/repeatwatch/internal/config"
	"github.com/crimson-sun/repeatwatch/internal/engine"
	"github.com/crimson-sun/repeatwatch/internal/engine/classifier"
	"github.com/crimson-sun/repeatwatch/internal/engine/dedup"
	"github.com/crimson-sun/repeatwatch/internal/engine/scorer"
	"github.com/crimson-sun/repeatwatch/internal/engine/taxonomy"
	"github.com/crimson-sun/repeatwatch/internal/engine/tokenizer"
	"github.com/crimson-sun/repeatwatch/internal/model"
	"github.com/crimson-sun/repeatwatch/internal/store"
	"github.com/crimson-sun/repeatwatch/internal/store/file"
	"github.com/crimson-sun/repeatwatch/internal/store/sqlite"
)

// Detector classifies utterances against the conversation history.
// Safe for concurrent use.
type Detector struct {
	engine   *engine.Engine
	scorer   *scorer.Scorer
	taxonomy *taxonomy.Taxonomy
}

// New creates a Detector and loads any persisted history. Without a store
// option, history lives in memory only.
func New(opts ...Option) (*Detector, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	cfg := o.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tax, err := taxonomy.New(cfg.Scoring.Keywords)
	if err != nil {
		return nil, err
	}
	sc := scorer.New(tokenizer.New(tax, tokenizer.DefaultOptions()), cfg.ScorerConfig())

	ctx := context.Background()
	backend, err := openBackend(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	st := store.New(backend, store.WithRetention(cfg.Engine.Retention))

	var engOpts []engine.Option
	if o.clock != nil {
		engOpts = append(engOpts, engine.WithClock(o.clock))
	}
	eng := engine.New(classifier.New(sc, cfg.ClassifierRules()), st, cfg.EngineConfig(), engOpts...)
	eng.Load(ctx)

	return &Detector{engine: eng, scorer: sc, taxonomy: tax}, nil
}

func openBackend(ctx context.Context, sc config.StoreConfig) (store.Backend, error) {
	switch sc.Backend {
	case "file":
		if sc.Path == "" {
			return nil, goerr.New("file store requires a directory")
		}
		if err := os.MkdirAll(sc.Path, 0o755); err != nil {
			return nil, goerr.Wrap(err, "create store directory", goerr.V("path", sc.Path))
		}
		return file.New(sc.Path, sc.Slot), nil
	case "sqlite":
		if sc.Path == "" {
			return nil, goerr.New("sqlite store requires a database path")
		}
		if err := os.MkdirAll(filepath.Dir(sc.Path), 0o755); err != nil {
			return nil, goerr.Wrap(err, "create store directory", goerr.V("path", sc.Path))
		}
		b, err := sqlite.Open(ctx, sc.Path, sc.Slot)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return store.NewMemoryBackend(), nil
	}
}

// OnUtterance handles one speech-recognition result. Interim results and
// results below the confidence gate are ignored. The boolean reports whether
// a record was created.
func (d *Detector) OnUtterance(text string, confidence float64, isFinal bool) (Record, bool) {
	rec, outcome := d.engine.Submit(context.Background(), model.Utterance{
		Text:       text,
		Confidence: confidence,
		IsFinal:    isFinal,
	})
	if outcome != engine.Accepted {
		return Record{}, false
	}
	return recordFromModel(rec), true
}

// AddUtterance classifies text without the confidence gate. Empty text and
// text repeated within the cooldown report false.
func (d *Detector) AddUtterance(text string) (Record, bool) {
	rec, outcome := d.engine.AddUtterance(context.Background(), text)
	if outcome != engine.Accepted {
		return Record{}, false
	}
	return recordFromModel(rec), true
}

// ClearHistory deletes every record, including persisted history.
func (d *Detector) ClearHistory() error {
	return d.engine.ClearHistory(context.Background())
}

// Stats summarizes the records inside the retention window.
func (d *Detector) Stats() Stats {
	return statsFromModel(d.engine.Stats())
}

// Records returns the records inside the retention window, newest first.
func (d *Detector) Records() []Record {
	recs := d.engine.Records()
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[i] = recordFromModel(r)
	}
	return out
}

// RepeatDetected reports whether a repeat was classified within the pulse
// duration.
func (d *Detector) RepeatDetected() bool {
	return d.engine.RepeatDetected()
}

// OnRepeat calls fn for every record classified as a repeat. fn runs on the
// goroutine that submitted the utterance. The returned func unsubscribes.
func (d *Detector) OnRepeat(fn func(Record)) func() {
	return d.engine.Subscribe(func(ev engine.Event) {
		if ev.Kind == engine.RecordAdded && ev.Record.IsRepeated {
			fn(recordFromModel(ev.Record))
		}
	})
}

// OnPulse calls fn whenever RepeatDetected changes. The returned func
// unsubscribes.
func (d *Detector) OnPulse(fn func(bool)) func() {
	return d.engine.Subscribe(func(ev engine.Event) {
		if ev.Kind == engine.PulseChanged {
			fn(ev.Repeat)
		}
	})
}

// Score returns the similarity of a and b in [0, 1], with term weights drawn
// from the two texts alone.
func (d *Detector) Score(a, b string) float64 {
	return d.scorer.Score(a, b, []string{a, b})
}

// Collapse removes stutter repetition from text.
func (d *Detector) Collapse(text string) string {
	return dedup.Collapse(text)
}

// Close stops timers and releases the store.
func (d *Detector) Close() error {
	return d.engine.Close()
}
