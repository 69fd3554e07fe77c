package repeatwatch

import (
	"time"

	"github.com/crimson-sun/repeatwatch/internal/config"
)

type options struct {
	cfg   config.Config
	clock func() time.Time
}

// Option configures a Detector.
type Option func(*options)

// WithStoreDir persists history as a JSON file in dir.
func WithStoreDir(dir string) Option {
	return func(o *options) {
		o.cfg.Store.Backend = "file"
		o.cfg.Store.Path = dir
	}
}

// WithSQLite persists history in the SQLite database at path.
func WithSQLite(path string) Option {
	return func(o *options) {
		o.cfg.Store.Backend = "sqlite"
		o.cfg.Store.Path = path
	}
}

// WithSlot sets the key under which history is persisted.
// Default: "conversation-history".
func WithSlot(name string) Option {
	return func(o *options) { o.cfg.Store.Slot = name }
}

// WithRetention sets how long records stay in the window. Default: 7 days.
func WithRetention(d time.Duration) Option {
	return func(o *options) { o.cfg.Engine.Retention = d }
}

// WithCooldown sets the identical-text suppression window. Default: 3s.
func WithCooldown(d time.Duration) Option {
	return func(o *options) { o.cfg.Engine.Cooldown = d }
}

// WithMinConfidence sets the recognizer confidence gate. Default: 0.6.
func WithMinConfidence(c float64) Option {
	return func(o *options) { o.cfg.Engine.MinConfidence = c }
}

// WithPulseDuration sets how long RepeatDetected stays set. Default: 3s.
func WithPulseDuration(d time.Duration) Option {
	return func(o *options) { o.cfg.Engine.Pulse = d }
}

// WithRules sets how many exact or semantic matches make a record frequent
// and how many semantic matches make it occasional. Defaults: 1, 2, 1.
func WithRules(exact, frequentSemantic, occasionalSemantic int) Option {
	return func(o *options) {
		o.cfg.Rules.ExactMatches = exact
		o.cfg.Rules.FrequentSemantic = frequentSemantic
		o.cfg.Rules.OccasionalSemantic = occasionalSemantic
	}
}

// WithWeights sets the TF-IDF and keyword-feature weights of the hybrid
// score. Defaults: 0.4, 0.6.
func WithWeights(tfidf, semantic float64) Option {
	return func(o *options) {
		o.cfg.Scoring.TFIDFWeight = tfidf
		o.cfg.Scoring.SemanticWeight = semantic
	}
}

// WithBands sets the exact and semantic similarity thresholds.
// Defaults: 0.9, 0.7.
func WithBands(exact, semantic float64) Option {
	return func(o *options) {
		o.cfg.Scoring.ExactBand = exact
		o.cfg.Scoring.SemanticBand = semantic
	}
}

// WithKeywords replaces the word list of the named keyword categories
// (emotion, time, person, memory, daily, question).
func WithKeywords(lists map[string][]string) Option {
	return func(o *options) { o.cfg.Scoring.Keywords = lists }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

func defaultOptions() options {
	cfg := config.Default()
	cfg.Store.Backend = "memory"
	return options{cfg: cfg}
}
