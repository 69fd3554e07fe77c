package engine

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/crimson-sun/repeatwatch/internal/engine/classifier"
	"github.com/crimson-sun/repeatwatch/internal/engine/dedup"
	"github.com/crimson-sun/repeatwatch/internal/eventbus"
	"github.com/crimson-sun/repeatwatch/internal/logging"
	"github.com/crimson-sun/repeatwatch/internal/model"
	"github.com/crimson-sun/repeatwatch/internal/store"
)

// Outcome says what happened to a submitted utterance.
type Outcome int

const (
	Accepted      Outcome = iota // classified and stored
	Empty                        // no text left after trimming and collapsing
	Cooldown                     // identical to the last accepted text within the cooldown
	Interim                      // not a final recognition result
	LowConfidence                // recognizer confidence below the gate
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Empty:
		return "empty"
	case Cooldown:
		return "cooldown"
	case Interim:
		return "interim"
	case LowConfidence:
		return "low_confidence"
	}
	return "unknown"
}

// Config holds the engine gates and timers.
type Config struct {
	MinConfidence float64       // final events below this are dropped
	Cooldown      time.Duration // identical-text suppression window
	PulseDuration time.Duration // how long RepeatDetected stays set
}

// DefaultConfig returns the standard gates and timers.
func DefaultConfig() Config {
	return Config{
		MinConfidence: 0.6,
		Cooldown:      dedup.DefaultCooldown,
		PulseDuration: 3 * time.Second,
	}
}

// EventKind distinguishes bus events.
type EventKind int

const (
	RecordAdded  EventKind = iota // a record was accepted
	PulseChanged                  // RepeatDetected flipped
)

// Event is published on the engine bus.
type Event struct {
	Kind   EventKind
	Record model.Record // set for RecordAdded
	Repeat bool         // pulse state for PulseChanged
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.clock = now
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine orchestrates the gate → collapse → cooldown → classify → store
// flow for one speaker. Utterances are processed one at a time.
type Engine struct {
	mu         sync.Mutex
	cfg        Config
	classifier *classifier.Classifier
	store      *store.Store
	cooldown   *dedup.Cooldown
	clock      func() time.Time
	logger     *slog.Logger
	bus        *eventbus.Bus[Event]

	pulseMu    sync.Mutex
	pulse      bool
	pulseGen   int
	pulseTimer *time.Timer
}

// New creates an Engine over the given classifier and store.
func New(cls *classifier.Classifier, st *store.Store, cfg Config, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.PulseDuration <= 0 {
		cfg.PulseDuration = def.PulseDuration
	}
	e := &Engine{
		cfg:        cfg,
		classifier: cls,
		store:      st,
		cooldown:   dedup.NewCooldown(cfg.Cooldown),
		clock:      time.Now,
		logger:     logging.ForComponent("engine"),
		bus:        eventbus.New[Event](),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Load hydrates the store from its backend and returns the number of
// records inside the window.
func (e *Engine) Load(ctx context.Context) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := e.store.Hydrate(ctx, e.clock())
	e.logger.Info("history loaded", "records", n)
	return n
}

// Submit applies the boundary gate to a recognition event and, if it
// passes, adds the utterance. A non-zero Timestamp is used as the
// processing time.
func (e *Engine) Submit(ctx context.Context, u model.Utterance) (model.Record, Outcome) {
	if !u.IsFinal {
		return model.Record{}, Interim
	}
	if u.Confidence < e.cfg.MinConfidence {
		e.logger.Debug("utterance below confidence gate", "confidence", u.Confidence, "min", e.cfg.MinConfidence)
		return model.Record{}, LowConfidence
	}
	now := u.Timestamp
	if now.IsZero() {
		now = e.clock()
	}
	return e.add(ctx, u.Text, now)
}

// AddUtterance classifies text directly, bypassing the boundary gate.
func (e *Engine) AddUtterance(ctx context.Context, text string) (model.Record, Outcome) {
	return e.add(ctx, text, e.clock())
}

func (e *Engine) add(ctx context.Context, text string, now time.Time) (model.Record, Outcome) {
	e.mu.Lock()
	if strings.TrimSpace(text) == "" {
		e.mu.Unlock()
		return model.Record{}, Empty
	}
	cleaned := dedup.Collapse(text)
	if cleaned == "" {
		e.mu.Unlock()
		return model.Record{}, Empty
	}
	if !e.cooldown.Allow(cleaned, now) {
		e.logger.Debug("utterance in cooldown", "text", cleaned, "remaining", e.cooldown.Remaining(cleaned, now))
		e.mu.Unlock()
		return model.Record{}, Cooldown
	}
	e.cooldown.Accept(cleaned, now)

	window := e.store.Window(now)
	rec := e.classifier.Classify(cleaned, window, now)
	e.store.Append(ctx, rec, now)
	e.mu.Unlock()

	if e.logger.Enabled(ctx, slog.LevelDebug) {
		for _, d := range rec.SimilarityDetails {
			e.logger.Debug("comparison", "text", cleaned, "target", d.TargetContent,
				"similarity", d.Similarity, "match", d.MatchType)
		}
	}
	e.logger.Info("utterance classified",
		"id", rec.ID,
		"category", rec.Category,
		"similarity", rec.Similarity,
		"window", len(window),
	)

	e.bus.Publish(Event{Kind: RecordAdded, Record: rec})
	if rec.IsRepeated {
		e.raisePulse()
	}
	return rec, Accepted
}

// raisePulse sets RepeatDetected and schedules its reset. A repeat arriving
// while the pulse is set restarts the timer.
func (e *Engine) raisePulse() {
	e.pulseMu.Lock()
	wasSet := e.pulse
	e.pulse = true
	e.pulseGen++
	gen := e.pulseGen
	if e.pulseTimer != nil {
		e.pulseTimer.Stop()
	}
	e.pulseTimer = time.AfterFunc(e.cfg.PulseDuration, func() { e.lowerPulse(gen) })
	e.pulseMu.Unlock()

	if !wasSet {
		e.bus.Publish(Event{Kind: PulseChanged, Repeat: true})
	}
}

// lowerPulse clears the pulse if no newer repeat has re-armed it.
func (e *Engine) lowerPulse(gen int) {
	e.pulseMu.Lock()
	if gen != e.pulseGen || !e.pulse {
		e.pulseMu.Unlock()
		return
	}
	e.pulse = false
	e.pulseTimer = nil
	e.pulseMu.Unlock()
	e.bus.Publish(Event{Kind: PulseChanged, Repeat: false})
}

// RepeatDetected reports whether a repeat was classified within the last
// PulseDuration.
func (e *Engine) RepeatDetected() bool {
	e.pulseMu.Lock()
	defer e.pulseMu.Unlock()
	return e.pulse
}

// ClearHistory removes every record, the persisted slot and the cooldown
// state, and lowers the pulse.
func (e *Engine) ClearHistory(ctx context.Context) error {
	e.mu.Lock()
	e.cooldown.Reset()
	err := e.store.Clear(ctx)
	e.mu.Unlock()

	e.pulseMu.Lock()
	e.pulseGen++
	if e.pulseTimer != nil {
		e.pulseTimer.Stop()
		e.pulseTimer = nil
	}
	wasSet := e.pulse
	e.pulse = false
	e.pulseMu.Unlock()
	if wasSet {
		e.bus.Publish(Event{Kind: PulseChanged, Repeat: false})
	}

	if err != nil {
		return err
	}
	e.logger.Info("history cleared")
	return nil
}

// Records returns the records inside the retention window, newest first.
func (e *Engine) Records() []model.Record {
	return e.store.Window(e.clock())
}

// Stats tallies the records inside the retention window.
func (e *Engine) Stats() model.Stats {
	return e.store.Stats(e.clock())
}

// Subscribe registers fn for engine events and returns its unsubscribe func.
func (e *Engine) Subscribe(fn func(Event)) func() {
	return e.bus.Subscribe(fn)
}

// Classifier returns the engine's classifier.
func (e *Engine) Classifier() *classifier.Classifier { return e.classifier }

// Close stops the pulse timer and closes the store backend.
func (e *Engine) Close() error {
	e.pulseMu.Lock()
	e.pulseGen++
	if e.pulseTimer != nil {
		e.pulseTimer.Stop()
		e.pulseTimer = nil
	}
	e.pulseMu.Unlock()
	return e.store.Close()
}
