// Package store holds the time-windowed utterance records and persists them
// through a Backend.
package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/crimson-sun/repeatwatch/internal/logging"
	"github.com/crimson-sun/repeatwatch/internal/model"
)

// DefaultRetention is how long a record stays in the window.
const DefaultRetention = 7 * 24 * time.Hour

// Option configures a Store.
type Option func(*Store)

// WithRetention sets the retention horizon.
func WithRetention(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store keeps records newest first. Every mutation re-filters the set to the
// retention horizon and persists the snapshot.
type Store struct {
	mu        sync.RWMutex
	backend   Backend
	retention time.Duration
	records   []model.Record
	logger    *slog.Logger
}

// New creates an empty Store over backend. A nil backend keeps records in memory.
func New(backend Backend, opts ...Option) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	s := &Store{
		backend:   backend,
		retention: DefaultRetention,
		logger:    logging.ForComponent("store"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Retention returns the retention horizon.
func (s *Store) Retention() time.Duration { return s.retention }

// Hydrate replaces the in-memory records with the persisted slot, filtered to
// the horizon at now, and returns how many were kept. Unreadable or corrupt
// state is logged and discarded, leaving the store empty.
func (s *Store) Hydrate(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil

	data, err := s.backend.Load(ctx)
	if err != nil {
		s.logger.Warn("load persisted history failed", "error", err)
		return 0
	}
	records, err := Decode(data)
	if err != nil {
		s.logger.Warn("discarding corrupt persisted history", "error", err)
		return 0
	}
	s.records = s.filter(records, now)
	s.logger.Debug("hydrated history", "loaded", len(records), "kept", len(s.records))
	return len(s.records)
}

// Window returns a copy of the records inside the horizon at now, newest first.
func (s *Store) Window(now time.Time) []model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(s.records, now)
}

// Records returns a copy of all held records, newest first.
func (s *Store) Records() []model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Record(nil), s.records...)
}

// Len returns the number of held records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Append prepends rec, re-filters the set at now and persists the snapshot.
// A failed save is logged; the in-memory state is kept.
func (s *Store) Append(ctx context.Context, rec model.Record, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]model.Record, 0, len(s.records)+1)
	next = append(next, rec)
	next = append(next, s.records...)
	s.records = s.filter(next, now)
	s.persist(ctx)
}

// Clear empties the store and the persisted slot.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	if err := s.backend.Clear(ctx); err != nil {
		return goerr.Wrap(err, "clear persisted history")
	}
	return nil
}

// Stats tallies the records inside the horizon at now.
func (s *Store) Stats(now time.Time) model.Stats {
	return model.ComputeStats(s.Window(now))
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) persist(ctx context.Context) {
	data, err := Encode(s.records)
	if err != nil {
		s.logger.Error("encode history failed", "error", err)
		return
	}
	if err := s.backend.Save(ctx, data); err != nil {
		s.logger.Error("persist history failed", "error", err, "records", len(s.records))
	}
}

// filter returns the records younger than the retention horizon at now.
func (s *Store) filter(records []model.Record, now time.Time) []model.Record {
	cutoff := now.Add(-s.retention)
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if r.Timestamp.After(cutoff) {
			out = append(out, r)
		}
	}
	return out
}
