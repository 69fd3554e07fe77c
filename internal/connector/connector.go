package connector

import (
	"context"
	"time"

	"github.com/crimson-sun/repeatwatch/internal/model"
)

// Connector defines the interface all speech event sources must implement.
type Connector interface {
	// Stream opens a long-lived source and sends utterances as they arrive.
	// The channel is closed when the source ends or ctx is cancelled.
	Stream(ctx context.Context, cfg ConnectorConfig) (<-chan model.Utterance, error)

	// Query reads a batch of recorded utterances matching the given parameters.
	Query(ctx context.Context, cfg ConnectorConfig, params QueryParams) ([]model.Utterance, error)
}

// ConnectorConfig holds source-specific settings.
type ConnectorConfig struct {
	Provider string
	Path     string // transcript file for the file provider
	Encoding string // utf-8, shift_jis or euc-jp
	Follow   bool   // keep reading lines appended to Path
	Extra    map[string]string
}

// QueryParams defines filters for batch reads. Zero values disable a filter.
// Utterances without a timestamp pass the time bounds.
type QueryParams struct {
	Start time.Time
	End   time.Time
	Limit int
}

// Apply filters us by the time bounds, then truncates to Limit.
func (p QueryParams) Apply(us []model.Utterance) []model.Utterance {
	out := make([]model.Utterance, 0, len(us))
	for _, u := range us {
		if !u.Timestamp.IsZero() {
			if !p.Start.IsZero() && u.Timestamp.Before(p.Start) {
				continue
			}
			if !p.End.IsZero() && u.Timestamp.After(p.End) {
				continue
			}
		}
		out = append(out, u)
		if p.Limit > 0 && len(out) == p.Limit {
			break
		}
	}
	return out
}
