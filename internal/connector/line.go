package connector

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/crimson-sun/repeatwatch/internal/model"
)

type lineEvent struct {
	Text       *string    `json:"text"`
	Confidence *float64   `json:"confidence"`
	IsFinal    *bool      `json:"isFinal"`
	Timestamp  *time.Time `json:"timestamp"`
}

// ParseLine turns one transcript line into an utterance. A line holding a
// JSON object with a text field is read as a recognition event (missing
// confidence is 1, missing isFinal is true); any other line is final text
// with confidence 1. Blank lines report false.
func ParseLine(line, source string) (model.Utterance, bool) {
	line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
	if line == "" {
		return model.Utterance{}, false
	}
	u := model.Utterance{Text: line, Confidence: 1, IsFinal: true, Source: source}
	if line[0] != '{' {
		return u, true
	}

	var ev lineEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil || ev.Text == nil {
		return u, true
	}
	u.Text = *ev.Text
	if ev.Confidence != nil {
		u.Confidence = *ev.Confidence
	}
	if ev.IsFinal != nil {
		u.IsFinal = *ev.IsFinal
	}
	if ev.Timestamp != nil {
		u.Timestamp = *ev.Timestamp
	}
	return u, true
}
