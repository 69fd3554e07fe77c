package model

import "time"

// Utterance is one speech event produced by a connector and consumed by the engine.
type Utterance struct {
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"` // recognizer confidence in [0,1]
	IsFinal    bool      `json:"isFinal"`    // false for interim hypotheses
	Timestamp  time.Time `json:"timestamp"`  // zero means "now" on the engine clock
	Source     string    `json:"source,omitempty"`
}
