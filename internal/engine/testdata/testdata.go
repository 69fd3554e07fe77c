package testdata

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed corpus.json
var corpusJSON []byte

// Step is one recognition event of a scenario and what the engine should do with it.
type Step struct {
	Text       string   `json:"text"`
	At         float64  `json:"at"`         // seconds from scenario start
	Confidence *float64 `json:"confidence"` // nil means 1
	Interim    bool     `json:"interim"`
	Outcome    string   `json:"outcome"`
	Category   string   `json:"category"` // expected when outcome is accepted
	Content    string   `json:"content"`  // expected cleaned text, when set
}

// Scenario is a labeled conversation for end-to-end engine validation.
type Scenario struct {
	Description string `json:"description"`
	Steps       []Step `json:"steps"`
}

// LoadCorpus parses the embedded corpus.json and returns all scenarios.
func LoadCorpus() ([]Scenario, error) {
	var scenarios []Scenario
	if err := json.Unmarshal(corpusJSON, &scenarios); err != nil {
		return nil, fmt.Errorf("parse corpus.json: %w", err)
	}
	return scenarios, nil
}
