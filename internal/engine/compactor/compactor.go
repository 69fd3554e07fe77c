// Package compactor trims records to the verbosity an output wants.
package compactor

import (
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"

	"github.com/crimson-sun/repeatwatch/internal/model"
)

// Verbosity controls how much detail is retained after compaction.
type Verbosity int

const (
	Minimal  Verbosity = iota // drop similarity details
	Standard                  // top details, truncated contents
	Full                      // retain everything
)

const (
	standardDetails = 5
	standardRunes   = 120
)

// ParseVerbosity maps a config string to a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal":
		return Minimal, nil
	case "", "standard":
		return Standard, nil
	case "full":
		return Full, nil
	}
	return Standard, goerr.New("unknown verbosity", goerr.V("verbosity", s))
}

func (v Verbosity) String() string {
	switch v {
	case Minimal:
		return "minimal"
	case Full:
		return "full"
	default:
		return "standard"
	}
}

// Compactor reduces record size for output.
type Compactor struct {
	Verbosity Verbosity
}

// New creates a Compactor with the given verbosity level.
func New(v Verbosity) *Compactor {
	return &Compactor{Verbosity: v}
}

// Compact returns a copy of rec trimmed to the configured verbosity. The
// input record is never modified.
func (c *Compactor) Compact(rec model.Record) model.Record {
	switch c.Verbosity {
	case Minimal:
		rec.SimilarityDetails = nil
	case Standard:
		n := min(len(rec.SimilarityDetails), standardDetails)
		details := make([]model.SimilarityDetail, n)
		for i := 0; i < n; i++ {
			d := rec.SimilarityDetails[i]
			d.TargetContent = truncate(d.TargetContent, standardRunes)
			details[i] = d
		}
		rec.SimilarityDetails = details
		rec.Content = truncate(rec.Content, standardRunes)
	default:
		rec.SimilarityDetails = append([]model.SimilarityDetail(nil), rec.SimilarityDetails...)
	}
	return rec
}

// truncate shortens s to at most maxRunes runes, appending "..." when cut.
func truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxRunes]) + "..."
}
