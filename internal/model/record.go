package model

import "time"

// Category is the repetition class assigned to an utterance at creation time.
type Category string

const (
	CategoryNew        Category = "new"
	CategoryOccasional Category = "occasional"
	CategoryFrequent   Category = "frequent"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryNew, CategoryOccasional, CategoryFrequent:
		return true
	}
	return false
}

// MatchType is the coarse band a pairwise similarity falls into.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchSemantic MatchType = "semantic"
	MatchLow      MatchType = "low"
)

// SimilarityDetail is one pairwise comparison captured when a record was created.
type SimilarityDetail struct {
	TargetContent string    `json:"targetContent"`
	Similarity    float64   `json:"similarity"`
	MatchType     MatchType `json:"matchType"`
	Timestamp     time.Time `json:"timestamp"`
	ID            string    `json:"id"`
}

// Record is a classified utterance. Once created it is never revised;
// SimilarityDetails is a snapshot of the window at creation time, sorted by
// descending similarity.
type Record struct {
	ID                string             `json:"id"`
	Content           string             `json:"content"`
	Timestamp         time.Time          `json:"timestamp"`
	Category          Category           `json:"category"`
	IsRepeated        bool               `json:"isRepeated"`
	Similarity        float64            `json:"similarity"`
	SimilarityDetails []SimilarityDetail `json:"similarityDetails"`
}
