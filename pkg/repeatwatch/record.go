package repeatwatch

import (
	"time"

	"github.com/crimson-sun/repeatwatch/internal/model"
)

// Category is the repetition class of a record.
type Category string

const (
	CategoryNew Category = "new"
	Occasional  Category = "occasional"
	Frequent    Category = "frequent"
)

// MatchType is the band a pairwise similarity falls into.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchSemantic MatchType = "semantic"
	MatchLow      MatchType = "low"
)

// Record is a classified utterance. This is the stable public type.
type Record struct {
	ID                string             `json:"id"`
	Content           string             `json:"content"`
	Timestamp         time.Time          `json:"timestamp"`
	Category          Category           `json:"category"`
	IsRepeated        bool               `json:"isRepeated"`
	Similarity        float64            `json:"similarity"`
	SimilarityDetails []SimilarityDetail `json:"similarityDetails"`
}

// SimilarityDetail is one comparison against an earlier record.
type SimilarityDetail struct {
	TargetContent string    `json:"targetContent"`
	Similarity    float64   `json:"similarity"`
	MatchType     MatchType `json:"matchType"`
	Timestamp     time.Time `json:"timestamp"`
	ID            string    `json:"id"`
}

// Stats summarizes the records inside the retention window.
type Stats struct {
	Total      int    `json:"total"`
	Frequent   int    `json:"frequent"`
	Occasional int    `json:"occasional"`
	New        int    `json:"new"`
	RepeatRate string `json:"repeatRate"`
}

func recordFromModel(r model.Record) Record {
	details := make([]SimilarityDetail, len(r.SimilarityDetails))
	for i, d := range r.SimilarityDetails {
		details[i] = SimilarityDetail{
			TargetContent: d.TargetContent,
			Similarity:    d.Similarity,
			MatchType:     MatchType(d.MatchType),
			Timestamp:     d.Timestamp,
			ID:            d.ID,
		}
	}
	return Record{
		ID:                r.ID,
		Content:           r.Content,
		Timestamp:         r.Timestamp,
		Category:          Category(r.Category),
		IsRepeated:        r.IsRepeated,
		Similarity:        r.Similarity,
		SimilarityDetails: details,
	}
}

func statsFromModel(s model.Stats) Stats {
	return Stats{
		Total:      s.Total,
		Frequent:   s.Frequent,
		Occasional: s.Occasional,
		New:        s.New,
		RepeatRate: s.RepeatRate,
	}
}
