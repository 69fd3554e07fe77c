package model

import "fmt"

// Stats aggregates the records currently inside the retention window.
type Stats struct {
	Total      int    `json:"total"`
	Frequent   int    `json:"frequent"`
	Occasional int    `json:"occasional"`
	New        int    `json:"new"`
	RepeatRate string `json:"repeatRate"` // percentage with one decimal, "0" when empty
}

// ComputeStats tallies records by category.
func ComputeStats(records []Record) Stats {
	s := Stats{Total: len(records)}
	for _, r := range records {
		switch r.Category {
		case CategoryFrequent:
			s.Frequent++
		case CategoryOccasional:
			s.Occasional++
		default:
			s.New++
		}
	}
	if s.Total == 0 {
		s.RepeatRate = "0"
		return s
	}
	s.RepeatRate = fmt.Sprintf("%.1f", float64(s.Frequent+s.Occasional)/float64(s.Total)*100)
	return s
}
