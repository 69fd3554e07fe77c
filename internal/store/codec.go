package store

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/crimson-sun/repeatwatch/internal/model"
)

// Encode serializes records, newest first, as a JSON array.
func Encode(records []model.Record) ([]byte, error) {
	if records == nil {
		records = []model.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, goerr.Wrap(err, "encode records", goerr.V("count", len(records)))
	}
	return data, nil
}

// wire mirrors model.Record with every field optional.
type wire struct {
	ID                string       `json:"id"`
	Content           string       `json:"content"`
	Timestamp         flexTime     `json:"timestamp"`
	Category          string       `json:"category"`
	Similarity        *float64     `json:"similarity"`
	SimilarityDetails []wireDetail `json:"similarityDetails"`
}

type wireDetail struct {
	TargetContent string   `json:"targetContent"`
	Similarity    *float64 `json:"similarity"`
	MatchType     string   `json:"matchType"`
	Timestamp     flexTime `json:"timestamp"`
	ID            string   `json:"id"`
}

// flexTime accepts RFC 3339 strings and epoch milliseconds.
type flexTime struct{ time.Time }

func (f *flexTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
		f.Time = t
		return nil
	}
	ms, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	f.Time = time.UnixMilli(int64(ms)).UTC()
	return nil
}

// Decode parses a persisted snapshot. Missing optional fields are tolerated,
// similarities are clamped to [0,1], unknown categories become new and
// records without content are dropped. Records are returned newest first.
func Decode(data []byte) ([]model.Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var raw []wire
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, goerr.Wrap(err, "decode records", goerr.V("bytes", len(data)))
	}

	out := make([]model.Record, 0, len(raw))
	for _, w := range raw {
		if w.Content == "" {
			continue
		}
		rec := model.Record{
			ID:                w.ID,
			Content:           w.Content,
			Timestamp:         w.Timestamp.Time,
			Category:          model.Category(w.Category),
			Similarity:        clampPtr(w.Similarity),
			SimilarityDetails: make([]model.SimilarityDetail, 0, len(w.SimilarityDetails)),
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if !rec.Category.Valid() {
			rec.Category = model.CategoryNew
		}
		rec.IsRepeated = rec.Category != model.CategoryNew
		for _, d := range w.SimilarityDetails {
			mt := model.MatchType(d.MatchType)
			switch mt {
			case model.MatchExact, model.MatchSemantic, model.MatchLow:
			default:
				mt = model.MatchLow
			}
			rec.SimilarityDetails = append(rec.SimilarityDetails, model.SimilarityDetail{
				TargetContent: d.TargetContent,
				Similarity:    clampPtr(d.Similarity),
				MatchType:     mt,
				Timestamp:     d.Timestamp.Time,
				ID:            d.ID,
			})
		}
		sort.SliceStable(rec.SimilarityDetails, func(i, j int) bool {
			return rec.SimilarityDetails[i].Similarity > rec.SimilarityDetails[j].Similarity
		})
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func clampPtr(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || *v < 0 {
		return 0
	}
	if *v > 1 {
		return 1
	}
	return *v
}
