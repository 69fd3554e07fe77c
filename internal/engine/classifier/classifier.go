// Package classifier assigns a repetition category to a new utterance by
// comparing it against the records in the retention window.
package classifier

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/repeatwatch/internal/engine/scorer"
	"github.com/crimson-sun/repeatwatch/internal/engine/vocab"
	"github.com/crimson-sun/repeatwatch/internal/model"
)

// Rules are the match counts that decide a category.
type Rules struct {
	ExactMatches       int     // exact matches needed for frequent
	FrequentSemantic   int     // semantic matches needed for frequent
	OccasionalSemantic int     // semantic matches needed for occasional
	FirstPlaceholder   float64 // similarity reported when the window is empty
}

// DefaultRules returns the standard classification rules.
func DefaultRules() Rules {
	return Rules{
		ExactMatches:       1,
		FrequentSemantic:   2,
		OccasionalSemantic: 1,
		FirstPlaceholder:   0.1,
	}
}

// Classifier builds records from cleaned utterance text.
type Classifier struct {
	scorer *scorer.Scorer
	rules  Rules
	newID  func() string
}

// New creates a Classifier with the given scorer and rules.
func New(sc *scorer.Scorer, rules Rules) *Classifier {
	return &Classifier{scorer: sc, rules: rules, newID: newRecordID}
}

// Rules returns the classification rules.
func (c *Classifier) Rules() Rules { return c.rules }

// Scorer returns the pairwise scorer.
func (c *Classifier) Scorer() *scorer.Scorer { return c.scorer }

// Classify compares content with every record of window and returns the
// new record. The vocabulary is built once over the window plus content.
// Details are sorted by descending similarity, ties keeping window order.
func (c *Classifier) Classify(content string, window []model.Record, now time.Time) model.Record {
	rec := model.Record{
		ID:                c.newID(),
		Content:           content,
		Timestamp:         now,
		Category:          model.CategoryNew,
		SimilarityDetails: []model.SimilarityDetail{},
	}
	if len(window) == 0 {
		rec.Similarity = scorer.Clamp(c.rules.FirstPlaceholder)
		return rec
	}

	corpus := make([]string, 0, len(window)+1)
	for _, r := range window {
		corpus = append(corpus, r.Content)
	}
	corpus = append(corpus, content)
	idx := vocab.Build(corpus, c.scorer.Tokenizer())

	var exact, semantic int
	var best float64
	details := make([]model.SimilarityDetail, 0, len(window))
	for _, r := range window {
		sim := c.scorer.Compare(content, r.Content, idx).Score
		mt := c.scorer.Tag(sim)
		switch mt {
		case model.MatchExact:
			exact++
		case model.MatchSemantic:
			semantic++
		}
		if sim > best {
			best = sim
		}
		details = append(details, model.SimilarityDetail{
			TargetContent: r.Content,
			Similarity:    sim,
			MatchType:     mt,
			Timestamp:     r.Timestamp,
			ID:            r.ID,
		})
	}
	sort.SliceStable(details, func(i, j int) bool {
		return details[i].Similarity > details[j].Similarity
	})

	rec.Category = c.categorize(exact, semantic)
	rec.IsRepeated = rec.Category != model.CategoryNew
	rec.Similarity = best
	rec.SimilarityDetails = details
	return rec
}

func (c *Classifier) categorize(exact, semantic int) model.Category {
	switch {
	case exact >= c.rules.ExactMatches && c.rules.ExactMatches > 0:
		return model.CategoryFrequent
	case semantic >= c.rules.FrequentSemantic && c.rules.FrequentSemantic > 0:
		return model.CategoryFrequent
	case semantic >= c.rules.OccasionalSemantic && c.rules.OccasionalSemantic > 0:
		return model.CategoryOccasional
	}
	return model.CategoryNew
}

func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
