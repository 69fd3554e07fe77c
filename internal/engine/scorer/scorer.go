// Package scorer computes the pairwise similarity between two utterances.
package scorer

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/crimson-sun/repeatwatch/internal/engine/tokenizer"
	"github.com/crimson-sun/repeatwatch/internal/engine/vocab"
	"github.com/crimson-sun/repeatwatch/internal/model"
)

// FeatureDims is the length of the semantic feature vector. Only the first
// nine dimensions are populated.
const FeatureDims = 20

// Path names the rule that decided a score.
type Path string

const (
	PathNone        Path = "none" // one side had no comparable content
	PathExact       Path = "exact"
	PathContainment Path = "containment"
	PathHybrid      Path = "hybrid"
)

// Config holds the scoring weights and bands.
type Config struct {
	TFIDFWeight    float64 // weight of the lexical cosine in the hybrid score
	SemanticWeight float64 // weight of the feature cosine in the hybrid score
	ContainmentMin float64 // minimum shorter/longer ratio for a containment match
	ExactBand      float64 // scores at or above are tagged exact
	SemanticBand   float64 // scores at or above are tagged semantic
}

// DefaultConfig returns the standard weights and bands.
func DefaultConfig() Config {
	return Config{
		TFIDFWeight:    0.4,
		SemanticWeight: 0.6,
		ContainmentMin: 0.8,
		ExactBand:      0.9,
		SemanticBand:   0.7,
	}
}

// Breakdown is a score together with the rule and component values behind it.
// TFIDF and Semantic are only set on the hybrid path.
type Breakdown struct {
	Score    float64 `json:"score"`
	Path     Path    `json:"path"`
	TFIDF    float64 `json:"tfidf"`
	Semantic float64 `json:"semantic"`
}

// Scorer compares utterances. It is stateless and safe for concurrent use.
type Scorer struct {
	cfg Config
	tok *tokenizer.Tokenizer
}

// New creates a Scorer. A nil tokenizer selects the default one.
func New(tok *tokenizer.Tokenizer, cfg Config) *Scorer {
	if tok == nil {
		tok = tokenizer.New(nil, tokenizer.Options{})
	}
	return &Scorer{cfg: cfg, tok: tok}
}

// Config returns the scorer configuration.
func (s *Scorer) Config() Config { return s.cfg }

// Tokenizer returns the tokenizer used for comparisons.
func (s *Scorer) Tokenizer() *tokenizer.Tokenizer { return s.tok }

// Score returns the similarity of a and b in [0,1], with IDF weights drawn
// from corpus.
func (s *Scorer) Score(a, b string, corpus []string) float64 {
	return s.Compare(a, b, vocab.Build(corpus, s.tok)).Score
}

// Compare scores a against b using a prebuilt vocabulary. The first
// decisive rule wins: exact compact match, containment, then the weighted
// hybrid of TF-IDF and feature cosines.
func (s *Scorer) Compare(a, b string, idx *vocab.Index) Breakdown {
	ca, cb := tokenizer.Compact(a), tokenizer.Compact(b)
	if ca == "" || cb == "" {
		return Breakdown{Path: PathNone}
	}
	if ca == cb {
		return Breakdown{Score: 1, Path: PathExact}
	}

	la, lb := utf8.RuneCountInString(ca), utf8.RuneCountInString(cb)
	shorter, longer := ca, cb
	ls, ll := la, lb
	if la > lb {
		shorter, longer = cb, ca
		ls, ll = lb, la
	}
	if strings.Contains(longer, shorter) {
		if ratio := float64(ls) / float64(ll); ratio >= s.cfg.ContainmentMin {
			return Breakdown{Score: Clamp(ratio), Path: PathContainment}
		}
	}

	ta, tb := s.tok.Tokenize(a), s.tok.Tokenize(b)
	tf := Cosine(idx.Vector(ta), idx.Vector(tb))
	sem := Cosine(s.Features(ta, ca), s.Features(tb, cb))
	return Breakdown{
		Score:    Clamp(s.cfg.TFIDFWeight*tf + s.cfg.SemanticWeight*sem),
		Path:     PathHybrid,
		TFIDF:    tf,
		Semantic: sem,
	}
}

// Features builds the semantic feature vector of a tokenized text:
// per-category keyword token counts, a token-count ratio, a repetition ratio
// and a length ratio.
func (s *Scorer) Features(tokens []string, compact string) []float64 {
	f := make([]float64, FeatureDims)
	if len(tokens) == 0 {
		return f
	}
	tax := s.tok.Taxonomy()
	ncat := min(tax.Len(), 6)

	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[t]++
		for i, hit := range tax.Matches(t) {
			if hit && i < ncat {
				f[i]++
			}
		}
	}
	var repeated int
	for _, c := range freq {
		if c > 1 {
			repeated++
		}
	}

	n := float64(len(tokens))
	f[6] = math.Min(n/10, 1)
	f[7] = float64(repeated) / n
	f[8] = math.Min(float64(utf8.RuneCountInString(compact))/50, 1)
	return f
}

// Tag maps a score to its match band.
func (s *Scorer) Tag(score float64) model.MatchType {
	switch {
	case score >= s.cfg.ExactBand:
		return model.MatchExact
	case score >= s.cfg.SemanticBand:
		return model.MatchSemantic
	default:
		return model.MatchLow
	}
}

// Cosine returns the cosine similarity of a and b clamped to [0,1]. It is 0
// for mismatched lengths, empty vectors, zero norms and non-finite results.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return Clamp(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Clamp bounds v to [0,1], mapping NaN to 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
