package taxonomy

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/crimson-sun/repeatwatch/internal/model"
)

// Taxonomy holds the keyword categories used for keyword tokens and the
// semantic feature vector. It is immutable after construction.
type Taxonomy struct {
	categories []model.KeywordCategory
	keywords   []string // flattened, first occurrence wins
}

// Default returns a Taxonomy over DefaultCategories.
func Default() *Taxonomy {
	t, _ := New(nil)
	return t
}

// New builds a Taxonomy. Categories present in overrides replace the default
// word list for that category; absent categories keep their defaults.
func New(overrides map[string][]string) (*Taxonomy, error) {
	known := make(map[string]bool, len(Names))
	for _, n := range Names {
		known[n] = true
	}
	for name := range overrides {
		if !known[name] {
			return nil, goerr.New("unknown keyword category", goerr.V("category", name))
		}
	}

	cats := DefaultCategories()
	for i, c := range cats {
		if words, ok := overrides[c.Name]; ok {
			cats[i].Words = normalizeWords(words)
		}
	}

	t := &Taxonomy{categories: cats}
	seen := make(map[string]bool)
	for _, c := range cats {
		for _, w := range c.Words {
			if !seen[w] {
				seen[w] = true
				t.keywords = append(t.keywords, w)
			}
		}
	}
	return t, nil
}

// Categories returns a copy of the keyword categories in feature order.
func (t *Taxonomy) Categories() []model.KeywordCategory {
	out := make([]model.KeywordCategory, len(t.categories))
	for i, c := range t.categories {
		out[i] = model.KeywordCategory{Name: c.Name, Words: append([]string(nil), c.Words...)}
	}
	return out
}

// Len returns the number of categories.
func (t *Taxonomy) Len() int {
	return len(t.categories)
}

// Hits returns every keyword that occurs as a substring of the normalized
// text, each keyword at most once.
func (t *Taxonomy) Hits(normalized string) []string {
	if normalized == "" {
		return nil
	}
	var hits []string
	for _, kw := range t.keywords {
		if strings.Contains(normalized, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}

// Matches reports, per category index, whether token contains any keyword
// of that category.
func (t *Taxonomy) Matches(token string) []bool {
	out := make([]bool, len(t.categories))
	for i, c := range t.categories {
		for _, w := range c.Words {
			if strings.Contains(token, w) {
				out[i] = true
				break
			}
		}
	}
	return out
}

func normalizeWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
