// Package vocab builds the term index and inverse document frequencies for a
// comparison batch.
package vocab

import (
	"math"

	"github.com/crimson-sun/repeatwatch/internal/engine/tokenizer"
)

// Index is the vocabulary of one corpus: every distinct token with a stable
// position and its IDF weight. It is read-only once built.
type Index struct {
	terms []string
	pos   map[string]int
	idf   []float64
	docs  int
}

// Build tokenizes every document of corpus and computes df and idf.
// Each document contributes its unique token set to document frequency.
func Build(corpus []string, tok *tokenizer.Tokenizer) *Index {
	idx := &Index{pos: make(map[string]int), docs: len(corpus)}
	var df []int
	for _, doc := range corpus {
		seen := make(map[string]bool)
		for _, term := range tok.Tokenize(doc) {
			if seen[term] {
				continue
			}
			seen[term] = true
			i, ok := idx.pos[term]
			if !ok {
				i = len(idx.terms)
				idx.pos[term] = i
				idx.terms = append(idx.terms, term)
				df = append(df, 0)
			}
			df[i]++
		}
	}

	idx.idf = make([]float64, len(idx.terms))
	if idx.docs == 0 {
		return idx
	}
	for i, n := range df {
		v := math.Log(float64(idx.docs) / float64(n))
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		idx.idf[i] = v
	}
	return idx
}

// Len returns the vocabulary size.
func (x *Index) Len() int { return len(x.terms) }

// Docs returns the number of documents the index was built from.
func (x *Index) Docs() int { return x.docs }

// Terms returns the vocabulary in insertion order.
func (x *Index) Terms() []string {
	return append([]string(nil), x.terms...)
}

// IDF returns the inverse document frequency of term, or 0 when the term is
// not in the vocabulary.
func (x *Index) IDF(term string) float64 {
	if i, ok := x.pos[term]; ok {
		return x.idf[i]
	}
	return 0
}

// Vector returns the dense TF-IDF vector of tokens over the vocabulary,
// with tf = count/len(tokens). Tokens outside the vocabulary are ignored.
func (x *Index) Vector(tokens []string) []float64 {
	vec := make([]float64, len(x.terms))
	if len(tokens) == 0 {
		return vec
	}
	counts := make(map[int]int)
	for _, t := range tokens {
		if i, ok := x.pos[t]; ok {
			counts[i]++
		}
	}
	n := float64(len(tokens))
	for i, c := range counts {
		vec[i] = float64(c) / n * x.idf[i]
	}
	return vec
}
