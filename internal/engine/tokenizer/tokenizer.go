// Package tokenizer turns utterance text into the multiset of comparable
// units used by the vocabulary and the scorer.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/crimson-sun/repeatwatch/internal/engine/taxonomy"
)

// Delimiters are the sentence-delimiting punctuation marks, full-width and ASCII.
const Delimiters = "、。，．！？,.!?"

// Options bounds the tokens produced for a single text.
type Options struct {
	MaxWordLen int // words longer than this (in runes) are dropped
	MinN       int // smallest character n-gram
	MaxN       int // largest character n-gram
	MaxNgrams  int // only the first MaxNgrams n-grams are kept
}

// DefaultOptions returns the standard token bounds.
func DefaultOptions() Options {
	return Options{MaxWordLen: 30, MinN: 2, MaxN: 5, MaxNgrams: 20}
}

// Tokenizer produces token multisets. It has no mutable state and is safe
// for concurrent use.
type Tokenizer struct {
	opts Options
	tax  *taxonomy.Taxonomy
}

// New creates a Tokenizer. A nil taxonomy selects the default keyword set;
// zero option fields take their defaults.
func New(tax *taxonomy.Taxonomy, opts Options) *Tokenizer {
	def := DefaultOptions()
	if opts.MaxWordLen <= 0 {
		opts.MaxWordLen = def.MaxWordLen
	}
	if opts.MinN <= 0 {
		opts.MinN = def.MinN
	}
	if opts.MaxN < opts.MinN {
		opts.MaxN = max(def.MaxN, opts.MinN)
	}
	if opts.MaxNgrams <= 0 {
		opts.MaxNgrams = def.MaxNgrams
	}
	if tax == nil {
		tax = taxonomy.Default()
	}
	return &Tokenizer{opts: opts, tax: tax}
}

// Taxonomy returns the keyword taxonomy used for keyword tokens.
func (t *Tokenizer) Taxonomy() *taxonomy.Taxonomy {
	return t.tax
}

// Tokenize returns, concatenated: the compact form, the clauses, the bounded
// whitespace words, the leading character n-grams and the keyword hits.
// Empty input yields nil.
func (t *Tokenizer) Tokenize(text string) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}
	compact := compactNormalized(normalized)

	tokens := make([]string, 0, 8+t.opts.MaxNgrams)
	if compact != "" {
		tokens = append(tokens, compact)
	}

	for _, clause := range strings.FieldsFunc(normalized, IsDelimiter) {
		if clause = strings.TrimSpace(clause); clause != "" {
			tokens = append(tokens, clause)
		}
	}

	for _, word := range strings.Fields(normalized) {
		if utf8.RuneCountInString(word) <= t.opts.MaxWordLen {
			tokens = append(tokens, word)
		}
	}

	tokens = append(tokens, t.ngrams(compact)...)
	tokens = append(tokens, t.tax.Hits(normalized)...)
	return tokens
}

// ngrams generates all n-grams for n = MinN..MaxN in order, stopping once
// MaxNgrams have been produced.
func (t *Tokenizer) ngrams(compact string) []string {
	runes := []rune(compact)
	var out []string
	for n := t.opts.MinN; n <= t.opts.MaxN && n <= len(runes); n++ {
		for i := 0; i+n <= len(runes); i++ {
			if len(out) >= t.opts.MaxNgrams {
				return out
			}
			out = append(out, string(runes[i:i+n]))
		}
	}
	return out
}

// Normalize applies NFKC width folding, trims and lowercases.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(text)))
}

// Compact returns the normalized text with delimiters and whitespace removed.
func Compact(text string) string {
	return compactNormalized(Normalize(text))
}

func compactNormalized(normalized string) string {
	return strings.Map(func(r rune) rune {
		if IsDelimiter(r) || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, normalized)
}

// IsDelimiter reports whether r is sentence-delimiting punctuation.
func IsDelimiter(r rune) bool {
	return strings.ContainsRune(Delimiters, r)
}
