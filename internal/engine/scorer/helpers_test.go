package scorer

import "github.com/crimson-sun/repeatwatch/internal/engine/vocab"

func vocabFor(s *Scorer, corpus []string) *vocab.Index {
	return vocab.Build(corpus, s.Tokenizer())
}
