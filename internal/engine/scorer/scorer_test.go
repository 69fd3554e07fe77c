package scorer

import (
	"math"
	"testing"

	"github.com/crimson-sun/repeatwatch/internal/model"
)

func newScorer() *Scorer {
	return New(nil, DefaultConfig())
}

var samples = []string{
	"こんにちは",
	"こんにちはね",
	"ありがとう",
	"母はどこにいるの",
	"お母さんはどこ？",
	"昨日は病院に行った",
	"今日は何曜日ですか",
	"hello world",
	"ＨＥＬＬＯ　ＷＯＲＬＤ",
}

func TestScoreSelfIsOne(t *testing.T) {
	s := newScorer()
	for _, text := range samples {
		if got := s.Score(text, text, []string{text}); got != 1 {
			t.Errorf("Score(%q, itself) = %v, want 1", text, got)
		}
	}
}

func TestScoreSymmetricAndBounded(t *testing.T) {
	s := newScorer()
	for _, a := range samples {
		for _, b := range samples {
			ab := s.Score(a, b, samples)
			ba := s.Score(b, a, samples)
			if ab != ba {
				t.Errorf("Score(%q,%q)=%v but Score(%q,%q)=%v", a, b, ab, b, a, ba)
			}
			if math.IsNaN(ab) || ab < 0 || ab > 1 {
				t.Errorf("Score(%q,%q)=%v out of [0,1]", a, b, ab)
			}
		}
	}
}

func TestScoreEmptyIsZero(t *testing.T) {
	s := newScorer()
	for _, pair := range [][2]string{{"", "abc"}, {"abc", ""}, {"", ""}, {"。、", "。、"}, {"   ", "abc"}} {
		if got := s.Score(pair[0], pair[1], pair[:]); got != 0 {
			t.Errorf("Score(%q,%q) = %v, want 0", pair[0], pair[1], got)
		}
	}
}

func TestCompareExactIgnoresPunctuationAndWidth(t *testing.T) {
	s := newScorer()
	b := s.Score("hello world", "ＨＥＬＬＯ　ＷＯＲＬＤ！", nil)
	if b != 1 {
		t.Fatalf("expected exact match across width and punctuation, got %v", b)
	}
}

func TestCompareContainment(t *testing.T) {
	s := newScorer()
	corpus := []string{"こんにちは", "こんにちはね"}
	got := s.Compare("こんにちは", "こんにちはね", vocabFor(s, corpus))
	if got.Path != PathContainment {
		t.Fatalf("expected containment path, got %s", got.Path)
	}
	if math.Abs(got.Score-5.0/6.0) > 1e-12 {
		t.Fatalf("expected ratio 5/6, got %v", got.Score)
	}
	if s.Tag(got.Score) != model.MatchSemantic {
		t.Fatalf("expected semantic tag, got %s", s.Tag(got.Score))
	}
}

func TestCompareContainmentBelowRatioFallsThrough(t *testing.T) {
	s := newScorer()
	corpus := []string{"こんにちは", "こんにちは皆さん"}
	got := s.Compare("こんにちは", "こんにちは皆さん", vocabFor(s, corpus))
	if got.Path != PathHybrid {
		t.Fatalf("5/8 containment should fall through to hybrid, got %s", got.Path)
	}
}

func TestCompareDisjointIsLow(t *testing.T) {
	s := newScorer()
	corpus := []string{"こんにちは", "ありがとう"}
	got := s.Compare("こんにちは", "ありがとう", vocabFor(s, corpus))
	if got.Path != PathHybrid {
		t.Fatalf("expected hybrid path, got %s", got.Path)
	}
	if got.TFIDF != 0 {
		t.Fatalf("disjoint texts should have zero lexical cosine, got %v", got.TFIDF)
	}
	if math.Abs(got.Score-0.6) > 1e-9 {
		t.Fatalf("expected feature-only score 0.6, got %v", got.Score)
	}
	if s.Tag(got.Score) != model.MatchLow {
		t.Fatalf("expected low tag, got %s", s.Tag(got.Score))
	}
}

func TestTagBands(t *testing.T) {
	s := newScorer()
	tests := []struct {
		score float64
		want  model.MatchType
	}{
		{1, model.MatchExact},
		{0.9, model.MatchExact},
		{0.89, model.MatchSemantic},
		{0.7, model.MatchSemantic},
		{0.69, model.MatchLow},
		{0, model.MatchLow},
	}
	for _, tt := range tests {
		if got := s.Tag(tt.score); got != tt.want {
			t.Errorf("Tag(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestFeatures(t *testing.T) {
	s := newScorer()
	tok := s.Tokenizer()
	tokens := tok.Tokenize("母はどこ")
	f := s.Features(tokens, "母はどこ")
	if len(f) != FeatureDims {
		t.Fatalf("expected %d dims, got %d", FeatureDims, len(f))
	}
	if f[2] == 0 {
		t.Error("expected person feature to be set")
	}
	if f[5] == 0 {
		t.Error("expected question feature to be set")
	}
	if f[0] != 0 || f[1] != 0 {
		t.Errorf("unexpected emotion/time features: %v", f[:2])
	}
	if math.Abs(f[8]-4.0/50.0) > 1e-12 {
		t.Errorf("length feature = %v, want %v", f[8], 4.0/50.0)
	}
	for i := 9; i < FeatureDims; i++ {
		if f[i] != 0 {
			t.Fatalf("dimension %d should be unused, got %v", i, f[i])
		}
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite clamps to zero", []float64{1, 0}, []float64{-1, 0}, 0},
		{"zero norm", []float64{0, 0}, []float64{1, 1}, 0},
		{"length mismatch", []float64{1}, []float64{1, 1}, 0},
		{"empty", nil, nil, 0},
		{"nan", []float64{math.NaN(), 1}, []float64{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Cosine = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	if Clamp(math.NaN()) != 0 || Clamp(-1) != 0 || Clamp(2) != 1 || Clamp(0.5) != 0.5 {
		t.Fatal("Clamp out of contract")
	}
	if Clamp(math.Inf(1)) != 1 || Clamp(math.Inf(-1)) != 0 {
		t.Fatal("Clamp should bound infinities")
	}
}
