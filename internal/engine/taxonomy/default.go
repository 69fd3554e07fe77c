package taxonomy

import "github.com/crimson-sun/repeatwatch/internal/model"

// Category names, in feature-vector order.
const (
	Emotion  = "emotion"
	Time     = "time"
	Person   = "person"
	Memory   = "memory"
	Daily    = "daily"
	Question = "question"
)

// Names lists the category names in the order their counts appear in the
// semantic feature vector.
var Names = []string{Emotion, Time, Person, Memory, Daily, Question}

// DefaultCategories returns the built-in Japanese keyword vocabulary.
func DefaultCategories() []model.KeywordCategory {
	return []model.KeywordCategory{
		{Name: Emotion, Words: []string{"嬉しい", "悲しい", "怒り", "不安", "楽しい", "寂しい", "心配"}},
		{Name: Time, Words: []string{"昔", "今", "昨日", "明日", "若い頃", "最近", "前に", "いつ"}},
		{Name: Person, Words: []string{"母", "父", "夫", "妻", "子供", "友達", "家族", "先生"}},
		{Name: Memory, Words: []string{"覚えて", "忘れ", "思い出", "記憶", "知って", "わからない"}},
		{Name: Daily, Words: []string{"食事", "薬", "病院", "家", "外出", "買い物", "テレビ"}},
		{Name: Question, Words: []string{"どこ", "いつ", "だれ", "なに", "どう", "なぜ"}},
	}
}
