package model

// KeywordCategory is a named group of domain keywords (emotion, time, ...).
type KeywordCategory struct {
	Name  string
	Words []string
}
