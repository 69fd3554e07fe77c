package repeatwatch

// KeywordCategory is one group of the keyword vocabulary behind the
// semantic similarity signal.
type KeywordCategory struct {
	Name  string   // emotion, time, person, memory, daily, question
	Words []string // normalized keywords
}

// Keywords returns the keyword vocabulary in use. This is read-only;
// configure it with WithKeywords.
func (d *Detector) Keywords() []KeywordCategory {
	cats := d.taxonomy.Categories()
	out := make([]KeywordCategory, len(cats))
	for i, c := range cats {
		out[i] = KeywordCategory{Name: c.Name, Words: append([]string(nil), c.Words...)}
	}
	return out
}
