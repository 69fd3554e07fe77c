// Package dedup removes recognizer stutter from an utterance and suppresses
// the same utterance arriving twice in quick succession.
package dedup

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"

	"github.com/crimson-sun/repeatwatch/internal/engine/tokenizer"
)

// repeatRun matches a run of three or more characters repeated back to back.
// RE2 has no backreferences, hence regexp2.
var repeatRun = func() *regexp2.Regexp {
	re := regexp2.MustCompile(`(.{3,}?)\1+`, regexp2.None)
	re.MatchTimeout = 100 * time.Millisecond
	return re
}()

// minHalfRunes is the length a repeated word group must exceed to be collapsed.
const minHalfRunes = 2

// Collapse strips duplicated fragments from text. The rules are tried in
// order and the first one that changes the text wins; the result is fed
// back until nothing changes, so Collapse is idempotent.
//
//  1. every back-to-back repeated run of 3+ characters is reduced to one copy
//  2. when the first half of the words equals the second half, keep the first
//  3. when the first i words equal the next i words, keep the first i
func Collapse(text string) string {
	s := strings.TrimSpace(text)
	for {
		next := collapseOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func collapseOnce(s string) string {
	if s == "" {
		return s
	}
	// A timeout or engine error skips the rule.
	if out, err := repeatRun.Replace(s, "$1", -1, -1); err == nil && out != s {
		return strings.TrimSpace(out)
	}

	words := splitWords(s)
	n := len(words)
	if n < 2 {
		return s
	}

	half := n / 2
	if first := join(words[:half]); first == join(words[half:2*half]) && utf8.RuneCountInString(first) > minHalfRunes {
		return first
	}
	for i := 1; i <= half; i++ {
		if first := join(words[:i]); first == join(words[i:2*i]) && utf8.RuneCountInString(first) > minHalfRunes {
			return first
		}
	}
	return s
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return tokenizer.IsDelimiter(r) || unicode.IsSpace(r)
	})
}

func join(words []string) string {
	return strings.Join(words, " ")
}
