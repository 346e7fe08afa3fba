package ai

import (
	"strings"
	"unicode/utf8"
)

// MaxKeywords caps the keywords extracted from one question.
const MaxKeywords = 10

// stopWords are filler words dropped before keyword lookup, in both languages
// the knowledge base is written in.
var stopWords = map[string]struct{}{
	"的": {}, "是": {}, "在": {}, "有": {}, "和": {}, "与": {}, "或": {}, "但": {}, "而": {},
	"如果": {}, "因为": {}, "所以": {}, "什么": {}, "怎么": {}, "如何": {},
	"the": {}, "is": {}, "are": {}, "and": {}, "or": {}, "but": {}, "what": {}, "how": {},
	"why": {}, "does": {}, "do": {}, "of": {}, "in": {}, "on": {}, "to": {}, "for": {}, "with": {},
}

// ExtractKeywords splits text on whitespace, drops stop words and
// single-character tokens, and keeps the first MaxKeywords in order.
// Trailing punctuation is trimmed so "AWB?" yields "awb".
func ExtractKeywords(text string) []string {
	keywords := []string{}
	seen := map[string]struct{}{}
	for _, word := range strings.Fields(text) {
		word = strings.ToLower(strings.Trim(word, ".,;:!?\"'()[]，。；：！？（）"))
		if utf8.RuneCountInString(word) <= 1 {
			continue
		}
		if _, ok := stopWords[word]; ok {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
		if len(keywords) == MaxKeywords {
			break
		}
	}
	return keywords
}

// Similarity is the Jaccard index of the lower-cased word sets of a and b.
func Similarity(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	union := len(wordsA)
	intersection := 0
	for w := range wordsB {
		if _, ok := wordsA[w]; ok {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}
