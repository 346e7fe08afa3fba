package search

import (
	"sort"
	"strings"
)

// Record is anything the ranking can look at. Empty fields never score.
type Record interface {
	SearchText() (title, description, body string)
}

// Field weights. The first value applies when the whole query is a substring
// of the field, the second when only some query token is.
var (
	titleWeight       = weight{full: 1.0, token: 0.5}
	descriptionWeight = weight{full: 0.8, token: 0.3}
	bodyWeight        = weight{full: 0.6, token: 0.2}
)

// MaxScore is the score of a record matching the full query in every field.
const MaxScore = 2.4

type weight struct {
	full  float64
	token float64
}

// Query is a normalized search query.
type Query struct {
	text   string
	tokens []string
}

// NewQuery lower-cases q and splits it on whitespace.
func NewQuery(q string) Query {
	text := strings.ToLower(strings.TrimSpace(q))
	return Query{text: text, tokens: strings.Fields(text)}
}

// Empty reports whether the query has no tokens.
func (q Query) Empty() bool {
	return len(q.tokens) == 0
}

// Text returns the normalized query string.
func (q Query) Text() string {
	return q.text
}

// Tokens returns the whitespace delimited tokens of the query.
func (q Query) Tokens() []string {
	return q.tokens
}

func (q Query) fieldScore(field string, w weight) float64 {
	if field == "" {
		return 0
	}
	field = strings.ToLower(field)
	if strings.Contains(field, q.text) {
		return w.full
	}
	for _, token := range q.tokens {
		if strings.Contains(field, token) {
			return w.token
		}
	}
	return 0
}

// Score sums the per field scores of r against q.
func Score(q Query, r Record) float64 {
	if q.Empty() {
		return 0
	}
	title, description, body := r.SearchText()
	return q.fieldScore(title, titleWeight) +
		q.fieldScore(description, descriptionWeight) +
		q.fieldScore(body, bodyWeight)
}

// Scored pairs a record with its score.
type Scored[T Record] struct {
	Record T
	Score  float64
}

// Rank scores records, drops the ones that do not match and sorts the rest by
// descending score. Ties keep their input order. A positive limit truncates
// the sorted result.
func Rank[T Record](q Query, records []T, limit int) []Scored[T] {
	scored := make([]Scored[T], 0, len(records))
	for _, r := range records {
		if s := Score(q, r); s > 0 {
			scored = append(scored, Scored[T]{Record: r, Score: s})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
