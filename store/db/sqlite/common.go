package sqlite

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/ispkb/store"
)

// placeholder returns a placeholder for SQLite (uses ?)
func placeholder(int) string {
	return "?"
}

// placeholders returns n placeholders for SQLite
func placeholders(n int) string {
	list := make([]string, 0, n)
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE operand matching s anywhere, case-folded.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// likeAny builds "(unicode_lower(c1) LIKE ? OR ...)" over every column and
// keyword pair, appending the operands to args.
func likeAny(columns, keywords []string, args []any) (string, []any) {
	conditions := make([]string, 0, len(columns)*len(keywords))
	for _, keyword := range keywords {
		pattern := containsPattern(keyword)
		for _, column := range columns {
			args = append(args, pattern)
			conditions = append(conditions, foldLike(column))
		}
	}
	return "(" + strings.Join(conditions, " OR ") + ")", args
}

func paginate(query string, p store.Pagination) string {
	if p.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *p.Limit)
		if p.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *p.Offset)
		}
	}
	return query
}

// wrapConflict maps unique constraint violations onto store.ErrConflict.
func wrapConflict(err error, msg string) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return errors.Wrap(store.ErrConflict, msg)
	}
	return errors.Wrap(err, msg)
}
