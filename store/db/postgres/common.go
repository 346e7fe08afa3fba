package postgres

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/ispkb/store"
)

// uniqueViolation is the SQLSTATE postgres reports for duplicate keys.
const uniqueViolation = "23505"

func placeholder(n int) string {
	return "$" + fmt.Sprint(n)
}

func placeholders(n int) string {
	list := []string{}
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

// likeAny ORs a LIKE condition for every column and keyword pair.
func likeAny(columns, keywords []string, args []any) (string, []any) {
	conditions := make([]string, 0, len(columns)*len(keywords))
	for _, keyword := range keywords {
		pattern := containsPattern(keyword)
		for _, column := range columns {
			args = append(args, pattern)
			conditions = append(conditions, "LOWER("+column+") LIKE "+placeholder(len(args))+` ESCAPE '\'`)
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

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

// wrapConflict maps unique constraint violations onto store.ErrConflict.
func wrapConflict(err error, msg string) error {
	if isUniqueViolation(err) {
		return errors.Wrap(store.ErrConflict, msg)
	}
	return errors.Wrap(err, msg)
}

type scanner interface {
	Scan(dest ...any) error
}
