package sqlite

import (
	"database/sql/driver"
	"strings"

	msqlite "modernc.org/sqlite"
)

// foldFunc lowercases text with full Unicode case mapping. The built-in
// LOWER only folds ASCII.
const foldFunc = "unicode_lower"

func init() {
	if err := msqlite.RegisterDeterministicScalarFunction(foldFunc, 1, fold); err != nil {
		panic(err)
	}
}

func fold(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// foldLike is a case-folded LIKE condition over column.
func foldLike(column string) string {
	return foldFunc + "(" + column + ") LIKE " + placeholder(0) + ` ESCAPE '\'`
}
