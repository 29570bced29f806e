package database

import (
	"strconv"
	"strings"
)

// Where accumulates AND-ed predicates with positional ($n) arguments. Each
// repository turns its typed filter into calls on a Where.
type Where struct {
	clauses []string
	args    []any
}

// Arg registers v and returns its placeholder.
func (w *Where) Arg(v any) string {
	w.args = append(w.args, v)
	return "$" + strconv.Itoa(len(w.args))
}

// Raw adds a predicate that takes no arguments, e.g. "deleted_at IS NULL".
func (w *Where) Raw(clause string) *Where {
	w.clauses = append(w.clauses, clause)
	return w
}

func (w *Where) Eq(column string, v any) *Where {
	w.clauses = append(w.clauses, column+" = "+w.Arg(v))
	return w
}

// Contains is a case-insensitive substring match.
func (w *Where) Contains(column, s string) *Where {
	w.clauses = append(w.clauses, column+" ILIKE '%' || "+w.Arg(escapeLike(s))+" || '%'")
	return w
}

func (w *Where) Gte(column string, v any) *Where {
	w.clauses = append(w.clauses, column+" >= "+w.Arg(v))
	return w
}

func (w *Where) Lte(column string, v any) *Where {
	w.clauses = append(w.clauses, column+" <= "+w.Arg(v))
	return w
}

func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func (w *Where) Args() []any {
	return w.args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
