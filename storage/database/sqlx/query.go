// Package sqlxrepos implements the repositories on postgres through sqlx.
package sqlxrepos

import (
	"strings"

	"github.com/lib/pq"

	"github.com/libreta/backend/core"
)

const uniqueViolation = "23505"

// displayNameExpr renders a student's name in SQL the way student.Student.DisplayName does.
const displayNameExpr = "(TRIM(paternal_surname || ' ' || maternal_surname)" +
	" || CASE WHEN given_names = '' THEN '' ELSE ', ' || given_names END)"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern matches s anywhere in a LIKE/ILIKE operand, with its wildcards taken literally.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

// conditions accumulates AND-ed WHERE clauses written with "?" bindvars.
type conditions struct {
	clauses []string
	args    []interface{}
}

func (c *conditions) add(clause string, args ...interface{}) {
	c.clauses = append(c.clauses, "("+clause+")")
	c.args = append(c.args, args...)
}

func (c *conditions) String() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// orderBy renders an ORDER BY clause for the orderings on known columns, falling back to
// fallback when none apply.
func orderBy(ordering []core.DBOrdering, columns map[string]bool, fallback string) string {
	list := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if columns[ord.Field] {
			list = append(list, ord.String())
		}
	}
	if len(list) == 0 {
		return " ORDER BY " + fallback
	}
	return " ORDER BY " + strings.Join(list, ", ") + ", " + fallback
}
