package postgres

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/stratadb/strata/internal/entity"
	"github.com/stratadb/strata/internal/port"
	"github.com/stratadb/strata/internal/predicate"
)

// compileWhere renders a predicate as a SQL fragment with $n placeholders,
// numbered from start. Grouping and precedence come straight from the clause
// markers, same as the sqlite compiler.
func compileWhere(p *predicate.Predicate, start int) (string, []any, error) {
	if p.Len() == 0 {
		return "", nil, nil
	}
	if err := p.Validate(); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	var args []any
	n := start
	place := func(v any) string {
		args = append(args, v)
		s := fmt.Sprintf("$%d", n)
		n++
		return s
	}

	for i, c := range p.Clauses() {
		if i > 0 {
			b.WriteString(" " + string(c.Conj) + " ")
		}
		b.WriteString(strings.Repeat("(", c.Open))

		col, err := columnExpr(c.Field, c.Value)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(col)

		switch {
		case c.Op == predicate.OpIsNull || c.Op == predicate.OpIsNotNull:
			b.WriteString(" " + string(c.Op))

		case c.Op == predicate.OpBetween:
			b.WriteString(" BETWEEN " + place(c.Value) + " AND " + place(c.Value2))

		case c.Op == predicate.OpIn:
			vals := expandIn(c.Value)
			if len(vals) == 0 {
				b.WriteString(" IN (NULL)")
				break
			}
			holes := make([]string, len(vals))
			for j, v := range vals {
				holes[j] = place(v)
			}
			b.WriteString(" IN (" + strings.Join(holes, ",") + ")")

		default:
			b.WriteString(" " + string(c.Op) + " " + place(c.Value))
		}

		b.WriteString(strings.Repeat(")", c.Close))
	}
	return b.String(), args, nil
}

// compileOrderBy renders the ORDER BY list with the RID tiebreaker.
func compileOrderBy(orderBy []port.Ordering) (string, error) {
	var parts []string
	for _, o := range orderBy {
		col, err := columnExpr(o.Field, nil)
		if err != nil {
			return "", err
		}
		// Postgres defaults to NULLS FIRST on DESC and NULLS LAST on ASC;
		// the port contract is the opposite on both.
		dir := "ASC NULLS FIRST"
		if o.Desc {
			dir = "DESC NULLS LAST"
		}
		parts = append(parts, col+" "+dir)
	}
	parts = append(parts, "rid ASC")
	return strings.Join(parts, ", "), nil
}

// columnExpr maps a field to a SQL expression. System fields are columns;
// attributes extract from the attrs JSONB, cast to the comparison value's
// type so numbers and timestamps compare by value rather than as text.
func columnExpr(field string, value any) (string, error) {
	if !validIdent(field) {
		return "", fmt.Errorf("postgres: invalid field name %q", field)
	}
	if entity.IsSystemField(field) {
		return field, nil
	}
	expr := fmt.Sprintf("attrs->>'%s'", field)
	if cast := valueCast(value); cast != "" {
		expr = "(" + expr + ")" + cast
	}
	return expr, nil
}

// valueCast picks the cast for an attribute comparison value.
func valueCast(v any) string {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return "::numeric"
	case bool:
		return "::boolean"
	case time.Time:
		return "::timestamptz"
	default:
		return ""
	}
}

func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}

// expandIn flattens the value of an IN clause into its members.
func expandIn(v any) []any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
