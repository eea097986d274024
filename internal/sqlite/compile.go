package sqlite

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/stratadb/strata/internal/entity"
	"github.com/stratadb/strata/internal/port"
	"github.com/stratadb/strata/internal/predicate"
)

// compileWhere renders a predicate as a SQL fragment with ? placeholders.
// Clauses are emitted in insertion order; grouping comes straight from the
// Open/Close markers, so SQL's native AND-over-OR precedence applies exactly
// as the in-memory evaluator does. Returns an empty fragment for a nil or
// empty predicate.
func compileWhere(p *predicate.Predicate) (string, []any, error) {
	if p.Len() == 0 {
		return "", nil, nil
	}
	if err := p.Validate(); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	var args []any
	for i, c := range p.Clauses() {
		if i > 0 {
			b.WriteString(" " + string(c.Conj) + " ")
		}
		b.WriteString(strings.Repeat("(", c.Open))

		col, err := columnExpr(c.Field)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(col)

		switch {
		case c.Op == predicate.OpIsNull || c.Op == predicate.OpIsNotNull:
			b.WriteString(" " + string(c.Op))

		case c.Op == predicate.OpBetween:
			b.WriteString(" BETWEEN ? AND ?")
			args = append(args, bindValue(c.Value), bindValue(c.Value2))

		case c.Op == predicate.OpIn:
			vals := expandIn(c.Value)
			if len(vals) == 0 {
				// An empty IN list matches nothing; render a constant false
				// instead of invalid SQL.
				b.WriteString(" IN (NULL)")
				break
			}
			b.WriteString(" IN (" + strings.TrimSuffix(strings.Repeat("?,", len(vals)), ",") + ")")
			for _, v := range vals {
				args = append(args, bindValue(v))
			}

		default:
			b.WriteString(" " + string(c.Op) + " ?")
			args = append(args, bindValue(c.Value))
		}

		b.WriteString(strings.Repeat(")", c.Close))
	}
	return b.String(), args, nil
}

// compileOrderBy renders the ORDER BY expression list, always ending with
// the ascending RID tiebreaker the port contract requires.
func compileOrderBy(orderBy []port.Ordering) (string, error) {
	var parts []string
	for _, o := range orderBy {
		col, err := columnExpr(o.Field)
		if err != nil {
			return "", err
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	parts = append(parts, "rid ASC")
	return strings.Join(parts, ", "), nil
}

// columnExpr maps a predicate field to a SQL expression: system fields are
// columns, everything else reaches into the attrs JSON. Field names are
// interpolated into SQL text, so anything beyond identifier characters is
// rejected.
func columnExpr(field string) (string, error) {
	if !validIdent(field) {
		return "", fmt.Errorf("sqlite: invalid field name %q", field)
	}
	if entity.IsSystemField(field) {
		return field, nil
	}
	return fmt.Sprintf("json_extract(attrs, '$.%s')", field), nil
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

// timeLayout is fixed-width UTC RFC 3339 with nanoseconds. Stored as TEXT,
// timestamps compare lexicographically, which only works when every value
// has the same width; RFC3339Nano's trimmed fractions would break that.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// bindValue converts predicate values to their stored representation.
// Timestamps persist as fixed-width RFC 3339 text, so they must compare as
// text too.
func bindValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(timeLayout)
	}
	return v
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
