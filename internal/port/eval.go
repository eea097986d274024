package port

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/stratadb/strata/internal/entity"
	"github.com/stratadb/strata/internal/predicate"
)

// Eval applies a predicate to one state. Exported so scenario tooling can
// reuse the reference semantics; SQL ports compile the same clause list to
// their dialect instead.
//
// Conjunction precedence matches SQL: AND binds tighter than OR, and the
// Open/Close grouping markers override both.
func Eval(s *entity.State, pred *predicate.Predicate) (bool, error) {
	if pred == nil || pred.Len() == 0 {
		return true, nil
	}
	if err := pred.Validate(); err != nil {
		return false, err
	}

	// Each frame folds its clauses with SQL precedence: cur accumulates the
	// running AND-chain, orAcc the OR-joined chains before it.
	type frame struct {
		orAcc   bool
		cur     bool
		started bool
		conj    predicate.Conj // how the frame folds into its parent on close
	}
	combine := func(f *frame, v bool, conj predicate.Conj) {
		switch {
		case !f.started:
			f.cur = v
			f.started = true
		case conj == predicate.Or:
			f.orAcc = f.orAcc || f.cur
			f.cur = v
		default:
			f.cur = f.cur && v
		}
	}
	result := func(f *frame) bool {
		if !f.started {
			return true
		}
		return f.orAcc || f.cur
	}

	stack := []*frame{{}}
	for _, c := range pred.Clauses() {
		conj := c.Conj
		for i := 0; i < c.Open; i++ {
			// The clause's conjunction belongs to the outermost group it
			// opens; inner groups and the leaf start fresh.
			stack = append(stack, &frame{conj: conj})
			conj = predicate.And
		}

		v, err := evalClause(s, c)
		if err != nil {
			return false, err
		}
		combine(stack[len(stack)-1], v, conj)

		for i := 0; i < c.Close; i++ {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			combine(stack[len(stack)-1], result(top), top.conj)
		}
	}
	return result(stack[0]), nil
}

// evalClause evaluates one primitive comparison against a state.
func evalClause(s *entity.State, c predicate.Clause) (bool, error) {
	fv := fieldValue(s, c.Field)

	switch c.Op {
	case predicate.OpIsNull:
		return fv == nil, nil
	case predicate.OpIsNotNull:
		return fv != nil, nil
	}

	// SQL three-valued logic collapses to false on NULL operands.
	if fv == nil || c.Value == nil {
		return false, nil
	}

	switch c.Op {
	case predicate.OpEq:
		return compare(fv, c.Value) == 0, nil
	case predicate.OpNe:
		return compare(fv, c.Value) != 0, nil
	case predicate.OpGt:
		return compare(fv, c.Value) > 0, nil
	case predicate.OpGe:
		return compare(fv, c.Value) >= 0, nil
	case predicate.OpLt:
		return compare(fv, c.Value) < 0, nil
	case predicate.OpLe:
		return compare(fv, c.Value) <= 0, nil
	case predicate.OpBetween:
		if c.Value2 == nil {
			return false, nil
		}
		return compare(fv, c.Value) >= 0 && compare(fv, c.Value2) <= 0, nil
	case predicate.OpLike:
		pat, ok := c.Value.(string)
		str, ok2 := fv.(string)
		if !ok || !ok2 {
			return false, nil
		}
		return likeMatch(str, pat), nil
	case predicate.OpIn:
		for _, candidate := range inValues(c.Value) {
			if compare(fv, candidate) == 0 {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("eval: unsupported operator %q", c.Op)
	}
}

// fieldValue resolves a predicate field against a state. Unknown names fall
// through to the attribute map; a missing attribute is NULL, never an error.
func fieldValue(s *entity.State, name string) any {
	switch name {
	case entity.FieldRID:
		return s.RID
	case entity.FieldID:
		return s.ID
	case entity.FieldTenantID:
		return s.TenantID
	case entity.FieldCurrentFlag:
		return s.CurrentFlag
	case entity.FieldDeleteFlag:
		return s.DeleteFlag
	case entity.FieldActiveRangeStart:
		return s.ActiveRangeStart
	case entity.FieldActiveRangeEnd:
		if s.ActiveRangeEnd == nil {
			return nil
		}
		return *s.ActiveRangeEnd
	case entity.FieldEditingUserID:
		return s.EditingUserID
	case entity.FieldEditingSystemID:
		return s.EditingSystemID
	case entity.FieldOrder:
		return s.Order
	default:
		v, ok := s.Attrs[name]
		if !ok {
			return nil
		}
		return v
	}
}

// compare orders two scalar values. Mixed numeric widths compare as
// float64; times compare as instants; everything else by string or bool.
// Incomparable pairs order arbitrarily but deterministically (-1).
func compare(a, b any) int {
	if at, ok := asTime(a); ok {
		if bt, ok := asTime(b); ok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}
	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			default:
				return 1
			}
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs)
	}
	return -1
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func asTime(v any) (time.Time, bool) {
	t, ok := v.(time.Time)
	return t, ok
}

// inValues widens the supported IN list shapes to a []any.
func inValues(v any) []any {
	switch list := v.(type) {
	case []any:
		return list
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out
	case []int64:
		out := make([]any, len(list))
		for i, n := range list {
			out[i] = n
		}
		return out
	case []float64:
		out := make([]any, len(list))
		for i, n := range list {
			out[i] = n
		}
		return out
	default:
		return nil
	}
}

// likeMatch implements SQL LIKE: % matches any run, _ matches one rune.
func likeMatch(s, pattern string) bool {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile("(?s)" + b.String())
	if err != nil {
		return false
	}
	return re.MatchString(s)
}
