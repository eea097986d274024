package predicate

import (
	"fmt"
	"strings"
)

// Op is a clause comparison operator.
type Op string

const (
	OpEq        Op = "="
	OpNe        Op = "<>"
	OpGt        Op = ">"
	OpGe        Op = ">="
	OpLt        Op = "<"
	OpLe        Op = "<="
	OpBetween   Op = "BETWEEN"
	OpLike      Op = "LIKE"
	OpIn        Op = "IN"
	OpIsNull    Op = "IS NULL"
	OpIsNotNull Op = "IS NOT NULL"
)

// Conj joins a clause to the one before it.
type Conj string

const (
	And Conj = "AND"
	Or  Conj = "OR"
)

// Clause is one primitive field comparison.
//
// Value2 is only meaningful for OpBetween. Open counts parenthesized groups
// opened immediately before the clause; Close counts groups closed
// immediately after it. Conj is ignored on the first clause of a predicate.
type Clause struct {
	Field  string
	Op     Op
	Value  any
	Value2 any
	Conj   Conj
	Open   int
	Close  int
}

// unary reports whether the operator takes no value.
func (c Clause) unary() bool {
	return c.Op == OpIsNull || c.Op == OpIsNotNull
}

// Predicate is an ordered, composable list of clauses.
//
// The zero value is unusable; construct with New. Builder methods return the
// receiver for chaining and never reorder clauses.
type Predicate struct {
	clauses     []Clause
	pendingOpen int
}

// New returns an empty predicate.
func New() *Predicate {
	return &Predicate{}
}

// Append adds a fully specified clause. Pending group-open markers from
// OpenGroup are folded into the clause.
func (p *Predicate) Append(c Clause) *Predicate {
	if c.Conj == "" {
		c.Conj = And
	}
	c.Open += p.pendingOpen
	p.pendingOpen = 0
	p.clauses = append(p.clauses, c)
	return p
}

// Where appends an AND-joined comparison clause.
func (p *Predicate) Where(field string, op Op, value any) *Predicate {
	return p.Append(Clause{Field: field, Op: op, Value: value})
}

// OrWhere appends an OR-joined comparison clause.
func (p *Predicate) OrWhere(field string, op Op, value any) *Predicate {
	return p.Append(Clause{Field: field, Op: op, Value: value, Conj: Or})
}

// WhereBetween appends an AND-joined BETWEEN clause with two bounds.
func (p *Predicate) WhereBetween(field string, lo, hi any) *Predicate {
	return p.Append(Clause{Field: field, Op: OpBetween, Value: lo, Value2: hi})
}

// WhereNull appends an AND-joined IS NULL clause.
func (p *Predicate) WhereNull(field string) *Predicate {
	return p.Append(Clause{Field: field, Op: OpIsNull})
}

// OrWhereNull appends an OR-joined IS NULL clause.
func (p *Predicate) OrWhereNull(field string) *Predicate {
	return p.Append(Clause{Field: field, Op: OpIsNull, Conj: Or})
}

// OpenGroup opens a parenthesized group before the next appended clause.
func (p *Predicate) OpenGroup() *Predicate {
	p.pendingOpen++
	return p
}

// CloseGroup closes a parenthesized group after the last appended clause.
// Calling it with no clauses appended yet is a validation error surfaced by
// Validate, not a panic.
func (p *Predicate) CloseGroup() *Predicate {
	if n := len(p.clauses); n > 0 {
		p.clauses[n-1].Close++
	} else {
		// Record the imbalance so Validate reports it.
		p.pendingOpen--
	}
	return p
}

// AndGroup appends every clause of q as a single parenthesized group joined
// with AND. An empty q is a no-op.
func (p *Predicate) AndGroup(q *Predicate) *Predicate {
	return p.appendGroup(q, And)
}

// OrGroup appends every clause of q as a single parenthesized group joined
// with OR. An empty q is a no-op.
func (p *Predicate) OrGroup(q *Predicate) *Predicate {
	return p.appendGroup(q, Or)
}

func (p *Predicate) appendGroup(q *Predicate, conj Conj) *Predicate {
	if q == nil || len(q.clauses) == 0 {
		return p
	}
	for i, c := range q.clauses {
		if i == 0 {
			c.Conj = conj
			c.Open++
		}
		if i == len(q.clauses)-1 {
			c.Close++
		}
		p.Append(c)
	}
	return p
}

// Clauses returns the clause list in insertion order. The returned slice is
// a copy; mutating it does not affect the predicate.
func (p *Predicate) Clauses() []Clause {
	out := make([]Clause, len(p.clauses))
	copy(out, p.clauses)
	return out
}

// Len returns the number of clauses.
func (p *Predicate) Len() int {
	if p == nil {
		return 0
	}
	return len(p.clauses)
}

// Validate checks structural soundness: grouping markers must be balanced
// and never close below depth zero, BETWEEN clauses need both bounds, and
// unary operators must not carry values.
func (p *Predicate) Validate() error {
	if p.pendingOpen != 0 {
		return fmt.Errorf("predicate: %d unmatched group marker(s)", p.pendingOpen)
	}
	depth := 0
	for i, c := range p.clauses {
		if c.Field == "" {
			return fmt.Errorf("predicate: clause %d has no field", i)
		}
		if c.Op == OpBetween && (c.Value == nil || c.Value2 == nil) {
			return fmt.Errorf("predicate: clause %d: BETWEEN requires two bounds", i)
		}
		if c.unary() && (c.Value != nil || c.Value2 != nil) {
			return fmt.Errorf("predicate: clause %d: %s takes no value", i, c.Op)
		}
		depth += c.Open
		depth -= c.Close
		if depth < 0 {
			return fmt.Errorf("predicate: clause %d closes an unopened group", i)
		}
	}
	if depth != 0 {
		return fmt.Errorf("predicate: %d group(s) left open", depth)
	}
	return nil
}

// String renders the predicate with placeholder values, for logging only.
// Ports render their own dialects; this output is never executed.
func (p *Predicate) String() string {
	var b strings.Builder
	for i, c := range p.clauses {
		if i > 0 {
			b.WriteString(" " + string(c.Conj) + " ")
		}
		b.WriteString(strings.Repeat("(", c.Open))
		b.WriteString(c.Field)
		b.WriteString(" " + string(c.Op))
		switch {
		case c.unary():
		case c.Op == OpBetween:
			b.WriteString(" ? AND ?")
		default:
			b.WriteString(" ?")
		}
		b.WriteString(strings.Repeat(")", c.Close))
	}
	return b.String()
}
