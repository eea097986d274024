// Package predicate builds composable filter predicates over the system and
// attribute fields of persisted states.
//
// A Predicate is an ordered list of Clauses. Each clause carries a field
// name, a comparison operator, up to two typed values, the logical
// conjunction (AND/OR) linking it to the previous clause, and grouping
// markers that open or close parenthesized groups around it. Clauses render
// in insertion order; grouping markers force precedence when OR is mixed
// with AND.
//
// The package is a sealed vocabulary, not a scripting surface: persistence
// ports compile the clause list to their own dialect (parameterized SQL or
// an in-memory evaluation), and the temporal composites in composites.go
// are the only predicates the lifecycle manager ever issues.
package predicate
