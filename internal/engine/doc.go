// Package engine implements the state lifecycle manager.
//
// Every persisted mutation in the system flows through this package. A save
// never overwrites a row: it closes the previous current revision by
// stamping its active range end and inserts a new current revision opening
// at the same instant, so the full edit history of every entity stays
// queryable. Deletion is a revision like any other, with the delete flag
// set, which is why deleted intervals remain visible to the audit reads.
//
// The engine owns no storage and no schema: rows go through a port.Port,
// entity types come from a Registry of static descriptors, and time comes
// from an injected Clock. Construction takes an explicit Config; nothing in
// the package is process-global.
package engine
