// Package entity defines the core data model for the versioning engine.
//
// This package contains type definitions only. All other internal packages
// import entity; entity imports nothing internal. This ensures the model
// remains the foundational layer with no circular dependencies.
//
// The two central types are State (one immutable persisted revision of a
// logical record) and Entity (the aggregate view of all revisions sharing
// one logical ID within a tenant: at most one current State plus history).
//
// Every State carries a fixed set of system fields (revision ID, logical ID,
// tenant, current/delete flags, active range, provenance, sort key) and an
// open set of typed attributes described by a Descriptor. Descriptors are
// declared statically per entity type, never discovered by reflection.
package entity
