// Package port defines the persistence boundary the engine writes and reads
// through, plus an in-memory implementation for tests.
//
// A Port is a dumb typed row store: insert one revision, update one revision
// by its row ID, select revisions matching a predicate. Everything temporal
// lives above this interface; everything dialect-specific lives below it.
package port

import (
	"context"
	"errors"

	"github.com/stratadb/strata/internal/entity"
	"github.com/stratadb/strata/internal/predicate"
)

// ErrNotFound is returned by Update when no row matches the state's RID.
var ErrNotFound = errors.New("port: no matching row")

// Ordering names one sort key for a Select.
type Ordering struct {
	Field string
	Desc  bool
}

// Options tunes a Select. The zero value selects every column of every
// matching row in deterministic order.
//
// Projection limits which fields are populated on returned states; fields
// not named come back zero-valued, never as an error. Limit zero means
// unlimited.
type Options struct {
	Projection []string
	OrderBy    []Ordering
	Limit      int
	Offset     int
}

// Port is the abstract row store the lifecycle engine consumes.
//
// Implementations must order Select results deterministically: the
// requested OrderBy keys first, then ascending RID as a tiebreaker.
// Predicate fields that are not system fields refer to declared attributes;
// an unknown attribute must filter as "no value" rather than abort the
// whole query.
type Port interface {
	// Insert persists a new revision and returns its assigned RID.
	Insert(ctx context.Context, entityType string, s *entity.State) (int64, error)

	// Update rewrites the non-identifying fields of the row matching s.RID.
	// Returns ErrNotFound when the RID does not exist.
	Update(ctx context.Context, entityType string, s *entity.State) error

	// Select returns the revisions of entityType matching pred.
	// A nil pred matches every row of the type.
	Select(ctx context.Context, entityType string, pred *predicate.Predicate, opts Options) ([]entity.State, error)
}
