// Package order resolves the fractional sort key of a state before it is
// written.
//
// The scheme is fractional indexing: repositioning one row costs a single
// write because the new key is computed strictly between its neighbors
// instead of renumbering the list. The price is numeric precision, which
// erodes under repeated insertion at the same spot. There is no rebalancing
// pass; when two neighbors can no longer be split at float64 precision the
// engine refuses with ErrPrecisionExhausted rather than drifting into
// undefined floating-point behavior. A production deployment should
// renumber the affected list and retry.
package order

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/stratadb/strata/internal/entity"
	"github.com/stratadb/strata/internal/port"
	"github.com/stratadb/strata/internal/predicate"
)

// ErrPrecisionExhausted is returned when two neighboring keys cannot be
// bisected at float64 precision. Callers treat it as a retryable conflict.
var ErrPrecisionExhausted = errors.New("order: key precision exhausted between neighbors")

// Engine computes scope-unique sort keys. The scope of a key is the set of
// live current rows sharing an entity type and tenant.
type Engine struct {
	port port.Port
}

// NewEngine creates an ordering engine over the given port.
func NewEngine(p port.Port) *Engine {
	return &Engine{port: p}
}

// Resolve maps a requested key to the final value written with the state.
//
// Three input modes:
//
//   - zero: append at the tail, floor(max)+1, or 1 for an empty list
//   - negative -p: insert at 1-based position p, bisecting the two keys
//     that straddle the position
//   - positive v: keep v unless another current row (excluding the entity
//     being saved) already holds it, in which case bisect below v
func (e *Engine) Resolve(ctx context.Context, entityType, tenant string, excludeID int64, requested float64) (float64, error) {
	switch {
	case requested == 0:
		return e.appendTail(ctx, entityType, tenant)
	case requested < 0:
		pos := int(-requested)
		if pos < 1 {
			pos = 1
		}
		return e.insertAt(ctx, entityType, tenant, pos)
	default:
		return e.keepOrResolve(ctx, entityType, tenant, excludeID, requested)
	}
}

// appendTail returns floor(max)+1 over the scope, or 1 when the scope holds
// no current rows.
func (e *Engine) appendTail(ctx context.Context, entityType, tenant string) (float64, error) {
	rows, err := e.port.Select(ctx, entityType, predicate.ForCurrent(tenant), port.Options{
		Projection: []string{entity.FieldOrder},
		OrderBy:    []port.Ordering{{Field: entity.FieldOrder, Desc: true}},
		Limit:      1,
	})
	if err != nil {
		return 0, fmt.Errorf("resolve tail key: %w", err)
	}
	if len(rows) == 0 {
		return 1, nil
	}
	return math.Floor(rows[0].Order) + 1, nil
}

// insertAt computes a key for the 1-based position pos in the ascending
// list. Positions past the end degrade to a tail append.
func (e *Engine) insertAt(ctx context.Context, entityType, tenant string, pos int) (float64, error) {
	opts := port.Options{
		Projection: []string{entity.FieldOrder},
		OrderBy:    []port.Ordering{{Field: entity.FieldOrder}},
	}
	if pos == 1 {
		opts.Limit = 1
	} else {
		opts.Limit = 2
		opts.Offset = pos - 2
	}

	rows, err := e.port.Select(ctx, entityType, predicate.ForCurrent(tenant), opts)
	if err != nil {
		return 0, fmt.Errorf("resolve position %d: %w", pos, err)
	}

	switch {
	case len(rows) == 0:
		// Empty list, or a position so far past the end that the offset
		// skipped every row. Either way the key goes to the tail; returning
		// a constant here could duplicate an existing key.
		return e.appendTail(ctx, entityType, tenant)
	case pos == 1:
		// Head insert: bisect against an implicit lower bound of zero.
		return between(0, rows[0].Order)
	case len(rows) == 1:
		// Lower neighbor only: the position is just past the tail.
		return math.Floor(rows[0].Order) + 1, nil
	default:
		return between(rows[0].Order, rows[1].Order)
	}
}

// keepOrResolve accepts v unless a current row other than the entity being
// saved already holds it.
func (e *Engine) keepOrResolve(ctx context.Context, entityType, tenant string, excludeID int64, v float64) (float64, error) {
	collision := predicate.ForCurrent(tenant).
		Where(entity.FieldOrder, predicate.OpEq, v).
		Where(entity.FieldID, predicate.OpNe, excludeID)

	rows, err := e.port.Select(ctx, entityType, collision, port.Options{
		Projection: []string{entity.FieldOrder},
		Limit:      1,
	})
	if err != nil {
		return 0, fmt.Errorf("check key collision: %w", err)
	}
	if len(rows) == 0 {
		return v, nil
	}

	// Collision: slot the new row between the colliding key and the next
	// lower one, or halve toward zero when the colliding row is the lowest.
	lower := predicate.ForCurrent(tenant).
		Where(entity.FieldOrder, predicate.OpLt, v).
		Where(entity.FieldID, predicate.OpNe, excludeID)

	rows, err = e.port.Select(ctx, entityType, lower, port.Options{
		Projection: []string{entity.FieldOrder},
		OrderBy:    []port.Ordering{{Field: entity.FieldOrder, Desc: true}},
		Limit:      1,
	})
	if err != nil {
		return 0, fmt.Errorf("find lower neighbor: %w", err)
	}
	if len(rows) == 0 {
		return v / 2, nil
	}
	return between(rows[0].Order, v)
}

// between returns a key strictly inside (lower, upper).
//
// A gap wider than 1 admits an integer key, which keeps values short and
// delays precision erosion; otherwise the midpoint is used. When the
// midpoint collapses onto either bound the gap is unsplittable at float64
// precision and ErrPrecisionExhausted is returned.
func between(lower, upper float64) (float64, error) {
	if upper-lower > 1 {
		return math.Floor(lower) + 1, nil
	}
	mid := lower + (upper-lower)/2
	if mid <= lower || mid >= upper {
		return 0, fmt.Errorf("between %v and %v: %w", lower, upper, ErrPrecisionExhausted)
	}
	return mid, nil
}
