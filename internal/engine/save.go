package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/stratadb/strata/internal/entity"
	"github.com/stratadb/strata/internal/order"
	"github.com/stratadb/strata/internal/port"
	"github.com/stratadb/strata/internal/predicate"
)

// Save persists a new revision of an entity and returns the refreshed
// aggregate (new current plus full history, deleted revisions included).
//
// A state with id <= 0 creates a new entity; the assigned id is one past the
// highest id among current rows of the type. An id > 0 that matches nothing
// simply starts a timeline for that id; the caller sees it in the returned
// aggregate.
//
// The sequence is read-then-write: close the previous current row, insert
// the new one, both stamped with a single clock reading so the closing
// boundary of the old revision equals the opening boundary of the new. The
// whole sequence runs inside a per-(type, id, tenant) critical section;
// saves for different keys never contend.
func (e *Engine) Save(ctx context.Context, entityType string, s *entity.State, userID, systemID, tenantID string) (*entity.Entity, error) {
	tenant := e.resolveTenant(tenantID)

	desc, err := e.descriptor(entityType)
	if err != nil {
		return nil, err
	}
	attrs, err := normalizeAttrs(desc, s.Attrs)
	if err != nil {
		return nil, err
	}

	token := e.tokens.Generate()
	e.log.Debug("save requested",
		"token", token,
		"type", entityType,
		"id", s.ID,
		"tenant", tenant,
	)

	unlock := e.locks.lock(saveKey(entityType, s.ID, tenant))
	defer unlock()

	next := s.Clone()
	next.Attrs = attrs

	if next.ID <= 0 {
		id, err := e.nextID(ctx, entityType, tenant)
		if err != nil {
			return nil, err
		}
		next.ID = id
	}

	key, err := e.order.Resolve(ctx, entityType, tenant, next.ID, next.Order)
	if err != nil {
		if errors.Is(err, order.ErrPrecisionExhausted) {
			return nil, conflictError(entityType, next.ID, tenant,
				"order key precision exhausted, renumber the list and retry", err)
		}
		return nil, persistenceError(entityType, next.ID, tenant, err)
	}
	next.Order = key

	agg, err := e.auditEntityByID(ctx, entityType, next.ID, tenant)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()

	if agg.Current != nil {
		closed := agg.Current.Clone()
		end := now
		closed.ActiveRangeEnd = &end
		closed.CurrentFlag = false
		if err := e.port.Update(ctx, entityType, closed); err != nil {
			if errors.Is(err, port.ErrNotFound) {
				// The row we read as current is gone: a concurrent writer
				// got there first despite the lock, which means the caller
				// bypassed this engine. Surface it as a retryable race.
				return nil, conflictError(entityType, next.ID, tenant,
					"current revision vanished during save", err)
			}
			return nil, persistenceError(entityType, next.ID, tenant, err)
		}
	}

	next.RID = 0
	next.TenantID = tenant
	next.EntityType = entityType
	next.CurrentFlag = true
	next.ActiveRangeStart = now
	next.ActiveRangeEnd = nil
	next.EditingUserID = userID
	next.EditingSystemID = systemID

	rid, err := e.port.Insert(ctx, entityType, next)
	if err != nil {
		return nil, persistenceError(entityType, next.ID, tenant, err)
	}

	e.log.Info("revision saved",
		"token", token,
		"type", entityType,
		"id", next.ID,
		"tenant", tenant,
		"rid", rid,
		"ord", next.Order,
		"deleted", next.DeleteFlag,
	)

	return e.auditEntityByID(ctx, entityType, next.ID, tenant)
}

// SetDeleteFlag creates a new current revision marked deleted. The prior
// revision stays in history, so the deletion itself is a visible interval on
// the timeline. Returns NOT_FOUND when no revision of the entity exists.
func (e *Engine) SetDeleteFlag(ctx context.Context, entityType string, id int64, userID, systemID, tenantID string) (*entity.Entity, error) {
	return e.flipDeleteFlag(ctx, entityType, id, userID, systemID, tenantID, true)
}

// RemoveDeleteFlag creates a new current revision with the delete mark
// cleared. The deleted interval remains in history. Returns NOT_FOUND when
// no revision of the entity exists.
func (e *Engine) RemoveDeleteFlag(ctx context.Context, entityType string, id int64, userID, systemID, tenantID string) (*entity.Entity, error) {
	return e.flipDeleteFlag(ctx, entityType, id, userID, systemID, tenantID, false)
}

// flipDeleteFlag copies the most recent revision, sets the delete flag and
// saves the copy as a normal revision.
func (e *Engine) flipDeleteFlag(ctx context.Context, entityType string, id int64, userID, systemID, tenantID string, deleted bool) (*entity.Entity, error) {
	tenant := e.resolveTenant(tenantID)
	if _, err := e.descriptor(entityType); err != nil {
		return nil, err
	}

	agg, err := e.auditEntityByID(ctx, entityType, id, tenant)
	if err != nil {
		return nil, err
	}
	latest := agg.Latest()
	if latest == nil {
		return nil, notFoundError(entityType, id, tenant)
	}

	next := latest.Clone()
	next.DeleteFlag = deleted
	return e.Save(ctx, entityType, next, userID, systemID, tenant)
}

// nextID allocates the next logical id for a type: one past the highest id
// among current rows of the tenant, deleted included, or 1 for a fresh type.
// Callers hold the creation lock for the type, so two concurrent creates
// cannot allocate the same id.
func (e *Engine) nextID(ctx context.Context, entityType, tenant string) (int64, error) {
	rows, err := e.port.Select(ctx, entityType, predicate.AuditForCurrent(tenant), port.Options{
		Projection: []string{entity.FieldID},
		OrderBy:    []port.Ordering{{Field: entity.FieldID, Desc: true}},
		Limit:      1,
	})
	if err != nil {
		return 0, persistenceError(entityType, 0, tenant, fmt.Errorf("allocate id: %w", err))
	}
	if len(rows) == 0 {
		return 1, nil
	}
	return rows[0].ID + 1, nil
}
