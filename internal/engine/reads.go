package engine

import (
	"context"
	"time"

	"github.com/stratadb/strata/internal/assemble"
	"github.com/stratadb/strata/internal/entity"
	"github.com/stratadb/strata/internal/port"
	"github.com/stratadb/strata/internal/predicate"
)

// Read operations are pure predicate compositions: build the temporal
// predicate, run it through the port, reassemble rows into aggregates.
// Finding nothing is a normal outcome; every list read can return an empty
// slice and every entity read an empty aggregate, never an error.
//
// The Get* family excludes logically deleted revisions; the Audit* family
// includes them.

// byOrder sorts current rows by their fractional sort key.
var byOrder = []port.Ordering{{Field: entity.FieldOrder}}

// byStart sorts revisions chronologically by active range start.
var byStart = []port.Ordering{{Field: entity.FieldActiveRangeStart}}

// GetEntityByID returns the full aggregate of one entity: its live current
// revision plus non-deleted history, chronological.
func (e *Engine) GetEntityByID(ctx context.Context, entityType string, id int64, tenantID string) (*entity.Entity, error) {
	tenant := e.resolveTenant(tenantID)
	if _, err := e.descriptor(entityType); err != nil {
		return nil, err
	}
	return e.entityByID(ctx, entityType, id, tenant, predicate.WithHistory(tenant))
}

// AuditEntityByID returns the full aggregate including deleted revisions.
func (e *Engine) AuditEntityByID(ctx context.Context, entityType string, id int64, tenantID string) (*entity.Entity, error) {
	tenant := e.resolveTenant(tenantID)
	if _, err := e.descriptor(entityType); err != nil {
		return nil, err
	}
	return e.auditEntityByID(ctx, entityType, id, tenant)
}

// GetEntityCurrentByID returns the live current revision of one entity, or
// nil when the entity does not exist or is deleted.
func (e *Engine) GetEntityCurrentByID(ctx context.Context, entityType string, id int64, tenantID string) (*entity.State, error) {
	tenant := e.resolveTenant(tenantID)
	if _, err := e.descriptor(entityType); err != nil {
		return nil, err
	}
	agg, err := e.entityByID(ctx, entityType, id, tenant, predicate.ForCurrent(tenant))
	if err != nil {
		return nil, err
	}
	return agg.Current, nil
}

// GetEntityHistoryByID returns the superseded non-deleted revisions of one
// entity in chronological order. The current revision is not included.
func (e *Engine) GetEntityHistoryByID(ctx context.Context, entityType string, id int64, tenantID string) ([]entity.State, error) {
	tenant := e.resolveTenant(tenantID)
	if _, err := e.descriptor(entityType); err != nil {
		return nil, err
	}
	pred := predicate.WithHistory(tenant).
		Where(entity.FieldID, predicate.OpEq, id).
		Where(entity.FieldCurrentFlag, predicate.OpNe, true)
	rows, err := e.port.Select(ctx, entityType, pred, port.Options{OrderBy: byStart})
	if err != nil {
		return nil, persistenceError(entityType, id, tenant, err)
	}
	return rows, nil
}

// GetAllCurrent returns the live current revision of every non-deleted
// entity of a type, ordered by sort key.
func (e *Engine) GetAllCurrent(ctx context.Context, entityType, tenantID string) ([]*entity.Entity, error) {
	tenant := e.resolveTenant(tenantID)
	return e.list(ctx, entityType, tenant, predicate.ForCurrent(tenant), byOrder)
}

// AuditAllCurrent is GetAllCurrent including logically deleted entities.
func (e *Engine) AuditAllCurrent(ctx context.Context, entityType, tenantID string) ([]*entity.Entity, error) {
	tenant := e.resolveTenant(tenantID)
	return e.list(ctx, entityType, tenant, predicate.AuditForCurrent(tenant), byOrder)
}

// GetAllHistory returns every non-deleted revision of every entity of a
// type, current and historical, grouped per entity.
func (e *Engine) GetAllHistory(ctx context.Context, entityType, tenantID string) ([]*entity.Entity, error) {
	tenant := e.resolveTenant(tenantID)
	return e.list(ctx, entityType, tenant, predicate.WithHistory(tenant), byStart)
}

// AuditAll returns every persisted revision of every entity of a type.
func (e *Engine) AuditAll(ctx context.Context, entityType, tenantID string) ([]*entity.Entity, error) {
	tenant := e.resolveTenant(tenantID)
	return e.list(ctx, entityType, tenant, predicate.AuditAll(tenant), byStart)
}

// GetAllAtDate returns, per non-deleted entity, the revision that was
// current at the given instant.
func (e *Engine) GetAllAtDate(ctx context.Context, entityType string, date time.Time, tenantID string) ([]*entity.Entity, error) {
	tenant := e.resolveTenant(tenantID)
	return e.list(ctx, entityType, tenant, predicate.AtDate(date, tenant), byStart)
}

// AuditAllAtDate is GetAllAtDate including deleted revisions.
func (e *Engine) AuditAllAtDate(ctx context.Context, entityType string, date time.Time, tenantID string) ([]*entity.Entity, error) {
	tenant := e.resolveTenant(tenantID)
	return e.list(ctx, entityType, tenant, predicate.AuditAtDate(date, tenant), byStart)
}

// GetAllFromDate returns the non-deleted revisions still active on or after
// the given instant.
func (e *Engine) GetAllFromDate(ctx context.Context, entityType string, date time.Time, tenantID string) ([]*entity.Entity, error) {
	tenant := e.resolveTenant(tenantID)
	return e.list(ctx, entityType, tenant, predicate.FromDate(date, tenant), byStart)
}

// AuditAllFromDate is GetAllFromDate including deleted revisions.
func (e *Engine) AuditAllFromDate(ctx context.Context, entityType string, date time.Time, tenantID string) ([]*entity.Entity, error) {
	tenant := e.resolveTenant(tenantID)
	return e.list(ctx, entityType, tenant, predicate.AuditFromDate(date, tenant), byStart)
}

// GetAllBeforeDate returns the non-deleted revisions that became active on
// or before the given instant.
func (e *Engine) GetAllBeforeDate(ctx context.Context, entityType string, date time.Time, tenantID string) ([]*entity.Entity, error) {
	tenant := e.resolveTenant(tenantID)
	return e.list(ctx, entityType, tenant, predicate.BeforeDate(date, tenant), byStart)
}

// AuditAllBeforeDate is GetAllBeforeDate including deleted revisions.
func (e *Engine) AuditAllBeforeDate(ctx context.Context, entityType string, date time.Time, tenantID string) ([]*entity.Entity, error) {
	tenant := e.resolveTenant(tenantID)
	return e.list(ctx, entityType, tenant, predicate.AuditBeforeDate(date, tenant), byStart)
}

// GetAllBetweenDates returns the non-deleted revisions active at any point
// in the inclusive [start, end] window.
func (e *Engine) GetAllBetweenDates(ctx context.Context, entityType string, start, end time.Time, tenantID string) ([]*entity.Entity, error) {
	tenant := e.resolveTenant(tenantID)
	return e.list(ctx, entityType, tenant, predicate.BetweenDates(start, end, tenant), byStart)
}

// AuditAllBetweenDates is GetAllBetweenDates including deleted revisions.
func (e *Engine) AuditAllBetweenDates(ctx context.Context, entityType string, start, end time.Time, tenantID string) ([]*entity.Entity, error) {
	tenant := e.resolveTenant(tenantID)
	return e.list(ctx, entityType, tenant, predicate.AuditBetweenDates(start, end, tenant), byStart)
}

// entityByID narrows base to one logical id and assembles the aggregate.
func (e *Engine) entityByID(ctx context.Context, entityType string, id int64, tenant string, base *predicate.Predicate) (*entity.Entity, error) {
	pred := base.Where(entity.FieldID, predicate.OpEq, id)
	rows, err := e.port.Select(ctx, entityType, pred, port.Options{OrderBy: byStart})
	if err != nil {
		return nil, persistenceError(entityType, id, tenant, err)
	}
	return assemble.One(rows), nil
}

// auditEntityByID is the deleted-inclusive aggregate fetch the write path
// shares with AuditEntityByID.
func (e *Engine) auditEntityByID(ctx context.Context, entityType string, id int64, tenant string) (*entity.Entity, error) {
	return e.entityByID(ctx, entityType, id, tenant, predicate.AuditAll(tenant))
}

// list runs one predicate over a type and groups the rows per entity.
func (e *Engine) list(ctx context.Context, entityType, tenant string, pred *predicate.Predicate, orderBy []port.Ordering) ([]*entity.Entity, error) {
	if _, err := e.descriptor(entityType); err != nil {
		return nil, err
	}
	rows, err := e.port.Select(ctx, entityType, pred, port.Options{OrderBy: orderBy})
	if err != nil {
		return nil, persistenceError(entityType, 0, tenant, err)
	}
	return assemble.ByID(rows), nil
}
