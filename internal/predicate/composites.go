package predicate

import (
	"time"

	"github.com/stratadb/strata/internal/entity"
)

// The composites below are the full temporal vocabulary the lifecycle
// manager issues. Each one is a named combination of primitive clauses; the
// "active range end covers the date OR is still open" pair is always emitted
// as one parenthesized group so it binds before the surrounding ANDs.

// ForCurrent matches the live current rows of a tenant:
// tenant AND current AND not deleted.
func ForCurrent(tenant string) *Predicate {
	return New().
		Where(entity.FieldTenantID, OpEq, tenant).
		Where(entity.FieldCurrentFlag, OpEq, true).
		Where(entity.FieldDeleteFlag, OpNe, true)
}

// AuditForCurrent matches the current rows of a tenant including logically
// deleted ones.
func AuditForCurrent(tenant string) *Predicate {
	return New().
		Where(entity.FieldTenantID, OpEq, tenant).
		Where(entity.FieldCurrentFlag, OpEq, true)
}

// WithHistory matches current and historical rows of a tenant, excluding
// revisions flagged as deleted.
func WithHistory(tenant string) *Predicate {
	return New().
		Where(entity.FieldTenantID, OpEq, tenant).
		Where(entity.FieldDeleteFlag, OpNe, true)
}

// AuditAll matches every row of a tenant.
func AuditAll(tenant string) *Predicate {
	return New().
		Where(entity.FieldTenantID, OpEq, tenant)
}

// activeAt matches rows whose active range covers date:
// arsd <= date AND (ared >= date OR ared IS NULL).
func activeAt(date time.Time) *Predicate {
	return New().
		Where(entity.FieldActiveRangeStart, OpLe, date).
		AndGroup(New().
			Where(entity.FieldActiveRangeEnd, OpGe, date).
			OrWhereNull(entity.FieldActiveRangeEnd))
}

// AtDate matches the revisions of non-deleted entities that were current at
// the given instant.
func AtDate(date time.Time, tenant string) *Predicate {
	return WithHistory(tenant).AndGroup(activeAt(date))
}

// AuditAtDate is AtDate without the delete filter.
func AuditAtDate(date time.Time, tenant string) *Predicate {
	return AuditAll(tenant).AndGroup(activeAt(date))
}

// fromDate matches rows still active on or after date:
// (ared >= date OR ared IS NULL).
func fromDate(date time.Time) *Predicate {
	return New().
		Where(entity.FieldActiveRangeEnd, OpGe, date).
		OrWhereNull(entity.FieldActiveRangeEnd)
}

// FromDate matches non-deleted revisions that were still active on or after
// the given instant.
func FromDate(date time.Time, tenant string) *Predicate {
	return WithHistory(tenant).AndGroup(fromDate(date))
}

// AuditFromDate is FromDate without the delete filter.
func AuditFromDate(date time.Time, tenant string) *Predicate {
	return AuditAll(tenant).AndGroup(fromDate(date))
}

// BeforeDate matches non-deleted revisions that became active on or before
// the given instant.
func BeforeDate(date time.Time, tenant string) *Predicate {
	return WithHistory(tenant).
		Where(entity.FieldActiveRangeStart, OpLe, date)
}

// AuditBeforeDate is BeforeDate without the delete filter.
func AuditBeforeDate(date time.Time, tenant string) *Predicate {
	return AuditAll(tenant).
		Where(entity.FieldActiveRangeStart, OpLe, date)
}

// betweenDates matches rows whose active range intersects [start, end]:
// arsd <= end AND (ared >= start OR ared IS NULL).
func betweenDates(start, end time.Time) *Predicate {
	return New().
		Where(entity.FieldActiveRangeStart, OpLe, end).
		AndGroup(New().
			Where(entity.FieldActiveRangeEnd, OpGe, start).
			OrWhereNull(entity.FieldActiveRangeEnd))
}

// BetweenDates matches non-deleted revisions active at any point in the
// inclusive [start, end] window.
func BetweenDates(start, end time.Time, tenant string) *Predicate {
	return WithHistory(tenant).AndGroup(betweenDates(start, end))
}

// AuditBetweenDates is BetweenDates without the delete filter.
func AuditBetweenDates(start, end time.Time, tenant string) *Predicate {
	return AuditAll(tenant).AndGroup(betweenDates(start, end))
}
