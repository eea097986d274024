// Package assemble reassembles flat persisted rows into logical entities.
//
// Persistence ports return states as an arbitrarily ordered flat sequence;
// this package partitions them into Entity aggregates with a current
// revision and a history collection. The grouping scan is linear over the
// already-seen entities, which is fine for the small result sets the engine
// works with.
package assemble

import "github.com/stratadb/strata/internal/entity"

// One folds rows into a single entity. The entity's identity is fixed by the
// first row; rows for other logical IDs are ignored. Returns an empty
// (non-nil) entity when rows is empty.
//
// A row with the current flag becomes the current revision; if several rows
// claim it the last one wins rather than failing, since a port bug must not
// crash reads. History keeps input order and is deduplicated by revision ID.
func One(rows []entity.State) *entity.Entity {
	e := &entity.Entity{}
	for i := range rows {
		s := rows[i]
		if e.Current == nil && len(e.History) == 0 && e.ID == 0 {
			e.ID = s.ID
			e.TenantID = s.TenantID
		}
		if s.ID != e.ID {
			continue
		}
		merge(e, s)
	}
	return e
}

// ByID folds rows into one entity per logical ID, in order of first
// appearance. Returns an empty slice when rows is empty.
func ByID(rows []entity.State) []*entity.Entity {
	entities := []*entity.Entity{}
	for i := range rows {
		s := rows[i]
		e := find(entities, s.ID)
		if e == nil {
			e = &entity.Entity{ID: s.ID, TenantID: s.TenantID}
			entities = append(entities, e)
		}
		merge(e, s)
	}
	return entities
}

// find scans for the entity owning id. Linear on purpose.
func find(entities []*entity.Entity, id int64) *entity.Entity {
	for _, e := range entities {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// merge places one state into its owning entity.
func merge(e *entity.Entity, s entity.State) {
	if s.CurrentFlag {
		// Last writer wins; callers should never produce two current rows
		// for one entity, but re-aggregation must stay total.
		if e.Current != nil {
			appendHistory(e, *e.Current)
		}
		cur := s
		e.Current = &cur
		return
	}
	appendHistory(e, s)
}

// appendHistory adds s unless a revision with the same RID is present.
func appendHistory(e *entity.Entity, s entity.State) {
	for i := range e.History {
		if e.History[i].RID == s.RID {
			return
		}
	}
	e.History = append(e.History, s)
}
