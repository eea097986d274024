package port

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/stratadb/strata/internal/entity"
	"github.com/stratadb/strata/internal/predicate"
)

// Memory is an in-process Port backed by a plain slice. It exists for tests
// and for embedding scenarios where no database is wanted; it implements the
// exact contract the SQL ports do, including deterministic ordering.
//
// Thread-safety: all methods are safe for concurrent use via an RWMutex.
type Memory struct {
	mu      sync.RWMutex
	nextRID int64
	rows    []entity.State
}

// NewMemory creates an empty in-memory port.
func NewMemory() *Memory {
	return &Memory{}
}

// Insert assigns the next RID and stores a copy of the state.
func (m *Memory) Insert(ctx context.Context, entityType string, s *entity.State) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextRID++
	row := s.Clone()
	row.RID = m.nextRID
	row.EntityType = entityType
	m.rows = append(m.rows, *row)
	return m.nextRID, nil
}

// Update replaces the stored row matching s.RID. The RID itself and the
// entity type discriminator are never rewritten.
func (m *Memory) Update(ctx context.Context, entityType string, s *entity.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.rows {
		if m.rows[i].RID == s.RID && m.rows[i].EntityType == entityType {
			row := s.Clone()
			row.RID = m.rows[i].RID
			row.EntityType = m.rows[i].EntityType
			m.rows[i] = *row
			return nil
		}
	}
	return fmt.Errorf("update rid %d: %w", s.RID, ErrNotFound)
}

// Select filters, orders, pages, and projects matching rows.
func (m *Memory) Select(ctx context.Context, entityType string, pred *predicate.Predicate, opts Options) ([]entity.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := []entity.State{}
	for i := range m.rows {
		if m.rows[i].EntityType != entityType {
			continue
		}
		ok, err := Eval(&m.rows[i], pred)
		if err != nil {
			return nil, fmt.Errorf("select: %w", err)
		}
		if ok {
			matched = append(matched, *m.rows[i].Clone())
		}
	}

	sortStates(matched, opts.OrderBy)
	matched = page(matched, opts.Limit, opts.Offset)

	if len(opts.Projection) > 0 {
		for i := range matched {
			matched[i] = Project(&matched[i], opts.Projection)
		}
	}
	return matched, nil
}

// Len returns the number of stored rows across all types. Test helper.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

// sortStates orders rows by the requested keys, always with ascending RID
// as the final tiebreaker so results stay deterministic.
func sortStates(rows []entity.State, keys []Ordering) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			vi := fieldValue(&rows[i], k.Field)
			vj := fieldValue(&rows[j], k.Field)
			// NULLs sort first ascending, last descending.
			if vi == nil || vj == nil {
				if vi == vj {
					continue
				}
				return (vi == nil) != k.Desc
			}
			c := compare(vi, vj)
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return rows[i].RID < rows[j].RID
	})
}

func page(rows []entity.State, limit, offset int) []entity.State {
	if offset > 0 {
		if offset >= len(rows) {
			return []entity.State{}
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

// Project copies only the named fields onto a fresh state; everything else
// stays zero-valued per the port contract. Shared by every port
// implementation that projects after scanning.
func Project(s *entity.State, fields []string) entity.State {
	var out entity.State
	for _, f := range fields {
		switch f {
		case entity.FieldRID:
			out.RID = s.RID
		case entity.FieldID:
			out.ID = s.ID
		case entity.FieldTenantID:
			out.TenantID = s.TenantID
		case entity.FieldCurrentFlag:
			out.CurrentFlag = s.CurrentFlag
		case entity.FieldDeleteFlag:
			out.DeleteFlag = s.DeleteFlag
		case entity.FieldActiveRangeStart:
			out.ActiveRangeStart = s.ActiveRangeStart
		case entity.FieldActiveRangeEnd:
			if s.ActiveRangeEnd != nil {
				end := *s.ActiveRangeEnd
				out.ActiveRangeEnd = &end
			}
		case entity.FieldEditingUserID:
			out.EditingUserID = s.EditingUserID
		case entity.FieldEditingSystemID:
			out.EditingSystemID = s.EditingSystemID
		case entity.FieldOrder:
			out.Order = s.Order
		default:
			if v, ok := s.Attrs[f]; ok {
				if out.Attrs == nil {
					out.Attrs = map[string]any{}
				}
				out.Attrs[f] = v
			}
		}
	}
	return out
}
