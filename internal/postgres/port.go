package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stratadb/strata/internal/entity"
	"github.com/stratadb/strata/internal/port"
	"github.com/stratadb/strata/internal/predicate"
)

const stateColumns = `rid, id, tenant_id, current_flag, delete_flag,
	active_range_start, active_range_end, editing_user_id, editing_system_id,
	ord, attrs, relationships`

// Insert persists a new revision and returns its assigned RID.
func (s *Store) Insert(ctx context.Context, entityType string, st *entity.State) (int64, error) {
	attrs, rels, err := encodeJSON(st)
	if err != nil {
		return 0, err
	}

	var rid int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO states (entity_type, id, tenant_id, current_flag,
			delete_flag, active_range_start, active_range_end,
			editing_user_id, editing_system_id, ord, attrs, relationships)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING rid`,
		entityType, st.ID, st.TenantID, st.CurrentFlag, st.DeleteFlag,
		st.ActiveRangeStart.UTC(), timePtr(st.ActiveRangeEnd),
		st.EditingUserID, st.EditingSystemID, st.Order, attrs, rels,
	).Scan(&rid)
	if err != nil {
		return 0, fmt.Errorf("insert state: %w", err)
	}
	return rid, nil
}

// Update rewrites the row matching st.RID. Returns port.ErrNotFound when the
// RID does not exist for the type.
func (s *Store) Update(ctx context.Context, entityType string, st *entity.State) error {
	attrs, rels, err := encodeJSON(st)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE states SET id = $1, tenant_id = $2, current_flag = $3,
			delete_flag = $4, active_range_start = $5, active_range_end = $6,
			editing_user_id = $7, editing_system_id = $8, ord = $9,
			attrs = $10, relationships = $11
		WHERE rid = $12 AND entity_type = $13`,
		st.ID, st.TenantID, st.CurrentFlag, st.DeleteFlag,
		st.ActiveRangeStart.UTC(), timePtr(st.ActiveRangeEnd),
		st.EditingUserID, st.EditingSystemID, st.Order, attrs, rels,
		st.RID, entityType,
	)
	if err != nil {
		return fmt.Errorf("update state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update state: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update rid %d: %w", st.RID, port.ErrNotFound)
	}
	return nil
}

// Select returns the revisions of entityType matching pred in deterministic
// order, projecting after the scan like the other ports.
func (s *Store) Select(ctx context.Context, entityType string, pred *predicate.Predicate, opts port.Options) ([]entity.State, error) {
	where, args, err := compileWhere(pred, 2)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM states WHERE entity_type = $1", stateColumns)
	queryArgs := append([]any{entityType}, args...)
	if where != "" {
		b.WriteString(" AND (" + where + ")")
	}

	orderBy, err := compileOrderBy(opts.OrderBy)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	b.WriteString(" ORDER BY " + orderBy)

	n := len(queryArgs)
	if opts.Limit > 0 {
		n++
		fmt.Fprintf(&b, " LIMIT $%d", n)
		queryArgs = append(queryArgs, opts.Limit)
	}
	if opts.Offset > 0 {
		n++
		fmt.Fprintf(&b, " OFFSET $%d", n)
		queryArgs = append(queryArgs, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, b.String(), queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	defer rows.Close()

	out := []entity.State{}
	for rows.Next() {
		st, err := scanState(rows, entityType)
		if err != nil {
			return nil, err
		}
		if len(opts.Projection) > 0 {
			*st = port.Project(st, opts.Projection)
		}
		out = append(out, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	return out, nil
}

func scanState(rows *sql.Rows, entityType string) (*entity.State, error) {
	var (
		st    entity.State
		end   sql.NullTime
		attrs []byte
		rels  []byte
	)
	if err := rows.Scan(&st.RID, &st.ID, &st.TenantID, &st.CurrentFlag,
		&st.DeleteFlag, &st.ActiveRangeStart, &end, &st.EditingUserID,
		&st.EditingSystemID, &st.Order, &attrs, &rels); err != nil {
		return nil, fmt.Errorf("scan state: %w", err)
	}
	st.EntityType = entityType
	st.ActiveRangeStart = st.ActiveRangeStart.UTC()
	if end.Valid {
		t := end.Time.UTC()
		st.ActiveRangeEnd = &t
	}

	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &st.Attrs); err != nil {
			return nil, fmt.Errorf("decode attrs: %w", err)
		}
	}
	if len(rels) > 0 {
		if err := json.Unmarshal(rels, &st.Relationships); err != nil {
			return nil, fmt.Errorf("decode relationships: %w", err)
		}
	}
	return &st, nil
}

// encodeJSON renders the attrs and relationships columns. Empty maps and
// slices persist as NULL.
func encodeJSON(st *entity.State) (attrs, rels any, err error) {
	if len(st.Attrs) > 0 {
		b, err := json.Marshal(st.Attrs)
		if err != nil {
			return nil, nil, fmt.Errorf("encode attrs: %w", err)
		}
		attrs = b
	}
	if len(st.Relationships) > 0 {
		b, err := json.Marshal(st.Relationships)
		if err != nil {
			return nil, nil, fmt.Errorf("encode relationships: %w", err)
		}
		rels = b
	}
	return attrs, rels, nil
}

func timePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
