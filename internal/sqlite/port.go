package sqlite

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

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO states (entity_type, id, tenant_id, current_flag,
			delete_flag, active_range_start, active_range_end,
			editing_user_id, editing_system_id, ord, attrs, relationships)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entityType, st.ID, st.TenantID, st.CurrentFlag, st.DeleteFlag,
		encodeTime(st.ActiveRangeStart), encodeTimePtr(st.ActiveRangeEnd),
		st.EditingUserID, st.EditingSystemID, st.Order, attrs, rels,
	)
	if err != nil {
		return 0, fmt.Errorf("insert state: %w", err)
	}
	rid, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert state: last insert id: %w", err)
	}
	return rid, nil
}

// Update rewrites the row matching st.RID. The RID and the entity type
// discriminator are never rewritten. Returns port.ErrNotFound when the RID
// does not exist for the type.
func (s *Store) Update(ctx context.Context, entityType string, st *entity.State) error {
	attrs, rels, err := encodeJSON(st)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE states SET id = ?, tenant_id = ?, current_flag = ?,
			delete_flag = ?, active_range_start = ?, active_range_end = ?,
			editing_user_id = ?, editing_system_id = ?, ord = ?, attrs = ?,
			relationships = ?
		WHERE rid = ? AND entity_type = ?`,
		st.ID, st.TenantID, st.CurrentFlag, st.DeleteFlag,
		encodeTime(st.ActiveRangeStart), encodeTimePtr(st.ActiveRangeEnd),
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

// Select returns the revisions of entityType matching pred, ordered by the
// requested keys with ascending RID as the tiebreaker. Projection is applied
// after scanning so unprojected fields come back zero-valued exactly as the
// in-memory port leaves them.
func (s *Store) Select(ctx context.Context, entityType string, pred *predicate.Predicate, opts port.Options) ([]entity.State, error) {
	where, args, err := compileWhere(pred)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM states WHERE entity_type = ?", stateColumns)
	queryArgs := append([]any{entityType}, args...)
	if where != "" {
		b.WriteString(" AND (" + where + ")")
	}

	orderBy, err := compileOrderBy(opts.OrderBy)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	b.WriteString(" ORDER BY " + orderBy)

	if opts.Limit > 0 || opts.Offset > 0 {
		// SQLite requires a LIMIT before OFFSET; -1 means unlimited.
		limit := opts.Limit
		if limit <= 0 {
			limit = -1
		}
		b.WriteString(" LIMIT ? OFFSET ?")
		queryArgs = append(queryArgs, limit, opts.Offset)
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

// scanState decodes one row into a state.
func scanState(rows *sql.Rows, entityType string) (*entity.State, error) {
	var (
		st    entity.State
		start string
		end   sql.NullString
		attrs sql.NullString
		rels  sql.NullString
	)
	if err := rows.Scan(&st.RID, &st.ID, &st.TenantID, &st.CurrentFlag,
		&st.DeleteFlag, &start, &end, &st.EditingUserID, &st.EditingSystemID,
		&st.Order, &attrs, &rels); err != nil {
		return nil, fmt.Errorf("scan state: %w", err)
	}
	st.EntityType = entityType

	t, err := decodeTime(start)
	if err != nil {
		return nil, err
	}
	st.ActiveRangeStart = t
	if end.Valid {
		t, err := decodeTime(end.String)
		if err != nil {
			return nil, err
		}
		st.ActiveRangeEnd = &t
	}

	if attrs.Valid && attrs.String != "" {
		if err := json.Unmarshal([]byte(attrs.String), &st.Attrs); err != nil {
			return nil, fmt.Errorf("decode attrs: %w", err)
		}
	}
	if rels.Valid && rels.String != "" {
		if err := json.Unmarshal([]byte(rels.String), &st.Relationships); err != nil {
			return nil, fmt.Errorf("decode relationships: %w", err)
		}
	}
	return &st, nil
}

// encodeJSON renders the attrs and relationships columns. Empty maps and
// slices persist as NULL. Timestamp attr values use the same fixed-width
// layout as the system time columns, so a predicate bind value compares
// equal to the json_extract output for the same instant.
func encodeJSON(st *entity.State) (attrs, rels any, err error) {
	if len(st.Attrs) > 0 {
		enc := make(map[string]any, len(st.Attrs))
		for k, v := range st.Attrs {
			if t, ok := v.(time.Time); ok {
				enc[k] = encodeTime(t)
				continue
			}
			enc[k] = v
		}
		b, err := json.Marshal(enc)
		if err != nil {
			return nil, nil, fmt.Errorf("encode attrs: %w", err)
		}
		attrs = string(b)
	}
	if len(st.Relationships) > 0 {
		b, err := json.Marshal(st.Relationships)
		if err != nil {
			return nil, nil, fmt.Errorf("encode relationships: %w", err)
		}
		rels = string(b)
	}
	return attrs, rels, nil
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func encodeTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
