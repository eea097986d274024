package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadb/strata/internal/entity"
	"github.com/stratadb/strata/internal/port"
	"github.com/stratadb/strata/internal/predicate"
)

func TestCompileWhereNumbersPlaceholders(t *testing.T) {
	p := predicate.New().
		Where(entity.FieldTenantID, predicate.OpEq, "t1").
		Where(entity.FieldCurrentFlag, predicate.OpEq, true).
		Where(entity.FieldDeleteFlag, predicate.OpNe, true)

	sql, args, err := compileWhere(p, 2)
	require.NoError(t, err)
	assert.Equal(t, "tenant_id = $2 AND current_flag = $3 AND delete_flag <> $4", sql)
	assert.Equal(t, []any{"t1", true, true}, args)
}

func TestCompileWhereGroupingAndNull(t *testing.T) {
	date := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	sql, args, err := compileWhere(predicate.AtDate(date, "t1"), 1)
	require.NoError(t, err)

	assert.Equal(t,
		"tenant_id = $1 AND delete_flag <> $2 AND "+
			"(active_range_start <= $3 AND (active_range_end >= $4 OR active_range_end IS NULL))",
		sql)
	assert.Len(t, args, 4)
	assert.Equal(t, date, args[2])
}

func TestCompileWhereInAndBetween(t *testing.T) {
	p := predicate.New().
		Where(entity.FieldID, predicate.OpIn, []int64{4, 5}).
		WhereBetween(entity.FieldOrder, 1.0, 2.0)

	sql, args, err := compileWhere(p, 1)
	require.NoError(t, err)
	assert.Equal(t, "id IN ($1,$2) AND ord BETWEEN $3 AND $4", sql)
	assert.Equal(t, []any{int64(4), int64(5), 1.0, 2.0}, args)
}

func TestCompileWhereAttributeCasts(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string stays text", "open", "attrs->>'status' = $1"},
		{"number casts numeric", int64(5), "(attrs->>'status')::numeric = $1"},
		{"bool casts boolean", true, "(attrs->>'status')::boolean = $1"},
		{"time casts timestamptz", time.Now(), "(attrs->>'status')::timestamptz = $1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, _, err := compileWhere(
				predicate.New().Where("status", predicate.OpEq, tt.value), 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sql)
		})
	}
}

func TestCompileWhereRejectsHostileFieldName(t *testing.T) {
	p := predicate.New().Where("x' OR '1'='1", predicate.OpEq, 1)
	_, _, err := compileWhere(p, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid field name")
}

func TestCompileOrderByNullPlacement(t *testing.T) {
	sql, err := compileOrderBy([]port.Ordering{
		{Field: entity.FieldActiveRangeEnd},
		{Field: entity.FieldOrder, Desc: true},
	})
	require.NoError(t, err)
	assert.Equal(t,
		"active_range_end ASC NULLS FIRST, ord DESC NULLS LAST, rid ASC",
		sql)
}
