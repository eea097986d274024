package predicate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadb/strata/internal/entity"
)

var testDate = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func TestComposites_Render(t *testing.T) {
	tests := []struct {
		name string
		p    *Predicate
		want string
	}{
		{
			name: "ForCurrent",
			p:    ForCurrent("t1"),
			want: "tenant_id = ? AND current_flag = ? AND delete_flag <> ?",
		},
		{
			name: "AuditForCurrent",
			p:    AuditForCurrent("t1"),
			want: "tenant_id = ? AND current_flag = ?",
		},
		{
			name: "WithHistory",
			p:    WithHistory("t1"),
			want: "tenant_id = ? AND delete_flag <> ?",
		},
		{
			name: "AuditAll",
			p:    AuditAll("t1"),
			want: "tenant_id = ?",
		},
		{
			name: "AtDate",
			p:    AtDate(testDate, "t1"),
			want: "tenant_id = ? AND delete_flag <> ? AND (active_range_start <= ? AND (active_range_end >= ? OR active_range_end IS NULL))",
		},
		{
			name: "AuditAtDate",
			p:    AuditAtDate(testDate, "t1"),
			want: "tenant_id = ? AND (active_range_start <= ? AND (active_range_end >= ? OR active_range_end IS NULL))",
		},
		{
			name: "FromDate",
			p:    FromDate(testDate, "t1"),
			want: "tenant_id = ? AND delete_flag <> ? AND (active_range_end >= ? OR active_range_end IS NULL)",
		},
		{
			name: "BeforeDate",
			p:    BeforeDate(testDate, "t1"),
			want: "tenant_id = ? AND delete_flag <> ? AND active_range_start <= ?",
		},
		{
			name: "BetweenDates",
			p:    BetweenDates(testDate, testDate.Add(time.Hour), "t1"),
			want: "tenant_id = ? AND delete_flag <> ? AND (active_range_start <= ? AND (active_range_end >= ? OR active_range_end IS NULL))",
		},
		{
			name: "AuditBetweenDates",
			p:    AuditBetweenDates(testDate, testDate.Add(time.Hour), "t1"),
			want: "tenant_id = ? AND (active_range_start <= ? AND (active_range_end >= ? OR active_range_end IS NULL))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.p.Validate(), "composite must be balanced")
			assert.Equal(t, tt.want, tt.p.String())
		})
	}
}

func TestComposites_OpenRangeGroupIsParenthesized(t *testing.T) {
	// The "still open" disjunction has to bind as a unit before the
	// surrounding ANDs, otherwise the OR would swallow the tenant filter.
	p := AtDate(testDate, "t1")
	clauses := p.Clauses()

	var nullClause *Clause
	for i := range clauses {
		if clauses[i].Op == OpIsNull {
			nullClause = &clauses[i]
		}
	}
	require.NotNil(t, nullClause, "AtDate must include an IS NULL arm")
	assert.Equal(t, Or, nullClause.Conj)
	assert.Greater(t, nullClause.Close, 0, "IS NULL arm must close its group")
}

func TestComposites_ExtendWithIDFilter(t *testing.T) {
	p := AuditAll("t1").Where(entity.FieldID, OpEq, int64(42))
	require.NoError(t, p.Validate())
	assert.Equal(t, "tenant_id = ? AND id = ?", p.String())
}
