package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_InsertionOrder(t *testing.T) {
	p := New().
		Where("a", OpEq, 1).
		OrWhere("b", OpGt, 2).
		WhereBetween("c", 3, 4)

	clauses := p.Clauses()
	require.Len(t, clauses, 3)

	assert.Equal(t, "a", clauses[0].Field)
	assert.Equal(t, And, clauses[0].Conj)
	assert.Equal(t, "b", clauses[1].Field)
	assert.Equal(t, Or, clauses[1].Conj)
	assert.Equal(t, OpBetween, clauses[2].Op)
	assert.Equal(t, 3, clauses[2].Value)
	assert.Equal(t, 4, clauses[2].Value2)

	require.NoError(t, p.Validate())
}

func TestBuilder_Grouping(t *testing.T) {
	// a = 1 AND (b >= 2 OR b IS NULL)
	p := New().
		Where("a", OpEq, 1).
		OpenGroup().
		Where("b", OpGe, 2).
		OrWhereNull("b").
		CloseGroup()

	clauses := p.Clauses()
	require.Len(t, clauses, 3)
	assert.Equal(t, 1, clauses[1].Open)
	assert.Equal(t, 1, clauses[2].Close)
	assert.Equal(t, OpIsNull, clauses[2].Op)
	require.NoError(t, p.Validate())

	assert.Equal(t, "a = ? AND (b >= ? OR b IS NULL)", p.String())
}

func TestAndGroup_WrapsSubpredicate(t *testing.T) {
	inner := New().Where("x", OpGe, 10).OrWhereNull("x")
	p := New().Where("t", OpEq, "t1").AndGroup(inner)

	clauses := p.Clauses()
	require.Len(t, clauses, 3)
	assert.Equal(t, And, clauses[1].Conj)
	assert.Equal(t, 1, clauses[1].Open)
	assert.Equal(t, 1, clauses[2].Close)
	require.NoError(t, p.Validate())
}

func TestAndGroup_EmptyIsNoop(t *testing.T) {
	p := New().Where("a", OpEq, 1).AndGroup(New()).AndGroup(nil)
	assert.Equal(t, 1, p.Len())
	require.NoError(t, p.Validate())
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name string
		p    *Predicate
	}{
		{"unbalanced open", New().OpenGroup().Where("a", OpEq, 1)},
		{"unbalanced close", New().Where("a", OpEq, 1).CloseGroup()},
		{"close before open", New().CloseGroup().Where("a", OpEq, 1)},
		{"between missing bound", New().Append(Clause{Field: "a", Op: OpBetween, Value: 1})},
		{"unary with value", New().Append(Clause{Field: "a", Op: OpIsNull, Value: 1})},
		{"missing field", New().Append(Clause{Op: OpEq, Value: 1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.p.Validate())
		})
	}
}

func TestClauses_ReturnsCopy(t *testing.T) {
	p := New().Where("a", OpEq, 1)
	clauses := p.Clauses()
	clauses[0].Field = "mutated"
	assert.Equal(t, "a", p.Clauses()[0].Field)
}
