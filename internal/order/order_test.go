package order

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadb/strata/internal/entity"
	"github.com/stratadb/strata/internal/port"
)

// listWith seeds one live current row per key, ids assigned sequentially.
func listWith(t *testing.T, keys ...float64) *port.Memory {
	t.Helper()
	m := port.NewMemory()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, k := range keys {
		_, err := m.Insert(ctx, "Task", &entity.State{
			ID:               int64(i + 1),
			TenantID:         "t1",
			CurrentFlag:      true,
			ActiveRangeStart: base,
			Order:            k,
		})
		require.NoError(t, err)
	}
	return m
}

func resolve(t *testing.T, m *port.Memory, excludeID int64, requested float64) (float64, error) {
	t.Helper()
	return NewEngine(m).Resolve(context.Background(), "Task", "t1", excludeID, requested)
}

func TestResolve_ZeroAppendsAtTail(t *testing.T) {
	tests := []struct {
		name string
		keys []float64
		want float64
	}{
		{"empty list", nil, 1},
		{"integer tail", []float64{1, 2, 3}, 4},
		{"fractional tail floors first", []float64{1, 2.75}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolve(t, listWith(t, tt.keys...), 0, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_ZeroIgnoresDeletedRows(t *testing.T) {
	m := listWith(t, 1, 2)
	_, err := m.Insert(context.Background(), "Task", &entity.State{
		ID: 9, TenantID: "t1", CurrentFlag: true, DeleteFlag: true, Order: 50,
	})
	require.NoError(t, err)

	got, err := resolve(t, m, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, float64(3), got, "deleted rows are outside the ordering scope")
}

func TestResolve_PositionHead(t *testing.T) {
	tests := []struct {
		name string
		keys []float64
		want float64
	}{
		{"empty list yields 1", nil, 1},
		{"halves a small head", []float64{1, 2}, 0.5},
		{"halves again", []float64{0.5, 1, 2}, 0.25},
		{"integer slot before a large head", []float64{5, 9}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolve(t, listWith(t, tt.keys...), 0, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_PositionMiddle(t *testing.T) {
	tests := []struct {
		name     string
		keys     []float64
		position float64
		want     float64
	}{
		{"wide gap takes integer", []float64{1, 4.5}, -2, 2},
		{"tight gap bisects", []float64{1, 2}, -2, 1.5},
		{"tight fractional gap bisects", []float64{1.5, 2}, -2, 1.75},
		{"just past the end appends", []float64{1, 2}, -3, 3},
		{"past the end appends", []float64{1, 2}, -5, 3},
		{"far past the end appends", []float64{1, 2.75}, -9, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolve(t, listWith(t, tt.keys...), 0, tt.position)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_PositionPastEndNeverDuplicates(t *testing.T) {
	// A position whose offset skips every row must still land past the
	// tail, never on a key an existing row already holds.
	m := listWith(t, 1, 2)

	got, err := resolve(t, m, 3, -5)
	require.NoError(t, err)
	assert.NotContains(t, []float64{1, 2}, got)
	assert.Equal(t, float64(3), got)
}

func TestResolve_RepeatedHeadInsertsDescend(t *testing.T) {
	// Each successive head insert must land strictly below the previous
	// one, so the final ascending order is newest first.
	m := port.NewMemory()
	ctx := context.Background()
	eng := NewEngine(m)

	var keys []float64
	for i := 0; i < 3; i++ {
		k, err := eng.Resolve(ctx, "Task", "t1", 0, -1)
		require.NoError(t, err)
		keys = append(keys, k)
		_, err = m.Insert(ctx, "Task", &entity.State{
			ID: int64(i + 1), TenantID: "t1", CurrentFlag: true, Order: k,
		})
		require.NoError(t, err)
	}

	require.Len(t, keys, 3)
	assert.Greater(t, keys[0], keys[1])
	assert.Greater(t, keys[1], keys[2])
	assert.Equal(t, []float64{1, 0.5, 0.25}, keys)
}

func TestResolve_PositiveWithoutCollision(t *testing.T) {
	got, err := resolve(t, listWith(t, 1, 2, 3), 0, 7.5)
	require.NoError(t, err)
	assert.Equal(t, 7.5, got)
}

func TestResolve_PositiveCollision(t *testing.T) {
	tests := []struct {
		name string
		keys []float64
		v    float64
		want float64
	}{
		{"bisects below colliding key", []float64{1, 2}, 2, 1.5},
		{"integer slot in wide gap", []float64{1, 4}, 4, 2},
		{"lowest collision halves toward zero", []float64{1, 2}, 1, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolve(t, listWith(t, tt.keys...), 0, tt.v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_PositiveCollisionIgnoresSavedEntity(t *testing.T) {
	m := listWith(t, 1, 2) // ids 1 and 2
	// Re-saving entity 2 with its own key is not a collision.
	got, err := resolve(t, m, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, float64(2), got)
}

func TestResolve_PrecisionExhaustion(t *testing.T) {
	lower := 1.0
	upper := math.Nextafter(lower, 2) // no float64 exists strictly between
	m := listWith(t, lower, upper)

	_, err := resolve(t, m, 0, -2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPrecisionExhausted), "got %v", err)
}

func TestBetween(t *testing.T) {
	tests := []struct {
		lower, upper float64
		want         float64
	}{
		{0, 1, 0.5},
		{0, 0.5, 0.25},
		{0, 5, 1},
		{1, 2, 1.5},
		{2.5, 3.6, 3},
		{1.5, 2, 1.75},
	}
	for _, tt := range tests {
		got, err := between(tt.lower, tt.upper)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "between(%v, %v)", tt.lower, tt.upper)
		assert.Greater(t, got, tt.lower)
		assert.Less(t, got, tt.upper)
	}
}
