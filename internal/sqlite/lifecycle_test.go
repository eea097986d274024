package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadb/strata/internal/engine"
	"github.com/stratadb/strata/internal/entity"
	"github.com/stratadb/strata/internal/schema"
	"github.com/stratadb/strata/internal/testutil"
)

// The lifecycle test runs the full engine against a real database file to
// catch dialect issues the in-memory port cannot: JSON extraction, text
// timestamps, limit/offset, rows-affected semantics.
func TestEngineOverSQLite(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "states.db"))
	require.NoError(t, err)
	defer store.Close()

	registry, err := schema.NewRegistry(entity.Descriptor{
		Name: "Task",
		Fields: []entity.Field{
			{Name: "description", Kind: entity.KindString},
			{Name: "priority", Kind: entity.KindInt},
		},
	})
	require.NoError(t, err)

	clock := testutil.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	eng, err := engine.New(engine.Config{
		Registry: registry,
		Port:     store,
		Clock:    clock,
	})
	require.NoError(t, err)

	ctx := context.Background()

	first, err := eng.Save(ctx, "Task", &entity.State{
		Attrs: map[string]any{"description": "A", "priority": 1},
	}, "u1", "s1", "")
	require.NoError(t, err)
	require.NotNil(t, first.Current)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, "A", first.Current.Attrs["description"])

	boundary := clock.Advance(time.Hour)
	second, err := eng.Save(ctx, "Task", &entity.State{
		ID:    1,
		Attrs: map[string]any{"description": "B", "priority": 2},
	}, "u1", "s1", "")
	require.NoError(t, err)
	require.NotNil(t, second.Current)
	assert.Equal(t, "B", second.Current.Attrs["description"])
	require.Len(t, second.History, 1)
	require.NotNil(t, second.History[0].ActiveRangeEnd)
	assert.Equal(t, boundary, *second.History[0].ActiveRangeEnd)

	// As-of reads resolve through the stored text timestamps.
	atA, err := eng.GetAllAtDate(ctx, "Task", boundary.Add(-30*time.Minute), "")
	require.NoError(t, err)
	require.Len(t, atA, 1)
	assert.Equal(t, "A", atA[0].Latest().Attrs["description"])

	atB, err := eng.GetAllAtDate(ctx, "Task", boundary.Add(time.Minute), "")
	require.NoError(t, err)
	require.Len(t, atB, 1)
	assert.Equal(t, "B", atB[0].Latest().Attrs["description"])

	clock.Advance(time.Hour)
	_, err = eng.SetDeleteFlag(ctx, "Task", 1, "u1", "s1", "")
	require.NoError(t, err)

	visible, err := eng.GetAllCurrent(ctx, "Task", "")
	require.NoError(t, err)
	assert.Empty(t, visible)

	audited, err := eng.AuditAllCurrent(ctx, "Task", "")
	require.NoError(t, err)
	require.Len(t, audited, 1)
	assert.True(t, audited[0].Current.DeleteFlag)

	clock.Advance(time.Hour)
	restored, err := eng.RemoveDeleteFlag(ctx, "Task", 1, "u1", "s1", "")
	require.NoError(t, err)
	require.NotNil(t, restored.Current)
	assert.False(t, restored.Current.DeleteFlag)
	assert.Equal(t, "B", restored.Current.Attrs["description"])
}
