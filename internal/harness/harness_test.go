package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runScenario(t *testing.T, s *Scenario) *Result {
	t.Helper()
	require.NoError(t, validateScenario(s))
	result, err := Run(s)
	require.NoError(t, err)
	return result
}

func TestRunSaveProducesTimeline(t *testing.T) {
	result := runScenario(t, &Scenario{
		Name:        "one-save",
		Description: "a single save opens a timeline",
		Schema:      minimalSchema,
		Steps: []Step{
			{Op: OpSave, Type: "Task", Attrs: map[string]any{"description": "hello"}},
		},
	})

	assert.True(t, result.Passed)
	require.Len(t, result.Events, 1)
	require.Len(t, result.Events[0].Rows, 1)

	row := result.Events[0].Rows[0]
	assert.Equal(t, int64(1), row.RID)
	assert.Equal(t, int64(1), row.ID)
	assert.True(t, row.Current)
	assert.Equal(t, float64(1), row.Ord)
	assert.Equal(t, "2024-03-01T09:00:00Z", row.Start)
	assert.Empty(t, row.End)

	require.Len(t, result.Final["Task@default"], 1)
}

func TestRunRevisionClosesPrevious(t *testing.T) {
	result := runScenario(t, &Scenario{
		Name:        "revise",
		Description: "a second save closes the first revision",
		Schema:      minimalSchema,
		Steps: []Step{
			{Op: OpSave, Type: "Task", Attrs: map[string]any{"description": "v1"}},
			{Op: OpAdvance, By: "1h"},
			{Op: OpSave, Type: "Task", ID: 1, Attrs: map[string]any{"description": "v2"}},
		},
	})

	assert.True(t, result.Passed)
	rows := result.Final["Task@default"]
	require.Len(t, rows, 2)

	assert.False(t, rows[0].Current)
	assert.Equal(t, "2024-03-01T10:00:00Z", rows[0].End)
	assert.True(t, rows[1].Current)
	assert.Equal(t, rows[0].End, rows[1].Start)
}

func TestRunExpectedErrorPasses(t *testing.T) {
	result := runScenario(t, &Scenario{
		Name:        "expected-not-found",
		Description: "deleting a missing entity fails with the declared code",
		Schema:      minimalSchema,
		Steps: []Step{
			{Op: OpDelete, Type: "Task", ID: 42, Expect: "NOT_FOUND"},
		},
	})

	assert.True(t, result.Passed)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "NOT_FOUND", result.Events[0].Outcome)
}

func TestRunUnexpectedErrorFails(t *testing.T) {
	result := runScenario(t, &Scenario{
		Name:        "unexpected-not-found",
		Description: "a step failing without a declared expectation fails the run",
		Schema:      minimalSchema,
		Steps: []Step{
			{Op: OpDelete, Type: "Task", ID: 42},
		},
	})

	assert.False(t, result.Passed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "outcome NOT_FOUND, want ok")
}

func TestRunUnexpectedSuccessFails(t *testing.T) {
	result := runScenario(t, &Scenario{
		Name:        "expected-failure-succeeds",
		Description: "a step succeeding despite a declared error code fails the run",
		Schema:      minimalSchema,
		Steps: []Step{
			{Op: OpSave, Type: "Task", Attrs: map[string]any{"description": "x"}, Expect: "VALIDATION"},
		},
	})

	assert.False(t, result.Passed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "outcome ok, want VALIDATION")
}

func TestRunValidationError(t *testing.T) {
	result := runScenario(t, &Scenario{
		Name:        "bad-attr",
		Description: "an undeclared attribute is rejected",
		Schema:      minimalSchema,
		Steps: []Step{
			{Op: OpSave, Type: "Task", Attrs: map[string]any{"nope": true}, Expect: "VALIDATION"},
		},
	})
	assert.True(t, result.Passed)
}

func TestRunBrokenSchemaIsAnError(t *testing.T) {
	_, err := Run(&Scenario{
		Name:        "broken",
		Description: "schema without declarations",
		Schema:      `answer: 42`,
		Steps:       []Step{{Op: OpSave, Type: "Task"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile scenario schema")
}

func TestRunTenantsSnapshotSeparately(t *testing.T) {
	result := runScenario(t, &Scenario{
		Name:        "tenants",
		Description: "snapshots cover every tenant touched",
		Schema:      minimalSchema,
		Steps: []Step{
			{Op: OpSave, Type: "Task", Tenant: "acme", Attrs: map[string]any{"description": "a"}},
			{Op: OpSave, Type: "Task", Attrs: map[string]any{"description": "b"}},
		},
	})

	assert.True(t, result.Passed)
	assert.Len(t, result.Final["Task@acme"], 1)
	assert.Len(t, result.Final["Task@default"], 1)
	assert.NotContains(t, result.Final, "Task@globex")
}
