package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalSchema = `entity: Task: fields: description: "string"`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	path := writeScenario(t, `
name: basic
description: a basic save
schema: 'entity: Task: fields: description: "string"'
steps:
  - op: save
    type: Task
    attrs:
      description: hello
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "basic", s.Name)
	require.Len(t, s.Steps, 1)
	assert.Equal(t, OpSave, s.Steps[0].Op)
	assert.Equal(t, "hello", s.Steps[0].Attrs["description"])
}

func TestLoadScenarioRejectsUnknownFields(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: misspelled steps key
schema: 'entity: Task: fields: description: "string"'
step:
  - op: save
    type: Task
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field step not found")
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateScenario(t *testing.T) {
	valid := func() *Scenario {
		return &Scenario{
			Name:        "s",
			Description: "d",
			Schema:      minimalSchema,
			Steps:       []Step{{Op: OpSave, Type: "Task"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Scenario)
		wantErr string
	}{
		{"valid", func(s *Scenario) {}, ""},
		{"missing name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"missing description", func(s *Scenario) { s.Description = "" }, "description is required"},
		{"missing schema", func(s *Scenario) { s.Schema = "" }, "schema is required"},
		{"no steps", func(s *Scenario) { s.Steps = nil }, "steps list is required"},
		{"bad start", func(s *Scenario) { s.Start = "yesterday" }, "invalid start"},
		{"save without type", func(s *Scenario) {
			s.Steps = []Step{{Op: OpSave}}
		}, "type is required for save"},
		{"delete without id", func(s *Scenario) {
			s.Steps = []Step{{Op: OpDelete, Type: "Task"}}
		}, "positive id is required"},
		{"advance without duration", func(s *Scenario) {
			s.Steps = []Step{{Op: OpAdvance}}
		}, "by is required"},
		{"advance with bad duration", func(s *Scenario) {
			s.Steps = []Step{{Op: OpAdvance, By: "fortnight"}}
		}, "invalid duration"},
		{"at without date", func(s *Scenario) {
			s.Steps = []Step{{Op: OpAt, Type: "Task"}}
		}, "date is required"},
		{"at with bad date", func(s *Scenario) {
			s.Steps = []Step{{Op: OpAt, Type: "Task", Date: "noon"}}
		}, "invalid date"},
		{"missing op", func(s *Scenario) {
			s.Steps = []Step{{Type: "Task"}}
		}, "op is required"},
		{"unknown op", func(s *Scenario) {
			s.Steps = []Step{{Op: "truncate", Type: "Task"}}
		}, `unknown op "truncate"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := validateScenario(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStartTimeDefaults(t *testing.T) {
	s := &Scenario{}
	start, err := s.startTime()
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T09:00:00Z", start.Format("2006-01-02T15:04:05Z"))
}
