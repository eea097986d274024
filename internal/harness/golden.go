package harness

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TimelineSnapshot is the serialized form compared against golden files:
// every step's outcome followed by the complete final timeline.
type TimelineSnapshot struct {
	Scenario string               `json:"scenario"`
	Events   []Event              `json:"events"`
	Final    map[string][]RowView `json:"final"`
}

// RunWithGolden executes a scenario and compares its timeline snapshot
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	if !result.Passed {
		return fmt.Errorf("scenario %s failed:\n%s",
			scenario.Name, strings.Join(result.Errors, "\n"))
	}

	snapshot := TimelineSnapshot{
		Scenario: scenario.Name,
		Events:   result.Events,
		Final:    result.Final,
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, append(data, '\n'))
	return nil
}
