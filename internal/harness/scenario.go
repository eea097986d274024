package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: a schema, a sequence of
// writes and reads against a fresh engine, and the expected outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the golden file
	// name when the scenario runs under RunWithGolden.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is inline CUE source declaring the entity types the scenario
	// uses.
	Schema string `yaml:"schema"`

	// Start is the initial clock reading, RFC 3339. Defaults to
	// 2024-03-01T09:00:00Z so golden files stay stable.
	Start string `yaml:"start,omitempty"`

	// Steps is the sequence of operations to execute.
	Steps []Step `yaml:"steps"`
}

// Step is one operation in a scenario. Op selects which fields apply.
type Step struct {
	// Op is one of "save", "delete", "undelete", "advance", "list", "at".
	Op string `yaml:"op"`

	// Type is the entity type for engine operations.
	Type string `yaml:"type,omitempty"`

	// ID is the logical entity id. Zero on save creates a new entity.
	ID int64 `yaml:"id,omitempty"`

	// Order is the requested sort key on save.
	Order float64 `yaml:"order,omitempty"`

	// Attrs are the attribute values on save.
	Attrs map[string]any `yaml:"attrs,omitempty"`

	// Tenant selects the tenant partition. Empty uses the default tenant.
	Tenant string `yaml:"tenant,omitempty"`

	// By is the clock advance duration for op "advance", Go duration syntax.
	By string `yaml:"by,omitempty"`

	// Date is the query instant for op "at", RFC 3339.
	Date string `yaml:"date,omitempty"`

	// Audit makes read ops include logically deleted revisions.
	Audit bool `yaml:"audit,omitempty"`

	// Expect is the error code the step must fail with. Empty means the
	// step must succeed.
	Expect string `yaml:"expect,omitempty"`
}

// Step op constants.
const (
	OpSave     = "save"
	OpDelete   = "delete"
	OpUndelete = "undelete"
	OpAdvance  = "advance"
	OpList     = "list"
	OpAt       = "at"
)

// defaultStart keeps golden timelines reproducible across runs.
const defaultStart = "2024-03-01T09:00:00Z"

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so a typo in a scenario fails loudly instead of silently passing.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// startTime resolves the scenario's initial clock reading.
func (s *Scenario) startTime() (time.Time, error) {
	src := s.Start
	if src == "" {
		src = defaultStart
	}
	t, err := time.Parse(time.RFC3339, src)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start %q: %w", src, err)
	}
	return t.UTC(), nil
}

// validateScenario checks that required fields are present and each step is
// well formed for its op.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if _, err := s.startTime(); err != nil {
		return err
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *Step) error {
	switch step.Op {
	case OpSave:
		if step.Type == "" {
			return fmt.Errorf("steps[%d]: type is required for save", index)
		}
	case OpDelete, OpUndelete:
		if step.Type == "" {
			return fmt.Errorf("steps[%d]: type is required for %s", index, step.Op)
		}
		if step.ID <= 0 {
			return fmt.Errorf("steps[%d]: a positive id is required for %s", index, step.Op)
		}
	case OpAdvance:
		if step.By == "" {
			return fmt.Errorf("steps[%d]: by is required for advance", index)
		}
		if _, err := time.ParseDuration(step.By); err != nil {
			return fmt.Errorf("steps[%d]: invalid duration %q: %w", index, step.By, err)
		}
	case OpList:
		if step.Type == "" {
			return fmt.Errorf("steps[%d]: type is required for list", index)
		}
	case OpAt:
		if step.Type == "" {
			return fmt.Errorf("steps[%d]: type is required for at", index)
		}
		if step.Date == "" {
			return fmt.Errorf("steps[%d]: date is required for at", index)
		}
		if _, err := time.Parse(time.RFC3339, step.Date); err != nil {
			return fmt.Errorf("steps[%d]: invalid date %q: %w", index, step.Date, err)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}
	return nil
}
