// Package harness replays declarative YAML scenarios against a fresh engine
// over the in-memory port. A scenario drives saves, deletions and reads with
// a deterministic clock, records what each step produced, and snapshots the
// full revision timeline at the end. Golden files pin the snapshots down so
// a change in write semantics shows up as a timeline diff.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/stratadb/strata/internal/engine"
	"github.com/stratadb/strata/internal/entity"
	"github.com/stratadb/strata/internal/port"
	"github.com/stratadb/strata/internal/schema"
	"github.com/stratadb/strata/internal/testutil"
)

// RowView is the stable serialized form of one revision. Timestamps are
// RFC 3339 strings so golden files diff cleanly.
type RowView struct {
	RID     int64          `json:"rid"`
	ID      int64          `json:"id"`
	Tenant  string         `json:"tenant"`
	Current bool           `json:"current"`
	Deleted bool           `json:"deleted,omitempty"`
	Ord     float64        `json:"ord"`
	Start   string         `json:"start"`
	End     string         `json:"end,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// Event records what one step produced.
type Event struct {
	Step    int       `json:"step"`
	Op      string    `json:"op"`
	Type    string    `json:"type,omitempty"`
	Outcome string    `json:"outcome"`
	Rows    []RowView `json:"rows,omitempty"`
}

// Result is the outcome of running one scenario.
type Result struct {
	Passed bool
	Errors []string
	Events []Event

	// Final maps "Type@tenant" to every persisted revision of that type and
	// tenant, deleted included, ordered by row id.
	Final map[string][]RowView
}

type runner struct {
	engine *engine.Engine
	clock  *testutil.FakeClock

	// tenants tracks every tenant touched so the final snapshot covers all
	// partitions the scenario wrote to.
	tenants map[string]bool
}

// Run executes a scenario against a fresh engine and in-memory port.
// A scenario error (unloadable schema, broken step) is returned as err;
// an expectation mismatch is recorded in the result instead.
func Run(scenario *Scenario) (*Result, error) {
	start, err := scenario.startTime()
	if err != nil {
		return nil, err
	}

	descs, err := schema.CompileBytes(scenario.Name+".cue", []byte(scenario.Schema))
	if err != nil {
		return nil, fmt.Errorf("compile scenario schema: %w", err)
	}
	registry, err := schema.NewRegistry(descs...)
	if err != nil {
		return nil, fmt.Errorf("build scenario registry: %w", err)
	}

	clock := testutil.NewFakeClock(start)
	eng, err := engine.New(engine.Config{
		Registry: registry,
		Port:     port.NewMemory(),
		Clock:    clock,
		TokenGen: engine.NewFixedGenerator(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		return nil, fmt.Errorf("construct scenario engine: %w", err)
	}

	r := &runner{
		engine:  eng,
		clock:   clock,
		tenants: map[string]bool{engine.DefaultTenant: true},
	}

	ctx := context.Background()
	result := &Result{Passed: true}

	for i, step := range scenario.Steps {
		event, err := r.executeStep(ctx, i, &step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		result.Events = append(result.Events, *event)

		if event.Outcome != expectedOutcome(&step) {
			result.Passed = false
			result.Errors = append(result.Errors, fmt.Sprintf(
				"step %d (%s): outcome %s, want %s",
				i, step.Op, event.Outcome, expectedOutcome(&step)))
		}
	}

	final, err := r.snapshot(ctx, registry.Types())
	if err != nil {
		return nil, err
	}
	result.Final = final
	return result, nil
}

func expectedOutcome(step *Step) string {
	if step.Expect == "" {
		return "ok"
	}
	return step.Expect
}

func (r *runner) executeStep(ctx context.Context, index int, step *Step) (*Event, error) {
	event := &Event{Step: index, Op: step.Op, Type: step.Type, Outcome: "ok"}
	if step.Tenant != "" {
		r.tenants[step.Tenant] = true
	}

	switch step.Op {
	case OpAdvance:
		d, err := time.ParseDuration(step.By)
		if err != nil {
			return nil, err
		}
		r.clock.Advance(d)

	case OpSave:
		agg, err := r.engine.Save(ctx, step.Type, &entity.State{
			ID:    step.ID,
			Order: step.Order,
			Attrs: step.Attrs,
		}, "harness", "harness", step.Tenant)
		r.finish(event, agg, err)

	case OpDelete:
		agg, err := r.engine.SetDeleteFlag(ctx, step.Type, step.ID, "harness", "harness", step.Tenant)
		r.finish(event, agg, err)

	case OpUndelete:
		agg, err := r.engine.RemoveDeleteFlag(ctx, step.Type, step.ID, "harness", "harness", step.Tenant)
		r.finish(event, agg, err)

	case OpList:
		all, err := r.readAll(ctx, step, time.Time{})
		r.finishList(event, all, err)

	case OpAt:
		date, err := time.Parse(time.RFC3339, step.Date)
		if err != nil {
			return nil, err
		}
		all, err := r.readAll(ctx, step, date)
		r.finishList(event, all, err)

	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
	return event, nil
}

// readAll dispatches list and at reads honoring the audit flag. A zero date
// means a current listing.
func (r *runner) readAll(ctx context.Context, step *Step, date time.Time) ([]*entity.Entity, error) {
	switch {
	case date.IsZero() && step.Audit:
		return r.engine.AuditAllCurrent(ctx, step.Type, step.Tenant)
	case date.IsZero():
		return r.engine.GetAllCurrent(ctx, step.Type, step.Tenant)
	case step.Audit:
		return r.engine.AuditAllAtDate(ctx, step.Type, date, step.Tenant)
	default:
		return r.engine.GetAllAtDate(ctx, step.Type, date, step.Tenant)
	}
}

func (r *runner) finish(event *Event, agg *entity.Entity, err error) {
	if err != nil {
		event.Outcome = errorCode(err)
		return
	}
	if agg != nil && agg.Current != nil {
		event.Rows = []RowView{rowView(agg.Current)}
	}
}

func (r *runner) finishList(event *Event, all []*entity.Entity, err error) {
	if err != nil {
		event.Outcome = errorCode(err)
		return
	}
	for _, agg := range all {
		if agg.Current != nil {
			event.Rows = append(event.Rows, rowView(agg.Current))
		}
		for i := range agg.History {
			event.Rows = append(event.Rows, rowView(&agg.History[i]))
		}
	}
}

// snapshot captures every persisted revision per type and tenant, ordered by
// row id so the serialization is stable.
func (r *runner) snapshot(ctx context.Context, types []string) (map[string][]RowView, error) {
	tenants := make([]string, 0, len(r.tenants))
	for tenant := range r.tenants {
		tenants = append(tenants, tenant)
	}
	sort.Strings(tenants)

	final := make(map[string][]RowView)
	for _, entityType := range types {
		for _, tenant := range tenants {
			all, err := r.engine.AuditAll(ctx, entityType, tenant)
			if err != nil {
				return nil, fmt.Errorf("snapshot %s@%s: %w", entityType, tenant, err)
			}
			var rows []RowView
			for _, agg := range all {
				if agg.Current != nil {
					rows = append(rows, rowView(agg.Current))
				}
				for i := range agg.History {
					rows = append(rows, rowView(&agg.History[i]))
				}
			}
			if len(rows) == 0 {
				continue
			}
			sort.Slice(rows, func(i, j int) bool { return rows[i].RID < rows[j].RID })
			final[entityType+"@"+tenant] = rows
		}
	}
	return final, nil
}

func rowView(s *entity.State) RowView {
	v := RowView{
		RID:     s.RID,
		ID:      s.ID,
		Tenant:  s.TenantID,
		Current: s.CurrentFlag,
		Deleted: s.DeleteFlag,
		Ord:     s.Order,
		Start:   s.ActiveRangeStart.Format(time.RFC3339Nano),
		Attrs:   s.Attrs,
	}
	if s.ActiveRangeEnd != nil {
		v.End = s.ActiveRangeEnd.Format(time.RFC3339Nano)
	}
	return v
}

// errorCode maps an engine failure to its code string for expect matching.
func errorCode(err error) string {
	var e *engine.Error
	if errors.As(err, &e) {
		return string(e.Code)
	}
	return "ERROR"
}
