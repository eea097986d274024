package entity

import "time"

// System field names as used by predicates and persistence ports.
// Attribute names declared in a Descriptor must not collide with these.
const (
	FieldRID              = "rid"
	FieldID               = "id"
	FieldTenantID         = "tenant_id"
	FieldCurrentFlag      = "current_flag"
	FieldDeleteFlag       = "delete_flag"
	FieldActiveRangeStart = "active_range_start"
	FieldActiveRangeEnd   = "active_range_end"
	FieldEditingUserID    = "editing_user_id"
	FieldEditingSystemID  = "editing_system_id"
	FieldOrder            = "ord"
)

// systemFields indexes the reserved field names for quick membership checks.
var systemFields = map[string]bool{
	FieldRID:              true,
	FieldID:               true,
	FieldTenantID:         true,
	FieldCurrentFlag:      true,
	FieldDeleteFlag:       true,
	FieldActiveRangeStart: true,
	FieldActiveRangeEnd:   true,
	FieldEditingUserID:    true,
	FieldEditingSystemID:  true,
	FieldOrder:            true,
}

// IsSystemField reports whether name is one of the reserved system fields.
func IsSystemField(name string) bool {
	return systemFields[name]
}

// Relationship is a typed link from one entity to another. Relationships are
// structural metadata carried along with a revision; the engine never
// interprets them.
type Relationship struct {
	Kind       string `json:"kind"`
	TargetType string `json:"target_type"`
	TargetID   int64  `json:"target_id"`
}

// State is one immutable persisted revision of a logical entity.
//
// RID is the surrogate row identifier assigned by the persistence port on
// insert; it is unique per physical row and never reused. ID is the logical
// entity identifier, stable across all revisions. The only mutation a State
// ever sees after insert is closing its active range (set ActiveRangeEnd,
// clear CurrentFlag) when a newer revision supersedes it.
type State struct {
	RID        int64  `json:"rid"`
	ID         int64  `json:"id"`
	TenantID   string `json:"tenant_id"`
	EntityType string `json:"entity_type"`

	// CurrentFlag is true on exactly the one row representing "now" for
	// (EntityType, ID, TenantID). DeleteFlag marks a revision as logically
	// deleted; it is itself a revision attribute, so deletion and
	// un-deletion remain visible in history.
	CurrentFlag bool `json:"current_flag"`
	DeleteFlag  bool `json:"delete_flag"`

	// ActiveRangeStart is when this revision became current.
	// ActiveRangeEnd is nil while the revision is current; once superseded
	// it is set and never cleared.
	ActiveRangeStart time.Time  `json:"active_range_start"`
	ActiveRangeEnd   *time.Time `json:"active_range_end,omitempty"`

	EditingUserID   string `json:"editing_user_id"`
	EditingSystemID string `json:"editing_system_id"`

	// Order is a fractional sort key, meaningful only among current rows of
	// the same entity type and tenant.
	Order float64 `json:"ord"`

	// Attrs holds the type-specific attribute values, keyed by the field
	// names of the type's Descriptor.
	Attrs map[string]any `json:"attrs,omitempty"`

	Relationships []Relationship `json:"relationships,omitempty"`
}

// Clone returns a deep copy of the state. Attrs and Relationships are copied
// so mutating the clone never aliases the original.
func (s *State) Clone() *State {
	out := *s
	if s.ActiveRangeEnd != nil {
		end := *s.ActiveRangeEnd
		out.ActiveRangeEnd = &end
	}
	if s.Attrs != nil {
		out.Attrs = make(map[string]any, len(s.Attrs))
		for k, v := range s.Attrs {
			out.Attrs[k] = v
		}
	}
	if s.Relationships != nil {
		out.Relationships = make([]Relationship, len(s.Relationships))
		copy(out.Relationships, s.Relationships)
	}
	return &out
}

// Entity is the aggregate view of all States sharing one logical ID within a
// tenant. It is a view assembled from query results, not a stored object.
type Entity struct {
	ID       int64   `json:"id"`
	TenantID string  `json:"tenant_id"`
	Current  *State  `json:"current,omitempty"`
	History  []State `json:"history,omitempty"`
}

// IsEmpty reports whether the entity has neither a current revision nor any
// history. Read paths return empty entities as a normal, non-error outcome.
func (e *Entity) IsEmpty() bool {
	return e == nil || (e.Current == nil && len(e.History) == 0)
}

// Latest returns the most recent revision: the current state if present,
// otherwise the history row with the greatest active range start. Returns
// nil for an empty entity.
func (e *Entity) Latest() *State {
	if e == nil {
		return nil
	}
	if e.Current != nil {
		return e.Current
	}
	var latest *State
	for i := range e.History {
		if latest == nil || e.History[i].ActiveRangeStart.After(latest.ActiveRangeStart) {
			latest = &e.History[i]
		}
	}
	return latest
}
