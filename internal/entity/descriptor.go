package entity

import "fmt"

// FieldKind is the semantic type of a declared attribute field.
type FieldKind string

const (
	KindString    FieldKind = "string"
	KindInt       FieldKind = "int"
	KindLong      FieldKind = "long"
	KindFloat     FieldKind = "float"
	KindBool      FieldKind = "bool"
	KindTimestamp FieldKind = "timestamp"
	KindEnum      FieldKind = "enum"
	KindTypeRef   FieldKind = "typeref"
	KindBlob      FieldKind = "blob"
)

// ValidKinds defines the allowed field kinds.
var ValidKinds = map[FieldKind]bool{
	KindString:    true,
	KindInt:       true,
	KindLong:      true,
	KindFloat:     true,
	KindBool:      true,
	KindTimestamp: true,
	KindEnum:      true,
	KindTypeRef:   true,
	KindBlob:      true,
}

// Field describes one declared attribute of an entity type.
type Field struct {
	Name string    `json:"name"`
	Kind FieldKind `json:"kind"`

	// Enum lists the permitted values when Kind is KindEnum.
	Enum []string `json:"enum,omitempty"`

	// Ref names the target entity type when Kind is KindTypeRef.
	Ref string `json:"ref,omitempty"`
}

// Descriptor statically declares the attribute fields of one entity type.
//
// Descriptors replace runtime type inspection: every component that needs to
// enumerate field names and semantic kinds consults the Descriptor instead.
// Field order is declaration order and is preserved.
type Descriptor struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Field returns the declared field with the given name.
func (d *Descriptor) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldNames returns the declared attribute names in declaration order.
func (d *Descriptor) FieldNames() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// Validate checks the descriptor for structural problems: empty or reserved
// field names, unknown kinds, duplicate fields, enum kinds without values.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("descriptor: name is required")
	}
	seen := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("descriptor %s: field name is required", d.Name)
		}
		if IsSystemField(f.Name) {
			return fmt.Errorf("descriptor %s: field %q collides with a system field", d.Name, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("descriptor %s: duplicate field %q", d.Name, f.Name)
		}
		seen[f.Name] = true
		if !ValidKinds[f.Kind] {
			return fmt.Errorf("descriptor %s: field %q has unknown kind %q", d.Name, f.Name, f.Kind)
		}
		if f.Kind == KindEnum && len(f.Enum) == 0 {
			return fmt.Errorf("descriptor %s: enum field %q declares no values", d.Name, f.Name)
		}
		if f.Kind == KindTypeRef && f.Ref == "" {
			return fmt.Errorf("descriptor %s: typeref field %q declares no target type", d.Name, f.Name)
		}
	}
	return nil
}
