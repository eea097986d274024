package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/stratadb/strata/internal/entity"
)

// Entity type declarations in CUE live under a top-level "entity" struct,
// one member per type. A field is either the kind shorthand or a struct for
// the kinds that carry extra data:
//
//	entity: Task: fields: {
//		description: "string"
//		status: {kind: "enum", values: ["open", "done"]}
//		owner:  {kind: "typeref", ref: "User"}
//	}

// CompileError is a descriptor compilation failure with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileValue extracts entity descriptors from a compiled CUE root value.
// Returned descriptors follow CUE's field iteration order.
func CompileValue(v cue.Value) ([]entity.Descriptor, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	entVal := v.LookupPath(cue.ParsePath("entity"))
	if !entVal.Exists() {
		return nil, &CompileError{
			Field:   "entity",
			Message: "no entity declarations found",
			Pos:     v.Pos(),
		}
	}

	iter, err := entVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var descs []entity.Descriptor
	for iter.Next() {
		d, err := compileDescriptor(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		descs = append(descs, *d)
	}
	return descs, nil
}

// CompileBytes compiles one CUE source and extracts its descriptors.
func CompileBytes(filename string, src []byte) ([]entity.Descriptor, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	return CompileValue(v)
}

// LoadFile reads and compiles one CUE file.
func LoadFile(path string) ([]entity.Descriptor, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	return CompileBytes(path, src)
}

// LoadDir compiles every .cue file in dir, lexicographic order, and builds a
// registry over the union of their declarations.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("schema: read dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("schema: no .cue files in %s", dir)
	}

	var all []entity.Descriptor
	for _, f := range files {
		descs, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		all = append(all, descs...)
	}
	return NewRegistry(all...)
}

// compileDescriptor parses one entity declaration.
func compileDescriptor(name string, v cue.Value) (*entity.Descriptor, error) {
	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{
			Field:   fmt.Sprintf("entity.%s.fields", name),
			Message: "fields are required",
			Pos:     v.Pos(),
		}
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	d := &entity.Descriptor{Name: name}
	for iter.Next() {
		f, err := compileField(name, iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		d.Fields = append(d.Fields, f)
	}

	if err := d.Validate(); err != nil {
		return nil, &CompileError{
			Field:   fmt.Sprintf("entity.%s", name),
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}
	return d, nil
}

// compileField parses one attribute declaration, shorthand or structured.
func compileField(typeName, fieldName string, v cue.Value) (entity.Field, error) {
	f := entity.Field{Name: fieldName}
	where := fmt.Sprintf("entity.%s.fields.%s", typeName, fieldName)

	// Shorthand: the field maps straight to its kind string.
	if kind, err := v.String(); err == nil {
		f.Kind = entity.FieldKind(kind)
		return f, nil
	}

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return f, &CompileError{
			Field:   where,
			Message: "must be a kind string or a struct with a kind field",
			Pos:     v.Pos(),
		}
	}
	kind, err := kindVal.String()
	if err != nil {
		return f, formatCUEError(err)
	}
	f.Kind = entity.FieldKind(kind)

	valuesVal := v.LookupPath(cue.ParsePath("values"))
	if valuesVal.Exists() {
		valIter, err := valuesVal.List()
		if err != nil {
			return f, formatCUEError(err)
		}
		for valIter.Next() {
			s, err := valIter.Value().String()
			if err != nil {
				return f, formatCUEError(err)
			}
			f.Enum = append(f.Enum, s)
		}
	}

	refVal := v.LookupPath(cue.ParsePath("ref"))
	if refVal.Exists() {
		ref, err := refVal.String()
		if err != nil {
			return f, formatCUEError(err)
		}
		f.Ref = ref
	}

	return f, nil
}

// formatCUEError extracts position info from CUE's multi-error values.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
