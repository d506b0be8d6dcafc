package model

import (
	"github.com/autumnfound/otterdog/pkg/attr"
)

// FieldSpec describes a single diffable attribute of an entity.
type FieldSpec struct {
	// Name is the attribute name as it appears in declared and provider data.
	Name string
	// Key marks the identity attribute of the entity.
	Key bool
	// Unordered marks list attributes that compare as multisets (e.g.
	// webhook events).
	Unordered bool
	// WebOnly marks attributes served by the web transport only. They are
	// forced to unset on the live side when the web UI is skipped.
	WebOnly bool
	// ReadOnly marks attributes that are never written back to the
	// provider (e.g. the organization plan, opaque rule ids).
	ReadOnly bool
}

// Schema is the ordered field list of one entity kind.
type Schema struct {
	specs  []FieldSpec
	byName map[string]FieldSpec
}

// NewSchema builds a schema from the given field specs.
func NewSchema(specs ...FieldSpec) *Schema {
	byName := make(map[string]FieldSpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}
	return &Schema{specs: specs, byName: byName}
}

// Specs returns the field specs in declaration order.
func (s *Schema) Specs() []FieldSpec {
	return s.specs
}

// Spec returns the spec for a field name.
func (s *Schema) Spec(name string) (FieldSpec, bool) {
	spec, ok := s.byName[name]
	return spec, ok
}

// Fields stores the attribute values of one entity instance. Entities embed
// it and expose typed accessors on top.
type Fields struct {
	schema *Schema
	values map[string]attr.Value
}

func newFields(schema *Schema) Fields {
	return Fields{schema: schema, values: make(map[string]attr.Value, len(schema.specs))}
}

// Get returns the value of a field; unknown fields are unset.
func (f *Fields) Get(name string) attr.Value {
	return f.values[name]
}

// Set stores a field value. Names outside the schema are ignored.
func (f *Fields) Set(name string, v attr.Value) {
	if _, ok := f.schema.byName[name]; ok {
		f.values[name] = v
	}
}

// AllFields returns the schema field specs.
func (f *Fields) AllFields() []FieldSpec {
	return f.schema.specs
}

// loadDict populates fields from plain decoded data. Fields absent from the
// data stay unset; nil values become null.
func (f *Fields) loadDict(data map[string]any) {
	for _, spec := range f.schema.specs {
		if v, ok := data[spec.Name]; ok {
			f.values[spec.Name] = attr.FromAny(v)
		}
	}
}

// markWebFieldsUnset resets all web-only fields to unset. Used on the live
// side when the web UI was not queried, so those fields never diff.
func (f *Fields) markWebFieldsUnset() {
	for _, spec := range f.schema.specs {
		if spec.WebOnly {
			delete(f.values, spec.Name)
		}
	}
}

// toDict renders all non-unset fields back into plain data.
func (f *Fields) toDict() map[string]any {
	out := make(map[string]any)
	for _, spec := range f.schema.specs {
		v := f.values[spec.Name]
		switch {
		case v.IsSet():
			out[spec.Name] = v.Any()
		case v.IsNull():
			out[spec.Name] = nil
		}
	}
	return out
}
