// Package model contains the typed representation of a GitHub organization:
// settings, webhooks, repositories, branch protection rules, workflow
// settings, secrets, environments and rulesets.
//
// Entities are built either from declared configuration data or from
// provider-shaped live data; both paths converge on the same attribute
// storage so expected and current state diff uniformly. Every attribute is
// in one of three states (set, unset, null), see package attr.
package model

import (
	"fmt"

	"github.com/autumnfound/otterdog/pkg/attr"
)

// Object is implemented by every entity in the organization tree.
type Object interface {
	// ObjectName identifies the entity kind, e.g. "repository".
	ObjectName() string
	// Key returns the identity of the entity within its parent collection.
	Key() string
	// AllFields returns the entity's field specs.
	AllFields() []FieldSpec
	// Get returns a field value by name.
	Get(name string) attr.Value
	// IncludeFieldForDiffComputation reports whether the field takes part
	// in diffing given the entity's own state (archived, private, ...).
	IncludeFieldForDiffComputation(name string) bool
	// Validate appends policy failures to the context. It never fails hard.
	Validate(ctx *ValidationContext, parent Object)
}

// Change records one differing attribute between expected and current state.
type Change struct {
	Expected attr.Value
	Current  attr.Value
}

// Difference computes the per-field changes between an expected and a
// current entity of the same kind.
//
// A field contributes a change only when it passes the diff filter on both
// sides and either both sides are set with differing values, or the
// expected side is explicitly null while the current side is set. An unset
// expected field never contributes.
func Difference(expected, current Object) map[string]Change {
	changes := make(map[string]Change)
	for _, spec := range expected.AllFields() {
		if spec.ReadOnly {
			continue
		}
		e := expected.Get(spec.Name)
		if e.IsUnset() {
			continue
		}
		if !expected.IncludeFieldForDiffComputation(spec.Name) ||
			!current.IncludeFieldForDiffComputation(spec.Name) {
			continue
		}
		c := current.Get(spec.Name)
		switch {
		case e.IsNull() && c.IsSet():
			changes[spec.Name] = Change{Expected: e, Current: c}
		case e.IsSet() && c.IsSet() && !e.Equal(c, spec.Unordered):
			changes[spec.Name] = Change{Expected: e, Current: c}
		}
	}
	return changes
}

// Header renders the entity reference used in validation and plan output,
// e.g. `repo[name="otterdog"]`.
func Header(o Object) string {
	key := "name"
	for _, spec := range o.AllFields() {
		if spec.Key {
			key = spec.Name
			break
		}
	}
	return fmt.Sprintf("%s[%s=%q]", o.ObjectName(), key, o.Key())
}
