package model

// Rulesets exist both on organization and repository level with the same
// attribute bundle; the owning collection determines the scope.

var rulesetSchema = NewSchema(
	FieldSpec{Name: "id", ReadOnly: true},
	FieldSpec{Name: "name", Key: true},
	FieldSpec{Name: "target"},
	FieldSpec{Name: "enforcement"},
	FieldSpec{Name: "bypass_actors", Unordered: true},
	FieldSpec{Name: "include_refs", Unordered: true},
	FieldSpec{Name: "exclude_refs", Unordered: true},
	FieldSpec{Name: "allows_creations"},
	FieldSpec{Name: "allows_deletions"},
	FieldSpec{Name: "allows_updates"},
	FieldSpec{Name: "requires_linear_history"},
	FieldSpec{Name: "requires_signatures"},
	FieldSpec{Name: "requires_pull_request"},
	FieldSpec{Name: "required_approving_review_count"},
)

// Ruleset is a push/branch ruleset.
type Ruleset struct {
	Fields
}

// NewRulesetFromDeclared builds a ruleset from declared data.
func NewRulesetFromDeclared(data map[string]any) *Ruleset {
	r := &Ruleset{Fields: newFields(rulesetSchema)}
	r.loadDict(data)
	return r
}

// NewRulesetFromLive builds a ruleset from provider data.
func NewRulesetFromLive(data map[string]any) *Ruleset {
	return NewRulesetFromDeclared(data)
}

func (r *Ruleset) ObjectName() string {
	return "ruleset"
}

func (r *Ruleset) Key() string {
	return r.Get("name").String()
}

func (r *Ruleset) IncludeFieldForDiffComputation(name string) bool {
	if name == "required_approving_review_count" {
		if v := r.Get("requires_pull_request"); v.IsSet() && !v.Bool() {
			return false
		}
	}
	return true
}

func (r *Ruleset) Validate(ctx *ValidationContext, parent Object) {
	if enforcement := r.Get("enforcement"); enforcement.IsSet() {
		switch enforcement.String() {
		case "active", "disabled", "evaluate":
		default:
			ctx.AddFailure(FailureError,
				"%s has 'enforcement' of value '%s', "+
					"only values ('active' | 'disabled' | 'evaluate') are allowed.",
				Header(r), enforcement.String())
		}
	}

	if target := r.Get("target"); target.IsSet() {
		switch target.String() {
		case "branch", "tag", "push":
		default:
			ctx.AddFailure(FailureError,
				"%s has 'target' of value '%s', "+
					"only values ('branch' | 'tag' | 'push') are allowed.",
				Header(r), target.String())
		}
	}
}

// ToProvider renders the ruleset as a provider payload.
func (r *Ruleset) ToProvider() map[string]any {
	out := make(map[string]any)
	for _, spec := range r.schema.Specs() {
		if spec.ReadOnly || !r.IncludeFieldForDiffComputation(spec.Name) {
			continue
		}
		writeField(out, spec.Name, r.Get(spec.Name))
	}
	return out
}
