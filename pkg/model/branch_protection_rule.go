package model

var branchProtectionRuleSchema = NewSchema(
	FieldSpec{Name: "id", ReadOnly: true},
	FieldSpec{Name: "pattern", Key: true},
	FieldSpec{Name: "requires_approving_reviews"},
	FieldSpec{Name: "required_approving_review_count"},
	FieldSpec{Name: "dismisses_stale_reviews"},
	FieldSpec{Name: "requires_code_owner_reviews"},
	FieldSpec{Name: "requires_status_checks"},
	FieldSpec{Name: "required_status_checks", Unordered: true},
	FieldSpec{Name: "requires_strict_status_checks"},
	FieldSpec{Name: "is_admin_enforced"},
	FieldSpec{Name: "requires_commit_signatures"},
	FieldSpec{Name: "requires_linear_history"},
	FieldSpec{Name: "requires_conversation_resolution"},
	FieldSpec{Name: "allows_force_pushes"},
	FieldSpec{Name: "allows_deletions"},
	FieldSpec{Name: "restricts_pushes"},
	// push actors are declared as slugs and translated into opaque node
	// ids when the mutation is sent.
	FieldSpec{Name: "push_restrictions", Unordered: true},
)

// BranchProtectionRule protects branches matching a pattern. The rule
// carries two representations of its identity: the pattern used for
// matching declared against live state, and the opaque provider id required
// by mutations.
type BranchProtectionRule struct {
	Fields
}

// NewBranchProtectionRuleFromDeclared builds a rule from declared data.
func NewBranchProtectionRuleFromDeclared(data map[string]any) *BranchProtectionRule {
	r := &BranchProtectionRule{Fields: newFields(branchProtectionRuleSchema)}
	r.loadDict(data)
	return r
}

// NewBranchProtectionRuleFromLive builds a rule from provider data.
func NewBranchProtectionRuleFromLive(data map[string]any) *BranchProtectionRule {
	return NewBranchProtectionRuleFromDeclared(data)
}

func (r *BranchProtectionRule) ObjectName() string {
	return "branch_protection_rule"
}

func (r *BranchProtectionRule) Key() string {
	return r.Get("pattern").String()
}

// ID returns the opaque provider id, only populated on the live side.
func (r *BranchProtectionRule) ID() string {
	return r.Get("id").String()
}

func (r *BranchProtectionRule) IncludeFieldForDiffComputation(name string) bool {
	switch name {
	// status check configuration only applies when status checks are
	// required at all.
	case "required_status_checks", "requires_strict_status_checks":
		if v := r.Get("requires_status_checks"); v.IsSet() && !v.Bool() {
			return false
		}
	case "push_restrictions":
		if v := r.Get("restricts_pushes"); v.IsSet() && !v.Bool() {
			return false
		}
	case "required_approving_review_count":
		if v := r.Get("requires_approving_reviews"); v.IsSet() && !v.Bool() {
			return false
		}
	}
	return true
}

func (r *BranchProtectionRule) Validate(ctx *ValidationContext, parent Object) {
	pattern := r.Get("pattern")
	if !pattern.IsSet() || pattern.String() == "" {
		ctx.AddFailure(FailureError,
			"branch_protection_rule of %s has no 'pattern' configured.", Header(parent))
		return
	}

	reviews := r.Get("requires_approving_reviews")
	count := r.Get("required_approving_review_count")
	if reviews.Bool() && count.IsSet() {
		if n := count.Int(); n < 1 || n > 6 {
			ctx.AddFailure(FailureError,
				"%s of %s has 'required_approving_review_count' of value '%d' "+
					"outside of the allowed range (1 - 6).",
				Header(r), Header(parent), n)
		}
	}

	if count.IsSet() && !reviews.IsSet() {
		ctx.AddFailure(FailureInfo,
			"%s of %s has 'required_approving_review_count' configured "+
				"but 'requires_approving_reviews' is not set.",
			Header(r), Header(parent))
	}
}

// ToProvider renders the rule as mutation input. Push restriction slugs are
// passed through; the provider translates them into opaque node ids.
func (r *BranchProtectionRule) ToProvider() map[string]any {
	out := make(map[string]any)
	for _, spec := range r.schema.Specs() {
		if spec.ReadOnly || !r.IncludeFieldForDiffComputation(spec.Name) {
			continue
		}
		writeField(out, spec.Name, r.Get(spec.Name))
	}
	return out
}
