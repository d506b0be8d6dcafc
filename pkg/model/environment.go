package model

var environmentSchema = NewSchema(
	FieldSpec{Name: "name", Key: true},
	FieldSpec{Name: "wait_timer"},
	FieldSpec{Name: "reviewers", Unordered: true},
	FieldSpec{Name: "deployment_branch_policy"},
	FieldSpec{Name: "branch_policies", Unordered: true},
)

// Environment is a deployment environment of a repository.
type Environment struct {
	Fields
}

// NewEnvironmentFromDeclared builds an environment from declared data.
func NewEnvironmentFromDeclared(data map[string]any) *Environment {
	e := &Environment{Fields: newFields(environmentSchema)}
	e.loadDict(data)
	return e
}

// NewEnvironmentFromLive builds an environment from provider data.
func NewEnvironmentFromLive(data map[string]any) *Environment {
	return NewEnvironmentFromDeclared(data)
}

func (e *Environment) ObjectName() string {
	return "environment"
}

func (e *Environment) Key() string {
	return e.Get("name").String()
}

func (e *Environment) IncludeFieldForDiffComputation(name string) bool {
	if name == "branch_policies" {
		return e.Get("deployment_branch_policy").String() == "selected"
	}
	return true
}

func (e *Environment) Validate(ctx *ValidationContext, parent Object) {
	if policy := e.Get("deployment_branch_policy"); policy.IsSet() {
		switch policy.String() {
		case "all", "protected", "selected":
		default:
			ctx.AddFailure(FailureError,
				"%s of %s has 'deployment_branch_policy' of value '%s', "+
					"only values ('all' | 'protected' | 'selected') are allowed.",
				Header(e), Header(parent), policy.String())
		}
	}

	if timer := e.Get("wait_timer"); timer.IsSet() {
		if n := timer.Int(); n < 0 || n > 43200 {
			ctx.AddFailure(FailureError,
				"%s of %s has 'wait_timer' of value '%d' outside of the allowed range (0 - 43200).",
				Header(e), Header(parent), n)
		}
	}
}

// ToProvider renders the environment as a provider payload.
func (e *Environment) ToProvider() map[string]any {
	return e.toDict()
}
