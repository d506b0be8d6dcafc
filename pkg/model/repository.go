package model

import (
	"github.com/autumnfound/otterdog/pkg/attr"
)

var repositorySchema = NewSchema(
	FieldSpec{Name: "name", Key: true},
	FieldSpec{Name: "description"},
	FieldSpec{Name: "homepage"},
	FieldSpec{Name: "private"},
	FieldSpec{Name: "has_issues"},
	FieldSpec{Name: "has_projects"},
	FieldSpec{Name: "has_wiki"},
	FieldSpec{Name: "default_branch"},
	FieldSpec{Name: "allow_rebase_merge"},
	FieldSpec{Name: "allow_merge_commit"},
	FieldSpec{Name: "allow_squash_merge"},
	FieldSpec{Name: "allow_auto_merge"},
	FieldSpec{Name: "delete_branch_on_merge"},
	FieldSpec{Name: "allow_update_branch"},
	FieldSpec{Name: "squash_merge_commit_title"},
	FieldSpec{Name: "squash_merge_commit_message"},
	FieldSpec{Name: "merge_commit_title"},
	FieldSpec{Name: "merge_commit_message"},
	FieldSpec{Name: "archived"},
	FieldSpec{Name: "allow_forking"},
	FieldSpec{Name: "web_commit_signoff_required"},
	FieldSpec{Name: "secret_scanning"},
	FieldSpec{Name: "secret_scanning_push_protection"},
	FieldSpec{Name: "dependabot_alerts_enabled"},
	FieldSpec{Name: "template_repository", ReadOnly: true},
	FieldSpec{Name: "auto_init", ReadOnly: true},
)

// fields that can not be observed on archived repositories; they are
// excluded from diffing and validation.
var unavailableFieldsInArchivedRepos = map[string]bool{
	"allow_auto_merge":            true,
	"allow_merge_commit":          true,
	"allow_rebase_merge":          true,
	"allow_squash_merge":          true,
	"allow_update_branch":         true,
	"delete_branch_on_merge":      true,
	"merge_commit_message":        true,
	"merge_commit_title":          true,
	"squash_merge_commit_message": true,
	"squash_merge_commit_title":   true,
	"dependabot_alerts_enabled":   true,
}

// Repository is a repository of the organization together with its owned
// children.
type Repository struct {
	Fields

	BranchProtectionRules []*BranchProtectionRule
	WorkflowSettings      *RepositoryWorkflowSettings
	Secrets               []*RepositorySecret
	Environments          []*Environment
	Rulesets              []*Ruleset
}

// NewRepositoryFromDeclared builds a repository and its children from
// declared data.
func NewRepositoryFromDeclared(data map[string]any) *Repository {
	r := &Repository{Fields: newFields(repositorySchema)}
	r.loadDict(data)

	for _, child := range childList(data, "branch_protection_rules") {
		r.BranchProtectionRules = append(r.BranchProtectionRules, NewBranchProtectionRuleFromDeclared(child))
	}
	if ws, ok := data["workflows"].(map[string]any); ok {
		r.WorkflowSettings = NewRepositoryWorkflowSettingsFromDeclared(ws)
	}
	for _, child := range childList(data, "secrets") {
		r.Secrets = append(r.Secrets, NewRepositorySecretFromDeclared(child))
	}
	for _, child := range childList(data, "environments") {
		r.Environments = append(r.Environments, NewEnvironmentFromDeclared(child))
	}
	for _, child := range childList(data, "rulesets") {
		r.Rulesets = append(r.Rulesets, NewRulesetFromDeclared(child))
	}
	return r
}

// NewRepositoryFromLive builds a repository from provider data. Nested
// security settings are flattened; children are attached separately by the
// live loader.
func NewRepositoryFromLive(data map[string]any) *Repository {
	r := &Repository{Fields: newFields(repositorySchema)}
	r.loadDict(data)

	if sec, ok := data["security_and_analysis"].(map[string]any); ok {
		for attrName, provider := range map[string]string{
			"secret_scanning":                 "secret_scanning",
			"secret_scanning_push_protection": "secret_scanning_push_protection",
		} {
			if block, ok := sec[provider].(map[string]any); ok {
				if status, ok := block["status"]; ok {
					r.Set(attrName, attr.FromAny(status))
				}
			}
		}
	}
	return r
}

func (r *Repository) ObjectName() string {
	return "repo"
}

func (r *Repository) Key() string {
	return r.Get("name").String()
}

// Name returns the repository name.
func (r *Repository) Name() string {
	return r.Key()
}

// IsArchived reports whether the repository is archived.
func (r *Repository) IsArchived() bool {
	return r.Get("archived").Bool()
}

// IsPrivate reports whether the repository is private.
func (r *Repository) IsPrivate() bool {
	return r.Get("private").Bool()
}

func (r *Repository) IncludeFieldForDiffComputation(name string) bool {
	// private repos don't support secret scanning.
	switch name {
	case "secret_scanning", "secret_scanning_push_protection":
		if r.IsPrivate() {
			return false
		}
	}

	if r.IsArchived() && unavailableFieldsInArchivedRepos[name] {
		return false
	}

	return true
}

func (r *Repository) Validate(ctx *ValidationContext, parent Object) {
	orgSettings := ctx.Root.Settings

	freePlan := orgSettings.Get("plan").String() == "free"
	orgSignoffRequired := orgSettings.Get("web_commit_signoff_required").Bool()
	forking := r.Get("allow_forking")
	membersCannotForkPrivate := func() bool {
		v := orgSettings.Get("members_can_fork_private_repositories")
		return v.IsSet() && !v.Bool()
	}()

	isPrivate := r.IsPrivate()
	isPublic := func() bool {
		v := r.Get("private")
		return v.IsSet() && !v.Bool()
	}()

	if isPublic && forking.IsSet() && !forking.Bool() {
		ctx.AddFailure(FailureWarning,
			"public %s has 'allow_forking' disabled which is not permitted.", Header(r))
	}

	if isPrivate && r.Get("has_wiki").Bool() && freePlan {
		ctx.AddFailure(FailureWarning,
			"private %s has 'has_wiki' enabled which requires at least GitHub Team billing, "+
				"currently using %q plan.", Header(r), orgSettings.Get("plan").String())
	}

	if isPrivate && membersCannotForkPrivate && forking.Bool() {
		ctx.AddFailure(FailureError,
			"private %s has 'allow_forking' enabled while the organization disables "+
				"'members_can_fork_private_repositories'.", Header(r))
	}

	signoff := r.Get("web_commit_signoff_required")
	if signoff.IsSet() && !signoff.Bool() && orgSignoffRequired {
		ctx.AddFailure(FailureError,
			"%s has 'web_commit_signoff_required' disabled while the organization requires it.",
			Header(r))
	}

	if !r.IsArchived() {
		for _, rule := range r.BranchProtectionRules {
			rule.Validate(ctx, r)
		}
		if r.WorkflowSettings != nil {
			r.WorkflowSettings.Validate(ctx, r)
		}
	}
	for _, secret := range r.Secrets {
		secret.Validate(ctx, r)
	}
	for _, env := range r.Environments {
		env.Validate(ctx, r)
	}
	for _, ruleset := range r.Rulesets {
		ruleset.Validate(ctx, r)
	}
}

// TemplateRepository returns the template to create the repository from, if
// any.
func (r *Repository) TemplateRepository() string {
	return r.Get("template_repository").String()
}

// ToProvider renders the set, writable scalar fields as a provider payload.
// Fields masked by the diff filter (archived, private) are skipped.
func (r *Repository) ToProvider() map[string]any {
	out := make(map[string]any)
	for _, spec := range r.schema.Specs() {
		if spec.ReadOnly || !r.IncludeFieldForDiffComputation(spec.Name) {
			continue
		}
		writeField(out, spec.Name, r.Get(spec.Name))
	}
	return out
}

// ToDeclared renders the repository and its children back to declared form.
func (r *Repository) ToDeclared() map[string]any {
	out := r.toDict()
	if len(r.BranchProtectionRules) > 0 {
		rules := make([]any, 0, len(r.BranchProtectionRules))
		for _, rule := range r.BranchProtectionRules {
			rules = append(rules, rule.toDict())
		}
		out["branch_protection_rules"] = rules
	}
	if r.WorkflowSettings != nil {
		out["workflows"] = r.WorkflowSettings.toDict()
	}
	if len(r.Secrets) > 0 {
		secrets := make([]any, 0, len(r.Secrets))
		for _, s := range r.Secrets {
			secrets = append(secrets, s.toDict())
		}
		out["secrets"] = secrets
	}
	if len(r.Environments) > 0 {
		envs := make([]any, 0, len(r.Environments))
		for _, e := range r.Environments {
			envs = append(envs, e.toDict())
		}
		out["environments"] = envs
	}
	if len(r.Rulesets) > 0 {
		rulesets := make([]any, 0, len(r.Rulesets))
		for _, rs := range r.Rulesets {
			rulesets = append(rulesets, rs.toDict())
		}
		out["rulesets"] = rulesets
	}
	return out
}

func childList(data map[string]any, name string) []map[string]any {
	list, ok := data[name].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, e := range list {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
