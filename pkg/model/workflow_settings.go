package model

// Workflow settings exist in two variants sharing one attribute bundle: the
// organization level settings and the per-repository settings, which add the
// 'enabled' toggle and the subsumption rules against the organization level.

var workflowSettingsFields = []FieldSpec{
	{Name: "allowed_actions"},
	{Name: "allow_github_owned_actions"},
	{Name: "allow_verified_creator_actions"},
	{Name: "allow_action_patterns", Unordered: true},
	{Name: "default_workflow_permissions"},
	{Name: "actions_can_approve_pull_request_reviews"},
}

var orgWorkflowSettingsSchema = NewSchema(
	append([]FieldSpec{{Name: "enabled_repositories"}, {Name: "selected_repositories", Unordered: true}},
		workflowSettingsFields...)...,
)

var repoWorkflowSettingsSchema = NewSchema(
	append([]FieldSpec{{Name: "enabled"}}, workflowSettingsFields...)...,
)

// OrganizationWorkflowSettings are the organization level workflow settings.
type OrganizationWorkflowSettings struct {
	Fields
}

// NewOrganizationWorkflowSettingsFromDeclared builds org workflow settings
// from declared data.
func NewOrganizationWorkflowSettingsFromDeclared(data map[string]any) *OrganizationWorkflowSettings {
	s := &OrganizationWorkflowSettings{Fields: newFields(orgWorkflowSettingsSchema)}
	s.loadDict(data)
	return s
}

// NewOrganizationWorkflowSettingsFromLive builds org workflow settings from
// provider data.
func NewOrganizationWorkflowSettingsFromLive(data map[string]any) *OrganizationWorkflowSettings {
	return NewOrganizationWorkflowSettingsFromDeclared(data)
}

func (s *OrganizationWorkflowSettings) ObjectName() string {
	return "org_workflow_settings"
}

func (s *OrganizationWorkflowSettings) Key() string {
	return ""
}

func (s *OrganizationWorkflowSettings) IncludeFieldForDiffComputation(name string) bool {
	// selected repositories only apply when enablement is selective.
	if name == "selected_repositories" {
		return s.Get("enabled_repositories").String() == "selected"
	}
	return includeWorkflowField(&s.Fields, name)
}

func (s *OrganizationWorkflowSettings) Validate(ctx *ValidationContext, parent Object) {
	validateWorkflowBundle(ctx, &s.Fields, "org_workflow_settings")

	enabled := s.Get("enabled_repositories")
	if enabled.IsSet() {
		switch enabled.String() {
		case "all", "none", "selected":
		default:
			ctx.AddFailure(FailureError,
				"org_workflow_settings has 'enabled_repositories' of value '%s', "+
					"only values ('all' | 'none' | 'selected') are allowed.", enabled.String())
		}
	}
}

// ToProvider renders the settings as a provider payload.
func (s *OrganizationWorkflowSettings) ToProvider() map[string]any {
	return s.toDict()
}

// RepositoryWorkflowSettings are workflow settings defined on repository
// level.
type RepositoryWorkflowSettings struct {
	Fields
}

// NewRepositoryWorkflowSettingsFromDeclared builds repo workflow settings
// from declared data.
func NewRepositoryWorkflowSettingsFromDeclared(data map[string]any) *RepositoryWorkflowSettings {
	s := &RepositoryWorkflowSettings{Fields: newFields(repoWorkflowSettingsSchema)}
	s.loadDict(data)
	return s
}

// NewRepositoryWorkflowSettingsFromLive builds repo workflow settings from
// provider data.
func NewRepositoryWorkflowSettingsFromLive(data map[string]any) *RepositoryWorkflowSettings {
	return NewRepositoryWorkflowSettingsFromDeclared(data)
}

func (s *RepositoryWorkflowSettings) ObjectName() string {
	return "repo_workflow_settings"
}

func (s *RepositoryWorkflowSettings) Key() string {
	return ""
}

func (s *RepositoryWorkflowSettings) IncludeFieldForDiffComputation(name string) bool {
	// a disabled workflow configuration masks every other field.
	if enabled := s.Get("enabled"); enabled.IsSet() && !enabled.Bool() {
		return name == "enabled"
	}
	return includeWorkflowField(&s.Fields, name)
}

func (s *RepositoryWorkflowSettings) Validate(ctx *ValidationContext, parent Object) {
	validateWorkflowBundle(ctx, &s.Fields, Header(parent))

	enabled := s.Get("enabled")
	if !enabled.IsSet() || !enabled.Bool() {
		return
	}

	orgWorkflows := ctx.Root.WorkflowSettings
	if orgWorkflows == nil {
		return
	}

	if orgWorkflows.Get("enabled_repositories").String() == "none" {
		ctx.AddFailure(FailureError,
			"%s has enabled workflows, while on organization level it is disabled for all repositories.",
			Header(parent))
	}

	orgPerms := orgWorkflows.Get("default_workflow_permissions").String()
	repoPerms := s.Get("default_workflow_permissions").String()
	if orgPerms == "read" && repoPerms == "write" {
		ctx.AddFailure(FailureError,
			"%s has 'default_workflow_permissions' of value '%s', "+
				"while on organization level it is restricted to '%s'.",
			Header(parent), repoPerms, orgPerms)
	}
}

// ToProvider renders the settings as a provider payload. A disabled
// configuration emits only the 'enabled' toggle.
func (s *RepositoryWorkflowSettings) ToProvider() map[string]any {
	if enabled := s.Get("enabled"); enabled.IsSet() && !enabled.Bool() {
		return map[string]any{"enabled": false}
	}
	return s.toDict()
}

func includeWorkflowField(f *Fields, name string) bool {
	// action pattern allow-lists only apply when allowed_actions is
	// restricted to 'selected'.
	switch name {
	case "allow_github_owned_actions", "allow_verified_creator_actions", "allow_action_patterns":
		if allowed := f.Get("allowed_actions"); allowed.IsSet() && allowed.String() != "selected" {
			return false
		}
	}
	return true
}

func validateWorkflowBundle(ctx *ValidationContext, f *Fields, header string) {
	if allowed := f.Get("allowed_actions"); allowed.IsSet() {
		switch allowed.String() {
		case "all", "local_only", "selected":
		default:
			ctx.AddFailure(FailureError,
				"%s has 'allowed_actions' of value '%s', "+
					"only values ('all' | 'local_only' | 'selected') are allowed.",
				header, allowed.String())
		}
	}

	if perms := f.Get("default_workflow_permissions"); perms.IsSet() {
		switch perms.String() {
		case "read", "write":
		default:
			ctx.AddFailure(FailureError,
				"%s has 'default_workflow_permissions' of value '%s', "+
					"only values ('read' | 'write') are allowed.",
				header, perms.String())
		}
	}
}
