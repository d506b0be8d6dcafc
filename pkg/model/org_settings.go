package model

import (
	"github.com/autumnfound/otterdog/pkg/attr"
)

var orgSettingsSchema = NewSchema(
	FieldSpec{Name: "name"},
	FieldSpec{Name: "plan", ReadOnly: true},
	FieldSpec{Name: "description"},
	FieldSpec{Name: "company"},
	FieldSpec{Name: "location"},
	FieldSpec{Name: "email"},
	FieldSpec{Name: "billing_email"},
	FieldSpec{Name: "blog"},
	FieldSpec{Name: "twitter_username"},
	FieldSpec{Name: "has_organization_projects"},
	FieldSpec{Name: "has_repository_projects"},
	FieldSpec{Name: "default_repository_permission"},
	FieldSpec{Name: "members_can_create_private_repositories"},
	FieldSpec{Name: "members_can_create_public_repositories"},
	FieldSpec{Name: "members_can_fork_private_repositories"},
	FieldSpec{Name: "web_commit_signoff_required"},
	FieldSpec{Name: "dependabot_alerts_enabled_for_new_repositories"},
	FieldSpec{Name: "dependabot_security_updates_enabled_for_new_repositories"},
	FieldSpec{Name: "security_managers", Unordered: true},
	// settings below are not exposed through the API and are read and
	// written through the web interface.
	FieldSpec{Name: "default_branch_name", WebOnly: true},
	FieldSpec{Name: "readers_can_create_discussions", WebOnly: true},
	FieldSpec{Name: "members_can_change_repo_visibility", WebOnly: true},
	FieldSpec{Name: "members_can_delete_repositories", WebOnly: true},
	FieldSpec{Name: "two_factor_required", WebOnly: true},
)

// OrganizationSettings holds the scalar attributes of the organization.
type OrganizationSettings struct {
	Fields
}

func newOrganizationSettings() *OrganizationSettings {
	return &OrganizationSettings{Fields: newFields(orgSettingsSchema)}
}

// NewOrganizationSettingsFromDeclared builds settings from declared data.
func NewOrganizationSettingsFromDeclared(data map[string]any) *OrganizationSettings {
	s := newOrganizationSettings()
	s.loadDict(data)
	return s
}

// NewOrganizationSettingsFromLive builds settings from provider data,
// optionally merged with settings scraped from the web interface.
func NewOrganizationSettingsFromLive(data map[string]any, webData map[string]any) *OrganizationSettings {
	s := newOrganizationSettings()
	s.loadDict(data)
	// the provider reports the billing plan as a nested object.
	if plan, ok := data["plan"].(map[string]any); ok {
		if name, ok := plan["name"]; ok {
			s.Set("plan", attr.FromAny(name))
		}
	}
	if webData == nil {
		s.markWebFieldsUnset()
	} else {
		s.loadDict(webData)
	}
	return s
}

func (s *OrganizationSettings) ObjectName() string {
	return "settings"
}

func (s *OrganizationSettings) Key() string {
	return s.Get("name").String()
}

func (s *OrganizationSettings) IncludeFieldForDiffComputation(name string) bool {
	return true
}

func (s *OrganizationSettings) Validate(ctx *ValidationContext, parent Object) {
	perm := s.Get("default_repository_permission")
	if perm.IsSet() {
		switch perm.String() {
		case "none", "read", "write", "admin":
		default:
			ctx.AddFailure(FailureError,
				"settings has 'default_repository_permission' of value '%s', "+
					"only values ('none' | 'read' | 'write' | 'admin') are allowed.", perm.String())
		}
	}
}

// ToProvider renders the set, writable fields as a provider update payload.
// Web-only fields are excluded; they travel through the web transport.
func (s *OrganizationSettings) ToProvider() map[string]any {
	out := make(map[string]any)
	for _, spec := range s.schema.Specs() {
		if spec.ReadOnly || spec.WebOnly {
			continue
		}
		writeField(out, spec.Name, s.Get(spec.Name))
	}
	return out
}

// WebFields returns the set web-only fields.
func (s *OrganizationSettings) WebFields() map[string]any {
	out := make(map[string]any)
	for _, spec := range s.schema.Specs() {
		if !spec.WebOnly {
			continue
		}
		if v := s.Get(spec.Name); v.IsSet() {
			out[spec.Name] = v.Any()
		}
	}
	return out
}

// IsWebOrgSetting reports whether the named setting is served by the web
// transport.
func IsWebOrgSetting(name string) bool {
	spec, ok := orgSettingsSchema.Spec(name)
	return ok && spec.WebOnly
}

func writeField(out map[string]any, name string, v attr.Value) {
	switch {
	case v.IsSet():
		out[name] = v.Any()
	case v.IsNull():
		out[name] = nil
	}
}
