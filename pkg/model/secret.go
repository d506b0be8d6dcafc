package model

import "strings"

var orgSecretSchema = NewSchema(
	FieldSpec{Name: "name", Key: true},
	FieldSpec{Name: "value"},
	FieldSpec{Name: "visibility"},
	FieldSpec{Name: "selected_repositories", Unordered: true},
)

var repoSecretSchema = NewSchema(
	FieldSpec{Name: "name", Key: true},
	FieldSpec{Name: "value"},
)

// OrganizationSecret is an actions secret on organization level. The value
// is write-only: the provider never reports it back.
type OrganizationSecret struct {
	Fields
}

// NewOrganizationSecretFromDeclared builds an org secret from declared data.
func NewOrganizationSecretFromDeclared(data map[string]any) *OrganizationSecret {
	s := &OrganizationSecret{Fields: newFields(orgSecretSchema)}
	s.loadDict(data)
	return s
}

// NewOrganizationSecretFromLive builds an org secret from provider data.
func NewOrganizationSecretFromLive(data map[string]any) *OrganizationSecret {
	return NewOrganizationSecretFromDeclared(data)
}

func (s *OrganizationSecret) ObjectName() string {
	return "org_secret"
}

func (s *OrganizationSecret) Key() string {
	return s.Get("name").String()
}

func (s *OrganizationSecret) IncludeFieldForDiffComputation(name string) bool {
	// secret values can never be read back, so they never diff.
	if name == "value" {
		return false
	}
	if name == "selected_repositories" {
		return s.Get("visibility").String() == "selected"
	}
	return true
}

func (s *OrganizationSecret) Validate(ctx *ValidationContext, parent Object) {
	validateSecretValue(ctx, s, s.Get("value").String())

	if visibility := s.Get("visibility"); visibility.IsSet() {
		switch visibility.String() {
		case "all", "private", "selected":
		default:
			ctx.AddFailure(FailureError,
				"%s has 'visibility' of value '%s', "+
					"only values ('all' | 'private' | 'selected') are allowed.",
				Header(s), visibility.String())
		}
	}
}

// ToProvider renders the secret as a provider payload.
func (s *OrganizationSecret) ToProvider() map[string]any {
	return s.toDict()
}

// RepositorySecret is an actions secret on repository level.
type RepositorySecret struct {
	Fields
}

// NewRepositorySecretFromDeclared builds a repo secret from declared data.
func NewRepositorySecretFromDeclared(data map[string]any) *RepositorySecret {
	s := &RepositorySecret{Fields: newFields(repoSecretSchema)}
	s.loadDict(data)
	return s
}

// NewRepositorySecretFromLive builds a repo secret from provider data.
func NewRepositorySecretFromLive(data map[string]any) *RepositorySecret {
	return NewRepositorySecretFromDeclared(data)
}

func (s *RepositorySecret) ObjectName() string {
	return "repo_secret"
}

func (s *RepositorySecret) Key() string {
	return s.Get("name").String()
}

func (s *RepositorySecret) IncludeFieldForDiffComputation(name string) bool {
	return name != "value"
}

func (s *RepositorySecret) Validate(ctx *ValidationContext, parent Object) {
	validateSecretValue(ctx, s, s.Get("value").String())
}

// ToProvider renders the secret as a provider payload.
func (s *RepositorySecret) ToProvider() map[string]any {
	return s.toDict()
}

// validateSecretValue flags secret values that still contain an unresolved
// credential reference.
func validateSecretValue(ctx *ValidationContext, o Object, value string) {
	if strings.HasPrefix(value, "pass:") || strings.HasPrefix(value, "bitwarden:") {
		ctx.AddFailure(FailureWarning,
			"%s has an unresolved secret reference, it will be skipped during apply.", Header(o))
	}
}
