// Package provider implements the single facade over the three GitHub
// transports: the REST API, the GraphQL API and the scripted web interface.
//
// Callers address entities through typed verbs; which transport serves
// which field is hidden behind the facade.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// Provider is the single surface the reconciliation engine talks to.
type Provider interface {
	// organization settings
	GetOrgSettings(ctx context.Context, orgID string) (map[string]any, error)
	UpdateOrgSettings(ctx context.Context, orgID string, data map[string]any) error
	GetOrgSettingsWeb(ctx context.Context, orgID string) (map[string]any, error)
	UpdateOrgSettingsWeb(ctx context.Context, orgID string, data map[string]any) error

	// organization workflow settings
	GetOrgWorkflowSettings(ctx context.Context, orgID string) (map[string]any, error)
	UpdateOrgWorkflowSettings(ctx context.Context, orgID string, data map[string]any) error

	// webhooks
	ListWebhooks(ctx context.Context, orgID string) ([]map[string]any, error)
	AddWebhook(ctx context.Context, orgID string, data map[string]any) error
	UpdateWebhook(ctx context.Context, orgID string, webhookID int64, data map[string]any) error
	RemoveWebhook(ctx context.Context, orgID string, webhookID int64) error

	// repositories
	ListRepos(ctx context.Context, orgID string) ([]string, error)
	GetRepoData(ctx context.Context, orgID, repoName string) (map[string]any, error)
	AddRepo(ctx context.Context, orgID string, data map[string]any, templateRepository string, autoInit bool) error
	UpdateRepo(ctx context.Context, orgID, repoName string, data map[string]any) error
	RemoveRepo(ctx context.Context, orgID, repoName string) error

	// branch protection rules (GraphQL)
	ListBranchProtectionRules(ctx context.Context, orgID, repoName string) ([]map[string]any, error)
	AddBranchProtectionRule(ctx context.Context, orgID, repoName string, data map[string]any) error
	UpdateBranchProtectionRule(ctx context.Context, orgID, repoName, ruleID string, data map[string]any) error
	RemoveBranchProtectionRule(ctx context.Context, orgID, repoName, ruleID string) error

	// repository workflow settings
	GetRepoWorkflowSettings(ctx context.Context, orgID, repoName string) (map[string]any, error)
	UpdateRepoWorkflowSettings(ctx context.Context, orgID, repoName string, data map[string]any) error

	// secrets
	ListOrgSecrets(ctx context.Context, orgID string) ([]map[string]any, error)
	AddOrgSecret(ctx context.Context, orgID string, data map[string]any) error
	UpdateOrgSecret(ctx context.Context, orgID, secretName string, data map[string]any) error
	RemoveOrgSecret(ctx context.Context, orgID, secretName string) error
	ListRepoSecrets(ctx context.Context, orgID, repoName string) ([]map[string]any, error)
	AddRepoSecret(ctx context.Context, orgID, repoName string, data map[string]any) error
	UpdateRepoSecret(ctx context.Context, orgID, repoName, secretName string, data map[string]any) error
	RemoveRepoSecret(ctx context.Context, orgID, repoName, secretName string) error

	// environments
	ListEnvironments(ctx context.Context, orgID, repoName string) ([]map[string]any, error)
	UpdateEnvironment(ctx context.Context, orgID, repoName, envName string, data map[string]any) error
	RemoveEnvironment(ctx context.Context, orgID, repoName, envName string) error

	// rulesets
	ListOrgRulesets(ctx context.Context, orgID string) ([]map[string]any, error)
	AddOrgRuleset(ctx context.Context, orgID string, data map[string]any) error
	UpdateOrgRuleset(ctx context.Context, orgID string, rulesetID int64, data map[string]any) error
	RemoveOrgRuleset(ctx context.Context, orgID string, rulesetID int64) error
	ListRepoRulesets(ctx context.Context, orgID, repoName string) ([]map[string]any, error)
	AddRepoRuleset(ctx context.Context, orgID, repoName string, data map[string]any) error
	UpdateRepoRuleset(ctx context.Context, orgID, repoName string, rulesetID int64, data map[string]any) error
	RemoveRepoRuleset(ctx context.Context, orgID, repoName string, rulesetID int64) error

	// repository contents
	GetContent(ctx context.Context, orgID, repoName, path, ref string) (string, error)
	UpdateContent(ctx context.Context, orgID, repoName, path, content, message string) error

	// opaque node id lookups, required to translate declared slugs into
	// the ids used by GraphQL mutations.
	GetUserNodeID(ctx context.Context, login string) (string, error)
	GetTeamNodeID(ctx context.Context, combinedSlug string) (string, error)
	GetAppNodeID(ctx context.Context, appSlug string) (string, error)

	// pull requests and statuses, used by the webhook service
	GetRefForPullRequest(ctx context.Context, orgID, repoName string, pullNumber int) (string, error)
	GetPullRequest(ctx context.Context, orgID, repoName string, pullNumber int) (map[string]any, error)
	ListPullRequests(ctx context.Context, orgID, repoName, state, baseRef string) ([]map[string]any, error)
	CreateIssueComment(ctx context.Context, orgID, repoName string, issueNumber int, body string) error
	CreateCommitStatus(ctx context.Context, orgID, repoName, sha, state, statusContext, description string) error
}

// ForgeError is returned for any HTTP status >= 400 other than bad
// credentials.
type ForgeError struct {
	Status int
	URL    string
	Body   string
}

func (e *ForgeError) Error() string {
	return fmt.Sprintf("github request failed: status=%d url=%s: %s", e.Status, e.URL, e.Body)
}

// BadCredentialsError is returned for 401 responses; it is fatal and never
// retried.
type BadCredentialsError struct {
	URL string
}

func (e *BadCredentialsError) Error() string {
	return fmt.Sprintf("bad credentials for url %s", e.URL)
}

// IsBadCredentials reports whether err is a credential failure.
func IsBadCredentials(err error) bool {
	var bc *BadCredentialsError
	return errors.As(err, &bc)
}
