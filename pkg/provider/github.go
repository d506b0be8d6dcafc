package provider

import (
	"context"
	"errors"
)

// GitHub is the production Provider implementation, routing each verb to
// the transport that serves it.
type GitHub struct {
	rest *restClient
	gql  *graphQLClient
	web  WebClient
}

// ErrWebUINotAvailable is returned for web-served settings when the
// provider was constructed without a web client (--no-web-ui).
var ErrWebUINotAvailable = errors.New("web ui transport not available")

// NewGitHub creates a provider authenticated with the given token. The web
// client is optional; without it web-served settings are unavailable.
func NewGitHub(token string, web WebClient) (*GitHub, error) {
	req, err := newRequester(token)
	if err != nil {
		return nil, err
	}
	rest := &restClient{requester: req}

	gql, err := newGraphQLClient(token, rest)
	if err != nil {
		return nil, err
	}

	return &GitHub{rest: rest, gql: gql, web: web}, nil
}

// HasWebClient reports whether web-served settings can be read and
// written.
func (g *GitHub) HasWebClient() bool {
	return g.web != nil
}

func (g *GitHub) GetOrgSettings(ctx context.Context, orgID string) (map[string]any, error) {
	return g.rest.getOrgSettings(ctx, orgID)
}

func (g *GitHub) UpdateOrgSettings(ctx context.Context, orgID string, data map[string]any) error {
	return g.rest.updateOrgSettings(ctx, orgID, data)
}

func (g *GitHub) GetOrgSettingsWeb(ctx context.Context, orgID string) (map[string]any, error) {
	if g.web == nil {
		return nil, ErrWebUINotAvailable
	}
	return g.web.RetrieveSettings(ctx, orgID)
}

func (g *GitHub) UpdateOrgSettingsWeb(ctx context.Context, orgID string, data map[string]any) error {
	if g.web == nil {
		return ErrWebUINotAvailable
	}
	return g.web.UpdateSettings(ctx, orgID, data)
}

func (g *GitHub) GetOrgWorkflowSettings(ctx context.Context, orgID string) (map[string]any, error) {
	return g.rest.getOrgWorkflowSettings(ctx, orgID)
}

func (g *GitHub) UpdateOrgWorkflowSettings(ctx context.Context, orgID string, data map[string]any) error {
	return g.rest.updateOrgWorkflowSettings(ctx, orgID, data)
}

func (g *GitHub) ListWebhooks(ctx context.Context, orgID string) ([]map[string]any, error) {
	return g.rest.listWebhooks(ctx, orgID)
}

func (g *GitHub) AddWebhook(ctx context.Context, orgID string, data map[string]any) error {
	return g.rest.addWebhook(ctx, orgID, data)
}

func (g *GitHub) UpdateWebhook(ctx context.Context, orgID string, webhookID int64, data map[string]any) error {
	return g.rest.updateWebhook(ctx, orgID, webhookID, data)
}

func (g *GitHub) RemoveWebhook(ctx context.Context, orgID string, webhookID int64) error {
	return g.rest.removeWebhook(ctx, orgID, webhookID)
}

func (g *GitHub) ListRepos(ctx context.Context, orgID string) ([]string, error) {
	return g.rest.listRepos(ctx, orgID)
}

func (g *GitHub) GetRepoData(ctx context.Context, orgID, repoName string) (map[string]any, error) {
	return g.rest.getRepoData(ctx, orgID, repoName)
}

func (g *GitHub) AddRepo(ctx context.Context, orgID string, data map[string]any, templateRepository string, autoInit bool) error {
	return g.rest.addRepo(ctx, orgID, data, templateRepository, autoInit)
}

func (g *GitHub) UpdateRepo(ctx context.Context, orgID, repoName string, data map[string]any) error {
	return g.rest.updateRepo(ctx, orgID, repoName, data)
}

func (g *GitHub) RemoveRepo(ctx context.Context, orgID, repoName string) error {
	return g.rest.removeRepo(ctx, orgID, repoName)
}

func (g *GitHub) ListBranchProtectionRules(ctx context.Context, orgID, repoName string) ([]map[string]any, error) {
	return g.gql.listBranchProtectionRules(ctx, orgID, repoName)
}

func (g *GitHub) AddBranchProtectionRule(ctx context.Context, orgID, repoName string, data map[string]any) error {
	return g.gql.addBranchProtectionRule(ctx, orgID, repoName, data)
}

func (g *GitHub) UpdateBranchProtectionRule(ctx context.Context, orgID, repoName, ruleID string, data map[string]any) error {
	return g.gql.updateBranchProtectionRule(ctx, orgID, repoName, ruleID, data)
}

func (g *GitHub) RemoveBranchProtectionRule(ctx context.Context, orgID, repoName, ruleID string) error {
	return g.gql.removeBranchProtectionRule(ctx, orgID, repoName, ruleID)
}

func (g *GitHub) GetRepoWorkflowSettings(ctx context.Context, orgID, repoName string) (map[string]any, error) {
	return g.rest.getRepoWorkflowSettings(ctx, orgID, repoName)
}

func (g *GitHub) UpdateRepoWorkflowSettings(ctx context.Context, orgID, repoName string, data map[string]any) error {
	return g.rest.updateRepoWorkflowSettings(ctx, orgID, repoName, data)
}

func (g *GitHub) ListOrgSecrets(ctx context.Context, orgID string) ([]map[string]any, error) {
	return g.rest.listOrgSecrets(ctx, orgID)
}

func (g *GitHub) AddOrgSecret(ctx context.Context, orgID string, data map[string]any) error {
	return g.rest.putOrgSecret(ctx, orgID, data)
}

func (g *GitHub) UpdateOrgSecret(ctx context.Context, orgID, secretName string, data map[string]any) error {
	return g.rest.putOrgSecret(ctx, orgID, data)
}

func (g *GitHub) RemoveOrgSecret(ctx context.Context, orgID, secretName string) error {
	return g.rest.removeOrgSecret(ctx, orgID, secretName)
}

func (g *GitHub) ListRepoSecrets(ctx context.Context, orgID, repoName string) ([]map[string]any, error) {
	return g.rest.listRepoSecrets(ctx, orgID, repoName)
}

func (g *GitHub) AddRepoSecret(ctx context.Context, orgID, repoName string, data map[string]any) error {
	return g.rest.putRepoSecret(ctx, orgID, repoName, data)
}

func (g *GitHub) UpdateRepoSecret(ctx context.Context, orgID, repoName, secretName string, data map[string]any) error {
	return g.rest.putRepoSecret(ctx, orgID, repoName, data)
}

func (g *GitHub) RemoveRepoSecret(ctx context.Context, orgID, repoName, secretName string) error {
	return g.rest.removeRepoSecret(ctx, orgID, repoName, secretName)
}

func (g *GitHub) ListEnvironments(ctx context.Context, orgID, repoName string) ([]map[string]any, error) {
	return g.rest.listEnvironments(ctx, orgID, repoName)
}

func (g *GitHub) UpdateEnvironment(ctx context.Context, orgID, repoName, envName string, data map[string]any) error {
	return g.rest.putEnvironment(ctx, orgID, repoName, envName, data)
}

func (g *GitHub) RemoveEnvironment(ctx context.Context, orgID, repoName, envName string) error {
	return g.rest.removeEnvironment(ctx, orgID, repoName, envName)
}

func (g *GitHub) ListOrgRulesets(ctx context.Context, orgID string) ([]map[string]any, error) {
	return g.rest.listRulesets(ctx, "/orgs/"+orgID)
}

func (g *GitHub) AddOrgRuleset(ctx context.Context, orgID string, data map[string]any) error {
	return g.rest.addRuleset(ctx, "/orgs/"+orgID, data)
}

func (g *GitHub) UpdateOrgRuleset(ctx context.Context, orgID string, rulesetID int64, data map[string]any) error {
	return g.rest.updateRuleset(ctx, "/orgs/"+orgID, rulesetID, data)
}

func (g *GitHub) RemoveOrgRuleset(ctx context.Context, orgID string, rulesetID int64) error {
	return g.rest.removeRuleset(ctx, "/orgs/"+orgID, rulesetID)
}

func (g *GitHub) ListRepoRulesets(ctx context.Context, orgID, repoName string) ([]map[string]any, error) {
	return g.rest.listRulesets(ctx, "/repos/"+orgID+"/"+repoName)
}

func (g *GitHub) AddRepoRuleset(ctx context.Context, orgID, repoName string, data map[string]any) error {
	return g.rest.addRuleset(ctx, "/repos/"+orgID+"/"+repoName, data)
}

func (g *GitHub) UpdateRepoRuleset(ctx context.Context, orgID, repoName string, rulesetID int64, data map[string]any) error {
	return g.rest.updateRuleset(ctx, "/repos/"+orgID+"/"+repoName, rulesetID, data)
}

func (g *GitHub) RemoveRepoRuleset(ctx context.Context, orgID, repoName string, rulesetID int64) error {
	return g.rest.removeRuleset(ctx, "/repos/"+orgID+"/"+repoName, rulesetID)
}

func (g *GitHub) GetContent(ctx context.Context, orgID, repoName, path, ref string) (string, error) {
	return g.rest.getContent(ctx, orgID, repoName, path, ref)
}

func (g *GitHub) UpdateContent(ctx context.Context, orgID, repoName, path, content, message string) error {
	return g.rest.updateContent(ctx, orgID, repoName, path, content, message)
}

func (g *GitHub) GetUserNodeID(ctx context.Context, login string) (string, error) {
	return g.rest.getUserNodeID(ctx, login)
}

func (g *GitHub) GetTeamNodeID(ctx context.Context, combinedSlug string) (string, error) {
	return g.rest.getTeamNodeID(ctx, combinedSlug)
}

func (g *GitHub) GetAppNodeID(ctx context.Context, appSlug string) (string, error) {
	return g.rest.getAppNodeID(ctx, appSlug)
}

func (g *GitHub) GetRefForPullRequest(ctx context.Context, orgID, repoName string, pullNumber int) (string, error) {
	return g.rest.getRefForPullRequest(ctx, orgID, repoName, pullNumber)
}

func (g *GitHub) GetPullRequest(ctx context.Context, orgID, repoName string, pullNumber int) (map[string]any, error) {
	return g.rest.getPullRequest(ctx, orgID, repoName, pullNumber)
}

func (g *GitHub) ListPullRequests(ctx context.Context, orgID, repoName, state, baseRef string) ([]map[string]any, error) {
	return g.rest.listPullRequests(ctx, orgID, repoName, state, baseRef)
}

func (g *GitHub) CreateIssueComment(ctx context.Context, orgID, repoName string, issueNumber int, body string) error {
	return g.rest.createIssueComment(ctx, orgID, repoName, issueNumber, body)
}

func (g *GitHub) CreateCommitStatus(ctx context.Context, orgID, repoName, sha, state, statusContext, description string) error {
	return g.rest.createCommitStatus(ctx, orgID, repoName, sha, state, statusContext, description)
}

var _ Provider = (*GitHub)(nil)
