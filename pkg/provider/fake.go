package provider

import (
	"context"
	"sync"
)

// Call records one provider invocation on the Fake.
type Call struct {
	Method string
	Org    string
	Repo   string
	Name   string
	Data   map[string]any
}

// Fake is an in-memory Provider used by tests. Reads serve canned data,
// writes are recorded. Errs maps method names to errors to inject.
type Fake struct {
	mu    sync.Mutex
	calls []Call

	OrgSettings         map[string]any
	OrgSettingsWeb      map[string]any
	OrgWorkflowSettings map[string]any
	Webhooks            []map[string]any
	Repos               map[string]map[string]any
	BranchProtections   map[string][]map[string]any
	RepoWorkflows       map[string]map[string]any
	OrgSecrets          []map[string]any
	RepoSecrets         map[string][]map[string]any
	Environments        map[string][]map[string]any
	OrgRulesets         []map[string]any
	RepoRulesets        map[string][]map[string]any
	Contents            map[string]string
	NodeIDs             map[string]string
	PullRequests        []map[string]any

	Errs map[string]error
}

// NewFake returns an empty fake provider.
func NewFake() *Fake {
	return &Fake{
		Repos:             make(map[string]map[string]any),
		BranchProtections: make(map[string][]map[string]any),
		RepoWorkflows:     make(map[string]map[string]any),
		RepoSecrets:       make(map[string][]map[string]any),
		Environments:      make(map[string][]map[string]any),
		RepoRulesets:      make(map[string][]map[string]any),
		Contents:          make(map[string]string),
		NodeIDs:           make(map[string]string),
		Errs:              make(map[string]error),
	}
}

// Calls returns the recorded invocations in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsTo returns the recorded invocations of one method.
func (f *Fake) CallsTo(method string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) record(c Call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.Errs[c.Method]
}

func (f *Fake) GetOrgSettings(ctx context.Context, orgID string) (map[string]any, error) {
	return f.OrgSettings, f.record(Call{Method: "GetOrgSettings", Org: orgID})
}

func (f *Fake) UpdateOrgSettings(ctx context.Context, orgID string, data map[string]any) error {
	return f.record(Call{Method: "UpdateOrgSettings", Org: orgID, Data: data})
}

func (f *Fake) GetOrgSettingsWeb(ctx context.Context, orgID string) (map[string]any, error) {
	return f.OrgSettingsWeb, f.record(Call{Method: "GetOrgSettingsWeb", Org: orgID})
}

func (f *Fake) UpdateOrgSettingsWeb(ctx context.Context, orgID string, data map[string]any) error {
	return f.record(Call{Method: "UpdateOrgSettingsWeb", Org: orgID, Data: data})
}

func (f *Fake) GetOrgWorkflowSettings(ctx context.Context, orgID string) (map[string]any, error) {
	return f.OrgWorkflowSettings, f.record(Call{Method: "GetOrgWorkflowSettings", Org: orgID})
}

func (f *Fake) UpdateOrgWorkflowSettings(ctx context.Context, orgID string, data map[string]any) error {
	return f.record(Call{Method: "UpdateOrgWorkflowSettings", Org: orgID, Data: data})
}

func (f *Fake) ListWebhooks(ctx context.Context, orgID string) ([]map[string]any, error) {
	return f.Webhooks, f.record(Call{Method: "ListWebhooks", Org: orgID})
}

func (f *Fake) AddWebhook(ctx context.Context, orgID string, data map[string]any) error {
	return f.record(Call{Method: "AddWebhook", Org: orgID, Data: data})
}

func (f *Fake) UpdateWebhook(ctx context.Context, orgID string, webhookID int64, data map[string]any) error {
	return f.record(Call{Method: "UpdateWebhook", Org: orgID, Data: data})
}

func (f *Fake) RemoveWebhook(ctx context.Context, orgID string, webhookID int64) error {
	return f.record(Call{Method: "RemoveWebhook", Org: orgID})
}

func (f *Fake) ListRepos(ctx context.Context, orgID string) ([]string, error) {
	names := make([]string, 0, len(f.Repos))
	for name := range f.Repos {
		names = append(names, name)
	}
	return names, f.record(Call{Method: "ListRepos", Org: orgID})
}

func (f *Fake) GetRepoData(ctx context.Context, orgID, repoName string) (map[string]any, error) {
	return f.Repos[repoName], f.record(Call{Method: "GetRepoData", Org: orgID, Repo: repoName})
}

func (f *Fake) AddRepo(ctx context.Context, orgID string, data map[string]any, templateRepository string, autoInit bool) error {
	return f.record(Call{Method: "AddRepo", Org: orgID, Name: templateRepository, Data: data})
}

func (f *Fake) UpdateRepo(ctx context.Context, orgID, repoName string, data map[string]any) error {
	return f.record(Call{Method: "UpdateRepo", Org: orgID, Repo: repoName, Data: data})
}

func (f *Fake) RemoveRepo(ctx context.Context, orgID, repoName string) error {
	return f.record(Call{Method: "RemoveRepo", Org: orgID, Repo: repoName})
}

func (f *Fake) ListBranchProtectionRules(ctx context.Context, orgID, repoName string) ([]map[string]any, error) {
	return f.BranchProtections[repoName], f.record(Call{Method: "ListBranchProtectionRules", Org: orgID, Repo: repoName})
}

func (f *Fake) AddBranchProtectionRule(ctx context.Context, orgID, repoName string, data map[string]any) error {
	return f.record(Call{Method: "AddBranchProtectionRule", Org: orgID, Repo: repoName, Data: data})
}

func (f *Fake) UpdateBranchProtectionRule(ctx context.Context, orgID, repoName, ruleID string, data map[string]any) error {
	return f.record(Call{Method: "UpdateBranchProtectionRule", Org: orgID, Repo: repoName, Name: ruleID, Data: data})
}

func (f *Fake) RemoveBranchProtectionRule(ctx context.Context, orgID, repoName, ruleID string) error {
	return f.record(Call{Method: "RemoveBranchProtectionRule", Org: orgID, Repo: repoName, Name: ruleID})
}

func (f *Fake) GetRepoWorkflowSettings(ctx context.Context, orgID, repoName string) (map[string]any, error) {
	return f.RepoWorkflows[repoName], f.record(Call{Method: "GetRepoWorkflowSettings", Org: orgID, Repo: repoName})
}

func (f *Fake) UpdateRepoWorkflowSettings(ctx context.Context, orgID, repoName string, data map[string]any) error {
	return f.record(Call{Method: "UpdateRepoWorkflowSettings", Org: orgID, Repo: repoName, Data: data})
}

func (f *Fake) ListOrgSecrets(ctx context.Context, orgID string) ([]map[string]any, error) {
	return f.OrgSecrets, f.record(Call{Method: "ListOrgSecrets", Org: orgID})
}

func (f *Fake) AddOrgSecret(ctx context.Context, orgID string, data map[string]any) error {
	return f.record(Call{Method: "AddOrgSecret", Org: orgID, Data: data})
}

func (f *Fake) UpdateOrgSecret(ctx context.Context, orgID, secretName string, data map[string]any) error {
	return f.record(Call{Method: "UpdateOrgSecret", Org: orgID, Name: secretName, Data: data})
}

func (f *Fake) RemoveOrgSecret(ctx context.Context, orgID, secretName string) error {
	return f.record(Call{Method: "RemoveOrgSecret", Org: orgID, Name: secretName})
}

func (f *Fake) ListRepoSecrets(ctx context.Context, orgID, repoName string) ([]map[string]any, error) {
	return f.RepoSecrets[repoName], f.record(Call{Method: "ListRepoSecrets", Org: orgID, Repo: repoName})
}

func (f *Fake) AddRepoSecret(ctx context.Context, orgID, repoName string, data map[string]any) error {
	return f.record(Call{Method: "AddRepoSecret", Org: orgID, Repo: repoName, Data: data})
}

func (f *Fake) UpdateRepoSecret(ctx context.Context, orgID, repoName, secretName string, data map[string]any) error {
	return f.record(Call{Method: "UpdateRepoSecret", Org: orgID, Repo: repoName, Name: secretName, Data: data})
}

func (f *Fake) RemoveRepoSecret(ctx context.Context, orgID, repoName, secretName string) error {
	return f.record(Call{Method: "RemoveRepoSecret", Org: orgID, Repo: repoName, Name: secretName})
}

func (f *Fake) ListEnvironments(ctx context.Context, orgID, repoName string) ([]map[string]any, error) {
	return f.Environments[repoName], f.record(Call{Method: "ListEnvironments", Org: orgID, Repo: repoName})
}

func (f *Fake) UpdateEnvironment(ctx context.Context, orgID, repoName, envName string, data map[string]any) error {
	return f.record(Call{Method: "UpdateEnvironment", Org: orgID, Repo: repoName, Name: envName, Data: data})
}

func (f *Fake) RemoveEnvironment(ctx context.Context, orgID, repoName, envName string) error {
	return f.record(Call{Method: "RemoveEnvironment", Org: orgID, Repo: repoName, Name: envName})
}

func (f *Fake) ListOrgRulesets(ctx context.Context, orgID string) ([]map[string]any, error) {
	return f.OrgRulesets, f.record(Call{Method: "ListOrgRulesets", Org: orgID})
}

func (f *Fake) AddOrgRuleset(ctx context.Context, orgID string, data map[string]any) error {
	return f.record(Call{Method: "AddOrgRuleset", Org: orgID, Data: data})
}

func (f *Fake) UpdateOrgRuleset(ctx context.Context, orgID string, rulesetID int64, data map[string]any) error {
	return f.record(Call{Method: "UpdateOrgRuleset", Org: orgID, Data: data})
}

func (f *Fake) RemoveOrgRuleset(ctx context.Context, orgID string, rulesetID int64) error {
	return f.record(Call{Method: "RemoveOrgRuleset", Org: orgID})
}

func (f *Fake) ListRepoRulesets(ctx context.Context, orgID, repoName string) ([]map[string]any, error) {
	return f.RepoRulesets[repoName], f.record(Call{Method: "ListRepoRulesets", Org: orgID, Repo: repoName})
}

func (f *Fake) AddRepoRuleset(ctx context.Context, orgID, repoName string, data map[string]any) error {
	return f.record(Call{Method: "AddRepoRuleset", Org: orgID, Repo: repoName, Data: data})
}

func (f *Fake) UpdateRepoRuleset(ctx context.Context, orgID, repoName string, rulesetID int64, data map[string]any) error {
	return f.record(Call{Method: "UpdateRepoRuleset", Org: orgID, Repo: repoName, Data: data})
}

func (f *Fake) RemoveRepoRuleset(ctx context.Context, orgID, repoName string, rulesetID int64) error {
	return f.record(Call{Method: "RemoveRepoRuleset", Org: orgID, Repo: repoName})
}

func (f *Fake) GetContent(ctx context.Context, orgID, repoName, path, ref string) (string, error) {
	return f.Contents[repoName+"/"+path], f.record(Call{Method: "GetContent", Org: orgID, Repo: repoName, Name: path})
}

func (f *Fake) UpdateContent(ctx context.Context, orgID, repoName, path, content, message string) error {
	f.mu.Lock()
	f.Contents[repoName+"/"+path] = content
	f.mu.Unlock()
	return f.record(Call{Method: "UpdateContent", Org: orgID, Repo: repoName, Name: path})
}

func (f *Fake) GetUserNodeID(ctx context.Context, login string) (string, error) {
	return f.NodeIDs[login], f.record(Call{Method: "GetUserNodeID", Name: login})
}

func (f *Fake) GetTeamNodeID(ctx context.Context, combinedSlug string) (string, error) {
	return f.NodeIDs[combinedSlug], f.record(Call{Method: "GetTeamNodeID", Name: combinedSlug})
}

func (f *Fake) GetAppNodeID(ctx context.Context, appSlug string) (string, error) {
	return f.NodeIDs[appSlug], f.record(Call{Method: "GetAppNodeID", Name: appSlug})
}

func (f *Fake) GetRefForPullRequest(ctx context.Context, orgID, repoName string, pullNumber int) (string, error) {
	return "", f.record(Call{Method: "GetRefForPullRequest", Org: orgID, Repo: repoName})
}

func (f *Fake) GetPullRequest(ctx context.Context, orgID, repoName string, pullNumber int) (map[string]any, error) {
	for _, pr := range f.PullRequests {
		if n, ok := pr["number"].(float64); ok && int(n) == pullNumber {
			return pr, f.record(Call{Method: "GetPullRequest", Org: orgID, Repo: repoName})
		}
	}
	return nil, f.record(Call{Method: "GetPullRequest", Org: orgID, Repo: repoName})
}

func (f *Fake) ListPullRequests(ctx context.Context, orgID, repoName, state, baseRef string) ([]map[string]any, error) {
	return f.PullRequests, f.record(Call{Method: "ListPullRequests", Org: orgID, Repo: repoName, Name: state})
}

func (f *Fake) CreateIssueComment(ctx context.Context, orgID, repoName string, issueNumber int, body string) error {
	return f.record(Call{Method: "CreateIssueComment", Org: orgID, Repo: repoName, Name: body})
}

func (f *Fake) CreateCommitStatus(ctx context.Context, orgID, repoName, sha, state, statusContext, description string) error {
	return f.record(Call{Method: "CreateCommitStatus", Org: orgID, Repo: repoName, Name: state})
}

var _ Provider = (*Fake)(nil)
