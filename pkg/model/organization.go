package model

import (
	"fmt"
	"sort"
)

// Organization is the root of the entity tree.
type Organization struct {
	GitHubID string

	Settings         *OrganizationSettings
	WorkflowSettings *OrganizationWorkflowSettings
	Webhooks         []*Webhook
	Repositories     []*Repository
	Secrets          []*OrganizationSecret
	Rulesets         []*Ruleset
}

// NewOrganizationFromDeclared builds the full organization tree from
// declared (evaluated) configuration data.
func NewOrganizationFromDeclared(githubID string, data map[string]any) (*Organization, error) {
	org := &Organization{GitHubID: githubID}

	if settings, ok := data["settings"].(map[string]any); ok {
		org.Settings = NewOrganizationSettingsFromDeclared(settings)
		if workflows, ok := settings["workflows"].(map[string]any); ok {
			org.WorkflowSettings = NewOrganizationWorkflowSettingsFromDeclared(workflows)
		}
	} else {
		org.Settings = newOrganizationSettings()
	}

	for _, child := range childList(data, "webhooks") {
		org.Webhooks = append(org.Webhooks, NewWebhookFromDeclared(child))
	}
	for _, child := range childList(data, "repositories") {
		org.Repositories = append(org.Repositories, NewRepositoryFromDeclared(child))
	}
	for _, child := range childList(data, "secrets") {
		org.Secrets = append(org.Secrets, NewOrganizationSecretFromDeclared(child))
	}
	for _, child := range childList(data, "rulesets") {
		org.Rulesets = append(org.Rulesets, NewRulesetFromDeclared(child))
	}

	if err := org.checkKeyUniqueness(); err != nil {
		return nil, err
	}
	return org, nil
}

// checkKeyUniqueness enforces that no two children of the same collection
// share a key.
func (o *Organization) checkKeyUniqueness() error {
	if err := uniqueKeys("webhook", keysOf(o.Webhooks)); err != nil {
		return err
	}
	if err := uniqueKeys("repository", keysOf(o.Repositories)); err != nil {
		return err
	}
	if err := uniqueKeys("org_secret", keysOf(o.Secrets)); err != nil {
		return err
	}
	if err := uniqueKeys("ruleset", keysOf(o.Rulesets)); err != nil {
		return err
	}
	for _, repo := range o.Repositories {
		if err := uniqueKeys(fmt.Sprintf("branch_protection_rule of repo[name=%q]", repo.Name()),
			keysOf(repo.BranchProtectionRules)); err != nil {
			return err
		}
		if err := uniqueKeys(fmt.Sprintf("secret of repo[name=%q]", repo.Name()),
			keysOf(repo.Secrets)); err != nil {
			return err
		}
		if err := uniqueKeys(fmt.Sprintf("environment of repo[name=%q]", repo.Name()),
			keysOf(repo.Environments)); err != nil {
			return err
		}
		if err := uniqueKeys(fmt.Sprintf("ruleset of repo[name=%q]", repo.Name()),
			keysOf(repo.Rulesets)); err != nil {
			return err
		}
	}
	return nil
}

func keysOf[T Object](objects []T) []string {
	keys := make([]string, len(objects))
	for i, o := range objects {
		keys[i] = o.Key()
	}
	return keys
}

func uniqueKeys(kind string, keys []string) error {
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			return fmt.Errorf("duplicate %s with key %q", kind, k)
		}
		seen[k] = true
	}
	return nil
}

// Validate runs the full validation pass and returns the collected context.
func (o *Organization) Validate() *ValidationContext {
	ctx := NewValidationContext(o)

	o.Settings.Validate(ctx, nil)
	if o.WorkflowSettings != nil {
		o.WorkflowSettings.Validate(ctx, nil)
	}
	for _, webhook := range o.Webhooks {
		webhook.Validate(ctx, nil)
	}
	for _, repo := range o.Repositories {
		repo.Validate(ctx, o.Settings)
	}
	for _, secret := range o.Secrets {
		secret.Validate(ctx, nil)
	}
	for _, ruleset := range o.Rulesets {
		ruleset.Validate(ctx, nil)
	}
	return ctx
}

// SortedRepositories returns the repositories ordered by name.
func (o *Organization) SortedRepositories() []*Repository {
	repos := make([]*Repository, len(o.Repositories))
	copy(repos, o.Repositories)
	sort.Slice(repos, func(i, j int) bool { return repos[i].Name() < repos[j].Name() })
	return repos
}

// SortedWebhooks returns the webhooks ordered by url.
func (o *Organization) SortedWebhooks() []*Webhook {
	hooks := make([]*Webhook, len(o.Webhooks))
	copy(hooks, o.Webhooks)
	sort.Slice(hooks, func(i, j int) bool { return hooks[i].Key() < hooks[j].Key() })
	return hooks
}

// ToDeclared renders the organization back to declared form, the inverse of
// NewOrganizationFromDeclared up to unset normalization.
func (o *Organization) ToDeclared() map[string]any {
	settings := o.Settings.toDict()
	if o.WorkflowSettings != nil {
		settings["workflows"] = o.WorkflowSettings.toDict()
	}
	out := map[string]any{
		"github_id": o.GitHubID,
		"settings":  settings,
	}
	if len(o.Webhooks) > 0 {
		hooks := make([]any, 0, len(o.Webhooks))
		for _, w := range o.SortedWebhooks() {
			hooks = append(hooks, w.toDict())
		}
		out["webhooks"] = hooks
	}
	if len(o.Repositories) > 0 {
		repos := make([]any, 0, len(o.Repositories))
		for _, r := range o.SortedRepositories() {
			repos = append(repos, r.ToDeclared())
		}
		out["repositories"] = repos
	}
	if len(o.Secrets) > 0 {
		secrets := make([]any, 0, len(o.Secrets))
		for _, s := range o.Secrets {
			secrets = append(secrets, s.toDict())
		}
		out["secrets"] = secrets
	}
	if len(o.Rulesets) > 0 {
		rulesets := make([]any, 0, len(o.Rulesets))
		for _, r := range o.Rulesets {
			rulesets = append(rulesets, r.toDict())
		}
		out["rulesets"] = rulesets
	}
	return out
}
