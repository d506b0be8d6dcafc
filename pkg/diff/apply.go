package diff

import (
	"context"
	"fmt"

	"github.com/autumnfound/otterdog/pkg/model"
	"github.com/autumnfound/otterdog/pkg/provider"
)

// Apply functions, one per entity kind. Each translates a patch into the
// provider verbs of its kind; they are bound by the differ and invoked by
// the applier.

func applyOrgSettings(ctx context.Context, patch *LivePatch, orgID string, p provider.Provider) error {
	if patch.Type != PatchChange {
		return fmt.Errorf("unexpected patch type '%s' for settings", patch.Type)
	}

	// settings split across two transports: web-only fields travel through
	// the browser session, everything else through the REST API.
	restData := make(map[string]any)
	webData := make(map[string]any)
	for name, value := range changesPayload(patch.Changes) {
		if model.IsWebOrgSetting(name) {
			webData[name] = value
		} else {
			restData[name] = value
		}
	}

	if len(restData) > 0 {
		if err := p.UpdateOrgSettings(ctx, orgID, restData); err != nil {
			return err
		}
	}
	if len(webData) > 0 {
		if err := p.UpdateOrgSettingsWeb(ctx, orgID, webData); err != nil {
			return err
		}
	}
	return nil
}

func applyOrgWorkflowSettings(ctx context.Context, patch *LivePatch, orgID string, p provider.Provider) error {
	switch patch.Type {
	case PatchAdd:
		settings := patch.Expected.(*model.OrganizationWorkflowSettings)
		return p.UpdateOrgWorkflowSettings(ctx, orgID, settings.ToProvider())
	case PatchChange:
		return p.UpdateOrgWorkflowSettings(ctx, orgID, changesPayload(patch.Changes))
	default:
		return fmt.Errorf("unexpected patch type '%s' for org_workflow_settings", patch.Type)
	}
}

func applyWebhook(ctx context.Context, patch *LivePatch, orgID string, p provider.Provider) error {
	switch patch.Type {
	case PatchAdd:
		hook := patch.Expected.(*model.Webhook)
		return p.AddWebhook(ctx, orgID, hook.ToProvider())
	case PatchChange:
		// the transport's PATCH semantics are partial for some fields
		// only, so the full reconstructed webhook is sent.
		hook := patch.Expected.(*model.Webhook)
		live := patch.Current.(*model.Webhook)
		return p.UpdateWebhook(ctx, orgID, live.ID, hook.ToProvider())
	default:
		live := patch.Current.(*model.Webhook)
		return p.RemoveWebhook(ctx, orgID, live.ID)
	}
}

func applyRepository(ctx context.Context, patch *LivePatch, orgID string, p provider.Provider) error {
	switch patch.Type {
	case PatchAdd:
		repo := patch.Expected.(*model.Repository)
		autoInit := repo.Get("auto_init").Bool()
		return p.AddRepo(ctx, orgID, repo.ToProvider(), repo.TemplateRepository(), autoInit)
	case PatchChange:
		repo := patch.Expected.(*model.Repository)
		return p.UpdateRepo(ctx, orgID, repo.Name(), changesPayload(patch.Changes))
	default:
		repo := patch.Current.(*model.Repository)
		return p.RemoveRepo(ctx, orgID, repo.Name())
	}
}

func applyBranchProtectionRule(ctx context.Context, patch *LivePatch, orgID string, p provider.Provider) error {
	repoName := parentRepoName(patch)

	switch patch.Type {
	case PatchAdd:
		rule := patch.Expected.(*model.BranchProtectionRule)
		return p.AddBranchProtectionRule(ctx, orgID, repoName, rule.ToProvider())
	case PatchChange:
		live := patch.Current.(*model.BranchProtectionRule)
		return p.UpdateBranchProtectionRule(ctx, orgID, repoName, live.ID(), changesPayload(patch.Changes))
	default:
		live := patch.Current.(*model.BranchProtectionRule)
		return p.RemoveBranchProtectionRule(ctx, orgID, repoName, live.ID())
	}
}

func applyRepoWorkflowSettings(ctx context.Context, patch *LivePatch, orgID string, p provider.Provider) error {
	repoName := parentRepoName(patch)

	switch patch.Type {
	case PatchAdd:
		settings := patch.Expected.(*model.RepositoryWorkflowSettings)
		return p.UpdateRepoWorkflowSettings(ctx, orgID, repoName, settings.ToProvider())
	case PatchChange:
		return p.UpdateRepoWorkflowSettings(ctx, orgID, repoName, changesPayload(patch.Changes))
	default:
		return fmt.Errorf("unexpected patch type '%s' for repo_workflow_settings", patch.Type)
	}
}

func applyOrgSecret(ctx context.Context, patch *LivePatch, orgID string, p provider.Provider) error {
	switch patch.Type {
	case PatchAdd:
		secret := patch.Expected.(*model.OrganizationSecret)
		return p.AddOrgSecret(ctx, orgID, secret.ToProvider())
	case PatchChange:
		secret := patch.Expected.(*model.OrganizationSecret)
		return p.UpdateOrgSecret(ctx, orgID, secret.Key(), secret.ToProvider())
	default:
		return p.RemoveOrgSecret(ctx, orgID, patch.Current.Key())
	}
}

func applyRepoSecret(ctx context.Context, patch *LivePatch, orgID string, p provider.Provider) error {
	repoName := parentRepoName(patch)

	switch patch.Type {
	case PatchAdd:
		secret := patch.Expected.(*model.RepositorySecret)
		return p.AddRepoSecret(ctx, orgID, repoName, secret.ToProvider())
	case PatchChange:
		secret := patch.Expected.(*model.RepositorySecret)
		return p.UpdateRepoSecret(ctx, orgID, repoName, secret.Key(), secret.ToProvider())
	default:
		return p.RemoveRepoSecret(ctx, orgID, repoName, patch.Current.Key())
	}
}

func applyEnvironment(ctx context.Context, patch *LivePatch, orgID string, p provider.Provider) error {
	repoName := parentRepoName(patch)

	switch patch.Type {
	case PatchAdd:
		env := patch.Expected.(*model.Environment)
		return p.UpdateEnvironment(ctx, orgID, repoName, env.Key(), env.ToProvider())
	case PatchChange:
		env := patch.Expected.(*model.Environment)
		return p.UpdateEnvironment(ctx, orgID, repoName, env.Key(), env.ToProvider())
	default:
		return p.RemoveEnvironment(ctx, orgID, repoName, patch.Current.Key())
	}
}

func applyOrgRuleset(ctx context.Context, patch *LivePatch, orgID string, p provider.Provider) error {
	switch patch.Type {
	case PatchAdd:
		ruleset := patch.Expected.(*model.Ruleset)
		return p.AddOrgRuleset(ctx, orgID, ruleset.ToProvider())
	case PatchChange:
		ruleset := patch.Expected.(*model.Ruleset)
		live := patch.Current.(*model.Ruleset)
		return p.UpdateOrgRuleset(ctx, orgID, live.Get("id").Int(), ruleset.ToProvider())
	default:
		live := patch.Current.(*model.Ruleset)
		return p.RemoveOrgRuleset(ctx, orgID, live.Get("id").Int())
	}
}

func applyRepoRuleset(ctx context.Context, patch *LivePatch, orgID string, p provider.Provider) error {
	repoName := parentRepoName(patch)

	switch patch.Type {
	case PatchAdd:
		ruleset := patch.Expected.(*model.Ruleset)
		return p.AddRepoRuleset(ctx, orgID, repoName, ruleset.ToProvider())
	case PatchChange:
		ruleset := patch.Expected.(*model.Ruleset)
		live := patch.Current.(*model.Ruleset)
		return p.UpdateRepoRuleset(ctx, orgID, repoName, live.Get("id").Int(), ruleset.ToProvider())
	default:
		live := patch.Current.(*model.Ruleset)
		return p.RemoveRepoRuleset(ctx, orgID, repoName, live.Get("id").Int())
	}
}

// parentRepoName resolves the owning repository of a child patch. The
// differ never emits a child patch without its repository parent.
func parentRepoName(patch *LivePatch) string {
	repo, ok := patch.Parent.(*model.Repository)
	if !ok {
		return ""
	}
	return repo.Name()
}
