// Package diff computes the live patch between an expected and a current
// organization model.
//
// A LivePatch is a pure value describing one ADD / CHANGE / REMOVE
// operation on one entity, with an apply function bound per entity kind.
// Patches are emitted in execution order: parents before children,
// organization settings before webhooks before repositories.
package diff

import (
	"context"
	"strings"

	"github.com/autumnfound/otterdog/pkg/model"
	"github.com/autumnfound/otterdog/pkg/provider"
)

// PatchType is the operation a LivePatch performs.
type PatchType int

const (
	PatchAdd PatchType = iota
	PatchChange
	PatchRemove
)

func (t PatchType) String() string {
	switch t {
	case PatchAdd:
		return "add"
	case PatchChange:
		return "change"
	default:
		return "remove"
	}
}

// Kind enumerates the entity kinds the engine dispatches on. The union is
// closed: a new entity kind requires extending both the differ and the
// provider surface.
type Kind int

const (
	KindOrgSettings Kind = iota
	KindOrgWorkflowSettings
	KindWebhook
	KindRepository
	KindBranchProtectionRule
	KindRepoWorkflowSettings
	KindOrgSecret
	KindRepoSecret
	KindEnvironment
	KindOrgRuleset
	KindRepoRuleset
)

func (k Kind) String() string {
	switch k {
	case KindOrgSettings:
		return "settings"
	case KindOrgWorkflowSettings:
		return "org_workflow_settings"
	case KindWebhook:
		return "webhook"
	case KindRepository:
		return "repository"
	case KindBranchProtectionRule:
		return "branch_protection_rule"
	case KindRepoWorkflowSettings:
		return "repo_workflow_settings"
	case KindOrgSecret:
		return "org_secret"
	case KindRepoSecret:
		return "repo_secret"
	case KindEnvironment:
		return "environment"
	case KindOrgRuleset:
		return "org_ruleset"
	default:
		return "repo_ruleset"
	}
}

// ApplyFunc executes one patch against the provider.
type ApplyFunc func(ctx context.Context, patch *LivePatch, orgID string, p provider.Provider) error

// LivePatch is a single reconciliation operation on one entity.
type LivePatch struct {
	Type PatchType
	Kind Kind

	// Expected is populated for ADD and CHANGE.
	Expected model.Object
	// Current is populated for CHANGE and REMOVE.
	Current model.Object
	// Parent is the owning model object, nil for org-level entities.
	Parent model.Object

	// Changes holds the per-field differences for CHANGE patches.
	Changes map[string]model.Change

	// ForcedUpdate marks patches whose payload must carry unchanged fields
	// alongside the changed ones because the provider requires them.
	ForcedUpdate bool

	apply ApplyFunc
}

// Apply executes the patch. The closure captures only the entity kind; the
// provider and organization are supplied at execution time.
func (p *LivePatch) Apply(ctx context.Context, orgID string, prov provider.Provider) error {
	// secrets whose value is still an unresolved credential reference are
	// skipped; validation reports them with a warning.
	var secretValue string
	switch secret := p.Expected.(type) {
	case *model.OrganizationSecret:
		secretValue = secret.Get("value").String()
	case *model.RepositorySecret:
		secretValue = secret.Get("value").String()
	}
	if p.Type != PatchRemove &&
		(strings.HasPrefix(secretValue, "pass:") || strings.HasPrefix(secretValue, "bitwarden:")) {
		return nil
	}
	return p.apply(ctx, p, orgID, prov)
}

// Object returns the primary entity of the patch: expected for ADD and
// CHANGE, current for REMOVE.
func (p *LivePatch) Object() model.Object {
	if p.Type == PatchRemove {
		return p.Current
	}
	return p.Expected
}

// RequiresSecrets reports whether executing the patch would write secret
// material. The webhook service uses this to flag changes that need a
// manual apply.
func (p *LivePatch) RequiresSecrets() bool {
	switch p.Kind {
	case KindWebhook:
		if hook, ok := p.Object().(*model.Webhook); ok {
			return hook.HasSecret()
		}
	case KindOrgSecret, KindRepoSecret:
		return p.Type != PatchRemove
	}
	return false
}

// changesPayload renders the expected side of the changes as a provider
// payload.
func changesPayload(changes map[string]model.Change) map[string]any {
	out := make(map[string]any, len(changes))
	for name, change := range changes {
		if change.Expected.IsNull() {
			out[name] = nil
			continue
		}
		out[name] = change.Expected.Any()
	}
	return out
}
