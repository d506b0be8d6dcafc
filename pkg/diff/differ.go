package diff

import (
	"sort"

	"github.com/autumnfound/otterdog/pkg/logger"
	"github.com/autumnfound/otterdog/pkg/model"
)

var differLog = logger.New("diff:differ")

// Diff pairs the expected organization with the current one and returns
// the ordered list of live patches turning current into expected.
//
// Ordering: organization settings first, then workflow settings, webhooks
// (stable by url), organization secrets and rulesets, then repositories
// (stable by name) each immediately followed by its children. A repository
// REMOVE suppresses all patches for that repository's children.
func Diff(expected, current *model.Organization) []*LivePatch {
	var patches []*LivePatch

	// organization scalars produce at most one CHANGE patch.
	if changes := model.Difference(expected.Settings, current.Settings); len(changes) > 0 {
		patches = append(patches, &LivePatch{
			Type:     PatchChange,
			Kind:     KindOrgSettings,
			Expected: expected.Settings,
			Current:  current.Settings,
			Changes:  changes,
			apply:    applyOrgSettings,
		})
	}

	patches = append(patches, diffOrgWorkflowSettings(expected, current)...)
	patches = append(patches, diffWebhooks(expected, current)...)
	patches = append(patches, diffOrgSecrets(expected, current)...)
	patches = append(patches, diffOrgRulesets(expected, current)...)
	patches = append(patches, diffRepositories(expected, current)...)

	differLog.Printf("computed %d patches for organization %s", len(patches), expected.GitHubID)
	return patches
}

func diffOrgWorkflowSettings(expected, current *model.Organization) []*LivePatch {
	if expected.WorkflowSettings == nil {
		return nil
	}
	if current.WorkflowSettings == nil {
		return []*LivePatch{{
			Type:     PatchAdd,
			Kind:     KindOrgWorkflowSettings,
			Expected: expected.WorkflowSettings,
			apply:    applyOrgWorkflowSettings,
		}}
	}
	changes := model.Difference(expected.WorkflowSettings, current.WorkflowSettings)
	if len(changes) == 0 {
		return nil
	}
	patch := &LivePatch{
		Type:     PatchChange,
		Kind:     KindOrgWorkflowSettings,
		Expected: expected.WorkflowSettings,
		Current:  current.WorkflowSettings,
		Changes:  changes,
		apply:    applyOrgWorkflowSettings,
	}
	forceEnabledAlongsideAllowedActions(patch, expected.WorkflowSettings)
	return []*LivePatch{patch}
}

func diffWebhooks(expected, current *model.Organization) []*LivePatch {
	currentByURL := make(map[string]*model.Webhook, len(current.Webhooks))
	for _, hook := range current.Webhooks {
		currentByURL[hook.Key()] = hook
	}

	var patches []*LivePatch
	for _, hook := range expected.SortedWebhooks() {
		live, ok := currentByURL[hook.Key()]
		if !ok {
			patches = append(patches, &LivePatch{
				Type:     PatchAdd,
				Kind:     KindWebhook,
				Expected: hook,
				apply:    applyWebhook,
			})
			continue
		}
		delete(currentByURL, hook.Key())
		if changes := model.Difference(hook, live); len(changes) > 0 {
			patches = append(patches, &LivePatch{
				Type:     PatchChange,
				Kind:     KindWebhook,
				Expected: hook,
				Current:  live,
				Changes:  changes,
				apply:    applyWebhook,
			})
		}
	}

	for _, hook := range current.SortedWebhooks() {
		if _, extra := currentByURL[hook.Key()]; extra {
			patches = append(patches, &LivePatch{
				Type:    PatchRemove,
				Kind:    KindWebhook,
				Current: hook,
				apply:   applyWebhook,
			})
		}
	}
	return patches
}

func diffRepositories(expected, current *model.Organization) []*LivePatch {
	currentByName := make(map[string]*model.Repository, len(current.Repositories))
	for _, repo := range current.Repositories {
		currentByName[repo.Name()] = repo
	}

	var patches []*LivePatch
	for _, repo := range expected.SortedRepositories() {
		live, ok := currentByName[repo.Name()]
		if !ok {
			// children are emitted after their repository's ADD so they
			// observe the created (possibly template-derived) state.
			patches = append(patches, &LivePatch{
				Type:     PatchAdd,
				Kind:     KindRepository,
				Expected: repo,
				apply:    applyRepository,
			})
			patches = append(patches, diffRepositoryChildren(repo, nil)...)
			continue
		}
		delete(currentByName, repo.Name())
		if changes := model.Difference(repo, live); len(changes) > 0 {
			patches = append(patches, &LivePatch{
				Type:     PatchChange,
				Kind:     KindRepository,
				Expected: repo,
				Current:  live,
				Changes:  changes,
				apply:    applyRepository,
			})
		}
		patches = append(patches, diffRepositoryChildren(repo, live)...)
	}

	// a removed repository takes its children with it: no child patches.
	for _, repo := range current.SortedRepositories() {
		if _, extra := currentByName[repo.Name()]; extra {
			patches = append(patches, &LivePatch{
				Type:    PatchRemove,
				Kind:    KindRepository,
				Current: repo,
				apply:   applyRepository,
			})
		}
	}
	return patches
}

func diffRepositoryChildren(expected, current *model.Repository) []*LivePatch {
	var patches []*LivePatch

	var currentRules []*model.BranchProtectionRule
	var currentSecrets []*model.RepositorySecret
	var currentEnvs []*model.Environment
	var currentRulesets []*model.Ruleset
	var currentWorkflows *model.RepositoryWorkflowSettings
	if current != nil {
		currentRules = current.BranchProtectionRules
		currentSecrets = current.Secrets
		currentEnvs = current.Environments
		currentRulesets = current.Rulesets
		currentWorkflows = current.WorkflowSettings
	}

	patches = append(patches, diffKeyed(expected.BranchProtectionRules, currentRules,
		KindBranchProtectionRule, expected, applyBranchProtectionRule)...)

	if expected.WorkflowSettings != nil {
		patches = append(patches, diffRepoWorkflowSettings(expected, expected.WorkflowSettings, currentWorkflows)...)
	}

	patches = append(patches, diffKeyed(expected.Secrets, currentSecrets,
		KindRepoSecret, expected, applyRepoSecret)...)
	patches = append(patches, diffKeyed(expected.Environments, currentEnvs,
		KindEnvironment, expected, applyEnvironment)...)
	patches = append(patches, diffKeyed(expected.Rulesets, currentRulesets,
		KindRepoRuleset, expected, applyRepoRuleset)...)
	return patches
}

func diffRepoWorkflowSettings(parent *model.Repository, expected, current *model.RepositoryWorkflowSettings) []*LivePatch {
	if current == nil {
		return []*LivePatch{{
			Type:     PatchAdd,
			Kind:     KindRepoWorkflowSettings,
			Expected: expected,
			Parent:   parent,
			apply:    applyRepoWorkflowSettings,
		}}
	}
	changes := model.Difference(expected, current)
	if len(changes) == 0 {
		return nil
	}
	patch := &LivePatch{
		Type:     PatchChange,
		Kind:     KindRepoWorkflowSettings,
		Expected: expected,
		Current:  current,
		Parent:   parent,
		Changes:  changes,
		apply:    applyRepoWorkflowSettings,
	}
	forceEnabledAlongsideAllowedActions(patch, expected)
	return []*LivePatch{patch}
}

// forceEnabledAlongsideAllowedActions injects the unchanged 'enabled' field
// into the change set whenever 'allowed_actions' changed: the provider
// promoted 'enabled' to a required property of the update payload.
func forceEnabledAlongsideAllowedActions(patch *LivePatch, expected model.Object) {
	if _, ok := patch.Changes["allowed_actions"]; !ok {
		return
	}
	if _, ok := patch.Changes["enabled"]; ok {
		return
	}
	enabled := expected.Get("enabled")
	if enabled.IsUnset() {
		return
	}
	patch.Changes["enabled"] = model.Change{Expected: enabled, Current: enabled}
	patch.ForcedUpdate = true
}

// diffKeyed pairs two keyed child collections of a repository and emits
// ADD / CHANGE / REMOVE patches, stable by key.
func diffKeyed[T model.Object](expected, current []T, kind Kind, parent model.Object, apply ApplyFunc) []*LivePatch {
	currentByKey := make(map[string]T, len(current))
	for _, o := range current {
		currentByKey[o.Key()] = o
	}

	var patches []*LivePatch
	for _, o := range sortedByKey(expected) {
		live, ok := currentByKey[o.Key()]
		if !ok {
			patches = append(patches, &LivePatch{
				Type:     PatchAdd,
				Kind:     kind,
				Expected: o,
				Parent:   parent,
				apply:    apply,
			})
			continue
		}
		delete(currentByKey, o.Key())
		if changes := model.Difference(o, live); len(changes) > 0 {
			patches = append(patches, &LivePatch{
				Type:     PatchChange,
				Kind:     kind,
				Expected: o,
				Current:  live,
				Parent:   parent,
				Changes:  changes,
				apply:    apply,
			})
		}
	}
	for _, o := range sortedByKey(current) {
		if _, extra := currentByKey[o.Key()]; extra {
			patches = append(patches, &LivePatch{
				Type:    PatchRemove,
				Kind:    kind,
				Current: o,
				Parent:  parent,
				apply:   apply,
			})
		}
	}
	return patches
}

func diffOrgSecrets(expected, current *model.Organization) []*LivePatch {
	return diffKeyed(expected.Secrets, current.Secrets, KindOrgSecret, nil, applyOrgSecret)
}

func diffOrgRulesets(expected, current *model.Organization) []*LivePatch {
	return diffKeyed(expected.Rulesets, current.Rulesets, KindOrgRuleset, nil, applyOrgRuleset)
}

func sortedByKey[T model.Object](objects []T) []T {
	out := make([]T, len(objects))
	copy(out, objects)
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
