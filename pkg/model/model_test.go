package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autumnfound/otterdog/pkg/attr"
)

func declaredRepo(t *testing.T, data map[string]any) *Repository {
	t.Helper()
	if _, ok := data["name"]; !ok {
		data["name"] = "test-repo"
	}
	return NewRepositoryFromDeclared(data)
}

func TestDifferenceOfIdenticalObjectsIsEmpty(t *testing.T) {
	data := map[string]any{
		"name":                   "test-repo",
		"private":                false,
		"default_branch":         "main",
		"delete_branch_on_merge": true,
	}
	a := declaredRepo(t, data)
	b := declaredRepo(t, data)

	assert.Empty(t, Difference(a, b))
}

func TestDifferenceUnsetFieldNeverAppears(t *testing.T) {
	expected := declaredRepo(t, map[string]any{"name": "test-repo"})
	current := declaredRepo(t, map[string]any{
		"name":           "test-repo",
		"default_branch": "main",
		"has_wiki":       true,
	})

	assert.Empty(t, Difference(expected, current))
}

func TestDifferenceDetectsChangedField(t *testing.T) {
	expected := declaredRepo(t, map[string]any{"name": "test-repo", "delete_branch_on_merge": true})
	current := declaredRepo(t, map[string]any{"name": "test-repo", "delete_branch_on_merge": false})

	changes := Difference(expected, current)
	require.Len(t, changes, 1)
	change := changes["delete_branch_on_merge"]
	assert.Equal(t, true, change.Expected.Any())
	assert.Equal(t, false, change.Current.Any())
}

func TestDifferenceNullExpectedVsSetCurrent(t *testing.T) {
	expected := declaredRepo(t, map[string]any{"name": "test-repo", "description": nil})
	current := declaredRepo(t, map[string]any{"name": "test-repo", "description": "old"})

	changes := Difference(expected, current)
	require.Contains(t, changes, "description")
	assert.True(t, changes["description"].Expected.IsNull())
	assert.Equal(t, "old", changes["description"].Current.String())
}

func TestDifferenceSkipsFieldsMaskedOnEitherSide(t *testing.T) {
	// the current repo is archived: merge policy fields are unobservable.
	expected := declaredRepo(t, map[string]any{
		"name":                   "test-repo",
		"delete_branch_on_merge": true,
	})
	current := declaredRepo(t, map[string]any{
		"name":                   "test-repo",
		"archived":               true,
		"delete_branch_on_merge": false,
	})

	assert.Empty(t, Difference(expected, current))
}

func TestArchivedRepoMasksFrozenFields(t *testing.T) {
	repo := declaredRepo(t, map[string]any{"name": "test-repo", "archived": true})

	for name := range unavailableFieldsInArchivedRepos {
		assert.False(t, repo.IncludeFieldForDiffComputation(name), name)
	}
	assert.True(t, repo.IncludeFieldForDiffComputation("description"))
}

func TestPrivateRepoMasksSecretScanning(t *testing.T) {
	repo := declaredRepo(t, map[string]any{"name": "test-repo", "private": true})

	assert.False(t, repo.IncludeFieldForDiffComputation("secret_scanning"))
	assert.False(t, repo.IncludeFieldForDiffComputation("secret_scanning_push_protection"))

	public := declaredRepo(t, map[string]any{"name": "test-repo", "private": false})
	assert.True(t, public.IncludeFieldForDiffComputation("secret_scanning"))
}

func TestRepositoryFromLiveFlattensSecurityAndAnalysis(t *testing.T) {
	repo := NewRepositoryFromLive(map[string]any{
		"name": "test-repo",
		"security_and_analysis": map[string]any{
			"secret_scanning":                 map[string]any{"status": "enabled"},
			"secret_scanning_push_protection": map[string]any{"status": "disabled"},
		},
	})

	assert.Equal(t, "enabled", repo.Get("secret_scanning").String())
	assert.Equal(t, "disabled", repo.Get("secret_scanning_push_protection").String())
}

func TestWebhookFromLiveFlattensConfig(t *testing.T) {
	hook := NewWebhookFromLive(map[string]any{
		"id":     float64(42),
		"active": true,
		"events": []any{"push"},
		"config": map[string]any{
			"url":          "https://example.org/hook",
			"content_type": "json",
			"secret":       "********",
		},
	})

	assert.Equal(t, int64(42), hook.ID)
	assert.Equal(t, "https://example.org/hook", hook.Key())
	assert.True(t, hook.HasRedactedSecret())
	assert.False(t, hook.HasSecret())
	// a redacted secret never takes part in diffing.
	assert.False(t, hook.IncludeFieldForDiffComputation("secret"))
}

func TestWebhookEventsCompareUnordered(t *testing.T) {
	a := NewWebhookFromDeclared(map[string]any{
		"url":    "https://example.org/hook",
		"events": []any{"push", "pull_request"},
	})
	b := NewWebhookFromDeclared(map[string]any{
		"url":    "https://example.org/hook",
		"events": []any{"pull_request", "push"},
	})

	assert.Empty(t, Difference(a, b))
}

func TestWebhookToProviderSendsFullObject(t *testing.T) {
	hook := NewWebhookFromDeclared(map[string]any{
		"url":          "https://example.org/hook",
		"active":       true,
		"events":       []any{"push"},
		"content_type": "json",
		"secret":       "s3cr3t",
	})

	data := hook.ToProvider()
	config, ok := data["config"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "https://example.org/hook", config["url"])
	assert.Equal(t, "s3cr3t", config["secret"])
	assert.Equal(t, true, data["active"])
}

func TestOrganizationSettingsWebFieldsUnsetWithoutWebData(t *testing.T) {
	settings := NewOrganizationSettingsFromLive(map[string]any{
		"plan":                "free",
		"default_branch_name": "master", // provider never reports this, but guard anyway
	}, nil)

	assert.True(t, settings.Get("default_branch_name").IsUnset())
	assert.Equal(t, "free", settings.Get("plan").String())
}

func TestOrganizationSettingsMergesWebData(t *testing.T) {
	settings := NewOrganizationSettingsFromLive(
		map[string]any{"plan": "free"},
		map[string]any{"default_branch_name": "main", "readers_can_create_discussions": true},
	)

	assert.Equal(t, "main", settings.Get("default_branch_name").String())
	assert.True(t, settings.Get("readers_can_create_discussions").Bool())
}

func TestKeyUniquenessViolation(t *testing.T) {
	_, err := NewOrganizationFromDeclared("test-org", map[string]any{
		"repositories": []any{
			map[string]any{"name": "dup"},
			map[string]any{"name": "dup"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate repository")
}

func TestOrganizationRoundTrip(t *testing.T) {
	data := map[string]any{
		"settings": map[string]any{
			"plan":                        "free",
			"web_commit_signoff_required": true,
			"workflows": map[string]any{
				"enabled_repositories": "all",
			},
		},
		"webhooks": []any{
			map[string]any{"url": "https://example.org/hook", "events": []any{"push"}},
		},
		"repositories": []any{
			map[string]any{
				"name":           "test-repo",
				"default_branch": "main",
				"branch_protection_rules": []any{
					map[string]any{"pattern": "main", "requires_approving_reviews": true},
				},
			},
		},
	}

	org, err := NewOrganizationFromDeclared("test-org", data)
	require.NoError(t, err)

	rendered := org.ToDeclared()
	reloaded, err := NewOrganizationFromDeclared("test-org", rendered)
	require.NoError(t, err)

	assert.Empty(t, Difference(org.Settings, reloaded.Settings))
	require.Len(t, reloaded.Webhooks, 1)
	assert.Empty(t, Difference(org.Webhooks[0], reloaded.Webhooks[0]))
	require.Len(t, reloaded.Repositories, 1)
	assert.Empty(t, Difference(org.Repositories[0], reloaded.Repositories[0]))
	require.Len(t, reloaded.Repositories[0].BranchProtectionRules, 1)
	assert.Empty(t, Difference(
		org.Repositories[0].BranchProtectionRules[0],
		reloaded.Repositories[0].BranchProtectionRules[0]))
}

func TestAttrStateSurvivesDeclaredRoundTrip(t *testing.T) {
	repo := declaredRepo(t, map[string]any{"name": "test-repo", "homepage": nil})

	rendered := repo.ToDeclared()
	if v, ok := rendered["homepage"]; assert.True(t, ok) {
		assert.Nil(t, v)
	}
	_, ok := rendered["description"]
	assert.False(t, ok, "unset fields must not be rendered")

	reloaded := NewRepositoryFromDeclared(rendered)
	assert.True(t, reloaded.Get("homepage").IsNull())
	assert.True(t, reloaded.Get("description").IsUnset())
	assert.Equal(t, attr.StateSet, reloaded.Get("name").State())
}
