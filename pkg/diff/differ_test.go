package diff

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autumnfound/otterdog/pkg/model"
	"github.com/autumnfound/otterdog/pkg/provider"
)

func org(t *testing.T, data map[string]any) *model.Organization {
	t.Helper()
	o, err := model.NewOrganizationFromDeclared("test-org", data)
	require.NoError(t, err)
	return o
}

func TestDiffOfIdenticalModelsIsEmpty(t *testing.T) {
	data := map[string]any{
		"settings": map[string]any{"plan": "free", "web_commit_signoff_required": false},
		"webhooks": []any{
			map[string]any{"url": "https://example.org/hook", "events": []any{"push"}},
		},
		"repositories": []any{
			map[string]any{
				"name": "website",
				"branch_protection_rules": []any{
					map[string]any{"pattern": "main"},
				},
			},
		},
	}

	assert.Empty(t, Diff(org(t, data), org(t, data)))
}

func TestDiffSettingsChange(t *testing.T) {
	expected := org(t, map[string]any{
		"settings": map[string]any{"web_commit_signoff_required": true},
	})
	current := org(t, map[string]any{
		"settings": map[string]any{"web_commit_signoff_required": false},
	})

	patches := Diff(expected, current)
	require.Len(t, patches, 1)
	patch := patches[0]
	assert.Equal(t, PatchChange, patch.Type)
	assert.Equal(t, KindOrgSettings, patch.Kind)
	require.Contains(t, patch.Changes, "web_commit_signoff_required")

	fake := provider.NewFake()
	require.NoError(t, patch.Apply(context.Background(), "test-org", fake))

	calls := fake.CallsTo("UpdateOrgSettings")
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"web_commit_signoff_required": true}, calls[0].Data)
}

func TestDiffSettingsChangeSplitsWebFields(t *testing.T) {
	expected := org(t, map[string]any{
		"settings": map[string]any{
			"web_commit_signoff_required": true,
			"default_branch_name":         "main",
		},
	})
	current := org(t, map[string]any{
		"settings": map[string]any{
			"web_commit_signoff_required": false,
			"default_branch_name":         "master",
		},
	})

	patches := Diff(expected, current)
	require.Len(t, patches, 1)

	fake := provider.NewFake()
	require.NoError(t, patches[0].Apply(context.Background(), "test-org", fake))

	rest := fake.CallsTo("UpdateOrgSettings")
	require.Len(t, rest, 1)
	assert.Equal(t, map[string]any{"web_commit_signoff_required": true}, rest[0].Data)

	web := fake.CallsTo("UpdateOrgSettingsWeb")
	require.Len(t, web, 1)
	assert.Equal(t, map[string]any{"default_branch_name": "main"}, web[0].Data)
}

func TestDiffNewWebhook(t *testing.T) {
	expected := org(t, map[string]any{
		"webhooks": []any{
			map[string]any{"url": "https://x/hook", "events": []any{"push"}},
		},
	})
	current := org(t, map[string]any{})

	patches := Diff(expected, current)
	require.Len(t, patches, 1)
	assert.Equal(t, PatchAdd, patches[0].Type)
	assert.Equal(t, KindWebhook, patches[0].Kind)

	fake := provider.NewFake()
	require.NoError(t, patches[0].Apply(context.Background(), "test-org", fake))

	calls := fake.CallsTo("AddWebhook")
	require.Len(t, calls, 1)
	config, ok := calls[0].Data["config"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "https://x/hook", config["url"])
}

func TestDiffWebhookChangeSendsFullObject(t *testing.T) {
	expected := org(t, map[string]any{
		"webhooks": []any{
			map[string]any{
				"url":          "https://x/hook",
				"active":       true,
				"content_type": "json",
				"events":       []any{"push", "pull_request"},
			},
		},
	})
	currentHook := model.NewWebhookFromLive(map[string]any{
		"id":     float64(7),
		"active": true,
		"events": []any{"push"},
		"config": map[string]any{"url": "https://x/hook", "content_type": "json"},
	})
	current := &model.Organization{
		GitHubID: "test-org",
		Settings: model.NewOrganizationSettingsFromLive(map[string]any{}, nil),
		Webhooks: []*model.Webhook{currentHook},
	}

	patches := Diff(expected, current)
	require.Len(t, patches, 1)
	require.Equal(t, PatchChange, patches[0].Type)

	fake := provider.NewFake()
	require.NoError(t, patches[0].Apply(context.Background(), "test-org", fake))

	calls := fake.CallsTo("UpdateWebhook")
	require.Len(t, calls, 1)
	// the payload is the full webhook, not just the changed events.
	assert.Equal(t, true, calls[0].Data["active"])
	config := calls[0].Data["config"].(map[string]any)
	assert.Equal(t, "json", config["content_type"])
}

func TestDiffArchivedRepoEmitsNoPatchForFrozenFields(t *testing.T) {
	expected := org(t, map[string]any{
		"repositories": []any{
			map[string]any{"name": "attic", "archived": true, "delete_branch_on_merge": true},
		},
	})
	current := org(t, map[string]any{
		"repositories": []any{
			map[string]any{"name": "attic", "archived": true, "delete_branch_on_merge": false},
		},
	})

	assert.Empty(t, Diff(expected, current))
}

func TestDiffWorkflowSettingsForcedEnabled(t *testing.T) {
	expected := org(t, map[string]any{
		"repositories": []any{
			map[string]any{
				"name": "tools",
				"workflows": map[string]any{
					"enabled":         true,
					"allowed_actions": "all",
				},
			},
		},
	})
	current := org(t, map[string]any{
		"repositories": []any{
			map[string]any{
				"name": "tools",
				"workflows": map[string]any{
					"enabled":         true,
					"allowed_actions": "selected",
				},
			},
		},
	})

	patches := Diff(expected, current)
	require.Len(t, patches, 1)
	patch := patches[0]
	assert.Equal(t, KindRepoWorkflowSettings, patch.Kind)
	assert.True(t, patch.ForcedUpdate)
	require.Contains(t, patch.Changes, "enabled")

	fake := provider.NewFake()
	require.NoError(t, patch.Apply(context.Background(), "test-org", fake))

	calls := fake.CallsTo("UpdateRepoWorkflowSettings")
	require.Len(t, calls, 1)
	assert.Equal(t, "tools", calls[0].Repo)
	// enabled rides along despite being unchanged.
	assert.Equal(t, true, calls[0].Data["enabled"])
	assert.Equal(t, "all", calls[0].Data["allowed_actions"])
}

func TestDiffRepositoryRemoveSuppressesChildren(t *testing.T) {
	expected := org(t, map[string]any{})
	current := org(t, map[string]any{
		"repositories": []any{
			map[string]any{
				"name": "gone",
				"branch_protection_rules": []any{
					map[string]any{"pattern": "main"},
				},
				"workflows": map[string]any{"enabled": true},
			},
		},
	})

	patches := Diff(expected, current)
	require.Len(t, patches, 1)
	assert.Equal(t, PatchRemove, patches[0].Type)
	assert.Equal(t, KindRepository, patches[0].Kind)
}

func TestDiffOrderingParentsBeforeChildren(t *testing.T) {
	expected := org(t, map[string]any{
		"settings": map[string]any{"web_commit_signoff_required": true},
		"webhooks": []any{
			map[string]any{"url": "https://x/hook"},
		},
		"repositories": []any{
			map[string]any{
				"name": "b-repo",
				"branch_protection_rules": []any{
					map[string]any{"pattern": "main"},
				},
			},
			map[string]any{"name": "a-repo"},
		},
	})
	current := org(t, map[string]any{
		"settings": map[string]any{"web_commit_signoff_required": false},
	})

	patches := Diff(expected, current)
	require.Len(t, patches, 5)
	assert.Equal(t, KindOrgSettings, patches[0].Kind)
	assert.Equal(t, KindWebhook, patches[1].Kind)
	// repositories ordered by name, each followed by its children.
	assert.Equal(t, KindRepository, patches[2].Kind)
	assert.Equal(t, "a-repo", patches[2].Expected.Key())
	assert.Equal(t, KindRepository, patches[3].Kind)
	assert.Equal(t, "b-repo", patches[3].Expected.Key())
	assert.Equal(t, KindBranchProtectionRule, patches[4].Kind)
	require.NotNil(t, patches[4].Parent)
	assert.Equal(t, "b-repo", patches[4].Parent.Key())
}

func TestDiffUnsetFieldProducesNoPatch(t *testing.T) {
	expected := org(t, map[string]any{
		"repositories": []any{
			map[string]any{"name": "website"},
		},
	})
	current := org(t, map[string]any{
		"repositories": []any{
			map[string]any{"name": "website", "has_wiki": true, "default_branch": "main"},
		},
	})

	assert.Empty(t, Diff(expected, current))
}

func TestRequiresSecrets(t *testing.T) {
	expected := org(t, map[string]any{
		"webhooks": []any{
			map[string]any{"url": "https://x/hook", "secret": "s3cr3t"},
		},
	})
	current := org(t, map[string]any{})

	patches := Diff(expected, current)
	require.Len(t, patches, 1)
	assert.True(t, patches[0].RequiresSecrets())

	noSecret := org(t, map[string]any{
		"webhooks": []any{
			map[string]any{"url": "https://x/hook"},
		},
	})
	patches = Diff(noSecret, current)
	require.Len(t, patches, 1)
	assert.False(t, patches[0].RequiresSecrets())
}

func TestDiffBranchProtectionRuleChangeUsesLiveID(t *testing.T) {
	expected := org(t, map[string]any{
		"repositories": []any{
			map[string]any{
				"name": "website",
				"branch_protection_rules": []any{
					map[string]any{"pattern": "main", "is_admin_enforced": true},
				},
			},
		},
	})

	liveRepo := model.NewRepositoryFromLive(map[string]any{"name": "website"})
	liveRepo.BranchProtectionRules = []*model.BranchProtectionRule{
		model.NewBranchProtectionRuleFromLive(map[string]any{
			"id":                "BPR_node123",
			"pattern":           "main",
			"is_admin_enforced": false,
		}),
	}
	current := &model.Organization{
		GitHubID:     "test-org",
		Settings:     model.NewOrganizationSettingsFromLive(map[string]any{}, nil),
		Repositories: []*model.Repository{liveRepo},
	}

	patches := Diff(expected, current)
	require.Len(t, patches, 1)

	fake := provider.NewFake()
	require.NoError(t, patches[0].Apply(context.Background(), "test-org", fake))

	calls := fake.CallsTo("UpdateBranchProtectionRule")
	require.Len(t, calls, 1)
	assert.Equal(t, "BPR_node123", calls[0].Name)
	assert.Equal(t, map[string]any{"is_admin_enforced": true}, calls[0].Data)
}
