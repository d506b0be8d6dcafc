package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autumnfound/otterdog/pkg/diff"
	"github.com/autumnfound/otterdog/pkg/model"
	"github.com/autumnfound/otterdog/pkg/provider"
)

func TestLoadFromDeclaredFileEvaluatesJsonnet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acme.jsonnet")
	content := `
local defaultBranch = "main";
{
  settings: {
    plan: "free",
    web_commit_signoff_required: true,
  },
  repositories: [
    {
      name: "website",
      default_branch: defaultBranch,
    },
  ],
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	org, err := LoadFromDeclaredFile("acme", path)
	require.NoError(t, err)
	assert.Equal(t, "acme", org.GitHubID)
	require.Len(t, org.Repositories, 1)
	assert.Equal(t, "main", org.Repositories[0].Get("default_branch").String())
	assert.True(t, org.Settings.Get("web_commit_signoff_required").Bool())
}

func TestLoadFromDeclaredFileReportsEvaluationErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.jsonnet")
	require.NoError(t, os.WriteFile(path, []byte(`{ settings: }`), 0o644))

	_, err := LoadFromDeclaredFile("acme", path)
	require.Error(t, err)

	var loadErr *ConfigLoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestRenderRoundTrip(t *testing.T) {
	org, err := model.NewOrganizationFromDeclared("acme", map[string]any{
		"settings": map[string]any{"plan": "free", "description": nil},
		"repositories": []any{
			map[string]any{
				"name":           "website",
				"default_branch": "main",
				"branch_protection_rules": []any{
					map[string]any{"pattern": "main", "requires_approving_reviews": true},
				},
			},
		},
	})
	require.NoError(t, err)

	rendered, err := Render(org)
	require.NoError(t, err)

	reloaded, err := LoadFromDeclaredString("acme", "rendered", rendered)
	require.NoError(t, err)

	assert.Empty(t, diff.Diff(org, reloaded))
	assert.Empty(t, diff.Diff(reloaded, org))
	// null survives the round trip as null, not as unset.
	assert.True(t, reloaded.Settings.Get("description").IsNull())
}

func TestWriteSnapshotCreatesDirectories(t *testing.T) {
	org, err := model.NewOrganizationFromDeclared("acme", map[string]any{
		"settings": map[string]any{"plan": "free"},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "orgs", "acme.jsonnet")
	require.NoError(t, WriteSnapshot(org, path))

	loaded, err := LoadFromDeclaredFile("acme", path)
	require.NoError(t, err)
	assert.Equal(t, "free", loaded.Settings.Get("plan").String())
}

func fakeWithRepo() *provider.Fake {
	fake := provider.NewFake()
	fake.OrgSettings = map[string]any{"login": "acme", "plan": map[string]any{"name": "free"}}
	fake.OrgSettingsWeb = map[string]any{"default_branch_name": "main"}
	fake.OrgWorkflowSettings = map[string]any{"enabled_repositories": "all"}
	fake.Webhooks = []map[string]any{
		{"id": float64(1), "config": map[string]any{"url": "https://x/hook"}, "events": []any{"push"}},
	}
	fake.Repos["website"] = map[string]any{"name": "website", "default_branch": "main"}
	fake.BranchProtections["website"] = []map[string]any{
		{"id": "BPR_1", "pattern": "main"},
	}
	fake.RepoWorkflows["website"] = map[string]any{"enabled": true}
	return fake
}

func TestLiveLoaderAssemblesChildrenUnderParents(t *testing.T) {
	fake := fakeWithRepo()
	loader := &LiveLoader{Provider: fake, IncludeWeb: true}

	org, err := loader.Load(context.Background(), "acme")
	require.NoError(t, err)

	assert.Equal(t, "free", org.Settings.Get("plan").String())
	assert.Equal(t, "main", org.Settings.Get("default_branch_name").String())
	require.Len(t, org.Webhooks, 1)
	require.Len(t, org.Repositories, 1)

	repo := org.Repositories[0]
	assert.Equal(t, "website", repo.Name())
	require.Len(t, repo.BranchProtectionRules, 1)
	assert.Equal(t, "BPR_1", repo.BranchProtectionRules[0].ID())
	require.NotNil(t, repo.WorkflowSettings)
	assert.True(t, repo.WorkflowSettings.Get("enabled").Bool())
}

func TestLiveLoaderWithoutWebMarksWebFieldsUnset(t *testing.T) {
	fake := fakeWithRepo()
	loader := &LiveLoader{Provider: fake, IncludeWeb: false}

	org, err := loader.Load(context.Background(), "acme")
	require.NoError(t, err)

	assert.True(t, org.Settings.Get("default_branch_name").IsUnset())
	assert.Empty(t, fake.CallsTo("GetOrgSettingsWeb"))
}

func TestLiveLoaderCollectsFailuresWithoutCancellingSiblings(t *testing.T) {
	fake := fakeWithRepo()
	fake.Errs["ListWebhooks"] = errors.New("boom")

	loader := &LiveLoader{Provider: fake, IncludeWeb: false}
	org, err := loader.Load(context.Background(), "acme")
	require.Error(t, err)

	var failures LoadErrors
	require.True(t, errors.As(err, &failures))
	require.Len(t, failures, 1)
	assert.Equal(t, "webhooks", failures[0].Entity)

	// the rest of the model was still assembled.
	require.NotNil(t, org)
	assert.Len(t, org.Repositories, 1)
}
