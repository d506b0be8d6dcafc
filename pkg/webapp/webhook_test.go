package webapp

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/autumnfound/otterdog/pkg/config"
	"github.com/autumnfound/otterdog/pkg/provider"
	"github.com/autumnfound/otterdog/pkg/webapp/db"
)

const testSecret = "s3cret"

func testApp(t *testing.T, fake *provider.Fake) (*App, *db.MemoryStore) {
	t.Helper()
	store := db.NewMemoryStore()
	cfg := &config.Config{
		Organizations: []*config.OrganizationConfig{
			{Name: "acme-project", GitHubID: "acme", ConfigRepo: ".otterdog"},
		},
	}
	app, err := New(cfg, store, zap.NewNop(),
		func(orgID string) (provider.Provider, error) { return fake, nil },
		Options{WebhookSecret: testSecret, Workers: 2})
	require.NoError(t, err)
	return app, store
}

func deliver(t *testing.T, app *App, event string, payload map[string]any, secret string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/github-webhook/receive", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", event)

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	req.Header.Set("X-Hub-Signature", "sha1="+hex.EncodeToString(mac.Sum(nil)))

	recorder := httptest.NewRecorder()
	app.Router().ServeHTTP(recorder, req)
	return recorder
}

func configRepoPayload() map[string]any {
	return map[string]any{
		"name":           ".otterdog",
		"default_branch": "main",
		"owner":          map[string]any{"login": "acme"},
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	app, _ := testApp(t, provider.NewFake())

	recorder := deliver(t, app, "pull_request", map[string]any{
		"action":     "opened",
		"number":     float64(1),
		"repository": configRepoPayload(),
	}, "wrong-secret")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestWebhookPullRequestMergedSchedulesApply(t *testing.T) {
	fake := provider.NewFake()
	fake.OrgSettings = map[string]any{"login": "acme", "plan": map[string]any{"name": "free"}}
	fake.OrgWorkflowSettings = map[string]any{}
	fake.Contents[".otterdog/acme.jsonnet"] = `{ settings: { plan: "free" } }`

	app, store := testApp(t, fake)

	recorder := deliver(t, app, "pull_request", map[string]any{
		"action": "closed",
		"number": float64(12),
		"pull_request": map[string]any{
			"state":  "closed",
			"merged": true,
		},
		"repository": configRepoPayload(),
	}, testSecret)

	require.Equal(t, http.StatusOK, recorder.Code)
	app.engine.Wait()

	pr, err := store.FindPullRequest(context.Background(), "acme", ".otterdog", 12)
	require.NoError(t, err)
	require.NotNil(t, pr)
	assert.Equal(t, db.ApplyCompleted, pr.ApplyStatus)
}

func TestWebhookPullRequestOnNonConfigRepoIsIgnored(t *testing.T) {
	fake := provider.NewFake()
	app, store := testApp(t, fake)

	recorder := deliver(t, app, "pull_request", map[string]any{
		"action": "closed",
		"number": float64(3),
		"pull_request": map[string]any{
			"state":  "closed",
			"merged": true,
		},
		"repository": map[string]any{
			"name":           "website",
			"default_branch": "main",
			"owner":          map[string]any{"login": "acme"},
		},
	}, testSecret)

	require.Equal(t, http.StatusOK, recorder.Code)
	app.engine.Wait()

	pr, err := store.FindPullRequest(context.Background(), "acme", "website", 3)
	require.NoError(t, err)
	assert.Nil(t, pr)
	assert.Empty(t, fake.Calls())
}

func TestWebhookInstallationCreatedSchedulesSeedTasks(t *testing.T) {
	fake := provider.NewFake()
	fake.Contents[".otterdog/acme.jsonnet"] = `{ settings: { plan: "free" } }`

	app, store := testApp(t, fake)

	recorder := deliver(t, app, "installation", map[string]any{
		"action": "created",
		"installation": map[string]any{
			"id":      float64(42),
			"account": map[string]any{"login": "acme"},
		},
	}, testSecret)

	require.Equal(t, http.StatusOK, recorder.Code)
	app.engine.Wait()

	installation, err := store.GetInstallationByGitHubID(context.Background(), "acme")
	require.NoError(t, err)
	require.NotNil(t, installation)
	assert.Equal(t, db.InstallationInstalled, installation.Status)
	assert.EqualValues(t, 42, installation.InstallationID)

	// the fresh installation seeded the cached configuration.
	configuration, err := store.GetConfiguration(context.Background(), "acme")
	require.NoError(t, err)
	require.NotNil(t, configuration)
	assert.Contains(t, configuration.Config, "free")
}

func TestWebhookInstallationSuspend(t *testing.T) {
	app, store := testApp(t, provider.NewFake())

	require.NoError(t, store.SaveInstallation(context.Background(), &db.InstallationModel{
		InstallationID: 42, GitHubID: "acme", Status: db.InstallationInstalled,
	}))

	recorder := deliver(t, app, "installation", map[string]any{
		"action": "suspend",
		"installation": map[string]any{
			"id":      float64(42),
			"account": map[string]any{"login": "acme"},
		},
	}, testSecret)

	require.Equal(t, http.StatusOK, recorder.Code)
	app.engine.Wait()

	installation, err := store.GetInstallationByGitHubID(context.Background(), "acme")
	require.NoError(t, err)
	require.NotNil(t, installation)
	assert.Equal(t, db.InstallationSuspended, installation.Status)
}

func TestWebhookPushToDefaultBranchRefreshesConfig(t *testing.T) {
	fake := provider.NewFake()
	fake.Contents[".otterdog/acme.jsonnet"] = `{ settings: { plan: "free" } }`

	app, store := testApp(t, fake)

	recorder := deliver(t, app, "push", map[string]any{
		"ref": "refs/heads/main",
		"repository": map[string]any{
			"name":           ".otterdog",
			"default_branch": "main",
			"owner":          map[string]any{"login": "acme", "name": "acme"},
		},
		"commits": []any{
			map[string]any{"modified": []any{"acme.jsonnet"}},
		},
	}, testSecret)

	require.Equal(t, http.StatusOK, recorder.Code)
	app.engine.Wait()

	configuration, err := store.GetConfiguration(context.Background(), "acme")
	require.NoError(t, err)
	assert.NotNil(t, configuration)
}

func TestWebhookPushToFeatureBranchIsIgnored(t *testing.T) {
	fake := provider.NewFake()
	app, store := testApp(t, fake)

	recorder := deliver(t, app, "push", map[string]any{
		"ref": "refs/heads/feature",
		"repository": map[string]any{
			"name":           ".otterdog",
			"default_branch": "main",
			"owner":          map[string]any{"login": "acme", "name": "acme"},
		},
		"commits": []any{
			map[string]any{"modified": []any{"acme.jsonnet"}},
		},
	}, testSecret)

	require.Equal(t, http.StatusOK, recorder.Code)
	app.engine.Wait()

	configuration, err := store.GetConfiguration(context.Background(), "acme")
	require.NoError(t, err)
	assert.Nil(t, configuration)
}
