package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) *restClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &restClient{requester: &requester{client: server.Client(), baseURL: server.URL}}
}

func TestRequestPagedIncrementsUntilEmptyPage(t *testing.T) {
	var requestedPages []int
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		requestedPages = append(requestedPages, page)
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))

		w.Header().Set("Content-Type", "application/json")
		switch page {
		case 1, 2:
			fmt.Fprintf(w, `[{"name": "repo-%d"}]`, page)
		default:
			fmt.Fprint(w, `[]`)
		}
	}))

	items, err := client.requester.requestPaged(context.Background(), "/orgs/test-org/repos", nil)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, []int{1, 2, 3}, requestedPages)
}

func TestRequestRetriesTransientServerErrors(t *testing.T) {
	attempts := 0
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"login": "test-org"}`)
	}))

	var out map[string]any
	err := client.requester.requestJSON(context.Background(), http.MethodGet, "/orgs/test-org", nil, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, "test-org", out["login"])
}

func TestRequestRetriesSecondaryRateLimit(t *testing.T) {
	attempts := 0
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"message": "You have exceeded a secondary rate limit"}`)
			return
		}
		fmt.Fprint(w, `{}`)
	}))

	err := client.requester.requestJSON(context.Background(), http.MethodGet, "/orgs/test-org", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRequestDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message": "Validation Failed"}`)
	}))

	err := client.requester.requestJSON(context.Background(), http.MethodGet, "/orgs/test-org", nil, nil, nil)
	require.Error(t, err)
	assert.Equal(t, 1, attempts)

	var forge *ForgeError
	require.ErrorAs(t, err, &forge)
	assert.Equal(t, http.StatusUnprocessableEntity, forge.Status)
	assert.Contains(t, forge.Body, "Validation Failed")
	assert.Contains(t, forge.URL, "/orgs/test-org")
}

func TestRequestMapsUnauthorizedToBadCredentials(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	err := client.requester.requestJSON(context.Background(), http.MethodGet, "/orgs/test-org", nil, nil, nil)
	require.Error(t, err)
	assert.True(t, IsBadCredentials(err))
}

func TestAddWebhookInjectsMandatoryName(t *testing.T) {
	var received map[string]any
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{}`)
	}))

	err := client.addWebhook(context.Background(), "test-org", map[string]any{
		"config": map[string]any{"url": "https://x/hook"},
		"events": []string{"push"},
	})
	require.NoError(t, err)
	assert.Equal(t, "web", received["name"])
}

func TestGetOrgSettingsIncludesSecurityManagers(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/orgs/test-org":
			fmt.Fprint(w, `{"login": "test-org", "plan": {"name": "free"}}`)
		case "/orgs/test-org/security-managers":
			fmt.Fprint(w, `[{"slug": "security-team"}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	settings, err := client.getOrgSettings(context.Background(), "test-org")
	require.NoError(t, err)
	assert.Equal(t, []string{"security-team"}, settings["security_managers"])
}

func TestGetRepoDataFillsVulnerabilityAlerts(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/test-org/website":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"name": "website"}`)
		case "/repos/test-org/website/vulnerability-alerts":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	data, err := client.getRepoData(context.Background(), "test-org", "website")
	require.NoError(t, err)
	assert.Equal(t, true, data["dependabot_alerts_enabled"])
}

func TestUpdateRepoRoutesVulnerabilityAlertsSeparately(t *testing.T) {
	var patched map[string]any
	var alertsMethod string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/test-org/website":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patched))
			fmt.Fprint(w, `{}`)
		case "/repos/test-org/website/vulnerability-alerts":
			alertsMethod = r.Method
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	err := client.updateRepo(context.Background(), "test-org", "website", map[string]any{
		"has_wiki":                  false,
		"dependabot_alerts_enabled": false,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"has_wiki": false}, patched)
	assert.Equal(t, http.MethodDelete, alertsMethod)
}

func TestRemoveAlreadyActiveSettings(t *testing.T) {
	update := map[string]any{
		"web_commit_signoff_required": true,
		"has_wiki":                    false,
	}
	current := map[string]any{
		"web_commit_signoff_required": true,
		"has_wiki":                    true,
	}

	out := removeAlreadyActiveSettings(update, current)
	assert.Equal(t, map[string]any{"has_wiki": false}, out)
}

func TestUpdateContentSkipsWhenUnchanged(t *testing.T) {
	puts := 0
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			puts++
			fmt.Fprint(w, `{}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		// "hello\n" base64-encoded
		fmt.Fprint(w, `{"sha": "abc", "content": "aGVsbG8K"}`)
	}))

	err := client.updateContent(context.Background(), "test-org", "website", "README.md", "hello\n", "")
	require.NoError(t, err)
	assert.Equal(t, 0, puts)

	err = client.updateContent(context.Background(), "test-org", "website", "README.md", "changed\n", "")
	require.NoError(t, err)
	assert.Equal(t, 1, puts)
}
