package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cli/go-gh/v2/pkg/api"
	"github.com/jpillora/backoff"

	"github.com/autumnfound/otterdog/pkg/logger"
)

var restLog = logger.New("provider:rest")

const (
	// the api version is pinned so payload shapes stay stable.
	apiVersion = "2022-11-28"
	apiBaseURL = "https://api.github.com"

	requestTimeout = 30 * time.Second
	maxAttempts    = 5
)

// requester performs HTTP requests against the GitHub REST API. GET
// responses are cached by the underlying client, keyed by url and
// parameters; the cache is refreshed on each run via a short TTL.
type requester struct {
	client  *http.Client
	baseURL string
}

func newRequester(token string) (*requester, error) {
	client, err := api.NewHTTPClient(api.ClientOptions{
		AuthToken:   token,
		EnableCache: true,
		CacheTTL:    time.Minute,
		Timeout:     requestTimeout,
		Headers: map[string]string{
			"Accept":                  "application/vnd.github+json",
			"X-GitHub-Api-Version":    apiVersion,
			"X-Github-Next-Global-ID": "1",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}
	return &requester{client: client, baseURL: apiBaseURL}, nil
}

// requestJSON performs a request with a JSON body and decodes the JSON
// response into out (which may be nil).
func (r *requester) requestJSON(ctx context.Context, method, path string, data any, params url.Values, out any) error {
	var body io.Reader
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	resp, err := r.requestRaw(ctx, method, path, body, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// requestPaged fetches all pages of a list endpoint, incrementing the page
// parameter until an empty page is returned.
func (r *requester) requestPaged(ctx context.Context, path string, params url.Values) ([]map[string]any, error) {
	var result []map[string]any
	for page := 1; ; page++ {
		query := url.Values{}
		for k, vs := range params {
			query[k] = vs
		}
		query.Set("per_page", "100")
		query.Set("page", strconv.Itoa(page))

		var items []map[string]any
		if err := r.requestJSON(ctx, http.MethodGet, path, nil, query, &items); err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return result, nil
		}
		result = append(result, items...)
	}
}

// requestRaw performs a single logical request, retrying transient
// failures (5xx and secondary rate limits) with exponential backoff.
func (r *requester) requestRaw(ctx context.Context, method, path string, body io.Reader, params url.Values) (*http.Response, error) {
	target := r.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = io.ReadAll(body); err != nil {
			return nil, err
		}
	}

	retry := &backoff.Backoff{Min: time.Second, Max: 60 * time.Second, Jitter: true}

	for attempt := 1; ; attempt++ {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := r.client.Do(req)
		if err != nil {
			if ctx.Err() != nil || attempt >= maxAttempts {
				return nil, err
			}
			restLog.Printf("request %s %s failed (%v), retrying", method, path, err)
			sleep(ctx, retry.Duration())
			continue
		}

		restLog.Printf("'%s %s' result = %d", method, path, resp.StatusCode)

		if resp.StatusCode < 400 {
			return resp, nil
		}

		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized {
			return nil, &BadCredentialsError{URL: target}
		}

		if attempt < maxAttempts && shouldRetry(resp.StatusCode, bodyBytes) {
			restLog.Printf("transient status %d for %s, retrying", resp.StatusCode, path)
			sleep(ctx, retry.Duration())
			continue
		}

		return nil, &ForgeError{Status: resp.StatusCode, URL: target, Body: string(bodyBytes)}
	}
}

// shouldRetry reports whether a failure status is transient: server errors
// and secondary rate limits.
func shouldRetry(status int, body []byte) bool {
	if status >= 500 {
		return true
	}
	if status == http.StatusForbidden && strings.Contains(strings.ToLower(string(body)), "secondary rate limit") {
		return true
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// restClient implements the REST-served verbs of the provider facade.
type restClient struct {
	requester *requester
}

func (c *restClient) getOrgSettings(ctx context.Context, orgID string) (map[string]any, error) {
	restLog.Printf("retrieving settings for organization %s", orgID)

	var settings map[string]any
	if err := c.requester.requestJSON(ctx, http.MethodGet, "/orgs/"+orgID, nil, nil, &settings); err != nil {
		return nil, fmt.Errorf("failed retrieving settings for organization '%s': %w", orgID, err)
	}

	managers, err := c.listSecurityManagers(ctx, orgID)
	if err != nil {
		return nil, err
	}
	settings["security_managers"] = managers
	return settings, nil
}

func (c *restClient) updateOrgSettings(ctx context.Context, orgID string, data map[string]any) error {
	restLog.Printf("updating settings for organization %s", orgID)

	payload := make(map[string]any, len(data))
	for k, v := range data {
		payload[k] = v
	}

	var managers any
	if v, ok := payload["security_managers"]; ok {
		managers = v
		delete(payload, "security_managers")
	}

	if len(payload) > 0 {
		if err := c.requester.requestJSON(ctx, http.MethodPatch, "/orgs/"+orgID, payload, nil, nil); err != nil {
			return fmt.Errorf("failed to update settings for organization '%s': %w", orgID, err)
		}
	}

	if managers != nil {
		if err := c.updateSecurityManagers(ctx, orgID, toStrings(managers)); err != nil {
			return err
		}
	}

	restLog.Printf("updated %d setting(s)", len(data))
	return nil
}

func (c *restClient) listSecurityManagers(ctx context.Context, orgID string) ([]string, error) {
	var teams []map[string]any
	if err := c.requester.requestJSON(ctx, http.MethodGet, "/orgs/"+orgID+"/security-managers", nil, nil, &teams); err != nil {
		return nil, fmt.Errorf("failed retrieving security managers for organization '%s': %w", orgID, err)
	}
	slugs := make([]string, 0, len(teams))
	for _, team := range teams {
		if slug, ok := team["slug"].(string); ok {
			slugs = append(slugs, slug)
		}
	}
	return slugs, nil
}

// updateSecurityManagers reconciles the security manager teams by delta:
// missing teams are added, leftover teams removed.
func (c *restClient) updateSecurityManagers(ctx context.Context, orgID string, managers []string) error {
	current, err := c.listSecurityManagers(ctx, orgID)
	if err != nil {
		return err
	}

	currentSet := make(map[string]bool, len(current))
	for _, slug := range current {
		currentSet[slug] = true
	}

	for _, slug := range managers {
		if currentSet[slug] {
			delete(currentSet, slug)
			continue
		}
		path := fmt.Sprintf("/orgs/%s/security-managers/teams/%s", orgID, slug)
		if err := c.requester.requestJSON(ctx, http.MethodPut, path, nil, nil, nil); err != nil {
			return fmt.Errorf("failed adding security manager team '%s': %w", slug, err)
		}
	}

	for slug := range currentSet {
		path := fmt.Sprintf("/orgs/%s/security-managers/teams/%s", orgID, slug)
		if err := c.requester.requestJSON(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
			return fmt.Errorf("failed removing security manager team '%s': %w", slug, err)
		}
	}
	return nil
}

func (c *restClient) listWebhooks(ctx context.Context, orgID string) ([]map[string]any, error) {
	restLog.Printf("retrieving webhooks for organization %s", orgID)
	return c.requester.requestPaged(ctx, "/orgs/"+orgID+"/hooks", nil)
}

func (c *restClient) addWebhook(ctx context.Context, orgID string, data map[string]any) error {
	// "name" is a mandatory legacy field with the fixed value "web".
	data["name"] = "web"

	if err := c.requester.requestJSON(ctx, http.MethodPost, "/orgs/"+orgID+"/hooks", data, nil, nil); err != nil {
		return fmt.Errorf("failed to add webhook: %w", err)
	}
	return nil
}

func (c *restClient) updateWebhook(ctx context.Context, orgID string, webhookID int64, data map[string]any) error {
	path := fmt.Sprintf("/orgs/%s/hooks/%d", orgID, webhookID)
	if err := c.requester.requestJSON(ctx, http.MethodPatch, path, data, nil, nil); err != nil {
		return fmt.Errorf("failed to update webhook %d: %w", webhookID, err)
	}
	return nil
}

func (c *restClient) removeWebhook(ctx context.Context, orgID string, webhookID int64) error {
	path := fmt.Sprintf("/orgs/%s/hooks/%d", orgID, webhookID)
	if err := c.requester.requestJSON(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to remove webhook %d: %w", webhookID, err)
	}
	return nil
}

func (c *restClient) listRepos(ctx context.Context, orgID string) ([]string, error) {
	restLog.Printf("retrieving repos for organization %s", orgID)

	params := url.Values{"type": {"all"}}
	repos, err := c.requester.requestPaged(ctx, "/orgs/"+orgID+"/repos", params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve repos for organization '%s': %w", orgID, err)
	}

	names := make([]string, 0, len(repos))
	for _, repo := range repos {
		if name, ok := repo["name"].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func (c *restClient) getRepoData(ctx context.Context, orgID, repoName string) (map[string]any, error) {
	restLog.Printf("retrieving repo data for '%s/%s'", orgID, repoName)

	var data map[string]any
	if err := c.requester.requestJSON(ctx, http.MethodGet, "/repos/"+orgID+"/"+repoName, nil, nil, &data); err != nil {
		return nil, fmt.Errorf("failed retrieving data for repo '%s': %w", repoName, err)
	}

	// vulnerability alerts are a separate endpoint reporting via status
	// code only; fold them into the repo data as a synthetic attribute.
	enabled, err := c.getVulnerabilityAlerts(ctx, orgID, repoName)
	if err != nil {
		return nil, err
	}
	data["dependabot_alerts_enabled"] = enabled
	return data, nil
}

func (c *restClient) getVulnerabilityAlerts(ctx context.Context, orgID, repoName string) (bool, error) {
	path := fmt.Sprintf("/repos/%s/%s/vulnerability-alerts", orgID, repoName)
	resp, err := c.requester.requestRaw(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		var forge *ForgeError
		if errors.As(err, &forge) && forge.Status == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusNoContent, nil
}

func (c *restClient) updateVulnerabilityAlerts(ctx context.Context, orgID, repoName string, enabled bool) error {
	method := http.MethodPut
	if !enabled {
		method = http.MethodDelete
	}
	path := fmt.Sprintf("/repos/%s/%s/vulnerability-alerts", orgID, repoName)
	if err := c.requester.requestJSON(ctx, method, path, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to update vulnerability alerts for repo '%s': %w", repoName, err)
	}
	return nil
}

func (c *restClient) updateRepo(ctx context.Context, orgID, repoName string, data map[string]any) error {
	restLog.Printf("updating repo settings for '%s/%s'", orgID, repoName)

	payload := make(map[string]any, len(data))
	for k, v := range data {
		payload[k] = v
	}

	var alerts *bool
	if v, ok := payload["dependabot_alerts_enabled"]; ok {
		b, _ := v.(bool)
		alerts = &b
		delete(payload, "dependabot_alerts_enabled")
	}

	if len(payload) > 0 {
		if err := c.requester.requestJSON(ctx, http.MethodPatch, "/repos/"+orgID+"/"+repoName, payload, nil, nil); err != nil {
			return fmt.Errorf("failed to update settings for repo '%s': %w", repoName, err)
		}
	}
	if alerts != nil {
		if err := c.updateVulnerabilityAlerts(ctx, orgID, repoName, *alerts); err != nil {
			return err
		}
	}
	return nil
}

func (c *restClient) addRepo(ctx context.Context, orgID string, data map[string]any, templateRepository string, autoInit bool) error {
	repoName, _ := data["name"].(string)

	if templateRepository != "" {
		restLog.Printf("creating repo '%s' from template '%s'", repoName, templateRepository)

		templateOwner, templateRepo, ok := strings.Cut(templateRepository, "/")
		if !ok {
			return fmt.Errorf("invalid template repository '%s'", templateRepository)
		}

		templateData := map[string]any{
			"owner":                orgID,
			"name":                 repoName,
			"include_all_branches": false,
			"private":              false,
		}
		path := fmt.Sprintf("/repos/%s/%s/generate", templateOwner, templateRepo)
		if err := c.requester.requestJSON(ctx, http.MethodPost, path, templateData, nil, nil); err != nil {
			return fmt.Errorf("failed to create repo from template '%s': %w", templateRepository, err)
		}

		// read back the created repo so settings already active from
		// organization defaults are not sent again.
		currentData, err := c.getRepoData(ctx, orgID, repoName)
		if err != nil {
			return err
		}
		update := removeAlreadyActiveSettings(data, currentData)
		return c.updateRepo(ctx, orgID, repoName, update)
	}

	restLog.Printf("creating repo '%s'", repoName)

	// some settings are not honored during creation; split them off and
	// send them as a follow-up update.
	payload := make(map[string]any, len(data))
	for k, v := range data {
		payload[k] = v
	}
	deferred := make(map[string]any)
	for _, key := range []string{"dependabot_alerts_enabled", "web_commit_signoff_required"} {
		if v, ok := payload[key]; ok {
			deferred[key] = v
			delete(payload, key)
		}
	}
	payload["auto_init"] = autoInit

	var created map[string]any
	if err := c.requester.requestJSON(ctx, http.MethodPost, "/orgs/"+orgID+"/repos", payload, nil, &created); err != nil {
		return fmt.Errorf("failed to add repo '%s': %w", repoName, err)
	}

	update := removeAlreadyActiveSettings(deferred, created)
	if len(update) == 0 {
		return nil
	}
	return c.updateRepo(ctx, orgID, repoName, update)
}

func (c *restClient) removeRepo(ctx context.Context, orgID, repoName string) error {
	if err := c.requester.requestJSON(ctx, http.MethodDelete, "/repos/"+orgID+"/"+repoName, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to remove repo '%s': %w", repoName, err)
	}
	return nil
}

// removeAlreadyActiveSettings drops update values that already match the
// current state, avoiding writes the provider would reject or ignore.
func removeAlreadyActiveSettings(update, current map[string]any) map[string]any {
	out := make(map[string]any, len(update))
	for key, value := range update {
		if currentValue, ok := current[key]; ok && currentValue == value {
			restLog.Printf("omitting setting '%s' as it is already set", key)
			continue
		}
		out[key] = value
	}
	return out
}

func (c *restClient) getContent(ctx context.Context, orgID, repoName, path, ref string) (string, error) {
	obj, err := c.getContentObject(ctx, orgID, repoName, path, ref)
	if err != nil {
		return "", err
	}
	encoded, _ := obj["content"].(string)
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(encoded, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("failed decoding content of '%s': %w", path, err)
	}
	return string(decoded), nil
}

func (c *restClient) getContentObject(ctx context.Context, orgID, repoName, path, ref string) (map[string]any, error) {
	restLog.Printf("retrieving content '%s' from repo '%s'", path, repoName)

	var params url.Values
	if ref != "" {
		params = url.Values{"ref": {ref}}
	}

	var obj map[string]any
	requestPath := fmt.Sprintf("/repos/%s/%s/contents/%s", orgID, repoName, path)
	if err := c.requester.requestJSON(ctx, http.MethodGet, requestPath, nil, params, &obj); err != nil {
		return nil, fmt.Errorf("failed retrieving content '%s' from repo '%s': %w", path, repoName, err)
	}
	return obj, nil
}

func (c *restClient) updateContent(ctx context.Context, orgID, repoName, path, content, message string) error {
	restLog.Printf("putting content '%s' to repo '%s'", path, repoName)

	var oldSHA, oldContent string
	if obj, err := c.getContentObject(ctx, orgID, repoName, path, ""); err == nil {
		oldSHA, _ = obj["sha"].(string)
		if encoded, ok := obj["content"].(string); ok {
			if decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(encoded, "\n", "")); err == nil {
				oldContent = string(decoded)
			}
		}
	}

	if oldContent != "" && oldContent == content {
		restLog.Print("not updating content, no changes")
		return nil
	}

	if message == "" {
		message = fmt.Sprintf("Updating file '%s' with otterdog.", path)
	}

	data := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString([]byte(content)),
	}
	if oldSHA != "" {
		data["sha"] = oldSHA
	}

	requestPath := fmt.Sprintf("/repos/%s/%s/contents/%s", orgID, repoName, path)
	if err := c.requester.requestJSON(ctx, http.MethodPut, requestPath, data, nil, nil); err != nil {
		return fmt.Errorf("failed putting content '%s' to repo '%s': %w", path, repoName, err)
	}
	return nil
}

func (c *restClient) getUserNodeID(ctx context.Context, login string) (string, error) {
	var user map[string]any
	if err := c.requester.requestJSON(ctx, http.MethodGet, "/users/"+login, nil, nil, &user); err != nil {
		return "", fmt.Errorf("failed retrieving node id for user '%s': %w", login, err)
	}
	nodeID, _ := user["node_id"].(string)
	return nodeID, nil
}

func (c *restClient) getTeamNodeID(ctx context.Context, combinedSlug string) (string, error) {
	orgID, teamSlug, ok := strings.Cut(combinedSlug, "/")
	if !ok {
		return "", fmt.Errorf("invalid team slug '%s', expected 'org/team'", combinedSlug)
	}

	var team map[string]any
	path := fmt.Sprintf("/orgs/%s/teams/%s", orgID, teamSlug)
	if err := c.requester.requestJSON(ctx, http.MethodGet, path, nil, nil, &team); err != nil {
		return "", fmt.Errorf("failed retrieving node id for team '%s': %w", combinedSlug, err)
	}
	nodeID, _ := team["node_id"].(string)
	return nodeID, nil
}

func (c *restClient) getAppNodeID(ctx context.Context, appSlug string) (string, error) {
	var app map[string]any
	if err := c.requester.requestJSON(ctx, http.MethodGet, "/apps/"+appSlug, nil, nil, &app); err != nil {
		return "", fmt.Errorf("failed retrieving node id for app '%s': %w", appSlug, err)
	}
	nodeID, _ := app["node_id"].(string)
	return nodeID, nil
}

func (c *restClient) getRefForPullRequest(ctx context.Context, orgID, repoName string, pullNumber int) (string, error) {
	var pr map[string]any
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", orgID, repoName, pullNumber)
	if err := c.requester.requestJSON(ctx, http.MethodGet, path, nil, nil, &pr); err != nil {
		return "", fmt.Errorf("failed retrieving pull request #%d of repo '%s': %w", pullNumber, repoName, err)
	}
	head, _ := pr["head"].(map[string]any)
	sha, _ := head["sha"].(string)
	return sha, nil
}

func toStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, e := range list {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
