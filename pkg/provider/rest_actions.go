package provider

import (
	"context"
	"fmt"
	"net/http"
)

// Actions-related REST endpoints: workflow settings, secrets, environments
// and rulesets.

// getOrgWorkflowSettings merges the two permission endpoints into one flat
// settings map matching the model's attribute names.
func (c *restClient) getOrgWorkflowSettings(ctx context.Context, orgID string) (map[string]any, error) {
	restLog.Printf("retrieving workflow settings for organization %s", orgID)

	var permissions map[string]any
	if err := c.requester.requestJSON(ctx, http.MethodGet, "/orgs/"+orgID+"/actions/permissions", nil, nil, &permissions); err != nil {
		return nil, fmt.Errorf("failed retrieving workflow settings for organization '%s': %w", orgID, err)
	}

	settings := map[string]any{}
	if v, ok := permissions["enabled_repositories"]; ok {
		settings["enabled_repositories"] = v
	}
	if v, ok := permissions["allowed_actions"]; ok {
		settings["allowed_actions"] = v
	}

	if settings["allowed_actions"] == "selected" {
		var selected map[string]any
		if err := c.requester.requestJSON(ctx, http.MethodGet, "/orgs/"+orgID+"/actions/permissions/selected-actions", nil, nil, &selected); err != nil {
			return nil, err
		}
		mergeSelectedActions(settings, selected)
	}

	var workflow map[string]any
	if err := c.requester.requestJSON(ctx, http.MethodGet, "/orgs/"+orgID+"/actions/permissions/workflow", nil, nil, &workflow); err != nil {
		return nil, err
	}
	mergeWorkflowPermissions(settings, workflow)

	return settings, nil
}

func (c *restClient) updateOrgWorkflowSettings(ctx context.Context, orgID string, data map[string]any) error {
	restLog.Printf("updating workflow settings for organization %s", orgID)
	return c.updateWorkflowSettings(ctx, "/orgs/"+orgID+"/actions/permissions", data,
		[]string{"enabled_repositories", "allowed_actions"})
}

func (c *restClient) getRepoWorkflowSettings(ctx context.Context, orgID, repoName string) (map[string]any, error) {
	restLog.Printf("retrieving workflow settings for repo '%s/%s'", orgID, repoName)

	base := fmt.Sprintf("/repos/%s/%s/actions/permissions", orgID, repoName)

	var permissions map[string]any
	if err := c.requester.requestJSON(ctx, http.MethodGet, base, nil, nil, &permissions); err != nil {
		return nil, fmt.Errorf("failed retrieving workflow settings for repo '%s': %w", repoName, err)
	}

	settings := map[string]any{}
	if v, ok := permissions["enabled"]; ok {
		settings["enabled"] = v
	}
	if v, ok := permissions["allowed_actions"]; ok {
		settings["allowed_actions"] = v
	}

	if settings["allowed_actions"] == "selected" {
		var selected map[string]any
		if err := c.requester.requestJSON(ctx, http.MethodGet, base+"/selected-actions", nil, nil, &selected); err != nil {
			return nil, err
		}
		mergeSelectedActions(settings, selected)
	}

	var workflow map[string]any
	if err := c.requester.requestJSON(ctx, http.MethodGet, base+"/workflow", nil, nil, &workflow); err != nil {
		return nil, err
	}
	mergeWorkflowPermissions(settings, workflow)

	return settings, nil
}

func (c *restClient) updateRepoWorkflowSettings(ctx context.Context, orgID, repoName string, data map[string]any) error {
	restLog.Printf("updating workflow settings for repo '%s/%s'", orgID, repoName)
	base := fmt.Sprintf("/repos/%s/%s/actions/permissions", orgID, repoName)
	return c.updateWorkflowSettings(ctx, base, data, []string{"enabled", "allowed_actions"})
}

// updateWorkflowSettings fans one flat settings payload out over the three
// permission endpoints that serve it.
func (c *restClient) updateWorkflowSettings(ctx context.Context, base string, data map[string]any, permissionKeys []string) error {
	permissions := map[string]any{}
	for _, key := range permissionKeys {
		if v, ok := data[key]; ok {
			permissions[key] = v
		}
	}

	selected := map[string]any{}
	for modelKey, providerKey := range selectedActionsKeys {
		if v, ok := data[modelKey]; ok {
			selected[providerKey] = v
		}
	}

	workflow := map[string]any{}
	for modelKey, providerKey := range workflowPermissionKeys {
		if v, ok := data[modelKey]; ok {
			workflow[providerKey] = v
		}
	}

	if len(permissions) > 0 {
		if err := c.requester.requestJSON(ctx, http.MethodPut, base, permissions, nil, nil); err != nil {
			return fmt.Errorf("failed to update workflow permissions: %w", err)
		}
	}
	if len(selected) > 0 {
		if err := c.requester.requestJSON(ctx, http.MethodPut, base+"/selected-actions", selected, nil, nil); err != nil {
			return fmt.Errorf("failed to update selected actions: %w", err)
		}
	}
	if len(workflow) > 0 {
		if err := c.requester.requestJSON(ctx, http.MethodPut, base+"/workflow", workflow, nil, nil); err != nil {
			return fmt.Errorf("failed to update default workflow permissions: %w", err)
		}
	}
	return nil
}

var selectedActionsKeys = map[string]string{
	"allow_github_owned_actions":     "github_owned_allowed",
	"allow_verified_creator_actions": "verified_allowed",
	"allow_action_patterns":          "patterns_allowed",
}

var workflowPermissionKeys = map[string]string{
	"default_workflow_permissions":             "default_workflow_permissions",
	"actions_can_approve_pull_request_reviews": "can_approve_pull_request_reviews",
}

func mergeSelectedActions(settings, selected map[string]any) {
	for modelKey, providerKey := range selectedActionsKeys {
		if v, ok := selected[providerKey]; ok {
			settings[modelKey] = v
		}
	}
}

func mergeWorkflowPermissions(settings, workflow map[string]any) {
	for modelKey, providerKey := range workflowPermissionKeys {
		if v, ok := workflow[providerKey]; ok {
			settings[modelKey] = v
		}
	}
}

func (c *restClient) listOrgSecrets(ctx context.Context, orgID string) ([]map[string]any, error) {
	var response struct {
		Secrets []map[string]any `json:"secrets"`
	}
	if err := c.requester.requestJSON(ctx, http.MethodGet, "/orgs/"+orgID+"/actions/secrets", nil, nil, &response); err != nil {
		return nil, fmt.Errorf("failed retrieving secrets for organization '%s': %w", orgID, err)
	}
	return response.Secrets, nil
}

func (c *restClient) putOrgSecret(ctx context.Context, orgID string, data map[string]any) error {
	name, _ := data["name"].(string)
	path := fmt.Sprintf("/orgs/%s/actions/secrets/%s", orgID, name)

	payload := make(map[string]any, len(data))
	for k, v := range data {
		if k != "name" {
			payload[k] = v
		}
	}
	if err := c.requester.requestJSON(ctx, http.MethodPut, path, payload, nil, nil); err != nil {
		return fmt.Errorf("failed to update org secret '%s': %w", name, err)
	}
	return nil
}

func (c *restClient) removeOrgSecret(ctx context.Context, orgID, secretName string) error {
	path := fmt.Sprintf("/orgs/%s/actions/secrets/%s", orgID, secretName)
	if err := c.requester.requestJSON(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to remove org secret '%s': %w", secretName, err)
	}
	return nil
}

func (c *restClient) listRepoSecrets(ctx context.Context, orgID, repoName string) ([]map[string]any, error) {
	var response struct {
		Secrets []map[string]any `json:"secrets"`
	}
	path := fmt.Sprintf("/repos/%s/%s/actions/secrets", orgID, repoName)
	if err := c.requester.requestJSON(ctx, http.MethodGet, path, nil, nil, &response); err != nil {
		return nil, fmt.Errorf("failed retrieving secrets for repo '%s': %w", repoName, err)
	}
	return response.Secrets, nil
}

func (c *restClient) putRepoSecret(ctx context.Context, orgID, repoName string, data map[string]any) error {
	name, _ := data["name"].(string)
	path := fmt.Sprintf("/repos/%s/%s/actions/secrets/%s", orgID, repoName, name)

	payload := make(map[string]any, len(data))
	for k, v := range data {
		if k != "name" {
			payload[k] = v
		}
	}
	if err := c.requester.requestJSON(ctx, http.MethodPut, path, payload, nil, nil); err != nil {
		return fmt.Errorf("failed to update repo secret '%s': %w", name, err)
	}
	return nil
}

func (c *restClient) removeRepoSecret(ctx context.Context, orgID, repoName, secretName string) error {
	path := fmt.Sprintf("/repos/%s/%s/actions/secrets/%s", orgID, repoName, secretName)
	if err := c.requester.requestJSON(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to remove repo secret '%s': %w", secretName, err)
	}
	return nil
}

func (c *restClient) listEnvironments(ctx context.Context, orgID, repoName string) ([]map[string]any, error) {
	var response struct {
		Environments []map[string]any `json:"environments"`
	}
	path := fmt.Sprintf("/repos/%s/%s/environments", orgID, repoName)
	if err := c.requester.requestJSON(ctx, http.MethodGet, path, nil, nil, &response); err != nil {
		return nil, fmt.Errorf("failed retrieving environments for repo '%s': %w", repoName, err)
	}
	return response.Environments, nil
}

func (c *restClient) putEnvironment(ctx context.Context, orgID, repoName, envName string, data map[string]any) error {
	path := fmt.Sprintf("/repos/%s/%s/environments/%s", orgID, repoName, envName)

	payload := make(map[string]any, len(data))
	for k, v := range data {
		if k != "name" {
			payload[k] = v
		}
	}
	if err := c.requester.requestJSON(ctx, http.MethodPut, path, payload, nil, nil); err != nil {
		return fmt.Errorf("failed to update environment '%s' of repo '%s': %w", envName, repoName, err)
	}
	return nil
}

func (c *restClient) removeEnvironment(ctx context.Context, orgID, repoName, envName string) error {
	path := fmt.Sprintf("/repos/%s/%s/environments/%s", orgID, repoName, envName)
	if err := c.requester.requestJSON(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to remove environment '%s' of repo '%s': %w", envName, repoName, err)
	}
	return nil
}

func (c *restClient) listRulesets(ctx context.Context, base string) ([]map[string]any, error) {
	return c.requester.requestPaged(ctx, base+"/rulesets", nil)
}

func (c *restClient) addRuleset(ctx context.Context, base string, data map[string]any) error {
	if err := c.requester.requestJSON(ctx, http.MethodPost, base+"/rulesets", data, nil, nil); err != nil {
		return fmt.Errorf("failed to add ruleset: %w", err)
	}
	return nil
}

func (c *restClient) updateRuleset(ctx context.Context, base string, rulesetID int64, data map[string]any) error {
	path := fmt.Sprintf("%s/rulesets/%d", base, rulesetID)
	if err := c.requester.requestJSON(ctx, http.MethodPut, path, data, nil, nil); err != nil {
		return fmt.Errorf("failed to update ruleset %d: %w", rulesetID, err)
	}
	return nil
}

func (c *restClient) removeRuleset(ctx context.Context, base string, rulesetID int64) error {
	path := fmt.Sprintf("%s/rulesets/%d", base, rulesetID)
	if err := c.requester.requestJSON(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("failed to remove ruleset %d: %w", rulesetID, err)
	}
	return nil
}
