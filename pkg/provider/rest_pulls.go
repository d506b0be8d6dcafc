package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Pull request related REST endpoints, used by the webhook service.

func (c *restClient) getPullRequest(ctx context.Context, orgID, repoName string, pullNumber int) (map[string]any, error) {
	var pr map[string]any
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", orgID, repoName, pullNumber)
	if err := c.requester.requestJSON(ctx, http.MethodGet, path, nil, nil, &pr); err != nil {
		return nil, fmt.Errorf("failed retrieving pull request #%d of repo '%s': %w", pullNumber, repoName, err)
	}
	return pr, nil
}

func (c *restClient) listPullRequests(ctx context.Context, orgID, repoName, state, baseRef string) ([]map[string]any, error) {
	params := url.Values{}
	if state != "" {
		params.Set("state", state)
	}
	if baseRef != "" {
		params.Set("base", baseRef)
	}

	path := fmt.Sprintf("/repos/%s/%s/pulls", orgID, repoName)
	prs, err := c.requester.requestPaged(ctx, path, params)
	if err != nil {
		return nil, fmt.Errorf("failed retrieving pull requests of repo '%s': %w", repoName, err)
	}
	return prs, nil
}

func (c *restClient) createIssueComment(ctx context.Context, orgID, repoName string, issueNumber int, body string) error {
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", orgID, repoName, issueNumber)
	data := map[string]any{"body": body}
	if err := c.requester.requestJSON(ctx, http.MethodPost, path, data, nil, nil); err != nil {
		return fmt.Errorf("failed to create comment on issue #%d of repo '%s': %w", issueNumber, repoName, err)
	}
	return nil
}

func (c *restClient) createCommitStatus(ctx context.Context, orgID, repoName, sha, state, statusContext, description string) error {
	path := fmt.Sprintf("/repos/%s/%s/statuses/%s", orgID, repoName, sha)
	data := map[string]any{
		"state":       state,
		"context":     statusContext,
		"description": description,
	}
	if err := c.requester.requestJSON(ctx, http.MethodPost, path, data, nil, nil); err != nil {
		return fmt.Errorf("failed to create commit status for '%s' of repo '%s': %w", sha, repoName, err)
	}
	return nil
}
