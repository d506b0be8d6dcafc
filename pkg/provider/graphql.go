package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cli/go-gh/v2/pkg/api"

	"github.com/autumnfound/otterdog/pkg/logger"
)

var gqlLog = logger.New("provider:graphql")

// graphQLClient serves the entities that require opaque node ids, most
// notably branch protection rules.
type graphQLClient struct {
	client *api.GraphQLClient
	rest   *restClient
}

func newGraphQLClient(token string, rest *restClient) (*graphQLClient, error) {
	client, err := api.NewGraphQLClient(api.ClientOptions{
		AuthToken: token,
		Timeout:   requestTimeout,
		Headers: map[string]string{
			"X-Github-Next-Global-ID": "1",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create graphql client: %w", err)
	}
	return &graphQLClient{client: client, rest: rest}, nil
}

// mapping between the model's snake_case attributes and the GraphQL schema
// field names of BranchProtectionRule.
var branchProtectionRuleFields = map[string]string{
	"pattern":                          "pattern",
	"requires_approving_reviews":       "requiresApprovingReviews",
	"required_approving_review_count":  "requiredApprovingReviewCount",
	"dismisses_stale_reviews":          "dismissesStaleReviews",
	"requires_code_owner_reviews":      "requiresCodeOwnerReviews",
	"requires_status_checks":           "requiresStatusChecks",
	"required_status_checks":           "requiredStatusCheckContexts",
	"requires_strict_status_checks":    "requiresStrictStatusChecks",
	"is_admin_enforced":                "isAdminEnforced",
	"requires_commit_signatures":       "requiresCommitSignatures",
	"requires_linear_history":          "requiresLinearHistory",
	"requires_conversation_resolution": "requiresConversationResolution",
	"allows_force_pushes":              "allowsForcePushes",
	"allows_deletions":                 "allowsDeletions",
	"restricts_pushes":                 "restrictsPushes",
	"push_restrictions":                "pushActorIds",
}

const listBranchProtectionRulesQuery = `
query($owner: String!, $name: String!, $cursor: String) {
  repository(owner: $owner, name: $name) {
    branchProtectionRules(first: 100, after: $cursor) {
      nodes {
        id
        pattern
        requiresApprovingReviews
        requiredApprovingReviewCount
        dismissesStaleReviews
        requiresCodeOwnerReviews
        requiresStatusChecks
        requiredStatusCheckContexts
        requiresStrictStatusChecks
        isAdminEnforced
        requiresCommitSignatures
        requiresLinearHistory
        requiresConversationResolution
        allowsForcePushes
        allowsDeletions
        restrictsPushes
      }
      pageInfo {
        hasNextPage
        endCursor
      }
    }
  }
}`

func (c *graphQLClient) listBranchProtectionRules(ctx context.Context, orgID, repoName string) ([]map[string]any, error) {
	gqlLog.Printf("retrieving branch protection rules for repo '%s/%s'", orgID, repoName)

	var rules []map[string]any
	var cursor *string

	for {
		var response struct {
			Repository struct {
				BranchProtectionRules struct {
					Nodes    []map[string]any
					PageInfo struct {
						HasNextPage bool
						EndCursor   string
					}
				}
			}
		}

		variables := map[string]any{
			"owner":  orgID,
			"name":   repoName,
			"cursor": cursor,
		}
		if err := c.doWithContext(ctx, listBranchProtectionRulesQuery, variables, &response); err != nil {
			return nil, fmt.Errorf("failed retrieving branch protection rules for repo '%s': %w", repoName, err)
		}

		for _, node := range response.Repository.BranchProtectionRules.Nodes {
			rules = append(rules, providerRuleToModel(node))
		}

		info := response.Repository.BranchProtectionRules.PageInfo
		if !info.HasNextPage {
			return rules, nil
		}
		cursor = &info.EndCursor
	}
}

func (c *graphQLClient) addBranchProtectionRule(ctx context.Context, orgID, repoName string, data map[string]any) error {
	gqlLog.Printf("creating branch protection rule for repo '%s/%s'", orgID, repoName)

	repositoryID, err := c.getRepositoryNodeID(ctx, orgID, repoName)
	if err != nil {
		return err
	}

	input, err := c.modelRuleToProvider(ctx, orgID, data)
	if err != nil {
		return err
	}
	input["repositoryId"] = repositoryID

	mutation := `
mutation($input: CreateBranchProtectionRuleInput!) {
  createBranchProtectionRule(input: $input) {
    branchProtectionRule { id }
  }
}`
	var response map[string]any
	if err := c.doWithContext(ctx, mutation, map[string]any{"input": input}, &response); err != nil {
		return fmt.Errorf("failed to create branch protection rule: %w", err)
	}
	return nil
}

func (c *graphQLClient) updateBranchProtectionRule(ctx context.Context, orgID, repoName, ruleID string, data map[string]any) error {
	gqlLog.Printf("updating branch protection rule '%s' of repo '%s/%s'", ruleID, orgID, repoName)

	input, err := c.modelRuleToProvider(ctx, orgID, data)
	if err != nil {
		return err
	}
	input["branchProtectionRuleId"] = ruleID

	mutation := `
mutation($input: UpdateBranchProtectionRuleInput!) {
  updateBranchProtectionRule(input: $input) {
    branchProtectionRule { id }
  }
}`
	var response map[string]any
	if err := c.doWithContext(ctx, mutation, map[string]any{"input": input}, &response); err != nil {
		return fmt.Errorf("failed to update branch protection rule '%s': %w", ruleID, err)
	}
	return nil
}

func (c *graphQLClient) removeBranchProtectionRule(ctx context.Context, orgID, repoName, ruleID string) error {
	gqlLog.Printf("removing branch protection rule '%s' of repo '%s/%s'", ruleID, orgID, repoName)

	mutation := `
mutation($input: DeleteBranchProtectionRuleInput!) {
  deleteBranchProtectionRule(input: $input) {
    clientMutationId
  }
}`
	input := map[string]any{"branchProtectionRuleId": ruleID}
	var response map[string]any
	if err := c.doWithContext(ctx, mutation, map[string]any{"input": input}, &response); err != nil {
		return fmt.Errorf("failed to remove branch protection rule '%s': %w", ruleID, err)
	}
	return nil
}

func (c *graphQLClient) getRepositoryNodeID(ctx context.Context, orgID, repoName string) (string, error) {
	data, err := c.rest.getRepoData(ctx, orgID, repoName)
	if err != nil {
		return "", err
	}
	nodeID, _ := data["node_id"].(string)
	if nodeID == "" {
		return "", fmt.Errorf("repo '%s/%s' has no node id", orgID, repoName)
	}
	return nodeID, nil
}

// modelRuleToProvider translates a model-shaped payload into mutation
// input: snake_case keys become the schema's camelCase names and declared
// push actor slugs are resolved into opaque node ids.
func (c *graphQLClient) modelRuleToProvider(ctx context.Context, orgID string, data map[string]any) (map[string]any, error) {
	input := make(map[string]any, len(data))
	for key, value := range data {
		providerKey, ok := branchProtectionRuleFields[key]
		if !ok {
			continue
		}
		if key == "push_restrictions" {
			actorIDs, err := c.resolveActorIDs(ctx, orgID, toStrings(value))
			if err != nil {
				return nil, err
			}
			input[providerKey] = actorIDs
			continue
		}
		input[providerKey] = value
	}
	return input, nil
}

// resolveActorIDs translates declared actor slugs into node ids. Slugs
// containing a '/' refer to teams, slugs prefixed with 'app/' to GitHub
// apps, everything else to users.
func (c *graphQLClient) resolveActorIDs(ctx context.Context, orgID string, actors []string) ([]string, error) {
	ids := make([]string, 0, len(actors))
	for _, actor := range actors {
		actor = strings.TrimPrefix(actor, "@")

		var id string
		var err error
		switch {
		case strings.HasPrefix(actor, "app/"):
			id, err = c.rest.getAppNodeID(ctx, strings.TrimPrefix(actor, "app/"))
		case strings.Contains(actor, "/"):
			id, err = c.rest.getTeamNodeID(ctx, actor)
		default:
			id, err = c.rest.getUserNodeID(ctx, actor)
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// providerRuleToModel flattens a GraphQL node into the model's snake_case
// attribute names.
func providerRuleToModel(node map[string]any) map[string]any {
	out := map[string]any{}
	if id, ok := node["id"]; ok {
		out["id"] = id
	}
	for modelKey, providerKey := range branchProtectionRuleFields {
		if v, ok := node[providerKey]; ok {
			out[modelKey] = v
		}
	}
	return out
}

// doWithContext runs one GraphQL request honoring the context deadline.
// The underlying client enforces its own per-request timeout; the context
// is checked before dispatch so cancelled reconciliations stop early.
func (c *graphQLClient) doWithContext(ctx context.Context, query string, variables map[string]any, response any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= 0 {
		return context.DeadlineExceeded
	}
	return c.client.Do(query, variables, response)
}
