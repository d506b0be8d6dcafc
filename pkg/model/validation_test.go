package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orgWith(t *testing.T, data map[string]any) *Organization {
	t.Helper()
	org, err := NewOrganizationFromDeclared("test-org", data)
	require.NoError(t, err)
	return org
}

func failureMessages(ctx *ValidationContext, kind FailureType) []string {
	var out []string
	for _, f := range ctx.Failures() {
		if f.Type == kind {
			out = append(out, f.Message)
		}
	}
	return out
}

func TestValidatePrivateRepoForkingAgainstOrgPolicy(t *testing.T) {
	org := orgWith(t, map[string]any{
		"settings": map[string]any{
			"plan":                                  "free",
			"members_can_fork_private_repositories": false,
		},
		"repositories": []any{
			map[string]any{
				"name":          "internal",
				"private":       true,
				"allow_forking": true,
			},
		},
	})

	ctx := org.Validate()
	require.Equal(t, 1, ctx.ErrorCount())
	assert.Contains(t, failureMessages(ctx, FailureError)[0], `private repo[name="internal"] has 'allow_forking' enabled`)
}

func TestValidatePublicRepoDisallowedForkingIsWarning(t *testing.T) {
	org := orgWith(t, map[string]any{
		"settings": map[string]any{"plan": "free"},
		"repositories": []any{
			map[string]any{"name": "website", "private": false, "allow_forking": false},
		},
	})

	ctx := org.Validate()
	assert.Equal(t, 0, ctx.ErrorCount())
	assert.Equal(t, 1, ctx.WarningCount())
}

func TestValidatePrivateWikiOnFreePlanIsWarning(t *testing.T) {
	org := orgWith(t, map[string]any{
		"settings": map[string]any{"plan": "free"},
		"repositories": []any{
			map[string]any{"name": "internal", "private": true, "has_wiki": true},
		},
	})

	ctx := org.Validate()
	require.Equal(t, 1, ctx.WarningCount())
	assert.Contains(t, failureMessages(ctx, FailureWarning)[0], "requires at least GitHub Team billing")
}

func TestValidateSignoffContradiction(t *testing.T) {
	org := orgWith(t, map[string]any{
		"settings": map[string]any{
			"plan":                        "free",
			"web_commit_signoff_required": true,
		},
		"repositories": []any{
			map[string]any{"name": "website", "web_commit_signoff_required": false},
		},
	})

	ctx := org.Validate()
	require.Equal(t, 1, ctx.ErrorCount())
	assert.Contains(t, failureMessages(ctx, FailureError)[0],
		`repo[name="website"] has 'web_commit_signoff_required' disabled while the organization requires it.`)
}

func TestValidateRepoWorkflowsEnabledWhileOrgDisablesAll(t *testing.T) {
	org := orgWith(t, map[string]any{
		"settings": map[string]any{
			"plan":      "free",
			"workflows": map[string]any{"enabled_repositories": "none"},
		},
		"repositories": []any{
			map[string]any{
				"name":      "tools",
				"workflows": map[string]any{"enabled": true},
			},
		},
	})

	ctx := org.Validate()
	require.Equal(t, 1, ctx.ErrorCount())
	assert.Contains(t, failureMessages(ctx, FailureError)[0], "has enabled workflows")
}

func TestValidateRepoWorkflowPermissionsSubsumption(t *testing.T) {
	org := orgWith(t, map[string]any{
		"settings": map[string]any{
			"plan": "free",
			"workflows": map[string]any{
				"enabled_repositories":         "all",
				"default_workflow_permissions": "read",
			},
		},
		"repositories": []any{
			map[string]any{
				"name": "tools",
				"workflows": map[string]any{
					"enabled":                      true,
					"default_workflow_permissions": "write",
				},
			},
		},
	})

	ctx := org.Validate()
	require.Equal(t, 1, ctx.ErrorCount())
	assert.Contains(t, failureMessages(ctx, FailureError)[0], "'default_workflow_permissions'")
}

func TestValidateArchivedRepoSkipsChildValidation(t *testing.T) {
	org := orgWith(t, map[string]any{
		"settings": map[string]any{
			"plan":      "free",
			"workflows": map[string]any{"enabled_repositories": "none"},
		},
		"repositories": []any{
			map[string]any{
				"name":      "attic",
				"archived":  true,
				"workflows": map[string]any{"enabled": true},
			},
		},
	})

	ctx := org.Validate()
	assert.Equal(t, 0, ctx.ErrorCount())
}

func TestValidateBranchProtectionReviewCountRange(t *testing.T) {
	org := orgWith(t, map[string]any{
		"settings": map[string]any{"plan": "free"},
		"repositories": []any{
			map[string]any{
				"name": "website",
				"branch_protection_rules": []any{
					map[string]any{
						"pattern":                         "main",
						"requires_approving_reviews":      true,
						"required_approving_review_count": 7,
					},
				},
			},
		},
	})

	ctx := org.Validate()
	require.Equal(t, 1, ctx.ErrorCount())
	assert.Contains(t, failureMessages(ctx, FailureError)[0], "outside of the allowed range")
}

func TestValidateWebhookInsecureURLIsWarning(t *testing.T) {
	org := orgWith(t, map[string]any{
		"settings": map[string]any{"plan": "free"},
		"webhooks": []any{
			map[string]any{"url": "http://example.org/hook", "events": []any{"push"}},
		},
	})

	ctx := org.Validate()
	assert.Equal(t, 1, ctx.WarningCount())
}

func TestValidatorIsPureAndAccumulates(t *testing.T) {
	org := orgWith(t, map[string]any{
		"settings": map[string]any{
			"plan":                        "free",
			"web_commit_signoff_required": true,
		},
		"repositories": []any{
			map[string]any{"name": "a", "web_commit_signoff_required": false},
			map[string]any{"name": "b", "web_commit_signoff_required": false},
		},
	})

	ctx := org.Validate()
	assert.Equal(t, 2, ctx.ErrorCount())
	// a second pass yields the same result.
	assert.Equal(t, 2, org.Validate().ErrorCount())
}
