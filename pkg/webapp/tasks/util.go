package tasks

import (
	"context"
	"fmt"

	"github.com/autumnfound/otterdog/pkg/webapp/db"
)

// the status context attached to commit statuses created during
// validation.
const validationContext = "otterdog-validate"

// configPath is the location of the declarative configuration inside the
// configuration repository.
func configPath(githubID string) string {
	return githubID + ".jsonnet"
}

// pullRequestUpdate mutates the tracked state of one pull request.
type pullRequestUpdate struct {
	Valid               *bool
	InSync              *bool
	RequiresManualApply *bool
	ApplyStatus         db.ApplyStatus
}

// updatePullRequest upserts the tracked model of a pull request, applying
// the given partial update.
func updatePullRequest(ctx context.Context, env *Env, org, repo string, number int,
	status db.PullRequestStatus, draft bool, update pullRequestUpdate) error {

	pr, err := env.Store.FindPullRequest(ctx, org, repo, number)
	if err != nil {
		return err
	}
	if pr == nil {
		pr = &db.PullRequestModel{
			OrgID:       org,
			RepoName:    repo,
			PullRequest: number,
		}
	}
	pr.Status = status
	pr.Draft = draft

	if update.Valid != nil {
		pr.Valid = update.Valid
	}
	if update.InSync != nil {
		pr.InSync = update.InSync
	}
	if update.RequiresManualApply != nil {
		pr.RequiresManualApply = update.RequiresManualApply
	}
	if update.ApplyStatus != "" {
		pr.ApplyStatus = update.ApplyStatus
	}

	return env.Store.SavePullRequest(ctx, pr)
}

// pullRequestStatusOf maps provider pull request data onto the tracked
// status.
func pullRequestStatusOf(pr map[string]any) (db.PullRequestStatus, error) {
	state, _ := pr["state"].(string)
	merged := false
	if m, ok := pr["merged"].(bool); ok {
		merged = m
	} else if pr["merged_at"] != nil {
		merged = true
	}
	return db.GetPullRequestStatus(state, merged)
}

func prNumberOf(pr map[string]any) (int, error) {
	if n, ok := pr["number"].(float64); ok {
		return int(n), nil
	}
	return 0, fmt.Errorf("pull request has no number")
}

func prDraftOf(pr map[string]any) bool {
	draft, _ := pr["draft"].(bool)
	return draft
}

func boolPtr(b bool) *bool {
	return &b
}
