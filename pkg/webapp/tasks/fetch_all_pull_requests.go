package tasks

import (
	"context"

	"go.uber.org/zap"

	"github.com/autumnfound/otterdog/pkg/webapp/db"
)

// FetchAllPullRequestsTask imports all pull requests of a configuration
// repository into the store. Already merged pull requests are considered
// applied.
type FetchAllPullRequestsTask struct {
	Org  string
	Repo string
}

func (t FetchAllPullRequestsTask) Identity() Identity {
	return Identity{Type: "FetchAllPullRequestsTask", Org: t.Org, Repo: t.Repo}
}

func (t FetchAllPullRequestsTask) Execute(ctx context.Context, env *Env) error {
	env.Logger.Info("fetching all pull requests",
		zap.String("org", t.Org), zap.String("repo", t.Repo))

	prov, err := env.NewProvider(t.Org)
	if err != nil {
		return err
	}

	prs, err := prov.ListPullRequests(ctx, t.Org, t.Repo, "all", "")
	if err != nil {
		return err
	}

	for _, pr := range prs {
		number, err := prNumberOf(pr)
		if err != nil {
			return err
		}
		status, err := pullRequestStatusOf(pr)
		if err != nil {
			return err
		}

		update := pullRequestUpdate{}
		// when importing already merged PRs, their changes are considered
		// applied.
		if status == db.PullRequestMerged {
			update.ApplyStatus = db.ApplyCompleted
		}

		if err := updatePullRequest(ctx, env, t.Org, t.Repo, number, status, prDraftOf(pr), update); err != nil {
			return err
		}
	}
	return nil
}
