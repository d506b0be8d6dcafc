package tasks

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/autumnfound/otterdog/pkg/console"
	"github.com/autumnfound/otterdog/pkg/loader"
	"github.com/autumnfound/otterdog/pkg/provider"
	"github.com/autumnfound/otterdog/pkg/reconcile"
	"github.com/autumnfound/otterdog/pkg/webapp/db"
)

// ApplyChangesTask applies the configuration of a merged pull request to
// the live organization. On success the pull request is marked COMPLETED;
// on failure the status stays FAILED so the apply can be retried, and the
// failure is surfaced as a comment.
type ApplyChangesTask struct {
	Org  string
	Repo string
	Pull int
}

func (t ApplyChangesTask) Identity() Identity {
	return Identity{Type: "ApplyChangesTask", Org: t.Org, Repo: t.Repo, Pull: t.Pull}
}

func (t ApplyChangesTask) Execute(ctx context.Context, env *Env) error {
	env.Logger.Info("applying changes for merged pull request",
		zap.String("org", t.Org), zap.String("repo", t.Repo), zap.Int("pull_request", t.Pull))

	pr, err := env.Store.FindPullRequest(ctx, t.Org, t.Repo, t.Pull)
	if err != nil {
		return err
	}
	if pr != nil && pr.ApplyStatus == db.ApplyCompleted {
		env.Logger.Info("changes already applied, skipping", zap.Int("pull_request", t.Pull))
		return nil
	}

	prov, err := env.NewProvider(t.Org)
	if err != nil {
		return err
	}

	applyErr := t.apply(ctx, env, prov)

	status := db.ApplyCompleted
	if applyErr != nil {
		status = db.ApplyFailed
		comment := fmt.Sprintf(
			"Applying the changes of this pull request failed:\n\n```\n%v\n```\n\nThe apply is not retried automatically; the pull request stays marked as not applied, manual intervention might be required.",
			applyErr)
		if err := prov.CreateIssueComment(ctx, t.Org, t.Repo, t.Pull, comment); err != nil {
			env.Logger.Warn("failed to comment apply failure", zap.Error(err))
		}
	}

	if pr == nil {
		pr = &db.PullRequestModel{
			OrgID:       t.Org,
			RepoName:    t.Repo,
			PullRequest: t.Pull,
			Status:      db.PullRequestMerged,
		}
	}
	pr.ApplyStatus = status
	if err := env.Store.SavePullRequest(ctx, pr); err != nil {
		return err
	}
	return applyErr
}

func (t ApplyChangesTask) apply(ctx context.Context, env *Env, prov provider.Provider) error {
	content, err := prov.GetContent(ctx, t.Org, t.Repo, configPath(t.Org), "")
	if err != nil {
		return fmt.Errorf("failed fetching configuration: %w", err)
	}
	expected, err := loader.LoadFromDeclaredSource(t.Org, configPath(t.Org), content)
	if err != nil {
		return err
	}

	current, err := (&loader.LiveLoader{Provider: prov, IncludeWeb: false}).Load(ctx, t.Org)
	if err != nil {
		return err
	}

	var output strings.Builder
	planner := &reconcile.Planner{
		Provider: prov,
		Printer:  console.NewPrinter(&output),
	}

	if _, err := planner.Apply(ctx, t.Org, expected, current); err != nil {
		env.Logger.Error("apply failed",
			zap.String("org", t.Org), zap.String("output", output.String()), zap.Error(err))
		return err
	}
	env.Logger.Info("apply finished", zap.String("org", t.Org), zap.String("output", output.String()))
	return nil
}
