package webapp

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/go-playground/webhooks.v5/github"

	"github.com/autumnfound/otterdog/pkg/config"
	"github.com/autumnfound/otterdog/pkg/webapp/db"
	"github.com/autumnfound/otterdog/pkg/webapp/tasks"
)

// handleWebhook verifies and dispatches one webhook delivery. Handlers
// only enqueue tasks and return immediately.
func (a *App) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := a.hook.Parse(r,
		github.InstallationEvent,
		github.PullRequestEvent,
		github.PushEvent,
		github.IssueCommentEvent,
	)
	if err != nil {
		if errors.Is(err, github.ErrEventNotFound) {
			// an event we are not interested in; acknowledge it.
			w.WriteHeader(http.StatusOK)
			return
		}
		a.logger.Warn("rejecting webhook delivery", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event := payload.(type) {
	case github.InstallationPayload:
		a.onInstallation(r.Context(), event)
	case github.PullRequestPayload:
		a.onPullRequest(event)
	case github.PushPayload:
		a.onPush(event)
	case github.IssueCommentPayload:
		a.onIssueComment(r.Context(), event)
	}

	w.WriteHeader(http.StatusOK)
}

func (a *App) onInstallation(ctx context.Context, event github.InstallationPayload) {
	githubID := event.Installation.Account.Login
	a.logger.Info("installation event",
		zap.String("org", githubID), zap.String("action", event.Action))

	installation, err := a.store.GetInstallationByGitHubID(ctx, githubID)
	if err != nil {
		a.logger.Error("failed to load installation", zap.Error(err))
		return
	}
	if installation == nil {
		installation = &db.InstallationModel{
			InstallationID: event.Installation.ID,
			GitHubID:       githubID,
		}
		if org, err := a.config.GetOrganizationConfig(githubID); err == nil {
			installation.ProjectName = org.Name
			installation.ConfigRepo = org.ConfigRepo
			installation.BaseTemplate = org.BaseTemplate
		}
	}

	previous := installation.Status
	switch event.Action {
	case "created", "unsuspend":
		installation.Status = db.InstallationInstalled
	case "deleted":
		installation.Status = db.InstallationNotInstalled
	case "suspend":
		installation.Status = db.InstallationSuspended
	default:
		return
	}
	installation.InstallationID = event.Installation.ID

	if err := a.store.SaveInstallation(ctx, installation); err != nil {
		a.logger.Error("failed to save installation", zap.Error(err))
		return
	}

	// a fresh installation seeds the cached configuration and the tracked
	// pull requests.
	if installation.Status == db.InstallationInstalled && previous != db.InstallationInstalled {
		configRepo := installation.ConfigRepo
		if configRepo == "" {
			configRepo = config.DefaultConfigRepo
		}
		a.engine.Schedule(tasks.FetchConfigTask{Org: githubID, Repo: configRepo})
		a.engine.Schedule(tasks.FetchAllPullRequestsTask{Org: githubID, Repo: configRepo})
	}
}

func (a *App) onPullRequest(event github.PullRequestPayload) {
	org := event.Repository.Owner.Login
	repo := event.Repository.Name
	if !a.isConfigRepo(org, repo) {
		return
	}

	number := int(event.Number)
	a.logger.Info("pull request event",
		zap.String("repo", org+"/"+repo), zap.Int("pull_request", number),
		zap.String("action", event.Action))

	switch event.Action {
	case "opened", "synchronize", "reopened":
		a.engine.Schedule(tasks.ValidatePullRequestTask{Org: org, Repo: repo, Pull: number})
	case "closed":
		if event.PullRequest.Merged {
			a.engine.Schedule(tasks.ApplyChangesTask{Org: org, Repo: repo, Pull: number})
		} else {
			a.markPullRequestClosed(org, repo, number)
		}
	}
}

func (a *App) onPush(event github.PushPayload) {
	org := event.Repository.Owner.Login
	repo := event.Repository.Name
	if !a.isConfigRepo(org, repo) {
		return
	}
	if event.Ref != "refs/heads/"+event.Repository.DefaultBranch {
		return
	}

	configFile := org + ".jsonnet"
	touched := false
	for _, commit := range event.Commits {
		for _, files := range [][]string{commit.Added, commit.Modified, commit.Removed} {
			for _, file := range files {
				if file == configFile {
					touched = true
				}
			}
		}
	}
	if !touched {
		return
	}

	a.logger.Info("configuration changed on default branch",
		zap.String("repo", org+"/"+repo))
	a.engine.Schedule(tasks.FetchConfigTask{Org: org, Repo: repo})
}

func (a *App) onIssueComment(ctx context.Context, event github.IssueCommentPayload) {
	org := event.Repository.Owner.Login
	repo := event.Repository.Name
	if !a.isConfigRepo(org, repo) || event.Action != "created" {
		return
	}
	if strings.TrimSpace(event.Comment.Body) != "/otterdog validate" {
		return
	}

	// only comments on tracked pull requests re-trigger validation.
	number := int(event.Issue.Number)
	pr, err := a.store.FindPullRequest(ctx, org, repo, number)
	if err != nil || pr == nil || pr.Status != db.PullRequestOpen {
		return
	}

	a.engine.Schedule(tasks.ValidatePullRequestTask{Org: org, Repo: repo, Pull: number})
}

// isConfigRepo reports whether a repository hosts the declarative
// configuration of its organization.
func (a *App) isConfigRepo(org, repo string) bool {
	if orgConfig, err := a.config.GetOrganizationConfig(org); err == nil {
		return orgConfig.ConfigRepo == repo
	}
	return false
}

func (a *App) markPullRequestClosed(org, repo string, number int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pr, err := a.store.FindPullRequest(ctx, org, repo, number)
	if err != nil || pr == nil {
		return
	}
	pr.Status = db.PullRequestClosed
	if err := a.store.SavePullRequest(ctx, pr); err != nil {
		a.logger.Error("failed to update pull request", zap.Error(err))
	}
}
