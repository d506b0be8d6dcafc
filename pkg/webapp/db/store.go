package db

import (
	"context"
)

// Page describes a paged query. Filters match individual fields exactly.
type Page struct {
	PageIndex int
	PageSize  int
	SortField string
	SortOrder string
	Filters   map[string]string
}

// normalize applies the query defaults.
func (p Page) normalize(defaultSort string) Page {
	if p.PageIndex < 1 {
		p.PageIndex = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.SortField == "" {
		p.SortField = defaultSort
	}
	if p.SortOrder == "" {
		p.SortOrder = "desc"
	}
	return p
}

// Store is the persistence surface of the webhook service. It is the
// authority for task status; workers coordinate only through it and the
// engine's per-key mutexes.
type Store interface {
	GetInstallation(ctx context.Context, installationID int64) (*InstallationModel, error)
	GetInstallationByGitHubID(ctx context.Context, githubID string) (*InstallationModel, error)
	ListInstallations(ctx context.Context) ([]*InstallationModel, error)
	SaveInstallation(ctx context.Context, installation *InstallationModel) error

	GetConfiguration(ctx context.Context, githubID string) (*ConfigurationModel, error)
	SaveConfiguration(ctx context.Context, configuration *ConfigurationModel) error

	CreateTask(ctx context.Context, task *TaskModel) error
	UpdateTask(ctx context.Context, task *TaskModel) error
	ListTasksPaged(ctx context.Context, page Page) ([]*TaskModel, int64, error)

	FindPullRequest(ctx context.Context, orgID, repoName string, pullRequest int) (*PullRequestModel, error)
	SavePullRequest(ctx context.Context, pullRequest *PullRequestModel) error
	ListPullRequestsPaged(ctx context.Context, page Page) ([]*PullRequestModel, int64, error)
}
