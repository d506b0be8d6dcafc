// Package db implements the document store of the webhook service:
// installations, configurations, tasks and pull requests.
package db

import (
	"fmt"
	"time"
)

// InstallationStatus is the state of the GitHub App installation for one
// organization.
type InstallationStatus string

const (
	InstallationInstalled    InstallationStatus = "INSTALLED"
	InstallationNotInstalled InstallationStatus = "NOT_INSTALLED"
	InstallationSuspended    InstallationStatus = "SUSPENDED"
)

// TaskStatus is the lifecycle state of a persisted task.
type TaskStatus string

const (
	TaskCreated  TaskStatus = "CREATED"
	TaskFinished TaskStatus = "FINISHED"
	TaskFailed   TaskStatus = "FAILED"
)

// PullRequestStatus is the state of a tracked pull request.
type PullRequestStatus string

const (
	PullRequestOpen   PullRequestStatus = "OPEN"
	PullRequestClosed PullRequestStatus = "CLOSED"
	PullRequestMerged PullRequestStatus = "MERGED"
)

// ApplyStatus tracks whether the changes of a merged pull request have
// been applied.
type ApplyStatus string

const (
	ApplyNotStarted ApplyStatus = "NOT_STARTED"
	ApplyCompleted  ApplyStatus = "COMPLETED"
	ApplyFailed     ApplyStatus = "FAILED"
)

// GetPullRequestStatus maps the provider's state/merged pair onto the
// tracked status. It is total over valid inputs and deterministic; any
// other combination is invalid input.
func GetPullRequestStatus(state string, merged bool) (PullRequestStatus, error) {
	switch state {
	case "open":
		return PullRequestOpen, nil
	case "closed":
		if merged {
			return PullRequestMerged, nil
		}
		return PullRequestClosed, nil
	default:
		return "", fmt.Errorf("unexpected pull request state '%s'", state)
	}
}

// InstallationModel tracks the GitHub App installation of one
// organization.
type InstallationModel struct {
	InstallationID int64              `bson:"installation_id"`
	GitHubID       string             `bson:"github_id"`
	ProjectName    string             `bson:"project_name,omitempty"`
	ConfigRepo     string             `bson:"config_repo,omitempty"`
	BaseTemplate   string             `bson:"base_template,omitempty"`
	Status         InstallationStatus `bson:"installation_status"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}

// ConfigurationModel is the cached declarative configuration of one
// organization.
type ConfigurationModel struct {
	GitHubID    string    `bson:"github_id"`
	ProjectName string    `bson:"project_name,omitempty"`
	Config      string    `bson:"config"`
	SHA         string    `bson:"sha"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

// TaskModel is the persisted record of one background task.
type TaskModel struct {
	ID          string     `bson:"_id"`
	Type        string     `bson:"type"`
	OrgID       string     `bson:"org_id"`
	RepoName    string     `bson:"repo_name"`
	PullRequest int        `bson:"pull_request,omitempty"`
	Status      TaskStatus `bson:"status"`
	Log         string     `bson:"log,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at"`
}

// PullRequestModel tracks the validation and apply state of one pull
// request on a configuration repository.
type PullRequestModel struct {
	OrgID       string            `bson:"org_id"`
	RepoName    string            `bson:"repo_name"`
	PullRequest int               `bson:"pull_request"`
	Draft       bool              `bson:"draft"`
	Status      PullRequestStatus `bson:"status"`

	Valid               *bool       `bson:"valid,omitempty"`
	InSync              *bool       `bson:"in_sync,omitempty"`
	RequiresManualApply *bool       `bson:"requires_manual_apply,omitempty"`
	ApplyStatus         ApplyStatus `bson:"apply_status,omitempty"`

	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
	ClosedAt  *time.Time `bson:"closed_at,omitempty"`
	MergedAt  *time.Time `bson:"merged_at,omitempty"`
}
