package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPullRequestStatus(t *testing.T) {
	tests := []struct {
		name    string
		state   string
		merged  bool
		want    PullRequestStatus
		wantErr bool
	}{
		{name: "open", state: "open", want: PullRequestOpen},
		{name: "open and merged flag ignored", state: "open", merged: true, want: PullRequestOpen},
		{name: "closed unmerged", state: "closed", want: PullRequestClosed},
		{name: "closed merged", state: "closed", merged: true, want: PullRequestMerged},
		{name: "unknown state", state: "draft", wantErr: true},
		{name: "empty state", state: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := GetPullRequestStatus(tt.state, tt.merged)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestMemoryStorePagedQueries(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, task := range []*TaskModel{
		{ID: "1", Type: "FetchConfigTask", OrgID: "acme", Status: TaskFinished},
		{ID: "2", Type: "ValidatePullRequestTask", OrgID: "acme", Status: TaskFailed},
		{ID: "3", Type: "FetchConfigTask", OrgID: "other", Status: TaskFinished},
	} {
		require.NoError(t, store.CreateTask(ctx, task))
	}

	tasks, total, err := store.ListTasksPaged(ctx, Page{Filters: map[string]string{"org_id": "acme"}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, tasks, 2)

	tasks, total, err = store.ListTasksPaged(ctx, Page{PageSize: 1, PageIndex: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, tasks, 1)
}

func TestMemoryStorePullRequestUpsert(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	pr := &PullRequestModel{OrgID: "acme", RepoName: ".otterdog", PullRequest: 7, Status: PullRequestOpen}
	require.NoError(t, store.SavePullRequest(ctx, pr))

	pr.Status = PullRequestMerged
	pr.ApplyStatus = ApplyCompleted
	require.NoError(t, store.SavePullRequest(ctx, pr))

	found, err := store.FindPullRequest(ctx, "acme", ".otterdog", 7)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, PullRequestMerged, found.Status)
	assert.Equal(t, ApplyCompleted, found.ApplyStatus)

	missing, err := store.FindPullRequest(ctx, "acme", ".otterdog", 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
