package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/autumnfound/otterdog/pkg/config"
	"github.com/autumnfound/otterdog/pkg/provider"
	"github.com/autumnfound/otterdog/pkg/webapp/db"
)

type testTask struct {
	identity Identity
	execute  func(ctx context.Context, env *Env) error
}

func (t *testTask) Identity() Identity {
	return t.identity
}

func (t *testTask) Execute(ctx context.Context, env *Env) error {
	return t.execute(ctx, env)
}

func testEnv(fake *provider.Fake) (*Env, *db.MemoryStore) {
	store := db.NewMemoryStore()
	env := &Env{
		Config: &config.Config{},
		Store:  store,
		Logger: zap.NewNop(),
		NewProvider: func(orgID string) (provider.Provider, error) {
			return fake, nil
		},
	}
	return env, store
}

func TestEngineDeduplicatesInflightTasks(t *testing.T) {
	env, _ := testEnv(provider.NewFake())
	engine := NewEngine(env, 4)

	var executions atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	task := &testTask{
		identity: Identity{Type: "TestTask", Org: "acme", Repo: ".otterdog", Pull: 1},
		execute: func(ctx context.Context, env *Env) error {
			once.Do(func() { close(started) })
			executions.Add(1)
			<-release
			return nil
		},
	}

	engine.Schedule(task)
	<-started
	// identical identity while the first is running: must be a no-op.
	engine.Schedule(task)
	engine.Schedule(task)
	close(release)
	engine.Wait()

	assert.EqualValues(t, 1, executions.Load())
}

func TestEngineRunsDisjointKeysInParallel(t *testing.T) {
	env, _ := testEnv(provider.NewFake())
	engine := NewEngine(env, 4)

	bothRunning := make(chan struct{})
	var running atomic.Int32

	mkTask := func(org string) *testTask {
		return &testTask{
			identity: Identity{Type: "TestTask", Org: org, Repo: ".otterdog"},
			execute: func(ctx context.Context, env *Env) error {
				if running.Add(1) == 2 {
					close(bothRunning)
				}
				select {
				case <-bothRunning:
					return nil
				case <-time.After(5 * time.Second):
					return errors.New("peer task never started")
				}
			},
		}
	}

	engine.Schedule(mkTask("acme"))
	engine.Schedule(mkTask("other"))
	engine.Wait()

	select {
	case <-bothRunning:
	default:
		t.Fatal("tasks for disjoint keys did not run in parallel")
	}
}

func TestEngineSerializesSameKey(t *testing.T) {
	env, _ := testEnv(provider.NewFake())
	engine := NewEngine(env, 4)

	var active, maxActive atomic.Int32

	mkTask := func(taskType string) *testTask {
		return &testTask{
			identity: Identity{Type: taskType, Org: "acme", Repo: ".otterdog"},
			execute: func(ctx context.Context, env *Env) error {
				n := active.Add(1)
				for {
					current := maxActive.Load()
					if n <= current || maxActive.CompareAndSwap(current, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				active.Add(-1)
				return nil
			},
		}
	}

	engine.Schedule(mkTask("TaskA"))
	engine.Schedule(mkTask("TaskB"))
	engine.Schedule(mkTask("TaskC"))
	engine.Wait()

	assert.EqualValues(t, 1, maxActive.Load(), "tasks for the same (org, repo) must serialize")
}

func TestEnginePersistsTaskLifecycle(t *testing.T) {
	env, store := testEnv(provider.NewFake())
	engine := NewEngine(env, 2)

	engine.Schedule(&testTask{
		identity: Identity{Type: "GoodTask", Org: "acme", Repo: ".otterdog"},
		execute:  func(ctx context.Context, env *Env) error { return nil },
	})
	engine.Schedule(&testTask{
		identity: Identity{Type: "BadTask", Org: "acme", Repo: ".otterdog"},
		execute:  func(ctx context.Context, env *Env) error { return errors.New("boom") },
	})
	engine.Wait()

	tasks, total, err := store.ListTasksPaged(context.Background(), db.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	byType := map[string]*db.TaskModel{}
	for _, task := range tasks {
		byType[task.Type] = task
	}
	require.Contains(t, byType, "GoodTask")
	require.Contains(t, byType, "BadTask")
	assert.Equal(t, db.TaskFinished, byType["GoodTask"].Status)
	assert.Equal(t, db.TaskFailed, byType["BadTask"].Status)
	assert.Contains(t, byType["BadTask"].Log, "boom")
}

func TestFetchAllPullRequestsImportsMergedAsCompleted(t *testing.T) {
	fake := provider.NewFake()
	fake.PullRequests = []map[string]any{
		{"number": float64(1), "state": "open", "draft": false},
		{"number": float64(2), "state": "closed", "merged_at": "2024-03-01T10:00:00Z"},
		{"number": float64(3), "state": "closed"},
	}

	env, store := testEnv(fake)
	task := FetchAllPullRequestsTask{Org: "acme", Repo: ".otterdog"}
	require.NoError(t, task.Execute(context.Background(), env))

	ctx := context.Background()

	open, err := store.FindPullRequest(ctx, "acme", ".otterdog", 1)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, db.PullRequestOpen, open.Status)
	assert.Empty(t, open.ApplyStatus)

	merged, err := store.FindPullRequest(ctx, "acme", ".otterdog", 2)
	require.NoError(t, err)
	require.NotNil(t, merged)
	assert.Equal(t, db.PullRequestMerged, merged.Status)
	assert.Equal(t, db.ApplyCompleted, merged.ApplyStatus)

	closed, err := store.FindPullRequest(ctx, "acme", ".otterdog", 3)
	require.NoError(t, err)
	require.NotNil(t, closed)
	assert.Equal(t, db.PullRequestClosed, closed.Status)
}

func TestApplyChangesTaskMarksCompleted(t *testing.T) {
	fake := provider.NewFake()
	fake.OrgSettings = map[string]any{
		"login":                       "acme",
		"plan":                        map[string]any{"name": "free"},
		"web_commit_signoff_required": false,
	}
	fake.OrgWorkflowSettings = map[string]any{}
	fake.Contents[".otterdog/acme.jsonnet"] = `{ settings: { web_commit_signoff_required: true } }`

	env, store := testEnv(fake)
	task := ApplyChangesTask{Org: "acme", Repo: ".otterdog", Pull: 5}
	require.NoError(t, task.Execute(context.Background(), env))

	pr, err := store.FindPullRequest(context.Background(), "acme", ".otterdog", 5)
	require.NoError(t, err)
	require.NotNil(t, pr)
	assert.Equal(t, db.ApplyCompleted, pr.ApplyStatus)

	// the settings change reached the provider.
	calls := fake.CallsTo("UpdateOrgSettings")
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"web_commit_signoff_required": true}, calls[0].Data)
}

func TestApplyChangesTaskSkipsAlreadyCompleted(t *testing.T) {
	fake := provider.NewFake()
	env, store := testEnv(fake)

	require.NoError(t, store.SavePullRequest(context.Background(), &db.PullRequestModel{
		OrgID: "acme", RepoName: ".otterdog", PullRequest: 5,
		Status: db.PullRequestMerged, ApplyStatus: db.ApplyCompleted,
	}))

	task := ApplyChangesTask{Org: "acme", Repo: ".otterdog", Pull: 5}
	require.NoError(t, task.Execute(context.Background(), env))
	assert.Empty(t, fake.Calls(), "an already applied pull request must not trigger provider calls")
}

func TestApplyChangesTaskFailureLeavesRetryableState(t *testing.T) {
	fake := provider.NewFake()
	fake.OrgSettings = map[string]any{
		"login":                       "acme",
		"plan":                        map[string]any{"name": "free"},
		"web_commit_signoff_required": false,
	}
	fake.OrgWorkflowSettings = map[string]any{}
	fake.Contents[".otterdog/acme.jsonnet"] = `{ settings: { web_commit_signoff_required: true } }`
	fake.Errs["UpdateOrgSettings"] = errors.New("boom")

	env, store := testEnv(fake)
	task := ApplyChangesTask{Org: "acme", Repo: ".otterdog", Pull: 6}
	require.Error(t, task.Execute(context.Background(), env))

	pr, err := store.FindPullRequest(context.Background(), "acme", ".otterdog", 6)
	require.NoError(t, err)
	require.NotNil(t, pr)
	assert.Equal(t, db.ApplyFailed, pr.ApplyStatus)

	// the failure is surfaced on the pull request.
	assert.NotEmpty(t, fake.CallsTo("CreateIssueComment"))
}

func TestValidatePullRequestTaskPostsComment(t *testing.T) {
	fake := provider.NewFake()
	fake.PullRequests = []map[string]any{
		{
			"number": float64(3),
			"state":  "open",
			"draft":  false,
			"head":   map[string]any{"sha": "headsha"},
			"base":   map[string]any{"ref": "main"},
		},
	}
	// fake.GetContent serves by repo/path only, so BASE and HEAD return the
	// same content here: the validation reports "No changes."
	fake.Contents[".otterdog/acme.jsonnet"] = `{ settings: { plan: "free" } }`

	env, store := testEnv(fake)
	engine := NewEngine(env, 2)

	task := ValidatePullRequestTask{Org: "acme", Repo: ".otterdog", Pull: 3}
	require.NoError(t, task.Execute(context.Background(), env))
	engine.Wait()

	comments := fake.CallsTo("CreateIssueComment")
	require.Len(t, comments, 1)
	assert.Contains(t, comments[0].Name, "No changes.")

	statuses := fake.CallsTo("CreateCommitStatus")
	require.Len(t, statuses, 2)
	assert.Equal(t, "pending", statuses[0].Name)
	assert.Equal(t, "success", statuses[1].Name)

	pr, err := store.FindPullRequest(context.Background(), "acme", ".otterdog", 3)
	require.NoError(t, err)
	require.NotNil(t, pr)
	require.NotNil(t, pr.Valid)
	assert.True(t, *pr.Valid)
}
