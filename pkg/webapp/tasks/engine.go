// Package tasks implements the background task engine of the webhook
// service and the tasks it runs.
//
// Tasks are identified by (type, org, repo, pull). Scheduling an identity
// that is already in flight is a no-op; tasks for the same (org, repo)
// serialize on a per-key mutex while tasks for disjoint keys run in
// parallel on a shared bounded worker pool. Every task execution is
// persisted before and after it runs; the store is the authority for task
// status.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/autumnfound/otterdog/pkg/config"
	"github.com/autumnfound/otterdog/pkg/provider"
	"github.com/autumnfound/otterdog/pkg/webapp/db"
)

// taskTimeout bounds one task execution, matching the reconciliation
// deadline.
const taskTimeout = 10 * time.Minute

// Identity names one task instance; identical identities deduplicate.
type Identity struct {
	Type string
	Org  string
	Repo string
	Pull int
}

func (i Identity) String() string {
	if i.Pull > 0 {
		return fmt.Sprintf("%s(repo=%s/%s, pull_request=#%d)", i.Type, i.Org, i.Repo, i.Pull)
	}
	return fmt.Sprintf("%s(repo=%s/%s)", i.Type, i.Org, i.Repo)
}

// Task is one unit of background work.
type Task interface {
	Identity() Identity
	Execute(ctx context.Context, env *Env) error
}

// Env carries the collaborators tasks need. It is passed explicitly; the
// service holds no process-wide singletons.
type Env struct {
	Config *config.Config
	Store  db.Store
	Logger *zap.Logger

	// NewProvider creates a provider authenticated for one organization.
	NewProvider func(orgID string) (provider.Provider, error)

	// Schedule enqueues a follow-up task; wired to Engine.Schedule.
	Schedule func(task Task)
}

// Engine runs tasks on a bounded worker pool with identity deduplication
// and per-(org, repo) serialization.
type Engine struct {
	env  *Env
	pool *pool.Pool

	mu       sync.Mutex
	inflight map[Identity]bool
	keyLocks map[string]*sync.Mutex
}

// NewEngine creates a task engine with the given worker bound.
func NewEngine(env *Env, workers int) *Engine {
	if workers <= 0 {
		workers = 4
	}
	engine := &Engine{
		env:      env,
		pool:     pool.New().WithMaxGoroutines(workers),
		inflight: make(map[Identity]bool),
		keyLocks: make(map[string]*sync.Mutex),
	}
	env.Schedule = engine.Schedule
	return engine
}

// Schedule enqueues a task unless an identical one is already in flight.
// Handlers return immediately; execution happens on a background worker.
func (e *Engine) Schedule(task Task) {
	identity := task.Identity()

	e.mu.Lock()
	if e.inflight[identity] {
		e.mu.Unlock()
		e.env.Logger.Debug("task already in flight, skipping", zap.String("task", identity.String()))
		return
	}
	e.inflight[identity] = true
	e.mu.Unlock()

	e.env.Logger.Info("scheduling task", zap.String("task", identity.String()))

	e.pool.Go(func() {
		defer func() {
			e.mu.Lock()
			delete(e.inflight, identity)
			e.mu.Unlock()
		}()
		e.run(task)
	})
}

// Wait blocks until all scheduled tasks completed. Used on shutdown and
// in tests.
func (e *Engine) Wait() {
	e.pool.Wait()
}

func (e *Engine) run(task Task) {
	identity := task.Identity()

	// tasks for the same (org, repo) serialize for their whole duration.
	lock := e.keyLock(identity.Org + "/" + identity.Repo)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()

	record := &db.TaskModel{
		ID:          uuid.NewString(),
		Type:        identity.Type,
		OrgID:       identity.Org,
		RepoName:    identity.Repo,
		PullRequest: identity.Pull,
		Status:      db.TaskCreated,
	}
	if err := e.env.Store.CreateTask(ctx, record); err != nil {
		e.env.Logger.Error("failed to persist task", zap.String("task", identity.String()), zap.Error(err))
		return
	}

	err := task.Execute(ctx, e.env)
	if err != nil {
		// failures never escape the task boundary; they are persisted as
		// the task's terminal log.
		e.env.Logger.Error("task failed", zap.String("task", identity.String()), zap.Error(err))
		record.Status = db.TaskFailed
		record.Log = err.Error()
	} else {
		e.env.Logger.Info("task finished", zap.String("task", identity.String()))
		record.Status = db.TaskFinished
	}

	if err := e.env.Store.UpdateTask(ctx, record); err != nil {
		e.env.Logger.Error("failed to update task", zap.String("task", identity.String()), zap.Error(err))
	}
}

func (e *Engine) keyLock(key string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.keyLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		e.keyLocks[key] = lock
	}
	return lock
}
