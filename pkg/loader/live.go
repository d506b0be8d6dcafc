package loader

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/autumnfound/otterdog/pkg/logger"
	"github.com/autumnfound/otterdog/pkg/model"
	"github.com/autumnfound/otterdog/pkg/provider"
)

var liveLog = logger.New("loader:live")

// DefaultWorkers bounds the number of concurrent per-repo fetches.
const DefaultWorkers = 12

// LoadError records the failure of one entity fetch. Failures are
// collected and presented together; one failing entity does not cancel
// its siblings.
type LoadError struct {
	Entity string
	Cause  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Entity, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// LoadErrors aggregates the per-entity failures of one load.
type LoadErrors []*LoadError

func (e LoadErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d entities failed to load:\n%s", len(e), strings.Join(msgs, "\n"))
}

// LiveLoader assembles the live organization model from provider reads.
type LiveLoader struct {
	Provider provider.Provider
	// Workers bounds the per-repo fetch concurrency; DefaultWorkers if 0.
	Workers int
	// IncludeWeb also queries the web interface for the settings not
	// served by the API. When false, those attributes stay unset on the
	// live model so they never diff.
	IncludeWeb bool
}

// Load fetches the full live state of an organization. The repository
// list is fetched first; per-repo children are fetched concurrently on a
// bounded worker pool.
func (l *LiveLoader) Load(ctx context.Context, orgID string) (*model.Organization, error) {
	liveLog.Printf("loading live state of organization %s", orgID)

	org := &model.Organization{GitHubID: orgID}

	var mu sync.Mutex
	var failures LoadErrors
	fail := func(entity string, err error) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, &LoadError{Entity: entity, Cause: err})
	}

	settings, err := l.Provider.GetOrgSettings(ctx, orgID)
	if err != nil {
		// without org settings there is no useful model to assemble.
		return nil, LoadErrors{{Entity: "settings", Cause: err}}
	}

	var webSettings map[string]any
	if l.IncludeWeb {
		webSettings, err = l.Provider.GetOrgSettingsWeb(ctx, orgID)
		if err != nil {
			fail("settings (web)", err)
		}
	}
	org.Settings = model.NewOrganizationSettingsFromLive(settings, webSettings)

	if workflows, err := l.Provider.GetOrgWorkflowSettings(ctx, orgID); err != nil {
		fail("org_workflow_settings", err)
	} else {
		org.WorkflowSettings = model.NewOrganizationWorkflowSettingsFromLive(workflows)
	}

	if hooks, err := l.Provider.ListWebhooks(ctx, orgID); err != nil {
		fail("webhooks", err)
	} else {
		for _, hook := range hooks {
			org.Webhooks = append(org.Webhooks, model.NewWebhookFromLive(hook))
		}
	}

	if secrets, err := l.Provider.ListOrgSecrets(ctx, orgID); err != nil {
		fail("org_secrets", err)
	} else {
		for _, secret := range secrets {
			org.Secrets = append(org.Secrets, model.NewOrganizationSecretFromLive(secret))
		}
	}

	if rulesets, err := l.Provider.ListOrgRulesets(ctx, orgID); err != nil {
		fail("org_rulesets", err)
	} else {
		for _, ruleset := range rulesets {
			org.Rulesets = append(org.Rulesets, model.NewRulesetFromLive(ruleset))
		}
	}

	repoNames, err := l.Provider.ListRepos(ctx, orgID)
	if err != nil {
		fail("repositories", err)
		repoNames = nil
	}

	workers := l.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	repos := make([]*model.Repository, len(repoNames))
	p := pool.New().WithMaxGoroutines(workers)
	for i, name := range repoNames {
		p.Go(func() {
			repo, err := l.loadRepo(ctx, orgID, name)
			if err != nil {
				fail(fmt.Sprintf("repo[name=%q]", name), err)
				return
			}
			repos[i] = repo
		})
	}
	p.Wait()

	for _, repo := range repos {
		if repo != nil {
			org.Repositories = append(org.Repositories, repo)
		}
	}

	if len(failures) > 0 {
		return org, failures
	}
	return org, nil
}

// loadRepo fetches one repository and its children; the child fetches run
// concurrently with each other.
func (l *LiveLoader) loadRepo(ctx context.Context, orgID, name string) (*model.Repository, error) {
	data, err := l.Provider.GetRepoData(ctx, orgID, name)
	if err != nil {
		return nil, err
	}
	repo := model.NewRepositoryFromLive(data)

	var mu sync.Mutex
	var firstErr error
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	p := pool.New().WithMaxGoroutines(4)

	p.Go(func() {
		rules, err := l.Provider.ListBranchProtectionRules(ctx, orgID, name)
		if err != nil {
			fail(fmt.Errorf("branch protection rules: %w", err))
			return
		}
		mu.Lock()
		defer mu.Unlock()
		for _, rule := range rules {
			repo.BranchProtectionRules = append(repo.BranchProtectionRules, model.NewBranchProtectionRuleFromLive(rule))
		}
	})

	p.Go(func() {
		workflows, err := l.Provider.GetRepoWorkflowSettings(ctx, orgID, name)
		if err != nil {
			fail(fmt.Errorf("workflow settings: %w", err))
			return
		}
		mu.Lock()
		defer mu.Unlock()
		repo.WorkflowSettings = model.NewRepositoryWorkflowSettingsFromLive(workflows)
	})

	p.Go(func() {
		secrets, err := l.Provider.ListRepoSecrets(ctx, orgID, name)
		if err != nil {
			fail(fmt.Errorf("secrets: %w", err))
			return
		}
		mu.Lock()
		defer mu.Unlock()
		for _, secret := range secrets {
			repo.Secrets = append(repo.Secrets, model.NewRepositorySecretFromLive(secret))
		}
	})

	p.Go(func() {
		envs, err := l.Provider.ListEnvironments(ctx, orgID, name)
		if err != nil {
			fail(fmt.Errorf("environments: %w", err))
			return
		}
		mu.Lock()
		defer mu.Unlock()
		for _, env := range envs {
			repo.Environments = append(repo.Environments, model.NewEnvironmentFromLive(env))
		}
	})

	p.Go(func() {
		rulesets, err := l.Provider.ListRepoRulesets(ctx, orgID, name)
		if err != nil {
			fail(fmt.Errorf("rulesets: %w", err))
			return
		}
		mu.Lock()
		defer mu.Unlock()
		for _, ruleset := range rulesets {
			repo.Rulesets = append(repo.Rulesets, model.NewRulesetFromLive(ruleset))
		}
	})

	p.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return repo, nil
}
