package tasks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/autumnfound/otterdog/pkg/diff"
	"github.com/autumnfound/otterdog/pkg/loader"
)

// CheckConfigurationInSyncTask checks whether the live state of an
// organization matches the configuration on the default branch of its
// configuration repository.
type CheckConfigurationInSyncTask struct {
	Org  string
	Repo string
	Pull int
}

func (t CheckConfigurationInSyncTask) Identity() Identity {
	return Identity{Type: "CheckConfigurationInSyncTask", Org: t.Org, Repo: t.Repo, Pull: t.Pull}
}

func (t CheckConfigurationInSyncTask) Execute(ctx context.Context, env *Env) error {
	env.Logger.Info("checking configuration sync",
		zap.String("org", t.Org), zap.String("repo", t.Repo))

	prov, err := env.NewProvider(t.Org)
	if err != nil {
		return err
	}

	content, err := prov.GetContent(ctx, t.Org, t.Repo, configPath(t.Org), "")
	if err != nil {
		return fmt.Errorf("failed fetching configuration: %w", err)
	}
	declared, err := loader.LoadFromDeclaredSource(t.Org, configPath(t.Org), content)
	if err != nil {
		return err
	}

	// web-served settings are skipped: the check must not require a
	// browser session and unset attributes never diff.
	live, err := (&loader.LiveLoader{Provider: prov, IncludeWeb: false}).Load(ctx, t.Org)
	if err != nil {
		return err
	}

	patches := diff.Diff(declared, live)
	inSync := len(patches) == 0

	env.Logger.Info("configuration sync state",
		zap.String("org", t.Org), zap.Bool("in_sync", inSync), zap.Int("patches", len(patches)))

	pr, err := env.Store.FindPullRequest(ctx, t.Org, t.Repo, t.Pull)
	if err != nil || pr == nil {
		return err
	}
	pr.InSync = boolPtr(inSync)
	return env.Store.SavePullRequest(ctx, pr)
}
