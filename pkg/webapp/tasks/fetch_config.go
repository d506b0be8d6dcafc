package tasks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/autumnfound/otterdog/pkg/webapp/db"
)

// FetchConfigTask refreshes the cached declarative configuration of an
// organization from its configuration repository.
type FetchConfigTask struct {
	Org  string
	Repo string
}

func (t FetchConfigTask) Identity() Identity {
	return Identity{Type: "FetchConfigTask", Org: t.Org, Repo: t.Repo}
}

func (t FetchConfigTask) Execute(ctx context.Context, env *Env) error {
	env.Logger.Info("fetching configuration",
		zap.String("org", t.Org), zap.String("repo", t.Repo))

	prov, err := env.NewProvider(t.Org)
	if err != nil {
		return err
	}

	content, err := prov.GetContent(ctx, t.Org, t.Repo, configPath(t.Org), "")
	if err != nil {
		return fmt.Errorf("failed fetching configuration from repo '%s/%s': %w", t.Org, t.Repo, err)
	}

	var projectName string
	if org, err := env.Config.GetOrganizationConfig(t.Org); err == nil {
		projectName = org.Name
	}

	return env.Store.SaveConfiguration(ctx, &db.ConfigurationModel{
		GitHubID:    t.Org,
		ProjectName: projectName,
		Config:      content,
	})
}
