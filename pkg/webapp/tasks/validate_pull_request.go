package tasks

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/autumnfound/otterdog/pkg/console"
	"github.com/autumnfound/otterdog/pkg/diff"
	"github.com/autumnfound/otterdog/pkg/loader"
	"github.com/autumnfound/otterdog/pkg/reconcile"
)

// ValidatePullRequestTask validates a pull request against a configuration
// repository: it runs a local plan between the BASE and HEAD versions of
// the configuration and posts the result as a comment.
type ValidatePullRequestTask struct {
	Org  string
	Repo string
	Pull int
}

func (t ValidatePullRequestTask) Identity() Identity {
	return Identity{Type: "ValidatePullRequestTask", Org: t.Org, Repo: t.Repo, Pull: t.Pull}
}

func (t ValidatePullRequestTask) Execute(ctx context.Context, env *Env) error {
	env.Logger.Info("validating pull request",
		zap.String("org", t.Org), zap.String("repo", t.Repo), zap.Int("pull_request", t.Pull))

	prov, err := env.NewProvider(t.Org)
	if err != nil {
		return err
	}

	pr, err := prov.GetPullRequest(ctx, t.Org, t.Repo, t.Pull)
	if err != nil {
		return err
	}
	status, err := pullRequestStatusOf(pr)
	if err != nil {
		return err
	}

	headSHA, baseRef := prRefs(pr)

	if err := prov.CreateCommitStatus(ctx, t.Org, t.Repo, headSHA, "pending",
		validationContext, "validating configuration change using otterdog"); err != nil {
		env.Logger.Warn("failed to create pending status", zap.Error(err))
	}

	// the sync check runs independently of the validation.
	env.Schedule(CheckConfigurationInSyncTask{Org: t.Org, Repo: t.Repo, Pull: t.Pull})

	result, err := t.validate(ctx, env, prov, baseRef, headSHA)
	if err != nil {
		if statusErr := prov.CreateCommitStatus(ctx, t.Org, t.Repo, headSHA, "failure",
			validationContext, "otterdog validation failed, please contact an admin"); statusErr != nil {
			env.Logger.Warn("failed to create failure status", zap.Error(statusErr))
		}
		return err
	}

	var warnings []string
	if result.requiresSecrets {
		warnings = append(warnings, "some of the requested changes require secrets, they need to be applied manually")
	}
	comment := renderValidationComment(headSHA, result.planOutput, warnings)
	if err := prov.CreateIssueComment(ctx, t.Org, t.Repo, t.Pull, comment); err != nil {
		return err
	}

	state, description := "success", "otterdog validation completed successfully"
	if !result.valid {
		state, description = "error", "otterdog validation failed, check validation result in comment history"
	}
	if err := prov.CreateCommitStatus(ctx, t.Org, t.Repo, headSHA, state, validationContext, description); err != nil {
		env.Logger.Warn("failed to create final status", zap.Error(err))
	}

	return updatePullRequest(ctx, env, t.Org, t.Repo, t.Pull, status, prDraftOf(pr), pullRequestUpdate{
		Valid:               boolPtr(result.valid),
		RequiresManualApply: boolPtr(result.requiresSecrets),
	})
}

type validationResult struct {
	planOutput      string
	valid           bool
	requiresSecrets bool
}

// validate runs a local plan between the BASE and HEAD configuration of
// the pull request. The BASE side serves as the current state.
func (t ValidatePullRequestTask) validate(ctx context.Context, env *Env, prov providerFor, baseRef, headSHA string) (*validationResult, error) {
	path := configPath(t.Org)

	baseConfig, err := prov.GetContent(ctx, t.Org, t.Repo, path, baseRef)
	if err != nil {
		return nil, fmt.Errorf("failed fetching BASE configuration: %w", err)
	}
	headConfig, err := prov.GetContent(ctx, t.Org, t.Repo, path, headSHA)
	if err != nil {
		return nil, fmt.Errorf("failed fetching HEAD configuration: %w", err)
	}

	if baseConfig == headConfig {
		return &validationResult{planOutput: "No changes.", valid: true}, nil
	}

	expected, err := loader.LoadFromDeclaredSource(t.Org, path+"@HEAD", headConfig)
	if err != nil {
		return &validationResult{planOutput: err.Error()}, nil
	}
	current, err := loader.LoadFromDeclaredSource(t.Org, path+"@BASE", baseConfig)
	if err != nil {
		return &validationResult{planOutput: err.Error()}, nil
	}

	result := &validationResult{}
	var output strings.Builder
	planner := &reconcile.Planner{
		Provider: nil, // local plan never touches the provider
		Printer:  console.NewPrinter(&output),
		Opts: reconcile.Options{
			Callback: func(orgID string, status reconcile.DiffStatus, patches []*diff.LivePatch) {
				for _, patch := range patches {
					if patch.RequiresSecrets() {
						result.requiresSecrets = true
					}
				}
			},
		},
	}

	planResult, err := planner.Plan(t.Org, expected, current)
	if err != nil {
		return nil, err
	}

	result.planOutput = output.String()
	result.valid = planResult.Validation.ErrorCount() == 0
	return result, nil
}

// providerFor is the slice of the provider surface the validation needs.
type providerFor interface {
	GetContent(ctx context.Context, orgID, repoName, path, ref string) (string, error)
}

func prRefs(pr map[string]any) (headSHA, baseRef string) {
	if head, ok := pr["head"].(map[string]any); ok {
		headSHA, _ = head["sha"].(string)
	}
	if base, ok := pr["base"].(map[string]any); ok {
		baseRef, _ = base["ref"].(string)
	}
	return headSHA, baseRef
}

func renderValidationComment(sha, result string, warnings []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "This is the validation result for commit %s:\n\n", sha)
	b.WriteString("```\n")
	b.WriteString(result)
	if !strings.HasSuffix(result, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n")
	for _, warning := range warnings {
		fmt.Fprintf(&b, "\n> [!WARNING]\n> %s\n", warning)
	}
	return b.String()
}
