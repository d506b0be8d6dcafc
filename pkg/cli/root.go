// Package cli implements the otterdog command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/autumnfound/otterdog/pkg/config"
	"github.com/autumnfound/otterdog/pkg/console"
	"github.com/autumnfound/otterdog/pkg/loader"
	"github.com/autumnfound/otterdog/pkg/model"
	"github.com/autumnfound/otterdog/pkg/provider"
	"github.com/autumnfound/otterdog/pkg/reconcile"
	"github.com/autumnfound/otterdog/pkg/webui"
)

// Exit codes of the CLI.
const (
	ExitOK            = 0
	ExitValidation    = 1
	ExitProviderError = 2
	ExitCancelled     = 3
)

var (
	configFile string
	verbose    bool

	noWebUI      bool
	force        bool
	deleteExtras bool
	keepGoing    bool
)

// NewRootCmd builds the otterdog root command.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "otterdog",
		Short:         "Manage GitHub organization configuration as code",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "otterdog.yaml", "configuration file to use")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	root.AddCommand(newFetchCmd())
	root.AddCommand(newImportCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newLocalPlanCmd())
	root.AddCommand(newApplyCmd())
	root.AddCommand(newCanonicalDiffCmd())
	root.AddCommand(newServeCmd())
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd(version)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
		return ExitCode(err)
	}
	return ExitOK
}

// ExitCode maps an error onto the CLI's exit code contract: 1 for
// validation and load errors, 2 for provider errors, 3 for cancellation.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return ExitCancelled
	case isProviderError(err):
		return ExitProviderError
	default:
		return ExitValidation
	}
}

func isProviderError(err error) bool {
	var forge *provider.ForgeError
	var creds *provider.BadCredentialsError
	return errors.As(err, &forge) || errors.As(err, &creds)
}

// orgRun bundles what every per-organization command needs.
type orgRun struct {
	config   *config.Config
	org      *config.OrganizationConfig
	printer  *console.Printer
	provider *provider.GitHub
}

// newOrgRun loads the configuration, resolves the organization and
// creates an authenticated provider. withWeb controls whether a browser
// session is available for web-served settings.
func newOrgRun(orgName string, withWeb bool) (*orgRun, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	org, err := cfg.GetOrganizationConfig(orgName)
	if err != nil {
		return nil, err
	}

	creds, err := cfg.GetCredentials(org)
	if err != nil {
		return nil, err
	}

	var webClient provider.WebClient
	if withWeb {
		table, err := webui.DefaultSettingsTable()
		if err != nil {
			return nil, err
		}
		webClient = webui.NewClient(table, webui.Credentials{
			Username: creds.Username,
			Password: creds.Password,
			TOTP:     creds.TOTP,
		})
	}

	github, err := provider.NewGitHub(creds.APIToken, webClient)
	if err != nil {
		return nil, err
	}

	printer := console.NewPrinter(os.Stdout)
	printer.Printf("Organization %s[id=%s]", console.Bright(org.Name), org.GitHubID)

	return &orgRun{config: cfg, org: org, printer: printer, provider: github}, nil
}

func (r *orgRun) planner(callback reconcile.Callback) *reconcile.Planner {
	return &reconcile.Planner{
		Provider: r.provider,
		Printer:  r.printer,
		Opts: reconcile.Options{
			DeleteExtras: deleteExtras,
			KeepGoing:    keepGoing,
			Callback:     callback,
		},
	}
}

// loadDeclared loads the organization's on-disk configuration file.
func (r *orgRun) loadDeclared() (*model.Organization, error) {
	return loader.LoadFromDeclaredFile(r.org.GitHubID, r.config.OrgConfigFile(r.org.GitHubID))
}
