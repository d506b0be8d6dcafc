package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/autumnfound/otterdog/pkg/config"
	"github.com/autumnfound/otterdog/pkg/console"
	"github.com/autumnfound/otterdog/pkg/loader"
	"github.com/autumnfound/otterdog/pkg/model"
	"github.com/autumnfound/otterdog/pkg/reconcile"
)

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <organization>",
		Short: "Fetch the live configuration of an organization into a local snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := newOrgRun(args[0], !noWebUI)
			if err != nil {
				return err
			}
			return fetchToFile(cmd, run)
		},
	}
	cmd.Flags().BoolVar(&noWebUI, "no-web-ui", false, "skip settings served by the web interface")
	return cmd
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <organization>",
		Short: "Import an organization for the first time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := newOrgRun(args[0], !noWebUI)
			if err != nil {
				return err
			}

			target := run.config.OrgConfigFile(run.org.GitHubID)
			if _, err := os.Stat(target); err == nil && !force {
				run.printer.Printf("\n%s at '%s'.", console.Bright("Definition already exists"), target)
				run.printer.Println("Performing this action will overwrite its contents.")
				if !confirm(run, "Do you want to continue?") {
					run.printer.Println("\nImport cancelled.")
					return fmt.Errorf("import cancelled")
				}
			}

			if noWebUI {
				run.printer.PrintWarn("The Web UI will not be queried as '--no-web-ui' has been specified, " +
					"the resulting configuration will be incomplete")
			}
			return fetchToFile(cmd, run)
		},
	}
	cmd.Flags().BoolVar(&noWebUI, "no-web-ui", false, "skip settings served by the web interface")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing configuration without prompting")
	return cmd
}

func fetchToFile(cmd *cobra.Command, run *orgRun) error {
	live, err := loadLive(cmd, run)
	if err != nil {
		return err
	}

	target := run.config.OrgConfigFile(run.org.GitHubID)
	if err := loader.WriteSnapshot(live, target); err != nil {
		return err
	}
	run.printer.Printf("organization definition written to '%s'", target)
	return nil
}

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <organization>",
		Short: "Show the changes required to match the declared configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := newOrgRun(args[0], !noWebUI)
			if err != nil {
				return err
			}

			expected, err := run.loadDeclared()
			if err != nil {
				return err
			}
			current, err := loadLive(cmd, run)
			if err != nil {
				return err
			}

			result, err := run.planner(nil).Plan(run.org.GitHubID, expected, current)
			if err != nil {
				return err
			}
			if result.Validation.ErrorCount() > 0 {
				return fmt.Errorf("validation failed with %d errors", result.Validation.ErrorCount())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noWebUI, "no-web-ui", false, "skip settings served by the web interface")
	cmd.Flags().BoolVar(&deleteExtras, "delete-extras", false, "plan removal of resources missing in the configuration")
	return cmd
}

func newLocalPlanCmd() *cobra.Command {
	var snapshot string

	cmd := &cobra.Command{
		Use:   "local-plan <organization>",
		Short: "Show changes against a previously fetched snapshot instead of the live state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, org, printer, err := localRun(args[0])
			if err != nil {
				return err
			}

			expected, err := loader.LoadFromDeclaredFile(org.GitHubID, cfg.OrgConfigFile(org.GitHubID))
			if err != nil {
				return err
			}

			if snapshot == "" {
				snapshot = cfg.OrgConfigFile(org.GitHubID) + "-BASE"
			}
			current, err := loader.LoadFromDeclaredFile(org.GitHubID, snapshot)
			if err != nil {
				return err
			}

			planner := (&orgRun{config: cfg, org: org, printer: printer}).planner(nil)
			result, err := planner.Plan(org.GitHubID, expected, current)
			if err != nil {
				return err
			}
			if result.Validation.ErrorCount() > 0 {
				return fmt.Errorf("validation failed with %d errors", result.Validation.ErrorCount())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "snapshot file serving as the current state")
	cmd.Flags().BoolVar(&deleteExtras, "delete-extras", false, "plan removal of resources missing in the configuration")
	return cmd
}

func newApplyCmd() *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "apply <organization>",
		Short: "Apply the declared configuration to the live organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := newOrgRun(args[0], !noWebUI)
			if err != nil {
				return err
			}
			run.printer.Printf("Apply changes for configuration at '%s'", run.config.ConfigFile)

			expected, err := run.loadDeclared()
			if err != nil {
				return err
			}

			var current *model.Organization
			if local {
				// use the previously fetched snapshot as the current state.
				snapshot := run.config.OrgConfigFile(run.org.GitHubID) + "-BASE"
				current, err = loader.LoadFromDeclaredFile(run.org.GitHubID, snapshot)
			} else {
				current, err = loadLive(cmd, run)
			}
			if err != nil {
				return err
			}

			if !force && !confirm(run, "Do you want to apply these changes?") {
				run.printer.Println("\nApply cancelled.")
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), reconcile.DefaultTimeout)
			defer cancel()

			_, err = run.planner(nil).Apply(ctx, run.org.GitHubID, expected, current)
			return err
		},
	}
	cmd.Flags().BoolVar(&noWebUI, "no-web-ui", false, "skip settings served by the web interface")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "apply without prompting for confirmation")
	cmd.Flags().BoolVar(&deleteExtras, "delete-extras", false, "remove resources missing in the configuration")
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "continue applying after provider errors")
	cmd.Flags().BoolVar(&local, "local", false, "use the local snapshot as the current state")
	return cmd
}

func loadLive(cmd *cobra.Command, run *orgRun) (*model.Organization, error) {
	live := &loader.LiveLoader{Provider: run.provider, IncludeWeb: !noWebUI}
	return live.Load(cmd.Context(), run.org.GitHubID)
}

// localRun resolves an organization without creating a provider; used by
// commands that never touch the network.
func localRun(orgName string) (*config.Config, *config.OrganizationConfig, *console.Printer, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, nil, err
	}
	org, err := cfg.GetOrganizationConfig(orgName)
	if err != nil {
		return nil, nil, nil, err
	}
	printer := console.NewPrinter(os.Stdout)
	printer.Printf("Organization %s[id=%s]", console.Bright(org.Name), org.GitHubID)
	return cfg, org, printer, nil
}

func confirm(run *orgRun, question string) bool {
	run.printer.Printf("%s Only 'yes' will be accepted to approve.", question)
	run.printer.Printf("%s ", console.Bright("Enter a value:"))

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	return strings.TrimSpace(scanner.Text()) == "yes"
}
