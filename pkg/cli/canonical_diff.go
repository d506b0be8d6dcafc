package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/spf13/cobra"

	"github.com/autumnfound/otterdog/pkg/console"
	"github.com/autumnfound/otterdog/pkg/loader"
)

func newCanonicalDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "canonical-diff <organization>",
		Short: "Diff the configuration against its canonical rendering",
		Long: "Loads the organization configuration, renders it back to the declarative form " +
			"and shows a unified diff against the on-disk file, ignoring comment lines.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, org, printer, err := localRun(args[0])
			if err != nil {
				return err
			}

			path := cfg.OrgConfigFile(org.GitHubID)
			if _, err := os.Stat(path); err != nil {
				printer.PrintWarn(fmt.Sprintf("configuration file '%s' does not yet exist, run fetch first", path))
				return fmt.Errorf("configuration file '%s' not found", path)
			}

			organization, err := loader.LoadFromDeclaredFile(org.GitHubID, path)
			if err != nil {
				return err
			}

			original, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			canonical, err := loader.Render(organization)
			if err != nil {
				return err
			}

			diff := udiff.Unified("original", "canonical",
				stripComments(string(original)), canonical)
			if diff == "" {
				printer.Println("configuration is canonical")
				return nil
			}

			for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
				printer.Println(console.FormatDiffLine(line))
			}
			return nil
		},
	}
}

// stripComments drops comment lines so they never show up as removals in
// the diff.
func stripComments(content string) string {
	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
