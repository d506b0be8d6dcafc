package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/autumnfound/otterdog/pkg/config"
	"github.com/autumnfound/otterdog/pkg/provider"
	"github.com/autumnfound/otterdog/pkg/webapp"
	"github.com/autumnfound/otterdog/pkg/webapp/db"
)

func newServeCmd() *cobra.Command {
	var (
		addr          string
		mongoURI      string
		database      string
		webhookSecret string
		workers       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook service",
		Long: "Runs the long-lived webhook service: receives GitHub events, validates pull " +
			"requests that touch configuration, posts plan results as comments and applies " +
			"merged changes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			if webhookSecret == "" {
				webhookSecret = os.Getenv("OTTERDOG_WEBHOOK_SECRET")
			}
			if webhookSecret == "" {
				return fmt.Errorf("no webhook secret configured, set --webhook-secret or OTTERDOG_WEBHOOK_SECRET")
			}

			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := db.ConnectMongo(cmd.Context(), mongoURI, database)
			if err != nil {
				return err
			}

			newProvider := func(orgID string) (provider.Provider, error) {
				org, err := cfg.GetOrganizationConfig(orgID)
				if err != nil {
					return nil, err
				}
				creds, err := cfg.GetCredentials(org)
				if err != nil {
					return nil, err
				}
				// the service never drives a browser session; web-served
				// settings stay unset and are excluded from diffing.
				return provider.NewGitHub(creds.APIToken, nil)
			}

			app, err := webapp.New(cfg, store, logger, newProvider, webapp.Options{
				WebhookSecret: webhookSecret,
				Workers:       workers,
			})
			if err != nil {
				return err
			}
			return app.Serve(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "mongodb://localhost:27017", "mongodb connection uri")
	cmd.Flags().StringVar(&database, "database", "otterdog", "mongodb database name")
	cmd.Flags().StringVar(&webhookSecret, "webhook-secret", "", "secret verifying webhook signatures")
	cmd.Flags().IntVar(&workers, "workers", 4, "number of task workers")
	return cmd
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
