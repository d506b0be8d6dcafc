// Package webapp implements the long-running webhook service: it receives
// GitHub events, validates pull requests touching configuration, posts
// plan results as comments and applies merged changes.
package webapp

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gopkg.in/go-playground/webhooks.v5/github"

	"github.com/autumnfound/otterdog/pkg/config"
	"github.com/autumnfound/otterdog/pkg/provider"
	"github.com/autumnfound/otterdog/pkg/webapp/db"
	"github.com/autumnfound/otterdog/pkg/webapp/tasks"
)

// Options configure the webhook service.
type Options struct {
	// WebhookSecret verifies the signature of incoming deliveries.
	WebhookSecret string
	// Workers bounds the task worker pool.
	Workers int
}

// App wires the webhook service together: router, task engine and store.
// All collaborators are passed in explicitly.
type App struct {
	config *config.Config
	store  db.Store
	logger *zap.Logger
	engine *tasks.Engine
	env    *tasks.Env
	hook   *github.Webhook
}

// New creates the webhook service application.
func New(cfg *config.Config, store db.Store, logger *zap.Logger,
	newProvider func(orgID string) (provider.Provider, error), opts Options) (*App, error) {

	hook, err := github.New(github.Options.Secret(opts.WebhookSecret))
	if err != nil {
		return nil, err
	}

	env := &tasks.Env{
		Config:      cfg,
		Store:       store,
		Logger:      logger,
		NewProvider: newProvider,
	}
	engine := tasks.NewEngine(env, opts.Workers)

	return &App{
		config: cfg,
		store:  store,
		logger: logger,
		engine: engine,
		env:    env,
		hook:   hook,
	}, nil
}

// Router returns the service's HTTP routes.
func (a *App) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/github-webhook/receive", a.handleWebhook).Methods(http.MethodPost)
	router.HandleFunc("/api/organizations", a.handleListOrganizations).Methods(http.MethodGet)
	router.HandleFunc("/api/tasks", a.handleListTasks).Methods(http.MethodGet)
	router.HandleFunc("/api/pull-requests", a.handleListPullRequests).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	return router
}

// Serve runs the HTTP server until the context is cancelled, then drains
// the task engine.
func (a *App) Serve(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("webhook service listening", zap.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("server shutdown failed", zap.Error(err))
		}
		a.engine.Wait()
		return nil
	}
}
