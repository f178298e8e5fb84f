package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dspace/dspace-rest/internal/auth"
	"github.com/dspace/dspace-rest/internal/db/bunx"
	"github.com/dspace/dspace-rest/internal/permission"
	"github.com/dspace/dspace-rest/internal/permission/rules"
	"github.com/dspace/dspace-rest/internal/repository"
	"github.com/dspace/dspace-rest/internal/server"
	"github.com/dspace/dspace-rest/internal/services/authn"
	"github.com/dspace/dspace-rest/internal/services/authz"
	"github.com/dspace/dspace-rest/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the DSpace REST server",
	Long:  `Starts the HTTP server with the authentication, authorization, EPerson and workflow endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		// Tracing and metrics exporters; a no-op when no endpoint is configured
		shutdownTelemetry, err := telemetry.Init(ctx, cfg.Observability)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				log.Printf("Warning: %v", err)
			}
		}()

		// Connect to database
		db, err := bunx.NewDB(cfg.DatabaseURL, cfg.MaxDBConnections)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		log.Printf("Connected to database")

		// Initialize repositories
		epersonRepo := repository.NewBunEPersonRepository(db)
		groupRepo := repository.NewBunGroupRepository(db)
		contentRepo := repository.NewBunContentRepository(db)
		workflowRepo := repository.NewBunWorkflowRepository(db)
		registrationRepo := repository.NewBunRegistrationRepository(db)

		// Resource policies live in the casbin_rule table
		enforcer, err := auth.InitEnforcer(db)
		if err != nil {
			return fmt.Errorf("failed to initialize casbin enforcer: %w", err)
		}
		policies := authz.NewService(enforcer)

		// Create metric instruments
		serverMetrics, err := telemetry.NewServerMetrics()
		if err != nil {
			return fmt.Errorf("failed to create server metrics: %w", err)
		}
		authMetrics, err := telemetry.NewAuthMetrics()
		if err != nil {
			return fmt.Errorf("failed to create auth metrics: %w", err)
		}
		permissionMetrics, err := telemetry.NewPermissionMetrics()
		if err != nil {
			return fmt.Errorf("failed to create permission metrics: %w", err)
		}

		// Register the permission rules
		registry := rules.Default(rules.Deps{
			Content:                 contentRepo,
			Items:                   contentRepo,
			Policies:                policies,
			EPersons:                epersonRepo,
			Groups:                  groupRepo,
			Registrations:           registrationRepo,
			Workflow:                workflowRepo,
			Versions:                repository.NewBunVersionRepository(db),
			Subscriptions:           repository.NewBunSubscriptionRepository(db),
			Orcid:                   repository.NewBunOrcidRepository(db),
			VersionHistoryAdminOnly: cfg.Features.VersionHistoryAdminOnly,
		})
		log.Printf("Registered %d permission rules", registry.Len())

		// Initialize authentication plugins in configured order
		authnService, err := authn.NewService(authn.Options{
			Auth:             cfg.Auth,
			RefreshThreshold: cfg.JWT.RefreshThreshold,
			EPersons:         epersonRepo,
			Groups:           groupRepo,
			Tokens:           auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiration),
			Metrics:          authMetrics,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize authentication: %w", err)
		}
		log.Printf("Login methods: %v", authnService.Methods())

		// Assemble the router and wrap it with h2c for HTTP/2 cleartext support
		handler := server.NewH2CHandler(server.RouterOptions{
			Cfg:           cfg,
			Authn:         authnService,
			Evaluator:     permission.NewEvaluator(registry, permissionMetrics),
			EPersons:      epersonRepo,
			Registrations: registrationRepo,
			Content:       contentRepo,
			Workflow:      workflowRepo,
			Metrics:       serverMetrics,
		})

		// Create HTTP server
		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Start server in goroutine
		serverErrors := make(chan error, 1)
		go func() {
			log.Printf("Starting server on %s", cfg.ServerAddr)
			log.Printf("Server URL: %s", cfg.ServerURL)
			serverErrors <- srv.ListenAndServe()
		}()

		// Wait for interrupt signal or policy reload signal
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// SIGHUP reloads resource policies changed by the policy command.
		reload := make(chan os.Signal, 1)
		signal.Notify(reload, syscall.SIGHUP)

		for {
			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)

			case sig := <-reload:
				log.Printf("Received signal %v, reloading resource policies", sig)
				if err := enforcer.LoadPolicy(); err != nil {
					log.Printf("ERROR: policy reload failed: %v", err)
				}

			case sig := <-shutdown:
				log.Printf("Received signal %v, shutting down gracefully", sig)

				// Graceful shutdown with timeout
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := srv.Shutdown(ctx); err != nil {
					srv.Close()
					return fmt.Errorf("could not stop server gracefully: %w", err)
				}
				log.Printf("Server stopped")
				return nil
			}
		}
	},
}
