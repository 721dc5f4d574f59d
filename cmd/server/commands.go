package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"listingsportal/server/config"
	"listingsportal/server/internal/api"
	"listingsportal/server/internal/database"
	"listingsportal/server/internal/feed"
	"listingsportal/server/internal/reconcile"
	"listingsportal/server/internal/scheduler"
	"listingsportal/server/internal/search"
)

func serveCmd(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the listings API and run scheduled reconciliation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*envFiles)
			if err != nil {
				return err
			}

			db, err := openDatabase(cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			reconciler, err := newReconciler(cfg, db, logger)
			if err != nil {
				return err
			}
			sched, err := scheduler.NewScheduler(reconciler, cfg.Reconcile, logger)
			if err != nil {
				return err
			}

			searchLocation, err := cfg.Search.Location()
			if err != nil {
				return err
			}
			engine := search.NewEngine(db, searchLocation, logger)

			gin.SetMode(cfg.Server.Mode)
			handler := api.NewHandler(engine, db, sched, logger)
			server := &http.Server{
				Addr:    ":" + cfg.Server.Port,
				Handler: api.NewRouter(cfg.Server, handler, logger),
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sched.Start()
			logger.WithFields(logrus.Fields{
				"schedule": cfg.Reconcile.Schedule,
				"timezone": cfg.Reconcile.TimeZone,
			}).Info("Reconciliation scheduler started")

			serverErr := make(chan error, 1)
			go func() {
				logger.Infof("Starting server on port %s", cfg.Server.Port)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
				close(serverErr)
			}()

			select {
			case <-ctx.Done():
				logger.Info("Shutting down")
			case err := <-serverErr:
				if err != nil {
					sched.Stop()
					return fmt.Errorf("server failed: %w", err)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Server shutdown failed")
			}
			sched.Stop()
			return nil
		},
	}
}

func reconcileCmd(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation cycle against the feed and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*envFiles)
			if err != nil {
				return err
			}

			db, err := openDatabase(cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			reconciler, err := newReconciler(cfg, db, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			result, err := reconciler.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fetched=%d duplicates=%d inserted=%d updated=%d skipped=%d deleted=%d\n",
				result.Fetched, result.Duplicates, result.Inserted, result.Updated, result.Skipped, result.Deleted)
			return nil
		},
	}
}

func migrateCmd(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the listings schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*envFiles)
			if err != nil {
				return err
			}

			db, err := openDatabase(cfg, logger)
			if err != nil {
				return err
			}
			return db.Close()
		},
	}
}

// openDatabase connects to the store and brings the schema up to date.
func openDatabase(cfg *config.Config, logger *logrus.Logger) (*database.Database, error) {
	logger.WithField("driver", cfg.Database.Driver).Info("Opening database")
	db, err := database.NewDatabase(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func newReconciler(cfg *config.Config, db *database.Database, logger *logrus.Logger) (*reconcile.Reconciler, error) {
	if cfg.Feed.APIKey == "" {
		logger.Warn("FEED_API_KEY is not set, feed requests will be rejected")
	}
	client, err := feed.NewClient(cfg.Feed, logger)
	if err != nil {
		return nil, err
	}
	return reconcile.NewReconciler(db.GetDB(), client, cfg.Reconcile, logger)
}
