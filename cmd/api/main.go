package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/vitalapp/clinic-api/internal/app"
	"github.com/vitalapp/clinic-api/internal/config"
	appointmentHandler "github.com/vitalapp/clinic-api/internal/handler/appointment"
	authHandler "github.com/vitalapp/clinic-api/internal/handler/auth"
	"github.com/vitalapp/clinic-api/internal/handler/health"
	notificationHandler "github.com/vitalapp/clinic-api/internal/handler/notification"
	patientHandler "github.com/vitalapp/clinic-api/internal/handler/patient"
	"github.com/vitalapp/clinic-api/internal/handler/prometheus"
	triageHandler "github.com/vitalapp/clinic-api/internal/handler/triage"
	userHandler "github.com/vitalapp/clinic-api/internal/handler/user"
	"github.com/vitalapp/clinic-api/internal/middleware"
	"github.com/vitalapp/clinic-api/internal/repository/postgres"
	"github.com/vitalapp/clinic-api/internal/router"
	"github.com/vitalapp/clinic-api/internal/worker"
	"github.com/vitalapp/clinic-api/migrations"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:          "clinic-api",
		Short:        "Clinic administration API",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *postgres.Migrator) error {
				n, err := m.Up(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *postgres.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, s := range statuses {
					state := "pending"
					if s.Applied && s.AppliedAt != nil {
						state = "applied " + s.AppliedAt.Format(time.RFC3339)
					}
					fmt.Fprintf(out, "%03d  %-30s %s\n", s.Version, s.Name, state)
				}
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(ctx context.Context, fn func(context.Context, *postgres.Migrator) error) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("migrations need the %s driver, got %q", config.DriverPostgres, cfg.Database.Driver)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	return fn(ctx, postgres.NewMigrator(db, migrations.FS))
}

func runServer() error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	log := app.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error(err, "failed to initialize application")
		return err
	}

	if err := middleware.RegisterValidators(); err != nil {
		return fmt.Errorf("failed to register validators: %w", err)
	}

	var metrics *prometheus.Handler
	var scrape gin.HandlerFunc
	if cfg.Metrics.Enabled {
		metrics = prometheus.New(cfg.Metrics.Namespace, a.Registry)
		scrape = metrics.Handler()
	}

	r := router.NewRouter(
		middleware.NewAuthMiddleware(a.JWT),
		router.Handlers{
			Health: health.NewHandler(a.Checks(), scrape),
			Public: []router.Handler{
				authHandler.NewHandler(a.Auth),
			},
			Protected: []router.Handler{
				userHandler.NewHandler(a.Users),
				patientHandler.NewHandler(a.Patients),
				triageHandler.NewHandler(a.Triages),
				appointmentHandler.NewHandler(a.Appointments),
				notificationHandler.NewHandler(a.Notifications),
			},
		},
		metrics,
		log,
		router.RouterConfig{
			Mode:           cfg.Server.Mode,
			RateLimit:      rate.Limit(cfg.RateLimit.RPS),
			RateBurst:      cfg.RateLimit.Burst,
			RateEnabled:    cfg.RateLimit.Enabled,
			CORSConfig:     middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins),
			RequestTimeout: cfg.Server.RequestTimeout,
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		},
	)
	r.Setup()

	if cfg.Notifications.CleanupEnabled {
		cleanup := worker.NewNotificationCleanupWorker(a.Notifications, cfg.Notifications.CleanupInterval, log)
		go cleanup.Start(ctx)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case runErr = <-serverErr:
		if runErr != nil {
			log.Error(runErr, "server failed")
		}
	case <-ctx.Done():
		log.Info("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "server forced to shutdown")
	}
	if err := a.Close(shutdownCtx); err != nil {
		log.Error(err, "failed to release resources")
		return err
	}

	log.Info("server exited properly")
	return runErr
}
