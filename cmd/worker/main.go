// Command worker runs the notification expiry sweep outside the API process.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vitalapp/clinic-api/internal/app"
	"github.com/vitalapp/clinic-api/internal/config"
	"github.com/vitalapp/clinic-api/internal/worker"
	"github.com/vitalapp/clinic-api/pkg/logger"
)

func setupHealthCheck(a *app.App, addr string, log *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for name, check := range a.Checks() {
			if err := check.PingContext(ctx); err != nil {
				log.Warn("readiness check failed", "component", name, "error", err.Error())
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "health check server failed")
			os.Exit(1)
		}
	}()
	return srv
}

func main() {
	var configPath, healthAddr string
	cmd := &cobra.Command{
		Use:          "clinic-worker",
		Short:        "Sweep expired notifications",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, healthAddr)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	cmd.Flags().StringVar(&healthAddr, "health-addr", ":8081", "listen address for health and metrics")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath, healthAddr string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	log := app.NewLogger(cfg.Log)
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("worker started on in-memory storage, it shares nothing with the API process")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error(err, "failed to initialize worker")
		return err
	}

	health := setupHealthCheck(a, healthAddr, log)

	cleanup := worker.NewNotificationCleanupWorker(a.Notifications, cfg.Notifications.CleanupInterval, log)
	cleanup.Start(ctx)

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := health.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "health server forced to shutdown")
	}
	return a.Close(shutdownCtx)
}
