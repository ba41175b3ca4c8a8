// Package app assembles the services both binaries run.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/vitalapp/clinic-api/internal/config"
	"github.com/vitalapp/clinic-api/internal/email"
	"github.com/vitalapp/clinic-api/internal/handler/health"
	"github.com/vitalapp/clinic-api/internal/repository"
	"github.com/vitalapp/clinic-api/internal/repository/memory"
	"github.com/vitalapp/clinic-api/internal/repository/postgres"
	appointmentService "github.com/vitalapp/clinic-api/internal/service/appointment"
	authService "github.com/vitalapp/clinic-api/internal/service/auth"
	notificationService "github.com/vitalapp/clinic-api/internal/service/notification"
	patientService "github.com/vitalapp/clinic-api/internal/service/patient"
	triageService "github.com/vitalapp/clinic-api/internal/service/triage"
	userService "github.com/vitalapp/clinic-api/internal/service/user"
	"github.com/vitalapp/clinic-api/pkg/auth"
	"github.com/vitalapp/clinic-api/pkg/circuitbreaker"
	"github.com/vitalapp/clinic-api/pkg/event"
	"github.com/vitalapp/clinic-api/pkg/logger"
	"github.com/vitalapp/clinic-api/pkg/messaging"
	"github.com/vitalapp/clinic-api/pkg/messaging/redis"
	"github.com/vitalapp/clinic-api/pkg/metrics"
	"github.com/vitalapp/clinic-api/pkg/security"
)

type App struct {
	Config   *config.Config
	Log      *logger.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	DB       *sqlx.DB
	Repos    *repository.Repositories
	Bus      *event.Bus
	Broker   messaging.Broker
	JWT      auth.JWTService

	Users         *userService.Service
	Auth          *authService.Service
	Patients      *patientService.Service
	Triages       *triageService.Service
	Appointments  *appointmentService.Service
	Notifications *notificationService.Service
}

// NewLogger builds the process logger from config and installs it as the
// zerolog global so package-level log calls share its level and format.
func NewLogger(cfg config.LogConfig) *logger.Logger {
	l := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
		JSON:       cfg.JSON,
	})
	log.Logger = *l.Zerolog()
	return l
}

// New connects storage and the broker, creates every service and subscribes
// the notification listener to the bus.
func New(ctx context.Context, cfg *config.Config, l *logger.Logger) (*App, error) {
	a := &App{Config: cfg, Log: l}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	var reg prometheus.Registerer
	if cfg.Metrics.Enabled {
		reg = a.Registry
	}
	a.Metrics = metrics.NewMetrics(cfg.Metrics.Namespace, "", reg)

	if err := a.openStorage(ctx); err != nil {
		return nil, err
	}
	if err := a.openBroker(ctx); err != nil {
		a.closeDB()
		return nil, err
	}

	a.JWT = auth.NewJWTService(auth.Config{
		Secret:        cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Issuer:        cfg.JWT.Issuer,
		AccessTTL:     cfg.JWT.AccessTTL(),
		RefreshTTL:    cfg.JWT.RefreshTTL(),
	})
	hasher := security.NewBcryptHasher(security.DefaultCost)

	a.Bus = event.NewBus(event.Config{QueueSize: cfg.Events.QueueSize}, l.With("event-bus"), a.Metrics)

	a.Users = userService.NewService(a.Repos.Users, hasher, cfg.Notifications.ActiveUsersTTL, l)
	a.Auth = authService.NewService(a.Users, a.Repos.Users, hasher, a.JWT, l)
	a.Patients = patientService.NewService(a.Repos.Patients, a.Repos.Users, l)
	a.Triages = triageService.NewService(a.Repos.Triages, a.Repos.Patients, a.Bus, l)
	a.Appointments = appointmentService.NewService(a.Repos.Appointments, a.Repos.Patients, a.Bus, l)

	notifyCfg := notificationService.Config{
		Broker:        a.Broker,
		ChannelPrefix: cfg.Notifications.ChannelPrefix,
	}
	if cfg.Email.Enabled {
		notifyCfg.Mailer = email.NewSMTPService(cfg.Email)
		notifyCfg.MailBreaker = circuitbreaker.New(a.breakerConfig("smtp"), l)
	}
	a.Notifications = notificationService.NewService(a.Repos.Notifications, a.Repos.Users, notifyCfg, a.Metrics, l)

	listener := notificationService.NewListener(a.Notifications, a.Users, a.Repos.Patients, a.Repos.Users, a.Metrics, l)
	if err := listener.Register(a.Bus); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to register notification listener: %w", err)
	}
	return a, nil
}

func (a *App) openStorage(ctx context.Context) error {
	switch a.Config.Database.Driver {
	case config.DriverMemory:
		a.Log.Warn("using in-memory storage, data is lost on exit")
		a.Repos = memory.NewRepositories(memory.NewDB())
		return nil
	default:
		db, err := postgres.NewDB(ctx, a.Config.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.DB = db
		a.Repos = postgres.NewRepositories(db)
		return nil
	}
}

func (a *App) openBroker(ctx context.Context) error {
	var broker messaging.Broker = messaging.NewMemoryBroker()
	if a.Config.Redis.Enabled {
		rb, err := redis.NewRedisBroker(ctx, redis.Config{
			URL:          a.Config.Redis.URL,
			MaxRetries:   a.Config.Redis.MaxRetries,
			RetryBackoff: a.Config.Redis.RetryBackoff,
			PoolSize:     a.Config.Redis.PoolSize,
			MinIdleConns: a.Config.Redis.MinIdleConns,
		}, a.Log.With("redis"))
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		broker = rb
	}
	a.Broker = messaging.NewGuardedBroker(broker, circuitbreaker.New(a.breakerConfig("broker"), a.Log))
	return nil
}

func (a *App) breakerConfig(name string) circuitbreaker.Config {
	cfg := circuitbreaker.DefaultConfig(name)
	if n := a.Config.Notifications.BreakerMaxFailures; n > 0 {
		cfg.FailureThreshold = n
	}
	if d := a.Config.Notifications.BreakerTimeout; d > 0 {
		cfg.Timeout = d
	}
	return cfg
}

// Ping checks the database. Memory storage is always ready.
func (a *App) Ping(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	return a.DB.PingContext(ctx)
}

// Checks lists the readiness probes for the health handler.
func (a *App) Checks() map[string]health.Pinger {
	checks := map[string]health.Pinger{
		"database": health.PingFunc(a.Ping),
	}
	if p, ok := a.Broker.(messaging.Pinger); ok {
		checks["broker"] = p
	}
	return checks
}

// Close drains the event bus first so queued notifications still reach the
// stores, then releases the broker and the database.
func (a *App) Close(ctx context.Context) error {
	drainCtx, cancel := context.WithTimeout(ctx, a.Config.Events.DrainTimeout)
	defer cancel()

	var errs []error
	if a.Bus != nil {
		if err := a.Bus.Close(drainCtx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Broker != nil {
		if err := a.Broker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close broker: %w", err))
		}
	}
	if err := a.closeDB(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeDB() error {
	if a.DB == nil {
		return nil
	}
	if err := a.DB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
