package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/linkup-hub/internal"
	"github.com/frahmantamala/linkup-hub/internal/auth"
	"github.com/frahmantamala/linkup-hub/internal/core/events"
	"github.com/frahmantamala/linkup-hub/internal/daraja"
	"github.com/frahmantamala/linkup-hub/internal/event"
	eventpg "github.com/frahmantamala/linkup-hub/internal/event/postgres"
	"github.com/frahmantamala/linkup-hub/internal/observability"
	"github.com/frahmantamala/linkup-hub/internal/payment"
	paymentpg "github.com/frahmantamala/linkup-hub/internal/payment/postgres"
	"github.com/frahmantamala/linkup-hub/internal/profile"
	profilepg "github.com/frahmantamala/linkup-hub/internal/profile/postgres"
	"github.com/frahmantamala/linkup-hub/internal/rsvp"
	rsvppg "github.com/frahmantamala/linkup-hub/internal/rsvp/postgres"
	"github.com/frahmantamala/linkup-hub/internal/scheduler"
	"github.com/frahmantamala/linkup-hub/pkg/logger"
	"github.com/frahmantamala/linkup-hub/pkg/redis"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Dependencies is everything the server, worker and one-shot commands share.
type Dependencies struct {
	Config   *internal.Config
	Logger   *slog.Logger
	DB       *sqlx.DB
	Gorm     *gorm.DB
	Redis    *redis.Client
	Registry *prometheus.Registry
	EventBus *events.EventBus

	Gateway        *daraja.Client
	PaymentMetrics *payment.Metrics
	PaymentRepo    *paymentpg.PaymentRepository
	Reconciler     *payment.Reconciler
	Sweeper        *payment.Sweeper

	AuthService    *auth.Service
	ProfileService *profile.Service
	EventService   *event.Service
	RSVPService    *rsvp.Service
	PaymentService *payment.Service

	shutdownTracing observability.ShutdownFunc
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.InitWithConfig(config.Observability.Logging.Level, config.Observability.Logging.Format)

	shutdownTracing, err := observability.InitTracing(ctx, config.Observability.Tracing, config.Environment, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open gorm session: %w", err)
	}

	var redisClient *redis.Client
	if config.Redis.Enabled {
		redisClient, err = redis.New(ctx, config.Redis)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db.DB, "postgres"),
	)

	deps := &Dependencies{
		Config:          config,
		Logger:          log,
		DB:              db,
		Gorm:            gormDB,
		Redis:           redisClient,
		Registry:        registry,
		EventBus:        events.NewEventBus(log),
		shutdownTracing: shutdownTracing,
	}
	if err := deps.wire(); err != nil {
		_ = deps.Close(ctx)
		return nil, err
	}
	return deps, nil
}

func (d *Dependencies) wire() error {
	cfg := d.Config

	signer, err := rsvp.NewSigner(cfg.Security.TicketSecret)
	if err != nil {
		return fmt.Errorf("failed to create ticket signer: %w", err)
	}

	d.Gateway = daraja.NewClient(daraja.Config{
		Environment:     cfg.Daraja.Environment,
		BaseURL:         cfg.Daraja.BaseURL,
		ConsumerKey:     cfg.Daraja.ConsumerKey,
		ConsumerSecret:  cfg.Daraja.ConsumerSecret,
		ShortCode:       cfg.Daraja.ShortCode,
		Passkey:         cfg.Daraja.Passkey,
		TransactionType: cfg.Daraja.TransactionType,
		CallbackURL:     cfg.Daraja.CallbackURL,
		Timeout:         cfg.Daraja.Timeout,
		Location:        cfg.Daraja.Location(),
		CountryCode:     cfg.Daraja.CountryCode,
	}, &http.Client{Timeout: cfg.Daraja.Timeout}, d.Logger)

	profileRepo := profilepg.NewProfileRepository(d.Gorm)
	d.ProfileService = profile.NewService(profileRepo, cfg.Daraja.CountryCode, d.Logger)
	d.AuthService = auth.NewService(profileRepo, auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.SessionTTL), cfg.Security.BCryptCost, d.Logger)

	d.EventService = event.NewService(eventpg.NewEventRepository(d.DB), d.Logger)
	d.RSVPService = rsvp.NewService(rsvppg.NewAccessGrantRepository(d.Gorm), d.EventService, signer, d.EventBus, d.Logger)

	d.PaymentMetrics = payment.NewMetrics(d.Registry)
	d.PaymentRepo = paymentpg.NewPaymentRepository(d.Gorm)

	var guard payment.CallbackGuard
	if d.Redis != nil {
		redisGuard, err := payment.NewRedisCallbackGuard(d.Redis, cfg.Redis.CallbackTTL)
		if err != nil {
			return fmt.Errorf("failed to create callback guard: %w", err)
		}
		guard = redisGuard
	}

	d.Reconciler = payment.NewReconciler(payment.ReconcilerParams{
		Repository: d.PaymentRepo,
		Grants:     signer,
		Guard:      guard,
		EventBus:   d.EventBus,
		Metrics:    d.PaymentMetrics,
		Logger:     d.Logger,
	})

	initiator := payment.NewInitiator(d.Gateway, d.PaymentRepo, payment.InitiatorConfig{
		CountryCode:            cfg.Daraja.CountryCode,
		AccountReferencePrefix: cfg.Daraja.AccountReferencePrefix,
		TransactionDesc:        cfg.Daraja.TransactionDesc,
	}, d.PaymentMetrics, d.Logger)
	d.PaymentService = payment.NewService(initiator, d.PaymentRepo, d.EventService, d.RSVPService, d.Logger)

	d.Sweeper = payment.NewSweeper(d.PaymentRepo, d.Gateway, signer, d.Reconciler, payment.SweeperConfig{
		QueryAfter:  cfg.Sweeper.QueryAfter,
		ExpireAfter: cfg.Sweeper.ExpireAfter,
		BatchSize:   cfg.Sweeper.BatchSize,
	}, d.PaymentMetrics, d.Logger)

	payment.NewEventHandler(d.PaymentMetrics, d.Logger).RegisterEventHandlers(d.EventBus)
	return nil
}

// Scheduler builds the sweep loop, locked through redis when it is enabled.
func (d *Dependencies) Scheduler() (*scheduler.Service, error) {
	var lock scheduler.Lock = scheduler.NoopLock{}
	if d.Redis != nil {
		redisLock, err := scheduler.NewRedisLock(d.Redis, d.Config.Sweeper.LockKey, d.Config.Sweeper.LockTTL)
		if err != nil {
			return nil, err
		}
		lock = redisLock
	}

	return scheduler.NewService(scheduler.ServiceParams{
		Logger:   d.Logger.With("component", "scheduler"),
		Registry: scheduler.NewRegistry(d.Sweeper.Jobs()...),
		Lock:     lock,
		Metrics:  scheduler.NewJobMetrics(d.Registry),
		Interval: d.Config.Sweeper.Interval,
	})
}

func (d *Dependencies) Close(ctx context.Context) error {
	var err error
	if d.EventBus != nil {
		err = multierr.Append(err, d.EventBus.Drain(ctx))
	}
	if d.shutdownTracing != nil {
		err = multierr.Append(err, d.shutdownTracing(ctx))
	}
	if d.Redis != nil {
		err = multierr.Append(err, d.Redis.Close())
	}
	if d.DB != nil {
		err = multierr.Append(err, d.DB.Close())
	}
	return err
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
