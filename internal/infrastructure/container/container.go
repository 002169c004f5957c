// Package container provides dependency injection using Uber FX
package container

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	aiapp "github.com/macromojo/macromojo/internal/application/ai"
	"github.com/macromojo/macromojo/internal/application/journal"
	"github.com/macromojo/macromojo/internal/application/user"
	infraai "github.com/macromojo/macromojo/internal/infrastructure/ai"
	"github.com/macromojo/macromojo/internal/infrastructure/config"
	"github.com/macromojo/macromojo/internal/infrastructure/http/ops"
	"github.com/macromojo/macromojo/internal/infrastructure/http/webserver"
	"github.com/macromojo/macromojo/internal/infrastructure/monitoring"
	gormstore "github.com/macromojo/macromojo/internal/infrastructure/persistence/gorm"
	"github.com/macromojo/macromojo/internal/infrastructure/persistence/memory"
	"github.com/macromojo/macromojo/internal/infrastructure/persistence/migrations"
	"github.com/macromojo/macromojo/internal/infrastructure/persistence/postgres"
	"github.com/macromojo/macromojo/internal/infrastructure/persistence/redis"
	"github.com/macromojo/macromojo/internal/infrastructure/persistence/sqlite"
	"github.com/macromojo/macromojo/internal/ports/outbound"
	"github.com/macromojo/macromojo/pkg/healthcheck"
	"github.com/macromojo/macromojo/pkg/logger"
)

// Core provides what every command needs: logging, monitoring, the store
// and the account and journal services
var Core = fx.Options(
	LoggerModule,
	MonitoringModule,
	StoreModule,
	ServiceModule,
)

// Module provides the whole web application
var Module = fx.Options(
	Core,
	CacheModule,
	AIModule,
	HTTPModule,
	LifecycleModule,
)

// New returns the options for an application built on cfg
func New(cfg *config.Config, modules ...fx.Option) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx").WithOptions(zap.IncreaseLevel(zap.WarnLevel))}
		}),
		fx.Options(modules...),
	)
}

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.Logging.Level,
			Format:      cfg.Logging.Format,
			Development: cfg.App.Debug,
			OutputPaths: cfg.Logging.OutputPaths,
		})
	},
)

// MonitoringModule provides metrics, tracing and the health registry
var MonitoringModule = fx.Provide(
	monitoring.NewMetricsCollector,
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
		tracing, err := monitoring.NewTracingProvider(context.Background(), monitoring.TracingConfig{
			ServiceName:    "macromojo",
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Environment,
			OTLPEndpoint:   cfg.Monitoring.OTLPEndpoint,
			Insecure:       cfg.Monitoring.OTLPInsecure,
			SamplingRate:   cfg.Monitoring.SamplingRate,
			Enabled:        cfg.Monitoring.TracingEnabled,
		}, log.Named("tracing"))
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: tracing.Shutdown})
		return tracing, nil
	},
	func(cfg *config.Config, log *zap.Logger) *healthcheck.HealthCheck {
		return healthcheck.New(cfg.App.Version, log.Named("health"))
	},
)

// StoreModule opens the journal store selected by database.driver and
// database.gateway
var StoreModule = fx.Provide(
	NewStore,
	func(store outbound.JournalStore) outbound.UserRepository { return store },
)

// NewStore opens the configured store, migrating it first when
// database.run_migrations is set, and registers its health check
func NewStore(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	metrics *monitoring.MetricsCollector,
	tracing *monitoring.TracingProvider,
	health *healthcheck.HealthCheck,
) (outbound.JournalStore, error) {
	ctx := context.Background()
	dbCfg := cfg.Database

	if dbCfg.Driver == config.DriverSQLite {
		db, err := sqlite.SetupDatabase(dbCfg.SQLitePath, log, dbCfg.LogLevel)
		if err != nil {
			return nil, err
		}
		log.Info("Connected to SQLite database", zap.String("path", dbCfg.SQLitePath))
		return gormStore(lc, db, log, metrics, tracing, health), nil
	}

	if dbCfg.RunMigrations {
		if err := Migrate(ctx, dbCfg, log); err != nil {
			return nil, err
		}
	}

	if dbCfg.Gateway == config.GatewayGORM {
		db, err := gormstore.OpenPostgres(ctx, dbCfg.URL, log, dbCfg.LogLevel)
		if err != nil {
			return nil, err
		}
		return gormStore(lc, db, log, metrics, tracing, health), nil
	}

	pool, err := postgres.NewPool(ctx, dbCfg, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(pool.Close))
	health.Register("database", healthcheck.NewDatabaseChecker(pool))
	return postgres.NewGateway(pool, log, metrics, tracing), nil
}

func gormStore(
	lc fx.Lifecycle,
	db *gorm.DB,
	log *zap.Logger,
	metrics *monitoring.MetricsCollector,
	tracing *monitoring.TracingProvider,
	health *healthcheck.HealthCheck,
) outbound.JournalStore {
	store := gormstore.NewStore(db, log, metrics, tracing)
	lc.Append(fx.StopHook(func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}))
	health.Register("database", healthcheck.NewPingChecker(store.Ping))
	return store
}

// Migrate applies pending migrations over a short-lived pool of its own
func Migrate(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) error {
	return WithMigrator(ctx, cfg, log, (*migrations.Migrator).Up)
}

// WithMigrator runs fn with a migrator for the configured PostgreSQL database
func WithMigrator(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger, fn func(*migrations.Migrator) error) error {
	if cfg.Driver != config.DriverPostgres {
		return fmt.Errorf("migrations need the postgres driver, got %q", cfg.Driver)
	}

	pool, err := postgres.NewPool(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	m, err := migrations.New(postgres.SQLDB(pool), log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()

	return fn(m)
}

// CacheModule provides the cache behind sessions and assistant memory
var CacheModule = fx.Provide(
	func(
		lc fx.Lifecycle,
		cfg *config.Config,
		log *zap.Logger,
		metrics *monitoring.MetricsCollector,
		health *healthcheck.HealthCheck,
	) (outbound.CacheRepository, error) {
		if !cfg.Redis.Enabled {
			log.Info("Using in-memory cache")
			cache := memory.NewCacheRepository(metrics)
			lc.Append(fx.StopHook(cache.Close))
			return cache, nil
		}

		client, err := redis.NewClient(context.Background(), cfg.Redis, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(client.Close))
		health.Register("redis", healthcheck.NewRedisChecker(client))
		return redis.NewCacheRepository(client, log, metrics), nil
	},
)

// AIModule provides the assistant. It is nil when ai.enabled is false.
var AIModule = fx.Provide(
	NewAssistant,
)

// NewAssistant wires providers, routing and memory into the assistant
func NewAssistant(
	cfg *config.Config,
	log *zap.Logger,
	cache outbound.CacheRepository,
	metrics *monitoring.MetricsCollector,
	tracing *monitoring.TracingProvider,
	health *healthcheck.HealthCheck,
) *aiapp.Assistant {
	if !cfg.AI.Enabled {
		log.Info("Assistant is disabled")
		return nil
	}

	providers := infraai.NewProviders(cfg.AI, log)
	health.RegisterOptional("ai", healthcheck.NewPingChecker(infraai.NewHealthChecker(providers, log).Check))

	model := infraai.NewFallbackModel(providers, log)
	router := aiapp.NewLLMRouter(model, cfg.AI.Model, aiapp.KeywordRouter{}, log)
	mem := aiapp.NewMemory(cache, cfg.AI.HistoryLimit, cfg.AI.MemoryTTL)

	return aiapp.NewAssistant(model, router, mem, aiapp.Options{
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
	}, metrics, tracing, log)
}

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger, repo outbound.UserRepository, metrics *monitoring.MetricsCollector) *user.Service {
		tokens := user.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiration)
		return user.NewService(repo, tokens, cfg.Auth.BcryptCost, metrics, log)
	},
	journal.NewService,
)

// HTTPModule provides the web and ops servers
var HTTPModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger, cache outbound.CacheRepository) *webserver.SessionStore {
		return webserver.NewSessionStore(cache, cfg.Auth.SessionTTL, cfg.Auth.SecureCookies, log)
	},
	webserver.NewWebServer,
	ops.NewServer,
)

// LifecycleModule starts the servers
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// RegisterLifecycleHooks registers application lifecycle hooks
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	log *zap.Logger,
	web *webserver.WebServer,
	opsServer *ops.Server,
) {
	serve := func(name string, start func() error) {
		go func() {
			if err := start(); err != nil {
				log.Error("Server failed", zap.String("server", name), zap.Error(err))
				_ = shutdowner.Shutdown(fx.ExitCode(1))
			}
		}()
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting MacroMojo",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.String("database", cfg.Database.Driver),
			)
			serve("web", web.Start)
			if cfg.Monitoring.OpsPort > 0 {
				serve("ops", opsServer.Start)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down MacroMojo")

			if err := web.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown web server", zap.Error(err))
			}
			if cfg.Monitoring.OpsPort > 0 {
				if err := opsServer.Shutdown(ctx); err != nil {
					log.Error("Failed to shutdown ops server", zap.Error(err))
				}
			}

			_ = log.Sync()
			return nil
		},
	})
}
