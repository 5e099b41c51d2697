package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/IBM/sarama"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/credit-payments/internal"
	"github.com/frahmantamala/credit-payments/internal/cache"
	"github.com/frahmantamala/credit-payments/internal/catalog"
	"github.com/frahmantamala/credit-payments/internal/core/events"
	"github.com/frahmantamala/credit-payments/internal/credit"
	creditpg "github.com/frahmantamala/credit-payments/internal/credit/postgres"
	"github.com/frahmantamala/credit-payments/internal/messaging/kafka"
	"github.com/frahmantamala/credit-payments/internal/observability"
	orderpg "github.com/frahmantamala/credit-payments/internal/order/postgres"
	paymentpg "github.com/frahmantamala/credit-payments/internal/payment/postgres"
	"github.com/frahmantamala/credit-payments/internal/paymentgateway"
	"github.com/frahmantamala/credit-payments/pkg/logger"
)

// Dependencies are the long lived collaborators shared by the server, the reconciler and the admin commands.
type Dependencies struct {
	Config    *internal.Config
	SQL       *sqlx.DB
	DB        *gorm.DB
	Redis     *redis.Client
	Producer  sarama.SyncProducer
	Bus       *events.EventBus
	Catalog   *catalog.Catalog
	Gateway   *paymentgateway.Client
	Orders    *orderpg.OrderRepository
	Completer *paymentpg.OrderCompleter
	Credits   *credit.Service
	Logger    *slog.Logger

	shutdownTracing func(context.Context) error
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	lg := initLogger(config)
	deps := &Dependencies{
		Config:  config,
		Logger:  lg,
		Catalog: catalog.Default(),
		Bus:     events.NewEventBus(lg),
	}

	deps.shutdownTracing, err = observability.InitTracing(observability.TracingConfig{
		Enabled:     config.Observability.Tracing.Enabled,
		ServiceName: config.Observability.Tracing.ServiceName,
		Endpoint:    config.Observability.Tracing.JaegerURL,
		SampleRate:  config.Observability.Tracing.SamplingRate,
	}, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	deps.SQL, err = initDB(config.Database)
	if err != nil {
		deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.DB, err = openGorm(deps.SQL)
	if err != nil {
		deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	balanceCache := credit.NoopCache()
	if config.Redis.Enabled {
		deps.Redis, err = cache.NewClient(ctx, cache.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		if err != nil {
			deps.Close(ctx)
			return nil, err
		}
		balanceCache = cache.NewRedisBalanceCache(deps.Redis)
		lg.Info("balance cache enabled", "addr", config.Redis.Addr)
	}

	if config.Kafka.Enabled {
		deps.Producer, err = kafka.NewSyncProducer(config.Kafka.Brokers)
		if err != nil {
			deps.Close(ctx)
			return nil, err
		}
		kafka.NewForwarder(deps.Producer, config.Kafka.Topic, lg).Register(deps.Bus)
		lg.Info("kafka event forwarding enabled", "brokers", config.Kafka.Brokers, "topic", config.Kafka.Topic)
	}

	deps.Gateway = paymentgateway.NewClient(paymentgateway.Config{
		BaseURL:   config.Payment.BaseURL,
		KeyID:     config.Payment.KeyID,
		KeySecret: config.Payment.KeySecret,
		Timeout:   config.Payment.Timeout,
	}, lg)

	deps.Orders = orderpg.NewOrderRepository(deps.DB)
	deps.Completer = paymentpg.NewOrderCompleter(deps.DB, config.Credits.StarterBalance, balanceCache, deps.Bus, lg)
	deps.Credits = credit.NewService(
		creditpg.NewCreditRepository(deps.DB, config.Credits.StarterBalance),
		balanceCache,
		config.Credits.CacheTTL,
		lg,
	)

	return deps, nil
}

// Close releases everything that was opened. It is safe on a partially built value.
func (d *Dependencies) Close(ctx context.Context) {
	if d.Bus != nil {
		if err := d.Bus.Drain(ctx); err != nil {
			d.Logger.Warn("event handlers still running at shutdown", "error", err)
		}
	}
	if d.Producer != nil {
		if err := d.Producer.Close(); err != nil {
			d.Logger.Error("kafka producer close error", "error", err)
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("redis close error", "error", err)
		}
	}
	if d.SQL != nil {
		if err := d.SQL.Close(); err != nil {
			d.Logger.Error("database close error", "error", err)
		}
	}
	if d.shutdownTracing != nil {
		if err := d.shutdownTracing(ctx); err != nil {
			d.Logger.Error("tracer shutdown error", "error", err)
		}
	}
}

func initLogger(config *internal.Config) *slog.Logger {
	logging := config.Observability.Logging
	if logging.Format == "" && logging.Level == "" {
		logger.Init(config.Env)
		return logger.LoggerWrapper()
	}
	return logger.Setup(os.Stdout, logging.Format, logging.Level)
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

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// openGorm shares the sqlx pool with gorm so both see the same connection limits.
func openGorm(db *sqlx.DB) (*gorm.DB, error) {
	if db == nil {
		return nil, errors.New("nil database handle")
	}
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}
