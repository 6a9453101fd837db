package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/helpdesk/internal/dateformat"
	"github.com/vladislavdragonenkov/helpdesk/internal/domain"
	"github.com/vladislavdragonenkov/helpdesk/internal/health"
	"github.com/vladislavdragonenkov/helpdesk/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/helpdesk/internal/metrics"
	"github.com/vladislavdragonenkov/helpdesk/internal/repository"
	"github.com/vladislavdragonenkov/helpdesk/internal/storage/memory"
	"github.com/vladislavdragonenkov/helpdesk/internal/storage/postgres"
	"github.com/vladislavdragonenkov/helpdesk/internal/storage/redis"
	"github.com/vladislavdragonenkov/helpdesk/internal/version"
)

// Dependencies содержит собранные зависимости клиента.
type Dependencies struct {
	Store    domain.DocumentStore
	Orders   domain.OrderRepository
	Sessions domain.SessionService
	// RedisSessions не nil, если сессии хранятся в Redis.
	RedisSessions *redis.SessionStore
	Producer      *kafka.Producer
	Metrics       *metrics.OrderMetrics
	Health        *health.Handler
	Logger        *log.Entry

	closers []func(context.Context) error
}

// NewDependencies подключает хранилище, сессии, Kafka и трассировку по cfg.
// traceOut получает спаны при включённом TraceStdout; nil означает os.Stderr.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry, traceOut io.Writer) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if traceOut == nil {
		traceOut = os.Stderr
	}

	deps := &Dependencies{
		Metrics: metrics.NewOrderMetrics(),
		Health:  health.NewHandler(version.GetVersion()),
		Logger:  logger,
	}

	loc, err := dateformat.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	if err := deps.initStorage(ctx, cfg); err != nil {
		return nil, err
	}

	deps.initSessions(cfg)

	producer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err == nil && producer != nil {
		deps.Producer = producer
		deps.closers = append(deps.closers, func(context.Context) error {
			closeKafka(producer, logger)
			return nil
		})
	}

	tracer, shutdownTracing, err := initTracing(cfg, traceOut)
	if err != nil {
		_ = deps.Close(ctx)
		return nil, err
	}
	deps.closers = append(deps.closers, shutdownTracing)

	opts := []repository.Option{
		repository.WithLogger(logger.WithField("layer", "repository")),
		repository.WithMetrics(deps.Metrics),
		repository.WithFormatter(dateformat.New(loc)),
	}
	if deps.Producer != nil {
		opts = append(opts, repository.WithPublisher(kafka.NewEventPublisher(deps.Producer, kafka.TopicOrderEvents)))
	}
	if cfg.GuardedClose {
		opts = append(opts, repository.WithGuardedClose())
	}
	deps.Orders = repository.NewTraced(repository.New(deps.Store, opts...), tracer)

	return deps, nil
}

func (d *Dependencies) initStorage(ctx context.Context, cfg Config) error {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		d.Store = memory.NewOrderStore()
		d.Logger.Info("using in-memory order store")
	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("init postgres storage: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return fmt.Errorf("ensure postgres schema: %w", err)
			}
		}
		d.Store = store
		d.closers = append(d.closers, func(context.Context) error { return store.Close() })
		d.Logger.Info("using postgres order store")
	default:
		return fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
	d.Health.RegisterChecker("storage", health.NewPingChecker("storage", d.Store.Ping))
	return nil
}

func (d *Dependencies) initSessions(cfg Config) {
	if cfg.RedisAddr == "" {
		d.Sessions = memory.NewSessionStore(cfg.SessionToken)
		return
	}
	client := redis.NewClient(cfg.RedisAddr)
	store := redis.NewSessionStore(client, cfg.SessionToken)
	d.Sessions = store
	d.RedisSessions = store
	d.closers = append(d.closers, func(context.Context) error { return client.Close() })
	d.Health.RegisterChecker("sessions", health.NewPingChecker("sessions", store.Ping, health.Optional()))
	d.Logger.WithField("addr", cfg.RedisAddr).Info("using redis session store")
}

// Close освобождает ресурсы в обратном порядке создания.
func (d *Dependencies) Close(ctx context.Context) error {
	if d == nil {
		return nil
	}
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
