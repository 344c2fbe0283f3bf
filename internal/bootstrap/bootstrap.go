// Package bootstrap builds the infrastructure shared by cmd/portal and
// cmd/worker from the loaded configuration.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alem-hub/mentorship-portal/config"
	"github.com/alem-hub/mentorship-portal/internal/domain/directory"
	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-portal/internal/domain/placement"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
	"github.com/alem-hub/mentorship-portal/internal/infrastructure/messaging"
	"github.com/alem-hub/mentorship-portal/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/mentorship-portal/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/mentorship-portal/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/mentorship-portal/pkg/logger"
	"github.com/alem-hub/mentorship-portal/pkg/retry"
	"github.com/alem-hub/mentorship-portal/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOGGING & TIME
// ══════════════════════════════════════════════════════════════════════════════

// NewLogger builds the process logger. Format "pretty" writes console output
// for local runs; everything else is JSON.
func NewLogger(cfg *config.Config, service string) *logger.Logger {
	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Log.Level),
		AddCaller: !cfg.IsProduction(),
		Pretty:    cfg.Log.Format == "pretty",
	})
	return log.With(
		logger.String("service", service),
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
	)
}

// Location installs the campus timezone for calendar dates and returns it.
func Location(name string) (*time.Location, error) {
	if err := timeutil.LoadLocation(name); err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return timeutil.Location(), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store bundles the repositories of one storage backend.
type Store struct {
	Driver     config.StorageDriver
	Requests   mentorship.RequestRepository
	Sessions   mentorship.SessionRepository
	Feedback   mentorship.FeedbackRepository
	Directory  directory.Repository
	Placements placement.Repository

	ping  func(ctx context.Context) error
	close func()
}

// Ping reports whether the backend is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.ping(ctx) }

// Close releases the backend. It is safe to call on the memory store.
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStore opens the configured backend. Postgres connections are retried
// while the database comes up, and pending migrations are applied when
// AutoMigrate is set.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*Store, error) {
	if cfg.Driver == config.StorageMemory {
		log.Warn("using in-memory storage; data is lost on restart")
		st := memory.NewStore()
		return &Store{
			Driver:     cfg.Driver,
			Requests:   st.Requests(),
			Sessions:   st.Sessions(),
			Feedback:   st.Feedback(),
			Directory:  st.Directory(),
			Placements: st.Placements(),
			ping:       st.Ping,
		}, nil
	}

	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.URL
	pgCfg.MaxConns = int32(cfg.MaxConns)
	pgCfg.MinConns = int32(cfg.MinConns)
	pgCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	pgCfg.QueryTimeout = cfg.QueryTimeout

	var conn *postgres.Connection
	retrier := retry.StartupRetrier(func(attempt int, err error, delay time.Duration) {
		log.Warn("database not ready, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err),
		)
	})
	err := retrier.Do(ctx, func(ctx context.Context) error {
		c, err := postgres.NewConnection(ctx, pgCfg)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("database connection established")

	if cfg.AutoMigrate {
		applied, err := postgres.NewMigrator(conn).Migrate(ctx)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		log.Info("migrations completed", logger.Int("applied", applied))
	}

	st := postgres.NewStore(conn)
	return &Store{
		Driver:     cfg.Driver,
		Requests:   st.Requests(),
		Sessions:   st.Sessions(),
		Feedback:   st.Feedback(),
		Directory:  st.Directory(),
		Placements: st.Placements(),
		ping:       st.Ping,
		close:      st.Close,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS & EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// OpenRedis connects to Redis. It returns nil without error when Redis is
// disabled.
func OpenRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Cache, error) {
	if cfg.Disabled {
		log.Info("redis disabled; rating cache and event fan-out are off")
		return nil, nil
	}

	rcfg := redis.DefaultConfig()
	rcfg.Host = cfg.Host
	rcfg.Port = cfg.Port
	rcfg.Password = cfg.Password
	rcfg.DB = cfg.DB
	rcfg.PoolSize = cfg.PoolSize
	rcfg.MinIdleConns = cfg.MinIdleConns
	rcfg.DialTimeout = cfg.DialTimeout
	rcfg.ReadTimeout = cfg.ReadTimeout
	rcfg.WriteTimeout = cfg.WriteTimeout

	var cache *redis.Cache
	retrier := retry.StartupRetrier(func(attempt int, err error, delay time.Duration) {
		log.Warn("redis not ready, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err),
		)
	})
	err := retrier.Do(ctx, func(context.Context) error {
		c, err := redis.NewCache(rcfg)
		if err != nil {
			return err
		}
		cache = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	log.Info("redis connection established", logger.String("addr", rcfg.Addr()))
	return cache, nil
}

// EventBus is a bus the process owns and must close.
type EventBus interface {
	shared.EventBus
	shared.InlineSubscriber
	Close() error
}

// NewEventBus fans events out over Redis when a cache is available, so that
// every portal and worker instance sees them. Without Redis events stay in
// process.
func NewEventBus(cache *redis.Cache, log *logger.Logger) (EventBus, error) {
	local := messaging.DefaultInMemoryEventBusConfig()
	local.AsyncMode = true
	local.Logger = log

	if cache == nil {
		return messaging.NewInMemoryEventBus(local), nil
	}

	bus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
		Client:         messaging.NewGoRedisClient(cache.Client()),
		LocalBusConfig: local,
		Logger:         log,
	})
	if err != nil {
		return nil, fmt.Errorf("start redis event bus: %w", err)
	}
	return bus, nil
}
