// Package main is the entry point of the mentorship portal worker.
//
// The worker keeps derived rating data warm: it periodically recomputes every
// approved alumnus' rating from the feedback store and rewrites the cached
// top-mentor ranking, and it refreshes early when an alumnus is approved.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alem-hub/mentorship-portal/config"
	"github.com/alem-hub/mentorship-portal/internal/bootstrap"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
	"github.com/alem-hub/mentorship-portal/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/mentorship-portal/internal/infrastructure/scheduler"
	"github.com/alem-hub/mentorship-portal/internal/infrastructure/scheduler/jobs"
	"github.com/alem-hub/mentorship-portal/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION & LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := bootstrap.NewLogger(cfg, "worker")
	if !cfg.Worker.Enabled {
		log.Info("worker disabled by configuration, exiting")
		return nil
	}
	if cfg.Redis.Disabled {
		return errors.New("the worker maintains the redis ranking and cannot run with REDIS_DISABLED")
	}

	loc, err := bootstrap.Location(cfg.App.Timezone)
	if err != nil {
		return err
	}

	log.Info("starting mentorship worker",
		logger.String("rating_refresh_spec", cfg.Worker.RatingRefreshSpec),
		logger.Duration("job_timeout", cfg.Worker.JobTimeout),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. STORAGE & REDIS
	// ─────────────────────────────────────────────────────────────────────────
	store, err := bootstrap.OpenStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer store.Close()

	cache, err := bootstrap.OpenRedis(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	schedConfig := scheduler.DefaultSchedulerConfig()
	schedConfig.Logger = log
	schedConfig.Timezone = loc
	schedConfig.JobTimeout = cfg.Worker.JobTimeout
	sched := scheduler.NewScheduler(schedConfig)

	refresh := jobs.NewRefreshRatingsJob(
		store.Directory,
		store.Feedback,
		redis.NewRatingCache(cache, cfg.Redis.RatingTTL),
		cache,
		log,
	)
	if err := sched.Register(refresh, cfg.Worker.RatingRefreshSpec); err != nil {
		return fmt.Errorf("failed to register %s: %w", refresh.Name(), err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. EVENTS
	// Approvals published by any portal instance arrive over Redis.
	// ─────────────────────────────────────────────────────────────────────────
	bus, err := bootstrap.NewEventBus(cache, log)
	if err != nil {
		return err
	}
	defer func() { _ = bus.Close() }()

	runCtx, stopRuns := context.WithCancel(ctx)
	defer stopRuns()

	err = bus.Subscribe(shared.EventAlumniApproved, func(event shared.Event) error {
		log.Info("alumnus approved, refreshing ratings", logger.AlumniID(event.AggregateID()))
		go func() {
			if _, err := sched.RunNow(runCtx, refresh.Name()); err != nil {
				log.Warn("on-demand rating refresh failed", logger.Err(err))
			}
		}()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to approvals: %w", err)
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// The ranking may be missing after a Redis restart.
	go func() {
		if _, err := sched.RunNow(runCtx, refresh.Name()); err != nil {
			log.Warn("initial rating refresh failed", logger.Err(err))
		}
	}()

	log.Info("mentorship worker is running")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	stopRuns()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	log.Info("starting graceful shutdown", logger.Duration("timeout", cfg.App.ShutdownTimeout))
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Error("scheduler did not stop cleanly", logger.Err(err))
		return err
	}

	if stats := refresh.LastStats(); stats != nil {
		log.Info("last rating refresh",
			logger.Time("completed_at", stats.CompletedAt),
			logger.Int("alumni", stats.Alumni),
			logger.Int("ranked", stats.Ranked),
		)
	}
	log.Info("shutdown completed")
	return nil
}
