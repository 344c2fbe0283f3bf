// Package main is the entry point of the mentorship portal API.
//
// The portal serves the student and alumni mentorship lifecycle over HTTP:
// registration and approval, mentor search, mentorship requests, sessions,
// feedback and the placement statistics used by administrators.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alem-hub/mentorship-portal/config"
	"github.com/alem-hub/mentorship-portal/internal/application/command"
	"github.com/alem-hub/mentorship-portal/internal/application/eventhandler"
	"github.com/alem-hub/mentorship-portal/internal/application/query"
	"github.com/alem-hub/mentorship-portal/internal/bootstrap"
	"github.com/alem-hub/mentorship-portal/internal/infrastructure/auth"
	"github.com/alem-hub/mentorship-portal/internal/infrastructure/meeting"
	"github.com/alem-hub/mentorship-portal/internal/infrastructure/persistence/redis"
	httpserver "github.com/alem-hub/mentorship-portal/internal/interface/http"
	"github.com/alem-hub/mentorship-portal/internal/interface/http/handlers"
	"github.com/alem-hub/mentorship-portal/pkg/circuitbreaker"
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

	log := bootstrap.NewLogger(cfg, "portal")
	log.Info("starting mentorship portal",
		logger.String("storage", string(cfg.Database.Driver)),
		logger.String("timezone", cfg.App.Timezone),
	)

	loc, err := bootstrap.Location(cfg.App.Timezone)
	if err != nil {
		return err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. STORAGE
	// ─────────────────────────────────────────────────────────────────────────
	store, err := bootstrap.OpenStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing store")
		store.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	cache, err := bootstrap.OpenRedis(ctx, cfg.Redis, log)
	if err != nil {
		// The portal serves correct data without Redis, only slower.
		log.Warn("continuing without redis", logger.Err(err))
	}
	if cache != nil {
		defer func() { _ = cache.Close() }()
	}

	// ratingCache stays a nil interface when Redis is off.
	var ratingCache interface {
		query.RatingCache
		eventhandler.RatingInvalidator
	}
	if cache != nil {
		breaker := circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		})
		ratingCache = redis.NewGuardedRatingCache(redis.NewRatingCache(cache, cfg.Redis.RatingTTL), breaker)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	bus, err := bootstrap.NewEventBus(cache, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing event bus")
		_ = bus.Close()
	}()

	if ratingCache != nil {
		if err := eventhandler.NewOnFeedbackSubmittedHandler(ratingCache, log).Register(bus); err != nil {
			return fmt.Errorf("failed to register event handlers: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. AUTH & MEETINGS
	// ─────────────────────────────────────────────────────────────────────────
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = randomSecret()
		log.Warn("JWT_SECRET is empty; using a random secret, tokens will not survive a restart")
	}
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret: secret,
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.TokenTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	links := meeting.NewGenerator(cfg.Meeting.BaseURL)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	accounts := command.NewDirectoryHandler(store.Directory, hasher, tokens, bus, log)

	if cfg.Auth.AdminEmail != "" && cfg.Auth.AdminPassword != "" {
		created, err := accounts.EnsureAdmin(ctx, command.EnsureAdminCommand{
			Name:     "Administrator",
			Email:    cfg.Auth.AdminEmail,
			Password: cfg.Auth.AdminPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to bootstrap admin: %w", err)
		}
		if created {
			log.Info("bootstrap admin created", logger.String("email", cfg.Auth.AdminEmail))
		}
	}

	var ratingQueryCache query.RatingCache
	if ratingCache != nil {
		ratingQueryCache = ratingCache
	}

	deps := httpserver.Dependencies{
		CreateRequest:     command.NewCreateRequestHandler(store.Requests, store.Directory, bus, log),
		DecideRequest:     command.NewDecideRequestHandler(store.Requests, bus, log),
		ProposeSession:    command.NewProposeSessionHandler(store.Requests, store.Sessions, bus, log),
		ConfirmSession:    command.NewConfirmSessionHandler(store.Sessions, links, bus, log),
		SessionTransition: command.NewSessionTransitionHandler(store.Sessions, bus, log),
		RecordContent:     command.NewRecordContentHandler(store.Sessions, log),
		SubmitFeedback:    command.NewSubmitFeedbackHandler(store.Feedback, store.Directory, bus, log),
		UpsertPlacement:   command.NewUpsertPlacementHandler(store.Placements, store.Directory, bus, log),
		Accounts:          accounts,
		Directory:         query.NewDirectoryHandler(store.Directory),
		Lifecycle:         query.NewLifecycleHandler(store.Requests, store.Sessions, store.Feedback),
		Placements:        query.NewPlacementHandler(store.Placements, store.Directory),
		Ratings:           query.NewRatingHandler(store.Feedback, store.Directory, ratingQueryCache, log),
		Tokens:            tokens,
		Logger:            log,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("database", handlers.NewDatabaseCheck(store))
	if cache != nil {
		health.AddOptionalCheck("redis", handlers.NewCacheCheck(cache))
	}
	deps.HealthChecker = health

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.GinMode = cfg.HTTP.GinMode
	httpConfig.Location = loc
	httpConfig.TopMentorsLimit = cfg.Worker.TopMentorsLimit
	httpConfig.Version = cfg.App.Version

	server := httpserver.NewServer(httpConfig, deps)
	errCh := server.StartAsync()

	log.Info("mentorship portal is running", logger.String("address", server.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 9. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("http server failed", logger.Err(err))
			return err
		}
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	log.Info("starting graceful shutdown", logger.Duration("timeout", cfg.App.ShutdownTimeout))
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}

	log.Info("shutdown completed")
	return nil
}

// randomSecret is used outside production when no secret is configured.
func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return hex.EncodeToString(buf)
}
