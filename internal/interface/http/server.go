// Package http exposes the mentorship portal as a JSON REST API on gin.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alem-hub/mentorship-portal/internal/application/command"
	"github.com/alem-hub/mentorship-portal/internal/application/query"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
	"github.com/alem-hub/mentorship-portal/internal/interface/http/handlers"
	"github.com/alem-hub/mentorship-portal/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	Host string
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxHeaderBytes int
	// MaxBodyBytes caps request bodies; session notes are the largest.
	MaxBodyBytes int64

	// GinMode is passed to gin.SetMode.
	GinMode string

	EnableCORS     bool
	AllowedOrigins []string

	// AuthRateLimitPerMinute limits login and registration attempts per
	// client IP. Zero disables the limit.
	AuthRateLimitPerMinute int

	// Location is the campus timezone used to read session and placement
	// dates. Defaults to UTC.
	Location *time.Location

	// TopMentorsLimit is the default size of GET /mentors/top.
	TopMentorsLimit int

	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:                   "0.0.0.0",
		Port:                   8080,
		ReadTimeout:            15 * time.Second,
		WriteTimeout:           15 * time.Second,
		IdleTimeout:            60 * time.Second,
		MaxHeaderBytes:         1 << 20,
		MaxBodyBytes:           1 << 20,
		GinMode:                gin.ReleaseMode,
		EnableCORS:             true,
		AllowedOrigins:         []string{"*"},
		AuthRateLimitPerMinute: 30,
		Location:               time.UTC,
		TopMentorsLimit:        10,
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// TokenVerifier turns a bearer token into the acting user.
type TokenVerifier interface {
	Verify(token string) (shared.Actor, error)
}

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Command Handlers (CQRS Write Side)
	CreateRequest     *command.CreateRequestHandler
	DecideRequest     *command.DecideRequestHandler
	ProposeSession    *command.ProposeSessionHandler
	ConfirmSession    *command.ConfirmSessionHandler
	SessionTransition *command.SessionTransitionHandler
	RecordContent     *command.RecordContentHandler
	SubmitFeedback    *command.SubmitFeedbackHandler
	UpsertPlacement   *command.UpsertPlacementHandler
	Accounts          *command.DirectoryHandler

	// Query Handlers (CQRS Read Side)
	Directory  *query.DirectoryHandler
	Lifecycle  *query.LifecycleHandler
	Placements *query.PlacementHandler
	Ratings    *query.RatingHandler

	Tokens        TokenVerifier
	HealthChecker handlers.HealthChecker
	Logger        *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	engine     *gin.Engine
	httpServer *http.Server
	logger     *logger.Logger

	authLimiter *rateLimiter

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and
// dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	if config.GinMode != "" {
		gin.SetMode(config.GinMode)
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.TopMentorsLimit <= 0 {
		config.TopMentorsLimit = 10
	}
	if deps.HealthChecker == nil {
		deps.HealthChecker = handlers.NewNoopHealthChecker()
	}

	s := &Server{
		config: config,
		deps:   deps,
		engine: gin.New(),
		logger: deps.Logger,
	}
	if s.logger == nil {
		s.logger = logger.Default()
	}
	s.logger = s.logger.With(logger.Component("http"))

	if config.AuthRateLimitPerMinute > 0 {
		s.authLimiter = newRateLimiter(config.AuthRateLimitPerMinute, time.Minute)
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.engine,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s
}

// Handler returns the root handler. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) setupMiddleware() {
	s.engine.Use(
		s.requestIDMiddleware(),
		s.recoveryMiddleware(),
		s.loggingMiddleware(),
		handlers.SecurityHeaders(),
	)
	if s.config.EnableCORS {
		s.engine.Use(s.corsMiddleware())
	}
	if s.config.MaxBodyBytes > 0 {
		s.engine.Use(handlers.RequestSizeLimit(s.config.MaxBodyBytes))
	}

	s.engine.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "route_not_found", "Route not found")
	})
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	s.engine.GET("/", s.handleRoot)
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/ready", s.handleReady)
	s.engine.GET("/live", s.handleLive)

	api := s.engine.Group("/api/v1")

	// ─────────────────────────────────────────────────────────────────────────
	// Auth (public)
	// ─────────────────────────────────────────────────────────────────────────
	auth := api.Group("/auth")
	if s.authLimiter != nil {
		auth.Use(s.rateLimitMiddleware(s.authLimiter))
	}
	auth.POST("/register/student", s.handleRegisterStudent)
	auth.POST("/register/alumni", s.handleRegisterAlumni)
	auth.POST("/login", s.handleLogin)

	// Everything below requires a bearer token.
	authed := api.Group("", s.authMiddleware(), handlers.NoCache())

	// ─────────────────────────────────────────────────────────────────────────
	// Directory
	// ─────────────────────────────────────────────────────────────────────────
	reference := authed.Group("", handlers.CacheControl(time.Hour, true))
	reference.GET("/industries", s.handleListIndustries)
	reference.GET("/skills", s.handleListSkills)
	authed.GET("/industries/:id", s.handleGetIndustry)

	authed.GET("/mentors", s.handleFindMentors)
	authed.GET("/mentors/top", s.handleTopMentors)
	authed.GET("/mentors/:id/rating", s.handleMentorRating)
	authed.GET("/mentors/:id/feedback", s.handleMentorFeedback)
	authed.PUT("/me/skills", s.handleReplaceSkills)

	// ─────────────────────────────────────────────────────────────────────────
	// Mentorship lifecycle
	// ─────────────────────────────────────────────────────────────────────────
	authed.POST("/requests", s.handleCreateRequest)
	authed.GET("/requests", s.handleListRequests)
	authed.GET("/requests/ready", s.handleReadyToPropose)
	authed.POST("/requests/:id/decision", s.handleDecideRequest)

	authed.POST("/sessions", s.handleProposeSession)
	authed.GET("/sessions", s.handleListSessions)
	authed.POST("/sessions/:id/confirm", s.handleConfirmSession)
	authed.POST("/sessions/:id/complete", s.handleCompleteSession)
	authed.POST("/sessions/:id/cancel", s.handleCancelSession)
	authed.PUT("/sessions/:id/content", s.handleRecordContent)
	authed.GET("/sessions/:id/content", s.handleGetContent)

	authed.POST("/feedback", s.handleSubmitFeedback)
	authed.GET("/students/me/stats", s.handleStudentStats)
	authed.GET("/students/me/feedback", s.handleStudentFeedback)

	// ─────────────────────────────────────────────────────────────────────────
	// Admin
	// ─────────────────────────────────────────────────────────────────────────
	admin := authed.Group("/admin", requireRole(shared.RoleAdmin))
	admin.GET("/users", s.handleListUsers)
	admin.GET("/alumni/pending", s.handlePendingAlumni)
	admin.POST("/alumni/:id/approve", s.handleApproveAlumni)
	admin.GET("/statistics", s.handleSiteStatistics)
	admin.GET("/placements/trends", s.handlePlacementTrends)
	admin.GET("/placements/log", s.handlePlacementLog)
	admin.GET("/placements/:studentId", s.handleGetPlacement)
	admin.PUT("/placements/:studentId", s.handleUpsertPlacement)
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	if s.authLimiter != nil {
		s.authLimiter.Stop()
	}

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Address returns the server address.
func (s *Server) Address() string {
	return s.config.Address()
}
