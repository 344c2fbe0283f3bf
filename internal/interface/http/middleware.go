package http

import (
	"io"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
	"github.com/alem-hub/mentorship-portal/pkg/logger"
)

const (
	headerRequestID = "X-Request-ID"
	ctxKeyRequestID = "request_id"
	ctxKeyActor     = "actor"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST CONTEXT
// ══════════════════════════════════════════════════════════════════════════════

// requestIDMiddleware tags each request with an id and a request-scoped
// logger reachable through logger.FromContext.
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		c.Header(headerRequestID, requestID)
		c.Set(ctxKeyRequestID, requestID)

		ctx := logger.WithContext(c.Request.Context(), s.logger.WithRequestID(requestID))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// loggingMiddleware logs every request once it has been served.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("route", route),
			logger.Int("status", status),
			logger.Latency(time.Since(start)),
			logger.String("ip", c.ClientIP()),
		}
		if actor, ok := actorFrom(c); ok {
			fields = append(fields, logger.UserID(actor.UserID), logger.Role(actor.Role.String()))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logger.String("errors", c.Errors.String()))
		}

		log := logger.FromContext(c.Request.Context())
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("http request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}

// recoveryMiddleware turns a panic into a 500 with the standard error body.
func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.FromContext(c.Request.Context()).Error("panic recovered",
			logger.Any("panic", recovered),
			logger.String("stack", string(debug.Stack())),
			logger.String("path", c.Request.URL.Path),
		)
		writeErrorCode(c, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	})
}

// corsMiddleware adds CORS headers.
func (s *Server) corsMiddleware() gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]bool, len(s.config.AllowedOrigins))
	for _, o := range s.config.AllowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

// authMiddleware verifies the bearer token and stores the actor.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			writeErrorCode(c, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}

		const prefix = "Bearer "
		if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
			writeErrorCode(c, http.StatusUnauthorized, "unauthorized", "Invalid authorization header format")
			return
		}
		token := strings.TrimSpace(header[len(prefix):])

		if s.deps.Tokens == nil {
			writeErrorCode(c, http.StatusUnauthorized, "unauthorized", "Authentication is not configured")
			return
		}
		actor, err := s.deps.Tokens.Verify(token)
		if err != nil {
			writeErrorCode(c, http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
			return
		}

		c.Set(ctxKeyActor, actor)
		log := logger.FromContext(c.Request.Context()).With(
			logger.UserID(actor.UserID),
			logger.Role(actor.Role.String()),
		)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), log))
		c.Next()
	}
}

// requireRole rejects actors whose role is not one of roles.
func requireRole(roles ...shared.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			writeErrorCode(c, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		writeErrorCode(c, http.StatusForbidden, "forbidden", "Insufficient role")
	}
}

func actorFrom(c *gin.Context) (shared.Actor, bool) {
	v, ok := c.Get(ctxKeyActor)
	if !ok {
		return shared.Actor{}, false
	}
	actor, ok := v.(shared.Actor)
	return actor, ok
}

// mustActor returns the actor set by authMiddleware. Only valid on routes
// behind it.
func mustActor(c *gin.Context) shared.Actor {
	actor, _ := actorFrom(c)
	return actor
}

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER
// ══════════════════════════════════════════════════════════════════════════════

// rateLimitMiddleware implements per-IP rate limiting.
func (s *Server) rateLimitMiddleware(rl *rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			writeErrorCode(c, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests, please try again later")
			return
		}
		c.Next()
	}
}

type rateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		done:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

func (rl *rateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	valid := rl.prune(rl.requests[key], now.Add(-rl.window))
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}
	rl.requests[key] = append(valid, now)
	return true
}

func (rl *rateLimiter) prune(times []time.Time, windowStart time.Time) []time.Time {
	valid := times[:0]
	for _, t := range times {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}
	return valid
}

func (rl *rateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for key, times := range rl.requests {
				if valid := rl.prune(times, now.Add(-rl.window)); len(valid) == 0 {
					delete(rl.requests, key)
				} else {
					rl.requests[key] = valid
				}
			}
			rl.mu.Unlock()
		}
	}
}
