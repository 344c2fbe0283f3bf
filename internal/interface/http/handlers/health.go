package handlers

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH CHECK INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// HealthChecker defines the interface for health checking.
type HealthChecker interface {
	// Check performs a health check and returns the status.
	Check(ctx context.Context) HealthStatus

	// AddCheck adds a named check that must pass for the service to be ready.
	AddCheck(name string, check HealthCheckFunc)

	// AddOptionalCheck adds a named check whose failure only degrades the
	// service.
	AddOptionalCheck(name string, check HealthCheckFunc)

	// RemoveCheck removes a named health check.
	RemoveCheck(name string)
}

// HealthCheckFunc is a function that performs a single health check.
// It returns an error if the check fails.
type HealthCheckFunc func(ctx context.Context) error

// HealthStatus represents the overall health status of the service.
type HealthStatus struct {
	// Healthy is false when a required check failed.
	Healthy bool `json:"healthy"`

	// Ready mirrors Healthy; the portal has no warm-up phase.
	Ready bool `json:"ready"`

	// Degraded is true when only optional checks failed. Rating reads then
	// bypass the cache.
	Degraded bool `json:"degraded,omitempty"`

	Message   string                 `json:"message,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Healthy     bool      `json:"healthy"`
	Optional    bool      `json:"optional,omitempty"`
	Message     string    `json:"message,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	LastChecked time.Time `json:"last_checked,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPOSITE HEALTH CHECKER
// ══════════════════════════════════════════════════════════════════════════════

type registeredCheck struct {
	fn       HealthCheckFunc
	optional bool
}

// CompositeHealthChecker runs every registered check in parallel.
type CompositeHealthChecker struct {
	mu        sync.RWMutex
	checks    map[string]registeredCheck
	startTime time.Time
	version   string
	timeout   time.Duration
}

// NewCompositeHealthChecker creates a new composite health checker.
func NewCompositeHealthChecker(version string) *CompositeHealthChecker {
	return &CompositeHealthChecker{
		checks:    make(map[string]registeredCheck),
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// SetTimeout sets the timeout for individual health checks.
func (c *CompositeHealthChecker) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// AddCheck adds a required health check.
func (c *CompositeHealthChecker) AddCheck(name string, check HealthCheckFunc) {
	c.add(name, check, false)
}

// AddOptionalCheck adds a health check whose failure only degrades the
// service.
func (c *CompositeHealthChecker) AddOptionalCheck(name string, check HealthCheckFunc) {
	c.add(name, check, true)
}

func (c *CompositeHealthChecker) add(name string, check HealthCheckFunc, optional bool) {
	if check == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = registeredCheck{fn: check, optional: optional}
}

// RemoveCheck removes a named health check.
func (c *CompositeHealthChecker) RemoveCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Check performs all health checks and returns the aggregated status.
func (c *CompositeHealthChecker) Check(ctx context.Context) HealthStatus {
	c.mu.RLock()
	checks := make(map[string]registeredCheck, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	timeout := c.timeout
	c.mu.RUnlock()

	status := HealthStatus{
		Healthy:   true,
		Ready:     true,
		Checks:    make(map[string]CheckResult, len(checks)),
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Version:   c.version,
	}

	if len(checks) == 0 {
		status.Message = "No health checks registered"
		return status
	}

	type namedResult struct {
		name   string
		result CheckResult
	}

	var wg sync.WaitGroup
	results := make(chan namedResult, len(checks))

	for name, check := range checks {
		wg.Add(1)
		go func(name string, check registeredCheck) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			err := check.fn(checkCtx)

			result := CheckResult{
				Healthy:     err == nil,
				Optional:    check.optional,
				Message:     "OK",
				Duration:    time.Since(start).Round(time.Millisecond).String(),
				LastChecked: time.Now().UTC(),
			}
			if err != nil {
				result.Message = err.Error()
			}
			results <- namedResult{name: name, result: result}
		}(name, check)
	}

	wg.Wait()
	close(results)

	var failedRequired, failedOptional []string
	for r := range results {
		status.Checks[r.name] = r.result
		if r.result.Healthy {
			continue
		}
		if r.result.Optional {
			failedOptional = append(failedOptional, r.name)
		} else {
			failedRequired = append(failedRequired, r.name)
		}
	}
	sort.Strings(failedRequired)
	sort.Strings(failedOptional)

	switch {
	case len(failedRequired) > 0:
		status.Healthy = false
		status.Ready = false
		status.Message = "Some checks failed: " + strings.Join(failedRequired, ", ")
	case len(failedOptional) > 0:
		status.Degraded = true
		status.Message = "Degraded: " + strings.Join(failedOptional, ", ")
	default:
		status.Message = "All checks passed"
	}

	return status
}

// ══════════════════════════════════════════════════════════════════════════════
// PREDEFINED HEALTH CHECKS
// ══════════════════════════════════════════════════════════════════════════════

// Pinger is satisfied by the postgres store, the in-memory store and the
// Redis cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewDatabaseCheck creates a database health check function.
func NewDatabaseCheck(db Pinger) HealthCheckFunc {
	return func(ctx context.Context) error {
		return db.Ping(ctx)
	}
}

// NewCacheCheck creates a cache health check function.
func NewCacheCheck(cache Pinger) HealthCheckFunc {
	return func(ctx context.Context) error {
		return cache.Ping(ctx)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// NOOP IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// NoopHealthChecker always returns healthy status.
type NoopHealthChecker struct {
	startTime time.Time
}

// NewNoopHealthChecker creates a new noop health checker.
func NewNoopHealthChecker() *NoopHealthChecker {
	return &NoopHealthChecker{startTime: time.Now()}
}

// Check always returns healthy status.
func (n *NoopHealthChecker) Check(ctx context.Context) HealthStatus {
	return HealthStatus{
		Healthy:   true,
		Ready:     true,
		Message:   "OK",
		Uptime:    time.Since(n.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	}
}

func (n *NoopHealthChecker) AddCheck(string, HealthCheckFunc)         {}
func (n *NoopHealthChecker) AddOptionalCheck(string, HealthCheckFunc) {}
func (n *NoopHealthChecker) RemoveCheck(string)                       {}
