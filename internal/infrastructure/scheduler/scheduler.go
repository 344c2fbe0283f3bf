// Package scheduler runs the portal's background jobs on cron schedules.
// Schedules are standard five-field cron expressions or descriptors such as
// "@every 15m", parsed by robfig/cron. A job never overlaps with itself.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alem-hub/mentorship-portal/pkg/logger"
)

// Job is a unit of background work. Run's context is cancelled when the
// scheduler stops or the job timeout elapses.
type Job interface {
	Name() string
	Description() string
	Run(ctx context.Context) error
}

// JobResult describes one run.
type JobResult struct {
	JobName     string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Success     bool
	Error       error
	// Manual is set for RunNow.
	Manual bool
	// Skipped is set when the job was still running from an earlier start.
	Skipped bool
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Scheduler runs registered jobs on cron schedules and on demand.
type Scheduler struct {
	mu sync.RWMutex

	cron       *cron.Cron
	logger     *logger.Logger
	jobTimeout time.Duration

	jobs    map[string]*scheduledJob
	running bool
	ctx     context.Context
	cancel  context.CancelFunc

	history    []JobResult
	maxHistory int
}

type scheduledJob struct {
	job     Job
	spec    string
	entryID cron.EntryID
	busy    atomic.Bool

	runs     int64
	failures int64
	last     *JobResult
}

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	Logger *logger.Logger

	// Timezone schedules are evaluated in. Defaults to UTC.
	Timezone *time.Location

	// JobTimeout bounds a single run. Zero means no bound.
	JobTimeout time.Duration

	// MaxHistorySize caps the kept run results.
	MaxHistorySize int
}

// DefaultSchedulerConfig returns the worker defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Timezone:       time.UTC,
		JobTimeout:     5 * time.Minute,
		MaxHistorySize: 100,
	}
}

// NewScheduler creates a stopped Scheduler.
func NewScheduler(config SchedulerConfig) *Scheduler {
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	if config.Timezone == nil {
		config.Timezone = time.UTC
	}
	if config.MaxHistorySize <= 0 {
		config.MaxHistorySize = 100
	}

	log := config.Logger.With(logger.Component("scheduler"))
	cl := cronLogger{log: log}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(config.Timezone),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		logger:     log,
		jobTimeout: config.JobTimeout,
		jobs:       make(map[string]*scheduledJob),
		ctx:        ctx,
		cancel:     cancel,
		maxHistory: config.MaxHistorySize,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// JOB REGISTRATION
// ══════════════════════════════════════════════════════════════════════════════

// Register adds a job under a cron spec such as "*/15 * * * *".
func (s *Scheduler) Register(job Job, spec string) error {
	if job == nil {
		return ErrNilJob
	}
	if spec == "" {
		return ErrNilSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}

	sj := &scheduledJob{job: job, spec: spec}
	id, err := s.cron.AddFunc(spec, func() { _, _ = s.runJob(s.ctx, sj, false) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}
	sj.entryID = id
	s.jobs[name] = sj

	s.logger.Info("job registered",
		logger.String("job", name),
		logger.String("schedule", spec),
		logger.String("description", job.Description()),
	)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start begins running jobs on their schedules.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerAlreadyRunning
	}
	s.running = true
	s.cron.Start()

	s.logger.Info("scheduler started", logger.Int("jobs", len(s.jobs)))
	return nil
}

// Stop cancels running jobs and waits for them to return, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	done := s.cron.Stop()

	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// ══════════════════════════════════════════════════════════════════════════════
// EXECUTION
// Scheduled and manual runs share one guard per job, so a job never runs
// twice at once in this process. Across processes jobs take a Redis lock.
// ══════════════════════════════════════════════════════════════════════════════

// RunNow runs a job immediately. If the job is already running the result is
// marked Skipped and no error is returned.
func (s *Scheduler) RunNow(ctx context.Context, jobName string) (*JobResult, error) {
	s.mu.RLock()
	sj, exists := s.jobs[jobName]
	s.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}
	return s.runJob(ctx, sj, true)
}

func (s *Scheduler) runJob(parent context.Context, sj *scheduledJob, manual bool) (*JobResult, error) {
	name := sj.job.Name()
	log := s.logger.With(logger.String("job", name), logger.Bool("manual", manual))

	if !sj.busy.CompareAndSwap(false, true) {
		log.Info("job still running, skipping")
		now := time.Now()
		return &JobResult{JobName: name, StartedAt: now, CompletedAt: now, Manual: manual, Skipped: true, Success: true}, nil
	}
	defer sj.busy.Store(false)

	ctx := parent
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, s.jobTimeout)
		defer cancel()
	}

	started := time.Now()
	log.Debug("job started")
	err := sj.job.Run(ctx)
	completed := time.Now()

	result := &JobResult{
		JobName:     name,
		StartedAt:   started,
		CompletedAt: completed,
		Duration:    completed.Sub(started),
		Success:     err == nil,
		Error:       err,
		Manual:      manual,
	}

	s.mu.Lock()
	sj.runs++
	if err != nil {
		sj.failures++
	}
	sj.last = result
	s.history = append(s.history, *result)
	if len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}
	s.mu.Unlock()

	if err != nil {
		log.Error("job failed", logger.Duration("duration", result.Duration), logger.Err(err))
	} else {
		log.Info("job completed", logger.Duration("duration", result.Duration))
	}
	return result, err
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// JobInfo summarizes a registered job.
type JobInfo struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Schedule    string     `json:"schedule"`
	NextRun     time.Time  `json:"next_run"`
	Runs        int64      `json:"runs"`
	Failures    int64      `json:"failures"`
	Running     bool       `json:"running"`
	LastResult  *JobResult `json:"-"`
}

// ListJobs returns the registered jobs ordered by name.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for name, sj := range s.jobs {
		out = append(out, JobInfo{
			Name:        name,
			Description: sj.job.Description(),
			Schedule:    sj.spec,
			NextRun:     s.cron.Entry(sj.entryID).Next,
			Runs:        sj.runs,
			Failures:    sj.failures,
			Running:     sj.busy.Load(),
			LastResult:  sj.last,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// History returns up to limit of the most recent results, newest last.
// A non-positive limit returns all of them.
func (s *Scheduler) History(limit int) []JobResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]JobResult, limit)
	copy(out, s.history[len(s.history)-limit:])
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// CRON LOGGER
// ══════════════════════════════════════════════════════════════════════════════

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(kvFields(keysAndValues), logger.Err(err))...)
}

func kvFields(kv []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	ErrNilJob                  = errors.New("job cannot be nil")
	ErrNilSchedule             = errors.New("schedule cannot be empty")
	ErrJobAlreadyExists        = errors.New("job already exists")
	ErrJobNotFound             = errors.New("job not found")
	ErrSchedulerAlreadyRunning = errors.New("scheduler is already running")
	ErrSchedulerNotRunning     = errors.New("scheduler is not running")
)
