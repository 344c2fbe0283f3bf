// Package messaging implements the portal's event buses: an in-process bus
// and a Redis Pub/Sub bus that fans events out to every API and worker
// instance.
package messaging

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
	"github.com/alem-hub/mentorship-portal/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEventBusClosed is returned when operations are attempted on a closed bus.
	ErrEventBusClosed = errors.New("event bus is closed")

	// ErrHandlerPanic is returned when a handler panics.
	ErrHandlerPanic = errors.New("handler panicked")
)

// Compile-time interface checks.
var (
	_ shared.EventBus = (*InMemoryEventBus)(nil)
	_ shared.EventBus = (*RedisEventBus)(nil)

	_ shared.InlineSubscriber = (*InMemoryEventBus)(nil)
	_ shared.InlineSubscriber = (*RedisEventBus)(nil)
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBus delivers events to handlers in this process.
// Handlers never affect the publisher: their errors and panics are logged.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]shared.EventHandler
	inline      map[shared.EventType][]shared.EventHandler
	allHandlers []shared.EventHandler
	asyncMode   bool
	workerPool  chan struct{}
	logger      *logger.Logger
	metrics     *EventBusMetrics
	closed      bool
	closeCh     chan struct{}
	wg          sync.WaitGroup
}

// InMemoryEventBusConfig contains configuration for InMemoryEventBus.
type InMemoryEventBusConfig struct {
	// AsyncMode runs handlers on a bounded worker pool instead of inline.
	AsyncMode bool

	// WorkerPoolSize is the number of concurrent workers for async processing
	WorkerPoolSize int

	Logger *logger.Logger
}

// DefaultInMemoryEventBusConfig returns sensible defaults.
func DefaultInMemoryEventBusConfig() InMemoryEventBusConfig {
	return InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 10,
	}
}

// NewInMemoryEventBus creates a new in-memory event bus.
func NewInMemoryEventBus(config InMemoryEventBusConfig) *InMemoryEventBus {
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 10
	}

	return &InMemoryEventBus{
		handlers:   make(map[shared.EventType][]shared.EventHandler),
		inline:     make(map[shared.EventType][]shared.EventHandler),
		asyncMode:  config.AsyncMode,
		workerPool: make(chan struct{}, config.WorkerPoolSize),
		logger:     config.Logger.With(logger.Component("event_bus")),
		metrics:    NewEventBusMetrics(),
		closeCh:    make(chan struct{}),
	}
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.logger.Debug("subscribed handler", logger.String("event_type", string(eventType)))
	return nil
}

// SubscribeInline registers a handler that Publish runs before returning,
// ahead of the regular handlers, even in async mode.
func (b *InMemoryEventBus) SubscribeInline(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.inline[eventType] = append(b.inline[eventType], handler)
	b.logger.Debug("subscribed inline handler", logger.String("event_type", string(eventType)))
	return nil
}

// SubscribeAll registers a handler for all events.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.allHandlers = append(b.allHandlers, handler)
	return nil
}

// Publish sends an event to all subscribed handlers.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	handlers := make([]shared.EventHandler, 0, len(b.handlers[event.EventType()])+len(b.allHandlers))
	handlers = append(handlers, b.handlers[event.EventType()]...)
	handlers = append(handlers, b.allHandlers...)
	inline := append([]shared.EventHandler(nil), b.inline[event.EventType()]...)
	b.mu.RUnlock()

	b.metrics.RecordPublish(event.EventType())

	for _, handler := range inline {
		if err := b.execute(event, handler); err != nil {
			b.logger.Error("inline handler error",
				logger.String("event_type", string(event.EventType())),
				logger.Err(err))
		}
	}

	for _, handler := range handlers {
		if b.asyncMode {
			b.executeAsync(event, handler)
			continue
		}
		if err := b.execute(event, handler); err != nil {
			b.logger.Error("handler error",
				logger.String("event_type", string(event.EventType())),
				logger.Err(err))
		}
	}
	return nil
}

// executeAsync executes a handler asynchronously using the worker pool.
func (b *InMemoryEventBus) executeAsync(event shared.Event, handler shared.EventHandler) {
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		select {
		case b.workerPool <- struct{}{}:
			defer func() { <-b.workerPool }()
		case <-b.closeCh:
			return
		}

		if err := b.execute(event, handler); err != nil {
			b.logger.Error("async handler error",
				logger.String("event_type", string(event.EventType())),
				logger.Err(err))
		}
	}()
}

// execute runs one handler, converting a panic into ErrHandlerPanic.
func (b *InMemoryEventBus) execute(event shared.Event, handler shared.EventHandler) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
		b.metrics.RecordHandlerExecution(time.Since(start), err == nil)
	}()
	return handler(event)
}

// Close stops accepting events and waits for running handlers.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.closeCh)
	b.mu.Unlock()

	b.wg.Wait()

	b.logger.Info("event bus closed")
	return nil
}

// Metrics returns the current metrics.
func (b *InMemoryEventBus) Metrics() *EventBusMetrics {
	return b.metrics
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// EventBusMetrics tracks event bus counters.
type EventBusMetrics struct {
	mu sync.RWMutex

	published            map[shared.EventType]int64
	handlerExecutions    int64
	handlerFailures      int64
	handlerTotalDuration time.Duration
}

// NewEventBusMetrics creates new metrics tracker.
func NewEventBusMetrics() *EventBusMetrics {
	return &EventBusMetrics{published: make(map[shared.EventType]int64)}
}

// RecordPublish records a publish event.
func (m *EventBusMetrics) RecordPublish(eventType shared.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[eventType]++
}

// RecordHandlerExecution records a handler execution.
func (m *EventBusMetrics) RecordHandlerExecution(duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlerExecutions++
	m.handlerTotalDuration += duration
	if !success {
		m.handlerFailures++
	}
}

// EventBusMetricsSnapshot is a point-in-time snapshot of metrics.
type EventBusMetricsSnapshot struct {
	TotalPublished         int64                      `json:"total_published"`
	PublishedByType        map[shared.EventType]int64 `json:"published_by_type"`
	TotalHandlerExecs      int64                      `json:"total_handler_execs"`
	HandlerFailures        int64                      `json:"handler_failures"`
	AverageHandlerDuration time.Duration              `json:"average_handler_duration"`
}

// Snapshot returns a copy of current metrics.
func (m *EventBusMetrics) Snapshot() EventBusMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := EventBusMetricsSnapshot{
		PublishedByType:   make(map[shared.EventType]int64, len(m.published)),
		TotalHandlerExecs: m.handlerExecutions,
		HandlerFailures:   m.handlerFailures,
	}
	for t, n := range m.published {
		snap.PublishedByType[t] = n
		snap.TotalPublished += n
	}
	if m.handlerExecutions > 0 {
		snap.AverageHandlerDuration = m.handlerTotalDuration / time.Duration(m.handlerExecutions)
	}
	return snap
}
