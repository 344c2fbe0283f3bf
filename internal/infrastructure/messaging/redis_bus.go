package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
	"github.com/alem-hub/mentorship-portal/pkg/logger"
)

// DefaultChannel is the Redis channel events travel on.
const DefaultChannel = "mentorship-portal:events"

// ══════════════════════════════════════════════════════════════════════════════
// REDIS EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// RedisEventBus publishes events to Redis Pub/Sub and replays events from
// other instances on a local bus. Events this instance published are
// delivered locally right away and skipped when they come back from Redis.
type RedisEventBus struct {
	client     RedisClient
	localBus   *InMemoryEventBus
	channel    string
	instanceID string
	logger     *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// RedisClient is the slice of Redis the bus needs.
type RedisClient interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns a channel of messages that is closed when ctx ends.
	Subscribe(ctx context.Context, channel string) (<-chan RedisMessage, error)
}

// RedisMessage represents a message received from Redis Pub/Sub.
type RedisMessage struct {
	Channel string
	Payload string
}

// RedisEventBusConfig contains configuration for RedisEventBus.
type RedisEventBusConfig struct {
	Client RedisClient

	// Channel defaults to DefaultChannel.
	Channel string

	// InstanceID uniquely identifies this instance. Generated when empty.
	InstanceID string

	LocalBusConfig InMemoryEventBusConfig

	Logger *logger.Logger
}

// NewRedisEventBus subscribes to the channel and starts relaying.
func NewRedisEventBus(config RedisEventBusConfig) (*RedisEventBus, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.Channel == "" {
		config.Channel = DefaultChannel
	}
	if config.InstanceID == "" {
		config.InstanceID = uuid.NewString()
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	if config.LocalBusConfig.Logger == nil {
		config.LocalBusConfig.Logger = config.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	bus := &RedisEventBus{
		client:     config.Client,
		localBus:   NewInMemoryEventBus(config.LocalBusConfig),
		channel:    config.Channel,
		instanceID: config.InstanceID,
		logger:     config.Logger.With(logger.Component("redis_event_bus"), logger.String("instance_id", config.InstanceID)),
		ctx:        ctx,
		cancel:     cancel,
	}

	messages, err := bus.client.Subscribe(ctx, bus.channel)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("start subscriber: %w", err)
	}

	bus.wg.Add(1)
	go func() {
		defer bus.wg.Done()
		bus.subscriptionLoop(messages)
	}()

	return bus, nil
}

// Subscribe registers a handler for a specific event type.
func (b *RedisEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.localBus.Subscribe(eventType, handler)
}

// SubscribeInline registers a handler that runs before Publish returns. It
// also runs for events relayed from other instances.
func (b *RedisEventBus) SubscribeInline(eventType shared.EventType, handler shared.EventHandler) error {
	return b.localBus.SubscribeInline(eventType, handler)
}

// SubscribeAll registers a handler for all events.
func (b *RedisEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.localBus.SubscribeAll(handler)
}

// Publish sends an event to Redis and to local handlers. A Redis failure is
// logged; local delivery still happens.
func (b *RedisEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrEventBusClosed
	}

	data, err := json.Marshal(eventEnvelope{
		InstanceID:  b.instanceID,
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := b.client.Publish(b.ctx, b.channel, data); err != nil {
		b.logger.Error("failed to publish to redis",
			logger.String("event_type", string(event.EventType())),
			logger.Err(err))
	}

	return b.localBus.Publish(event)
}

func (b *RedisEventBus) subscriptionLoop(messages <-chan RedisMessage) {
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			b.handleRedisMessage(msg)
		}
	}
}

func (b *RedisEventBus) handleRedisMessage(msg RedisMessage) {
	var envelope eventEnvelope
	if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
		b.logger.Error("failed to unmarshal event", logger.Err(err))
		return
	}

	// Already delivered locally by Publish.
	if envelope.InstanceID == b.instanceID {
		return
	}

	event := &relayedEvent{
		eventType:   envelope.EventType,
		aggregateID: envelope.AggregateID,
		occurredAt:  envelope.OccurredAt,
		payload:     envelope.Payload,
	}
	if err := b.localBus.Publish(event); err != nil {
		b.logger.Error("failed to process remote event", logger.Err(err))
	}
}

// Close stops the relay and drains local handlers.
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()

	return b.localBus.Close()
}

// Metrics returns the current metrics from the local bus.
func (b *RedisEventBus) Metrics() *EventBusMetrics {
	return b.localBus.Metrics()
}

// ══════════════════════════════════════════════════════════════════════════════
// WIRE FORMAT
// ══════════════════════════════════════════════════════════════════════════════

type eventEnvelope struct {
	InstanceID  string                 `json:"instance_id"`
	EventType   shared.EventType       `json:"event_type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

// relayedEvent is an event received from another instance.
type relayedEvent struct {
	eventType   shared.EventType
	aggregateID string
	occurredAt  time.Time
	payload     map[string]interface{}
}

func (e *relayedEvent) EventType() shared.EventType     { return e.eventType }
func (e *relayedEvent) AggregateID() string             { return e.aggregateID }
func (e *relayedEvent) OccurredAt() time.Time           { return e.occurredAt }
func (e *relayedEvent) Payload() map[string]interface{} { return e.payload }

// ══════════════════════════════════════════════════════════════════════════════
// GO-REDIS ADAPTER
// ══════════════════════════════════════════════════════════════════════════════

// GoRedisClient adapts a go-redis client to RedisClient.
type GoRedisClient struct {
	client *redis.Client
}

// NewGoRedisClient wraps client.
func NewGoRedisClient(client *redis.Client) *GoRedisClient {
	return &GoRedisClient{client: client}
}

// Publish implements RedisClient.
func (c *GoRedisClient) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.client.Publish(ctx, channel, payload).Err()
}

// Subscribe implements RedisClient. It waits for the subscription to be
// confirmed so no message published after it returns is missed.
func (c *GoRedisClient) Subscribe(ctx context.Context, channel string) (<-chan RedisMessage, error) {
	pubsub := c.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan RedisMessage)
	go func() {
		defer close(out)
		defer pubsub.Close()

		in := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- RedisMessage{Channel: msg.Channel, Payload: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
