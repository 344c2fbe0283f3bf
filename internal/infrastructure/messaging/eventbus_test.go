package messaging

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
)

func syncBus() *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})
}

func TestInMemoryEventBus_Delivery(t *testing.T) {
	bus := syncBus()
	var typed, all []shared.EventType

	require.NoError(t, bus.Subscribe(shared.EventFeedbackSubmitted, func(e shared.Event) error {
		typed = append(typed, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		all = append(all, e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewFeedbackSubmittedEvent("s1", "a1", 4)))
	require.NoError(t, bus.Publish(shared.NewAlumniApprovedEvent("a1", "root")))

	assert.Equal(t, []shared.EventType{shared.EventFeedbackSubmitted}, typed)
	assert.Equal(t, []shared.EventType{shared.EventFeedbackSubmitted, shared.EventAlumniApproved}, all)

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.TotalPublished)
	assert.Equal(t, int64(3), snap.TotalHandlerExecs)
}

func TestInMemoryEventBus_HandlerFailuresAreIsolated(t *testing.T) {
	bus := syncBus()
	reached := false

	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return errors.New("nope") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		reached = true
		return nil
	}))

	assert.NoError(t, bus.Publish(shared.NewAlumniApprovedEvent("a1", "root")))
	assert.True(t, reached)
	assert.Equal(t, int64(2), bus.Metrics().Snapshot().HandlerFailures)
}

func TestInMemoryEventBus_InlineHandlersFinishBeforePublishReturns(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 1})
	defer bus.Close()

	var inlineDone atomic.Bool
	release := make(chan struct{})
	require.NoError(t, bus.Subscribe(shared.EventFeedbackSubmitted, func(shared.Event) error {
		<-release
		return nil
	}))
	require.NoError(t, bus.SubscribeInline(shared.EventFeedbackSubmitted, func(shared.Event) error {
		time.Sleep(20 * time.Millisecond)
		inlineDone.Store(true)
		return nil
	}))
	require.NoError(t, bus.SubscribeInline(shared.EventFeedbackSubmitted, func(shared.Event) error {
		panic("boom")
	}))

	require.NoError(t, bus.Publish(shared.NewFeedbackSubmittedEvent("s1", "a1", 5)))
	assert.True(t, inlineDone.Load(), "inline handler ran before Publish returned")
	close(release)
}

func TestInMemoryEventBus_AsyncCloseDrains(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 2})
	var handled atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		time.Sleep(5 * time.Millisecond)
		handled.Add(1)
		return nil
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(shared.NewAlumniApprovedEvent("a1", "root")))
	}
	require.NoError(t, bus.Close())

	assert.Equal(t, int32(5), handled.Load())
	assert.ErrorIs(t, bus.Publish(shared.NewAlumniApprovedEvent("a1", "root")), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)
}

func TestRedisEventBus_FansOutAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	newBus := func(id string) *RedisEventBus {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		bus, err := NewRedisEventBus(RedisEventBusConfig{
			Client:         NewGoRedisClient(client),
			InstanceID:     id,
			LocalBusConfig: InMemoryEventBusConfig{AsyncMode: false},
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = bus.Close() })
		return bus
	}
	api, worker := newBus("api"), newBus("worker")

	var mu sync.Mutex
	seen := map[string][]string{}
	record := func(name string) shared.EventHandler {
		return func(e shared.Event) error {
			mu.Lock()
			defer mu.Unlock()
			seen[name] = append(seen[name], e.AggregateID())
			return nil
		}
	}
	require.NoError(t, api.Subscribe(shared.EventFeedbackSubmitted, record("api")))
	require.NoError(t, worker.Subscribe(shared.EventFeedbackSubmitted, record("worker")))

	require.NoError(t, api.Publish(shared.NewFeedbackSubmittedEvent("s1", "a1", 5)))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen["worker"]) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Give a self-echo time to arrive; it must be ignored.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a1"}, seen["api"])
	assert.Equal(t, []string{"a1"}, seen["worker"])
}

func TestRedisEventBus_RequiresClient(t *testing.T) {
	_, err := NewRedisEventBus(RedisEventBusConfig{})
	assert.Error(t, err)
}
