package event_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hamzaawan7/blackcms/internal/event"
	"github.com/hamzaawan7/blackcms/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink captures delivered event names in order.
type recordingSink struct {
	name string
	mu   sync.Mutex
	seen []string
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(_ context.Context, evt event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, evt.Name)
	return nil
}

func (s *recordingSink) events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seen...)
}

// failingSink fails every delivery, optionally after a delay.
type failingSink struct {
	name     string
	delay    time.Duration
	mu       sync.Mutex
	attempts int
}

func (s *failingSink) Name() string { return s.name }

func (s *failingSink) Deliver(ctx context.Context, _ event.Event) error {
	s.mu.Lock()
	s.attempts++
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return errors.New("boom")
}

func (s *failingSink) attemptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func testEvent(name string) event.Event {
	tid := uuid.New()
	return event.Event{
		Name:       name,
		EntityID:   uuid.New(),
		EntityType: "page",
		TenantID:   &tid,
		OccurredAt: time.Now().UTC(),
	}
}

func TestBus_DeliversInPublishOrder(t *testing.T) {
	bus := event.NewBus(time.Second, nil)
	sink := &recordingSink{name: "rec"}
	bus.Register(sink)

	bus.Publish(testEvent("page.updated"))
	bus.Publish(testEvent("page.published"))
	bus.Publish(testEvent("page.deleted"))
	bus.Close()

	assert.Equal(t, []string{"page.updated", "page.published", "page.deleted"}, sink.events())
}

func TestBus_FailingSinkDoesNotBlockOthers(t *testing.T) {
	bus := event.NewBus(time.Second, nil)
	healthy := &recordingSink{name: "healthy"}
	broken := &failingSink{name: "broken"}
	bus.Register(healthy)
	bus.Register(broken)

	bus.Publish(testEvent("page.created"))
	bus.Close()

	assert.Equal(t, []string{"page.created"}, healthy.events())
	// The broken sink was retried to exhaustion without affecting the other.
	assert.Equal(t, 3, broken.attemptCount())
}

func TestBus_PanickingSinkIsContained(t *testing.T) {
	bus := event.NewBus(time.Second, nil)
	healthy := &recordingSink{name: "healthy"}
	bus.Register(healthy)
	bus.Register(sinkFunc{"panicky", func(context.Context, event.Event) error { panic("kaboom") }})

	bus.Publish(testEvent("page.created"))
	bus.Publish(testEvent("page.updated"))
	bus.Close()

	assert.Equal(t, []string{"page.created", "page.updated"}, healthy.events())
}

type sinkFunc struct {
	name string
	fn   func(context.Context, event.Event) error
}

func (s sinkFunc) Name() string                                    { return s.name }
func (s sinkFunc) Deliver(ctx context.Context, evt event.Event) error { return s.fn(ctx, evt) }

func TestBus_SlowSinkHitsTimeout(t *testing.T) {
	bus := event.NewBus(20*time.Millisecond, nil)
	slow := &failingSink{name: "slow", delay: time.Second}
	bus.Register(slow)

	start := time.Now()
	bus.Publish(testEvent("page.created"))
	bus.Close()

	// Three bounded attempts plus backoff, nowhere near 3 x 1s.
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 3, slow.attemptCount())
}

func TestBus_RetrySucceedsEventually(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	flaky := sinkFunc{"flaky", func(context.Context, event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}}

	bus := event.NewBus(time.Second, nil)
	bus.Register(flaky)
	bus.Publish(testEvent("page.created"))
	bus.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}

func TestBus_PublishAfterCloseDropsEvent(t *testing.T) {
	bus := event.NewBus(time.Second, nil)
	sink := &recordingSink{name: "rec"}
	bus.Register(sink)
	bus.Close()

	// Must not panic or block.
	bus.Publish(testEvent("page.created"))
	assert.Empty(t, sink.events())
}

func TestForEntity(t *testing.T) {
	tid := uuid.New()
	slug := "home"
	e := &models.Entity{
		ID:        uuid.New(),
		TenantID:  &tid,
		Type:      "Page",
		Slug:      &slug,
		UpdatedAt: time.Now().UTC(),
	}

	evt := event.ForEntity(event.ActionPublished, e)
	assert.Equal(t, "page.published", evt.Name)
	assert.Equal(t, e.ID, evt.EntityID)
	require.NotNil(t, evt.TenantID)
	assert.Equal(t, tid, *evt.TenantID)
	require.NotNil(t, evt.Slug)
	assert.Equal(t, "home", *evt.Slug)
	assert.Equal(t, e.UpdatedAt, evt.OccurredAt)
}

func TestCacheInvalidate(t *testing.T) {
	tid := uuid.New()
	evt := event.CacheInvalidate(&tid, "page", uuid.Nil)
	assert.Equal(t, event.CacheInvalidateName, evt.Name)
	assert.Equal(t, "page", evt.EntityType)
	require.NotNil(t, evt.TenantID)
	assert.Equal(t, tid, *evt.TenantID)
}
