package event

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hamzaawan7/blackcms/internal/metrics"
)

const (
	defaultSinkTimeout  = 5 * time.Second
	defaultMaxAttempts  = 3
	defaultQueueBacklog = 1024
)

// Sink is an external consumer of lifecycle events: a webhook fan-out, a
// cache invalidation signal. The bus treats sinks as opaque.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, evt Event) error
}

// Bus dispatches lifecycle events to registered sinks. Publish is
// fire-and-forget: delivery runs on a background dispatcher after the
// triggering request may already have returned. Events are dispatched in
// publish order; within one event, sinks run in parallel and one sink's
// failure never blocks the others.
type Bus struct {
	mu    sync.RWMutex
	sinks []Sink

	queue       chan Event
	sinkTimeout time.Duration
	maxAttempts int
	metrics     *metrics.Metrics

	stop chan struct{}
	done chan struct{}
}

// NewBus starts a bus with the given per-sink timeout. A zero timeout uses
// the default. Close must be called to drain in-flight deliveries.
func NewBus(sinkTimeout time.Duration, m *metrics.Metrics) *Bus {
	if sinkTimeout <= 0 {
		sinkTimeout = defaultSinkTimeout
	}
	b := &Bus{
		queue:       make(chan Event, defaultQueueBacklog),
		sinkTimeout: sinkTimeout,
		maxAttempts: defaultMaxAttempts,
		metrics:     m,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go b.run()
	return b
}

// Register adds a sink. Safe to call concurrently with Publish.
func (b *Bus) Register(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Publish enqueues the event for delivery and returns immediately. The
// caller's request must never fail because a consumer is unhealthy. Events
// published after Close are dropped with a warning.
func (b *Bus) Publish(evt Event) {
	select {
	case <-b.stop:
		slog.Warn("event dropped, bus closed", "event", evt.Name, "entity_id", evt.EntityID)
		return
	default:
	}
	b.metrics.IncEventPublished(evt.Name)
	select {
	case b.queue <- evt:
	case <-b.stop:
		slog.Warn("event dropped, bus closed", "event", evt.Name, "entity_id", evt.EntityID)
	}
}

// Close stops accepting events, drains the queue, and waits for in-flight
// deliveries to finish.
func (b *Bus) Close() {
	close(b.stop)
	<-b.done
}

func (b *Bus) run() {
	defer close(b.done)
	for {
		select {
		case evt := <-b.queue:
			b.dispatch(evt)
		case <-b.stop:
			for {
				select {
				case evt := <-b.queue:
					b.dispatch(evt)
				default:
					return
				}
			}
		}
	}
}

// dispatch delivers one event to every sink in parallel and waits for all of
// them before the next event, preserving per-sink event ordering.
func (b *Bus) dispatch(evt Event) {
	b.mu.RLock()
	sinks := make([]Sink, len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.RUnlock()

	var wg sync.WaitGroup
	for _, s := range sinks {
		wg.Add(1)
		go func(s Sink) {
			defer wg.Done()
			b.deliver(s, evt)
		}(s)
	}
	wg.Wait()
}

func (b *Bus) deliver(s Sink, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("sink panicked", "sink", s.Name(), "event", evt.Name, "panic", r)
			b.metrics.IncSinkFailure(s.Name())
		}
	}()

	var err error
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), b.sinkTimeout)
		err = s.Deliver(ctx, evt)
		cancel()
		if err == nil {
			b.metrics.IncSinkDelivery(s.Name())
			return
		}
		if attempt < b.maxAttempts {
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
	}

	slog.Error("sink delivery failed",
		"sink", s.Name(),
		"event", evt.Name,
		"entity_type", evt.EntityType,
		"entity_id", evt.EntityID,
		"error", err,
	)
	b.metrics.IncSinkFailure(s.Name())
}
