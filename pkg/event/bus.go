package event

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/vitalapp/clinic-api/pkg/logger"
	"github.com/vitalapp/clinic-api/pkg/metrics"
)

// DefaultQueueSize is the per-listener buffer when none is configured.
const DefaultQueueSize = 256

var ErrBusClosed = errors.New("event bus closed")

// Config holds bus configuration
type Config struct {
	QueueSize int
}

type delivery struct {
	ctx   context.Context
	event Event
}

type subscription struct {
	name      string
	eventType EventType
	handler   Handler
	queue     chan delivery
}

// Bus is an asynchronous in-process event bus. Every subscription gets its
// own queue and goroutine, so a slow or failing listener never delays the
// publisher or its siblings.
type Bus struct {
	mu      sync.RWMutex
	subs    map[EventType][]*subscription
	closed  bool
	wg      sync.WaitGroup
	cfg     Config
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewBus(cfg Config, log *logger.Logger, m *metrics.Metrics) *Bus {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Bus{
		subs:    make(map[EventType][]*subscription),
		cfg:     cfg,
		log:     log,
		metrics: m,
	}
}

// Subscribe registers a named listener for one event type and starts its
// worker goroutine.
func (b *Bus) Subscribe(t EventType, name string, h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	s := &subscription{
		name:      name,
		eventType: t,
		handler:   h,
		queue:     make(chan delivery, b.cfg.QueueSize),
	}
	b.subs[t] = append(b.subs[t], s)

	b.wg.Add(1)
	go b.run(s)

	b.log.Debug("listener subscribed", "listener", name, "event_type", string(t))
	return nil
}

// Publish enqueues e for every listener of its type and returns immediately.
// A listener whose queue is full misses the event.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	t := e.EventType()
	if b.closed {
		b.log.Warn("event published after bus closed", "event_type", string(t))
		return
	}

	b.metrics.EventsPublished.WithLabelValues(string(t)).Inc()

	d := delivery{ctx: context.WithoutCancel(ctx), event: e}
	for _, s := range b.subs[t] {
		select {
		case s.queue <- d:
		default:
			b.metrics.EventsDropped.WithLabelValues(string(t), s.name).Inc()
			b.log.Error(fmt.Errorf("queue full"), "event dropped",
				"event_type", string(t), "listener", s.name, "queue_size", b.cfg.QueueSize)
		}
	}
}

// Close stops accepting events and waits for queued events to be handled or
// for ctx to expire.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, s := range subs {
			close(s.queue)
		}
	}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus drain: %w", ctx.Err())
	}
}

func (b *Bus) run(s *subscription) {
	defer b.wg.Done()
	for d := range s.queue {
		b.dispatch(s, d)
	}
}

func (b *Bus) dispatch(s *subscription, d delivery) {
	start := time.Now()
	err := b.invoke(s, d)
	b.metrics.ListenerLatency.WithLabelValues(s.name).Observe(time.Since(start).Seconds())

	if err == nil {
		return
	}

	b.metrics.ListenerFailures.WithLabelValues(string(s.eventType), s.name).Inc()
	b.log.Error(err, "listener failed", "listener", s.name, "event_type", string(s.eventType))
}

func (b *Bus) invoke(s *subscription, d delivery) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Debug("listener panic stack", "listener", s.name, "stack", string(debug.Stack()))
			err = &ListenerError{Listener: s.name, EventType: s.eventType, Panic: true, Err: fmt.Errorf("%v", r)}
		}
	}()

	if herr := s.handler(d.ctx, d.event); herr != nil {
		return &ListenerError{Listener: s.name, EventType: s.eventType, Err: herr}
	}
	return nil
}
