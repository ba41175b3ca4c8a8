package messaging

import (
	"context"

	"github.com/vitalapp/clinic-api/pkg/circuitbreaker"
)

// GuardedBroker sends publishes through a circuit breaker so an unreachable
// broker fails fast instead of stalling callers.
type GuardedBroker struct {
	broker Broker
	cb     *circuitbreaker.CircuitBreaker
}

func NewGuardedBroker(broker Broker, cb *circuitbreaker.CircuitBreaker) *GuardedBroker {
	return &GuardedBroker{broker: broker, cb: cb}
}

func (g *GuardedBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	return g.cb.Execute(ctx, func(ctx context.Context) error {
		return g.broker.Publish(ctx, channel, message)
	})
}

func (g *GuardedBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return g.broker.Subscribe(ctx, channel)
}

// PingContext bypasses the breaker so readiness reports the broker itself.
// Brokers without a health probe are always reported healthy.
func (g *GuardedBroker) PingContext(ctx context.Context) error {
	if p, ok := g.broker.(Pinger); ok {
		return p.PingContext(ctx)
	}
	return nil
}

func (g *GuardedBroker) Close() error {
	return g.broker.Close()
}
