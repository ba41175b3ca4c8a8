// Package messaging publishes JSON messages on named channels. The redis
// broker backs multi-instance deployments; the memory broker serves a
// single process and tests.
package messaging

import (
	"context"
	"errors"
)

var ErrBrokerClosed = errors.New("broker closed")

// Broker defines the interface for message brokers
type Broker interface {
	// Publish JSON-encodes message and sends it on channel.
	Publish(ctx context.Context, channel string, message interface{}) error
	// Subscribe streams raw payloads until ctx is done; the channel is then closed.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Pinger is implemented by brokers that can report their health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NotificationChannel names the channel a recipient's notifications are
// mirrored to.
func NotificationChannel(prefix, recipientID string) string {
	if prefix == "" {
		prefix = "notifications"
	}
	return prefix + ":" + recipientID
}
