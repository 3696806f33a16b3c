// Package events carries cache invalidation notices from the worker service
// to API instances over a fanout exchange. Delivery is best-effort: a missed
// notice only means an entry lives until its TTL expires.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/learnloop/mentor-be/internal/cache"
	"github.com/learnloop/mentor-be/shared/rabbitmq"
)

// Invalidation asks subscribers to drop a user's cached entries. An empty
// Namespaces list means every namespace.
type Invalidation struct {
	UserID     string    `json:"user_id"`
	Namespaces []string  `json:"namespaces,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	EmittedAt  time.Time `json:"emitted_at"`
}

// Apply drops the entries an invalidation names and reports how many were
// removed.
func Apply(c *cache.TTLCache, inv Invalidation) int {
	namespaces := inv.Namespaces
	if len(namespaces) == 0 {
		namespaces = cache.AllNamespaces
	}

	removed := 0
	for _, ns := range namespaces {
		removed += c.InvalidatePrefix(cache.Key(ns, inv.UserID))
	}
	return removed
}

// Publisher emits invalidations to the fanout exchange
type Publisher struct {
	client *rabbitmq.Client
	logger *slog.Logger
}

// NewPublisher creates a publisher over an exchange-only client
func NewPublisher(client *rabbitmq.Client, logger *slog.Logger) *Publisher {
	return &Publisher{client: client, logger: logger}
}

// Publish broadcasts one invalidation
func (p *Publisher) Publish(ctx context.Context, inv Invalidation) error {
	if inv.EmittedAt.IsZero() {
		inv.EmittedAt = time.Now().UTC()
	}

	body, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation: %w", err)
	}

	if err := p.client.Publish(ctx, body, "application/json"); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}

	p.logger.Debug("invalidation published",
		slog.String("user_id", inv.UserID),
		slog.Any("namespaces", inv.Namespaces),
		slog.String("reason", inv.Reason),
	)

	return nil
}

// Subscriber applies broadcast invalidations to a local cache
type Subscriber struct {
	client *rabbitmq.Client
	cache  *cache.TTLCache
	logger *slog.Logger
}

// NewSubscriber creates a subscriber bound to one cache instance
func NewSubscriber(client *rabbitmq.Client, c *cache.TTLCache, logger *slog.Logger) *Subscriber {
	return &Subscriber{client: client, cache: c, logger: logger}
}

// Run consumes invalidations until the context ends or the delivery channel
// closes. Malformed messages are logged and skipped.
func (s *Subscriber) Run(ctx context.Context, consumerTag string) error {
	deliveries, err := s.client.SubscribeFanout(consumerTag)
	if err != nil {
		return fmt.Errorf("failed to subscribe to invalidations: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("invalidation channel closed")
			}

			var inv Invalidation
			if err := json.Unmarshal(d.Body, &inv); err != nil {
				s.logger.Warn("dropping malformed invalidation",
					slog.Any("error", err),
				)
				continue
			}

			removed := Apply(s.cache, inv)
			s.logger.Debug("invalidation applied",
				slog.String("user_id", inv.UserID),
				slog.Int("removed", removed),
			)
		}
	}
}
