package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	contractsv1 "rewardledger/contracts/events/v1"
)

type Handler func(context.Context, contractsv1.Envelope) error

type subscription struct {
	id            uint64
	consumerGroup string
	handler       Handler
}

// Bus is the in-process event bus between outbox relays and consumers.
// Publish delivers synchronously to every consumer group of the topic and
// returns their errors, so a relay keeps the outbox row pending until every
// consumer has accepted it. Consumers must be idempotent.
type Bus struct {
	mu          sync.RWMutex
	nextID      uint64
	subscribers map[string][]subscription
	brokers     []string
	logger      *slog.Logger
}

// NewBus keeps the broker list for when an external broker replaces the
// in-process dispatch.
func NewBus(brokers []string, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subscribers: make(map[string][]subscription),
		brokers:     append([]string(nil), brokers...),
		logger:      logger,
	}
}

func (b *Bus) Publish(ctx context.Context, topic string, event contractsv1.Envelope) error {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subscribers[topic]...)
	b.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sub.handler(ctx, event); err != nil {
			b.logger.Error("consumer handler failed",
				"event", "bus_consume_failed",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"consumer_group", sub.consumerGroup,
				"event_id", event.EventID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
			errs = append(errs, fmt.Errorf("%s: %w", sub.consumerGroup, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	b.logger.Info("event published",
		"event", "bus_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"subscriber_count", len(subs),
	)
	return nil
}

// Subscribe registers handler for topic until ctx is done. A consumer group
// registered twice on the same topic replaces its earlier handler.
func (b *Bus) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, contractsv1.Envelope) error,
) error {
	if handler == nil {
		return errors.New("subscribe: nil handler")
	}

	b.mu.Lock()
	b.nextID++
	sub := subscription{id: b.nextID, consumerGroup: consumerGroup, handler: handler}
	items := b.subscribers[topic][:0:0]
	for _, existing := range b.subscribers[topic] {
		if existing.consumerGroup != consumerGroup {
			items = append(items, existing)
		}
	}
	b.subscribers[topic] = append(items, sub)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.removeSubscriber(topic, sub.id)
	}()
	return nil
}

func (b *Bus) removeSubscriber(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.subscribers[topic]
	filtered := make([]subscription, 0, len(items))
	for _, item := range items {
		if item.id != id {
			filtered = append(filtered, item)
		}
	}
	b.subscribers[topic] = filtered
}
