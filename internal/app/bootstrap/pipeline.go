package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"time"

	ledgerworkers "rewardledger/contexts/player-economy/ledger-service/application/workers"
	voteworkers "rewardledger/contexts/player-economy/vote-service/application/workers"
	"rewardledger/internal/platform/messaging"
)

// eventPipeline bridges the two contexts: vote.confirmed rows leave the vote
// outbox through the bus and are credited by the ledger's reward consumer.
type eventPipeline struct {
	bus          *messaging.Bus
	voteRelay    voteworkers.OutboxRelay
	ledgerRelay  ledgerworkers.OutboxRelay
	rewards      ledgerworkers.VoteRewardConsumer
	pollInterval time.Duration
	logger       *slog.Logger
}

func newEventPipeline(built *modules, brokers []string, batchSize int, pollInterval time.Duration, logger *slog.Logger) *eventPipeline {
	bus := messaging.NewBus(brokers, logger)
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &eventPipeline{
		bus:          bus,
		voteRelay:    built.vote.OutboxRelay(bus, batchSize),
		ledgerRelay:  built.ledger.OutboxRelay(bus, batchSize),
		rewards:      built.ledger.VoteRewardConsumer(bus),
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// RunOnce drains both outboxes. The relays stop at their first failed row,
// so an error here leaves the rest pending for the next tick.
func (p *eventPipeline) RunOnce(ctx context.Context) error {
	return errors.Join(
		p.voteRelay.RunOnce(ctx),
		p.ledgerRelay.RunOnce(ctx),
	)
}

func (p *eventPipeline) Run(ctx context.Context) error {
	if err := p.rewards.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	p.logger.Info("event pipeline started",
		"event", "bootstrap_pipeline_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", p.pollInterval.String(),
	)

	for {
		if err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("event pipeline tick failed",
				"event", "bootstrap_pipeline_tick_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
