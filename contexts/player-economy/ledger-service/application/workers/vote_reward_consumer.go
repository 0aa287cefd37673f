package workers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	application "rewardledger/contexts/player-economy/ledger-service/application"
	"rewardledger/contexts/player-economy/ledger-service/domain/entities"
	domainerrors "rewardledger/contexts/player-economy/ledger-service/domain/errors"
	"rewardledger/contexts/player-economy/ledger-service/ports"
	contractsv1 "rewardledger/contracts/events/v1"
)

const defaultVoteRewardCG = "ledger-service-vote-reward-cg"

// VoteRewardConsumer credits confirmed votes. Redelivered events are absorbed
// by ApplyVoteReward, which is keyed by the vote id. Events that can never be
// applied are dead-lettered: logged with alert=true and acknowledged, so they
// do not hold back the rest of the outbox.
type VoteRewardConsumer struct {
	Subscriber    ports.EventSubscriber
	Ledger        ports.LedgerRepository
	Clock         ports.Clock
	IDGenerator   ports.IDGenerator
	ConsumerGroup string
	Logger        *slog.Logger
}

func (c VoteRewardConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultVoteRewardCG
	}
	if err := c.Subscriber.Subscribe(ctx, contractsv1.EventTypeVoteConfirmed, group, c.Handle); err != nil {
		logger.Error("vote reward consumer subscribe failed",
			"event", "ledger_vote_reward_subscribe_failed",
			"module", moduleName,
			"layer", "worker",
			"topic", contractsv1.EventTypeVoteConfirmed,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("vote reward consumer subscribed",
		"event", "ledger_vote_reward_consumer_started",
		"module", moduleName,
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

// Handle applies one vote.confirmed envelope. Only transient failures are
// returned, which leaves the event pending for the next relay tick.
func (c VoteRewardConsumer) Handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)

	var payload contractsv1.VoteConfirmedData
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return deadLetter(logger, event, "", err)
	}
	voteID := strings.TrimSpace(payload.VoteID)
	userID := strings.TrimSpace(payload.UserID)
	productID := strings.TrimSpace(payload.RewardProductID)
	if voteID == "" || userID == "" || payload.RewardAmount < 0 {
		return deadLetter(logger, event, voteID, domainerrors.ErrInvalidRequest)
	}
	if payload.RewardAmount == 0 && productID == "" {
		logger.Debug("vote carried no reward",
			"event", "ledger_vote_reward_empty",
			"module", moduleName,
			"layer", "worker",
			"vote_id", voteID,
		)
		return nil
	}

	reward := entities.VoteReward{
		GrantID:   voteID,
		UserID:    userID,
		Amount:    payload.RewardAmount,
		ProductID: productID,
		GrantedAt: event.OccurredAt.UTC(),
	}
	if c.Clock != nil {
		reward.GrantedAt = c.Clock.Now().UTC()
	}
	if productID != "" {
		itemID, err := c.IDGenerator.NewID(ctx)
		if err != nil {
			return err
		}
		reward.ItemID = itemID
	}

	applied, err := c.Ledger.ApplyVoteReward(ctx, reward)
	if err != nil {
		if isPermanent(err) {
			return deadLetter(logger, event, voteID, err)
		}
		logger.Error("vote reward apply failed",
			"event", "ledger_vote_reward_apply_failed",
			"module", moduleName,
			"layer", "worker",
			"alert", true,
			"vote_id", voteID,
			"user_id", userID,
			"error", err.Error(),
		)
		return err
	}
	if !applied {
		logger.Debug("vote reward replay skipped",
			"event", "ledger_vote_reward_replayed",
			"module", moduleName,
			"layer", "worker",
			"vote_id", voteID,
		)
		return nil
	}
	logger.Info("vote reward applied",
		"event", "ledger_vote_reward_applied",
		"module", moduleName,
		"layer", "worker",
		"vote_id", voteID,
		"user_id", userID,
		"amount", reward.Amount,
		"product_id", productID,
	)
	return nil
}

// isPermanent reports errors that no redelivery can fix.
func isPermanent(err error) bool {
	return errors.Is(err, domainerrors.ErrNotFound) ||
		errors.Is(err, domainerrors.ErrInvalidRequest) ||
		errors.Is(err, domainerrors.ErrInvalidAmount)
}

func deadLetter(logger *slog.Logger, event ports.EventEnvelope, voteID string, cause error) error {
	logger.Error("vote reward dead-lettered",
		"event", "ledger_vote_reward_dead_lettered",
		"module", moduleName,
		"layer", "worker",
		"alert", true,
		"event_id", event.EventID,
		"vote_id", voteID,
		"reason", domainerrors.Code(cause),
		"error", cause.Error(),
	)
	return nil
}
