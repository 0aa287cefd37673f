package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "rewardledger/contexts/player-economy/ledger-service/application"
	"rewardledger/contexts/player-economy/ledger-service/domain/entities"
	domainerrors "rewardledger/contexts/player-economy/ledger-service/domain/errors"
	"rewardledger/contexts/player-economy/ledger-service/ports"
	contractsv1 "rewardledger/contracts/events/v1"
)

type UseItemCommand struct {
	UserID string
	ItemID string
}

// UseItemUseCase claims a chest item. The ledger.item.used event tells the
// game-server side to deliver the product in game.
type UseItemUseCase struct {
	Ledger        ports.LedgerRepository
	Clock         ports.Clock
	IDGenerator   ports.IDGenerator
	CommitTimeout time.Duration
	Logger        *slog.Logger
}

func (u UseItemUseCase) Execute(ctx context.Context, cmd UseItemCommand) (entities.RewardItem, error) {
	logger := application.ResolveLogger(u.Logger)
	userID := strings.TrimSpace(cmd.UserID)
	itemID := strings.TrimSpace(cmd.ItemID)
	if userID == "" || itemID == "" {
		return entities.RewardItem{}, domainerrors.ErrInvalidRequest
	}
	now := nowFrom(u.Clock)

	item, err := u.Ledger.GetItem(ctx, itemID)
	if err != nil {
		return entities.RewardItem{}, err
	}
	if item.OwnerID != userID || item.State != entities.ItemStateUnused {
		logger.Warn("chest item use rejected",
			"event", "ledger_item_use_rejected",
			"module", moduleName,
			"layer", "application",
			"item_id", itemID,
			"user_id", userID,
			"state", string(item.State),
		)
		return entities.RewardItem{}, domainerrors.ErrInvalidState
	}

	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return entities.RewardItem{}, err
	}
	event := ports.LedgerEvent{
		EventID:      eventID,
		EventType:    contractsv1.EventTypeItemUsed,
		PartitionKey: userID,
		OccurredAt:   now,
		Data: map[string]any{
			"item_id":    itemID,
			"user_id":    userID,
			"product_id": item.ProductID,
			"used_at":    now.Format(time.RFC3339),
		},
	}

	var used entities.RewardItem
	err = commitDetached(ctx, u.CommitTimeout, func(commitCtx context.Context) error {
		var commitErr error
		used, commitErr = u.Ledger.CommitItemUse(commitCtx, itemID, userID, now, event)
		return commitErr
	})
	if err != nil {
		if isRejection(err) {
			return entities.RewardItem{}, err
		}
		logger.Error("chest item use commit failed",
			"event", "ledger_item_use_commit_failed",
			"module", moduleName,
			"layer", "application",
			"alert", true,
			"item_id", itemID,
			"error", err.Error(),
		)
		return entities.RewardItem{}, commitFailure(err)
	}

	logger.Info("chest item used",
		"event", "ledger_item_used",
		"module", moduleName,
		"layer", "application",
		"item_id", itemID,
		"user_id", userID,
		"product_id", used.ProductID,
	)
	return used, nil
}
