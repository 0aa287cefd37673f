package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "rewardledger/contexts/player-economy/ledger-service/application"
	"rewardledger/contexts/player-economy/ledger-service/domain/entities"
	domainerrors "rewardledger/contexts/player-economy/ledger-service/domain/errors"
	"rewardledger/contexts/player-economy/ledger-service/domain/services"
	"rewardledger/contexts/player-economy/ledger-service/ports"
)

type TransferItemCommand struct {
	FromUserID     string
	ToUserID       string
	ItemID         string
	RequestID      string
	IdempotencyKey string
}

type TransferItemUseCase struct {
	Accounts       ports.AccountDirectory
	Ledger         ports.LedgerRepository
	Idempotency    ports.IdempotencyStore
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	CommitTimeout  time.Duration
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

func (u TransferItemUseCase) Execute(ctx context.Context, cmd TransferItemCommand) (TransferResult, error) {
	logger := application.ResolveLogger(u.Logger)
	now := nowFrom(u.Clock)
	from := strings.TrimSpace(cmd.FromUserID)
	to := strings.TrimSpace(cmd.ToUserID)
	itemID := strings.TrimSpace(cmd.ItemID)

	key := resolveIdempotencyKey(cmd.IdempotencyKey, from, cmd.RequestID)
	requestHash := hashRequest(
		string(entities.TransferKindItem),
		from,
		to,
		itemID,
		strings.TrimSpace(cmd.RequestID),
	)

	logger.Info("item transfer started",
		"event", "ledger_item_transfer_started",
		"module", moduleName,
		"layer", "application",
		"from_user_id", from,
		"to_user_id", to,
		"item_id", itemID,
	)

	transferID, found, err := lookupReplay(ctx, u.Idempotency, key, requestHash, now)
	if err != nil {
		if errors.Is(err, domainerrors.ErrIdempotencyConflict) {
			logger.Warn("item transfer idempotency conflict",
				"event", "ledger_item_transfer_idempotency_conflict",
				"module", moduleName,
				"layer", "application",
				"from_user_id", from,
				"item_id", itemID,
			)
		}
		return TransferResult{}, err
	}
	if found {
		record, err := u.Ledger.GetTransfer(ctx, transferID)
		if err != nil {
			return TransferResult{}, err
		}
		return TransferResult{Record: record, Replayed: true}, nil
	}

	record := entities.TransferRecord{
		Kind:       entities.TransferKindItem,
		FromUserID: from,
		ToUserID:   to,
		ItemID:     itemID,
		RequestID:  strings.TrimSpace(cmd.RequestID),
		CreatedAt:  now,
	}
	record.TransferID, err = u.IDGenerator.NewID(ctx)
	if err != nil {
		return TransferResult{}, err
	}

	if err := u.checkPreconditions(ctx, from, to, itemID); err != nil {
		if !isRejection(err) {
			return TransferResult{}, err
		}
		return rejectTransfer(ctx, u.Ledger, u.CommitTimeout, logger, record, err)
	}

	record.Status = entities.TransferStatusCompleted
	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return TransferResult{}, err
	}
	event := transferCompletedEvent(eventID, record)
	claim := keyClaim(key, requestHash, record.TransferID, now.Add(idempotencyTTL(u.IdempotencyTTL)))

	err = commitDetached(ctx, u.CommitTimeout, func(commitCtx context.Context) error {
		return u.Ledger.CommitItemTransfer(commitCtx, record, event, claim)
	})
	if err != nil {
		if result, replayed, replayErr := committedReplay(ctx, u.Ledger, err); replayed {
			return result, replayErr
		}
		if isRejection(err) {
			return rejectTransfer(ctx, u.Ledger, u.CommitTimeout, logger, record, err)
		}
		if errors.Is(err, domainerrors.ErrIdempotencyConflict) {
			return TransferResult{}, err
		}
		logger.Error("item transfer commit failed",
			"event", "ledger_item_transfer_commit_failed",
			"module", moduleName,
			"layer", "application",
			"alert", true,
			"transfer_id", record.TransferID,
			"item_id", itemID,
			"error", err.Error(),
		)
		return TransferResult{}, commitFailure(err)
	}

	logger.Info("item transfer completed",
		"event", "ledger_item_transfer_completed",
		"module", moduleName,
		"layer", "application",
		"transfer_id", record.TransferID,
		"item_id", itemID,
		"to_user_id", to,
	)
	return TransferResult{Record: record}, nil
}

func (u TransferItemUseCase) checkPreconditions(ctx context.Context, from string, to string, itemID string) error {
	if err := services.CheckParties(from, to); err != nil {
		return err
	}
	if _, err := u.Accounts.GetAccount(ctx, from); err != nil {
		return err
	}
	if _, err := u.Accounts.GetAccount(ctx, to); err != nil {
		return err
	}
	if itemID == "" {
		return domainerrors.ErrItemNotFound
	}
	item, err := u.Ledger.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if item.OwnerID != from || item.State != entities.ItemStateUnused {
		return domainerrors.ErrInvalidState
	}
	return nil
}
