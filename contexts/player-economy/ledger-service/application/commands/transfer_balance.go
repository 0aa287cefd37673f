package commands

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	application "rewardledger/contexts/player-economy/ledger-service/application"
	"rewardledger/contexts/player-economy/ledger-service/domain/entities"
	domainerrors "rewardledger/contexts/player-economy/ledger-service/domain/errors"
	"rewardledger/contexts/player-economy/ledger-service/domain/services"
	"rewardledger/contexts/player-economy/ledger-service/ports"
	contractsv1 "rewardledger/contracts/events/v1"
)

type TransferBalanceCommand struct {
	FromUserID     string
	ToUserID       string
	Amount         int64
	RequestID      string
	IdempotencyKey string
}

// TransferResult carries the audit record of the attempt. On rejection the
// record is returned alongside the error.
type TransferResult struct {
	Record   entities.TransferRecord
	Replayed bool
}

type TransferBalanceUseCase struct {
	Accounts       ports.AccountDirectory
	Ledger         ports.LedgerRepository
	Idempotency    ports.IdempotencyStore
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	CommitTimeout  time.Duration
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// Execute runs the balance transfer in this order:
// 1) idempotency replay
// 2) preconditions: self, amount, sender funds, recipient existence
// 3) atomic debit + credit + audit + outbox + idempotency key.
// A concurrent identical request that commits first turns this one into a
// replay at step 3.
func (u TransferBalanceUseCase) Execute(ctx context.Context, cmd TransferBalanceCommand) (TransferResult, error) {
	logger := application.ResolveLogger(u.Logger)
	now := nowFrom(u.Clock)
	from := strings.TrimSpace(cmd.FromUserID)
	to := strings.TrimSpace(cmd.ToUserID)

	key := resolveIdempotencyKey(cmd.IdempotencyKey, from, cmd.RequestID)
	requestHash := hashRequest(
		string(entities.TransferKindBalance),
		from,
		to,
		strconv.FormatInt(cmd.Amount, 10),
		strings.TrimSpace(cmd.RequestID),
	)

	logger.Info("balance transfer started",
		"event", "ledger_balance_transfer_started",
		"module", moduleName,
		"layer", "application",
		"from_user_id", from,
		"to_user_id", to,
		"amount", cmd.Amount,
	)

	transferID, found, err := lookupReplay(ctx, u.Idempotency, key, requestHash, now)
	if err != nil {
		if errors.Is(err, domainerrors.ErrIdempotencyConflict) {
			logger.Warn("balance transfer idempotency conflict",
				"event", "ledger_balance_transfer_idempotency_conflict",
				"module", moduleName,
				"layer", "application",
				"from_user_id", from,
			)
		}
		return TransferResult{}, err
	}
	if found {
		record, err := u.Ledger.GetTransfer(ctx, transferID)
		if err != nil {
			return TransferResult{}, err
		}
		logger.Info("balance transfer replayed",
			"event", "ledger_balance_transfer_replayed",
			"module", moduleName,
			"layer", "application",
			"transfer_id", record.TransferID,
		)
		return TransferResult{Record: record, Replayed: true}, nil
	}

	record := entities.TransferRecord{
		Kind:       entities.TransferKindBalance,
		FromUserID: from,
		ToUserID:   to,
		Amount:     cmd.Amount,
		RequestID:  strings.TrimSpace(cmd.RequestID),
		CreatedAt:  now,
	}
	record.TransferID, err = u.IDGenerator.NewID(ctx)
	if err != nil {
		return TransferResult{}, err
	}

	if err := u.checkPreconditions(ctx, from, to, cmd.Amount); err != nil {
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
		return u.Ledger.CommitBalanceTransfer(commitCtx, record, event, claim)
	})
	if err != nil {
		if result, replayed, replayErr := committedReplay(ctx, u.Ledger, err); replayed {
			if replayErr != nil {
				return TransferResult{}, replayErr
			}
			logger.Info("balance transfer replayed",
				"event", "ledger_balance_transfer_replayed",
				"module", moduleName,
				"layer", "application",
				"transfer_id", result.Record.TransferID,
			)
			return result, nil
		}
		// Funds may have moved between the read and the locked re-check.
		if isRejection(err) {
			return rejectTransfer(ctx, u.Ledger, u.CommitTimeout, logger, record, err)
		}
		if errors.Is(err, domainerrors.ErrIdempotencyConflict) {
			return TransferResult{}, err
		}
		logger.Error("balance transfer commit failed",
			"event", "ledger_balance_transfer_commit_failed",
			"module", moduleName,
			"layer", "application",
			"alert", true,
			"transfer_id", record.TransferID,
			"from_user_id", from,
			"to_user_id", to,
			"error", err.Error(),
		)
		return TransferResult{}, commitFailure(err)
	}

	logger.Info("balance transfer completed",
		"event", "ledger_balance_transfer_completed",
		"module", moduleName,
		"layer", "application",
		"transfer_id", record.TransferID,
		"from_user_id", from,
		"to_user_id", to,
		"amount", record.Amount,
	)
	return TransferResult{Record: record}, nil
}

func (u TransferBalanceUseCase) checkPreconditions(ctx context.Context, from string, to string, amount int64) error {
	if err := services.CheckParties(from, to); err != nil {
		return err
	}
	if err := services.CheckAmount(amount); err != nil {
		return err
	}
	balance, err := u.Ledger.GetBalance(ctx, from)
	if err != nil {
		return err
	}
	if err := services.CheckFunds(balance, amount); err != nil {
		return err
	}
	if _, err := u.Accounts.GetAccount(ctx, to); err != nil {
		return err
	}
	return nil
}

// rejectTransfer appends the rejected audit row and surfaces the cause. A
// failed audit write is logged; the caller still sees the original cause.
func rejectTransfer(
	ctx context.Context,
	ledger ports.LedgerRepository,
	timeout time.Duration,
	logger *slog.Logger,
	record entities.TransferRecord,
	cause error,
) (TransferResult, error) {
	record.Status = entities.TransferStatusRejected
	record.RejectCode = domainerrors.Code(cause)

	err := commitDetached(ctx, timeout, func(commitCtx context.Context) error {
		return ledger.AppendRejectedTransfer(commitCtx, record)
	})
	if err != nil {
		logger.Error("rejected transfer audit write failed",
			"event", "ledger_transfer_reject_audit_failed",
			"module", moduleName,
			"layer", "application",
			"transfer_id", record.TransferID,
			"error", err.Error(),
		)
	}

	logger.Warn("transfer rejected",
		"event", "ledger_transfer_rejected",
		"module", moduleName,
		"layer", "application",
		"transfer_id", record.TransferID,
		"kind", record.Kind,
		"from_user_id", record.FromUserID,
		"to_user_id", record.ToUserID,
		"reject_code", record.RejectCode,
	)
	return TransferResult{Record: record}, cause
}

func transferCompletedEvent(eventID string, record entities.TransferRecord) ports.LedgerEvent {
	return ports.LedgerEvent{
		EventID:      eventID,
		EventType:    contractsv1.EventTypeTransferCompleted,
		PartitionKey: record.FromUserID,
		OccurredAt:   record.CreatedAt,
		Data: map[string]any{
			"transfer_id":  record.TransferID,
			"kind":         string(record.Kind),
			"from_user_id": record.FromUserID,
			"to_user_id":   record.ToUserID,
			"amount":       record.Amount,
			"item_id":      record.ItemID,
		},
	}
}

func nowFrom(clock ports.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}

func idempotencyTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return defaultIdemTTL
	}
	return ttl
}
