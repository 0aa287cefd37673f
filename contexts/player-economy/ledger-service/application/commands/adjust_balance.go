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
)

type AdjustBalanceCommand struct {
	AdminID string
	UserID  string
	Delta   int64
	Reason  string
}

// AdjustBalanceUseCase is the operator path for top-ups and corrections.
// Storefront purchases settle through the same single-row adjustment.
type AdjustBalanceUseCase struct {
	Ledger        ports.LedgerRepository
	Clock         ports.Clock
	CommitTimeout time.Duration
	Logger        *slog.Logger
}

func (u AdjustBalanceUseCase) Execute(ctx context.Context, cmd AdjustBalanceCommand) (entities.Account, error) {
	logger := application.ResolveLogger(u.Logger)
	adminID := strings.TrimSpace(cmd.AdminID)
	userID := strings.TrimSpace(cmd.UserID)
	if adminID == "" || userID == "" || strings.TrimSpace(cmd.Reason) == "" {
		return entities.Account{}, domainerrors.ErrInvalidRequest
	}
	if cmd.Delta == 0 {
		return entities.Account{}, domainerrors.ErrInvalidAmount
	}
	now := nowFrom(u.Clock)

	var account entities.Account
	err := commitDetached(ctx, u.CommitTimeout, func(commitCtx context.Context) error {
		var commitErr error
		account, commitErr = u.Ledger.AdjustBalance(commitCtx, userID, cmd.Delta, now)
		return commitErr
	})
	if err != nil {
		if isRejection(err) {
			logger.Warn("balance adjustment rejected",
				"event", "ledger_balance_adjustment_rejected",
				"module", moduleName,
				"layer", "application",
				"admin_id", adminID,
				"user_id", userID,
				"delta", cmd.Delta,
				"reason_code", domainerrors.Code(err),
			)
			return entities.Account{}, err
		}
		logger.Error("balance adjustment commit failed",
			"event", "ledger_balance_adjustment_commit_failed",
			"module", moduleName,
			"layer", "application",
			"alert", true,
			"user_id", userID,
			"error", err.Error(),
		)
		return entities.Account{}, commitFailure(err)
	}

	logger.Info("balance adjusted",
		"event", "ledger_balance_adjusted",
		"module", moduleName,
		"layer", "application",
		"admin_id", adminID,
		"user_id", userID,
		"delta", cmd.Delta,
		"reason", strings.TrimSpace(cmd.Reason),
		"balance", account.Balance,
	)
	return account, nil
}
