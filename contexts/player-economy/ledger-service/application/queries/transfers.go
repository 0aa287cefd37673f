package queries

import (
	"context"
	"strings"

	"rewardledger/contexts/player-economy/ledger-service/domain/entities"
	"rewardledger/contexts/player-economy/ledger-service/ports"
)

const (
	defaultTransferPageSize = 50
	maxTransferPageSize     = 200
)

type TransferHistoryUseCase struct {
	Accounts ports.AccountDirectory
	Ledger   ports.LedgerRepository
}

// ListByUser returns records where the user is sender or recipient, newest
// first, including rejected attempts.
func (uc TransferHistoryUseCase) ListByUser(ctx context.Context, userID string, limit int) ([]entities.TransferRecord, error) {
	userID = strings.TrimSpace(userID)
	if _, err := uc.Accounts.GetAccount(ctx, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultTransferPageSize
	}
	if limit > maxTransferPageSize {
		limit = maxTransferPageSize
	}
	return uc.Ledger.ListTransfersByUser(ctx, userID, limit)
}

func (uc TransferHistoryUseCase) Get(ctx context.Context, transferID string) (entities.TransferRecord, error) {
	return uc.Ledger.GetTransfer(ctx, strings.TrimSpace(transferID))
}
