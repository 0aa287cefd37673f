package queries

import (
	"context"
	"strings"

	"rewardledger/contexts/player-economy/ledger-service/domain/entities"
	domainerrors "rewardledger/contexts/player-economy/ledger-service/domain/errors"
	"rewardledger/contexts/player-economy/ledger-service/ports"
)

// UserDirectoryUseCase serves recipient lookups before gifting.
type UserDirectoryUseCase struct {
	Accounts ports.AccountDirectory
}

func (uc UserDirectoryUseCase) GetUser(ctx context.Context, userID string) (entities.Account, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return entities.Account{}, domainerrors.ErrAccountNotFound
	}
	return uc.Accounts.GetAccount(ctx, userID)
}

// FindUserByUsername is a case-insensitive exact match.
func (uc UserDirectoryUseCase) FindUserByUsername(ctx context.Context, username string) (entities.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return entities.Account{}, domainerrors.ErrInvalidRequest
	}
	return uc.Accounts.GetAccountByUsername(ctx, username)
}
