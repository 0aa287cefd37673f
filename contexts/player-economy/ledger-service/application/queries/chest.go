package queries

import (
	"context"
	"strings"

	"rewardledger/contexts/player-economy/ledger-service/domain/entities"
	domainerrors "rewardledger/contexts/player-economy/ledger-service/domain/errors"
	"rewardledger/contexts/player-economy/ledger-service/ports"
)

type ChestUseCase struct {
	Accounts ports.AccountDirectory
	Ledger   ports.LedgerRepository
}

// ListItems returns the user's chest, newest first. An empty state lists
// every item the user owns.
func (uc ChestUseCase) ListItems(ctx context.Context, userID string, state string) ([]entities.RewardItem, error) {
	userID = strings.TrimSpace(userID)
	if _, err := uc.Accounts.GetAccount(ctx, userID); err != nil {
		return nil, err
	}
	filter := entities.ItemState(strings.ToLower(strings.TrimSpace(state)))
	switch filter {
	case "", entities.ItemStateUnused, entities.ItemStateUsed, entities.ItemStateTransferred:
	default:
		return nil, domainerrors.ErrInvalidRequest
	}
	return uc.Ledger.ListItemsByOwner(ctx, userID, filter)
}

func (uc ChestUseCase) GetItem(ctx context.Context, userID string, itemID string) (entities.RewardItem, error) {
	item, err := uc.Ledger.GetItem(ctx, strings.TrimSpace(itemID))
	if err != nil {
		return entities.RewardItem{}, err
	}
	if item.OwnerID != strings.TrimSpace(userID) {
		return entities.RewardItem{}, domainerrors.ErrItemNotFound
	}
	return item, nil
}
