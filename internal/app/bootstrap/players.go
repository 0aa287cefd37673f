package bootstrap

import (
	"context"
	"errors"

	ledgererrors "rewardledger/contexts/player-economy/ledger-service/domain/errors"
	ledgerports "rewardledger/contexts/player-economy/ledger-service/ports"
)

// ledgerPlayers answers the vote service's player lookups from the ledger's
// account directory.
type ledgerPlayers struct {
	accounts ledgerports.AccountDirectory
}

func (p ledgerPlayers) UserExists(ctx context.Context, userID string) (bool, error) {
	_, err := p.accounts.GetAccount(ctx, userID)
	if errors.Is(err, ledgererrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
