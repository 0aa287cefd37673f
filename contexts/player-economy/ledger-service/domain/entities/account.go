package entities

import (
	"time"

	domainerrors "rewardledger/contexts/player-economy/ledger-service/domain/errors"
)

// Account is a player's ledger row. Balance is kept in minor currency units.
type Account struct {
	UserID    string
	Username  string
	Balance   int64
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Adjust applies delta and bumps the version. The receiver is left untouched
// when the result would be negative.
func (a Account) Adjust(delta int64, at time.Time) (Account, error) {
	next := a.Balance + delta
	if next < 0 {
		return a, domainerrors.ErrInsufficientFunds
	}
	a.Balance = next
	a.Version++
	a.UpdatedAt = at.UTC()
	return a, nil
}
