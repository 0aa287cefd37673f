package services

import (
	"strings"

	domainerrors "rewardledger/contexts/player-economy/ledger-service/domain/errors"
)

// CheckParties enforces the checks shared by balance and item transfers that
// need no storage access. Self-transfer is checked first, for any id; a blank
// id can never resolve to an account.
func CheckParties(fromUserID string, toUserID string) error {
	from := strings.TrimSpace(fromUserID)
	to := strings.TrimSpace(toUserID)
	if from == to {
		return domainerrors.ErrSelfTransfer
	}
	if from == "" || to == "" {
		return domainerrors.ErrAccountNotFound
	}
	return nil
}

// CheckAmount rejects zero and negative transfer amounts.
func CheckAmount(amount int64) error {
	if amount <= 0 {
		return domainerrors.ErrInvalidAmount
	}
	return nil
}

// CheckFunds compares the sender's current balance with the amount.
func CheckFunds(balance int64, amount int64) error {
	if balance < amount {
		return domainerrors.ErrInsufficientFunds
	}
	return nil
}
