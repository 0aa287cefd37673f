package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	domainerrors "rewardledger/contexts/player-economy/ledger-service/domain/errors"
	"rewardledger/contexts/player-economy/ledger-service/ports"
)

const (
	moduleName           = "player-economy/ledger-service"
	defaultCommitTimeout = 5 * time.Second
	defaultIdemTTL       = 7 * 24 * time.Hour
)

// commitDetached runs a repository commit that must not be abandoned halfway
// when the caller goes away. The commit gets its own deadline instead.
func commitDetached(ctx context.Context, timeout time.Duration, commit func(context.Context) error) error {
	if timeout <= 0 {
		timeout = defaultCommitTimeout
	}
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return commit(commitCtx)
}

// isRejection reports whether err is a typed precondition failure that is
// recorded in the audit trail rather than treated as a fault.
func isRejection(err error) bool {
	return errors.Is(err, domainerrors.ErrNotFound) ||
		errors.Is(err, domainerrors.ErrInvalidAmount) ||
		errors.Is(err, domainerrors.ErrInsufficientFunds) ||
		errors.Is(err, domainerrors.ErrSelfTransfer) ||
		errors.Is(err, domainerrors.ErrInvalidState)
}

func commitFailure(err error) error {
	return fmt.Errorf("%w: %v", domainerrors.ErrInternalCommitFailure, err)
}

// resolveIdempotencyKey prefers the caller key and falls back to the request
// id scoped by sender. Without either the request is not deduplicated.
func resolveIdempotencyKey(key string, fromUserID string, requestID string) string {
	if value := strings.TrimSpace(key); value != "" {
		return value
	}
	if strings.TrimSpace(requestID) == "" {
		return ""
	}
	return fmt.Sprintf("ledger:%s:%s", strings.TrimSpace(fromUserID), strings.TrimSpace(requestID))
}

func hashRequest(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// lookupReplay returns the transfer previously bound to key, if any.
func lookupReplay(
	ctx context.Context,
	store ports.IdempotencyStore,
	key string,
	requestHash string,
	now time.Time,
) (string, bool, error) {
	if key == "" || store == nil {
		return "", false, nil
	}
	record, found, err := store.Get(ctx, key, now)
	if err != nil || !found {
		return "", false, err
	}
	if record.RequestHash != requestHash {
		return "", false, domainerrors.ErrIdempotencyConflict
	}
	return record.TransferID, true, nil
}

// keyClaim is the idempotency row a commit must bind, or nil when the request
// carries no key.
func keyClaim(key string, requestHash string, transferID string, expiresAt time.Time) *ports.IdempotencyRecord {
	if key == "" {
		return nil
	}
	return &ports.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		TransferID:  transferID,
		ExpiresAt:   expiresAt,
	}
}

// committedReplay resolves a commit that lost its key to an identical
// concurrent request into that request's result.
func committedReplay(ctx context.Context, ledger ports.LedgerRepository, err error) (TransferResult, bool, error) {
	var replay *domainerrors.ReplayError
	if !errors.As(err, &replay) {
		return TransferResult{}, false, nil
	}
	record, getErr := ledger.GetTransfer(ctx, replay.TransferID)
	if getErr != nil {
		return TransferResult{}, true, getErr
	}
	return TransferResult{Record: record, Replayed: true}, true, nil
}
