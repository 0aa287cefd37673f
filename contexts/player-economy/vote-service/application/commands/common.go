package commands

import (
	"context"
	"fmt"
	"time"

	domainerrors "rewardledger/contexts/player-economy/vote-service/domain/errors"
	"rewardledger/contexts/player-economy/vote-service/ports"
)

const (
	moduleName            = "player-economy/vote-service"
	defaultConfirmTimeout = 10 * time.Second
	defaultCommitTimeout  = 5 * time.Second
)

// commitDetached runs fn on a context that ignores caller cancellation, so a
// commit that has started always finishes or rolls back in storage.
func commitDetached(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	if timeout <= 0 {
		timeout = defaultCommitTimeout
	}
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return fn(commitCtx)
}

func commitFailure(err error) error {
	return fmt.Errorf("%w: %v", domainerrors.ErrInternalCommitFailure, err)
}

func nowFrom(clock ports.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}
