package commands

import (
	"context"
	"log/slog"
	"time"

	application "rewardledger/contexts/player-economy/vote-service/application"
	"rewardledger/contexts/player-economy/vote-service/domain/entities"
	domainerrors "rewardledger/contexts/player-economy/vote-service/domain/errors"
	"rewardledger/contexts/player-economy/vote-service/ports"
)

// RecordActionCommand starts a cooldown outside the vote flow, for example
// when an operator replays a vote confirmed out of band.
type RecordActionCommand struct {
	UserID      string
	ActionClass string
	Cooldown    time.Duration
}

type RecordActionUseCase struct {
	Cooldowns     application.CooldownTracker
	Clock         ports.Clock
	CommitTimeout time.Duration
	Logger        *slog.Logger
}

func (uc RecordActionUseCase) Execute(ctx context.Context, cmd RecordActionCommand) (entities.CooldownEntry, error) {
	if cmd.Cooldown <= 0 {
		return entities.CooldownEntry{}, domainerrors.ErrInvalidRequest
	}
	var entry entities.CooldownEntry
	err := commitDetached(ctx, uc.CommitTimeout, func(commitCtx context.Context) error {
		var err error
		entry, err = uc.Cooldowns.RecordAction(commitCtx, cmd.UserID, cmd.ActionClass, cmd.Cooldown, nowFrom(uc.Clock))
		return err
	})
	if err != nil {
		return entities.CooldownEntry{}, err
	}
	application.ResolveLogger(uc.Logger).Info("cooldown recorded",
		"event", "vote_cooldown_recorded",
		"module", moduleName,
		"layer", "application",
		"user_id", entry.UserID,
		"action_class", entry.ActionClass,
		"eligible_at", entry.EligibleAt.Format(time.RFC3339),
	)
	return entry, nil
}
