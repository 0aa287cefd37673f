package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"rewardledger/contexts/player-economy/vote-service/domain/entities"
	domainerrors "rewardledger/contexts/player-economy/vote-service/domain/errors"
	"rewardledger/contexts/player-economy/vote-service/domain/services"
	"rewardledger/contexts/player-economy/vote-service/ports"
)

const moduleName = "player-economy/vote-service"

// CooldownTracker gates repeatable actions per (user, action class). The
// cache, when present, only short-circuits rejections; the repository
// decides everything else.
type CooldownTracker struct {
	Repository ports.CooldownRepository
	Cache      ports.CooldownCache
	Logger     *slog.Logger
}

func (t CooldownTracker) IsEligible(ctx context.Context, userID string, actionClass string, now time.Time) (bool, error) {
	remaining, _, err := t.Status(ctx, userID, actionClass, now)
	if err != nil {
		return false, err
	}
	return remaining == 0, nil
}

func (t CooldownTracker) TimeUntilEligible(ctx context.Context, userID string, actionClass string, now time.Time) (time.Duration, error) {
	remaining, _, err := t.Status(ctx, userID, actionClass, now)
	return remaining, err
}

// Status returns the remaining cooldown and the eligible time it counts down
// to. Both are zero when no cooldown is running.
func (t CooldownTracker) Status(ctx context.Context, userID string, actionClass string, now time.Time) (time.Duration, time.Time, error) {
	userID = strings.TrimSpace(userID)
	actionClass = strings.TrimSpace(actionClass)
	if userID == "" || actionClass == "" {
		return 0, time.Time{}, domainerrors.ErrInvalidRequest
	}

	if t.Cache != nil {
		eligibleAt, found, err := t.Cache.GetEligibleAt(ctx, userID, actionClass)
		if err != nil {
			ResolveLogger(t.Logger).Warn("cooldown cache read failed",
				"event", "vote_cooldown_cache_read_failed",
				"module", moduleName,
				"layer", "application",
				"user_id", userID,
				"action_class", actionClass,
				"error", err.Error(),
			)
		} else if found && now.Before(eligibleAt) {
			return eligibleAt.Sub(now), eligibleAt, nil
		}
	}

	entry, found, err := t.Repository.GetCooldown(ctx, userID, actionClass)
	if err != nil {
		return 0, time.Time{}, err
	}
	if !found {
		return 0, time.Time{}, nil
	}
	remaining := services.Remaining(&entry, now)
	if remaining == 0 {
		return 0, time.Time{}, nil
	}
	return remaining, entry.EligibleAt, nil
}

// RecordAction starts or extends the cooldown. The stored eligible time is
// max(existing, now+cooldown).
func (t CooldownTracker) RecordAction(
	ctx context.Context,
	userID string,
	actionClass string,
	cooldown time.Duration,
	now time.Time,
) (entities.CooldownEntry, error) {
	userID = strings.TrimSpace(userID)
	actionClass = strings.TrimSpace(actionClass)
	if userID == "" || actionClass == "" || cooldown < 0 {
		return entities.CooldownEntry{}, domainerrors.ErrInvalidRequest
	}
	existing, found, err := t.Repository.GetCooldown(ctx, userID, actionClass)
	if err != nil {
		return entities.CooldownEntry{}, err
	}
	var current *entities.CooldownEntry
	if found {
		current = &existing
	}
	stored, err := t.Repository.AdvanceCooldown(ctx, services.Advance(current, userID, actionClass, cooldown, now))
	if err != nil {
		return entities.CooldownEntry{}, err
	}
	t.Remember(ctx, stored)
	return stored, nil
}

// Remember primes the cache with a committed entry. Failures only log; the
// repository already holds the truth.
func (t CooldownTracker) Remember(ctx context.Context, entry entities.CooldownEntry) {
	if t.Cache == nil {
		return
	}
	if err := t.Cache.AdvanceEligibleAt(ctx, entry.UserID, entry.ActionClass, entry.EligibleAt); err != nil {
		ResolveLogger(t.Logger).Warn("cooldown cache write failed",
			"event", "vote_cooldown_cache_write_failed",
			"module", moduleName,
			"layer", "application",
			"user_id", entry.UserID,
			"action_class", entry.ActionClass,
			"error", err.Error(),
		)
	}
}
