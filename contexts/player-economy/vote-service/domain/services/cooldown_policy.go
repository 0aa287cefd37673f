package services

import (
	"time"

	"rewardledger/contexts/player-economy/vote-service/domain/entities"
)

// IsEligible is true when no entry exists or now has reached EligibleAt.
func IsEligible(entry *entities.CooldownEntry, now time.Time) bool {
	return entry == nil || !entry.Active(now)
}

// Remaining is zero when eligible, otherwise EligibleAt - now.
func Remaining(entry *entities.CooldownEntry, now time.Time) time.Duration {
	if IsEligible(entry, now) {
		return 0
	}
	return entry.EligibleAt.Sub(now)
}

// Advance returns the entry after an action at now. EligibleAt never moves
// backward, so an out-of-order commit cannot shorten a running cooldown.
func Advance(existing *entities.CooldownEntry, userID string, actionClass string, cooldown time.Duration, now time.Time) entities.CooldownEntry {
	next := now.Add(cooldown).UTC()
	if existing != nil && existing.EligibleAt.After(next) {
		next = existing.EligibleAt.UTC()
	}
	return entities.CooldownEntry{
		UserID:      userID,
		ActionClass: actionClass,
		EligibleAt:  next,
		UpdatedAt:   now.UTC(),
	}
}
