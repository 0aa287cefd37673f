package queries

import (
	"context"
	"strings"
	"time"

	application "rewardledger/contexts/player-economy/vote-service/application"
	"rewardledger/contexts/player-economy/vote-service/domain/entities"
	domainerrors "rewardledger/contexts/player-economy/vote-service/domain/errors"
	"rewardledger/contexts/player-economy/vote-service/ports"
)

type CooldownStatus struct {
	UserID     string
	ProviderID string
	CanVote    bool
	TimeLeft   time.Duration
	EligibleAt *time.Time
}

type VoteStatus struct {
	UserID     string
	NextVoteAt *time.Time
}

type CooldownStatusUseCase struct {
	Providers ports.ProviderRegistry
	Cooldowns application.CooldownTracker
	Clock     ports.Clock
}

func (uc CooldownStatusUseCase) GetCooldownStatus(ctx context.Context, userID string, providerID string) (CooldownStatus, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return CooldownStatus{}, domainerrors.ErrInvalidRequest
	}
	provider, err := uc.Providers.GetProvider(ctx, providerID)
	if err != nil {
		return CooldownStatus{}, err
	}
	remaining, eligibleAt, err := uc.Cooldowns.Status(ctx, userID, provider.ActionClass(), uc.now())
	if err != nil {
		return CooldownStatus{}, err
	}
	status := CooldownStatus{
		UserID:     userID,
		ProviderID: provider.ProviderID,
		CanVote:    remaining == 0,
		TimeLeft:   remaining,
	}
	if remaining > 0 {
		status.EligibleAt = &eligibleAt
	}
	return status, nil
}

// GetVoteStatus projects the user's next vote time: the latest running vote
// cooldown, or nil when every provider is open.
func (uc CooldownStatusUseCase) GetVoteStatus(ctx context.Context, userID string) (VoteStatus, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return VoteStatus{}, domainerrors.ErrInvalidRequest
	}
	entries, err := uc.Cooldowns.Repository.ListCooldowns(ctx, userID)
	if err != nil {
		return VoteStatus{}, err
	}
	now := uc.now()
	var next *time.Time
	for _, entry := range entries {
		if !entities.IsVoteActionClass(entry.ActionClass) || !entry.Active(now) {
			continue
		}
		if next == nil || entry.EligibleAt.After(*next) {
			eligibleAt := entry.EligibleAt
			next = &eligibleAt
		}
	}
	return VoteStatus{UserID: userID, NextVoteAt: next}, nil
}

func (uc CooldownStatusUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
