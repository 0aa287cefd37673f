package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "rewardledger/contexts/player-economy/vote-service/application"
	"rewardledger/contexts/player-economy/vote-service/domain/entities"
	domainerrors "rewardledger/contexts/player-economy/vote-service/domain/errors"
	"rewardledger/contexts/player-economy/vote-service/ports"
	contractsv1 "rewardledger/contracts/events/v1"
)

const defaultNotConfirmedMessage = "vote not registered by the provider yet"

type SubmitVoteCommand struct {
	UserID     string
	ProviderID string
}

// SubmitVoteResult is the outcome of a vote that reached the provider.
// Success false means the provider has not seen the vote; nothing changed.
type SubmitVoteResult struct {
	Success   bool
	Message   string
	VoteID    string
	CanVoteAt *time.Time
	Reward    entities.Reward
}

type SubmitVoteUseCase struct {
	Users          ports.UserDirectory
	Providers      ports.ProviderRegistry
	Cooldowns      application.CooldownTracker
	Confirmer      ports.VoteConfirmer
	Votes          ports.VoteRepository
	Rewards        ports.RewardPolicy
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	ConfirmTimeout time.Duration
	CommitTimeout  time.Duration
	Logger         *slog.Logger
}

// Execute checks the player, the provider and the cooldown before any network
// call, asks the provider under a bounded timeout, and on confirmation commits
// the cooldown advance, the vote record and the vote.confirmed event together.
func (uc SubmitVoteUseCase) Execute(ctx context.Context, cmd SubmitVoteCommand) (SubmitVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	userID := strings.TrimSpace(cmd.UserID)
	providerID := strings.TrimSpace(cmd.ProviderID)
	if userID == "" || providerID == "" {
		return SubmitVoteResult{}, domainerrors.ErrInvalidRequest
	}
	if err := uc.checkUser(ctx, userID); err != nil {
		return SubmitVoteResult{}, err
	}

	provider, err := uc.Providers.GetProvider(ctx, providerID)
	if err != nil {
		return SubmitVoteResult{}, err
	}
	if !provider.IsActive {
		return SubmitVoteResult{}, domainerrors.ErrProviderInactive
	}

	actionClass := provider.ActionClass()
	remaining, eligibleAt, err := uc.Cooldowns.Status(ctx, userID, actionClass, nowFrom(uc.Clock))
	if err != nil {
		return SubmitVoteResult{}, err
	}
	if remaining > 0 {
		logger.Info("vote rejected by cooldown",
			"event", "vote_submit_cooldown_active",
			"module", moduleName,
			"layer", "application",
			"user_id", userID,
			"provider_id", provider.ProviderID,
			"time_left_seconds", int64(remaining/time.Second),
		)
		return SubmitVoteResult{}, &domainerrors.CooldownActiveError{Remaining: remaining, EligibleAt: eligibleAt}
	}

	confirmation, err := uc.confirm(ctx, userID, provider)
	if err != nil {
		logger.Warn("vote provider confirmation failed",
			"event", "vote_submit_provider_unavailable",
			"module", moduleName,
			"layer", "application",
			"user_id", userID,
			"provider_id", provider.ProviderID,
			"provider_type", string(provider.Type),
			"error", err.Error(),
		)
		return SubmitVoteResult{}, fmt.Errorf("%w: %v", domainerrors.ErrProviderUnavailable, err)
	}
	if !confirmation.Confirmed {
		message := strings.TrimSpace(confirmation.Reason)
		if message == "" {
			message = defaultNotConfirmedMessage
		}
		logger.Info("vote not confirmed by provider",
			"event", "vote_submit_not_confirmed",
			"module", moduleName,
			"layer", "application",
			"user_id", userID,
			"provider_id", provider.ProviderID,
		)
		return SubmitVoteResult{Success: false, Message: message}, nil
	}

	reward := entities.Reward{}
	if uc.Rewards != nil {
		reward, err = uc.Rewards.Decide(ctx, userID, provider)
		if err != nil {
			return SubmitVoteResult{}, err
		}
	}

	voteID, err := uc.IDGenerator.NewID(ctx)
	if err != nil {
		return SubmitVoteResult{}, err
	}
	eventID, err := uc.IDGenerator.NewID(ctx)
	if err != nil {
		return SubmitVoteResult{}, err
	}
	submittedAt := nowFrom(uc.Clock)
	vote := entities.VoteRecord{
		VoteID:          voteID,
		UserID:          userID,
		ProviderID:      provider.ProviderID,
		SubmittedAt:     submittedAt,
		EligibleAt:      submittedAt.Add(provider.Cooldown()),
		RewardAmount:    reward.Amount,
		RewardProductID: reward.ProductID,
	}
	event := ports.VoteEvent{
		EventID:      eventID,
		EventType:    contractsv1.EventTypeVoteConfirmed,
		PartitionKey: userID,
		OccurredAt:   submittedAt,
		Data: contractsv1.VoteConfirmedData{
			VoteID:          vote.VoteID,
			UserID:          vote.UserID,
			ProviderID:      vote.ProviderID,
			RewardAmount:    vote.RewardAmount,
			RewardProductID: vote.RewardProductID,
			EligibleAt:      vote.EligibleAt.Format(time.RFC3339),
		},
	}

	var entry entities.CooldownEntry
	err = commitDetached(ctx, uc.CommitTimeout, func(commitCtx context.Context) error {
		var commitErr error
		entry, commitErr = uc.Votes.CommitVote(commitCtx, vote, actionClass, event)
		return commitErr
	})
	if err != nil {
		var cooldownErr *domainerrors.CooldownActiveError
		if errors.As(err, &cooldownErr) {
			return SubmitVoteResult{}, err
		}
		logger.Error("vote commit failed",
			"event", "vote_submit_commit_failed",
			"module", moduleName,
			"layer", "application",
			"alert", true,
			"user_id", userID,
			"provider_id", provider.ProviderID,
			"vote_id", vote.VoteID,
			"error", err.Error(),
		)
		return SubmitVoteResult{}, commitFailure(err)
	}
	uc.Cooldowns.Remember(ctx, entry)

	canVoteAt := entry.EligibleAt
	logger.Info("vote confirmed",
		"event", "vote_submit_confirmed",
		"module", moduleName,
		"layer", "application",
		"user_id", userID,
		"provider_id", provider.ProviderID,
		"vote_id", vote.VoteID,
		"can_vote_at", canVoteAt.Format(time.RFC3339),
	)
	return SubmitVoteResult{
		Success:   true,
		Message:   "vote confirmed",
		VoteID:    vote.VoteID,
		CanVoteAt: &canVoteAt,
		Reward:    reward,
	}, nil
}

func (uc SubmitVoteUseCase) confirm(ctx context.Context, userID string, provider entities.VoteProvider) (ports.VoteConfirmation, error) {
	timeout := uc.ConfirmTimeout
	if timeout <= 0 {
		timeout = defaultConfirmTimeout
	}
	confirmCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return uc.Confirmer.ConfirmVote(confirmCtx, userID, provider)
}

// checkUser keeps votes of unknown players out of the outbox; the ledger could
// never credit them.
func (uc SubmitVoteUseCase) checkUser(ctx context.Context, userID string) error {
	if uc.Users == nil {
		return nil
	}
	exists, err := uc.Users.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return domainerrors.ErrUserNotFound
	}
	return nil
}
