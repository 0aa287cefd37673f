package queries

import (
	"context"
	"strings"

	"rewardledger/contexts/player-economy/vote-service/domain/entities"
	domainerrors "rewardledger/contexts/player-economy/vote-service/domain/errors"
	"rewardledger/contexts/player-economy/vote-service/ports"
)

const (
	defaultVoteHistoryLimit = 50
	maxVoteHistoryLimit     = 200
)

type VoteHistoryUseCase struct {
	Votes ports.VoteRepository
}

func (uc VoteHistoryUseCase) ListVotes(ctx context.Context, userID string, limit int) ([]entities.VoteRecord, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domainerrors.ErrInvalidRequest
	}
	if limit <= 0 {
		limit = defaultVoteHistoryLimit
	}
	if limit > maxVoteHistoryLimit {
		limit = maxVoteHistoryLimit
	}
	return uc.Votes.ListVotesByUser(ctx, userID, limit)
}
