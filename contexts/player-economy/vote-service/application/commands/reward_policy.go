package commands

import (
	"context"
	"strings"

	"rewardledger/contexts/player-economy/vote-service/domain/entities"
)

// FixedRewardPolicy grants the same reward for every confirmed vote unless
// the provider carries its own override.
type FixedRewardPolicy struct {
	Amount    int64
	ProductID string
}

func (p FixedRewardPolicy) Decide(_ context.Context, _ string, provider entities.VoteProvider) (entities.Reward, error) {
	reward := entities.Reward{Amount: p.Amount, ProductID: strings.TrimSpace(p.ProductID)}
	if provider.RewardAmount != nil {
		reward.Amount = *provider.RewardAmount
	}
	if productID := strings.TrimSpace(provider.RewardProductID); productID != "" {
		reward.ProductID = productID
	}
	if reward.Amount < 0 {
		reward.Amount = 0
	}
	return reward, nil
}
