package entities

import "time"

// CooldownEntry holds the next eligible time of one (user, action class).
type CooldownEntry struct {
	UserID      string
	ActionClass string
	EligibleAt  time.Time
	UpdatedAt   time.Time
}

func (e CooldownEntry) Active(now time.Time) bool {
	return now.Before(e.EligibleAt)
}

// VoteRecord is the durable trace of a confirmed vote.
type VoteRecord struct {
	VoteID          string
	UserID          string
	ProviderID      string
	SubmittedAt     time.Time
	EligibleAt      time.Time
	RewardAmount    int64
	RewardProductID string
}

// Reward is the outcome of the reward policy for one confirmed vote.
type Reward struct {
	Amount    int64
	ProductID string
}

func (r Reward) Empty() bool {
	return r.Amount <= 0 && r.ProductID == ""
}
