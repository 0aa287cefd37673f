package entities

import "time"

type TransferKind string

const (
	TransferKindBalance TransferKind = "balance"
	TransferKindItem    TransferKind = "item"
)

type TransferStatus string

const (
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusRejected  TransferStatus = "rejected"
)

// TransferRecord is the append-only audit entry written for every attempted
// transfer. Amount is set for balance transfers, ItemID for item transfers.
type TransferRecord struct {
	TransferID string
	Kind       TransferKind
	FromUserID string
	ToUserID   string
	Amount     int64
	ItemID     string
	Status     TransferStatus
	RejectCode string
	RequestID  string
	CreatedAt  time.Time
}

func (r TransferRecord) Completed() bool {
	return r.Status == TransferStatusCompleted
}

// VoteReward is the ledger-side effect of one confirmed vote. GrantID is the
// vote id and makes the reward idempotent.
type VoteReward struct {
	GrantID   string
	UserID    string
	Amount    int64
	ProductID string
	ItemID    string
	GrantedAt time.Time
}
