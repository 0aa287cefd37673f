package ports

import (
	"context"
	"time"

	"rewardledger/contexts/player-economy/ledger-service/domain/entities"
	contractsv1 "rewardledger/contracts/events/v1"
)

// AccountDirectory resolves players known to the ledger.
type AccountDirectory interface {
	GetAccount(ctx context.Context, userID string) (entities.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (entities.Account, error)
}

// LedgerEvent is an outbound integration event persisted to the outbox in the
// same transaction as the state change it describes.
type LedgerEvent struct {
	EventID      string
	EventType    string
	PartitionKey string
	OccurredAt   time.Time
	Data         any
}

const SourceService = "ledger-service"

// Envelope renders the event in the canonical contract shape stored in the
// outbox payload.
func (e LedgerEvent) Envelope() (EventEnvelope, error) {
	envelope, err := contractsv1.NewEnvelope(
		e.EventID,
		e.EventType,
		SourceService,
		"user_id",
		e.PartitionKey,
		e.OccurredAt,
		e.Data,
	)
	if err != nil {
		return EventEnvelope{}, err
	}
	envelope.TraceID = e.EventID
	return envelope, nil
}

// LedgerRepository is the single source of truth for balances and reward-item
// ownership. Every mutating method is one atomic unit of work.
type LedgerRepository interface {
	GetBalance(ctx context.Context, userID string) (int64, error)
	AdjustBalance(ctx context.Context, userID string, delta int64, at time.Time) (entities.Account, error)

	GetItem(ctx context.Context, itemID string) (entities.RewardItem, error)
	ListItemsByOwner(ctx context.Context, ownerID string, state entities.ItemState) ([]entities.RewardItem, error)
	TransferItemOwnership(ctx context.Context, itemID string, fromUserID string, toUserID string, at time.Time) (entities.RewardItem, error)
	MarkItemUsed(ctx context.Context, itemID string, userID string, at time.Time) (entities.RewardItem, error)
	CreateItem(ctx context.Context, item entities.RewardItem) error

	// CommitBalanceTransfer debits, credits, appends the completed record and
	// the outbox event together. It re-checks funds under lock and returns
	// ErrInsufficientFunds without side effects when a concurrent write won.
	// A non-nil claim binds its key to record.TransferID in the same unit of
	// work; a live key from an identical request yields *ReplayError and one
	// from a different request ErrIdempotencyConflict, both without writes.
	CommitBalanceTransfer(ctx context.Context, record entities.TransferRecord, event LedgerEvent, claim *IdempotencyRecord) error
	// CommitItemTransfer moves ownership, appends the completed record and
	// the outbox event together. claim behaves as in CommitBalanceTransfer.
	CommitItemTransfer(ctx context.Context, record entities.TransferRecord, event LedgerEvent, claim *IdempotencyRecord) error
	// CommitItemUse marks the item used and appends the outbox event together.
	CommitItemUse(ctx context.Context, itemID string, userID string, at time.Time, event LedgerEvent) (entities.RewardItem, error)
	// AppendRejectedTransfer stores the audit row of a rejected attempt.
	AppendRejectedTransfer(ctx context.Context, record entities.TransferRecord) error

	GetTransfer(ctx context.Context, transferID string) (entities.TransferRecord, error)
	ListTransfersByUser(ctx context.Context, userID string, limit int) ([]entities.TransferRecord, error)

	// ApplyVoteReward credits the reward at most once per GrantID. It reports
	// false when the grant was already applied.
	ApplyVoteReward(ctx context.Context, reward entities.VoteReward) (bool, error)
}

// IdempotencyRecord binds a caller key to the transfer it produced.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	TransferID  string
	ExpiresAt   time.Time
}

// IdempotencyStore looks up live keys. Keys are written only by the transfer
// commits, together with the transfer they produced.
type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
}

// Clock allows deterministic testing of timestamps.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts transfer/item/event identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// OutboxMessage is a row ready to relay from the ledger outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error
}

// EventEnvelope reuses the canonical envelope contract.
type EventEnvelope = contractsv1.Envelope

// EventPublisher publishes envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// EventSubscriber registers a topic consumer callback.
type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
