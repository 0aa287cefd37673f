package ports

import (
	"context"
	"time"

	"rewardledger/contexts/player-economy/vote-service/domain/entities"
	contractsv1 "rewardledger/contracts/events/v1"
)

// ProviderRegistry lists the configured vote providers.
type ProviderRegistry interface {
	ListProviders(ctx context.Context) ([]entities.VoteProvider, error)
	GetProvider(ctx context.Context, providerID string) (entities.VoteProvider, error)
}

// UserDirectory tells whether a player exists. The ledger owns accounts; the
// composition root bridges this port to it.
type UserDirectory interface {
	UserExists(ctx context.Context, userID string) (bool, error)
}

// VoteConfirmation is the answer of a vote site. Reason explains a negative
// answer, for example that the vote was not registered yet.
type VoteConfirmation struct {
	Confirmed bool
	Reason    string
}

// VoteConfirmer asks a third-party vote site whether the user has voted.
// Errors are transport failures, never a negative answer.
type VoteConfirmer interface {
	ConfirmVote(ctx context.Context, userID string, provider entities.VoteProvider) (VoteConfirmation, error)
}

// CooldownRepository is the authoritative cooldown store.
type CooldownRepository interface {
	GetCooldown(ctx context.Context, userID string, actionClass string) (entities.CooldownEntry, bool, error)
	ListCooldowns(ctx context.Context, userID string) ([]entities.CooldownEntry, error)
	// AdvanceCooldown stores max(existing, entry.EligibleAt) and returns the
	// stored entry.
	AdvanceCooldown(ctx context.Context, entry entities.CooldownEntry) (entities.CooldownEntry, error)
}

// CooldownCache mirrors active cooldowns for fast rejection. It is never
// authoritative: a miss means "ask the repository".
type CooldownCache interface {
	GetEligibleAt(ctx context.Context, userID string, actionClass string) (time.Time, bool, error)
	AdvanceEligibleAt(ctx context.Context, userID string, actionClass string, eligibleAt time.Time) error
}

// VoteEvent is persisted to the outbox in the vote commit transaction.
type VoteEvent struct {
	EventID      string
	EventType    string
	PartitionKey string
	OccurredAt   time.Time
	Data         any
}

const SourceService = "vote-service"

func (e VoteEvent) Envelope() (EventEnvelope, error) {
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

// VoteRepository commits confirmed votes.
type VoteRepository interface {
	// CommitVote re-checks the cooldown at vote.SubmittedAt, advances it
	// monotonically to vote.EligibleAt, stores the record and appends the
	// event in one unit of work. A running cooldown yields a
	// *CooldownActiveError and no writes.
	CommitVote(ctx context.Context, vote entities.VoteRecord, actionClass string, event VoteEvent) (entities.CooldownEntry, error)
	GetVote(ctx context.Context, voteID string) (entities.VoteRecord, error)
	ListVotesByUser(ctx context.Context, userID string, limit int) ([]entities.VoteRecord, error)
}

// RewardPolicy decides what a confirmed vote earns.
type RewardPolicy interface {
	Decide(ctx context.Context, userID string, provider entities.VoteProvider) (entities.Reward, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error
}

type EventEnvelope = contractsv1.Envelope

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
