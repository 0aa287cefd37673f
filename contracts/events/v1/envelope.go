package v1

import (
	"encoding/json"
	"time"
)

// Envelope is the versioned event envelope shared by the API and worker
// processes. Fields may be added; existing fields must stay backward compatible.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id,omitempty"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

// Event types emitted by the player-economy contexts.
const (
	EventTypeTransferCompleted = "ledger.transfer.completed"
	EventTypeItemUsed          = "ledger.item.used"
	EventTypeVoteConfirmed     = "vote.confirmed"
)

// VoteConfirmedData is the payload of EventTypeVoteConfirmed. The ledger
// consumes it to credit the vote reward exactly once per VoteID.
type VoteConfirmedData struct {
	VoteID          string `json:"vote_id"`
	UserID          string `json:"user_id"`
	ProviderID      string `json:"provider_id"`
	RewardAmount    int64  `json:"reward_amount"`
	RewardProductID string `json:"reward_product_id,omitempty"`
	EligibleAt      string `json:"eligible_at"`
}

// NewEnvelope marshals data and fills the common envelope fields.
func NewEnvelope(
	eventID string,
	eventType string,
	sourceService string,
	partitionKeyPath string,
	partitionKey string,
	occurredAt time.Time,
	data any,
) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    sourceService,
		SchemaVersion:    1,
		PartitionKeyPath: partitionKeyPath,
		PartitionKey:     partitionKey,
		Data:             raw,
	}, nil
}
