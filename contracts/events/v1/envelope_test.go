package v1

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewEnvelopeCarriesPayload(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("TRT", 3*3600))
	envelope, err := NewEnvelope("evt-1", EventTypeVoteConfirmed, "vote-service", "user_id", "user-a", at, VoteConfirmedData{
		VoteID:       "vote-1",
		UserID:       "user-a",
		ProviderID:   "topg-main",
		RewardAmount: 500,
	})
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if envelope.SchemaVersion != 1 {
		t.Fatalf("expected schema version 1, got %d", envelope.SchemaVersion)
	}
	if envelope.OccurredAt.Location() != time.UTC {
		t.Fatalf("expected UTC occurred_at, got %s", envelope.OccurredAt.Location())
	}

	var decoded VoteConfirmedData
	if err := json.Unmarshal(envelope.Data, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.VoteID != "vote-1" || decoded.RewardAmount != 500 {
		t.Fatalf("unexpected payload %+v", decoded)
	}
}
