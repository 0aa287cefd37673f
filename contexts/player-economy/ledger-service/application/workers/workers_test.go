package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"rewardledger/contexts/player-economy/ledger-service/adapters/memory"
	"rewardledger/contexts/player-economy/ledger-service/domain/entities"
	"rewardledger/contexts/player-economy/ledger-service/ports"
	contractsv1 "rewardledger/contracts/events/v1"
)

type recordingPublisher struct {
	topics []string
	failAt int
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ ports.EventEnvelope) error {
	if p.failAt > 0 && len(p.topics)+1 == p.failAt {
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	return nil
}

func voteEnvelope(t *testing.T, data contractsv1.VoteConfirmedData) ports.EventEnvelope {
	t.Helper()
	envelope, err := contractsv1.NewEnvelope("evt-"+data.VoteID, contractsv1.EventTypeVoteConfirmed, "vote-service",
		"user_id", data.UserID, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), data)
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	return envelope
}

func TestVoteRewardConsumerCreditsOncePerVote(t *testing.T) {
	store := memory.NewStore([]entities.Account{{UserID: "alice", Username: "Alice"}}, nil)
	consumer := VoteRewardConsumer{Ledger: store, IDGenerator: store}
	event := voteEnvelope(t, contractsv1.VoteConfirmedData{
		VoteID:          "vote-1",
		UserID:          "alice",
		ProviderID:      "serversmc",
		RewardAmount:    500,
		RewardProductID: "vote-crate",
	})

	for i := 0; i < 3; i++ {
		if err := consumer.Handle(context.Background(), event); err != nil {
			t.Fatalf("delivery %d failed: %v", i, err)
		}
	}

	balance, _ := store.GetBalance(context.Background(), "alice")
	if balance != 500 {
		t.Fatalf("expected single credit of 500, got %d", balance)
	}
	items, _ := store.ListItemsByOwner(context.Background(), "alice", entities.ItemStateUnused)
	if len(items) != 1 || items[0].Source != entities.ItemSourceVoteReward || items[0].SourceRef != "vote-1" {
		t.Fatalf("expected one vote reward item, got %+v", items)
	}
}

func TestVoteRewardConsumerDeadLettersMalformedPayload(t *testing.T) {
	store := memory.NewStore(nil, nil)
	var logs bytes.Buffer
	consumer := VoteRewardConsumer{Ledger: store, IDGenerator: store, Logger: slog.New(slog.NewJSONHandler(&logs, nil))}
	err := consumer.Handle(context.Background(), ports.EventEnvelope{
		EventID: "evt-bad",
		Data:    json.RawMessage(`{"vote_id":`),
	})
	if err != nil {
		t.Fatalf("expected malformed event to be acknowledged, got %v", err)
	}
	if !strings.Contains(logs.String(), `"event":"ledger_vote_reward_dead_lettered"`) {
		t.Fatalf("expected dead-letter log, got %s", logs.String())
	}
}

func TestVoteRewardConsumerDeadLettersUnknownAccount(t *testing.T) {
	store := memory.NewStore([]entities.Account{{UserID: "alice", Username: "Alice"}}, nil)
	var logs bytes.Buffer
	consumer := VoteRewardConsumer{Ledger: store, IDGenerator: store, Logger: slog.New(slog.NewJSONHandler(&logs, nil))}

	err := consumer.Handle(context.Background(), voteEnvelope(t, contractsv1.VoteConfirmedData{
		VoteID:       "vote-ghost",
		UserID:       "ghost",
		RewardAmount: 500,
	}))
	if err != nil {
		t.Fatalf("expected unknown account to be dead-lettered, got %v", err)
	}
	out := logs.String()
	if !strings.Contains(out, `"alert":true`) || !strings.Contains(out, `"reason":"not_found"`) {
		t.Fatalf("expected alerting dead-letter log, got %s", out)
	}

	if err := consumer.Handle(context.Background(), voteEnvelope(t, contractsv1.VoteConfirmedData{
		VoteID:       "vote-alice",
		UserID:       "alice",
		RewardAmount: 500,
	})); err != nil {
		t.Fatalf("known account failed: %v", err)
	}
	balance, _ := store.GetBalance(context.Background(), "alice")
	if balance != 500 {
		t.Fatalf("expected alice credited after the dead letter, got %d", balance)
	}
}

type brokenLedger struct {
	*memory.Store
}

func (brokenLedger) ApplyVoteReward(context.Context, entities.VoteReward) (bool, error) {
	return false, errors.New("connection reset")
}

func TestVoteRewardConsumerReturnsTransientFailures(t *testing.T) {
	store := memory.NewStore([]entities.Account{{UserID: "alice"}}, nil)
	consumer := VoteRewardConsumer{Ledger: brokenLedger{Store: store}, IDGenerator: store}
	err := consumer.Handle(context.Background(), voteEnvelope(t, contractsv1.VoteConfirmedData{
		VoteID:       "vote-1",
		UserID:       "alice",
		RewardAmount: 500,
	}))
	if err == nil {
		t.Fatal("expected transient failure to be returned for redelivery")
	}
}

func TestOutboxRelayStopsAtFirstPublishFailure(t *testing.T) {
	store := memory.NewStore([]entities.Account{
		{UserID: "alice", Balance: 1000},
		{UserID: "bob"},
	}, nil)
	for i := 0; i < 3; i++ {
		eventID, _ := store.NewID(context.Background())
		transferID, _ := store.NewID(context.Background())
		err := store.CommitBalanceTransfer(context.Background(), entities.TransferRecord{
			TransferID: transferID,
			Kind:       entities.TransferKindBalance,
			FromUserID: "alice",
			ToUserID:   "bob",
			Amount:     10,
			Status:     entities.TransferStatusCompleted,
			CreatedAt:  time.Now().UTC(),
		}, ports.LedgerEvent{
			EventID:      eventID,
			EventType:    contractsv1.EventTypeTransferCompleted,
			PartitionKey: "alice",
			OccurredAt:   time.Now().UTC(),
			Data:         map[string]any{"transfer_id": transferID},
		}, nil)
		if err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
	}

	publisher := &recordingPublisher{failAt: 2}
	relay := OutboxRelay{Outbox: store, Publisher: publisher}
	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatal("expected relay error")
	}
	pending, _ := store.ListPendingOutbox(context.Background(), 10)
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending rows after partial relay, got %d", len(pending))
	}

	publisher.failAt = 0
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("second relay failed: %v", err)
	}
	pending, _ = store.ListPendingOutbox(context.Background(), 10)
	if len(pending) != 0 {
		t.Fatalf("expected drained outbox, got %d", len(pending))
	}
	if len(publisher.topics) != 3 || publisher.topics[0] != contractsv1.EventTypeTransferCompleted {
		t.Fatalf("unexpected published topics: %v", publisher.topics)
	}
}
