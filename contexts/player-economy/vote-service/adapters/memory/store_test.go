package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"rewardledger/contexts/player-economy/vote-service/domain/entities"
	domainerrors "rewardledger/contexts/player-economy/vote-service/domain/errors"
	"rewardledger/contexts/player-economy/vote-service/ports"
)

func TestCommitVoteRechecksCooldownAtSubmission(t *testing.T) {
	store := NewStore(nil)
	at := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	vote := entities.VoteRecord{
		VoteID:      "vote-1",
		UserID:      "alice",
		ProviderID:  "serversmc",
		SubmittedAt: at,
		EligibleAt:  at.Add(24 * time.Hour),
	}
	if _, err := store.CommitVote(context.Background(), vote, "vote:serversmc", ports.VoteEvent{EventID: "e-1", OccurredAt: at}); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	vote.VoteID = "vote-2"
	vote.SubmittedAt = at.Add(time.Hour)
	vote.EligibleAt = vote.SubmittedAt.Add(24 * time.Hour)
	_, err := store.CommitVote(context.Background(), vote, "vote:serversmc", ports.VoteEvent{EventID: "e-2", OccurredAt: at})
	var cooldownErr *domainerrors.CooldownActiveError
	if !errors.As(err, &cooldownErr) || cooldownErr.Remaining != 23*time.Hour {
		t.Fatalf("expected 23h cooldown, got %v", err)
	}
	if _, err := store.GetVote(context.Background(), "vote-2"); !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected rejected vote not stored, got %v", err)
	}
	if store.OutboxLen() != 1 {
		t.Fatalf("expected one outbox row, got %d", store.OutboxLen())
	}
}

func TestAdvanceCooldownKeepsLaterEligibleAt(t *testing.T) {
	store := NewStore(nil)
	at := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	if _, err := store.AdvanceCooldown(context.Background(), entities.CooldownEntry{UserID: "alice", ActionClass: "vote:topg", EligibleAt: at.Add(10 * time.Hour)}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	stored, err := store.AdvanceCooldown(context.Background(), entities.CooldownEntry{UserID: "alice", ActionClass: "vote:topg", EligibleAt: at.Add(time.Hour)})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !stored.EligibleAt.Equal(at.Add(10 * time.Hour)) {
		t.Fatalf("expected eligible_at kept, got %s", stored.EligibleAt)
	}
}

func TestListVotesByUserNewestFirst(t *testing.T) {
	store := NewStore(nil)
	at := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	for i, provider := range []string{"serversmc", "topg", "minecraftlist"} {
		_, err := store.CommitVote(context.Background(), entities.VoteRecord{
			VoteID:      "vote-" + provider,
			UserID:      "alice",
			ProviderID:  provider,
			SubmittedAt: at.Add(time.Duration(i) * time.Minute),
			EligibleAt:  at.Add(24 * time.Hour),
		}, entities.VoteActionClass(provider), ports.VoteEvent{EventID: "e-" + provider, OccurredAt: at})
		if err != nil {
			t.Fatalf("commit %s: %v", provider, err)
		}
	}
	votes, _ := store.ListVotesByUser(context.Background(), "alice", 2)
	if len(votes) != 2 || votes[0].ProviderID != "minecraftlist" || votes[1].ProviderID != "topg" {
		t.Fatalf("unexpected order: %+v", votes)
	}
}
