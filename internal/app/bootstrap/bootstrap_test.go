package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"rewardledger/contexts/player-economy/ledger-service/domain/entities"
	"rewardledger/contexts/player-economy/vote-service/adapters/providers"
	voteentities "rewardledger/contexts/player-economy/vote-service/domain/entities"
	voteerrors "rewardledger/contexts/player-economy/vote-service/domain/errors"
	voteports "rewardledger/contexts/player-economy/vote-service/ports"
	votehttp "rewardledger/contexts/player-economy/vote-service/transport/http"
	contractsv1 "rewardledger/contracts/events/v1"
	"rewardledger/internal/platform/config"
)

func memoryConfig() config.Config {
	return config.Config{
		ServiceName:         "rewardledger-test",
		StorageBackend:      config.StorageBackendMemory,
		VoteConfirmTimeout:  time.Second,
		VoteRewardAmount:    500,
		VoteRewardProductID: "vote-crate",
		SeedAccounts:        []config.SeedAccount{{UserID: "alice", Username: "Alice"}},
		CommitTimeout:       5 * time.Second,
		IdempotencyTTL:      time.Hour,
		CurrencyScale:       2,
		OutboxBatchSize:     10,
	}
}

func TestMemoryPipelineCreditsConfirmedVoteOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	built, err := buildModules(ctx, memoryConfig(), slog.Default())
	if err != nil {
		t.Fatalf("build modules: %v", err)
	}
	resp, err := built.vote.Handler.SubmitVoteHandler(ctx, votehttp.SubmitVoteRequest{
		UserID:     "alice",
		ProviderID: "serversmc",
	})
	if err != nil || !resp.Success {
		t.Fatalf("submit vote: resp=%+v err=%v", resp, err)
	}

	pipeline := newEventPipeline(built, nil, 10, time.Second, slog.Default())
	if err := pipeline.rewards.Start(ctx); err != nil {
		t.Fatalf("start consumer: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := pipeline.RunOnce(ctx); err != nil {
			t.Fatalf("pipeline tick %d: %v", i, err)
		}
	}

	balance, err := built.ledger.Store.GetBalance(ctx, "alice")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 500 {
		t.Fatalf("expected one reward credit of 500, got %d", balance)
	}
	items, _ := built.ledger.Store.ListItemsByOwner(ctx, "alice", entities.ItemStateUnused)
	if len(items) != 1 || items[0].ProductID != "vote-crate" {
		t.Fatalf("expected one vote crate, got %+v", items)
	}
	pending, _ := built.vote.Store.ListPendingOutbox(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected drained vote outbox, got %d rows", len(pending))
	}
}

func TestVoteFromUnknownPlayerIsRejected(t *testing.T) {
	ctx := context.Background()
	built, err := buildModules(ctx, memoryConfig(), slog.Default())
	if err != nil {
		t.Fatalf("build modules: %v", err)
	}
	_, err = built.vote.Handler.SubmitVoteHandler(ctx, votehttp.SubmitVoteRequest{
		UserID:     "ghost",
		ProviderID: "serversmc",
	})
	if !errors.Is(err, voteerrors.ErrNotFound) {
		t.Fatalf("expected not found for unknown player, got %v", err)
	}
	pending, _ := built.vote.Store.ListPendingOutbox(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected no vote outbox row, got %d", len(pending))
	}
}

func TestUncreditableVoteDoesNotBlockLaterRewards(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	built, err := buildModules(ctx, memoryConfig(), slog.Default())
	if err != nil {
		t.Fatalf("build modules: %v", err)
	}
	// A row for a player the ledger does not know, queued ahead of alice.
	now := time.Now().UTC()
	ghostVote := voteentities.VoteRecord{
		VoteID:       "vote-ghost",
		UserID:       "ghost",
		ProviderID:   "topg",
		SubmittedAt:  now,
		EligibleAt:   now.Add(12 * time.Hour),
		RewardAmount: 500,
	}
	if _, err := built.vote.Store.CommitVote(ctx, ghostVote, "vote:topg", voteports.VoteEvent{
		EventID:      "evt-ghost",
		EventType:    contractsv1.EventTypeVoteConfirmed,
		PartitionKey: "ghost",
		OccurredAt:   now,
		Data: contractsv1.VoteConfirmedData{
			VoteID:       ghostVote.VoteID,
			UserID:       ghostVote.UserID,
			ProviderID:   ghostVote.ProviderID,
			RewardAmount: ghostVote.RewardAmount,
			EligibleAt:   ghostVote.EligibleAt.Format(time.RFC3339),
		},
	}); err != nil {
		t.Fatalf("commit ghost vote: %v", err)
	}
	if resp, err := built.vote.Handler.SubmitVoteHandler(ctx, votehttp.SubmitVoteRequest{
		UserID:     "alice",
		ProviderID: "serversmc",
	}); err != nil || !resp.Success {
		t.Fatalf("submit vote: resp=%+v err=%v", resp, err)
	}

	pipeline := newEventPipeline(built, nil, 10, time.Second, slog.Default())
	if err := pipeline.rewards.Start(ctx); err != nil {
		t.Fatalf("start consumer: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := pipeline.RunOnce(ctx); err != nil {
			t.Fatalf("pipeline tick %d: %v", i, err)
		}
	}

	balance, _ := built.ledger.Store.GetBalance(ctx, "alice")
	if balance != 500 {
		t.Fatalf("expected alice credited, got %d", balance)
	}
	pending, _ := built.vote.Store.ListPendingOutbox(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected drained vote outbox, got %d rows", len(pending))
	}
}

func TestDefaultVoteProviders(t *testing.T) {
	registry, err := loadVoteProviders("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	list := registry.Providers()
	if len(list) != 4 {
		t.Fatalf("expected four default providers, got %d", len(list))
	}
	for _, provider := range list {
		if !provider.IsActive || !provider.Type.Valid() {
			t.Fatalf("unexpected default provider: %+v", provider)
		}
		if provider.ProviderID == "topg" && provider.CooldownHours != 12 {
			t.Fatalf("expected 12h topg cooldown, got %d", provider.CooldownHours)
		}
	}
}

func TestBuildConfirmer(t *testing.T) {
	cfg := memoryConfig()
	if _, ok := buildConfirmer(cfg, slog.Default()).(providers.StaticConfirmer); !ok {
		t.Fatal("expected stubbed confirmer without credentials in memory mode")
	}

	cfg.VoteProviders = map[string]config.VoteProviderCredentials{
		"topg": {BaseURL: "https://topg.example", APIKey: "k"},
	}
	if _, ok := buildConfirmer(cfg, slog.Default()).(*providers.Dispatcher); !ok {
		t.Fatal("expected dispatcher when credentials are configured")
	}

	cfg.VoteProviders = nil
	cfg.StorageBackend = config.StorageBackendPostgres
	if _, ok := buildConfirmer(cfg, slog.Default()).(*providers.Dispatcher); !ok {
		t.Fatal("expected empty dispatcher for postgres without credentials")
	}
}

func TestBuildWorkerRequiresPostgres(t *testing.T) {
	if _, err := BuildWorker(context.Background(), memoryConfig(), slog.Default()); err == nil {
		t.Fatal("expected memory worker to be rejected")
	}
}

func TestNormalizeAddr(t *testing.T) {
	for input, want := range map[string]string{"": ":8080", "9090": ":9090", ":7000": ":7000"} {
		if got := normalizeAddr(input); got != want {
			t.Fatalf("normalizeAddr(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNewLoggerHonoursFormatAndLevel(t *testing.T) {
	var out bytes.Buffer
	logger := NewLogger(config.Config{LogFormat: "text", LogLevel: "warn"}, &out)
	logger.Info("hidden")
	logger.Warn("shown", "event", "level_check")
	if strings.Contains(out.String(), "hidden") {
		t.Fatalf("info line should be filtered: %s", out.String())
	}
	if !strings.Contains(out.String(), "event=level_check") {
		t.Fatalf("expected text handler output, got %s", out.String())
	}
}
