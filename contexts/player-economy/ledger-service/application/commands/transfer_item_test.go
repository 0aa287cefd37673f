package commands

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rewardledger/contexts/player-economy/ledger-service/adapters/memory"
	"rewardledger/contexts/player-economy/ledger-service/domain/entities"
	domainerrors "rewardledger/contexts/player-economy/ledger-service/domain/errors"
)

func seedItem(t *testing.T, store *memory.Store, itemID string, ownerID string) {
	t.Helper()
	item, err := entities.NewRewardItem(itemID, ownerID, "vip-rank-30d", entities.ItemSourcePurchase, "order-1",
		time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("new item: %v", err)
	}
	if err := store.CreateItem(context.Background(), item); err != nil {
		t.Fatalf("create item: %v", err)
	}
}

func itemUseCase(store *memory.Store) TransferItemUseCase {
	return TransferItemUseCase{
		Accounts:    store,
		Ledger:      store,
		Idempotency: store,
		Clock:       fixedClock{now: time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)},
		IDGenerator: store,
	}
}

func TestTransferItemMovesOwnershipAndStaysUnused(t *testing.T) {
	store := seededStore()
	seedItem(t, store, "item-1", "alice")
	uc := itemUseCase(store)

	result, err := uc.Execute(context.Background(), TransferItemCommand{
		FromUserID: "alice",
		ToUserID:   "bob",
		ItemID:     "item-1",
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if !result.Record.Completed() || result.Record.Kind != entities.TransferKindItem {
		t.Fatalf("unexpected record: %+v", result.Record)
	}
	item, err := store.GetItem(context.Background(), "item-1")
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.OwnerID != "bob" || item.State != entities.ItemStateUnused {
		t.Fatalf("expected bob to own unused item, got owner=%s state=%s", item.OwnerID, item.State)
	}

	// The recipient can pass it on again.
	if _, err := uc.Execute(context.Background(), TransferItemCommand{
		FromUserID: "bob",
		ToUserID:   "carol",
		ItemID:     "item-1",
	}); err != nil {
		t.Fatalf("second hop failed: %v", err)
	}
}

func TestTransferItemRejectsNonOwner(t *testing.T) {
	store := seededStore()
	seedItem(t, store, "item-2", "alice")
	uc := itemUseCase(store)

	result, err := uc.Execute(context.Background(), TransferItemCommand{
		FromUserID: "bob",
		ToUserID:   "carol",
		ItemID:     "item-2",
	})
	if !errors.Is(err, domainerrors.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if result.Record.RejectCode != "invalid_state" {
		t.Fatalf("expected invalid_state reject code, got %q", result.Record.RejectCode)
	}
	item, _ := store.GetItem(context.Background(), "item-2")
	if item.OwnerID != "alice" {
		t.Fatalf("expected owner unchanged, got %s", item.OwnerID)
	}
}

func TestTransferItemRejectsUsedItem(t *testing.T) {
	store := seededStore()
	seedItem(t, store, "item-3", "alice")
	if _, err := store.MarkItemUsed(context.Background(), "item-3", "alice", time.Now()); err != nil {
		t.Fatalf("mark used: %v", err)
	}
	uc := itemUseCase(store)

	if _, err := uc.Execute(context.Background(), TransferItemCommand{
		FromUserID: "alice",
		ToUserID:   "bob",
		ItemID:     "item-3",
	}); !errors.Is(err, domainerrors.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestTransferItemRejectsUnknownItemAndSelf(t *testing.T) {
	store := seededStore()
	uc := itemUseCase(store)

	if _, err := uc.Execute(context.Background(), TransferItemCommand{
		FromUserID: "alice",
		ToUserID:   "bob",
		ItemID:     "missing",
	}); !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := uc.Execute(context.Background(), TransferItemCommand{
		FromUserID: "alice",
		ToUserID:   "alice",
		ItemID:     "missing",
	}); !errors.Is(err, domainerrors.ErrSelfTransfer) {
		t.Fatalf("expected self transfer, got %v", err)
	}
}

func TestUseItemIsTerminal(t *testing.T) {
	store := seededStore()
	seedItem(t, store, "item-4", "alice")
	uc := UseItemUseCase{
		Ledger:      store,
		Clock:       fixedClock{now: time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)},
		IDGenerator: store,
	}

	used, err := uc.Execute(context.Background(), UseItemCommand{UserID: "alice", ItemID: "item-4"})
	if err != nil {
		t.Fatalf("use failed: %v", err)
	}
	if used.State != entities.ItemStateUsed || used.UsedAt == nil {
		t.Fatalf("expected used item with timestamp, got %+v", used)
	}
	if store.OutboxLen() != 1 {
		t.Fatalf("expected item used event, got %d", store.OutboxLen())
	}
	if _, err := uc.Execute(context.Background(), UseItemCommand{UserID: "alice", ItemID: "item-4"}); !errors.Is(err, domainerrors.ErrInvalidState) {
		t.Fatalf("expected invalid state on second use, got %v", err)
	}
}

func TestAdjustBalanceNeverGoesNegative(t *testing.T) {
	store := seededStore()
	uc := AdjustBalanceUseCase{Ledger: store}

	account, err := uc.Execute(context.Background(), AdjustBalanceCommand{
		AdminID: "ops-1",
		UserID:  "bob",
		Delta:   2500,
		Reason:  "purchase refund",
	})
	if err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if account.Balance != 2500 || account.Version != 1 {
		t.Fatalf("unexpected account after credit: %+v", account)
	}
	if _, err := uc.Execute(context.Background(), AdjustBalanceCommand{
		AdminID: "ops-1",
		UserID:  "bob",
		Delta:   -3000,
		Reason:  "chargeback",
	}); !errors.Is(err, domainerrors.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if got := mustBalance(t, store, "bob"); got != 2500 {
		t.Fatalf("expected balance unchanged, got %d", got)
	}
}

func TestTransferItemKeyedRequestCommitsOnceUnderConcurrency(t *testing.T) {
	store := seededStore()
	seedItem(t, store, "item-race", "alice")
	uc := itemUseCase(store)
	uc.Ledger = slowLedger{Store: store, delay: 20 * time.Millisecond}
	cmd := TransferItemCommand{
		FromUserID:     "alice",
		ToUserID:       "bob",
		ItemID:         "item-race",
		IdempotencyKey: "item-gift-race",
	}

	results := make([]TransferResult, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = uc.Execute(context.Background(), cmd)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("delivery %d failed: %v", i, err)
		}
	}
	if results[0].Record.TransferID != results[1].Record.TransferID {
		t.Fatalf("expected one transfer, got %s and %s", results[0].Record.TransferID, results[1].Record.TransferID)
	}
	history, _ := store.ListTransfersByUser(context.Background(), "bob", 0)
	if len(history) != 1 {
		t.Fatalf("expected one audited transfer, got %d", len(history))
	}
}
