package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"rewardledger/contexts/player-economy/ledger-service/domain/entities"
	domainerrors "rewardledger/contexts/player-economy/ledger-service/domain/errors"
	"rewardledger/contexts/player-economy/ledger-service/ports"
)

func TestCommitBalanceTransferRechecksFundsUnderLock(t *testing.T) {
	store := NewStore([]entities.Account{
		{UserID: "alice", Balance: 100},
		{UserID: "bob"},
	}, nil)
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	err := store.CommitBalanceTransfer(context.Background(), entities.TransferRecord{
		TransferID: "t-1",
		Kind:       entities.TransferKindBalance,
		FromUserID: "alice",
		ToUserID:   "bob",
		Amount:     150,
		Status:     entities.TransferStatusCompleted,
		CreatedAt:  now,
	}, ports.LedgerEvent{EventID: "e-1", EventType: "ledger.transfer.completed", OccurredAt: now}, nil)
	if !errors.Is(err, domainerrors.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if _, err := store.GetTransfer(context.Background(), "t-1"); !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected no record on failed commit, got %v", err)
	}
	if store.OutboxLen() != 0 {
		t.Fatalf("expected no outbox row, got %d", store.OutboxLen())
	}
}

func TestCommitBalanceTransferRejectsDuplicateRequestID(t *testing.T) {
	store := NewStore([]entities.Account{
		{UserID: "alice", Balance: 100},
		{UserID: "bob"},
	}, nil)
	now := time.Now().UTC()
	record := entities.TransferRecord{
		TransferID: "t-1",
		Kind:       entities.TransferKindBalance,
		FromUserID: "alice",
		ToUserID:   "bob",
		Amount:     10,
		Status:     entities.TransferStatusCompleted,
		RequestID:  "req-1",
		CreatedAt:  now,
	}
	if err := store.CommitBalanceTransfer(context.Background(), record, ports.LedgerEvent{EventID: "e-1", OccurredAt: now}, nil); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	record.TransferID = "t-2"
	if err := store.CommitBalanceTransfer(context.Background(), record, ports.LedgerEvent{EventID: "e-2", OccurredAt: now}, nil); !errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		t.Fatalf("expected idempotency conflict, got %v", err)
	}
	balance, _ := store.GetBalance(context.Background(), "bob")
	if balance != 10 {
		t.Fatalf("expected single credit, got %d", balance)
	}
}

func TestListTransfersByUserNewestFirst(t *testing.T) {
	store := NewStore([]entities.Account{{UserID: "alice"}, {UserID: "bob"}}, nil)
	for _, id := range []string{"t-1", "t-2", "t-3"} {
		if err := store.AppendRejectedTransfer(context.Background(), entities.TransferRecord{
			TransferID: id,
			Kind:       entities.TransferKindBalance,
			FromUserID: "alice",
			ToUserID:   "bob",
			Status:     entities.TransferStatusRejected,
			RejectCode: "insufficient_funds",
		}); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}
	items, err := store.ListTransfersByUser(context.Background(), "bob", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].TransferID != "t-3" || items[1].TransferID != "t-2" {
		t.Fatalf("unexpected order: %+v", items)
	}
}

func TestAppendRejectedTransferRefusesCompletedRecords(t *testing.T) {
	store := NewStore(nil, nil)
	err := store.AppendRejectedTransfer(context.Background(), entities.TransferRecord{
		TransferID: "t-1",
		Status:     entities.TransferStatusCompleted,
	})
	if !errors.Is(err, domainerrors.ErrRepositoryInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
}

func TestUsernameLookupIsCaseInsensitive(t *testing.T) {
	store := NewStore([]entities.Account{{UserID: "u-1", Username: "NotchFan"}}, nil)
	account, err := store.GetAccountByUsername(context.Background(), "notchfan")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if account.UserID != "u-1" {
		t.Fatalf("expected u-1, got %s", account.UserID)
	}
}

func keyedTransfer(transferID string, now time.Time) entities.TransferRecord {
	return entities.TransferRecord{
		TransferID: transferID,
		Kind:       entities.TransferKindBalance,
		FromUserID: "alice",
		ToUserID:   "bob",
		Amount:     10,
		Status:     entities.TransferStatusCompleted,
		CreatedAt:  now,
	}
}

func TestCommitBindsIdempotencyKeyWithTransfer(t *testing.T) {
	store := NewStore([]entities.Account{
		{UserID: "alice", Balance: 100},
		{UserID: "bob"},
	}, nil)
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	claim := &ports.IdempotencyRecord{Key: "k", RequestHash: "h", TransferID: "t-1", ExpiresAt: now.Add(time.Hour)}

	if err := store.CommitBalanceTransfer(context.Background(), keyedTransfer("t-1", now), ports.LedgerEvent{EventID: "e-1", OccurredAt: now}, claim); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	record, found, _ := store.Get(context.Background(), "k", now)
	if !found || record.TransferID != "t-1" {
		t.Fatalf("expected key bound to t-1, got %+v found=%v", record, found)
	}

	twin := &ports.IdempotencyRecord{Key: "k", RequestHash: "h", TransferID: "t-2", ExpiresAt: now.Add(time.Hour)}
	err := store.CommitBalanceTransfer(context.Background(), keyedTransfer("t-2", now), ports.LedgerEvent{EventID: "e-2", OccurredAt: now}, twin)
	var replay *domainerrors.ReplayError
	if !errors.As(err, &replay) || replay.TransferID != "t-1" {
		t.Fatalf("expected replay of t-1, got %v", err)
	}

	other := &ports.IdempotencyRecord{Key: "k", RequestHash: "other", TransferID: "t-3", ExpiresAt: now.Add(time.Hour)}
	err = store.CommitBalanceTransfer(context.Background(), keyedTransfer("t-3", now), ports.LedgerEvent{EventID: "e-3", OccurredAt: now}, other)
	if !errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		t.Fatalf("expected idempotency conflict, got %v", err)
	}
	if balance, _ := store.GetBalance(context.Background(), "bob"); balance != 10 {
		t.Fatalf("expected single credit, got %d", balance)
	}
	if store.OutboxLen() != 1 {
		t.Fatalf("expected one outbox row, got %d", store.OutboxLen())
	}
}

func TestIdempotencyRecordsExpire(t *testing.T) {
	store := NewStore([]entities.Account{
		{UserID: "alice", Balance: 100},
		{UserID: "bob"},
	}, nil)
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	claim := &ports.IdempotencyRecord{Key: "k", RequestHash: "h", TransferID: "t-1", ExpiresAt: now.Add(time.Hour)}
	if err := store.CommitBalanceTransfer(context.Background(), keyedTransfer("t-1", now), ports.LedgerEvent{EventID: "e-1", OccurredAt: now}, claim); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, found, _ := store.Get(context.Background(), "k", now); !found {
		t.Fatal("expected live record")
	}
	later := now.Add(2 * time.Hour)
	if _, found, _ := store.Get(context.Background(), "k", later); found {
		t.Fatal("expected expired record to be gone")
	}

	reused := &ports.IdempotencyRecord{Key: "k", RequestHash: "other", TransferID: "t-2", ExpiresAt: later.Add(time.Hour)}
	if err := store.CommitBalanceTransfer(context.Background(), keyedTransfer("t-2", later), ports.LedgerEvent{EventID: "e-2", OccurredAt: later}, reused); err != nil {
		t.Fatalf("expected expired key to be reusable, got %v", err)
	}
}
