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
	"rewardledger/contexts/player-economy/ledger-service/ports"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

// faultyLedger fails commits on demand and records the commit context state.
type faultyLedger struct {
	*memory.Store
	commitErr        error
	commitCtxErr     error
	commitCtxChecked bool
}

func (f *faultyLedger) CommitBalanceTransfer(ctx context.Context, record entities.TransferRecord, event ports.LedgerEvent, claim *ports.IdempotencyRecord) error {
	f.commitCtxChecked = true
	f.commitCtxErr = ctx.Err()
	if f.commitErr != nil {
		return f.commitErr
	}
	return f.Store.CommitBalanceTransfer(ctx, record, event, claim)
}

// slowLedger widens the window between the precondition read and the commit.
type slowLedger struct {
	*memory.Store
	delay time.Duration
}

func (l slowLedger) GetBalance(ctx context.Context, userID string) (int64, error) {
	balance, err := l.Store.GetBalance(ctx, userID)
	time.Sleep(l.delay)
	return balance, err
}

func (l slowLedger) GetItem(ctx context.Context, itemID string) (entities.RewardItem, error) {
	item, err := l.Store.GetItem(ctx, itemID)
	time.Sleep(l.delay)
	return item, err
}

func seededStore() *memory.Store {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	return memory.NewStore([]entities.Account{
		{UserID: "alice", Username: "Alice", Balance: 10000, CreatedAt: now, UpdatedAt: now},
		{UserID: "bob", Username: "Bob", Balance: 0, CreatedAt: now, UpdatedAt: now},
		{UserID: "carol", Username: "Carol", Balance: 5000, CreatedAt: now, UpdatedAt: now},
	}, nil)
}

func balanceUseCase(store *memory.Store, ledger ports.LedgerRepository) TransferBalanceUseCase {
	return TransferBalanceUseCase{
		Accounts:    store,
		Ledger:      ledger,
		Idempotency: store,
		Clock:       fixedClock{now: time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)},
		IDGenerator: store,
	}
}

func mustBalance(t *testing.T, store *memory.Store, userID string) int64 {
	t.Helper()
	balance, err := store.GetBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("get balance %s: %v", userID, err)
	}
	return balance
}

func TestTransferBalanceMovesFundsAndQueuesEvent(t *testing.T) {
	store := seededStore()
	uc := balanceUseCase(store, store)

	result, err := uc.Execute(context.Background(), TransferBalanceCommand{
		FromUserID: "alice",
		ToUserID:   "bob",
		Amount:     4000,
		RequestID:  "req-1",
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if result.Record.Status != entities.TransferStatusCompleted {
		t.Fatalf("expected completed record, got %s", result.Record.Status)
	}
	if got := mustBalance(t, store, "alice"); got != 6000 {
		t.Fatalf("expected alice 6000, got %d", got)
	}
	if got := mustBalance(t, store, "bob"); got != 4000 {
		t.Fatalf("expected bob 4000, got %d", got)
	}
	if store.OutboxLen() != 1 {
		t.Fatalf("expected one outbox event, got %d", store.OutboxLen())
	}
	stored, err := store.GetTransfer(context.Background(), result.Record.TransferID)
	if err != nil {
		t.Fatalf("audit record missing: %v", err)
	}
	if stored.Amount != 4000 || stored.FromUserID != "alice" || stored.ToUserID != "bob" {
		t.Fatalf("unexpected audit record: %+v", stored)
	}
}

func TestTransferBalanceRejectsSelfTransferBeforeAnythingElse(t *testing.T) {
	store := seededStore()
	uc := balanceUseCase(store, store)

	for _, userID := range []string{"alice", "ghost", ""} {
		result, err := uc.Execute(context.Background(), TransferBalanceCommand{
			FromUserID: userID,
			ToUserID:   userID,
			Amount:     -5,
		})
		if !errors.Is(err, domainerrors.ErrSelfTransfer) {
			t.Fatalf("user %q: expected self transfer, got %v", userID, err)
		}
		if result.Record.RejectCode != "self_transfer" {
			t.Fatalf("user %q: expected self_transfer reject code, got %q", userID, result.Record.RejectCode)
		}
	}
	if got := mustBalance(t, store, "alice"); got != 10000 {
		t.Fatalf("expected alice untouched, got %d", got)
	}
}

func TestTransferBalanceRejectsNonPositiveAmounts(t *testing.T) {
	store := seededStore()
	uc := balanceUseCase(store, store)

	for _, amount := range []int64{0, -100} {
		_, err := uc.Execute(context.Background(), TransferBalanceCommand{
			FromUserID: "alice",
			ToUserID:   "bob",
			Amount:     amount,
		})
		if !errors.Is(err, domainerrors.ErrInvalidAmount) {
			t.Fatalf("amount %d: expected invalid amount, got %v", amount, err)
		}
	}
	if got := mustBalance(t, store, "bob"); got != 0 {
		t.Fatalf("expected bob untouched, got %d", got)
	}
	if store.OutboxLen() != 0 {
		t.Fatalf("expected no outbox events, got %d", store.OutboxLen())
	}
}

func TestTransferBalanceRejectsInsufficientFundsAndAudits(t *testing.T) {
	store := seededStore()
	uc := balanceUseCase(store, store)

	result, err := uc.Execute(context.Background(), TransferBalanceCommand{
		FromUserID: "bob",
		ToUserID:   "alice",
		Amount:     1,
	})
	if !errors.Is(err, domainerrors.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	stored, err := store.GetTransfer(context.Background(), result.Record.TransferID)
	if err != nil {
		t.Fatalf("rejected record missing: %v", err)
	}
	if stored.Status != entities.TransferStatusRejected || stored.RejectCode != "insufficient_funds" {
		t.Fatalf("unexpected rejected record: %+v", stored)
	}
	if got := mustBalance(t, store, "alice"); got != 10000 {
		t.Fatalf("expected alice untouched, got %d", got)
	}
}

func TestTransferBalanceRejectsUnknownParties(t *testing.T) {
	store := seededStore()
	uc := balanceUseCase(store, store)

	if _, err := uc.Execute(context.Background(), TransferBalanceCommand{
		FromUserID: "ghost",
		ToUserID:   "bob",
		Amount:     100,
	}); !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected not found for unknown sender, got %v", err)
	}
	if _, err := uc.Execute(context.Background(), TransferBalanceCommand{
		FromUserID: "alice",
		ToUserID:   "ghost",
		Amount:     100,
	}); !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected not found for unknown recipient, got %v", err)
	}
	if got := mustBalance(t, store, "alice"); got != 10000 {
		t.Fatalf("expected alice untouched, got %d", got)
	}
}

func TestTransferBalanceChecksFundsBeforeRecipient(t *testing.T) {
	store := seededStore()
	uc := balanceUseCase(store, store)

	_, err := uc.Execute(context.Background(), TransferBalanceCommand{
		FromUserID: "bob",
		ToUserID:   "ghost",
		Amount:     100,
	})
	if !errors.Is(err, domainerrors.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds to win over unknown recipient, got %v", err)
	}
}

func TestTransferBalanceConservesTotalUnderConcurrency(t *testing.T) {
	store := seededStore()
	uc := balanceUseCase(store, store)
	total := mustBalance(t, store, "alice") + mustBalance(t, store, "bob") + mustBalance(t, store, "carol")

	pairs := [][2]string{{"alice", "bob"}, {"bob", "alice"}, {"carol", "alice"}, {"bob", "carol"}}
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		pair := pairs[i%len(pairs)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = uc.Execute(context.Background(), TransferBalanceCommand{
				FromUserID: pair[0],
				ToUserID:   pair[1],
				Amount:     700,
			})
		}()
	}
	wg.Wait()

	after := int64(0)
	for _, userID := range []string{"alice", "bob", "carol"} {
		balance := mustBalance(t, store, userID)
		if balance < 0 {
			t.Fatalf("balance of %s went negative: %d", userID, balance)
		}
		after += balance
	}
	if after != total {
		t.Fatalf("expected total %d preserved, got %d", total, after)
	}
}

func TestTransferBalanceReplaysSameIdempotencyKey(t *testing.T) {
	store := seededStore()
	uc := balanceUseCase(store, store)
	cmd := TransferBalanceCommand{
		FromUserID:     "alice",
		ToUserID:       "bob",
		Amount:         1500,
		IdempotencyKey: "gift-1",
	}

	first, err := uc.Execute(context.Background(), cmd)
	if err != nil {
		t.Fatalf("first transfer failed: %v", err)
	}
	second, err := uc.Execute(context.Background(), cmd)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !second.Replayed || second.Record.TransferID != first.Record.TransferID {
		t.Fatalf("expected replay of %s, got %+v", first.Record.TransferID, second)
	}
	if got := mustBalance(t, store, "bob"); got != 1500 {
		t.Fatalf("expected single credit, got %d", got)
	}

	cmd.Amount = 2000
	if _, err := uc.Execute(context.Background(), cmd); !errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		t.Fatalf("expected idempotency conflict, got %v", err)
	}
}

func TestTransferBalanceFallsBackToRequestIDForDedupe(t *testing.T) {
	store := seededStore()
	uc := balanceUseCase(store, store)
	cmd := TransferBalanceCommand{
		FromUserID: "alice",
		ToUserID:   "bob",
		Amount:     100,
		RequestID:  "client-req-7",
	}
	if _, err := uc.Execute(context.Background(), cmd); err != nil {
		t.Fatalf("first transfer failed: %v", err)
	}
	second, err := uc.Execute(context.Background(), cmd)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !second.Replayed {
		t.Fatalf("expected request id replay")
	}
	if got := mustBalance(t, store, "bob"); got != 100 {
		t.Fatalf("expected single credit, got %d", got)
	}
}

func TestTransferBalanceSurfacesCommitFailureWithoutPartialWrites(t *testing.T) {
	store := seededStore()
	ledger := &faultyLedger{Store: store, commitErr: errors.New("connection reset")}
	uc := balanceUseCase(store, ledger)

	_, err := uc.Execute(context.Background(), TransferBalanceCommand{
		FromUserID: "alice",
		ToUserID:   "bob",
		Amount:     100,
	})
	if !errors.Is(err, domainerrors.ErrInternalCommitFailure) {
		t.Fatalf("expected internal commit failure, got %v", err)
	}
	if got := mustBalance(t, store, "alice"); got != 10000 {
		t.Fatalf("expected alice untouched, got %d", got)
	}
	if store.OutboxLen() != 0 {
		t.Fatalf("expected no outbox event, got %d", store.OutboxLen())
	}
}

func TestTransferBalanceCommitIgnoresCallerCancellation(t *testing.T) {
	store := seededStore()
	ledger := &faultyLedger{Store: store}
	uc := balanceUseCase(store, ledger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := uc.Execute(ctx, TransferBalanceCommand{
		FromUserID: "alice",
		ToUserID:   "bob",
		Amount:     100,
	}); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if !ledger.commitCtxChecked || ledger.commitCtxErr != nil {
		t.Fatalf("expected live commit context, got checked=%v err=%v", ledger.commitCtxChecked, ledger.commitCtxErr)
	}
	if got := mustBalance(t, store, "bob"); got != 100 {
		t.Fatalf("expected bob credited, got %d", got)
	}
}

func TestTransferBalanceKeyedRequestCommitsOnceUnderConcurrency(t *testing.T) {
	store := seededStore()
	uc := balanceUseCase(store, slowLedger{Store: store, delay: 20 * time.Millisecond})
	cmd := TransferBalanceCommand{
		FromUserID:     "alice",
		ToUserID:       "bob",
		Amount:         1000,
		IdempotencyKey: "gift-race",
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
		t.Fatalf("expected both deliveries to report one transfer, got %s and %s",
			results[0].Record.TransferID, results[1].Record.TransferID)
	}
	if results[0].Replayed == results[1].Replayed {
		t.Fatalf("expected exactly one replay, got %v and %v", results[0].Replayed, results[1].Replayed)
	}
	if got := mustBalance(t, store, "bob"); got != 1000 {
		t.Fatalf("expected a single credit of 1000, got %d", got)
	}
	if store.OutboxLen() != 1 {
		t.Fatalf("expected one outbox event, got %d", store.OutboxLen())
	}
}
