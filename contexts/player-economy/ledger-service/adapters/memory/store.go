package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"rewardledger/contexts/player-economy/ledger-service/domain/entities"
	domainerrors "rewardledger/contexts/player-economy/ledger-service/domain/errors"
	"rewardledger/contexts/player-economy/ledger-service/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message ports.OutboxMessage
	sent    bool
}

// Store keeps the whole ledger behind one mutex, so every commit method is
// atomic with respect to every other call.
type Store struct {
	mu sync.RWMutex

	accounts    map[string]entities.Account
	items       map[string]entities.RewardItem
	transfers   map[string]entities.TransferRecord
	order       []string
	idempotency map[string]ports.IdempotencyRecord
	outbox      []outboxRecord
	grants      map[string]struct{}
}

func NewStore(accounts []entities.Account, items []entities.RewardItem) *Store {
	store := &Store{
		accounts:    make(map[string]entities.Account, len(accounts)),
		items:       make(map[string]entities.RewardItem, len(items)),
		transfers:   make(map[string]entities.TransferRecord),
		idempotency: make(map[string]ports.IdempotencyRecord),
		grants:      make(map[string]struct{}),
	}
	for _, account := range accounts {
		store.accounts[strings.TrimSpace(account.UserID)] = account
	}
	for _, item := range items {
		store.items[strings.TrimSpace(item.ItemID)] = item
	}
	return store
}

// SeedAccount inserts or replaces an account row.
func (s *Store) SeedAccount(account entities.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[strings.TrimSpace(account.UserID)] = account
}

func (s *Store) GetAccount(_ context.Context, userID string) (entities.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[strings.TrimSpace(userID)]
	if !ok {
		return entities.Account{}, domainerrors.ErrAccountNotFound
	}
	return account, nil
}

func (s *Store) GetAccountByUsername(_ context.Context, username string) (entities.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	username = strings.TrimSpace(username)
	for _, account := range s.accounts {
		if strings.EqualFold(account.Username, username) {
			return account, nil
		}
	}
	return entities.Account{}, domainerrors.ErrAccountNotFound
}

func (s *Store) GetBalance(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[strings.TrimSpace(userID)]
	if !ok {
		return 0, domainerrors.ErrAccountNotFound
	}
	return account.Balance, nil
}

func (s *Store) AdjustBalance(_ context.Context, userID string, delta int64, at time.Time) (entities.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(userID)
	account, ok := s.accounts[key]
	if !ok {
		return entities.Account{}, domainerrors.ErrAccountNotFound
	}
	updated, err := account.Adjust(delta, at)
	if err != nil {
		return entities.Account{}, err
	}
	s.accounts[key] = updated
	return updated, nil
}

func (s *Store) GetItem(_ context.Context, itemID string) (entities.RewardItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[strings.TrimSpace(itemID)]
	if !ok {
		return entities.RewardItem{}, domainerrors.ErrItemNotFound
	}
	return item, nil
}

func (s *Store) ListItemsByOwner(_ context.Context, ownerID string, state entities.ItemState) ([]entities.RewardItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ownerID = strings.TrimSpace(ownerID)
	items := make([]entities.RewardItem, 0)
	for _, item := range s.items {
		if item.OwnerID != ownerID {
			continue
		}
		if state != "" && item.State != state {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ItemID < items[j].ItemID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) TransferItemOwnership(_ context.Context, itemID string, fromUserID string, toUserID string, at time.Time) (entities.RewardItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveItemLocked(itemID, fromUserID, toUserID, at)
}

func (s *Store) MarkItemUsed(_ context.Context, itemID string, userID string, at time.Time) (entities.RewardItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markUsedLocked(itemID, userID, at)
}

func (s *Store) CreateItem(_ context.Context, item entities.RewardItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(item.ItemID)
	if _, exists := s.items[key]; exists {
		return domainerrors.ErrRepositoryInvariant
	}
	if _, ok := s.accounts[strings.TrimSpace(item.OwnerID)]; !ok {
		return domainerrors.ErrAccountNotFound
	}
	s.items[key] = item
	return nil
}

func (s *Store) CommitBalanceTransfer(_ context.Context, record entities.TransferRecord, event ports.LedgerEvent, claim *ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkClaimLocked(claim, record.CreatedAt); err != nil {
		return err
	}
	if err := s.checkRequestLocked(record); err != nil {
		return err
	}
	from, ok := s.accounts[record.FromUserID]
	if !ok {
		return domainerrors.ErrAccountNotFound
	}
	to, ok := s.accounts[record.ToUserID]
	if !ok {
		return domainerrors.ErrAccountNotFound
	}
	debited, err := from.Adjust(-record.Amount, record.CreatedAt)
	if err != nil {
		return err
	}
	credited, err := to.Adjust(record.Amount, record.CreatedAt)
	if err != nil {
		return err
	}
	payload, err := encodeEvent(event)
	if err != nil {
		return err
	}

	s.accounts[debited.UserID] = debited
	s.accounts[credited.UserID] = credited
	s.appendTransferLocked(record)
	s.appendOutboxLocked(event, payload)
	s.bindClaimLocked(claim)
	return nil
}

func (s *Store) CommitItemTransfer(_ context.Context, record entities.TransferRecord, event ports.LedgerEvent, claim *ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkClaimLocked(claim, record.CreatedAt); err != nil {
		return err
	}
	if err := s.checkRequestLocked(record); err != nil {
		return err
	}
	if _, ok := s.accounts[record.ToUserID]; !ok {
		return domainerrors.ErrAccountNotFound
	}
	payload, err := encodeEvent(event)
	if err != nil {
		return err
	}
	if _, err := s.moveItemLocked(record.ItemID, record.FromUserID, record.ToUserID, record.CreatedAt); err != nil {
		return err
	}
	s.appendTransferLocked(record)
	s.appendOutboxLocked(event, payload)
	s.bindClaimLocked(claim)
	return nil
}

func (s *Store) CommitItemUse(_ context.Context, itemID string, userID string, at time.Time, event ports.LedgerEvent) (entities.RewardItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := encodeEvent(event)
	if err != nil {
		return entities.RewardItem{}, err
	}
	used, err := s.markUsedLocked(itemID, userID, at)
	if err != nil {
		return entities.RewardItem{}, err
	}
	s.appendOutboxLocked(event, payload)
	return used, nil
}

func (s *Store) AppendRejectedTransfer(_ context.Context, record entities.TransferRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.Completed() {
		return domainerrors.ErrRepositoryInvariant
	}
	s.appendTransferLocked(record)
	return nil
}

func (s *Store) GetTransfer(_ context.Context, transferID string) (entities.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.transfers[strings.TrimSpace(transferID)]
	if !ok {
		return entities.TransferRecord{}, domainerrors.ErrTransferNotFound
	}
	return record, nil
}

func (s *Store) ListTransfersByUser(_ context.Context, userID string, limit int) ([]entities.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID = strings.TrimSpace(userID)
	items := make([]entities.TransferRecord, 0)
	for i := len(s.order) - 1; i >= 0; i-- {
		record := s.transfers[s.order[i]]
		if record.FromUserID != userID && record.ToUserID != userID {
			continue
		}
		items = append(items, record)
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) ApplyVoteReward(_ context.Context, reward entities.VoteReward) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	grantID := strings.TrimSpace(reward.GrantID)
	if _, done := s.grants[grantID]; done {
		return false, nil
	}
	account, ok := s.accounts[strings.TrimSpace(reward.UserID)]
	if !ok {
		return false, domainerrors.ErrAccountNotFound
	}

	var item *entities.RewardItem
	if strings.TrimSpace(reward.ProductID) != "" {
		created, err := entities.NewRewardItem(
			reward.ItemID,
			account.UserID,
			reward.ProductID,
			entities.ItemSourceVoteReward,
			grantID,
			reward.GrantedAt,
		)
		if err != nil {
			return false, err
		}
		item = &created
	}
	if reward.Amount > 0 {
		updated, err := account.Adjust(reward.Amount, reward.GrantedAt)
		if err != nil {
			return false, err
		}
		s.accounts[account.UserID] = updated
	}
	if item != nil {
		s.items[item.ItemID] = *item
	}
	s.grants[grantID] = struct{}{}
	return true, nil
}

func (s *Store) Get(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = strings.TrimSpace(key)
	record, exists := s.idempotency[key]
	if !exists {
		return ports.IdempotencyRecord{}, false, nil
	}
	if !record.ExpiresAt.After(now.UTC()) {
		delete(s.idempotency, key)
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0)
	for _, row := range s.outbox {
		if row.sent {
			continue
		}
		items = append(items, row.message)
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxSent(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	outboxID = strings.TrimSpace(outboxID)
	for i := range s.outbox {
		if s.outbox[i].message.OutboxID == outboxID {
			s.outbox[i].sent = true
			return nil
		}
	}
	return domainerrors.ErrRepositoryInvariant
}

// OutboxLen reports how many events were committed, relayed or not.
func (s *Store) OutboxLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.outbox)
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// checkClaimLocked refuses a key that is still bound to an earlier commit.
func (s *Store) checkClaimLocked(claim *ports.IdempotencyRecord, now time.Time) error {
	if claim == nil {
		return nil
	}
	existing, exists := s.idempotency[strings.TrimSpace(claim.Key)]
	if !exists || !existing.ExpiresAt.After(now.UTC()) {
		return nil
	}
	if existing.RequestHash != strings.TrimSpace(claim.RequestHash) {
		return domainerrors.ErrIdempotencyConflict
	}
	return &domainerrors.ReplayError{TransferID: existing.TransferID}
}

func (s *Store) bindClaimLocked(claim *ports.IdempotencyRecord) {
	if claim == nil {
		return
	}
	key := strings.TrimSpace(claim.Key)
	s.idempotency[key] = ports.IdempotencyRecord{
		Key:         key,
		RequestHash: strings.TrimSpace(claim.RequestHash),
		TransferID:  strings.TrimSpace(claim.TransferID),
		ExpiresAt:   claim.ExpiresAt.UTC(),
	}
}

// checkRequestLocked mirrors the unique (from_user_id, request_id) index over
// completed transfers.
func (s *Store) checkRequestLocked(record entities.TransferRecord) error {
	if record.RequestID == "" {
		return nil
	}
	for _, existing := range s.transfers {
		if existing.Completed() &&
			existing.FromUserID == record.FromUserID &&
			existing.RequestID == record.RequestID {
			return domainerrors.ErrIdempotencyConflict
		}
	}
	return nil
}

func (s *Store) moveItemLocked(itemID string, fromUserID string, toUserID string, at time.Time) (entities.RewardItem, error) {
	key := strings.TrimSpace(itemID)
	item, ok := s.items[key]
	if !ok {
		return entities.RewardItem{}, domainerrors.ErrItemNotFound
	}
	moved, err := item.TransferTo(strings.TrimSpace(fromUserID), strings.TrimSpace(toUserID), at)
	if err != nil {
		return entities.RewardItem{}, err
	}
	s.items[key] = moved
	return moved, nil
}

func (s *Store) markUsedLocked(itemID string, userID string, at time.Time) (entities.RewardItem, error) {
	key := strings.TrimSpace(itemID)
	item, ok := s.items[key]
	if !ok {
		return entities.RewardItem{}, domainerrors.ErrItemNotFound
	}
	used, err := item.MarkUsed(strings.TrimSpace(userID), at)
	if err != nil {
		return entities.RewardItem{}, err
	}
	s.items[key] = used
	return used, nil
}

func (s *Store) appendTransferLocked(record entities.TransferRecord) {
	s.transfers[record.TransferID] = record
	s.order = append(s.order, record.TransferID)
}

func (s *Store) appendOutboxLocked(event ports.LedgerEvent, payload []byte) {
	outboxID := strings.TrimSpace(event.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	s.outbox = append(s.outbox, outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    event.EventType,
			PartitionKey: event.PartitionKey,
			Payload:      payload,
			CreatedAt:    event.OccurredAt.UTC(),
		},
	})
}

func encodeEvent(event ports.LedgerEvent) ([]byte, error) {
	envelope, err := event.Envelope()
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope)
}
