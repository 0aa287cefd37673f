package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"rewardledger/contexts/player-economy/vote-service/domain/entities"
	domainerrors "rewardledger/contexts/player-economy/vote-service/domain/errors"
	"rewardledger/contexts/player-economy/vote-service/domain/services"
	"rewardledger/contexts/player-economy/vote-service/ports"

	"github.com/google/uuid"
)

type cooldownKey struct {
	userID      string
	actionClass string
}

type outboxRecord struct {
	message ports.OutboxMessage
	sent    bool
}

// Store keeps providers, cooldowns, votes and the outbox in process.
type Store struct {
	mu sync.RWMutex

	providers map[string]entities.VoteProvider
	cooldowns map[cooldownKey]entities.CooldownEntry
	votes     map[string]entities.VoteRecord
	voteOrder []string
	outbox    []outboxRecord
}

func NewStore(providers []entities.VoteProvider) *Store {
	store := &Store{
		providers: make(map[string]entities.VoteProvider, len(providers)),
		cooldowns: make(map[cooldownKey]entities.CooldownEntry),
		votes:     make(map[string]entities.VoteRecord),
	}
	for _, provider := range providers {
		store.providers[strings.TrimSpace(provider.ProviderID)] = provider
	}
	return store
}

func (s *Store) ListProviders(context.Context) ([]entities.VoteProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.VoteProvider, 0, len(s.providers))
	for _, provider := range s.providers {
		items = append(items, provider)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProviderID < items[j].ProviderID })
	return items, nil
}

func (s *Store) GetProvider(_ context.Context, providerID string) (entities.VoteProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	provider, ok := s.providers[strings.TrimSpace(providerID)]
	if !ok {
		return entities.VoteProvider{}, domainerrors.ErrProviderNotFound
	}
	return provider, nil
}

func (s *Store) GetCooldown(_ context.Context, userID string, actionClass string) (entities.CooldownEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cooldowns[cooldownKey{userID: strings.TrimSpace(userID), actionClass: strings.TrimSpace(actionClass)}]
	return entry, ok, nil
}

func (s *Store) ListCooldowns(_ context.Context, userID string) ([]entities.CooldownEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID = strings.TrimSpace(userID)
	items := make([]entities.CooldownEntry, 0)
	for key, entry := range s.cooldowns {
		if key.userID == userID {
			items = append(items, entry)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ActionClass < items[j].ActionClass })
	return items, nil
}

func (s *Store) AdvanceCooldown(_ context.Context, entry entities.CooldownEntry) (entities.CooldownEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanceLocked(entry), nil
}

func (s *Store) CommitVote(_ context.Context, vote entities.VoteRecord, actionClass string, event ports.VoteEvent) (entities.CooldownEntry, error) {
	envelope, err := event.Envelope()
	if err != nil {
		return entities.CooldownEntry{}, err
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return entities.CooldownEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := cooldownKey{userID: vote.UserID, actionClass: actionClass}
	if existing, ok := s.cooldowns[key]; ok && existing.Active(vote.SubmittedAt) {
		return entities.CooldownEntry{}, &domainerrors.CooldownActiveError{
			Remaining:  services.Remaining(&existing, vote.SubmittedAt),
			EligibleAt: existing.EligibleAt,
		}
	}
	if _, exists := s.votes[vote.VoteID]; exists {
		return entities.CooldownEntry{}, domainerrors.ErrInternalCommitFailure
	}

	entry := s.advanceLocked(entities.CooldownEntry{
		UserID:      vote.UserID,
		ActionClass: actionClass,
		EligibleAt:  vote.EligibleAt,
		UpdatedAt:   vote.SubmittedAt,
	})
	s.votes[vote.VoteID] = vote
	s.voteOrder = append(s.voteOrder, vote.VoteID)
	s.outbox = append(s.outbox, outboxRecord{message: ports.OutboxMessage{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      payload,
		CreatedAt:    event.OccurredAt.UTC(),
	}})
	return entry, nil
}

func (s *Store) GetVote(_ context.Context, voteID string) (entities.VoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vote, ok := s.votes[strings.TrimSpace(voteID)]
	if !ok {
		return entities.VoteRecord{}, domainerrors.ErrVoteNotFound
	}
	return vote, nil
}

func (s *Store) ListVotesByUser(_ context.Context, userID string, limit int) ([]entities.VoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID = strings.TrimSpace(userID)
	items := make([]entities.VoteRecord, 0)
	for i := len(s.voteOrder) - 1; i >= 0; i-- {
		vote := s.votes[s.voteOrder[i]]
		if vote.UserID != userID {
			continue
		}
		items = append(items, vote)
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, limit)
	for _, record := range s.outbox {
		if record.sent {
			continue
		}
		items = append(items, record.message)
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxSent(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].message.OutboxID == strings.TrimSpace(outboxID) {
			s.outbox[i].sent = true
			return nil
		}
	}
	return domainerrors.ErrNotFound
}

// OutboxLen counts every row, sent or not.
func (s *Store) OutboxLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.outbox)
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) advanceLocked(entry entities.CooldownEntry) entities.CooldownEntry {
	key := cooldownKey{userID: strings.TrimSpace(entry.UserID), actionClass: strings.TrimSpace(entry.ActionClass)}
	entry.UserID = key.userID
	entry.ActionClass = key.actionClass
	entry.EligibleAt = entry.EligibleAt.UTC()
	if existing, ok := s.cooldowns[key]; ok && existing.EligibleAt.After(entry.EligibleAt) {
		entry.EligibleAt = existing.EligibleAt
	}
	s.cooldowns[key] = entry
	return entry
}

var (
	_ ports.ProviderRegistry   = (*Store)(nil)
	_ ports.CooldownRepository = (*Store)(nil)
	_ ports.VoteRepository     = (*Store)(nil)
	_ ports.OutboxRepository   = (*Store)(nil)
	_ ports.Clock              = (*Store)(nil)
	_ ports.IDGenerator        = (*Store)(nil)
)
