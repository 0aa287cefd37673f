package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"rewardledger/contexts/player-economy/vote-service/domain/entities"
	"rewardledger/contexts/player-economy/vote-service/ports"
)

var ErrNoConfirmer = errors.New("no confirmer registered for provider type")

// Dispatcher routes each confirmation to the confirmer of the provider's type.
type Dispatcher struct {
	mu         sync.RWMutex
	confirmers map[entities.ProviderType]ports.VoteConfirmer
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{confirmers: make(map[entities.ProviderType]ports.VoteConfirmer)}
}

func (d *Dispatcher) Register(providerType entities.ProviderType, confirmer ports.VoteConfirmer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.confirmers[providerType] = confirmer
}

func (d *Dispatcher) ConfirmVote(ctx context.Context, userID string, provider entities.VoteProvider) (ports.VoteConfirmation, error) {
	d.mu.RLock()
	confirmer, ok := d.confirmers[provider.Type]
	d.mu.RUnlock()
	if !ok {
		return ports.VoteConfirmation{}, fmt.Errorf("%w: %s", ErrNoConfirmer, provider.Type)
	}
	return confirmer.ConfirmVote(ctx, userID, provider)
}

// StaticConfirmer answers every confirmation the same way. It backs local
// runs without vote site credentials.
type StaticConfirmer struct {
	Confirmed bool
	Reason    string
	Err       error
}

func (c StaticConfirmer) ConfirmVote(ctx context.Context, _ string, _ entities.VoteProvider) (ports.VoteConfirmation, error) {
	if err := ctx.Err(); err != nil {
		return ports.VoteConfirmation{}, err
	}
	if c.Err != nil {
		return ports.VoteConfirmation{}, c.Err
	}
	return ports.VoteConfirmation{Confirmed: c.Confirmed, Reason: c.Reason}, nil
}

var (
	_ ports.VoteConfirmer = (*Dispatcher)(nil)
	_ ports.VoteConfirmer = (*Client)(nil)
	_ ports.VoteConfirmer = StaticConfirmer{}
)
