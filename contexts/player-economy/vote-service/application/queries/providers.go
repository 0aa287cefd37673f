package queries

import (
	"context"
	"sort"
	"strings"

	"rewardledger/contexts/player-economy/vote-service/domain/entities"
	domainerrors "rewardledger/contexts/player-economy/vote-service/domain/errors"
	"rewardledger/contexts/player-economy/vote-service/ports"
)

type ProviderCatalogUseCase struct {
	Providers ports.ProviderRegistry
}

// ListProviders returns providers ordered by name. Inactive providers are
// included so clients can show them as unavailable.
func (uc ProviderCatalogUseCase) ListProviders(ctx context.Context) ([]entities.VoteProvider, error) {
	providers, err := uc.Providers.ListProviders(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(providers, func(i, j int) bool {
		return strings.ToLower(providers[i].Name) < strings.ToLower(providers[j].Name)
	})
	return providers, nil
}

func (uc ProviderCatalogUseCase) GetProvider(ctx context.Context, providerID string) (entities.VoteProvider, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return entities.VoteProvider{}, domainerrors.ErrInvalidRequest
	}
	return uc.Providers.GetProvider(ctx, providerID)
}
