package registryfile

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"rewardledger/contexts/player-economy/vote-service/domain/entities"
	domainerrors "rewardledger/contexts/player-economy/vote-service/domain/errors"
	"rewardledger/contexts/player-economy/vote-service/ports"

	"gopkg.in/yaml.v2"
)

const defaultCooldownHours = 24

type providerDocument struct {
	Providers []providerEntry `yaml:"providers"`
}

type providerEntry struct {
	ID              string `yaml:"id"`
	Type            string `yaml:"type"`
	Name            string `yaml:"name"`
	Description     string `yaml:"description"`
	Image           string `yaml:"image"`
	WebsiteURL      string `yaml:"website_url"`
	IsActive        *bool  `yaml:"is_active"`
	CooldownHours   int    `yaml:"cooldown_hours"`
	RewardAmount    *int64 `yaml:"reward_amount"`
	RewardProductID string `yaml:"reward_product_id"`
}

// Registry is an immutable provider list loaded from YAML.
type Registry struct {
	providers map[string]entities.VoteProvider
}

func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vote providers file: %w", err)
	}
	return Parse(raw)
}

// Parse validates every entry: ids are unique, types are known and cooldowns
// are not negative. An omitted is_active means active and an omitted
// cooldown_hours means 24.
func Parse(raw []byte) (*Registry, error) {
	var doc providerDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse vote providers: %w", err)
	}
	registry := &Registry{providers: make(map[string]entities.VoteProvider, len(doc.Providers))}
	for i, entry := range doc.Providers {
		provider, err := entry.toEntity()
		if err != nil {
			return nil, fmt.Errorf("vote provider #%d: %w", i+1, err)
		}
		if _, exists := registry.providers[provider.ProviderID]; exists {
			return nil, fmt.Errorf("vote provider #%d: duplicate id %q", i+1, provider.ProviderID)
		}
		registry.providers[provider.ProviderID] = provider
	}
	return registry, nil
}

func (e providerEntry) toEntity() (entities.VoteProvider, error) {
	id := strings.TrimSpace(e.ID)
	if id == "" {
		return entities.VoteProvider{}, fmt.Errorf("id is required")
	}
	providerType := entities.ProviderType(strings.ToLower(strings.TrimSpace(e.Type)))
	if !providerType.Valid() {
		return entities.VoteProvider{}, fmt.Errorf("unknown type %q", e.Type)
	}
	if e.CooldownHours < 0 {
		return entities.VoteProvider{}, fmt.Errorf("cooldown_hours must not be negative")
	}
	cooldownHours := e.CooldownHours
	if cooldownHours == 0 {
		cooldownHours = defaultCooldownHours
	}
	active := true
	if e.IsActive != nil {
		active = *e.IsActive
	}
	name := strings.TrimSpace(e.Name)
	if name == "" {
		name = id
	}
	return entities.VoteProvider{
		ProviderID:      id,
		Type:            providerType,
		Name:            name,
		Description:     strings.TrimSpace(e.Description),
		ImageURL:        strings.TrimSpace(e.Image),
		WebsiteURL:      strings.TrimSpace(e.WebsiteURL),
		IsActive:        active,
		CooldownHours:   cooldownHours,
		RewardAmount:    e.RewardAmount,
		RewardProductID: strings.TrimSpace(e.RewardProductID),
	}, nil
}

func (r *Registry) ListProviders(context.Context) ([]entities.VoteProvider, error) {
	items := make([]entities.VoteProvider, 0, len(r.providers))
	for _, provider := range r.providers {
		items = append(items, provider)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProviderID < items[j].ProviderID })
	return items, nil
}

func (r *Registry) GetProvider(_ context.Context, providerID string) (entities.VoteProvider, error) {
	provider, ok := r.providers[strings.TrimSpace(providerID)]
	if !ok {
		return entities.VoteProvider{}, domainerrors.ErrProviderNotFound
	}
	return provider, nil
}

// Providers returns the loaded providers for seeding other stores.
func (r *Registry) Providers() []entities.VoteProvider {
	items, _ := r.ListProviders(context.Background())
	return items
}

var _ ports.ProviderRegistry = (*Registry)(nil)
