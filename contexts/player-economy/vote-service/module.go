package voteservice

import (
	"log/slog"
	"time"

	httpadapter "rewardledger/contexts/player-economy/vote-service/adapters/http"
	"rewardledger/contexts/player-economy/vote-service/adapters/memory"
	application "rewardledger/contexts/player-economy/vote-service/application"
	"rewardledger/contexts/player-economy/vote-service/application/commands"
	"rewardledger/contexts/player-economy/vote-service/application/queries"
	"rewardledger/contexts/player-economy/vote-service/application/workers"
	"rewardledger/contexts/player-economy/vote-service/domain/entities"
	"rewardledger/contexts/player-economy/vote-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store

	deps Dependencies
}

type Dependencies struct {
	Users          ports.UserDirectory
	Providers      ports.ProviderRegistry
	Cooldowns      ports.CooldownRepository
	Cache          ports.CooldownCache
	Votes          ports.VoteRepository
	Outbox         ports.OutboxRepository
	Confirmer      ports.VoteConfirmer
	Rewards        ports.RewardPolicy
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	ConfirmTimeout time.Duration
	CommitTimeout  time.Duration
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	tracker := application.CooldownTracker{
		Repository: deps.Cooldowns,
		Cache:      deps.Cache,
		Logger:     deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			SubmitVote: commands.SubmitVoteUseCase{
				Users:          deps.Users,
				Providers:      deps.Providers,
				Cooldowns:      tracker,
				Confirmer:      deps.Confirmer,
				Votes:          deps.Votes,
				Rewards:        deps.Rewards,
				Clock:          deps.Clock,
				IDGenerator:    deps.IDGen,
				ConfirmTimeout: deps.ConfirmTimeout,
				CommitTimeout:  deps.CommitTimeout,
				Logger:         deps.Logger,
			},
			RecordAction: commands.RecordActionUseCase{
				Cooldowns:     tracker,
				Clock:         deps.Clock,
				CommitTimeout: deps.CommitTimeout,
				Logger:        deps.Logger,
			},
			Catalog: queries.ProviderCatalogUseCase{Providers: deps.Providers},
			Cooldowns: queries.CooldownStatusUseCase{
				Providers: deps.Providers,
				Cooldowns: tracker,
				Clock:     deps.Clock,
			},
			History: queries.VoteHistoryUseCase{Votes: deps.Votes},
			Logger:  deps.Logger,
		},
		deps: deps,
	}
}

// NewInMemoryModule backs storage with one memory.Store. The confirmer and
// reward policy stay injectable because they are external inputs.
func NewInMemoryModule(
	providers []entities.VoteProvider,
	confirmer ports.VoteConfirmer,
	rewards ports.RewardPolicy,
	logger *slog.Logger,
) Module {
	store := memory.NewStore(providers)
	module := NewModule(Dependencies{
		Providers:      store,
		Cooldowns:      store,
		Votes:          store,
		Outbox:         store,
		Confirmer:      confirmer,
		Rewards:        rewards,
		Clock:          store,
		IDGen:          store,
		ConfirmTimeout: 10 * time.Second,
		CommitTimeout:  5 * time.Second,
		Logger:         logger,
	})
	module.Store = store
	return module
}

// OutboxRelay relays vote.confirmed events.
func (m Module) OutboxRelay(publisher ports.EventPublisher, batchSize int) workers.OutboxRelay {
	return workers.OutboxRelay{
		Outbox:    m.deps.Outbox,
		Publisher: publisher,
		Clock:     m.deps.Clock,
		BatchSize: batchSize,
		Logger:    m.deps.Logger,
	}
}
