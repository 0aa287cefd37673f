package ledgerservice

import (
	"log/slog"
	"time"

	httpadapter "rewardledger/contexts/player-economy/ledger-service/adapters/http"
	"rewardledger/contexts/player-economy/ledger-service/adapters/memory"
	"rewardledger/contexts/player-economy/ledger-service/application/commands"
	"rewardledger/contexts/player-economy/ledger-service/application/queries"
	"rewardledger/contexts/player-economy/ledger-service/application/workers"
	"rewardledger/contexts/player-economy/ledger-service/domain/entities"
	"rewardledger/contexts/player-economy/ledger-service/ports"
	httptransport "rewardledger/contexts/player-economy/ledger-service/transport/http"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store

	deps Dependencies
}

type Dependencies struct {
	Accounts       ports.AccountDirectory
	Ledger         ports.LedgerRepository
	Idempotency    ports.IdempotencyStore
	Outbox         ports.OutboxRepository
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	CommitTimeout  time.Duration
	IdempotencyTTL time.Duration
	CurrencyScale  int32
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	transferBalance := commands.TransferBalanceUseCase{
		Accounts:       deps.Accounts,
		Ledger:         deps.Ledger,
		Idempotency:    deps.Idempotency,
		Clock:          deps.Clock,
		IDGenerator:    deps.IDGen,
		CommitTimeout:  deps.CommitTimeout,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	transferItem := commands.TransferItemUseCase{
		Accounts:       deps.Accounts,
		Ledger:         deps.Ledger,
		Idempotency:    deps.Idempotency,
		Clock:          deps.Clock,
		IDGenerator:    deps.IDGen,
		CommitTimeout:  deps.CommitTimeout,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			TransferBalance: transferBalance,
			TransferItem:    transferItem,
			UseItem: commands.UseItemUseCase{
				Ledger:        deps.Ledger,
				Clock:         deps.Clock,
				IDGenerator:   deps.IDGen,
				CommitTimeout: deps.CommitTimeout,
				Logger:        deps.Logger,
			},
			AdjustBalance: commands.AdjustBalanceUseCase{
				Ledger:        deps.Ledger,
				Clock:         deps.Clock,
				CommitTimeout: deps.CommitTimeout,
				Logger:        deps.Logger,
			},
			Users: queries.UserDirectoryUseCase{Accounts: deps.Accounts},
			Chest: queries.ChestUseCase{
				Accounts: deps.Accounts,
				Ledger:   deps.Ledger,
			},
			Transfers: queries.TransferHistoryUseCase{
				Accounts: deps.Accounts,
				Ledger:   deps.Ledger,
			},
			Currency: httptransport.Currency{Scale: deps.CurrencyScale},
			Logger:   deps.Logger,
		},
		deps: deps,
	}
}

// NewInMemoryModule backs every port with one memory.Store.
func NewInMemoryModule(accounts []entities.Account, items []entities.RewardItem, logger *slog.Logger) Module {
	store := memory.NewStore(accounts, items)
	module := NewModule(Dependencies{
		Accounts:       store,
		Ledger:         store,
		Idempotency:    store,
		Outbox:         store,
		Clock:          store,
		IDGen:          store,
		CommitTimeout:  5 * time.Second,
		IdempotencyTTL: 24 * time.Hour,
		CurrencyScale:  httptransport.DefaultCurrencyScale,
		Logger:         logger,
	})
	module.Store = store
	return module
}

// OutboxRelay relays ledger.transfer.completed and ledger.item.used events.
func (m Module) OutboxRelay(publisher ports.EventPublisher, batchSize int) workers.OutboxRelay {
	return workers.OutboxRelay{
		Outbox:    m.deps.Outbox,
		Publisher: publisher,
		Clock:     m.deps.Clock,
		BatchSize: batchSize,
		Logger:    m.deps.Logger,
	}
}

// VoteRewardConsumer credits vote.confirmed events into the ledger.
func (m Module) VoteRewardConsumer(subscriber ports.EventSubscriber) workers.VoteRewardConsumer {
	return workers.VoteRewardConsumer{
		Subscriber:  subscriber,
		Ledger:      m.deps.Ledger,
		Clock:       m.deps.Clock,
		IDGenerator: m.deps.IDGen,
		Logger:      m.deps.Logger,
	}
}
