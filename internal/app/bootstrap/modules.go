package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	ledgerservice "rewardledger/contexts/player-economy/ledger-service"
	ledgermemory "rewardledger/contexts/player-economy/ledger-service/adapters/memory"
	ledgerpostgres "rewardledger/contexts/player-economy/ledger-service/adapters/postgres"
	ledgerentities "rewardledger/contexts/player-economy/ledger-service/domain/entities"
	voteservice "rewardledger/contexts/player-economy/vote-service"
	votememory "rewardledger/contexts/player-economy/vote-service/adapters/memory"
	votepostgres "rewardledger/contexts/player-economy/vote-service/adapters/postgres"
	"rewardledger/contexts/player-economy/vote-service/adapters/providers"
	voteredis "rewardledger/contexts/player-economy/vote-service/adapters/redis"
	"rewardledger/contexts/player-economy/vote-service/adapters/registryfile"
	"rewardledger/contexts/player-economy/vote-service/application/commands"
	voteentities "rewardledger/contexts/player-economy/vote-service/domain/entities"
	voteports "rewardledger/contexts/player-economy/vote-service/ports"
	"rewardledger/internal/platform/cache"
	"rewardledger/internal/platform/config"
	"rewardledger/internal/platform/db"

	"github.com/redis/go-redis/v9"
)

// defaultVoteProvidersYAML is used when VOTE_PROVIDERS_FILE is unset.
const defaultVoteProvidersYAML = `
providers:
  - id: serversmc
    type: serversmc
    name: ServersMC
    website_url: https://serversmc.net
  - id: minecraftlist
    type: minecraftlist
    name: Minecraft List
    website_url: https://minecraftlist.org
  - id: topg
    type: topg
    name: TopG
    website_url: https://topg.org
    cooldown_hours: 12
  - id: minecraftservers
    type: minecraftservers
    name: Minecraft Servers
    website_url: https://minecraftservers.org
`

// modules holds both bounded contexts plus the infrastructure they share.
type modules struct {
	ledger   ledgerservice.Module
	vote     voteservice.Module
	postgres *db.Postgres
	redis    *redis.Client
}

func (m *modules) Close() error {
	var firstErr error
	if m.redis != nil {
		if err := m.redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if m.postgres != nil {
		if err := m.postgres.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func buildModules(ctx context.Context, cfg config.Config, logger *slog.Logger) (*modules, error) {
	registry, err := loadVoteProviders(cfg.VoteProvidersFile)
	if err != nil {
		return nil, err
	}
	rewards := commands.FixedRewardPolicy{
		Amount:    cfg.VoteRewardAmount,
		ProductID: cfg.VoteRewardProductID,
	}
	confirmer := buildConfirmer(cfg, logger)

	built := &modules{}
	var voteCache voteports.CooldownCache
	if cfg.RedisAddr != "" {
		client, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		built.redis = client
		voteCache = voteredis.NewCooldownCache(client, logger)
	}

	switch cfg.StorageBackend {
	case config.StorageBackendPostgres:
		pg, err := db.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			_ = built.Close()
			return nil, err
		}
		built.postgres = pg

		ledgerRepo := ledgerpostgres.NewRepository(pg.DB, logger)
		voteRepo := votepostgres.NewRepository(pg.DB, logger)
		if cfg.AutoMigrate {
			if err := ledgerRepo.Migrate(ctx); err != nil {
				_ = built.Close()
				return nil, err
			}
			if err := voteRepo.Migrate(ctx); err != nil {
				_ = built.Close()
				return nil, err
			}
		}
		built.ledger = ledgerservice.NewModule(ledgerservice.Dependencies{
			Accounts:       ledgerRepo,
			Ledger:         ledgerRepo,
			Idempotency:    ledgerRepo,
			Outbox:         ledgerRepo,
			Clock:          ledgerpostgres.SystemClock{},
			IDGen:          ledgerpostgres.UUIDGenerator{},
			CommitTimeout:  cfg.CommitTimeout,
			IdempotencyTTL: cfg.IdempotencyTTL,
			CurrencyScale:  cfg.CurrencyScale,
			Logger:         logger,
		})
		built.vote = voteservice.NewModule(voteservice.Dependencies{
			Users:          ledgerPlayers{accounts: ledgerRepo},
			Providers:      registry,
			Cooldowns:      voteRepo,
			Cache:          voteCache,
			Votes:          voteRepo,
			Outbox:         voteRepo,
			Confirmer:      confirmer,
			Rewards:        rewards,
			Clock:          votepostgres.SystemClock{},
			IDGen:          votepostgres.UUIDGenerator{},
			ConfirmTimeout: cfg.VoteConfirmTimeout,
			CommitTimeout:  cfg.CommitTimeout,
			Logger:         logger,
		})
	default:
		ledgerStore := ledgermemory.NewStore(seedAccounts(cfg.SeedAccounts), nil)
		built.ledger = ledgerservice.NewModule(ledgerservice.Dependencies{
			Accounts:       ledgerStore,
			Ledger:         ledgerStore,
			Idempotency:    ledgerStore,
			Outbox:         ledgerStore,
			Clock:          ledgerStore,
			IDGen:          ledgerStore,
			CommitTimeout:  cfg.CommitTimeout,
			IdempotencyTTL: cfg.IdempotencyTTL,
			CurrencyScale:  cfg.CurrencyScale,
			Logger:         logger,
		})
		built.ledger.Store = ledgerStore

		voteStore := votememory.NewStore(registry.Providers())
		built.vote = voteservice.NewModule(voteservice.Dependencies{
			Users:          ledgerPlayers{accounts: ledgerStore},
			Providers:      voteStore,
			Cooldowns:      voteStore,
			Cache:          voteCache,
			Votes:          voteStore,
			Outbox:         voteStore,
			Confirmer:      confirmer,
			Rewards:        rewards,
			Clock:          voteStore,
			IDGen:          voteStore,
			ConfirmTimeout: cfg.VoteConfirmTimeout,
			CommitTimeout:  cfg.CommitTimeout,
			Logger:         logger,
		})
		built.vote.Store = voteStore
	}

	logger.Info("modules built",
		"event", "bootstrap_modules_built",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"storage_backend", cfg.StorageBackend,
		"vote_providers", len(registry.Providers()),
		"cooldown_cache", voteCache != nil,
	)
	return built, nil
}

func loadVoteProviders(path string) (*registryfile.Registry, error) {
	if strings.TrimSpace(path) == "" {
		return registryfile.Parse([]byte(defaultVoteProvidersYAML))
	}
	registry, err := registryfile.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load vote providers: %w", err)
	}
	return registry, nil
}

// buildConfirmer registers a site client per configured provider type. With
// no credentials at all the memory backend accepts every vote so local runs
// work end to end; the postgres backend keeps an empty dispatcher, which
// reports every site as unavailable.
func buildConfirmer(cfg config.Config, logger *slog.Logger) voteports.VoteConfirmer {
	if len(cfg.VoteProviders) == 0 && cfg.StorageBackend == config.StorageBackendMemory {
		logger.Warn("vote confirmation is stubbed",
			"event", "bootstrap_vote_confirmer_stubbed",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		return providers.StaticConfirmer{Confirmed: true}
	}

	dispatcher := providers.NewDispatcher()
	for providerType, creds := range cfg.VoteProviders {
		switch voteentities.ProviderType(providerType) {
		case voteentities.ProviderTypeServersMC:
			dispatcher.Register(voteentities.ProviderTypeServersMC, providers.NewServersMCClient(creds.BaseURL, creds.APIKey))
		case voteentities.ProviderTypeMinecraftList:
			dispatcher.Register(voteentities.ProviderTypeMinecraftList, providers.NewMinecraftListClient(creds.BaseURL, creds.APIKey))
		case voteentities.ProviderTypeTopG:
			dispatcher.Register(voteentities.ProviderTypeTopG, providers.NewTopGClient(creds.BaseURL, creds.APIKey))
		case voteentities.ProviderTypeMinecraftServers:
			dispatcher.Register(voteentities.ProviderTypeMinecraftServers, providers.NewMinecraftServersClient(creds.BaseURL, creds.APIKey))
		}
	}
	return dispatcher
}

func seedAccounts(seeds []config.SeedAccount) []ledgerentities.Account {
	accounts := make([]ledgerentities.Account, 0, len(seeds))
	for _, seed := range seeds {
		accounts = append(accounts, ledgerentities.Account{
			UserID:   seed.UserID,
			Username: seed.Username,
			Balance:  seed.Balance,
		})
	}
	return accounts
}
