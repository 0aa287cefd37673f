package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageBackendPostgres = "postgres"
	StorageBackendMemory   = "memory"
)

// VoteProviderCredentials configures the confirmation client of one vote
// site type.
type VoteProviderCredentials struct {
	BaseURL string
	APIKey  string
}

// SeedAccount is a ledger account preloaded by the memory backend.
type SeedAccount struct {
	UserID   string
	Username string
	Balance  int64
}

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName    string
	HTTPPort       string
	StorageBackend string
	AutoMigrate    bool

	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KafkaBrokers  []string

	VoteProvidersFile   string
	VoteConfirmTimeout  time.Duration
	VoteRewardAmount    int64
	VoteRewardProductID string
	// VoteProviders is keyed by provider type, from
	// VOTE_PROVIDER_<TYPE>_BASE_URL and VOTE_PROVIDER_<TYPE>_KEY.
	VoteProviders map[string]VoteProviderCredentials

	// SeedAccounts come from LEDGER_SEED_ACCOUNTS and are only used by the
	// memory backend.
	SeedAccounts []SeedAccount

	CommitTimeout      time.Duration
	IdempotencyTTL     time.Duration
	CurrencyScale      int32
	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	LogLevel  string
	LogFormat string
}

var voteProviderTypes = []string{"serversmc", "minecraftlist", "topg", "minecraftservers"}

// Load reads the environment after an optional .env file. Variables already
// set in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}

	backend := strings.ToLower(envString("STORAGE_BACKEND", ""))
	if backend == "" {
		backend = StorageBackendMemory
		if strings.TrimSpace(os.Getenv("POSTGRES_DSN")) != "" {
			backend = StorageBackendPostgres
		}
	}
	if backend != StorageBackendMemory && backend != StorageBackendPostgres {
		return Config{}, fmt.Errorf("unsupported STORAGE_BACKEND %q", backend)
	}

	scale := envInt("CURRENCY_SCALE", 2)
	if scale < 0 || scale > 8 {
		return Config{}, fmt.Errorf("CURRENCY_SCALE must be between 0 and 8, got %d", scale)
	}

	seeds, err := parseSeedAccounts(os.Getenv("LEDGER_SEED_ACCOUNTS"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ServiceName:    envString("SERVICE_NAME", "rewardledger"),
		HTTPPort:       envString("HTTP_PORT", "8080"),
		StorageBackend: backend,
		AutoMigrate:    envBool("AUTO_MIGRATE", true),

		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		RedisAddr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),
		KafkaBrokers:  brokers,

		VoteProvidersFile:   strings.TrimSpace(os.Getenv("VOTE_PROVIDERS_FILE")),
		VoteConfirmTimeout:  envDuration("VOTE_CONFIRM_TIMEOUT", 10*time.Second),
		VoteRewardAmount:    int64(envInt("VOTE_REWARD_AMOUNT", 0)),
		VoteRewardProductID: strings.TrimSpace(os.Getenv("VOTE_REWARD_PRODUCT_ID")),
		VoteProviders:       make(map[string]VoteProviderCredentials),
		SeedAccounts:        seeds,

		CommitTimeout:      envDuration("COMMIT_TIMEOUT", 5*time.Second),
		IdempotencyTTL:     envDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		CurrencyScale:      int32(scale),
		OutboxPollInterval: envDuration("OUTBOX_POLL_INTERVAL", time.Second),
		OutboxBatchSize:    envInt("OUTBOX_BATCH_SIZE", 100),

		LogLevel:  strings.ToLower(envString("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(envString("LOG_FORMAT", "json")),
	}
	if cfg.StorageBackend == StorageBackendPostgres && strings.TrimSpace(cfg.PostgresDSN) == "" {
		return Config{}, fmt.Errorf("POSTGRES_DSN is required for the postgres backend")
	}
	for _, providerType := range voteProviderTypes {
		prefix := "VOTE_PROVIDER_" + strings.ToUpper(providerType)
		baseURL := strings.TrimSpace(os.Getenv(prefix + "_BASE_URL"))
		if baseURL == "" {
			continue
		}
		cfg.VoteProviders[providerType] = VoteProviderCredentials{
			BaseURL: baseURL,
			APIKey:  strings.TrimSpace(os.Getenv(prefix + "_KEY")),
		}
	}
	return cfg, nil
}

// parseSeedAccounts reads "user_id:username:balance_minor" entries separated
// by commas.
func parseSeedAccounts(raw string) ([]SeedAccount, error) {
	var seeds []SeedAccount
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("LEDGER_SEED_ACCOUNTS entry %q must be user_id:username:balance", entry)
		}
		balance, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
		if err != nil || balance < 0 {
			return nil, fmt.Errorf("LEDGER_SEED_ACCOUNTS entry %q has an invalid balance", entry)
		}
		seeds = append(seeds, SeedAccount{
			UserID:   strings.TrimSpace(parts[0]),
			Username: strings.TrimSpace(parts[1]),
			Balance:  balance,
		})
	}
	return seeds, nil
}

func envString(name string, fallback string) string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return raw
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
