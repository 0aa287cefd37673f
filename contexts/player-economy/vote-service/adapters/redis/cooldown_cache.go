package redisadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"rewardledger/contexts/player-economy/vote-service/ports"

	"github.com/redis/go-redis/v9"
)

const moduleName = "player-economy/vote-service"

// advanceScript stores eligible_at (unix millis) only when it is later than
// the cached value, and lets the key expire when the cooldown ends.
var advanceScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local proposed = tonumber(ARGV[1])
if proposed > current then
  redis.call("SET", KEYS[1], ARGV[1])
  redis.call("PEXPIREAT", KEYS[1], ARGV[1])
  return 1
end
return 0
`)

// CooldownCache mirrors running cooldowns under cooldown:<user>:<class>.
type CooldownCache struct {
	client redis.Cmdable
	logger *slog.Logger
}

func NewCooldownCache(client redis.Cmdable, logger *slog.Logger) *CooldownCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &CooldownCache{client: client, logger: logger}
}

func (c *CooldownCache) GetEligibleAt(ctx context.Context, userID string, actionClass string) (time.Time, bool, error) {
	raw, err := c.client.Get(ctx, cooldownKey(userID, actionClass)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, c.logError("vote_cache_get_failed", err, "user_id", userID, "action_class", actionClass)
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt cooldown cache value %q: %w", raw, err)
	}
	return time.UnixMilli(millis).UTC(), true, nil
}

func (c *CooldownCache) AdvanceEligibleAt(ctx context.Context, userID string, actionClass string, eligibleAt time.Time) error {
	if !eligibleAt.After(time.Now()) {
		return nil
	}
	key := cooldownKey(userID, actionClass)
	if err := advanceScript.Run(ctx, c.client, []string{key}, eligibleAt.UnixMilli()).Err(); err != nil {
		return c.logError("vote_cache_advance_failed", err, "user_id", userID, "action_class", actionClass)
	}
	return nil
}

func (c *CooldownCache) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", moduleName,
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	c.logger.Warn("cooldown cache operation failed", fields...)
	return err
}

func cooldownKey(userID string, actionClass string) string {
	return "cooldown:" + strings.TrimSpace(userID) + ":" + strings.TrimSpace(actionClass)
}

var _ ports.CooldownCache = (*CooldownCache)(nil)
