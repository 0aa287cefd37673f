package registryfile

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domainerrors "rewardledger/contexts/player-economy/vote-service/domain/errors"
)

const sampleProviders = `
providers:
  - id: serversmc
    type: serversmc
    name: ServersMC
    image: /images/vote-providers/serversmc.png
    website_url: https://serversmc.example/server/1
    cooldown_hours: 12
    reward_amount: 750
  - id: topg
    type: TopG
    is_active: false
`

func TestParseAppliesDefaults(t *testing.T) {
	registry, err := Parse([]byte(sampleProviders))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	serversMC, err := registry.GetProvider(context.Background(), "serversmc")
	if err != nil {
		t.Fatalf("get serversmc: %v", err)
	}
	if !serversMC.IsActive || serversMC.Cooldown() != 12*time.Hour {
		t.Fatalf("unexpected serversmc provider: %+v", serversMC)
	}
	if serversMC.RewardAmount == nil || *serversMC.RewardAmount != 750 {
		t.Fatalf("expected reward override, got %v", serversMC.RewardAmount)
	}
	topg, _ := registry.GetProvider(context.Background(), "topg")
	if topg.IsActive || topg.CooldownHours != 24 || topg.Name != "topg" {
		t.Fatalf("unexpected topg defaults: %+v", topg)
	}
	if _, err := registry.GetProvider(context.Background(), "missing"); !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := len(registry.Providers()); got != 2 {
		t.Fatalf("expected 2 providers, got %d", got)
	}
}

func TestParseRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"unknown type": "providers:\n  - id: x\n    type: mystery\n",
		"duplicate":    "providers:\n  - id: x\n    type: topg\n  - id: x\n    type: topg\n",
		"negative":     "providers:\n  - id: x\n    type: topg\n    cooldown_hours: -1\n",
		"missing id":   "providers:\n  - type: topg\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		} else if !strings.Contains(err.Error(), "vote provider #") {
			t.Fatalf("%s: expected positional error, got %v", name, err)
		}
	}
}
