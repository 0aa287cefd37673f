package entities

import (
	"strings"
	"time"
)

type ProviderType string

const (
	ProviderTypeServersMC        ProviderType = "serversmc"
	ProviderTypeMinecraftList    ProviderType = "minecraftlist"
	ProviderTypeTopG             ProviderType = "topg"
	ProviderTypeMinecraftServers ProviderType = "minecraftservers"
)

// Valid reports whether t is one of the supported vote sites.
func (t ProviderType) Valid() bool {
	switch t {
	case ProviderTypeServersMC, ProviderTypeMinecraftList, ProviderTypeTopG, ProviderTypeMinecraftServers:
		return true
	default:
		return false
	}
}

// VoteProvider is a third-party voting site. It is read-only to this service.
type VoteProvider struct {
	ProviderID    string
	Type          ProviderType
	Name          string
	Description   string
	ImageURL      string
	WebsiteURL    string
	IsActive      bool
	CooldownHours int
	// RewardAmount and RewardProductID override the default reward policy
	// when set.
	RewardAmount    *int64
	RewardProductID string
}

func (p VoteProvider) Cooldown() time.Duration {
	if p.CooldownHours <= 0 {
		return 0
	}
	return time.Duration(p.CooldownHours) * time.Hour
}

// ActionClass is the cooldown key for votes on this provider.
func (p VoteProvider) ActionClass() string {
	return VoteActionClass(p.ProviderID)
}

const voteActionPrefix = "vote:"

func VoteActionClass(providerID string) string {
	return voteActionPrefix + strings.TrimSpace(providerID)
}

func IsVoteActionClass(actionClass string) bool {
	return strings.HasPrefix(actionClass, voteActionPrefix)
}
