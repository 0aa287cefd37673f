package providers

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"rewardledger/contexts/player-economy/vote-service/ports"
)

const notVotedReason = "no vote found for this player yet"

// NewServersMCClient checks ServersMC, which answers {"voted": bool}.
func NewServersMCClient(baseURL string, apiKey string) *Client {
	return newClient(baseURL, apiKey, "/api/v1/vote/check",
		func(apiKey string, userID string) url.Values {
			return url.Values{"server_key": {apiKey}, "username": {userID}}
		},
		parseVotedJSON,
	)
}

// NewMinecraftListClient checks minecraftlist, which answers
// {"voted": bool, "message": "..."}.
func NewMinecraftListClient(baseURL string, apiKey string) *Client {
	return newClient(baseURL, apiKey, "/api/vote",
		func(apiKey string, userID string) url.Values {
			return url.Values{"key": {apiKey}, "player": {userID}}
		},
		parseVotedJSON,
	)
}

// NewTopGClient checks TopG, which answers a bare "1" or "0".
func NewTopGClient(baseURL string, apiKey string) *Client {
	return newClient(baseURL, apiKey, "/check_vote",
		func(apiKey string, userID string) url.Values {
			return url.Values{"server": {apiKey}, "p_resp": {userID}}
		},
		parseFlag(map[string]bool{"1": true, "0": false}),
	)
}

// NewMinecraftServersClient checks minecraft-servers, which answers "0" (no
// vote), "1" (voted) or "2" (voted and already claimed).
func NewMinecraftServersClient(baseURL string, apiKey string) *Client {
	return newClient(baseURL, apiKey, "/api/",
		func(apiKey string, userID string) url.Values {
			return url.Values{"object": {"votes"}, "element": {"claim"}, "key": {apiKey}, "username": {userID}}
		},
		parseFlag(map[string]bool{"1": true, "2": true, "0": false}),
	)
}

func parseVotedJSON(body []byte) (ports.VoteConfirmation, error) {
	var payload struct {
		Voted   bool   `json:"voted"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ports.VoteConfirmation{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if payload.Voted {
		return ports.VoteConfirmation{Confirmed: true}, nil
	}
	reason := strings.TrimSpace(payload.Message)
	if reason == "" {
		reason = notVotedReason
	}
	return ports.VoteConfirmation{Reason: reason}, nil
}

func parseFlag(values map[string]bool) parseFunc {
	return func(body []byte) (ports.VoteConfirmation, error) {
		flag := strings.TrimSpace(string(body))
		voted, ok := values[flag]
		if !ok {
			return ports.VoteConfirmation{}, fmt.Errorf("unexpected vote site answer %q", flag)
		}
		if !voted {
			return ports.VoteConfirmation{Reason: notVotedReason}, nil
		}
		return ports.VoteConfirmation{Confirmed: true}, nil
	}
}
