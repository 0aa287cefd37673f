package http

import (
	"fmt"
	"time"
)

type ErrorResponse struct {
	Code            string `json:"code"`
	Message         string `json:"message"`
	TimeLeftSeconds int64  `json:"time_left_seconds,omitempty"`
	CanVoteAt       string `json:"can_vote_at,omitempty"`
}

type VoteProvider struct {
	ProviderID    string `json:"id"`
	Type          string `json:"type"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Image         string `json:"image,omitempty"`
	WebsiteURL    string `json:"website_url,omitempty"`
	IsActive      bool   `json:"is_active"`
	CooldownHours int    `json:"cooldown_hours"`
}

type VoteProvidersResponse struct {
	Success   bool           `json:"success"`
	Providers []VoteProvider `json:"providers"`
}

type SubmitVoteRequest struct {
	UserID     string `json:"user_id"`
	ProviderID string `json:"provider_id"`
}

type SubmitVoteResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	VoteID    string `json:"vote_id,omitempty"`
	CanVoteAt string `json:"can_vote_at,omitempty"`
}

type CooldownResponse struct {
	UserID          string `json:"user_id"`
	ProviderID      string `json:"provider_id"`
	CanVote         bool   `json:"can_vote"`
	TimeLeft        string `json:"time_left"`
	TimeLeftSeconds int64  `json:"time_left_seconds"`
	CanVoteAt       string `json:"can_vote_at,omitempty"`
}

type VoteStatusResponse struct {
	UserID     string `json:"user_id"`
	NextVoteAt string `json:"next_vote_at,omitempty"`
}

type VoteRecord struct {
	VoteID          string `json:"vote_id"`
	ProviderID      string `json:"provider_id"`
	SubmittedAt     string `json:"submitted_at"`
	EligibleAt      string `json:"eligible_at"`
	RewardAmount    int64  `json:"reward_amount_minor"`
	RewardProductID string `json:"reward_product_id,omitempty"`
}

type VoteListResponse struct {
	Items []VoteRecord `json:"items"`
}

type RecordCooldownRequest struct {
	ActionClass   string `json:"action_class"`
	CooldownHours int    `json:"cooldown_hours"`
}

type CooldownEntryResponse struct {
	UserID      string `json:"user_id"`
	ActionClass string `json:"action_class"`
	EligibleAt  string `json:"eligible_at"`
}

// FormatTimeLeft renders a countdown as HH:MM:SS, rounding partial seconds up
// so a running cooldown never shows 00:00:00.
func FormatTimeLeft(d time.Duration) string {
	if d <= 0 {
		return "00:00:00"
	}
	seconds := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// Seconds rounds a remaining duration up to whole seconds.
func Seconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}
