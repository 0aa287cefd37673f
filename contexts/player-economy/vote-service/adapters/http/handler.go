package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "rewardledger/contexts/player-economy/vote-service/application"
	"rewardledger/contexts/player-economy/vote-service/application/commands"
	"rewardledger/contexts/player-economy/vote-service/application/queries"
	"rewardledger/contexts/player-economy/vote-service/domain/entities"
	domainerrors "rewardledger/contexts/player-economy/vote-service/domain/errors"
	httptransport "rewardledger/contexts/player-economy/vote-service/transport/http"
)

const moduleName = "player-economy/vote-service"

type Handler struct {
	SubmitVote   commands.SubmitVoteUseCase
	RecordAction commands.RecordActionUseCase
	Catalog      queries.ProviderCatalogUseCase
	Cooldowns    queries.CooldownStatusUseCase
	History      queries.VoteHistoryUseCase
	Logger       *slog.Logger
}

// ListProvidersHandler godoc
// @Summary List vote providers
// @Tags vote
// @Produce json
// @Success 200 {object} httptransport.VoteProvidersResponse
// @Router /vote/providers [get]
func (h Handler) ListProvidersHandler(ctx context.Context) (httptransport.VoteProvidersResponse, error) {
	providers, err := h.Catalog.ListProviders(ctx)
	if err != nil {
		return httptransport.VoteProvidersResponse{}, err
	}
	resp := httptransport.VoteProvidersResponse{
		Success:   true,
		Providers: make([]httptransport.VoteProvider, 0, len(providers)),
	}
	for _, provider := range providers {
		resp.Providers = append(resp.Providers, mapProvider(provider))
	}
	return resp, nil
}

// GetProviderHandler godoc
// @Summary Get a vote provider
// @Tags vote
// @Produce json
// @Param provider_id path string true "Provider id"
// @Success 200 {object} httptransport.VoteProvider
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /vote/providers/{provider_id} [get]
func (h Handler) GetProviderHandler(ctx context.Context, providerID string) (httptransport.VoteProvider, error) {
	provider, err := h.Catalog.GetProvider(ctx, providerID)
	if err != nil {
		return httptransport.VoteProvider{}, err
	}
	return mapProvider(provider), nil
}

// SubmitVoteHandler godoc
// @Summary Submit a vote for confirmation
// @Description Checks the cooldown first and only then asks the vote site. success=false means the site has not registered the vote yet.
// @Tags vote
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-User-Id header string true "Acting user id, must equal user_id"
// @Param request body httptransport.SubmitVoteRequest true "Vote"
// @Success 200 {object} httptransport.SubmitVoteResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 429 {object} httptransport.ErrorResponse
// @Failure 503 {object} httptransport.ErrorResponse
// @Router /vote/submit [post]
func (h Handler) SubmitVoteHandler(ctx context.Context, req httptransport.SubmitVoteRequest) (httptransport.SubmitVoteResponse, error) {
	result, err := h.SubmitVote.Execute(ctx, commands.SubmitVoteCommand{
		UserID:     req.UserID,
		ProviderID: req.ProviderID,
	})
	if err != nil {
		return httptransport.SubmitVoteResponse{}, err
	}
	resp := httptransport.SubmitVoteResponse{
		Success: result.Success,
		Message: result.Message,
		VoteID:  result.VoteID,
	}
	if result.CanVoteAt != nil {
		resp.CanVoteAt = result.CanVoteAt.UTC().Format(time.RFC3339)
	}
	return resp, nil
}

// CooldownHandler godoc
// @Summary Cooldown of a player on one provider
// @Tags vote
// @Produce json
// @Param user_id path string true "User id"
// @Param provider_id path string true "Provider id"
// @Success 200 {object} httptransport.CooldownResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /cooldown/{user_id}/{provider_id} [get]
func (h Handler) CooldownHandler(ctx context.Context, userID string, providerID string) (httptransport.CooldownResponse, error) {
	status, err := h.Cooldowns.GetCooldownStatus(ctx, userID, providerID)
	if err != nil {
		return httptransport.CooldownResponse{}, err
	}
	resp := httptransport.CooldownResponse{
		UserID:          status.UserID,
		ProviderID:      status.ProviderID,
		CanVote:         status.CanVote,
		TimeLeft:        httptransport.FormatTimeLeft(status.TimeLeft),
		TimeLeftSeconds: httptransport.Seconds(status.TimeLeft),
	}
	if status.EligibleAt != nil {
		resp.CanVoteAt = status.EligibleAt.UTC().Format(time.RFC3339)
	}
	return resp, nil
}

// VoteStatusHandler godoc
// @Summary Next time the player can vote
// @Description next_vote_at is omitted when every provider is open.
// @Tags vote
// @Produce json
// @Param user_id path string true "User id"
// @Success 200 {object} httptransport.VoteStatusResponse
// @Router /users/{user_id}/vote-status [get]
func (h Handler) VoteStatusHandler(ctx context.Context, userID string) (httptransport.VoteStatusResponse, error) {
	status, err := h.Cooldowns.GetVoteStatus(ctx, userID)
	if err != nil {
		return httptransport.VoteStatusResponse{}, err
	}
	resp := httptransport.VoteStatusResponse{UserID: status.UserID}
	if status.NextVoteAt != nil {
		resp.NextVoteAt = status.NextVoteAt.UTC().Format(time.RFC3339)
	}
	return resp, nil
}

// ListVotesHandler godoc
// @Summary A player's confirmed votes
// @Tags vote
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "User id"
// @Param limit query int false "Page size (max 200)"
// @Success 200 {object} httptransport.VoteListResponse
// @Router /users/{user_id}/votes [get]
func (h Handler) ListVotesHandler(ctx context.Context, userID string, limit int) (httptransport.VoteListResponse, error) {
	votes, err := h.History.ListVotes(ctx, userID, limit)
	if err != nil {
		return httptransport.VoteListResponse{}, err
	}
	resp := httptransport.VoteListResponse{Items: make([]httptransport.VoteRecord, 0, len(votes))}
	for _, vote := range votes {
		resp.Items = append(resp.Items, httptransport.VoteRecord{
			VoteID:          vote.VoteID,
			ProviderID:      vote.ProviderID,
			SubmittedAt:     vote.SubmittedAt.UTC().Format(time.RFC3339),
			EligibleAt:      vote.EligibleAt.UTC().Format(time.RFC3339),
			RewardAmount:    vote.RewardAmount,
			RewardProductID: vote.RewardProductID,
		})
	}
	return resp, nil
}

// RecordCooldownHandler godoc
// @Summary Operator cooldown entry
// @Description Starts or extends a cooldown. The stored time never moves backward.
// @Tags vote-admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Admin-Id header string true "Operator id"
// @Param user_id path string true "User id"
// @Param request body httptransport.RecordCooldownRequest true "Cooldown"
// @Success 200 {object} httptransport.CooldownEntryResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Router /admin/users/{user_id}/cooldowns [post]
func (h Handler) RecordCooldownHandler(
	ctx context.Context,
	adminID string,
	userID string,
	req httptransport.RecordCooldownRequest,
) (httptransport.CooldownEntryResponse, error) {
	if strings.TrimSpace(adminID) == "" {
		return httptransport.CooldownEntryResponse{}, domainerrors.ErrInvalidRequest
	}
	application.ResolveLogger(h.Logger).Info("cooldown record request received",
		"event", "http_cooldown_record_received",
		"module", moduleName,
		"layer", "transport",
		"admin_id", strings.TrimSpace(adminID),
		"user_id", strings.TrimSpace(userID),
		"action_class", strings.TrimSpace(req.ActionClass),
	)
	entry, err := h.RecordAction.Execute(ctx, commands.RecordActionCommand{
		UserID:      userID,
		ActionClass: req.ActionClass,
		Cooldown:    time.Duration(req.CooldownHours) * time.Hour,
	})
	if err != nil {
		return httptransport.CooldownEntryResponse{}, err
	}
	return httptransport.CooldownEntryResponse{
		UserID:      entry.UserID,
		ActionClass: entry.ActionClass,
		EligibleAt:  entry.EligibleAt.UTC().Format(time.RFC3339),
	}, nil
}

func mapProvider(provider entities.VoteProvider) httptransport.VoteProvider {
	return httptransport.VoteProvider{
		ProviderID:    provider.ProviderID,
		Type:          string(provider.Type),
		Name:          provider.Name,
		Description:   provider.Description,
		Image:         provider.ImageURL,
		WebsiteURL:    provider.WebsiteURL,
		IsActive:      provider.IsActive,
		CooldownHours: provider.CooldownHours,
	}
}
