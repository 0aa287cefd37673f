package httpserver

import (
	"errors"
	"net/http"
	"time"

	voteerrors "rewardledger/contexts/player-economy/vote-service/domain/errors"
	votehttp "rewardledger/contexts/player-economy/vote-service/transport/http"
)

func (s *Server) handleListVoteProviders(w http.ResponseWriter, r *http.Request) {
	resp, err := s.vote.Handler.ListProvidersHandler(r.Context())
	if err != nil {
		writeVoteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetVoteProvider(w http.ResponseWriter, r *http.Request) {
	resp, err := s.vote.Handler.GetProviderHandler(r.Context(), r.PathValue("provider_id"))
	if err != nil {
		writeVoteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	if !requireAuthorization(w, r, writeVoteError) {
		return
	}
	var req votehttp.SubmitVoteRequest
	if !s.decodeJSON(w, r, &req, writeVoteError) {
		return
	}
	if _, ok := requireActor(w, r, req.UserID, writeVoteError); !ok {
		return
	}
	resp, err := s.vote.Handler.SubmitVoteHandler(r.Context(), req)
	if err != nil {
		writeVoteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCooldown(w http.ResponseWriter, r *http.Request) {
	resp, err := s.vote.Handler.CooldownHandler(r.Context(), r.PathValue("user_id"), r.PathValue("provider_id"))
	if err != nil {
		writeVoteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVoteStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.vote.Handler.VoteStatusHandler(r.Context(), r.PathValue("user_id"))
	if err != nil {
		writeVoteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListVotes(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, writeVoteError)
	if !ok {
		return
	}
	resp, err := s.vote.Handler.ListVotesHandler(r.Context(), r.PathValue("user_id"), limit)
	if err != nil {
		writeVoteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecordCooldown(w http.ResponseWriter, r *http.Request) {
	if !requireAuthorization(w, r, writeVoteError) {
		return
	}
	adminID, ok := requireAdmin(w, r, writeVoteError)
	if !ok {
		return
	}
	var req votehttp.RecordCooldownRequest
	if !s.decodeJSON(w, r, &req, writeVoteError) {
		return
	}
	resp, err := s.vote.Handler.RecordCooldownHandler(r.Context(), adminID, r.PathValue("user_id"), req)
	if err != nil {
		writeVoteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeVoteDomainError(w http.ResponseWriter, err error) {
	resp := votehttp.ErrorResponse{
		Code:    voteerrors.Code(err),
		Message: err.Error(),
	}
	status := http.StatusInternalServerError
	var cooldown *voteerrors.CooldownActiveError
	switch {
	case errors.As(err, &cooldown):
		status = http.StatusTooManyRequests
		resp.TimeLeftSeconds = votehttp.Seconds(cooldown.Remaining)
		resp.CanVoteAt = cooldown.EligibleAt.UTC().Format(time.RFC3339)
	case errors.Is(err, voteerrors.ErrCooldownActive):
		status = http.StatusTooManyRequests
	case errors.Is(err, voteerrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, voteerrors.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, voteerrors.ErrProviderInactive):
		status = http.StatusConflict
	case errors.Is(err, voteerrors.ErrProviderUnavailable),
		errors.Is(err, voteerrors.ErrInternalCommitFailure):
		status = http.StatusServiceUnavailable
	default:
		resp.Message = "internal server error"
	}
	writeJSON(w, status, resp)
}

func writeVoteError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, votehttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
