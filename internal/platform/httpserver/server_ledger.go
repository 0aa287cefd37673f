package httpserver

import (
	"errors"
	"net/http"
	"strings"

	ledgererrors "rewardledger/contexts/player-economy/ledger-service/domain/errors"
	ledgerhttp "rewardledger/contexts/player-economy/ledger-service/transport/http"
)

func (s *Server) handleTransferBalance(w http.ResponseWriter, r *http.Request) {
	if !requireAuthorization(w, r, writeLedgerError) {
		return
	}
	var req ledgerhttp.TransferBalanceRequest
	if !s.decodeJSON(w, r, &req, writeLedgerError) {
		return
	}
	if _, ok := requireActor(w, r, req.FromUserID, writeLedgerError); !ok {
		return
	}
	resp, err := s.ledger.Handler.TransferBalanceHandler(r.Context(), r.Header.Get("Idempotency-Key"), req)
	if err != nil {
		writeLedgerDomainError(w, err, resp.TransferID)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransferItem(w http.ResponseWriter, r *http.Request) {
	if !requireAuthorization(w, r, writeLedgerError) {
		return
	}
	var req ledgerhttp.TransferItemRequest
	if !s.decodeJSON(w, r, &req, writeLedgerError) {
		return
	}
	if _, ok := requireActor(w, r, req.FromUserID, writeLedgerError); !ok {
		return
	}
	resp, err := s.ledger.Handler.TransferItemHandler(r.Context(), r.Header.Get("Idempotency-Key"), req)
	if err != nil {
		writeLedgerDomainError(w, err, resp.TransferID)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGift(w http.ResponseWriter, r *http.Request) {
	if !requireAuthorization(w, r, writeLedgerError) {
		return
	}
	var req ledgerhttp.GiftRequest
	if !s.decodeJSON(w, r, &req, writeLedgerError) {
		return
	}
	if _, ok := requireActor(w, r, req.FromUserID, writeLedgerError); !ok {
		return
	}
	resp, err := s.ledger.Handler.GiftHandler(r.Context(), r.Header.Get("Idempotency-Key"), req)
	if err != nil {
		writeLedgerDomainError(w, err, resp.TransferID)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.GetUserHandler(r.Context(), r.PathValue("user_id"))
	if err != nil {
		writeLedgerDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFindUser(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		writeLedgerError(w, http.StatusBadRequest, "invalid_request", "username query parameter is required")
		return
	}
	resp, err := s.ledger.Handler.FindUserHandler(r.Context(), username)
	if err != nil {
		writeLedgerDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, writeLedgerError)
	if !ok {
		return
	}
	resp, err := s.ledger.Handler.ListTransfersHandler(r.Context(), r.PathValue("user_id"), limit)
	if err != nil {
		writeLedgerDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListChest(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.ListChestHandler(r.Context(), r.PathValue("user_id"), r.URL.Query().Get("state"))
	if err != nil {
		writeLedgerDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUseChestItem(w http.ResponseWriter, r *http.Request) {
	if !requireAuthorization(w, r, writeLedgerError) {
		return
	}
	userID := r.PathValue("user_id")
	if _, ok := requireActor(w, r, userID, writeLedgerError); !ok {
		return
	}
	resp, err := s.ledger.Handler.UseChestItemHandler(r.Context(), userID, r.PathValue("item_id"))
	if err != nil {
		writeLedgerDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	if !requireAuthorization(w, r, writeLedgerError) {
		return
	}
	adminID, ok := requireAdmin(w, r, writeLedgerError)
	if !ok {
		return
	}
	var req ledgerhttp.AdjustBalanceRequest
	if !s.decodeJSON(w, r, &req, writeLedgerError) {
		return
	}
	resp, err := s.ledger.Handler.AdjustBalanceHandler(r.Context(), adminID, r.PathValue("user_id"), req)
	if err != nil {
		writeLedgerDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeLedgerDomainError(w http.ResponseWriter, err error, transferID string) {
	code := ledgererrors.Code(err)
	status := http.StatusInternalServerError
	message := err.Error()
	switch {
	case errors.Is(err, ledgererrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledgererrors.ErrInvalidAmount),
		errors.Is(err, ledgererrors.ErrInvalidRequest),
		errors.Is(err, ledgererrors.ErrSelfTransfer):
		status = http.StatusBadRequest
	case errors.Is(err, ledgererrors.ErrInsufficientFunds),
		errors.Is(err, ledgererrors.ErrInvalidState),
		errors.Is(err, ledgererrors.ErrIdempotencyConflict):
		status = http.StatusConflict
	case errors.Is(err, ledgererrors.ErrInternalCommitFailure):
		status = http.StatusServiceUnavailable
	default:
		message = "internal server error"
	}
	writeJSON(w, status, ledgerhttp.ErrorResponse{
		Code:       code,
		Message:    message,
		TransferID: transferID,
	})
}

func writeLedgerError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ledgerhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
