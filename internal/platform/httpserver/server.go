package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	ledgerservice "rewardledger/contexts/player-economy/ledger-service"
	voteservice "rewardledger/contexts/player-economy/vote-service"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "rewardledger/internal/platform/httpserver/docs"
)

// errorWriter matches the per-context write*Error helpers so shared guards
// can answer in the caller's error shape.
type errorWriter func(w http.ResponseWriter, status int, code string, message string)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	ledger ledgerservice.Module
	vote   voteservice.Module

	httpServer *http.Server
}

func New(
	ledger ledgerservice.Module,
	vote voteservice.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		ledger: ledger,
		vote:   vote,
	}
	s.registerRoutes()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the routed mux for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start blocks until the listener fails or Shutdown is called. A clean
// shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /transfer/balance", s.handleTransferBalance)
	s.mux.HandleFunc("POST /transfer/item", s.handleTransferItem)
	s.mux.HandleFunc("POST /gifts", s.handleGift)
	s.mux.HandleFunc("GET /users", s.handleFindUser)
	s.mux.HandleFunc("GET /users/{user_id}", s.handleGetUser)
	s.mux.HandleFunc("GET /users/{user_id}/transfers", s.handleListTransfers)
	s.mux.HandleFunc("GET /users/{user_id}/chest", s.handleListChest)
	s.mux.HandleFunc("POST /users/{user_id}/chest/{item_id}/use", s.handleUseChestItem)
	s.mux.HandleFunc("POST /admin/users/{user_id}/balance-adjustments", s.handleAdjustBalance)

	s.mux.HandleFunc("GET /vote/providers", s.handleListVoteProviders)
	s.mux.HandleFunc("GET /vote/providers/{provider_id}", s.handleGetVoteProvider)
	s.mux.HandleFunc("POST /vote/submit", s.handleSubmitVote)
	s.mux.HandleFunc("GET /cooldown/{user_id}/{provider_id}", s.handleCooldown)
	s.mux.HandleFunc("GET /users/{user_id}/vote-status", s.handleVoteStatus)
	s.mux.HandleFunc("GET /users/{user_id}/votes", s.handleListVotes)
	s.mux.HandleFunc("POST /admin/users/{user_id}/cooldowns", s.handleRecordCooldown)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, target any, writeErr errorWriter) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

func requireAuthorization(w http.ResponseWriter, r *http.Request, writeErr errorWriter) bool {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		writeErr(w, http.StatusUnauthorized, "unauthorized", "Authorization bearer token is required")
		return false
	}
	return true
}

// requireActor checks that X-User-Id is present and, when expected is set,
// that it names the acting user.
func requireActor(w http.ResponseWriter, r *http.Request, expected string, writeErr errorWriter) (string, bool) {
	actor := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if actor == "" {
		writeErr(w, http.StatusUnauthorized, "unauthorized", "X-User-Id header is required")
		return "", false
	}
	if expected != "" && actor != strings.TrimSpace(expected) {
		writeErr(w, http.StatusForbidden, "forbidden", "X-User-Id does not match the acting user")
		return "", false
	}
	return actor, true
}

func requireAdmin(w http.ResponseWriter, r *http.Request, writeErr errorWriter) (string, bool) {
	adminID := strings.TrimSpace(r.Header.Get("X-Admin-Id"))
	if adminID == "" {
		writeErr(w, http.StatusForbidden, "forbidden", "X-Admin-Id header is required")
		return "", false
	}
	return adminID, true
}

func parseLimit(w http.ResponseWriter, r *http.Request, writeErr errorWriter) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		writeErr(w, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
