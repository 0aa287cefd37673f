package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	ledgerservice "rewardledger/contexts/player-economy/ledger-service"
	ledgerentities "rewardledger/contexts/player-economy/ledger-service/domain/entities"
	voteservice "rewardledger/contexts/player-economy/vote-service"
	"rewardledger/contexts/player-economy/vote-service/adapters/providers"
	"rewardledger/contexts/player-economy/vote-service/application/commands"
	voteentities "rewardledger/contexts/player-economy/vote-service/domain/entities"
	"rewardledger/contexts/player-economy/vote-service/ports"
)

func testVoteProviders() []voteentities.VoteProvider {
	return []voteentities.VoteProvider{
		{
			ProviderID:    "serversmc",
			Type:          voteentities.ProviderTypeServersMC,
			Name:          "ServersMC",
			IsActive:      true,
			CooldownHours: 24,
		},
		{
			ProviderID:    "retired",
			Type:          voteentities.ProviderTypeTopG,
			Name:          "Retired",
			IsActive:      false,
			CooldownHours: 12,
		},
	}
}

func newTestServerWithConfirmer(confirmer ports.VoteConfirmer) *Server {
	return New(
		ledgerservice.NewInMemoryModule([]ledgerentities.Account{
			{UserID: "alice", Username: "Alice", Balance: 5000},
			{UserID: "bob", Username: "Bob"},
		}, nil, slog.Default()),
		voteservice.NewInMemoryModule(
			testVoteProviders(),
			confirmer,
			commands.FixedRewardPolicy{Amount: 500},
			slog.Default(),
		),
		slog.Default(),
		":0",
	)
}

func newTestServer() *Server {
	return newTestServerWithConfirmer(providers.StaticConfirmer{Confirmed: true})
}

func authedRequest(method string, target string, body string, userID string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer token")
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	return req
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return payload
}

func TestTransferBalanceRequiresAuthorization(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/transfer/balance",
		bytes.NewReader([]byte(`{"from_user_id":"alice","to_user_id":"bob","amount":"10.00"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "alice")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestTransferBalanceRejectsForeignActor(t *testing.T) {
	server := newTestServer()
	req := authedRequest(http.MethodPost, "/transfer/balance",
		`{"from_user_id":"alice","to_user_id":"bob","amount":"10.00"}`, "bob")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}
	if code := decodeBody(t, rr)["code"]; code != "forbidden" {
		t.Fatalf("expected forbidden code, got %v", code)
	}
}

func TestTransferBalanceMovesFunds(t *testing.T) {
	server := newTestServer()
	req := authedRequest(http.MethodPost, "/transfer/balance",
		`{"from_user_id":"alice","to_user_id":"bob","amount":"40.00"}`, "alice")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["status"] != "completed" || body["amount"] != "40.00" {
		t.Fatalf("unexpected transfer response: %v", body)
	}

	for userID, want := range map[string]string{"alice": "10.00", "bob": "40.00"} {
		getRR := httptest.NewRecorder()
		server.mux.ServeHTTP(getRR, httptest.NewRequest(http.MethodGet, "/users/"+userID, nil))
		if getRR.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", userID, getRR.Code)
		}
		if got := decodeBody(t, getRR)["balance"]; got != want {
			t.Fatalf("expected %s balance %s, got %v", userID, want, got)
		}
	}
}

func TestTransferBalanceInsufficientFundsReturnsAuditID(t *testing.T) {
	server := newTestServer()
	req := authedRequest(http.MethodPost, "/transfer/balance",
		`{"from_user_id":"alice","to_user_id":"bob","amount":"50.01"}`, "alice")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["code"] != "insufficient_funds" {
		t.Fatalf("expected insufficient_funds, got %v", body["code"])
	}
	if id, _ := body["transfer_id"].(string); id == "" {
		t.Fatalf("expected audit transfer_id, got %v", body)
	}

	listRR := httptest.NewRecorder()
	server.mux.ServeHTTP(listRR, httptest.NewRequest(http.MethodGet, "/users/alice/transfers", nil))
	if listRR.Code != http.StatusOK {
		t.Fatalf("expected 200 list, got %d", listRR.Code)
	}
	items, _ := decodeBody(t, listRR)["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one audited transfer, got %d", len(items))
	}
}

func TestTransferBalanceErrorMapping(t *testing.T) {
	server := newTestServer()
	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"too precise", `{"from_user_id":"alice","to_user_id":"bob","amount":"1.005"}`, http.StatusBadRequest, "invalid_amount"},
		{"zero", `{"from_user_id":"alice","to_user_id":"bob","amount":"0"}`, http.StatusBadRequest, "invalid_amount"},
		{"self", `{"from_user_id":"alice","to_user_id":"alice","amount":"1.00"}`, http.StatusBadRequest, "self_transfer"},
		{"unknown recipient", `{"from_user_id":"alice","to_user_id":"ghost","amount":"1.00"}`, http.StatusNotFound, "not_found"},
		{"bad json", `{"from_user_id":`, http.StatusBadRequest, "invalid_json"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			server.mux.ServeHTTP(rr, authedRequest(http.MethodPost, "/transfer/balance", tc.body, "alice"))
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d body=%s", tc.status, rr.Code, rr.Body.String())
			}
			if code := decodeBody(t, rr)["code"]; code != tc.code {
				t.Fatalf("expected %s, got %v", tc.code, code)
			}
		})
	}
}

func TestGiftRejectsUnknownKind(t *testing.T) {
	server := newTestServer()
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, authedRequest(http.MethodPost, "/gifts",
		`{"kind":"pet","from_user_id":"alice","to_user_id":"bob"}`, "alice"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestFindUserRequiresUsername(t *testing.T) {
	server := newTestServer()
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users?username=bob", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if id := decodeBody(t, rr)["user_id"]; id != "bob" {
		t.Fatalf("expected bob, got %v", id)
	}
}

func TestAdjustBalanceRequiresAdmin(t *testing.T) {
	server := newTestServer()
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, authedRequest(http.MethodPost, "/admin/users/bob/balance-adjustments",
		`{"delta":"5.00","reason":"refund"}`, ""))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}

	req := authedRequest(http.MethodPost, "/admin/users/bob/balance-adjustments",
		`{"delta":"5.00","reason":"refund"}`, "")
	req.Header.Set("X-Admin-Id", "ops-1")
	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if balance := decodeBody(t, rr)["balance"]; balance != "5.00" {
		t.Fatalf("expected 5.00, got %v", balance)
	}
}

func TestSubmitVoteThenCooldownIsReported(t *testing.T) {
	server := newTestServer()
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, authedRequest(http.MethodPost, "/vote/submit",
		`{"user_id":"alice","provider_id":"serversmc"}`, "alice"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["success"] != true {
		t.Fatalf("expected success, got %v", body)
	}
	if at, _ := body["can_vote_at"].(string); at == "" {
		t.Fatalf("expected can_vote_at, got %v", body)
	}

	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, authedRequest(http.MethodPost, "/vote/submit",
		`{"user_id":"alice","provider_id":"serversmc"}`, "alice"))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d body=%s", rr.Code, rr.Body.String())
	}
	body = decodeBody(t, rr)
	if body["code"] != "cooldown_active" {
		t.Fatalf("expected cooldown_active, got %v", body["code"])
	}
	if left, _ := body["time_left_seconds"].(float64); left <= 0 {
		t.Fatalf("expected positive time_left_seconds, got %v", body["time_left_seconds"])
	}

	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cooldown/alice/serversmc", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 cooldown, got %d", rr.Code)
	}
	body = decodeBody(t, rr)
	if body["can_vote"] != false || body["time_left"] == "00:00:00" {
		t.Fatalf("expected running cooldown, got %v", body)
	}

	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/alice/vote-status", nil))
	if at, _ := decodeBody(t, rr)["next_vote_at"].(string); at == "" {
		t.Fatalf("expected next_vote_at, got %s", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/alice/votes", nil))
	items, _ := decodeBody(t, rr)["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one vote record, got %d", len(items))
	}
}

func TestCooldownForFreshUserAllowsVoting(t *testing.T) {
	server := newTestServer()
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cooldown/bob/serversmc", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["can_vote"] != true || body["time_left"] != "00:00:00" {
		t.Fatalf("expected open cooldown, got %v", body)
	}
}

func TestSubmitVoteErrorMapping(t *testing.T) {
	cases := []struct {
		name      string
		confirmer ports.VoteConfirmer
		body      string
		status    int
		code      string
	}{
		{"unknown provider", providers.StaticConfirmer{Confirmed: true}, `{"user_id":"alice","provider_id":"nope"}`, http.StatusNotFound, "not_found"},
		{"inactive provider", providers.StaticConfirmer{Confirmed: true}, `{"user_id":"alice","provider_id":"retired"}`, http.StatusConflict, "provider_inactive"},
		{"provider down", providers.StaticConfirmer{Err: errors.New("dial tcp: refused")}, `{"user_id":"alice","provider_id":"serversmc"}`, http.StatusServiceUnavailable, "provider_unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := newTestServerWithConfirmer(tc.confirmer)
			rr := httptest.NewRecorder()
			server.mux.ServeHTTP(rr, authedRequest(http.MethodPost, "/vote/submit", tc.body, "alice"))
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d body=%s", tc.status, rr.Code, rr.Body.String())
			}
			if code := decodeBody(t, rr)["code"]; code != tc.code {
				t.Fatalf("expected %s, got %v", tc.code, code)
			}
		})
	}
}

func TestSubmitVoteNotConfirmedLeavesCooldownOpen(t *testing.T) {
	server := newTestServerWithConfirmer(providers.StaticConfirmer{Reason: "no vote found"})
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, authedRequest(http.MethodPost, "/vote/submit",
		`{"user_id":"alice","provider_id":"serversmc"}`, "alice"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["success"] != false || body["message"] != "no vote found" {
		t.Fatalf("unexpected response: %v", body)
	}

	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cooldown/alice/serversmc", nil))
	if decodeBody(t, rr)["can_vote"] != true {
		t.Fatalf("expected cooldown to stay open, got %s", rr.Body.String())
	}
}

func TestSubmitVoteRejectsForeignActor(t *testing.T) {
	server := newTestServer()
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, authedRequest(http.MethodPost, "/vote/submit",
		`{"user_id":"alice","provider_id":"serversmc"}`, "bob"))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestListVoteProvidersIncludesInactive(t *testing.T) {
	server := newTestServer()
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/vote/providers", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	list, _ := decodeBody(t, rr)["providers"].([]any)
	if len(list) != 2 {
		t.Fatalf("expected two providers, got %d", len(list))
	}
}

func TestRecordCooldownBlocksLaterVote(t *testing.T) {
	server := newTestServer()
	req := authedRequest(http.MethodPost, "/admin/users/alice/cooldowns",
		`{"action_class":"vote:serversmc","cooldown_hours":2}`, "")
	req.Header.Set("X-Admin-Id", "ops-1")
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, authedRequest(http.MethodPost, "/vote/submit",
		`{"user_id":"alice","provider_id":"serversmc"}`, "alice"))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d body=%s", rr.Code, rr.Body.String())
	}
}
