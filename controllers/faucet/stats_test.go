package faucet

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DevGruGold/xmrt-asset-tokenizer/models"
)

type statsResponse struct {
	TotalClaims      int64               `json:"totalClaims"`
	TotalDistributed string              `json:"totalDistributed"`
	UserClaims       []models.FaucetClaim `json:"userClaims"`
}

func doStats(t *testing.T, ctrl *Controller, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/get-faucet-stats", strings.NewReader(body))
	rr := httptest.NewRecorder()
	ctrl.StatsHandler(rr, req)
	return rr
}

func TestStatsHandler_EmptyLedger(t *testing.T) {
	db := newTestDB(t)
	ctrl := newTestController(db, newFakeSender())

	rr := doStats(t, ctrl, `{}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp statsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TotalClaims != 0 {
		t.Fatalf("expected zero claims, got %d", resp.TotalClaims)
	}
	if resp.TotalDistributed != "0.0000" {
		t.Fatalf("expected 0.0000 distributed, got %q", resp.TotalDistributed)
	}
}

func TestStatsHandler_EmptyBodyTolerated(t *testing.T) {
	db := newTestDB(t)
	ctrl := newTestController(db, newFakeSender())

	rr := doStats(t, ctrl, ``)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on empty body, got %d", rr.Code)
	}
}

func TestStatsHandler_CountsCompletedOnly(t *testing.T) {
	db := newTestDB(t)
	base := time.Now().UTC().Add(-time.Hour)
	seed := []models.FaucetClaim{
		{WalletAddress: "0xaaa", Amount: "0.1", Status: models.ClaimStatusCompleted, ClaimedAt: base},
		{WalletAddress: "0xbbb", Amount: "0.1", Status: models.ClaimStatusCompleted, ClaimedAt: base.Add(time.Minute)},
		{WalletAddress: "0xaaa", Amount: "0.25", Status: models.ClaimStatusCompleted, ClaimedAt: base.Add(2 * time.Minute)},
		{WalletAddress: "0xaaa", Amount: "9.9", Status: models.ClaimStatusFailed, ClaimedAt: base.Add(3 * time.Minute)},
		{WalletAddress: "0xbbb", Amount: "9.9", Status: models.ClaimStatusPending, ClaimedAt: base.Add(4 * time.Minute)},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("failed to seed claim: %v", err)
		}
	}
	ctrl := newTestController(db, newFakeSender())

	rr := doStats(t, ctrl, `{}`)
	var resp statsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TotalClaims != 3 {
		t.Fatalf("expected 3 completed claims, got %d", resp.TotalClaims)
	}
	// 0.1 + 0.1 + 0.25; pending and failed amounts do not count.
	if resp.TotalDistributed != "0.4500" {
		t.Fatalf("expected 0.4500 distributed, got %q", resp.TotalDistributed)
	}
	// The key is always emitted, null when no wallet filter is given.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to decode raw response: %v", err)
	}
	userClaims, ok := raw["userClaims"]
	if !ok {
		t.Fatal("expected userClaims key in response")
	}
	if string(userClaims) != "null" {
		t.Fatalf("expected null userClaims without a wallet filter, got %s", userClaims)
	}
}

func TestStatsHandler_UnknownWalletGetsEmptyHistory(t *testing.T) {
	db := newTestDB(t)
	ctrl := newTestController(db, newFakeSender())

	rr := doStats(t, ctrl, `{"walletAddress":"0xddd"}`)
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to decode raw response: %v", err)
	}
	if string(raw["userClaims"]) != "[]" {
		t.Fatalf("expected empty array for unknown wallet, got %s", raw["userClaims"])
	}
}

func TestStatsHandler_UserHistoryNewestFirstCapped(t *testing.T) {
	db := newTestDB(t)
	base := time.Now().UTC().Add(-24 * time.Hour)
	for i := 0; i < 12; i++ {
		claim := models.FaucetClaim{
			WalletAddress: "0xccc",
			Amount:        "0.1",
			Status:        models.ClaimStatusFailed,
			ClaimedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(&claim).Error; err != nil {
			t.Fatalf("failed to seed claim: %v", err)
		}
	}
	ctrl := newTestController(db, newFakeSender())

	rr := doStats(t, ctrl, `{"walletAddress":"0xCCC"}`)
	var resp statsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.UserClaims) != 10 {
		t.Fatalf("expected history capped at 10, got %d", len(resp.UserClaims))
	}
	for i := 1; i < len(resp.UserClaims); i++ {
		if resp.UserClaims[i].ClaimedAt.After(resp.UserClaims[i-1].ClaimedAt) {
			t.Fatal("expected history ordered newest first")
		}
	}
}
