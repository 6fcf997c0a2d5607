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

func settings(enabled bool, cooldownHours int, amount string) models.ClaimSettings {
	return models.ClaimSettings{Enabled: enabled, CooldownHours: cooldownHours, ClaimAmount: amount}
}

func TestEvaluate_NoHistoryIsEligible(t *testing.T) {
	result := Evaluate(settings(true, 24, "0.1"), nil, time.Now().UTC())
	if !result.Eligible {
		t.Fatalf("expected eligible, got reason %q", result.Reason)
	}
	if result.ClaimAmount != "0.1" {
		t.Fatalf("expected claim amount 0.1, got %q", result.ClaimAmount)
	}
	if result.NextClaimTime != nil {
		t.Fatalf("expected nil nextClaimTime, got %v", result.NextClaimTime)
	}
}

func TestEvaluate_Disabled(t *testing.T) {
	last := &models.FaucetClaim{
		Status:    models.ClaimStatusCompleted,
		ClaimedAt: time.Now().UTC().Add(-48 * time.Hour),
	}
	result := Evaluate(settings(false, 24, "0.1"), last, time.Now().UTC())
	if result.Eligible {
		t.Fatal("expected ineligible when faucet disabled")
	}
	if result.NextClaimTime != nil {
		t.Fatalf("expected nil nextClaimTime when disabled, got %v", result.NextClaimTime)
	}
	if !strings.Contains(result.Reason, "disabled") {
		t.Fatalf("unexpected reason %q", result.Reason)
	}
}

func TestEvaluate_WithinCooldown(t *testing.T) {
	claimedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	last := &models.FaucetClaim{Status: models.ClaimStatusCompleted, ClaimedAt: claimedAt}
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	result := Evaluate(settings(true, 24, "0.1"), last, now)
	if result.Eligible {
		t.Fatal("expected ineligible 12h into a 24h cooldown")
	}
	wantNext := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if result.NextClaimTime == nil || !result.NextClaimTime.Equal(wantNext) {
		t.Fatalf("expected nextClaimTime %v, got %v", wantNext, result.NextClaimTime)
	}
	if result.LastClaimTime == nil || !result.LastClaimTime.Equal(claimedAt) {
		t.Fatalf("expected lastClaimTime %v, got %v", claimedAt, result.LastClaimTime)
	}
	if !strings.Contains(result.Reason, "720 minutes") {
		t.Fatalf("expected remaining-minutes reason, got %q", result.Reason)
	}
}

func TestEvaluate_CooldownExpiry(t *testing.T) {
	claimedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	last := &models.FaucetClaim{Status: models.ClaimStatusCompleted, ClaimedAt: claimedAt}

	// Ineligible right up to the boundary, eligible exactly at it.
	justBefore := claimedAt.Add(24*time.Hour - time.Second)
	if result := Evaluate(settings(true, 24, "0.1"), last, justBefore); result.Eligible {
		t.Fatal("expected ineligible one second before cooldown expiry")
	}
	atBoundary := claimedAt.Add(24 * time.Hour)
	if result := Evaluate(settings(true, 24, "0.1"), last, atBoundary); !result.Eligible {
		t.Fatal("expected eligible exactly at cooldown expiry")
	}
}

func TestCheckEligibilityHandler_RequiresWallet(t *testing.T) {
	db := newTestDB(t)
	seedSettings(t, db, true, 24, "0.1")
	ctrl := newTestController(db, newFakeSender())

	req := httptest.NewRequest(http.MethodPost, "/v1/check-faucet-eligibility", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	ctrl.CheckEligibilityHandler(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCheckEligibilityHandler_FreshWallet(t *testing.T) {
	db := newTestDB(t)
	seedSettings(t, db, true, 24, "0.1")
	ctrl := newTestController(db, newFakeSender())

	body := `{"walletAddress":"0xAbC0000000000000000000000000000000000001"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/check-faucet-eligibility", strings.NewReader(body))
	rr := httptest.NewRecorder()
	ctrl.CheckEligibilityHandler(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var result Eligibility
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !result.Eligible || result.ClaimAmount != "0.1" {
		t.Fatalf("expected eligible with amount 0.1, got %+v", result)
	}
}

func TestCheckEligibilityHandler_DisabledIsNotAnError(t *testing.T) {
	db := newTestDB(t)
	seedSettings(t, db, false, 24, "0.1")
	ctrl := newTestController(db, newFakeSender())

	body := `{"walletAddress":"0xAbC0000000000000000000000000000000000001"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/check-faucet-eligibility", strings.NewReader(body))
	rr := httptest.NewRecorder()
	ctrl.CheckEligibilityHandler(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var result Eligibility
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Eligible {
		t.Fatal("expected ineligible while disabled")
	}
}

func TestCheckEligibilityHandler_NormalizesAddressCase(t *testing.T) {
	db := newTestDB(t)
	seedSettings(t, db, true, 24, "0.1")
	claim := models.FaucetClaim{
		WalletAddress: "0xabc0000000000000000000000000000000000001",
		Amount:        "0.1",
		Status:        models.ClaimStatusCompleted,
		ClaimedAt:     time.Now().UTC().Add(-time.Hour),
	}
	if err := db.Create(&claim).Error; err != nil {
		t.Fatalf("failed to seed claim: %v", err)
	}
	ctrl := newTestController(db, newFakeSender())

	// Mixed-case address must match the lower-cased ledger row.
	body := `{"walletAddress":"0xABC0000000000000000000000000000000000001"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/check-faucet-eligibility", strings.NewReader(body))
	rr := httptest.NewRecorder()
	ctrl.CheckEligibilityHandler(rr, req)

	var result Eligibility
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Eligible {
		t.Fatal("expected ineligible one hour after a completed claim")
	}
	if result.NextClaimTime == nil {
		t.Fatal("expected nextClaimTime to be set")
	}
}

func TestEvaluate_FailedClaimsDoNotBlock(t *testing.T) {
	// The cooldown clock keys off completed claims only; the caller passes nil
	// when the wallet has nothing completed, however many failed attempts exist.
	result := Evaluate(settings(true, 24, "0.5"), nil, time.Now().UTC())
	if !result.Eligible || result.ClaimAmount != "0.5" {
		t.Fatalf("expected eligible with configured amount, got %+v", result)
	}
}
