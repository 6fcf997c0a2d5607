package faucet

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/DevGruGold/xmrt-asset-tokenizer/models"
	"github.com/DevGruGold/xmrt-asset-tokenizer/utils"
)

// Eligibility is the advisory answer the UI uses to decide whether to show
// the claim button. Field names are part of the wire contract.
type Eligibility struct {
	Eligible      bool       `json:"eligible"`
	Reason        string     `json:"reason,omitempty"`
	ClaimAmount   string     `json:"claimAmount,omitempty"`
	NextClaimTime *time.Time `json:"nextClaimTime"`
	LastClaimTime *time.Time `json:"lastClaimTime,omitempty"`
}

// Evaluate decides whether a wallet may claim right now. Pure function of the
// settings snapshot, the wallet's most recent completed claim (nil when it has
// none) and the clock; failed and pending claims never block a wallet.
func Evaluate(settings models.ClaimSettings, lastCompleted *models.FaucetClaim, now time.Time) Eligibility {
	if !settings.Enabled {
		return Eligibility{Eligible: false, Reason: "Faucet is currently disabled"}
	}
	if lastCompleted == nil {
		return Eligibility{Eligible: true, ClaimAmount: settings.ClaimAmount}
	}

	lastClaimTime := lastCompleted.ClaimedAt
	nextClaimTime := lastClaimTime.Add(time.Duration(settings.CooldownHours) * time.Hour)
	if now.Before(nextClaimTime) {
		minutes := int(math.Ceil(nextClaimTime.Sub(now).Minutes()))
		return Eligibility{
			Eligible:      false,
			Reason:        fmt.Sprintf("You can claim again in %d minutes", minutes),
			NextClaimTime: &nextClaimTime,
			LastClaimTime: &lastClaimTime,
		}
	}
	return Eligibility{Eligible: true, ClaimAmount: settings.ClaimAmount}
}

type eligibilityRequest struct {
	WalletAddress string `json:"walletAddress"`
}

// CheckEligibilityHandler POST /check-faucet-eligibility
// Read-only and advisory; the claim endpoint re-validates on its own.
func (c *Controller) CheckEligibilityHandler(w http.ResponseWriter, r *http.Request) {
	var req eligibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.WalletAddress) == "" {
		utils.WriteError(w, http.StatusBadRequest, "Wallet address is required")
		return
	}
	wallet := strings.ToLower(strings.TrimSpace(req.WalletAddress))

	settings, err := models.LoadClaimSettings(c.DB)
	if err != nil {
		log.Printf("[faucet/eligibility] config load error: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to check eligibility")
		return
	}

	var lastCompleted *models.FaucetClaim
	if settings.Enabled {
		lastCompleted, err = models.LastCompletedClaim(c.DB, wallet)
		if err != nil {
			log.Printf("[faucet/eligibility] DB error: %v", err)
			utils.WriteError(w, http.StatusInternalServerError, "Failed to check eligibility")
			return
		}
	}

	utils.WriteData(w, http.StatusOK, Evaluate(settings, lastCompleted, time.Now().UTC()))
}
