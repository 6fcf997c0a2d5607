package faucet

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/DevGruGold/xmrt-asset-tokenizer/models"
	"github.com/DevGruGold/xmrt-asset-tokenizer/utils"
)

type statsRequest struct {
	WalletAddress string `json:"walletAddress"`
}

// StatsHandler POST /get-faucet-stats
// Read-only rollup over the ledger. Only completed claims count toward the
// totals; an empty ledger yields zeros, never an error.
func (c *Controller) StatsHandler(w http.ResponseWriter, r *http.Request) {
	var req statsRequest
	// Body is optional; a missing or empty body just means no wallet filter.
	_ = json.NewDecoder(r.Body).Decode(&req)

	totalClaims, err := models.CompletedClaimCount(c.DB)
	if err != nil {
		log.Printf("[faucet/stats] DB error: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to get faucet stats")
		return
	}

	amounts, err := models.CompletedAmounts(c.DB)
	if err != nil {
		log.Printf("[faucet/stats] DB error: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to get faucet stats")
		return
	}
	totalDistributed := decimal.Zero
	for _, amount := range amounts {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			log.Printf("[faucet/stats] skipping unparseable amount %q", amount)
			continue
		}
		totalDistributed = totalDistributed.Add(d)
	}

	// userClaims is always present: null without a wallet filter, an array
	// (possibly empty) with one.
	response := map[string]interface{}{
		"totalClaims":      totalClaims,
		"totalDistributed": totalDistributed.StringFixed(4),
		"userClaims":       nil,
	}
	wallet := strings.ToLower(strings.TrimSpace(req.WalletAddress))
	if wallet != "" {
		userClaims, err := models.RecentClaims(c.DB, wallet, 10)
		if err != nil {
			log.Printf("[faucet/stats] DB error: %v", err)
			utils.WriteError(w, http.StatusInternalServerError, "Failed to get faucet stats")
			return
		}
		if userClaims == nil {
			userClaims = []models.FaucetClaim{}
		}
		response["userClaims"] = userClaims
	}
	utils.WriteData(w, http.StatusOK, response)
}
