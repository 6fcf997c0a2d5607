package faucet

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/DevGruGold/xmrt-asset-tokenizer/models"
	"github.com/DevGruGold/xmrt-asset-tokenizer/utils"
)

// How long the sweep waits on a single receipt lookup.
const sweepReceiptTimeout = 10 * time.Second

// SweepHandler POST /cron/faucet-sweep (protected via X-CRON-KEY header)
//
// Finalizes claims that have been pending longer than PendingMaxAge, typically
// because the process died before its confirmation goroutine finished. Claims
// with a transaction hash get one receipt re-check; claims without one never
// made it to the network and are failed outright.
func (c *Controller) SweepHandler(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("X-CRON-KEY")
	if key == "" || key != os.Getenv("CRON_KEY") {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	cutoff := time.Now().UTC().Add(-c.PendingMaxAge)
	stale, err := models.StalePendingClaims(c.DB, cutoff)
	if err != nil {
		log.Printf("[faucet/sweep] DB error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to sweep pending claims"})
		return
	}

	completed := 0
	failed := 0
	for _, claim := range stale {
		if claim.TransactionHash == nil || *claim.TransactionHash == "" {
			c.failClaim(claim.ID, "Abandoned before transaction submission")
			failed++
			continue
		}

		ctx, cancel := context.WithTimeout(r.Context(), sweepReceiptTimeout)
		receipt, err := c.Sender.ReceiptByHash(ctx, common.HexToHash(*claim.TransactionHash))
		cancel()
		if err != nil {
			c.failClaim(claim.ID, "Confirmation not observed within "+c.PendingMaxAge.String())
			failed++
			continue
		}
		if receipt.Status == types.ReceiptStatusSuccessful {
			if err := models.MarkClaimCompleted(c.DB, claim.ID); err != nil {
				log.Printf("[faucet/sweep] failed to complete claim %d: %v", claim.ID, err)
				continue
			}
			completed++
		} else {
			c.failClaim(claim.ID, "Transaction failed")
			failed++
		}
	}

	if len(stale) > 0 {
		log.Printf("[faucet/sweep] swept %d stale claims: %d completed, %d failed", len(stale), completed, failed)
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Sweep completed",
		Data: map[string]interface{}{
			"swept":     len(stale),
			"completed": completed,
			"failed":    failed,
		},
	})
}
