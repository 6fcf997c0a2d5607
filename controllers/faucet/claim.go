package faucet

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/DevGruGold/xmrt-asset-tokenizer/chain"
	"github.com/DevGruGold/xmrt-asset-tokenizer/middleware"
	"github.com/DevGruGold/xmrt-asset-tokenizer/models"
	"github.com/DevGruGold/xmrt-asset-tokenizer/utils"
)

type claimRequest struct {
	WalletAddress string `json:"walletAddress"`
}

// ClaimHandler POST /claim-faucet-tokens
//
// The authoritative claim path. Eligibility is re-checked here behind a
// per-wallet lock; the advisory check endpoint carries no weight. Once a
// pending ledger row exists every failure path must finalize it as failed
// before responding, so the ledger never keeps a pending row for a request
// that is known to be dead.
func (c *Controller) ClaimHandler(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	address := strings.TrimSpace(req.WalletAddress)
	if address == "" || !common.IsHexAddress(address) {
		utils.WriteError(w, http.StatusBadRequest, "Invalid wallet address")
		return
	}
	wallet := strings.ToLower(address)

	// Serialize the check-then-insert section per wallet. Two concurrent
	// requests for one wallet must not both observe "eligible".
	unlock, err := c.locker.Lock(r.Context(), wallet)
	if errors.Is(err, errClaimInProgress) {
		utils.WriteError(w, http.StatusTooManyRequests, "A claim for this wallet is already in progress")
		return
	}
	if err != nil {
		log.Printf("[faucet/claim] lock error for %s: %v", wallet, err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to process claim")
		return
	}
	defer unlock()

	settings, err := models.LoadClaimSettings(c.DB)
	if err != nil {
		log.Printf("[faucet/claim] config load error: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to process claim")
		return
	}
	if !settings.Enabled {
		utils.WriteError(w, http.StatusForbidden, "Faucet is currently disabled")
		return
	}

	lastCompleted, err := models.LastCompletedClaim(c.DB, wallet)
	if err != nil {
		log.Printf("[faucet/claim] DB error: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to process claim")
		return
	}
	eligibility := Evaluate(settings, lastCompleted, time.Now().UTC())
	if !eligibility.Eligible {
		utils.WriteData(w, http.StatusTooManyRequests, map[string]interface{}{
			"error":         "Too soon to claim again",
			"nextClaimTime": eligibility.NextClaimTime,
		})
		return
	}

	// A wallet with an outstanding pending claim is either mid-flight in
	// another instance or waiting for confirmation; either way, no second payout.
	hasPending, err := models.HasPendingClaim(c.DB, wallet)
	if err != nil {
		log.Printf("[faucet/claim] DB error: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to process claim")
		return
	}
	if hasPending {
		utils.WriteError(w, http.StatusTooManyRequests, "A claim for this wallet is already in progress")
		return
	}

	claim := models.FaucetClaim{
		WalletAddress: wallet,
		IPAddress:     middleware.ClientIP(r),
		Amount:        settings.ClaimAmount,
		Status:        models.ClaimStatusPending,
		ClaimedAt:     time.Now().UTC(),
	}
	if err := c.DB.Create(&claim).Error; err != nil {
		log.Printf("[faucet/claim] failed to create claim record: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, "Failed to process claim")
		return
	}

	if !c.Sender.Configured() {
		c.failClaim(claim.ID, "Faucet not configured - missing private key")
		utils.WriteError(w, http.StatusInternalServerError, "Faucet is not properly configured")
		return
	}

	wei, err := chain.EtherToWei(settings.ClaimAmount)
	if err != nil {
		log.Printf("[faucet/claim] bad claim_amount setting: %v", err)
		c.failClaim(claim.ID, "Invalid claim amount configured: "+settings.ClaimAmount)
		utils.WriteError(w, http.StatusInternalServerError, "Faucet is not properly configured")
		return
	}

	tx, err := c.Sender.Send(r.Context(), common.HexToAddress(address), wei)
	if err != nil {
		log.Printf("[faucet/claim] transaction send error for %s: %v", wallet, err)
		c.failClaim(claim.ID, err.Error())
		utils.WriteError(w, http.StatusInternalServerError, "Failed to send tokens")
		return
	}

	txHash := tx.Hash().Hex()
	if err := models.AttachTransactionHash(c.DB, claim.ID, txHash); err != nil {
		// The transfer is already on the wire; keep going so the confirmation
		// step can still finalize the row.
		log.Printf("[faucet/claim] failed to attach tx hash to claim %d: %v", claim.ID, err)
	}
	log.Printf("[faucet/claim] claim %d submitted tx %s for %s", claim.ID, txHash, wallet)

	c.wg.Add(1)
	go c.confirmClaim(claim.ID, tx)

	utils.WriteData(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"transactionHash": txHash,
		"amount":          settings.ClaimAmount,
		"explorerUrl":     c.ExplorerBaseURL + "/tx/" + txHash,
	})
}

// confirmClaim finalizes a claim after its transaction is mined. Runs detached
// from the request; uses its own context so finishing the HTTP response does
// not cancel it.
func (c *Controller) confirmClaim(claimID uint, tx *types.Transaction) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.ConfirmTimeout)
	defer cancel()

	receipt, err := c.Sender.Wait(ctx, tx)
	if err != nil {
		reason := "Confirmation error: " + err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "Confirmation timed out after " + c.ConfirmTimeout.String()
		}
		log.Printf("[faucet/confirm] claim %d tx %s: %v", claimID, tx.Hash().Hex(), err)
		c.failClaim(claimID, reason)
		return
	}

	if receipt.Status == types.ReceiptStatusSuccessful {
		if err := models.MarkClaimCompleted(c.DB, claimID); err != nil {
			log.Printf("[faucet/confirm] failed to complete claim %d: %v", claimID, err)
			return
		}
		log.Printf("[faucet/confirm] claim %d confirmed in block %s", claimID, receipt.BlockNumber)
		return
	}
	c.failClaim(claimID, "Transaction failed")
}

func (c *Controller) failClaim(claimID uint, reason string) {
	if err := models.MarkClaimFailed(c.DB, claimID, reason); err != nil {
		log.Printf("[faucet/claim] failed to mark claim %d failed: %v", claimID, err)
	}
}
