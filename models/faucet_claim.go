package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Claim lifecycle statuses. A claim is created as pending and is moved to
// exactly one of completed or failed; it never goes back to pending.
const (
	ClaimStatusPending   = "pending"
	ClaimStatusCompleted = "completed"
	ClaimStatusFailed    = "failed"
)

// FaucetClaim is one claim attempt by a wallet. Rows are never deleted.
type FaucetClaim struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	WalletAddress   string    `gorm:"type:varchar(64);not null;index" json:"wallet_address"`
	IPAddress       string    `gorm:"type:varchar(64)" json:"ip_address"`
	Amount          string    `gorm:"type:varchar(32);not null" json:"amount"`
	Status          string    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	TransactionHash *string   `gorm:"type:varchar(80)" json:"transaction_hash,omitempty"`
	ErrorMessage    *string   `gorm:"type:text" json:"error_message,omitempty"`
	ClaimedAt       time.Time `gorm:"not null;index" json:"claimed_at"`
}

func (FaucetClaim) TableName() string {
	return "faucet_claims"
}

// LastCompletedClaim returns the most recent completed claim for a wallet, or
// nil when the wallet has never completed a claim. The address must already be
// normalized to lower case.
func LastCompletedClaim(db *gorm.DB, walletAddress string) (*FaucetClaim, error) {
	var claim FaucetClaim
	err := db.Where("wallet_address = ? AND status = ?", walletAddress, ClaimStatusCompleted).
		Order("claimed_at DESC").
		First(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// HasPendingClaim reports whether the wallet has a claim that is still pending.
func HasPendingClaim(db *gorm.DB, walletAddress string) (bool, error) {
	var count int64
	err := db.Model(&FaucetClaim{}).
		Where("wallet_address = ? AND status = ?", walletAddress, ClaimStatusPending).
		Count(&count).Error
	return count > 0, err
}

// RecentClaims returns up to limit claims for a wallet, any status, newest first.
func RecentClaims(db *gorm.DB, walletAddress string, limit int) ([]FaucetClaim, error) {
	var claims []FaucetClaim
	err := db.Where("wallet_address = ?", walletAddress).
		Order("claimed_at DESC").
		Limit(limit).
		Find(&claims).Error
	return claims, err
}

// CompletedAmounts returns the amount strings of every completed claim.
// Summation is left to the caller so amounts stay decimal strings end to end.
func CompletedAmounts(db *gorm.DB) ([]string, error) {
	var amounts []string
	err := db.Model(&FaucetClaim{}).
		Where("status = ?", ClaimStatusCompleted).
		Pluck("amount", &amounts).Error
	return amounts, err
}

// CompletedClaimCount returns the number of completed claims.
func CompletedClaimCount(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&FaucetClaim{}).
		Where("status = ?", ClaimStatusCompleted).
		Count(&count).Error
	return count, err
}

// MarkClaimFailed moves a pending claim to failed and records the reason. The
// status guard makes terminal states stick: a claim already finalized by the
// confirmation goroutine or the sweep is left untouched. The row keeps
// whatever transaction hash it already has.
func MarkClaimFailed(db *gorm.DB, claimID uint, reason string) error {
	return db.Model(&FaucetClaim{}).
		Where("id = ? AND status = ?", claimID, ClaimStatusPending).
		Updates(map[string]interface{}{
			"status":        ClaimStatusFailed,
			"error_message": reason,
		}).Error
}

// MarkClaimCompleted moves a pending claim to completed and clears any error
// message. Same terminal-state guard as MarkClaimFailed.
func MarkClaimCompleted(db *gorm.DB, claimID uint) error {
	return db.Model(&FaucetClaim{}).
		Where("id = ? AND status = ?", claimID, ClaimStatusPending).
		Updates(map[string]interface{}{
			"status":        ClaimStatusCompleted,
			"error_message": nil,
		}).Error
}

// AttachTransactionHash records the submitted transaction on a pending claim.
func AttachTransactionHash(db *gorm.DB, claimID uint, txHash string) error {
	return db.Model(&FaucetClaim{}).Where("id = ?", claimID).
		Update("transaction_hash", txHash).Error
}

// StalePendingClaims returns pending claims created before the cutoff.
func StalePendingClaims(db *gorm.DB, cutoff time.Time) ([]FaucetClaim, error) {
	var claims []FaucetClaim
	err := db.Where("status = ? AND claimed_at < ?", ClaimStatusPending, cutoff).
		Order("claimed_at ASC").
		Find(&claims).Error
	return claims, err
}
