package faucet

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DevGruGold/xmrt-asset-tokenizer/models"
)

// newTestDB opens an in-memory sqlite database with the faucet schema.
// MaxOpenConns(1) keeps every query on the same in-memory instance.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.FaucetConfigEntry{}, &models.FaucetClaim{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func seedSettings(t *testing.T, db *gorm.DB, enabled bool, cooldownHours int, amount string) {
	t.Helper()
	enabledValue := "false"
	if enabled {
		enabledValue = "true"
	}
	entries := []models.FaucetConfigEntry{
		{Key: models.ConfigKeyEnabled, Value: enabledValue},
		{Key: models.ConfigKeyCooldownHours, Value: itoa(cooldownHours)},
		{Key: models.ConfigKeyClaimAmount, Value: amount},
	}
	for _, entry := range entries {
		if err := db.Create(&entry).Error; err != nil {
			t.Fatalf("failed to seed setting %s: %v", entry.Key, err)
		}
	}
}

func itoa(n int) string {
	return big.NewInt(int64(n)).String()
}

func countClaims(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.FaucetClaim{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count claims: %v", err)
	}
	return count
}

func loadClaim(t *testing.T, db *gorm.DB, id uint) models.FaucetClaim {
	t.Helper()
	var claim models.FaucetClaim
	if err := db.First(&claim, id).Error; err != nil {
		t.Fatalf("failed to load claim %d: %v", id, err)
	}
	return claim
}

// fakeSender is a TxSender that succeeds or fails on demand without touching
// the network. Confirmation outcomes are controlled per test.
type fakeSender struct {
	mu            sync.Mutex
	unconfigured  bool
	sendErr       error
	waitErr       error
	receiptStatus uint64
	nonce         uint64
	sent          []*types.Transaction
	// waitGate, when set, blocks Wait until the channel is closed so tests can
	// observe the record between submission and confirmation.
	waitGate chan struct{}
}

func newFakeSender() *fakeSender {
	return &fakeSender{receiptStatus: types.ReceiptStatusSuccessful}
}

func (f *fakeSender) Configured() bool {
	return !f.unconfigured
}

func (f *fakeSender) Send(ctx context.Context, to common.Address, wei *big.Int) (*types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	tx := types.NewTransaction(f.nonce, to, wei, 21000, big.NewInt(1), nil)
	f.nonce++
	f.sent = append(f.sent, tx)
	return tx, nil
}

func (f *fakeSender) Wait(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	f.mu.Lock()
	gate := f.waitGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	return &types.Receipt{
		Status:      f.receiptStatus,
		TxHash:      tx.Hash(),
		BlockNumber: big.NewInt(1),
	}, nil
}

func (f *fakeSender) ReceiptByHash(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	return &types.Receipt{
		Status:      f.receiptStatus,
		TxHash:      hash,
		BlockNumber: big.NewInt(1),
	}, nil
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

var errSendBoom = errors.New("insufficient funds for gas * price + value")

func newTestController(db *gorm.DB, sender *fakeSender) *Controller {
	return NewController(db, sender, Config{
		ExplorerBaseURL: "https://sepolia.etherscan.io",
		ConfirmTimeout:  5 * time.Second,
		PendingMaxAge:   time.Hour,
	})
}
