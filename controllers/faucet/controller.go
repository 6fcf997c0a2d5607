package faucet

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/DevGruGold/xmrt-asset-tokenizer/chain"
)

// Controller serves the faucet endpoints: eligibility check, claim dispatch
// and stats. Claim confirmations run in goroutines tracked by wg so main can
// drain them during shutdown instead of dropping ledger updates.
type Controller struct {
	DB     *gorm.DB
	Sender chain.TxSender

	ExplorerBaseURL string
	ConfirmTimeout  time.Duration
	PendingMaxAge   time.Duration

	locker *walletLocker
	wg     sync.WaitGroup
}

// Config carries the tunables for NewController. Zero values fall back to
// sensible defaults.
type Config struct {
	ExplorerBaseURL string
	ConfirmTimeout  time.Duration
	PendingMaxAge   time.Duration
	// Redis enables a cross-instance claim lock; nil keeps locking in-process.
	Redis *redis.Client
}

func NewController(db *gorm.DB, sender chain.TxSender, cfg Config) *Controller {
	if cfg.ExplorerBaseURL == "" {
		cfg.ExplorerBaseURL = "https://sepolia.etherscan.io"
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 5 * time.Minute
	}
	if cfg.PendingMaxAge <= 0 {
		cfg.PendingMaxAge = time.Hour
	}
	return &Controller{
		DB:              db,
		Sender:          sender,
		ExplorerBaseURL: cfg.ExplorerBaseURL,
		ConfirmTimeout:  cfg.ConfirmTimeout,
		PendingMaxAge:   cfg.PendingMaxAge,
		locker:          newWalletLocker(cfg.Redis),
	}
}

// WaitForConfirmations blocks until every detached confirmation goroutine has
// finished. Called after the HTTP server has stopped accepting requests.
func (c *Controller) WaitForConfirmations() {
	c.wg.Wait()
}

// errClaimInProgress means another request currently holds the claim lock for
// the same wallet.
var errClaimInProgress = errors.New("claim already in progress for wallet")

// walletLocker serializes the check-then-insert section of a claim per wallet.
// A process-local mutex map covers the single-instance case; when a Redis
// client is supplied a redislock guards the same section across instances.
// Entries are refcounted and evicted once the last holder releases, so the
// map stays bounded by the number of in-flight claims rather than growing
// with every wallet ever seen.
type walletLocker struct {
	mu    sync.Mutex
	locks map[string]*walletLock
	rl    *redislock.Client
}

type walletLock struct {
	mu   sync.Mutex
	refs int
}

func newWalletLocker(rdb *redis.Client) *walletLocker {
	l := &walletLocker{locks: make(map[string]*walletLock)}
	if rdb != nil {
		l.rl = redislock.New(rdb)
	}
	return l
}

// Lock acquires the per-wallet claim lock and returns its release func.
// Returns errClaimInProgress when the distributed lock is held elsewhere.
// The wallet must already be normalized to lower case.
func (l *walletLocker) Lock(ctx context.Context, wallet string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[wallet]
	if !ok {
		entry = &walletLock{}
		l.locks[wallet] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	release := func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, wallet)
		}
		l.mu.Unlock()
	}
	if l.rl == nil {
		return release, nil
	}

	dl, err := l.rl.Obtain(ctx, "faucet:claim:"+wallet, 30*time.Second, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		release()
		return nil, errClaimInProgress
	}
	if err != nil {
		release()
		return nil, err
	}
	return func() {
		_ = dl.Release(context.Background())
		release()
	}, nil
}

// held reports how many wallets currently have a lock entry.
func (l *walletLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
