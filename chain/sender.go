package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// Gas for a plain value transfer.
const transferGasLimit = 21000

// TxSender submits native-currency transfers and waits for their receipts.
// The faucet dispatcher only ever needs these three operations.
type TxSender interface {
	// Configured reports whether a signing key is available. The dispatcher
	// checks this after creating the pending ledger row, before any network call.
	Configured() bool
	// Send submits a transfer of wei to the given address and returns the
	// signed transaction.
	Send(ctx context.Context, to common.Address, wei *big.Int) (*types.Transaction, error)
	// Wait blocks until the transaction is mined or ctx expires.
	Wait(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
	// ReceiptByHash fetches the receipt of an already-submitted transaction,
	// used when finalizing claims whose Wait never ran to completion.
	ReceiptByHash(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// EthSender sends transfers through a JSON-RPC endpoint using a single funding
// key. The client connection is established lazily so the service can boot and
// serve eligibility/stats even when the RPC endpoint is unreachable.
type EthSender struct {
	rpcURL string
	key    *ecdsa.PrivateKey
	from   common.Address

	mu     sync.Mutex
	client *ethclient.Client
}

// NewEthSender builds a sender from an RPC URL and a hex-encoded private key.
// An empty key is not an error: it yields an unconfigured sender, and claims
// against it fail at dispatch time with the ledger row marked failed.
func NewEthSender(rpcURL, privateKeyHex string) (*EthSender, error) {
	s := &EthSender{rpcURL: rpcURL}
	privateKeyHex = strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if privateKeyHex == "" {
		return s, nil
	}
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid faucet private key: %w", err)
	}
	s.key = key
	s.from = crypto.PubkeyToAddress(key.PublicKey)
	return s, nil
}

func (s *EthSender) Configured() bool {
	return s.key != nil
}

// FromAddress returns the funding wallet address, or the zero address when
// no key is configured.
func (s *EthSender) FromAddress() common.Address {
	return s.from
}

func (s *EthSender) dial(ctx context.Context) (*ethclient.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	client, err := ethclient.DialContext(ctx, s.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc endpoint: %w", err)
	}
	s.client = client
	return client, nil
}

func (s *EthSender) Send(ctx context.Context, to common.Address, wei *big.Int) (*types.Transaction, error) {
	if s.key == nil {
		return nil, errors.New("faucet signing key not configured")
	}
	client, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}

	nonce, err := client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	tx := types.NewTransaction(nonce, to, wei, transferGasLimit, gasPrice, nil)
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}
	return signedTx, nil
}

func (s *EthSender) Wait(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	client, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	return bind.WaitMined(ctx, client, tx)
}

// ReceiptByHash fetches a receipt for an already-submitted transaction. Used
// by the sweep to finalize claims whose confirmation goroutine never finished.
func (s *EthSender) ReceiptByHash(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	client, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	return client.TransactionReceipt(ctx, hash)
}

// EtherToWei converts a decimal ether amount such as "0.1" into wei.
func EtherToWei(amount string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", amount)
	}
	wei := d.Mul(decimal.New(1, 18))
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has sub-wei precision", amount)
	}
	return wei.BigInt(), nil
}
