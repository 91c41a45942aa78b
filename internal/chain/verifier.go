// Package chain verifies USDT transfers on the settlement chain. The mobile
// client submits a transaction hash after the wallet broadcasts the
// transfer; this package checks the receipt, the token contract, the
// destination treasury wallet, the paid amount and the confirmation count.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	ErrTxNotFound         = errors.New("transaction not found on chain")
	ErrWrongNetwork       = errors.New("rpc endpoint is on the wrong network")
	ErrReverted           = errors.New("transaction reverted on chain")
	ErrNoTransfer         = errors.New("transaction contains no matching USDT transfer to the treasury wallet")
	ErrInsufficientAmount = errors.New("transferred amount is below the claimed amount")
)

// transferEventTopic is keccak256("Transfer(address,address,uint256)"), the
// ERC-20 Transfer event signature.
var transferEventTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// TransferInfo describes a verified USDT transfer and its confirmation
// progress.
type TransferInfo struct {
	TxHash        string
	FromAddress   string
	AmountUSDT    float64
	BlockNumber   uint64
	Confirmations uint64
	Required      uint64
}

// Confirmed reports whether the transfer has reached the confirmation
// threshold.
func (t *TransferInfo) Confirmed() bool {
	return t.Confirmations >= t.Required
}

type Verifier struct {
	rpcURL   string
	chainID  *big.Int
	usdt     common.Address
	treasury common.Address
	required uint64
	decimals int

	mu     sync.Mutex
	client *ethclient.Client
}

func NewVerifier(rpcURL string, chainID int64, usdtContract, treasuryWallet string, requiredConfirmations uint64, usdtDecimals int) *Verifier {
	return &Verifier{
		rpcURL:   rpcURL,
		chainID:  big.NewInt(chainID),
		usdt:     common.HexToAddress(usdtContract),
		treasury: common.HexToAddress(treasuryWallet),
		required: requiredConfirmations,
		decimals: usdtDecimals,
	}
}

// connect lazily dials the RPC endpoint and gates on the chain id so a
// misconfigured endpoint cannot confirm purchases from another network.
func (v *Verifier) connect(ctx context.Context) (*ethclient.Client, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.client != nil {
		return v.client, nil
	}

	client, err := ethclient.DialContext(ctx, v.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain rpc: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}

	if chainID.Cmp(v.chainID) != 0 {
		client.Close()
		return nil, fmt.Errorf("%w: got chain id %s, want %s", ErrWrongNetwork, chainID, v.chainID)
	}

	v.client = client
	return client, nil
}

// VerifyTransfer looks up txHash and checks that it carries a USDT transfer
// of at least claimedUSDT into the treasury wallet. A nil error with an
// unconfirmed TransferInfo means the transaction is mined but still below
// the confirmation threshold; the caller re-polls.
func (v *Verifier) VerifyTransfer(ctx context.Context, txHash string, claimedUSDT float64) (*TransferInfo, error) {
	client, err := v.connect(ctx)
	if err != nil {
		return nil, err
	}

	hash := common.HexToHash(txHash)

	receipt, err := client.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, ErrTxNotFound
		}
		return nil, fmt.Errorf("failed to fetch receipt: %w", err)
	}

	if receipt.Status == types.ReceiptStatusFailed {
		return nil, ErrReverted
	}

	from, amount, found := ExtractTransfer(receipt.Logs, v.usdt, v.treasury, v.decimals)
	if !found {
		return nil, ErrNoTransfer
	}

	// small tolerance for float round-trips through the client
	if amount < claimedUSDT-1e-6 {
		return nil, fmt.Errorf("%w: got %f, claimed %f", ErrInsufficientAmount, amount, claimedUSDT)
	}

	head, err := client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain head: %w", err)
	}

	var confirmations uint64
	if head >= receipt.BlockNumber.Uint64() {
		confirmations = head - receipt.BlockNumber.Uint64() + 1
	}

	return &TransferInfo{
		TxHash:        txHash,
		FromAddress:   from,
		AmountUSDT:    amount,
		BlockNumber:   receipt.BlockNumber.Uint64(),
		Confirmations: confirmations,
		Required:      v.required,
	}, nil
}

// ExtractTransfer scans receipt logs for an ERC-20 Transfer event emitted by
// the token contract into the treasury wallet. It returns the sender and the
// transferred amount in whole token units.
func ExtractTransfer(logs []*types.Log, token, treasury common.Address, decimals int) (from string, amount float64, found bool) {
	for _, entry := range logs {
		if entry.Address != token {
			continue
		}
		if len(entry.Topics) != 3 || entry.Topics[0] != transferEventTopic {
			continue
		}

		to := common.BytesToAddress(entry.Topics[2].Bytes())
		if to != treasury {
			continue
		}

		sender := common.BytesToAddress(entry.Topics[1].Bytes())
		value := new(big.Int).SetBytes(entry.Data)

		return sender.Hex(), TokenUnits(value, decimals), true
	}

	return "", 0, false
}

// TokenUnits converts a raw token value into whole units given the token's
// decimals (18 for the settlement USDT contract).
func TokenUnits(value *big.Int, decimals int) float64 {
	f := new(big.Float).SetInt(value)
	f.Quo(f, big.NewFloat(math.Pow10(decimals)))

	units, _ := f.Float64()
	return units
}
