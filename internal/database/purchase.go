package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mxichain/presale/internal/referral"
)

type Purchase struct {
	ID            string       `db:"id"`
	UserID        string       `db:"user_id"`
	WalletAddress string       `db:"wallet_address"`
	TxHash        string       `db:"tx_hash"`
	AmountUSDT    float64      `db:"amount_usdt"`
	AmountMXI     float64      `db:"amount_mxi"`
	Stage         int          `db:"stage"`
	Status        string       `db:"status"`
	ConfirmedAt   sql.NullTime `db:"confirmed_at"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     sql.NullTime `db:"updated_at"`
}

const (
	// PurchasePendingStatus is set when the client reports a transaction
	// hash, before the transfer is confirmed on chain.
	PurchasePendingStatus = "pending"

	// PurchaseConfirmedStatus means the transfer reached the confirmation
	// threshold and tokens have been credited. Terminal.
	PurchaseConfirmedStatus = "confirmed"

	// PurchaseFailedStatus means the transfer reverted or verification
	// rejected it. No tokens are credited. Terminal.
	PurchaseFailedStatus = "failed"
)

type PurchaseStore interface {
	InsertPurchase(purchase *Purchase) (string, error)
	GetPurchase(id string) (*Purchase, bool, error)
	FindPurchaseByTxHash(txHash string) (*Purchase, bool, error)
	ListPurchasesByUser(userID string) ([]Purchase, error)
	ListStalePendingPurchases(olderThan time.Time, limit int) ([]Purchase, error)
	MarkPurchaseFailed(id string) error
	ConfirmPurchase(id string, now time.Time) (bool, error)
}

func (db *DB) InsertPurchase(purchase *Purchase) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string

	query := `
		INSERT INTO purchases (user_id, wallet_address, tx_hash, amount_usdt, amount_mxi, stage)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := db.GetContext(ctx, &id, query,
		purchase.UserID,
		purchase.WalletAddress,
		purchase.TxHash,
		purchase.AmountUSDT,
		purchase.AmountMXI,
		purchase.Stage,
	)
	if err != nil {
		return "", err
	}

	return id, nil
}

func (db *DB) GetPurchase(id string) (*Purchase, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var purchase Purchase

	query := `SELECT * FROM purchases WHERE id = $1`

	err := db.GetContext(ctx, &purchase, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	return &purchase, true, err
}

func (db *DB) FindPurchaseByTxHash(txHash string) (*Purchase, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var purchase Purchase

	query := `SELECT * FROM purchases WHERE tx_hash = $1`

	err := db.GetContext(ctx, &purchase, query, txHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	return &purchase, true, err
}

func (db *DB) ListPurchasesByUser(userID string) ([]Purchase, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var purchases []Purchase

	query := `SELECT * FROM purchases WHERE user_id = $1 ORDER BY created_at DESC`

	err := db.SelectContext(ctx, &purchases, query, userID)
	return purchases, err
}

// ListStalePendingPurchases returns pending purchases created before the
// cutoff, for the scheduler's verification sweep.
func (db *DB) ListStalePendingPurchases(olderThan time.Time, limit int) ([]Purchase, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var purchases []Purchase

	query := `
		SELECT * FROM purchases
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3`

	err := db.SelectContext(ctx, &purchases, query, PurchasePendingStatus, olderThan, limit)
	return purchases, err
}

func (db *DB) MarkPurchaseFailed(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE purchases SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`

	_, err := db.ExecContext(ctx, query, PurchaseFailedStatus, id, PurchasePendingStatus)
	return err
}

// ConfirmPurchase settles a verified purchase in one transaction: it flips
// the record to confirmed, credits the buyer's vesting principal, bumps the
// stage sold counter and writes the referral commission ledger rows. The
// purchase row is locked and its status re-checked first, so re-verifying an
// already-confirmed transaction hash credits nothing. The returned bool
// reports whether this call did the crediting.
func (db *DB) ConfirmPurchase(id string, now time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var purchase Purchase

	query := `SELECT * FROM purchases WHERE id = $1 FOR UPDATE`

	if err := tx.GetContext(ctx, &purchase, query, id); err != nil {
		return false, err
	}

	if purchase.Status != PurchasePendingStatus {
		return false, nil
	}

	update := `UPDATE purchases SET status = $1, confirmed_at = $2, updated_at = NOW() WHERE id = $3`

	if _, err := tx.ExecContext(ctx, update, PurchaseConfirmedStatus, now, id); err != nil {
		return false, err
	}

	if err := increaseVestingPrincipalTx(ctx, tx, purchase.UserID, purchase.AmountMXI, db.monthlyRate, now); err != nil {
		return false, err
	}

	if err := incrementStageSold(ctx, tx, purchase.Stage, purchase.AmountMXI); err != nil {
		return false, err
	}

	calc := referral.NewCalculator(txReferrerSource{ctx: ctx, tx: tx})
	credits, err := calc.Distribute(purchase.UserID, purchase.AmountMXI)
	if err != nil {
		return false, err
	}

	for _, credit := range credits {
		if err := insertReferralEarningTx(ctx, tx, &ReferralEarning{
			EarnerID:     credit.EarnerID,
			SourceUserID: purchase.UserID,
			PurchaseID:   purchase.ID,
			Level:        credit.Level,
			AmountMXI:    credit.AmountMXI,
		}); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	return true, nil
}
