package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

type ReferralEarning struct {
	ID           string    `db:"id"`
	EarnerID     string    `db:"earner_id"`
	SourceUserID string    `db:"source_user_id"`
	PurchaseID   string    `db:"purchase_id"`
	Level        int       `db:"level"`
	AmountMXI    float64   `db:"amount_mxi"`
	CreatedAt    time.Time `db:"created_at"`
}

// ReferralStats aggregates a user's referral tree: how many users sit at
// each level below them and how much MXI each level has earned them.
type ReferralStats struct {
	Level1Count    int     `db:"level1_count" json:"level1_count"`
	Level2Count    int     `db:"level2_count" json:"level2_count"`
	Level3Count    int     `db:"level3_count" json:"level3_count"`
	Level1MXI      float64 `db:"level1_mxi" json:"level1_mxi"`
	Level2MXI      float64 `db:"level2_mxi" json:"level2_mxi"`
	Level3MXI      float64 `db:"level3_mxi" json:"level3_mxi"`
	TotalMXIEarned float64 `json:"total_mxi_earned"`
}

type ReferralStore interface {
	GetReferralStats(userID string) (*ReferralStats, error)
	ListReferralEarnings(userID string) ([]ReferralEarning, error)
}

func insertReferralEarningTx(ctx context.Context, tx *sqlx.Tx, earning *ReferralEarning) error {
	query := `
		INSERT INTO referral_earnings (earner_id, source_user_id, purchase_id, level, amount_mxi)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := tx.ExecContext(ctx, query,
		earning.EarnerID,
		earning.SourceUserID,
		earning.PurchaseID,
		earning.Level,
		earning.AmountMXI,
	)
	return err
}

// txReferrerSource adapts an open transaction to the referral calculator's
// ReferrerSource so the ancestor walk sees the same snapshot as the credit
// writes.
type txReferrerSource struct {
	ctx context.Context
	tx  *sqlx.Tx
}

func (s txReferrerSource) ReferrerOf(userID string) (string, bool, error) {
	var referredBy sql.NullString

	query := `SELECT referred_by FROM users WHERE id = $1 AND deleted_at IS NULL`

	err := s.tx.GetContext(s.ctx, &referredBy, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if !referredBy.Valid {
		return "", false, nil
	}

	return referredBy.String, true, nil
}

func (db *DB) GetReferralStats(userID string) (*ReferralStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var stats ReferralStats

	// per-level referred-user counts, walking the referred_by edges down
	// three levels from this user
	countQuery := `
		WITH level1 AS (
			SELECT id FROM users WHERE referred_by = $1 AND deleted_at IS NULL
		), level2 AS (
			SELECT id FROM users WHERE referred_by IN (SELECT id FROM level1) AND deleted_at IS NULL
		), level3 AS (
			SELECT id FROM users WHERE referred_by IN (SELECT id FROM level2) AND deleted_at IS NULL
		)
		SELECT
			(SELECT COUNT(*) FROM level1) AS level1_count,
			(SELECT COUNT(*) FROM level2) AS level2_count,
			(SELECT COUNT(*) FROM level3) AS level3_count`

	if err := db.GetContext(ctx, &stats, countQuery, userID); err != nil {
		return nil, err
	}

	earningsQuery := `
		SELECT
			COALESCE(SUM(amount_mxi) FILTER (WHERE level = 1), 0) AS level1_mxi,
			COALESCE(SUM(amount_mxi) FILTER (WHERE level = 2), 0) AS level2_mxi,
			COALESCE(SUM(amount_mxi) FILTER (WHERE level = 3), 0) AS level3_mxi
		FROM referral_earnings
		WHERE earner_id = $1`

	var earned struct {
		Level1MXI float64 `db:"level1_mxi"`
		Level2MXI float64 `db:"level2_mxi"`
		Level3MXI float64 `db:"level3_mxi"`
	}

	if err := db.GetContext(ctx, &earned, earningsQuery, userID); err != nil {
		return nil, err
	}

	stats.Level1MXI = earned.Level1MXI
	stats.Level2MXI = earned.Level2MXI
	stats.Level3MXI = earned.Level3MXI
	stats.TotalMXIEarned = earned.Level1MXI + earned.Level2MXI + earned.Level3MXI

	return &stats, nil
}

func (db *DB) ListReferralEarnings(userID string) ([]ReferralEarning, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var earnings []ReferralEarning

	query := `SELECT * FROM referral_earnings WHERE earner_id = $1 ORDER BY created_at DESC`

	err := db.SelectContext(ctx, &earnings, query, userID)
	return earnings, err
}
