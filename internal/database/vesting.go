package database

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mxichain/presale/internal/vesting"
)

type VestingState struct {
	UserID           string       `db:"user_id"`
	PrincipalMXI     float64      `db:"principal_mxi"`
	RewardBalanceMXI float64      `db:"reward_balance_mxi"`
	MonthlyRate      float64      `db:"monthly_rate"`
	LastUpdate       time.Time    `db:"last_update"`
	CreatedAt        time.Time    `db:"created_at"`
	UpdatedAt        sql.NullTime `db:"updated_at"`
}

type VestingStore interface {
	GetVestingState(userID string) (*VestingState, bool, error)
	SettleVesting(userID string, now time.Time) (*VestingState, error)
	SettleAllVesting(now time.Time) (int, error)
}

func (db *DB) GetVestingState(userID string) (*VestingState, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var state VestingState

	query := `SELECT * FROM vesting_states WHERE user_id = $1`

	err := db.GetContext(ctx, &state, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return &state, true, nil
}

// SettleVesting writes the rewards accrued since the last update into the
// stored balance and advances the timestamp. The row is locked for the
// duration so concurrent settlements cannot lose updates.
func (db *DB) SettleVesting(userID string, now time.Time) (*VestingState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	state, err := settleVestingTx(ctx, tx, userID, db.monthlyRate, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return state, nil
}

// lockVestingStateTx locks the user's vesting row for the rest of the
// transaction. A missing row is created with zero principal at monthlyRate so
// later principal increases have a baseline.
func lockVestingStateTx(ctx context.Context, tx *sqlx.Tx, userID string, monthlyRate float64, now time.Time) (*VestingState, error) {
	var state VestingState

	query := `SELECT * FROM vesting_states WHERE user_id = $1 FOR UPDATE`

	err := tx.GetContext(ctx, &state, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		insert := `
			INSERT INTO vesting_states (user_id, principal_mxi, reward_balance_mxi, monthly_rate, last_update)
			VALUES ($1, 0, 0, $2, $3)
			RETURNING *`

		if err := tx.GetContext(ctx, &state, insert, userID, monthlyRate, now); err != nil {
			return nil, err
		}
		return &state, nil
	}
	if err != nil {
		return nil, err
	}

	return &state, nil
}

// settleVestingTx locks the user's vesting row, folds the accrued reward
// into the stored balance and moves last_update to now.
func settleVestingTx(ctx context.Context, tx *sqlx.Tx, userID string, monthlyRate float64, now time.Time) (*VestingState, error) {
	state, err := lockVestingStateTx(ctx, tx, userID, monthlyRate, now)
	if err != nil {
		return nil, err
	}

	balance := vesting.CurrentRewards(state.RewardBalanceMXI, state.PrincipalMXI, state.MonthlyRate, state.LastUpdate, now)

	update := `
		UPDATE vesting_states
		SET reward_balance_mxi = $1, last_update = $2, updated_at = NOW()
		WHERE user_id = $3
		RETURNING *`

	if err := tx.GetContext(ctx, state, update, balance, now, userID); err != nil {
		return nil, err
	}

	return state, nil
}

// increaseVestingPrincipalTx settles accrual at the old principal and then
// adds tokens to it, so the principal change never back-applies to the
// already-elapsed interval. The ordering itself lives in vesting.Increase.
func increaseVestingPrincipalTx(ctx context.Context, tx *sqlx.Tx, userID string, tokens, monthlyRate float64, now time.Time) error {
	state, err := lockVestingStateTx(ctx, tx, userID, monthlyRate, now)
	if err != nil {
		return err
	}

	principal, balance := vesting.Increase(state.PrincipalMXI, state.RewardBalanceMXI, state.MonthlyRate, state.LastUpdate, now, tokens)

	query := `
		UPDATE vesting_states
		SET principal_mxi = $1, reward_balance_mxi = $2, last_update = $3, updated_at = NOW()
		WHERE user_id = $4`

	_, err = tx.ExecContext(ctx, query, principal, balance, now, userID)
	return err
}

// SettleAllVesting runs a settlement pass over every vesting row. Used by
// the admin force-update endpoint and the nightly scheduler job. Each user
// is settled in its own transaction and failures are logged and skipped, so
// one bad row cannot wedge the batch.
func (db *DB) SettleAllVesting(now time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var userIDs []string

	if err := db.SelectContext(ctx, &userIDs, `SELECT user_id FROM vesting_states`); err != nil {
		return 0, err
	}

	settled := 0
	for _, userID := range userIDs {
		if _, err := db.SettleVesting(userID, now); err != nil {
			log.Printf("Error settling vesting for user %s: %v", userID, err)
			continue
		}
		settled++
	}

	return settled, nil
}
