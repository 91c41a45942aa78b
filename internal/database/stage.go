package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type PresaleStage struct {
	ID            string       `db:"id"`
	StageNumber   int          `db:"stage_number"`
	UnitPrice     float64      `db:"unit_price"`
	AllocationMXI float64      `db:"allocation_mxi"`
	SoldMXI       float64      `db:"sold_mxi"`
	Active        bool         `db:"active"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     sql.NullTime `db:"updated_at"`
}

var ErrAllocationExceeded = errors.New("stage allocation exceeded")

type StageStore interface {
	GetActiveStage() (*PresaleStage, bool, error)
	GetStageByNumber(number int) (*PresaleStage, bool, error)
	ListStages() ([]PresaleStage, error)
	ActivateStage(number int) error
}

func (db *DB) GetActiveStage() (*PresaleStage, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var stage PresaleStage

	query := `SELECT * FROM presale_stages WHERE active = TRUE ORDER BY stage_number LIMIT 1`

	err := db.GetContext(ctx, &stage, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return &stage, true, nil
}

func (db *DB) GetStageByNumber(number int) (*PresaleStage, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var stage PresaleStage

	query := `SELECT * FROM presale_stages WHERE stage_number = $1`

	err := db.GetContext(ctx, &stage, query, number)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return &stage, true, nil
}

func (db *DB) ListStages() ([]PresaleStage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var stages []PresaleStage

	query := `SELECT * FROM presale_stages ORDER BY stage_number`

	err := db.SelectContext(ctx, &stages, query)
	return stages, err
}

// ActivateStage makes the given stage the only active one.
func (db *DB) ActivateStage(number int) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE presale_stages SET active = FALSE, updated_at = NOW() WHERE active = TRUE`); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `UPDATE presale_stages SET active = TRUE, updated_at = NOW() WHERE stage_number = $1`, number)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("stage %d does not exist", number)
	}

	return tx.Commit()
}

// incrementStageSold adds tokens to a stage's sold counter inside an
// existing transaction, refusing to exceed the allocation.
func incrementStageSold(ctx context.Context, tx *sqlx.Tx, stageNumber int, tokens float64) error {
	query := `
		UPDATE presale_stages
		SET sold_mxi = sold_mxi + $1, updated_at = NOW()
		WHERE stage_number = $2 AND sold_mxi + $1 <= allocation_mxi`

	result, err := tx.ExecContext(ctx, query, tokens, stageNumber)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAllocationExceeded
	}

	return nil
}
