package seeder

import (
	"context"
	"database/sql"
	"log"
)

// seedPresaleStages inserts the sale rounds with their fixed prices and
// allocations. Prices rise from one stage to the next; the first stage is
// activated only when no stage is active yet, so reseeding never moves a
// running sale backwards.
func (seeder *Seeder) seedPresaleStages() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	tx, err := seeder.DB.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		log.Fatalf("Failed to start transaction: %v", err)
	}

	stages := []struct {
		StageNumber   int
		UnitPrice     float64
		AllocationMXI float64
	}{
		{
			StageNumber:   1,
			UnitPrice:     0.40,
			AllocationMXI: 25_000_000,
		},
		{
			StageNumber:   2,
			UnitPrice:     0.70,
			AllocationMXI: 25_000_000,
		},
		{
			StageNumber:   3,
			UnitPrice:     1.00,
			AllocationMXI: 25_000_000,
		},
	}

	for _, stage := range stages {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO presale_stages (stage_number, unit_price, allocation_mxi)
			VALUES ($1, $2, $3)
			ON CONFLICT (stage_number) DO NOTHING;`,
			stage.StageNumber, stage.UnitPrice, stage.AllocationMXI,
		)
		if err != nil {
			tx.Rollback()
			log.Fatalf("Failed to insert presale stage %d: %v", stage.StageNumber, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE presale_stages SET active = TRUE
		WHERE stage_number = 1
		AND NOT EXISTS (SELECT 1 FROM presale_stages WHERE active = TRUE);`,
	)
	if err != nil {
		tx.Rollback()
		log.Fatalf("Failed to activate initial presale stage: %v", err)
	}

	if err = tx.Commit(); err != nil {
		log.Fatalf("Failed to commit transaction: %v", err)
	}
}
