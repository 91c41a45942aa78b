package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mxichain/presale/assets"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/lib/pq"

	"github.com/mxichain/presale/internal/vesting"
)

const defaultTimeout = 3 * time.Second

type DB struct {
	*sqlx.DB

	// monthlyRate is stamped onto newly created vesting rows. Existing rows
	// keep the rate they were created with.
	monthlyRate float64
}

// New initializes a database connection and runs the embedded migrations if
// enabled. monthlyRate sets the vesting rate for new vesting states; a
// non-positive value falls back to the default policy rate.
func New(dsn string, automigrate bool, monthlyRate float64) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", "postgres://"+dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	if automigrate {
		iofsDriver, err := iofs.New(assets.EmbeddedFiles, "migrations")
		if err != nil {
			return nil, err
		}

		migrator, err := migrate.NewWithSourceInstance("iofs", iofsDriver, "postgres://"+dsn)
		if err != nil {
			return nil, err
		}

		if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, err
		}
	}

	if monthlyRate <= 0 {
		monthlyRate = vesting.DefaultMonthlyRate
	}

	return &DB{DB: db, monthlyRate: monthlyRate}, nil
}

func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return db.BeginTxx(ctx, opts)
}
