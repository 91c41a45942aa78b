package seeder

import (
	"time"

	"github.com/mxichain/presale/internal/database"
)

const defaultTimeout = 5 * time.Second

type Seeder struct {
	DB *database.DB
}

func New(db *database.DB) *Seeder {
	return &Seeder{
		DB: db,
	}
}

func (seeder *Seeder) Run() {
	seeder.seedPresaleStages()
}
