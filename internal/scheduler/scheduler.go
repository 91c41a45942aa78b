package scheduler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mxichain/presale/internal/database"
	"github.com/mxichain/presale/internal/handler"
	"github.com/mxichain/presale/internal/stream"
	"github.com/mxichain/presale/internal/worker"

	"github.com/robfig/cron/v3"
)

const (
	// pending purchases younger than this are left to the normal verify
	// pipeline before the sweep re-enqueues them
	staleAfter = 2 * time.Minute

	// pending purchases older than this are never going to confirm and are
	// marked failed
	abandonAfter = 24 * time.Hour

	sweepBatchSize = 100
)

type Scheduler struct {
	cron        *cron.Cron
	db          *database.DB
	kafkaStream *stream.KafkaStream
	logger      *slog.Logger
}

func New(db *database.DB, kafkaStream *stream.KafkaStream, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:        cron.New(),
		db:          db,
		kafkaStream: kafkaStream,
		logger:      logger,
	}
}

func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc("*/5 * * * *", s.sweepPendingPurchases)
	if err != nil {
		return fmt.Errorf("failed to add pending purchase sweep job: %w", err)
	}

	_, err = s.cron.AddFunc("0 2 * * *", s.settleVestingBalances)
	if err != nil {
		return fmt.Errorf("failed to add vesting settlement job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Cron scheduler started")

	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("Cron scheduler stopped")
}

// sweepPendingPurchases re-enqueues pending purchases that the verify
// pipeline has not resolved, and gives up on ones that have sat unconfirmed
// for a day.
func (s *Scheduler) sweepPendingPurchases() {
	s.logger.Info("Running pending purchase sweep...")

	stale, err := s.db.ListStalePendingPurchases(time.Now().Add(-staleAfter), sweepBatchSize)
	if err != nil {
		s.logger.Error("Error fetching stale pending purchases", "error", err)
		return
	}

	if len(stale) == 0 {
		s.logger.Info("No stale pending purchases found")
		return
	}

	requeued := 0
	abandoned := 0
	cutoff := time.Now().Add(-abandonAfter)

	for _, purchase := range stale {
		event := handler.InitiatedPurchase{
			ID:         purchase.ID,
			UserID:     purchase.UserID,
			TxHash:     purchase.TxHash,
			AmountUSDT: purchase.AmountUSDT,
			AmountMXI:  purchase.AmountMXI,
			Stage:      purchase.Stage,
		}

		message, err := json.Marshal(&event)
		if err != nil {
			s.logger.Error("Error encoding purchase event", "purchase_id", purchase.ID, "error", err)
			continue
		}

		if purchase.CreatedAt.Before(cutoff) {
			if err := s.db.MarkPurchaseFailed(purchase.ID); err != nil {
				s.logger.Error("Error abandoning stale purchase", "purchase_id", purchase.ID, "error", err)
				continue
			}
			s.kafkaStream.ProduceMessage(worker.PurchaseFailedTopic, string(message))
			abandoned++
			continue
		}

		if err := s.kafkaStream.ProduceMessage(worker.PurchaseVerifyTopic, string(message)); err != nil {
			s.logger.Error("Error re-enqueueing purchase", "purchase_id", purchase.ID, "error", err)
			continue
		}
		requeued++
	}

	s.logger.Info("Pending purchase sweep completed", "requeued", requeued, "abandoned", abandoned)
}

// settleVestingBalances folds accrued rewards into stored balances so display
// reads stay cheap and restarts lose nothing.
func (s *Scheduler) settleVestingBalances() {
	s.logger.Info("Running vesting settlement...")

	settled, err := s.db.SettleAllVesting(time.Now())
	if err != nil {
		s.logger.Error("Error settling vesting balances", "error", err)
		return
	}

	s.logger.Info("Vesting settlement completed", "users_settled", settled)
}
