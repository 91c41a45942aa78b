package worker

import (
	"context"

	"github.com/mxichain/presale/internal/database"
	"github.com/mxichain/presale/internal/handler"
	"github.com/mxichain/presale/internal/helper"
	"github.com/mxichain/presale/internal/smtp"
	"github.com/mxichain/presale/internal/stream"
)

type Worker struct {
	KafkaStream *stream.KafkaStream
	DB          *database.DB
	Ctx         context.Context
	Helper      *helper.HelperRepository
	Mailer      smtp.MailerInterface
	Verifier    handler.ChainVerifier
}

const (
	// purchaseVerifyGroupID is used for workers that check submitted
	// transaction hashes against the chain
	purchaseVerifyGroupID = "purchase-verify-group"

	// purchaseConfirmedGroupID is used for workers that react to a purchase
	// being credited
	purchaseConfirmedGroupID = "purchase-confirmed-group"

	// purchaseFailedGroupID is used for workers that react to a purchase
	// failing on-chain verification
	purchaseFailedGroupID = "purchase-failed-group"

	// Topics
	// PurchaseVerifyTopic carries newly initiated purchases awaiting
	// on-chain verification.
	PurchaseVerifyTopic = "purchase.verify"

	// PurchaseConfirmedTopic carries purchases that have been verified and
	// credited, so notifications can go out.
	PurchaseConfirmedTopic = "purchase.confirmed"

	// PurchaseFailedTopic carries purchases whose on-chain verification
	// failed permanently.
	PurchaseFailedTopic = "purchase.failed"
)

// Our workers typically need access to the database and kafka event stream;
// worker-specific dependencies can be passed as argument to the worker
func New(wk *Worker) *Worker {
	return &Worker{
		KafkaStream: wk.KafkaStream,
		DB:          wk.DB,
		Ctx:         wk.Ctx,
		Helper:      wk.Helper,
		Mailer:      wk.Mailer,
		Verifier:    wk.Verifier,
	}
}
