// Verification workers pick up initiated purchases and check the reported
// transaction hash against the chain. A purchase that is simply not mined or
// not buried deep enough yet stays pending; the scheduler re-enqueues stale
// pending records. Only a transfer that is provably wrong is marked failed.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/mxichain/presale/internal/chain"
	"github.com/mxichain/presale/internal/database"
	"github.com/mxichain/presale/internal/handler"
	"github.com/mxichain/presale/internal/stream"
)

func (wk *Worker) VerifyPurchaseWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: purchaseVerifyGroupID,
		Topic:   PurchaseVerifyTopic,
	})

	if err != nil {
		log.Fatalf("Error creating consumer: %v", err)
	}
	defer consumer.Close()

	for {
		select {
		case <-wk.Ctx.Done():
			log.Println("VerifyPurchaseWorker received cancellation signal, shutting down...")
			return
		default:
			event := consumer.Poll(100)
			switch e := event.(type) {
			case *kafka.Message:
				message := e.Value
				log.Printf("Verify message received on %s: %s\n", e.TopicPartition, string(e.Value))

				var purchaseReq handler.InitiatedPurchase
				json.Unmarshal(message, &purchaseReq)

				wk.verifyPurchase(&purchaseReq, string(e.Value))
			case kafka.Error:
				log.Printf("Error: %v\n", e)
			case *kafka.AssignedPartitions:
				consumer.Assign(e.Partitions)
			case *kafka.RevokedPartitions:
				consumer.Unassign()
			}
		}
	}
}

func (wk *Worker) verifyPurchase(purchaseReq *handler.InitiatedPurchase, rawMessage string) {
	purchase, found, err := wk.DB.GetPurchase(purchaseReq.ID)
	if err != nil {
		log.Printf("Error loading purchase %s: %v", purchaseReq.ID, err)
		return
	}
	if !found || purchase.Status != database.PurchasePendingStatus {
		return
	}

	ctx, cancel := context.WithTimeout(wk.Ctx, 30*time.Second)
	defer cancel()

	info, err := wk.Verifier.VerifyTransfer(ctx, purchase.TxHash, purchase.AmountUSDT)
	if err != nil {
		switch {
		case errors.Is(err, chain.ErrTxNotFound):
			// not mined yet, leave it pending for the next sweep
			return

		case errors.Is(err, chain.ErrReverted),
			errors.Is(err, chain.ErrNoTransfer),
			errors.Is(err, chain.ErrInsufficientAmount):
			if markErr := wk.DB.MarkPurchaseFailed(purchase.ID); markErr != nil {
				log.Printf("Error marking purchase %s failed: %v", purchase.ID, markErr)
				return
			}
			log.Printf("Purchase %s failed verification: %v", purchase.ID, err)
			wk.KafkaStream.ProduceMessage(PurchaseFailedTopic, rawMessage)
			return

		default:
			log.Printf("Error verifying purchase %s: %v", purchase.ID, err)
			return
		}
	}

	if !info.Confirmed() {
		return
	}

	credited, err := wk.DB.ConfirmPurchase(purchase.ID, time.Now())
	if err != nil {
		log.Printf("Error confirming purchase %s: %v", purchase.ID, err)
		return
	}

	if credited {
		log.Printf("Purchase credited successfully: %v", purchaseReq)
		wk.KafkaStream.ProduceMessage(PurchaseConfirmedTopic, rawMessage)
	}
}
