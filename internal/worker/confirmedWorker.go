// A confirmed purchase has already been credited inside the settlement
// transaction. This worker only handles the aftermath: the activity trail and
// the confirmation email.
package worker

import (
	"encoding/json"
	"log"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/mxichain/presale/internal/database"
	"github.com/mxichain/presale/internal/handler"
	"github.com/mxichain/presale/internal/stream"
)

func (wk *Worker) ConfirmedPurchaseWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: purchaseConfirmedGroupID,
		Topic:   PurchaseConfirmedTopic,
	})

	if err != nil {
		log.Fatalf("Error creating consumer: %v", err)
	}
	defer consumer.Close()

	for {
		select {
		case <-wk.Ctx.Done():
			log.Println("ConfirmedPurchaseWorker received cancellation signal, shutting down...")
			return
		default:
			event := consumer.Poll(100)
			switch e := event.(type) {
			case *kafka.Message:
				message := e.Value
				var purchaseReq handler.InitiatedPurchase
				json.Unmarshal(message, &purchaseReq)

				log.Printf("Purchase confirmed: %v", purchaseReq)
				wk.sendPurchaseConfirmedAlert(&purchaseReq)
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

func (wk *Worker) sendPurchaseConfirmedAlert(purchaseReq *handler.InitiatedPurchase) bool {
	buyer, found, err := wk.DB.GetUser(purchaseReq.UserID)
	if err != nil || !found {
		log.Printf("Error finding buyer's account for purchase alert: %v", err)
		return false
	}

	wk.Helper.BackgroundTask(nil, func() error {
		_, err := wk.DB.CreateActivityLog(&database.ActivityLog{
			UserID:      buyer.ID,
			Entity:      database.ActivityLogPurchaseEntity,
			EntityId:    purchaseReq.ID,
			Description: handler.PurchaseActivityLogConfirmedDescription,
		})
		if err != nil {
			log.Printf("Error logging confirmed purchase action: %v", err)
			return err
		}

		return nil
	})

	wk.Helper.BackgroundTask(nil, func() error {
		emailData := wk.Helper.NewEmailData()
		emailData["Name"] = buyer.FirstName + " " + buyer.LastName
		emailData["AmountUSDT"] = purchaseReq.AmountUSDT
		emailData["AmountMXI"] = purchaseReq.AmountMXI
		emailData["Stage"] = purchaseReq.Stage
		emailData["TxHash"] = purchaseReq.TxHash

		err := wk.Mailer.Send(buyer.Email, emailData, "purchase-confirmed.tmpl")
		if err != nil {
			log.Printf("Error sending purchase confirmation email: %v", err)
			return err
		}

		return nil
	})

	return true
}
