package worker

import (
	"encoding/json"
	"log"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/mxichain/presale/internal/handler"
	"github.com/mxichain/presale/internal/stream"
)

func (wk *Worker) FailedPurchaseWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: purchaseFailedGroupID,
		Topic:   PurchaseFailedTopic,
	})

	if err != nil {
		log.Fatalf("Error creating consumer: %v", err)
	}
	defer consumer.Close()

	for {
		select {
		case <-wk.Ctx.Done():
			log.Println("FailedPurchaseWorker received cancellation signal, shutting down...")
			return
		default:
			event := consumer.Poll(100)
			switch e := event.(type) {
			case *kafka.Message:
				message := e.Value
				var purchaseReq handler.InitiatedPurchase
				json.Unmarshal(message, &purchaseReq)

				log.Printf("Purchase failed verification: %v", purchaseReq)
				wk.sendPurchaseFailedAlert(&purchaseReq)
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

func (wk *Worker) sendPurchaseFailedAlert(purchaseReq *handler.InitiatedPurchase) bool {
	buyer, found, err := wk.DB.GetUser(purchaseReq.UserID)
	if err != nil || !found {
		log.Printf("Error finding buyer's account for failure alert: %v", err)
		return false
	}

	wk.Helper.BackgroundTask(nil, func() error {
		emailData := wk.Helper.NewEmailData()
		emailData["Name"] = buyer.FirstName + " " + buyer.LastName
		emailData["AmountUSDT"] = purchaseReq.AmountUSDT
		emailData["TxHash"] = purchaseReq.TxHash

		err := wk.Mailer.Send(buyer.Email, emailData, "purchase-failed.tmpl")
		if err != nil {
			log.Printf("Error sending purchase failure email: %v", err)
			return err
		}

		return nil
	})

	return true
}
