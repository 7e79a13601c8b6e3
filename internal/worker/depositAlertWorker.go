// Deposit receipts go out asynchronously. The wallet handler commits the
// credit and produces one event; this worker turns it into an email so a slow
// or flaky SMTP server never holds up the deposit response.
package worker

import (
	"encoding/json"
	"log"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/kassaio/kassa/internal/handler"
	"github.com/kassaio/kassa/internal/money"
	"github.com/kassaio/kassa/internal/stream"
)

func (wk *Worker) DepositAlertWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: depositAlertGroupID,
		Topic:   stream.DepositCompletedTopic,
	})

	if err != nil {
		log.Fatalf("Error creating consumer: %v", err)
	}
	defer consumer.Close()

	for {
		select {
		case <-wk.Ctx.Done():
			log.Println("DepositAlertWorker received cancellation signal, shutting down...")
			return
		default:
			event := consumer.Poll(100)
			switch e := event.(type) {
			case *kafka.Message:
				var depositEvent handler.DepositCompletedEvent
				json.Unmarshal(e.Value, &depositEvent)

				wk.sendDepositAlert(&depositEvent)
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

func (wk *Worker) sendDepositAlert(depositEvent *handler.DepositCompletedEvent) bool {
	user, found, err := wk.UserRepo.GetOne(depositEvent.UserID)
	if err != nil || !found {
		log.Printf("Error finding account for deposit alert: %v", err)
		return false
	}

	wallet, found, err := wk.WalletRepo.GetOne(depositEvent.WalletID)
	if err != nil || !found {
		log.Printf("Error finding wallet for deposit alert: %v", err)
		return false
	}

	balance, err := wk.WalletRepo.Balance(wallet.ID)
	if err != nil {
		log.Printf("Error computing balance for deposit alert: %v", err)
		return false
	}

	emailData := wk.Helper.NewEmailData()
	emailData["Name"] = user.FirstName + " " + user.LastName
	emailData["Amount"] = money.Kopeks(depositEvent.Amount)
	emailData["Balance"] = balance
	emailData["Reference"] = depositEvent.Reference
	emailData["WalletCode"] = wallet.Code
	emailData["SettledCount"] = depositEvent.SettledCount

	err = wk.Mailer.Send(user.Email, emailData, "deposit-alert.tmpl")
	if err != nil {
		log.Printf("Error sending deposit alert: %v", err)
		return false
	}

	return true
}
