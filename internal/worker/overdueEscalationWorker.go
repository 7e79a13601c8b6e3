// Each installment the overdue scan transitions ends up here, where it
// becomes a permanent entry in the owner's activity trail. Keeping the trail
// out of the scan itself means a slow escalation can never block a sweep.
package worker

import (
	"encoding/json"
	"log"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/kassaio/kassa/internal/handler"
	"github.com/kassaio/kassa/internal/models"
	"github.com/kassaio/kassa/internal/repository"
	"github.com/kassaio/kassa/internal/scan"
	"github.com/kassaio/kassa/internal/stream"
)

func (wk *Worker) OverdueEscalationWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: overdueEscalationGroupID,
		Topic:   stream.FinanceOverdueTopic,
	})

	if err != nil {
		log.Fatalf("Error creating consumer: %v", err)
	}
	defer consumer.Close()

	for {
		select {
		case <-wk.Ctx.Done():
			log.Println("OverdueEscalationWorker received cancellation signal, shutting down...")
			return
		default:
			event := consumer.Poll(100)
			switch e := event.(type) {
			case *kafka.Message:
				var overdueEvent scan.OverdueEvent
				json.Unmarshal(e.Value, &overdueEvent)

				wk.recordOverdueEscalation(&overdueEvent)
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

func (wk *Worker) recordOverdueEscalation(overdueEvent *scan.OverdueEvent) bool {
	deal, found, err := wk.DealRepo.GetOne(overdueEvent.DealID)
	if err != nil || !found {
		log.Printf("Error finding deal for overdue escalation: %v", err)
		return false
	}

	_, err = wk.ActivityRepo.Insert(&models.ActivityLog{
		UserID:      deal.UserID,
		Entity:      repository.ActivityLogFinanceEntity,
		EntityId:    overdueEvent.FinanceID,
		Description: handler.FinanceActivityLogOverdueDescription,
	})
	if err != nil {
		log.Printf("Error logging overdue escalation: %v", err)
		return false
	}

	return true
}
