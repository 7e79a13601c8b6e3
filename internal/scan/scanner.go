// The overdue sweep walks every pending installment whose due date has
// passed, flips it to overdue, and tells the owner. It is triggered from the
// outside (the /cron endpoint or the sweeper binary); nothing in the API
// server schedules it.
package scan

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/kassaio/kassa/internal/cache"
	"github.com/kassaio/kassa/internal/models"
	"github.com/kassaio/kassa/internal/repository"
	"github.com/kassaio/kassa/internal/stream"
)

const (
	// lockKey and lockTTL bound a single sweep; a crashed run frees itself
	// when the TTL lapses.
	lockKey = "overdue-scan:lock"
	lockTTL = 10 * time.Minute
)

type Scanner struct {
	FinanceRepo  repository.FinanceRepository
	DealRepo     repository.DealRepository
	UserRepo     repository.UserRepository
	ActivityRepo repository.ActivityRepository
	Notifier     Notifier
	Cache        *cache.Cache
	Kafka        *stream.KafkaStream
	Logger       *slog.Logger
}

func New(scanner *Scanner) *Scanner {
	return &Scanner{
		FinanceRepo:  scanner.FinanceRepo,
		DealRepo:     scanner.DealRepo,
		UserRepo:     scanner.UserRepo,
		ActivityRepo: scanner.ActivityRepo,
		Notifier:     scanner.Notifier,
		Cache:        scanner.Cache,
		Kafka:        scanner.Kafka,
		Logger:       scanner.Logger,
	}
}

// NotificationResult reports the outcome of one overdue notice.
type NotificationResult struct {
	FinanceID string `json:"finance_id"`
	Sent      bool   `json:"sent"`
	Error     string `json:"error,omitempty"`
}

type Result struct {
	AlreadyRunning      bool                 `json:"-"`
	OverduePayments     []models.Finance     `json:"overdue_payments"`
	NotificationsSent   int                  `json:"notifications_sent"`
	NotificationsFailed int                  `json:"notifications_failed"`
	NotificationResults []NotificationResult `json:"notification_results"`
}

// OverdueEvent is the payload produced to the finance.overdue topic, one per
// transitioned installment, whether or not its notice went out.
type OverdueEvent struct {
	FinanceID string    `json:"finance_id"`
	DealID    string    `json:"deal_id"`
	Amount    int64     `json:"amount"`
	DueDate   time.Time `json:"due_date"`
}

// Run executes one sweep. Every step after the initial select is
// failure-isolated per installment: a record that cannot be updated or
// notified is logged and reported, and the rest of the batch still runs.
func (s *Scanner) Run(now time.Time) (*Result, error) {
	if s.Cache != nil {
		acquired, err := s.Cache.AcquireLock(lockKey, lockTTL)
		if err != nil {
			// a cache outage must not stop the sweep, it only costs us
			// overlap protection
			s.Logger.Error("overdue scan lock unavailable", "error", err)
		} else if !acquired {
			return &Result{AlreadyRunning: true}, nil
		} else {
			defer func() {
				if err := s.Cache.ReleaseLock(lockKey); err != nil {
					s.Logger.Error("overdue scan lock release failed", "error", err)
				}
			}()
		}
	}

	due, err := s.FinanceRepo.ListDuePending(now)
	if err != nil {
		return nil, err
	}

	result := &Result{
		OverduePayments:     []models.Finance{},
		NotificationResults: []NotificationResult{},
	}

	for _, finance := range due {
		if err := s.FinanceRepo.MarkOverdue(finance.ID); err != nil {
			s.Logger.Error("failed to mark finance overdue",
				"finance_id", finance.ID, "error", err)
			continue
		}

		finance.Status = repository.FinanceStatusOverdue
		result.OverduePayments = append(result.OverduePayments, finance)

		s.produceOverdueEvent(&finance)
	}

	// Notices have no ordering dependency on each other, so they go out
	// concurrently; each send's failure stays its own.
	notifications := make([]NotificationResult, len(result.OverduePayments))

	var wg sync.WaitGroup
	for i, finance := range result.OverduePayments {
		wg.Add(1)

		go func(i int, finance models.Finance) {
			defer wg.Done()
			notifications[i] = s.notify(&finance)
		}(i, finance)
	}
	wg.Wait()

	for _, nr := range notifications {
		result.NotificationResults = append(result.NotificationResults, nr)
		if nr.Sent {
			result.NotificationsSent++
		} else {
			result.NotificationsFailed++
		}
	}

	return result, nil
}

func (s *Scanner) notify(finance *models.Finance) NotificationResult {
	res := NotificationResult{FinanceID: finance.ID}

	deal, found, err := s.DealRepo.GetOne(finance.DealID)
	if err != nil || !found {
		s.Logger.Error("failed to resolve deal for overdue notice",
			"finance_id", finance.ID, "deal_id", finance.DealID, "error", err)
		res.Error = "deal not found"
		return res
	}

	user, found, err := s.UserRepo.GetOne(deal.UserID)
	if err != nil || !found {
		s.Logger.Error("failed to resolve user for overdue notice",
			"finance_id", finance.ID, "user_id", deal.UserID, "error", err)
		res.Error = "user not found"
		return res
	}

	if err := s.Notifier.NotifyOverdue(user, finance); err != nil {
		s.Logger.Error("failed to send overdue notice",
			"finance_id", finance.ID, "user_id", user.ID, "error", err)
		res.Error = err.Error()
		return res
	}

	res.Sent = true
	return res
}

func (s *Scanner) produceOverdueEvent(finance *models.Finance) {
	if s.Kafka == nil {
		return
	}

	event := &OverdueEvent{
		FinanceID: finance.ID,
		DealID:    finance.DealID,
		Amount:    int64(finance.Amount),
		DueDate:   finance.PaymentDate,
	}

	jsonMessage, err := json.Marshal(event)
	if err != nil {
		return
	}

	go s.Kafka.ProduceMessage(stream.FinanceOverdueTopic, string(jsonMessage))
}
