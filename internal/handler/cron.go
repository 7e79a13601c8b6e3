package handler

import (
	"net/http"
	"time"

	"github.com/kassaio/kassa/internal/errHandler"
	"github.com/kassaio/kassa/internal/response"
	"github.com/kassaio/kassa/internal/scan"
)

type CronHandler struct {
	Scanner    *scan.Scanner
	ErrHandler *errHandler.ErrorRepository
}

// OverduePaymentData is one transitioned installment as reported back to the
// scheduler, amounts in major units.
type OverduePaymentData struct {
	ID                string    `json:"id"`
	DealID            string    `json:"deal_id"`
	Amount            float64   `json:"amount"`
	InstallmentNumber int       `json:"installment_number"`
	Status            string    `json:"status"`
	PaymentDate       time.Time `json:"payment_date"`
}

func NewCronHandler(handler *CronHandler) *CronHandler {
	return &CronHandler{
		Scanner:    handler.Scanner,
		ErrHandler: handler.ErrHandler,
	}
}

// HandleOverdueScan runs one overdue sweep on behalf of the platform
// scheduler. The endpoint is idempotent between sweeps: when another run
// holds the lock we report that instead of sweeping twice.
func (h *CronHandler) HandleOverdueScan(w http.ResponseWriter, r *http.Request) {
	result, err := h.Scanner.Run(time.Now())
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if result.AlreadyRunning {
		message := "Overdue scan already in progress"
		err = response.JSONOkResponse(w, nil, message, nil)
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
		}
		return
	}

	overdueData := make([]OverduePaymentData, 0, len(result.OverduePayments))
	for i := range result.OverduePayments {
		finance := &result.OverduePayments[i]
		overdueData = append(overdueData, OverduePaymentData{
			ID:                finance.ID,
			DealID:            finance.DealID,
			Amount:            finance.Amount.Major(),
			InstallmentNumber: finance.Idx + 1,
			Status:            finance.Status,
			PaymentDate:       finance.PaymentDate,
		})
	}

	data := map[string]any{
		"overdue_payments":       overdueData,
		"overdue_payments_count": len(overdueData),
		"notifications_sent":     result.NotificationsSent,
		"notifications_failed":   result.NotificationsFailed,
		"notification_results":   result.NotificationResults,
	}

	message := "Overdue scan completed"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
