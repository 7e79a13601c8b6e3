package handler

import (
	"net/http"
	"time"

	"github.com/kassaio/kassa/internal/context"
	"github.com/kassaio/kassa/internal/errHandler"
	"github.com/kassaio/kassa/internal/helper"
	"github.com/kassaio/kassa/internal/models"
	"github.com/kassaio/kassa/internal/money"
	"github.com/kassaio/kassa/internal/repository"
	"github.com/kassaio/kassa/internal/request"
	"github.com/kassaio/kassa/internal/response"
	"github.com/kassaio/kassa/internal/validator"
)

// maxInstallmentsPerDeal bounds the payment plan a single deal can carry.
const maxInstallmentsPerDeal = 60

type DealResponseData struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type FinanceResponseData struct {
	ID                string    `json:"id"`
	DealID            string    `json:"deal_id"`
	Amount            float64   `json:"amount"`
	InstallmentNumber int       `json:"installment_number"`
	Status            string    `json:"status"`
	PaymentDate       time.Time `json:"payment_date"`
}

type DealHandler struct {
	DB           repository.Database
	DealRepo     repository.DealRepository
	FinanceRepo  repository.FinanceRepository
	ActivityRepo repository.ActivityRepository
	ErrHandler   *errHandler.ErrorRepository
	Helper       *helper.HelperRepository
}

func NewDealHandler(handler *DealHandler) *DealHandler {
	return &DealHandler{
		DB:           handler.DB,
		DealRepo:     handler.DealRepo,
		FinanceRepo:  handler.FinanceRepo,
		ActivityRepo: handler.ActivityRepo,
		ErrHandler:   handler.ErrHandler,
		Helper:       handler.Helper,
	}
}

// HandleCreateDeal originates a deal together with its payment plan. The deal
// row and every installment land in one transaction; a deal with half a plan
// must never exist.
func (h *DealHandler) HandleCreateDeal(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	var input struct {
		Title        string `json:"title"`
		Installments []struct {
			Amount      float64   `json:"amount"`
			PaymentDate time.Time `json:"payment_date"`
		} `json:"installments"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Title), "Title is required")
	input.Validator.Check(len(input.Installments) > 0, "At least one installment is required")
	input.Validator.Check(len(input.Installments) <= maxInstallmentsPerDeal, "Too many installments")

	for _, installment := range input.Installments {
		input.Validator.Check(installment.Amount > 0, "Installment amounts must be greater than zero")
		input.Validator.Check(!installment.PaymentDate.IsZero(), "Installment payment dates are required")
	}

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	tx, err := h.DB.BeginTx(r.Context(), nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	defer tx.Rollback()

	dealID, err := h.DealRepo.Insert(&models.Deal{
		UserID: user.ID,
		Title:  input.Title,
	}, tx)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	financesData := make([]FinanceResponseData, 0, len(input.Installments))
	for i, installment := range input.Installments {
		financeID, err := h.FinanceRepo.Insert(&models.Finance{
			DealID:      dealID,
			Amount:      money.FromMajor(installment.Amount),
			Idx:         i,
			PaymentDate: installment.PaymentDate,
		}, tx)
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
			return
		}

		financesData = append(financesData, FinanceResponseData{
			ID:                financeID,
			DealID:            dealID,
			Amount:            installment.Amount,
			InstallmentNumber: i + 1,
			Status:            repository.FinanceStatusPending,
			PaymentDate:       installment.PaymentDate,
		})
	}

	err = tx.Commit()
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	h.Helper.BackgroundTask(r, func() error {
		_, err := h.ActivityRepo.Insert(&models.ActivityLog{
			UserID:      user.ID,
			Entity:      repository.ActivityLogDealEntity,
			EntityId:    dealID,
			Description: DealActivityLogCreatedDescription,
		})
		return err
	})

	data := map[string]any{
		"deal": DealResponseData{
			ID:        dealID,
			Title:     input.Title,
			Status:    repository.DealActiveStatus,
			CreatedAt: time.Now(),
		},
		"installments": financesData,
	}

	message := "Deal created successfully"
	err = response.JSONCreatedResponse(w, data, message)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *DealHandler) HandleMyDeals(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	deals, _, err := h.DealRepo.GetAllByUserId(user.ID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	dealsData := make([]DealResponseData, 0, len(deals))
	for _, deal := range deals {
		dealsData = append(dealsData, DealResponseData{
			ID:        deal.ID,
			Title:     deal.Title,
			Status:    deal.Status,
			CreatedAt: deal.CreatedAt,
		})
	}

	message := "Deals fetched successfully"
	err = response.JSONOkResponse(w, dealsData, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
