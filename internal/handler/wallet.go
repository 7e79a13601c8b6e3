package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kassaio/kassa/internal/context"
	"github.com/kassaio/kassa/internal/errHandler"
	"github.com/kassaio/kassa/internal/helper"
	"github.com/kassaio/kassa/internal/models"
	"github.com/kassaio/kassa/internal/money"
	"github.com/kassaio/kassa/internal/repository"
	"github.com/kassaio/kassa/internal/request"
	"github.com/kassaio/kassa/internal/response"
	"github.com/kassaio/kassa/internal/stream"
	"github.com/kassaio/kassa/internal/validator"
)

// DefaultCurrency is the only currency wallets are opened in for now. Amounts
// on the wire are rubles; the ledger stores kopecks.
const DefaultCurrency = "RUB"

type WalletResponseData struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TransactionResponseData struct {
	ID          string    `json:"id"`
	Amount      float64   `json:"amount"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	ReceiptURL  string    `json:"receipt_url,omitempty"`
	Reference   string    `json:"reference"`
	CreatedAt   time.Time `json:"created_at"`
}

type SettledFinanceData struct {
	ID                string    `json:"id"`
	DealID            string    `json:"deal_id"`
	Amount            float64   `json:"amount"`
	InstallmentNumber int       `json:"installment_number"`
	Status            string    `json:"status"`
	PaymentDate       time.Time `json:"payment_date"`
	PaidAt            time.Time `json:"paid_at"`
}

// DepositCompletedEvent is produced after a deposit commits. Workers pick it
// up to send the receipt email and record the trail.
type DepositCompletedEvent struct {
	TransactionID string `json:"transaction_id"`
	WalletID      string `json:"wallet_id"`
	UserID        string `json:"user_id"`
	Amount        int64  `json:"amount"`
	Reference     string `json:"reference"`
	SettledCount  int    `json:"settled_count"`
}

type WalletHandler struct {
	DB              repository.Database
	WalletRepo      repository.WalletRepository
	TransactionRepo repository.TransactionRepository
	FinanceRepo     repository.FinanceRepository
	ActivityRepo    repository.ActivityRepository
	ErrHandler      *errHandler.ErrorRepository
	Helper          *helper.HelperRepository
	Kafka           *stream.KafkaStream
}

func NewWalletHandler(handler *WalletHandler) *WalletHandler {
	return &WalletHandler{
		DB:              handler.DB,
		WalletRepo:      handler.WalletRepo,
		TransactionRepo: handler.TransactionRepo,
		FinanceRepo:     handler.FinanceRepo,
		ActivityRepo:    handler.ActivityRepo,
		ErrHandler:      handler.ErrHandler,
		Helper:          handler.Helper,
		Kafka:           handler.Kafka,
	}
}

// Wallet codes reuse the tail of the owner's phone number, which we've
// established is unique in the users table. If code generation ever stops
// deriving from phone numbers we'd have to validate non-existence here.
func walletCode(phoneNumber string) string {
	if len(phoneNumber) > 10 {
		return phoneNumber[len(phoneNumber)-10:]
	}
	return phoneNumber
}

func newWalletResponseData(wallet *models.Wallet, balance money.Kopeks) *WalletResponseData {
	return &WalletResponseData{
		ID:        wallet.ID,
		Code:      wallet.Code,
		Currency:  wallet.Currency,
		Status:    wallet.Status,
		Balance:   balance.Major(),
		CreatedAt: wallet.CreatedAt,
		UpdatedAt: wallet.UpdatedAt.Time,
	}
}

func newTransactionResponseData(transaction *models.WalletTransaction) *TransactionResponseData {
	return &TransactionResponseData{
		ID:          transaction.ID,
		Amount:      transaction.Amount.Major(),
		Type:        transaction.Type,
		Status:      transaction.Status,
		Description: transaction.Description.String,
		ReceiptURL:  transaction.ReceiptURL.String,
		Reference:   transaction.Reference,
		CreatedAt:   transaction.CreatedAt,
	}
}

// HandleMyWallet returns the authenticated user's wallet, opening one on
// first access. Wallets only exist for verified accounts; an unverified
// caller gets a precondition failure rather than an empty wallet.
func (h *WalletHandler) HandleMyWallet(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	if !user.Verified() {
		h.ErrHandler.PreconditionFailed(w, r, ErrAccountNotVerified.Error())
		return
	}

	wallet, created, err := h.WalletRepo.GetOrCreate(&models.Wallet{
		UserID:   user.ID,
		Code:     walletCode(user.PhoneNumber),
		Currency: DefaultCurrency,
	})
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if created {
		h.Helper.BackgroundTask(r, func() error {
			_, err := h.ActivityRepo.Insert(&models.ActivityLog{
				UserID:      user.ID,
				Entity:      repository.ActivityLogWalletEntity,
				EntityId:    wallet.ID,
				Description: WalletActivityLogCreatedDescription,
			})
			return err
		})
	}

	balance, err := h.WalletRepo.Balance(wallet.ID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	message := "Wallet retrieved successfully"
	err = response.JSONOkResponse(w, newWalletResponseData(wallet, balance), message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleWalletDetails returns a wallet summary with its most recent ledger
// entries. A wallet that doesn't exist and a wallet that belongs to someone
// else are indistinguishable to the caller.
func (h *WalletHandler) HandleWalletDetails(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	walletID := r.PathValue("id")

	wallet, found, err := h.WalletRepo.GetOne(walletID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	if !found || wallet.UserID != user.ID {
		h.ErrHandler.NotFoundMessage(w, r, ErrWalletNotFound.Error())
		return
	}

	balance, err := h.WalletRepo.Balance(wallet.ID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	limit := retrieveLimitQueryValue(r)

	transactions, err := h.TransactionRepo.ListByWallet(wallet.ID, limit)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	transactionsData := make([]TransactionResponseData, 0, len(transactions))
	for i := range transactions {
		transactionsData = append(transactionsData, *newTransactionResponseData(&transactions[i]))
	}

	data := map[string]any{
		"wallet":       newWalletResponseData(wallet, balance),
		"transactions": transactionsData,
	}

	message := "Wallet details fetched successfully"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *WalletHandler) HandleWalletByUser(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	userID := r.PathValue("id")

	// lookups stay scoped to the caller's own records
	if userID != user.ID {
		h.ErrHandler.NotFoundMessage(w, r, ErrWalletNotFound.Error())
		return
	}

	wallet, found, err := h.WalletRepo.GetByUserId(userID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	if !found {
		h.ErrHandler.NotFoundMessage(w, r, ErrWalletNotFound.Error())
		return
	}

	balance, err := h.WalletRepo.Balance(wallet.ID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	limit := retrieveLimitQueryValue(r)

	transactions, err := h.TransactionRepo.ListByWallet(wallet.ID, limit)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	transactionsData := make([]TransactionResponseData, 0, len(transactions))
	for i := range transactions {
		transactionsData = append(transactionsData, *newTransactionResponseData(&transactions[i]))
	}

	data := map[string]any{
		"wallet":       newWalletResponseData(wallet, balance),
		"transactions": transactionsData,
	}

	message := "Wallet fetched successfully"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleDeposit credits a wallet and settles outstanding installments with
// the new money, all in one database transaction.
// Step 1: validate input and reject duplicate references
// Step 2: check the wallet exists, belongs to the caller and can transact
// Step 3: append the credit row to the ledger
// Step 4: lock the caller's pending installments and mark the affordable
// prefix paid
// Step 5: commit, then fan out the receipt event and activity trail
func (h *WalletHandler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	walletID := r.PathValue("id")

	var input struct {
		Amount      float64             `json:"amount"`
		Type        string              `json:"type"`
		Description string              `json:"description"`
		ReceiptURL  string              `json:"receipt_url"`
		Reference   string              `json:"reference"`
		Validator   validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	amount := money.FromMajor(input.Amount)

	input.Validator.Check(input.Amount > 0, "Amount must be greater than zero")
	input.Validator.Check(amount > 0, "Amount is below the smallest supported unit")

	input.Validator.Check(validator.NotBlank(input.Type), "Type is required")
	input.Validator.Check(validator.In(input.Type,
		repository.TransactionTypeDeposit,
		repository.TransactionTypeAdjustment,
	), "Type must be one of: deposit, adjustment")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	// Clients may pass their own reference for idempotent retries; we mint
	// one when they don't.
	reference := input.Reference
	if reference == "" {
		reference = uuid.NewString()
	} else {
		_, found, err := h.TransactionRepo.FindByReference(reference)
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
			return
		}
		if found {
			h.ErrHandler.BadRequest(w, r, ErrDuplicateDeposit)
			return
		}
	}

	wallet, found, err := h.WalletRepo.GetOne(walletID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	if !found || wallet.UserID != user.ID {
		h.ErrHandler.NotFoundMessage(w, r, ErrWalletNotFound.Error())
		return
	}
	if wallet.Status != repository.WalletActiveStatus {
		h.ErrHandler.PreconditionFailed(w, r, ErrWalletOnHold.Error())
		return
	}

	// The credit and whatever it settles must land together or not at all;
	// a crash between them must never leave money applied twice or not
	// applied anywhere.
	tx, err := h.DB.BeginTx(r.Context(), nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	defer tx.Rollback()

	transaction, err := h.TransactionRepo.Insert(&models.WalletTransaction{
		WalletID:    wallet.ID,
		Amount:      amount,
		Type:        input.Type,
		Description: sql.NullString{String: input.Description, Valid: input.Description != ""},
		ReceiptURL:  sql.NullString{String: input.ReceiptURL, Valid: input.ReceiptURL != ""},
		Reference:   reference,
	}, tx)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	// The FOR UPDATE in this listing keeps a concurrent deposit from
	// settling the same installment twice.
	pending, err := h.FinanceRepo.ListPendingByUser(user.ID, tx)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	now := time.Now()

	settled := settleOutstanding(transaction.Amount, pending)
	for i := range settled {
		err = h.FinanceRepo.MarkPaid(settled[i].ID, now, tx)
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
			return
		}

		settled[i].Status = repository.FinanceStatusPaid
		settled[i].PaidAt = sql.NullTime{Time: now, Valid: true}
	}

	err = tx.Commit()
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	balance, err := h.WalletRepo.Balance(wallet.ID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	h.produceDepositCompletedEvent(user, wallet, transaction, len(settled))

	h.Helper.BackgroundTask(r, func() error {
		_, err := h.ActivityRepo.Insert(&models.ActivityLog{
			UserID:      user.ID,
			Entity:      repository.ActivityLogTransactionEntity,
			EntityId:    transaction.ID,
			Description: TransactionActivityLogDepositDescription,
		})
		if err != nil {
			return err
		}

		for _, finance := range settled {
			_, err = h.ActivityRepo.Insert(&models.ActivityLog{
				UserID:      user.ID,
				Entity:      repository.ActivityLogFinanceEntity,
				EntityId:    finance.ID,
				Description: FinanceActivityLogSettledDescription,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	settledData := make([]SettledFinanceData, 0, len(settled))
	for i := range settled {
		settledData = append(settledData, SettledFinanceData{
			ID:                settled[i].ID,
			DealID:            settled[i].DealID,
			Amount:            settled[i].Amount.Major(),
			InstallmentNumber: settled[i].Idx + 1,
			Status:            settled[i].Status,
			PaymentDate:       settled[i].PaymentDate,
			PaidAt:            settled[i].PaidAt.Time,
		})
	}

	data := map[string]any{
		"transaction": newTransactionResponseData(transaction),
		"wallet": map[string]any{
			"id":      wallet.ID,
			"balance": balance.Major(),
		},
		"settled_payments": settledData,
	}

	message := "Deposit successful"
	err = response.JSONCreatedResponse(w, data, message)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *WalletHandler) produceDepositCompletedEvent(user *models.User, wallet *models.Wallet, transaction *models.WalletTransaction, settledCount int) {
	if h.Kafka == nil {
		return
	}

	event := &DepositCompletedEvent{
		TransactionID: transaction.ID,
		WalletID:      wallet.ID,
		UserID:        user.ID,
		Amount:        int64(transaction.Amount),
		Reference:     transaction.Reference,
		SettledCount:  settledCount,
	}

	jsonMessage, err := json.Marshal(event)
	if err != nil {
		return
	}

	go h.Kafka.ProduceMessage(stream.DepositCompletedTopic, string(jsonMessage))
}
