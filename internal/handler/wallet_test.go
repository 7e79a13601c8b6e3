package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kassaio/kassa/internal/context"
	"github.com/kassaio/kassa/internal/models"
	"github.com/kassaio/kassa/internal/money"
	"github.com/kassaio/kassa/internal/repository"
)

func verifiedUser() *models.User {
	return &models.User{
		ID:          "user-1",
		FirstName:   "Ivan",
		LastName:    "Petrov",
		Email:       "ivan@example.com",
		PhoneNumber: "+79215554433",
		Status:      repository.UserAccountActiveStatus,
		VerifiedAt:  sqlNullTimeNow(),
	}
}

func authenticatedRequest(t *testing.T, method, target string, body []byte, user *models.User) *http.Request {
	t.Helper()

	req, err := http.NewRequest(method, target, bytes.NewBuffer(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	return context.ContextSetAuthenticatedUser(req, user)
}

func TestHandleMyWallet_UnverifiedAccount(t *testing.T) {
	mockWalletRepo := new(MockWalletRepo)
	testHelper, wg, errorHandler := newTestHelper()

	walletHandler := NewWalletHandler(&WalletHandler{
		WalletRepo: mockWalletRepo,
		ErrHandler: errorHandler,
		Helper:     testHelper,
	})

	user := verifiedUser()
	user.VerifiedAt.Valid = false

	req := authenticatedRequest(t, "GET", "/wallets/me", nil, user)
	rr := httptest.NewRecorder()

	walletHandler.HandleMyWallet(rr, req)
	wg.Wait()

	require.Equal(t, http.StatusPreconditionFailed, rr.Code)

	var response map[string]interface{}
	err := json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)
	require.Equal(t, "PRECONDITION_FAILED", response["code"])

	// no wallet must be created for an unverified account
	mockWalletRepo.AssertNotCalled(t, "GetOrCreate", mock.Anything)
}

func TestHandleMyWallet_CreatesWalletOnFirstAccess(t *testing.T) {
	mockWalletRepo := new(MockWalletRepo)
	mockActivityRepo := new(MockActivityRepo)
	testHelper, wg, errorHandler := newTestHelper()

	user := verifiedUser()

	wallet := &models.Wallet{
		ID:       "wallet-1",
		UserID:   user.ID,
		Code:     "9215554433",
		Currency: DefaultCurrency,
		Status:   repository.WalletActiveStatus,
	}

	mockWalletRepo.On("GetOrCreate", mock.MatchedBy(func(w *models.Wallet) bool {
		return w.UserID == user.ID && w.Code == "9215554433" && w.Currency == DefaultCurrency
	})).Return(wallet, true, nil)
	mockWalletRepo.On("Balance", "wallet-1").Return(money.Kopeks(0), nil)
	mockActivityRepo.On("Insert", mock.Anything).Return(&models.ActivityLog{}, nil)

	walletHandler := NewWalletHandler(&WalletHandler{
		WalletRepo:   mockWalletRepo,
		ActivityRepo: mockActivityRepo,
		ErrHandler:   errorHandler,
		Helper:       testHelper,
	})

	req := authenticatedRequest(t, "GET", "/wallets/me", nil, user)
	rr := httptest.NewRecorder()

	walletHandler.HandleMyWallet(rr, req)
	wg.Wait()

	require.Equal(t, http.StatusOK, rr.Code)

	var response map[string]interface{}
	err := json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)

	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "wallet-1", data["id"])
	require.Equal(t, float64(0), data["balance"])

	mockWalletRepo.AssertExpectations(t)
	mockActivityRepo.AssertExpectations(t)
}

// A deposit of 320 against three pending installments of 150 each must credit
// the ledger, settle exactly the first two, and leave the third untouched.
func TestHandleDeposit_SettlesAffordablePrefix(t *testing.T) {
	db, mockSQL, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlxDB := sqlx.NewDb(db, "sqlmock")

	mockSQL.ExpectBegin()
	mockSQL.ExpectCommit()

	mockWalletRepo := new(MockWalletRepo)
	mockTransactionRepo := new(MockTransactionRepo)
	mockFinanceRepo := new(MockFinanceRepo)
	mockActivityRepo := new(MockActivityRepo)
	testHelper, wg, errorHandler := newTestHelper()

	user := verifiedUser()

	wallet := &models.Wallet{
		ID:       "wallet-1",
		UserID:   user.ID,
		Code:     "9215554433",
		Currency: DefaultCurrency,
		Status:   repository.WalletActiveStatus,
	}

	pending := []models.Finance{
		{ID: "fin-1", DealID: "deal-1", Amount: 150_00, Idx: 0, Status: repository.FinanceStatusPending},
		{ID: "fin-2", DealID: "deal-1", Amount: 150_00, Idx: 1, Status: repository.FinanceStatusPending},
		{ID: "fin-3", DealID: "deal-1", Amount: 150_00, Idx: 2, Status: repository.FinanceStatusPending},
	}

	mockWalletRepo.On("GetOne", "wallet-1").Return(wallet, true, nil)
	mockWalletRepo.On("Balance", "wallet-1").Return(money.Kopeks(20_00), nil)

	mockTransactionRepo.On("Insert", mock.MatchedBy(func(tr *models.WalletTransaction) bool {
		return tr.WalletID == "wallet-1" &&
			tr.Amount == money.Kopeks(320_00) &&
			tr.Type == repository.TransactionTypeDeposit
	}), mock.Anything).Return(&models.WalletTransaction{
		ID:        "txn-1",
		WalletID:  "wallet-1",
		Amount:    320_00,
		Type:      repository.TransactionTypeDeposit,
		Status:    repository.TransactionStatusCompleted,
		Reference: "ref-1",
		CreatedAt: time.Now(),
	}, nil)

	mockFinanceRepo.On("ListPendingByUser", user.ID, mock.Anything).Return(pending, nil)
	mockFinanceRepo.On("MarkPaid", "fin-1", mock.Anything, mock.Anything).Return(nil)
	mockFinanceRepo.On("MarkPaid", "fin-2", mock.Anything, mock.Anything).Return(nil)

	mockActivityRepo.On("Insert", mock.Anything).Return(&models.ActivityLog{}, nil)

	database := &mockDatabase{
		db:          sqlxDB,
		wallet:      mockWalletRepo,
		transaction: mockTransactionRepo,
		finance:     mockFinanceRepo,
		activity:    mockActivityRepo,
	}

	walletHandler := NewWalletHandler(&WalletHandler{
		DB:              database,
		WalletRepo:      mockWalletRepo,
		TransactionRepo: mockTransactionRepo,
		FinanceRepo:     mockFinanceRepo,
		ActivityRepo:    mockActivityRepo,
		ErrHandler:      errorHandler,
		Helper:          testHelper,
	})

	requestBody, _ := json.Marshal(map[string]any{
		"amount": 320.00,
		"type":   repository.TransactionTypeDeposit,
	})

	req := authenticatedRequest(t, "POST", "/wallets/wallet-1/deposit", requestBody, user)
	req.SetPathValue("id", "wallet-1")
	rr := httptest.NewRecorder()

	walletHandler.HandleDeposit(rr, req)
	wg.Wait()

	require.Equal(t, http.StatusCreated, rr.Code)

	var response map[string]interface{}
	err = json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)

	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok)

	settled, ok := data["settled_payments"].([]interface{})
	require.True(t, ok)
	require.Len(t, settled, 2)

	walletData, ok := data["wallet"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "wallet-1", walletData["id"])

	mockFinanceRepo.AssertNotCalled(t, "MarkPaid", "fin-3", mock.Anything, mock.Anything)

	require.NoError(t, mockSQL.ExpectationsWereMet())

	mockWalletRepo.AssertExpectations(t)
	mockTransactionRepo.AssertExpectations(t)
	mockFinanceRepo.AssertExpectations(t)
}

// Deposits below the first installment still credit the wallet; nothing is
// settled and the ledger keeps the money for later.
func TestHandleDeposit_InsufficientForAnyInstallment(t *testing.T) {
	db, mockSQL, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlxDB := sqlx.NewDb(db, "sqlmock")

	mockSQL.ExpectBegin()
	mockSQL.ExpectCommit()

	mockWalletRepo := new(MockWalletRepo)
	mockTransactionRepo := new(MockTransactionRepo)
	mockFinanceRepo := new(MockFinanceRepo)
	mockActivityRepo := new(MockActivityRepo)
	testHelper, wg, errorHandler := newTestHelper()

	user := verifiedUser()

	wallet := &models.Wallet{
		ID:       "wallet-1",
		UserID:   user.ID,
		Status:   repository.WalletActiveStatus,
		Currency: DefaultCurrency,
	}

	pending := []models.Finance{
		{ID: "fin-1", DealID: "deal-1", Amount: 500_00, Idx: 0, Status: repository.FinanceStatusPending},
	}

	mockWalletRepo.On("GetOne", "wallet-1").Return(wallet, true, nil)
	mockWalletRepo.On("Balance", "wallet-1").Return(money.Kopeks(100_00), nil)

	mockTransactionRepo.On("Insert", mock.Anything, mock.Anything).Return(&models.WalletTransaction{
		ID:        "txn-1",
		WalletID:  "wallet-1",
		Amount:    100_00,
		Type:      repository.TransactionTypeDeposit,
		Status:    repository.TransactionStatusCompleted,
		Reference: "ref-1",
		CreatedAt: time.Now(),
	}, nil)

	mockFinanceRepo.On("ListPendingByUser", user.ID, mock.Anything).Return(pending, nil)
	mockActivityRepo.On("Insert", mock.Anything).Return(&models.ActivityLog{}, nil)

	database := &mockDatabase{
		db:          sqlxDB,
		wallet:      mockWalletRepo,
		transaction: mockTransactionRepo,
		finance:     mockFinanceRepo,
		activity:    mockActivityRepo,
	}

	walletHandler := NewWalletHandler(&WalletHandler{
		DB:              database,
		WalletRepo:      mockWalletRepo,
		TransactionRepo: mockTransactionRepo,
		FinanceRepo:     mockFinanceRepo,
		ActivityRepo:    mockActivityRepo,
		ErrHandler:      errorHandler,
		Helper:          testHelper,
	})

	requestBody, _ := json.Marshal(map[string]any{
		"amount": 100.00,
		"type":   repository.TransactionTypeDeposit,
	})

	req := authenticatedRequest(t, "POST", "/wallets/wallet-1/deposit", requestBody, user)
	req.SetPathValue("id", "wallet-1")
	rr := httptest.NewRecorder()

	walletHandler.HandleDeposit(rr, req)
	wg.Wait()

	require.Equal(t, http.StatusCreated, rr.Code)

	var response map[string]interface{}
	err = json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)

	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok)

	settled, ok := data["settled_payments"].([]interface{})
	require.True(t, ok)
	require.Empty(t, settled)

	mockFinanceRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)

	require.NoError(t, mockSQL.ExpectationsWereMet())
}

func TestHandleDeposit_RejectsNonPositiveAmount(t *testing.T) {
	mockWalletRepo := new(MockWalletRepo)
	testHelper, wg, errorHandler := newTestHelper()

	walletHandler := NewWalletHandler(&WalletHandler{
		WalletRepo: mockWalletRepo,
		ErrHandler: errorHandler,
		Helper:     testHelper,
	})

	user := verifiedUser()

	requestBody, _ := json.Marshal(map[string]any{
		"amount": -50.00,
		"type":   repository.TransactionTypeDeposit,
	})

	req := authenticatedRequest(t, "POST", "/wallets/wallet-1/deposit", requestBody, user)
	req.SetPathValue("id", "wallet-1")
	rr := httptest.NewRecorder()

	walletHandler.HandleDeposit(rr, req)
	wg.Wait()

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	mockWalletRepo.AssertNotCalled(t, "GetOne", mock.Anything)
}

func TestHandleDeposit_RejectsMissingType(t *testing.T) {
	mockWalletRepo := new(MockWalletRepo)
	testHelper, wg, errorHandler := newTestHelper()

	walletHandler := NewWalletHandler(&WalletHandler{
		WalletRepo: mockWalletRepo,
		ErrHandler: errorHandler,
		Helper:     testHelper,
	})

	user := verifiedUser()

	requestBody, _ := json.Marshal(map[string]any{
		"amount": 50.00,
	})

	req := authenticatedRequest(t, "POST", "/wallets/wallet-1/deposit", requestBody, user)
	req.SetPathValue("id", "wallet-1")
	rr := httptest.NewRecorder()

	walletHandler.HandleDeposit(rr, req)
	wg.Wait()

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	mockWalletRepo.AssertNotCalled(t, "GetOne", mock.Anything)
}

func TestHandleWalletDetails_HidesForeignWallets(t *testing.T) {
	mockWalletRepo := new(MockWalletRepo)
	testHelper, wg, errorHandler := newTestHelper()

	wallet := &models.Wallet{
		ID:     "wallet-2",
		UserID: "someone-else",
		Status: repository.WalletActiveStatus,
	}

	mockWalletRepo.On("GetOne", "wallet-2").Return(wallet, true, nil)

	walletHandler := NewWalletHandler(&WalletHandler{
		WalletRepo: mockWalletRepo,
		ErrHandler: errorHandler,
		Helper:     testHelper,
	})

	req := authenticatedRequest(t, "GET", "/wallets/wallet-2", nil, verifiedUser())
	req.SetPathValue("id", "wallet-2")
	rr := httptest.NewRecorder()

	walletHandler.HandleWalletDetails(rr, req)
	wg.Wait()

	require.Equal(t, http.StatusNotFound, rr.Code)
	mockWalletRepo.AssertExpectations(t)
}

// The by-owner lookup carries the same recent ledger listing as the wallet
// details endpoint.
func TestHandleWalletByUser_IncludesRecentTransactions(t *testing.T) {
	mockWalletRepo := new(MockWalletRepo)
	mockTransactionRepo := new(MockTransactionRepo)
	testHelper, wg, errorHandler := newTestHelper()

	user := verifiedUser()

	wallet := &models.Wallet{
		ID:       "wallet-1",
		UserID:   user.ID,
		Code:     "9215554433",
		Currency: DefaultCurrency,
		Status:   repository.WalletActiveStatus,
	}

	transactions := []models.WalletTransaction{
		{
			ID:        "txn-2",
			WalletID:  "wallet-1",
			Amount:    200_00,
			Type:      repository.TransactionTypeDeposit,
			Status:    repository.TransactionStatusCompleted,
			Reference: "ref-2",
			CreatedAt: time.Now(),
		},
		{
			ID:        "txn-1",
			WalletID:  "wallet-1",
			Amount:    100_00,
			Type:      repository.TransactionTypeDeposit,
			Status:    repository.TransactionStatusCompleted,
			Reference: "ref-1",
			CreatedAt: time.Now().Add(-time.Hour),
		},
	}

	mockWalletRepo.On("GetByUserId", user.ID).Return(wallet, true, nil)
	mockWalletRepo.On("Balance", "wallet-1").Return(money.Kopeks(300_00), nil)
	mockTransactionRepo.On("ListByWallet", "wallet-1", maxTransactionPageSize).Return(transactions, nil)

	walletHandler := NewWalletHandler(&WalletHandler{
		WalletRepo:      mockWalletRepo,
		TransactionRepo: mockTransactionRepo,
		ErrHandler:      errorHandler,
		Helper:          testHelper,
	})

	req := authenticatedRequest(t, "GET", "/wallets/by-user/"+user.ID, nil, user)
	req.SetPathValue("id", user.ID)
	rr := httptest.NewRecorder()

	walletHandler.HandleWalletByUser(rr, req)
	wg.Wait()

	require.Equal(t, http.StatusOK, rr.Code)

	var response map[string]interface{}
	err := json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)

	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok)

	walletData, ok := data["wallet"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "wallet-1", walletData["id"])
	require.Equal(t, 300.00, walletData["balance"])

	listed, ok := data["transactions"].([]interface{})
	require.True(t, ok)
	require.Len(t, listed, 2)

	newest, ok := listed[0].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "txn-2", newest["id"])

	mockWalletRepo.AssertExpectations(t)
	mockTransactionRepo.AssertExpectations(t)
}

func TestRetrieveLimitQueryValue(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  int
	}{
		{"defaults without a limit", "", maxTransactionPageSize},
		{"honours a smaller limit", "?limit=25", 25},
		{"accepts the cap itself", "?limit=100", maxTransactionPageSize},
		{"caps an oversized limit", "?limit=500", maxTransactionPageSize},
		{"ignores zero", "?limit=0", maxTransactionPageSize},
		{"ignores negatives", "?limit=-5", maxTransactionPageSize},
		{"ignores garbage", "?limit=lots", maxTransactionPageSize},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest("GET", "/wallets/wallet-1"+tc.query, nil)
			require.NoError(t, err)

			require.Equal(t, tc.want, retrieveLimitQueryValue(req))
		})
	}
}
