package handler

import (
	dctx "context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/kassaio/kassa/internal/errHandler"
	"github.com/kassaio/kassa/internal/helper"
	"github.com/kassaio/kassa/internal/models"
	"github.com/kassaio/kassa/internal/money"
	"github.com/kassaio/kassa/internal/repository"
)

// The mocks below implement the repository interfaces but only record calls
// for the methods a test actually cares about; the rest return zero values.

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) CheckIfPhoneNumberExist(phoneNumber string) (bool, error) {
	return false, nil
}

func (m *MockUserRepo) Insert(user *models.User, tx *sqlx.Tx) (string, error) {
	return "", nil
}

func (m *MockUserRepo) GetOne(id string) (*models.User, bool, error) {
	return nil, false, nil
}

func (m *MockUserRepo) GetByEmail(email string) (*models.User, bool, error) {
	args := m.Called(email)
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

func (m *MockUserRepo) Verify(id string, tx *sqlx.Tx) error {
	return nil
}

func (m *MockUserRepo) Lock(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

type MockActivityRepo struct {
	mock.Mock
}

func (m *MockActivityRepo) CountConsecutiveFailedLoginAttempts(userID, action_desc string) int {
	args := m.Called(userID, action_desc)
	return args.Int(0)
}

func (m *MockActivityRepo) Insert(log *models.ActivityLog) (*models.ActivityLog, error) {
	args := m.Called(log)
	return args.Get(0).(*models.ActivityLog), args.Error(1)
}

type MockWalletRepo struct {
	mock.Mock
}

func (m *MockWalletRepo) Insert(wallet *models.Wallet, tx *sqlx.Tx) (string, error) {
	return "", nil
}

func (m *MockWalletRepo) GetOrCreate(wallet *models.Wallet) (*models.Wallet, bool, error) {
	args := m.Called(wallet)
	return args.Get(0).(*models.Wallet), args.Bool(1), args.Error(2)
}

func (m *MockWalletRepo) GetOne(id string) (*models.Wallet, bool, error) {
	args := m.Called(id)
	return args.Get(0).(*models.Wallet), args.Bool(1), args.Error(2)
}

func (m *MockWalletRepo) GetByUserId(userID string) (*models.Wallet, bool, error) {
	args := m.Called(userID)
	return args.Get(0).(*models.Wallet), args.Bool(1), args.Error(2)
}

func (m *MockWalletRepo) Balance(id string) (money.Kopeks, error) {
	args := m.Called(id)
	return args.Get(0).(money.Kopeks), args.Error(1)
}

func (m *MockWalletRepo) Lock(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

type MockTransactionRepo struct {
	mock.Mock
}

func (m *MockTransactionRepo) Insert(transaction *models.WalletTransaction, tx *sqlx.Tx) (*models.WalletTransaction, error) {
	args := m.Called(transaction, tx)
	return args.Get(0).(*models.WalletTransaction), args.Error(1)
}

func (m *MockTransactionRepo) ListByWallet(walletID string, limit int) ([]models.WalletTransaction, error) {
	args := m.Called(walletID, limit)
	return args.Get(0).([]models.WalletTransaction), args.Error(1)
}

func (m *MockTransactionRepo) FindByReference(reference string) (*models.WalletTransaction, bool, error) {
	args := m.Called(reference)
	return args.Get(0).(*models.WalletTransaction), args.Bool(1), args.Error(2)
}

type MockFinanceRepo struct {
	mock.Mock
}

func (m *MockFinanceRepo) Insert(finance *models.Finance, tx *sqlx.Tx) (string, error) {
	args := m.Called(finance, tx)
	return args.String(0), args.Error(1)
}

func (m *MockFinanceRepo) GetOne(id string) (*models.Finance, bool, error) {
	return nil, false, nil
}

func (m *MockFinanceRepo) ListPendingByUser(userID string, tx *sqlx.Tx) ([]models.Finance, error) {
	args := m.Called(userID, tx)
	return args.Get(0).([]models.Finance), args.Error(1)
}

func (m *MockFinanceRepo) MarkPaid(id string, paidAt time.Time, tx *sqlx.Tx) error {
	args := m.Called(id, paidAt, tx)
	return args.Error(0)
}

func (m *MockFinanceRepo) ListDuePending(now time.Time) ([]models.Finance, error) {
	return nil, nil
}

func (m *MockFinanceRepo) MarkOverdue(id string) error {
	return nil
}

type MockDealRepo struct {
	mock.Mock
}

func (m *MockDealRepo) Insert(deal *models.Deal, tx *sqlx.Tx) (string, error) {
	args := m.Called(deal, tx)
	return args.String(0), args.Error(1)
}

func (m *MockDealRepo) GetOne(id string) (*models.Deal, bool, error) {
	return nil, false, nil
}

func (m *MockDealRepo) GetAllByUserId(userID string) ([]models.Deal, bool, error) {
	args := m.Called(userID)
	return args.Get(0).([]models.Deal), args.Bool(1), args.Error(2)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(recipient string, data any, patterns ...string) error {
	args := m.Called(recipient, data, patterns)
	return args.Error(0)
}

// mockDatabase satisfies repository.Database with the mocks above plus a
// sqlmock-backed sqlx.DB so BeginTx hands out real transactions.
type mockDatabase struct {
	db          *sqlx.DB
	user        *MockUserRepo
	activity    *MockActivityRepo
	wallet      *MockWalletRepo
	transaction *MockTransactionRepo
	deal        *MockDealRepo
	finance     *MockFinanceRepo
}

func (m *mockDatabase) User() repository.UserRepository               { return m.user }
func (m *mockDatabase) Activity() repository.ActivityRepository       { return m.activity }
func (m *mockDatabase) Wallet() repository.WalletRepository           { return m.wallet }
func (m *mockDatabase) Transaction() repository.TransactionRepository { return m.transaction }
func (m *mockDatabase) Deal() repository.DealRepository               { return m.deal }
func (m *mockDatabase) Finance() repository.FinanceRepository         { return m.finance }
func (m *mockDatabase) Close() error                                  { return nil }

func (m *mockDatabase) BeginTx(ctx dctx.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return m.db.BeginTxx(ctx, opts)
}

func sqlNullTimeNow() sql.NullTime {
	return sql.NullTime{Time: time.Now(), Valid: true}
}

// newTestHelper builds a helper whose background tasks can be flushed with
// wg.Wait() and an error handler that only logs to the void.
func newTestHelper() (*helper.HelperRepository, *sync.WaitGroup, *errHandler.ErrorRepository) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	baseURL := "http://localhost"
	errorHandler := errHandler.New("", nil, logger, baseURL)

	var wg sync.WaitGroup
	testHelper := helper.New(&baseURL, &wg, errorHandler)

	return testHelper, &wg, errorHandler
}
