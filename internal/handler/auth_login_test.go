package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kassaio/kassa/internal/config"
	"github.com/kassaio/kassa/internal/models"
	"github.com/kassaio/kassa/internal/repository"
)

func testConfig() *config.Config {
	cfg := &config.Config{
		BaseURL:  "http://localhost",
		HttpPort: 8080,
	}
	cfg.Jwt.SecretKey = "test_secret"
	return cfg
}

func TestHandleAuthLogin_ValidCredentials(t *testing.T) {
	mockUserRepo := new(MockUserRepo)
	mockActivityRepo := new(MockActivityRepo)

	testHelper, wg, errorHandler := newTestHelper()

	testUser := &models.User{
		ID:             "123",
		Email:          "test@example.com",
		HashedPassword: "$2a$10$oiIYEECpY/GRNs9Fi7Yh1.o4Dw2fTD26eu5z48KYgXkMuOiWlSvqG",
		Status:         repository.UserAccountActiveStatus,
	}

	mockUserRepo.On("GetByEmail", "test@example.com").Return(testUser, true, nil)
	mockActivityRepo.On("Insert", mock.Anything).Return(&models.ActivityLog{}, nil)

	authHandler := NewAuthHandler(&AuthHandler{
		UserRepo:     mockUserRepo,
		ActivityRepo: mockActivityRepo,
		ErrHandler:   errorHandler,
		Helper:       testHelper,
		Config:       testConfig(),
	})

	requestBody, _ := json.Marshal(map[string]string{
		"email":    "test@example.com",
		"password": "correctpassword",
	})

	req, err := http.NewRequest("POST", "/auth/login", bytes.NewBuffer(requestBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()

	authHandler.HandleAuthLogin(rr, req)
	wg.Wait()

	require.Equal(t, http.StatusOK, rr.Code)

	var response map[string]interface{}
	err = json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)

	require.Contains(t, response, "data")

	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "Expected response['data'] to be a map")

	require.Contains(t, data, "auth_token")
	require.Contains(t, data, "token_expiry")
	require.NotEmpty(t, data["auth_token"])

	mockUserRepo.AssertExpectations(t)
	mockActivityRepo.AssertExpectations(t)
}

func TestHandleAuthLogin_WrongPassword(t *testing.T) {
	mockUserRepo := new(MockUserRepo)
	mockActivityRepo := new(MockActivityRepo)

	testHelper, wg, errorHandler := newTestHelper()

	testUser := &models.User{
		ID:             "123",
		Email:          "test@example.com",
		HashedPassword: "$2a$10$oiIYEECpY/GRNs9Fi7Yh1.o4Dw2fTD26eu5z48KYgXkMuOiWlSvqG",
		Status:         repository.UserAccountActiveStatus,
	}

	mockUserRepo.On("GetByEmail", "test@example.com").Return(testUser, true, nil)
	mockActivityRepo.On("Insert", mock.Anything).Return(&models.ActivityLog{}, nil)
	mockActivityRepo.On("CountConsecutiveFailedLoginAttempts", testUser.ID, UserActivityLogFailedLoginDescription).Return(0)

	authHandler := NewAuthHandler(&AuthHandler{
		UserRepo:     mockUserRepo,
		ActivityRepo: mockActivityRepo,
		ErrHandler:   errorHandler,
		Helper:       testHelper,
		Config:       testConfig(),
	})

	requestBody, _ := json.Marshal(map[string]string{
		"email":    "test@example.com",
		"password": "definitelywrong",
	})

	req, err := http.NewRequest("POST", "/auth/login", bytes.NewBuffer(requestBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()

	authHandler.HandleAuthLogin(rr, req)
	wg.Wait()

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	mockUserRepo.AssertExpectations(t)
}

func TestHandleAuthLogin_LockedAccount(t *testing.T) {
	mockUserRepo := new(MockUserRepo)
	mockActivityRepo := new(MockActivityRepo)

	testHelper, wg, errorHandler := newTestHelper()

	testUser := &models.User{
		ID:             "123",
		Email:          "test@example.com",
		HashedPassword: "$2a$10$oiIYEECpY/GRNs9Fi7Yh1.o4Dw2fTD26eu5z48KYgXkMuOiWlSvqG",
		Status:         repository.UserAccountLockedStatus,
	}

	mockUserRepo.On("GetByEmail", "test@example.com").Return(testUser, true, nil)

	authHandler := NewAuthHandler(&AuthHandler{
		UserRepo:     mockUserRepo,
		ActivityRepo: mockActivityRepo,
		ErrHandler:   errorHandler,
		Helper:       testHelper,
		Config:       testConfig(),
	})

	requestBody, _ := json.Marshal(map[string]string{
		"email":    "test@example.com",
		"password": "correctpassword",
	})

	req, err := http.NewRequest("POST", "/auth/login", bytes.NewBuffer(requestBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()

	authHandler.HandleAuthLogin(rr, req)
	wg.Wait()

	require.Equal(t, http.StatusForbidden, rr.Code)

	mockUserRepo.AssertExpectations(t)
}

// The third consecutive failed attempt locks the account and puts the
// owner's wallet on hold with it.
func TestHandleAuthLogin_ThirdFailedAttemptLocksAccountAndWallet(t *testing.T) {
	mockUserRepo := new(MockUserRepo)
	mockWalletRepo := new(MockWalletRepo)
	mockActivityRepo := new(MockActivityRepo)

	testHelper, wg, errorHandler := newTestHelper()

	testUser := &models.User{
		ID:             "123",
		Email:          "test@example.com",
		HashedPassword: "$2a$10$oiIYEECpY/GRNs9Fi7Yh1.o4Dw2fTD26eu5z48KYgXkMuOiWlSvqG",
		Status:         repository.UserAccountActiveStatus,
	}

	wallet := &models.Wallet{
		ID:     "wallet-1",
		UserID: testUser.ID,
		Status: repository.WalletActiveStatus,
	}

	mockUserRepo.On("GetByEmail", "test@example.com").Return(testUser, true, nil)
	mockUserRepo.On("Lock", testUser.ID).Return(nil)
	mockActivityRepo.On("Insert", mock.Anything).Return(&models.ActivityLog{}, nil)
	mockActivityRepo.On("CountConsecutiveFailedLoginAttempts", testUser.ID, UserActivityLogFailedLoginDescription).Return(2)
	mockWalletRepo.On("GetByUserId", testUser.ID).Return(wallet, true, nil)
	mockWalletRepo.On("Lock", wallet.ID).Return(nil)

	authHandler := NewAuthHandler(&AuthHandler{
		UserRepo:     mockUserRepo,
		WalletRepo:   mockWalletRepo,
		ActivityRepo: mockActivityRepo,
		ErrHandler:   errorHandler,
		Helper:       testHelper,
		Config:       testConfig(),
	})

	requestBody, _ := json.Marshal(map[string]string{
		"email":    "test@example.com",
		"password": "definitelywrong",
	})

	req, err := http.NewRequest("POST", "/auth/login", bytes.NewBuffer(requestBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()

	authHandler.HandleAuthLogin(rr, req)
	wg.Wait()

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	mockUserRepo.AssertExpectations(t)
	mockWalletRepo.AssertExpectations(t)
	mockActivityRepo.AssertExpectations(t)
}
