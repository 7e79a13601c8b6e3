package handler

import (
	"errors"
	"net/http"
	"strconv"
)

var (
	ErrWalletNotFound     = errors.New("wallet not found")
	ErrWalletOnHold       = errors.New("your wallet cannot process transactions at this time")
	ErrAccountNotVerified = errors.New("account must be verified before a wallet can be opened")
	ErrDuplicateDeposit   = errors.New("this appears to be a duplicate deposit")
	ErrDealNotFound       = errors.New("deal not found")
	ErrInvalidVerifyToken = errors.New("invalid or expired verification token")
	ErrAccountLocked      = errors.New("account has been locked. Please contact support")
)

// Activity log descriptions. These strings end up in the activity_logs table
// and are matched against later (e.g. the consecutive-failed-login counter),
// so they must stay stable.
const (
	UserActivityLogRegistrationDescription  = "User registration"
	UserActivityLogLoginDescription         = "User logged in"
	UserActivityLogFailedLoginDescription   = "Failed login attempt"
	UserActivityLogLockedAccountDescription = "Account locked"
	UserActivityLogVerifiedDescription      = "Account verified"

	WalletActivityLogCreatedDescription = "Wallet opened"

	TransactionActivityLogDepositDescription = "Deposit posted"

	FinanceActivityLogSettledDescription = "Installment settled"
	FinanceActivityLogOverdueDescription = "Installment became overdue"

	DealActivityLogCreatedDescription = "Deal originated"
)

// maxTransactionPageSize caps how many ledger rows a single wallet read
// returns, so an old busy wallet can't make the handler scan its whole
// history.
const maxTransactionPageSize = 100

func retrieveLimitQueryValue(r *http.Request) int {
	limit := maxTransactionPageSize

	limitStr := r.URL.Query().Get("limit")
	if limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= maxTransactionPageSize {
			limit = parsedLimit
		}
	}

	return limit
}
