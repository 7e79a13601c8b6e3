// The wallet_transactions table is an append-only ledger. This repository
// exposes no update or delete of a posted row; a wrong amount is corrected by
// posting an offsetting row. Listing is always bounded and ordered newest
// first with the id as a tie-breaker, so balance reconstruction order is
// deterministic.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/kassaio/kassa/internal/models"
)

// define possible transaction status
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// define possible transaction types
const (
	TransactionTypeDeposit    = "deposit"
	TransactionTypeSettlement = "settlement"
	TransactionTypeAdjustment = "adjustment"
)

type TransactionRepository interface {
	Insert(transaction *models.WalletTransaction, tx *sqlx.Tx) (*models.WalletTransaction, error)
	ListByWallet(walletID string, limit int) ([]models.WalletTransaction, error)
	FindByReference(reference string) (*models.WalletTransaction, bool, error)
}

type TransactionRepositoryImpl struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) TransactionRepository {
	return &TransactionRepositoryImpl{db: db}
}

func (repo *TransactionRepositoryImpl) Insert(transaction *models.WalletTransaction, tx *sqlx.Tx) (*models.WalletTransaction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var trans models.WalletTransaction

	query := `
		INSERT INTO wallet_transactions (wallet_id, amount, type, description, receipt_url, reference)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, wallet_id, amount, type, status, description, receipt_url, reference, created_at`
	if tx != nil {
		err := tx.GetContext(ctx, &trans, query,
			transaction.WalletID,
			transaction.Amount,
			transaction.Type,
			transaction.Description,
			transaction.ReceiptURL,
			transaction.Reference,
		)
		if err != nil {
			return nil, err
		}
	} else {
		err := repo.db.GetContext(ctx, &trans, query,
			transaction.WalletID,
			transaction.Amount,
			transaction.Type,
			transaction.Description,
			transaction.ReceiptURL,
			transaction.Reference,
		)

		if err != nil {
			return nil, err
		}
	}

	return &trans, nil
}

func (repo *TransactionRepositoryImpl) ListByWallet(walletID string, limit int) ([]models.WalletTransaction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var transactions []models.WalletTransaction

	query := `
		SELECT id, wallet_id, amount, type, status, description, receipt_url, reference, created_at
		FROM wallet_transactions
		WHERE wallet_id=$1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	err := repo.db.SelectContext(ctx, &transactions, query, walletID, limit)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return transactions, nil
}

func (repo *TransactionRepositoryImpl) FindByReference(reference string) (*models.WalletTransaction, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var trans models.WalletTransaction

	query := `
        SELECT id, wallet_id, amount, type, status, reference, created_at
		FROM wallet_transactions WHERE reference=$1 AND deleted_at IS NULL`

	err := repo.db.GetContext(ctx, &trans, query, reference)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &trans, true, nil
}
