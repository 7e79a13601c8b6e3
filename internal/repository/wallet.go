package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/kassaio/kassa/internal/models"
	"github.com/kassaio/kassa/internal/money"
)

const (
	WalletActiveStatus = "active"
	WalletOnHoldStatus = "on-hold"
)

type WalletRepository interface {
	Insert(wallet *models.Wallet, tx *sqlx.Tx) (string, error)
	GetOrCreate(wallet *models.Wallet) (*models.Wallet, bool, error)
	GetOne(id string) (*models.Wallet, bool, error)
	GetByUserId(userID string) (*models.Wallet, bool, error)
	Balance(id string) (money.Kopeks, error)
	Lock(id string) error
}

type WalletRepositoryImpl struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) WalletRepository {
	return &WalletRepositoryImpl{db: db}
}

func (repo *WalletRepositoryImpl) Insert(wallet *models.Wallet, tx *sqlx.Tx) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string

	query := `
		INSERT INTO wallets (user_id, code, currency)
		VALUES ($1, $2, $3)
		RETURNING id`
	if tx != nil {
		err := tx.QueryRowContext(ctx, query,
			wallet.UserID,
			wallet.Code,
			wallet.Currency,
		).Scan(&id)
		if err != nil {
			return "", err
		}
	} else {
		err := repo.db.GetContext(ctx, &id, query,
			wallet.UserID,
			wallet.Code,
			wallet.Currency,
		)

		if err != nil {
			return "", err
		}
	}

	return id, nil
}

// GetOrCreate returns the user's live wallet for the given currency, creating
// one if none exists. The second return value reports whether a wallet was
// created by this call. The partial unique index on (user_id, currency)
// guarantees at most one live wallet even under concurrent calls.
func (repo *WalletRepositoryImpl) GetOrCreate(wallet *models.Wallet) (*models.Wallet, bool, error) {
	existing, found, err := repo.GetByUserId(wallet.UserID)
	if err != nil {
		return nil, false, err
	}
	if found {
		return existing, false, nil
	}

	id, err := repo.Insert(wallet, nil)
	if err != nil {
		return nil, false, err
	}

	created, _, err := repo.GetOne(id)
	if err != nil {
		return nil, false, err
	}

	return created, true, nil
}

func (repo *WalletRepositoryImpl) GetOne(id string) (*models.Wallet, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var wallet models.Wallet

	query := `
        SELECT id, user_id, code, currency, status, created_at, updated_at FROM wallets WHERE id=$1 AND deleted_at IS NULL`

	err := repo.db.GetContext(ctx, &wallet, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &wallet, true, nil
}

func (repo *WalletRepositoryImpl) GetByUserId(userID string) (*models.Wallet, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var wallet models.Wallet

	query := `
        SELECT id, user_id, code, currency, status, created_at, updated_at FROM wallets WHERE user_id=$1 AND deleted_at IS NULL`

	err := repo.db.GetContext(ctx, &wallet, query, userID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &wallet, true, nil
}

// Balance folds the wallet's non-deleted ledger rows. There is no stored
// balance column anywhere, so concurrent appends can never produce drift:
// whatever order the inserts land in, the sum is the same.
func (repo *WalletRepositoryImpl) Balance(id string) (money.Kopeks, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var balance money.Kopeks

	query := `
		SELECT COALESCE(SUM(amount), 0) FROM wallet_transactions
		WHERE wallet_id=$1 AND deleted_at IS NULL`

	err := repo.db.GetContext(ctx, &balance, query, id)
	if err != nil {
		return 0, err
	}

	return balance, nil
}

func (repo *WalletRepositoryImpl) Lock(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE wallets SET status = $1, updated_at = NOW() WHERE id = $2`

	_, err := repo.db.ExecContext(ctx, query, WalletOnHoldStatus, id)
	return err
}
