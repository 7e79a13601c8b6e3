package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kassaio/kassa/internal/models"
)

// Finance lifecycle: pending on deal origination, paid when a deposit settles
// it, overdue when the scanner finds its due date passed with no payment.
const (
	FinanceStatusPending = "pending"
	FinanceStatusPaid    = "paid"
	FinanceStatusOverdue = "overdue"
)

type FinanceRepository interface {
	Insert(finance *models.Finance, tx *sqlx.Tx) (string, error)
	GetOne(id string) (*models.Finance, bool, error)
	ListPendingByUser(userID string, tx *sqlx.Tx) ([]models.Finance, error)
	MarkPaid(id string, paidAt time.Time, tx *sqlx.Tx) error
	ListDuePending(now time.Time) ([]models.Finance, error)
	MarkOverdue(id string) error
}

type FinanceRepositoryImpl struct {
	db *sqlx.DB
}

func NewFinanceRepository(db *sqlx.DB) FinanceRepository {
	return &FinanceRepositoryImpl{db: db}
}

func (repo *FinanceRepositoryImpl) Insert(finance *models.Finance, tx *sqlx.Tx) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string

	query := `
		INSERT INTO finances (deal_id, amount, idx, payment_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if tx != nil {
		err := tx.QueryRowContext(ctx, query,
			finance.DealID,
			finance.Amount,
			finance.Idx,
			finance.PaymentDate,
		).Scan(&id)
		if err != nil {
			return "", err
		}
	} else {
		err := repo.db.GetContext(ctx, &id, query,
			finance.DealID,
			finance.Amount,
			finance.Idx,
			finance.PaymentDate,
		)

		if err != nil {
			return "", err
		}
	}

	return id, nil
}

func (repo *FinanceRepositoryImpl) GetOne(id string) (*models.Finance, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var finance models.Finance

	query := `
		SELECT id, deal_id, amount, idx, status, payment_date, paid_at, created_at
		FROM finances WHERE id=$1 AND deleted_at IS NULL`

	err := repo.db.GetContext(ctx, &finance, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &finance, true, nil
}

// ListPendingByUser returns the outstanding installments across all of the
// user's deals, ordered by installment index then due date, which is the
// order deposits are applied in. When called inside a settlement transaction
// the rows are locked FOR UPDATE so two concurrent deposits cannot settle the
// same installment twice.
func (repo *FinanceRepositoryImpl) ListPendingByUser(userID string, tx *sqlx.Tx) ([]models.Finance, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var finances []models.Finance

	query := `
		SELECT f.id, f.deal_id, f.amount, f.idx, f.status, f.payment_date, f.paid_at, f.created_at
		FROM finances f
		JOIN deals d ON d.id = f.deal_id
		WHERE d.user_id=$1 AND f.status=$2 AND f.deleted_at IS NULL AND d.deleted_at IS NULL
		ORDER BY f.idx ASC, f.payment_date ASC, f.id ASC`

	if tx != nil {
		query += `
		FOR UPDATE OF f`
		err := tx.SelectContext(ctx, &finances, query, userID, FinanceStatusPending)
		if err != nil {
			return nil, err
		}
		return finances, nil
	}

	err := repo.db.SelectContext(ctx, &finances, query, userID, FinanceStatusPending)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return finances, nil
}

func (repo *FinanceRepositoryImpl) MarkPaid(id string, paidAt time.Time, tx *sqlx.Tx) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE finances SET status=$1, paid_at=$2, updated_at=NOW()
		WHERE id=$3 AND status=$4 AND deleted_at IS NULL`

	if tx != nil {
		_, err := tx.ExecContext(ctx, query, FinanceStatusPaid, paidAt, id, FinanceStatusPending)
		return err
	}

	_, err := repo.db.ExecContext(ctx, query, FinanceStatusPaid, paidAt, id, FinanceStatusPending)
	return err
}

func (repo *FinanceRepositoryImpl) ListDuePending(now time.Time) ([]models.Finance, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var finances []models.Finance

	query := `
		SELECT id, deal_id, amount, idx, status, payment_date, paid_at, created_at
		FROM finances
		WHERE status=$1 AND payment_date < $2 AND deleted_at IS NULL
		ORDER BY payment_date ASC, id ASC`

	err := repo.db.SelectContext(ctx, &finances, query, FinanceStatusPending, now)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return finances, nil
}

// MarkOverdue only transitions rows still pending, so a deposit that settles
// an installment between the scanner's read and write wins.
func (repo *FinanceRepositoryImpl) MarkOverdue(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE finances SET status=$1, updated_at=NOW()
		WHERE id=$2 AND status=$3 AND deleted_at IS NULL`

	_, err := repo.db.ExecContext(ctx, query, FinanceStatusOverdue, id, FinanceStatusPending)
	return err
}
