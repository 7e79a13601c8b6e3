package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// MarkPaid must only ever flip rows that are still pending, so a concurrent
// settlement of the same installment is a no-op rather than a double payment.
func TestFinanceMarkPaid_GuardsOnPendingStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFinanceRepository(db)

	paidAt := time.Now()

	mock.ExpectExec(`UPDATE finances SET status=\$1, paid_at=\$2`).
		WithArgs(FinanceStatusPaid, paidAt, "fin-1", FinanceStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkPaid("fin-1", paidAt, nil)
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinanceMarkOverdue_GuardsOnPendingStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFinanceRepository(db)

	mock.ExpectExec(`UPDATE finances SET status=\$1`).
		WithArgs(FinanceStatusOverdue, "fin-1", FinanceStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkOverdue("fin-1")
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

// Inside a settlement transaction the pending listing takes row locks; the
// plain read path must not.
func TestFinanceListPendingByUser_LocksRowsInsideTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFinanceRepository(db)

	columns := []string{"id", "deal_id", "amount", "idx", "status", "payment_date", "paid_at", "created_at"}

	mock.ExpectBegin()
	mock.ExpectQuery(`ORDER BY f.idx ASC, f.payment_date ASC, f.id ASC\s+FOR UPDATE OF f`).
		WithArgs("user-1", FinanceStatusPending).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("fin-1", "deal-1", int64(100_00), 0, FinanceStatusPending, time.Now(), nil, time.Now()))

	tx, err := db.Beginx()
	require.NoError(t, err)

	finances, err := repo.ListPendingByUser("user-1", tx)
	require.NoError(t, err)
	require.Len(t, finances, 1)
	require.Equal(t, "fin-1", finances[0].ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinanceListPendingByUser_NoLockOutsideTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFinanceRepository(db)

	columns := []string{"id", "deal_id", "amount", "idx", "status", "payment_date", "paid_at", "created_at"}

	mock.ExpectQuery(`ORDER BY f.idx ASC, f.payment_date ASC, f.id ASC$`).
		WithArgs("user-1", FinanceStatusPending).
		WillReturnRows(sqlmock.NewRows(columns))

	finances, err := repo.ListPendingByUser("user-1", nil)
	require.NoError(t, err)
	require.Empty(t, finances)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinanceListDuePending_OnlyPastDue(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFinanceRepository(db)

	now := time.Now()
	columns := []string{"id", "deal_id", "amount", "idx", "status", "payment_date", "paid_at", "created_at"}

	mock.ExpectQuery(`WHERE status=\$1 AND payment_date < \$2`).
		WithArgs(FinanceStatusPending, now).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("fin-1", "deal-1", int64(100_00), 0, FinanceStatusPending, now.AddDate(0, 0, -2), nil, now))

	finances, err := repo.ListDuePending(now)
	require.NoError(t, err)
	require.Len(t, finances, 1)

	require.NoError(t, mock.ExpectationsWereMet())
}
