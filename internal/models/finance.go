package models

import (
	"database/sql"
	"time"

	"github.com/kassaio/kassa/internal/money"
)

// Finance is a single installment obligation belonging to a deal. It is
// atomically pending, paid, or overdue; partial payment is not modeled.
type Finance struct {
	ID          string       `db:"id"`
	DealID      string       `db:"deal_id"`
	Amount      money.Kopeks `db:"amount"`
	Idx         int          `db:"idx"`
	Status      string       `db:"status"`
	PaymentDate time.Time    `db:"payment_date"`
	PaidAt      sql.NullTime `db:"paid_at"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   sql.NullTime `db:"updated_at"`
	DeletedAt   sql.NullTime `db:"deleted_at"`
}
