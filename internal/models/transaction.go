package models

import (
	"database/sql"
	"time"

	"github.com/kassaio/kassa/internal/money"
)

// WalletTransaction is one row of the append-only ledger. Amount is signed
// kopecks: positive rows credit the wallet, negative rows debit it. Rows are
// never updated or deleted once posted; corrections are offsetting rows.
type WalletTransaction struct {
	ID          string         `db:"id"`
	WalletID    string         `db:"wallet_id"`
	Amount      money.Kopeks   `db:"amount"`
	Type        string         `db:"type"`
	Status      string         `db:"status"`
	Description sql.NullString `db:"description"`
	ReceiptURL  sql.NullString `db:"receipt_url"`
	Reference   string         `db:"reference"`
	CreatedAt   time.Time      `db:"created_at"`
	DeletedAt   sql.NullTime   `db:"deleted_at"`
}
