package models

import (
	"database/sql"
	"time"
)

type Wallet struct {
	ID        string       `db:"id"`
	UserID    string       `db:"user_id"`
	Code      string       `db:"code"`
	Currency  string       `db:"currency"`
	Status    string       `db:"status"`
	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt sql.NullTime `db:"updated_at"`
	DeletedAt sql.NullTime `db:"deleted_at"`
}
