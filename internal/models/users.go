package models

import (
	"database/sql"
	"time"
)

type User struct {
	ID             string       `db:"id"`
	FirstName      string       `db:"first_name"`
	LastName       string       `db:"last_name"`
	PhoneNumber    string       `db:"phone_number"`
	Email          string       `db:"email"`
	HashedPassword string       `db:"hashed_password"`
	Status         string       `db:"status"`
	VerifiedAt     sql.NullTime `db:"verified_at"`
	CreatedAt      time.Time    `db:"created_at"`
	UpdatedAt      sql.NullTime `db:"updated_at"`
	DeletedAt      sql.NullTime `db:"deleted_at"`
}

// Verified reports whether the account went through email verification.
// Wallets must never be created for unverified accounts.
func (u *User) Verified() bool {
	return u.VerifiedAt.Valid
}
