// Logging is a critical part of the system
// Every action (synchronous or asynchronous) should be logged.
// This helps in audit and will also be used to trace activites.
// ...
// We used polymorphism to define entity and entity_id
// This allow our table to be used for different part of the application
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/kassaio/kassa/internal/models"
)

type ActivityRepository interface {
	CountConsecutiveFailedLoginAttempts(userID, action_desc string) int
	Insert(log *models.ActivityLog) (*models.ActivityLog, error)
}

const (
	// ActivityLogTransactionEntity is used in actions that has to do with ledger rows and the wallet_transactions table
	ActivityLogTransactionEntity = "transaction"

	// ActivityLogWalletEntity is used in activites that has to do with wallets and the wallets table
	ActivityLogWalletEntity = "wallet"

	// ActivityLogFinanceEntity is used in activites that has to do with installments and the finances table
	ActivityLogFinanceEntity = "finance"

	// ActivityLogDealEntity is used in activites that has to do with deals and the deals table
	ActivityLogDealEntity = "deal"

	// ActivityLogUserEntity is used in activites that has to do with user account and the users table
	ActivityLogUserEntity = "user"
)

type ActivityRepositoryImpl struct {
	db *sqlx.DB
}

func NewActivityRepository(db *sqlx.DB) ActivityRepository {
	return &ActivityRepositoryImpl{db: db}
}

func (repo *ActivityRepositoryImpl) Insert(log *models.ActivityLog) (*models.ActivityLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var entry models.ActivityLog

	query := `
		INSERT INTO activity_logs (user_id, entity, entity_id, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, entity, entity_id, description, created_at`

	err := repo.db.GetContext(ctx, &entry, query,
		log.UserID,
		log.Entity,
		log.EntityId,
		log.Description,
	)

	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// CountConsecutiveFailedLoginAttempts counts the number of consecutive failed login attempts for a user.
// This function is used to determine if a user's account should be temporarily locked after 3 consecutive failures.
// It checks the most recent login attempts in descending order and counts failures until a successful login or the limit is reached.
func (repo *ActivityRepositoryImpl) CountConsecutiveFailedLoginAttempts(userID, action_desc string) int {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var descriptions []string

	// Query the most recent login attempts for the user, limiting to the last 3 entries
	query := `
		SELECT description 
		FROM activity_logs 
		WHERE user_id = $1 AND entity = $2 
		ORDER BY created_at DESC 
		LIMIT 3
	`
	err := repo.db.SelectContext(ctx, &descriptions, query, userID, ActivityLogUserEntity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0
		}
		return 0
	}

	// Count consecutive failed logins
	count := 0
	for _, desc := range descriptions {
		if desc == action_desc {
			count++
		} else {
			break // Stop counting if we encounter a non-failed login
		}
	}

	return count
}
