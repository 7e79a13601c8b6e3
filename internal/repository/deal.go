package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/kassaio/kassa/internal/models"
)

const (
	DealActiveStatus = "active"
	DealClosedStatus = "closed"
)

type DealRepository interface {
	Insert(deal *models.Deal, tx *sqlx.Tx) (string, error)
	GetOne(id string) (*models.Deal, bool, error)
	GetAllByUserId(userID string) ([]models.Deal, bool, error)
}

type DealRepositoryImpl struct {
	db *sqlx.DB
}

func NewDealRepository(db *sqlx.DB) DealRepository {
	return &DealRepositoryImpl{db: db}
}

func (repo *DealRepositoryImpl) Insert(deal *models.Deal, tx *sqlx.Tx) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string

	query := `
		INSERT INTO deals (user_id, title)
		VALUES ($1, $2)
		RETURNING id`
	if tx != nil {
		err := tx.QueryRowContext(ctx, query,
			deal.UserID,
			deal.Title,
		).Scan(&id)
		if err != nil {
			return "", err
		}
	} else {
		err := repo.db.GetContext(ctx, &id, query,
			deal.UserID,
			deal.Title,
		)

		if err != nil {
			return "", err
		}
	}

	return id, nil
}

func (repo *DealRepositoryImpl) GetOne(id string) (*models.Deal, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var deal models.Deal

	query := `
        SELECT id, user_id, title, status, created_at FROM deals WHERE id=$1 AND deleted_at IS NULL`

	err := repo.db.GetContext(ctx, &deal, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &deal, true, nil
}

func (repo *DealRepositoryImpl) GetAllByUserId(userID string) ([]models.Deal, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var deals []models.Deal

	query := `
        SELECT id, user_id, title, status, created_at FROM deals WHERE user_id=$1 AND deleted_at IS NULL`

	err := repo.db.SelectContext(ctx, &deals, query, userID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return deals, len(deals) > 0, nil
}
