package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/fraudsight/fraudsight/pkg"
	"github.com/fraudsight/fraudsight/pkg/database"
	"github.com/fraudsight/fraudsight/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type TransactionRepository interface {
	// Create inserts a transaction. Redelivered events hit the conflict clause
	// and become no-ops.
	Create(ctx context.Context, tx pgx.Tx, txn models.Transaction) (pgconn.CommandTag, error)
	FindById(ctx context.Context, db *database.DB, id uuid.UUID) (models.Transaction, error)
	ExistsById(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
	// FindByUserId lists a user's transactions, newest first.
	FindByUserId(ctx context.Context, db *database.DB, userID uuid.UUID, limit int) ([]models.Transaction, error)
	// UpdateScore records the model output and flips the status to scored.
	UpdateScore(ctx context.Context, tx pgx.Tx, id uuid.UUID, probability float64) error
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status pkg.TransactionStatus) error
}

type TransactionRepositoryImpl struct {
}

func NewTransactionRepository() TransactionRepository {
	return &TransactionRepositoryImpl{}
}

func (t TransactionRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, txn models.Transaction) (pgconn.CommandTag, error) {
	return tx.Exec(ctx, `
						INSERT INTO transactions (id, user_id, amount, occurred_at, features, fraud_probability, label, status, created_at, updated_at)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) ON CONFLICT DO NOTHING`,
		txn.ID,
		txn.UserID,
		txn.Amount,
		txn.OccurredAt,
		txn.Features,
		txn.FraudProbability,
		txn.Label,
		txn.Status,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
}

func (t TransactionRepositoryImpl) FindById(ctx context.Context, db *database.DB, id uuid.UUID) (models.Transaction, error) {
	if id == uuid.Nil {
		return models.Transaction{}, errors.New("transaction ID cannot be nil")
	}
	var txn models.Transaction
	err := db.QueryRow(ctx, `
		SELECT id, user_id, amount, occurred_at, features, fraud_probability, label, status, created_at, updated_at
		FROM transactions WHERE id = $1`, id).Scan(
		&txn.ID, &txn.UserID, &txn.Amount, &txn.OccurredAt, &txn.Features,
		&txn.FraudProbability, &txn.Label, &txn.Status, &txn.CreatedAt, &txn.UpdatedAt)
	return txn, err
}

func (t TransactionRepositoryImpl) ExistsById(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, errors.New("transaction ID cannot be nil")
	}
	var exists bool
	err := tx.QueryRow(ctx, `
							SELECT EXISTS(SELECT 1 FROM transactions WHERE id = $1)`,
		id,
	).Scan(&exists)
	return exists, err
}

func (t TransactionRepositoryImpl) FindByUserId(ctx context.Context, db *database.DB, userID uuid.UUID, limit int) ([]models.Transaction, error) {
	rows, err := db.Query(ctx, `
		SELECT id, user_id, amount, occurred_at, features, fraud_probability, label, status, created_at, updated_at
		FROM transactions WHERE user_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (t TransactionRepositoryImpl) UpdateScore(ctx context.Context, tx pgx.Tx, id uuid.UUID, probability float64) error {
	_, err := tx.Exec(ctx, `UPDATE transactions SET fraud_probability = $1, status = $2, updated_at = $3 WHERE id = $4`,
		probability, pkg.TransactionStatusScored, time.Now(), id)
	return err
}

func (t TransactionRepositoryImpl) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status pkg.TransactionStatus) error {
	_, err := tx.Exec(ctx, `UPDATE transactions SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now(), id)
	return err
}

func scanTransactions(rows pgx.Rows) ([]models.Transaction, error) {
	var txns []models.Transaction
	for rows.Next() {
		var txn models.Transaction
		if err := rows.Scan(
			&txn.ID, &txn.UserID, &txn.Amount, &txn.OccurredAt, &txn.Features,
			&txn.FraudProbability, &txn.Label, &txn.Status, &txn.CreatedAt, &txn.UpdatedAt,
		); err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}
