package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/fraudsight/fraudsight/pkg/database"
	"github.com/fraudsight/fraudsight/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// UserRepository defines the interface for user repository.
type UserRepository interface {
	// Create creates a new user.
	Create(ctx context.Context, tx pgx.Tx, user models.User) (pgconn.CommandTag, error)
	// FindById finds a user by ID.
	FindById(ctx context.Context, db *database.DB, userID uuid.UUID) (models.User, error)
	ExistsById(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (bool, error)
	// UpdateRiskScore stores a recomputed account-level risk score.
	UpdateRiskScore(ctx context.Context, tx pgx.Tx, userID uuid.UUID, score float64) error
}

type UserRepositoryImpl struct {
}

func NewUserRepository() UserRepository {
	return &UserRepositoryImpl{}
}

func (u UserRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, user models.User) (pgconn.CommandTag, error) {
	return tx.Exec(ctx, `INSERT INTO users (id, name, email, risk_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING`,
		user.ID, user.Name, user.Email, user.RiskScore, user.CreatedAt, user.UpdatedAt)
}

func (u UserRepositoryImpl) FindById(ctx context.Context, db *database.DB, userID uuid.UUID) (models.User, error) {
	if userID == uuid.Nil {
		return models.User{}, fmt.Errorf("invalid user ID: %s", userID.String())
	}
	var user models.User
	err := db.QueryRow(ctx, `SELECT id, name, email, risk_score, created_at, updated_at FROM users WHERE id = $1`, userID).Scan(
		&user.ID, &user.Name, &user.Email, &user.RiskScore, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

func (u UserRepositoryImpl) ExistsById(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}

func (u UserRepositoryImpl) UpdateRiskScore(ctx context.Context, tx pgx.Tx, userID uuid.UUID, score float64) error {
	_, err := tx.Exec(ctx, `UPDATE users SET risk_score = $1, updated_at = $2 WHERE id = $3`,
		score, time.Now(), userID)
	return err
}
