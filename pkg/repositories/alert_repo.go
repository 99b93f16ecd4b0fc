package repositories

import (
	"context"

	"github.com/fraudsight/fraudsight/pkg"
	"github.com/fraudsight/fraudsight/pkg/database"
	"github.com/fraudsight/fraudsight/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type AlertRepository interface {
	// Create records a fraud alert for a scored transaction.
	Create(ctx context.Context, tx pgx.Tx, alert models.FraudAlert) (pgconn.CommandTag, error)
	// FindAboveThreshold lists alerts at or above the probability cutoff,
	// newest first.
	FindAboveThreshold(ctx context.Context, db *database.DB, threshold float64, limit int) ([]models.FraudAlert, error)
	// UpdateStatus applies a forward lifecycle transition (new, acknowledged,
	// resolved). Backward transitions match no rows.
	UpdateStatus(ctx context.Context, tx pgx.Tx, alertID uuid.UUID, status pkg.AlertStatus) (pgconn.CommandTag, error)
}

type AlertRepositoryImpl struct {
}

func NewAlertRepository() AlertRepository {
	return &AlertRepositoryImpl{}
}

func (a AlertRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, alert models.FraudAlert) (pgconn.CommandTag, error) {
	return tx.Exec(ctx, `
						INSERT INTO fraud_alerts (id, transaction_id, fraud_probability, is_fraudulent, alert_type, status, context, created_at)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT DO NOTHING`,
		alert.ID,
		alert.TransactionID,
		alert.FraudProbability,
		alert.IsFraudulent,
		alert.AlertType,
		alert.Status,
		alert.Context,
		alert.CreatedAt,
	)
}

func (a AlertRepositoryImpl) FindAboveThreshold(ctx context.Context, db *database.DB, threshold float64, limit int) ([]models.FraudAlert, error) {
	rows, err := db.Query(ctx, `
		SELECT id, transaction_id, fraud_probability, is_fraudulent, alert_type, status, context, created_at
		FROM fraud_alerts
		WHERE fraud_probability >= $1
		ORDER BY created_at DESC
		LIMIT $2`, threshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var alerts []models.FraudAlert
	for rows.Next() {
		var alert models.FraudAlert
		if err = rows.Scan(
			&alert.ID,
			&alert.TransactionID,
			&alert.FraudProbability,
			&alert.IsFraudulent,
			&alert.AlertType,
			&alert.Status,
			&alert.Context,
			&alert.CreatedAt,
		); err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func (a AlertRepositoryImpl) UpdateStatus(ctx context.Context, tx pgx.Tx, alertID uuid.UUID, status pkg.AlertStatus) (pgconn.CommandTag, error) {
	// The rank comparison rejects backward transitions in the statement
	// itself, so resolved alerts can never be reopened.
	return tx.Exec(ctx, `
		UPDATE fraud_alerts SET status = $1
		WHERE id = $2
		  AND CASE status WHEN 'new' THEN 0 WHEN 'acknowledged' THEN 1 ELSE 2 END <
		      CASE $1 WHEN 'new' THEN 0 WHEN 'acknowledged' THEN 1 ELSE 2 END`,
		status, alertID)
}
