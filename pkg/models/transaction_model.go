package models

import (
	"time"

	"github.com/fraudsight/fraudsight/pkg"
	"github.com/google/uuid"
)

// Transaction maps to table `transactions`
type Transaction struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	Amount           float64
	OccurredAt       time.Time
	Features         []float64
	FraudProbability *float64
	Label            *int16 // nil until a human/ground-truth label exists
	Status           pkg.TransactionStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
