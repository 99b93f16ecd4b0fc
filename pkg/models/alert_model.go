package models

import (
	"time"

	"github.com/fraudsight/fraudsight/pkg"
	"github.com/google/uuid"
)

// FraudAlert maps to table `fraud_alerts`
type FraudAlert struct {
	ID               uuid.UUID
	TransactionID    uuid.UUID
	FraudProbability float64
	IsFraudulent     bool
	AlertType        string
	Status           pkg.AlertStatus
	Context          map[string]any
	CreatedAt        time.Time
}
