package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fraudsight/fraudsight/pkg"
	"github.com/fraudsight/fraudsight/pkg/database"
	"github.com/fraudsight/fraudsight/pkg/graph"
	"github.com/fraudsight/fraudsight/pkg/graphrag"
	"github.com/fraudsight/fraudsight/pkg/models"
	"github.com/fraudsight/fraudsight/pkg/repositories"
	"github.com/fraudsight/fraudsight/pkg/views"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ScoringService processes one transaction event end to end: persist, mirror
// into the graph, score against the neighborhood, record the score and raise
// an alert when warranted.
type ScoringService interface {
	ScoreTransaction(ctx context.Context, event views.TransactionEvent) error
}

type ScoringServiceConfig struct {
	Logger          *zap.Logger
	DB              *database.DB
	Engine          *graphrag.Engine
	AlertPublisher  AlertPublisher
	TransactionRepo repositories.TransactionRepository
	UserRepo        repositories.UserRepository
	AlertRepo       repositories.AlertRepository
	AlertThreshold  float64
}

type ScoringServiceImpl struct {
	ScoringServiceConfig
}

func NewScoringService(cfg ScoringServiceConfig) ScoringService {
	return &ScoringServiceImpl{cfg}
}

func (s *ScoringServiceImpl) ScoreTransaction(ctx context.Context, event views.TransactionEvent) error {
	txn, err := toModel(event)
	if err != nil {
		return pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid transaction event", err)
	}
	traceID := txn.ID.String()

	// Persist first so the event survives a scoring failure. Conflict clauses
	// make redelivered messages no-ops.
	err = s.DB.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		exists, err := s.UserRepo.ExistsById(ctx, tx, txn.UserID)
		if err != nil {
			return err
		}
		if !exists {
			if _, err = s.UserRepo.Create(ctx, tx, models.PlaceholderUser(txn.UserID, time.Now())); err != nil {
				return err
			}
		}
		_, err = s.TransactionRepo.Create(ctx, tx, txn)
		return err
	})
	if err != nil {
		return pkg.HandleSQLError(traceID, s.Logger, err)
	}

	if err = s.Engine.UpdateGraph(ctx, toGraphNode(txn), nil); err != nil {
		return pkg.HandleGraphError(traceID, s.Logger, err)
	}

	pred, err := s.Engine.PredictFraud(ctx, traceID)
	if err != nil {
		_ = s.DB.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			return s.TransactionRepo.UpdateStatus(ctx, tx, txn.ID, pkg.TransactionStatusFailed)
		})
		return pkg.NewAppError(pkg.ErrModelUnavailable, "scoring failed", err)
	}

	err = s.DB.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.TransactionRepo.UpdateScore(ctx, tx, txn.ID, pred.FraudProbability); err != nil {
			return err
		}
		if !pred.IsFraudulent {
			return nil
		}
		if _, err := s.AlertRepo.Create(ctx, tx, models.FraudAlert{
			ID:               uuid.New(),
			TransactionID:    txn.ID,
			FraudProbability: pred.FraudProbability,
			IsFraudulent:     true,
			AlertType:        pkg.AlertTypeHighRisk,
			Status:           pkg.AlertStatusNew,
			Context:          pred.Context,
			CreatedAt:        time.Now(),
		}); err != nil {
			return err
		}
		// A flagged transaction raises the owner's account risk.
		return s.UserRepo.UpdateRiskScore(ctx, tx, txn.UserID, pred.FraudProbability)
	})
	if err != nil {
		return pkg.HandleSQLError(traceID, s.Logger, err)
	}

	// Alert publishing is best-effort: the score is already durable.
	if pred.IsFraudulent {
		contextDoc, mErr := json.Marshal(pred.Context)
		if mErr != nil {
			contextDoc = []byte("{}")
		}
		if pubErr := s.AlertPublisher.PublishAlert(traceID, views.FraudAlert{
			TransactionID:    traceID,
			FraudProbability: pred.FraudProbability,
			IsFraudulent:     true,
			Timestamp:        time.Now().UTC().Format(time.RFC3339Nano),
			Context:          string(contextDoc),
		}); pubErr != nil {
			s.Logger.Error("failed to publish fraud alert",
				zap.String(pkg.TransactionId, traceID), zap.Error(pubErr))
		}
	}
	return nil
}

func toModel(event views.TransactionEvent) (models.Transaction, error) {
	id, err := uuid.Parse(event.ID)
	if err != nil {
		return models.Transaction{}, err
	}
	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		return models.Transaction{}, err
	}
	occurredAt, err := time.Parse(time.RFC3339Nano, event.Timestamp)
	if err != nil {
		occurredAt = time.Now().UTC()
	}
	now := time.Now()
	txn := models.Transaction{
		ID:         id,
		UserID:     userID,
		Amount:     event.Amount,
		OccurredAt: occurredAt,
		Features:   event.Features,
		Status:     pkg.TransactionStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	// Stream events always carry a ground-truth label.
	label := int16(event.Label)
	txn.Label = &label
	return txn, nil
}

func toGraphNode(txn models.Transaction) graph.TransactionNode {
	node := graph.TransactionNode{
		ID:        txn.ID.String(),
		UserID:    txn.UserID.String(),
		Amount:    txn.Amount,
		Timestamp: txn.OccurredAt.UTC().Format(time.RFC3339Nano),
		Features:  txn.Features,
	}
	if txn.Label != nil {
		label := int64(*txn.Label)
		node.Label = &label
	}
	return node
}
