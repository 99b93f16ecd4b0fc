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
	pkgviews "github.com/fraudsight/fraudsight/pkg/views"
	"github.com/fraudsight/fraudsight/services/fraud-api/configs"
	"github.com/fraudsight/fraudsight/services/fraud-api/internal/views"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	scoreCachePrefix = "fraudsight:score:"
	scoreCacheTTL    = 10 * time.Minute
)

type FraudService interface {
	// Predict scores a transaction event against its graph neighborhood,
	// persisting the transaction, the score, and any resulting alert.
	Predict(ctx context.Context, traceID string, event pkgviews.TransactionEvent) (graphrag.Prediction, error)
	GetTransaction(ctx context.Context, traceID string, id string) (views.TransactionResponse, error)
	ListUserTransactions(ctx context.Context, traceID string, userID string, limit int) ([]views.TransactionResponse, error)
	ListAlerts(ctx context.Context, traceID string, threshold float64, limit int) ([]views.AlertResponse, error)
	// UpdateAlertStatus moves an alert to acknowledged or resolved.
	UpdateAlertStatus(ctx context.Context, traceID string, alertID string, status string) error
}

type FraudServiceConfig struct {
	Logger          *zap.Logger
	Cnf             *configs.Config
	DB              *database.DB
	RedisClient     *redis.Client
	Engine          *graphrag.Engine
	Limiter         *pkg.DistributedLimiter
	AlertPublisher  AlertPublisher
	TransactionRepo repositories.TransactionRepository
	UserRepo        repositories.UserRepository
	AlertRepo       repositories.AlertRepository
}

type FraudServiceImpl struct {
	FraudServiceConfig
}

func NewFraudService(cfg FraudServiceConfig) FraudService {
	return &FraudServiceImpl{cfg}
}

func (s *FraudServiceImpl) Predict(ctx context.Context, traceID string, event pkgviews.TransactionEvent) (graphrag.Prediction, error) {
	if !s.Limiter.Allow(ctx) {
		return graphrag.Prediction{}, pkg.NewAppError(pkg.ErrRateLimitedCode, "scoring rate limit exceeded", pkg.ErrRateLimitExceeded)
	}

	// Serve repeated scoring requests for the same transaction from cache.
	if cached, ok := s.cachedPrediction(ctx, event.ID); ok {
		s.Logger.Info("prediction served from cache",
			zap.String(pkg.TraceId, traceID), zap.String(pkg.TransactionId, event.ID))
		return cached, nil
	}

	txn, err := eventToModel(event)
	if err != nil {
		return graphrag.Prediction{}, pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid transaction event", err)
	}

	// Persist the transaction before scoring so a model failure never loses it.
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
		return graphrag.Prediction{}, pkg.HandleSQLError(traceID, s.Logger, err)
	}

	// Mirror the transaction into the graph before retrieval.
	if err = s.Engine.UpdateGraph(ctx, toGraphNode(txn), nil); err != nil {
		return graphrag.Prediction{}, pkg.HandleGraphError(traceID, s.Logger, err)
	}

	pred, err := s.Engine.PredictFraud(ctx, txn.ID.String())
	if err != nil {
		_ = s.DB.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			return s.TransactionRepo.UpdateStatus(ctx, tx, txn.ID, pkg.TransactionStatusFailed)
		})
		return graphrag.Prediction{}, pkg.NewAppError(pkg.ErrModelUnavailable, "scoring failed", err)
	}

	err = s.DB.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.TransactionRepo.UpdateScore(ctx, tx, txn.ID, pred.FraudProbability); err != nil {
			return err
		}
		if pred.IsFraudulent {
			_, err := s.AlertRepo.Create(ctx, tx, models.FraudAlert{
				ID:               uuid.New(),
				TransactionID:    txn.ID,
				FraudProbability: pred.FraudProbability,
				IsFraudulent:     true,
				AlertType:        pkg.AlertTypeHighRisk,
				Status:           pkg.AlertStatusNew,
				Context:          pred.Context,
				CreatedAt:        time.Now(),
			})
			return err
		}
		return nil
	})
	if err != nil {
		return graphrag.Prediction{}, pkg.HandleSQLError(traceID, s.Logger, err)
	}

	// Alert publishing is best-effort: the score is already durable.
	if pred.IsFraudulent {
		s.publishAlert(traceID, pred)
	}

	s.cachePrediction(ctx, pred)
	return pred, nil
}

func (s *FraudServiceImpl) GetTransaction(ctx context.Context, traceID string, id string) (views.TransactionResponse, error) {
	txID, err := uuid.Parse(id)
	if err != nil {
		return views.TransactionResponse{}, pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid transaction id", err)
	}
	txn, err := s.TransactionRepo.FindById(ctx, s.DB, txID)
	if err != nil {
		return views.TransactionResponse{}, pkg.HandleSQLError(traceID, s.Logger, err)
	}
	return toTransactionResponse(txn), nil
}

func (s *FraudServiceImpl) ListUserTransactions(ctx context.Context, traceID string, userID string, limit int) ([]views.TransactionResponse, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid user id", err)
	}
	txns, err := s.TransactionRepo.FindByUserId(ctx, s.DB, uid, limit)
	if err != nil {
		return nil, pkg.HandleSQLError(traceID, s.Logger, err)
	}
	out := make([]views.TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		out = append(out, toTransactionResponse(txn))
	}
	return out, nil
}

func (s *FraudServiceImpl) ListAlerts(ctx context.Context, traceID string, threshold float64, limit int) ([]views.AlertResponse, error) {
	alerts, err := s.AlertRepo.FindAboveThreshold(ctx, s.DB, threshold, limit)
	if err != nil {
		return nil, pkg.HandleSQLError(traceID, s.Logger, err)
	}
	out := make([]views.AlertResponse, 0, len(alerts))
	for _, alert := range alerts {
		out = append(out, views.AlertResponse{
			ID:               alert.ID.String(),
			TransactionID:    alert.TransactionID.String(),
			FraudProbability: alert.FraudProbability,
			IsFraudulent:     alert.IsFraudulent,
			AlertType:        alert.AlertType,
			Status:           string(alert.Status),
			Context:          alert.Context,
			CreatedAt:        alert.CreatedAt,
		})
	}
	return out, nil
}

func (s *FraudServiceImpl) UpdateAlertStatus(ctx context.Context, traceID string, alertID string, status string) error {
	id, err := uuid.Parse(alertID)
	if err != nil {
		return pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid alert id", err)
	}
	next := pkg.AlertStatus(status)
	if next != pkg.AlertStatusAcknowledged && next != pkg.AlertStatusResolved {
		return pkg.NewAppError(pkg.ErrInvalidInputCode, "status must be acknowledged or resolved", nil)
	}
	return s.DB.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := s.AlertRepo.UpdateStatus(ctx, tx, id, next)
		if err != nil {
			return pkg.HandleSQLError(traceID, s.Logger, err)
		}
		if tag.RowsAffected() == 0 {
			return pkg.NewAppError(pkg.ErrRecordNotFoundCode, "alert not found or transition not allowed", nil)
		}
		s.Logger.Info("alert status updated",
			zap.String(pkg.TraceId, traceID),
			zap.String("alert_id", id.String()),
			zap.String("status", string(next)))
		return nil
	})
}

func (s *FraudServiceImpl) publishAlert(traceID string, pred graphrag.Prediction) {
	contextDoc, err := json.Marshal(pred.Context)
	if err != nil {
		contextDoc = []byte("{}")
	}
	alert := pkgviews.FraudAlert{
		TransactionID:    pred.TransactionID,
		FraudProbability: pred.FraudProbability,
		IsFraudulent:     pred.IsFraudulent,
		Timestamp:        time.Now().UTC().Format(time.RFC3339Nano),
		Context:          string(contextDoc),
	}
	if err := s.AlertPublisher.PublishAlert(traceID, alert); err != nil {
		s.Logger.Error("failed to publish fraud alert",
			zap.String(pkg.TraceId, traceID),
			zap.String(pkg.TransactionId, pred.TransactionID),
			zap.Error(err))
	}
}

func (s *FraudServiceImpl) cachedPrediction(ctx context.Context, txID string) (graphrag.Prediction, bool) {
	data, err := s.RedisClient.Get(ctx, scoreCachePrefix+txID).Bytes()
	if err != nil {
		return graphrag.Prediction{}, false
	}
	var pred graphrag.Prediction
	if err := json.Unmarshal(data, &pred); err != nil {
		return graphrag.Prediction{}, false
	}
	return pred, true
}

func (s *FraudServiceImpl) cachePrediction(ctx context.Context, pred graphrag.Prediction) {
	data, err := json.Marshal(pred)
	if err != nil {
		return
	}
	if err := s.RedisClient.Set(ctx, scoreCachePrefix+pred.TransactionID, data, scoreCacheTTL).Err(); err != nil {
		s.Logger.Warn("failed to cache prediction", zap.String(pkg.TransactionId, pred.TransactionID), zap.Error(err))
	}
}

func eventToModel(event pkgviews.TransactionEvent) (models.Transaction, error) {
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
	if event.Label > 0 {
		label := int16(event.Label)
		txn.Label = &label
	}
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

func toTransactionResponse(txn models.Transaction) views.TransactionResponse {
	return views.TransactionResponse{
		ID:               txn.ID.String(),
		UserID:           txn.UserID.String(),
		Amount:           txn.Amount,
		OccurredAt:       txn.OccurredAt,
		Features:         txn.Features,
		FraudProbability: txn.FraudProbability,
		Label:            txn.Label,
		Status:           string(txn.Status),
		CreatedAt:        txn.CreatedAt,
	}
}
