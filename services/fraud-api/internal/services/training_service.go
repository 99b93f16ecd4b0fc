package services

import (
	"context"
	"sync"
	"time"

	"github.com/fraudsight/fraudsight/pkg"
	"github.com/fraudsight/fraudsight/pkg/gnn"
	"github.com/fraudsight/fraudsight/pkg/graphrag"
	"github.com/fraudsight/fraudsight/services/fraud-api/configs"
	"github.com/fraudsight/fraudsight/services/fraud-api/internal/views"
	"go.uber.org/zap"
)

type TrainingService interface {
	// Train fits a fresh model on labeled neighborhoods, evaluates it,
	// persists the weights, and swaps it into the serving engine.
	Train(ctx context.Context, traceID string, epochs int) (views.TrainResponse, error)
	// Status reports the serving model's shape and its accuracy/AUC over the
	// labeled sample, evaluating on demand when no training ran in-process.
	Status(ctx context.Context) views.ModelStatus
}

type TrainingServiceImpl struct {
	logger *zap.Logger
	cnf    *configs.Config
	engine *graphrag.Engine

	mu          sync.Mutex
	trained     bool
	lastTrained *time.Time
	lastMetrics *gnn.Metrics
}

func NewTrainingService(logger *zap.Logger, cnf *configs.Config, engine *graphrag.Engine, loadedFromDisk bool) TrainingService {
	return &TrainingServiceImpl{
		logger:  logger,
		cnf:     cnf,
		engine:  engine,
		trained: loadedFromDisk,
	}
}

func (t *TrainingServiceImpl) Train(ctx context.Context, traceID string, epochs int) (views.TrainResponse, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if epochs < 1 {
		epochs = t.cnf.TrainEpochs
	}

	graphs, err := t.engine.TrainingGraphs(ctx, t.cnf.TrainLimit)
	if err != nil {
		return views.TrainResponse{}, pkg.HandleGraphError(traceID, t.logger, err)
	}
	if len(graphs) == 0 {
		return views.TrainResponse{}, pkg.NewAppError(pkg.ErrNoTrainingData, "no labeled transactions to train on", pkg.ErrNoLabeledData)
	}

	model, err := gnn.New(gnn.Config{
		InputDim:  t.cnf.InputDim,
		HiddenDim: t.cnf.HiddenDim,
		NumLayers: t.cnf.NumLayers,
		Dropout:   t.cnf.Dropout,
	}, time.Now().UnixNano())
	if err != nil {
		return views.TrainResponse{}, pkg.NewAppError(pkg.ErrServerCode, "failed to build model", err)
	}

	result, err := model.Train(t.logger, graphs, gnn.TrainConfig{
		Epochs:       epochs,
		LearningRate: t.cnf.LearningRate,
	})
	if err != nil {
		return views.TrainResponse{}, pkg.NewAppError(pkg.ErrServerCode, "training failed", err)
	}

	metrics, err := model.Evaluate(graphs)
	if err != nil {
		return views.TrainResponse{}, pkg.NewAppError(pkg.ErrServerCode, "evaluation failed", err)
	}

	if err := model.Save(t.cnf.ModelPath); err != nil {
		// The in-memory model is still usable; persistence catches up next run.
		t.logger.Error("failed to persist model", zap.String(pkg.TraceId, traceID), zap.Error(err))
	}

	t.engine.SwapModel(model)
	now := time.Now()
	t.trained = true
	t.lastTrained = &now
	t.lastMetrics = &metrics

	t.logger.Info("model trained and swapped",
		zap.String(pkg.TraceId, traceID),
		zap.Int("epochs", result.Epochs),
		zap.Int("samples", result.Samples),
		zap.Float64("loss", result.FinalLoss),
		zap.Float64("accuracy", metrics.Accuracy),
		zap.Float64("auc", metrics.AUC))

	return views.TrainResponse{
		Epochs:    result.Epochs,
		Samples:   result.Samples,
		FinalLoss: result.FinalLoss,
		Accuracy:  metrics.Accuracy,
		AUC:       metrics.AUC,
	}, nil
}

func (t *TrainingServiceImpl) Status(ctx context.Context) views.ModelStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	// A model loaded from disk has no cached metrics; evaluate it over the
	// labeled sample so a restart does not blank out accuracy/AUC.
	if t.trained && t.lastMetrics == nil {
		t.evaluateLocked(ctx)
	}

	status := views.ModelStatus{
		Trained:     t.trained,
		ModelPath:   t.cnf.ModelPath,
		InputDim:    t.cnf.InputDim,
		HiddenDim:   t.cnf.HiddenDim,
		NumLayers:   t.cnf.NumLayers,
		LastTrained: t.lastTrained,
	}
	if t.lastMetrics != nil {
		status.Accuracy = &t.lastMetrics.Accuracy
		status.AUC = &t.lastMetrics.AUC
	}
	return status
}

func (t *TrainingServiceImpl) evaluateLocked(ctx context.Context) {
	graphs, err := t.engine.TrainingGraphs(ctx, t.cnf.TrainLimit)
	if err != nil {
		t.logger.Warn("status evaluation skipped, retrieval failed", zap.Error(err))
		return
	}
	if len(graphs) == 0 {
		return
	}
	metrics, err := t.engine.Model().Evaluate(graphs)
	if err != nil {
		t.logger.Warn("status evaluation failed", zap.Error(err))
		return
	}
	t.lastMetrics = &metrics
}
