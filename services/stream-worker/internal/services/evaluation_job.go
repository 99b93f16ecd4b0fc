package services

import (
	"context"
	"errors"

	"github.com/fraudsight/fraudsight/pkg/gnn"
	"github.com/fraudsight/fraudsight/pkg/graphrag"
	"github.com/fraudsight/fraudsight/services/stream-worker/configs"
	"github.com/fraudsight/fraudsight/services/stream-worker/internal/observability"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// EvaluationJob periodically scores the labeled set and exports accuracy and
// AUC as gauges, so model drift shows up on dashboards between retrains.
type EvaluationJob struct {
	logger *zap.Logger
	cnf    *configs.Config
	engine *graphrag.Engine
	cron   *cron.Cron
}

func NewEvaluationJob(logger *zap.Logger, cnf *configs.Config, engine *graphrag.Engine) *EvaluationJob {
	return &EvaluationJob{
		logger: logger,
		cnf:    cnf,
		engine: engine,
		cron:   cron.New(),
	}
}

// Start schedules the job and returns a stop function.
func (j *EvaluationJob) Start(ctx context.Context) (func(), error) {
	_, err := j.cron.AddFunc(j.cnf.EvalSchedule, func() { j.Run(ctx) })
	if err != nil {
		return nil, err
	}
	j.cron.Start()
	j.logger.Info("evaluation job scheduled", zap.String("schedule", j.cnf.EvalSchedule))

	return func() {
		stopCtx := j.cron.Stop()
		<-stopCtx.Done()
		j.logger.Info("evaluation job stopped")
	}, nil
}

// Run performs a single evaluation pass.
func (j *EvaluationJob) Run(ctx context.Context) {
	graphs, err := j.engine.TrainingGraphs(ctx, j.cnf.EvalLimit)
	if err != nil {
		j.logger.Error("evaluation retrieval failed", zap.Error(err))
		return
	}

	metrics, err := j.engine.Model().Evaluate(graphs)
	if err != nil {
		if errors.Is(err, gnn.ErrNoEvaluable) {
			j.logger.Info("no labeled transactions yet, skipping evaluation")
			return
		}
		j.logger.Error("evaluation failed", zap.Error(err))
		return
	}

	observability.ModelAccuracy.Set(metrics.Accuracy)
	observability.ModelAUC.Set(metrics.AUC)
	j.logger.Info("model evaluated",
		zap.Int("samples", metrics.Samples),
		zap.Float64("accuracy", metrics.Accuracy),
		zap.Float64("auc", metrics.AUC))
}
