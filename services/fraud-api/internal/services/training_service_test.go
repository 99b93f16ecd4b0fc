package services

import (
	"context"
	"testing"

	"github.com/fraudsight/fraudsight/pkg/gnn"
	"github.com/fraudsight/fraudsight/pkg/graph"
	"github.com/fraudsight/fraudsight/pkg/graphrag"
	"github.com/fraudsight/fraudsight/services/fraud-api/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type labeledSource struct {
	labeled   []graph.LabeledTransaction
	subgraphs map[string]graph.Subgraph
}

func (s *labeledSource) Subgraph(_ context.Context, txID string, _ int) (graph.Subgraph, error) {
	return s.subgraphs[txID], nil
}

func (s *labeledSource) ExplanationContext(context.Context, string) (map[string]any, error) {
	return map[string]any{}, nil
}

func (s *labeledSource) MergeTransaction(context.Context, graph.TransactionNode, []graph.Relationship) error {
	return nil
}

func (s *labeledSource) SetFraudProbability(context.Context, string, float64) error {
	return nil
}

func (s *labeledSource) LabeledTransactions(context.Context, int) ([]graph.LabeledTransaction, error) {
	return s.labeled, nil
}

func statusFixture(t *testing.T, source graphrag.SubgraphSource) *TrainingServiceImpl {
	t.Helper()
	model, err := gnn.New(gnn.Config{InputDim: 3, HiddenDim: 8, NumLayers: 2}, 42)
	require.NoError(t, err)

	engine := graphrag.NewEngine(zap.NewNop(), source, model, nil, graphrag.Config{Depth: 2, AlertThreshold: 0.5})
	cnf := &configs.Config{InputDim: 3, HiddenDim: 8, NumLayers: 2, TrainLimit: 10, ModelPath: "model.json"}
	return &TrainingServiceImpl{logger: zap.NewNop(), cnf: cnf, engine: engine, trained: true}
}

func TestStatusEvaluatesPersistedModel(t *testing.T) {
	source := &labeledSource{
		labeled: []graph.LabeledTransaction{{ID: "tx-1", Label: 1}, {ID: "tx-2", Label: 0}},
		subgraphs: map[string]graph.Subgraph{
			"tx-1": {Nodes: []graph.Node{{ID: "tx-1", Features: []float64{900, 0.9, 0.8}}}},
			"tx-2": {Nodes: []graph.Node{{ID: "tx-2", Features: []float64{20, 0.1, 0.2}}}},
		},
	}
	svc := statusFixture(t, source)

	// No in-process Train has run; metrics come from on-demand evaluation.
	status := svc.Status(context.Background())

	assert.True(t, status.Trained)
	require.NotNil(t, status.Accuracy)
	require.NotNil(t, status.AUC)
	assert.GreaterOrEqual(t, *status.AUC, 0.0)
	assert.LessOrEqual(t, *status.AUC, 1.0)
}

func TestStatusCachesEvaluation(t *testing.T) {
	source := &labeledSource{
		labeled: []graph.LabeledTransaction{{ID: "tx-1", Label: 1}},
		subgraphs: map[string]graph.Subgraph{
			"tx-1": {Nodes: []graph.Node{{ID: "tx-1", Features: []float64{900, 0.9, 0.8}}}},
		},
	}
	svc := statusFixture(t, source)

	first := svc.Status(context.Background())
	require.NotNil(t, first.Accuracy)

	// A later failure in retrieval must not blank out cached metrics.
	source.labeled = nil
	second := svc.Status(context.Background())
	require.NotNil(t, second.Accuracy)
	assert.Equal(t, *first.Accuracy, *second.Accuracy)
}

func TestStatusWithoutModelReportsUntrained(t *testing.T) {
	source := &labeledSource{}
	svc := statusFixture(t, source)
	svc.trained = false

	status := svc.Status(context.Background())
	assert.False(t, status.Trained)
	assert.Nil(t, status.Accuracy)
	assert.Nil(t, status.AUC)
}
