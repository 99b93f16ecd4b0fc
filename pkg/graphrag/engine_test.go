package graphrag

import (
	"context"
	"testing"

	"github.com/fraudsight/fraudsight/pkg/gnn"
	"github.com/fraudsight/fraudsight/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	subgraphs map[string]graph.Subgraph
	labeled   []graph.LabeledTransaction
	written   map[string]float64
	merged    []graph.TransactionNode
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		subgraphs: map[string]graph.Subgraph{},
		written:   map[string]float64{},
	}
}

func (f *fakeSource) Subgraph(_ context.Context, txID string, _ int) (graph.Subgraph, error) {
	sub, ok := f.subgraphs[txID]
	if !ok {
		return graph.Subgraph{}, graph.ErrNotFound
	}
	return sub, nil
}

func (f *fakeSource) ExplanationContext(_ context.Context, txID string) (map[string]any, error) {
	return map[string]any{"transaction_id": txID}, nil
}

func (f *fakeSource) MergeTransaction(_ context.Context, t graph.TransactionNode, _ []graph.Relationship) error {
	f.merged = append(f.merged, t)
	return nil
}

func (f *fakeSource) SetFraudProbability(_ context.Context, txID string, probability float64) error {
	f.written[txID] = probability
	return nil
}

func (f *fakeSource) LabeledTransactions(_ context.Context, _ int) ([]graph.LabeledTransaction, error) {
	return f.labeled, nil
}

func testEngine(t *testing.T, source SubgraphSource) *Engine {
	t.Helper()
	model, err := gnn.New(gnn.Config{InputDim: 3, HiddenDim: 8, NumLayers: 2}, 42)
	require.NoError(t, err)
	return NewEngine(zap.NewNop(), source, model, nil, Config{Depth: 2, AlertThreshold: 0.5})
}

func twoNodeSubgraph(txID string) graph.Subgraph {
	return graph.Subgraph{
		Nodes: []graph.Node{
			{ID: txID, Features: []float64{100, 0.5, 0.2}},
			{ID: "related", Features: []float64{50, 0.1}},
		},
		Edges: []graph.Edge{{SourceID: txID, TargetID: "related", Type: "CONNECTED_TO"}},
	}
}

func TestPredictFraudScoresAndWritesBack(t *testing.T) {
	source := newFakeSource()
	source.subgraphs["tx-1"] = twoNodeSubgraph("tx-1")

	engine := testEngine(t, source)
	pred, err := engine.PredictFraud(context.Background(), "tx-1")
	require.NoError(t, err)

	assert.Equal(t, "tx-1", pred.TransactionID)
	assert.GreaterOrEqual(t, pred.FraudProbability, 0.0)
	assert.LessOrEqual(t, pred.FraudProbability, 1.0)
	assert.Equal(t, 2, pred.NodesRetrieved)
	assert.Equal(t, "tx-1", pred.Context["transaction_id"])

	// The score must be written back onto the graph node.
	assert.InDelta(t, pred.FraudProbability, source.written["tx-1"], 1e-12)
}

func TestPredictFraudUnknownTransaction(t *testing.T) {
	engine := testEngine(t, newFakeSource())

	_, err := engine.PredictFraud(context.Background(), "missing")
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestUpdateGraphMergesNode(t *testing.T) {
	source := newFakeSource()
	engine := testEngine(t, source)

	node := graph.TransactionNode{ID: "tx-9", UserID: "u-1", Amount: 12.5}
	require.NoError(t, engine.UpdateGraph(context.Background(), node, nil))
	require.Len(t, source.merged, 1)
	assert.Equal(t, "tx-9", source.merged[0].ID)
}

func TestTrainingGraphsCarryLabels(t *testing.T) {
	source := newFakeSource()
	source.subgraphs["tx-1"] = twoNodeSubgraph("tx-1")
	source.subgraphs["tx-2"] = twoNodeSubgraph("tx-2")
	source.labeled = []graph.LabeledTransaction{
		{ID: "tx-1", Label: 1},
		{ID: "tx-2", Label: 0},
		{ID: "tx-gone", Label: 1}, // retrieval fails, must be skipped
	}

	engine := testEngine(t, source)
	graphs, err := engine.TrainingGraphs(context.Background(), 100)
	require.NoError(t, err)

	require.Len(t, graphs, 2)
	assert.Equal(t, 1.0, graphs[0].Label)
	assert.True(t, graphs[0].HasLabel)
	assert.Equal(t, 0.0, graphs[1].Label)
}

func TestToModelGraphMapsEdgesByIndex(t *testing.T) {
	source := newFakeSource()
	engine := testEngine(t, source)

	sub := graph.Subgraph{
		Nodes: []graph.Node{
			{ID: "a", Features: []float64{1}},
			{ID: "b", Features: []float64{2}},
			{ID: "c", Features: []float64{3}},
		},
		Edges: []graph.Edge{
			{SourceID: "a", TargetID: "c"},
			{SourceID: "c", TargetID: "ghost"}, // dangling, dropped
		},
	}
	g := engine.toModelGraph(sub)

	require.Len(t, g.X, 3)
	assert.Len(t, g.X[0], 3) // fitted to InputDim
	require.Len(t, g.Edges, 1)
	assert.Equal(t, [2]int{0, 2}, g.Edges[0])
}
