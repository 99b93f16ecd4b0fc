package gnn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separableGraphs builds two clearly distinguishable classes: fraudulent
// graphs with strongly positive features, legitimate ones with negative.
func separableGraphs(n int) []Graph {
	var graphs []Graph
	for i := 0; i < n; i++ {
		graphs = append(graphs, Graph{
			X:        [][]float64{{1, 1, 1}, {1, 1, 1}},
			Edges:    [][2]int{{0, 1}},
			Label:    1,
			HasLabel: true,
		})
		graphs = append(graphs, Graph{
			X:        [][]float64{{-1, -1, -1}, {-1, -1, -1}},
			Edges:    [][2]int{{0, 1}},
			Label:    0,
			HasLabel: true,
		})
	}
	return graphs
}

func TestTrainSeparatesClasses(t *testing.T) {
	m, err := New(testConfig(), 7)
	require.NoError(t, err)

	graphs := separableGraphs(10)
	result, err := m.Train(nil, graphs, TrainConfig{Epochs: 200, LearningRate: 0.05})
	require.NoError(t, err)

	assert.Equal(t, len(graphs), result.Samples)
	assert.Less(t, result.FinalLoss, 0.5, "loss should drop well below ln(2)")

	metrics, err := m.Evaluate(graphs)
	require.NoError(t, err)
	assert.Greater(t, metrics.AUC, 0.9)
	assert.Greater(t, metrics.Accuracy, 0.9)
}

func TestTrainNoLabeledGraphs(t *testing.T) {
	m, err := New(testConfig(), 7)
	require.NoError(t, err)

	unlabeled := []Graph{{X: [][]float64{{1, 2, 3}}}}
	_, err = m.Train(nil, unlabeled, TrainConfig{Epochs: 5, LearningRate: 0.01})
	assert.ErrorIs(t, err, ErrNoTraining)
}

func TestTrainSkipsEmptyGraphs(t *testing.T) {
	m, err := New(testConfig(), 7)
	require.NoError(t, err)

	graphs := append(separableGraphs(2), Graph{Label: 1, HasLabel: true}) // empty X
	result, err := m.Train(nil, graphs, TrainConfig{Epochs: 2, LearningRate: 0.01})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Samples)
}

func TestEvaluateNoLabeled(t *testing.T) {
	m, err := New(testConfig(), 7)
	require.NoError(t, err)

	_, err = m.Evaluate([]Graph{{X: [][]float64{{1, 2, 3}}}})
	assert.ErrorIs(t, err, ErrNoEvaluable)
}

func TestRankAUC(t *testing.T) {
	// Perfectly ranked scores.
	auc := rankAUC([]float64{0.1, 0.2, 0.8, 0.9}, []float64{0, 0, 1, 1})
	assert.InDelta(t, 1.0, auc, 1e-9)

	// Inverted ranking.
	auc = rankAUC([]float64{0.9, 0.8, 0.2, 0.1}, []float64{0, 0, 1, 1})
	assert.InDelta(t, 0.0, auc, 1e-9)

	// Single class falls back to 0.5.
	auc = rankAUC([]float64{0.4, 0.6}, []float64{1, 1})
	assert.InDelta(t, 0.5, auc, 1e-9)

	// All-tied scores are uninformative.
	auc = rankAUC([]float64{0.5, 0.5, 0.5, 0.5}, []float64{0, 1, 0, 1})
	assert.InDelta(t, 0.5, auc, 1e-9)
}
