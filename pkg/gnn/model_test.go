package gnn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{InputDim: 3, HiddenDim: 8, NumLayers: 2, Dropout: 0}
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{InputDim: 0, HiddenDim: 8, NumLayers: 2}, 1)
	assert.ErrorIs(t, err, ErrBadConfig)

	_, err = New(Config{InputDim: 3, HiddenDim: 8, NumLayers: 2, Dropout: 1}, 1)
	assert.ErrorIs(t, err, ErrBadConfig)
}

func TestPredictReturnsProbability(t *testing.T) {
	m, err := New(testConfig(), 42)
	require.NoError(t, err)

	g := Graph{
		X:     [][]float64{{0.5, 0.1, 0.9}, {0.2, 0.8, 0.3}},
		Edges: [][2]int{{0, 1}},
	}
	prob, flagged, err := m.Predict(g, 0.5)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, prob, 0.0)
	assert.LessOrEqual(t, prob, 1.0)
	assert.Equal(t, prob > 0.5, flagged)
}

func TestPredictEmptyGraph(t *testing.T) {
	m, err := New(testConfig(), 42)
	require.NoError(t, err)

	_, _, err = m.Predict(Graph{}, 0.5)
	assert.ErrorIs(t, err, ErrEmptyGraph)
}

func TestPredictSingleIsolatedNode(t *testing.T) {
	m, err := New(testConfig(), 42)
	require.NoError(t, err)

	prob, _, err := m.Predict(Graph{X: [][]float64{{1, 2, 3}}}, 0.5)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(prob))
}

func TestPredictFitsFeatureWidth(t *testing.T) {
	m, err := New(testConfig(), 42)
	require.NoError(t, err)

	// One row too narrow, one too wide; both must be fitted to InputDim.
	g := Graph{
		X:     [][]float64{{0.5}, {0.2, 0.8, 0.3, 0.7, 0.1}},
		Edges: [][2]int{{0, 1}},
	}
	_, _, err = m.Predict(g, 0.5)
	assert.NoError(t, err)
}

func TestPredictIgnoresOutOfRangeEdges(t *testing.T) {
	m, err := New(testConfig(), 42)
	require.NoError(t, err)

	g := Graph{
		X:     [][]float64{{1, 0, 0}},
		Edges: [][2]int{{0, 5}, {-1, 0}},
	}
	_, _, err = m.Predict(g, 0.5)
	assert.NoError(t, err)
}

func TestNormalizedAdjacency(t *testing.T) {
	ahat := normalizedAdjacency(2, [][2]int{{0, 1}})

	// With one edge and self loops every degree is 2, so every entry is 1/2.
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			assert.InDelta(t, 0.5, ahat[i][j], 1e-9)
		}
	}
}

func TestFitDimension(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 0}, FitDimension([]float64{1, 2}, 3))
	assert.Equal(t, []float64{1, 2}, FitDimension([]float64{1, 2, 3}, 2))
	assert.Equal(t, []float64{0, 0}, FitDimension(nil, 2))
}
