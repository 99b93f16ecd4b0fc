package gnn

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	m, err := New(testConfig(), 11)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "model.json")
	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.Cfg, loaded.Cfg)
	assert.Equal(t, m.Convs, loaded.Convs)
	assert.Equal(t, m.Hidden, loaded.Hidden)
	assert.Equal(t, m.Out, loaded.Out)

	// Loaded weights must produce identical inference output.
	g := Graph{X: [][]float64{{0.3, 0.6, 0.9}}}
	p1, _, err := m.Predict(g, 0.5)
	require.NoError(t, err)
	p2, _, err := loaded.Predict(g, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, p1, p2, 1e-12)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadRejectsIncompleteModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"config":{}}`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
