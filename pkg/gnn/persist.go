package gnn

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

// Save writes the model weights as JSON, using a temp file plus rename so a
// crash mid-write never leaves a truncated model on disk.
func (m *Model) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace model file: %w", err)
	}
	return nil
}

// Load reads model weights from disk.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode model file: %w", err)
	}
	if m.Cfg.InputDim < 1 || len(m.Convs) == 0 {
		return nil, fmt.Errorf("model file %s is incomplete", path)
	}
	m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	return &m, nil
}
