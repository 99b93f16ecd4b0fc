package gnn

import (
	"math"

	"go.uber.org/zap"
)

// TrainConfig controls the SGD loop.
type TrainConfig struct {
	Epochs       int
	LearningRate float64
	LogEvery     int
}

// TrainResult reports the outcome of a training run.
type TrainResult struct {
	Epochs    int     `json:"epochs"`
	Samples   int     `json:"samples"`
	FinalLoss float64 `json:"final_loss"`
}

// Train runs per-graph stochastic gradient descent with binary cross-entropy
// loss over the labeled subset of graphs.
func (m *Model) Train(logger *zap.Logger, graphs []Graph, cfg TrainConfig) (TrainResult, error) {
	labeled := make([]Graph, 0, len(graphs))
	for _, g := range graphs {
		if g.HasLabel && len(g.X) > 0 {
			labeled = append(labeled, g)
		}
	}
	if len(labeled) == 0 {
		return TrainResult{}, ErrNoTraining
	}
	if cfg.Epochs < 1 {
		cfg.Epochs = 1
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.01
	}
	if cfg.LogEvery < 1 {
		cfg.LogEvery = 10
	}

	var epochLoss float64
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		// Shuffle so the update order differs between epochs.
		order := m.permutation(len(labeled))

		epochLoss = 0
		for _, idx := range order {
			loss, err := m.step(labeled[idx], cfg.LearningRate)
			if err != nil {
				return TrainResult{}, err
			}
			epochLoss += loss
		}
		epochLoss /= float64(len(labeled))

		if logger != nil && (epoch%cfg.LogEvery == 0 || epoch == cfg.Epochs) {
			logger.Info("training epoch complete",
				zap.Int("epoch", epoch),
				zap.Int("samples", len(labeled)),
				zap.Float64("loss", epochLoss))
		}
	}

	return TrainResult{Epochs: cfg.Epochs, Samples: len(labeled), FinalLoss: epochLoss}, nil
}

// step runs forward and backward passes for one graph and applies the update.
func (m *Model) step(g Graph, lr float64) (float64, error) {
	state, err := m.forward(g, true)
	if err != nil {
		return 0, err
	}

	loss := bceLoss(state.prob, g.Label)

	// d(loss)/d(outPre) for sigmoid + BCE collapses to p - y.
	delta := state.prob - g.Label

	// Output layer.
	half := len(state.h1)
	gradOutW := make([]float64, half)
	dh1 := make([]float64, half)
	for j := 0; j < half; j++ {
		gradOutW[j] = state.h1[j] * delta
		dh1[j] = m.Out.W[j][0] * delta
	}

	// MLP hidden layer, back through dropout and ReLU.
	dh1pre := make([]float64, half)
	for j := 0; j < half; j++ {
		grad := dh1[j]
		if state.h1Mask != nil {
			grad *= state.h1Mask[j]
		}
		dh1pre[j] = grad * reluGrad(state.h1Pre[j])
	}
	hiddenDim := len(state.pooled)
	gradHiddenW := make([][]float64, hiddenDim)
	dpooled := make([]float64, hiddenDim)
	for i := 0; i < hiddenDim; i++ {
		gradHiddenW[i] = make([]float64, half)
		for j := 0; j < half; j++ {
			gradHiddenW[i][j] = state.pooled[i] * dh1pre[j]
			dpooled[i] += m.Hidden.W[i][j] * dh1pre[j]
		}
	}

	// Mean pooling distributes the gradient evenly across nodes.
	n := len(g.X)
	dH := make([][]float64, n)
	for r := 0; r < n; r++ {
		dH[r] = make([]float64, hiddenDim)
		for i := 0; i < hiddenDim; i++ {
			dH[r][i] = dpooled[i] / float64(n)
		}
	}

	// Conv layers, last to first. Ahat is symmetric, so propagating through
	// the aggregation step reuses it directly.
	type convGrad struct {
		w [][]float64
		b []float64
	}
	grads := make([]convGrad, len(m.Convs))
	for l := len(m.Convs) - 1; l >= 0; l-- {
		pre := state.convPre[l]
		mask := state.convMask[l]
		out := len(pre[0])

		dZ := make([][]float64, n)
		for r := 0; r < n; r++ {
			dZ[r] = make([]float64, out)
			for j := 0; j < out; j++ {
				grad := dH[r][j]
				if mask != nil {
					grad *= mask[r][j]
				}
				dZ[r][j] = grad * reluGrad(pre[r][j])
			}
		}

		msg := state.convM[l]
		in := len(msg[0])
		gw := make([][]float64, in)
		for i := range gw {
			gw[i] = make([]float64, out)
		}
		gb := make([]float64, out)
		for r := 0; r < n; r++ {
			for j := 0; j < out; j++ {
				gb[j] += dZ[r][j]
				for i := 0; i < in; i++ {
					gw[i][j] += msg[r][i] * dZ[r][j]
				}
			}
		}
		grads[l] = convGrad{w: gw, b: gb}

		if l > 0 {
			// dH_prev = Ahat * (dZ * W^T)
			dm := make([][]float64, n)
			for r := 0; r < n; r++ {
				dm[r] = make([]float64, in)
				for i := 0; i < in; i++ {
					for j := 0; j < out; j++ {
						dm[r][i] += dZ[r][j] * m.Convs[l].W[i][j]
					}
				}
			}
			dH = matMul(state.ahat, dm)
		}
	}

	// Apply updates only after every gradient is computed against the
	// pre-update weights.
	for l := range m.Convs {
		for i := range m.Convs[l].W {
			for j := range m.Convs[l].W[i] {
				m.Convs[l].W[i][j] -= lr * grads[l].w[i][j]
			}
		}
		for j := range m.Convs[l].B {
			m.Convs[l].B[j] -= lr * grads[l].b[j]
		}
	}
	for i := range m.Hidden.W {
		for j := range m.Hidden.W[i] {
			m.Hidden.W[i][j] -= lr * gradHiddenW[i][j]
		}
	}
	for j := range m.Hidden.B {
		m.Hidden.B[j] -= lr * dh1pre[j]
	}
	for j := range m.Out.W {
		m.Out.W[j][0] -= lr * gradOutW[j]
	}
	m.Out.B[0] -= lr * delta

	return loss, nil
}

func bceLoss(p, y float64) float64 {
	const eps = 1e-12
	p = math.Min(math.Max(p, eps), 1-eps)
	return -(y*math.Log(p) + (1-y)*math.Log(1-p))
}

func (m *Model) permutation(n int) []int {
	if m.rng != nil {
		return m.rng.Perm(n)
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
