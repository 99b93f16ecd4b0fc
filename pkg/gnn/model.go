package gnn

import (
	"errors"
	"math"
	"math/rand"
)

// Graph is a model input: node feature matrix plus undirected edge list.
// Edges hold node indices into X.
type Graph struct {
	X        [][]float64
	Edges    [][2]int
	Label    float64
	HasLabel bool
}

// Config mirrors the fraud GCN hyperparameters.
type Config struct {
	InputDim  int
	HiddenDim int
	NumLayers int
	Dropout   float64
}

// Dense is a fully connected layer. W is [in][out].
type Dense struct {
	W [][]float64 `json:"w"`
	B []float64   `json:"b"`
}

// Model is a graph convolutional network: NumLayers GCN layers with ReLU and
// dropout, global mean pooling, then a two-layer MLP head with sigmoid output.
type Model struct {
	Cfg    Config  `json:"config"`
	Convs  []Dense `json:"convs"`
	Hidden Dense   `json:"hidden"`
	Out    Dense   `json:"out"`

	rng *rand.Rand
}

var (
	ErrEmptyGraph  = errors.New("graph has no nodes")
	ErrBadConfig   = errors.New("invalid model configuration")
	ErrNoTraining  = errors.New("no labeled graphs to train on")
	ErrNoEvaluable = errors.New("no labeled graphs to evaluate on")
)

// New builds a model with Glorot-initialized weights.
func New(cfg Config, seed int64) (*Model, error) {
	if cfg.InputDim < 1 || cfg.HiddenDim < 2 || cfg.NumLayers < 1 {
		return nil, ErrBadConfig
	}
	if cfg.Dropout < 0 || cfg.Dropout >= 1 {
		return nil, ErrBadConfig
	}
	rng := rand.New(rand.NewSource(seed))

	m := &Model{Cfg: cfg, rng: rng}
	in := cfg.InputDim
	for i := 0; i < cfg.NumLayers; i++ {
		m.Convs = append(m.Convs, newDense(rng, in, cfg.HiddenDim))
		in = cfg.HiddenDim
	}
	half := cfg.HiddenDim / 2
	m.Hidden = newDense(rng, cfg.HiddenDim, half)
	m.Out = newDense(rng, half, 1)
	return m, nil
}

func newDense(rng *rand.Rand, in, out int) Dense {
	limit := math.Sqrt(6.0 / float64(in+out))
	w := make([][]float64, in)
	for i := range w {
		w[i] = make([]float64, out)
		for j := range w[i] {
			w[i][j] = (rng.Float64()*2 - 1) * limit
		}
	}
	return Dense{W: w, B: make([]float64, out)}
}

// FitDimension pads with zeros or truncates a feature vector to dim.
func FitDimension(x []float64, dim int) []float64 {
	out := make([]float64, dim)
	copy(out, x)
	return out
}

// Predict scores a graph and applies the decision threshold.
func (m *Model) Predict(g Graph, threshold float64) (float64, bool, error) {
	state, err := m.forward(g, false)
	if err != nil {
		return 0, false, err
	}
	return state.prob, state.prob > threshold, nil
}

// forwardState caches intermediate values for backpropagation.
type forwardState struct {
	ahat [][]float64

	acts     [][][]float64 // H per layer; acts[0] is the (fitted) input
	convM    [][][]float64 // M = Ahat * H, per conv layer
	convPre  [][][]float64 // Z = M*W + b, per conv layer
	convMask [][][]float64 // inverted dropout masks (training only)

	pooled []float64
	h1Pre  []float64
	h1     []float64
	h1Mask []float64

	outPre float64
	prob   float64
}

func (m *Model) forward(g Graph, training bool) (*forwardState, error) {
	n := len(g.X)
	if n == 0 {
		return nil, ErrEmptyGraph
	}

	state := &forwardState{ahat: normalizedAdjacency(n, g.Edges)}

	// Fit every node's feature vector to the model input dimension.
	h := make([][]float64, n)
	for i, row := range g.X {
		h[i] = FitDimension(row, m.Cfg.InputDim)
	}
	state.acts = append(state.acts, h)

	for _, conv := range m.Convs {
		msg := matMul(state.ahat, h)        // n x in
		pre := affine(msg, conv.W, conv.B)  // n x out
		act := applyMat(pre, relu)
		var mask [][]float64
		if training && m.Cfg.Dropout > 0 {
			mask = m.dropoutMaskMat(len(act), len(act[0]))
			hadamardMat(act, mask)
		}
		state.convM = append(state.convM, msg)
		state.convPre = append(state.convPre, pre)
		state.convMask = append(state.convMask, mask)
		state.acts = append(state.acts, act)
		h = act
	}

	state.pooled = meanPool(h)

	state.h1Pre = affineVec(state.pooled, m.Hidden.W, m.Hidden.B)
	state.h1 = applyVec(state.h1Pre, relu)
	if training && m.Cfg.Dropout > 0 {
		state.h1Mask = m.dropoutMaskVec(len(state.h1))
		hadamardVec(state.h1, state.h1Mask)
	}

	state.outPre = affineVec(state.h1, m.Out.W, m.Out.B)[0]
	state.prob = sigmoid(state.outPre)
	return state, nil
}

// normalizedAdjacency builds the symmetric-normalized adjacency with self
// loops: Ahat = D^-1/2 (A + I) D^-1/2. Edges are treated as undirected.
func normalizedAdjacency(n int, edges [][2]int) [][]float64 {
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n)
		a[i][i] = 1 // self loop keeps isolated nodes defined
	}
	for _, e := range edges {
		if e[0] < 0 || e[0] >= n || e[1] < 0 || e[1] >= n {
			continue
		}
		a[e[0]][e[1]] = 1
		a[e[1]][e[0]] = 1
	}

	deg := make([]float64, n)
	for i := range a {
		for j := range a[i] {
			deg[i] += a[i][j]
		}
	}
	for i := range a {
		for j := range a[i] {
			if a[i][j] != 0 {
				a[i][j] /= math.Sqrt(deg[i] * deg[j])
			}
		}
	}
	return a
}

func (m *Model) dropoutMaskMat(rows, cols int) [][]float64 {
	mask := make([][]float64, rows)
	for i := range mask {
		mask[i] = make([]float64, cols)
		for j := range mask[i] {
			mask[i][j] = m.dropoutValue()
		}
	}
	return mask
}

func (m *Model) dropoutMaskVec(n int) []float64 {
	mask := make([]float64, n)
	for i := range mask {
		mask[i] = m.dropoutValue()
	}
	return mask
}

// dropoutValue returns an inverted-dropout factor: 0 with probability p,
// 1/(1-p) otherwise, so expected activations stay unchanged.
func (m *Model) dropoutValue() float64 {
	if m.rand() < m.Cfg.Dropout {
		return 0
	}
	return 1 / (1 - m.Cfg.Dropout)
}

func (m *Model) rand() float64 {
	if m.rng == nil {
		return rand.Float64()
	}
	return m.rng.Float64()
}

// ---- small dense-matrix helpers ----

func matMul(a, b [][]float64) [][]float64 {
	rows, inner, cols := len(a), len(b), len(b[0])
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]float64, cols)
		for k := 0; k < inner; k++ {
			if a[i][k] == 0 {
				continue
			}
			for j := 0; j < cols; j++ {
				out[i][j] += a[i][k] * b[k][j]
			}
		}
	}
	return out
}

// affine computes X*W + b row-wise.
func affine(x, w [][]float64, b []float64) [][]float64 {
	out := make([][]float64, len(x))
	for i := range x {
		out[i] = affineVec(x[i], w, b)
	}
	return out
}

func affineVec(x []float64, w [][]float64, b []float64) []float64 {
	out := make([]float64, len(b))
	copy(out, b)
	for i, xi := range x {
		if xi == 0 {
			continue
		}
		for j := range w[i] {
			out[j] += xi * w[i][j]
		}
	}
	return out
}

func meanPool(h [][]float64) []float64 {
	out := make([]float64, len(h[0]))
	for _, row := range h {
		for j, v := range row {
			out[j] += v
		}
	}
	n := float64(len(h))
	for j := range out {
		out[j] /= n
	}
	return out
}

func relu(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

func reluGrad(pre float64) float64 {
	if pre > 0 {
		return 1
	}
	return 0
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}

func applyMat(x [][]float64, f func(float64) float64) [][]float64 {
	out := make([][]float64, len(x))
	for i := range x {
		out[i] = applyVec(x[i], f)
	}
	return out
}

func applyVec(x []float64, f func(float64) float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = f(v)
	}
	return out
}

func hadamardMat(x, mask [][]float64) {
	for i := range x {
		for j := range x[i] {
			x[i][j] *= mask[i][j]
		}
	}
}

func hadamardVec(x, mask []float64) {
	for i := range x {
		x[i] *= mask[i]
	}
}
