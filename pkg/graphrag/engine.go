// Package graphrag couples graph retrieval with the fraud model: it pulls a
// transaction's neighborhood out of Neo4j, converts it into a model input, and
// scores it together with the retrieved context.
package graphrag

import (
	"context"
	"fmt"
	"time"

	"github.com/fraudsight/fraudsight/pkg/gnn"
	"github.com/fraudsight/fraudsight/pkg/graph"
	"go.uber.org/zap"
)

// SubgraphSource is the slice of the graph store the engine needs.
type SubgraphSource interface {
	Subgraph(ctx context.Context, txID string, depth int) (graph.Subgraph, error)
	ExplanationContext(ctx context.Context, txID string) (map[string]any, error)
	MergeTransaction(ctx context.Context, t graph.TransactionNode, rels []graph.Relationship) error
	SetFraudProbability(ctx context.Context, txID string, probability float64) error
	LabeledTransactions(ctx context.Context, limit int) ([]graph.LabeledTransaction, error)
}

type Config struct {
	Depth          int     // retrieval hop count
	AlertThreshold float64 // probability above which a score counts as fraud
}

// Engine is the retrieval-augmented scoring pipeline.
type Engine struct {
	logger   *zap.Logger
	source   SubgraphSource
	model    *gnn.Model
	narrator *Narrator // optional
	cnf      Config
}

func NewEngine(logger *zap.Logger, source SubgraphSource, model *gnn.Model, narrator *Narrator, cnf Config) *Engine {
	if cnf.Depth < 1 {
		cnf.Depth = 2
	}
	if cnf.AlertThreshold <= 0 {
		cnf.AlertThreshold = 0.5
	}
	return &Engine{logger: logger, source: source, model: model, narrator: narrator, cnf: cnf}
}

// SwapModel replaces the scoring model, typically after retraining.
func (e *Engine) SwapModel(m *gnn.Model) {
	e.model = m
}

func (e *Engine) Model() *gnn.Model {
	return e.model
}

// RetrieveContext fetches the transaction's neighborhood and shapes it into a
// model input plus a human-readable context document.
func (e *Engine) RetrieveContext(ctx context.Context, txID string) (gnn.Graph, map[string]any, error) {
	sub, err := e.source.Subgraph(ctx, txID, e.cnf.Depth)
	if err != nil {
		return gnn.Graph{}, nil, err
	}

	explain, err := e.source.ExplanationContext(ctx, txID)
	if err != nil {
		return gnn.Graph{}, nil, err
	}

	return e.toModelGraph(sub), explain, nil
}

// PredictFraud scores a transaction against its retrieved neighborhood and
// writes the probability back onto the graph node.
func (e *Engine) PredictFraud(ctx context.Context, txID string) (Prediction, error) {
	start := time.Now()

	modelGraph, explain, err := e.RetrieveContext(ctx, txID)
	if err != nil {
		return Prediction{}, err
	}

	prob, fraudulent, err := e.model.Predict(modelGraph, e.cnf.AlertThreshold)
	if err != nil {
		return Prediction{}, fmt.Errorf("model inference failed for %s: %w", txID, err)
	}

	if err := e.source.SetFraudProbability(ctx, txID, prob); err != nil {
		// The score is still valid; the graph just lags behind.
		e.logger.Warn("failed to write probability to graph",
			zap.String("transaction_id", txID), zap.Error(err))
	}

	pred := Prediction{
		TransactionID:    txID,
		FraudProbability: prob,
		IsFraudulent:     fraudulent,
		Context:          explain,
		NodesRetrieved:   len(modelGraph.X),
	}

	if e.narrator != nil {
		narrative, nErr := e.narrator.Explain(ctx, pred)
		if nErr != nil {
			e.logger.Warn("narrative generation failed", zap.String("transaction_id", txID), zap.Error(nErr))
		} else {
			pred.Narrative = narrative
		}
	}

	e.logger.Info("transaction scored",
		zap.String("transaction_id", txID),
		zap.Float64("fraud_probability", prob),
		zap.Bool("is_fraudulent", fraudulent),
		zap.Int("nodes_retrieved", pred.NodesRetrieved),
		zap.Duration("took", time.Since(start)))
	return pred, nil
}

// UpdateGraph upserts a transaction node and its relationships.
func (e *Engine) UpdateGraph(ctx context.Context, t graph.TransactionNode, rels []graph.Relationship) error {
	return e.source.MergeTransaction(ctx, t, rels)
}

// TrainingGraphs builds one neighborhood graph per labeled transaction.
func (e *Engine) TrainingGraphs(ctx context.Context, limit int) ([]gnn.Graph, error) {
	labeled, err := e.source.LabeledTransactions(ctx, limit)
	if err != nil {
		return nil, err
	}

	graphs := make([]gnn.Graph, 0, len(labeled))
	for _, lt := range labeled {
		sub, err := e.source.Subgraph(ctx, lt.ID, e.cnf.Depth)
		if err != nil {
			e.logger.Warn("skipping labeled transaction, retrieval failed",
				zap.String("transaction_id", lt.ID), zap.Error(err))
			continue
		}
		g := e.toModelGraph(sub)
		if len(g.X) == 0 {
			continue
		}
		g.Label = float64(lt.Label)
		g.HasLabel = true
		graphs = append(graphs, g)
	}
	return graphs, nil
}

// toModelGraph converts a retrieved subgraph into the model's input form,
// fitting every feature vector to the model's input dimension.
func (e *Engine) toModelGraph(sub graph.Subgraph) gnn.Graph {
	dim := e.model.Cfg.InputDim

	x := make([][]float64, len(sub.Nodes))
	for i, node := range sub.Nodes {
		x[i] = gnn.FitDimension(node.Features, dim)
	}

	var edges [][2]int
	for _, edge := range sub.Edges {
		src := sub.IndexOf(edge.SourceID)
		dst := sub.IndexOf(edge.TargetID)
		if src < 0 || dst < 0 {
			continue
		}
		edges = append(edges, [2]int{src, dst})
	}

	return gnn.Graph{X: x, Edges: edges}
}

// Prediction is the full scoring result, including the retrieved context the
// score was computed against.
type Prediction struct {
	TransactionID    string         `json:"transaction_id"`
	FraudProbability float64        `json:"fraud_probability"`
	IsFraudulent     bool           `json:"is_fraudulent"`
	Context          map[string]any `json:"context"`
	NodesRetrieved   int            `json:"nodes_retrieved"`
	Narrative        string         `json:"narrative,omitempty"`
}
