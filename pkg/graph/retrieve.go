package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// ErrNotFound is returned when the anchor node of a query does not exist.
var ErrNotFound = errors.New("graph node not found")

const (
	minDepth = 1
	maxDepth = 4
)

// LabeledTransaction is a transaction with ground-truth label, used to build
// training and evaluation sets.
type LabeledTransaction struct {
	ID    string
	Label int
}

// Subgraph retrieves the neighborhood of a transaction up to `depth` hops,
// deduplicating nodes and relationships across paths. Depth is clamped to a
// small range; Cypher cannot parameterize variable-length bounds, so the
// clamped value is formatted into the query text.
func (s *Store) Subgraph(ctx context.Context, txID string, depth int) (Subgraph, error) {
	if depth < minDepth {
		depth = minDepth
	}
	if depth > maxDepth {
		depth = maxDepth
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH (start:Transaction {id: $id})
		OPTIONAL MATCH path = (start)-[*1..%d]-(related)
		RETURN start, collect(path) AS paths
	`, depth)

	result, err := session.Run(ctx, query, map[string]any{"id": txID})
	if err != nil {
		return Subgraph{}, fmt.Errorf("subgraph query failed for %s: %w", txID, err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return Subgraph{}, err
		}
		return Subgraph{}, ErrNotFound
	}
	record := result.Record()

	var sg Subgraph
	seenNodes := map[string]string{} // element id -> property id
	seenEdges := map[string]struct{}{}

	addNode := func(n dbtype.Node) {
		if _, ok := seenNodes[n.ElementId]; ok {
			return
		}
		id, _ := n.Props["id"].(string)
		seenNodes[n.ElementId] = id
		sg.Nodes = append(sg.Nodes, Node{
			ID:       id,
			Labels:   n.Labels,
			Props:    n.Props,
			Features: featureVector(n.Labels, n.Props),
		})
	}

	startVal, ok := record.Get("start")
	if !ok {
		return Subgraph{}, ErrNotFound
	}
	startNode, ok := startVal.(dbtype.Node)
	if !ok {
		return Subgraph{}, ErrNotFound
	}
	addNode(startNode)

	pathsVal, _ := record.Get("paths")
	paths, _ := pathsVal.([]any)
	for _, pv := range paths {
		path, ok := pv.(dbtype.Path)
		if !ok {
			continue
		}
		for _, n := range path.Nodes {
			addNode(n)
		}
		for _, rel := range path.Relationships {
			key := rel.StartElementId + "->" + rel.EndElementId
			if _, ok := seenEdges[key]; ok {
				continue
			}
			seenEdges[key] = struct{}{}
			sg.Edges = append(sg.Edges, Edge{
				SourceID: seenNodes[rel.StartElementId],
				TargetID: seenNodes[rel.EndElementId],
				Type:     rel.Type,
			})
		}
	}
	return sg, nil
}

// ExplanationContext gathers the human-readable neighborhood of a prediction:
// the transaction, its owning user, and directly connected transactions.
func (s *Store) ExplanationContext(ctx context.Context, txID string) (map[string]any, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (t:Transaction {id: $id})
		OPTIONAL MATCH (t)-[:BELONGS_TO]->(u:User)
		OPTIONAL MATCH (t)-[:CONNECTED_TO]-(r:Transaction)
		RETURN t, u, collect(DISTINCT r) AS related_transactions
	`
	result, err := session.Run(ctx, query, map[string]any{"id": txID})
	if err != nil {
		return nil, fmt.Errorf("explanation query failed for %s: %w", txID, err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	record := result.Record()

	out := map[string]any{}
	if v, ok := record.Get("t"); ok {
		if n, ok := v.(dbtype.Node); ok {
			out["transaction"] = n.Props
		}
	}
	if v, ok := record.Get("u"); ok {
		if n, ok := v.(dbtype.Node); ok {
			out["user"] = n.Props
		}
	}
	related := []map[string]any{}
	if v, ok := record.Get("related_transactions"); ok {
		if list, ok := v.([]any); ok {
			for _, item := range list {
				if n, ok := item.(dbtype.Node); ok {
					related = append(related, n.Props)
				}
			}
		}
	}
	out["related_transactions"] = related
	return out, nil
}

// LabeledTransactions returns ids and labels of transactions with ground
// truth, capped at limit.
func (s *Store) LabeledTransactions(ctx context.Context, limit int) ([]LabeledTransaction, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (t:Transaction)
		WHERE t.label IS NOT NULL
		RETURN t.id AS id, t.label AS label
		LIMIT $limit
	`
	result, err := session.Run(ctx, query, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("labeled transactions query failed: %w", err)
	}

	var out []LabeledTransaction
	for result.Next(ctx) {
		record := result.Record()
		id, _ := record.Get("id")
		label, _ := record.Get("label")
		idStr, ok := id.(string)
		if !ok {
			continue
		}
		labelInt, ok := label.(int64)
		if !ok {
			continue
		}
		out = append(out, LabeledTransaction{ID: idStr, Label: int(labelInt)})
	}
	return out, result.Err()
}

// featureVector extracts the numeric representation of a node. Transactions
// carry an explicit features list; other nodes contribute whatever numeric
// signal they have, in a fixed key order so dimensions stay stable.
func featureVector(labels []string, props map[string]any) []float64 {
	if raw, ok := props["features"].([]any); ok {
		features := make([]float64, 0, len(raw))
		for _, v := range raw {
			if f, ok := toFloat(v); ok {
				features = append(features, f)
			}
		}
		if len(features) > 0 {
			return features
		}
	}

	var features []float64
	for _, key := range []string{"amount", "fraud_probability", "risk_score"} {
		if f, ok := toFloat(props[key]); ok {
			features = append(features, f)
		}
	}
	return features
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
