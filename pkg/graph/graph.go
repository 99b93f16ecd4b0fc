package graph

// Node is a deduplicated node lifted out of a Cypher path.
type Node struct {
	ID       string
	Labels   []string
	Props    map[string]any
	Features []float64
}

// Edge connects two nodes by their `id` property.
type Edge struct {
	SourceID string
	TargetID string
	Type     string
}

// Subgraph is the neighborhood retrieved around a transaction. It is the raw
// material the GraphRAG engine turns into a model input.
type Subgraph struct {
	Nodes []Node
	Edges []Edge
}

// IndexOf returns the position of a node id within the subgraph, -1 if absent.
func (s Subgraph) IndexOf(id string) int {
	for i, n := range s.Nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// TransactionNode is the write-side shape of a transaction in the graph.
type TransactionNode struct {
	ID               string
	UserID           string
	Amount           float64
	Timestamp        string
	Features         []float64
	FraudProbability float64
	Label            *int64
}

// Relationship links a new transaction to an existing node.
type Relationship struct {
	RelatedID string
	Type      string
	Props     map[string]any
}

// UserNode is the write-side shape of a user in the graph.
type UserNode struct {
	ID        string
	Name      string
	RiskScore float64
}
