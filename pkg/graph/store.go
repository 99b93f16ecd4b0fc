package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Config holds Neo4j connection details.
type Config struct {
	URI      string
	Username string
	Password string
}

// Store wraps the Neo4j driver with fraud-domain operations.
type Store struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// New connects to Neo4j and verifies connectivity. Startup retries for up to
// a minute so the service survives a slow graph-database boot in compose-style
// environments.
func New(ctx context.Context, logger *zap.Logger, cfg Config) (*Store, func(), error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	verify := func() error {
		return driver.VerifyConnectivity(ctx)
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = time.Minute
	if err := backoff.Retry(verify, backoff.WithContext(b, ctx)); err != nil {
		_ = driver.Close(ctx)
		return nil, nil, fmt.Errorf("failed to reach neo4j at %s: %w", cfg.URI, err)
	}
	logger.Info("Neo4j connection established", zap.String("uri", cfg.URI))

	closer := func() {
		if err := driver.Close(ctx); err != nil {
			logger.Error("failed to close neo4j driver", zap.Error(err))
			return
		}
		logger.Info("Neo4j driver closed")
	}
	return &Store{driver: driver, logger: logger}, closer, nil
}

// Ping verifies the graph store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// EnsureSchema creates uniqueness constraints for User and Transaction ids.
func (s *Store) EnsureSchema(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT user_id IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE",
		"CREATE CONSTRAINT transaction_id IF NOT EXISTS FOR (t:Transaction) REQUIRE t.id IS UNIQUE",
	}
	for _, c := range constraints {
		if _, err := session.Run(ctx, c, nil); err != nil {
			return fmt.Errorf("failed to create constraint: %w", err)
		}
	}
	return nil
}

// MergeUser creates or updates a user node.
func (s *Store) MergeUser(ctx context.Context, u UserNode) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MERGE (u:User {id: $id})
		SET u.name = $name, u.risk_score = $riskScore
	`
	_, err := session.Run(ctx, query, map[string]any{
		"id":        u.ID,
		"name":      u.Name,
		"riskScore": u.RiskScore,
	})
	if err != nil {
		return fmt.Errorf("failed to merge user %s: %w", u.ID, err)
	}
	return nil
}

// MergeTransaction creates or updates a transaction node, its BELONGS_TO edge
// to the owning user, and any CONNECTED_TO relationships to existing nodes.
// MERGE keeps the operation idempotent under Kafka redelivery.
func (s *Store) MergeTransaction(ctx context.Context, t TransactionNode, rels []Relationship) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MERGE (t:Transaction {id: $id})
		SET t.amount = $amount,
		    t.timestamp = $timestamp,
		    t.features = $features,
		    t.fraud_probability = $fraudProbability
		FOREACH (_ IN CASE WHEN $label IS NULL THEN [] ELSE [1] END | SET t.label = $label)
		MERGE (u:User {id: $userId})
		MERGE (t)-[:BELONGS_TO]->(u)
		WITH t
		UNWIND $rels AS rel
		MATCH (related {id: rel.relatedId})
		MERGE (t)-[r:CONNECTED_TO]->(related)
		SET r += rel.props
	`
	params := map[string]any{
		"id":               t.ID,
		"userId":           t.UserID,
		"amount":           t.Amount,
		"timestamp":        t.Timestamp,
		"features":         t.Features,
		"fraudProbability": t.FraudProbability,
		"label":            nil,
		"rels":             relParams(rels),
	}
	if t.Label != nil {
		params["label"] = *t.Label
	}
	// UNWIND over an empty list short-circuits the whole tail of the query,
	// so run the relationship-free variant when there is nothing to connect.
	if len(rels) == 0 {
		query = `
			MERGE (t:Transaction {id: $id})
			SET t.amount = $amount,
			    t.timestamp = $timestamp,
			    t.features = $features,
			    t.fraud_probability = $fraudProbability
			FOREACH (_ IN CASE WHEN $label IS NULL THEN [] ELSE [1] END | SET t.label = $label)
			MERGE (u:User {id: $userId})
			MERGE (t)-[:BELONGS_TO]->(u)
		`
	}

	_, err := session.Run(ctx, query, params)
	if err != nil {
		return fmt.Errorf("failed to merge transaction %s: %w", t.ID, err)
	}
	return nil
}

// ConnectTransactions creates a CONNECTED_TO edge between two transactions.
func (s *Store) ConnectTransactions(ctx context.Context, fromID, toID string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MATCH (t1:Transaction {id: $fromId})
		MATCH (t2:Transaction {id: $toId})
		MERGE (t1)-[r:CONNECTED_TO]->(t2)
		SET r.timestamp = $now
	`
	_, err := session.Run(ctx, query, map[string]any{
		"fromId": fromID,
		"toId":   toID,
		"now":    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to connect transactions: %w", err)
	}
	return nil
}

// SetFraudProbability writes a model score back onto the transaction node.
func (s *Store) SetFraudProbability(ctx context.Context, txID string, probability float64) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MATCH (t:Transaction {id: $id})
		SET t.fraud_probability = $probability
	`
	_, err := session.Run(ctx, query, map[string]any{
		"id":          txID,
		"probability": probability,
	})
	if err != nil {
		return fmt.Errorf("failed to set fraud probability on %s: %w", txID, err)
	}
	return nil
}

func relParams(rels []Relationship) []map[string]any {
	out := make([]map[string]any, 0, len(rels))
	for _, r := range rels {
		props := r.Props
		if props == nil {
			props = map[string]any{}
		}
		if r.Type != "" {
			props["type"] = r.Type
		}
		out = append(out, map[string]any{
			"relatedId": r.RelatedID,
			"props":     props,
		})
	}
	return out
}
