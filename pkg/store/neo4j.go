package store

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/coolbeans/lawlink/pkg/types"
)

const neo4jBatchSize = 500

// Cypher used by Neo4jSink. Range targets are stored as Article nodes with
// range = true so one relationship type covers both relations.
const (
	createArticleConstraint = `CREATE CONSTRAINT article_id IF NOT EXISTS FOR (a:Article) REQUIRE a.id IS UNIQUE`

	deleteStatuteEdges = `
MATCH (a:Article {statute_id: $statute})-[r:REFERS_TO]->()
DELETE r`

	upsertEdges = `
UNWIND $edges AS e
MERGE (a:Article {id: e.source})
  ON CREATE SET a.statute_id = e.sourceStatute
MERGE (b:Article {id: e.target})
  ON CREATE SET b.statute_id = e.targetStatute, b.range = e.range
CREATE (a)-[:REFERS_TO {relation: e.relation, evidence: e.evidence, confidence: e.confidence, extractor_version: e.extractorVersion}]->(b)`
)

// Neo4jConfig holds connection settings.
type Neo4jConfig struct {
	URI      string
	User     string
	Password string
}

// Neo4jSink mirrors edge sets into a Neo4j graph.
type Neo4jSink struct {
	driver neo4j.DriverWithContext
}

// NewNeo4jSink connects, verifies connectivity and ensures the article id
// constraint exists.
func NewNeo4jSink(ctx context.Context, cfg Neo4jConfig) (*Neo4jSink, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	s := &Neo4jSink{driver: driver}
	if err := s.ensureConstraints(ctx); err != nil {
		driver.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Neo4jSink) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
}

func (s *Neo4jSink) ensureConstraints(ctx context.Context) error {
	session := s.session(ctx)
	defer session.Close(ctx)
	_, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, createArticleConstraint, nil); err != nil {
			return struct{}{}, fmt.Errorf("create article id constraint: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}

// ReplaceStatute deletes the statute's outgoing relationships and recreates
// them in one write transaction.
func (s *Neo4jSink) ReplaceStatute(ctx context.Context, statuteID string, edges []types.Edge) error {
	if err := sourcesBelongTo(statuteID, edges); err != nil {
		return err
	}
	params := edgeParams(edges)

	session := s.session(ctx)
	defer session.Close(ctx)
	_, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, deleteStatuteEdges, map[string]any{"statute": statuteID}); err != nil {
			return struct{}{}, fmt.Errorf("delete edges: %w", err)
		}
		for i := 0; i < len(params); i += neo4jBatchSize {
			end := min(i+neo4jBatchSize, len(params))
			if _, err := tx.Run(ctx, upsertEdges, map[string]any{"edges": params[i:end]}); err != nil {
				return struct{}{}, fmt.Errorf("upsert edges batch %d: %w", i/neo4jBatchSize, err)
			}
		}
		return struct{}{}, nil
	})
	if err != nil {
		return fmt.Errorf("neo4j replace %s: %w", statuteID, err)
	}
	return nil
}

func edgeParams(edges []types.Edge) []map[string]any {
	params := make([]map[string]any, len(edges))
	for i, e := range edges {
		params[i] = map[string]any{
			"source":           e.Source.NodeID(),
			"sourceStatute":    e.Source.StatuteID,
			"target":           e.TargetID(),
			"targetStatute":    e.TargetStatuteID(),
			"range":            e.TargetRange != nil,
			"relation":         e.Relation,
			"evidence":         e.Evidence,
			"confidence":       e.Confidence,
			"extractorVersion": e.ExtractorVersion,
		}
	}
	return params
}

// Close releases the driver.
func (s *Neo4jSink) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
