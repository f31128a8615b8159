package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coolbeans/lawlink/pkg/types"
)

var createEdgesTable = []string{`
CREATE TABLE IF NOT EXISTS citation_edges (
	source_statute    TEXT NOT NULL,
	source_id         TEXT NOT NULL,
	target_statute    TEXT NOT NULL,
	target_id         TEXT NOT NULL,
	relation          TEXT NOT NULL,
	evidence          TEXT NOT NULL,
	confidence        DOUBLE PRECISION NOT NULL,
	extractor_version TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS citation_edges_source_statute ON citation_edges (source_statute)`,
	`CREATE INDEX IF NOT EXISTS citation_edges_target_id ON citation_edges (target_id)`,
}

// PostgresSink stores edges in the citation_edges table.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink connects to databaseURL and creates the table when it
// does not exist.
func NewPostgresSink(ctx context.Context, databaseURL string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	for _, stmt := range createEdgesTable {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("create citation_edges: %w", err)
		}
	}
	return &PostgresSink{pool: pool}, nil
}

// ReplaceStatute deletes and reinserts the statute's rows in one
// transaction.
func (s *PostgresSink) ReplaceStatute(ctx context.Context, statuteID string, edges []types.Edge) error {
	if err := sourcesBelongTo(statuteID, edges); err != nil {
		return err
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM citation_edges WHERE source_statute = $1`, statuteID); err != nil {
		return fmt.Errorf("delete edges of %s: %w", statuteID, err)
	}

	rows := make([][]any, len(edges))
	for i, e := range edges {
		rows[i] = []any{
			statuteID, e.Source.NodeID(), e.TargetStatuteID(), e.TargetID(),
			e.Relation, e.Evidence, e.Confidence, e.ExtractorVersion,
		}
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"citation_edges"},
		[]string{"source_statute", "source_id", "target_statute", "target_id", "relation", "evidence", "confidence", "extractor_version"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("insert edges of %s: %w", statuteID, err)
	}
	return tx.Commit(ctx)
}

// Close closes the pool.
func (s *PostgresSink) Close(context.Context) error {
	s.pool.Close()
	return nil
}
