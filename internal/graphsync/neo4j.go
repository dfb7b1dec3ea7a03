// Package graphsync optionally mirrors a computed lineage graph into
// Neo4j so an external visualization tool can query it directly instead
// of replaying lineage engine calls. Mirroring is write-only: nothing in
// internal/lineage ever reads from Neo4j, so a nil or unreachable Client
// cannot change engine semantics, only disable visualization.
package graphsync

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/maraichr/dbtlineage/internal/engineconfig"
	"github.com/maraichr/dbtlineage/pkg/lineagegraph"
)

const batchSize = 500

// Client wraps the Neo4j driver and mirrors lineage graph results into it.
type Client struct {
	driver neo4j.DriverWithContext
}

// NewClient creates a Neo4j client from configuration.
func NewClient(cfg engineconfig.Neo4jConfig) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &Client{driver: driver}, nil
}

// Close releases the Neo4j driver's resources.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// EnsureConstraints creates the uniqueness constraints mirroring relies on.
// Safe to call repeatedly (IF NOT EXISTS).
func (c *Client) EnsureConstraints(ctx context.Context) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, CreateConstraintNodeID, nil)
		return struct{}{}, err
	})
	return err
}

// MirrorResult upserts a forward/reverse/table lineage Result into Neo4j.
func (c *Client) MirrorResult(ctx context.Context, result lineagegraph.Result) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for i := 0; i < len(result.Nodes); i += batchSize {
		batch := result.Nodes[i:min(i+batchSize, len(result.Nodes))]
		params := make([]map[string]any, len(batch))
		for j, n := range batch {
			params[j] = map[string]any{
				"id":           n.ID,
				"name":         n.Data.Name,
				"schema":       n.Data.Schema,
				"materialized": n.Data.Materialized,
				"columns":      n.Data.Columns,
				"last":         n.Data.Last,
			}
		}
		if _, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, UpsertNode, map[string]any{"nodes": params})
			return struct{}{}, err
		}); err != nil {
			return fmt.Errorf("mirror lineage nodes batch %d: %w", i/batchSize, err)
		}
	}

	for i := 0; i < len(result.Edges); i += batchSize {
		batch := result.Edges[i:min(i+batchSize, len(result.Edges))]
		params := make([]map[string]any, len(batch))
		for j, e := range batch {
			params[j] = map[string]any{
				"id":           e.ID,
				"source":       e.Source,
				"target":       e.Target,
				"sourceHandle": e.SourceHandle,
				"targetHandle": e.TargetHandle,
			}
		}
		if _, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, UpsertEdge, map[string]any{"edges": params})
			return struct{}{}, err
		}); err != nil {
			return fmt.Errorf("mirror lineage edges batch %d: %w", i/batchSize, err)
		}
	}

	return nil
}

// MirrorCTEResult upserts a CTE decomposition result into Neo4j.
func (c *Client) MirrorCTEResult(ctx context.Context, nodes []*lineagegraph.CTENode, edges []*lineagegraph.Edge) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	if len(nodes) > 0 {
		params := make([]map[string]any, len(nodes))
		for j, n := range nodes {
			params[j] = map[string]any{"id": n.ID, "label": n.Data.Label}
		}
		if _, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, UpsertCTENode, map[string]any{"ctes": params})
			return struct{}{}, err
		}); err != nil {
			return fmt.Errorf("mirror cte nodes: %w", err)
		}
	}

	if len(edges) > 0 {
		params := make([]map[string]any, len(edges))
		for j, e := range edges {
			params[j] = map[string]any{"id": e.ID, "source": e.Source, "target": e.Target}
		}
		if _, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, UpsertCTEEdge, map[string]any{"edges": params})
			return struct{}{}, err
		}); err != nil {
			return fmt.Errorf("mirror cte edges: %w", err)
		}
	}

	return nil
}
