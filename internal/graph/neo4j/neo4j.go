// Package neo4j stores and loads relationship graph snapshots in Neo4j.
//
// Entities are (:Entity) nodes; relationships are [:RELATES] with the
// relation type kept as a property, since Cypher cannot parameterize
// relationship types. A seq property preserves load order, which fixes the
// order of adjacency lists and therefore of search results.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/linkscope/linkscope/internal/graph"
)

const (
	clearQuery = "MATCH (n:Entity) DETACH DELETE n"

	storeNodesQuery = "UNWIND $rows AS row " +
		"CREATE (n:Entity) SET n = row"

	storeEdgesQuery = "UNWIND $rows AS row " +
		"MATCH (a:Entity {id: row.source}), (b:Entity {id: row.target}) " +
		"CREATE (a)-[r:RELATES]->(b) SET r = row.props"

	loadNodesQuery = "MATCH (n:Entity) RETURN n {.*} AS props ORDER BY n.seq"

	loadEdgesQuery = "MATCH (a:Entity)-[r:RELATES]->(b:Entity) " +
		"RETURN a.id AS source, b.id AS target, r {.*} AS props ORDER BY r.seq"

	indexQuery = "CREATE INDEX entity_id IF NOT EXISTS FOR (n:Entity) ON (n.id)"
)

// Neo4jRepository implements graph.Repository and graph.Writer using Neo4j.
type Neo4jRepository struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4j connects to uri and verifies connectivity. An empty database
// selects the server default.
func NewNeo4j(ctx context.Context, uri, username, password, database string) (*Neo4jRepository, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Neo4jRepository{driver: driver, database: database}, nil
}

func (r *Neo4jRepository) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: r.database})
}

// StoreSnapshot replaces every stored entity and relationship with the
// contents of s, in one transaction.
func (r *Neo4jRepository) StoreSnapshot(ctx context.Context, s *graph.Snapshot) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	res, err := session.Run(ctx, indexQuery, nil)
	if err == nil {
		_, err = res.Consume(ctx)
	}
	if err != nil {
		return fmt.Errorf("create entity index: %w", err)
	}

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, clearQuery, nil); err != nil {
			return nil, fmt.Errorf("clear: %w", err)
		}
		if _, err := tx.Run(ctx, storeNodesQuery, map[string]any{"rows": nodeRows(s.Nodes())}); err != nil {
			return nil, fmt.Errorf("store entities: %w", err)
		}
		if _, err := tx.Run(ctx, storeEdgesQuery, map[string]any{"rows": edgeRows(s.Edges())}); err != nil {
			return nil, fmt.Errorf("store relationships: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads every entity and relationship and builds a snapshot.
func (r *Neo4jRepository) LoadSnapshot(ctx context.Context) (*graph.Snapshot, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	type loaded struct {
		nodes []graph.Node
		edges []graph.Edge
	}

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		var out loaded

		records, err := tx.Run(ctx, loadNodesQuery, nil)
		if err != nil {
			return nil, err
		}
		for records.Next(ctx) {
			props, _ := records.Record().Get("props")
			n, err := nodeFromProps(asMap(props))
			if err != nil {
				return nil, err
			}
			out.nodes = append(out.nodes, n)
		}
		if err := records.Err(); err != nil {
			return nil, err
		}

		records, err = tx.Run(ctx, loadEdgesQuery, nil)
		if err != nil {
			return nil, err
		}
		for records.Next(ctx) {
			rec := records.Record()
			source, _ := rec.Get("source")
			target, _ := rec.Get("target")
			props, _ := rec.Get("props")
			out.edges = append(out.edges, edgeFromProps(asString(source), asString(target), asMap(props)))
		}
		if err := records.Err(); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	l := result.(loaded)
	return graph.Build(l.nodes, l.edges)
}

// CountEntities returns the number of stored entities and relationships.
func (r *Neo4jRepository) CountEntities(ctx context.Context) (nodes, edges int64, err error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		rec, err := tx.Run(ctx,
			"MATCH (n:Entity) OPTIONAL MATCH (n)-[r:RELATES]->() RETURN count(DISTINCT n) AS nodes, count(r) AS edges",
			nil)
		if err != nil {
			return nil, err
		}
		single, err := rec.Single(ctx)
		if err != nil {
			return nil, err
		}
		n, _ := single.Get("nodes")
		e, _ := single.Get("edges")
		return [2]int64{n.(int64), e.(int64)}, nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("count entities: %w", err)
	}
	counts := result.([2]int64)
	return counts[0], counts[1], nil
}

func (r *Neo4jRepository) String() string { return "neo4j" }

func (r *Neo4jRepository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

var (
	_ graph.Repository = (*Neo4jRepository)(nil)
	_ graph.Writer     = (*Neo4jRepository)(nil)
)
