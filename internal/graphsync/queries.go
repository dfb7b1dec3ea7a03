package graphsync

// Cypher query constants for mirroring a computed lineage graph into Neo4j.
const (
	// CreateConstraintNodeID ensures LineageNode(id) is unique and indexed
	// (required for fast MERGE).
	CreateConstraintNodeID = `CREATE CONSTRAINT lineage_node_id IF NOT EXISTS FOR (n:LineageNode) REQUIRE n.id IS UNIQUE`

	// UpsertNode merges a model/source node by its hashed id and sets its
	// display properties.
	UpsertNode = `
UNWIND $nodes AS n
MERGE (node:LineageNode {id: n.id})
SET node.name = n.name,
    node.schema = n.schema,
    node.materialized = n.materialized,
    node.columns = n.columns,
    node.last = n.last
`

	// UpsertEdge merges a column-lineage edge between two mirrored nodes.
	UpsertEdge = `
UNWIND $edges AS e
MATCH (src:LineageNode {id: e.source})
MATCH (tgt:LineageNode {id: e.target})
MERGE (src)-[r:FLOWS_TO {id: e.id}]->(tgt)
SET r.sourceHandle = e.sourceHandle,
    r.targetHandle = e.targetHandle
`

	// UpsertCTENode merges a CTE node, identified by CTE name rather than
	// a hash id.
	UpsertCTENode = `
UNWIND $ctes AS c
MERGE (cte:CTENode {id: c.id})
SET cte.label = c.label
`

	// UpsertCTEEdge merges a referenced-table-into-CTE edge.
	UpsertCTEEdge = `
UNWIND $edges AS e
MERGE (src:CTENode {id: e.source})
MERGE (tgt:CTENode {id: e.target})
MERGE (src)-[r:FEEDS {id: e.id}]->(tgt)
`
)
