package lineage

import (
	"testing"

	"github.com/maraichr/dbtlineage/internal/sqllineage"
	"github.com/maraichr/dbtlineage/pkg/lineagegraph"
)

const forwardManifestSingleHop = `{
  "metadata": {"project_name": "proj"},
  "nodes": {
    "model.proj.a": {
      "unique_id": "model.proj.a", "name": "a", "schema": "sch", "database": "db",
      "resource_type": "model", "fqn": ["proj","staging","a"], "package_name": "proj",
      "config": {"materialized": "table"}, "compiled_code": "select 1",
      "columns": {"x": {"name": "x"}}
    },
    "model.proj.b": {
      "unique_id": "model.proj.b", "name": "b", "schema": "sch", "database": "db",
      "resource_type": "model", "fqn": ["proj","staging","b"], "package_name": "proj",
      "config": {"materialized": "table"}, "compiled_code": "SELECT a.x AS x FROM proj.sch.a",
      "columns": {"x": {"name": "X"}},
      "depends_on": {"nodes": ["model.proj.a"]}
    }
  },
  "sources": {},
  "child_map": {"model.proj.a": ["model.proj.b"], "model.proj.b": []},
  "parent_map": {"model.proj.a": [], "model.proj.b": ["model.proj.a"]}
}`

// TestForwardSingleHop covers two nodes, one edge, and the upstream leaf
// marked as a traversal terminal.
func TestForwardSingleHop(t *testing.T) {
	snap := buildSnapshot(t, forwardManifestSingleHop, `{"nodes":{}}`)
	adapter := &fakeAdapter{byCompiledSQL: map[string]map[string]sqllineage.ColumnResult{
		"SELECT a.x AS x FROM proj.sch.a": {
			"X": {Labels: []string{"A"}, Columns: []string{"x"}},
		},
	}}
	engine := NewEngine(snap, adapter, nil, 0)

	result := engine.Forward("b", "X", Unbounded)

	if len(result.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d: %+v", len(result.Nodes), result.Nodes)
	}
	if len(result.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %d: %+v", len(result.Edges), result.Edges)
	}
	edge := result.Edges[0]
	if edge.SourceHandle != "X__source" || edge.TargetHandle != "x__target" {
		t.Fatalf("expected handles X__source/x__target, got %s/%s", edge.SourceHandle, edge.TargetHandle)
	}

	var aNode = findByName(result.Nodes, "a")
	if aNode == nil {
		t.Fatalf("expected node 'a' in result")
	}
	if !aNode.Data.Last {
		t.Fatalf("expected node 'a' to be marked last under unbounded depth")
	}
}

// TestForwardDepthBound covers a bounded depth that stops the walk
// before the further upstream model is ever reached, and no node
// anywhere carries last:true.
func TestForwardDepthBound(t *testing.T) {
	manifest := `{
  "metadata": {"project_name": "proj"},
  "nodes": {
    "model.proj.a0": {
      "unique_id": "model.proj.a0", "name": "a0", "schema": "sch", "database": "db",
      "resource_type": "model", "fqn": ["proj","staging","a0"], "package_name": "proj",
      "config": {"materialized": "table"}, "compiled_code": "select 1",
      "columns": {"x": {"name": "x"}}
    },
    "model.proj.a": {
      "unique_id": "model.proj.a", "name": "a", "schema": "sch", "database": "db",
      "resource_type": "model", "fqn": ["proj","staging","a"], "package_name": "proj",
      "config": {"materialized": "table"}, "compiled_code": "SELECT a0.x AS x FROM proj.sch.a0",
      "columns": {"x": {"name": "x"}},
      "depends_on": {"nodes": ["model.proj.a0"]}
    },
    "model.proj.b": {
      "unique_id": "model.proj.b", "name": "b", "schema": "sch", "database": "db",
      "resource_type": "model", "fqn": ["proj","staging","b"], "package_name": "proj",
      "config": {"materialized": "table"}, "compiled_code": "SELECT a.x AS x FROM proj.sch.a",
      "columns": {"x": {"name": "X"}},
      "depends_on": {"nodes": ["model.proj.a"]}
    }
  },
  "sources": {},
  "child_map": {"model.proj.a0": ["model.proj.a"], "model.proj.a": ["model.proj.b"], "model.proj.b": []},
  "parent_map": {"model.proj.a0": [], "model.proj.a": ["model.proj.a0"], "model.proj.b": ["model.proj.a"]}
}`
	snap := buildSnapshot(t, manifest, `{"nodes":{}}`)
	adapter := &fakeAdapter{byCompiledSQL: map[string]map[string]sqllineage.ColumnResult{
		"SELECT a.x AS x FROM proj.sch.a":   {"X": {Labels: []string{"A"}, Columns: []string{"x"}}},
		"SELECT a0.x AS x FROM proj.sch.a0": {"X": {Labels: []string{"A0"}, Columns: []string{"x"}}},
	}}
	engine := NewEngine(snap, adapter, nil, 0)

	result := engine.Forward("b", "X", 1)

	if len(result.Nodes) != 2 {
		t.Fatalf("expected 2 nodes (b, a), got %d: %+v", len(result.Nodes), result.Nodes)
	}
	if findByName(result.Nodes, "a0") != nil {
		t.Fatalf("expected a0 to never be reached at depth_limit=1")
	}
	for _, n := range result.Nodes {
		if n.Data.Last {
			t.Fatalf("expected no node marked last on a bounded run, got it on %s", n.Data.Name)
		}
	}
}

// TestForwardMissingCompiledCode covers a seed as the root of the walk:
// it is still added to the graph, but the walk never hands its (absent)
// compiled SQL to the SQL Lineage Adapter and produces no further edges.
func TestForwardMissingCompiledCode(t *testing.T) {
	manifest := `{
  "metadata": {"project_name": "proj"},
  "nodes": {
    "seed.proj.seed1": {
      "unique_id": "seed.proj.seed1", "name": "seed1", "schema": "sch", "database": "db",
      "resource_type": "seed", "fqn": ["proj","seeds","seed1"], "package_name": "proj",
      "config": {"materialized": "seed"},
      "columns": {"x": {"name": "x"}}
    }
  },
  "sources": {},
  "child_map": {"seed.proj.seed1": []},
  "parent_map": {"seed.proj.seed1": []}
}`
	snap := buildSnapshot(t, manifest, `{"nodes":{}}`)
	engine := NewEngine(snap, &fakeAdapter{}, nil, 0)

	result := engine.Forward("seed1", "X", Unbounded)

	if len(result.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d: %+v", len(result.Nodes), result.Nodes)
	}
	if len(result.Edges) != 0 {
		t.Fatalf("expected no edges, got %d", len(result.Edges))
	}
}

// TestForwardParseFailureIsolatesBranch covers one upstream branch that
// fails to parse and is silently truncated while its sibling branch
// keeps processing.
func TestForwardParseFailureIsolatesBranch(t *testing.T) {
	manifest := `{
  "metadata": {"project_name": "proj"},
  "nodes": {
    "model.proj.bad": {
      "unique_id": "model.proj.bad", "name": "bad", "schema": "sch", "database": "db",
      "resource_type": "model", "fqn": ["proj","staging","bad"], "package_name": "proj",
      "config": {"materialized": "table"}, "compiled_code": "SELEKT this is not sql (((",
      "columns": {"x": {"name": "x"}}
    },
    "model.proj.good": {
      "unique_id": "model.proj.good", "name": "good", "schema": "sch", "database": "db",
      "resource_type": "model", "fqn": ["proj","staging","good"], "package_name": "proj",
      "config": {"materialized": "table"}, "compiled_code": "select 1",
      "columns": {"y": {"name": "y"}}
    },
    "model.proj.p": {
      "unique_id": "model.proj.p", "name": "p", "schema": "sch", "database": "db",
      "resource_type": "model", "fqn": ["proj","staging","p"], "package_name": "proj",
      "config": {"materialized": "table"},
      "compiled_code": "SELECT bad.x AS x, good.y AS x FROM proj.sch.bad, proj.sch.good",
      "columns": {"x": {"name": "x"}},
      "depends_on": {"nodes": ["model.proj.bad", "model.proj.good"]}
    }
  },
  "sources": {},
  "child_map": {"model.proj.bad": ["model.proj.p"], "model.proj.good": ["model.proj.p"], "model.proj.p": []},
  "parent_map": {"model.proj.bad": [], "model.proj.good": [], "model.proj.p": ["model.proj.bad", "model.proj.good"]}
}`
	snap := buildSnapshot(t, manifest, `{"nodes":{}}`)
	adapter := &fakeAdapter{
		byCompiledSQL: map[string]map[string]sqllineage.ColumnResult{
			"SELECT bad.x AS x, good.y AS x FROM proj.sch.bad, proj.sch.good": {
				"X": {Labels: []string{"BAD", "GOOD"}, Columns: []string{"x", "y"}},
			},
		},
		err: map[string]error{
			"SELEKT this is not sql (((": errParse,
		},
	}
	engine := NewEngine(snap, adapter, nil, 0)

	result := engine.Forward("p", "X", Unbounded)

	if findByName(result.Nodes, "bad") == nil {
		t.Fatalf("expected 'bad' to still appear in the graph despite its own parse failure")
	}
	goodNode := findByName(result.Nodes, "good")
	if goodNode == nil {
		t.Fatalf("expected sibling branch 'good' to still process")
	}
	if !goodNode.Data.Last {
		t.Fatalf("expected 'good' to be marked last")
	}
	if len(result.Nodes) != 3 {
		t.Fatalf("expected 3 nodes (p, bad, good), got %d: %+v", len(result.Nodes), result.Nodes)
	}
}

func findByName(nodes []*lineagegraph.Node, name string) *lineagegraph.Node {
	for _, n := range nodes {
		if lineagegraph.EqualFold(n.Data.Name, name) {
			return n
		}
	}
	return nil
}
