package lineage

import (
	"testing"

	"github.com/maraichr/dbtlineage/internal/sqllineage"
)

// TestReverseSingleHop covers one child model consuming its parent's
// column, admitted into the reverse lineage result.
func TestReverseSingleHop(t *testing.T) {
	snap := buildSnapshot(t, forwardManifestSingleHop, `{"nodes":{}}`)
	adapter := &fakeAdapter{byCompiledSQL: map[string]map[string]sqllineage.ColumnResult{
		"SELECT a.x AS x FROM proj.sch.a": {
			"X": {Labels: []string{"A"}, Columns: []string{"X"}},
		},
	}}
	engine := NewEngine(snap, adapter, nil, 0)

	result := engine.Reverse("a", "X")

	if len(result.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d: %+v", len(result.Nodes), result.Nodes)
	}
	if result.Nodes[0].Data.Name != "b" {
		t.Fatalf("expected node 'b', got %q", result.Nodes[0].Data.Name)
	}
	if len(result.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %d: %+v", len(result.Edges), result.Edges)
	}
	edge := result.Edges[0]
	if edge.SourceHandle != "X__source" || edge.TargetHandle != "X__target" {
		t.Fatalf("expected handles X__source/X__target, got %s/%s", edge.SourceHandle, edge.TargetHandle)
	}
}

// TestReverseRejectsNonMatchingColumn confirms admission requires both
// the table label and the requested column to show up in the same SLA
// result.
func TestReverseRejectsNonMatchingColumn(t *testing.T) {
	snap := buildSnapshot(t, forwardManifestSingleHop, `{"nodes":{}}`)
	adapter := &fakeAdapter{byCompiledSQL: map[string]map[string]sqllineage.ColumnResult{
		"SELECT a.x AS x FROM proj.sch.a": {
			"X": {Labels: []string{"A"}, Columns: []string{"X"}},
		},
	}}
	engine := NewEngine(snap, adapter, nil, 0)

	result := engine.Reverse("a", "Y")

	if len(result.Nodes) != 0 {
		t.Fatalf("expected no nodes for a column that never resolves to 'a', got %+v", result.Nodes)
	}
}
