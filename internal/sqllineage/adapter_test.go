package sqllineage

import (
	"log/slog"
	"reflect"
	"testing"
)

func TestLineageSingleHop(t *testing.T) {
	a := New(slog.Default())
	req := Request{
		CompiledSQL:   "SELECT a.x AS x FROM proj.sch.a AS a",
		TargetColumns: []string{"X"},
		Schema: SchemaMap{
			"PROJ.SCH.A": {"X": "STRING"},
		},
	}
	res, err := a.Lineage(req)
	if err != nil {
		t.Fatalf("Lineage: %v", err)
	}
	got, ok := res["X"]
	if !ok {
		t.Fatalf("expected a result for column X")
	}
	if !reflect.DeepEqual(got.Labels, []string{"A"}) {
		t.Fatalf("expected labels [A], got %v", got.Labels)
	}
}

func TestLineageThroughCTE(t *testing.T) {
	a := New(slog.Default())
	req := Request{
		CompiledSQL: `WITH w AS (SELECT x FROM proj.sch.a) SELECT x FROM w`,
		TargetColumns: []string{"X"},
		Schema: SchemaMap{
			"PROJ.SCH.A": {"X": "STRING"},
		},
	}
	res, err := a.Lineage(req)
	if err != nil {
		t.Fatalf("Lineage: %v", err)
	}
	got := res["X"]
	if len(got.Labels) != 1 || got.Labels[0] != "A" {
		t.Fatalf("expected lineage to resolve through the CTE to table A, got %v", got.Labels)
	}
}

func TestLineageParseErrorYieldsEmptyResult(t *testing.T) {
	a := New(slog.Default())
	req := Request{
		CompiledSQL:   "SELEKT this is not sql (((",
		TargetColumns: []string{"X"},
	}
	res, err := a.Lineage(req)
	if err != nil {
		t.Fatalf("expected no error, parse failures are swallowed: %v", err)
	}
	if got := res["X"]; len(got.Labels) != 0 || len(got.Columns) != 0 {
		t.Fatalf("expected empty result for unparsable sql, got %+v", got)
	}
}

func TestDecomposeFindsCTEsInOrder(t *testing.T) {
	sql := `WITH w AS (SELECT x FROM proj.sch.a), final AS (SELECT x FROM w) SELECT * FROM final`
	ctes, outer, err := Decompose(sql)
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if outer == nil {
		t.Fatalf("expected outer select")
	}
	if len(ctes) != 2 {
		t.Fatalf("expected 2 CTEs, got %d", len(ctes))
	}
	if ctes[0].Name != "w" || ctes[1].Name != "final" {
		t.Fatalf("expected CTE order [w final], got [%s %s]", ctes[0].Name, ctes[1].Name)
	}
	if refs := ReferencedTables(ctes[0].Stmt); len(refs) != 1 || refs[0] != "a" {
		t.Fatalf("expected w to reference table 'a', got %v", refs)
	}
	if refs := ReferencedTables(ctes[1].Stmt); len(refs) != 1 || refs[0] != "w" {
		t.Fatalf("expected final to reference 'w', got %v", refs)
	}
}

func TestUnionTextsRendersBothBranches(t *testing.T) {
	sql := `WITH w AS (SELECT x FROM proj.sch.a UNION SELECT x FROM proj.sch.b) SELECT x FROM w`
	ctes, _, err := Decompose(sql)
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if len(ctes) != 1 {
		t.Fatalf("expected 1 CTE, got %d", len(ctes))
	}
	unions := UnionTexts(ctes[0].Stmt)
	if len(unions) != 2 {
		t.Fatalf("expected 2 union branches, got %d: %v", len(unions), unions)
	}
	if unions[0] != "SELECT x FROM a" || unions[1] != "SELECT x FROM b" {
		t.Fatalf("expected branch text [SELECT x FROM a, SELECT x FROM b], got %v", unions)
	}
}

func TestUnionTextsNilForPlainSelect(t *testing.T) {
	ctes, _, err := Decompose(`WITH w AS (SELECT x FROM proj.sch.a) SELECT x FROM w`)
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if got := UnionTexts(ctes[0].Stmt); got != nil {
		t.Fatalf("expected nil for a plain SELECT, got %v", got)
	}
}
