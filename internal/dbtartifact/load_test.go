package dbtartifact

import (
	"context"
	"log/slog"
	"testing"

	"github.com/maraichr/dbtlineage/pkg/lineageerr"
)

type fakeSource struct {
	manifest []byte
	catalog  []byte
	err      error
}

func (f fakeSource) ReadManifest(ctx context.Context) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.manifest, nil
}

func (f fakeSource) ReadCatalog(ctx context.Context) ([]byte, error) {
	return f.catalog, nil
}

const testManifest = `{
  "metadata": {"project_name": "proj"},
  "nodes": {
    "model.proj.a": {
      "unique_id": "model.proj.a",
      "name": "a",
      "schema": "sch",
      "database": "db",
      "resource_type": "model",
      "fqn": ["proj", "staging", "a"],
      "package_name": "proj",
      "config": {"materialized": "table"},
      "compiled_code": "select 1",
      "columns": {"x": {"name": "x"}}
    },
    "model.proj.b": {
      "unique_id": "model.proj.b",
      "name": "b",
      "schema": "sch",
      "database": "db",
      "resource_type": "model",
      "fqn": ["proj", "staging", "b"],
      "package_name": "proj",
      "config": {"materialized": "table"},
      "compiled_code": "select a.x as x from db.sch.a",
      "columns": {"x": {"name": "X"}},
      "depends_on": {"nodes": ["model.proj.a"]}
    }
  },
  "sources": {},
  "child_map": {"model.proj.a": ["model.proj.b"], "model.proj.b": []},
  "parent_map": {"model.proj.a": [], "model.proj.b": ["model.proj.a"]}
}`

const testCatalog = `{
  "nodes": {
    "model.proj.a": {"columns": {"x": {"name": "x", "type": "integer"}}}
  }
}`

func TestLoadBuildsSnapshot(t *testing.T) {
	src := fakeSource{manifest: []byte(testManifest), catalog: []byte(testCatalog)}
	snap, err := Load(context.Background(), src, slog.Default())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.ProjectName != "proj" {
		t.Fatalf("expected project 'proj', got %q", snap.ProjectName)
	}

	a, ok := snap.FindNode("a")
	if !ok {
		t.Fatalf("expected to find node 'a'")
	}
	if !a.HasCompiledCode() {
		t.Fatalf("expected a.CompiledCode to be set")
	}

	cols := snap.Columns("model.proj.a")
	if cols["x"].Type != "integer" {
		t.Fatalf("expected catalog column type to override manifest, got %+v", cols["x"])
	}

	if got := snap.Children("model.proj.a"); len(got) != 1 || got[0] != "model.proj.b" {
		t.Fatalf("unexpected children: %v", got)
	}
}

func TestLoadMissingFileIsConfigError(t *testing.T) {
	src := fakeSource{err: errReadFailed}
	_, err := Load(context.Background(), src, slog.Default())
	if !lineageerr.IsConfig(err) {
		t.Fatalf("expected ConfigError for missing manifest, got %v", err)
	}
}

var errReadFailed = &fakeErr{"read failed"}

type fakeErr struct{ msg string }

func (e *fakeErr) Error() string { return e.msg }
