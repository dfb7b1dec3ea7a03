package lineage

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/maraichr/dbtlineage/internal/artifactsource"
	"github.com/maraichr/dbtlineage/internal/dbtartifact"
	"github.com/maraichr/dbtlineage/internal/engineconfig"
	"github.com/maraichr/dbtlineage/internal/sqllineage"
)

// TestNewEngineFromConfigWiresSoftDepthCapAndDialect confirms the config-
// aware constructor actually threads cfg's knobs through, rather than
// falling back to NewEngine's hardcoded defaults.
func TestNewEngineFromConfigWiresSoftDepthCapAndDialect(t *testing.T) {
	snap := buildSnapshot(t, forwardManifestSingleHop, `{"nodes":{}}`)
	cfg := &engineconfig.Config{Dialect: "redshift", SoftDepthCap: 7}

	engine := NewEngineFromConfig(snap, &fakeAdapter{}, nil, cfg)

	if engine.softDepthCap != 7 {
		t.Fatalf("expected softDepthCap 7 from config, got %d", engine.softDepthCap)
	}
	if engine.dialect != "redshift" {
		t.Fatalf("expected dialect 'redshift' from config, got %q", engine.dialect)
	}
}

// fakeSource feeds fixed manifest/catalog bytes to dbtartifact.Load
// without touching a filesystem.
type fakeSource struct {
	manifest []byte
	catalog  []byte
}

func (f fakeSource) ReadManifest(ctx context.Context) ([]byte, error) { return f.manifest, nil }
func (f fakeSource) ReadCatalog(ctx context.Context) ([]byte, error)  { return f.catalog, nil }

var _ artifactsource.Source = fakeSource{}

// fakeAdapter replaces pg_query_go entirely: each test wires the exact
// ColumnResult a SQL Lineage Adapter call would have produced, so engine
// tests exercise the engines' own traversal logic in isolation from SQL
// parsing (which internal/sqllineage's own tests already cover against
// the real parser).
type fakeAdapter struct {
	// byCompiledSQL maps a model's compiled SQL verbatim to the
	// per-column result set any Lineage call against it should return.
	byCompiledSQL map[string]map[string]sqllineage.ColumnResult
	err           map[string]error
}

func (f *fakeAdapter) Lineage(req sqllineage.Request) (map[string]sqllineage.ColumnResult, error) {
	if err, ok := f.err[req.CompiledSQL]; ok {
		return nil, err
	}
	all, ok := f.byCompiledSQL[req.CompiledSQL]
	if !ok {
		return map[string]sqllineage.ColumnResult{}, nil
	}
	out := map[string]sqllineage.ColumnResult{}
	for _, col := range req.TargetColumns {
		if r, ok := all[col]; ok {
			out[col] = r
		}
	}
	return out, nil
}

func buildSnapshot(t *testing.T, manifest, catalog string) *dbtartifact.Snapshot {
	t.Helper()
	snap, err := dbtartifact.Load(context.Background(), fakeSource{manifest: []byte(manifest), catalog: []byte(catalog)}, slog.Default())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return snap
}

var errParse = errors.New("syntax error at or near \"FORM\"")
