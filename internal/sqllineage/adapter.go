package sqllineage

import (
	"log/slog"
	"sort"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// PgQueryAdapter implements Adapter over pg_query_go's Postgres grammar.
// pg_query_go only parses; the column-lineage walk over its parse tree
// (scope construction, alias resolution, recursive column-ref
// collection) is this package's own.
type PgQueryAdapter struct {
	logger *slog.Logger
}

// New returns a pg_query_go-backed SQL Lineage Adapter.
func New(logger *slog.Logger) *PgQueryAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PgQueryAdapter{logger: logger}
}

// Lineage parses req.CompiledSQL once and resolves every requested column
// independently against it. A parse failure or a per-column resolution
// failure yields an empty result for the affected column(s), never an
// error returned to the caller.
func (a *PgQueryAdapter) Lineage(req Request) (map[string]ColumnResult, error) {
	out := make(map[string]ColumnResult, len(req.TargetColumns))

	tree, err := pg_query.Parse(req.CompiledSQL)
	if err != nil {
		a.logger.Error("sql parse failed", slog.String("error", err.Error()))
		for _, c := range req.TargetColumns {
			out[c] = ColumnResult{}
		}
		return out, nil
	}

	outer, ok := outermostSelect(tree)
	if !ok {
		a.logger.Error("no SELECT statement found in compiled sql")
		for _, c := range req.TargetColumns {
			out[c] = ColumnResult{}
		}
		return out, nil
	}

	ctes := collectCTEs(outer)
	rootScope := newScope(outer, ctes, "")

	for _, col := range req.TargetColumns {
		w := newWalker(req.Schema, req.NeedMeta)
		if err := w.resolveColumn(rootScope, col); err != nil {
			a.logger.Error("column lineage failed",
				slog.String("column", col), slog.String("error", err.Error()))
			out[col] = ColumnResult{}
			continue
		}
		out[col] = w.result()
	}
	return out, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// outermostSelect returns the top-level SELECT statement of a parsed
// single-statement SQL body.
func outermostSelect(tree *pg_query.ParseResult) (*pg_query.SelectStmt, bool) {
	for _, raw := range tree.Stmts {
		if raw.Stmt == nil {
			continue
		}
		if sel := raw.Stmt.GetSelectStmt(); sel != nil {
			return sel, true
		}
	}
	return nil, false
}
