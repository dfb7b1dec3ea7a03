package lineage

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/maraichr/dbtlineage/internal/dbtartifact"
	"github.com/maraichr/dbtlineage/internal/identifier"
	"github.com/maraichr/dbtlineage/internal/sqllineage"
	"github.com/maraichr/dbtlineage/pkg/lineageerr"
	"github.com/maraichr/dbtlineage/pkg/lineagegraph"
)

// CTEResult is the CTE Decomposer's response payload.
type CTEResult struct {
	Nodes        []*lineagegraph.CTENode `json:"nodes"`
	Edges        []*lineagegraph.Edge    `json:"edges"`
	TableName    string                  `json:"tableName"`
	Materialized string                  `json:"materialized"`
	Query        string                  `json:"query"`
	Description  string                  `json:"description"`
	Columns      []string                `json:"columns"`
	EntireMeta   []lineagegraph.CTEMeta  `json:"entireMeta"`
}

// CTEDependency decomposes source's compiled SQL into its CTE dependency
// graph, optionally enriched with per-column lineage metadata when
// columns is non-empty.
func (e *Engine) CTEDependency(source string, columns []string) (CTEResult, error) {
	logger := e.requestLogger()

	node, ok := e.snapshot.FindNode(source)
	if !ok {
		logger.Error("lookup miss resolving source", slog.String("source", source))
		return CTEResult{}, lineageerr.NotFound("model not found: " + source)
	}
	if !node.IsLineageable() {
		return CTEResult{}, lineageerr.NotFound("no compiled sql for model: " + source)
	}

	catalogColumns := columnNames(e.snapshot.Columns(node.UniqueID))

	var entireMeta []lineagegraph.CTEMeta
	if len(columns) > 0 {
		schemaMap := toSchemaMap(e.snapshot.DependsOnTables(node.DependsOn))
		req := sqllineage.Request{
			Dialect:       e.dialect,
			CompiledSQL:   node.CompiledCode,
			TargetColumns: identifier.UpperAll(columns),
			Schema:        schemaMap,
			NeedMeta:      true,
		}
		res, err := e.sla.Lineage(req)
		if err != nil {
			logger.Error("sql lineage adapter failed", slog.String("source", source), slog.String("error", err.Error()))
		} else {
			for _, r := range res {
				entireMeta = append(entireMeta, r.Meta...)
			}
		}
	}

	ctes, _, err := sqllineage.Decompose(node.CompiledCode)
	if err != nil {
		logger.Error("cte decomposition parse failed", slog.String("source", source), slog.String("error", err.Error()))
		return CTEResult{
			TableName:    source,
			Materialized: node.Materialized,
			Query:        node.CompiledCode,
			Description:  node.Description,
			Columns:      catalogColumns,
		}, nil
	}

	builder := lineagegraph.NewBuilder()
	for _, cte := range ctes {
		cteNode := lineagegraph.NewCTENode(cte.Name)
		cteNode.Data.Meta = metaForReference(entireMeta, cte.Name)
		cteNode.Data.Groups = sqllineage.GroupTexts(cte.Stmt)
		cteNode.Data.Havings = sqllineage.HavingTexts(cte.Stmt)
		cteNode.Data.Wheres = sqllineage.WhereTexts(cte.Stmt)
		cteNode.Data.Unions = sqllineage.UnionTexts(cte.Stmt)
		cteNode.Data.Joins = sqllineage.JoinTexts(cte.Stmt)
		builder.UpsertCTENode(cteNode)

		for _, table := range sqllineage.ReferencedTables(cte.Stmt) {
			if table == "" || strings.EqualFold(table, cte.Name) {
				continue
			}
			builder.AddEdge(lineagegraph.NewCTEEdge(table, cte.Name))
		}
	}

	return CTEResult{
		Nodes:        builder.CTENodes(),
		Edges:        builder.Edges(),
		TableName:    source,
		Materialized: node.Materialized,
		Query:        node.CompiledCode,
		Description:  node.Description,
		Columns:      catalogColumns,
		EntireMeta:   entireMeta,
	}, nil
}

// columnNames extracts sorted column names from a catalog column map, so
// CTEResult.Columns reflects a model's full declared columns rather than
// whatever filter the caller passed in.
func columnNames(cols map[string]dbtartifact.Column) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, c.Name)
	}
	sort.Strings(out)
	return out
}

func metaForReference(all []lineagegraph.CTEMeta, reference string) []lineagegraph.CTEMeta {
	var out []lineagegraph.CTEMeta
	for _, m := range all {
		if strings.EqualFold(m.Reference, reference) {
			out = append(out, m)
		}
	}
	return out
}
