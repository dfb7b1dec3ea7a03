package lineage

import (
	"log/slog"
	"strings"

	"github.com/maraichr/dbtlineage/internal/identifier"
	"github.com/maraichr/dbtlineage/internal/sqllineage"
	"github.com/maraichr/dbtlineage/pkg/lineagegraph"
)

// Reverse computes the reverse (downstream) column lineage of
// source.columnUp: every child model that consumes that column.
func (e *Engine) Reverse(source, columnUp string) lineagegraph.Result {
	logger := e.requestLogger()
	builder := lineagegraph.NewBuilder()

	uid, ok := e.snapshot.UniqueIDFor(source)
	if !ok {
		logger.Error("lookup miss resolving source", slog.String("source", source))
		return builder.Result()
	}

	sourceBare := strings.ToUpper(source)

	for _, childUID := range e.snapshot.Children(uid) {
		child, ok := e.snapshot.FindNodeByUniqueID(childUID)
		if !ok || !child.IsLineageable() {
			continue
		}

		schemaMap := toSchemaMap(e.snapshot.DependsOnTables(child.DependsOn))
		if !dependsOnTable(schemaMap, sourceBare) {
			continue
		}

		declared := child.ColumnNames()
		if cat, ok := e.snapshot.FindCatalogByUniqueID(childUID); ok && len(cat.Columns) > 0 {
			declared = declaredNames(cat.Columns)
		}
		if len(declared) == 0 {
			continue
		}

		req := sqllineage.Request{
			Dialect:       e.dialect,
			CompiledSQL:   child.CompiledCode,
			TargetColumns: identifier.UpperAll(declared),
			Schema:        schemaMap,
		}
		res, err := e.sla.Lineage(req)
		if err != nil {
			logger.Error("sql lineage adapter failed", slog.String("source", child.Name), slog.String("error", err.Error()))
			continue
		}

		childName := child.Name
		var admitted []string
		for rcUpper, result := range res {
			if !identifier.ContainsFold(result.Labels, sourceBare) {
				continue
			}
			if !identifier.ContainsFold(result.Columns, columnUp) {
				continue
			}
			admitted = append(admitted, rcUpper)
		}
		if len(admitted) == 0 {
			continue
		}

		childID := identifier.Hash(strings.ToLower(childName))
		graphNode := builder.UpsertNode(lineagegraph.NewNode(childID, childName, child.Schema, child.Materialized))
		sourceID := identifier.Hash(strings.ToLower(source))
		for _, rc := range admitted {
			graphNode.AddColumn(rc)
			builder.AddEdge(&lineagegraph.Edge{
				ID:           childID + "-" + sourceID + "-" + rc + "-" + columnUp,
				Source:       childID,
				Target:       sourceID,
				SourceHandle: rc + "__source",
				TargetHandle: columnUp + "__target",
			})
		}
	}

	return builder.Result()
}

func dependsOnTable(schema sqllineage.SchemaMap, bareName string) bool {
	for ref := range schema {
		if strings.HasSuffix(ref, "."+bareName) || ref == bareName {
			return true
		}
	}
	return false
}
