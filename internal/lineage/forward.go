package lineage

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/maraichr/dbtlineage/internal/dbtartifact"
	"github.com/maraichr/dbtlineage/internal/identifier"
	"github.com/maraichr/dbtlineage/internal/sqllineage"
	"github.com/maraichr/dbtlineage/pkg/lineagegraph"
)

// Forward computes the forward (upstream) column lineage of source.column,
// honoring depthLimit (Unbounded for no bound).
func (e *Engine) Forward(source, column string, depthLimit int) lineagegraph.Result {
	logger := e.requestLogger()
	fw := &forwardWalker{
		engine:     e,
		logger:     logger,
		builder:    lineagegraph.NewBuilder(),
		depthLimit: depthLimit,
		visited:    map[string]bool{},
	}
	fw.step("", strings.ToLower(source), "", []string{column}, 0)
	return fw.builder.Result()
}

type forwardWalker struct {
	engine     *Engine
	logger     *slog.Logger
	builder    *lineagegraph.Builder
	depthLimit int
	visited    map[string]bool
}

// step is the forward lineage engine's recursive step, returning whether
// it recursed into any upstream model. When the resolved node has no
// upstream to recurse into and the walk is unbounded, step itself marks
// it as a traversal-terminal node (Data.Last).
func (fw *forwardWalker) step(baseSource, nextSource, baseColumn string, nextColumns []string, depth int) bool {
	if depth > fw.engine.softDepthCap {
		fw.logger.Error("soft recursion depth cap hit", slog.String("source", nextSource), slog.Int("depth", depth))
		return false
	}
	visitKey := fmt.Sprintf("%s|%s|%d", strings.ToLower(nextSource), strings.ToLower(baseColumn), depth)
	if fw.visited[visitKey] {
		return false
	}
	fw.visited[visitKey] = true

	node, ok := fw.engine.snapshot.FindNode(nextSource)
	if !ok {
		fw.logger.Error("lookup miss resolving model", slog.String("source", nextSource))
		return false
	}

	declared := node.ColumnNames()
	if cat, ok := fw.engine.snapshot.FindCatalog(nextSource); ok && len(cat.Columns) > 0 {
		declared = declaredNames(cat.Columns)
	}
	filtered := identifier.FilterColumns(nextColumns, declared)

	nodeID := identifier.Hash(nextSource)
	graphNode := fw.builder.UpsertNode(lineagegraph.NewNode(nodeID, nextSource, node.Schema, node.Materialized))
	for _, c := range filtered {
		graphNode.AddColumn(c)
	}

	if baseSource != "" && len(filtered) > 0 && !identifier.EqualFold(baseSource, nextSource) {
		baseID := identifier.Hash(baseSource)
		for _, c := range filtered {
			fw.builder.AddEdge(lineagegraph.NewColumnEdge(baseID, nodeID, baseColumn, c))
		}
	}

	if !node.IsLineageable() {
		if fw.depthLimit == Unbounded {
			graphNode.Data.Last = true
		}
		return false
	}

	schemaMap := toSchemaMap(fw.engine.snapshot.DependsOnTables(node.DependsOn))
	req := sqllineage.Request{
		Dialect:       fw.engine.dialect,
		CompiledSQL:   node.CompiledCode,
		TargetColumns: identifier.UpperAll(filtered),
		Schema:        schemaMap,
	}
	res, err := fw.engine.sla.Lineage(req)
	if err != nil {
		fw.logger.Error("sql lineage adapter failed", slog.String("source", nextSource), slog.String("error", err.Error()))
		if fw.depthLimit == Unbounded {
			graphNode.Data.Last = true
		}
		return false
	}

	if fw.depthLimit != Unbounded && depth+1 > fw.depthLimit {
		return false
	}

	recursedAny := false
	for afterBaseColumn, result := range res {
		for _, label := range result.Labels {
			recursedAny = true
			fw.step(nextSource, strings.ToLower(label), afterBaseColumn, result.Columns, depth+1)
		}
	}

	if !recursedAny && fw.depthLimit == Unbounded {
		if n, ok := fw.builder.FindNodeByName(nextSource); ok {
			n.Data.Last = true
		}
	}
	return recursedAny
}

func declaredNames(cols map[string]dbtartifact.Column) []string {
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name)
	}
	return names
}

func toSchemaMap(deps []dbtartifact.DependencyColumns) sqllineage.SchemaMap {
	out := make(sqllineage.SchemaMap, len(deps))
	for _, d := range deps {
		cols := make(sqllineage.TableSchema, len(d.Columns))
		for _, c := range d.Columns {
			typ := c.Type
			if typ == "" {
				typ = "STRING"
			}
			cols[strings.ToUpper(c.Name)] = typ
		}
		out[d.TableRef.String()] = cols
	}
	return out
}
