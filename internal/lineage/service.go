package lineage

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/maraichr/dbtlineage/internal/dbtartifact"
	"github.com/maraichr/dbtlineage/internal/graphsync"
	"github.com/maraichr/dbtlineage/internal/identifier"
	"github.com/maraichr/dbtlineage/pkg/lineagegraph"
)

// Service is the function-level API the core exposes to callers,
// stopping one layer short of HTTP — that transport is an external
// concern.
type Service struct {
	engine *Engine
	mirror *graphsync.Client
}

// NewService wraps engine as the external-facing API surface, with
// visualization mirroring disabled.
func NewService(engine *Engine) *Service {
	return &Service{engine: engine}
}

// NewServiceWithMirror wraps engine the same way NewService does, but
// also mirrors every lineage/CTE result it computes into mirror. A nil
// mirror behaves exactly like NewService.
func NewServiceWithMirror(engine *Engine, mirror *graphsync.Client) *Service {
	return &Service{engine: engine, mirror: mirror}
}

// mirrorResult writes result to Neo4j best-effort: mirroring is
// write-only and never feeds back into lineage semantics, so a failure
// here is logged and swallowed rather than surfaced to the caller.
func (s *Service) mirrorResult(result lineagegraph.Result) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.MirrorResult(context.Background(), result); err != nil {
		s.engine.logger.Error("graph visualization mirror failed", slog.String("error", err.Error()))
	}
}

// Option is a {value,label} pair used by list_schemas/list_columns.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// SourceGroup is one schema's grouped sources, as ListSources returns.
type SourceGroup struct {
	Label   string   `json:"label"`
	Options []Option `json:"options"`
}

// ColumnOption is one list_columns entry.
type ColumnOption struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// ListSchemas returns every schema containing at least one model of the
// current project with non-empty declared columns, sorted by name.
func (s *Service) ListSchemas() []Option {
	seen := map[string]bool{}
	for _, n := range s.engine.snapshot.AllModelNodes() {
		if len(n.Columns) == 0 || n.PackageName != s.engine.snapshot.ProjectName {
			continue
		}
		seen[n.Schema] = true
	}
	out := make([]Option, 0, len(seen))
	for schema := range seen {
		out = append(out, Option{Value: schema, Label: schema})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// ListSources groups a schema's models by their fqn[2:-1] path joined by
// "/", each with its aliases as options, both levels sorted by label.
func (s *Service) ListSources(schema string) []SourceGroup {
	groups := map[string][]Option{}
	for _, n := range s.engine.snapshot.AllModelNodes() {
		if !identifier.EqualFold(n.Schema, schema) || len(n.Columns) == 0 {
			continue
		}
		label := fqnGroupLabel(n.FQN)
		alias := n.Alias
		if alias == "" {
			alias = n.Name
		}
		groups[label] = append(groups[label], Option{Value: alias, Label: alias})
	}

	out := make([]SourceGroup, 0, len(groups))
	for label, opts := range groups {
		sort.Slice(opts, func(i, j int) bool { return opts[i].Label < opts[j].Label })
		out = append(out, SourceGroup{Label: label, Options: opts})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

func fqnGroupLabel(fqn []string) string {
	if len(fqn) <= 3 {
		return ""
	}
	return strings.Join(fqn[2:len(fqn)-1], "/")
}

// ListColumns returns the declared columns of source within schema.
func (s *Service) ListColumns(source, schema string) []ColumnOption {
	node := s.engine.snapshot.FindModelByAliasAndSchema(source, schema)
	if node == nil {
		return nil
	}
	return columnOptions(node)
}

// ListColumnsByAlias is a one-argument convenience: it scans every
// schema and returns the first alias match rather than rejecting
// ambiguous ones.
func (s *Service) ListColumnsByAlias(source string) []ColumnOption {
	node := s.engine.snapshot.FindModelByAlias(source)
	if node == nil {
		return nil
	}
	return columnOptions(node)
}

func columnOptions(node interface {
	ColumnDetails() []dbtartifact.Column
}) []ColumnOption {
	cols := node.ColumnDetails()
	sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })
	out := make([]ColumnOption, 0, len(cols))
	for _, c := range cols {
		out = append(out, ColumnOption{Value: c.Name, Label: c.Name, Description: c.Description})
	}
	return out
}

// ForwardLineage is the external-interface form of Engine.Forward.
func (s *Service) ForwardLineage(source, column string, depth int) lineagegraph.Result {
	result := s.engine.Forward(source, column, depth)
	s.mirrorResult(result)
	return result
}

// ReverseLineage is the external-interface form of Engine.Reverse.
func (s *Service) ReverseLineage(source, column string) lineagegraph.Result {
	result := s.engine.Reverse(source, column)
	s.mirrorResult(result)
	return result
}

// TableLineage is the external-interface form of Engine.Table.
func (s *Service) TableLineage(source string, reverse bool, depth int) lineagegraph.Result {
	result := s.engine.Table(source, reverse, depth)
	s.mirrorResult(result)
	return result
}

// CTEDependencyOp is the external-interface form of Engine.CTEDependency.
func (s *Service) CTEDependencyOp(source string, columns []string) (CTEResult, error) {
	result, err := s.engine.CTEDependency(source, columns)
	if err == nil && s.mirror != nil {
		if mErr := s.mirror.MirrorCTEResult(context.Background(), result.Nodes, result.Edges); mErr != nil {
			s.engine.logger.Error("graph visualization mirror failed", slog.String("error", mErr.Error()))
		}
	}
	return result, err
}
