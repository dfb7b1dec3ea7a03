package sqllineage

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/maraichr/dbtlineage/internal/identifier"
	"github.com/maraichr/dbtlineage/pkg/lineagegraph"
)

// scope is one SELECT's resolvable name space: its alias map (table/CTE/
// subquery references reachable from its FROM clause) plus the CTE
// definitions visible to it.
type scope struct {
	stmt  *pg_query.SelectStmt
	alias map[string]aliasTarget // lower-cased alias/relname -> target
	ctes  map[string]*pg_query.SelectStmt
	name  string // enclosing CTE/select name, "" for the outermost query
}

type targetKind int

const (
	targetTable targetKind = iota
	targetCTE
	targetSubquery
)

type aliasTarget struct {
	kind     targetKind
	bareName string // upper-case bare table name, for targetTable
	schema   string // upper-case schema name, if known
	cteStmt  *pg_query.SelectStmt
	cteName  string
	subStmt  *pg_query.SelectStmt
	subName  string
}

func newScope(stmt *pg_query.SelectStmt, ctes map[string]*pg_query.SelectStmt, name string) *scope {
	s := &scope{stmt: stmt, ctes: ctes, name: name, alias: map[string]aliasTarget{}}
	for _, from := range stmt.FromClause {
		s.indexFromItem(from)
	}
	return s
}

func (s *scope) indexFromItem(node *pg_query.Node) {
	if node == nil {
		return
	}
	if rv := node.GetRangeVar(); rv != nil {
		key := strings.ToLower(rv.Relname)
		aliasKey := key
		if rv.Alias != nil && rv.Alias.Aliasname != "" {
			aliasKey = strings.ToLower(rv.Alias.Aliasname)
		}
		if cte, ok := s.ctes[key]; ok {
			s.alias[aliasKey] = aliasTarget{kind: targetCTE, cteStmt: cte, cteName: rv.Relname}
			return
		}
		s.alias[aliasKey] = aliasTarget{
			kind:     targetTable,
			bareName: identifier.Upper(rv.Relname),
			schema:   identifier.Upper(rv.Schemaname),
		}
		return
	}
	if jt := node.GetJoinExpr(); jt != nil {
		s.indexFromItem(jt.Larg)
		s.indexFromItem(jt.Rarg)
		return
	}
	if sub := node.GetRangeSubselect(); sub != nil {
		if sel := sub.Subquery.GetSelectStmt(); sel != nil {
			aliasKey := ""
			if sub.Alias != nil {
				aliasKey = strings.ToLower(sub.Alias.Aliasname)
			}
			if aliasKey != "" {
				s.alias[aliasKey] = aliasTarget{kind: targetSubquery, subStmt: sel, subName: sub.Alias.Aliasname}
			}
		}
	}
}

func (s *scope) soleAlias() (aliasTarget, bool) {
	if len(s.alias) != 1 {
		return aliasTarget{}, false
	}
	for _, v := range s.alias {
		return v, true
	}
	return aliasTarget{}, false
}

// collectCTEs walks stmt's WithClause (if any) in declaration order,
// returning a name-keyed map for resolution. The caller that needs
// declaration order for CTE decomposition uses Decompose instead.
func collectCTEs(stmt *pg_query.SelectStmt) map[string]*pg_query.SelectStmt {
	out := map[string]*pg_query.SelectStmt{}
	if stmt.WithClause == nil {
		return out
	}
	for _, n := range stmt.WithClause.Ctes {
		cte := n.GetCommonTableExpr()
		if cte == nil || cte.Ctequery == nil {
			continue
		}
		if sel := cte.Ctequery.GetSelectStmt(); sel != nil {
			out[strings.ToLower(cte.Ctename)] = sel
		}
	}
	return out
}

// columnRef is a bare or alias-qualified column reference found while
// walking an expression.
type columnRef struct {
	alias  string // "" if unqualified
	column string
}

// walker accumulates one target column's lineage result while resolving
// it, possibly across nested CTE/subquery scopes.
type walker struct {
	schema   SchemaMap
	needMeta bool
	visited  map[string]bool // "<scope.name>:<column>" guard against CTE recursion

	labels  map[string]bool
	columns map[string]bool
	meta    []lineagegraph.CTEMeta
}

func newWalker(schema SchemaMap, needMeta bool) *walker {
	return &walker{
		schema:   schema,
		needMeta: needMeta,
		visited:  map[string]bool{},
		labels:   map[string]bool{},
		columns:  map[string]bool{},
	}
}

func (w *walker) result() ColumnResult {
	return ColumnResult{
		Labels:  sortedKeys(w.labels),
		Columns: sortedKeys(w.columns),
		Meta:    w.meta,
	}
}

// resolveColumn finds col's defining expression in scope's target list
// and walks it, recursing into CTE/subquery scopes it references.
func (w *walker) resolveColumn(sc *scope, col string) error {
	visitKey := sc.name + ":" + strings.ToLower(col)
	if w.visited[visitKey] {
		return nil
	}
	w.visited[visitKey] = true

	expr, ok := findTargetExpr(sc.stmt, col)
	if !ok {
		return fmt.Errorf("column %q not found in target list of %q", col, scopeLabel(sc))
	}

	refs := collectColumnRefs(expr)

	var nextColumns []string
	var nextSources []lineagegraph.SchemaPair

	// Every ref collected at this level belongs to a non-table derivation
	// step (the expression defining col itself) — it always contributes
	// to `columns`, regardless of what it ultimately resolves to. Refs
	// that resolve to a table additionally become lineage-tree leaves
	// (`labels`); refs resolving to a CTE/subquery recurse one level
	// deeper to keep walking toward the eventual table leaves.
	for _, ref := range refs {
		target, ok := sc.resolveAlias(ref.alias)
		if !ok {
			continue
		}
		w.columns[ref.column] = true
		nextColumns = append(nextColumns, ref.column)

		switch target.kind {
		case targetTable:
			w.labels[target.bareName] = true
			nextSources = append(nextSources, lineagegraph.SchemaPair{Schema: target.schema, Table: target.bareName})
		case targetCTE:
			nextSources = append(nextSources, lineagegraph.SchemaPair{Table: target.cteName})
			childScope := newScope(target.cteStmt, sc.ctes, target.cteName)
			_ = w.resolveColumn(childScope, ref.column)
		case targetSubquery:
			nextSources = append(nextSources, lineagegraph.SchemaPair{Table: target.subName})
			childScope := newScope(target.subStmt, sc.ctes, target.subName)
			_ = w.resolveColumn(childScope, ref.column)
		}
	}

	if w.needMeta {
		w.meta = append(w.meta, lineagegraph.CTEMeta{
			Column:      col,
			NextColumns: nextColumns,
			NextSources: nextSources,
			Reference:   sc.name,
		})
	}
	return nil
}

func (s *scope) resolveAlias(alias string) (aliasTarget, bool) {
	if alias == "" {
		return s.soleAlias()
	}
	t, ok := s.alias[strings.ToLower(alias)]
	return t, ok
}

func scopeLabel(s *scope) string {
	if s.name == "" {
		return "<root>"
	}
	return s.name
}

// findTargetExpr returns the expression backing the SELECT target named
// col — matched against its explicit alias, falling back to the bare
// column name of a direct column reference with no alias.
func findTargetExpr(stmt *pg_query.SelectStmt, col string) (*pg_query.Node, bool) {
	for _, t := range stmt.TargetList {
		rt := t.GetResTarget()
		if rt == nil || rt.Val == nil {
			continue
		}
		if rt.Name != "" {
			if identifier.EqualFold(rt.Name, col) {
				return rt.Val, true
			}
			continue
		}
		if cr := rt.Val.GetColumnRef(); cr != nil {
			if name, ok := lastField(cr); ok && identifier.EqualFold(name, col) {
				return rt.Val, true
			}
		}
	}
	return nil, false
}

func lastField(cr *pg_query.ColumnRef) (string, bool) {
	if len(cr.Fields) == 0 {
		return "", false
	}
	last := cr.Fields[len(cr.Fields)-1]
	if s := last.GetString_(); s != nil {
		return s.Sval, true
	}
	return "", false
}

// collectColumnRefs walks an expression node collecting every column
// reference it contains.
func collectColumnRefs(node *pg_query.Node) []columnRef {
	var out []columnRef
	walkExprColumns(node, &out)
	return out
}

func walkExprColumns(node *pg_query.Node, out *[]columnRef) {
	if node == nil {
		return
	}
	if cr := node.GetColumnRef(); cr != nil {
		if ref, ok := columnRefFromFields(cr); ok {
			*out = append(*out, ref)
		}
		return
	}
	if fc := node.GetFuncCall(); fc != nil {
		for _, arg := range fc.Args {
			walkExprColumns(arg, out)
		}
		return
	}
	if tc := node.GetTypeCast(); tc != nil {
		walkExprColumns(tc.Arg, out)
		return
	}
	if ae := node.GetAExpr(); ae != nil {
		walkExprColumns(ae.Lexpr, out)
		walkExprColumns(ae.Rexpr, out)
		return
	}
	if ce := node.GetCaseExpr(); ce != nil {
		for _, when := range ce.Args {
			if cw := when.GetCaseWhen(); cw != nil {
				walkExprColumns(cw.Expr, out)
				walkExprColumns(cw.Result, out)
			}
		}
		walkExprColumns(ce.Defresult, out)
		return
	}
	if co := node.GetCoalesceExpr(); co != nil {
		for _, arg := range co.Args {
			walkExprColumns(arg, out)
		}
		return
	}
	if bo := node.GetBoolExpr(); bo != nil {
		for _, arg := range bo.Args {
			walkExprColumns(arg, out)
		}
		return
	}
	if sub := node.GetSubLink(); sub != nil {
		if sel := sub.Subselect.GetSelectStmt(); sel != nil {
			for _, t := range sel.TargetList {
				if rt := t.GetResTarget(); rt != nil {
					walkExprColumns(rt.Val, out)
				}
			}
		}
		return
	}
}

func columnRefFromFields(cr *pg_query.ColumnRef) (columnRef, bool) {
	var parts []string
	for _, f := range cr.Fields {
		if s := f.GetString_(); s != nil {
			parts = append(parts, s.Sval)
		} else if f.GetAStar() != nil {
			parts = append(parts, "*")
		}
	}
	if len(parts) == 0 {
		return columnRef{}, false
	}
	if len(parts) == 1 {
		return columnRef{column: parts[0]}, true
	}
	return columnRef{alias: parts[len(parts)-2], column: parts[len(parts)-1]}, true
}
