package sqllineage

import (
	"strconv"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// CTE is one named subquery found in a model's compiled SQL, in
// declaration order.
type CTE struct {
	Name  string
	Stmt  *pg_query.SelectStmt
	Order int
}

// Decompose parses compiledSQL and returns its CTEs in declaration order
// plus the outer query's own SELECT (for the final "query" text the
// caller may want to report). A query with no WITH clause yields an
// empty CTE list, not an error — CTED still reports the outer query.
func Decompose(compiledSQL string) (ctes []CTE, outer *pg_query.SelectStmt, err error) {
	tree, perr := pg_query.Parse(compiledSQL)
	if perr != nil {
		return nil, nil, perr
	}
	sel, ok := outermostSelect(tree)
	if !ok {
		return nil, nil, nil
	}
	if sel.WithClause == nil {
		return nil, sel, nil
	}
	for i, n := range sel.WithClause.Ctes {
		cte := n.GetCommonTableExpr()
		if cte == nil || cte.Ctequery == nil {
			continue
		}
		if body := cte.Ctequery.GetSelectStmt(); body != nil {
			ctes = append(ctes, CTE{Name: cte.Ctename, Stmt: body, Order: i})
		}
	}
	return ctes, sel, nil
}

// ReferencedTables returns the bare, lower-cased table/CTE names directly
// referenced in stmt's FROM clause — used to build CTE→table edges.
func ReferencedTables(stmt *pg_query.SelectStmt) []string {
	var out []string
	seen := map[string]bool{}
	for _, from := range stmt.FromClause {
		collectFromNames(from, &out, seen)
	}
	return out
}

func collectFromNames(node *pg_query.Node, out *[]string, seen map[string]bool) {
	if node == nil {
		return
	}
	if rv := node.GetRangeVar(); rv != nil {
		name := strings.ToLower(rv.Relname)
		if !seen[name] {
			seen[name] = true
			*out = append(*out, name)
		}
		return
	}
	if jt := node.GetJoinExpr(); jt != nil {
		collectFromNames(jt.Larg, out, seen)
		collectFromNames(jt.Rarg, out, seen)
		return
	}
	if sub := node.GetRangeSubselect(); sub != nil {
		if sel := sub.Subquery.GetSelectStmt(); sel != nil {
			for _, inner := range sel.FromClause {
				collectFromNames(inner, out, seen)
			}
		}
	}
}

// JoinTexts renders each join condition in stmt's FROM clause to a short
// SQL fragment, for the CTE node's data.joins list.
func JoinTexts(stmt *pg_query.SelectStmt) []string {
	var out []string
	for _, from := range stmt.FromClause {
		collectJoinTexts(from, &out)
	}
	return out
}

func collectJoinTexts(node *pg_query.Node, out *[]string) {
	if node == nil {
		return
	}
	if jt := node.GetJoinExpr(); jt != nil {
		if jt.Quals != nil {
			*out = append(*out, exprText(jt.Quals))
		}
		collectJoinTexts(jt.Larg, out)
		collectJoinTexts(jt.Rarg, out)
	}
}

// WhereTexts renders stmt's WHERE clause (if any) as a list with one
// element per top-level AND conjunct; nil when there is no WHERE clause.
func WhereTexts(stmt *pg_query.SelectStmt) []string {
	return conjunctTexts(stmt.WhereClause)
}

// HavingTexts renders stmt's HAVING clause the same way as WhereTexts.
func HavingTexts(stmt *pg_query.SelectStmt) []string {
	return conjunctTexts(stmt.HavingClause)
}

func conjunctTexts(node *pg_query.Node) []string {
	if node == nil {
		return nil
	}
	if bo := node.GetBoolExpr(); bo != nil && bo.Boolop == pg_query.BoolExprType_AND_EXPR {
		var out []string
		for _, arg := range bo.Args {
			out = append(out, conjunctTexts(arg)...)
		}
		return out
	}
	return []string{exprText(node)}
}

// GroupTexts renders stmt's GROUP BY expressions.
func GroupTexts(stmt *pg_query.SelectStmt) []string {
	var out []string
	for _, g := range stmt.GroupClause {
		out = append(out, exprText(g))
	}
	return out
}

// UnionTexts renders the SQL text of each branch of stmt, if it is a
// UNION/INTERSECT/EXCEPT; a plain SELECT yields nil.
func UnionTexts(stmt *pg_query.SelectStmt) []string {
	if stmt.Op == pg_query.SetOperation_SETOP_NONE || stmt.Op == 0 {
		return nil
	}
	var out []string
	if stmt.Larg != nil {
		out = append(out, selectText(stmt.Larg))
	}
	if stmt.Rarg != nil {
		out = append(out, selectText(stmt.Rarg))
	}
	return out
}

// selectText renders a branch of a set operation as "SELECT <targets>
// FROM <tables>", recursing when the branch is itself a nested set
// operation.
func selectText(stmt *pg_query.SelectStmt) string {
	if stmt == nil {
		return ""
	}
	if stmt.Op != pg_query.SetOperation_SETOP_NONE && stmt.Op != 0 {
		op := "UNION"
		switch stmt.Op {
		case pg_query.SetOperation_SETOP_INTERSECT:
			op = "INTERSECT"
		case pg_query.SetOperation_SETOP_EXCEPT:
			op = "EXCEPT"
		}
		return selectText(stmt.Larg) + " " + op + " " + selectText(stmt.Rarg)
	}
	var targets []string
	for _, t := range stmt.TargetList {
		if rt := t.GetResTarget(); rt != nil {
			targets = append(targets, exprText(rt.Val))
		}
	}
	text := "SELECT " + strings.Join(targets, ", ")
	if tables := ReferencedTables(stmt); len(tables) > 0 {
		text += " FROM " + strings.Join(tables, ", ")
	}
	return text
}

// exprText is a best-effort, self-contained stringifier for the small
// subset of expression nodes CTE metadata needs to render (identifiers,
// literals, binary operators, function calls) — not a general SQL
// deparser.
func exprText(node *pg_query.Node) string {
	if node == nil {
		return ""
	}
	if cr := node.GetColumnRef(); cr != nil {
		var parts []string
		for _, f := range cr.Fields {
			if s := f.GetString_(); s != nil {
				parts = append(parts, s.Sval)
			} else if f.GetAStar() != nil {
				parts = append(parts, "*")
			}
		}
		return strings.Join(parts, ".")
	}
	if ac := node.GetAConst(); ac != nil {
		return aConstText(ac)
	}
	if ae := node.GetAExpr(); ae != nil {
		op := ""
		for _, n := range ae.Name {
			if s := n.GetString_(); s != nil {
				op = s.Sval
			}
		}
		return exprText(ae.Lexpr) + " " + op + " " + exprText(ae.Rexpr)
	}
	if fc := node.GetFuncCall(); fc != nil {
		var nameParts []string
		for _, n := range fc.Funcname {
			if s := n.GetString_(); s != nil && s.Sval != "pg_catalog" {
				nameParts = append(nameParts, s.Sval)
			}
		}
		var args []string
		for _, a := range fc.Args {
			args = append(args, exprText(a))
		}
		return strings.ToUpper(strings.Join(nameParts, ".")) + "(" + strings.Join(args, ", ") + ")"
	}
	if bo := node.GetBoolExpr(); bo != nil {
		var args []string
		for _, a := range bo.Args {
			args = append(args, exprText(a))
		}
		sep := " AND "
		if bo.Boolop == pg_query.BoolExprType_OR_EXPR {
			sep = " OR "
		} else if bo.Boolop == pg_query.BoolExprType_NOT_EXPR {
			return "NOT " + strings.Join(args, "")
		}
		return strings.Join(args, sep)
	}
	return "EXPR"
}

func aConstText(ac *pg_query.A_Const) string {
	if iv := ac.GetIval(); iv != nil {
		return strconv.FormatInt(int64(iv.Ival), 10)
	}
	if sv := ac.GetSval(); sv != nil {
		return "'" + sv.Sval + "'"
	}
	if fv := ac.GetFval(); fv != nil {
		return fv.Fval
	}
	if ac.Isnull {
		return "NULL"
	}
	return ""
}
