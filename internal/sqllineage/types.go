// Package sqllineage is the SQL Lineage Adapter: a thin contract over
// pg_query_go's Postgres parser. pg_query_go only parses — this package
// owns the column-lineage walk over the resulting tree.
package sqllineage

import "github.com/maraichr/dbtlineage/pkg/lineagegraph"

// TableSchema is a table's column→type map as the adapter sees it;
// absent types default to "STRING".
type TableSchema map[string]string

// SchemaMap keys TableSchema by the upper-cased
// "<DATABASE>.<SCHEMA>.<NAME>" table_ref (dbtartifact.TableRef.String()).
type SchemaMap map[string]TableSchema

// Request is the SLA input.
type Request struct {
	Dialect       string
	CompiledSQL   string
	TargetColumns []string
	Schema        SchemaMap
	NeedMeta      bool
}

// ColumnResult is the SLA output for a single target column.
type ColumnResult struct {
	// Labels holds upper-case bare table names that are lineage-tree
	// leaves — table references with nothing further downstream.
	Labels []string
	// Columns holds column identifiers referenced inside non-table
	// (CTE/subquery) lineage nodes, as written in the source.
	Columns []string
	// Meta is populated only when Request.NeedMeta is true (CTE mode).
	Meta []lineagegraph.CTEMeta
}

// Adapter is the SLA contract: parse compiled SQL once and resolve the
// lineage of each target column against the given schema.
type Adapter interface {
	Lineage(req Request) (map[string]ColumnResult, error)
}
