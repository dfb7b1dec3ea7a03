// Package lineage implements the four lineage engines (Forward, Reverse,
// Table, CTE Decomposer) plus the Service that exposes them as a
// function-level API. Every engine call allocates its own Graph Builder,
// so calls share nothing but the process-wide Snapshot.
package lineage

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/maraichr/dbtlineage/internal/dbtartifact"
	"github.com/maraichr/dbtlineage/internal/engineconfig"
	"github.com/maraichr/dbtlineage/internal/sqllineage"
)

// Engine runs lineage traversals over a single, shared, read-only
// Snapshot. Each exported method allocates its own Graph Builder and
// returns a fresh Result; an Engine carries no per-request state of its
// own, so one instance may safely be reused across goroutines.
type Engine struct {
	snapshot *dbtartifact.Snapshot
	sla      sqllineage.Adapter
	logger   *slog.Logger

	// softDepthCap bounds unbounded (depth_limit == -1) traversals
	// against pathological recursion.
	softDepthCap int

	// dialect is the default SQL dialect attached to every SQL Lineage
	// Adapter request this engine issues.
	dialect string
}

// NewEngine builds an Engine over snapshot, using adapter as the SQL
// Lineage Adapter. A request-scoped correlation id (uuid) is attached to
// every log line an engine call emits.
func NewEngine(snapshot *dbtartifact.Snapshot, adapter sqllineage.Adapter, logger *slog.Logger, softDepthCap int) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if softDepthCap <= 0 {
		softDepthCap = 64
	}
	return &Engine{snapshot: snapshot, sla: adapter, logger: logger, softDepthCap: softDepthCap, dialect: "postgres"}
}

// NewEngineFromConfig builds an Engine the same way NewEngine does, but
// sources its soft depth cap and default SQL dialect from cfg instead of
// hardcoded defaults.
func NewEngineFromConfig(snapshot *dbtartifact.Snapshot, adapter sqllineage.Adapter, logger *slog.Logger, cfg *engineconfig.Config) *Engine {
	e := NewEngine(snapshot, adapter, logger, cfg.SoftDepthCap)
	if cfg.Dialect != "" {
		e.dialect = cfg.Dialect
	}
	return e
}

func (e *Engine) requestLogger() *slog.Logger {
	return e.logger.With(slog.String("request_id", uuid.NewString()))
}

// Unbounded is the depth_limit sentinel meaning "no bound".
const Unbounded = -1
