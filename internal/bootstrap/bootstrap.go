// Package bootstrap composes the lineage core's pieces — Snapshot,
// Engine, Service, and the two optional Domain Stack add-ons (response
// cache, graph visualization mirror) — from a single engineconfig.Config,
// the way cmd/api/main.go wires its own optional dependencies: connect,
// warn and continue without the feature on failure, never fail startup
// over an optional add-on.
package bootstrap

import (
	"context"
	"log/slog"

	"github.com/maraichr/dbtlineage/internal/artifactsource"
	"github.com/maraichr/dbtlineage/internal/dbtartifact"
	"github.com/maraichr/dbtlineage/internal/engineconfig"
	"github.com/maraichr/dbtlineage/internal/graphsync"
	"github.com/maraichr/dbtlineage/internal/lineage"
	"github.com/maraichr/dbtlineage/internal/lineagecache"
	"github.com/maraichr/dbtlineage/internal/sqllineage"
)

// Core bundles the composed service surface plus the optional add-ons
// that were successfully wired, so callers can Close them on shutdown.
type Core struct {
	Snapshot *dbtartifact.Snapshot
	Service  *lineage.Service
	Cache    *lineagecache.Cache // nil when Valkey is unreachable
	Mirror   *graphsync.Client   // nil when Neo4j is unreachable
}

// New loads the dbt artifacts from src, builds the Engine and Service
// using cfg's dialect and soft depth cap, and wires the response cache
// and graph visualization mirror when their backing stores are
// reachable. Both add-ons are optional: a connection failure only
// disables the feature, logged as a warning, never a fatal error.
func New(ctx context.Context, src artifactsource.Source, cfg *engineconfig.Config, logger *slog.Logger) (*Core, error) {
	if logger == nil {
		logger = slog.Default()
	}

	snapshot, err := dbtartifact.Load(ctx, src, logger)
	if err != nil {
		return nil, err
	}

	adapter := sqllineage.New(logger)
	engine := lineage.NewEngineFromConfig(snapshot, adapter, logger, cfg)

	core := &Core{Snapshot: snapshot}

	if mirror, err := graphsync.NewClient(cfg.Neo4j); err != nil {
		logger.Warn("neo4j connection failed, lineage graph mirroring disabled", slog.String("error", err.Error()))
	} else if err := mirror.EnsureConstraints(ctx); err != nil {
		logger.Warn("neo4j constraint setup failed, lineage graph mirroring disabled", slog.String("error", err.Error()))
	} else {
		core.Mirror = mirror
		logger.Info("connected to neo4j")
	}

	svc := lineage.NewServiceWithMirror(engine, core.Mirror)
	core.Service = svc

	if cfg.CacheTTL > 0 {
		if client, err := lineagecache.NewValkeyClient(cfg.Valkey); err != nil {
			logger.Warn("valkey connection failed, lineage response cache disabled", slog.String("error", err.Error()))
		} else {
			core.Cache = lineagecache.New(svc, client, cfg.CacheTTL, logger)
			logger.Info("connected to valkey")
		}
	}

	return core, nil
}

// Close releases the optional add-ons' resources. Safe to call on a Core
// whose add-ons never connected.
func (c *Core) Close(ctx context.Context) {
	if c.Mirror != nil {
		_ = c.Mirror.Close(ctx)
	}
}
