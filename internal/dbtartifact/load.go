package dbtartifact

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/maraichr/dbtlineage/internal/artifactsource"
	"github.com/maraichr/dbtlineage/pkg/lineageerr"
)

// Snapshot is the immutable, process-wide artifact state: built once per
// process, after which reads require no locking. Build it with Load and
// share the pointer across requests; nothing in this package mutates a
// Snapshot after Load returns.
type Snapshot struct {
	ProjectName string

	nodes   map[string]*ModelNode
	sources map[string]*SourceNode
	catalog map[string]*CatalogEntry

	childMap  map[string][]string
	parentMap map[string][]string

	logger *slog.Logger
}

// rawManifest mirrors the subset of target/manifest.json the core reads.
type rawManifest struct {
	Metadata struct {
		ProjectName string `json:"project_name"`
	} `json:"metadata"`
	Nodes     map[string]rawManifestNode   `json:"nodes"`
	Sources   map[string]rawManifestSource `json:"sources"`
	ChildMap  map[string][]string          `json:"child_map"`
	ParentMap map[string][]string          `json:"parent_map"`
}

type rawManifestNode struct {
	UniqueID     string               `json:"unique_id"`
	Name         string               `json:"name"`
	Alias        string               `json:"alias"`
	Schema       string               `json:"schema"`
	Database     string               `json:"database"`
	ResourceType string               `json:"resource_type"`
	FQN          []string             `json:"fqn"`
	PackageName  string               `json:"package_name"`
	CompiledCode string               `json:"compiled_code,omitempty"`
	Description  string               `json:"description,omitempty"`
	Columns      map[string]rawColumn `json:"columns"`
	DependsOn    rawDependsOn         `json:"depends_on"`
	Config       rawNodeConfig        `json:"config,omitempty"`
}

// rawNodeConfig mirrors the subset of a manifest node's config block the
// core reads; materialized lives here, not on the node itself.
type rawNodeConfig struct {
	Materialized string `json:"materialized,omitempty"`
}

type rawDependsOn struct {
	Nodes []string `json:"nodes"`
}

type rawManifestSource struct {
	UniqueID string               `json:"unique_id"`
	Name     string               `json:"name"`
	Schema   string               `json:"schema"`
	Database string               `json:"database"`
	FQN      []string             `json:"fqn"`
	Columns  map[string]rawColumn `json:"columns"`
}

type rawColumn struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	DataType    string `json:"data_type,omitempty"`
}

type rawCatalog struct {
	Nodes map[string]rawCatalogNode `json:"nodes"`
}

type rawCatalogNode struct {
	Columns map[string]rawCatalogColumn `json:"columns"`
}

type rawCatalogColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Load reads manifest.json and catalog.json from src and builds a
// Snapshot. Missing or unparsable files are a fatal ConfigError.
func Load(ctx context.Context, src artifactsource.Source, logger *slog.Logger) (*Snapshot, error) {
	if logger == nil {
		logger = slog.Default()
	}

	manifestBytes, err := src.ReadManifest(ctx)
	if err != nil {
		return nil, lineageerr.Config("reading manifest.json", err)
	}
	catalogBytes, err := src.ReadCatalog(ctx)
	if err != nil {
		return nil, lineageerr.Config("reading catalog.json", err)
	}

	var rm rawManifest
	if err := json.Unmarshal(manifestBytes, &rm); err != nil {
		return nil, lineageerr.Config("parsing manifest.json", err)
	}
	var rc rawCatalog
	if err := json.Unmarshal(catalogBytes, &rc); err != nil {
		return nil, lineageerr.Config("parsing catalog.json", err)
	}

	s := &Snapshot{
		ProjectName: rm.Metadata.ProjectName,
		nodes:       make(map[string]*ModelNode, len(rm.Nodes)),
		sources:     make(map[string]*SourceNode, len(rm.Sources)),
		catalog:     make(map[string]*CatalogEntry, len(rc.Nodes)),
		childMap:    rm.ChildMap,
		parentMap:   rm.ParentMap,
		logger:      logger,
	}

	for uid, n := range rm.Nodes {
		s.nodes[uid] = &ModelNode{
			UniqueID:     n.UniqueID,
			Name:         n.Name,
			Alias:        n.Alias,
			Schema:       n.Schema,
			Database:     n.Database,
			ResourceType: ResourceType(n.ResourceType),
			FQN:          n.FQN,
			PackageName:  n.PackageName,
			Materialized: n.Config.Materialized,
			CompiledCode: n.CompiledCode,
			Description:  n.Description,
			Columns:      columnMap(n.Columns),
			DependsOn:    n.DependsOn.Nodes,
		}
	}

	for uid, src := range rm.Sources {
		s.sources[uid] = &SourceNode{
			UniqueID: src.UniqueID,
			Name:     src.Name,
			Schema:   src.Schema,
			Database: src.Database,
			FQN:      src.FQN,
			Columns:  columnMap(src.Columns),
		}
	}

	for uid, c := range rc.Nodes {
		cols := make(map[string]Column, len(c.Columns))
		for _, col := range c.Columns {
			cols[strings.ToLower(col.Name)] = Column{Name: col.Name, Type: col.Type}
		}
		s.catalog[uid] = &CatalogEntry{Columns: cols}
	}

	if s.childMap == nil {
		s.childMap = map[string][]string{}
	}
	if s.parentMap == nil {
		s.parentMap = map[string][]string{}
	}

	logger.Info("dbt artifact snapshot loaded",
		slog.String("project", s.ProjectName),
		slog.Int("nodes", len(s.nodes)),
		slog.Int("sources", len(s.sources)),
		slog.Int("catalog_entries", len(s.catalog)),
	)

	return s, nil
}

func columnMap(raw map[string]rawColumn) map[string]Column {
	out := make(map[string]Column, len(raw))
	for _, c := range raw {
		out[strings.ToLower(c.Name)] = Column{Name: c.Name, Description: c.Description, Type: c.DataType}
	}
	return out
}

// Loader guards idempotent first-time construction when several
// goroutines race to build the process-wide snapshot concurrently.
type Loader struct {
	mu       sync.Mutex
	snapshot *Snapshot
	err      error
	loaded   bool
}

// LoadOnce builds the Snapshot on the first call and returns the same
// pointer (or error) to every caller thereafter, converging concurrent
// first-time callers on a single snapshot.
func (l *Loader) LoadOnce(ctx context.Context, src artifactsource.Source, logger *slog.Logger) (*Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return l.snapshot, l.err
	}
	l.loaded = true
	snapshot, err := Load(ctx, src, logger)
	if err != nil {
		l.err = fmt.Errorf("artifact snapshot init: %w", err)
		return nil, l.err
	}
	l.snapshot = snapshot
	return l.snapshot, nil
}
