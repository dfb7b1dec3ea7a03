package dbtartifact

import (
	"log/slog"
	"strings"

	"github.com/maraichr/dbtlineage/internal/identifier"
)

// FindNode probes model, then seed, then snapshot unique_ids for
// targetName and returns the first hit.
func (s *Snapshot) FindNode(targetName string) (*ModelNode, bool) {
	for _, rt := range identifier.ResourceTypes {
		uid := identifier.UniqueID(rt, s.ProjectName, targetName)
		if n, ok := s.nodes[uid]; ok {
			return n, true
		}
	}
	return nil, false
}

// FindNodeByUniqueID is a direct uid lookup, used when traversal already
// has a resolved uid (e.g. from DependsOn).
func (s *Snapshot) FindNodeByUniqueID(uid string) (*ModelNode, bool) {
	n, ok := s.nodes[uid]
	return n, ok
}

// FindSourceByUniqueID is a direct uid lookup into the sources map.
func (s *Snapshot) FindSourceByUniqueID(uid string) (*SourceNode, bool) {
	n, ok := s.sources[uid]
	return n, ok
}

// FindCatalog uses the same probe order as FindNode, against the
// catalog map.
func (s *Snapshot) FindCatalog(targetName string) (*CatalogEntry, bool) {
	for _, rt := range identifier.ResourceTypes {
		uid := identifier.UniqueID(rt, s.ProjectName, targetName)
		if c, ok := s.catalog[uid]; ok {
			return c, true
		}
	}
	return nil, false
}

// FindCatalogByUniqueID is a direct uid lookup into the catalog map.
func (s *Snapshot) FindCatalogByUniqueID(uid string) (*CatalogEntry, bool) {
	c, ok := s.catalog[uid]
	return c, ok
}

// Parents returns the direct parent uids of uid.
func (s *Snapshot) Parents(uid string) []string {
	return s.parentMap[uid]
}

// Children returns the direct child uids of uid.
func (s *Snapshot) Children(uid string) []string {
	return s.childMap[uid]
}

// UniqueIDFor resolves a bare model/source name to its unique_id by
// probing the node table first, then the source table (used by callers
// that need a uid to index Parents/Children with).
func (s *Snapshot) UniqueIDFor(name string) (string, bool) {
	if n, ok := s.FindNode(name); ok {
		return n.UniqueID, true
	}
	for uid, src := range s.sources {
		if identifier.EqualFold(src.Name, name) {
			return uid, true
		}
	}
	return "", false
}

// Columns returns the declared column map for a node, preferring the
// catalog entry over the manifest's own columns when both exist.
func (s *Snapshot) Columns(uid string) map[string]Column {
	if c, ok := s.FindCatalogByUniqueID(uid); ok && len(c.Columns) > 0 {
		return c.Columns
	}
	if n, ok := s.FindNodeByUniqueID(uid); ok {
		return n.Columns
	}
	if src, ok := s.FindSourceByUniqueID(uid); ok {
		return src.Columns
	}
	return nil
}

// AllModelNodes returns every model/seed/snapshot node in the snapshot,
// in no particular order.
func (s *Snapshot) AllModelNodes() []*ModelNode {
	out := make([]*ModelNode, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	return out
}

// FindModelByAliasAndSchema returns the node whose alias (falling back to
// name) and schema both match, case-insensitively.
func (s *Snapshot) FindModelByAliasAndSchema(alias, schema string) *ModelNode {
	for _, n := range s.nodes {
		name := n.Alias
		if name == "" {
			name = n.Name
		}
		if identifier.EqualFold(name, alias) && identifier.EqualFold(n.Schema, schema) {
			return n
		}
	}
	return nil
}

// FindModelByAlias returns the first node whose alias (falling back to
// name) matches, case-insensitively, regardless of schema.
func (s *Snapshot) FindModelByAlias(alias string) *ModelNode {
	for _, n := range s.nodes {
		name := n.Alias
		if name == "" {
			name = n.Name
		}
		if identifier.EqualFold(name, alias) {
			return n
		}
	}
	return nil
}

// DependsOnTables resolves each dependency uid to a node or a source,
// builds its upper-cased table_ref, and picks the catalog column map
// when present, else the manifest's. Unresolvable uids are logged and
// skipped as a lookup miss — the branch continues with whatever it has.
func (s *Snapshot) DependsOnTables(uids []string) []DependencyColumns {
	out := make([]DependencyColumns, 0, len(uids))
	for _, uid := range uids {
		dc, ok := s.dependencyColumnsFor(uid)
		if !ok {
			s.logger.Error("lookup miss resolving dependency", slog.String("uid", uid))
			continue
		}
		out = append(out, dc)
	}
	return out
}

func (s *Snapshot) dependencyColumnsFor(uid string) (DependencyColumns, bool) {
	if n, ok := s.FindNodeByUniqueID(uid); ok {
		ref := TableRef{
			Database: strings.ToUpper(n.Database),
			Schema:   strings.ToUpper(n.Schema),
			Name:     strings.ToUpper(n.Name),
		}
		return DependencyColumns{TableRef: ref, Columns: s.Columns(uid)}, true
	}
	if src, ok := s.FindSourceByUniqueID(uid); ok {
		ref := TableRef{
			Database: strings.ToUpper(src.Database),
			Schema:   strings.ToUpper(src.Schema),
			Name:     strings.ToUpper(src.Name),
		}
		cols := src.Columns
		if c, ok := s.FindCatalogByUniqueID(uid); ok && len(c.Columns) > 0 {
			cols = c.Columns
		}
		return DependencyColumns{TableRef: ref, Columns: cols}, true
	}
	return DependencyColumns{}, false
}
