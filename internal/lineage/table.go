package lineage

import (
	"log/slog"
	"strings"

	"github.com/maraichr/dbtlineage/internal/identifier"
	"github.com/maraichr/dbtlineage/pkg/lineagegraph"
)

// Table computes model-to-model (table-level) lineage over the artifact
// DAG: parent_map when reverse is false, child_map when true, depth-
// bounded BFS.
func (e *Engine) Table(source string, reverse bool, depthLimit int) lineagegraph.Result {
	logger := e.requestLogger()
	builder := lineagegraph.NewBuilder()

	uid, ok := e.snapshot.UniqueIDFor(source)
	if !ok {
		logger.Error("lookup miss resolving source", slog.String("source", source))
		return builder.Result()
	}

	rootID := identifier.Hash(strings.ToLower(source))
	builder.UpsertNode(lineagegraph.NewNode(rootID, source, "", ""))

	type frame struct {
		uid   string
		name  string
		depth int
	}
	queue := []frame{{uid: uid, name: source, depth: 0}}
	visited := map[string]bool{uid: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if depthLimit != Unbounded && cur.depth >= depthLimit {
			continue
		}

		var neighbors []string
		if reverse {
			neighbors = e.snapshot.Children(cur.uid)
		} else {
			neighbors = e.snapshot.Parents(cur.uid)
		}

		for _, nuid := range neighbors {
			name, ok := e.neighborName(nuid)
			if !ok {
				continue
			}
			nID := identifier.Hash(strings.ToLower(name))
			builder.UpsertNode(lineagegraph.NewNode(nID, name, "", ""))

			curID := identifier.Hash(strings.ToLower(cur.name))
			if reverse {
				builder.AddEdge(lineagegraph.NewTableEdge(curID, nID))
			} else {
				builder.AddEdge(lineagegraph.NewTableEdge(nID, curID))
			}

			if !visited[nuid] {
				visited[nuid] = true
				queue = append(queue, frame{uid: nuid, name: name, depth: cur.depth + 1})
			}
		}
	}

	return builder.Result()
}

func (e *Engine) neighborName(uid string) (string, bool) {
	if n, ok := e.snapshot.FindNodeByUniqueID(uid); ok {
		return n.Name, true
	}
	if s, ok := e.snapshot.FindSourceByUniqueID(uid); ok {
		return s.Name, true
	}
	return "", false
}
