package lineagegraph

// Builder accumulates nodes and edges for a single request, de-duplicating
// by ID and preserving insertion order. Each request's engine allocates
// its own Builder; nothing mutates the snapshot it was computed from. A
// Builder is not safe for concurrent use; each request owns its own.
type Builder struct {
	nodes    []*Node
	nodeByID map[string]*Node

	ctes    []*CTENode
	cteByID map[string]*CTENode

	edges    []*Edge
	edgeByID map[string]bool
}

// NewBuilder returns an empty accumulator.
func NewBuilder() *Builder {
	return &Builder{
		nodeByID: make(map[string]*Node),
		cteByID:  make(map[string]*CTENode),
		edgeByID: make(map[string]bool),
	}
}

// UpsertNode returns the existing node for id if present, else inserts and
// returns n. Callers union columns into whichever node comes back.
func (b *Builder) UpsertNode(n *Node) *Node {
	if existing, ok := b.nodeByID[n.ID]; ok {
		return existing
	}
	b.nodeByID[n.ID] = n
	b.nodes = append(b.nodes, n)
	return n
}

// FindNode returns the node for id, if any has been inserted yet.
func (b *Builder) FindNode(id string) (*Node, bool) {
	n, ok := b.nodeByID[id]
	return n, ok
}

// FindNodeByName returns the first node whose Data.Name matches name,
// case-insensitively (used to set Last after a traversal branch dries up).
func (b *Builder) FindNodeByName(name string) (*Node, bool) {
	for _, n := range b.nodes {
		if EqualFold(n.Data.Name, name) {
			return n, true
		}
	}
	return nil, false
}

// UpsertCTENode returns the existing CTE node for id if present, else
// inserts and returns n.
func (b *Builder) UpsertCTENode(n *CTENode) *CTENode {
	if existing, ok := b.cteByID[n.ID]; ok {
		return existing
	}
	b.cteByID[n.ID] = n
	b.ctes = append(b.ctes, n)
	return n
}

// AddEdge inserts e unless its ID was already seen; returns true if
// inserted.
func (b *Builder) AddEdge(e *Edge) bool {
	if b.edgeByID[e.ID] {
		return false
	}
	b.edgeByID[e.ID] = true
	b.edges = append(b.edges, e)
	return true
}

// Nodes returns the accumulated model/source nodes in insertion order.
func (b *Builder) Nodes() []*Node { return b.nodes }

// CTENodes returns the accumulated CTE nodes in insertion order.
func (b *Builder) CTENodes() []*CTENode { return b.ctes }

// Edges returns the accumulated edges in insertion order.
func (b *Builder) Edges() []*Edge { return b.edges }

// Result is the {nodes, edges} payload common to forward/reverse/table
// lineage responses.
type Result struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// Result snapshots the builder's current nodes/edges.
func (b *Builder) Result() Result {
	return Result{Nodes: b.nodes, Edges: b.edges}
}
