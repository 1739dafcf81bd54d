package graph

// Snapshot is an ordered copy of a map's contents, used for save and load.
type Snapshot struct {
	Name  string `json:"name,omitempty"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// ConceptMap owns the nodes and edges of a concept map.
//
// Entities are kept in insertion order with a secondary id→position index
// for O(1) lookups. Removal shifts later entries down so the save order stays
// stable, and both indexes are updated incrementally.
//
// Every edge references two present nodes at all times: AddEdge rejects
// dangling endpoints and RemoveNode cascades to incident edges.
//
// Mutators report failure with a false result. ConceptMap is not safe for
// concurrent use; all mutations must come from a single goroutine.
type ConceptMap struct {
	name string

	nodes     []Node
	nodeIndex map[string]int
	edges     []Edge
	edgeIndex map[string]int

	subs    []subscription
	nextSub int
}

// NewConceptMap creates an empty concept map.
func NewConceptMap() *ConceptMap {
	return &ConceptMap{
		name:      DefaultMapName,
		nodeIndex: make(map[string]int),
		edgeIndex: make(map[string]int),
	}
}

// Name returns the map title.
func (m *ConceptMap) Name() string { return m.name }

// SetName sets the map title.
func (m *ConceptMap) SetName(name string) { m.name = name }

// NodeCount returns the number of nodes.
func (m *ConceptMap) NodeCount() int { return len(m.nodes) }

// EdgeCount returns the number of edges.
func (m *ConceptMap) EdgeCount() int { return len(m.edges) }

// HasNode reports whether a node with the given ID exists.
func (m *ConceptMap) HasNode(id string) bool {
	_, ok := m.nodeIndex[id]
	return ok
}

// HasEdge reports whether an edge with the given ID exists.
func (m *ConceptMap) HasEdge(id string) bool {
	_, ok := m.edgeIndex[id]
	return ok
}

// NodeByID returns the node with the given ID.
func (m *ConceptMap) NodeByID(id string) (Node, bool) {
	i, ok := m.nodeIndex[id]
	if !ok {
		return Node{}, false
	}
	return m.nodes[i], true
}

// EdgeByID returns the edge with the given ID.
func (m *ConceptMap) EdgeByID(id string) (Edge, bool) {
	i, ok := m.edgeIndex[id]
	if !ok {
		return Edge{}, false
	}
	return m.edges[i], true
}

// Nodes returns a copy of all nodes in insertion order.
func (m *ConceptMap) Nodes() []Node {
	out := make([]Node, len(m.nodes))
	copy(out, m.nodes)
	return out
}

// Edges returns a copy of all edges in insertion order.
func (m *ConceptMap) Edges() []Edge {
	out := make([]Edge, len(m.edges))
	copy(out, m.edges)
	return out
}

// EdgesByNodeID returns every edge whose source or target is nodeID.
func (m *ConceptMap) EdgesByNodeID(nodeID string) []Edge {
	var result []Edge
	for _, e := range m.edges {
		if e.Touches(nodeID) {
			result = append(result, e)
		}
	}
	return result
}

// AddNode appends a node. It fails if the ID is already taken.
func (m *ConceptMap) AddNode(node Node) bool {
	if m.HasNode(node.ID) {
		return false
	}

	m.nodes = append(m.nodes, node)
	m.nodeIndex[node.ID] = len(m.nodes) - 1

	m.emit(Event{Kind: NodeAdded, Node: node})
	return true
}

// RemoveNode removes a node and every edge touching it.
// Returns false if the node does not exist.
func (m *ConceptMap) RemoveNode(id string) bool {
	i, ok := m.nodeIndex[id]
	if !ok {
		return false
	}

	for _, e := range m.EdgesByNodeID(id) {
		m.removeEdgeAt(m.edgeIndex[e.ID])
	}

	node := m.nodes[i]
	m.nodes = append(m.nodes[:i], m.nodes[i+1:]...)
	delete(m.nodeIndex, id)
	shiftIndex(m.nodeIndex, i)

	m.emit(Event{Kind: NodeRemoved, Node: node})
	return true
}

// UpdateNode replaces the node with the same ID.
func (m *ConceptMap) UpdateNode(node Node) bool {
	i, ok := m.nodeIndex[node.ID]
	if !ok {
		return false
	}

	m.nodes[i] = node
	m.emit(Event{Kind: NodeUpdated, Node: node})
	return true
}

// AddEdge appends an edge. It fails if the ID is taken or either endpoint is
// not a present node.
func (m *ConceptMap) AddEdge(edge Edge) bool {
	if m.HasEdge(edge.ID) {
		return false
	}
	if !m.HasNode(edge.Source) || !m.HasNode(edge.Target) {
		return false
	}

	m.edges = append(m.edges, edge)
	m.edgeIndex[edge.ID] = len(m.edges) - 1

	m.emit(Event{Kind: EdgeAdded, Edge: edge})
	return true
}

// RemoveEdge removes an edge. Returns false if it does not exist.
func (m *ConceptMap) RemoveEdge(id string) bool {
	i, ok := m.edgeIndex[id]
	if !ok {
		return false
	}
	m.removeEdgeAt(i)
	return true
}

// UpdateEdge replaces the edge with the same ID. The new endpoints must
// reference present nodes.
func (m *ConceptMap) UpdateEdge(edge Edge) bool {
	i, ok := m.edgeIndex[edge.ID]
	if !ok {
		return false
	}
	if !m.HasNode(edge.Source) || !m.HasNode(edge.Target) {
		return false
	}

	m.edges[i] = edge
	m.emit(Event{Kind: EdgeUpdated, Edge: edge})
	return true
}

// ReplaceAll swaps the whole content for snap. The snapshot is validated
// first; if it contains duplicate IDs or dangling edges nothing changes and
// ReplaceAll returns false. Subscribers receive a single Reset event.
func (m *ConceptMap) ReplaceAll(snap Snapshot) bool {
	nodeIndex := make(map[string]int, len(snap.Nodes))
	for i, n := range snap.Nodes {
		if _, dup := nodeIndex[n.ID]; dup {
			return false
		}
		nodeIndex[n.ID] = i
	}

	edgeIndex := make(map[string]int, len(snap.Edges))
	for i, e := range snap.Edges {
		if _, dup := edgeIndex[e.ID]; dup {
			return false
		}
		_, okSrc := nodeIndex[e.Source]
		_, okDst := nodeIndex[e.Target]
		if !okSrc || !okDst {
			return false
		}
		edgeIndex[e.ID] = i
	}

	m.nodes = append([]Node(nil), snap.Nodes...)
	m.edges = append([]Edge(nil), snap.Edges...)
	m.nodeIndex = nodeIndex
	m.edgeIndex = edgeIndex
	if snap.Name != "" {
		m.name = snap.Name
	}

	m.emit(Event{Kind: Reset})
	return true
}

// Clear removes every node and edge.
func (m *ConceptMap) Clear() {
	m.nodes = nil
	m.edges = nil
	m.nodeIndex = make(map[string]int)
	m.edgeIndex = make(map[string]int)
	m.emit(Event{Kind: Reset})
}

// Snapshot returns an ordered copy of the map.
func (m *ConceptMap) Snapshot() Snapshot {
	return Snapshot{Name: m.name, Nodes: m.Nodes(), Edges: m.Edges()}
}

// removeEdgeAt deletes the edge at position i and notifies subscribers.
func (m *ConceptMap) removeEdgeAt(i int) {
	edge := m.edges[i]
	m.edges = append(m.edges[:i], m.edges[i+1:]...)
	delete(m.edgeIndex, edge.ID)
	shiftIndex(m.edgeIndex, i)

	m.emit(Event{Kind: EdgeRemoved, Edge: edge})
}

// shiftIndex moves every position after removed down by one.
func shiftIndex(index map[string]int, removed int) {
	for id, pos := range index {
		if pos > removed {
			index[id] = pos - 1
		}
	}
}
