// Package scene mirrors a concept map into interactive visual items.
//
// A Scene subscribes to its ConceptMap and keeps an id-keyed registry of
// NodeItem and EdgeItem values in lockstep with the store, whoever mutates
// it. On top of that registry it interprets pointer gestures (connector
// drags, node drags, selection) and turns them into history commands.
package scene

import (
	"slices"

	"github.com/charmbracelet/log"

	"github.com/Benny93/conceptmap-go/internal/geometry"
	"github.com/Benny93/conceptmap-go/internal/graph"
	"github.com/Benny93/conceptmap-go/internal/history"
	"github.com/Benny93/conceptmap-go/internal/logging"
)

// NodeItem is the visual counterpart of a node.
type NodeItem struct {
	ID       string
	Text     string
	Pos      geometry.Point
	Width    float64
	Height   float64
	Shape    geometry.Shape
	Color    graph.Color
	Selected bool
}

// Bounds returns the item box.
func (n *NodeItem) Bounds() geometry.Rect {
	return geometry.Rect{X: n.Pos.X, Y: n.Pos.Y, Width: n.Width, Height: n.Height}
}

// Center returns the midpoint of the item box.
func (n *NodeItem) Center() geometry.Point {
	return n.Bounds().Center()
}

// EdgeItem is the visual counterpart of an edge. The anchors are the points
// where the connector meets the source and target outlines.
type EdgeItem struct {
	ID           string
	Source       string
	Target       string
	Label        string
	Color        graph.Color
	SourceAnchor geometry.Point
	TargetAnchor geometry.Point
	Selected     bool
}

// Scene is the live mirror of one ConceptMap.
//
// Items are looked up by id and never shared outside the scene; callers get
// copies. The zero value is not usable; construct with New.
type Scene struct {
	store   *graph.ConceptMap
	history *history.Stack
	ids     graph.IDGenerator
	logger  *log.Logger

	nodes     map[string]*NodeItem
	nodeOrder []string
	edges     map[string]*EdgeItem
	edgeOrder []string

	input inputState

	onSelection func(nodes, edges []string)
	unsubscribe func()
}

// Option configures a Scene.
type Option func(*Scene)

// WithIDGenerator sets the generator used for edges created by gestures and
// nodes created by CreateNode.
func WithIDGenerator(ids graph.IDGenerator) Option {
	return func(s *Scene) { s.ids = ids }
}

// WithLogger sets the scene logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Scene) { s.logger = l }
}

// New builds a scene over store, records gestures into h and subscribes to
// store changes. Call Close to detach.
func New(store *graph.ConceptMap, h *history.Stack, opts ...Option) *Scene {
	s := &Scene{
		store:   store,
		history: h,
		ids:     graph.UUIDGenerator{},
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Refresh(store.Snapshot())
	s.unsubscribe = store.Subscribe(s.handleEvent)
	return s
}

// Close stops mirroring the store.
func (s *Scene) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Store returns the mirrored map.
func (s *Scene) Store() *graph.ConceptMap { return s.store }

// History returns the stack gestures are recorded in.
func (s *Scene) History() *history.Stack { return s.history }

// OnSelectionChanged registers fn to receive the selected node and edge ids
// after every selection change.
func (s *Scene) OnSelectionChanged(fn func(nodes, edges []string)) {
	s.onSelection = fn
}

// AddNode adds a node to the store; the registry follows.
func (s *Scene) AddNode(node graph.Node) bool {
	return s.store.AddNode(node)
}

// RemoveNode removes a node and its edges from the store.
func (s *Scene) RemoveNode(id string) bool {
	return s.store.RemoveNode(id)
}

// AddEdge adds an edge to the store.
func (s *Scene) AddEdge(edge graph.Edge) bool {
	return s.store.AddEdge(edge)
}

// RemoveEdge removes an edge from the store.
func (s *Scene) RemoveEdge(id string) bool {
	return s.store.RemoveEdge(id)
}

// MoveNode sets the position of a node.
func (s *Scene) MoveNode(id string, pos geometry.Point) bool {
	node, ok := s.store.NodeByID(id)
	if !ok {
		return false
	}
	return s.store.UpdateNode(node.WithPos(pos))
}

// CreateNode places a new node at the next free slot of grid, adds it and
// records an undoable AddNode command.
func (s *Scene) CreateNode(text string, grid *Grid) (graph.Node, bool) {
	node := graph.NewNode(s.ids, text, grid.Next())
	return node, s.InsertNode(node)
}

// InsertNode adds node and records an undoable AddNode command.
func (s *Scene) InsertNode(node graph.Node) bool {
	if !s.AddNode(node) {
		return false
	}
	s.history.Push(history.NewAddNode(s, node))
	return true
}

// Connect creates an edge between two nodes and records an undoable AddEdge
// command.
func (s *Scene) Connect(source, target, label string) (graph.Edge, bool) {
	edge := graph.NewEdge(s.ids, source, target, label)
	return edge, s.InsertEdge(edge)
}

// InsertEdge adds edge and records an undoable AddEdge command.
func (s *Scene) InsertEdge(edge graph.Edge) bool {
	if !s.AddEdge(edge) {
		return false
	}
	s.history.Push(history.NewAddEdge(s, edge))
	return true
}

// DeleteNode records an undoable deletion of a node and its edges.
func (s *Scene) DeleteNode(id string) bool {
	if !s.store.HasNode(id) {
		return false
	}
	return s.history.Push(history.NewDeleteNode(s, s.store, id))
}

// DeleteEdge records an undoable deletion of an edge.
func (s *Scene) DeleteEdge(id string) bool {
	if !s.store.HasEdge(id) {
		return false
	}
	return s.history.Push(history.NewDeleteEdge(s, s.store, id))
}

// Relocate records an undoable move of a node to pos.
func (s *Scene) Relocate(id string, pos geometry.Point) bool {
	node, ok := s.store.NodeByID(id)
	if !ok {
		return false
	}
	if node.Pos() == pos {
		return true
	}
	return s.history.Push(history.NewMoveNode(s, id, node.Pos(), pos))
}

// Refresh destroys every item and rebuilds the registry from snap.
func (s *Scene) Refresh(snap graph.Snapshot) {
	s.cancelGesture()

	s.nodes = make(map[string]*NodeItem, len(snap.Nodes))
	s.nodeOrder = make([]string, 0, len(snap.Nodes))
	s.edges = make(map[string]*EdgeItem, len(snap.Edges))
	s.edgeOrder = make([]string, 0, len(snap.Edges))

	for _, n := range snap.Nodes {
		s.putNode(n)
	}
	for _, e := range snap.Edges {
		s.putEdge(e)
	}
	s.logger.Debug("scene refreshed", "nodes", len(s.nodes), "edges", len(s.edges))
}

// Node returns a copy of the node item with the given ID.
func (s *Scene) Node(id string) (NodeItem, bool) {
	item, ok := s.nodes[id]
	if !ok {
		return NodeItem{}, false
	}
	return *item, true
}

// Edge returns a copy of the edge item with the given ID.
func (s *Scene) Edge(id string) (EdgeItem, bool) {
	item, ok := s.edges[id]
	if !ok {
		return EdgeItem{}, false
	}
	return *item, true
}

// NodeItems returns copies of all node items, bottom to top.
func (s *Scene) NodeItems() []NodeItem {
	out := make([]NodeItem, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		out = append(out, *s.nodes[id])
	}
	return out
}

// EdgeItems returns copies of all edge items in creation order.
func (s *Scene) EdgeItems() []EdgeItem {
	out := make([]EdgeItem, 0, len(s.edgeOrder))
	for _, id := range s.edgeOrder {
		out = append(out, *s.edges[id])
	}
	return out
}

// Anchors returns where the edge meets its source and target outlines.
func (s *Scene) Anchors(edgeID string) (source, target geometry.Point, ok bool) {
	item, ok := s.edges[edgeID]
	if !ok {
		return geometry.Point{}, geometry.Point{}, false
	}
	return item.SourceAnchor, item.TargetAnchor, true
}

// Consistent reports whether the registry matches the store exactly.
func (s *Scene) Consistent() bool {
	if len(s.nodes) != s.store.NodeCount() || len(s.edges) != s.store.EdgeCount() {
		return false
	}
	for _, n := range s.store.Nodes() {
		item, ok := s.nodes[n.ID]
		if !ok || item.Pos != n.Pos() || item.Width != n.Width || item.Height != n.Height || item.Shape != n.Shape {
			return false
		}
	}
	for _, e := range s.store.Edges() {
		item, ok := s.edges[e.ID]
		if !ok || item.Source != e.Source || item.Target != e.Target {
			return false
		}
	}
	return true
}

func (s *Scene) handleEvent(ev graph.Event) {
	s.logger.Debug("store changed", "event", ev.Kind, "id", ev.ID())

	switch ev.Kind {
	case graph.NodeAdded, graph.NodeUpdated:
		s.putNode(ev.Node)
		s.updateAnchorsOf(ev.Node.ID)
	case graph.NodeRemoved:
		s.dropNode(ev.Node.ID)
	case graph.EdgeAdded, graph.EdgeUpdated:
		s.putEdge(ev.Edge)
	case graph.EdgeRemoved:
		s.dropEdge(ev.Edge.ID)
	case graph.Reset:
		hadSelection := s.hasSelection()
		s.Refresh(s.store.Snapshot())
		if hadSelection {
			s.selectionChanged()
		}
	}
}

// putNode creates or updates a node item, keeping its selection state.
func (s *Scene) putNode(n graph.Node) {
	item, ok := s.nodes[n.ID]
	if !ok {
		item = &NodeItem{ID: n.ID}
		s.nodes[n.ID] = item
		s.nodeOrder = append(s.nodeOrder, n.ID)
	}
	item.Text = n.Text
	item.Pos = n.Pos()
	item.Width = n.Width
	item.Height = n.Height
	item.Shape = n.Shape
	item.Color = n.Color
}

func (s *Scene) dropNode(id string) {
	item, ok := s.nodes[id]
	if !ok {
		return
	}
	delete(s.nodes, id)
	s.nodeOrder = slices.DeleteFunc(s.nodeOrder, func(v string) bool { return v == id })

	if s.input.involves(id) {
		s.cancelGesture()
	}
	if item.Selected {
		s.selectionChanged()
	}
}

// putEdge creates or updates an edge item. Edges whose endpoints have no
// item are skipped; the store guarantees that never happens for live data.
func (s *Scene) putEdge(e graph.Edge) {
	if s.nodes[e.Source] == nil || s.nodes[e.Target] == nil {
		s.logger.Warn("edge endpoint missing from scene", "edge", e.ID)
		return
	}

	item, ok := s.edges[e.ID]
	if !ok {
		item = &EdgeItem{ID: e.ID}
		s.edges[e.ID] = item
		s.edgeOrder = append(s.edgeOrder, e.ID)
	}
	item.Source = e.Source
	item.Target = e.Target
	item.Label = e.Label
	item.Color = e.Color
	s.updateAnchors(item)
}

func (s *Scene) dropEdge(id string) {
	item, ok := s.edges[id]
	if !ok {
		return
	}
	delete(s.edges, id)
	s.edgeOrder = slices.DeleteFunc(s.edgeOrder, func(v string) bool { return v == id })

	if item.Selected {
		s.selectionChanged()
	}
}

// updateAnchorsOf recomputes both anchors of every edge touching nodeID.
func (s *Scene) updateAnchorsOf(nodeID string) {
	for _, id := range s.edgeOrder {
		item := s.edges[id]
		if item.Source == nodeID || item.Target == nodeID {
			s.updateAnchors(item)
		}
	}
}

// updateAnchors computes each end against its own node's outline.
func (s *Scene) updateAnchors(e *EdgeItem) {
	src := s.nodes[e.Source]
	dst := s.nodes[e.Target]
	if src == nil || dst == nil {
		return
	}
	e.SourceAnchor = geometry.Anchor(src.Bounds(), src.Center(), dst.Center(), src.Shape)
	e.TargetAnchor = geometry.Anchor(dst.Bounds(), dst.Center(), src.Center(), dst.Shape)
}
