package scene

import (
	"github.com/Benny93/conceptmap-go/internal/geometry"
)

// EdgeHitTolerance is the distance from a connector within which a point
// hits it.
const EdgeHitTolerance = 4.0

// HitKind tells what a point landed on.
type HitKind int

const (
	HitNone HitKind = iota
	HitNode
	HitEdge
)

// Hit is the result of a hit test.
type Hit struct {
	Kind HitKind
	ID   string
}

// ItemAt returns the topmost item under p. Nodes stack above edges, and later
// nodes above earlier ones.
func (s *Scene) ItemAt(p geometry.Point) Hit {
	if id := s.nodeAt(p); id != "" {
		return Hit{Kind: HitNode, ID: id}
	}
	for i := len(s.edgeOrder) - 1; i >= 0; i-- {
		e := s.edges[s.edgeOrder[i]]
		if geometry.DistanceToSegment(p, e.SourceAnchor, e.TargetAnchor) <= EdgeHitTolerance {
			return Hit{Kind: HitEdge, ID: e.ID}
		}
	}
	return Hit{}
}

func (s *Scene) nodeAt(p geometry.Point) string {
	for i := len(s.nodeOrder) - 1; i >= 0; i-- {
		n := s.nodes[s.nodeOrder[i]]
		if geometry.ContainsPoint(n.Bounds(), n.Shape, p) {
			return n.ID
		}
	}
	return ""
}

// SelectedNodes returns the ids of selected nodes in registry order.
func (s *Scene) SelectedNodes() []string {
	var out []string
	for _, id := range s.nodeOrder {
		if s.nodes[id].Selected {
			out = append(out, id)
		}
	}
	return out
}

// SelectedEdges returns the ids of selected edges in registry order.
func (s *Scene) SelectedEdges() []string {
	var out []string
	for _, id := range s.edgeOrder {
		if s.edges[id].Selected {
			out = append(out, id)
		}
	}
	return out
}

// Select adds the item with the given ID to the selection.
func (s *Scene) Select(id string) bool {
	if n, ok := s.nodes[id]; ok {
		if !n.Selected {
			n.Selected = true
			s.selectionChanged()
		}
		return true
	}
	if e, ok := s.edges[id]; ok {
		if !e.Selected {
			e.Selected = true
			s.selectionChanged()
		}
		return true
	}
	return false
}

// SelectAll selects every node and edge.
func (s *Scene) SelectAll() {
	changed := false
	for _, n := range s.nodes {
		changed = changed || !n.Selected
		n.Selected = true
	}
	for _, e := range s.edges {
		changed = changed || !e.Selected
		e.Selected = true
	}
	if changed {
		s.selectionChanged()
	}
}

// ClearSelection deselects everything.
func (s *Scene) ClearSelection() {
	if s.clearSelection() {
		s.selectionChanged()
	}
}

// DeleteSelection records one DeleteEdge per selected edge and then one
// DeleteNode per selected node. It returns the number of commands pushed.
func (s *Scene) DeleteSelection() int {
	edges := s.SelectedEdges()
	nodes := s.SelectedNodes()

	pushed := 0
	for _, id := range edges {
		if s.DeleteEdge(id) {
			pushed++
		}
	}
	for _, id := range nodes {
		if s.DeleteNode(id) {
			pushed++
		}
	}
	return pushed
}

func (s *Scene) selectOnly(hit Hit) {
	changed := s.clearSelection()
	switch hit.Kind {
	case HitNode:
		s.nodes[hit.ID].Selected = true
		changed = true
	case HitEdge:
		s.edges[hit.ID].Selected = true
		changed = true
	}
	if changed {
		s.selectionChanged()
	}
}

func (s *Scene) toggle(hit Hit) {
	switch hit.Kind {
	case HitNode:
		n := s.nodes[hit.ID]
		n.Selected = !n.Selected
	case HitEdge:
		e := s.edges[hit.ID]
		e.Selected = !e.Selected
	default:
		return
	}
	s.selectionChanged()
}

// clearSelection deselects everything and reports whether anything was
// selected.
func (s *Scene) clearSelection() bool {
	changed := false
	for _, n := range s.nodes {
		changed = changed || n.Selected
		n.Selected = false
	}
	for _, e := range s.edges {
		changed = changed || e.Selected
		e.Selected = false
	}
	return changed
}

func (s *Scene) hasSelection() bool {
	for _, n := range s.nodes {
		if n.Selected {
			return true
		}
	}
	for _, e := range s.edges {
		if e.Selected {
			return true
		}
	}
	return false
}

func (s *Scene) selectionChanged() {
	if s.onSelection != nil {
		s.onSelection(s.SelectedNodes(), s.SelectedEdges())
	}
}
