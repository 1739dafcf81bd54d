package scene

import (
	"github.com/Benny93/conceptmap-go/internal/geometry"
	"github.com/Benny93/conceptmap-go/internal/graph"
	"github.com/Benny93/conceptmap-go/internal/history"
)

// DefaultEdgeLabel is the label of edges created by a connector drag.
const DefaultEdgeLabel = "connects"

// Modifiers is a set of keyboard modifiers held during a pointer press.
type Modifiers uint8

const (
	// ModShift starts a connector drag when pressed on a node.
	ModShift Modifiers = 1 << iota
	// ModCtrl toggles the selection of the pressed item.
	ModCtrl
)

// Has reports whether m contains all of other.
func (m Modifiers) Has(other Modifiers) bool { return m&other == other }

// Mode is the state of the pointer state machine.
type Mode int

const (
	// Idle means no gesture is in progress.
	Idle Mode = iota
	// DraggingNewEdge means a connector is being drawn from a source node.
	DraggingNewEdge
	// DraggingNode means a node follows the pointer.
	DraggingNode
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case DraggingNewEdge:
		return "dragging-edge"
	case DraggingNode:
		return "dragging-node"
	default:
		return "unknown"
	}
}

// Preview is the transient segment shown while drawing a connector.
type Preview struct {
	From geometry.Point
	To   geometry.Point
}

type inputState struct {
	mode    Mode
	nodeID  string
	preview Preview

	// grab is the pointer offset from the dragged node's origin.
	grab geometry.Point
}

func (in *inputState) involves(nodeID string) bool {
	return in.mode != Idle && in.nodeID == nodeID
}

// Mode returns the current gesture state.
func (s *Scene) Mode() Mode { return s.input.mode }

// Preview returns the connector preview while DraggingNewEdge.
func (s *Scene) Preview() (Preview, bool) {
	if s.input.mode != DraggingNewEdge {
		return Preview{}, false
	}
	return s.input.preview, true
}

// PointerDown handles a press at p.
//
// Shift on a node starts a connector drag from that node. Otherwise the
// press updates the selection, and a plain press on a node starts moving it.
func (s *Scene) PointerDown(p geometry.Point, mods Modifiers) {
	if s.input.mode != Idle {
		s.cancelGesture()
	}

	hit := s.ItemAt(p)

	if mods.Has(ModShift) && hit.Kind == HitNode {
		center := s.nodes[hit.ID].Center()
		s.input = inputState{
			mode:    DraggingNewEdge,
			nodeID:  hit.ID,
			preview: Preview{From: center, To: p},
		}
		s.logger.Debug("connector drag started", "source", hit.ID)
		return
	}

	if mods.Has(ModCtrl) {
		if hit.Kind != HitNone {
			s.toggle(hit)
		}
		return
	}

	s.selectOnly(hit)

	if hit.Kind == HitNode {
		item := s.nodes[hit.ID]
		s.input = inputState{
			mode:   DraggingNode,
			nodeID: hit.ID,
			grab:   p.Sub(item.Pos),
		}
	}
}

// PointerMove handles pointer motion to p.
func (s *Scene) PointerMove(p geometry.Point) {
	switch s.input.mode {
	case DraggingNewEdge:
		s.input.preview.To = p
	case DraggingNode:
		// Each step starts from the live position; undo may run mid-drag.
		item := s.nodes[s.input.nodeID]
		next := p.Sub(s.input.grab)
		if next == item.Pos {
			return
		}
		s.history.Push(history.NewMoveNode(s, item.ID, item.Pos, next))
	}
}

// PointerUp handles a release at p. When it completes a connector drag over
// a node other than the source, the created edge is returned.
func (s *Scene) PointerUp(p geometry.Point) (graph.Edge, bool) {
	defer s.cancelGesture()

	if s.input.mode != DraggingNewEdge {
		return graph.Edge{}, false
	}

	source := s.input.nodeID
	hit := s.nodeAt(p)
	if hit == "" || hit == source {
		s.logger.Debug("connector drag cancelled", "source", source)
		return graph.Edge{}, false
	}

	edge, ok := s.Connect(source, hit, DefaultEdgeLabel)
	if !ok {
		s.logger.Warn("connector rejected by store", "source", source, "target", hit)
		return graph.Edge{}, false
	}
	s.logger.Debug("connector created", "edge", edge.ID, "source", source, "target", hit)
	return edge, true
}

// Click is a press and release at the same point.
func (s *Scene) Click(p geometry.Point, mods Modifiers) {
	s.PointerDown(p, mods)
	s.PointerUp(p)
}

// CancelGesture abandons the gesture in progress without mutating the map.
func (s *Scene) CancelGesture() { s.cancelGesture() }

func (s *Scene) cancelGesture() {
	s.input = inputState{}
}
