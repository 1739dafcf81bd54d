// Package history implements the linear undo/redo log of concept map edits.
//
// Each command captures the ids and value snapshots it needs when it is
// constructed, before any mutation, and resolves live entities through its
// Target at undo/redo time. Commands never hold references to entities.
package history

import (
	"fmt"

	"github.com/Benny93/conceptmap-go/internal/geometry"
	"github.com/Benny93/conceptmap-go/internal/graph"
)

// Target is the mutation surface commands act on.
type Target interface {
	AddNode(node graph.Node) bool
	RemoveNode(id string) bool
	AddEdge(edge graph.Edge) bool
	RemoveEdge(id string) bool
	MoveNode(id string, pos geometry.Point) bool
}

// Reader resolves current entity values when a command is constructed.
type Reader interface {
	NodeByID(id string) (graph.Node, bool)
	EdgeByID(id string) (graph.Edge, bool)
	EdgesByNodeID(id string) []graph.Edge
}

// Command is a reversible edit.
type Command interface {
	Undo() bool
	Redo() bool
	Text() string
}

// Merger is implemented by commands that can absorb a following command.
// MergeWith returns false when next cannot be folded into the receiver.
type Merger interface {
	MergeWith(next Command) bool
}

// AddNodeCommand records a node that was already added by the caller.
type AddNodeCommand struct {
	target    Target
	node      graph.Node
	firstRedo bool
}

// NewAddNode records node, which must already be present in target.
func NewAddNode(target Target, node graph.Node) *AddNodeCommand {
	return &AddNodeCommand{target: target, node: node, firstRedo: true}
}

// Undo removes the node.
func (c *AddNodeCommand) Undo() bool { return c.target.RemoveNode(c.node.ID) }

// Redo re-adds the node. The first call, made when the command is pushed,
// is a no-op because the node already exists.
func (c *AddNodeCommand) Redo() bool {
	if c.firstRedo {
		c.firstRedo = false
		return true
	}
	return c.target.AddNode(c.node)
}

// Text implements Command.
func (c *AddNodeCommand) Text() string { return fmt.Sprintf("Add node: %s", c.node.Text) }

// AddEdgeCommand records an edge that was already added by the caller.
type AddEdgeCommand struct {
	target    Target
	edge      graph.Edge
	firstRedo bool
}

// NewAddEdge records edge, which must already be present in target.
func NewAddEdge(target Target, edge graph.Edge) *AddEdgeCommand {
	return &AddEdgeCommand{target: target, edge: edge, firstRedo: true}
}

// Undo removes the edge.
func (c *AddEdgeCommand) Undo() bool { return c.target.RemoveEdge(c.edge.ID) }

// Redo re-adds the edge; the first call is a no-op.
func (c *AddEdgeCommand) Redo() bool {
	if c.firstRedo {
		c.firstRedo = false
		return true
	}
	return c.target.AddEdge(c.edge)
}

// Text implements Command.
func (c *AddEdgeCommand) Text() string { return fmt.Sprintf("Add edge: %s", c.edge.Label) }

// DeleteNodeCommand removes a node together with its incident edges.
type DeleteNodeCommand struct {
	target Target
	id     string
	node   graph.Node
	edges  []graph.Edge
}

// NewDeleteNode snapshots the node and all edges touching it. The node is
// removed when the command is pushed.
func NewDeleteNode(target Target, r Reader, id string) *DeleteNodeCommand {
	node, _ := r.NodeByID(id)
	return &DeleteNodeCommand{
		target: target,
		id:     id,
		node:   node,
		edges:  r.EdgesByNodeID(id),
	}
}

// Undo restores the node and then each captured edge.
func (c *DeleteNodeCommand) Undo() bool {
	ok := c.target.AddNode(c.node)
	for _, e := range c.edges {
		ok = c.target.AddEdge(e) && ok
	}
	return ok
}

// Redo removes the node; the store cascades to its edges.
func (c *DeleteNodeCommand) Redo() bool { return c.target.RemoveNode(c.id) }

// Text implements Command.
func (c *DeleteNodeCommand) Text() string { return fmt.Sprintf("Delete node: %s", c.node.Text) }

// DeleteEdgeCommand removes a single edge.
type DeleteEdgeCommand struct {
	target Target
	id     string
	edge   graph.Edge
}

// NewDeleteEdge snapshots the edge. It is removed when the command is pushed.
func NewDeleteEdge(target Target, r Reader, id string) *DeleteEdgeCommand {
	edge, _ := r.EdgeByID(id)
	return &DeleteEdgeCommand{target: target, id: id, edge: edge}
}

// Undo re-adds the edge.
func (c *DeleteEdgeCommand) Undo() bool { return c.target.AddEdge(c.edge) }

// Redo removes the edge.
func (c *DeleteEdgeCommand) Redo() bool { return c.target.RemoveEdge(c.id) }

// Text implements Command.
func (c *DeleteEdgeCommand) Text() string { return fmt.Sprintf("Delete edge: %s", c.edge.Label) }

// MoveNodeCommand changes the position of a node.
type MoveNodeCommand struct {
	target Target
	id     string
	oldPos geometry.Point
	newPos geometry.Point
}

// NewMoveNode records a move of node id from oldPos to newPos.
func NewMoveNode(target Target, id string, oldPos, newPos geometry.Point) *MoveNodeCommand {
	return &MoveNodeCommand{target: target, id: id, oldPos: oldPos, newPos: newPos}
}

// Undo moves the node back.
func (c *MoveNodeCommand) Undo() bool { return c.target.MoveNode(c.id, c.oldPos) }

// Redo moves the node forward.
func (c *MoveNodeCommand) Redo() bool { return c.target.MoveNode(c.id, c.newPos) }

// Text implements Command.
func (c *MoveNodeCommand) Text() string { return fmt.Sprintf("Move node: %s", c.id) }

// NodeID returns the moved node's ID.
func (c *MoveNodeCommand) NodeID() string { return c.id }

// Positions returns the recorded start and end positions.
func (c *MoveNodeCommand) Positions() (oldPos, newPos geometry.Point) {
	return c.oldPos, c.newPos
}

// MergeWith folds a later move of the same node into c, keeping the original
// start position.
func (c *MoveNodeCommand) MergeWith(next Command) bool {
	m, ok := next.(*MoveNodeCommand)
	if !ok || m.id != c.id {
		return false
	}
	c.newPos = m.newPos
	return true
}
