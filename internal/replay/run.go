package replay

import (
	"context"
	"fmt"
	"slices"

	"github.com/Benny93/conceptmap-go/internal/geometry"
	"github.com/Benny93/conceptmap-go/internal/graph"
	"github.com/Benny93/conceptmap-go/internal/logging"
	"github.com/Benny93/conceptmap-go/internal/scene"
	"github.com/Benny93/conceptmap-go/internal/session"
)

// Result summarizes a completed run.
type Result struct {
	Steps int
	Nodes int
	Edges int

	// Created lists the IDs of nodes and edges created by the run, in order.
	Created []string
}

// Run executes every step of script against sess, stopping at the first
// failing step. The context is checked between steps.
func Run(ctx context.Context, sess *session.Session, script *Script) (Result, error) {
	logger := logging.FromContext(ctx).With("script", script.Name)

	var res Result
	for i, step := range script.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		created, err := apply(sess, step)
		if err != nil {
			return res, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
		res.Created = append(res.Created, created...)
		res.Steps++
		logger.Debug("step applied", "step", i+1, "op", step.Op)
	}

	res.Nodes = sess.Map().NodeCount()
	res.Edges = sess.Map().EdgeCount()
	return res, nil
}

func apply(sess *session.Session, step Step) ([]string, error) {
	sc := sess.Scene()

	switch step.Op {
	case OpAddNode:
		return addNode(sess, step)

	case OpAddEdge:
		e := graph.NewEdge(sess.IDs(), step.Source, step.Target, step.Label)
		if step.ID != "" {
			e.ID = step.ID
		}
		if !sc.InsertEdge(e) {
			return nil, fmt.Errorf("%w: edge %s -> %s", ErrRejected, step.Source, step.Target)
		}
		return []string{e.ID}, nil

	case OpRemoveNode:
		return nil, check(sess.DeleteNode(step.ID), "node", step.ID)

	case OpRemoveEdge:
		return nil, check(sess.DeleteEdge(step.ID), "edge", step.ID)

	case OpMoveNode:
		if step.At == nil {
			return nil, fmt.Errorf("%w: move_node needs at", ErrRejected)
		}
		return nil, check(sess.MoveNode(step.ID, *step.At), "node", step.ID)

	case OpPress:
		sc.PointerDown(point(step), modifiers(step))

	case OpMove:
		sc.PointerMove(point(step))

	case OpRelease:
		if e, ok := sc.PointerUp(point(step)); ok {
			return []string{e.ID}, nil
		}

	case OpClick:
		sc.Click(point(step), modifiers(step))

	case OpSelect:
		return nil, check(sc.Select(step.ID), "item", step.ID)

	case OpSelectAll:
		sc.SelectAll()

	case OpClearSelection:
		sc.ClearSelection()

	case OpDelete:
		sc.DeleteSelection()

	case OpUndo:
		sess.Undo()

	case OpRedo:
		sess.Redo()

	case OpMarkClean:
		sess.MarkSaved()

	case OpExpect:
		return nil, verify(sess, step.Expect)

	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownOp, step.Op)
	}
	return nil, nil
}

func addNode(sess *session.Session, step Step) ([]string, error) {
	var pos geometry.Point
	if step.At != nil {
		pos = *step.At
	} else {
		pos = sess.Grid().Next()
	}

	n := graph.NewNode(sess.IDs(), step.Text, pos)
	n.Shape = step.Shape
	if step.ID != "" {
		n.ID = step.ID
	}
	if !sess.Scene().InsertNode(n) {
		return nil, fmt.Errorf("%w: node %s", ErrRejected, n.ID)
	}
	return []string{n.ID}, nil
}

func check(ok bool, kind, id string) error {
	if !ok {
		return fmt.Errorf("%w: no %s %q", ErrRejected, kind, id)
	}
	return nil
}

func point(step Step) geometry.Point {
	if step.At == nil {
		return geometry.Point{}
	}
	return *step.At
}

func modifiers(step Step) scene.Modifiers {
	var m scene.Modifiers
	if step.Shift {
		m |= scene.ModShift
	}
	if step.Ctrl {
		m |= scene.ModCtrl
	}
	return m
}

func verify(sess *session.Session, want *Expect) error {
	if want == nil {
		return nil
	}
	m := sess.Map()

	if want.Nodes != nil && *want.Nodes != m.NodeCount() {
		return fmt.Errorf("%w: %d nodes, want %d", ErrExpectation, m.NodeCount(), *want.Nodes)
	}
	if want.Edges != nil && *want.Edges != m.EdgeCount() {
		return fmt.Errorf("%w: %d edges, want %d", ErrExpectation, m.EdgeCount(), *want.Edges)
	}
	for _, id := range want.Has {
		if !m.HasNode(id) && !m.HasEdge(id) {
			return fmt.Errorf("%w: %q is missing", ErrExpectation, id)
		}
	}
	for _, id := range want.Missing {
		if m.HasNode(id) || m.HasEdge(id) {
			return fmt.Errorf("%w: %q is present", ErrExpectation, id)
		}
	}
	if want.Selected != nil {
		got := append(sess.Scene().SelectedNodes(), sess.Scene().SelectedEdges()...)
		if !slices.Equal(got, want.Selected) {
			return fmt.Errorf("%w: selected %v, want %v", ErrExpectation, got, want.Selected)
		}
	}
	if want.Modified != nil && *want.Modified != sess.Modified() {
		return fmt.Errorf("%w: modified=%t, want %t", ErrExpectation, sess.Modified(), *want.Modified)
	}
	return nil
}
