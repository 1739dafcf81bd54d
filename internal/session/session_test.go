package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/conceptmap-go/internal/geometry"
	"github.com/Benny93/conceptmap-go/internal/graph"
	"github.com/Benny93/conceptmap-go/internal/storage"
)

type seqIDs struct{ next int }

func (g *seqIDs) NewID() string {
	g.next++
	return fmt.Sprintf("id%d", g.next)
}

func newSession(t *testing.T) *Session {
	t.Helper()
	s := New(WithIDGenerator(&seqIDs{}))
	t.Cleanup(s.Close)
	return s
}

func TestEditAndUndo(t *testing.T) {
	t.Parallel()

	s := newSession(t)

	a, ok := s.NewNode("Energy")
	require.True(t, ok)
	b, ok := s.NewNode("Matter")
	require.True(t, ok)
	assert.Equal(t, geometry.Point{X: 100, Y: 100}, a.Pos())
	assert.Equal(t, geometry.Point{X: 300, Y: 100}, b.Pos())

	e, ok := s.Connect(a.ID, b.ID, "converts to")
	require.True(t, ok)

	_, ok = s.Connect(a.ID, "missing", "x")
	assert.False(t, ok)

	require.True(t, s.MoveNode(b.ID, geometry.Point{X: 300, Y: 400}))
	require.True(t, s.DeleteNode(a.ID))
	assert.Equal(t, 0, s.Map().EdgeCount())
	assert.True(t, s.Scene().Consistent())

	require.True(t, s.Undo())
	assert.True(t, s.Map().HasEdge(e.ID), "undoing the delete restores its edge")

	require.True(t, s.Undo())
	got, _ := s.Map().NodeByID(b.ID)
	assert.Equal(t, geometry.Point{X: 300, Y: 100}, got.Pos())

	for s.Undo() {
	}
	assert.Equal(t, 0, s.Map().NodeCount())
	assert.True(t, s.Scene().Consistent())

	for s.Redo() {
	}
	assert.Equal(t, 1, s.Map().NodeCount())
	assert.True(t, s.Scene().Consistent())
}

func TestMoveToSamePositionIsNoOp(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	n, _ := s.NewNode("A")
	depth := s.History().Count()

	require.True(t, s.MoveNode(n.ID, n.Pos()))
	assert.Equal(t, depth, s.History().Count())
	assert.False(t, s.MoveNode("missing", geometry.Point{}))
}

func TestNewNodeAt(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	n, ok := s.NewNodeAt("Oval", geometry.Point{X: 5, Y: 6}, geometry.Ellipse)
	require.True(t, ok)

	got, _ := s.Map().NodeByID(n.ID)
	assert.Equal(t, geometry.Ellipse, got.Shape)
	assert.Equal(t, geometry.Point{X: 5, Y: 6}, got.Pos())
	assert.Equal(t, 0, s.Grid().Placed())
}

func TestModified(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	assert.False(t, s.Modified())

	s.NewNode("A")
	assert.True(t, s.Modified())

	s.MarkSaved()
	assert.False(t, s.Modified())

	s.Undo()
	assert.True(t, s.Modified())
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("Valid", func(t *testing.T) {
		t.Parallel()
		s := newSession(t)
		s.NewNode("discarded")

		snap := graph.Snapshot{
			Name: "Loaded",
			Nodes: []graph.Node{
				{ID: "n1", Text: "A", Width: 120, Height: 60},
				{ID: "n2", Text: "B", X: 200, Width: 120, Height: 60},
			},
			Edges: []graph.Edge{{ID: "e1", Source: "n1", Target: "n2", Label: "to"}},
		}
		require.NoError(t, s.Load(snap))

		assert.Equal(t, snap, s.Snapshot())
		assert.False(t, s.History().CanUndo())
		assert.False(t, s.Modified())
		assert.True(t, s.Scene().Consistent())

		n, _ := s.NewNode("C")
		assert.Equal(t, geometry.Point{X: 500, Y: 100}, n.Pos(), "grid continues after loaded nodes")
	})

	t.Run("Invalid", func(t *testing.T) {
		t.Parallel()
		s := newSession(t)
		n, _ := s.NewNode("kept")

		err := s.Load(graph.Snapshot{
			Edges: []graph.Edge{{ID: "e1", Source: "x", Target: "y"}},
		})
		assert.ErrorIs(t, err, ErrInvalidSnapshot)
		assert.True(t, s.Map().HasNode(n.ID))
		assert.True(t, s.History().CanUndo())
	})
}

func TestSaveAndOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := storage.NewMemoryBackend()

	s := newSession(t)
	s.Map().SetName("Physics")
	a, _ := s.NewNode("Energy")
	b, _ := s.NewNode("Mass")
	s.Connect(a.ID, b.ID, "equivalent")
	require.NoError(t, s.Save(ctx, backend))
	assert.False(t, s.Modified())

	other := newSession(t)
	require.NoError(t, other.Open(ctx, backend))
	assert.Equal(t, s.Snapshot(), other.Snapshot())
	assert.Equal(t, "Physics", other.Map().Name())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, s.Save(cancelled, backend), context.Canceled)
	assert.ErrorIs(t, other.Open(cancelled, backend), context.Canceled)
}

// TestScenario walks through creating two nodes, connecting them, deleting
// the source and undoing the deletion.
func TestScenario(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	m := s.Map()

	require.True(t, s.Scene().InsertNode(graph.Node{ID: "n1", Text: "A", Width: 100, Height: 50}))
	require.True(t, s.Scene().InsertNode(graph.Node{ID: "n2", Text: "B", X: 200, Width: 100, Height: 50}))
	require.True(t, s.Scene().InsertEdge(graph.Edge{ID: "e1", Source: "n1", Target: "n2", Label: "rel"}))

	require.True(t, s.DeleteNode("n1"))
	assert.Equal(t, 1, m.NodeCount())
	assert.Equal(t, 0, m.EdgeCount())

	require.True(t, s.Undo())
	assert.Equal(t, 2, m.NodeCount())
	assert.Equal(t, 1, m.EdgeCount())
	e, ok := m.EdgeByID("e1")
	require.True(t, ok)
	assert.Equal(t, "n1", e.Source)
	assert.Equal(t, "n2", e.Target)
	assert.True(t, s.Scene().Consistent())
}
