package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/conceptmap-go/internal/geometry"
)

func testNode(id string, x, y float64) Node {
	return Node{
		ID:     id,
		Text:   "node " + id,
		X:      x,
		Y:      y,
		Width:  100,
		Height: 50,
		Color:  DefaultNodeColor,
		Shape:  geometry.Rectangle,
		Style:  DefaultStyle,
	}
}

func testEdge(id, source, target string) Edge {
	return Edge{ID: id, Source: source, Target: target, Label: "to", Color: DefaultEdgeColor, Style: DefaultStyle}
}

// newTriangle builds n1 -> n2 -> n3 -> n1.
func newTriangle(t *testing.T) *ConceptMap {
	t.Helper()
	m := NewConceptMap()
	require.True(t, m.AddNode(testNode("n1", 0, 0)))
	require.True(t, m.AddNode(testNode("n2", 300, 0)))
	require.True(t, m.AddNode(testNode("n3", 150, 200)))
	require.True(t, m.AddEdge(testEdge("e1", "n1", "n2")))
	require.True(t, m.AddEdge(testEdge("e2", "n2", "n3")))
	require.True(t, m.AddEdge(testEdge("e3", "n3", "n1")))
	return m
}

func edgeIDs(edges []Edge) []string {
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.ID)
	}
	return ids
}

func nodeIDs(nodes []Node) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestNewConceptMap(t *testing.T) {
	t.Parallel()

	m := NewConceptMap()

	assert.NotNil(t, m)
	assert.Equal(t, 0, m.NodeCount())
	assert.Equal(t, 0, m.EdgeCount())
	assert.Equal(t, DefaultMapName, m.Name())
}

func TestConceptMap_AddNode(t *testing.T) {
	t.Parallel()

	t.Run("LookupReturnsEqualValue", func(t *testing.T) {
		t.Parallel()
		m := NewConceptMap()
		n := testNode("n1", 10, 20)
		n.Shape = geometry.Ellipse

		require.True(t, m.AddNode(n))

		got, ok := m.NodeByID("n1")
		require.True(t, ok)
		assert.Equal(t, n, got)
		assert.True(t, m.HasNode("n1"))
	})

	t.Run("DuplicateID", func(t *testing.T) {
		t.Parallel()
		m := NewConceptMap()
		require.True(t, m.AddNode(testNode("n1", 0, 0)))

		assert.False(t, m.AddNode(testNode("n1", 99, 99)))
		got, _ := m.NodeByID("n1")
		assert.Equal(t, 0.0, got.X)
		assert.Equal(t, 1, m.NodeCount())
	})

	t.Run("MissingLookup", func(t *testing.T) {
		t.Parallel()
		m := NewConceptMap()
		_, ok := m.NodeByID("nope")
		assert.False(t, ok)
	})
}

func TestConceptMap_AddEdge(t *testing.T) {
	t.Parallel()

	t.Run("Success", func(t *testing.T) {
		t.Parallel()
		m := NewConceptMap()
		m.AddNode(testNode("n1", 0, 0))
		m.AddNode(testNode("n2", 300, 0))

		require.True(t, m.AddEdge(testEdge("e1", "n1", "n2")))
		got, ok := m.EdgeByID("e1")
		require.True(t, ok)
		assert.Equal(t, "n1", got.Source)
		assert.Equal(t, "n2", got.Target)
	})

	t.Run("MissingSource", func(t *testing.T) {
		t.Parallel()
		m := NewConceptMap()
		m.AddNode(testNode("n2", 0, 0))
		assert.False(t, m.AddEdge(testEdge("e1", "ghost", "n2")))
		assert.Equal(t, 0, m.EdgeCount())
	})

	t.Run("MissingTarget", func(t *testing.T) {
		t.Parallel()
		m := NewConceptMap()
		m.AddNode(testNode("n1", 0, 0))
		assert.False(t, m.AddEdge(testEdge("e1", "n1", "ghost")))
	})

	t.Run("DuplicateID", func(t *testing.T) {
		t.Parallel()
		m := newTriangle(t)
		assert.False(t, m.AddEdge(testEdge("e1", "n2", "n1")))
		assert.Equal(t, 3, m.EdgeCount())
	})

	t.Run("SelfLoopAllowed", func(t *testing.T) {
		t.Parallel()
		m := NewConceptMap()
		m.AddNode(testNode("n1", 0, 0))
		assert.True(t, m.AddEdge(testEdge("loop", "n1", "n1")))
	})
}

func TestConceptMap_RemoveNode(t *testing.T) {
	t.Parallel()

	t.Run("CascadesIncidentEdges", func(t *testing.T) {
		t.Parallel()
		m := newTriangle(t)

		require.True(t, m.RemoveNode("n1"))

		assert.False(t, m.HasNode("n1"))
		assert.Empty(t, m.EdgesByNodeID("n1"))
		assert.Equal(t, []string{"e2"}, edgeIDs(m.Edges()))
		for _, e := range m.Edges() {
			assert.False(t, e.Touches("n1"))
		}
	})

	t.Run("Missing", func(t *testing.T) {
		t.Parallel()
		m := newTriangle(t)
		assert.False(t, m.RemoveNode("ghost"))
		assert.Equal(t, 3, m.NodeCount())
	})

	t.Run("PreservesOrderAndIndex", func(t *testing.T) {
		t.Parallel()
		m := NewConceptMap()
		for _, id := range []string{"a", "b", "c", "d"} {
			m.AddNode(testNode(id, 0, 0))
		}

		require.True(t, m.RemoveNode("b"))

		assert.Equal(t, []string{"a", "c", "d"}, nodeIDs(m.Nodes()))
		for _, id := range []string{"a", "c", "d"} {
			got, ok := m.NodeByID(id)
			require.True(t, ok, id)
			assert.Equal(t, id, got.ID)
		}
	})
}

func TestConceptMap_RemoveEdge(t *testing.T) {
	t.Parallel()

	t.Run("PreservesOrderAndIndex", func(t *testing.T) {
		t.Parallel()
		m := newTriangle(t)

		require.True(t, m.RemoveEdge("e1"))

		assert.Equal(t, []string{"e2", "e3"}, edgeIDs(m.Edges()))
		got, ok := m.EdgeByID("e3")
		require.True(t, ok)
		assert.Equal(t, "n3", got.Source)
		assert.True(t, m.HasNode("n1"))
	})

	t.Run("Missing", func(t *testing.T) {
		t.Parallel()
		m := newTriangle(t)
		assert.False(t, m.RemoveEdge("ghost"))
	})
}

func TestConceptMap_Update(t *testing.T) {
	t.Parallel()

	t.Run("Node", func(t *testing.T) {
		t.Parallel()
		m := newTriangle(t)
		n, _ := m.NodeByID("n2")
		n.Text = "renamed"

		require.True(t, m.UpdateNode(n))
		got, _ := m.NodeByID("n2")
		assert.Equal(t, "renamed", got.Text)
		assert.False(t, m.UpdateNode(testNode("ghost", 0, 0)))
	})

	t.Run("Edge", func(t *testing.T) {
		t.Parallel()
		m := newTriangle(t)
		e, _ := m.EdgeByID("e2")
		e.Label = "causes"

		require.True(t, m.UpdateEdge(e))
		got, _ := m.EdgeByID("e2")
		assert.Equal(t, "causes", got.Label)
		assert.False(t, m.UpdateEdge(testEdge("ghost", "n1", "n2")))
	})

	t.Run("EdgeToMissingNode", func(t *testing.T) {
		t.Parallel()
		m := newTriangle(t)
		assert.False(t, m.UpdateEdge(testEdge("e2", "n2", "ghost")))
		got, _ := m.EdgeByID("e2")
		assert.Equal(t, "n3", got.Target)
	})
}

func TestConceptMap_EdgesByNodeID(t *testing.T) {
	t.Parallel()

	m := newTriangle(t)

	assert.ElementsMatch(t, []string{"e1", "e3"}, edgeIDs(m.EdgesByNodeID("n1")))
	assert.ElementsMatch(t, []string{"e1", "e2"}, edgeIDs(m.EdgesByNodeID("n2")))
	assert.Empty(t, m.EdgesByNodeID("ghost"))
}

func TestConceptMap_ReplaceAll(t *testing.T) {
	t.Parallel()

	t.Run("Success", func(t *testing.T) {
		t.Parallel()
		src := newTriangle(t)
		src.SetName("physics")

		dst := NewConceptMap()
		dst.AddNode(testNode("old", 0, 0))

		require.True(t, dst.ReplaceAll(src.Snapshot()))
		assert.Equal(t, src.Snapshot(), dst.Snapshot())
		assert.False(t, dst.HasNode("old"))
		assert.Equal(t, "physics", dst.Name())
	})

	t.Run("RejectsDanglingEdge", func(t *testing.T) {
		t.Parallel()
		m := NewConceptMap()
		m.AddNode(testNode("keep", 0, 0))

		ok := m.ReplaceAll(Snapshot{
			Nodes: []Node{testNode("n1", 0, 0)},
			Edges: []Edge{testEdge("e1", "n1", "ghost")},
		})

		assert.False(t, ok)
		assert.True(t, m.HasNode("keep"))
		assert.Equal(t, 1, m.NodeCount())
	})

	t.Run("RejectsDuplicateNode", func(t *testing.T) {
		t.Parallel()
		m := NewConceptMap()
		ok := m.ReplaceAll(Snapshot{Nodes: []Node{testNode("n1", 0, 0), testNode("n1", 5, 5)}})
		assert.False(t, ok)
		assert.Equal(t, 0, m.NodeCount())
	})

	t.Run("SnapshotIsACopy", func(t *testing.T) {
		t.Parallel()
		m := newTriangle(t)
		snap := m.Snapshot()
		snap.Nodes[0].Text = "mutated"

		got, _ := m.NodeByID("n1")
		assert.Equal(t, "node n1", got.Text)
	})
}

func TestConceptMap_Clear(t *testing.T) {
	t.Parallel()

	m := newTriangle(t)
	m.Clear()

	assert.Equal(t, 0, m.NodeCount())
	assert.Equal(t, 0, m.EdgeCount())
	assert.True(t, m.AddNode(testNode("n1", 0, 0)))
}

func TestConceptMap_Subscribe(t *testing.T) {
	t.Parallel()

	t.Run("CascadeOrder", func(t *testing.T) {
		t.Parallel()
		m := newTriangle(t)

		var got []string
		m.Subscribe(func(ev Event) {
			got = append(got, ev.Kind.String()+":"+ev.ID())
		})

		m.RemoveNode("n1")

		assert.Equal(t, []string{"edge-removed:e1", "edge-removed:e3", "node-removed:n1"}, got)
	})

	t.Run("FailedOperationsAreSilent", func(t *testing.T) {
		t.Parallel()
		m := newTriangle(t)

		calls := 0
		m.Subscribe(func(Event) { calls++ })

		m.AddNode(testNode("n1", 0, 0))
		m.AddEdge(testEdge("x", "n1", "ghost"))
		m.RemoveEdge("ghost")
		m.UpdateNode(testNode("ghost", 0, 0))

		assert.Equal(t, 0, calls)
	})

	t.Run("Unsubscribe", func(t *testing.T) {
		t.Parallel()
		m := NewConceptMap()

		var first, second int
		unsubscribe := m.Subscribe(func(Event) { first++ })
		m.Subscribe(func(Event) { second++ })

		m.AddNode(testNode("a", 0, 0))
		unsubscribe()
		m.AddNode(testNode("b", 0, 0))

		assert.Equal(t, 1, first)
		assert.Equal(t, 2, second)
	})

	t.Run("ResetOnReplaceAll", func(t *testing.T) {
		t.Parallel()
		m := NewConceptMap()

		var kinds []EventKind
		m.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })
		m.ReplaceAll(Snapshot{Nodes: []Node{testNode("a", 0, 0)}})

		assert.Equal(t, []EventKind{Reset}, kinds)
	})
}

// End-to-end scenario: two boxes, one connector, then delete the source.
func TestConceptMap_RemoveSourceNodeScenario(t *testing.T) {
	t.Parallel()

	m := NewConceptMap()
	require.True(t, m.AddNode(testNode("n1", 0, 0)))
	require.True(t, m.AddNode(testNode("n2", 300, 0)))
	require.True(t, m.AddEdge(testEdge("e1", "n1", "n2")))

	require.True(t, m.RemoveNode("n1"))

	_, ok := m.NodeByID("n1")
	assert.False(t, ok)
	assert.False(t, m.HasEdge("e1"))
	assert.Empty(t, m.EdgesByNodeID("n2"))
}
