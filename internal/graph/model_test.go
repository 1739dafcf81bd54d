package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/conceptmap-go/internal/geometry"
)

type seqIDs struct {
	prefix string
	n      int
}

func (s *seqIDs) NewID() string {
	s.n++
	return s.prefix + string(rune('0'+s.n))
}

func TestEventKindString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		kind     EventKind
		expected string
	}{
		{"NodeAdded", NodeAdded, "node-added"},
		{"NodeRemoved", NodeRemoved, "node-removed"},
		{"NodeUpdated", NodeUpdated, "node-updated"},
		{"EdgeAdded", EdgeAdded, "edge-added"},
		{"EdgeRemoved", EdgeRemoved, "edge-removed"},
		{"EdgeUpdated", EdgeUpdated, "edge-updated"},
		{"Reset", Reset, "reset"},
		{"Unknown", EventKind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}

func TestNewNode(t *testing.T) {
	t.Parallel()

	t.Run("Defaults", func(t *testing.T) {
		t.Parallel()
		n := NewNode(&seqIDs{prefix: "n"}, "", geometry.Point{X: 100, Y: 250})

		assert.Equal(t, "n1", n.ID)
		assert.Equal(t, DefaultNodeText, n.Text)
		assert.Equal(t, geometry.Point{X: 100, Y: 250}, n.Pos())
		assert.Equal(t, DefaultNodeWidth, n.Width)
		assert.Equal(t, DefaultNodeHeight, n.Height)
		assert.Equal(t, DefaultNodeColor, n.Color)
		assert.Equal(t, geometry.Rectangle, n.Shape)
		assert.Equal(t, DefaultStyle, n.Style)
	})

	t.Run("UUIDsAreUnique", func(t *testing.T) {
		t.Parallel()
		ids := UUIDGenerator{}
		seen := make(map[string]bool)
		for range 100 {
			id := NewNode(ids, "x", geometry.Point{}).ID
			assert.Len(t, id, 36)
			assert.False(t, seen[id])
			seen[id] = true
		}
	})
}

func TestNewEdge(t *testing.T) {
	t.Parallel()

	e := NewEdge(&seqIDs{prefix: "e"}, "a", "b", "causes")

	assert.Equal(t, "e1", e.ID)
	assert.Equal(t, "a", e.Source)
	assert.Equal(t, "b", e.Target)
	assert.Equal(t, "causes", e.Label)
	assert.Equal(t, DefaultEdgeColor, e.Color)
	assert.True(t, e.Touches("a"))
	assert.True(t, e.Touches("b"))
	assert.False(t, e.Touches("c"))
}

func TestNode_Geometry(t *testing.T) {
	t.Parallel()

	n := Node{X: 300, Y: 0, Width: 100, Height: 50}

	assert.Equal(t, geometry.Rect{X: 300, Y: 0, Width: 100, Height: 50}, n.Bounds())
	assert.Equal(t, geometry.Point{X: 350, Y: 25}, n.Center())

	moved := n.WithPos(geometry.Point{X: 10, Y: 20})
	assert.Equal(t, geometry.Point{X: 10, Y: 20}, moved.Pos())
	assert.Equal(t, 300.0, n.X)
}

func TestSnapshot_JSONFieldNames(t *testing.T) {
	t.Parallel()

	snap := Snapshot{
		Nodes: []Node{{ID: "n1", Text: "A", X: 1, Y: 2, Width: 3, Height: 4, Color: Color{R: 1, G: 2, B: 3}, Shape: geometry.Ellipse, Style: "default"}},
		Edges: []Edge{{ID: "e1", Source: "n1", Target: "n1", Label: "self", Color: Color{R: 9}, Style: "default"}},
	}

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"nodes": [{"id":"n1","text":"A","x":1,"y":2,"width":3,"height":4,
			"color":{"red":1,"green":2,"blue":3},"shape":"ellipse","style":"default"}],
		"edges": [{"id":"e1","sourceId":"n1","targetId":"n1","label":"self",
			"color":{"red":9,"green":0,"blue":0},"style":"default"}]
	}`, string(data))
}
