// Package graph provides the concept map data model and its entity store.
//
// It defines the node and edge value types that make up a concept map
// (labeled boxes and the directed connectors between them) and ConceptMap,
// the store that owns them.
package graph

import (
	"github.com/google/uuid"

	"github.com/Benny93/conceptmap-go/internal/geometry"
)

// Default attribute values for newly created entities.
const (
	DefaultNodeText   = "New Node"
	DefaultNodeWidth  = 120.0
	DefaultNodeHeight = 60.0
	DefaultStyle      = "default"
	DefaultMapName    = "Untitled"
)

var (
	// DefaultNodeColor is the fill of a new node.
	DefaultNodeColor = Color{R: 200, G: 220, B: 240}

	// DefaultEdgeColor is the stroke of a new edge.
	DefaultEdgeColor = Color{R: 100, G: 100, B: 100}
)

// Color is an opaque RGB color.
type Color struct {
	R uint8 `json:"red" yaml:"red"`
	G uint8 `json:"green" yaml:"green"`
	B uint8 `json:"blue" yaml:"blue"`
}

// Node is a concept in the map.
type Node struct {
	// ID is the unique identifier for the node.
	ID string `json:"id" yaml:"id"`

	// Text is the label drawn inside the node.
	Text string `json:"text" yaml:"text"`

	// X and Y locate the top-left corner of the node in scene coordinates.
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`

	// Width and Height give the size of the node box.
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`

	// Color is the fill color.
	Color Color `json:"color" yaml:"color"`

	// Shape selects the outline used for drawing and edge anchoring.
	Shape geometry.Shape `json:"shape" yaml:"shape"`

	// Style is a free-form style preset tag.
	Style string `json:"style" yaml:"style"`
}

// Pos returns the top-left corner of the node.
func (n Node) Pos() geometry.Point {
	return geometry.Point{X: n.X, Y: n.Y}
}

// WithPos returns a copy of n moved to pos.
func (n Node) WithPos(pos geometry.Point) Node {
	n.X, n.Y = pos.X, pos.Y
	return n
}

// Bounds returns the node box.
func (n Node) Bounds() geometry.Rect {
	return geometry.Rect{X: n.X, Y: n.Y, Width: n.Width, Height: n.Height}
}

// Center returns the midpoint of the node box.
func (n Node) Center() geometry.Point {
	return n.Bounds().Center()
}

// Edge is a directed, labeled connector between two nodes.
type Edge struct {
	// ID is the unique identifier for the edge.
	ID string `json:"id" yaml:"id"`

	// Source is the ID of the node the edge starts at.
	Source string `json:"sourceId" yaml:"source"`

	// Target is the ID of the node the edge points to.
	Target string `json:"targetId" yaml:"target"`

	// Label is the text drawn at the edge midpoint.
	Label string `json:"label" yaml:"label"`

	// Color is the stroke color.
	Color Color `json:"color" yaml:"color"`

	// Style is a free-form style preset tag.
	Style string `json:"style" yaml:"style"`
}

// Touches reports whether the node participates in the edge.
func (e Edge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// IDGenerator produces globally unique entity identifiers.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues random (version 4) UUID strings.
type UUIDGenerator struct{}

// NewID implements IDGenerator.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// NewNode creates a node with a fresh ID and default attributes.
func NewNode(ids IDGenerator, text string, pos geometry.Point) Node {
	if text == "" {
		text = DefaultNodeText
	}
	return Node{
		ID:     ids.NewID(),
		Text:   text,
		X:      pos.X,
		Y:      pos.Y,
		Width:  DefaultNodeWidth,
		Height: DefaultNodeHeight,
		Color:  DefaultNodeColor,
		Shape:  geometry.Rectangle,
		Style:  DefaultStyle,
	}
}

// NewEdge creates an edge with a fresh ID and default attributes.
func NewEdge(ids IDGenerator, source, target, label string) Edge {
	return Edge{
		ID:     ids.NewID(),
		Source: source,
		Target: target,
		Label:  label,
		Color:  DefaultEdgeColor,
		Style:  DefaultStyle,
	}
}
