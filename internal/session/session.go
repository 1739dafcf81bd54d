// Package session ties a concept map, its undo history and its scene into
// one editing session.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/Benny93/conceptmap-go/internal/geometry"
	"github.com/Benny93/conceptmap-go/internal/graph"
	"github.com/Benny93/conceptmap-go/internal/history"
	"github.com/Benny93/conceptmap-go/internal/logging"
	"github.com/Benny93/conceptmap-go/internal/scene"
	"github.com/Benny93/conceptmap-go/internal/storage"
)

// ErrInvalidSnapshot is returned by Load for snapshots with duplicate IDs or
// dangling edges.
var ErrInvalidSnapshot = errors.New("invalid concept map snapshot")

// Session is a single-threaded editing session.
type Session struct {
	store   *graph.ConceptMap
	history *history.Stack
	scene   *scene.Scene
	grid    *scene.Grid
	ids     graph.IDGenerator
	logger  *log.Logger
}

type config struct {
	logger    *log.Logger
	ids       graph.IDGenerator
	undoLimit int
}

// Option configures a Session.
type Option func(*config)

// WithLogger sets the logger shared by the session, its history and scene.
func WithLogger(l *log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithIDGenerator sets the generator for new node and edge IDs.
func WithIDGenerator(ids graph.IDGenerator) Option {
	return func(c *config) { c.ids = ids }
}

// WithUndoLimit caps the undo history. Zero means unlimited.
func WithUndoLimit(n int) Option {
	return func(c *config) { c.undoLimit = n }
}

// New creates an empty session.
func New(opts ...Option) *Session {
	cfg := config{logger: logging.Discard(), ids: graph.UUIDGenerator{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	store := graph.NewConceptMap()
	stack := history.NewStack(
		history.WithLimit(cfg.undoLimit),
		history.WithLogger(cfg.logger),
	)
	sc := scene.New(store, stack,
		scene.WithIDGenerator(cfg.ids),
		scene.WithLogger(cfg.logger),
	)

	return &Session{
		store:   store,
		history: stack,
		scene:   sc,
		grid:    scene.NewGrid(),
		ids:     cfg.ids,
		logger:  cfg.logger,
	}
}

// Close detaches the scene from the store.
func (s *Session) Close() { s.scene.Close() }

// Map returns the edited concept map.
func (s *Session) Map() *graph.ConceptMap { return s.store }

// History returns the undo history.
func (s *Session) History() *history.Stack { return s.history }

// Scene returns the interactive scene.
func (s *Session) Scene() *scene.Scene { return s.scene }

// Grid returns the placement grid for new nodes.
func (s *Session) Grid() *scene.Grid { return s.grid }

// IDs returns the generator used for new node and edge IDs.
func (s *Session) IDs() graph.IDGenerator { return s.ids }

// NewNode creates a node at the next grid slot.
func (s *Session) NewNode(text string) (graph.Node, bool) {
	n, ok := s.scene.CreateNode(text, s.grid)
	if ok {
		s.logger.Debug("node created", "id", n.ID, "x", n.X, "y", n.Y)
	}
	return n, ok
}

// NewNodeAt creates a node at pos with the given shape.
func (s *Session) NewNodeAt(text string, pos geometry.Point, shape geometry.Shape) (graph.Node, bool) {
	n := graph.NewNode(s.ids, text, pos)
	n.Shape = shape
	return n, s.scene.InsertNode(n)
}

// Connect creates an edge between two existing nodes.
func (s *Session) Connect(source, target, label string) (graph.Edge, bool) {
	e, ok := s.scene.Connect(source, target, label)
	if !ok {
		s.logger.Warn("edge rejected", "source", source, "target", target)
	}
	return e, ok
}

// DeleteNode deletes a node and its edges.
func (s *Session) DeleteNode(id string) bool { return s.scene.DeleteNode(id) }

// DeleteEdge deletes an edge.
func (s *Session) DeleteEdge(id string) bool { return s.scene.DeleteEdge(id) }

// MoveNode moves a node to pos.
func (s *Session) MoveNode(id string, pos geometry.Point) bool { return s.scene.Relocate(id, pos) }

// Undo reverts the last edit.
func (s *Session) Undo() bool { return s.history.Undo() }

// Redo re-applies the last undone edit.
func (s *Session) Redo() bool { return s.history.Redo() }

// Snapshot returns a copy of the current map.
func (s *Session) Snapshot() graph.Snapshot { return s.store.Snapshot() }

// Modified reports whether the map differs from the last saved state.
func (s *Session) Modified() bool { return !s.history.IsClean() }

// MarkSaved marks the current state as saved.
func (s *Session) MarkSaved() { s.history.SetClean() }

// Load replaces the map with snap and starts a fresh, clean history. New
// nodes continue on the grid after the loaded ones.
func (s *Session) Load(snap graph.Snapshot) error {
	if !s.store.ReplaceAll(snap) {
		return ErrInvalidSnapshot
	}
	s.history.Clear()
	s.grid.Reset()
	for range snap.Nodes {
		s.grid.Next()
	}
	s.logger.Debug("map loaded", "name", s.store.Name(), "nodes", len(snap.Nodes), "edges", len(snap.Edges))
	return nil
}

// Open loads the map stored in backend.
func (s *Session) Open(ctx context.Context, backend storage.Backend) error {
	snap, err := backend.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("reading map: %w", err)
	}
	if err := s.Load(snap); err != nil {
		return fmt.Errorf("loading map: %w", err)
	}
	return nil
}

// Save writes the map to backend and marks it saved.
func (s *Session) Save(ctx context.Context, backend storage.Backend) error {
	if err := backend.BulkLoad(ctx, s.Snapshot()); err != nil {
		return fmt.Errorf("writing map: %w", err)
	}
	s.MarkSaved()
	s.logger.Debug("map saved", "nodes", s.store.NodeCount(), "edges", s.store.EdgeCount())
	return nil
}
