// Package storage provides persistence backends for concept maps.
//
// A Backend holds exactly one map. It is written as a whole with BulkLoad
// and read back as a whole with ReadAll, preserving node and edge order.
package storage

import (
	"context"
	"errors"

	"github.com/Benny93/conceptmap-go/internal/graph"
)

// ErrNotInitialized is returned when a backend is used before Initialize.
var ErrNotInitialized = errors.New("storage backend not initialized")

// Entity kinds reported in search results.
const (
	KindNode = "node"
	KindEdge = "edge"
)

// SearchResult is one match of a text search.
type SearchResult struct {
	// ID is the ID of the matching node or edge.
	ID string `json:"id"`

	// Kind is KindNode or KindEdge.
	Kind string `json:"kind"`

	// Text is the node text or edge label.
	Text string `json:"text"`

	// Score is the summed term frequency of the query terms (higher is better).
	Score float64 `json:"score"`
}

// Backend defines the interface for storage implementations.
//
// Implementations must be safe for concurrent use.
type Backend interface {
	// Initialize opens or creates the backend at the given path.
	// If readOnly is true, the backend is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the backend.
	Close() error

	// BulkLoad replaces the stored map with snap.
	BulkLoad(ctx context.Context, snap graph.Snapshot) error

	// ReadAll returns the stored map in insertion order.
	ReadAll(ctx context.Context) (graph.Snapshot, error)

	// NodeCount returns the number of stored nodes.
	NodeCount() int

	// EdgeCount returns the number of stored edges.
	EdgeCount() int

	// Search finds nodes and edges whose text matches query.
	// A limit of zero or less returns every match.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}
