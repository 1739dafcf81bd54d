package storage

import (
	"context"
	"sync"

	"github.com/Benny93/conceptmap-go/internal/graph"
)

// MemoryBackend is an in-memory implementation of Backend for testing.
type MemoryBackend struct {
	mu      sync.RWMutex
	snap    graph.Snapshot
	indexed bool
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Initialize implements Backend.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexed = true
	return nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = graph.Snapshot{}
	return nil
}

// IsIndexed reports whether the backend was initialized or loaded.
func (m *MemoryBackend) IsIndexed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexed
}

// BulkLoad implements Backend.
func (m *MemoryBackend) BulkLoad(ctx context.Context, snap graph.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.snap = copySnapshot(snap)
	m.indexed = true
	return nil
}

// ReadAll implements Backend.
func (m *MemoryBackend) ReadAll(ctx context.Context) (graph.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return graph.Snapshot{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySnapshot(m.snap), nil
}

// NodeCount implements Backend.
func (m *MemoryBackend) NodeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snap.Nodes)
}

// EdgeCount implements Backend.
func (m *MemoryBackend) EdgeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snap.Edges)
}

// Search implements Backend by scanning every entity.
func (m *MemoryBackend) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms := queryTerms(query)
	if len(terms) == 0 {
		return []SearchResult{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []SearchResult
	for _, n := range m.snap.Nodes {
		if score := scoreText(terms, n.Text); score > 0 {
			results = append(results, SearchResult{ID: n.ID, Kind: KindNode, Text: n.Text, Score: score})
		}
	}
	for _, e := range m.snap.Edges {
		if score := scoreText(terms, e.Label); score > 0 {
			results = append(results, SearchResult{ID: e.ID, Kind: KindEdge, Text: e.Label, Score: score})
		}
	}
	return rankResults(results, limit), nil
}

func copySnapshot(snap graph.Snapshot) graph.Snapshot {
	return graph.Snapshot{
		Name:  snap.Name,
		Nodes: append([]graph.Node(nil), snap.Nodes...),
		Edges: append([]graph.Edge(nil), snap.Edges...),
	}
}
