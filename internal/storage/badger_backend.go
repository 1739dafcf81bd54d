package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/Benny93/conceptmap-go/internal/graph"
)

// Key prefixes for different data types. Node and edge keys carry a zero
// padded sequence number so prefix iteration returns insertion order.
const (
	prefixNode = "n:" // n:%08d -> node JSON
	prefixEdge = "e:" // e:%08d -> edge JSON
	prefixMeta = "m:" // m:name -> map name
	prefixFTS  = "fts:"

	metaName = prefixMeta + "name"
)

// BadgerBackend is a BadgerDB-backed storage implementation.
type BadgerBackend struct {
	db          *badger.DB
	fts         *FTSIndex
	initialized bool
	mu          sync.RWMutex
	nodeCount   int
	edgeCount   int
}

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithNumMemtables(5).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	b.fts = NewFTSIndex(b.db)
	b.initialized = true

	return b.recount()
}

// recount refreshes the cached entity counts from the database.
func (b *BadgerBackend) recount() error {
	return b.db.View(func(txn *badger.Txn) error {
		b.nodeCount = countPrefix(txn, prefixNode)
		b.edgeCount = countPrefix(txn, prefixEdge)
		return nil
	})
}

func countPrefix(txn *badger.Txn, prefix string) int {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Rewind(); it.Valid(); it.Next() {
		n++
	}
	return n
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.fts = nil
	b.initialized = false
	return err
}

// BulkLoad replaces the stored map with snap. Entities are encoded before
// anything is written, and the keys of the previous map are deleted in the
// same batch that writes the new one, so a failed encode leaves the stored
// map untouched.
func (b *BadgerBackend) BulkLoad(ctx context.Context, snap graph.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return ErrNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	nodes := make([][]byte, len(snap.Nodes))
	for i, node := range snap.Nodes {
		data, err := json.Marshal(node)
		if err != nil {
			return fmt.Errorf("marshaling node %s: %w", node.ID, err)
		}
		nodes[i] = data
	}

	edges := make([][]byte, len(snap.Edges))
	for i, edge := range snap.Edges {
		data, err := json.Marshal(edge)
		if err != nil {
			return fmt.Errorf("marshaling edge %s: %w", edge.ID, err)
		}
		edges[i] = data
	}

	stale, err := b.existingKeys(prefixNode, prefixEdge, prefixMeta, prefixFTS)
	if err != nil {
		return fmt.Errorf("listing previous map: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	// Deletes go first; a later Set of the same key wins.
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("deleting previous map: %w", err)
		}
	}

	if err := wb.Set([]byte(metaName), []byte(snap.Name)); err != nil {
		return fmt.Errorf("setting map name: %w", err)
	}
	for i, data := range nodes {
		if err := wb.Set(b.nodeKey(i), data); err != nil {
			return fmt.Errorf("setting node: %w", err)
		}
	}
	for i, data := range edges {
		if err := wb.Set(b.edgeKey(i), data); err != nil {
			return fmt.Errorf("setting edge: %w", err)
		}
	}

	if err := b.fts.IndexSnapshot(wb, snap); err != nil {
		return err
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flushing map: %w", err)
	}

	b.nodeCount = len(snap.Nodes)
	b.edgeCount = len(snap.Edges)
	return nil
}

// existingKeys lists every stored key under the given prefixes.
func (b *BadgerBackend) existingKeys(prefixes ...string) ([][]byte, error) {
	var keys [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		for _, prefix := range prefixes {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			opts.Prefix = []byte(prefix)

			it := txn.NewIterator(opts)
			for it.Rewind(); it.Valid(); it.Next() {
				keys = append(keys, it.Item().KeyCopy(nil))
			}
			it.Close()
		}
		return nil
	})
	return keys, err
}

// ReadAll returns the stored map in insertion order.
func (b *BadgerBackend) ReadAll(ctx context.Context) (graph.Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return graph.Snapshot{}, ErrNotInitialized
	}

	var snap graph.Snapshot
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaName))
		switch {
		case err == nil:
			name, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("reading map name: %w", err)
			}
			snap.Name = string(name)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return fmt.Errorf("getting map name: %w", err)
		}

		if err := scanPrefix(ctx, txn, prefixNode, func(val []byte) error {
			var n graph.Node
			if err := json.Unmarshal(val, &n); err != nil {
				return fmt.Errorf("unmarshaling node: %w", err)
			}
			snap.Nodes = append(snap.Nodes, n)
			return nil
		}); err != nil {
			return err
		}

		return scanPrefix(ctx, txn, prefixEdge, func(val []byte) error {
			var e graph.Edge
			if err := json.Unmarshal(val, &e); err != nil {
				return fmt.Errorf("unmarshaling edge: %w", err)
			}
			snap.Edges = append(snap.Edges, e)
			return nil
		})
	})
	if err != nil {
		return graph.Snapshot{}, err
	}
	return snap, nil
}

func scanPrefix(ctx context.Context, txn *badger.Txn, prefix string, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

// NodeCount returns the number of stored nodes.
func (b *BadgerBackend) NodeCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nodeCount
}

// EdgeCount returns the number of stored edges.
func (b *BadgerBackend) EdgeCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.edgeCount
}

// Search finds nodes and edges whose text matches query.
func (b *BadgerBackend) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return nil, ErrNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.fts.Search(query, limit)
}

func (b *BadgerBackend) nodeKey(seq int) []byte {
	return []byte(fmt.Sprintf("%s%08d", prefixNode, seq))
}

func (b *BadgerBackend) edgeKey(seq int) []byte {
	return []byte(fmt.Sprintf("%s%08d", prefixEdge, seq))
}
