package graph

// EventKind identifies a change to a ConceptMap.
type EventKind int

const (
	NodeAdded EventKind = iota
	NodeRemoved
	NodeUpdated
	EdgeAdded
	EdgeRemoved
	EdgeUpdated

	// Reset follows a bulk replacement or clear; subscribers should rebuild
	// from a fresh Snapshot.
	Reset
)

func (k EventKind) String() string {
	switch k {
	case NodeAdded:
		return "node-added"
	case NodeRemoved:
		return "node-removed"
	case NodeUpdated:
		return "node-updated"
	case EdgeAdded:
		return "edge-added"
	case EdgeRemoved:
		return "edge-removed"
	case EdgeUpdated:
		return "edge-updated"
	case Reset:
		return "reset"
	default:
		return "unknown"
	}
}

// Event describes one completed mutation. Node is set for node events and
// Edge for edge events; removal events carry the value as it was before
// removal.
type Event struct {
	Kind EventKind
	Node Node
	Edge Edge
}

// ID returns the identifier of the entity the event is about.
func (e Event) ID() string {
	switch e.Kind {
	case NodeAdded, NodeRemoved, NodeUpdated:
		return e.Node.ID
	case EdgeAdded, EdgeRemoved, EdgeUpdated:
		return e.Edge.ID
	default:
		return ""
	}
}

// Listener receives change notifications synchronously, after the store
// has reached a consistent state.
type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}

// Subscribe registers l and returns a function that removes it.
// Listeners are called in subscription order.
func (m *ConceptMap) Subscribe(l Listener) func() {
	m.nextSub++
	id := m.nextSub
	m.subs = append(m.subs, subscription{id: id, fn: l})

	return func() {
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

func (m *ConceptMap) emit(ev Event) {
	for _, s := range m.subs {
		s.fn(ev)
	}
}
