package graph

import "slices"

type EventKind int

const (
	NodeCreated EventKind = iota
	NodeDeleted
	NodeMoved
	// NodeUpdated covers ports, caption, nickname, status and size changes.
	NodeUpdated
	ConnectionCreated
	ConnectionDeleted
	// ConnectionUpdated is sent when a port insert or erase reindexed an endpoint.
	ConnectionUpdated
	GroupCreated
	GroupDeleted
	// GroupUpdated covers membership, name and lock changes.
	GroupUpdated
	// GraphReset follows Load; observers should rebuild everything.
	GraphReset
)

var eventNames = [...]string{
	"node-created", "node-deleted", "node-moved", "node-updated",
	"connection-created", "connection-deleted", "connection-updated",
	"group-created", "group-deleted", "group-updated", "graph-reset",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

// Event is a change notification. Only the id matching Kind is set.
type Event struct {
	Kind       EventKind
	Node       NodeID
	Connection ConnectionID
	Group      GroupID
}

type observer struct {
	id int
	fn func(Event)
}

// Subscribe registers fn for every change and returns a function that
// removes it. Callbacks run synchronously after the change is applied.
func (g *Graph) Subscribe(fn func(Event)) (unsubscribe func()) {
	g.nextObserver++
	id := g.nextObserver
	g.observers = append(g.observers, observer{id: id, fn: fn})
	return func() {
		g.observers = slices.DeleteFunc(g.observers, func(o observer) bool { return o.id == id })
	}
}

func (g *Graph) emit(e Event) {
	for _, o := range slices.Clone(g.observers) {
		o.fn(e)
	}
}
