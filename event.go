package imgport

// EventKind enumerates the events ports understand.
type EventKind uint8

const (
	// EventResize is a request for a producer to render at a given size.
	EventResize EventKind = iota + 1
)

// String returns a string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventResize:
		return "Resize"
	default:
		return "Unknown"
	}
}

// Event is propagated along connections. The set of events is closed:
// *ResizeEvent is the only implementation, so handlers use a type switch.
//
// Events are not safe for concurrent use; they travel on the graph
// evaluation goroutine.
type Event interface {
	// Kind returns the event kind.
	Kind() EventKind

	// MarkAsUsed flags the event as consumed so routers stop propagating it.
	MarkAsUsed()

	// HasBeenUsed reports whether some handler consumed the event.
	HasBeenUsed() bool

	// MarkVisited records that node has handled the event.
	MarkVisited(node any)

	// HasVisited reports whether node already handled the event.
	HasVisited(node any) bool

	isEvent()
}

// eventBase carries the bookkeeping shared by all events.
type eventBase struct {
	used    bool
	visited map[any]struct{}
}

func (e *eventBase) MarkAsUsed()       { e.used = true }
func (e *eventBase) HasBeenUsed() bool { return e.used }

func (e *eventBase) MarkVisited(node any) {
	if e.visited == nil {
		e.visited = make(map[any]struct{})
	}
	e.visited[node] = struct{}{}
}

func (e *eventBase) HasVisited(node any) bool {
	_, ok := e.visited[node]
	return ok
}

func (*eventBase) isEvent() {}

// ResizeEvent asks producers upstream to provide images of Size.
// PreviousSize is informational and lets listeners see what changed.
type ResizeEvent struct {
	eventBase
	size         Size
	previousSize Size
}

// NewResizeEvent returns a resize request for size.
func NewResizeEvent(size Size) *ResizeEvent {
	return &ResizeEvent{size: size}
}

// Kind returns EventResize.
func (*ResizeEvent) Kind() EventKind { return EventResize }

// Size returns the requested size.
func (e *ResizeEvent) Size() Size { return e.size }

// SetSize replaces the requested size.
func (e *ResizeEvent) SetSize(s Size) { e.size = s }

// PreviousSize returns the size before the change that caused the event.
func (e *ResizeEvent) PreviousSize() Size { return e.previousSize }

// SetPreviousSize sets the size before the change.
func (e *ResizeEvent) SetPreviousSize(s Size) { e.previousSize = s }

// Clone returns a fresh, unused, unvisited copy.
func (e *ResizeEvent) Clone() *ResizeEvent {
	return &ResizeEvent{size: e.size, previousSize: e.previousSize}
}
