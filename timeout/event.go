package timeout

// EventType identifies a map mutation.
type EventType int

const (
	// EventPut: an entry was inserted or replaced.
	EventPut EventType = iota
	// EventRemove: an entry was removed explicitly.
	EventRemove
	// EventEvict: an expired entry was removed by a purge pass.
	EventEvict
)

func (t EventType) String() string {
	switch t {
	case EventPut:
		return "put"
	case EventRemove:
		return "remove"
	default:
		return "evict"
	}
}

// Event describes one mutation delivered to listeners.
type Event[K comparable, V any] struct {
	Type  EventType
	Key   K
	Value V
}

// Listener observes map mutations. Listeners run on the goroutine that
// caused the mutation, outside the map lock.
type Listener[K comparable, V any] func(Event[K, V])
