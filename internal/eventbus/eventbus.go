package eventbus

// Event represents an arbitrary event passed on the bus.
type Event interface{}

// EventBus implements a simple publish/subscribe event bus.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// Bus is the default EventBus implementation using fan-out channels.
type Bus = TypedBus[Event]

// DefaultBuffer is the channel capacity of each subscriber created by New.
const DefaultBuffer = 8

// New creates a new Bus.
func New() *Bus { return NewTypedBuffered[Event](DefaultBuffer) }

// NewBuffered creates a Bus whose subscribers can queue size events before
// new events are dropped for them.
func NewBuffered(size int) *Bus { return NewTypedBuffered[Event](size) }
