package events

import (
	"log"
	"sync/atomic"
	"time"
)

// Emitter bridges the synchronous bus to channel consumers such as the
// watch dashboard. It buffers events and drops under sustained pressure
// rather than blocking lifecycle operations.
type Emitter struct {
	events       chan Event
	droppedCount atomic.Uint64
}

// NewEmitter creates an emitter with the given buffer size and subscribes
// it to the bus.
func NewEmitter(bus *Bus, bufferSize int) *Emitter {
	e := &Emitter{events: make(chan Event, bufferSize)}
	bus.Subscribe(e.emit)
	return e
}

// emit forwards an event to the channel, dropping if the consumer is stuck.
func (e *Emitter) emit(event Event) {
	select {
	case e.events <- event:
		return
	default:
	}

	// Give the receiver a short window to drain before dropping.
	select {
	case e.events <- event:
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 { // log every 10th drop to avoid spam
			log.Printf("[events] channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// Events returns the read-only channel of buffered events.
func (e *Emitter) Events() <-chan Event {
	return e.events
}

// DroppedCount returns the total number of dropped events.
func (e *Emitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}
