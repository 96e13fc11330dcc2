package events

import (
	"testing"
	"time"
)

func TestBusFanOut(t *testing.T) {
	bus := NewBus()

	var got1, got2 []Type
	bus.Subscribe(func(e Event) { got1 = append(got1, e.Type) })
	bus.Subscribe(func(e Event) { got2 = append(got2, e.Type) })

	bus.Publish(Event{Type: AgentSpawned, TaskID: "t1"})
	bus.Publish(Event{Type: AgentReaped, TaskID: "t1"})

	for _, got := range [][]Type{got1, got2} {
		if len(got) != 2 || got[0] != AgentSpawned || got[1] != AgentReaped {
			t.Errorf("expected both subscribers to see both events, got %v", got)
		}
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()

	count := 0
	unsub := bus.Subscribe(func(Event) { count++ })
	bus.Publish(Event{Type: AgentSpawned})
	unsub()
	bus.Publish(Event{Type: AgentKilled})

	if count != 1 {
		t.Errorf("expected exactly 1 delivery after unsubscribe, got %d", count)
	}
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", bus.SubscriberCount())
	}
}

func TestBusFillsTimestamp(t *testing.T) {
	bus := NewBus()

	var stamped time.Time
	bus.Subscribe(func(e Event) { stamped = e.Timestamp })
	bus.Publish(Event{Type: AgentLog})

	if stamped.IsZero() {
		t.Error("expected publish to fill a zero timestamp")
	}
}

func TestEmitterBuffersEvents(t *testing.T) {
	bus := NewBus()
	emitter := NewEmitter(bus, 4)

	bus.Publish(Event{Type: AgentSpawned, TaskID: "t1"})
	bus.Publish(Event{Type: AgentCompleted, TaskID: "t1"})

	select {
	case e := <-emitter.Events():
		if e.Type != AgentSpawned {
			t.Errorf("expected first buffered event to be spawned, got %s", e.Type)
		}
	default:
		t.Fatal("expected a buffered event")
	}
}

func TestEmitterDropsWhenFull(t *testing.T) {
	bus := NewBus()
	emitter := NewEmitter(bus, 1)

	bus.Publish(Event{Type: AgentSpawned})
	bus.Publish(Event{Type: AgentLog}) // buffer full, dropped after the grace window

	if emitter.DroppedCount() != 1 {
		t.Errorf("expected 1 dropped event, got %d", emitter.DroppedCount())
	}
}
