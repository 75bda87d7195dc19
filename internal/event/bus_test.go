package event

import (
	"context"
	"sync"
	"testing"
	"time"
)

type countingRecorder struct {
	mu          sync.Mutex
	published   int
	dropped     int
	subscribers int
}

func (r *countingRecorder) IncEventPublished(string) {
	r.mu.Lock()
	r.published++
	r.mu.Unlock()
}

func (r *countingRecorder) IncEventDropped(string) {
	r.mu.Lock()
	r.dropped++
	r.mu.Unlock()
}

func (r *countingRecorder) SetSubscribers(_ string, count int) {
	r.mu.Lock()
	r.subscribers = count
	r.mu.Unlock()
}

func TestBusSubscribePublish(t *testing.T) {
	bus := NewBus[int](context.Background(), BusOptions{})
	t.Cleanup(bus.Close)

	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(42)

	select {
	case got := <-ch:
		if got != 42 {
			t.Fatalf("expected 42, got %d", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to close after cancel")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestBusCloseClosesSubscribers(t *testing.T) {
	bus := NewBus[int](context.Background(), BusOptions{})
	ch, _ := bus.Subscribe()

	bus.Close()
	bus.Publish(1)

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to close after bus close")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestBusClosesWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := NewBus[int](ctx, BusOptions{})
	ch, _ := bus.Subscribe()

	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for context close")
	}
}

func TestBusDropOnFull(t *testing.T) {
	recorder := &countingRecorder{}
	bus := NewBus[string](context.Background(), BusOptions{
		Name:                 "drop",
		SubscriberBufferSize: 1,
		Recorder:             recorder,
	})
	t.Cleanup(bus.Close)

	ch, _ := bus.Subscribe()

	bus.Publish("first")
	bus.Publish("second")

	if got := <-ch; got != "first" {
		t.Fatalf("expected first, got %q", got)
	}
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if recorder.published != 2 || recorder.dropped != 1 {
		t.Fatalf("expected 2 published and 1 dropped, got %d and %d", recorder.published, recorder.dropped)
	}
	if recorder.subscribers != 1 {
		t.Fatalf("expected 1 subscriber, got %d", recorder.subscribers)
	}
}

func TestBusMaxSubscribers(t *testing.T) {
	bus := NewBus[int](context.Background(), BusOptions{MaxSubscribers: 1})
	t.Cleanup(bus.Close)

	_, cancel := bus.Subscribe()
	defer cancel()
	second, _ := bus.Subscribe()

	if _, ok := <-second; ok {
		t.Fatal("expected second subscription to be closed")
	}
	if bus.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", bus.SubscriberCount())
	}
}

func TestBusHistory(t *testing.T) {
	bus := NewBus[int](context.Background(), BusOptions{HistorySize: 3})
	t.Cleanup(bus.Close)

	for value := 1; value <= 5; value++ {
		bus.Publish(value)
	}

	history := bus.DumpHistory()
	if len(history) != 3 || history[0] != 3 || history[2] != 5 {
		t.Fatalf("unexpected history %v", history)
	}
	last := bus.ReplayLast(2)
	if len(last) != 2 || last[0] != 4 || last[1] != 5 {
		t.Fatalf("unexpected replay %v", last)
	}
}

func TestNilBus(t *testing.T) {
	var bus *Bus[int]

	bus.Publish(1)
	bus.Close()
	ch, cancel := bus.Subscribe()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	if bus.DumpHistory() != nil {
		t.Fatal("expected no history")
	}
}

func TestRingKeepsNewestValues(t *testing.T) {
	var empty *ring[int]
	if empty.last(3) != nil || newRing[int](0) != nil {
		t.Fatal("expected disabled ring")
	}

	values := newRing[int](3)
	values.push(1)
	values.push(2)
	if got := values.last(0); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected partial ring %v", got)
	}
	values.push(3)
	values.push(4)
	if got := values.last(5); len(got) != 3 || got[0] != 2 || got[2] != 4 {
		t.Fatalf("unexpected wrapped ring %v", got)
	}
	if got := values.last(1); len(got) != 1 || got[0] != 4 {
		t.Fatalf("unexpected newest value %v", got)
	}
}

func TestBusCancelTwice(t *testing.T) {
	recorder := &countingRecorder{}
	bus := NewBus[int](context.Background(), BusOptions{Recorder: recorder})
	t.Cleanup(bus.Close)

	_, cancel := bus.Subscribe()
	cancel()
	cancel()

	if bus.SubscriberCount() != 0 {
		t.Fatalf("expected no subscribers, got %d", bus.SubscriberCount())
	}
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if recorder.subscribers != 0 {
		t.Fatalf("expected recorder to see 0 subscribers, got %d", recorder.subscribers)
	}
}
