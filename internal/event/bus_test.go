package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"dirwatch/internal/metrics"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case value := <-ch:
		return value
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
		panic("unreachable")
	}
}

func TestBusPublishToAllSubscribers(t *testing.T) {
	bus := NewBus[string](context.Background(), BusOptions{Registry: &metrics.Registry{}})
	defer bus.Close()

	first, cancelFirst := bus.Subscribe()
	defer cancelFirst()
	second, cancelSecond := bus.Subscribe()
	defer cancelSecond()

	bus.Publish("batch")

	if got := receive(t, first); got != "batch" {
		t.Fatalf("expected batch, got %q", got)
	}
	if got := receive(t, second); got != "batch" {
		t.Fatalf("expected batch, got %q", got)
	}
}

func TestBusFilteredSubscription(t *testing.T) {
	bus := NewBus[int](context.Background(), BusOptions{Registry: &metrics.Registry{}})
	defer bus.Close()

	evens, cancel := bus.SubscribeFiltered(func(value int) bool { return value%2 == 0 })
	defer cancel()

	bus.Publish(1)
	bus.Publish(2)

	if got := receive(t, evens); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}

func TestBusDropsForSlowSubscriber(t *testing.T) {
	registry := &metrics.Registry{}
	bus := NewBus[int](context.Background(), BusOptions{
		SubscriberBufferSize: 1,
		Registry:             registry,
	})
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(1)
	bus.Publish(2)

	if got := receive(t, ch); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if drops := registry.Snapshot().SubscriberDrops; drops != 1 {
		t.Fatalf("expected 1 drop, got %d", drops)
	}
}

func TestBusCloseEndsSubscriptions(t *testing.T) {
	bus := NewBus[int](context.Background(), BusOptions{Registry: &metrics.Registry{}})
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Close()
	if _, open := <-ch; open {
		t.Fatal("expected channel closed after bus close")
	}

	late, cancelLate := bus.Subscribe()
	defer cancelLate()
	if _, open := <-late; open {
		t.Fatal("expected closed channel for late subscriber")
	}
}

func TestBusClosesWithContext(t *testing.T) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	bus := NewBus[int](ctx, BusOptions{Registry: &metrics.Registry{}})

	ch, cancel := bus.Subscribe()
	defer cancel()

	cancelCtx()

	select {
	case _, open := <-ch:
		if open {
			t.Fatal("expected channel closed, got value")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for context close")
	}
}

func TestBusPublishDuringCancel(t *testing.T) {
	bus := NewBus[int](context.Background(), BusOptions{
		SubscriberBufferSize: 1,
		Registry:             &metrics.Registry{},
	})
	defer bus.Close()

	// A cancel closing its channel while a publish is in flight must
	// degrade to a drop, never a send-on-closed-channel panic.
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				bus.Publish(i)
			}
		}()
	}
	for s := 0; s < 8; s++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_, cancel := bus.Subscribe()
				cancel()
			}
		}()
	}
	wg.Wait()
}

func TestBusMaxSubscribers(t *testing.T) {
	bus := NewBus[int](context.Background(), BusOptions{
		MaxSubscribers: 1,
		Registry:       &metrics.Registry{},
	})
	defer bus.Close()

	_, cancelFirst := bus.Subscribe()
	defer cancelFirst()

	over, cancelOver := bus.Subscribe()
	defer cancelOver()
	if _, open := <-over; open {
		t.Fatal("expected closed channel past subscriber limit")
	}
}
