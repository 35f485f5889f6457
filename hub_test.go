package dirwatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitForBatch(batches <-chan Batch) (Batch, bool) {
	select {
	case batch, ok := <-batches:
		return batch, ok
	case <-time.After(2 * time.Second):
		return Batch{}, false
	}
}

func TestHubDeliversInitialAndLiveBatches(t *testing.T) {
	dir := newWatchedDir(t)
	addFile(t, dir, "a")

	hub, err := NewHub(context.Background(), dir, Options{})
	if err != nil {
		t.Fatalf("new hub: %v", err)
	}
	defer hub.Close()

	batches, cancel, err := hub.Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	initial, ok := waitForBatch(batches)
	if !ok {
		t.Fatal("timed out waiting for initial batch")
	}
	if !initial.Initial {
		t.Fatalf("expected initial batch first, got %+v", initial)
	}
	if len(initial.Events) != 1 || initial.Events[0].Name != "a" {
		t.Fatalf("unexpected initial events: %v", initial.Events)
	}

	if err := os.WriteFile(filepath.Join(dir, "b"), nil, 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}

	for {
		batch, ok := waitForBatch(batches)
		if !ok {
			t.Fatal("timed out waiting for live batch")
		}
		if batch.Initial {
			t.Fatalf("initial batch delivered twice: %+v", batch)
		}
		if len(batch.Events) > 0 && batch.Events[0].Name == "b" {
			return
		}
	}
}

func TestHubCloseDeliversTerminalBatch(t *testing.T) {
	dir := newWatchedDir(t)

	hub, err := NewHub(context.Background(), dir, Options{})
	if err != nil {
		t.Fatalf("new hub: %v", err)
	}

	batches, cancel, err := hub.Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if err := hub.Close(); err != nil {
		t.Fatalf("close hub: %v", err)
	}

	sawTerminal := false
	for batch := range batches {
		for _, event := range batch.Events {
			if event.Kind == WatcherInvalidated {
				sawTerminal = true
			}
		}
	}
	if !sawTerminal {
		t.Fatal("expected terminal batch before bus close")
	}

	if _, _, err := hub.Subscribe(); err == nil {
		t.Fatal("expected subscribe on closed hub to fail")
	}
}

func TestHubClosesWhenContextCancelled(t *testing.T) {
	dir := newWatchedDir(t)

	ctx, cancelCtx := context.WithCancel(context.Background())
	hub, err := NewHub(ctx, dir, Options{})
	if err != nil {
		t.Fatalf("new hub: %v", err)
	}

	batches, cancel, err := hub.Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	cancelCtx()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-batches:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for hub to close after context cancel")
		}
	}
}
