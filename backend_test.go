package dirwatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func nextNotification(t *testing.T, backend platformBackend) rawNotification {
	t.Helper()
	select {
	case raw, ok := <-backend.Events():
		if !ok {
			t.Fatal("backend event channel closed")
		}
		return raw
	case err := <-backend.Errors():
		t.Fatalf("backend error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for backend notification")
	}
	panic("unreachable")
}

func TestBackendReportsCreate(t *testing.T) {
	dir := newWatchedDir(t)
	backend, err := openBackend(dir)
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	defer backend.Close()

	addFile(t, dir, "a")

	raw := nextNotification(t, backend)
	if raw.Name != "a" {
		t.Fatalf("expected notification for a, got %+v", raw)
	}
	if raw.Action != rawCreate && raw.Action != rawWrite {
		t.Fatalf("expected create or write action, got %+v", raw)
	}
}

func TestBackendReportsRemove(t *testing.T) {
	dir := newWatchedDir(t)
	addFile(t, dir, "a")

	backend, err := openBackend(dir)
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	defer backend.Close()

	if err := os.Remove(filepath.Join(dir, "a")); err != nil {
		t.Fatalf("remove file: %v", err)
	}

	for {
		raw := nextNotification(t, backend)
		if raw.Name == "a" && (raw.Action == rawRemove || raw.Action == rawRenamedAway) {
			return
		}
	}
}

func TestBackendReportsRootRemoval(t *testing.T) {
	dir := newWatchedDir(t)
	backend, err := openBackend(dir)
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	defer backend.Close()

	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("remove watched dir: %v", err)
	}

	for {
		raw := nextNotification(t, backend)
		if raw.Action == rawRootRemoved {
			return
		}
	}
}

func TestBackendOpenFailsOnMissingDir(t *testing.T) {
	if _, err := openBackend(filepath.Join(t.TempDir(), "gone")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
