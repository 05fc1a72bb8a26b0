package uploads

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"
)

type fakeStorage struct {
	mu       sync.Mutex
	saved    map[string]string
	failWith error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{saved: make(map[string]string)}
}

func (s *fakeStorage) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if s.failWith != nil {
		return "", s.failWith
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.saved[name] = string(payload)
	s.mu.Unlock()
	return "https://cdn.example.com/" + name, nil
}

type fakeUpdater struct {
	mu     sync.Mutex
	ready  map[string]string
	failed map[string]bool
}

func newFakeUpdater() *fakeUpdater {
	return &fakeUpdater{ready: make(map[string]string), failed: make(map[string]bool)}
}

func (u *fakeUpdater) MarkAssetReady(_ context.Context, videoID, location string, _ int) error {
	u.mu.Lock()
	u.ready[videoID] = location
	u.mu.Unlock()
	return nil
}

func (u *fakeUpdater) MarkAssetFailed(_ context.Context, videoID string) error {
	u.mu.Lock()
	u.failed[videoID] = true
	u.mu.Unlock()
	return nil
}

func spoolPayload(t *testing.T, payload string) string {
	t.Helper()
	tmp, err := os.CreateTemp(t.TempDir(), "upload-*")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	if _, err := tmp.WriteString(payload); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	if err := tmp.Close(); err != nil {
		t.Fatalf("close temp: %v", err)
	}
	return tmp.Name()
}

func shutdownIngestor(t *testing.T, ing *Ingestor) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ing.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestIngestorPersistsAndMarksReady(t *testing.T) {
	storage := newFakeStorage()
	updater := newFakeUpdater()
	ing := NewIngestor(storage, updater, IngestorConfig{QueueSize: 4, Workers: 2}, nil)

	tempPath := spoolPayload(t, "fake video payload")
	job := Job{VideoID: "v1", Filename: "lesson.mp4", TempPath: tempPath, DurationSeconds: 300}

	if err := ing.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	shutdownIngestor(t, ing)

	if got := updater.ready["v1"]; got != "https://cdn.example.com/v1/lesson.mp4" {
		t.Fatalf("expected asset marked ready with location, got %q", got)
	}
	if storage.saved["v1/lesson.mp4"] != "fake video payload" {
		t.Fatal("payload was not persisted")
	}
	if _, err := os.Stat(tempPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("spooled temp file must be removed")
	}
}

func TestIngestorMarksFailedOnStorageError(t *testing.T) {
	storage := newFakeStorage()
	storage.failWith = errors.New("bucket unavailable")
	updater := newFakeUpdater()
	ing := NewIngestor(storage, updater, IngestorConfig{}, nil)

	tempPath := spoolPayload(t, "payload")
	if err := ing.Enqueue(context.Background(), Job{VideoID: "v1", Filename: "lesson.mp4", TempPath: tempPath}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	shutdownIngestor(t, ing)

	if !updater.failed["v1"] {
		t.Fatal("expected asset marked failed")
	}
	if _, ok := updater.ready["v1"]; ok {
		t.Fatal("failed asset must not be marked ready")
	}
	if _, err := os.Stat(tempPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("spooled temp file must be removed even on failure")
	}
}

func TestIngestorDrainsQueueOnShutdown(t *testing.T) {
	storage := newFakeStorage()
	updater := newFakeUpdater()
	ing := NewIngestor(storage, updater, IngestorConfig{QueueSize: 8, Workers: 1}, nil)

	for _, id := range []string{"v1", "v2", "v3"} {
		tempPath := spoolPayload(t, "payload "+id)
		if err := ing.Enqueue(context.Background(), Job{VideoID: id, Filename: id + ".mp4", TempPath: tempPath}); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}

	shutdownIngestor(t, ing)

	for _, id := range []string{"v1", "v2", "v3"} {
		if _, ok := updater.ready[id]; !ok {
			t.Fatalf("expected %s to be processed before shutdown returned", id)
		}
	}
}

func TestEnqueueAfterShutdownFails(t *testing.T) {
	ing := NewIngestor(newFakeStorage(), newFakeUpdater(), IngestorConfig{}, nil)
	shutdownIngestor(t, ing)

	err := ing.Enqueue(context.Background(), Job{VideoID: "v1"})
	if err == nil {
		t.Fatal("expected enqueue to fail after shutdown")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"lesson.mp4":        "lesson.mp4",
		"  lesson.mp4  ":    "lesson.mp4",
		"../../etc/passwd":  "passwd",
		"/abs/path/vid.mov": "vid.mov",
		"":                  "video",
		"   ":               "video",
	}

	for input, want := range cases {
		if got := sanitizeFilename(input); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", input, got, want)
		}
	}
}
