package archive

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/satori-nvr/satori/internal/common"
	"github.com/satori-nvr/satori/internal/storage"
	"github.com/satori-nvr/satori/internal/storage/encryption"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProvider(t *testing.T) *storage.Provider {
	t.Helper()
	eventKey, err := encryption.Generate()
	if err != nil {
		t.Fatalf("encryption.Generate() error: %v", err)
	}
	segmentKey, err := encryption.Generate()
	if err != nil {
		t.Fatalf("encryption.Generate() error: %v", err)
	}
	return storage.NewProvider(storage.NewMemoryBackend(), eventKey, segmentKey)
}

func eventTaskFor(id string, birth time.Time) Task {
	return eventTaskForAPI(id, birth, "http://archiver.local")
}

func eventTaskForAPI(id string, birth time.Time, apiURL string) Task {
	ev := common.Event{Metadata: common.EventMetadata{ID: id, Timestamp: birth}}
	return NewEventTask(birth, apiURL, ev)
}

func TestRetryQueuePushAddsTask(t *testing.T) {
	q := NewRetryQueue(newTestProvider(t), time.Hour, 2, discardLogger())
	q.Push(eventTaskFor("evt1", time.Now()))
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}
}

func TestRetryQueueNewerTaskSupersedesOlder(t *testing.T) {
	q := NewRetryQueue(newTestProvider(t), time.Hour, 2, discardLogger())
	now := time.Now()

	q.Push(eventTaskFor("evt1", now))
	q.Push(eventTaskFor("evt1", now.Add(time.Minute)))

	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (newer task should replace older)", q.Len())
	}
}

func TestRetryQueueOlderTaskArrivingAfterNewerIsDiscarded(t *testing.T) {
	q := NewRetryQueue(newTestProvider(t), time.Hour, 2, discardLogger())
	now := time.Now()

	// Newer one pushed first, then a stale retry for the same event arrives.
	q.Push(eventTaskFor("evt1", now.Add(time.Minute)))
	q.Push(eventTaskFor("evt1", now))

	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}
}

func TestRetryQueuePushKeepsDistinctSegmentTasks(t *testing.T) {
	q := NewRetryQueue(newTestProvider(t), time.Hour, 2, discardLogger())
	now := time.Now()

	q.Push(NewSegmentTask(now, "http://archiver.local", "front", "http://agent.local/hls/a.ts"))
	q.Push(NewSegmentTask(now, "http://archiver.local", "front", "http://agent.local/hls/b.ts"))

	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (segment tasks are never superseded)", q.Len())
	}
}

func TestRetryQueuePruneExpired(t *testing.T) {
	q := NewRetryQueue(newTestProvider(t), time.Minute, 2, discardLogger())
	now := time.Now()

	q.Push(eventTaskFor("old", now.Add(-2*time.Hour)))
	q.Push(eventTaskFor("fresh", now))

	q.mu.Lock()
	expired := q.pruneExpired(now)
	q.mu.Unlock()

	if expired != 1 {
		t.Errorf("pruneExpired() reported %d expired, want 1", expired)
	}
	if q.Len() != 1 {
		t.Fatalf("Len() after prune = %d, want 1", q.Len())
	}
}

func TestRetryQueueSaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)
	now := time.Now()

	q := NewRetryQueue(p, time.Hour, 2, discardLogger())
	q.Push(eventTaskFor("evt1", now))
	q.Push(NewSegmentTask(now, "http://archiver.local", "front", "http://agent.local/hls/a.ts"))

	q.mu.Lock()
	err := q.saveLocked(ctx)
	q.mu.Unlock()
	if err != nil {
		t.Fatalf("saveLocked() error: %v", err)
	}

	reloaded := NewRetryQueue(p, time.Hour, 2, discardLogger())
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("Len() after reload = %d, want 2", reloaded.Len())
	}
}

func TestRetryQueueLoadMissingIsEmptyNotError(t *testing.T) {
	q := NewRetryQueue(newTestProvider(t), time.Hour, 2, discardLogger())
	if err := q.Load(context.Background()); err != nil {
		t.Fatalf("Load() on fresh store error: %v", err)
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
}

func TestRetryQueueProcessRetriesFailedTasks(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := newTestProvider(t)
	q := NewRetryQueue(p, time.Hour, 2, discardLogger())
	q.Push(eventTaskForAPI("evt1", time.Now(), server.URL))

	q.Process(context.Background(), server.Client())

	if calls == 0 {
		t.Fatal("expected the task to have been executed at least once")
	}
	if q.Len() != 1 {
		t.Errorf("Len() after a failed attempt = %d, want 1 (re-queued)", q.Len())
	}
}

func TestRetryQueueProcessDropsSucceededTasks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := newTestProvider(t)
	q := NewRetryQueue(p, time.Hour, 2, discardLogger())
	q.Push(eventTaskForAPI("evt1", time.Now(), server.URL))

	q.Process(context.Background(), server.Client())

	if q.Len() != 0 {
		t.Errorf("Len() after success = %d, want 0", q.Len())
	}
}
