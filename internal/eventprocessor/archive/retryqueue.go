package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/satori-nvr/satori/internal/common"
	"github.com/satori-nvr/satori/internal/storage"
)

const retryQueueKey = "archive_retry_queue.json"

// wireTask is Task's JSON-persisted shape; Task itself keeps its payload
// fields unexported so callers can't construct an inconsistent Kind/payload
// pairing, so persistence goes through this instead of json tags on Task.
type wireTask struct {
	ID         string           `json:"id"`
	Birth      time.Time        `json:"birth"`
	APIURL     string           `json:"api_url"`
	Kind       Kind             `json:"kind"`
	Event      *json.RawMessage `json:"event,omitempty"`
	CameraName string           `json:"camera_name,omitempty"`
	SegmentURL string           `json:"segment_url,omitempty"`
}

// RetryQueue is the durable, TTL-pruned holding area for archive tasks that
// have not yet been successfully executed. Pushing a new event task for an
// event already queued (same id and timestamp) replaces the older one — only the newest copy of
// an event's metadata is worth archiving, since it is a strict superset of
// any earlier snapshot's reasons, span, and segment lists.
type RetryQueue struct {
	mu       sync.Mutex
	tasks    []Task
	ttl      time.Duration
	provider *storage.Provider
	log      *slog.Logger
	workers  int
}

// NewRetryQueue constructs an empty queue. Load it from durable storage
// with Load before first use in a production deployment.
func NewRetryQueue(provider *storage.Provider, ttl time.Duration, workers int, log *slog.Logger) *RetryQueue {
	if log == nil {
		log = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}
	return &RetryQueue{ttl: ttl, provider: provider, log: log, workers: workers}
}

// Push adds task to the queue, replacing any existing task for the same
// event (same id and timestamp). If the existing task is newer than the incoming one, the
// incoming task is discarded instead — a straggling retry must never
// clobber a fresher archive with stale data.
func (q *RetryQueue) Push(task Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	meta, isEvent := task.Metadata()
	if !isEvent {
		q.tasks = append(q.tasks, task)
		return
	}

	for i, existing := range q.tasks {
		existingMeta, ok := existing.Metadata()
		if !ok || existingMeta != meta {
			continue
		}

		if existing.Birth.After(task.Birth) {
			q.log.Warn("discarding stale archive task, newer task already queued", "event_id", meta.ID)
			return
		}

		q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
		break
	}

	q.tasks = append(q.tasks, task)
}

// Len returns the number of tasks currently queued.
func (q *RetryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// pruneExpired drops tasks older than ttl. Caller must hold q.mu.
func (q *RetryQueue) pruneExpired(now time.Time) int {
	kept := q.tasks[:0]
	expired := 0
	for _, t := range q.tasks {
		if now.Sub(t.Birth) > q.ttl {
			expired++
			continue
		}
		kept = append(kept, t)
	}
	q.tasks = kept
	return expired
}

// Process runs one pass: persist, prune expired tasks, attempt every
// remaining task against client, re-queue failures, and persist again.
// Tasks are attempted concurrently across a small worker pool.
func (q *RetryQueue) Process(ctx context.Context, client *http.Client) {
	q.mu.Lock()
	if err := q.saveLocked(ctx); err != nil {
		q.log.Error("failed to persist retry queue", "error", err)
	}

	expired := q.pruneExpired(time.Now())
	if expired > 0 {
		q.log.Info("expired stale archive tasks", "count", expired)
	}

	pending := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	jobs := make(chan Task, len(pending))
	failures := make(chan Task, len(pending))

	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				if err := t.Execute(ctx, client); err != nil {
					q.log.Warn("archive task failed, will retry", "task_id", t.ID, "error", err, "kind", t.Kind)
					failures <- t
				}
			}
		}()
	}

	for _, t := range pending {
		jobs <- t
	}
	close(jobs)

	wg.Wait()
	close(failures)

	for t := range failures {
		q.Push(t)
	}

	q.mu.Lock()
	if err := q.saveLocked(ctx); err != nil {
		q.log.Error("failed to persist retry queue", "error", err)
	}
	q.mu.Unlock()
}

// saveLocked serializes the queue to the provider. Caller must hold q.mu.
func (q *RetryQueue) saveLocked(ctx context.Context) error {
	wire := make([]wireTask, len(q.tasks))
	for i, t := range q.tasks {
		w := wireTask{ID: t.ID, Birth: t.Birth, APIURL: t.APIURL, Kind: t.Kind}
		switch t.Kind {
		case KindEvent:
			raw, err := json.Marshal(*t.event)
			if err != nil {
				return fmt.Errorf("archive: marshalling queued event task: %w", err)
			}
			rm := json.RawMessage(raw)
			w.Event = &rm
		case KindSegment:
			w.CameraName = t.segment.CameraName
			w.SegmentURL = t.segment.URL
		}
		wire[i] = w
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("archive: marshalling retry queue: %w", err)
	}
	return q.provider.PutRaw(ctx, retryQueueKey, data)
}

// Load replaces the queue's contents with what was last persisted. A
// missing backing object is not an error: a fresh deployment starts with
// an empty queue.
func (q *RetryQueue) Load(ctx context.Context) error {
	data, err := q.provider.GetRaw(ctx, retryQueueKey)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("archive: loading retry queue: %w", err)
	}

	var wire []wireTask
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("archive: parsing retry queue: %w", err)
	}

	tasks := make([]Task, 0, len(wire))
	for _, w := range wire {
		t := Task{ID: w.ID, Birth: w.Birth, APIURL: w.APIURL, Kind: w.Kind}
		switch w.Kind {
		case KindEvent:
			var ev common.Event
			if w.Event != nil {
				if err := json.Unmarshal(*w.Event, &ev); err != nil {
					return fmt.Errorf("archive: parsing queued event task: %w", err)
				}
			}
			t.event = &ev
		case KindSegment:
			t.segment = &segmentPayload{CameraName: w.CameraName, URL: w.SegmentURL}
		}
		tasks = append(tasks, t)
	}

	q.mu.Lock()
	q.tasks = tasks
	q.mu.Unlock()
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
