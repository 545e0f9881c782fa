// Package archive implements the archive task pipeline: a durable,
// TTL-pruned retry queue of pending archive operations and the worker pool
// that executes them against the archiver's HTTP API.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/satori-nvr/satori/internal/common"
)

// Kind tags which operation a Task carries.
type Kind string

const (
	KindEvent   Kind = "event"
	KindSegment Kind = "segment"
)

// segmentPayload is a Task's Segment-kind operand.
type segmentPayload struct {
	CameraName string `json:"camera_name"`
	URL        string `json:"url"`
}

// Task is one pending archive operation: archive this event's current
// metadata, or archive this one camera segment. Birth is the task's
// creation time, used by the retry queue both to expire stale tasks and to
// decide which of two tasks for the same event is newer.
type Task struct {
	ID     string
	Birth  time.Time
	APIURL string
	Kind   Kind

	event   *common.Event
	segment *segmentPayload
}

// NewEventTask builds a Task that archives ev's current metadata.
func NewEventTask(birth time.Time, apiURL string, ev common.Event) Task {
	return Task{ID: uuid.NewString(), Birth: birth, APIURL: apiURL, Kind: KindEvent, event: &ev}
}

// NewSegmentTask builds a Task that archives one camera segment, fetchable
// from url.
func NewSegmentTask(birth time.Time, apiURL, cameraName, url string) Task {
	return Task{ID: uuid.NewString(), Birth: birth, APIURL: apiURL, Kind: KindSegment, segment: &segmentPayload{CameraName: cameraName, URL: url}}
}

// Event returns the task's event payload and whether this is an event task.
func (t Task) Event() (common.Event, bool) {
	if t.Kind != KindEvent || t.event == nil {
		return common.Event{}, false
	}
	return *t.event, true
}

// Metadata returns the identity of the object this task archives, used by
// the retry queue to decide whether two tasks refer to the same event.
func (t Task) Metadata() (common.EventMetadata, bool) {
	if t.event == nil {
		return common.EventMetadata{}, false
	}
	return t.event.Metadata, true
}

// Execute posts the task to the archiver's HTTP API: event tasks go to
// "POST {api_url}/event" with the event as the JSON body; segment tasks go
// to "POST {api_url}/video/{camera_name}" with an
// common.ArchiveSegmentCommand as the body. Any non-2xx response is
// treated as a failure so the caller can re-queue the task for retry.
func (t Task) Execute(ctx context.Context, client *http.Client) error {
	var (
		url  string
		body any
	)

	switch t.Kind {
	case KindEvent:
		url = t.APIURL + "/event"
		body = *t.event
	case KindSegment:
		url = fmt.Sprintf("%s/video/%s", t.APIURL, t.segment.CameraName)
		body = common.ArchiveSegmentCommand{SegmentURL: t.segment.URL}
	default:
		return fmt.Errorf("archive: task has unknown kind %q", t.Kind)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("archive: marshalling task body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("archive: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Satori-Task-ID", t.ID)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("archive: executing task against %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("archive: %s responded with status %d", url, resp.StatusCode)
	}
	return nil
}
