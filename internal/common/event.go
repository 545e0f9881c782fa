package common

import (
	"fmt"
	"regexp"
	"time"
)

// EventMetadata identifies an event by its trigger id and creation timestamp.
// The pair is also the event's content-addressed filename stem.
type EventMetadata struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

var eventFilenamePattern = regexp.MustCompile(
	`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}[+-]\d{2}:\d{2})_(.+)\.json$`,
)

// Filename renders the metadata as the archive store's event object key
// stem: "<rfc3339, seconds precision, always-numeric offset>_<id>.json".
func (m EventMetadata) Filename() string {
	ts := m.Timestamp.UTC().Format("2006-01-02T15:04:05-07:00")
	return fmt.Sprintf("%s_%s.json", ts, m.ID)
}

// EventMetadataFromFilename parses the filename produced by Filename back
// into its id/timestamp pair. The id may itself contain underscores; the
// regex only requires the fixed-width timestamp prefix to match, so
// everything after it up to ".json" is taken verbatim as the id.
func EventMetadataFromFilename(name string) (EventMetadata, error) {
	m := eventFilenamePattern.FindStringSubmatch(name)
	if m == nil {
		return EventMetadata{}, fmt.Errorf("%w: %q is not a valid event filename", ErrParse, name)
	}
	ts, err := time.Parse("2006-01-02T15:04:05-07:00", m[1])
	if err != nil {
		return EventMetadata{}, fmt.Errorf("%w: malformed timestamp in %q: %v", ErrParse, name, err)
	}
	return EventMetadata{ID: m[2], Timestamp: ts}, nil
}

// EventReason is one cause appended to an event's history: the timestamp at
// which it fired and the human-readable reason string from the trigger.
type EventReason struct {
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
}

// CameraSegments is one camera's recorded-and-archived segment filenames for
// an event, in append order.
type CameraSegments struct {
	CameraName  string   `json:"camera_name"`
	SegmentList []string `json:"segment_list"`
}

// Event is the durable record of an active or archived recording window: one
// or more triggers merged into a single start/end span per camera.
type Event struct {
	Metadata EventMetadata    `json:"metadata"`
	Reasons  []EventReason    `json:"reasons"`
	Start    time.Time        `json:"start"`
	End      time.Time        `json:"end"`
	Cameras  []CameraSegments `json:"cameras"`
}

// NewEventFromTrigger seeds a brand new Event from a trigger's first firing.
func NewEventFromTrigger(t Trigger) Event {
	cameras := make([]CameraSegments, len(t.Cameras))
	for i, name := range t.Cameras {
		cameras[i] = CameraSegments{CameraName: name}
	}
	return Event{
		Metadata: t.Metadata,
		Reasons:  []EventReason{{Timestamp: t.Metadata.Timestamp, Reason: t.Reason}},
		Start:    t.StartTime(),
		End:      t.EndTime(),
		Cameras:  cameras,
	}
}

// Merge folds a repeated trigger for the same event id into this event:
// reasons are appended (never replaced, even if identical to the last one),
// the span is expanded monotonically to cover the new trigger's window, and
// any camera named by the trigger but not yet tracked is added with an empty
// segment list. Merge panics if the trigger's id does not match the event's
// id — that is a caller bug, not a data error.
func (e *Event) Merge(t Trigger) {
	if t.Metadata.ID != e.Metadata.ID {
		panic(fmt.Sprintf("common: Merge called with mismatched event ids: %s != %s", t.Metadata.ID, e.Metadata.ID))
	}

	e.Reasons = append(e.Reasons, EventReason{Timestamp: t.Metadata.Timestamp, Reason: t.Reason})

	if start := t.StartTime(); start.Before(e.Start) {
		e.Start = start
	}
	if end := t.EndTime(); end.After(e.End) {
		e.End = end
	}

	for _, name := range t.Cameras {
		if e.Camera(name) == nil {
			e.Cameras = append(e.Cameras, CameraSegments{CameraName: name})
		}
	}
}

// Camera returns this event's CameraSegments for the given camera name, or
// nil if the event does not reference that camera.
func (e *Event) Camera(name string) *CameraSegments {
	for i := range e.Cameras {
		if e.Cameras[i].CameraName == name {
			return &e.Cameras[i]
		}
	}
	return nil
}

// ShouldExpire reports whether this event's span ended more than ttl ago,
// measured against now.
func (e *Event) ShouldExpire(ttl time.Duration, now time.Time) bool {
	return e.End.Add(ttl).Before(now)
}
