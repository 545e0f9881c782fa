// Package eventprocessor implements the event lifecycle engine: merging
// triggers into active events, polling camera HLS playlists for newly
// recorded segments, and handing finished work to the archive task
// pipeline.
package eventprocessor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/satori-nvr/satori/internal/common"
	"github.com/satori-nvr/satori/internal/eventprocessor/archive"
)

// HLSClient fetches a camera's live media playlist. Satisfied by
// *HTTPHLSClient in hlsclient.go; an interface here so tests can supply a
// canned fixture instead of serving real HTTP.
type HLSClient interface {
	GetPlaylist(ctx context.Context, cameraName string) (common.Playlist, error)
	CameraURL(cameraName string) (string, bool)
}

// EventSet is the in-memory, file-backed set of active events: every
// trigger merges into it, every tick walks it forward, and every event
// eventually ages out once its span plus TTL has passed.
type EventSet struct {
	mu     sync.Mutex
	events []common.Event
	ttl    time.Duration
	path   string
	log    *slog.Logger
}

// LoadOrNew loads path if it exists and parses, or starts from an empty
// set. A missing or corrupt backing file is never fatal — active-event
// state is a cache of in-flight work, not the durable record (that's the
// archive store), so the engine degrades to "nothing in flight" and keeps
// going.
func LoadOrNew(path string, ttl time.Duration, log *slog.Logger) *EventSet {
	if log == nil {
		log = slog.Default()
	}
	es := &EventSet{ttl: ttl, path: path, log: log}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn("could not read event set file, starting empty", "path", path, "error", err)
		}
		return es
	}

	if err := json.Unmarshal(data, &es.events); err != nil {
		log.Warn("could not parse event set file, starting empty", "path", path, "error", err)
		es.events = nil
	}
	return es
}

// persist writes the current event set to disk. Failure is logged, not
// returned: a missed save is retried on the next mutation and never blocks
// the engine from continuing to process triggers.
func (es *EventSet) persist() {
	data, err := json.Marshal(es.events)
	if err != nil {
		es.log.Error("failed to marshal event set", "error", err)
		return
	}

	tmp := es.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		es.log.Error("failed to write event set file", "path", es.path, "error", err)
		return
	}
	if err := os.Rename(tmp, es.path); err != nil {
		es.log.Error("failed to commit event set file", "path", es.path, "error", err)
	}
}

// Trigger merges t into the active event set: if an event with t's id is
// already active, t is merged in (reasons appended, span expanded, camera
// list unioned); otherwise a new event is created.
func (es *EventSet) Trigger(t common.Trigger) {
	es.mu.Lock()
	defer es.mu.Unlock()

	for i := range es.events {
		if es.events[i].Metadata.ID == t.Metadata.ID {
			es.events[i].Merge(t)
			es.log.Info("merged trigger into active event", "event_id", t.Metadata.ID, "reason", t.Reason)
			es.persist()
			return
		}
	}

	ev := common.NewEventFromTrigger(t)
	es.events = append(es.events, ev)
	es.log.Info("opened new active event", "event_id", t.Metadata.ID, "reason", t.Reason)
	es.persist()
}

// Active returns a snapshot copy of the currently active events.
func (es *EventSet) Active() []common.Event {
	es.mu.Lock()
	defer es.mu.Unlock()

	out := make([]common.Event, len(es.events))
	copy(out, es.events)
	return out
}

// Process runs one tick of the engine: for every active event and every
// camera it names, fetch the camera's live playlist, find segments newly
// covered by the event's [start, end) window that have not already been
// recorded, append them to the event's segment list, and submit an archive
// task for each. The event's own metadata is resubmitted for archival on
// every tick (cheap: the retry queue only keeps the newest copy), so the
// archived event record never lags far behind the live one. Finally, any
// event whose span ended more than ttl ago is dropped from the active set.
func (es *EventSet) Process(ctx context.Context, hls HLSClient, apiURL string, submit func(archive.Task), now time.Time) {
	es.mu.Lock()
	defer es.mu.Unlock()

	changed := false
	for i := range es.events {
		ev := &es.events[i]

		for j := range ev.Cameras {
			cs := &ev.Cameras[j]

			playlist, err := hls.GetPlaylist(ctx, cs.CameraName)
			if err != nil {
				es.log.Warn("failed to fetch playlist", "camera", cs.CameraName, "error", err)
				continue
			}

			known := make(map[string]bool, len(cs.SegmentList))
			for _, f := range cs.SegmentList {
				known[f] = true
			}

			window := playlist.Between(ev.Start, ev.End)
			for _, seg := range window {
				if known[seg.Filename] {
					continue
				}
				cs.SegmentList = append(cs.SegmentList, seg.Filename)
				known[seg.Filename] = true
				changed = true

				cameraURL, _ := hls.CameraURL(cs.CameraName)
				submit(archive.NewSegmentTask(now, apiURL, cs.CameraName, segmentURL(cameraURL, seg.Filename)))
			}
		}

		submit(archive.NewEventTask(now, apiURL, *ev))
	}

	kept := es.events[:0]
	for _, ev := range es.events {
		if ev.ShouldExpire(es.ttl, now) {
			es.log.Info("expiring event", "event_id", ev.Metadata.ID)
			changed = true
			continue
		}
		kept = append(kept, ev)
	}
	es.events = kept

	if changed {
		es.persist()
	}
}

func segmentURL(cameraURL, filename string) string {
	if cameraURL == "" {
		return filename
	}
	return fmt.Sprintf("%s/hls/%s", cameraURL, filename)
}
