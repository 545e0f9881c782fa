package eventprocessor

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/satori-nvr/satori/internal/common"
	"github.com/satori-nvr/satori/internal/eventprocessor/archive"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeHLSClient struct {
	playlists map[string]common.Playlist
	urls      map[string]string
}

func (f *fakeHLSClient) GetPlaylist(ctx context.Context, cameraName string) (common.Playlist, error) {
	return f.playlists[cameraName], nil
}

func (f *fakeHLSClient) CameraURL(cameraName string) (string, bool) {
	url, ok := f.urls[cameraName]
	return url, ok
}

func segmentAt(base time.Time, offsetSeconds, durationSeconds int) common.Segment {
	start := base.Add(time.Duration(offsetSeconds) * time.Second)
	return common.Segment{
		Filename: common.SegmentFilename(start),
		Start:    start,
		Duration: time.Duration(durationSeconds) * time.Second,
	}
}

func TestEventSetTriggerOpensNewEvent(t *testing.T) {
	es := LoadOrNew(filepath.Join(t.TempDir(), "events.json"), time.Hour, discardLogger())

	trig := common.Trigger{
		Metadata: common.EventMetadata{ID: "evt1", Timestamp: time.Now()},
		Reason:   "motion",
		Cameras:  []string{"front"},
	}
	es.Trigger(trig)

	active := es.Active()
	if len(active) != 1 {
		t.Fatalf("Active() returned %d events, want 1", len(active))
	}
	if active[0].Metadata.ID != "evt1" {
		t.Errorf("event id = %q, want evt1", active[0].Metadata.ID)
	}
	if len(active[0].Reasons) != 1 {
		t.Errorf("reasons = %d, want 1", len(active[0].Reasons))
	}
}

func TestEventSetTriggerMergesSameID(t *testing.T) {
	es := LoadOrNew(filepath.Join(t.TempDir(), "events.json"), time.Hour, discardLogger())

	base := time.Now()
	es.Trigger(common.Trigger{
		Metadata: common.EventMetadata{ID: "evt1", Timestamp: base},
		Reason:   "motion",
		Cameras:  []string{"front"},
	})
	es.Trigger(common.Trigger{
		Metadata: common.EventMetadata{ID: "evt1", Timestamp: base.Add(time.Minute)},
		Reason:   "motion",
		Cameras:  []string{"front", "back"},
	})

	active := es.Active()
	if len(active) != 1 {
		t.Fatalf("Active() returned %d events, want 1 (merge, not append)", len(active))
	}
	if len(active[0].Reasons) != 2 {
		t.Errorf("reasons = %d, want 2", len(active[0].Reasons))
	}
	if len(active[0].Cameras) != 2 {
		t.Errorf("cameras = %d, want 2", len(active[0].Cameras))
	}
}

func TestEventSetPersistsAcrossLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	es := LoadOrNew(path, time.Hour, discardLogger())
	es.Trigger(common.Trigger{
		Metadata: common.EventMetadata{ID: "evt1", Timestamp: time.Now()},
		Cameras:  []string{"front"},
	})

	reloaded := LoadOrNew(path, time.Hour, discardLogger())
	active := reloaded.Active()
	if len(active) != 1 || active[0].Metadata.ID != "evt1" {
		t.Fatalf("reloaded active events = %v, want [evt1]", active)
	}
}

func TestEventSetLoadOrNewToleratesMissingFile(t *testing.T) {
	es := LoadOrNew(filepath.Join(t.TempDir(), "missing.json"), time.Hour, discardLogger())
	if len(es.Active()) != 0 {
		t.Error("expected an empty event set for a missing file")
	}
}

func TestEventSetProcessSubmitsNewSegmentsAndResubmitsEvent(t *testing.T) {
	es := LoadOrNew(filepath.Join(t.TempDir(), "events.json"), time.Hour, discardLogger())

	base := time.Now().Add(-time.Hour)
	es.Trigger(common.Trigger{
		Metadata: common.EventMetadata{ID: "evt1", Timestamp: base},
		Cameras:  []string{"front"},
		Pre:      common.Seconds(0),
		Post:     common.Seconds(3600),
	})

	hls := &fakeHLSClient{
		playlists: map[string]common.Playlist{
			"front": {Segments: []common.Segment{
				segmentAt(base, 0, 10),
				segmentAt(base, 10, 10),
			}},
		},
		urls: map[string]string{"front": "http://agent.local"},
	}

	var submitted []archive.Task
	es.Process(context.Background(), hls, "http://archiver.local", func(task archive.Task) {
		submitted = append(submitted, task)
	}, base.Add(20*time.Second))

	var segmentTasks, eventTasks int
	for _, task := range submitted {
		if task.Kind == archive.KindSegment {
			segmentTasks++
		}
		if _, ok := task.Event(); ok {
			eventTasks++
		}
	}
	if segmentTasks != 2 {
		t.Errorf("submitted %d segment tasks, want 2", segmentTasks)
	}
	if eventTasks != 1 {
		t.Errorf("submitted %d event tasks, want 1", eventTasks)
	}

	active := es.Active()
	if len(active[0].Cameras[0].SegmentList) != 2 {
		t.Errorf("recorded segment list has %d entries, want 2", len(active[0].Cameras[0].SegmentList))
	}

	// A second tick with no new segments should not resubmit the same ones.
	submitted = nil
	es.Process(context.Background(), hls, "http://archiver.local", func(task archive.Task) {
		submitted = append(submitted, task)
	}, base.Add(25*time.Second))

	segmentTasks = 0
	for _, task := range submitted {
		if task.Kind == archive.KindSegment {
			segmentTasks++
		}
	}
	if segmentTasks != 0 {
		t.Errorf("second tick submitted %d segment tasks, want 0 (no new segments)", segmentTasks)
	}
}

func TestEventSetProcessWindowsToEventEndNotNow(t *testing.T) {
	es := LoadOrNew(filepath.Join(t.TempDir(), "events.json"), time.Hour, discardLogger())

	base := time.Now().Add(-time.Hour)
	es.Trigger(common.Trigger{
		Metadata: common.EventMetadata{ID: "evt1", Timestamp: base},
		Cameras:  []string{"front"},
		Pre:      common.Seconds(0),
		Post:     common.Seconds(3600),
	})

	// This segment starts well after "now" but is still well within the
	// event's end (base+3600s); it must be picked up on this tick rather
	// than waiting for a later tick whose "now" finally reaches it.
	hls := &fakeHLSClient{
		playlists: map[string]common.Playlist{
			"front": {Segments: []common.Segment{
				segmentAt(base, 1800, 10),
			}},
		},
		urls: map[string]string{"front": "http://agent.local"},
	}

	var submitted []archive.Task
	es.Process(context.Background(), hls, "http://archiver.local", func(task archive.Task) {
		submitted = append(submitted, task)
	}, base.Add(20*time.Second))

	segmentTasks := 0
	for _, task := range submitted {
		if task.Kind == archive.KindSegment {
			segmentTasks++
		}
	}
	if segmentTasks != 1 {
		t.Errorf("submitted %d segment tasks, want 1 (segment before event end should be recorded even though it's after now)", segmentTasks)
	}

	active := es.Active()
	if len(active[0].Cameras[0].SegmentList) != 1 {
		t.Errorf("recorded segment list has %d entries, want 1", len(active[0].Cameras[0].SegmentList))
	}
}

func TestEventSetProcessExpiresOldEvents(t *testing.T) {
	es := LoadOrNew(filepath.Join(t.TempDir(), "events.json"), time.Minute, discardLogger())

	base := time.Now().Add(-2 * time.Hour)
	es.Trigger(common.Trigger{
		Metadata: common.EventMetadata{ID: "evt1", Timestamp: base},
		Cameras:  []string{"front"},
		Pre:      common.Seconds(0),
		Post:     common.Seconds(10),
	})

	hls := &fakeHLSClient{playlists: map[string]common.Playlist{"front": {}}}
	es.Process(context.Background(), hls, "http://archiver.local", func(archive.Task) {}, time.Now())

	if len(es.Active()) != 0 {
		t.Error("expected the expired event to have been dropped from the active set")
	}
}
