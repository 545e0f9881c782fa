package workflows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/satori-nvr/satori/internal/common"
	"github.com/satori-nvr/satori/internal/storage"
	"github.com/satori-nvr/satori/internal/storage/encryption"
)

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

func TestExportEventVideoConcatenatesInSegmentListOrder(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	segs := map[string]string{
		"1_1.ts": "one",
		"1_2.ts": "two",
		"1_3.ts": "three",
	}
	for name, data := range segs {
		if err := p.PutSegment(ctx, "front", name, []byte(data)); err != nil {
			t.Fatalf("PutSegment() error: %v", err)
		}
	}

	ev := common.Event{
		Metadata: common.EventMetadata{ID: "evt1", Timestamp: time.Now()},
		Cameras: []common.CameraSegments{
			{CameraName: "front", SegmentList: []string{"1_2.ts", "1_3.ts"}},
		},
	}

	data, err := ExportEventVideo(ctx, p, ev, "")
	if err != nil {
		t.Fatalf("ExportEventVideo() error: %v", err)
	}
	if string(data) != "twothree" {
		t.Errorf("ExportEventVideo() = %q, want %q", data, "twothree")
	}
}

func TestExportEventVideoRequiresCameraWhenAmbiguous(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	ev := common.Event{
		Metadata: common.EventMetadata{ID: "evt1"},
		Cameras: []common.CameraSegments{
			{CameraName: "front"},
			{CameraName: "back"},
		},
	}

	if _, err := ExportEventVideo(ctx, p, ev, ""); !errors.Is(err, storage.ErrCameraMustBeSpecified) {
		t.Errorf("ExportEventVideo() error = %v, want ErrCameraMustBeSpecified", err)
	}
}

func TestExportEventVideoRejectsUnknownCamera(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	ev := common.Event{
		Metadata: common.EventMetadata{ID: "evt1"},
		Cameras:  []common.CameraSegments{{CameraName: "front"}},
	}

	if _, err := ExportEventVideo(ctx, p, ev, "back"); !errors.Is(err, storage.ErrNoSuchCamera) {
		t.Errorf("ExportEventVideo() error = %v, want ErrNoSuchCamera", err)
	}
}

func TestGenerateVideoFilename(t *testing.T) {
	ts, err := time.Parse(time.RFC3339, "2022-11-20T05:28:30+00:00")
	if err != nil {
		t.Fatalf("time.Parse() error: %v", err)
	}
	ev := common.Event{Metadata: common.EventMetadata{Timestamp: ts}}

	want := "2022-11-20T05:28:30+00:00_front.mp4"
	if got := GenerateVideoFilename(ev, "front"); got != want {
		t.Errorf("GenerateVideoFilename() = %q, want %q", got, want)
	}
}
