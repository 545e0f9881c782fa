// Package workflows implements the cross-object operations that act on a
// whole Provider rather than a single key: exporting a playable video for
// an event, and the two pruning sweeps operators run to reclaim space.
package workflows

import (
	"bytes"
	"context"
	"fmt"

	"github.com/satori-nvr/satori/internal/common"
	"github.com/satori-nvr/satori/internal/storage"
)

// GenerateVideoFilename names the export produced for an event and camera:
// "<rfc3339-seconds>_<camera>.mp4".
func GenerateVideoFilename(ev common.Event, camera string) string {
	return fmt.Sprintf("%s_%s.mp4", ev.Metadata.Timestamp.UTC().Format("2006-01-02T15:04:05-07:00"), camera)
}

// ExportEventVideo concatenates camera's recorded segments for ev, in
// segment_list order, into a single byte stream. camera may be empty only
// if ev references exactly one camera; otherwise it must name one of ev's
// cameras.
func ExportEventVideo(ctx context.Context, p *storage.Provider, ev common.Event, camera string) ([]byte, error) {
	cs, err := selectCamera(ev, camera)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	for _, filename := range cs.SegmentList {
		data, err := p.GetSegment(ctx, cs.CameraName, filename)
		if err != nil {
			return nil, fmt.Errorf("workflows: fetching segment %s/%s for export: %w", cs.CameraName, filename, err)
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

func selectCamera(ev common.Event, camera string) (*common.CameraSegments, error) {
	if camera == "" {
		if len(ev.Cameras) != 1 {
			return nil, storage.ErrCameraMustBeSpecified
		}
		return &ev.Cameras[0], nil
	}

	cs := ev.Camera(camera)
	if cs == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrNoSuchCamera, camera)
	}
	return cs, nil
}
