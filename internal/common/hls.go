package common

import (
	"fmt"
	"regexp"
	"time"
)

// SegmentFilenameLayout is the on-disk and on-wire format for a camera
// segment filename: "2022-11-20T05_28_30+0000.ts", the same names the
// agent's ffmpeg writes with its "%Y-%m-%dT%H_%M_%S%z" pattern. The
// time-of-day uses underscores and the zone offset has no colon, so the
// filename survives filesystems (and URL paths) that reject ':'.
const SegmentFilenameLayout = "2006-01-02T15_04_05-0700"

var segmentFilenamePattern = regexp.MustCompile(
	`^(\d{4}-\d{2}-\d{2}T\d{2}_\d{2}_\d{2}[+-]\d{4})\.ts$`,
)

// SegmentFilename renders a segment start time as the standard filename.
func SegmentFilename(start time.Time) string {
	return start.UTC().Format(SegmentFilenameLayout) + ".ts"
}

// SegmentStartFromFilename parses a filename produced by SegmentFilename
// back into its start time.
func SegmentStartFromFilename(name string) (time.Time, error) {
	m := segmentFilenamePattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a valid segment filename", ErrParse, name)
	}
	return time.Parse(SegmentFilenameLayout, m[1])
}

// Segment is one HLS media segment as listed in a camera's live playlist.
type Segment struct {
	Filename string
	Start    time.Time
	Duration time.Duration
}

// Playlist is a camera's live HLS media playlist, decoded into Satori's
// segment representation.
type Playlist struct {
	Segments []Segment
}

// Between returns the subset of segments that overlap the half-open
// interval [a, b): a segment [s, s+d) is included iff s < b AND a < s+d.
// This is an overlap test, not a containment test, so a segment that only
// partially covers the requested window is still returned in full.
func (p Playlist) Between(a, b time.Time) []Segment {
	var out []Segment
	for _, seg := range p.Segments {
		end := seg.Start.Add(seg.Duration)
		if seg.Start.Before(b) && a.Before(end) {
			out = append(out, seg)
		}
	}
	return out
}
