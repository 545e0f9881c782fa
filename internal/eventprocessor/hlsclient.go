package eventprocessor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/grafov/m3u8"

	"github.com/satori-nvr/satori/internal/common"
)

// HTTPHLSClient fetches and decodes each configured camera's live media
// playlist over HTTP, translating grafov/m3u8's segment list into Satori's
// own Segment/Playlist types by parsing each segment's filename.
type HTTPHLSClient struct {
	client     *http.Client
	cameraURLs map[string]string // camera name -> agent base URL (playlist at <base>/hls)
}

// NewHTTPHLSClient builds a client that knows how to reach each camera's
// agent by name.
func NewHTTPHLSClient(client *http.Client, cameraURLs map[string]string) *HTTPHLSClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPHLSClient{client: client, cameraURLs: cameraURLs}
}

// CameraURL returns the configured base URL for cameraName.
func (c *HTTPHLSClient) CameraURL(cameraName string) (string, bool) {
	url, ok := c.cameraURLs[cameraName]
	return url, ok
}

// GetPlaylist fetches and parses cameraName's live media playlist.
func (c *HTTPHLSClient) GetPlaylist(ctx context.Context, cameraName string) (common.Playlist, error) {
	base, ok := c.cameraURLs[cameraName]
	if !ok {
		return common.Playlist{}, fmt.Errorf("eventprocessor: no camera url configured for %q", cameraName)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/hls", nil)
	if err != nil {
		return common.Playlist{}, fmt.Errorf("eventprocessor: building playlist request for %s: %w", cameraName, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return common.Playlist{}, fmt.Errorf("eventprocessor: fetching playlist for %s: %w", cameraName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return common.Playlist{}, fmt.Errorf("eventprocessor: playlist fetch for %s returned status %d", cameraName, resp.StatusCode)
	}

	return ParseMediaPlaylist(resp.Body)
}

// ParseMediaPlaylist decodes an HLS media playlist and maps its segment
// list into Satori's representation. Segments whose URI does not parse as
// a Satori-formatted filename are skipped with no error: a playlist may
// briefly list a segment the agent has not finished naming according to
// convention, and the next tick will pick it up once it stabilizes.
func ParseMediaPlaylist(r io.Reader) (common.Playlist, error) {
	playlist, listType, err := m3u8.DecodeFrom(r, true)
	if err != nil {
		return common.Playlist{}, fmt.Errorf("eventprocessor: decoding m3u8 playlist: %w", err)
	}
	if listType != m3u8.MEDIA {
		return common.Playlist{}, fmt.Errorf("eventprocessor: expected a media playlist, got master playlist")
	}

	media := playlist.(*m3u8.MediaPlaylist)

	var out common.Playlist
	for _, seg := range media.Segments {
		if seg == nil {
			continue
		}
		start, err := common.SegmentStartFromFilename(seg.URI)
		if err != nil {
			continue
		}
		out.Segments = append(out.Segments, common.Segment{
			Filename: seg.URI,
			Start:    start,
			Duration: time.Duration(seg.Duration * float64(time.Second)),
		})
	}
	return out, nil
}
