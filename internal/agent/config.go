// Package agent implements the camera-side supervisor: it owns the ffmpeg
// process that restreams a camera's RTSP feed to HLS, and serves that HLS
// output (playlist and segments) over HTTP for the event processor and
// archiver to pull from.
package agent

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/satori-nvr/satori/internal/common"
)

// CameraConfig configures one camera's ffmpeg restreaming job.
type CameraConfig struct {
	Name                    string         `toml:"name"`
	InputURL                string         `toml:"input_url"`
	VideoDirectory          string         `toml:"video_directory"`
	HLSSegmentTime          int            `toml:"hls_segment_time"`           // seconds
	HLSRetainedSegmentCount int            `toml:"hls_retained_segment_count"` // playlist window
	FFmpegRestartDelay      common.Seconds `toml:"ffmpeg_restart_delay"`
}

// Config is the agent's full configuration: one HTTP listener serving every
// configured camera's HLS output.
type Config struct {
	ListenAddr string         `toml:"listen_addr"`
	Cameras    []CameraConfig `toml:"cameras"`
}

// Load reads and parses a TOML config file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("agent: reading config %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("agent: parsing config %s: %w", path, err)
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	for i := range cfg.Cameras {
		c := &cfg.Cameras[i]
		if c.HLSSegmentTime == 0 {
			c.HLSSegmentTime = 4
		}
		if c.HLSRetainedSegmentCount == 0 {
			c.HLSRetainedSegmentCount = 15
		}
		if c.FFmpegRestartDelay == 0 {
			c.FFmpegRestartDelay = common.Seconds(5 * time.Second)
		}
	}
	return &cfg, nil
}
