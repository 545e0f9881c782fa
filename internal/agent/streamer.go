package agent

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Streamer owns one camera's ffmpeg restreaming process: it keeps ffmpeg
// running, restarting it after a configured delay whenever it exits,
// whether cleanly or not. It does not parse or validate ffmpeg's own
// output — only the process's lifetime is its concern.
type Streamer struct {
	cfg CameraConfig
	log *slog.Logger
}

// NewStreamer builds a Streamer for one camera.
func NewStreamer(cfg CameraConfig, log *slog.Logger) *Streamer {
	if log == nil {
		log = slog.Default()
	}
	return &Streamer{cfg: cfg, log: log.With("camera", cfg.Name)}
}

// Run blocks, supervising ffmpeg until ctx is cancelled.
func (s *Streamer) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.VideoDirectory, 0o755); err != nil {
		return fmt.Errorf("agent: creating video directory for %s: %w", s.cfg.Name, err)
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.log.Info("starting ffmpeg")
		if err := s.runOnce(ctx); err != nil {
			s.log.Warn("ffmpeg exited", "error", err)
		} else {
			s.log.Warn("ffmpeg exited cleanly")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.FFmpegRestartDelay.Duration()):
		}
	}
}

func (s *Streamer) runOnce(ctx context.Context) error {
	playlistPath := filepath.Join(s.cfg.VideoDirectory, "index.m3u8")
	segmentPattern := filepath.Join(s.cfg.VideoDirectory, "%Y-%m-%dT%H_%M_%S%z.ts")

	args := []string{
		"-i", s.cfg.InputURL,
		"-c", "copy",
		"-f", "hls",
		"-hls_time", fmt.Sprint(s.cfg.HLSSegmentTime),
		"-hls_list_size", fmt.Sprint(s.cfg.HLSRetainedSegmentCount),
		"-hls_flags", "delete_segments+second_level_segment_duration",
		"-strftime", "1",
		"-hls_segment_filename", segmentPattern,
		playlistPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w (stderr: %s)", err, lastLines(stderr.String(), 20))
	}
	return nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
