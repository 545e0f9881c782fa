package agent

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/grafov/m3u8"
)

// Server serves every configured camera's live HLS output: the playlist at
// "/cameras/{camera}/hls" and each segment at the matching
// "/hls/{filename}.ts" path below it, plus bare "/hls" aliases when exactly
// one camera is configured.
type Server struct {
	cameras map[string]CameraConfig
	log     *slog.Logger
}

// NewServer builds a Server for cfg's cameras.
func NewServer(cfg *Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	cameras := make(map[string]CameraConfig, len(cfg.Cameras))
	for _, c := range cfg.Cameras {
		cameras[c.Name] = c
	}
	return &Server{cameras: cameras, log: log}
}

// Router builds the agent's HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Route("/cameras/{camera}", func(r chi.Router) {
		r.Get("/hls", s.handlePlaylistNamed)
		r.Get("/hls/{filename}", s.handleSegmentNamed)
	})

	if len(s.cameras) == 1 {
		var only CameraConfig
		for _, c := range s.cameras {
			only = c
		}
		r.Get("/hls", s.handlePlaylist(only))
		r.Get("/hls/{filename}", s.handleSegment(only))
	}

	return r
}

func (s *Server) handlePlaylistNamed(w http.ResponseWriter, r *http.Request) {
	cam, ok := s.cameras[chi.URLParam(r, "camera")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.handlePlaylist(cam)(w, r)
}

func (s *Server) handleSegmentNamed(w http.ResponseWriter, r *http.Request) {
	cam, ok := s.cameras[chi.URLParam(r, "camera")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.handleSegment(cam)(w, r)
}

func (s *Server) handlePlaylist(cam CameraConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playlistPath := filepath.Join(cam.VideoDirectory, "index.m3u8")

		f, err := os.Open(playlistPath)
		if err != nil {
			http.Error(w, "playlist not available", http.StatusServiceUnavailable)
			return
		}
		defer f.Close()

		playlist, listType, err := m3u8.DecodeFrom(f, true)
		if err != nil || listType != m3u8.MEDIA {
			http.Error(w, "playlist not available", http.StatusServiceUnavailable)
			return
		}
		media := playlist.(*m3u8.MediaPlaylist)

		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		w.Write(media.Encode().Bytes())
	}
}

func (s *Server) handleSegment(cam CameraConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := chi.URLParam(r, "filename")
		if filename == "" || filepath.Base(filename) != filename {
			http.Error(w, "invalid segment filename", http.StatusBadRequest)
			return
		}

		path := filepath.Join(cam.VideoDirectory, filename)
		w.Header().Set("Content-Type", "video/mp2t")
		http.ServeFile(w, r, path)
	}
}
