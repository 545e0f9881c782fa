package archiver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/satori-nvr/satori/internal/common"
	"github.com/satori-nvr/satori/internal/logging"
	"github.com/satori-nvr/satori/internal/storage"
)

// Server is the archiver's HTTP front door.
type Server struct {
	provider *storage.Provider
	fetch    *http.Client
	log      *slog.Logger
}

// NewServer wraps provider; fetch is the client used to pull segment bytes
// from the agent-hosted URL named in each ArchiveSegmentCommand.
func NewServer(provider *storage.Provider, fetchTimeout time.Duration, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		provider: provider,
		fetch:    &http.Client{Timeout: fetchTimeout},
		log:      log,
	}
}

// Router builds the archiver's HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/event", s.handleEvent)
	r.Post("/video/{camera}", s.handleSegment)
	r.Get("/logs", handleLogs)

	return r
}

// handleLogs serves the most recent entries from the process-wide log ring
// buffer, for operators without access to the process's own stdout.
func handleLogs(w http.ResponseWriter, r *http.Request) {
	n := 100
	if raw := r.URL.Query().Get("last"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			n = parsed
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(logging.GetLogBuffer().GetRecent(n))
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev common.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "invalid event: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.provider.PutEvent(r.Context(), ev); err != nil {
		s.log.Error("failed to archive event", "event_id", ev.Metadata.ID, "error", err)
		http.Error(w, "failed to archive event", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	camera := chi.URLParam(r, "camera")
	if !storage.ValidCameraName(camera) {
		http.Error(w, "invalid camera name", http.StatusBadRequest)
		return
	}

	var cmd common.ArchiveSegmentCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "invalid segment command: "+err.Error(), http.StatusBadRequest)
		return
	}

	filename := path.Base(cmd.SegmentURL)

	data, err := s.fetchSegment(r.Context(), cmd.SegmentURL)
	if err != nil {
		s.log.Error("failed to fetch segment", "camera", camera, "url", cmd.SegmentURL, "error", err)
		http.Error(w, "failed to fetch segment", http.StatusBadGateway)
		return
	}

	if err := s.provider.PutSegment(r.Context(), camera, filename, data); err != nil {
		s.log.Error("failed to archive segment", "camera", camera, "filename", filename, "error", err)
		http.Error(w, "failed to archive segment", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (s *Server) fetchSegment(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("archiver: building segment fetch request: %w", err)
	}

	resp, err := s.fetch.Do(req)
	if err != nil {
		return nil, fmt.Errorf("archiver: fetching segment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("archiver: segment fetch returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
