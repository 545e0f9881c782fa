package eventprocessor

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/satori-nvr/satori/internal/eventprocessor/archive"
	"github.com/satori-nvr/satori/internal/storage"
)

// Service owns the event processor's whole runtime: the active event set,
// the archive retry queue, the HTTP intake server, and the ticking process
// loop that binds them together.
type Service struct {
	cfg  *Config
	log  *slog.Logger
	hls  HLSClient
	http *http.Client

	events *EventSet
	queue  *archive.RetryQueue
	server *http.Server

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService wires a Service from cfg. The archive store backend named by
// cfg.ArchiveStoreURL is opened with the configured event and segment
// encryption keys. The event processor only ever writes through the
// provider, so its config needs only the public halves; when only those
// are configured, a compromised event processor cannot decrypt archived
// footage.
func NewService(ctx context.Context, cfg *Config, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}

	backend, err := storage.BackendFromURL(ctx, cfg.ArchiveStoreURL)
	if err != nil {
		return nil, fmt.Errorf("eventprocessor: opening archive store: %w", err)
	}

	eventKey, err := cfg.Encryption.Event.Load()
	if err != nil {
		return nil, fmt.Errorf("eventprocessor: loading event encryption key: %w", err)
	}
	segmentKey, err := cfg.Encryption.Segment.Load()
	if err != nil {
		return nil, fmt.Errorf("eventprocessor: loading segment encryption key: %w", err)
	}

	provider := storage.NewProvider(backend, eventKey, segmentKey)
	queue := archive.NewRetryQueue(provider, cfg.RetryQueueTTL.Duration(), cfg.RetryWorkers, log.With("component", "retry_queue"))
	if err := queue.Load(ctx); err != nil {
		log.Warn("failed to load persisted retry queue, starting empty", "error", err)
	}

	events := LoadOrNew(cfg.StateFilePath, cfg.EventTTL.Duration(), log.With("component", "event_set"))

	return &Service{
		cfg:    cfg,
		log:    log,
		hls:    NewHTTPHLSClient(http.DefaultClient, cfg.CameraURLs()),
		http:   http.DefaultClient,
		events: events,
		queue:  queue,
	}, nil
}

// Start launches the HTTP intake server and the background process loop.
// It returns once the server is listening; both goroutines stop when ctx
// is cancelled or Stop is called.
func (s *Service) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.server = &http.Server{Addr: s.cfg.ListenAddr, Handler: NewRouter(s.events, s.cfg)}

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		cancel()
		return fmt.Errorf("eventprocessor: listening on %s: %w", s.cfg.ListenAddr, err)
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("trigger intake server stopped unexpectedly", "error", err)
		}
	}()

	go func() {
		defer s.wg.Done()
		s.runLoop(ctx)
	}()

	s.log.Info("event processor started", "listen_addr", s.cfg.ListenAddr)
	return nil
}

// Stop gracefully shuts down the HTTP server and waits for the process
// loop to exit.
func (s *Service) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	s.wg.Wait()
	return err
}

func (s *Service) runLoop(ctx context.Context) {
	interval := s.cfg.ProcessInterval.Duration()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			s.events.Process(ctx, s.hls, s.cfg.ArchiverURL, s.queue.Push, now)
			s.queue.Process(ctx, s.http)
			s.log.Debug("processed tick", "active_events", len(s.events.Active()), "queued_tasks", s.queue.Len())
		}
	}
}
