// Command satori-archiver runs the HTTP front door to the archive store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/satori-nvr/satori/internal/archiver"
	"github.com/satori-nvr/satori/internal/logging"
	"github.com/satori-nvr/satori/internal/storage"
)

func main() {
	configPath := flag.String("config", "archiver.toml", "path to the archiver's TOML config file")
	flag.Parse()

	handler := logging.NewStreamHandler(logging.GetLogBuffer(), os.Stdout, slog.LevelInfo)
	log := slog.New(handler).With("component", "archiver")
	slog.SetDefault(log)

	cfg, err := archiver.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := storage.BackendFromURL(ctx, cfg.Storage.URL)
	if err != nil {
		log.Error("failed to open archive store", "error", err)
		os.Exit(1)
	}

	eventKey, err := cfg.Storage.Encryption.Event.Load()
	if err != nil {
		log.Error("failed to load event encryption key", "error", err)
		os.Exit(1)
	}
	segmentKey, err := cfg.Storage.Encryption.Segment.Load()
	if err != nil {
		log.Error("failed to load segment encryption key", "error", err)
		os.Exit(1)
	}

	provider := storage.NewProvider(backend, eventKey, segmentKey)
	srv := archiver.NewServer(provider, cfg.FetchTimeout.Duration(), log)

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: srv.Router()}

	go func() {
		log.Info("archiver listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("archiver server stopped unexpectedly", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
		fmt.Fprintln(os.Stderr, err)
	}
}
