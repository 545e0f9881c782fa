// Command satori-event-processor runs the event lifecycle engine and
// archive task pipeline: it accepts triggers, merges them into active
// events, polls camera playlists for new segments, and submits archive
// tasks to the archiver.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/satori-nvr/satori/internal/eventprocessor"
	"github.com/satori-nvr/satori/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "event-processor.toml", "path to the event processor's TOML config file")
	flag.Parse()

	handler := logging.NewStreamHandler(logging.GetLogBuffer(), os.Stdout, slog.LevelInfo)
	log := slog.New(handler).With("component", "event-processor")
	slog.SetDefault(log)

	cfg, err := eventprocessor.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Watch(); err != nil {
		log.Warn("config hot-reload disabled", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := eventprocessor.NewService(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize event processor", "error", err)
		os.Exit(1)
	}

	if err := svc.Start(ctx); err != nil {
		log.Error("failed to start event processor", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}
