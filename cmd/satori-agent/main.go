// Command satori-agent supervises one or more cameras' ffmpeg restreaming
// jobs and serves their live HLS output.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/satori-nvr/satori/internal/agent"
)

func main() {
	configPath := flag.String("config", "agent.toml", "path to the agent's TOML config file")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil)).With("component", "agent")
	slog.SetDefault(log)

	cfg, err := agent.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for _, cam := range cfg.Cameras {
		streamer := agent.NewStreamer(cam, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := streamer.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("streamer stopped unexpectedly", "error", err)
			}
		}()
	}

	srv := agent.NewServer(cfg, log)
	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: srv.Router()}

	go func() {
		log.Info("agent listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("agent server stopped unexpectedly", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	wg.Wait()
}
