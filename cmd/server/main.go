// Package main runs the score gateway: the REST API for score submission
// and leaderboards, a WebSocket feed of the pending count, and the
// background sync scheduler.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/1prspctv/memory-match-madness/cmd/server/handlers"
	"github.com/1prspctv/memory-match-madness/internal/config"
	"github.com/1prspctv/memory-match-madness/internal/logging"
	"github.com/1prspctv/memory-match-madness/internal/services"
)

// Version is set at build time
var Version = "0.1.0"

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", os.Getenv("MMM_CONFIG"), "path to YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.Init(os.Stdout, level)

	svc, err := services.NewScoreService(cfg, services.Dependencies{})
	if err != nil {
		return err
	}
	defer svc.Close()

	hub := NewWSHub(svc.Visibility.Publish)
	svc.Scheduler.WatchPendingCount(hub.BroadcastPendingCount)
	svc.Scheduler.OnSyncComplete(hub.BroadcastSyncCompleted)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(svc, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		stopScheduler := svc.Start(gctx)
		<-gctx.Done()
		stopScheduler()
		svc.Scheduler.WaitForPasses()
		return nil
	})

	g.Go(func() error {
		logging.Info("Score server starting",
			map[string]interface{}{"addr": cfg.Server.Addr, "version": Version})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logging.Info("Score server stopped", nil)
	return err
}

func newRouter(svc *services.ScoreService, hub *WSHub) http.Handler {
	mux := http.NewServeMux()
	handlers.Register(mux, svc)
	mux.HandleFunc("GET /ws", HandleWebSocket(hub))
	return mux
}
