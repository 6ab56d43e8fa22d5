// Command playadvisor runs the playback policy advisor service.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mediamesh/playadvisor/internal/config"
	"github.com/mediamesh/playadvisor/internal/database"
	"github.com/mediamesh/playadvisor/internal/logger"
	"github.com/mediamesh/playadvisor/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("PLAYADVISOR_CONFIG"), "path to configuration file")
	flag.Parse()

	if err := config.Load(*configPath); err != nil {
		logger.Error("failed to load configuration", logger.Err("error", err))
		os.Exit(1)
	}
	cfg := config.Get()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := config.GetConfigManager().WatchFile(ctx); err != nil {
		logger.Warn("config hot reload unavailable", logger.Err("error", err))
	}

	if err := database.Initialize(cfg.Database); err != nil {
		logger.Error("failed to initialize database", logger.Err("error", err))
		os.Exit(1)
	}

	router, err := server.SetupRouter(cfg)
	if err != nil {
		logger.Error("failed to set up server", logger.Err("error", err))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("playback advisor listening", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", logger.Err("error", err))
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", logger.String("signal", sig.String()))
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("forced shutdown", logger.Err("error", err))
	}
	server.Shutdown()
}
