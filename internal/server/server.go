// Package server provides the HTTP surface of the playback advisor.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mediamesh/playadvisor/internal/config"
	"github.com/mediamesh/playadvisor/internal/database"
	"github.com/mediamesh/playadvisor/internal/events"
	"github.com/mediamesh/playadvisor/internal/logger"
	"github.com/mediamesh/playadvisor/internal/middleware"
	"github.com/mediamesh/playadvisor/internal/modules/modulemanager"

	// Import modules to trigger their registration
	_ "github.com/mediamesh/playadvisor/internal/modules/policymodule"
)

var systemEventBus events.EventBus

// SetupRouter configures and returns the main router
func SetupRouter(cfg *config.Config) (*gin.Engine, error) {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())

	if cfg.Server.EnableCORS {
		r.Use(middleware.CORS())
	}

	systemEventBus = events.NewEventBus(256)
	systemEventBus.Start(context.Background())
	events.SetGlobalEventBus(systemEventBus)

	if err := modulemanager.LoadAll(database.GetDB()); err != nil {
		return nil, fmt.Errorf("module initialization failed: %w", err)
	}
	modulemanager.RegisterRoutes(r)

	registerSystemRoutes(r, cfg)

	systemEventBus.PublishAsync(events.NewEvent(events.EventSystemStarted, "server", "playback advisor started", nil))
	logger.Info("router configured", logger.Int("port", cfg.Server.Port))

	return r, nil
}

// Shutdown stops server-owned subsystems
func Shutdown() {
	if systemEventBus != nil {
		systemEventBus.PublishAsync(events.NewEvent(events.EventSystemStopped, "server", "playback advisor stopping", nil))
		systemEventBus.Stop()
	}
}

func registerSystemRoutes(r *gin.Engine, cfg *config.Config) {
	r.GET("/health", handleHealth)

	if cfg.Server.EnableMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.GET("/api/events/recent", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"events": systemEventBus.RecentEvents(),
			"stats":  systemEventBus.GetStats(),
		})
	})
}
