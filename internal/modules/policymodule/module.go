package policymodule

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mediamesh/playadvisor/internal/config"
	"github.com/mediamesh/playadvisor/internal/database"
	"github.com/mediamesh/playadvisor/internal/events"
	"github.com/mediamesh/playadvisor/internal/modules/modulemanager"
)

// Module represents the policy module compatible with the module manager
type Module struct {
	id      string
	name    string
	core    bool
	manager *Manager
}

// Auto-register the module when imported
func init() {
	Register()
}

// Register registers this module with the module system
func Register() {
	modulemanager.Register(&Module{
		id:   "system.policy",
		name: "Playback Policy Advisor",
		core: true,
	})
}

// ID returns the module ID
func (m *Module) ID() string {
	return m.id
}

// Name returns the module name
func (m *Module) Name() string {
	return m.name
}

// Core returns whether this is a core module
func (m *Module) Core() bool {
	return m.core
}

// Migrate performs pending migrations for the module's models
func (m *Module) Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&database.ClientProfile{}, &database.PlaybackOutcome{})
}

// Init wires the policy manager to the database, event bus, and config
func (m *Module) Init() error {
	db := database.GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	m.manager = NewManager(db, events.GetGlobalEventBus(), config.GetConfigManager())
	m.manager.Start()
	return nil
}

// RegisterRoutes registers the module's HTTP routes
func (m *Module) RegisterRoutes(router *gin.Engine) {
	if m.manager == nil {
		return
	}
	RegisterRoutes(router, NewAPIHandler(m.manager))
}

// GetManager exposes the manager for other components and tests
func (m *Module) GetManager() *Manager {
	return m.manager
}
