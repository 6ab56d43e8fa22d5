// Package modulemanager provides module registration and initialization.
package modulemanager

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mediamesh/playadvisor/internal/logger"
)

// Module defines the interface that all modules must implement
type Module interface {
	ID() string                // Unique identifier for the module
	Name() string              // Display name for the module
	Core() bool                // Whether this is a core module (cannot be disabled)
	Migrate(db *gorm.DB) error // Run database migrations
	Init() error               // Initialize the module
}

// RouteRegistrar is an optional interface for modules that register routes
type RouteRegistrar interface {
	RegisterRoutes(router *gin.Engine)
}

// ModuleRegistry manages module registration and initialization
type ModuleRegistry struct {
	modules     map[string]Module
	order       []string
	mu          sync.RWMutex
	initialized bool
}

// Registry is the global module registry
var Registry = &ModuleRegistry{
	modules: make(map[string]Module),
}

// Register adds a module to the global registry
func Register(m Module) {
	Registry.Register(m)
}

// Register adds a module to the registry
func (r *ModuleRegistry) Register(m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		logger.Warn("module registered after initialization",
			logger.String("module", m.ID()))
	}
	if _, exists := r.modules[m.ID()]; !exists {
		r.order = append(r.order, m.ID())
	}
	r.modules[m.ID()] = m
	logger.Info("module registered", logger.String("module", m.ID()), logger.String("name", m.Name()))
}

// LoadAll migrates and initializes all registered modules
func LoadAll(db *gorm.DB) error {
	return Registry.LoadAll(db)
}

// LoadAll migrates and initializes all registered modules in registration order
func (r *ModuleRegistry) LoadAll(db *gorm.DB) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return nil
	}

	for _, id := range r.order {
		m := r.modules[id]
		if err := m.Migrate(db); err != nil {
			return fmt.Errorf("module %s migration failed: %w", id, err)
		}
		if err := m.Init(); err != nil {
			return fmt.Errorf("module %s initialization failed: %w", id, err)
		}
		logger.Info("module initialized", logger.String("module", id))
	}

	r.initialized = true
	return nil
}

// RegisterRoutes lets every module that implements RouteRegistrar add its
// routes to the router.
func RegisterRoutes(router *gin.Engine) {
	Registry.mu.RLock()
	defer Registry.mu.RUnlock()

	for _, id := range Registry.order {
		if registrar, ok := Registry.modules[id].(RouteRegistrar); ok {
			registrar.RegisterRoutes(router)
		}
	}
}

// GetModule returns a registered module by ID
func GetModule(id string) (Module, bool) {
	Registry.mu.RLock()
	defer Registry.mu.RUnlock()
	m, ok := Registry.modules[id]
	return m, ok
}
