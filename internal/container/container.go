package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/purchase-requisition/internal/application/dispatcher"
	"github.com/garyjia/purchase-requisition/internal/application/port"
	"github.com/garyjia/purchase-requisition/internal/application/service"
	"github.com/garyjia/purchase-requisition/internal/application/workflow"
	"github.com/garyjia/purchase-requisition/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/purchase-requisition/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	db           *database.DB
	txManager    *sqlite.DB
	repositories *RepositoryBundle

	// Application
	dispatcher dispatcher.Dispatcher
	workflow   workflow.Engine
	services   *ServiceBundle

	// Lifecycle
	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Requisition port.RequisitionRepository
	History     port.HistoryRepository
	Project     port.ProjectRepository
	User        port.UserRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Requisition service.RequisitionService
	Project     service.ProjectService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components:
// 1. Database, migrations and repositories
// 2. Event dispatcher
// 3. Workflow engine
// 4. Application services
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	c.logger.Info("Starting container initialization")

	// Step 1: Initialize database and repositories
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	// Step 2-4: Initialize dispatcher, workflow engine and services
	if err := c.initApplication(); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	c.logger.Info("Dispatcher, workflow engine and services initialized")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	// Step 1: Close dispatcher so in-flight notifications finish
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	// Step 2: Close database
	if err := c.closeDatabase(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	set := func(name string, h ComponentHealth) {
		status.Components[name] = h
		if !h.Healthy {
			status.Overall = false
		}
	}

	// Check database
	switch {
	case c.db == nil:
		set("database", ComponentHealth{Healthy: false, Message: "not initialized"})
	default:
		if err := c.db.Ping(); err != nil {
			set("database", ComponentHealth{Healthy: false, Message: fmt.Sprintf("ping failed: %v", err)})
		} else {
			set("database", ComponentHealth{Healthy: true})
		}
	}

	// Check dispatcher
	if c.dispatcher != nil {
		set("dispatcher", ComponentHealth{Healthy: true})
	} else {
		set("dispatcher", ComponentHealth{Healthy: false, Message: "not initialized"})
	}

	// Check workflow engine
	if c.workflow != nil {
		set("workflow", ComponentHealth{Healthy: true})
	} else {
		set("workflow", ComponentHealth{Healthy: false, Message: "not initialized"})
	}

	return status
}

// initDatabase initializes the database and all repositories using providers.
func (c *Container) initDatabase() error {
	bundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.db = bundle.DB
	c.txManager = bundle.TransactionMgr

	repos, err := ProvideRepositories(c.db, c.logger)
	if err != nil {
		c.closeDatabase()
		return err
	}
	c.repositories = repos

	return nil
}

// initApplication wires dispatcher, engine and services using providers.
func (c *Container) initApplication() error {
	disp, err := ProvideDispatcher(c.config.Workflow.AuditEvents, c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp

	engine, err := ProvideWorkflowEngine(&WorkflowDeps{
		Repos:      c.repositories,
		TxManager:  c.txManager,
		Dispatcher: c.dispatcher,
		Clock:      c.config.Workflow.Clock,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.workflow = engine

	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.txManager,
		Engine:     c.workflow,
		Dispatcher: c.dispatcher,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services

	return nil
}

func (c *Container) closeDatabase() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	if err != nil {
		c.logger.Error("Failed to close database", zap.Error(err))
	} else {
		c.logger.Info("Database closed")
	}
	c.db = nil
	return err
}

// Repositories returns the repository bundle.
func (c *Container) Repositories() *RepositoryBundle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.repositories
}

// Services returns the application services.
func (c *Container) Services() *ServiceBundle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.services
}

// Workflow returns the transition orchestrator.
func (c *Container) Workflow() workflow.Engine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.workflow
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dispatcher
}

// Config returns the container configuration.
func (c *Container) Config() *Config {
	return c.config
}
