package container

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/purchase-requisition/internal/application/dispatcher"
	"github.com/garyjia/purchase-requisition/internal/application/port"
	"github.com/garyjia/purchase-requisition/internal/application/service"
	"github.com/garyjia/purchase-requisition/internal/application/workflow"
	"github.com/garyjia/purchase-requisition/internal/domain/event"
	"github.com/garyjia/purchase-requisition/internal/infrastructure/persistence/repository"
	"github.com/garyjia/purchase-requisition/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/purchase-requisition/migrations"
	"github.com/garyjia/purchase-requisition/pkg/database"
	"github.com/garyjia/purchase-requisition/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the SQLite database, applies the embedded
// migrations and wraps the connection in a transaction manager.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if _, err := database.NewMigrator(db, logger).Run(migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Requisition: repository.NewRequisitionRepository(db.DB, logger),
		History:     repository.NewHistoryRepository(db.DB, logger),
		Project:     repository.NewProjectRepository(db.DB, logger),
		User:        repository.NewUserRepository(db.DB, logger),
	}, nil
}

// ProvideDispatcher creates the event dispatcher. With auditEvents set the
// audit log handler receives every event type.
func ProvideDispatcher(auditEvents bool, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	kv := utils.NewKVLogger(logger)
	d := dispatcher.NewDispatcher(dispatcher.WithLogger(kv))

	if auditEvents {
		audit := dispatcher.NewAuditLogHandler(kv)
		for _, t := range event.All() {
			d.SubscribeNamed(t, "audit_log", audit)
		}
	}

	return d, nil
}

// WorkflowDeps holds dependencies for the workflow engine.
type WorkflowDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Clock      func() time.Time
	Logger     *zap.Logger
}

// ProvideWorkflowEngine creates the transition orchestrator.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.Engine, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []workflow.EngineOption{
		workflow.WithLogger(utils.NewKVLogger(deps.Logger)),
	}
	if deps.Dispatcher != nil {
		opts = append(opts, workflow.WithDispatcher(deps.Dispatcher))
	}
	if deps.Clock != nil {
		opts = append(opts, workflow.WithClock(deps.Clock))
	}

	return workflow.NewEngine(deps.Repos.Requisition, deps.Repos.History, deps.TxManager, opts...), nil
}

// ServiceDeps holds dependencies for application services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Engine     workflow.Engine
	Dispatcher dispatcher.Dispatcher
	Logger     *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("workflow engine is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	kv := utils.NewKVLogger(deps.Logger)

	return &ServiceBundle{
		Requisition: service.NewRequisitionService(
			deps.Repos.Requisition,
			deps.Repos.History,
			deps.Repos.Project,
			deps.TxManager,
			deps.Engine,
			deps.Dispatcher,
			kv,
		),
		Project: service.NewProjectService(deps.Repos.Project, deps.Dispatcher, kv),
	}, nil
}
