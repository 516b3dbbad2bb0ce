package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/mission-orders/internal/application/dispatcher"
	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/application/service"
	"github.com/garyjia/mission-orders/internal/application/workflow"
	"github.com/garyjia/mission-orders/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/mission-orders/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	database     *database.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - External
	notifier port.Notifier

	// Application
	dispatcher dispatcher.Dispatcher
	workflow   workflow.WorkflowEngine
	services   *ServiceBundle

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Missions      port.MissionRepository
	Expenses      port.ExpenseRepository
	Participants  port.ParticipantRepository
	Signatures    port.SignatureRepository
	Comments      port.CommentRepository
	Projects      port.ProjectRepository
	Users         port.UserRepository
	Roles         port.RoleRepository
	Notifications port.NotificationRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Missions      service.MissionService
	Projects      service.ProjectService
	Notifications service.NotificationService
	Documents     service.DocumentService
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
// 1. Database and repositories
// 2. External notifier (Lark)
// 3. Event dispatcher and workflow engine
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

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	// Step 1: Initialize database and repositories
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized", zap.String("path", c.config.Database.Path))

	// Step 2: Initialize external notifier
	if err := c.initExternalClients(); err != nil {
		return fmt.Errorf("failed to initialize external clients: %w", err)
	}
	c.logger.Info("External clients initialized", zap.Bool("lark_enabled", c.notifier != nil))

	// Step 3: Initialize dispatcher and workflow engine
	if err := c.initDispatcherAndWorkflow(); err != nil {
		return fmt.Errorf("failed to initialize dispatcher and workflow: %w", err)
	}
	c.logger.Info("Dispatcher and workflow engine initialized",
		zap.Bool("in_process_locks", c.config.Workflow.InProcessLocks))

	// Step 4: Initialize application services
	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

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

	// Cancel context to signal all goroutines
	if c.cancel != nil {
		c.cancel()
	}

	// Drain in-flight notification handlers before the database goes away
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	if c.database != nil {
		if err := c.database.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
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
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	check := func(name string, initialized bool, err error) {
		switch {
		case !initialized:
			status.Components[name] = ComponentHealth{Healthy: false, Message: "not initialized"}
			status.Overall = false
		case err != nil:
			status.Components[name] = ComponentHealth{Healthy: false, Message: err.Error()}
			status.Overall = false
		default:
			status.Components[name] = ComponentHealth{Healthy: true}
		}
	}

	var pingErr error
	if c.database != nil {
		if err := c.database.PingContext(ctx); err != nil {
			pingErr = fmt.Errorf("ping failed: %w", err)
		}
	}
	check("database", c.database != nil, pingErr)
	check("repositories", c.repositories != nil, nil)
	check("dispatcher", c.dispatcher != nil, nil)
	check("workflow", c.workflow != nil, nil)

	return status
}

// initDatabase initializes the database and all repositories using providers.
func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.database = dbBundle.DB
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.database, c.logger)
	if err != nil {
		_ = c.database.Close()
		return err
	}

	c.repositories = repos
	return nil
}

// initExternalClients initializes the Lark notifier when enabled.
func (c *Container) initExternalClients() error {
	notifier, err := ProvideNotifier(&c.config.Lark, c.logger)
	if err != nil {
		return err
	}
	c.notifier = notifier
	return nil
}

// initDispatcherAndWorkflow initializes the event dispatcher and workflow engine using providers.
func (c *Container) initDispatcherAndWorkflow() error {
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp

	engine, err := ProvideWorkflowEngine(&WorkflowDeps{
		Repos:      c.repositories,
		TxManager:  c.db,
		Dispatcher: c.dispatcher,
		Config:     &c.config.Workflow,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.workflow = engine

	return nil
}

// initServices initializes all application services using providers.
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.db,
		Engine:     c.workflow,
		Dispatcher: c.dispatcher,
		Notifier:   c.notifier,
		Workflow:   &c.config.Workflow,
		Document:   &c.config.Document,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}

	c.services = services
	return nil
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// WorkflowEngine returns the workflow engine.
func (c *Container) WorkflowEngine() workflow.WorkflowEngine {
	return c.workflow
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}
