package container

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/mission-orders/internal/application/dispatcher"
	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/application/service"
	"github.com/garyjia/mission-orders/internal/application/workflow"
	"github.com/garyjia/mission-orders/internal/infrastructure/document"
	infraLark "github.com/garyjia/mission-orders/internal/infrastructure/external/lark"
	"github.com/garyjia/mission-orders/internal/infrastructure/persistence/repository"
	"github.com/garyjia/mission-orders/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/mission-orders/internal/infrastructure/reference"
	"github.com/garyjia/mission-orders/pkg/database"
	"github.com/garyjia/mission-orders/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database, applies pending migrations and wraps
// the connection in a transaction manager.
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
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.NewMigrator(db, logger).Migrate(); err != nil {
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
	if db == nil || db.DB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	users := repository.NewUserRepository(db.DB, logger)

	return &RepositoryBundle{
		Missions:      repository.NewMissionRepository(db.DB, logger),
		Expenses:      repository.NewExpenseRepository(db.DB, logger),
		Participants:  repository.NewParticipantRepository(db.DB, logger),
		Signatures:    repository.NewSignatureRepository(db.DB, logger),
		Comments:      repository.NewCommentRepository(db.DB, logger),
		Projects:      repository.NewProjectRepository(db.DB, logger),
		Users:         users,
		Roles:         users,
		Notifications: repository.NewNotificationRepository(db.DB, logger),
	}, nil
}

// ProvideNotifier creates the Lark messenger, or nil when Lark is disabled.
func ProvideNotifier(cfg *LarkConfig, logger *zap.Logger) (port.Notifier, error) {
	if cfg == nil {
		return nil, fmt.Errorf("lark config is required")
	}
	if !cfg.Enabled {
		return nil, nil
	}

	client := infraLark.NewSDKClient(infraLark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
	}, logger)

	return infraLark.NewMessenger(client, logger), nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(utils.NewKVLogger(logger)),
	), nil
}

// WorkflowDeps holds dependencies required for creating the workflow engine.
type WorkflowDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Config     *WorkflowConfig
	Logger     *zap.Logger
}

// ProvideWorkflowEngine creates the approval workflow engine.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.WorkflowEngine, error) {
	if deps == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []workflow.EngineOption{
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithLogger(utils.NewKVLogger(deps.Logger)),
	}
	if deps.Config != nil && deps.Config.InProcessLocks {
		opts = append(opts, workflow.WithMissionLocks(workflow.NewMissionLocks()))
	}

	return workflow.NewEngine(
		deps.Repos.Missions,
		deps.Repos.Signatures,
		deps.Repos.Projects,
		deps.TxManager,
		opts...,
	), nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Engine     workflow.WorkflowEngine
	Dispatcher dispatcher.Dispatcher
	Notifier   port.Notifier
	Workflow   *WorkflowConfig
	Document   *DocumentConfig
	Logger     *zap.Logger
}

// ProvideServices creates all application services and subscribes the
// notification service to workflow events.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("workflow engine is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	// Create logger adapter for services
	serviceLogger := utils.NewKVLogger(deps.Logger)

	prefix := reference.DefaultPrefix
	if deps.Workflow != nil && deps.Workflow.ReferencePrefix != "" {
		prefix = deps.Workflow.ReferencePrefix
	}

	docCfg := document.Config{}
	if deps.Document != nil {
		docCfg = document.Config{
			Organization: deps.Document.Organization,
			Currency:     deps.Document.Currency,
		}
	}

	missions := service.NewMissionService(
		service.MissionRepositories{
			Missions:     deps.Repos.Missions,
			Expenses:     deps.Repos.Expenses,
			Participants: deps.Repos.Participants,
			Signatures:   deps.Repos.Signatures,
			Comments:     deps.Repos.Comments,
			Projects:     deps.Repos.Projects,
		},
		reference.NewGenerator(prefix),
		deps.Engine,
		deps.TxManager,
		deps.Dispatcher,
		serviceLogger,
	)

	notifications := service.NewNotificationService(
		deps.Repos.Notifications,
		deps.Repos.Roles,
		deps.Repos.Users,
		deps.Notifier,
		serviceLogger,
	)
	if deps.Dispatcher != nil {
		notifications.Register(deps.Dispatcher)
	}

	return &ServiceBundle{
		Missions:      missions,
		Projects:      service.NewProjectService(deps.Repos.Projects, serviceLogger),
		Notifications: notifications,
		Documents: service.NewDocumentService(
			missions,
			deps.Repos.Projects,
			deps.Repos.Users,
			document.NewXLSXRenderer(docCfg, deps.Logger),
			serviceLogger,
		),
	}, nil
}
