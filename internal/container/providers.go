package container

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/travel-reimbursement/internal/application/currency"
	"github.com/garyjia/travel-reimbursement/internal/application/dispatcher"
	"github.com/garyjia/travel-reimbursement/internal/application/port"
	"github.com/garyjia/travel-reimbursement/internal/application/service"
	"github.com/garyjia/travel-reimbursement/internal/application/workflow"
	"github.com/garyjia/travel-reimbursement/internal/domain/event"
	"github.com/garyjia/travel-reimbursement/internal/infrastructure/external/inforeuro"
	infraLark "github.com/garyjia/travel-reimbursement/internal/infrastructure/external/lark"
	"github.com/garyjia/travel-reimbursement/internal/infrastructure/persistence/repository"
	"github.com/garyjia/travel-reimbursement/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/travel-reimbursement/internal/infrastructure/render"
	"github.com/garyjia/travel-reimbursement/internal/infrastructure/storage"
	"github.com/garyjia/travel-reimbursement/internal/infrastructure/worker"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database and runs pending migrations.
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	sqlDB, err := sqlite.Open(sqlite.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := sqlite.Migrate(ctx, sqlDB, logger); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		SqlDB:          sqlDB,
		TransactionMgr: sqlite.NewDB(sqlDB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Report:     repository.NewReportRepository(sqlDB, logger),
		History:    repository.NewHistoryRepository(sqlDB, logger),
		Country:    repository.NewCountryRepository(sqlDB, logger),
		Project:    repository.NewProjectRepository(sqlDB, logger),
		Rate:       repository.NewRateRepository(sqlDB, logger),
		SideEffect: repository.NewSideEffectRepository(sqlDB, logger),
	}, nil
}

// ProvideMessenger creates the notification channel. Without Lark
// credentials messages are only logged.
func ProvideMessenger(cfg *LarkConfig, logger *zap.Logger) (port.MessageSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("lark config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if !cfg.Enabled() {
		logger.Info("Lark is not configured, notifications are logged only")
		return service.NewLogMessageSender(&zapLoggerAdapter{logger: logger}), nil
	}

	client := infraLark.NewClient(infraLark.Config{
		AppID:         cfg.AppID,
		AppSecret:     cfg.AppSecret,
		ReceiveIDType: cfg.ReceiveIDType,
		Timeout:       cfg.APITimeout,
	}, logger)
	return infraLark.NewMessenger(client, logger), nil
}

// ProvideRateProvider creates the monthly rate provider backed by the
// rate cache and, unless offline, the InforEuro source.
func ProvideRateProvider(cfg *RatesConfig, repo port.RateRepository, base string, logger *zap.Logger) (port.RateProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("rates config is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("rate repository is required")
	}

	var source port.RateSource
	if !cfg.Offline {
		source = inforeuro.NewClient(inforeuro.Config{
			BaseURL:  cfg.BaseURL,
			Timeout:  cfg.Timeout,
			RetryMax: cfg.RetryMax,
		}, logger)
	}
	return currency.NewMonthlyRateProvider(repo, source, base, logger), nil
}

// ProvideStorage creates the blob storage for receipts and archives.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (port.FileStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return storage.NewLocalFileStorage(cfg.BaseDir, logger), nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(dispatcher.WithLogger(&zapLoggerAdapter{logger: logger})), nil
}

// ServiceDeps contains dependencies for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Files      port.FileStorage
	Rates      port.RateProvider
	Messenger  port.MessageSender
	Dispatcher dispatcher.Dispatcher
	Config     *Config
	Logger     *zap.Logger
}

// ProvideServices creates all application services and subscribes the
// side effect service to accepted transitions.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil || deps.TxManager == nil || deps.Files == nil || deps.Rates == nil {
		return nil, fmt.Errorf("repositories, transaction manager, storage and rates are required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	cfg := deps.Config
	settings := cfg.Settings
	logger := &zapLoggerAdapter{logger: deps.Logger}

	converter := currency.NewConverter(deps.Rates, settings.BaseCurrency, deps.Logger)
	recomputer := service.NewRecomputer(deps.Repos.Country, deps.Repos.Report, converter, settings)

	sideEffects := service.NewSideEffectService(
		deps.Repos.SideEffect,
		deps.Repos.Report,
		deps.Files,
		render.NewStorageDocumentReader(deps.Files),
		deps.Messenger,
		render.NewLabelTranslator(cfg.Labels, cfg.Lang),
		render.NewBaseCurrencyFormatter(settings.BaseCurrency),
		cfg.Lang,
		logger,
	)
	deps.Dispatcher.SubscribeNamed(event.TypeStateChanged, "side-effects", sideEffects.HandleStateChanged)

	return &ServiceBundle{
		Reports: service.NewReportService(
			deps.Repos.Report,
			deps.Repos.History,
			deps.Files,
			deps.TxManager,
			recomputer,
			deps.Dispatcher,
			settings,
			logger,
		),
		Countries:   service.NewCountryService(deps.Repos.Country, deps.Repos.Report, deps.TxManager, settings.FallbackLumpSumCountry, logger),
		Projects:    service.NewProjectService(deps.Repos.Project, deps.Repos.Report, logger),
		Receipts:    service.NewReceiptService(deps.Files, cfg.Storage.MaxReceiptBytes, cfg.Storage.ReceiptTypes, logger),
		SideEffects: sideEffects,
		Recomputer:  recomputer,
	}, nil
}

// WorkflowDeps contains dependencies for creating the workflow engine.
type WorkflowDeps struct {
	Repos       *RepositoryBundle
	TxManager   port.TransactionManager
	Recomputer  workflow.Recomputer
	Dispatcher  dispatcher.Dispatcher
	Concurrency int
	Logger      *zap.Logger
}

// ProvideWorkflowEngine creates the approval workflow engine.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.Engine, error) {
	if deps == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}
	if deps.Repos == nil || deps.TxManager == nil || deps.Recomputer == nil {
		return nil, fmt.Errorf("repositories, transaction manager and recomputer are required")
	}

	opts := []workflow.EngineOption{workflow.WithDispatcher(deps.Dispatcher)}
	if deps.Concurrency > 0 {
		opts = append(opts, workflow.WithConcurrency(deps.Concurrency))
	}
	return workflow.NewEngine(
		deps.Repos.Report,
		deps.Repos.History,
		deps.TxManager,
		deps.Recomputer,
		&zapLoggerAdapter{logger: deps.Logger},
		opts...,
	), nil
}

// WorkerDeps contains dependencies for creating workers.
type WorkerDeps struct {
	Outbox    port.SideEffectRepository
	Deliverer worker.Deliverer
	WorkerCfg *WorkerConfig
	Logger    *zap.Logger
}

// ProvideWorkers creates the worker manager with the outbox worker registered.
func ProvideWorkers(deps *WorkerDeps) (*worker.Manager, error) {
	if deps == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}
	if deps.Outbox == nil || deps.Deliverer == nil {
		return nil, fmt.Errorf("outbox and deliverer are required")
	}
	if deps.WorkerCfg == nil {
		return nil, fmt.Errorf("worker config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	manager := worker.NewManager(deps.Logger)

	outboxCfg := worker.OutboxConfig{
		PollInterval:    deps.WorkerCfg.OutboxPollInterval,
		BatchSize:       deps.WorkerCfg.OutboxBatchSize,
		MaxAttempts:     deps.WorkerCfg.OutboxMaxAttempts,
		BaseBackoff:     deps.WorkerCfg.OutboxBaseBackoff,
		MaxBackoff:      deps.WorkerCfg.OutboxMaxBackoff,
		DeliveryTimeout: deps.WorkerCfg.OutboxDeliveryTimeout,
		JitterPercent:   deps.WorkerCfg.OutboxJitterPercent,
	}
	manager.Register(worker.NewOutboxWorker(outboxCfg, deps.Outbox, deps.Deliverer, deps.Logger))

	return manager, nil
}
