package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/guardops/internal/config"
	"github.com/mamadbah2/guardops/internal/repository"
	"github.com/mamadbah2/guardops/internal/repository/memory"
	"github.com/mamadbah2/guardops/internal/repository/mongodb"
	"github.com/mamadbah2/guardops/internal/repository/postgres"
	"github.com/mamadbah2/guardops/internal/repository/sheets"
	"github.com/mamadbah2/guardops/internal/scheduler"
	"github.com/mamadbah2/guardops/internal/server/handlers"
	"github.com/mamadbah2/guardops/internal/server/router"
	commandsvc "github.com/mamadbah2/guardops/internal/service/commands"
	financesvc "github.com/mamadbah2/guardops/internal/service/finance"
	reportingsvc "github.com/mamadbah2/guardops/internal/service/reporting"
	schedulesvc "github.com/mamadbah2/guardops/internal/service/schedule"
	whatsappsvc "github.com/mamadbah2/guardops/internal/service/whatsapp"
	"github.com/mamadbah2/guardops/internal/store"
	"github.com/mamadbah2/guardops/pkg/clients/anthropic"
	whatsappclient "github.com/mamadbah2/guardops/pkg/clients/whatsapp"
	"github.com/mamadbah2/guardops/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("ENV_FILE"))
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence backend
	var repo repository.Repository
	var mongoRepo *mongodb.MongoDBRepository

	if cfg.MongoDB.URI != "" {
		mongoRepo, err = mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
	}

	switch cfg.Store.Backend {
	case config.BackendPostgres:
		pg, err := postgres.Open(ctx, cfg.Postgres.URL, logger.Named(baseLogger, "repo.postgres"))
		if err != nil {
			baseLogger.Fatal("failed to init postgres repository", zap.Error(err))
		}
		defer func() { _ = pg.Close() }()
		repo = pg
	case config.BackendMongoDB:
		repo = mongoRepo
	default:
		baseLogger.Warn("using in-memory backend, data is lost on restart")
		repo = memory.NewRepository()
	}

	st := store.New(repo, store.Options{
		StrictLookups:  cfg.Store.StrictLookups,
		PersistTimeout: cfg.Store.PersistTimeout,
	}, logger.Named(baseLogger, "store"))

	if err := st.Load(ctx); err != nil {
		baseLogger.Fatal("failed to load store", zap.Error(err))
	}

	go func() {
		for pe := range st.PersistErrors() {
			baseLogger.Warn("write not persisted, local state kept",
				zap.String("table", string(pe.Change.Table)),
				zap.String("id", pe.Change.ID),
				zap.Time("at", pe.At))
		}
	}()

	// Optional integrations
	var aiClient anthropic.Client
	if cfg.AI.AnthropicKey != "" {
		aiClient = anthropic.NewClient(cfg.AI.AnthropicKey)
		baseLogger.Info("anthropic ai client enabled")
	} else {
		baseLogger.Warn("anthropic api key missing, schedule suggestions disabled")
	}

	var sheetsRepo sheets.Repository
	if cfg.Sheets.Enabled() {
		sheetsRepo, err = sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
	}

	var messagingSvc *whatsappsvc.MetaWhatsAppService
	var notifier schedulesvc.Notifier

	// Services
	projector := financesvc.NewProjector()
	projector.Dedup = financesvc.DedupMode(cfg.Finance.DedupMode)
	projector.Totals = financesvc.TotalsScope(cfg.Finance.TotalsScope)
	financeSvc := financesvc.NewService(st, projector, cfg.Location(), logger.Named(baseLogger, "svc.finance"))

	if cfg.WhatsApp.Enabled() {
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		// The command dispatcher depends on reporting, which is built below;
		// it is attached with SetDispatcher once reporting exists.
		messagingSvc = whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, nil, logger.Named(baseLogger, "svc.whatsapp"))
		notifier = messagingSvc
	}

	scheduleSvc := schedulesvc.NewService(st, notifier, aiClient, logger.Named(baseLogger, "svc.schedule"))

	reportingOpts := reportingsvc.Options{Sheets: sheetsRepo, CashFlowRange: cfg.Sheets.CashFlowRange, Location: cfg.Location()}
	if mongoRepo != nil {
		reportingOpts.Snapshots = mongoRepo
	}
	reportingSvc := reportingsvc.NewService(financeSvc, scheduleSvc, reportingOpts, logger.Named(baseLogger, "svc.reporting"))

	var webhookHandler *handlers.WebhookHandler
	var outbound whatsappsvc.MessagingService
	if messagingSvc != nil {
		dispatcher := commandsvc.NewService(reportingSvc, cfg.Location(), logger.Named(baseLogger, "svc.commands"))
		messagingSvc.SetDispatcher(dispatcher)
		webhookHandler = handlers.NewWebhookHandler(messagingSvc, logger.Named(baseLogger, "handlers.whatsapp"))
		outbound = messagingSvc
	} else {
		baseLogger.Warn("whatsapp credentials missing, webhook and notifications disabled")
	}

	engine := router.New(router.Handlers{
		Webhook:  webhookHandler,
		Shifts:   handlers.NewShiftHandler(scheduleSvc, logger.Named(baseLogger, "handlers.shifts")),
		Finance:  handlers.NewFinanceHandler(financeSvc, reportingSvc, logger.Named(baseLogger, "handlers.finance")),
		Entities: handlers.NewEntityHandler(st, financeSvc, logger.Named(baseLogger, "handlers.entities")),
	}, logger.Named(baseLogger, "router"))

	sched := scheduler.NewScheduler(*cfg, reportingSvc, outbound, logger.Named(baseLogger, "scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("backend", cfg.Store.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}

	st.Flush()
	baseLogger.Info("pending writes flushed")
}
