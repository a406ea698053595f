package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/eventdesk/eventdesk/internal/analytics"
	"github.com/eventdesk/eventdesk/internal/app"
	"github.com/eventdesk/eventdesk/internal/audit"
	"github.com/eventdesk/eventdesk/internal/auth"
	"github.com/eventdesk/eventdesk/internal/confirm"
	"github.com/eventdesk/eventdesk/internal/dashboard"
	"github.com/eventdesk/eventdesk/internal/i18n"
	"github.com/eventdesk/eventdesk/internal/observability"
	"github.com/eventdesk/eventdesk/internal/platform/cache"
	"github.com/eventdesk/eventdesk/internal/platform/db"
	"github.com/eventdesk/eventdesk/internal/rbac"
	"github.com/eventdesk/eventdesk/internal/shared"
	"github.com/eventdesk/eventdesk/internal/view"
	"github.com/eventdesk/eventdesk/internal/workspace"
	"github.com/eventdesk/eventdesk/jobs"
	"github.com/eventdesk/eventdesk/web"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("eventdesk exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	dbpool, err := db.Open(ctx, db.Options{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns})
	if err != nil {
		return err
	}
	defer dbpool.Close()

	redisClient, err := cache.Open(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "eventdesk_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	tokens := auth.NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL)

	templates, err := view.NewEngine()
	if err != nil {
		return err
	}
	catalog, err := i18n.LoadFS(web.Locales, "locales")
	if err != nil {
		return err
	}
	menu, err := rbac.NewMenu(rbac.DefaultMenu())
	if err != nil {
		return err
	}
	routes, err := rbac.NewRouteTable(rbac.DefaultRoutes())
	if err != nil {
		return err
	}
	guard := rbac.Guard{Routes: routes, Logger: logger}

	metrics := observability.NewMetrics()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer inspector.Close()

	statsService := analytics.NewService(analytics.NewRepository(dbpool), analytics.NewCache(redisClient, cfg.StatsCacheTTL))

	var actions dashboard.Actions
	workspaces := workspace.NewRegistry(workspace.Factory{
		Logger:   logger,
		Observer: metrics,
		Auditor:  jobClient.Auditor,
		RegisterAction: func(_ string, registry *confirm.Registry) error {
			return actions.Register(registry)
		},
		LiveCount: metrics.SetWorkspaces,
	})

	authHandler := auth.NewHandler(auth.HandlerConfig{
		Logger:     logger,
		Service:    auth.NewService(auth.NewRepository(dbpool)),
		Templates:  templates,
		Sessions:   sessionManager,
		CSRF:       csrfManager,
		Catalog:    catalog,
		Tokens:     tokens,
		Workspaces: workspaces,
	})
	actions = dashboard.Actions{
		Events: dashboard.NewPGEventStore(dbpool),
		Stats:  statsService,
		Logout: authHandler.LogoutAction,
		Logger: logger,
	}

	dashboardHandler := dashboard.NewHandler(dashboard.Config{
		Logger:          logger,
		Templates:       templates,
		CSRF:            csrfManager,
		Catalog:         catalog,
		Workspaces:      workspaces,
		Menu:            menu,
		Guard:           guard,
		Stats:           statsService,
		DefaultLanguage: cfg.DefaultLanguage,
	})
	auditHandler := audit.NewHandler(logger, audit.NewLogger(audit.NewPGStore(dbpool)), guard.RequireAny(shared.PermAuditView))

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		Tokens:           tokens,
		AuthHandler:      authHandler,
		DashboardHandler: dashboardHandler,
		AuditHandler:     auditHandler,
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return workspaces.Run(groupCtx, cfg.WorkspaceSweepInterval, cfg.WorkspaceIdleTTL)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
