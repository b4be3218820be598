package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/syncwave/crm/internal/access"
	"github.com/syncwave/crm/internal/apiserver/cache"
	"github.com/syncwave/crm/internal/apiserver/database"
	"github.com/syncwave/crm/internal/apiserver/handler"
	"github.com/syncwave/crm/internal/apiserver/scheduler"
	"github.com/syncwave/crm/internal/auth/jwt"
	"github.com/syncwave/crm/internal/campaign"
	"github.com/syncwave/crm/internal/common/config"
	"github.com/syncwave/crm/internal/crm"
	"github.com/syncwave/crm/internal/dispatch"
	"github.com/syncwave/crm/internal/i18n"
	"github.com/syncwave/crm/internal/tenancy"
	"github.com/syncwave/crm/pkg/logger"
	"github.com/syncwave/crm/pkg/metrics"
	"github.com/syncwave/crm/pkg/trace"
	"github.com/syncwave/crm/pkg/version"
	"go.uber.org/zap"
)

// services are the long-lived components behind the router
type services struct {
	jwt        *jwt.Service
	principals *cache.PrincipalCache
	tenancy    *tenancy.Service
	crm        *crm.Service
	campaigns  *campaign.Service
	dispatch   *dispatch.Orchestrator
	scheduler  *scheduler.DueScheduler
	metrics    *metrics.Metrics
	redis      *redis.Client
}

func loadConfig() (*config.APIServerConfig, error) {
	cfg, cfgPath, err := config.LoadConfig[config.APIServerConfig](configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", cfgPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initLogger(cfg *config.APIServerConfig) *zap.Logger {
	lg, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return lg
}

func initDatabase(lg *zap.Logger, cfg *config.DatabaseConfig) database.Database {
	db, err := database.NewDatabase(cfg)
	if err != nil {
		lg.Fatal("failed to initialize database", zap.String("type", cfg.Type), zap.Error(err))
	}
	return db
}

func initI18n(cfg *config.I18nConfig) {
	i18n.SetDefaultLanguage(cfg.DefaultLang)
	if err := i18n.InitTranslator(cfg.Path); err != nil {
		log.Printf("Failed to load translations from %s, using built-in messages: %v", cfg.Path, err)
		_ = i18n.InitTranslator("")
	}
}

// initServices wires the domain services; the returned cleanup closes the
// connections they own
func initServices(ctx context.Context, cfg *config.APIServerConfig, db database.Database, lg *zap.Logger) (*services, func(), error) {
	jwtService, err := jwt.NewService(jwt.Config{SecretKey: cfg.JWT.SecretKey, Duration: cfg.JWT.Duration})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create jwt service: %w", err)
	}

	provider, err := dispatch.NewProvider(&cfg.Provider, lg)
	if err != nil {
		return nil, nil, err
	}

	svc := &services{jwt: jwtService}
	cleanup := func() {
		if svc.redis != nil {
			_ = svc.redis.Close()
		}
	}

	var locker dispatch.Locker
	if cfg.Redis.Addr != "" {
		client, err := dispatch.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		svc.redis = client
		locker = dispatch.NewRedisLocker(client, cfg.Redis.Prefix, cfg.Redis.LockTTL, lg)
		lg.Info("using redis dispatch locks", zap.String("addr", cfg.Redis.Addr))
	}

	if cfg.Metrics.Enabled {
		svc.metrics = metrics.New(cfg.Metrics)
	}

	policy := access.NewPolicy(db)
	svc.tenancy = tenancy.NewService(db, policy, lg)
	if cfg.Cache.Enabled {
		var l2 redis.Cmdable
		if svc.redis != nil {
			l2 = svc.redis
		}
		svc.principals = cache.NewPrincipalCache(svc.tenancy, cache.Config{
			RedisClient: l2,
			KeyPrefix:   cfg.Redis.Prefix + "principal:",
			TTL:         cfg.Cache.PrincipalTTL,
			MaxEntries:  cfg.Cache.MaxEntries,
		}, lg)
	}
	svc.crm = crm.NewService(db, policy, lg)
	svc.campaigns = campaign.NewService(db, policy, lg)
	svc.dispatch = dispatch.New(db, policy, dispatch.Options{
		Provider:     provider,
		Locker:       locker,
		DefaultDelay: cfg.Dispatch.DefaultSendTimeout,
		Metrics:      svc.metrics,
	}, lg)

	if cfg.Dispatch.SchedulerInterval > 0 {
		svc.scheduler = scheduler.NewDueScheduler(scheduler.Config{
			Starter:  svc.dispatch,
			Logger:   lg,
			Interval: cfg.Dispatch.SchedulerInterval,
		})
	}
	return svc, cleanup, nil
}

func initRouter(db database.Database, svc *services, cfg *config.APIServerConfig, lg *zap.Logger) *gin.Engine {
	serviceName := ""
	if cfg.Tracing.Enabled {
		serviceName = cfg.Tracing.ServiceName
	}
	return handler.NewRouter(handler.Deps{
		DB:          db,
		JWT:         svc.jwt,
		Tenancy:     svc.tenancy,
		CRM:         svc.crm,
		Campaigns:   svc.campaigns,
		Dispatch:    svc.dispatch,
		Principals:  svc.principals,
		Scheduler:   svc.scheduler,
		Metrics:     svc.metrics,
		MetricsPath: cfg.Metrics.Path,
		ServiceName: serviceName,
		Logger:      lg,
	})
}

func run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lg := initLogger(cfg)
	defer lg.Sync()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	shutdownTracing, err := trace.InitTracing(ctx, &cfg.Tracing, lg)
	if err != nil {
		lg.Warn("failed to initialize tracing", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}

	db := initDatabase(lg, &cfg.Database)
	defer db.Close()

	initI18n(&cfg.I18n)

	svc, cleanup, err := initServices(ctx, cfg, db, lg)
	if err != nil {
		lg.Error("failed to initialize services", zap.Error(err))
		return err
	}
	defer cleanup()

	if cfg.Dispatch.ResumeOnStart {
		resumed, err := svc.dispatch.Recover(ctx)
		if err != nil {
			lg.Error("failed to resume interrupted messages", zap.Error(err))
		} else if resumed > 0 {
			lg.Info("resumed interrupted messages", zap.Int("count", resumed))
		}
	}
	if svc.scheduler != nil {
		if err := svc.scheduler.Start(); err != nil {
			lg.Error("failed to start due scheduler", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: initRouter(db, svc, cfg, lg),
	}

	lg.Info("starting apiserver",
		zap.String("version", version.Get()),
		zap.String("addr", srv.Addr),
		zap.String("database", cfg.Database.Type),
		zap.String("provider", cfg.Provider.Type))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var serveErr error
	select {
	case sig := <-quit:
		lg.Info("received shutdown signal", zap.String("signal", sig.String()))
	case serveErr = <-errCh:
		lg.Error("server stopped unexpectedly", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("failed to shutdown http server", zap.Error(err))
	}
	if svc.scheduler != nil {
		_ = svc.scheduler.Stop()
	}
	if err := svc.dispatch.Shutdown(shutdownCtx); err != nil {
		lg.Warn("dispatch runs did not finish before shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		lg.Warn("failed to flush traces", zap.Error(err))
	}

	lg.Info("apiserver stopped")
	return serveErr
}
