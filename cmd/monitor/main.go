// Command monitor runs the court-case monitoring service: scheduled registry
// polling, known-cases index syncs and Telegram notification fan-out.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pravoguard/court-monitor/internal/infrastructure/cache"
	"github.com/pravoguard/court-monitor/internal/infrastructure/clients/registry"
	"github.com/pravoguard/court-monitor/internal/infrastructure/clients/taskboard"
	"github.com/pravoguard/court-monitor/internal/infrastructure/clients/telegram"
	"github.com/pravoguard/court-monitor/internal/infrastructure/config"
	"github.com/pravoguard/court-monitor/internal/infrastructure/repository"
	"github.com/pravoguard/court-monitor/internal/metrics"
	"github.com/pravoguard/court-monitor/internal/service/knowncases"
	"github.com/pravoguard/court-monitor/internal/service/monitoring"
	"github.com/pravoguard/court-monitor/internal/service/threat"
	"github.com/pravoguard/court-monitor/migrations"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to configuration file")
		runMigrate = flag.Bool("migrate", false, "Apply database migrations and exit")
		runOnce    = flag.Bool("once", false, "Run a single monitoring cycle and exit")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if *runMigrate {
		if err := applyMigrations(cfg.Database.URL); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
		logger.Info("migrations applied")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *runOnce); err != nil {
		logger.Fatal("service failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, once bool) error {
	pool, err := newPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	snapshotCache := cache.NewSnapshotCache(redisClient, cfg.Redis.SnapshotTTL)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metricsReg := metrics.NewRegistry(promReg)

	taskSource, err := taskboard.NewTaskSource(cfg.TaskBoard, snapshotCache, logger)
	if err != nil {
		return err
	}

	stateRepo := repository.NewStateRepository(pool)
	index := knowncases.NewService(
		taskSource,
		repository.NewKnownCaseRepository(pool),
		stateRepo,
		logger.Named("knowncases"),
	)

	orchestrator := monitoring.NewOrchestrator(
		monitoring.Config{
			FeedLimit:        cfg.Registry.FeedLimit,
			SubscriptionType: cfg.Registry.SubscriptionType,
			AdminChatIDs:     cfg.Telegram.AdminChatIDs,
			InitialRunMode:   monitoring.InitialRunMode(cfg.Monitor.InitialRunMode),
		},
		monitoring.Deps{
			Registry:   registry.NewClient(cfg.Registry, logger.Named("registry")),
			Notifier:   telegram.NewClient(cfg.Telegram.Token, logger.Named("telegram")),
			Index:      index,
			Classifier: threat.NewClassifier(threat.Config{DangerousPlaintiffs: cfg.Threat.DangerousPlaintiffs}),
			Companies:  repository.NewCompanyRepository(pool),
			RegSubs:    repository.NewRegistrySubscriptionRepository(pool),
			UserSubs:   repository.NewUserSubscriptionRepository(pool),
			CaseSubs:   repository.NewCaseSubscriptionRepository(pool),
			Settings:   repository.NewSettingsRepository(pool),
			Ledger:     repository.NewLedgerRepository(pool),
			State:      stateRepo,
			Cases:      repository.NewCaseRepository(pool),
			Metrics:    metricsReg,
			Logger:     logger.Named("monitoring"),
		},
	)

	if once {
		report, err := orchestrator.RunCycle(ctx)
		if err != nil {
			return err
		}
		logger.Info("cycle complete", zap.String("summary", report.Summary()))
		return nil
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(hourSpec(cfg.Monitor.PollHours), func() {
		report, err := orchestrator.RunCycle(context.Background())
		if err != nil {
			logger.Error("monitoring cycle aborted", zap.Error(err))
			return
		}
		logger.Info("monitoring cycle complete", zap.String("summary", report.Summary()))
	}); err != nil {
		return fmt.Errorf("scheduling poll cycle: %w", err)
	}
	if _, err := scheduler.AddFunc(hourSpec(cfg.Monitor.SyncHours), func() {
		if _, err := index.Refresh(context.Background()); err != nil {
			logger.Error("scheduled index refresh failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("scheduling index sync: %w", err)
	}
	scheduler.Start()

	metricsServer := &http.Server{
		Addr:    cfg.Metrics.Addr,
		Handler: promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	logger.Info("monitor started",
		zap.Ints("poll_hours", cfg.Monitor.PollHours),
		zap.Ints("sync_hours", cfg.Monitor.SyncHours),
		zap.String("taskboard_mode", cfg.TaskBoard.Mode),
		zap.String("metrics_addr", cfg.Metrics.Addr))

	<-ctx.Done()
	logger.Info("shutting down")

	cronCtx := scheduler.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown failed", zap.Error(err))
	}

	select {
	case <-cronCtx.Done():
	case <-shutdownCtx.Done():
		logger.Warn("timed out waiting for running jobs")
	}
	return nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.LogLevel, err)
	}

	var zcfg zap.Config
	if cfg.Environment == "development" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func newPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func applyMigrations(databaseURL string) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("initializing migrator: %w", err)
	}
	defer m.Close() //nolint:errcheck

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// hourSpec renders a fixed-hour schedule as a cron expression firing at
// minute zero of each listed hour.
func hourSpec(hours []int) string {
	parts := make([]string, 0, len(hours))
	for _, h := range hours {
		parts = append(parts, strconv.Itoa(h))
	}
	return fmt.Sprintf("0 %s * * *", strings.Join(parts, ","))
}
