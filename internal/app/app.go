package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/payda-app/payda/internal/config"
	"github.com/payda-app/payda/internal/db"
	"github.com/payda-app/payda/internal/http/api"
	"github.com/payda-app/payda/internal/idempotency"
	"github.com/payda-app/payda/internal/ledger"
	"github.com/payda-app/payda/internal/logging"
	"github.com/payda-app/payda/internal/metrics"
	"github.com/payda-app/payda/internal/scheduler"
	"github.com/payda-app/payda/internal/security"
	"github.com/payda-app/payda/internal/seed"
	"github.com/payda-app/payda/internal/settings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// settingsRefreshInterval is how often a running server reloads DB settings.
const settingsRefreshInterval = 30 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn.WithContext(ctx))
}

// Seed loads demo data into an empty database.
func Seed(ctx context.Context, cfg config.AppConfig, password string) (*seed.Summary, error) {
	conn, err := openMigrated(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return seed.Demo(ctx, ledger.NewEngine(conn), password)
}

// RunRules replays every active auto-donation rule once.
func RunRules(ctx context.Context, cfg config.AppConfig) ([]ledger.RuleResult, error) {
	conn, err := openMigrated(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return ledger.NewEngine(conn).RunAutoDonationRules(ctx)
}

// RunServer boots the HTTP API and the background rule runner, and blocks until
// ctx is cancelled.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	appCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logCloser, err := logging.Setup(appCfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	conn, err := db.Open(appCfg.Database.DSN)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errRefresh := settings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
		return fmt.Errorf("load settings: %w", errRefresh)
	}
	go refreshSettings(ctx, conn)

	jwtConfig, errJWT := config.LoadJWTConfig(configPath)
	if errJWT != nil {
		secret, errSecret := security.GenerateSecret(32)
		if errSecret != nil {
			return errSecret
		}
		jwtConfig.Secret = secret
		log.Warn("jwt secret not configured, using an ephemeral secret; tokens will not survive a restart")
	}

	collector := metrics.NewCollector()
	engine := ledger.NewEngine(conn, ledger.WithRecorder(collector))

	store, closeStore, err := idempotencyStore(ctx, appCfg.Redis)
	if err != nil {
		return err
	}
	defer closeStore()

	if runner := scheduler.NewAutoDonationRunner(engine); runner != nil {
		runner.Start(ctx)
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.Deps{
		DB:          conn,
		Engine:      engine,
		JWT:         jwtConfig,
		Metrics:     collector,
		Idempotency: store,
	})
	srv := &http.Server{
		Addr:              appCfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("payda listening on %s (config=%s)", appCfg.Server.Addr, configPath)
		if errServe := srv.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			serveErr <- errServe
		}
		close(serveErr)
	}()

	select {
	case errServe := <-serveErr:
		return errServe
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.Server.ShutdownTimeout)
	defer cancel()
	if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("server forced to shutdown: %w", errShutdown)
	}
	log.Info("server stopped")
	return nil
}

func openMigrated(ctx context.Context, cfg config.AppConfig) (*gorm.DB, error) {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return nil, err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return nil, errMigrate
	}
	if errRefresh := settings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
		return nil, errRefresh
	}
	return conn, nil
}

// idempotencyStore connects to Redis when configured and falls back to process memory.
func idempotencyStore(ctx context.Context, cfg config.RedisConfig) (idempotency.Store, func(), error) {
	if cfg.Addr == "" {
		log.Info("idempotency keys kept in memory")
		return idempotency.NewMemoryStore(), func() {}, nil
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.Addr},
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if errPing := client.Ping(ctx).Err(); errPing != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", errPing)
	}
	log.Infof("idempotency keys stored in redis at %s", cfg.Addr)
	return idempotency.NewRedisStore(client, ""), func() { _ = client.Close() }, nil
}

func refreshSettings(ctx context.Context, conn *gorm.DB) {
	ticker := time.NewTicker(settingsRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if errRefresh := settings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
				log.WithError(errRefresh).Warn("settings refresh failed")
			}
		}
	}
}
