// Package server wires the auth core together: storage backends, the token
// codecs and services, the HTTP and gRPC APIs and the expired-token sweeper.
// It also handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/hobbyvault/internal/logging"
	"github.com/dmitrijs2005/hobbyvault/internal/server/auth"
	"github.com/dmitrijs2005/hobbyvault/internal/server/config"
	"github.com/dmitrijs2005/hobbyvault/internal/server/httpapi"
	"github.com/dmitrijs2005/hobbyvault/internal/server/metrics"
	"github.com/dmitrijs2005/hobbyvault/internal/server/password"
	"github.com/dmitrijs2005/hobbyvault/internal/server/registry"
	"github.com/dmitrijs2005/hobbyvault/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/hobbyvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hobbyvault/internal/server/services"
	"github.com/dmitrijs2005/hobbyvault/internal/server/sweeper"

	gs "github.com/dmitrijs2005/hobbyvault/internal/server/grpc"
)

const redisKeyPrefix = "hobbyvault"

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	rdb      redis.UniversalClient
	access   *auth.Codec
	metrics  *metrics.Metrics
	users    *services.UserService
	registry registry.Registry
	sweeper  *sweeper.Sweeper
}

// NewApp validates c, opens the configured stores and builds every service.
// The returned App owns the opened connections until Run returns.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)
	return newApp(ctx, c, logger)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (app *App, err error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	app = &App{config: c, logger: logger}
	if c.UsesDefaultSecrets() {
		logger.Warn(ctx, "using built-in signing keys; set HOBBYVAULT_ACCESS_SECRET and HOBBYVAULT_REFRESH_SECRET")
	}
	defer func() {
		if err != nil {
			app.close(ctx)
		}
	}()

	accountsRepo, err := app.openAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if app.registry, err = app.openRegistry(ctx); err != nil {
		return nil, err
	}

	if app.access, err = auth.NewCodec([]byte(c.AccessSecretKey)); err != nil {
		return nil, fmt.Errorf("access codec: %w", err)
	}
	refresh, err := auth.NewCodec([]byte(c.RefreshSecretKey))
	if err != nil {
		return nil, fmt.Errorf("refresh codec: %w", err)
	}

	hasher, err := password.NewHasher(c.PasswordParams())
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}
	credentials, err := services.NewCredentials(accountsRepo, hasher)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.metrics = metrics.New(reg)

	issuer := services.NewTokenIssuer(app.access, refresh, app.registry, c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)
	app.users = services.NewUserService(credentials, issuer, app.metrics, logger)

	if c.SweepSchedule != "" {
		if app.sweeper, err = sweeper.New(app.registry, c.SweepSchedule, app.metrics, logger); err != nil {
			return nil, fmt.Errorf("sweeper: %w", err)
		}
	}

	return app, nil
}

// openAccounts returns the Postgres account store when a DSN is configured
// and runs migrations; otherwise accounts live in memory.
func (app *App) openAccounts(ctx context.Context) (accounts.Repository, error) {
	if app.config.DatabaseDSN == "" {
		app.logger.Warn(ctx, "no database DSN configured, accounts are kept in memory")
		return accounts.NewMemoryRepository(), nil
	}

	db, err := sql.Open("pgx", app.config.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}
	return rm.Accounts(db), nil
}

func (app *App) openRegistry(ctx context.Context) (registry.Registry, error) {
	switch app.config.RegistryBackend {
	case config.BackendPostgres:
		if app.db == nil {
			return nil, fmt.Errorf("postgres registry requires a database")
		}
		return registry.NewSQLRegistry(app.db, repomanager.NewPostgresRepositoryManager()), nil
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: app.config.RedisAddr})
		app.rdb = rdb
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping error: %w", err)
		}
		return registry.NewRedisRegistry(rdb, redisKeyPrefix), nil
	default:
		return registry.NewMemoryRegistry(), nil
	}
}

func (app *App) close(ctx context.Context) {
	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.logger.Error(ctx, "redis close", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close", "error", err)
		}
	}
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run serves HTTP and gRPC and runs the sweeper until ctx is cancelled, a
// termination signal arrives or one of them fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(ctx, cancelFunc)
	app.logger.Info(ctx, "Starting app...", "registry", app.config.RegistryBackend)

	defer app.close(context.Background())

	router := httpapi.NewRouter(httpapi.NewHandlers(app.users, app.logger), app.access, app.metrics, app.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpapi.NewServer(app.config.EndpointAddrHTTP, router, app.logger).Run(gctx)
	})
	g.Go(func() error {
		return gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.users, app.access, app.metrics).Run(gctx)
	})
	if app.sweeper != nil {
		g.Go(func() error {
			return app.sweeper.Run(gctx)
		})
	}

	err := g.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return err
}
