package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/lolPants/NorthstarMasterServer/internal/config"
	"github.com/lolPants/NorthstarMasterServer/internal/dependencies/clock"
	"github.com/lolPants/NorthstarMasterServer/internal/dependencies/random"
	"github.com/lolPants/NorthstarMasterServer/internal/services/accounts"
	"github.com/lolPants/NorthstarMasterServer/internal/services/gameserver"
	"github.com/lolPants/NorthstarMasterServer/internal/services/handshake"
	"github.com/lolPants/NorthstarMasterServer/internal/services/oracle"
	"github.com/lolPants/NorthstarMasterServer/internal/services/registry"
	"github.com/lolPants/NorthstarMasterServer/internal/services/token"
	"github.com/lolPants/NorthstarMasterServer/internal/storage"
	"github.com/lolPants/NorthstarMasterServer/internal/storage/memory"
	redisstorage "github.com/lolPants/NorthstarMasterServer/internal/storage/redis"
	"github.com/lolPants/NorthstarMasterServer/internal/storage/sqlstore"
)

// App contains all wired application components
type App struct {
	// Storage
	Store storage.AccountStore

	// External dependencies
	Clock      clock.Clock
	Random     random.Random
	Oracle     handshake.Oracle
	RemoteAuth handshake.RemoteAuth

	// Services
	Issuer      *token.Issuer
	Directory   *accounts.Directory
	Registry    *registry.Registry
	Coordinator *handshake.Coordinator

	closers []func() error
}

// Close releases the store connection, if any
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger

	// StorageType selects the account store (see config.Storage*)
	// If empty, defaults to memory
	StorageType string
	// RedisConfig is required if StorageType is redis
	RedisConfig *redisstorage.Config
	// SQLConfig is required if StorageType is sqlite or postgres
	SQLConfig *sqlstore.Config

	Token      token.Config
	Accounts   accounts.Config
	Registry   registry.Config
	Oracle     oracle.Config
	RemoteAuth gameserver.Config
	// Handshake defaults to handshake.DefaultConfig() when nil
	Handshake *handshake.Config
}

// ConfigFromEnv maps the process configuration onto the factory config
func ConfigFromEnv(env config.Config, logger *slog.Logger) (Config, error) {
	baseline, err := env.Baseline()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Logger:      logger,
		StorageType: env.StorageType,
		Token:       token.Config{SessionTTL: env.TokenTTL},
		Accounts:    accounts.Config{Baseline: baseline, BlobSize: env.PdataSize},
		Registry: registry.Config{
			LivenessWindow: env.LivenessWindow,
			Retention:      env.ServerRetention,
			SweepInterval:  env.SweepInterval,
		},
		Oracle: oracle.Config{
			URL:               env.OracleURL,
			ProductMarker:     env.OracleProductMarker,
			Timeout:           env.OracleTimeout,
			RequestsPerSecond: env.OracleRate,
			Burst:             env.OracleBurst,
		},
		RemoteAuth: gameserver.Config{Timeout: env.RemoteAuthTimeout},
		Handshake:  &handshake.Config{RequireSessionToken: env.RequireSessionToken},
	}

	switch env.StorageType {
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = env.RedisURL
		cfg.RedisConfig = &redisCfg
	case config.StorageSQLite, config.StoragePostgres:
		sqlCfg := sqlstore.DefaultConfig()
		sqlCfg.Dialect = sqlstore.Dialect(env.StorageType)
		sqlCfg.DSN = env.DatabaseDSN
		cfg.SQLConfig = &sqlCfg
	}
	return cfg, nil
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, closer, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()
	oracleClient := oracle.New(cfg.Oracle, logger)
	remote := gameserver.New(cfg.RemoteAuth, logger)

	app := newWithDependencies(store, clk, rnd, oracleClient, remote, cfg, logger)
	if closer != nil {
		app.closers = append(app.closers, closer)
	}

	logger.Info("app initialized",
		slog.String("storage", cfg.StorageType),
		slog.Duration("session_ttl", app.Issuer.TTL()),
	)
	return app, nil
}

func newStore(ctx context.Context, cfg Config) (storage.AccountStore, func() error, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = config.StorageMemory
	}

	switch storageType {
	case config.StorageMemory:
		return memory.New(), nil, nil
	case config.StorageRedis:
		if cfg.RedisConfig == nil {
			return nil, nil, errors.New("RedisConfig required when StorageType is redis")
		}
		store, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.StorageSQLite, config.StoragePostgres:
		if cfg.SQLConfig == nil {
			return nil, nil, fmt.Errorf("SQLConfig required when StorageType is %s", storageType)
		}
		store, err := sqlstore.Open(ctx, *cfg.SQLConfig)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("invalid StorageType %q", storageType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.AccountStore,
	clk clock.Clock,
	rnd random.Random,
	oracleClient handshake.Oracle,
	remote handshake.RemoteAuth,
	cfg Config,
	logger *slog.Logger,
) *App {
	handshakeCfg := handshake.DefaultConfig()
	if cfg.Handshake != nil {
		handshakeCfg = *cfg.Handshake
	}

	issuer := token.New(clk, rnd, cfg.Token)
	directory := accounts.New(store, issuer, cfg.Accounts, logger)
	reg := registry.New(clk, issuer, cfg.Registry, logger)
	coordinator := handshake.New(issuer, directory, reg, oracleClient, remote, handshakeCfg, logger)

	return &App{
		Store:       store,
		Clock:       clk,
		Random:      rnd,
		Oracle:      oracleClient,
		RemoteAuth:  remote,
		Issuer:      issuer,
		Directory:   directory,
		Registry:    reg,
		Coordinator: coordinator,
	}
}
