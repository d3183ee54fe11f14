package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/keyforge/keyforge-go/internal/core/service"
	"github.com/keyforge/keyforge-go/internal/infra/buildinfo"
	"github.com/keyforge/keyforge-go/internal/infra/confloader"
	"github.com/keyforge/keyforge-go/internal/infra/shutdown"
	"github.com/keyforge/keyforge-go/internal/server/config"
	"github.com/keyforge/keyforge-go/internal/server/httpserver"
	"github.com/keyforge/keyforge-go/internal/server/localserver"
	"github.com/keyforge/keyforge-go/internal/storage"
	"github.com/keyforge/keyforge-go/internal/telemetry/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("keyforge-server %s\n", buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	info := buildinfo.Get()
	log.Info("starting keyforge-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	engine, err := initStorage(cfg, log)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	ctx := context.Background()
	if err := engine.Recover(ctx); err != nil {
		return fmt.Errorf("storage recovery: %w", err)
	}

	services, err := initServices(engine, cfg, log)
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}

	// Background sweeper for expired keys.
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	go services.Sweeper.Run(sweepCtx)

	routerCfg := httpserver.DefaultRouterConfig()
	routerCfg.Users = services.Users
	routerCfg.Products = services.Products
	routerCfg.Keys = services.Keys
	routerCfg.Ledger = services.Ledger
	routerCfg.Logger = log
	routerCfg.CORSOrigins = cfg.Server.HTTP.CORSOrigins
	routerCfg.RateLimit = cfg.Server.HTTP.RateLimit
	routerCfg.RateBurst = cfg.Server.HTTP.RateBurst

	httpServer := httpserver.New(cfg.Server.HTTP.Addr, httpserver.NewRouter(routerCfg))

	localHandler := localserver.NewHandler(engine, services.Sweeper, cfg.Security.BackupKey)
	localServer := localserver.New(cfg.Server.Local.Path, localHandler, log)

	confWatcher, err := watchConfig(*configFile, log)
	if err != nil {
		log.Warn("config watcher disabled", "error", err)
	}

	shutdownHandler := shutdown.NewHandler(30 * time.Second)

	// Shutdown hooks run in registration order: stop accepting work
	// first, flush storage last.
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		if confWatcher != nil {
			return confWatcher.Stop()
		}
		return nil
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down local socket server")
		return localServer.Shutdown(ctx)
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		stopSweeper()
		return nil
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down storage engine")
		return engine.Close()
	})

	go func() {
		log.Info("local socket listening", "path", cfg.Server.Local.Path)
		if err := localServer.ListenAndServe(); err != nil {
			log.Error("local socket server error", "error", err)
		}
	}()

	go func() {
		log.Info("HTTP server listening", "addr", cfg.Server.HTTP.Addr)

		var err error
		if cfg.Server.HTTP.TLSCertFile != "" && cfg.Server.HTTP.TLSKeyFile != "" {
			err = httpServer.ListenAndServeTLS(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads configuration from file and environment.
func loadConfig(configFile string) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// watchConfig watches the config file and applies log level changes in
// place. Other settings still require a restart.
func watchConfig(configFile string, log logger.Logger) (*confloader.Watcher, error) {
	if configFile == "" {
		return nil, nil
	}

	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(configFile); err != nil {
		w.Stop()
		return nil, err
	}

	w.OnChange(func(changed string) {
		if filepath.Base(changed) != filepath.Base(configFile) {
			return
		}
		cfg, err := loadConfig(configFile)
		if err != nil {
			log.Error("config reload failed", "error", err)
			return
		}
		logger.SetLevel(cfg.Log.Level)
		log.Info("log level applied from config file", "level", cfg.Log.Level)
	})
	w.StartAsync()

	return w, nil
}

// initLogger initializes the structured logger and installs it as the
// process default.
func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, err
	}

	logger.SetDefault(log)
	return log, nil
}

// initStorage initializes the storage engine.
func initStorage(cfg *config.ServerConfig, log logger.Logger) (*storage.Engine, error) {
	storageCfg := storage.DefaultConfig(cfg.Storage.DataDir)
	storageCfg.SyncWrites = cfg.Storage.SyncWrites
	storageCfg.Logger = log

	if cfg.Storage.GCInterval > 0 {
		storageCfg.GCInterval = cfg.Storage.GCInterval
	}
	if cfg.Storage.GCThreshold > 0 {
		storageCfg.GCThreshold = cfg.Storage.GCThreshold
	}

	return storage.New(storageCfg)
}

// serverServices bundles the wired service layer.
type serverServices struct {
	Users    *service.UserService
	Products *service.ProductService
	Keys     *service.KeyService
	Ledger   *service.LedgerService
	Sweeper  *service.Sweeper
}

// initServices wires the service layer on top of the storage engine.
func initServices(engine *storage.Engine, cfg *config.ServerConfig, log logger.Logger) (*serverServices, error) {
	tokens, err := service.NewTokenService(cfg.Security.TokenSecret, cfg.Security.AuthTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}

	root := service.NewRootGate(cfg.Security.RootSecret, log)
	ledger := service.NewLedgerService(engine.Users(), root)

	users := service.NewUserService(engine.Users(), tokens, root)
	products := service.NewProductService(engine.Products(), engine.Users(), log)
	keys := service.NewKeyService(
		engine.Keys(),
		engine.KeyTokens(),
		engine.Products(),
		engine.Users(),
		ledger,
		tokens,
		log,
	)

	// Deleting a user tears down their products and keys; deleting a
	// product tears down its keys.
	users.SetCascaders(products, keys)
	products.SetKeyCascader(keys)

	sweeper := service.NewSweeper(engine.Keys(), keys, cfg.Sweeper.Interval, log)

	return &serverServices{
		Users:    users,
		Products: products,
		Keys:     keys,
		Ledger:   ledger,
		Sweeper:  sweeper,
	}, nil
}
