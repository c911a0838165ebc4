package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sco-server/internal/catalog"
	"sco-server/internal/game"
	"sco-server/internal/middleware"
	"sco-server/internal/realtime"
	"sco-server/internal/resource"
	"sco-server/internal/server"
	serverHandlers "sco-server/internal/server/handlers"
	"sco-server/internal/shared/config"
	"sco-server/internal/shared/database"
	"sco-server/internal/shared/logger"
	"sco-server/internal/shared/redis"
	"sco-server/internal/snapshot"
	"sco-server/internal/spatial"
	"sco-server/internal/storage"
	"sco-server/internal/visibility"
)

func main() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize config: %v\n", err)
		os.Exit(1)
	}

	logger.Init()

	if err := run(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.GlobalConfig
	log := slog.With("component", "main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return err
	}
	log.Info("Catalog loaded", "items", cat.Len(), "digest", cat.Digest())

	compression, err := snapshot.ParseCompression(cfg.Storage.Compression)
	if err != nil {
		return err
	}
	codec, err := snapshot.NewCodec(compression)
	if err != nil {
		return fmt.Errorf("failed to create snapshot codec: %w", err)
	}

	rdb, err := redis.Connect()
	if err != nil {
		return err
	}
	defer rdb.Close()

	store, health, closeStore, err := openStore(ctx, cfg, codec, rdb)
	if err != nil {
		return err
	}
	defer closeStore()

	generator, err := spatial.NewGenerator(spatial.GeneratorConfig{
		SystemsPerArm:     cfg.Game.SystemsPerArm,
		MinCellsPerSystem: cfg.Game.MinCellsPerSystem,
		MaxCellsPerSystem: cfg.Game.MaxCellsPerSystem,
		CoreCells:         cfg.Game.CoreCells,
		PlanetChance:      cfg.Game.PlanetChance,
		SystemSpacing:     spatial.DefaultGeneratorConfig().SystemSpacing,
		FairnessRadius:    cfg.Game.FairnessRadius,
		MaxAttempts:       cfg.Game.MaxMapAttempts,
	}, slog.Default())
	if err != nil {
		return err
	}

	cors := middleware.NewCORS()
	hub := realtime.NewHub(cors.OriginAllowed, slog.Default())

	opts := []game.Option{game.WithNotifier(hub)}
	if rdb != nil {
		opts = append(opts, game.WithLocker(storage.NewRedisLocker(rdb.Client, cfg.Redis.LockTTL, slog.Default())))
	}

	settings := game.Settings{
		MinPlayers:    cfg.Game.MinPlayers,
		MaxPlayers:    cfg.Game.MaxPlayers,
		StartingStock: resource.Amount{Gold: cfg.Game.StartingGold, Iron: cfg.Game.StartingIron},
		TurnInterval:  cfg.Game.TurnInterval,
		AutoResolve:   cfg.Game.AutoResolve,
	}
	service := game.NewService(cat, generator, visibility.NewFilter(cat, cfg.Game.SensorRange), store, settings, slog.Default(), opts...)

	if _, err := service.LoadAll(ctx); err != nil {
		return err
	}

	scheduler := game.NewScheduler(service, cfg.Game.SchedulerTick, slog.Default())
	go scheduler.Run(ctx)

	limiter := middleware.NewRateLimiter(ctx, middleware.RateLimitConfigFrom(cfg.RateLimit))
	routes := server.NewRoutes(service, hub, limiter, health, slog.Default())

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      cors.Middleware(routes.Setup()),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting",
			"port", cfg.Server.Port,
			"environment", cfg.Server.Environment,
			"storage", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("Server stopped")
	return nil
}

func loadCatalog(cfg config.CatalogConfig) (*catalog.Catalog, error) {
	if cfg.Path != "" {
		return catalog.Load(cfg.Path)
	}
	return catalog.Default()
}

// openStore picks the snapshot backend. The returned health handler pings the
// database when there is one.
func openStore(ctx context.Context, cfg *config.Config, codec *snapshot.Codec, rdb *redis.Client) (game.Store, *serverHandlers.HealthHandler, func(), error) {
	backend := string(cfg.Storage.Backend)
	noop := func() {}

	switch cfg.Storage.Backend {
	case config.StoragePostgres:
		db, err := database.Connect(ctx)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.RunMigrations(); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return game.NewRepository(db.DB, codec, slog.Default()), serverHandlers.NewHealthHandler(backend, db), func() { db.Close() }, nil

	case config.StorageSQLite:
		s, err := storage.OpenSQLite(cfg.Storage.Path, codec, slog.Default())
		if err != nil {
			return nil, nil, nil, err
		}
		return s, serverHandlers.NewHealthHandler(backend, nil), func() { s.Close() }, nil

	case config.StorageFile:
		s, err := storage.OpenFileStore(cfg.Storage.Path, codec)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, serverHandlers.NewHealthHandler(backend, nil), noop, nil

	case config.StorageRedis:
		if rdb == nil {
			return nil, nil, nil, fmt.Errorf("redis backend selected but redis is disabled")
		}
		return storage.NewRedisStore(rdb.Client, codec, slog.Default()), serverHandlers.NewHealthHandler(backend, nil), noop, nil

	default:
		return game.NewMemoryStore(codec), serverHandlers.NewHealthHandler(backend, nil), noop, nil
	}
}
