package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/matchscope/team-identity/external/teamfeed"
	"github.com/matchscope/team-identity/internal/config"
	"github.com/matchscope/team-identity/internal/domain/mapping"
	"github.com/matchscope/team-identity/internal/infrastructure/repository/file"
	"github.com/matchscope/team-identity/internal/infrastructure/repository/memory"
	"github.com/matchscope/team-identity/internal/infrastructure/repository/postgres"
	"github.com/matchscope/team-identity/internal/observability"
	"github.com/matchscope/team-identity/internal/platform/logging"
	"github.com/matchscope/team-identity/internal/platform/resilience"
	"github.com/matchscope/team-identity/internal/usecase"
)

func main() {
	once := flag.Bool("once", false, "run a single sync cycle and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)

	if err := run(cfg, logger, *once); err != nil {
		logger.Error("syncd failed", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(cfg config.Config, logger *logging.Logger, once bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		return fmt.Errorf("init uptrace: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("tracing shutdown failed", "error", err)
		}
	}()

	stopProfiler, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		return fmt.Errorf("init pyroscope: %w", err)
	}
	defer func() {
		if err := stopProfiler(); err != nil {
			logger.Error("profiler shutdown failed", "error", err)
		}
	}()

	pprofSrv, err := observability.StartPprofServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("start pprof: %w", err)
	}
	defer func() {
		if err := observability.StopPprofServer(pprofSrv, logger, 5*time.Second); err != nil {
			logger.Error("pprof shutdown failed", "error", err)
		}
	}()

	store, cleanup, err := buildStore(cfg)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}
	defer cleanup()

	var checkpoint usecase.Checkpoint
	if cfg.CheckpointPath != "" {
		cp, err := file.NewCheckpoint(cfg.CheckpointPath)
		if err != nil {
			return fmt.Errorf("open checkpoint: %w", err)
		}
		checkpoint = cp
	}

	feed, err := teamfeed.NewClient(teamfeed.ClientConfig{
		BaseURL:    cfg.TeamFeedBaseURL,
		APIKey:     cfg.TeamFeedAPIKey,
		Timeout:    cfg.TeamFeedTimeout,
		MaxRetries: cfg.TeamFeedMaxRetries,
		Logger:     logger,
		Breaker: resilience.BreakerConfig{
			Enabled:          cfg.TeamFeedCircuitEnabled,
			FailureThreshold: cfg.TeamFeedCircuitFailureCount,
			OpenTimeout:      cfg.TeamFeedCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.TeamFeedCircuitHalfOpenMaxReq,
		},
	})
	if err != nil {
		return fmt.Errorf("build team feed client: %w", err)
	}

	resolver, err := usecase.NewResolverService(usecase.ResolverConfig{
		AutoVerifyThreshold: cfg.AutoVerifyThreshold,
		AcceptThreshold:     cfg.AcceptThreshold,
		ReviewThreshold:     cfg.ReviewThreshold,
		AmbiguityMargin:     cfg.AmbiguityMargin,
		AllowCrossCountry:   cfg.AllowCrossCountry,
	}, logger)
	if err != nil {
		return fmt.Errorf("build resolver: %w", err)
	}

	syncSvc, err := usecase.NewSyncService(usecase.SyncConfig{
		MaxWorkers:  cfg.SyncMaxWorkers,
		VerifyAfter: cfg.VerifyAfter,
	}, feed, store, resolver, checkpoint, nil, logger)
	if err != nil {
		return fmt.Errorf("build sync service: %w", err)
	}

	lookupSvc, err := usecase.NewLookupService(store, cfg.AcceptThreshold, logger)
	if err != nil {
		return fmt.Errorf("build lookup service: %w", err)
	}

	logger.Info("syncd starting",
		"env", cfg.AppEnv,
		"store_backend", cfg.StoreBackend,
		"sync_interval", cfg.SyncInterval,
		"once", once,
	)

	runCycle(ctx, syncSvc, lookupSvc, store, logger)
	if once {
		return nil
	}

	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("syncd stopping")
			return nil
		case <-ticker.C:
			runCycle(ctx, syncSvc, lookupSvc, store, logger)
		}
	}
}

func runCycle(
	ctx context.Context,
	syncSvc *usecase.SyncService,
	lookupSvc *usecase.LookupService,
	store mapping.Store,
	logger *logging.Logger,
) {
	started := time.Now()
	reports, err := syncSvc.SyncAll(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "sync cycle failed", "error", err)
		return
	}
	lookupSvc.InvalidateCache()

	var processed, failed int
	for _, r := range reports {
		processed += r.Processed
		if r.Failed {
			failed++
			logger.WarnContext(ctx, "partition failed",
				"country", r.Country, "error", r.Err)
		}
	}

	fields := []any{
		"partitions", len(reports),
		"failed_partitions", failed,
		"teams_processed", processed,
		"duration", time.Since(started),
	}
	if stats, err := lookupSvc.Stats(ctx); err == nil {
		fields = append(fields,
			"mappings_total", stats.Total,
			"mappings_both_sources", stats.BothSources,
			"mappings_verified", stats.Verified,
		)
	}
	logger.InfoContext(ctx, "sync cycle finished", fields...)

	if f, ok := store.(mapping.Flusher); ok {
		if err := f.Flush(ctx); err != nil {
			logger.ErrorContext(ctx, "store flush failed", "error", err)
		}
	}
}

// buildStore constructs the mapping store for the configured backend. The
// returned cleanup closes backend resources; it is safe to call once.
func buildStore(cfg config.Config) (mapping.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		store, err := memory.NewMappingRepository(nil)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil

	case config.StoreFile:
		store, err := file.NewMappingRepository(cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil

	case config.StorePostgres:
		db, err := sqlx.Connect("postgres", cfg.DBURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return postgres.NewMappingRepository(db), func() { _ = db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
