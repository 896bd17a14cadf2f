package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/af-corp/taskrouter/internal/catalog"
	"github.com/af-corp/taskrouter/internal/classifier"
	"github.com/af-corp/taskrouter/internal/config"
	"github.com/af-corp/taskrouter/internal/gateway"
	"github.com/af-corp/taskrouter/internal/health"
	"github.com/af-corp/taskrouter/internal/policy"
	"github.com/af-corp/taskrouter/internal/ratelimit"
	"github.com/af-corp/taskrouter/internal/router"
	"github.com/af-corp/taskrouter/internal/router/adapters"
	"github.com/af-corp/taskrouter/internal/stats"
	"github.com/af-corp/taskrouter/internal/telemetry"
)

var version = "dev"

func main() {
	configDir := flag.String("config", "configs", "path to configuration directory")
	envFile := flag.String("env", ".env", "optional dotenv file loaded before config expansion")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to load env file", "file", *envFile, "error", err)
	}

	loader := config.NewLoader(*configDir, logger)
	if err := loader.Load(); err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	cfg := loader.Config()
	logger = telemetry.NewLogger(os.Stdout, cfg.Telemetry.LogLevel, cfg.Telemetry.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, loader, logger); err != nil {
		logger.Error("gateway exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("gateway stopped")
}

func run(ctx context.Context, loader *config.Loader, logger *slog.Logger) error {
	cfg := loader.Config()

	reg := telemetry.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	// Catalog source
	var db *sql.DB
	var src catalog.Source = catalog.NewFileSource(loader.Catalog)
	if cfg.Routing.CatalogSource == config.CatalogSourcePostgres {
		var err error
		db, err = catalog.OpenPostgres(cfg.Database.DSN())
		if err != nil {
			return err
		}
		defer db.Close()
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
		src = catalog.NewPostgresSource(db)
	}

	cat, err := catalog.Build(ctx, src)
	if err != nil {
		return fmt.Errorf("build catalog: %w", err)
	}
	logger.Info("catalog loaded", "source", cfg.Routing.CatalogSource, "providers", len(cat.Providers()), "categories", len(cat.Categories()))

	dispatcher, err := adapters.BuildFromConfig(ctx, loader.Providers())
	if err != nil {
		return fmt.Errorf("build executors: %w", err)
	}
	for _, id := range cat.Providers() {
		if _, ok := dispatcher.Get(id); !ok {
			logger.Warn("catalog provider has no executor, attempts will fail", "provider", id)
		}
	}

	breakers := router.NewBreakerRegistry(
		cfg.Routing.CircuitBreaker.FailureThreshold,
		cfg.Routing.CircuitBreaker.OpenTimeout,
		router.WithTransitionHook(func(id string, from, to router.CircuitState) {
			level := slog.LevelInfo
			if to == router.StateOpen {
				level = slog.LevelWarn
			}
			logger.Log(context.Background(), level, "circuit breaker transition", "provider", id, "from", from.String(), "to", to.String())
			metrics.RecordBreakerTransition(id, from.String(), to.String(), int(to))
		}),
	)

	var filter router.CandidateFilter
	var evaluator *policy.Evaluator
	if cfg.Policy.Enabled {
		evaluator = policy.NewEvaluator(func() config.PolicyConfig { return loader.Config().Policy })
		if err := evaluator.Load(); err != nil {
			return fmt.Errorf("load routing policy: %w", err)
		}
		filter = evaluator
	}

	catCfg := loader.Catalog()
	rt, err := router.New(router.Options{
		Catalog:        cat,
		Classifier:     classifier.New(catCfg.KeywordTable(), catCfg.Default()),
		Breakers:       breakers,
		Stats:          stats.NewCollector(cfg.Routing.Metrics.Window, cfg.Routing.Metrics.BucketSize),
		Filter:         filter,
		Metrics:        metrics,
		DefaultTimeout: cfg.Routing.DefaultTimeout,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	// Reloads swap in a new catalog and executor set; breaker and metrics
	// state carry over.
	loader.OnReload(func() {
		reloadCtx := context.Background()
		if next, err := catalog.Build(reloadCtx, src); err != nil {
			logger.Error("catalog reload failed, keeping previous catalog", "error", err)
		} else {
			rt.SetCatalog(next)
		}
		c := loader.Catalog()
		rt.SetClassifier(classifier.New(c.KeywordTable(), c.Default()))
		if next, err := adapters.BuildFromConfig(reloadCtx, loader.Providers()); err != nil {
			logger.Error("executor reload failed, keeping previous executors", "error", err)
		} else {
			dispatcher.Replace(next)
		}
		if evaluator != nil {
			if err := evaluator.Load(); err != nil {
				logger.Error("policy reload failed, keeping previous policy", "error", err)
			}
		}
		logger.Info("routing configuration reloaded")
	})
	if err := loader.Watch(); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	// Connect to Redis
	var rdb *redis.Client
	if len(cfg.Redis.Addresses) > 0 && cfg.Redis.Addresses[0] != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addresses[0],
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis not reachable (tenant limits disabled)", "error", err)
			rdb = nil
		} else {
			logger.Info("redis connected")
		}
	}
	budget := ratelimit.NewBudgetTracker(rdb)
	limits := ratelimit.Middleware(ratelimit.NewLimiter(rdb), budget,
		func() config.LimitsConfig { return loader.Config().Limits }, metrics)

	handler := gateway.NewHandler(rt, dispatcher, budget, version)
	mux := gateway.NewRouter(handler, limits)
	mux.Handle(cfg.Telemetry.MetricsPath, telemetry.Handler(reg))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// gRPC health
	grpcAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen grpc %s: %w", grpcAddr, err)
	}
	grpcSrv := grpc.NewServer()
	healthSrv := grpchealth.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)

	g, gctx := errgroup.WithContext(ctx)

	reporter := health.NewReporter(healthSrv, rt, metrics)
	if err := reporter.Start(gctx, cfg.Routing.HealthSyncSchedule); err != nil {
		lis.Close()
		return err
	}

	g.Go(func() error {
		logger.Info("gateway starting", "addr", addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("grpc health starting", "addr", grpcAddr)
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
		defer cancel()

		reporter.Stop()
		grpcSrv.GracefulStop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
