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

	"go.uber.org/zap"

	"github.com/nortia-io/ordersync/pkg/apperrors"
	"github.com/nortia-io/ordersync/pkg/config"
	"github.com/nortia-io/ordersync/pkg/database"
	"github.com/nortia-io/ordersync/pkg/etl"
	"github.com/nortia-io/ordersync/pkg/logging"
	"github.com/nortia-io/ordersync/pkg/metrics"
	"github.com/nortia-io/ordersync/pkg/reports"
	"github.com/nortia-io/ordersync/pkg/repositories"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	cmd := "run-once"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "run":
		err = runContinuous(ctx, cfg, logger)
	case "run-once":
		err = runOnce(ctx, cfg, logger)
	case "report":
		err = runReports(ctx, cfg, logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\nusage: ordersync [run|run-once|report]\n", cmd)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("Command failed", zap.String("command", cmd), zap.Error(err))
		os.Exit(1)
	}
}

// pipeline holds everything a synchronization command needs, plus the
// connections to release when it finishes.
type pipeline struct {
	orch    *etl.Orchestrator
	metrics *metrics.Registry
	source  *database.DB
	target  *database.DB
}

func (p *pipeline) close() {
	p.source.Close()
	p.target.Close()
}

func buildPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pipeline, error) {
	logger.Info("Connecting to source store",
		zap.String("dsn", logging.SanitizeConnectionString(cfg.Source.ConnectionString())))
	source, err := database.Connect(ctx, &database.Config{
		URL:            cfg.Source.ConnectionString(),
		MaxConnections: cfg.Source.MaxConnections,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to source store: %w", err)
	}

	logger.Info("Connecting to target store",
		zap.String("dsn", logging.SanitizeConnectionString(cfg.Target.ConnectionString())))
	target, err := database.Connect(ctx, &database.Config{
		URL:            cfg.Target.ConnectionString(),
		MaxConnections: cfg.Target.MaxConnections,
	}, logger)
	if err != nil {
		source.Close()
		return nil, fmt.Errorf("connecting to target store: %w", err)
	}

	sourceRepo := repositories.NewSourceRepository(source)
	analyticsRepo := repositories.NewAnalyticsRepository(target, cfg.Pipeline.BatchSize)
	watermarks := repositories.NewWatermarkRepository(target)

	loader := etl.NewLoader(analyticsRepo, cfg.Target.ConnectionString(), cfg.Pipeline.MigrationsPath, logger)
	if err := loader.EnsureSchema(ctx); err != nil {
		source.Close()
		target.Close()
		return nil, fmt.Errorf("ensuring analytics schema: %w", err)
	}

	reg := metrics.NewRegistry()
	orch := etl.NewOrchestrator(
		etl.NewExtractor(sourceRepo, logger),
		etl.NewTransformer(),
		loader,
		watermarks,
		reg,
		logger,
	)

	return &pipeline{orch: orch, metrics: reg, source: source, target: target}, nil
}

func runOnce(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	p, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.close()

	return p.orch.RunOnce(ctx)
}

func runContinuous(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	p, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.close()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, p.metrics, logger)
	}

	return p.orch.RunContinuous(ctx, cfg.Pipeline.PollingInterval())
}

func serveMetrics(addr string, reg *metrics.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())

	logger.Info("Serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics listener failed", zap.Error(err))
	}
}

func runReports(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Connecting to target store",
		zap.String("dsn", logging.SanitizeConnectionString(cfg.Target.ConnectionString())))
	target, err := database.Connect(ctx, &database.Config{
		URL:            cfg.Target.ConnectionString(),
		MaxConnections: cfg.Target.MaxConnections,
	}, logger)
	if err != nil {
		return fmt.Errorf("connecting to target store: %w", err)
	}
	defer target.Close()

	analyticsRepo := repositories.NewAnalyticsRepository(target, cfg.Pipeline.BatchSize)
	exporter := reports.NewExporter(analyticsRepo, cfg.Reports.OutputDirectory, logger)

	if err := exporter.ExportAll(ctx); err != nil {
		if errors.Is(err, apperrors.ErrConnectivity) {
			return fmt.Errorf("analytical store unavailable: %w", err)
		}
		return err
	}
	return nil
}
