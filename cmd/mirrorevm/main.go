package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"mirrorevm/config"
	"mirrorevm/core"
	"mirrorevm/core/estimate"
	"mirrorevm/core/evm"
	"mirrorevm/core/precompile"
	"mirrorevm/core/state"
	"mirrorevm/core/types"
	"mirrorevm/observability/logging"
	telemetry "mirrorevm/observability/otel"
	"mirrorevm/rpc"
	"mirrorevm/storage"
)

func main() {
	var cfgPath string
	var migrate bool
	flag.StringVar(&cfgPath, "config", "mirrorevm.toml", "path to configuration (.toml, .yaml or .yml)")
	flag.BoolVar(&migrate, "migrate", false, "create missing mirror tables before serving (always on for sqlite)")
	flag.Parse()

	if err := run(cfgPath, migrate); err != nil {
		slog.Error("mirrorevm exited", "error", err)
		os.Exit(1)
	}
}

func run(cfgPath string, migrate bool) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	env := cfg.Environment
	if override := strings.TrimSpace(os.Getenv("MIRROREVM_ENV")); override != "" {
		env = override
	}
	logger := logging.Setup("mirrorevm", env,
		logging.WithLevel(logging.ParseLevel(cfg.LogLevel)),
		logging.WithFile(cfg.LogFile))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetryConfig(cfg, env))
	if err != nil {
		return fmt.Errorf("initialise telemetry: %w", err)
	}
	defer func() {
		_ = shutdownTelemetry(context.Background())
	}()

	store, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN, storage.Options{
		QueryTimeout: cfg.Database.QueryTimeout,
		Migrate:      migrate || cfg.Database.Driver == storage.DriverSQLite,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return fmt.Errorf("open mirror database: %w", err)
	}
	defer store.Close()

	svcCfg, err := serviceConfig(cfg)
	if err != nil {
		return err
	}
	svc, err := core.NewService(store, svcCfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	logger.Info("mirrorevm starting",
		"driver", cfg.Database.Driver,
		"mode", string(svcCfg.EVM.Mode),
		"chain_id", cfg.EVM.ChainID,
		"workers", svcCfg.Workers)

	server := rpc.NewServer(svc, rpc.ServerConfig{
		RateLimit: rpc.RateLimit{
			RequestsPerMinute: float64(cfg.RateLimit.RequestsPerMinute),
			Burst:             cfg.RateLimit.Burst,
		},
		RequestTimeout: cfg.Database.QueryTimeout * 6,
	}, logger.With("component", "rpc"))
	return server.Serve(ctx, cfg.ListenAddress, cfg.ShutdownGrace)
}

// serviceConfig maps validated configuration onto the execution components.
func serviceConfig(cfg *config.Config) (core.Config, error) {
	mode, err := types.ParseExecutionMode(cfg.EVM.Mode)
	if err != nil {
		return core.Config{}, err
	}
	return core.Config{
		State: state.Config{
			Shard:    cfg.EVM.Shard,
			Realm:    cfg.EVM.Realm,
			GasLimit: cfg.EVM.BlockGasLimit,
			LedgerID: cfg.EVM.LedgerID,
		},
		EVM: evm.Config{
			ChainID:     cfg.EVM.ChainID,
			Mode:        mode,
			MaxGasLimit: cfg.EVM.MaxGasLimit,
			ExchangeRate: precompile.ExchangeRate{
				CentEquivalent: cfg.EVM.ExchangeRate.CentEquivalent,
				HbarEquivalent: cfg.EVM.ExchangeRate.HbarEquivalent,
			},
		},
		Estimate: estimate.Config{
			IterationThreshold: cfg.Estimate.IterationThreshold,
			MaxIterations:      cfg.Estimate.MaxIterations,
			TolerancePercent:   cfg.Estimate.TolerancePercent,
		},
		Workers:   cfg.Workers,
		QueueSize: cfg.Workers * 64,
	}, nil
}

// telemetryConfig layers the standard OTEL_EXPORTER_OTLP_* variables over
// the configured exporter settings and tags the resource with the network
// being served.
func telemetryConfig(cfg *config.Config, env string) telemetry.Config {
	out := telemetry.Config{
		ServiceName:   "mirrorevm",
		Environment:   env,
		LedgerID:      cfg.EVM.LedgerID,
		ChainID:       cfg.EVM.ChainID,
		ExecutionMode: cfg.EVM.Mode,
		Endpoint:      cfg.Telemetry.Endpoint,
		Insecure:      cfg.Telemetry.Insecure,
		Headers:       cfg.Telemetry.Headers,
		Traces:        cfg.Telemetry.Traces,
		Metrics:       cfg.Telemetry.Metrics,
		SampleRatio:   cfg.Telemetry.SampleRatio,
	}
	if endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); endpoint != "" {
		out.Endpoint = endpoint
	}
	if headers := telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")); len(headers) > 0 {
		out.Headers = headers
	}
	return out
}
