package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"gridledger/config"
	"gridledger/core"
	"gridledger/core/genesis"
	"gridledger/indexer"
	"gridledger/observability/logging"
	telemetry "gridledger/observability/otel"
	"gridledger/rpc"
	"gridledger/rpc/middleware"
	"gridledger/storage"
)

const serviceName = "gridledgerd"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a YAML genesis document (overrides config GenesisFile)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(logging.Options{
		Service:    serviceName,
		Env:        cfg.Logging.Env,
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, resolveGenesis(*genesisFlag, cfg), logger); err != nil {
		logger.Error("gridledgerd exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func resolveGenesis(flagValue string, cfg *config.Config) string {
	if trimmed := strings.TrimSpace(flagValue); trimmed != "" {
		return trimmed
	}
	if trimmed := strings.TrimSpace(cfg.GenesisFile); trimmed != "" {
		return cfg.ResolvePath(trimmed)
	}
	return ""
}

func run(ctx context.Context, cfg *config.Config, genesisPath string, logger *slog.Logger) error {
	if cfg.Telemetry.Endpoint != "" && (cfg.Telemetry.Traces || cfg.Telemetry.Metrics) {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName: serviceName,
			Environment: cfg.Logging.Env,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
			Metrics:     cfg.Telemetry.Metrics,
			Traces:      cfg.Telemetry.Traces,
			SampleRatio: cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("prepare data dir: %w", err)
	}
	db, err := storage.Open(cfg.Storage.Backend, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	proc := core.NewProcessor(db, core.Config{
		MaxDevicesPerUser: cfg.Engine.MaxDevicesPerUser,
		ScoringWorkers:    cfg.Engine.ScoringWorkers,
		PausedModules:     cfg.Engine.PausedModules,
	}, logger)

	// The indexer attaches before genesis so seed transitions reach history.
	var (
		ix      *indexer.Indexer
		history rpc.History
		hooks   []core.CommitHook
	)
	if cfg.Indexer.Driver != "" {
		ix, err = indexer.Open(cfg.Indexer.Driver, indexerDSN(cfg), logger)
		if err != nil {
			return err
		}
		defer ix.Close()
		hooks = append(hooks, ix.Hook())
	}

	if genesisPath != "" {
		spec, err := genesis.Load(genesisPath)
		if err != nil {
			return err
		}
		applied, err := genesis.Apply(ctx, proc, spec, hooks...)
		if err != nil {
			return err
		}
		if applied > 0 {
			logger.Info("genesis applied", slog.Int("transitions", applied), slog.String("path", genesisPath))
		}
	}

	seq, err := core.NewSequencer(proc, nil)
	if err != nil {
		return err
	}
	logger.Info("ledger ready", slog.Uint64("height", seq.Height()), slog.String("backend", cfg.Storage.Backend))

	for _, hook := range hooks {
		seq.OnCommit(hook)
	}
	if ix != nil {
		if last, err := ix.LastSeq(ctx); err == nil && last < seq.Height() {
			logger.Warn("indexer is behind the ledger; history before restart is incomplete",
				slog.Uint64("indexed", last), slog.Uint64("height", seq.Height()))
		}
		history = ix
	}

	server := rpc.New(seq, history, rpc.Config{
		Auth: middleware.AuthConfig{
			HMACSecret:    cfg.Auth.Secret(),
			Issuer:        cfg.Auth.Issuer,
			Audience:      cfg.Auth.Audience,
			AllowUnsigned: cfg.Auth.AllowUnsigned,
		},
		RateLimit: middleware.RateLimit{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
		MaxBodyBytes: cfg.RPC.MaxBodyBytes,
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.RPC.ListenAddress,
		Handler:           otelhttp.NewHandler(server.Handler(), serviceName),
		ReadHeaderTimeout: seconds(cfg.RPC.ReadHeaderTimeout),
		ReadTimeout:       seconds(cfg.RPC.ReadTimeout),
		WriteTimeout:      seconds(cfg.RPC.WriteTimeout),
		IdleTimeout:       seconds(cfg.RPC.IdleTimeout),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("rpc listening", slog.String("addr", cfg.RPC.ListenAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// indexerDSN anchors a relative sqlite file under DataDir.
func indexerDSN(cfg *config.Config) string {
	if strings.EqualFold(cfg.Indexer.Driver, "sqlite") && !strings.HasPrefix(cfg.Indexer.DSN, "file:") {
		return cfg.ResolvePath(cfg.Indexer.DSN)
	}
	return cfg.Indexer.DSN
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
