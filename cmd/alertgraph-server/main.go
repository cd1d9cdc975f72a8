package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/seclens/alertgraph/pkg/api"
	"github.com/seclens/alertgraph/pkg/auth"
	"github.com/seclens/alertgraph/pkg/config"
	"github.com/seclens/alertgraph/pkg/engine"
	"github.com/seclens/alertgraph/pkg/health"
	"github.com/seclens/alertgraph/pkg/logging"
	"github.com/seclens/alertgraph/pkg/metrics"
	"github.com/seclens/alertgraph/pkg/source"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	port := flag.Int("port", 0, "Override server port")
	flag.Parse()

	logger := logging.NewDefaultLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", logging.Error(err))
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := source.NewPGSource(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to connect to registry", logging.Error(err))
		os.Exit(1)
	}
	defer pg.Close()

	reg := metrics.DefaultRegistry()

	src := source.WithRetry(pg, source.RetryConfig{
		FetchTimeout: cfg.Database.FetchTimeout,
		Backoff:      cfg.Database.RetryBackoff,
		OnRetry:      reg.RecordUpstreamRetry,
		OnFailure:    reg.RecordUpstreamFailure,
	})

	validator, err := auth.NewTokenValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		logger.Error("failed to create token validator", logging.Error(err))
		os.Exit(1)
	}

	eng := engine.NewService(src, engine.Options{
		PivotCategories: cfg.Correlation.PivotCategories,
		ExpandWindow:    cfg.Correlation.ExpandWindow,
		MaxGap:          cfg.Correlation.MaxGap,
		QueryBudget:     cfg.Correlation.QueryBudget,
	}, logger.With(logging.Component("engine")), reg)

	sessions := engine.NewSessionRegistry(cfg.Correlation.SessionTTL)

	checker := health.NewHealthChecker()
	checker.RegisterLivenessCheck("server", health.SimpleCheck("server"))
	checker.RegisterReadinessCheck("database", health.DatabaseCheck(func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), cfg.Database.FetchTimeout)
		defer cancel()
		return pg.Ping(pingCtx)
	}))

	server := api.NewServer(eng, sessions, validator, checker,
		logger.With(logging.Component("api")), reg, cfg.Server)

	logger.Info("alertgraph server starting",
		logging.Int("port", cfg.Server.Port))
	if err := server.Start(ctx); err != nil {
		logger.Error("server exited with error", logging.Error(err))
		os.Exit(1)
	}
}
