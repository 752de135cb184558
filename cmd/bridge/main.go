package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/xuanhao97/intergrate-gitlab-lark/internal/config"
	"github.com/xuanhao97/intergrate-gitlab-lark/internal/health"
	"github.com/xuanhao97/intergrate-gitlab-lark/internal/lark"
	"github.com/xuanhao97/intergrate-gitlab-lark/internal/metrics"
	"github.com/xuanhao97/intergrate-gitlab-lark/internal/server"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Bool("verification_configured", cfg.VerificationConfigured()).
		Bool("default_destination", cfg.DefaultDestinationConfigured()).
		Msg("starting gitlab-lark bridge")

	if cfg.AllowUnverified {
		logger.Warn().Msg("ALLOW_UNVERIFIED is enabled — inbound webhooks are not authenticated")
	}

	client := lark.NewClient(cfg.DeliveryTimeout, logger)

	checker := health.NewChecker(logger)
	checker.Register("config", func(ctx context.Context) health.Status {
		// Readiness never fails outright: a missing default destination only
		// degrades, since requests may carry their own X-Lark-Url.
		if !cfg.DefaultDestinationConfigured() {
			return health.StatusDegraded
		}
		return health.StatusOK
	})

	srv := server.New(server.Config{
		ListenAddr: cfg.ListenAddr,
		Verifier: server.VerifierConfig{
			Secret:          cfg.GitlabWebhookSecret,
			AllowUnverified: cfg.AllowUnverified,
		},
		ProtectedBranches: cfg.ProtectedBranchList(),
		DefaultDestination: lark.Destination{
			URL:    cfg.LarkWebhookURL,
			Secret: cfg.LarkWebhookSecret,
		},
		RateLimit: server.RateLimitConfig{RPS: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
		BodyLimit: cfg.MaxBodyBytes,
	}, client, checker, metrics.New(), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		if err := srv.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
		}
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("server error")
		}
	}

	logger.Info().Msg("bridge stopped")
}
