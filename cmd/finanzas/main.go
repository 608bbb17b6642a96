package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/backend"
	"finanzas/internal/cache"
	"finanzas/internal/cli"
	apphttp "finanzas/internal/http"
	"finanzas/internal/log"
	"finanzas/internal/rates"
	"finanzas/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err.Error(), log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	rateClient := rates.New(rates.Config{URL: cfg.RateAPIURL, CacheTTL: cfg.RateCacheTTL}, logger)
	svc := services.New(store.Reader, store.Writer, services.Config{
		Location:         cfg.Location(),
		WarningThreshold: cfg.BudgetWarningThreshold,
		CacheSize:        cfg.CacheSize,
		CacheTTL:         cfg.CacheTTL,
	}, rateClient, logger)

	caches := cache.NewManager(logger)
	caches.Register(svc.Cleaners()...)
	caches.Register(rateClient.Cache())

	// Change events are optional: without a broker the in-process feed still
	// invalidates the view caches.
	var (
		amqpClient *amqp.Client
		unbridge   = func() {}
	)
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, change events disabled", log.FieldError, err.Error())
			amqpClient = nil
		} else {
			unbridge = services.BridgeToAMQP(svc.Feed, amqpClient, logger)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Location:       cfg.Location(),
		Ready:          store.Ping,
		WriteRateLimit: cfg.WriteRateLimit,
		Rates:          rateClient,
		Logger:         logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		caches.Stop()
		unbridge()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err.Error())
			}
		}
		if err := store.Close(); err != nil {
			logger.Warn("Backend close error", log.FieldError, err.Error())
		}
	})
	caches.Start(ctx, time.Minute)

	cli.PrintBanner(os.Stdout, cli.BannerInfo{
		Service: "api",
		Backend: string(store.Type),
		Address: srv.Addr,
		AMQP:    amqpClient != nil,
		Zone:    cfg.Location().String(),
	})
	logger.Info("Starting finanzas server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		log.FieldBackend, store.Type.String(),
		"read_only", store.ReadOnly())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
