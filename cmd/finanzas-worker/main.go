package main

import (
	"context"
	"os"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/backend"
	"finanzas/internal/cli"
	"finanzas/internal/log"
	"finanzas/internal/services"
	"finanzas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

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
	defer store.Close()

	// Reports are always computed fresh, so view caching stays off.
	svc := services.New(store.Reader, nil, services.Config{
		Location:         cfg.Location(),
		WarningThreshold: cfg.BudgetWarningThreshold,
	}, nil, logger)

	var consumer worker.Consumer
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
			os.Exit(1)
		}
		defer amqpClient.Close()
		consumer = amqpClient
	} else {
		logger.Info("AMQP_URL not set, running periodic sweeps only")
	}

	alerts := worker.NewAlertWorker(svc.Budgets, worker.Config{SweepInterval: cfg.AlertSweepInterval}, logger)

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, nil)

	cli.PrintBanner(os.Stdout, cli.BannerInfo{
		Service: "alert worker",
		Backend: string(store.Type),
		AMQP:    consumer != nil,
		Zone:    cfg.Location().String(),
	})
	logger.Info("Starting finanzas-worker",
		log.FieldOperation, log.OpStartup,
		log.FieldBackend, store.Type.String(),
		"sweep_interval", cfg.AlertSweepInterval.String())

	if err := alerts.Run(ctx, consumer); err != nil {
		logger.Error("Alert worker failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
