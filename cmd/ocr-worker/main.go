package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Lllllllleong/documentworkers/internal/app"
	"github.com/Lllllllleong/documentworkers/internal/broker/rabbitmq"
	"github.com/Lllllllleong/documentworkers/internal/config"
	"github.com/Lllllllleong/documentworkers/internal/metrics"
	"github.com/Lllllllleong/documentworkers/internal/models"
	"github.com/Lllllllleong/documentworkers/internal/services"
	"github.com/Lllllllleong/documentworkers/internal/worker"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load("extract")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	app.SetupLogging(cfg.Log)

	if err := run(cfg); err != nil {
		slog.Error("OCR worker stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("OCR worker stopped.")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers app.Closers
	defer closers.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if cfg.Metrics.Addr != "" {
		go metrics.Serve(ctx, cfg.Metrics.Addr, reg)
	}

	store, err := app.NewObjectStore(ctx, cfg, &closers)
	if err != nil {
		return err
	}
	tracker, err := app.NewStatusTracker(ctx, cfg, &closers)
	if err != nil {
		return err
	}
	processor, err := app.NewOCRProcessor(cfg, store, m)
	if err != nil {
		return err
	}

	broker, err := rabbitmq.Dial(cfg.RabbitMQ)
	if err != nil {
		return err
	}
	closers.Add(broker.Close)
	if err := broker.Consume(cfg.Worker.Name + "-" + uuid.NewString()[:8]); err != nil {
		return err
	}

	handler := worker.NewHandler[models.ProcessingRequest](broker, processor.Process, worker.Options{
		Worker:        cfg.Worker.Name,
		DescribeError: services.FailureMessage,
		Tracker:       tracker,
		Metrics:       m,
	})
	slog.Info("OCR worker started.", "queue", cfg.RabbitMQ.Queue, "storage", cfg.Storage.Provider)
	return handler.Run(ctx)
}
