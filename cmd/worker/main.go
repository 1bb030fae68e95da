package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Domenick1991/tourbooking/config"
	"github.com/Domenick1991/tourbooking/internal/bootstrap"
	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/email"
	"github.com/Domenick1991/tourbooking/internal/kafka"
	"github.com/Domenick1991/tourbooking/internal/logger"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Database.Driver == "memory" {
		zl.Fatal("worker needs a shared database; the memory driver sweeps holds inside the app process")
	}
	repos, err := bootstrap.OpenRepositories(ctx, cfg.Database, zl)
	if err != nil {
		zl.Fatal("open repositories", zap.Error(err))
	}
	defer repos.Close()

	vehicleService, err := bootstrap.NewVehicleService(cfg, repos, nil, zl)
	if err != nil {
		zl.Fatal("build vehicle service", zap.Error(err))
	}
	scheduler, err := bootstrap.StartHoldReaper(ctx, vehicleService, cfg.Worker.SweepInterval(), cfg.Booking.HoldTTL(), zl)
	if err != nil {
		zl.Fatal("start hold reaper", zap.Error(err))
	}
	defer func() { _ = scheduler.Shutdown() }()

	sender, err := email.NewSender(cfg.Email, zl)
	if err != nil {
		zl.Fatal("init email sender", zap.Error(err))
	}

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, zl)
	defer consumer.Close()

	zl.Info("worker started", zap.String("topic", cfg.Kafka.NotificationsTopic))
	err = consumer.Consume(ctx, func(ctx context.Context, event domain.BookingEvent) error {
		if err := sender.Send(ctx, event); err != nil {
			// A lost email must not stall the partition.
			zl.Error("notification failed", zap.Int64("booking_id", event.BookingID), zap.String("type", event.Type), zap.Error(err))
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		zl.Error("consumer stopped", zap.Error(err))
	}
	zl.Info("worker shutting down")
}
