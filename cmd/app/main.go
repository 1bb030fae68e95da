package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Domenick1991/tourbooking/api"
	"github.com/Domenick1991/tourbooking/config"
	bookingsapi "github.com/Domenick1991/tourbooking/internal/api/bookings_service_api"
	"github.com/Domenick1991/tourbooking/internal/bootstrap"
	"github.com/Domenick1991/tourbooking/internal/cache"
	"github.com/Domenick1991/tourbooking/internal/kafka"
	"github.com/Domenick1991/tourbooking/internal/logger"
	"github.com/Domenick1991/tourbooking/internal/pricing"
	"github.com/Domenick1991/tourbooking/internal/service/booking"
	"github.com/Domenick1991/tourbooking/internal/service/calendar"
	"github.com/Domenick1991/tourbooking/internal/service/vehicles"
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

	repos, err := bootstrap.OpenRepositories(ctx, cfg.Database, zl)
	if err != nil {
		zl.Fatal("open repositories", zap.Error(err))
	}
	defer repos.Close()

	var fleetCache vehicles.FleetCache
	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.FleetCacheTTL())
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		zl.Warn("redis unavailable, fleet cache disabled", zap.Error(err))
	} else {
		fleetCache = redisCache
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, zl)
	defer producer.Close()
	if err := producer.CheckConnection(ctx); err != nil {
		zl.Warn("kafka unavailable, booking events will be dropped", zap.Error(err))
	}

	vehicleService, err := bootstrap.NewVehicleService(cfg, repos, fleetCache, zl)
	if err != nil {
		zl.Fatal("build vehicle service", zap.Error(err))
	}

	calendarEngine := calendar.NewEngine(repos.Blackouts, vehicleService, calendar.Settings{
		LeadTime:         cfg.Availability.LeadTime(),
		HorizonDays:      cfg.Availability.HorizonDays,
		MinDurationHours: cfg.Availability.MinDurationHours,
		Location:         cfg.Location(),
	}, zl)

	coreService := booking.NewCoreService(repos.Bookings, pricing.NewFlatRate(cfg.Pricing), booking.Settings{
		NumberPrefix:         cfg.Booking.NumberPrefix,
		MaxDailyCapacity:     cfg.Booking.MaxDailyCapacity,
		CancellationDeadline: cfg.Booking.CancellationDeadline(),
		Location:             cfg.Location(),
		MinDurationHours:     cfg.Availability.MinDurationHours,
		MaxDurationHours:     cfg.Availability.MaxDurationHours,
		BookingTopic:         cfg.Kafka.BookingEventsTopic,
		NotificationsTopic:   cfg.Kafka.NotificationsTopic,
	}, zl,
		booking.WithProducer(producer),
		booking.WithDateGuard(calendarEngine),
	)
	bookingService := booking.NewBookingService(coreService, vehicleService, zl)

	// The memory store lives in this process, so its holds are swept here.
	if repos.InMemory {
		scheduler, err := bootstrap.StartHoldReaper(ctx, vehicleService, cfg.Worker.SweepInterval(), cfg.Booking.HoldTTL(), zl)
		if err != nil {
			zl.Fatal("start hold reaper", zap.Error(err))
		}
		defer func() { _ = scheduler.Shutdown() }()
	}

	handlers := api.Handlers{
		Availability: api.NewAvailabilityHandler(vehicleService, calendarEngine),
		Bookings:     api.NewBookingHandler(bookingService),
		Calendar:     api.NewCalendarHandler(vehicleService),
	}
	grpcServer := bookingsapi.NewServer(bookingService, vehicleService, zl)

	if err := bootstrap.Run(ctx, cfg, handlers, grpcServer, zl); err != nil {
		zl.Fatal("server error", zap.Error(err))
	}
}
