package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Domenick1991/tourbooking/config"
	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/repository"
	"github.com/Domenick1991/tourbooking/internal/repository/memory"
	"github.com/Domenick1991/tourbooking/internal/service/vehicles"
)

type Repositories struct {
	Blocks    repository.BlockRepository
	Vehicles  repository.VehicleRepository
	Bookings  repository.BookingRepository
	Blackouts repository.BlackoutRepository
	InMemory  bool
	close     func()
}

func (r *Repositories) Close() {
	if r.close != nil {
		r.close()
	}
}

// OpenRepositories connects the configured store. The memory driver starts
// with a small demo fleet so a local process is usable without a database.
func OpenRepositories(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Repositories, error) {
	if cfg.Driver == "memory" {
		store := memory.NewStore()
		for _, v := range demoFleet() {
			store.AddVehicle(v)
		}
		logger.Warn("using in-memory store, data is lost on exit")
		return &Repositories{
			Blocks:    store.BlockRepo(),
			Vehicles:  store.VehicleRepo(),
			Bookings:  store.BookingRepo(),
			Blackouts: store.BlackoutRepo(),
			InMemory:  true,
		}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if cfg.Migrate {
		if err := repository.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("database schema applied")
	}
	return &Repositories{
		Blocks:    repository.NewBlockRepository(pool),
		Vehicles:  repository.NewVehicleRepository(pool),
		Bookings:  repository.NewBookingRepository(pool),
		Blackouts: repository.NewBlackoutRepository(pool),
		close:     pool.Close,
	}, nil
}

func demoFleet() []domain.Vehicle {
	return []domain.Vehicle{
		{Name: "Sprinter 1", Type: "van", Capacity: 12, Status: domain.VehicleStatusActive},
		{Name: "Sprinter 2", Type: "van", Capacity: 12, Status: domain.VehicleStatusActive},
		{Name: "Transit", Type: "van", Capacity: 8, Status: domain.VehicleStatusActive},
		{Name: "Coach", Type: "bus", Capacity: 24, Status: domain.VehicleStatusActive},
	}
}

// NewVehicleService applies the availability section of the config.
func NewVehicleService(cfg *config.Config, repos *Repositories, cache vehicles.FleetCache, logger *zap.Logger) (*vehicles.VehicleService, error) {
	a := cfg.Availability
	opening, err := domain.ParseClockTime(a.OpeningTime)
	if err != nil {
		return nil, fmt.Errorf("availability.opening_time: %w", err)
	}
	closing, err := domain.ParseClockTime(a.ClosingTime)
	if err != nil {
		return nil, fmt.Errorf("availability.closing_time: %w", err)
	}
	ranking, err := vehicles.RankingPolicyByName(a.RankingPolicy)
	if err != nil {
		return nil, err
	}

	opts := []vehicles.VehicleServiceOption{
		vehicles.WithOperatingHours(opening, closing, a.SlotMinutes),
		vehicles.WithBuffer(time.Duration(a.BufferMinutes) * time.Minute),
		vehicles.WithRanking(ranking),
	}
	if cache != nil {
		opts = append(opts, vehicles.WithFleetCache(cache))
	}
	return vehicles.NewVehicleService(repos.Blocks, repos.Vehicles, logger, opts...), nil
}
