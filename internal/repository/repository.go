package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/tourbooking/internal/domain"
)

// BlockRepository is the interval store. CreateHold must never let two
// HOLD/BOOKING blocks of the same vehicle and date overlap, regardless of
// how concurrent writers interleave.
type BlockRepository interface {
	CreateHold(ctx context.Context, req domain.HoldRequest) (*domain.AvailabilityBlock, error)
	CreateBlock(ctx context.Context, req domain.HoldRequest, blockType domain.BlockType) (*domain.AvailabilityBlock, error)
	ConvertToBooking(ctx context.Context, blockID, bookingID int64) error
	Delete(ctx context.Context, blockID int64) error
	DeleteBookingBlocks(ctx context.Context, bookingID int64) (int64, error)
	QueryOverlaps(ctx context.Context, vehicleID int64, date time.Time, start, end domain.ClockTime) ([]domain.AvailabilityBlock, error)
	ListForDate(ctx context.Context, date time.Time, vehicleIDs []int64) ([]domain.AvailabilityBlock, error)
	ListInRange(ctx context.Context, from, to time.Time, vehicleID *int64) ([]domain.AvailabilityBlock, error)
	ExpireHolds(ctx context.Context, createdBefore time.Time) ([]domain.AvailabilityBlock, error)
}

type VehicleRepository interface {
	ListActive(ctx context.Context, scopeID *int64) ([]domain.Vehicle, error)
	GetByID(ctx context.Context, id int64) (*domain.Vehicle, error)
}

// BookingRepository persists bookings. Create and CreateWithinCapacity each
// run in one transaction: resolve-or-create the customer, allocate the next
// booking number, insert the booking.
type BookingRepository interface {
	Create(ctx context.Context, customer domain.Customer, booking *domain.Booking, numberPrefix string) error
	CreateWithinCapacity(ctx context.Context, customer domain.Customer, booking *domain.Booking, numberPrefix string, maxCapacity int) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id int64, from, to domain.BookingStatus, reason string) (*domain.Booking, error)
	CommittedPartySize(ctx context.Context, date time.Time) (int, error)
}

type BlackoutRepository interface {
	ListActive(ctx context.Context, from, to time.Time, scopeID *int64) ([]domain.BlackoutDate, error)
}
