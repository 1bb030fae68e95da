package booking

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/service/vehicles"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	CancelBooking(ctx context.Context, id int64, reason string) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus, reason string) (*domain.Booking, error)
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
}

// VehicleAvailability is the part of the vehicle service the saga drives.
type VehicleAvailability interface {
	CheckAvailability(ctx context.Context, input vehicles.CheckInput) (*domain.Availability, error)
	CheckVehicleAvailability(ctx context.Context, vehicleID int64, date time.Time, start, end domain.ClockTime) (*domain.Availability, error)
	CreateHoldBlock(ctx context.Context, req domain.HoldRequest) (*domain.AvailabilityBlock, error)
	ConvertHoldToBooking(ctx context.Context, holdID, bookingID int64) error
	ReleaseHoldBlock(ctx context.Context, holdID int64) error
	DeleteBookingBlocks(ctx context.Context, bookingID int64) (int64, error)
}

type sagaState int

const (
	sagaStart sagaState = iota
	sagaChecking
	sagaHolding
	sagaPersisting
	sagaCommitted
	sagaFailedReleased
)

func (s sagaState) String() string {
	switch s {
	case sagaStart:
		return "START"
	case sagaChecking:
		return "CHECKING"
	case sagaHolding:
		return "HOLDING"
	case sagaPersisting:
		return "PERSISTING"
	case sagaCommitted:
		return "COMMITTED"
	case sagaFailedReleased:
		return "FAILED_RELEASED"
	}
	return fmt.Sprintf("sagaState(%d)", int(s))
}

type saga struct {
	state  sagaState
	logger *zap.Logger
}

func (sg *saga) advance(next sagaState) {
	sg.logger.Debug("booking saga", zap.Stringer("from", sg.state), zap.Stringer("state", next))
	sg.state = next
}

// BookingService coordinates the vehicle path (check, hold, persist,
// promote) and cancellation with vehicle release.
type BookingService struct {
	core     *CoreService
	vehicles VehicleAvailability
	logger   *zap.Logger
}

func NewBookingService(core *CoreService, availability VehicleAvailability, logger *zap.Logger) *BookingService {
	return &BookingService{core: core, vehicles: availability, logger: logger}
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if input.Mode == domain.BookingModeCapacity {
		return s.core.CreateCapacityBooking(ctx, input.Customer, input.Tour)
	}
	return s.CreateBookingWithAvailability(ctx, input.Customer, input.Tour)
}

// CreateBookingWithAvailability books one vehicle for the tour. Once the
// hold exists it is either promoted to a booking block or released before
// returning; nothing is retried.
func (s *BookingService) CreateBookingWithAvailability(ctx context.Context, customer CustomerInput, tour TourDetails) (_ *domain.Booking, err error) {
	sg := &saga{state: sagaStart, logger: s.logger}

	booking, err := s.core.prepare(ctx, customer, tour)
	if err != nil {
		return nil, err
	}

	sg.advance(sagaChecking)
	vehicle, err := s.chooseVehicle(ctx, tour, booking.EndTime)
	if err != nil {
		return nil, err
	}
	vehicleID := *vehicle.VehicleID
	booking.Mode, booking.VehicleID = domain.BookingModeVehicle, &vehicleID
	if booking.Price, err = s.core.quote(ctx, tour, &vehicleID); err != nil {
		return nil, err
	}

	sg.advance(sagaHolding)
	hold, err := s.vehicles.CreateHoldBlock(ctx, domain.HoldRequest{
		VehicleID: vehicleID,
		Date:      booking.TourDate,
		StartTime: booking.StartTime,
		EndTime:   booking.EndTime,
		ScopeID:   tour.ScopeID,
		Notes:     tour.Notes,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if sg.state == sagaCommitted {
			return
		}
		// The caller may have gone away; the release must still happen.
		if relErr := s.vehicles.ReleaseHoldBlock(context.WithoutCancel(ctx), hold.ID); relErr != nil {
			s.logger.Error("failed to release hold",
				zap.Int64("hold_id", hold.ID),
				zap.Int64("vehicle_id", vehicleID),
				zap.NamedError("cause", err),
				zap.Error(relErr))
			return
		}
		sg.advance(sagaFailedReleased)
		s.logger.Info("booking failed, hold released",
			zap.Int64("hold_id", hold.ID),
			zap.Int64("vehicle_id", vehicleID),
			zap.Error(err))
	}()

	sg.advance(sagaPersisting)
	if err = s.core.persist(ctx, customer, booking); err != nil {
		return nil, err
	}
	if err = s.vehicles.ConvertHoldToBooking(ctx, hold.ID, booking.ID); err != nil {
		s.core.abandon(context.WithoutCancel(ctx), booking, "vehicle assignment failed")
		return nil, fmt.Errorf("assign vehicle %d to booking %s: %w", vehicleID, booking.BookingNumber, err)
	}
	sg.advance(sagaCommitted)

	s.logger.Info("booking created",
		zap.Int64("booking_id", booking.ID),
		zap.String("booking_number", booking.BookingNumber),
		zap.Int64("vehicle_id", vehicleID),
		zap.String("date", booking.TourDate.Format(domain.DateLayout)),
		zap.Stringer("start", booking.StartTime))
	s.core.publish(ctx, domain.EventBookingCreated, booking)
	return booking, nil
}

// chooseVehicle honours an operator-picked vehicle, otherwise takes the
// best-ranked free one.
func (s *BookingService) chooseVehicle(ctx context.Context, tour TourDetails, end domain.ClockTime) (*domain.Availability, error) {
	date := domain.DateOnly(tour.Date)
	if tour.VehicleID != nil {
		result, err := s.vehicles.CheckVehicleAvailability(ctx, *tour.VehicleID, date, tour.StartTime, end)
		if err != nil {
			return nil, err
		}
		if result.VehicleCapacity < tour.PartySize {
			return nil, domain.NewConflictError(fmt.Sprintf("vehicle %d is too small", *tour.VehicleID),
				fmt.Sprintf("%s carries %d, party is %d", result.VehicleName, result.VehicleCapacity, tour.PartySize))
		}
		if !result.Available {
			return nil, domain.NewConflictError(fmt.Sprintf("vehicle %d is not available", *tour.VehicleID), result.Conflicts...)
		}
		return result, nil
	}

	result, err := s.vehicles.CheckAvailability(ctx, vehicles.CheckInput{
		Date:          date,
		StartTime:     tour.StartTime,
		DurationHours: tour.DurationHours,
		PartySize:     tour.PartySize,
		ScopeID:       tour.ScopeID,
	})
	if err != nil {
		return nil, err
	}
	if !result.Available {
		return nil, domain.NewConflictError(fmt.Sprintf("no vehicle available on %s %s-%s",
			date.Format(domain.DateLayout), tour.StartTime, end), result.Conflicts...)
	}
	return result, nil
}

// CancelBooking cancels first and frees the vehicle second, so a freed slot
// never belongs to a booking that is still live.
func (s *BookingService) CancelBooking(ctx context.Context, id int64, reason string) (*domain.Booking, error) {
	return s.CancelWithVehicleRelease(ctx, id, reason)
}

func (s *BookingService) CancelWithVehicleRelease(ctx context.Context, id int64, reason string) (*domain.Booking, error) {
	current, err := s.core.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.BookingStatusCancelled {
		return s.releaseLeftoverBlocks(ctx, current)
	}

	cancelled, err := s.core.transition(ctx, id, domain.BookingStatusCancelled, reason)
	if err != nil {
		return nil, err
	}
	released, err := s.vehicles.DeleteBookingBlocks(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("booking %s cancelled but its vehicle was not released: %w", cancelled.BookingNumber, err)
	}
	s.logger.Info("booking cancelled",
		zap.Int64("booking_id", id),
		zap.Int64("released_blocks", released),
		zap.String("reason", reason))
	s.core.publish(ctx, domain.EventBookingCancelled, cancelled)
	return cancelled, nil
}

// releaseLeftoverBlocks finishes a cancellation whose vehicle release failed
// earlier. A cancelled booking that holds no blocks stays terminal.
func (s *BookingService) releaseLeftoverBlocks(ctx context.Context, cancelled *domain.Booking) (*domain.Booking, error) {
	released, err := s.vehicles.DeleteBookingBlocks(ctx, cancelled.ID)
	if err != nil {
		return nil, fmt.Errorf("booking %s cancelled but its vehicle was not released: %w", cancelled.BookingNumber, err)
	}
	if released == 0 {
		return nil, validateTransition(cancelled.Status, domain.BookingStatusCancelled)
	}
	s.logger.Warn("released vehicle of previously cancelled booking",
		zap.Int64("booking_id", cancelled.ID),
		zap.Int64("released_blocks", released))
	s.core.publish(ctx, domain.EventBookingCancelled, cancelled)
	return cancelled, nil
}

func (s *BookingService) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus, reason string) (*domain.Booking, error) {
	if status == domain.BookingStatusCancelled {
		return s.CancelWithVehicleRelease(ctx, id, reason)
	}
	return s.core.UpdateStatus(ctx, id, status, reason)
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.core.GetBooking(ctx, id)
}

var _ BookingUseCase = (*BookingService)(nil)
