package booking

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/repository"
	"github.com/Domenick1991/tourbooking/internal/service/vehicles"
)

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Pricer quotes a tour. It has no availability semantics.
type Pricer interface {
	Quote(ctx context.Context, date time.Time, durationHours float64, partySize int, vehicleID *int64) (domain.Quote, error)
}

// DateGuard rejects dates closed for booking (blackouts, lead time, horizon).
type DateGuard interface {
	CheckBookable(ctx context.Context, date time.Time, scopeID *int64) error
}

type Settings struct {
	NumberPrefix         string
	MaxDailyCapacity     int
	CancellationDeadline time.Duration
	Location             *time.Location
	MinDurationHours     float64
	MaxDurationHours     float64
	BookingTopic         string
	NotificationsTopic   string
}

// CoreService owns the booking record: the capacity path, the status state
// machine and event publication. The vehicle path persists through it too.
type CoreService struct {
	bookings repository.BookingRepository
	pricer   Pricer
	producer Producer
	guard    DateGuard
	settings Settings
	now      func() time.Time
	logger   *zap.Logger
}

type CoreServiceOption func(*CoreService)

func WithProducer(producer Producer) CoreServiceOption {
	return func(s *CoreService) {
		s.producer = producer
	}
}

func WithDateGuard(guard DateGuard) CoreServiceOption {
	return func(s *CoreService) {
		s.guard = guard
	}
}

func WithClock(now func() time.Time) CoreServiceOption {
	return func(s *CoreService) {
		s.now = now
	}
}

func NewCoreService(bookings repository.BookingRepository, pricer Pricer, settings Settings, logger *zap.Logger, opts ...CoreServiceOption) *CoreService {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	s := &CoreService{
		bookings: bookings,
		pricer:   pricer,
		settings: settings,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCapacityBooking reserves party-size seats out of the daily capacity
// without assigning a vehicle.
func (s *CoreService) CreateCapacityBooking(ctx context.Context, customer CustomerInput, tour TourDetails) (*domain.Booking, error) {
	booking, err := s.prepare(ctx, customer, tour)
	if err != nil {
		return nil, err
	}
	if tour.VehicleID != nil {
		return nil, domain.NewValidationError("vehicle_id", "must be empty for capacity bookings")
	}
	booking.Mode = domain.BookingModeCapacity
	if booking.Price, err = s.quote(ctx, tour, nil); err != nil {
		return nil, err
	}

	if err := s.bookings.CreateWithinCapacity(ctx, toCustomer(customer), booking, s.settings.NumberPrefix, s.settings.MaxDailyCapacity); err != nil {
		return nil, err
	}
	s.logger.Info("capacity booking created",
		zap.Int64("booking_id", booking.ID),
		zap.String("booking_number", booking.BookingNumber),
		zap.String("date", booking.TourDate.Format(domain.DateLayout)),
		zap.Int("party_size", booking.PartySize))
	s.publish(ctx, domain.EventBookingCreated, booking)
	return booking, nil
}

// CapacityRemaining reports how many capacity-path seats are still free on date.
func (s *CoreService) CapacityRemaining(ctx context.Context, date time.Time) (int, error) {
	used, err := s.bookings.CommittedPartySize(ctx, date)
	if err != nil {
		return 0, err
	}
	if used >= s.settings.MaxDailyCapacity {
		return 0, nil
	}
	return s.settings.MaxDailyCapacity - used, nil
}

func (s *CoreService) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

// UpdateStatus moves a booking along the state machine and publishes the
// change. Cancellation of vehicle bookings must go through
// BookingService.CancelBooking so the vehicle is released.
func (s *CoreService) UpdateStatus(ctx context.Context, id int64, to domain.BookingStatus, reason string) (*domain.Booking, error) {
	updated, err := s.transition(ctx, id, to, reason)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.StatusEventType(to), updated)
	return updated, nil
}

func (s *CoreService) transition(ctx context.Context, id int64, to domain.BookingStatus, reason string) (*domain.Booking, error) {
	if !to.Valid() {
		return nil, domain.NewValidationError("status", "unknown status %q", to)
	}
	current, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateTransition(current.Status, to); err != nil {
		return nil, err
	}
	if to == domain.BookingStatusCancelled {
		if err := s.checkCancellationDeadline(current); err != nil {
			return nil, err
		}
	}

	updated, err := s.bookings.UpdateStatus(ctx, id, current.Status, to, reason)
	if err != nil {
		return nil, err
	}
	s.logger.Info("booking status changed",
		zap.Int64("booking_id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(to)))
	return updated, nil
}

// checkCancellationDeadline rejects cancellations closer to departure than
// the configured deadline. Exactly at the deadline is still allowed.
func (s *CoreService) checkCancellationDeadline(b *domain.Booking) error {
	startsAt := b.StartsAt(s.settings.Location)
	left := startsAt.Sub(s.now())
	if left < s.settings.CancellationDeadline {
		return domain.NewConflictError("cancellation deadline passed",
			fmt.Sprintf("booking %s departs at %s, cancellations close %s before departure",
				b.BookingNumber, startsAt.Format(time.RFC3339), s.settings.CancellationDeadline))
	}
	return nil
}

// prepare validates the request and builds the unsaved booking. It has no
// side effects.
func (s *CoreService) prepare(ctx context.Context, customer CustomerInput, tour TourDetails) (*domain.Booking, error) {
	if err := validateStruct(customer); err != nil {
		return nil, err
	}
	if err := validateStruct(tour); err != nil {
		return nil, err
	}
	if minHours := s.settings.MinDurationHours; minHours > 0 && tour.DurationHours < minHours {
		return nil, domain.NewValidationError("duration_hours", "must be at least %g", minHours)
	}
	if maxHours := s.settings.MaxDurationHours; maxHours > 0 && tour.DurationHours > maxHours {
		return nil, domain.NewValidationError("duration_hours", "must be at most %g", maxHours)
	}
	end, err := vehicles.EndOf(tour.StartTime, tour.DurationHours)
	if err != nil {
		return nil, err
	}
	date := domain.DateOnly(tour.Date)
	if s.guard != nil {
		if err := s.guard.CheckBookable(ctx, date, tour.ScopeID); err != nil {
			return nil, err
		}
	}

	return &domain.Booking{
		TourDate:      date,
		StartTime:     tour.StartTime,
		EndTime:       end,
		DurationHours: math.Round(tour.DurationHours*100) / 100,
		PartySize:     tour.PartySize,
		Status:        domain.BookingStatusPending,
	}, nil
}

func (s *CoreService) quote(ctx context.Context, tour TourDetails, vehicleID *int64) (domain.Quote, error) {
	if s.pricer == nil {
		return domain.Quote{}, nil
	}
	q, err := s.pricer.Quote(ctx, tour.Date, tour.DurationHours, tour.PartySize, vehicleID)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("price tour: %w", err)
	}
	return q, nil
}

// persist inserts a vehicle-path booking in one transaction.
func (s *CoreService) persist(ctx context.Context, customer CustomerInput, booking *domain.Booking) error {
	return s.bookings.Create(ctx, toCustomer(customer), booking, s.settings.NumberPrefix)
}

// abandon cancels a booking row whose vehicle assignment could not complete.
// It skips the deadline check because the booking never became usable.
func (s *CoreService) abandon(ctx context.Context, booking *domain.Booking, reason string) {
	if _, err := s.bookings.UpdateStatus(ctx, booking.ID, booking.Status, domain.BookingStatusCancelled, reason); err != nil {
		s.logger.Error("failed to cancel abandoned booking",
			zap.Int64("booking_id", booking.ID),
			zap.Error(err))
	}
}

// publish is fire-and-forget: a failed publish is logged and never affects
// the committed booking.
func (s *CoreService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.settings.BookingTopic == "" {
		return
	}
	event := newEvent(eventType, booking, s.now())
	key := booking.BookingNumber
	if err := s.producer.Publish(ctx, s.settings.BookingTopic, key, event); err != nil {
		s.logger.Warn("failed to publish booking event",
			zap.String("type", eventType),
			zap.Int64("booking_id", booking.ID),
			zap.Error(err))
	}
	if s.settings.NotificationsTopic == "" {
		return
	}
	if err := s.producer.Publish(ctx, s.settings.NotificationsTopic, key, event); err != nil {
		s.logger.Warn("failed to publish notification",
			zap.String("type", eventType),
			zap.Int64("booking_id", booking.ID),
			zap.Error(err))
	}
}

func newEvent(eventType string, b *domain.Booking, now time.Time) domain.BookingEvent {
	return domain.BookingEvent{
		EventID:       uuid.NewString(),
		Type:          eventType,
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		CustomerEmail: b.CustomerEmail,
		VehicleID:     b.VehicleID,
		Mode:          string(b.Mode),
		TourDate:      b.TourDate.Format(domain.DateLayout),
		StartTime:     b.StartTime.String(),
		EndTime:       b.EndTime.String(),
		PartySize:     b.PartySize,
		Status:        string(b.Status),
		Reason:        b.CancellationReason,
		OccurredAt:    now.UTC(),
	}
}

func toCustomer(in CustomerInput) domain.Customer {
	return domain.Customer{Email: in.Email, Name: in.Name, Phone: in.Phone}
}
