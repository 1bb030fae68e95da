package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/repository"
)

type VehicleRepository struct {
	s *Store
}

func (r *VehicleRepository) ListActive(_ context.Context, scopeID *int64) ([]domain.Vehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.Vehicle, 0, len(r.s.vehicles))
	for _, v := range r.s.vehicles {
		if v.Status != domain.VehicleStatusActive {
			continue
		}
		if scopeID != nil && (v.ScopeID == nil || *v.ScopeID != *scopeID) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Capacity != out[j].Capacity {
			return out[i].Capacity < out[j].Capacity
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *VehicleRepository) GetByID(_ context.Context, id int64) (*domain.Vehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	v, ok := r.s.vehicles[id]
	if !ok {
		return nil, domain.NewNotFoundError("vehicle", id)
	}
	return &v, nil
}

type BookingRepository struct {
	s *Store
}

func (r *BookingRepository) Create(_ context.Context, customer domain.Customer, booking *domain.Booking, numberPrefix string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.insert(customer, booking, numberPrefix)
	return nil
}

// CreateWithinCapacity holds the date lock across the read and the insert,
// which are separate critical sections of the store, mirroring the advisory
// lock of the Postgres implementation.
func (r *BookingRepository) CreateWithinCapacity(ctx context.Context, customer domain.Customer, booking *domain.Booking, numberPrefix string, maxCapacity int) error {
	date := domain.DateOnly(booking.TourDate)
	unlock := r.s.dateLocks.Lock(date.Format(domain.DateLayout))
	defer unlock()

	current, err := r.CommittedPartySize(ctx, date)
	if err != nil {
		return err
	}
	if current+booking.PartySize > maxCapacity {
		return domain.NewConflictError("not enough capacity",
			fmt.Sprintf("%d of %d seats taken on %s, %d requested", current, maxCapacity, date.Format(domain.DateLayout), booking.PartySize))
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.insert(customer, booking, numberPrefix)
	return nil
}

// insert must be called with the store mutex held.
func (r *BookingRepository) insert(customer domain.Customer, booking *domain.Booking, numberPrefix string) {
	existing, ok := r.s.customers[customer.Email]
	if !ok {
		customer.ID = r.s.id()
		existing = customer
	} else {
		existing.Name = customer.Name
		if customer.Phone != "" {
			existing.Phone = customer.Phone
		}
	}
	r.s.customers[customer.Email] = existing
	booking.CustomerID, booking.CustomerEmail = existing.ID, existing.Email

	year := booking.TourDate.Year()
	r.s.sequences[year]++
	booking.BookingNumber = domain.FormatBookingNumber(numberPrefix, year, r.s.sequences[year])

	booking.ID = r.s.id()
	booking.TourDate = domain.DateOnly(booking.TourDate)
	if booking.Status == "" {
		booking.Status = domain.BookingStatusPending
	}
	booking.CreatedAt, booking.UpdatedAt = r.s.now(), r.s.now()
	r.s.bookings[booking.ID] = *booking
}

func (r *BookingRepository) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("booking", id)
	}
	return &b, nil
}

func (r *BookingRepository) UpdateStatus(_ context.Context, id int64, from, to domain.BookingStatus, reason string) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok || b.Status != from {
		return nil, domain.NewConflictError(fmt.Sprintf("booking %d is no longer %s", id, from))
	}
	b.Status = to
	if to == domain.BookingStatusCancelled {
		b.CancellationReason = reason
	}
	b.UpdatedAt = r.s.now()
	r.s.bookings[id] = b
	return &b, nil
}

func (r *BookingRepository) CommittedPartySize(_ context.Context, date time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	total := 0
	for _, b := range r.s.bookings {
		if b.Mode == domain.BookingModeCapacity && b.Status != domain.BookingStatusCancelled && sameDate(b.TourDate, date) {
			total += b.PartySize
		}
	}
	return total, nil
}

type BlackoutRepository struct {
	s *Store
}

func (r *BlackoutRepository) ListActive(_ context.Context, from, to time.Time, scopeID *int64) ([]domain.BlackoutDate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	from, to = domain.DateOnly(from), domain.DateOnly(to)
	out := make([]domain.BlackoutDate, 0)
	for _, d := range r.s.blackouts {
		if !d.Active || d.Date.Before(from) || d.Date.After(to) {
			continue
		}
		if d.ScopeID != nil && scopeID != nil && *d.ScopeID != *scopeID {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

var (
	_ repository.VehicleRepository  = (*VehicleRepository)(nil)
	_ repository.BookingRepository  = (*BookingRepository)(nil)
	_ repository.BlackoutRepository = (*BlackoutRepository)(nil)
)
