package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Domenick1991/tourbooking/internal/domain"
)

const bookingColumns = `id, booking_number, customer_id, vehicle_id, booking_mode, tour_date, start_minute, end_minute, duration_hours, party_size,
	subtotal_cents, taxes_cents, total_cents, deposit_cents, status, cancellation_reason, created_at, updated_at,
	(SELECT email FROM customers WHERE customers.id = bookings.customer_id)`

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) Create(ctx context.Context, customer domain.Customer, booking *domain.Booking, numberPrefix string) error {
	year := booking.TourDate.Year()
	if err := r.ensureNumberSequence(ctx, year); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertBooking(ctx, tx, customer, booking, numberPrefix); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CreateWithinCapacity serializes every writer for the tour date on a
// transaction-scoped advisory lock. The capacity check may run against zero
// rows, so no row or constraint could protect it; the lock is released by
// commit or rollback.
func (r *PGBookingRepository) CreateWithinCapacity(ctx context.Context, customer domain.Customer, booking *domain.Booking, numberPrefix string, maxCapacity int) error {
	year := booking.TourDate.Year()
	if err := r.ensureNumberSequence(ctx, year); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	date := domain.DateOnly(booking.TourDate)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, CapacityLockKey(date.Format(domain.DateLayout))); err != nil {
		return fmt.Errorf("acquire date lock: %w", err)
	}

	var current int
	if err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(party_size), 0) FROM bookings
		WHERE tour_date = $1 AND booking_mode = $2 AND status <> $3`,
		date, string(domain.BookingModeCapacity), string(domain.BookingStatusCancelled)).Scan(&current); err != nil {
		return fmt.Errorf("read committed capacity: %w", err)
	}
	if current+booking.PartySize > maxCapacity {
		return domain.NewConflictError("not enough capacity",
			fmt.Sprintf("%d of %d seats taken on %s, %d requested", current, maxCapacity, date.Format(domain.DateLayout), booking.PartySize))
	}

	if err := insertBooking(ctx, tx, customer, booking, numberPrefix); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertBooking(ctx context.Context, tx pgx.Tx, customer domain.Customer, booking *domain.Booking, numberPrefix string) error {
	if err := tx.QueryRow(ctx, `INSERT INTO customers (email, name, phone) VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, phone = COALESCE(NULLIF(EXCLUDED.phone, ''), customers.phone), updated_at = now()
		RETURNING id`, customer.Email, customer.Name, customer.Phone).Scan(&booking.CustomerID); err != nil {
		return fmt.Errorf("resolve customer: %w", err)
	}
	booking.CustomerEmail = customer.Email

	year := booking.TourDate.Year()
	var seq int64
	if err := tx.QueryRow(ctx, `SELECT nextval($1::regclass)`, sequenceName(year)).Scan(&seq); err != nil {
		return fmt.Errorf("allocate booking number: %w", err)
	}
	booking.BookingNumber = domain.FormatBookingNumber(numberPrefix, year, seq)

	if booking.Status == "" {
		booking.Status = domain.BookingStatusPending
	}
	if err := tx.QueryRow(ctx, `INSERT INTO bookings (booking_number, customer_id, vehicle_id, booking_mode, tour_date, start_minute, end_minute,
			duration_hours, party_size, subtotal_cents, taxes_cents, total_cents, deposit_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`,
		booking.BookingNumber, booking.CustomerID, booking.VehicleID, string(booking.Mode), domain.DateOnly(booking.TourDate),
		int(booking.StartTime), int(booking.EndTime), booking.DurationHours, booking.PartySize,
		booking.Price.Subtotal, booking.Price.Taxes, booking.Price.Total, booking.Price.Deposit, string(booking.Status)).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// ensureNumberSequence creates the per-year sequence outside the booking
// transaction. Two first-of-year writers may both attempt the CREATE; the
// loser's duplicate error means the sequence exists.
func (r *PGBookingRepository) ensureNumberSequence(ctx context.Context, year int) error {
	_, err := r.db.Exec(ctx, fmt.Sprintf(`CREATE SEQUENCE IF NOT EXISTS %s START 1`, sequenceName(year)))
	if err != nil {
		switch pgCode(err) {
		case pgDuplicateTable, pgUniqueViolation:
			return nil
		}
		return fmt.Errorf("create booking number sequence for %d: %w", year, err)
	}
	return nil
}

func sequenceName(year int) string {
	return fmt.Sprintf("booking_number_seq_%d", year)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "booking", id)
	}
	return b, nil
}

// UpdateStatus only applies when the row is still in status from, so two
// concurrent transitions cannot both succeed.
func (r *PGBookingRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.BookingStatus, reason string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `UPDATE bookings
		SET status = $1, cancellation_reason = CASE WHEN $1 = 'cancelled' THEN $2 ELSE cancellation_reason END, updated_at = now()
		WHERE id = $3 AND status = $4
		RETURNING `+bookingColumns, string(to), reason, id, string(from)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewConflictError(fmt.Sprintf("booking %d is no longer %s", id, from))
		}
		return nil, fmt.Errorf("update booking %d status: %w", id, err)
	}
	return b, nil
}

func (r *PGBookingRepository) CommittedPartySize(ctx context.Context, date time.Time) (int, error) {
	var total int
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(party_size), 0) FROM bookings WHERE tour_date = $1 AND booking_mode = $2 AND status <> $3`,
		domain.DateOnly(date), string(domain.BookingModeCapacity), string(domain.BookingStatusCancelled)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum party size: %w", err)
	}
	return total, nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b            domain.Booking
		start, end   int
		mode, status string
	)
	if err := row.Scan(&b.ID, &b.BookingNumber, &b.CustomerID, &b.VehicleID, &mode, &b.TourDate, &start, &end, &b.DurationHours, &b.PartySize,
		&b.Price.Subtotal, &b.Price.Taxes, &b.Price.Total, &b.Price.Deposit, &status, &b.CancellationReason, &b.CreatedAt, &b.UpdatedAt, &b.CustomerEmail); err != nil {
		return nil, err
	}
	b.StartTime, b.EndTime = domain.ClockTime(start), domain.ClockTime(end)
	b.Mode, b.Status = domain.BookingMode(mode), domain.BookingStatus(status)
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
