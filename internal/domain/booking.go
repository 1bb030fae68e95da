package domain

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress,
		BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

type BookingMode string

const (
	BookingModeVehicle  BookingMode = "vehicle"
	BookingModeCapacity BookingMode = "capacity"
)

type Booking struct {
	ID                 int64
	BookingNumber      string
	CustomerID         int64
	CustomerEmail      string
	VehicleID          *int64
	Mode               BookingMode
	TourDate           time.Time
	StartTime          ClockTime
	EndTime            ClockTime
	DurationHours      float64
	PartySize          int
	Price              Quote
	Status             BookingStatus
	CancellationReason string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// StartsAt is the instant the tour departs in the operator's time zone.
func (b Booking) StartsAt(loc *time.Location) time.Time {
	return b.StartTime.On(b.TourDate, loc)
}

// Quote holds pricing amounts in cents.
type Quote struct {
	Subtotal int64
	Taxes    int64
	Total    int64
	Deposit  int64
}

type Customer struct {
	ID    int64
	Email string
	Name  string
	Phone string
}

// FormatBookingNumber renders <PREFIX>-<YEAR>-<NNNNN>.
func FormatBookingNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, year, seq)
}
