package domain

import "time"

const (
	EventBookingCreated   = "booking_created"
	EventBookingCancelled = "booking_cancelled"
)

// BookingEvent is published after a booking commits or changes status.
// Consumers (CRM sync, calendar sync, notifications) must tolerate duplicates.
type BookingEvent struct {
	EventID       string    `json:"event_id"`
	Type          string    `json:"type"`
	BookingID     int64     `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	CustomerEmail string    `json:"customer_email"`
	VehicleID     *int64    `json:"vehicle_id,omitempty"`
	Mode          string    `json:"mode"`
	TourDate      string    `json:"tour_date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	PartySize     int       `json:"party_size"`
	Status        string    `json:"status"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// StatusEventType names the event emitted when a booking enters status.
func StatusEventType(status BookingStatus) string {
	return "booking_" + string(status)
}
