package api

import (
	"strconv"
	"time"

	"github.com/Domenick1991/tourbooking/internal/domain"
)

type bookingResponse struct {
	ID                 int64   `json:"id"`
	BookingNumber      string  `json:"booking_number"`
	Status             string  `json:"status"`
	Mode               string  `json:"mode"`
	CustomerEmail      string  `json:"customer_email,omitempty"`
	VehicleID          *int64  `json:"vehicle_id,omitempty"`
	TourDate           string  `json:"tour_date"`
	StartTime          string  `json:"start_time"`
	EndTime            string  `json:"end_time"`
	DurationHours      float64 `json:"duration_hours"`
	PartySize          int     `json:"party_size"`
	Subtotal           int64   `json:"subtotal_cents"`
	Taxes              int64   `json:"taxes_cents"`
	Total              int64   `json:"total_cents"`
	Deposit            int64   `json:"deposit_cents"`
	CancellationReason string  `json:"cancellation_reason,omitempty"`
	CreatedAt          string  `json:"created_at"`
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:                 b.ID,
		BookingNumber:      b.BookingNumber,
		Status:             string(b.Status),
		Mode:               string(b.Mode),
		CustomerEmail:      b.CustomerEmail,
		VehicleID:          b.VehicleID,
		TourDate:           b.TourDate.Format(domain.DateLayout),
		StartTime:          b.StartTime.String(),
		EndTime:            b.EndTime.String(),
		DurationHours:      b.DurationHours,
		PartySize:          b.PartySize,
		Subtotal:           b.Price.Subtotal,
		Taxes:              b.Price.Taxes,
		Total:              b.Price.Total,
		Deposit:            b.Price.Deposit,
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt.Format(time.RFC3339),
	}
}

type availabilityResponse struct {
	Available       bool     `json:"available"`
	VehicleID       *int64   `json:"vehicle_id,omitempty"`
	VehicleName     string   `json:"vehicle_name,omitempty"`
	VehicleCapacity int      `json:"vehicle_capacity,omitempty"`
	Conflicts       []string `json:"conflicts,omitempty"`
}

func toAvailabilityResponse(a *domain.Availability) availabilityResponse {
	return availabilityResponse{
		Available:       a.Available,
		VehicleID:       a.VehicleID,
		VehicleName:     a.VehicleName,
		VehicleCapacity: a.VehicleCapacity,
		Conflicts:       a.Conflicts,
	}
}

type slotResponse struct {
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	Available       bool   `json:"available"`
	VehicleID       *int64 `json:"vehicle_id,omitempty"`
	VehicleName     string `json:"vehicle_name,omitempty"`
	VehicleCapacity int    `json:"vehicle_capacity,omitempty"`
}

func toSlotResponses(slots []domain.Slot) []slotResponse {
	out := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotResponse{
			StartTime:       s.StartTime.String(),
			EndTime:         s.EndTime.String(),
			Available:       s.Available,
			VehicleID:       s.VehicleID,
			VehicleName:     s.VehicleName,
			VehicleCapacity: s.VehicleCapacity,
		})
	}
	return out
}

type dateResponse struct {
	Date           string `json:"date"`
	AvailableSlots int    `json:"available_slots"`
}

type blockResponse struct {
	ID          int64  `json:"id"`
	VehicleID   int64  `json:"vehicle_id"`
	VehicleName string `json:"vehicle_name,omitempty"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Type        string `json:"block_type"`
	BookingID   *int64 `json:"booking_id,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

func toBlockResponse(b domain.AvailabilityBlock) blockResponse {
	return blockResponse{
		ID:          b.ID,
		VehicleID:   b.VehicleID,
		VehicleName: b.VehicleName,
		Date:        b.Date.Format(domain.DateLayout),
		StartTime:   b.StartTime.String(),
		EndTime:     b.EndTime.String(),
		Type:        string(b.Type),
		BookingID:   b.BookingID,
		Notes:       b.Notes,
	}
}

// parseOptionalID reads an optional positive id such as scope_id.
func parseOptionalID(raw string) (*int64, bool) {
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, false
	}
	return &id, true
}
