package domain

import (
	"fmt"
	"time"
)

type BlockType string

const (
	BlockTypeHold        BlockType = "HOLD"
	BlockTypeBooking     BlockType = "BOOKING"
	BlockTypeBlackout    BlockType = "BLACKOUT"
	BlockTypeMaintenance BlockType = "MAINTENANCE"
)

// Exclusive reports whether blocks of this type take part in the
// no-overlap guarantee of the block store.
func (t BlockType) Exclusive() bool {
	return t == BlockTypeHold || t == BlockTypeBooking
}

func (t BlockType) Valid() bool {
	switch t {
	case BlockTypeHold, BlockTypeBooking, BlockTypeBlackout, BlockTypeMaintenance:
		return true
	}
	return false
}

// AvailabilityBlock is a reserved interval [StartTime, EndTime) of one vehicle on one date.
type AvailabilityBlock struct {
	ID          int64
	VehicleID   int64
	VehicleName string
	Date        time.Time
	StartTime   ClockTime
	EndTime     ClockTime
	Type        BlockType
	BookingID   *int64
	ScopeID     *int64
	Notes       string
	CreatedAt   time.Time
}

func (b AvailabilityBlock) Overlaps(start, end ClockTime) bool {
	return Overlaps(b.StartTime, b.EndTime, start, end)
}

// Describe renders a human-readable conflict reason.
func (b AvailabilityBlock) Describe() string {
	name := b.VehicleName
	if name == "" {
		name = fmt.Sprintf("vehicle %d", b.VehicleID)
	}
	return fmt.Sprintf("%s has a %s block %s-%s on %s", name, b.Type, b.StartTime, b.EndTime, b.Date.Format(DateLayout))
}

// HoldRequest describes a provisional reservation to place.
type HoldRequest struct {
	VehicleID int64
	Date      time.Time
	StartTime ClockTime
	EndTime   ClockTime
	ScopeID   *int64
	Notes     string
}

// BlackoutDate closes a whole day for booking, optionally for one scope only.
type BlackoutDate struct {
	ID      int64
	Date    time.Time
	ScopeID *int64
	Reason  string
	Active  bool
}

const DateLayout = "2006-01-02"
