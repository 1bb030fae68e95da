package domain

import "time"

// Slot is a candidate departure time. When Available, VehicleID names the
// vehicle that would be assigned.
type Slot struct {
	StartTime       ClockTime
	EndTime         ClockTime
	Available       bool
	VehicleID       *int64
	VehicleName     string
	VehicleCapacity int
}

// Availability is the outcome of a single availability check.
type Availability struct {
	Available       bool
	VehicleID       *int64
	VehicleName     string
	VehicleCapacity int
	Conflicts       []string
}

// DateAvailability summarises one calendar day.
type DateAvailability struct {
	Date           time.Time
	AvailableSlots int
}
