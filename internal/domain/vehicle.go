package domain

import "time"

type VehicleStatus string

const (
	VehicleStatusActive      VehicleStatus = "active"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
	VehicleStatusRetired     VehicleStatus = "retired"
)

// Vehicle is read-only for the availability engine; its capacity decides
// whether it can carry a party.
type Vehicle struct {
	ID        int64
	Name      string
	Type      string
	Capacity  int
	Status    VehicleStatus
	ScopeID   *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (v Vehicle) Fits(partySize int) bool {
	return v.Status == VehicleStatusActive && v.Capacity >= partySize
}
