package vehicles

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/repository"
)

type AvailabilityUseCase interface {
	CheckAvailability(ctx context.Context, input CheckInput) (*domain.Availability, error)
	FindAvailableVehicles(ctx context.Context, date time.Time, start, end domain.ClockTime, partySize int, scopeID *int64) ([]domain.Vehicle, error)
	GetAvailableSlots(ctx context.Context, input SlotsInput) ([]domain.Slot, error)
	CheckVehicleAvailability(ctx context.Context, vehicleID int64, date time.Time, start, end domain.ClockTime) (*domain.Availability, error)
	GetBlocksInRange(ctx context.Context, from, to time.Time, vehicleID *int64) ([]domain.AvailabilityBlock, error)
	CreateOperatorBlock(ctx context.Context, req domain.HoldRequest, blockType domain.BlockType) (*domain.AvailabilityBlock, error)
}

// FleetCache is an optional read-through cache for the active fleet.
type FleetCache interface {
	GetVehicles(ctx context.Context, key string) ([]domain.Vehicle, error)
	SetVehicles(ctx context.Context, key string, vehicles []domain.Vehicle) error
}

type CheckInput struct {
	Date          time.Time
	StartTime     domain.ClockTime
	DurationHours float64
	PartySize     int
	ScopeID       *int64
}

type SlotsInput struct {
	Date          time.Time
	DurationHours float64
	PartySize     int
	ScopeID       *int64
}

type VehicleService struct {
	blocks      repository.BlockRepository
	vehicles    repository.VehicleRepository
	cache       FleetCache
	ranking     RankingPolicy
	opening     domain.ClockTime
	closing     domain.ClockTime
	slotMinutes int
	buffer      time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

type VehicleServiceOption func(*VehicleService)

func WithFleetCache(cache FleetCache) VehicleServiceOption {
	return func(s *VehicleService) {
		s.cache = cache
	}
}

func WithRanking(policy RankingPolicy) VehicleServiceOption {
	return func(s *VehicleService) {
		if policy != nil {
			s.ranking = policy
		}
	}
}

// WithOperatingHours sets the window slot enumeration walks and its step.
func WithOperatingHours(opening, closing domain.ClockTime, slotMinutes int) VehicleServiceOption {
	return func(s *VehicleService) {
		s.opening, s.closing = opening, closing
		if slotMinutes > 0 {
			s.slotMinutes = slotMinutes
		}
	}
}

// WithBuffer reserves turnaround time after every tour.
func WithBuffer(buffer time.Duration) VehicleServiceOption {
	return func(s *VehicleService) {
		s.buffer = buffer
	}
}

func WithClock(now func() time.Time) VehicleServiceOption {
	return func(s *VehicleService) {
		s.now = now
	}
}

func NewVehicleService(blocks repository.BlockRepository, vehicles repository.VehicleRepository, logger *zap.Logger, opts ...VehicleServiceOption) *VehicleService {
	s := &VehicleService{
		blocks:      blocks,
		vehicles:    vehicles,
		ranking:     BestFit,
		opening:     domain.NewClockTime(7, 0),
		closing:     domain.NewClockTime(20, 0),
		slotMinutes: 30,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DurationOf converts fractional hours to whole minutes.
func DurationOf(hours float64) time.Duration {
	return time.Duration(math.Round(hours*60)) * time.Minute
}

func (s *VehicleService) CheckAvailability(ctx context.Context, input CheckInput) (*domain.Availability, error) {
	if input.PartySize < 1 {
		return nil, domain.NewValidationError("party_size", "must be at least 1")
	}
	end, err := EndOf(input.StartTime, input.DurationHours)
	if err != nil {
		return nil, err
	}

	candidates, err := s.candidates(ctx, input.PartySize, input.ScopeID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &domain.Availability{Conflicts: []string{fmt.Sprintf("no vehicle can carry a party of %d", input.PartySize)}}, nil
	}

	result := &domain.Availability{}
	for _, v := range candidates {
		overlaps, err := s.blocks.QueryOverlaps(ctx, v.ID, input.Date, input.StartTime, s.reservedEnd(end))
		if err != nil {
			return nil, err
		}
		if len(overlaps) == 0 {
			id := v.ID
			return &domain.Availability{Available: true, VehicleID: &id, VehicleName: v.Name, VehicleCapacity: v.Capacity}, nil
		}
		result.Conflicts = append(result.Conflicts, describeConflicts(v, overlaps))
	}
	return result, nil
}

func (s *VehicleService) FindAvailableVehicles(ctx context.Context, date time.Time, start, end domain.ClockTime, partySize int, scopeID *int64) ([]domain.Vehicle, error) {
	if start >= end || !end.Valid() {
		return nil, domain.NewValidationError("end_time", "must be after start time and within the day")
	}
	candidates, err := s.candidates(ctx, partySize, scopeID)
	if err != nil {
		return nil, err
	}

	free := make([]domain.Vehicle, 0, len(candidates))
	for _, v := range candidates {
		overlaps, err := s.blocks.QueryOverlaps(ctx, v.ID, date, start, s.reservedEnd(end))
		if err != nil {
			return nil, err
		}
		if len(overlaps) == 0 {
			free = append(free, v)
		}
	}
	return free, nil
}

// GetAvailableSlots walks the operating window; a slot is available when at
// least one capacity-sufficient vehicle is free for the whole tour.
func (s *VehicleService) GetAvailableSlots(ctx context.Context, input SlotsInput) ([]domain.Slot, error) {
	if input.PartySize < 1 {
		return nil, domain.NewValidationError("party_size", "must be at least 1")
	}
	duration := DurationOf(input.DurationHours)
	if duration <= 0 {
		return nil, domain.NewValidationError("duration_hours", "must be positive")
	}

	candidates, err := s.candidates(ctx, input.PartySize, input.ScopeID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(candidates))
	for _, v := range candidates {
		ids = append(ids, v.ID)
	}
	byVehicle := make(map[int64][]domain.AvailabilityBlock, len(candidates))
	if len(ids) > 0 {
		blocks, err := s.blocks.ListForDate(ctx, input.Date, ids)
		if err != nil {
			return nil, err
		}
		for _, b := range blocks {
			byVehicle[b.VehicleID] = append(byVehicle[b.VehicleID], b)
		}
	}

	slots := make([]domain.Slot, 0)
	for start := s.opening; start.Add(duration) <= s.closing; start += domain.ClockTime(s.slotMinutes) {
		end := start.Add(duration)
		slot := domain.Slot{StartTime: start, EndTime: end}
		for _, v := range candidates {
			if !overlapsAny(byVehicle[v.ID], start, s.reservedEnd(end)) {
				id := v.ID
				slot.Available, slot.VehicleID, slot.VehicleName, slot.VehicleCapacity = true, &id, v.Name, v.Capacity
				break
			}
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// CreateHoldBlock places a provisional reservation; the stored interval
// includes the turnaround buffer.
func (s *VehicleService) CreateHoldBlock(ctx context.Context, req domain.HoldRequest) (*domain.AvailabilityBlock, error) {
	req.EndTime = s.reservedEnd(req.EndTime)
	hold, err := s.blocks.CreateHold(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("hold created",
		zap.Int64("hold_id", hold.ID),
		zap.Int64("vehicle_id", hold.VehicleID),
		zap.String("date", hold.Date.Format(domain.DateLayout)),
		zap.Stringer("start", hold.StartTime),
		zap.Stringer("end", hold.EndTime))
	return hold, nil
}

func (s *VehicleService) ConvertHoldToBooking(ctx context.Context, holdID, bookingID int64) error {
	return s.blocks.ConvertToBooking(ctx, holdID, bookingID)
}

// ReleaseHoldBlock is idempotent: releasing an unknown or already released hold is a no-op.
func (s *VehicleService) ReleaseHoldBlock(ctx context.Context, holdID int64) error {
	if err := s.blocks.Delete(ctx, holdID); err != nil {
		return err
	}
	s.logger.Debug("hold released", zap.Int64("hold_id", holdID))
	return nil
}

func (s *VehicleService) DeleteBookingBlocks(ctx context.Context, bookingID int64) (int64, error) {
	return s.blocks.DeleteBookingBlocks(ctx, bookingID)
}

// CheckVehicleAvailability checks one operator-chosen vehicle.
func (s *VehicleService) CheckVehicleAvailability(ctx context.Context, vehicleID int64, date time.Time, start, end domain.ClockTime) (*domain.Availability, error) {
	v, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	id := v.ID
	result := &domain.Availability{VehicleID: &id, VehicleName: v.Name, VehicleCapacity: v.Capacity}
	if v.Status != domain.VehicleStatusActive {
		result.Conflicts = []string{fmt.Sprintf("%s is %s", v.Name, v.Status)}
		return result, nil
	}

	overlaps, err := s.blocks.QueryOverlaps(ctx, v.ID, date, start, s.reservedEnd(end))
	if err != nil {
		return nil, err
	}
	for _, b := range overlaps {
		result.Conflicts = append(result.Conflicts, b.Describe())
	}
	result.Available = len(result.Conflicts) == 0
	return result, nil
}

func (s *VehicleService) GetBlocksInRange(ctx context.Context, from, to time.Time, vehicleID *int64) ([]domain.AvailabilityBlock, error) {
	if to.Before(from) {
		return nil, domain.NewValidationError("end_date", "must not be before start_date")
	}
	return s.blocks.ListInRange(ctx, from, to, vehicleID)
}

// CreateOperatorBlock records a BLACKOUT or MAINTENANCE interval for one vehicle.
func (s *VehicleService) CreateOperatorBlock(ctx context.Context, req domain.HoldRequest, blockType domain.BlockType) (*domain.AvailabilityBlock, error) {
	if blockType != domain.BlockTypeBlackout && blockType != domain.BlockTypeMaintenance {
		return nil, domain.NewValidationError("block_type", "must be BLACKOUT or MAINTENANCE")
	}
	if req.StartTime >= req.EndTime || !req.EndTime.Valid() {
		return nil, domain.NewValidationError("end_time", "must be after start time and within the day")
	}
	return s.blocks.CreateBlock(ctx, req, blockType)
}

// ReleaseExpiredHolds deletes holds older than ttl. A saga that crashed
// between hold and promotion would otherwise keep its vehicle forever.
func (s *VehicleService) ReleaseExpiredHolds(ctx context.Context, ttl time.Duration) ([]domain.AvailabilityBlock, error) {
	expired, err := s.blocks.ExpireHolds(ctx, s.now().Add(-ttl))
	if err != nil {
		return nil, err
	}
	for _, h := range expired {
		s.logger.Warn("expired hold released",
			zap.Int64("hold_id", h.ID),
			zap.Int64("vehicle_id", h.VehicleID),
			zap.String("date", h.Date.Format(domain.DateLayout)),
			zap.Time("created_at", h.CreatedAt))
	}
	return expired, nil
}

func (s *VehicleService) candidates(ctx context.Context, partySize int, scopeID *int64) ([]domain.Vehicle, error) {
	fleet, err := s.fleet(ctx, scopeID)
	if err != nil {
		return nil, err
	}
	return rank(fleet, partySize, s.ranking), nil
}

func (s *VehicleService) fleet(ctx context.Context, scopeID *int64) ([]domain.Vehicle, error) {
	key := fleetKey(scopeID)
	if s.cache != nil {
		if cached, err := s.cache.GetVehicles(ctx, key); err == nil && cached != nil {
			return cached, nil
		}
	}

	fleet, err := s.vehicles.ListActive(ctx, scopeID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetVehicles(ctx, key, fleet); err != nil {
			s.logger.Warn("fleet cache write failed", zap.Error(err))
		}
	}
	return fleet, nil
}

func (s *VehicleService) reservedEnd(end domain.ClockTime) domain.ClockTime {
	reserved := end.Add(s.buffer)
	if reserved > domain.MinutesPerDay {
		return domain.MinutesPerDay
	}
	return reserved
}

// EndOf computes a tour's end time, rejecting tours that cross midnight.
func EndOf(start domain.ClockTime, durationHours float64) (domain.ClockTime, error) {
	if !start.Valid() || start == domain.MinutesPerDay {
		return 0, domain.NewValidationError("start_time", "must be a time of day")
	}
	duration := DurationOf(durationHours)
	if duration <= 0 {
		return 0, domain.NewValidationError("duration_hours", "must be positive")
	}
	end := start.Add(duration)
	if end > domain.MinutesPerDay {
		return 0, domain.NewValidationError("duration_hours", "tour starting at %s must end by midnight", start)
	}
	return end, nil
}

func fleetKey(scopeID *int64) string {
	if scopeID == nil {
		return "all"
	}
	return strconv.FormatInt(*scopeID, 10)
}

func overlapsAny(blocks []domain.AvailabilityBlock, start, end domain.ClockTime) bool {
	for _, b := range blocks {
		if b.Overlaps(start, end) {
			return true
		}
	}
	return false
}

func describeConflicts(v domain.Vehicle, overlaps []domain.AvailabilityBlock) string {
	parts := make([]string, 0, len(overlaps))
	for _, b := range overlaps {
		parts = append(parts, fmt.Sprintf("%s %s-%s", b.Type, b.StartTime, b.EndTime))
	}
	return fmt.Sprintf("%s (capacity %d) is reserved: %s", v.Name, v.Capacity, strings.Join(parts, ", "))
}

var _ AvailabilityUseCase = (*VehicleService)(nil)
