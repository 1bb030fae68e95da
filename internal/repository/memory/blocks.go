package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/repository"
)

type BlockRepository struct {
	s *Store
}

func (r *BlockRepository) CreateHold(ctx context.Context, req domain.HoldRequest) (*domain.AvailabilityBlock, error) {
	return r.CreateBlock(ctx, req, domain.BlockTypeHold)
}

// CreateBlock checks for overlaps and inserts under the same lock.
func (r *BlockRepository) CreateBlock(_ context.Context, req domain.HoldRequest, blockType domain.BlockType) (*domain.AvailabilityBlock, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.vehicles[req.VehicleID]; !ok {
		return nil, domain.NewNotFoundError("vehicle", req.VehicleID)
	}
	if blockType.Exclusive() {
		var reasons []string
		for _, b := range r.s.blocks {
			if b.VehicleID == req.VehicleID && b.Type.Exclusive() && sameDate(b.Date, req.Date) && b.Overlaps(req.StartTime, req.EndTime) {
				reasons = append(reasons, r.s.withVehicleName(b).Describe())
			}
		}
		if len(reasons) > 0 {
			sort.Strings(reasons)
			return nil, domain.NewConflictError(fmt.Sprintf("vehicle %d is already reserved on %s %s-%s",
				req.VehicleID, req.Date.Format(domain.DateLayout), req.StartTime, req.EndTime), reasons...)
		}
	}

	block := domain.AvailabilityBlock{
		ID:        r.s.id(),
		VehicleID: req.VehicleID,
		Date:      domain.DateOnly(req.Date),
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Type:      blockType,
		ScopeID:   req.ScopeID,
		Notes:     req.Notes,
		CreatedAt: r.s.now(),
	}
	r.s.blocks[block.ID] = block
	return &block, nil
}

func (r *BlockRepository) ConvertToBooking(_ context.Context, blockID, bookingID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.blocks[blockID]
	if !ok || b.Type != domain.BlockTypeHold {
		return domain.NewNotFoundError("hold block", blockID)
	}
	b.Type = domain.BlockTypeBooking
	b.BookingID = &bookingID
	r.s.blocks[blockID] = b
	return nil
}

func (r *BlockRepository) Delete(_ context.Context, blockID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.blocks, blockID)
	return nil
}

func (r *BlockRepository) DeleteBookingBlocks(_ context.Context, bookingID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, b := range r.s.blocks {
		if b.Type == domain.BlockTypeBooking && b.BookingID != nil && *b.BookingID == bookingID {
			delete(r.s.blocks, id)
			n++
		}
	}
	return n, nil
}

func (r *BlockRepository) QueryOverlaps(_ context.Context, vehicleID int64, date time.Time, start, end domain.ClockTime) ([]domain.AvailabilityBlock, error) {
	return r.filter(func(b domain.AvailabilityBlock) bool {
		return b.VehicleID == vehicleID && sameDate(b.Date, date) && b.Overlaps(start, end)
	}), nil
}

func (r *BlockRepository) ListForDate(_ context.Context, date time.Time, vehicleIDs []int64) ([]domain.AvailabilityBlock, error) {
	wanted := make(map[int64]struct{}, len(vehicleIDs))
	for _, id := range vehicleIDs {
		wanted[id] = struct{}{}
	}
	return r.filter(func(b domain.AvailabilityBlock) bool {
		_, ok := wanted[b.VehicleID]
		return ok && sameDate(b.Date, date)
	}), nil
}

func (r *BlockRepository) ListInRange(_ context.Context, from, to time.Time, vehicleID *int64) ([]domain.AvailabilityBlock, error) {
	from, to = domain.DateOnly(from), domain.DateOnly(to)
	return r.filter(func(b domain.AvailabilityBlock) bool {
		if vehicleID != nil && b.VehicleID != *vehicleID {
			return false
		}
		return !b.Date.Before(from) && !b.Date.After(to)
	}), nil
}

func (r *BlockRepository) ExpireHolds(_ context.Context, createdBefore time.Time) ([]domain.AvailabilityBlock, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	expired := make([]domain.AvailabilityBlock, 0)
	for id, b := range r.s.blocks {
		if b.Type == domain.BlockTypeHold && b.CreatedAt.Before(createdBefore) {
			expired = append(expired, r.s.withVehicleName(b))
			delete(r.s.blocks, id)
		}
	}
	sortBlocks(expired)
	return expired, nil
}

func (r *BlockRepository) filter(keep func(domain.AvailabilityBlock) bool) []domain.AvailabilityBlock {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.AvailabilityBlock, 0)
	for _, b := range r.s.blocks {
		if keep(b) {
			out = append(out, r.s.withVehicleName(b))
		}
	}
	sortBlocks(out)
	return out
}

func sortBlocks(blocks []domain.AvailabilityBlock) {
	sort.Slice(blocks, func(i, j int) bool {
		a, b := blocks[i], blocks[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.VehicleID != b.VehicleID {
			return a.VehicleID < b.VehicleID
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
}

var _ repository.BlockRepository = (*BlockRepository)(nil)
