package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Domenick1991/tourbooking/internal/domain"
)

const blockColumns = `b.id, b.vehicle_id, v.name, b.block_date, b.start_minute, b.end_minute, b.block_type, b.booking_id, b.scope_id, b.notes, b.created_at`

type PGBlockRepository struct {
	db *pgxpool.Pool
}

func NewBlockRepository(db *pgxpool.Pool) BlockRepository {
	return &PGBlockRepository{db: db}
}

// CreateHold relies on the availability_blocks_no_overlap exclusion
// constraint: the overlap check and the insert are a single statement.
func (r *PGBlockRepository) CreateHold(ctx context.Context, req domain.HoldRequest) (*domain.AvailabilityBlock, error) {
	return r.CreateBlock(ctx, req, domain.BlockTypeHold)
}

func (r *PGBlockRepository) CreateBlock(ctx context.Context, req domain.HoldRequest, blockType domain.BlockType) (*domain.AvailabilityBlock, error) {
	block := &domain.AvailabilityBlock{
		VehicleID: req.VehicleID,
		Date:      domain.DateOnly(req.Date),
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Type:      blockType,
		ScopeID:   req.ScopeID,
		Notes:     req.Notes,
	}
	err := r.db.QueryRow(ctx, `INSERT INTO availability_blocks (vehicle_id, block_date, start_minute, end_minute, block_type, scope_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`, req.VehicleID, block.Date, int(req.StartTime), int(req.EndTime), string(blockType), req.ScopeID, req.Notes).
		Scan(&block.ID, &block.CreatedAt)
	if err != nil {
		if pgCode(err) == pgExclusionViolation {
			return nil, r.overlapConflict(ctx, req)
		}
		return nil, fmt.Errorf("insert %s block: %w", blockType, err)
	}
	return block, nil
}

// overlapConflict builds the reason list after the constraint rejected an insert.
// The competing block may already be gone again; the conflict stands regardless.
func (r *PGBlockRepository) overlapConflict(ctx context.Context, req domain.HoldRequest) error {
	conflict := domain.NewConflictError(fmt.Sprintf("vehicle %d is already reserved on %s %s-%s",
		req.VehicleID, req.Date.Format(domain.DateLayout), req.StartTime, req.EndTime))
	overlaps, err := r.QueryOverlaps(ctx, req.VehicleID, req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return conflict
	}
	for _, b := range overlaps {
		conflict.Reasons = append(conflict.Reasons, b.Describe())
	}
	return conflict
}

func (r *PGBlockRepository) ConvertToBooking(ctx context.Context, blockID, bookingID int64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE availability_blocks SET block_type = $1, booking_id = $2 WHERE id = $3 AND block_type = $4`,
		string(domain.BlockTypeBooking), bookingID, blockID, string(domain.BlockTypeHold))
	if err != nil {
		return fmt.Errorf("convert hold %d: %w", blockID, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NewNotFoundError("hold block", blockID)
	}
	return nil
}

func (r *PGBlockRepository) Delete(ctx context.Context, blockID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM availability_blocks WHERE id = $1`, blockID); err != nil {
		return fmt.Errorf("delete block %d: %w", blockID, err)
	}
	return nil
}

func (r *PGBlockRepository) DeleteBookingBlocks(ctx context.Context, bookingID int64) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM availability_blocks WHERE booking_id = $1 AND block_type = $2`, bookingID, string(domain.BlockTypeBooking))
	if err != nil {
		return 0, fmt.Errorf("delete blocks of booking %d: %w", bookingID, err)
	}
	return cmd.RowsAffected(), nil
}

func (r *PGBlockRepository) QueryOverlaps(ctx context.Context, vehicleID int64, date time.Time, start, end domain.ClockTime) ([]domain.AvailabilityBlock, error) {
	rows, err := r.db.Query(ctx, `SELECT `+blockColumns+`
		FROM availability_blocks b JOIN vehicles v ON v.id = b.vehicle_id
		WHERE b.vehicle_id = $1 AND b.block_date = $2 AND b.start_minute < $4 AND $3 < b.end_minute
		ORDER BY b.start_minute`, vehicleID, domain.DateOnly(date), int(start), int(end))
	if err != nil {
		return nil, fmt.Errorf("query overlaps: %w", err)
	}
	return collectBlocks(rows)
}

func (r *PGBlockRepository) ListForDate(ctx context.Context, date time.Time, vehicleIDs []int64) ([]domain.AvailabilityBlock, error) {
	rows, err := r.db.Query(ctx, `SELECT `+blockColumns+`
		FROM availability_blocks b JOIN vehicles v ON v.id = b.vehicle_id
		WHERE b.block_date = $1 AND b.vehicle_id = ANY($2)
		ORDER BY b.vehicle_id, b.start_minute`, domain.DateOnly(date), vehicleIDs)
	if err != nil {
		return nil, fmt.Errorf("list blocks for date: %w", err)
	}
	return collectBlocks(rows)
}

func (r *PGBlockRepository) ListInRange(ctx context.Context, from, to time.Time, vehicleID *int64) ([]domain.AvailabilityBlock, error) {
	rows, err := r.db.Query(ctx, `SELECT `+blockColumns+`
		FROM availability_blocks b JOIN vehicles v ON v.id = b.vehicle_id
		WHERE b.block_date BETWEEN $1 AND $2 AND ($3::BIGINT IS NULL OR b.vehicle_id = $3)
		ORDER BY b.block_date, b.vehicle_id, b.start_minute`, domain.DateOnly(from), domain.DateOnly(to), vehicleID)
	if err != nil {
		return nil, fmt.Errorf("list blocks in range: %w", err)
	}
	return collectBlocks(rows)
}

func (r *PGBlockRepository) ExpireHolds(ctx context.Context, createdBefore time.Time) ([]domain.AvailabilityBlock, error) {
	rows, err := r.db.Query(ctx, `WITH expired AS (
			DELETE FROM availability_blocks WHERE block_type = $1 AND created_at < $2
			RETURNING id, vehicle_id, block_date, start_minute, end_minute, block_type, booking_id, scope_id, notes, created_at
		)
		SELECT b.id, b.vehicle_id, v.name, b.block_date, b.start_minute, b.end_minute, b.block_type, b.booking_id, b.scope_id, b.notes, b.created_at
		FROM expired b JOIN vehicles v ON v.id = b.vehicle_id`, string(domain.BlockTypeHold), createdBefore)
	if err != nil {
		return nil, fmt.Errorf("expire holds: %w", err)
	}
	return collectBlocks(rows)
}

func collectBlocks(rows pgx.Rows) ([]domain.AvailabilityBlock, error) {
	defer rows.Close()

	blocks := make([]domain.AvailabilityBlock, 0)
	for rows.Next() {
		var (
			b          domain.AvailabilityBlock
			start, end int
			blockType  string
		)
		if err := rows.Scan(&b.ID, &b.VehicleID, &b.VehicleName, &b.Date, &start, &end, &blockType, &b.BookingID, &b.ScopeID, &b.Notes, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.StartTime, b.EndTime, b.Type = domain.ClockTime(start), domain.ClockTime(end), domain.BlockType(blockType)
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

var _ BlockRepository = (*PGBlockRepository)(nil)
