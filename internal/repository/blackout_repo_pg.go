package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Domenick1991/tourbooking/internal/domain"
)

type PGBlackoutRepository struct {
	db *pgxpool.Pool
}

func NewBlackoutRepository(db *pgxpool.Pool) BlackoutRepository {
	return &PGBlackoutRepository{db: db}
}

// ListActive returns active blackout dates in [from, to]. Dates without a
// scope apply to every scope.
func (r *PGBlackoutRepository) ListActive(ctx context.Context, from, to time.Time, scopeID *int64) ([]domain.BlackoutDate, error) {
	rows, err := r.db.Query(ctx, `SELECT id, blackout_on, scope_id, reason, active FROM blackout_dates
		WHERE active AND blackout_on BETWEEN $1 AND $2 AND (scope_id IS NULL OR $3::BIGINT IS NULL OR scope_id = $3)
		ORDER BY blackout_on`, domain.DateOnly(from), domain.DateOnly(to), scopeID)
	if err != nil {
		return nil, fmt.Errorf("list blackout dates: %w", err)
	}
	defer rows.Close()

	dates := make([]domain.BlackoutDate, 0)
	for rows.Next() {
		var d domain.BlackoutDate
		if err := rows.Scan(&d.ID, &d.Date, &d.ScopeID, &d.Reason, &d.Active); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

var _ BlackoutRepository = (*PGBlackoutRepository)(nil)
