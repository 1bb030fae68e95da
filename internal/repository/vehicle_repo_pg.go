package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Domenick1991/tourbooking/internal/domain"
)

const vehicleColumns = `id, name, vehicle_type, capacity, status, scope_id, created_at, updated_at`

type PGVehicleRepository struct {
	db *pgxpool.Pool
}

func NewVehicleRepository(db *pgxpool.Pool) VehicleRepository {
	return &PGVehicleRepository{db: db}
}

// ListActive returns the bookable fleet, optionally restricted to one scope.
func (r *PGVehicleRepository) ListActive(ctx context.Context, scopeID *int64) ([]domain.Vehicle, error) {
	rows, err := r.db.Query(ctx, `SELECT `+vehicleColumns+` FROM vehicles
		WHERE status = $1 AND ($2::BIGINT IS NULL OR scope_id = $2)
		ORDER BY capacity, id`, string(domain.VehicleStatusActive), scopeID)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	vehicles := make([]domain.Vehicle, 0)
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, *v)
	}
	return vehicles, rows.Err()
}

func (r *PGVehicleRepository) GetByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	v, err := scanVehicle(r.db.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "vehicle", id)
	}
	return v, nil
}

func scanVehicle(row pgx.Row) (*domain.Vehicle, error) {
	var (
		v      domain.Vehicle
		status string
	)
	if err := row.Scan(&v.ID, &v.Name, &v.Type, &v.Capacity, &status, &v.ScopeID, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	v.Status = domain.VehicleStatus(status)
	return &v, nil
}

var _ VehicleRepository = (*PGVehicleRepository)(nil)
