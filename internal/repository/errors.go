package repository

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Domenick1991/tourbooking/internal/domain"
)

const (
	pgExclusionViolation = "23P01"
	pgUniqueViolation    = "23505"
	pgDuplicateTable     = "42P07"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func notFound(err error, entity string, id any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewNotFoundError(entity, id)
	}
	return fmt.Errorf("load %s %v: %w", entity, id, err)
}

// lockKey maps an arbitrary string onto the int64 key space of Postgres advisory locks.
func lockKey(s string) int64 {
	return int64(xxhash.Sum64String(s))
}

func CapacityLockKey(dateKey string) int64 {
	return lockKey("capacity:" + dateKey)
}
