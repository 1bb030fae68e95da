// Package memory is a single-process implementation of the repository
// interfaces. All writes go through one mutex, which gives the same
// no-overlap and date-serialization guarantees the Postgres store gets from
// its exclusion constraint and advisory locks. It backs tests and local runs
// with database.driver=memory.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/tourbooking/internal/domain"
)

type Store struct {
	mu        sync.Mutex
	now       func() time.Time
	nextID    int64
	vehicles  map[int64]domain.Vehicle
	blocks    map[int64]domain.AvailabilityBlock
	bookings  map[int64]domain.Booking
	customers map[string]domain.Customer
	blackouts []domain.BlackoutDate
	sequences map[int]int64
	dateLocks *keyedLocker
}

func NewStore() *Store {
	return &Store{
		now:       time.Now,
		vehicles:  make(map[int64]domain.Vehicle),
		blocks:    make(map[int64]domain.AvailabilityBlock),
		bookings:  make(map[int64]domain.Booking),
		customers: make(map[string]domain.Customer),
		sequences: make(map[int]int64),
		dateLocks: newKeyedLocker(),
	}
}

// WithClock overrides the clock used for created_at stamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) BlockRepo() *BlockRepository       { return &BlockRepository{s: s} }
func (s *Store) VehicleRepo() *VehicleRepository   { return &VehicleRepository{s: s} }
func (s *Store) BookingRepo() *BookingRepository   { return &BookingRepository{s: s} }
func (s *Store) BlackoutRepo() *BlackoutRepository { return &BlackoutRepository{s: s} }

// AddVehicle registers a vehicle. A zero ID is replaced by the next free one.
func (s *Store) AddVehicle(v domain.Vehicle) domain.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v.ID == 0 {
		v.ID = s.id()
	} else if v.ID > s.nextID {
		s.nextID = v.ID
	}
	if v.Status == "" {
		v.Status = domain.VehicleStatusActive
	}
	v.CreatedAt, v.UpdatedAt = s.now(), s.now()
	s.vehicles[v.ID] = v
	return v
}

func (s *Store) AddBlackout(d domain.BlackoutDate) domain.BlackoutDate {
	s.mu.Lock()
	defer s.mu.Unlock()

	d.ID = s.id()
	d.Date = domain.DateOnly(d.Date)
	s.blackouts = append(s.blackouts, d)
	return d
}

// AllBlocks returns every stored block ordered by id.
func (s *Store) AllBlocks() []domain.AvailabilityBlock {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.AvailabilityBlock, 0, len(s.blocks))
	for _, b := range s.blocks {
		out = append(out, s.withVehicleName(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) withVehicleName(b domain.AvailabilityBlock) domain.AvailabilityBlock {
	if v, ok := s.vehicles[b.VehicleID]; ok {
		b.VehicleName = v.Name
	}
	return b
}

func sameDate(a, b time.Time) bool {
	return domain.DateOnly(a).Equal(domain.DateOnly(b))
}

type keyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns its release function.
func (k *keyedLocker) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
