package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/repository/memory"
	"github.com/Domenick1991/tourbooking/internal/service/vehicles"
)

var now = time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)

func settings() Settings {
	return Settings{LeadTime: 48 * time.Hour, HorizonDays: 120, MinDurationHours: 2, Location: time.UTC}
}

func newEngine(store *memory.Store) *Engine {
	vehicleSvc := vehicles.NewVehicleService(store.BlockRepo(), store.VehicleRepo(), zap.NewNop())
	return NewEngine(store.BlackoutRepo(), vehicleSvc, settings(), zap.NewNop()).WithClock(func() time.Time { return now })
}

func days(dates []domain.DateAvailability) []int {
	out := make([]int, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Date.Day())
	}
	return out
}

func TestGetAvailableDates_BlackoutAndLeadTime(t *testing.T) {
	store := memory.NewStore()
	store.AddVehicle(domain.Vehicle{Name: "Sprinter", Capacity: 14})
	store.AddBlackout(domain.BlackoutDate{Date: time.Date(2026, time.October, 20, 0, 0, 0, 0, time.UTC), Reason: "Festival", Active: true})
	store.AddBlackout(domain.BlackoutDate{Date: time.Date(2026, time.October, 22, 0, 0, 0, 0, time.UTC), Reason: "old closure", Active: false})
	engine := newEngine(store)

	dates, err := engine.GetAvailableDates(context.Background(), 2026, time.October, 6, nil)

	require.NoError(t, err)
	assert.Equal(t, []int{18, 19, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31}, days(dates))
	for _, d := range dates {
		assert.Greater(t, d.AvailableSlots, 0)
	}
}

func TestGetAvailableDates_Horizon(t *testing.T) {
	store := memory.NewStore()
	store.AddVehicle(domain.Vehicle{Name: "Sprinter", Capacity: 14})
	engine := newEngine(store)

	dates, err := engine.GetAvailableDates(context.Background(), 2027, time.February, 2, nil)

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, days(dates))
}

func TestGetAvailableDates_FullyBookedAndTooLargeParty(t *testing.T) {
	store := memory.NewStore()
	van := store.AddVehicle(domain.Vehicle{Name: "Sprinter", Capacity: 14})
	booked := time.Date(2026, time.November, 10, 0, 0, 0, 0, time.UTC)
	_, err := store.BlockRepo().CreateBlock(context.Background(),
		domain.HoldRequest{VehicleID: van.ID, Date: booked, StartTime: 0, EndTime: domain.MinutesPerDay}, domain.BlockTypeBooking)
	require.NoError(t, err)
	engine := newEngine(store)
	ctx := context.Background()

	dates, err := engine.GetAvailableDates(ctx, 2026, time.November, 4, nil)
	require.NoError(t, err)
	assert.Len(t, dates, 29)
	assert.NotContains(t, days(dates), 10)

	dates, err = engine.GetAvailableDates(ctx, 2026, time.November, 20, nil)
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestGetAvailableDates_InvalidInput(t *testing.T) {
	engine := newEngine(memory.NewStore())
	ctx := context.Background()

	_, err := engine.GetAvailableDates(ctx, 2026, 13, 2, nil)
	assert.True(t, domain.IsValidation(err))
	_, err = engine.GetAvailableDates(ctx, 2026, time.November, 0, nil)
	assert.True(t, domain.IsValidation(err))
}

func TestCheckBookable(t *testing.T) {
	store := memory.NewStore()
	scope := int64(2)
	otherScope := int64(3)
	store.AddBlackout(domain.BlackoutDate{Date: time.Date(2026, time.November, 5, 0, 0, 0, 0, time.UTC), ScopeID: &scope, Reason: "private charter", Active: true})
	engine := newEngine(store)
	ctx := context.Background()

	tests := []struct {
		name     string
		date     time.Time
		scopeID  *int64
		bookable bool
		reason   string
	}{
		{"tomorrow", time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC), nil, false, "lead time"},
		{"after lead time", time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC), nil, true, ""},
		{"scoped blackout", time.Date(2026, time.November, 5, 0, 0, 0, 0, time.UTC), &scope, false, "private charter"},
		{"other scope", time.Date(2026, time.November, 5, 0, 0, 0, 0, time.UTC), &otherScope, true, ""},
		{"beyond horizon", time.Date(2027, time.March, 1, 0, 0, 0, 0, time.UTC), nil, false, "120 days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.CheckBookable(ctx, tt.date, tt.scopeID)
			ok, boolErr := engine.IsBookableDate(ctx, tt.date, tt.scopeID)
			require.NoError(t, boolErr)
			assert.Equal(t, tt.bookable, ok)
			if tt.bookable {
				assert.NoError(t, err)
				return
			}
			assert.True(t, domain.IsConflict(err))
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestCheckBookable_OperatorTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Pacific/Auckland")
	require.NoError(t, err)
	s := settings()
	s.Location = loc
	later := now.Add(5 * time.Hour)
	date := time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC)

	// 2026-10-18 00:00 in Auckland is 2026-10-17 11:00 UTC, before now+48h.
	engine := NewEngine(memory.NewStore().BlackoutRepo(), &MockSlotFinder{}, s, zap.NewNop()).WithClock(func() time.Time { return later })
	ok, err := engine.IsBookableDate(context.Background(), date, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	utc := NewEngine(memory.NewStore().BlackoutRepo(), &MockSlotFinder{}, settings(), zap.NewNop()).WithClock(func() time.Time { return later })
	ok, err = utc.IsBookableDate(context.Background(), date, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

type MockSlotFinder struct {
	mock.Mock
}

func (m *MockSlotFinder) GetAvailableSlots(ctx context.Context, input vehicles.SlotsInput) ([]domain.Slot, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Slot), args.Error(1)
}

func TestGetAvailableTimeSlots_Delegates(t *testing.T) {
	finder := &MockSlotFinder{}
	engine := NewEngine(memory.NewStore().BlackoutRepo(), finder, settings(), zap.NewNop())
	ctx := context.Background()
	date := time.Date(2026, time.November, 3, 0, 0, 0, 0, time.UTC)

	want := []domain.Slot{{StartTime: 420, EndTime: 540, Available: true}}
	finder.On("GetAvailableSlots", ctx, vehicles.SlotsInput{Date: date, DurationHours: 2, PartySize: 5}).Return(want, nil).Once()

	slots, err := engine.GetAvailableTimeSlots(ctx, date, 2, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, want, slots)
	finder.AssertExpectations(t)
}

func TestGetAvailableDates_SlotErrorPropagates(t *testing.T) {
	finder := &MockSlotFinder{}
	engine := NewEngine(memory.NewStore().BlackoutRepo(), finder, settings(), zap.NewNop()).WithClock(func() time.Time { return now })
	finder.On("GetAvailableSlots", mock.Anything, mock.Anything).Return(nil, errors.New("store unavailable")).Once()

	_, err := engine.GetAvailableDates(context.Background(), 2026, time.November, 2, nil)
	assert.EqualError(t, err, "store unavailable")
}
