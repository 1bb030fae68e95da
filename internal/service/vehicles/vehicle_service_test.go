package vehicles

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
)

var tourDate = time.Date(2026, time.November, 3, 0, 0, 0, 0, time.UTC)

type MockFleetCache struct {
	mock.Mock
}

func (m *MockFleetCache) GetVehicles(ctx context.Context, key string) ([]domain.Vehicle, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Vehicle), args.Error(1)
}

func (m *MockFleetCache) SetVehicles(ctx context.Context, key string, vehicles []domain.Vehicle) error {
	args := m.Called(ctx, key, vehicles)
	return args.Error(0)
}

func newService(store *memory.Store, opts ...VehicleServiceOption) *VehicleService {
	return NewVehicleService(store.BlockRepo(), store.VehicleRepo(), zap.NewNop(), opts...)
}

func at(hour, minute int) domain.ClockTime {
	return domain.NewClockTime(hour, minute)
}

func TestCheckAvailability_SingleVehicleEmptyCalendar(t *testing.T) {
	store := memory.NewStore()
	van := store.AddVehicle(domain.Vehicle{Name: "Sprinter", Type: "van", Capacity: 14})
	svc := newService(store)

	result, err := svc.CheckAvailability(context.Background(), CheckInput{
		Date:          tourDate,
		StartTime:     at(10, 0),
		DurationHours: 6,
		PartySize:     10,
	})

	require.NoError(t, err)
	assert.True(t, result.Available)
	require.NotNil(t, result.VehicleID)
	assert.Equal(t, van.ID, *result.VehicleID)
	assert.Equal(t, "Sprinter", result.VehicleName)
	assert.Equal(t, 14, result.VehicleCapacity)
	assert.Empty(t, result.Conflicts)
}

func TestCheckAvailability_BestFitAndTieBreak(t *testing.T) {
	store := memory.NewStore()
	coach := store.AddVehicle(domain.Vehicle{Name: "Coach", Capacity: 20})
	vanA := store.AddVehicle(domain.Vehicle{Name: "Van A", Capacity: 14})
	store.AddVehicle(domain.Vehicle{Name: "Van B", Capacity: 14})
	svc := newService(store)
	ctx := context.Background()

	result, err := svc.CheckAvailability(ctx, CheckInput{Date: tourDate, StartTime: at(9, 0), DurationHours: 4, PartySize: 10})
	require.NoError(t, err)
	assert.Equal(t, vanA.ID, *result.VehicleID, "smallest vehicle wins, lower id on equal capacity")

	result, err = svc.CheckAvailability(ctx, CheckInput{Date: tourDate, StartTime: at(9, 0), DurationHours: 4, PartySize: 15})
	require.NoError(t, err)
	assert.Equal(t, coach.ID, *result.VehicleID)
}

func TestCheckAvailability_IDOrderPolicy(t *testing.T) {
	store := memory.NewStore()
	coach := store.AddVehicle(domain.Vehicle{Name: "Coach", Capacity: 20})
	store.AddVehicle(domain.Vehicle{Name: "Van", Capacity: 14})
	svc := newService(store, WithRanking(IDOrder))

	result, err := svc.CheckAvailability(context.Background(), CheckInput{Date: tourDate, StartTime: at(9, 0), DurationHours: 4, PartySize: 10})
	require.NoError(t, err)
	assert.Equal(t, coach.ID, *result.VehicleID)
}

func TestCheckAvailability_ConflictPerCandidate(t *testing.T) {
	store := memory.NewStore()
	vanA := store.AddVehicle(domain.Vehicle{Name: "Van A", Capacity: 14})
	vanB := store.AddVehicle(domain.Vehicle{Name: "Van B", Capacity: 14})
	store.AddVehicle(domain.Vehicle{Name: "Minibus", Capacity: 6})
	svc := newService(store)
	ctx := context.Background()

	for _, id := range []int64{vanA.ID, vanB.ID} {
		_, err := svc.CreateHoldBlock(ctx, domain.HoldRequest{VehicleID: id, Date: tourDate, StartTime: at(10, 0), EndTime: at(16, 0)})
		require.NoError(t, err)
	}

	result, err := svc.CheckAvailability(ctx, CheckInput{Date: tourDate, StartTime: at(12, 0), DurationHours: 2, PartySize: 10})
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Nil(t, result.VehicleID)
	assert.Equal(t, []string{
		"Van A (capacity 14) is reserved: HOLD 10:00-16:00",
		"Van B (capacity 14) is reserved: HOLD 10:00-16:00",
	}, result.Conflicts)
}

func TestCheckAvailability_NoVehicleLargeEnough(t *testing.T) {
	store := memory.NewStore()
	store.AddVehicle(domain.Vehicle{Name: "Van", Capacity: 14})
	svc := newService(store)

	result, err := svc.CheckAvailability(context.Background(), CheckInput{Date: tourDate, StartTime: at(10, 0), DurationHours: 2, PartySize: 25})
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, []string{"no vehicle can carry a party of 25"}, result.Conflicts)
}

func TestCheckAvailability_InvalidInput(t *testing.T) {
	svc := newService(memory.NewStore())
	ctx := context.Background()

	tests := []struct {
		name  string
		input CheckInput
	}{
		{"empty party", CheckInput{Date: tourDate, StartTime: at(10, 0), DurationHours: 2}},
		{"zero duration", CheckInput{Date: tourDate, StartTime: at(10, 0), PartySize: 2}},
		{"past midnight", CheckInput{Date: tourDate, StartTime: at(22, 0), DurationHours: 3, PartySize: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CheckAvailability(ctx, tt.input)
			assert.True(t, domain.IsValidation(err))
		})
	}
}

func TestFindAvailableVehicles(t *testing.T) {
	store := memory.NewStore()
	coach := store.AddVehicle(domain.Vehicle{Name: "Coach", Capacity: 20})
	vanA := store.AddVehicle(domain.Vehicle{Name: "Van A", Capacity: 14})
	vanB := store.AddVehicle(domain.Vehicle{Name: "Van B", Capacity: 14})
	store.AddVehicle(domain.Vehicle{Name: "Car", Capacity: 4})
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.CreateHoldBlock(ctx, domain.HoldRequest{VehicleID: vanA.ID, Date: tourDate, StartTime: at(8, 0), EndTime: at(11, 0)})
	require.NoError(t, err)

	free, err := svc.FindAvailableVehicles(ctx, tourDate, at(10, 0), at(12, 0), 6, nil)
	require.NoError(t, err)
	require.Len(t, free, 2)
	assert.Equal(t, vanB.ID, free[0].ID)
	assert.Equal(t, coach.ID, free[1].ID)

	_, err = svc.FindAvailableVehicles(ctx, tourDate, at(12, 0), at(10, 0), 6, nil)
	assert.True(t, domain.IsValidation(err))
}

func TestGetAvailableSlots(t *testing.T) {
	store := memory.NewStore()
	van := store.AddVehicle(domain.Vehicle{Name: "Van", Capacity: 14})
	svc := newService(store, WithOperatingHours(at(7, 0), at(20, 0), 30))
	ctx := context.Background()

	_, err := svc.CreateHoldBlock(ctx, domain.HoldRequest{VehicleID: van.ID, Date: tourDate, StartTime: at(10, 0), EndTime: at(16, 0)})
	require.NoError(t, err)

	slots, err := svc.GetAvailableSlots(ctx, SlotsInput{Date: tourDate, DurationHours: 2, PartySize: 8})
	require.NoError(t, err)
	require.Len(t, slots, 23)
	assert.Equal(t, at(7, 0), slots[0].StartTime)
	assert.Equal(t, at(18, 0), slots[len(slots)-1].StartTime)

	var available []domain.ClockTime
	for _, s := range slots {
		if s.Available {
			available = append(available, s.StartTime)
			assert.Equal(t, van.ID, *s.VehicleID)
			assert.Equal(t, "Van", s.VehicleName)
		}
	}
	assert.Equal(t, []domain.ClockTime{at(7, 0), at(7, 30), at(8, 0), at(16, 0), at(16, 30), at(17, 0), at(17, 30), at(18, 0)}, available)
}

func TestGetAvailableSlots_NoCandidates(t *testing.T) {
	store := memory.NewStore()
	store.AddVehicle(domain.Vehicle{Name: "Van", Capacity: 4})
	svc := newService(store)

	slots, err := svc.GetAvailableSlots(context.Background(), SlotsInput{Date: tourDate, DurationHours: 2, PartySize: 8})
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	for _, s := range slots {
		assert.False(t, s.Available)
	}
}

func TestCreateHoldBlock_AppliesBuffer(t *testing.T) {
	store := memory.NewStore()
	van := store.AddVehicle(domain.Vehicle{Name: "Van", Capacity: 14})
	svc := newService(store, WithBuffer(30*time.Minute))
	ctx := context.Background()

	hold, err := svc.CreateHoldBlock(ctx, domain.HoldRequest{VehicleID: van.ID, Date: tourDate, StartTime: at(10, 0), EndTime: at(12, 0)})
	require.NoError(t, err)
	assert.Equal(t, at(12, 30), hold.EndTime)

	result, err := svc.CheckAvailability(ctx, CheckInput{Date: tourDate, StartTime: at(12, 0), DurationHours: 2, PartySize: 4})
	require.NoError(t, err)
	assert.False(t, result.Available)

	result, err = svc.CheckAvailability(ctx, CheckInput{Date: tourDate, StartTime: at(12, 30), DurationHours: 2, PartySize: 4})
	require.NoError(t, err)
	assert.True(t, result.Available)

	late, err := svc.CreateHoldBlock(ctx, domain.HoldRequest{VehicleID: van.ID, Date: tourDate, StartTime: at(22, 0), EndTime: at(23, 45)})
	require.NoError(t, err)
	assert.Equal(t, domain.ClockTime(domain.MinutesPerDay), late.EndTime)
}

func TestHoldLifecycle(t *testing.T) {
	store := memory.NewStore()
	van := store.AddVehicle(domain.Vehicle{Name: "Van", Capacity: 14})
	svc := newService(store)
	ctx := context.Background()

	hold, err := svc.CreateHoldBlock(ctx, domain.HoldRequest{VehicleID: van.ID, Date: tourDate, StartTime: at(10, 0), EndTime: at(12, 0)})
	require.NoError(t, err)
	require.NoError(t, svc.ConvertHoldToBooking(ctx, hold.ID, 42))

	blocks := store.AllBlocks()
	require.Len(t, blocks, 1)
	assert.Equal(t, domain.BlockTypeBooking, blocks[0].Type)
	assert.Equal(t, int64(42), *blocks[0].BookingID)

	deleted, err := svc.DeleteBookingBlocks(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Empty(t, store.AllBlocks())

	assert.NoError(t, svc.ReleaseHoldBlock(ctx, hold.ID))
	assert.NoError(t, svc.ReleaseHoldBlock(ctx, 9999))
}

func TestCheckVehicleAvailability(t *testing.T) {
	store := memory.NewStore()
	van := store.AddVehicle(domain.Vehicle{Name: "Van", Capacity: 14})
	broken := store.AddVehicle(domain.Vehicle{Name: "Old Van", Capacity: 14, Status: domain.VehicleStatusMaintenance})
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.CreateHoldBlock(ctx, domain.HoldRequest{VehicleID: van.ID, Date: tourDate, StartTime: at(10, 0), EndTime: at(12, 0)})
	require.NoError(t, err)

	result, err := svc.CheckVehicleAvailability(ctx, van.ID, tourDate, at(11, 0), at(13, 0))
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, []string{"Van has a HOLD block 10:00-12:00 on 2026-11-03"}, result.Conflicts)

	result, err = svc.CheckVehicleAvailability(ctx, van.ID, tourDate, at(12, 0), at(13, 0))
	require.NoError(t, err)
	assert.True(t, result.Available)

	result, err = svc.CheckVehicleAvailability(ctx, broken.ID, tourDate, at(12, 0), at(13, 0))
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, []string{"Old Van is maintenance"}, result.Conflicts)

	_, err = svc.CheckVehicleAvailability(ctx, 777, tourDate, at(12, 0), at(13, 0))
	assert.True(t, domain.IsNotFound(err))
}

func TestGetBlocksInRange(t *testing.T) {
	store := memory.NewStore()
	van := store.AddVehicle(domain.Vehicle{Name: "Van", Capacity: 14})
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.CreateHoldBlock(ctx, domain.HoldRequest{VehicleID: van.ID, Date: tourDate, StartTime: at(10, 0), EndTime: at(12, 0)})
	require.NoError(t, err)
	_, err = svc.CreateOperatorBlock(ctx, domain.HoldRequest{VehicleID: van.ID, Date: tourDate.AddDate(0, 0, 1), StartTime: 0, EndTime: domain.MinutesPerDay}, domain.BlockTypeMaintenance)
	require.NoError(t, err)

	blocks, err := svc.GetBlocksInRange(ctx, tourDate, tourDate.AddDate(0, 0, 7), nil)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "Van", blocks[0].VehicleName)
	assert.Equal(t, domain.BlockTypeMaintenance, blocks[1].Type)

	_, err = svc.GetBlocksInRange(ctx, tourDate, tourDate.AddDate(0, 0, -1), nil)
	assert.True(t, domain.IsValidation(err))

	_, err = svc.CreateOperatorBlock(ctx, domain.HoldRequest{VehicleID: van.ID, Date: tourDate, StartTime: 0, EndTime: 60}, domain.BlockTypeHold)
	assert.True(t, domain.IsValidation(err))
}

func TestReleaseExpiredHolds(t *testing.T) {
	created := time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)
	store := memory.NewStore().WithClock(func() time.Time { return created })
	van := store.AddVehicle(domain.Vehicle{Name: "Van", Capacity: 14})
	now := created.Add(10 * time.Minute)
	svc := newService(store, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	hold, err := svc.CreateHoldBlock(ctx, domain.HoldRequest{VehicleID: van.ID, Date: tourDate, StartTime: at(10, 0), EndTime: at(12, 0)})
	require.NoError(t, err)

	expired, err := svc.ReleaseExpiredHolds(ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, expired)

	now = created.Add(20 * time.Minute)
	expired, err = svc.ReleaseExpiredHolds(ctx, 15*time.Minute)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, hold.ID, expired[0].ID)
	assert.Empty(t, store.AllBlocks())
}

func TestFleetCache_ReadThrough(t *testing.T) {
	store := memory.NewStore()
	van := store.AddVehicle(domain.Vehicle{Name: "Van", Capacity: 14})
	cache := &MockFleetCache{}
	svc := newService(store, WithFleetCache(cache))
	ctx := context.Background()

	cache.On("GetVehicles", ctx, "all").Return(nil, errors.New("cache miss")).Once()
	cache.On("SetVehicles", ctx, "all", mock.MatchedBy(func(v []domain.Vehicle) bool {
		return len(v) == 1 && v[0].ID == van.ID
	})).Return(nil).Once()

	result, err := svc.CheckAvailability(ctx, CheckInput{Date: tourDate, StartTime: at(10, 0), DurationHours: 2, PartySize: 4})
	require.NoError(t, err)
	assert.True(t, result.Available)

	cached := []domain.Vehicle{{ID: 500, Name: "Cached Bus", Capacity: 30, Status: domain.VehicleStatusActive}}
	cache.On("GetVehicles", ctx, "all").Return(cached, nil).Once()

	result, err = svc.CheckAvailability(ctx, CheckInput{Date: tourDate, StartTime: at(10, 0), DurationHours: 2, PartySize: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(500), *result.VehicleID)

	cache.AssertExpectations(t)
}

func TestRankingPolicyByName(t *testing.T) {
	_, err := RankingPolicyByName("best_fit")
	assert.NoError(t, err)
	_, err = RankingPolicyByName("id_order")
	assert.NoError(t, err)
	_, err = RankingPolicyByName("random")
	assert.Error(t, err)
}
