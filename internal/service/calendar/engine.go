// Package calendar answers date-level questions: which days of a month can
// still be booked, and which departure times a day offers.
package calendar

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/repository"
	"github.com/Domenick1991/tourbooking/internal/service/vehicles"
)

type CalendarUseCase interface {
	GetAvailableDates(ctx context.Context, year int, month time.Month, partySize int, scopeID *int64) ([]domain.DateAvailability, error)
	GetAvailableTimeSlots(ctx context.Context, date time.Time, durationHours float64, partySize int, scopeID *int64) ([]domain.Slot, error)
	IsBookableDate(ctx context.Context, date time.Time, scopeID *int64) (bool, error)
}

type SlotFinder interface {
	GetAvailableSlots(ctx context.Context, input vehicles.SlotsInput) ([]domain.Slot, error)
}

type Settings struct {
	LeadTime         time.Duration
	HorizonDays      int
	MinDurationHours float64
	Location         *time.Location
}

type Engine struct {
	blackouts repository.BlackoutRepository
	slots     SlotFinder
	settings  Settings
	now       func() time.Time
	logger    *zap.Logger
}

func NewEngine(blackouts repository.BlackoutRepository, slots SlotFinder, settings Settings, logger *zap.Logger) *Engine {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &Engine{
		blackouts: blackouts,
		slots:     slots,
		settings:  settings,
		now:       time.Now,
		logger:    logger,
	}
}

// WithClock replaces the engine clock; used by tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// GetAvailableDates lists the days of the month on which a tour of the
// minimum duration still has at least one free departure for the party.
func (e *Engine) GetAvailableDates(ctx context.Context, year int, month time.Month, partySize int, scopeID *int64) ([]domain.DateAvailability, error) {
	if month < time.January || month > time.December {
		return nil, domain.NewValidationError("month", "must be between 1 and 12")
	}
	if partySize < 1 {
		return nil, domain.NewValidationError("party_size", "must be at least 1")
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	closed, err := e.blackoutSet(ctx, first, last, scopeID)
	if err != nil {
		return nil, err
	}

	dates := make([]domain.DateAvailability, 0)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if _, ok := closed[day.Format(domain.DateLayout)]; ok {
			continue
		}
		if e.windowReason(day) != "" {
			continue
		}
		slots, err := e.slots.GetAvailableSlots(ctx, vehicles.SlotsInput{
			Date:          day,
			DurationHours: e.settings.MinDurationHours,
			PartySize:     partySize,
			ScopeID:       scopeID,
		})
		if err != nil {
			return nil, err
		}
		if n := countAvailable(slots); n > 0 {
			dates = append(dates, domain.DateAvailability{Date: day, AvailableSlots: n})
		}
	}
	return dates, nil
}

func (e *Engine) GetAvailableTimeSlots(ctx context.Context, date time.Time, durationHours float64, partySize int, scopeID *int64) ([]domain.Slot, error) {
	return e.slots.GetAvailableSlots(ctx, vehicles.SlotsInput{
		Date:          domain.DateOnly(date),
		DurationHours: durationHours,
		PartySize:     partySize,
		ScopeID:       scopeID,
	})
}

// CheckBookable returns a ConflictError when the date is blacked out, inside
// the lead time, or beyond the booking horizon.
func (e *Engine) CheckBookable(ctx context.Context, date time.Time, scopeID *int64) error {
	day := domain.DateOnly(date)
	if reason := e.windowReason(day); reason != "" {
		return domain.NewConflictError("date is not bookable", reason)
	}
	blackouts, err := e.blackouts.ListActive(ctx, day, day, scopeID)
	if err != nil {
		return err
	}
	if len(blackouts) > 0 {
		reason := fmt.Sprintf("%s is a blackout date", day.Format(domain.DateLayout))
		if blackouts[0].Reason != "" {
			reason += ": " + blackouts[0].Reason
		}
		return domain.NewConflictError("date is not bookable", reason)
	}
	return nil
}

func (e *Engine) IsBookableDate(ctx context.Context, date time.Time, scopeID *int64) (bool, error) {
	err := e.CheckBookable(ctx, date, scopeID)
	if domain.IsConflict(err) {
		return false, nil
	}
	return err == nil, err
}

// windowReason explains why a day falls outside the booking window. A day
// is inside the lead time when it begins before now+lead in the operator's
// zone.
func (e *Engine) windowReason(day time.Time) string {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, e.settings.Location)
	now := e.now()
	if start.Before(now.Add(e.settings.LeadTime)) {
		return fmt.Sprintf("%s is within the %s booking lead time", day.Format(domain.DateLayout), e.settings.LeadTime)
	}
	if e.settings.HorizonDays > 0 && start.After(now.AddDate(0, 0, e.settings.HorizonDays)) {
		return fmt.Sprintf("%s is more than %d days ahead", day.Format(domain.DateLayout), e.settings.HorizonDays)
	}
	return ""
}

func (e *Engine) blackoutSet(ctx context.Context, from, to time.Time, scopeID *int64) (map[string]struct{}, error) {
	blackouts, err := e.blackouts.ListActive(ctx, from, to, scopeID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(blackouts))
	for _, b := range blackouts {
		set[b.Date.Format(domain.DateLayout)] = struct{}{}
	}
	e.logger.Debug("blackout dates loaded", zap.Int("count", len(set)), zap.Time("from", from), zap.Time("to", to))
	return set, nil
}

func countAvailable(slots []domain.Slot) int {
	n := 0
	for _, s := range slots {
		if s.Available {
			n++
		}
	}
	return n
}
