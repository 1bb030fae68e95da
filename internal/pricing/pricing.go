// Package pricing quotes tours from the configured flat rates.
package pricing

import (
	"context"
	"math"
	"time"

	"github.com/Domenick1991/tourbooking/config"
	"github.com/Domenick1991/tourbooking/internal/domain"
)

type FlatRate struct {
	hourlyRate  int64
	perGuest    int64
	taxRate     float64
	depositRate float64
}

func NewFlatRate(cfg config.PricingConfig) *FlatRate {
	return &FlatRate{
		hourlyRate:  cfg.HourlyRateCents,
		perGuest:    cfg.PerGuestCents,
		taxRate:     cfg.TaxRate,
		depositRate: cfg.DepositRate,
	}
}

// Quote prices hours times the hourly rate plus a per-guest fee. Amounts are
// rounded to whole cents.
func (p *FlatRate) Quote(_ context.Context, _ time.Time, durationHours float64, partySize int, _ *int64) (domain.Quote, error) {
	if durationHours <= 0 {
		return domain.Quote{}, domain.NewValidationError("duration_hours", "must be positive")
	}
	if partySize < 1 {
		return domain.Quote{}, domain.NewValidationError("party_size", "must be at least 1")
	}
	subtotal := int64(math.Round(durationHours*float64(p.hourlyRate))) + int64(partySize)*p.perGuest
	taxes := int64(math.Round(float64(subtotal) * p.taxRate))
	total := subtotal + taxes
	return domain.Quote{
		Subtotal: subtotal,
		Taxes:    taxes,
		Total:    total,
		Deposit:  int64(math.Round(float64(total) * p.depositRate)),
	}, nil
}
