package booking

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Domenick1991/tourbooking/internal/domain"
)

type CustomerInput struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,max=200"`
	Phone string `json:"phone" validate:"omitempty,max=40"`
}

// TourDetails describes the requested tour. VehicleID is set only when an
// operator assigns a specific vehicle.
type TourDetails struct {
	Date          time.Time        `json:"tour_date" validate:"required"`
	StartTime     domain.ClockTime `json:"start_time" validate:"gte=0,lt=1440"`
	DurationHours float64          `json:"duration_hours" validate:"gt=0"`
	PartySize     int              `json:"party_size" validate:"min=1"`
	ScopeID       *int64           `json:"scope_id,omitempty"`
	VehicleID     *int64           `json:"vehicle_id,omitempty" validate:"omitempty,min=1"`
	Notes         string           `json:"notes" validate:"max=1000"`
}

type CreateBookingInput struct {
	Customer CustomerInput      `json:"customer"`
	Tour     TourDetails        `json:"tour"`
	Mode     domain.BookingMode `json:"mode" validate:"omitempty,oneof=vehicle capacity"`
}

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags and reports the first failure as a
// ValidationError.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return domain.NewValidationError(fe.Field(), "failed %q check", fe.Tag())
	}
	return domain.NewValidationError("", "%s", err.Error())
}
