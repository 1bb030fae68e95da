package booking

import "github.com/Domenick1991/tourbooking/internal/domain"

// transitions lists the allowed targets of every status. Completed and
// cancelled are terminal.
var transitions = map[domain.BookingStatus][]domain.BookingStatus{
	domain.BookingStatusPending:    {domain.BookingStatusConfirmed, domain.BookingStatusCancelled},
	domain.BookingStatusConfirmed:  {domain.BookingStatusInProgress, domain.BookingStatusCancelled},
	domain.BookingStatusInProgress: {domain.BookingStatusCompleted, domain.BookingStatusCancelled},
	domain.BookingStatusCompleted:  nil,
	domain.BookingStatusCancelled:  nil,
}

func CanTransition(from, to domain.BookingStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func validateTransition(from, to domain.BookingStatus) error {
	if !CanTransition(from, to) {
		return domain.NewValidationError("status", "cannot transition booking from %s to %s", from, to)
	}
	return nil
}
