package booking

import "github.com/Ekka-Barber/Bookings-sub000/internal/httperr"

// ===============================
// Booking Status
// ===============================

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// ===============================
// Validations
// ===============================

// CanCancel allows cancelling anything that is still going to happen.
func CanCancel(current Status) error {
	if current != StatusPending && current != StatusConfirmed {
		return httperr.Validation("invalid_state", "Booking can no longer be cancelled.")
	}
	return nil
}

func CanConfirm(current Status) error {
	if current != StatusPending {
		return httperr.Validation("invalid_state", "Only pending bookings can be confirmed.")
	}
	return nil
}

func CanComplete(current Status) error {
	if current != StatusPending && current != StatusConfirmed {
		return httperr.Validation("invalid_state", "Booking can no longer be completed.")
	}
	return nil
}

func InitialStatus() Status {
	return StatusPending
}

// Blocks reports whether a booking in this status occupies its barber.
func (s Status) Blocks() bool {
	return s != StatusCancelled
}
