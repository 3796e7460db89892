package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/Ekka-Barber/Bookings-sub000/internal/httperr"
	"github.com/Ekka-Barber/Bookings-sub000/internal/validators"
)

// ===============================
// Wizard steps
// ===============================

type Step int

const (
	StepServices  Step = 1
	StepDateTime  Step = 2
	StepResource  Step = 3
	StepConfirm   Step = 4
	StepSubmitted Step = 5
)

func (s Step) String() string {
	switch s {
	case StepServices:
		return "services"
	case StepDateTime:
		return "date_time"
	case StepResource:
		return "barber"
	case StepConfirm:
		return "confirm"
	case StepSubmitted:
		return "submitted"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// ===============================
// Draft
// ===============================

// Draft is the in-progress booking selection. It is a value: copies share
// nothing mutable, so a copy handed to a listener cannot change the owner.
type Draft struct {
	Step       Step       `json:"step"`
	Services   ServiceSet `json:"services"`
	Date       string     `json:"date,omitempty"`
	Time       string     `json:"time,omitempty"`
	DateTime   *time.Time `json:"date_time,omitempty"`
	ResourceID string     `json:"resource_id,omitempty"`
	Customer   Customer   `json:"customer"`
	Error      string     `json:"error,omitempty"`
}

func NewDraft() Draft {
	return Draft{Step: StepServices}
}

func (d Draft) TotalDuration() int { return d.Services.TotalDuration() }

func (d Draft) TotalPrice() float64 { return d.Services.TotalPrice() }

// Clone detaches the DateTime pointer.
func (d Draft) Clone() Draft {
	if d.DateTime != nil {
		dt := *d.DateTime
		d.DateTime = &dt
	}
	return d
}

// Persisted is the form written to storage: no transient error.
func (d Draft) Persisted() Draft {
	out := d.Clone()
	out.Error = ""
	return out
}

// SetDate selects a new day and drops everything that depended on the old one.
func (d *Draft) SetDate(date string) {
	d.Date = date
	d.ClearTime()
}

// SetTime selects a start on the current date and drops the chosen barber.
func (d *Draft) SetTime(hm string, at time.Time) {
	d.Time = hm
	d.DateTime = &at
	d.ResourceID = ""
}

func (d *Draft) ClearTime() {
	d.Time = ""
	d.DateTime = nil
	d.ResourceID = ""
}

// Restored repairs a draft read back from storage so that it satisfies the
// draft invariants. Anything inconsistent is dropped rather than trusted.
func (d Draft) Restored(maxServices int) Draft {
	out := d.Persisted()

	if out.Step < StepServices || out.Step > StepConfirm {
		out.Step = StepServices
	}
	if out.Services.Len() > maxServices {
		out.Services = NewServiceSet()
	}
	if out.Date == "" || out.Time == "" || out.DateTime == nil {
		out.Time = ""
		out.DateTime = nil
		out.ResourceID = ""
	}

	switch {
	case out.Services.Len() == 0:
		out.Step = StepServices
	case out.DateTime == nil && out.Step > StepDateTime:
		out.Step = StepDateTime
	case out.ResourceID == "" && out.Step > StepResource:
		out.Step = StepResource
	}
	return out
}

// ===============================
// Guards
// ===============================

// GuardAdvance checks the requirement for leaving the draft's current step.
func GuardAdvance(d Draft, maxServices int) error {
	switch d.Step {
	case StepServices:
		return validateServices(d, maxServices)
	case StepDateTime:
		if d.DateTime == nil {
			return httperr.Validation("date_time_required", "Please choose a date and time.")
		}
	case StepResource:
		if d.ResourceID == "" {
			return httperr.Validation("barber_required", "Please choose a barber.")
		}
	case StepConfirm:
		return validators.ValidateCustomer(d.Customer.Name, d.Customer.Phone)
	default:
		return httperr.Validation("invalid_step", "Booking is not in progress.")
	}
	return nil
}

// ValidateForSubmission checks the whole draft, independent of its step.
func ValidateForSubmission(d Draft, maxServices int) error {
	if err := validateServices(d, maxServices); err != nil {
		return err
	}
	if d.DateTime == nil {
		return httperr.Validation("date_time_required", "Please choose a date and time.")
	}
	if d.ResourceID == "" {
		return httperr.Validation("barber_required", "Please choose a barber.")
	}
	return validators.ValidateCustomer(d.Customer.Name, d.Customer.Phone)
}

func validateServices(d Draft, maxServices int) error {
	n := d.Services.Len()
	if n == 0 {
		return httperr.Validation("services_required", "Please choose at least one service.")
	}
	if n > maxServices {
		return httperr.Validation("too_many_services", fmt.Sprintf("You can select at most %d services.", maxServices))
	}
	return nil
}

// NewBookingRequest assembles the write-only request for a validated draft.
func NewBookingRequest(d Draft, now time.Time) BookingRequest {
	return BookingRequest{
		ServiceIDs:      d.Services.IDs(),
		DateTime:        *d.DateTime,
		ResourceID:      d.ResourceID,
		Customer:        Customer{Name: strings.TrimSpace(d.Customer.Name), Phone: validators.NormalizePhone(d.Customer.Phone)},
		DurationMinutes: d.TotalDuration(),
		TotalPrice:      d.TotalPrice(),
		Status:          InitialStatus(),
		CreatedAt:       now,
	}
}
